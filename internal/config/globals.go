package config

import (
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/satsuma/internal/foundation/errors"
)

// Globals is free-form data from globals.yaml. Its "site" key is exposed to templates.
type Globals map[string]any

// ParseGlobals decodes globals.yaml content. Empty input yields empty globals.
func ParseGlobals(data []byte) (Globals, error) {
	g := Globals{}
	if len(data) == 0 {
		return g, nil
	}
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to parse globals").Fatal().Build()
	}
	if g == nil {
		g = Globals{}
	}
	return g, nil
}

// Site returns the "site" value, or an empty map.
func (g Globals) Site() any {
	if v, ok := g["site"]; ok && v != nil {
		return v
	}
	return map[string]any{}
}
