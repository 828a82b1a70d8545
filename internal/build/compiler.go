package build

import (
	"git.home.luguber.info/inful/satsuma/internal/config"
	"git.home.luguber.info/inful/satsuma/internal/foundation/errors"
	"git.home.luguber.info/inful/satsuma/internal/styles"
)

// NewCompiler selects the stylesheet compiler: Dart Sass when a binary is
// configured, the built-in inliner otherwise.
func NewCompiler(cfg *config.Config) (styles.Compiler, error) {
	if cfg == nil || cfg.Build.SassBinary == "" {
		return styles.NewInliner(), nil
	}
	c, err := styles.NewDartSass(cfg.Build.SassBinary)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to start dart sass").
			WithContext("binary", cfg.Build.SassBinary).
			Fatal().
			Build()
	}
	return c, nil
}

// CompilerName identifies a compiler in logs.
func CompilerName(c styles.Compiler) string {
	if n, ok := c.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "custom"
}
