package orchestrator

import (
	"path/filepath"

	"git.home.luguber.info/inful/satsuma/internal/ignore"
	"git.home.luguber.info/inful/satsuma/internal/page"
	"git.home.luguber.info/inful/satsuma/internal/plan"
	"git.home.luguber.info/inful/satsuma/internal/site"
	"git.home.luguber.info/inful/satsuma/internal/styles"
)

// Class is what a changed path means to the build.
type Class string

const (
	ClassConfig        Class = "config"
	ClassPage          Class = "page"
	ClassTemplate      Class = "template"
	ClassStyleEntry    Class = "style_entry"
	ClassStylePartial  Class = "style_partial"
	ClassAsset         Class = "asset"
	ClassUninteresting Class = "none"
)

// Classify maps a path to its class. Configuration, globals and the ignore
// rules come first; then templates (pages before shared templates), then
// stylesheets, then static assets.
func Classify(st *site.State, path string) Class {
	path = filepath.Clean(path)
	l := st.Layout
	switch {
	case l.IsConfigFile(path), path == filepath.Join(l.SourceDir, ignore.FileName):
		return ClassConfig
	case page.HasPageExtension(l, path):
		if st.Renderer.IsRenderablePage(path) {
			return ClassPage
		}
		return ClassTemplate
	case styles.IsStylesheet(path):
		if styles.IsPartial(path) {
			return ClassStylePartial
		}
		return ClassStyleEntry
	case plan.IsAsset(st, path):
		return ClassAsset
	}
	return ClassUninteresting
}
