// Package page models discovered pages: their configuration, body, collection
// membership and output location.
package page

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"

	"git.home.luguber.info/inful/satsuma/internal/config"
	"git.home.luguber.info/inful/satsuma/internal/depgraph"
)

var fold = cases.Fold()

// sameName compares file or directory names case-insensitively.
func sameName(a, b string) bool {
	return fold.String(a) == fold.String(b)
}

// Config is the parsed configuration block of a page.
type Config map[string]any

// Template returns the named layout template, or "".
func (c Config) Template() string {
	s, _ := c["template"].(string)
	return s
}

// Tags returns the tag list, ignoring non-string members.
func (c Config) Tags() []string {
	raw, ok := c["tags"].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Entry is a discovered, parsed, render-ready page.
type Entry struct {
	Source        string
	Config        Config
	Body          string
	Collection    string
	CollectionKey string
	Slug          string
	OutputDir     string
	OutputPath    string
	PublicPath    string
}

// IsIndex reports whether the page is named index.
func (e *Entry) IsIndex() bool {
	return sameName(e.Slug, "index")
}

// NewEntry builds the entry for the page at source. The configuration block
// has already been separated from body.
func NewEntry(l config.Layout, source string, cfg Config, body string) *Entry {
	if cfg == nil {
		cfg = Config{}
	}
	slug := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	e := &Entry{
		Source: source,
		Config: cfg,
		Body:   body,
		Slug:   slug,
	}
	e.Collection = CollectionName(l, source)
	if e.Collection != "" {
		e.CollectionKey = depgraph.CollectionKey(e.Collection)
	}
	e.OutputDir, e.OutputPath = OutputFor(l, source)
	rel, err := filepath.Rel(l.PublicDir, e.OutputDir)
	if err != nil || rel == "." {
		e.PublicPath = "/"
	} else {
		e.PublicPath = "/" + filepath.ToSlash(rel) + "/"
	}
	return e
}

// CollectionName is the immediate parent directory name, or "" for pages
// that sit directly in the pages directory.
func CollectionName(l config.Layout, source string) string {
	parent := filepath.Dir(source)
	if filepath.Clean(parent) == filepath.Clean(l.PagesDir) {
		return ""
	}
	return filepath.Base(parent)
}

// OutputFor computes the output directory and file of a page. index pages map
// to <public>/<rel-dir>/index.html, others to <public>/<rel-path-without-ext>/index.html.
func OutputFor(l config.Layout, source string) (dir, file string) {
	rel, err := filepath.Rel(l.PagesDir, source)
	if err != nil {
		rel = filepath.Base(source)
	}
	relDir := filepath.Dir(rel)
	slug := strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
	if sameName(slug, "index") {
		dir = filepath.Join(l.PublicDir, relDir)
	} else {
		dir = filepath.Join(l.PublicDir, relDir, slug)
	}
	return dir, filepath.Join(dir, "index.html")
}
