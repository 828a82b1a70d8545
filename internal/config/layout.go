package config

import (
	"os"
	"path/filepath"
)

// Layout holds the resolved absolute project directories.
type Layout struct {
	Root         string
	ConfigPath   string
	GlobalsPath  string
	SourceDir    string
	PublicDir    string
	PagesDir     string
	TemplatesDir string
	StylesDir    string
	AssetsDir    string
	ScriptsDir   string

	PageExtension string
}

// Layout resolves the configured directories. Source and public resolve
// against the directory holding the configuration file (or the working
// directory for in-memory configs); the remaining ones against source.
func (c *Config) Layout() (Layout, error) {
	root := ""
	if c.path != "" {
		root = filepath.Dir(c.path)
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return Layout{}, err
		}
		root = wd
	}
	l := NewLayout(root, c.Directories, c.Build.PageExtension)
	if c.path != "" {
		l.ConfigPath = c.path
	}
	return l, nil
}

// NewLayout resolves directories below root.
func NewLayout(root string, d DirectoriesConfig, pageExt string) Layout {
	root = filepath.Clean(root)
	source := resolve(root, d.Source)
	l := Layout{
		Root:          root,
		ConfigPath:    filepath.Join(root, DefaultConfigFile),
		GlobalsPath:   filepath.Join(root, DefaultGlobalsFile),
		SourceDir:     source,
		PublicDir:     resolve(root, d.Public),
		PagesDir:      source,
		TemplatesDir:  resolve(source, orDefault(d.Templates, "templates")),
		StylesDir:     resolve(source, orDefault(d.Styles, "styles")),
		AssetsDir:     resolve(source, orDefault(d.Assets, "assets")),
		ScriptsDir:    resolve(source, orDefault(d.Scripts, "scripts")),
		PageExtension: orDefault(pageExt, ".tmpl"),
	}
	if d.Pages != "" {
		l.PagesDir = resolve(source, d.Pages)
	}
	return l
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// IsConfigFile reports whether path is the configuration or globals file.
func (l Layout) IsConfigFile(path string) bool {
	p := filepath.Clean(path)
	return p == l.ConfigPath || p == l.GlobalsPath
}

// WatchRoots lists the paths a watcher should observe.
func (l Layout) WatchRoots() []string {
	roots := []string{l.SourceDir}
	for _, p := range []string{l.StylesDir, l.AssetsDir, l.ScriptsDir, l.TemplatesDir} {
		if !isUnder(l.SourceDir, p) {
			roots = append(roots, p)
		}
	}
	return append(roots, l.ConfigPath, l.GlobalsPath)
}

func isUnder(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !filepath.IsAbs(rel) && !startsWithDotDot(rel))
}

func startsWithDotDot(rel string) bool {
	return len(rel) >= 3 && rel[:2] == ".." && rel[2] == filepath.Separator
}
