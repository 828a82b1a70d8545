package styles

import (
	"context"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/satsuma/internal/config"
	"git.home.luguber.info/inful/satsuma/internal/depgraph"
	"git.home.luguber.info/inful/satsuma/internal/foundation/errors"
	"git.home.luguber.info/inful/satsuma/internal/storage"
)

// IsStylesheet reports whether path is a Sass source file.
func IsStylesheet(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".scss", ".sass":
		return true
	}
	return false
}

// IsPartial reports whether a stylesheet is a partial, only compiled via import.
func IsPartial(path string) bool {
	return strings.HasPrefix(filepath.Base(path), "_")
}

// IsEntry reports whether path is a stylesheet compiled on its own.
func IsEntry(path string) bool {
	return IsStylesheet(path) && !IsPartial(path)
}

// OutputFor maps an entry to <public>/<path relative to source>.css.
func OutputFor(l config.Layout, entry string) string {
	rel, err := filepath.Rel(l.SourceDir, entry)
	if err != nil {
		rel = filepath.Base(entry)
	}
	return filepath.Join(l.PublicDir, strings.TrimSuffix(rel, filepath.Ext(rel))+".css")
}

// MapFor returns the source map path next to a compiled output.
func MapFor(output string) string {
	return output + ".map"
}

// Discover returns every entry stylesheet under the source root, sorted.
func Discover(ctx context.Context, fs storage.Adapter, l config.Layout) ([]string, error) {
	var entries []string
	err := storage.Walk(ctx, fs, l.SourceDir, nil, func(p string) error {
		if IsEntry(p) {
			entries = append(entries, p)
		}
		return nil
	})
	return entries, err
}

// Build compiles entry. The entry's import edges are cleared first and
// repopulated from what the resolver actually resolved. The returned CSS
// carries a sourceMappingURL comment when a map was produced.
func Build(ctx context.Context, fs storage.Adapter, c Compiler, l config.Layout, graph *depgraph.ImportGraph, entry string) (Output, error) {
	graph.ClearBy(entry)

	src, err := fs.ReadFile(ctx, entry)
	if err != nil {
		return Output{}, errors.WrapError(err, errors.CategoryFileSystem, "read stylesheet").
			WithContext("entry", entry).
			Build()
	}
	resolver := NewResolver(ctx, fs, graph, entry, l.StylesDir, l.SourceDir)
	out, err := c.Compile(ctx, entry, src, resolver)
	if err != nil {
		return Output{}, errors.WrapError(err, errors.CategoryStyle, "failed to compile stylesheet").
			Warning().
			WithContext("entry", entry).
			Build()
	}
	if out.SourceMap != "" {
		css := strings.TrimRight(out.CSS, "\n")
		out.CSS = css + "\n/*# sourceMappingURL=" + filepath.Base(MapFor(OutputFor(l, entry))) + " */\n"
	}
	return out, nil
}
