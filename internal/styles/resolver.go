package styles

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/bep/godartsass/v2"

	"git.home.luguber.info/inful/satsuma/internal/depgraph"
	"git.home.luguber.info/inful/satsuma/internal/storage"
)

// Resolver resolves stylesheet imports through a storage adapter and records
// every file it resolves against the entry being compiled.
type Resolver struct {
	ctx   context.Context
	fs    storage.Adapter
	entry string
	paths []string
	graph *depgraph.ImportGraph
}

var _ godartsass.ImportResolver = (*Resolver)(nil)

// NewResolver returns a resolver for one compilation of entry. Relative
// imports are searched in the entry's directory and then in loadPaths.
func NewResolver(ctx context.Context, fs storage.Adapter, graph *depgraph.ImportGraph, entry string, loadPaths ...string) *Resolver {
	paths := append([]string{filepath.Dir(entry)}, loadPaths...)
	return &Resolver{ctx: ctx, fs: fs, entry: entry, paths: paths, graph: graph}
}

// Resolve finds the file an import refers to. fromDir is searched first;
// an empty fromDir searches only the load paths.
func (r *Resolver) Resolve(fromDir, ref string) (string, bool) {
	if filepath.IsAbs(ref) {
		if p, ok := r.firstExisting(candidates(ref)); ok {
			r.record(p)
			return p, true
		}
		return "", false
	}
	dirs := r.paths
	if fromDir != "" {
		dirs = append([]string{fromDir}, r.paths...)
	}
	for _, dir := range dirs {
		if p, ok := r.firstExisting(candidates(filepath.Join(dir, ref))); ok {
			r.record(p)
			return p, true
		}
	}
	return "", false
}

func (r *Resolver) record(p string) {
	if r.graph != nil && p != r.entry {
		r.graph.Record(p, r.entry)
	}
}

func (r *Resolver) firstExisting(list []string) (string, bool) {
	for _, c := range list {
		info, err := r.fs.Stat(r.ctx, c)
		if err == nil && !info.IsDir {
			return c, true
		}
	}
	return "", false
}

// candidates lists the files a Sass load of p may refer to, partials included.
func candidates(p string) []string {
	dir, base := filepath.Split(p)
	switch strings.ToLower(filepath.Ext(base)) {
	case ".scss", ".sass", ".css":
		return []string{p, filepath.Join(dir, "_"+base)}
	}
	var out []string
	for _, ext := range []string{".scss", ".sass"} {
		out = append(out, filepath.Join(dir, base+ext), filepath.Join(dir, "_"+base+ext))
	}
	for _, ext := range []string{".scss", ".sass"} {
		out = append(out, filepath.Join(p, "_index"+ext), filepath.Join(p, "index"+ext))
	}
	return append(out, p+".css")
}

// CanonicalizeURL implements godartsass.ImportResolver. An empty result
// tells the compiler this resolver does not know the URL.
func (r *Resolver) CanonicalizeURL(raw string) (string, error) {
	ref := raw
	if strings.HasPrefix(raw, "file:") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", err
		}
		ref = u.Path
	}
	p, ok := r.Resolve("", ref)
	if !ok {
		return "", nil
	}
	return fileURL(p), nil
}

// Load implements godartsass.ImportResolver.
func (r *Resolver) Load(canonical string) (godartsass.Import, error) {
	u, err := url.Parse(canonical)
	if err != nil {
		return godartsass.Import{}, err
	}
	data, err := r.fs.ReadFile(r.ctx, u.Path)
	if err != nil {
		return godartsass.Import{}, err
	}
	return godartsass.Import{Content: string(data), SourceSyntax: syntaxFor(u.Path)}, nil
}

func fileURL(p string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(p)}).String()
}

func syntaxFor(p string) godartsass.SourceSyntax {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".sass":
		return godartsass.SourceSyntaxSASS
	case ".css":
		return godartsass.SourceSyntaxCSS
	default:
		return godartsass.SourceSyntaxSCSS
	}
}
