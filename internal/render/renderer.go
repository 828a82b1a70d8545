package render

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"git.home.luguber.info/inful/satsuma/internal/config"
	"git.home.luguber.info/inful/satsuma/internal/depgraph"
	"git.home.luguber.info/inful/satsuma/internal/foundation/errors"
	"git.home.luguber.info/inful/satsuma/internal/frontmatter"
	"git.home.luguber.info/inful/satsuma/internal/logfields"
	"git.home.luguber.info/inful/satsuma/internal/page"
	"git.home.luguber.info/inful/satsuma/internal/storage"
)

// Renderer owns the page entries and the page dependency graph. It is the
// single source of truth for discovery, configuration, collections and rendering.
type Renderer struct {
	layout  config.Layout
	fs      storage.Adapter
	engine  *Engine
	graph   *depgraph.PageGraph
	globals config.Globals
	logger  *slog.Logger

	mu          sync.RWMutex
	entries     map[string]*page.Entry
	collections page.Collections
}

// Result is a rendered page.
type Result struct {
	Entry *page.Entry
	HTML  string
}

// NewRenderer creates a renderer for layout reading through fs.
func NewRenderer(l config.Layout, fs storage.Adapter, globals config.Globals) (*Renderer, error) {
	engine, err := NewEngine(fs, l.SourceDir, l.PageExtension)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "create template engine").Build()
	}
	if globals == nil {
		globals = config.Globals{}
	}
	return &Renderer{
		layout:      l,
		fs:          fs,
		engine:      engine,
		graph:       depgraph.NewPageGraph(),
		globals:     globals,
		logger:      slog.Default(),
		entries:     make(map[string]*page.Entry),
		collections: page.Collections{},
	}, nil
}

// WithLogger sets a custom logger.
func (r *Renderer) WithLogger(logger *slog.Logger) *Renderer {
	r.logger = logger
	return r
}

// Graph returns the page dependency graph.
func (r *Renderer) Graph() *depgraph.PageGraph { return r.graph }

// Layout returns the directory layout.
func (r *Renderer) Layout() config.Layout { return r.layout }

// Discover finds every page and loads its entry so collections are complete
// before the first render. Entries for pages that vanished are dropped.
func (r *Renderer) Discover(ctx context.Context) ([]string, error) {
	pages, err := page.Discover(ctx, r.fs, r.layout)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "discover pages").Build()
	}
	entries := make(map[string]*page.Entry, len(pages))
	for _, p := range pages {
		e, err := r.load(ctx, p)
		if err != nil {
			return nil, err
		}
		entries[p] = e
	}
	r.mu.Lock()
	r.entries = entries
	r.rebuildCollectionsLocked()
	r.mu.Unlock()
	return pages, nil
}

// ListPages returns the known pages in sorted order.
func (r *Renderer) ListPages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for p := range r.entries {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Entry returns the entry for a page.
func (r *Renderer) Entry(path string) (*page.Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[path]
	return e, ok
}

// IsRenderablePage reports whether path is a page under this layout.
func (r *Renderer) IsRenderablePage(path string) bool {
	return page.IsRenderable(r.layout, path)
}

// Collections returns the current collections.
func (r *Renderer) Collections() page.Collections {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collections
}

// OutputsUnder returns the known page outputs below dir, excluding page.
func (r *Renderer) OutputsUnder(dir, exclude string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	prefix := filepath.Clean(dir) + string(filepath.Separator)
	for p, e := range r.entries {
		if p == exclude {
			continue
		}
		if strings.HasPrefix(e.OutputPath, prefix) {
			out = append(out, e.OutputPath)
		}
	}
	sort.Strings(out)
	return out
}

// load reads a page and parses its configuration block. A parse failure is
// logged and yields an empty configuration.
func (r *Renderer) load(ctx context.Context, path string) (*page.Entry, error) {
	src, err := r.fs.ReadFile(ctx, path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "read page").
			WithContext("page", path).
			Build()
	}
	fields, body, err := frontmatter.Extract(src)
	if err != nil {
		r.logger.Warn("Failed to parse page configuration", logfields.Page(path), logfields.Error(err))
	}
	return page.NewEntry(r.layout, path, page.Config(fields), string(body)), nil
}

// Refresh re-reads a page and recomputes collections.
func (r *Renderer) Refresh(ctx context.Context, path string) (*page.Entry, error) {
	e, err := r.load(ctx, path)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.entries[path] = e
	r.rebuildCollectionsLocked()
	r.mu.Unlock()
	return e, nil
}

func (r *Renderer) rebuildCollectionsLocked() {
	list := make([]*page.Entry, 0, len(r.entries))
	for _, e := range r.entries {
		list = append(list, e)
	}
	r.collections = page.BuildCollections(list)
}

// Render clears the page's edges, refreshes its entry, and renders it while
// recording every include, collection read and layout template into the graph.
func (r *Renderer) Render(ctx context.Context, path string) (*Result, error) {
	r.graph.ClearPage(path)

	entry, err := r.Refresh(ctx, path)
	if err != nil {
		return nil, err
	}

	data := r.context(entry, entry.Body)
	record := func(resolved string) { r.graph.Record(path, resolved) }

	body, err := r.engine.Render(ctx, path, entry.Body, data, record)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryTemplate, "failed to render page").
			Warning().
			WithContext("page", path).
			Build()
	}

	name := entry.Config.Template()
	if name == "" {
		r.logRendered(path)
		return &Result{Entry: entry, HTML: body}, nil
	}

	tplPath, err := r.resolveTemplate(ctx, name)
	if err != nil {
		return nil, err
	}
	r.graph.Record(path, tplPath)
	src, err := r.fs.ReadFile(ctx, tplPath)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "read template").
			WithContext("template", tplPath).
			Build()
	}
	html, err := r.engine.Render(ctx, tplPath, string(src), r.context(entry, body), record)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryTemplate, "failed to render template").
			Warning().
			WithContext("page", path).
			WithContext("template", tplPath).
			Build()
	}
	r.logRendered(path)
	return &Result{Entry: entry, HTML: html}, nil
}

func (r *Renderer) logRendered(path string) {
	r.logger.Debug("Rendered page",
		logfields.Page(path),
		slog.Any("dependencies", r.graph.DependenciesOf(path)))
}

func (r *Renderer) resolveTemplate(ctx context.Context, name string) (string, error) {
	candidates := []string{filepath.Join(r.layout.TemplatesDir, name+r.layout.PageExtension)}
	if filepath.Ext(name) != "" {
		candidates = append([]string{filepath.Join(r.layout.TemplatesDir, name)}, candidates...)
	}
	for _, c := range candidates {
		ok, err := r.fs.Exists(ctx, c)
		if err != nil {
			return "", errors.WrapError(err, errors.CategoryFileSystem, "stat template").Build()
		}
		if ok {
			return c, nil
		}
	}
	return "", errors.TemplateError("template not found").
		WithContext("template", name).
		WithContext("templates_dir", r.layout.TemplatesDir).
		Build()
}

// context builds the rendering data: content, site, collections and the
// page configuration keys on top.
func (r *Renderer) context(entry *page.Entry, content string) map[string]any {
	r.mu.RLock()
	cols := r.collections
	r.mu.RUnlock()

	data := map[string]any{
		"content":     content,
		"site":        r.globals.Site(),
		"collections": cols.Track(entry.Source, r.graph),
		"config":      entry.Config,
		"page": map[string]any{
			"slug":       entry.Slug,
			"publicPath": entry.PublicPath,
			"collection": entry.Collection,
		},
	}
	for k, v := range entry.Config {
		data[k] = v
	}
	data["content"] = content
	return data
}

// Remove clears the page's edges both ways, drops its entry and recomputes
// collections. It returns the removed entry, if one was known.
func (r *Renderer) Remove(path string) (*page.Entry, bool) {
	r.graph.RemovePage(path)
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[path]
	if !ok {
		return nil, false
	}
	delete(r.entries, path)
	r.rebuildCollectionsLocked()
	return e, true
}
