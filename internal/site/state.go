// Package site holds the per-build state shared by planners, the committer and
// the incremental orchestrator.
package site

import (
	"context"
	"log/slog"
	"sync"

	"git.home.luguber.info/inful/satsuma/internal/config"
	"git.home.luguber.info/inful/satsuma/internal/depgraph"
	"git.home.luguber.info/inful/satsuma/internal/foundation/errors"
	"git.home.luguber.info/inful/satsuma/internal/ignore"
	"git.home.luguber.info/inful/satsuma/internal/render"
	"git.home.luguber.info/inful/satsuma/internal/storage"
	"git.home.luguber.info/inful/satsuma/internal/styles"
)

// State is one build lifetime. A full rebuild constructs a fresh State;
// incremental work mutates the existing one.
type State struct {
	Config   *config.Config
	Layout   config.Layout
	Globals  config.Globals
	FS       storage.Adapter
	Renderer *render.Renderer
	Styles   *depgraph.ImportGraph
	Compiler styles.Compiler
	Assets   *AssetMap
	Ignore   *ignore.Matcher
	Logger   *slog.Logger
}

// New loads globals and ignore rules through fs and wires a fresh renderer.
// The built-in stylesheet inliner is used until WithCompiler replaces it.
func New(ctx context.Context, l config.Layout, fs storage.Adapter) (*State, error) {
	globals, err := loadGlobals(ctx, fs, l.GlobalsPath)
	if err != nil {
		return nil, err
	}
	matcher, err := ignore.Load(ctx, fs, l.SourceDir)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "read ignore rules").Build()
	}
	r, err := render.NewRenderer(l, fs, globals)
	if err != nil {
		return nil, err
	}
	return &State{
		Layout:   l,
		Globals:  globals,
		FS:       fs,
		Renderer: r,
		Styles:   depgraph.NewImportGraph(),
		Compiler: styles.NewInliner(),
		Assets:   NewAssetMap(),
		Ignore:   matcher,
		Logger:   slog.Default(),
	}, nil
}

func loadGlobals(ctx context.Context, fs storage.Adapter, path string) (config.Globals, error) {
	if path == "" {
		return config.Globals{}, nil
	}
	data, err := fs.ReadFile(ctx, path)
	if err != nil {
		if storage.IsNotExist(err) {
			return config.Globals{}, nil
		}
		return nil, errors.WrapError(err, errors.CategoryConfig, "read globals").Fatal().Build()
	}
	return config.ParseGlobals(data)
}

// WithConfig attaches the loaded configuration.
func (s *State) WithConfig(cfg *config.Config) *State {
	s.Config = cfg
	return s
}

// WithCompiler sets the stylesheet compiler.
func (s *State) WithCompiler(c styles.Compiler) *State {
	if c != nil {
		s.Compiler = c
	}
	return s
}

// WithLogger sets a custom logger.
func (s *State) WithLogger(logger *slog.Logger) *State {
	s.Logger = logger
	s.Renderer.WithLogger(logger)
	return s
}

// AssetMap records where each copied source file was written.
type AssetMap struct {
	mu sync.RWMutex
	m  map[string]string
}

// NewAssetMap returns an empty map.
func NewAssetMap() *AssetMap {
	return &AssetMap{m: make(map[string]string)}
}

// Set records source -> output.
func (a *AssetMap) Set(source, output string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.m[source] = output
}

// Get returns the output of source.
func (a *AssetMap) Get(source string) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out, ok := a.m[source]
	return out, ok
}

// Delete forgets source.
func (a *AssetMap) Delete(source string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.m, source)
}

// Reset forgets everything.
func (a *AssetMap) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.m = make(map[string]string)
}

// Len returns the number of recorded assets.
func (a *AssetMap) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.m)
}
