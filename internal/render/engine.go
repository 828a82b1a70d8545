// Package render executes page templates and tracks what every page read.
package render

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	lru "github.com/hashicorp/golang-lru/v2"

	"git.home.luguber.info/inful/satsuma/internal/markdown"
	"git.home.luguber.info/inful/satsuma/internal/storage"
)

// maxIncludeDepth bounds nested includes so a self-including file fails
// instead of recursing forever.
const maxIncludeDepth = 32

const defaultParseCacheSize = 512

// Engine renders template text with an include function that resolves files
// through a storage adapter and reports every resolved path.
type Engine struct {
	fs   storage.Adapter
	root string
	ext  string
	md   *markdown.Converter

	mu    sync.Mutex
	cache *lru.Cache[string, *template.Template]
}

// NewEngine creates an engine. root anchors includes that start with "/";
// ext is the template extension tried when an include omits it.
func NewEngine(fs storage.Adapter, root, ext string) (*Engine, error) {
	cache, err := lru.New[string, *template.Template](defaultParseCacheSize)
	if err != nil {
		return nil, err
	}
	return &Engine{fs: fs, root: root, ext: ext, md: markdown.New(), cache: cache}, nil
}

// IncludeFunc is told about every include path the engine resolves.
type IncludeFunc func(resolved string)

// Render executes src, the content of the file at name, with data.
func (e *Engine) Render(ctx context.Context, name, src string, data any, onInclude IncludeFunc) (string, error) {
	return e.render(ctx, name, src, data, onInclude, 0)
}

func (e *Engine) render(ctx context.Context, name, src string, data any, onInclude IncludeFunc, depth int) (string, error) {
	if depth > maxIncludeDepth {
		return "", fmt.Errorf("include depth exceeded at %s", name)
	}
	tpl, err := e.parse(name, src)
	if err != nil {
		return "", err
	}
	tpl = tpl.Funcs(e.funcs(ctx, name, data, onInclude, depth))

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// parse returns a private clone of the cached parse tree for src.
func (e *Engine) parse(name, src string) (*template.Template, error) {
	sum := sha256.Sum256([]byte(name + "\x00" + src))
	key := hex.EncodeToString(sum[:])

	e.mu.Lock()
	defer e.mu.Unlock()
	if tpl, ok := e.cache.Get(key); ok {
		return tpl.Clone()
	}
	tpl, err := template.New(name).Funcs(placeholderFuncs).Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	e.cache.Add(key, tpl)
	return tpl.Clone()
}

var placeholderFuncs = template.FuncMap{
	"include":  func(string, ...any) (string, error) { return "", nil },
	"markdown": func(string) (string, error) { return "", nil },
	"join":     strings.Join,
	"upper":    strings.ToUpper,
	"lower":    strings.ToLower,
}

func (e *Engine) funcs(ctx context.Context, from string, parent any, onInclude IncludeFunc, depth int) template.FuncMap {
	return template.FuncMap{
		"include": func(p string, data ...any) (string, error) {
			resolved := ResolveInclude(ctx, e.fs, e.root, from, p, e.ext)
			if onInclude != nil {
				onInclude(resolved)
			}
			content, err := e.fs.ReadFile(ctx, resolved)
			if err != nil {
				return "", fmt.Errorf("include %q: %w", p, err)
			}
			scope := parent
			if len(data) > 0 {
				scope = data[0]
			}
			return e.render(ctx, resolved, string(content), scope, onInclude, depth+1)
		},
		"markdown": e.md.Convert,
		"join":     strings.Join,
		"upper":    strings.ToUpper,
		"lower":    strings.ToLower,
	}
}

// ResolveInclude maps an include path to a file. A leading "/" anchors at
// root, otherwise the path is relative to the including file. The candidates
// p, p+ext and p/index+ext are tried in order; when none exists p is returned.
func ResolveInclude(ctx context.Context, fs storage.Adapter, root, from, p, ext string) string {
	var base string
	if strings.HasPrefix(p, "/") {
		base = filepath.Join(root, strings.TrimLeft(p, "/"))
	} else {
		base = filepath.Join(filepath.Dir(from), p)
	}
	for _, candidate := range []string{base, base + ext, filepath.Join(base, "index"+ext)} {
		info, err := fs.Stat(ctx, candidate)
		if err == nil && !info.IsDir {
			return candidate
		}
	}
	return base
}
