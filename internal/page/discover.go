package page

import (
	"context"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/satsuma/internal/config"
	"git.home.luguber.info/inful/satsuma/internal/storage"
)

// skippedDirs are never searched for pages.
var skippedDirs = []string{"templates", "partials"}

func isSkippedDir(name string) bool {
	for _, s := range skippedDirs {
		if sameName(name, s) {
			return true
		}
	}
	return false
}

// IsPartial reports whether the file name marks a partial.
func IsPartial(path string) bool {
	return strings.HasPrefix(filepath.Base(path), "_")
}

// HasPageExtension reports whether path carries the page template extension.
func HasPageExtension(l config.Layout, path string) bool {
	return sameName(filepath.Ext(path), l.PageExtension)
}

// Discover walks the pages directory and returns the sorted absolute page paths.
func Discover(ctx context.Context, fs storage.Adapter, l config.Layout) ([]string, error) {
	var pages []string
	skip := func(p, name string) bool {
		return isSkippedDir(name) || filepath.Clean(p) == filepath.Clean(l.TemplatesDir)
	}
	err := storage.Walk(ctx, fs, l.PagesDir, skip, func(p string) error {
		if HasPageExtension(l, p) && !IsPartial(p) {
			pages = append(pages, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pages, nil
}

// IsRenderable reports whether path is a page: right extension, not a
// partial, not inside the templates directory or a skipped directory, and
// inside the pages directory.
func IsRenderable(l config.Layout, path string) bool {
	if !HasPageExtension(l, path) || IsPartial(path) {
		return false
	}
	if within(l.TemplatesDir, path) {
		return false
	}
	if !within(l.PagesDir, path) || !within(l.SourceDir, path) {
		return false
	}
	rel, _ := filepath.Rel(l.PagesDir, filepath.Dir(path))
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if isSkippedDir(part) {
			return false
		}
	}
	return true
}

// IsTemplate reports whether path is a template file that is not a page:
// a layout, a partial or anything under a skipped directory.
func IsTemplate(l config.Layout, path string) bool {
	return HasPageExtension(l, path) && !IsRenderable(l, path)
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
