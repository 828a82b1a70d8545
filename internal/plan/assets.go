package plan

import (
	"context"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/satsuma/internal/action"
	"git.home.luguber.info/inful/satsuma/internal/foundation/errors"
	"git.home.luguber.info/inful/satsuma/internal/page"
	"git.home.luguber.info/inful/satsuma/internal/site"
	"git.home.luguber.info/inful/satsuma/internal/storage"
	"git.home.luguber.info/inful/satsuma/internal/styles"
)

// IsAsset reports whether a source file is copied verbatim: not a template,
// not a stylesheet, not inside a dedicated pages directory, not ignored.
func IsAsset(st *site.State, path string) bool {
	l := st.Layout
	if page.HasPageExtension(l, path) || styles.IsStylesheet(path) {
		return false
	}
	if !under(l.SourceDir, path) {
		return false
	}
	if filepath.Clean(l.PagesDir) != filepath.Clean(l.SourceDir) && under(l.PagesDir, path) {
		return false
	}
	return !st.Ignore.Ignored(path)
}

func under(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// AssetOutput maps a source file to its copy under the public root.
func AssetOutput(st *site.State, path string) string {
	rel, err := filepath.Rel(st.Layout.SourceDir, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	return filepath.Join(st.Layout.PublicDir, rel)
}

// Assets copies every static file under the source root. The asset map
// starts over.
func Assets(ctx context.Context, st *site.State) Plan {
	return func(yield func(action.Action, error) bool) {
		files, err := storage.Files(ctx, st.FS, st.Layout.SourceDir)
		if err != nil {
			fail(yield, errors.WrapError(err, errors.CategoryFileSystem, "list source files").Build())
			return
		}
		st.Assets.Reset()
		for _, f := range files {
			if !IsAsset(st, f) {
				continue
			}
			for a, err := range AssetCopy(ctx, st, f) {
				if !yield(a, err) || err != nil {
					return
				}
			}
		}
	}
}

// AssetCopy copies one static file.
func AssetCopy(_ context.Context, st *site.State, path string) Plan {
	return func(yield func(action.Action, error) bool) {
		out := AssetOutput(st, path)
		a := action.Copy(path, out, action.Meta{Label: "Copied", Unit: path})
		if !emit(st, yield, a) {
			return
		}
		st.Assets.Set(path, out)
	}
}

// AssetRemoval removes the previously copied output of an unlinked file.
func AssetRemoval(_ context.Context, st *site.State, path string) Plan {
	out, ok := st.Assets.Get(path)
	if !ok {
		out = AssetOutput(st, path)
	}
	st.Assets.Delete(path)
	return Of(st, action.Remove(out, action.Meta{Label: "Removed", Unit: path}))
}
