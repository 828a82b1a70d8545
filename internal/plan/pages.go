package plan

import (
	"context"

	"git.home.luguber.info/inful/satsuma/internal/action"
	"git.home.luguber.info/inful/satsuma/internal/foundation/errors"
	"git.home.luguber.info/inful/satsuma/internal/logfields"
	"git.home.luguber.info/inful/satsuma/internal/page"
	"git.home.luguber.info/inful/satsuma/internal/site"
)

// AllPages discovers pages afresh and renders every one of them.
func AllPages(ctx context.Context, st *site.State) Plan {
	return func(yield func(action.Action, error) bool) {
		pages, err := st.Renderer.Discover(ctx)
		if err != nil {
			fail(yield, err)
			return
		}
		for a, err := range Pages(ctx, st, pages) {
			if !yield(a, err) || err != nil {
				return
			}
		}
	}
}

// Pages renders exactly the named pages, in order. Pages whose render fails
// with a template error are logged and skipped.
func Pages(ctx context.Context, st *site.State, pages []string) Plan {
	return func(yield func(action.Action, error) bool) {
		for _, p := range pages {
			res, err := st.Renderer.Render(ctx, p)
			if err != nil {
				if errors.HasCategory(err, errors.CategoryTemplate) {
					st.Logger.Warn("Page render failed", logfields.Page(p), logfields.Error(err))
					continue
				}
				fail(yield, err)
				return
			}
			a := action.Write(res.Entry.OutputPath, []byte(res.HTML), action.Meta{Label: "Rendered", Unit: p})
			if !emit(st, yield, a) {
				return
			}
		}
	}
}

// PageRemoval drops a page from the renderer and removes its output. The
// output directory goes only when no other known page writes below it;
// otherwise, and always for index pages, only the page's own file goes.
func PageRemoval(_ context.Context, st *site.State, path string) Plan {
	entry, ok := st.Renderer.Remove(path)
	if !ok {
		dir, file := page.OutputFor(st.Layout, path)
		entry = &page.Entry{Source: path, OutputDir: dir, OutputPath: file}
		entry.Slug = slugOf(path)
	}
	target := entry.OutputDir
	if entry.IsIndex() || len(st.Renderer.OutputsUnder(entry.OutputDir, path)) > 0 {
		target = entry.OutputPath
	}
	return Of(st, action.Remove(target, action.Meta{Label: "Removed", Unit: path}))
}
