package orchestrator

import (
	"context"

	"git.home.luguber.info/inful/satsuma/internal/action"
	"git.home.luguber.info/inful/satsuma/internal/build"
	"git.home.luguber.info/inful/satsuma/internal/plan"
	"git.home.luguber.info/inful/satsuma/internal/site"
	"git.home.luguber.info/inful/satsuma/internal/util/sets"
)

func planFor(ctx context.Context, st *site.State, class Class, ev Event) (build.Kind, plan.Plan) {
	removed := ev.Kind == Unlink
	switch class {
	case ClassPage:
		if removed {
			return build.KindPages, pageRemoved(ctx, st, ev.Path)
		}
		return build.KindPages, pageChanged(ctx, st, ev.Path)
	case ClassTemplate:
		return build.KindPages, templateChanged(ctx, st, ev.Path, removed)
	case ClassStyleEntry:
		if removed {
			return build.KindStyles, plan.ScssRemoval(ctx, st, ev.Path)
		}
		return build.KindStyles, plan.ScssEntry(ctx, st, ev.Path)
	case ClassStylePartial:
		if removed {
			return build.KindStyles, plan.ScssPartialRemoval(ctx, st, ev.Path)
		}
		return build.KindStyles, plan.ScssPartial(ctx, st, ev.Path)
	case ClassAsset:
		if removed {
			return build.KindAssets, plan.AssetRemoval(ctx, st, ev.Path)
		}
		return build.KindAssets, plan.AssetCopy(ctx, st, ev.Path)
	}
	return build.KindPages, plan.Empty()
}

// pageChanged re-renders the page, then every page that depended on it
// before the render or depends on its collection after it. Each page
// renders once.
func pageChanged(ctx context.Context, st *site.State, path string) plan.Plan {
	return func(yield func(action.Action, error) bool) {
		graph := st.Renderer.Graph()
		affected := sets.New(graph.PagesAffectedBy(path)...)
		if e, ok := st.Renderer.Entry(path); ok && e.CollectionKey != "" {
			affected.Add(graph.PagesAffectedBy(e.CollectionKey)...)
		}

		for a, err := range plan.Pages(ctx, st, []string{path}) {
			if !yield(a, err) || err != nil {
				return
			}
		}

		if e, ok := st.Renderer.Entry(path); ok && e.CollectionKey != "" {
			affected.Add(graph.PagesAffectedBy(e.CollectionKey)...)
		}
		affected.Delete(path)
		for a, err := range plan.Pages(ctx, st, knownPages(st, affected)) {
			if !yield(a, err) || err != nil {
				return
			}
		}
	}
}

// pageRemoved removes the page's output and re-renders what depended on the
// page or its collection.
func pageRemoved(ctx context.Context, st *site.State, path string) plan.Plan {
	graph := st.Renderer.Graph()
	affected := sets.New(graph.PagesAffectedBy(path)...)
	if e, ok := st.Renderer.Entry(path); ok && e.CollectionKey != "" {
		affected.Add(graph.PagesAffectedBy(e.CollectionKey)...)
	}
	affected.Delete(path)
	removal := plan.PageRemoval(ctx, st, path)
	return plan.Concat(removal, plan.Pages(ctx, st, knownPages(st, affected)))
}

// templateChanged re-renders the pages that used a shared template, or all
// pages when none is known to. An unlinked template's key is purged.
func templateChanged(ctx context.Context, st *site.State, path string, removed bool) plan.Plan {
	graph := st.Renderer.Graph()
	affected := graph.PagesAffectedBy(path)
	if removed {
		graph.RemoveDependencyKey(path)
	}
	if len(affected) == 0 {
		affected = st.Renderer.ListPages()
	}
	return plan.Pages(ctx, st, affected)
}

// knownPages drops pages the renderer no longer knows, sorted.
func knownPages(st *site.State, s sets.Set[string]) []string {
	out := make([]string, 0, s.Len())
	for _, p := range sets.Sorted(s) {
		if _, ok := st.Renderer.Entry(p); ok {
			out = append(out, p)
		}
	}
	return out
}
