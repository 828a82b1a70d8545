package plan

import (
	"context"

	"git.home.luguber.info/inful/satsuma/internal/action"
	"git.home.luguber.info/inful/satsuma/internal/foundation/errors"
	"git.home.luguber.info/inful/satsuma/internal/logfields"
	"git.home.luguber.info/inful/satsuma/internal/safepath"
	"git.home.luguber.info/inful/satsuma/internal/site"
	"git.home.luguber.info/inful/satsuma/internal/styles"
)

// Styles compiles every stylesheet entry under the source root. The entry
// registry and import graph start over.
func Styles(ctx context.Context, st *site.State) Plan {
	return func(yield func(action.Action, error) bool) {
		entries, err := styles.Discover(ctx, st.FS, st.Layout)
		if err != nil {
			fail(yield, errors.WrapError(err, errors.CategoryFileSystem, "discover stylesheets").Build())
			return
		}
		for _, entry := range st.Styles.Entries() {
			st.Styles.Unregister(entry)
		}
		for _, entry := range entries {
			for a, err := range ScssEntry(ctx, st, entry) {
				if !yield(a, err) || err != nil {
					return
				}
			}
		}
	}
}

// ScssEntry compiles one entry into its CSS output and source map. A compile
// failure is logged and the entry is skipped.
func ScssEntry(ctx context.Context, st *site.State, entry string) Plan {
	return func(yield func(action.Action, error) bool) {
		out := styles.OutputFor(st.Layout, entry)
		if err := safepath.Check(st.Layout.PublicDir, out); err != nil {
			st.Logger.Warn("Skipping stylesheet output outside public directory",
				logfields.Entry(entry), logfields.Output(out))
			return
		}
		st.Styles.Register(entry, out)

		res, err := styles.Build(ctx, st.FS, st.Compiler, st.Layout, st.Styles, entry)
		if err != nil {
			if errors.HasCategory(err, errors.CategoryStyle) {
				st.Logger.Warn("Stylesheet compile failed", logfields.Entry(entry), logfields.Error(err))
				return
			}
			fail(yield, err)
			return
		}
		meta := action.Meta{Label: "Compiled", Unit: entry}
		if !emit(st, yield, action.Write(out, []byte(res.CSS), meta)) {
			return
		}
		if res.SourceMap != "" {
			emit(st, yield, action.Write(styles.MapFor(out), []byte(res.SourceMap), action.Meta{Unit: entry}))
		}
	}
}

// ScssPartial recompiles every entry that imported file, or every known entry
// when the graph implicates none.
func ScssPartial(ctx context.Context, st *site.State, file string) Plan {
	affected := st.Styles.EntriesAffectedBy(file)
	if len(affected) == 0 {
		affected = st.Styles.Entries()
	}
	return entriesPlan(ctx, st, affected)
}

// ScssPartialRemoval drops an unlinked partial from the import graph and
// recompiles the entries that depended on it.
func ScssPartialRemoval(ctx context.Context, st *site.State, file string) Plan {
	affected := st.Styles.EntriesAffectedBy(file)
	st.Styles.Remove(file)
	if len(affected) == 0 {
		affected = st.Styles.Entries()
	}
	return entriesPlan(ctx, st, affected)
}

func entriesPlan(ctx context.Context, st *site.State, entries []string) Plan {
	plans := make([]Plan, 0, len(entries))
	for _, e := range entries {
		plans = append(plans, ScssEntry(ctx, st, e))
	}
	return Concat(plans...)
}

// ScssRemoval removes an unlinked entry's compiled output and source map.
func ScssRemoval(_ context.Context, st *site.State, entry string) Plan {
	out, ok := st.Styles.Output(entry)
	if !ok {
		out = styles.OutputFor(st.Layout, entry)
	}
	st.Styles.Unregister(entry)
	meta := action.Meta{Label: "Removed", Unit: entry}
	return Of(st, action.Remove(out, meta), action.Remove(styles.MapFor(out), action.Meta{Unit: entry}))
}
