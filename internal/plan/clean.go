package plan

import (
	"context"
	"path/filepath"

	"git.home.luguber.info/inful/satsuma/internal/action"
	"git.home.luguber.info/inful/satsuma/internal/foundation/errors"
	"git.home.luguber.info/inful/satsuma/internal/site"
	"git.home.luguber.info/inful/satsuma/internal/storage"
)

// Clean removes every direct child of the public root, in name order.
func Clean(ctx context.Context, st *site.State) Plan {
	return func(yield func(action.Action, error) bool) {
		public := st.Layout.PublicDir
		names, err := st.FS.ReadDir(ctx, public)
		if err != nil {
			if storage.IsNotExist(err) {
				return
			}
			fail(yield, errors.WrapError(err, errors.CategoryFileSystem, "list public directory").Build())
			return
		}
		for _, name := range names {
			if !emit(st, yield, action.Remove(filepath.Join(public, name), action.Meta{})) {
				return
			}
		}
	}
}
