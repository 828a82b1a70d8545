package plan

import (
	"context"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/satsuma/internal/site"
)

// SiteOptions tune a full site plan.
type SiteOptions struct {
	Clean bool
}

// Site plans a full build: clean (optional), stylesheets, static assets, pages.
func Site(ctx context.Context, st *site.State, opts SiteOptions) Plan {
	var plans []Plan
	if opts.Clean {
		plans = append(plans, Clean(ctx, st))
	}
	return Concat(append(plans, Styles(ctx, st), Assets(ctx, st), AllPages(ctx, st))...)
}

func slugOf(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
