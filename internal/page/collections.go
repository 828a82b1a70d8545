package page

import (
	"sort"

	"git.home.luguber.info/inful/satsuma/internal/depgraph"
)

// Summary is the per-page data exposed through a collection.
type Summary struct {
	Config     Config
	PublicPath string
	Slug       string
}

// Collections maps a collection name to its page summaries.
type Collections map[string][]Summary

// BuildCollections groups entries by collection. Pages at the top of the pages
// directory belong to no collection. Summaries are ordered by PublicPath.
func BuildCollections(entries []*Entry) Collections {
	out := Collections{}
	for _, e := range entries {
		if e.Collection == "" {
			continue
		}
		out[e.Collection] = append(out[e.Collection], Summary{
			Config:     e.Config,
			PublicPath: e.PublicPath,
			Slug:       e.Slug,
		})
	}
	for _, list := range out {
		sort.SliceStable(list, func(i, j int) bool { return list[i].PublicPath < list[j].PublicPath })
	}
	return out
}

// Recorder receives dependency edges from a page render.
type Recorder interface {
	Record(page, key string)
}

// TrackedCollections wraps Collections for a single page render. Every Get
// records page -> collection key, so templates that never read a collection
// never depend on it.
type TrackedCollections struct {
	page     string
	data     Collections
	recorder Recorder
}

// Track returns an accessor bound to page.
func (c Collections) Track(page string, r Recorder) *TrackedCollections {
	return &TrackedCollections{page: page, data: c, recorder: r}
}

// Get returns the named collection and records the dependency.
func (t *TrackedCollections) Get(name string) []Summary {
	if t.recorder != nil {
		t.recorder.Record(t.page, depgraph.CollectionKey(name))
	}
	return t.data[name]
}
