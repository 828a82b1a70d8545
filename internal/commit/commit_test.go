package commit

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/satsuma/internal/action"
	"git.home.luguber.info/inful/satsuma/internal/config"
	"git.home.luguber.info/inful/satsuma/internal/plan"
	"git.home.luguber.info/inful/satsuma/internal/site"
	"git.home.luguber.info/inful/satsuma/internal/storage"
)

const public = "/proj/public"

func planOf(actions ...action.Action) plan.Plan {
	return func(yield func(action.Action, error) bool) {
		for _, a := range actions {
			if !yield(a, nil) {
				return
			}
		}
	}
}

func opts(k int) Options {
	return Options{Concurrency: k, PublicRoot: public}
}

func TestCommit_SkipsUnchangedWrites(t *testing.T) {
	ctx := context.Background()
	fs := storage.NewMemory(map[string]string{public + "/same.txt": "same"})

	res, err := Commit(ctx, planOf(
		action.Write(public+"/same.txt", []byte("same"), action.Meta{}),
		action.Write(public+"/new.txt", []byte("new"), action.Meta{Label: "Rendered"}),
	), fs, opts(2))
	require.NoError(t, err)
	require.Equal(t, []string{public + "/new.txt"}, res.Changed)
	require.Equal(t, 2, res.Actions)
	require.Equal(t, 1, res.Unchanged)
	require.Equal(t, 1, fs.Calls().WriteFile)
}

func TestCommit_CopyReadsSource(t *testing.T) {
	ctx := context.Background()
	fs := storage.NewMemory(map[string]string{"/proj/src/logo.svg": "<svg/>"})
	res, err := Commit(ctx, planOf(action.Copy("/proj/src/logo.svg", public+"/logo.svg", action.Meta{})), fs, opts(1))
	require.NoError(t, err)
	require.Equal(t, []string{public + "/logo.svg"}, res.Changed)

	data, err := fs.ReadFile(ctx, public+"/logo.svg")
	require.NoError(t, err)
	require.Equal(t, "<svg/>", string(data))

	res, err = Commit(ctx, planOf(action.Copy("/proj/src/logo.svg", public+"/logo.svg", action.Meta{})), fs, opts(1))
	require.NoError(t, err)
	require.Empty(t, res.Changed)
}

func TestCommit_RemoveMissingIsNotAnError(t *testing.T) {
	ctx := context.Background()
	fs := storage.NewMemory(map[string]string{public + "/old/index.html": "x"})
	res, err := Commit(ctx, planOf(
		action.Remove(public+"/old", action.Meta{}),
		action.Remove(public+"/ghost", action.Meta{}),
	), fs, opts(2))
	require.NoError(t, err)
	require.Equal(t, []string{public + "/old"}, res.Changed)
	ok, _ := fs.Exists(ctx, public+"/old/index.html")
	require.False(t, ok)
}

func TestCommit_DropsOutputsOutsidePublic(t *testing.T) {
	ctx := context.Background()
	fs := storage.NewMemory(nil)
	res, err := Commit(ctx, planOf(
		action.Write("/proj/secret.txt", []byte("x"), action.Meta{}),
		action.Write(public+"/../escape.txt", []byte("x"), action.Meta{}),
		action.Remove(public, action.Meta{}),
	), fs, opts(2))
	require.NoError(t, err)
	require.Empty(t, res.Changed)
	require.Equal(t, 3, res.Dropped)
	require.Empty(t, fs.Snapshot())
}

func TestCommit_PlanErrorStops(t *testing.T) {
	boom := errors.New("boom")
	p := func(yield func(action.Action, error) bool) {
		if !yield(action.Write(public+"/a", []byte("a"), action.Meta{}), nil) {
			return
		}
		yield(action.Action{}, boom)
	}
	_, err := Commit(context.Background(), p, storage.NewMemory(nil), opts(1))
	require.ErrorIs(t, err, boom)
}

// countingFS wraps an adapter and tracks simultaneous calls.
type countingFS struct {
	storage.Adapter
	delay    time.Duration
	inflight atomic.Int64
	peak     atomic.Int64
}

func (c *countingFS) track() func() {
	n := c.inflight.Add(1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(c.delay)
	return func() { c.inflight.Add(-1) }
}

func (c *countingFS) ReadFile(ctx context.Context, p string) ([]byte, error) {
	defer c.track()()
	return c.Adapter.ReadFile(ctx, p)
}

func (c *countingFS) WriteFile(ctx context.Context, p string, data []byte) error {
	defer c.track()()
	return c.Adapter.WriteFile(ctx, p, data)
}

func (c *countingFS) Remove(ctx context.Context, p string) error {
	defer c.track()()
	return c.Adapter.Remove(ctx, p)
}

func (c *countingFS) Exists(ctx context.Context, p string) (bool, error) {
	defer c.track()()
	return c.Adapter.Exists(ctx, p)
}

func TestCommit_BoundedParallelism(t *testing.T) {
	for _, k := range []int{1, 3, 5} {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			fs := &countingFS{Adapter: storage.NewMemory(nil), delay: 2 * time.Millisecond}
			var actions []action.Action
			for i := range 24 {
				actions = append(actions, action.Write(fmt.Sprintf("%s/p%02d/index.html", public, i), []byte("x"), action.Meta{}))
			}
			res, err := Commit(context.Background(), planOf(actions...), fs, opts(k))
			require.NoError(t, err)
			require.Len(t, res.Changed, 24)
			require.LessOrEqual(t, fs.peak.Load(), int64(k))
			require.LessOrEqual(t, res.Peak, k)
		})
	}
}

func TestCommit_RemovalsAreABarrier(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory(map[string]string{public + "/blog/index.html": "old"})
	fs := &countingFS{Adapter: mem, delay: 5 * time.Millisecond}

	res, err := Commit(ctx, planOf(
		action.Remove(public+"/blog", action.Meta{}),
		action.Write(public+"/blog/index.html", []byte("new"), action.Meta{}),
		action.Write(public+"/blog/post/index.html", []byte("post"), action.Meta{}),
	), fs, opts(8))
	require.NoError(t, err)
	require.Equal(t, []string{public + "/blog", public + "/blog/index.html", public + "/blog/post/index.html"}, res.Changed)
	require.Equal(t, map[string]string{
		public + "/blog/index.html":      "new",
		public + "/blog/post/index.html": "post",
	}, mem.Snapshot())
}

func TestCommit_FullSiteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	l := config.NewLayout("/proj", config.DirectoriesConfig{Source: "src", Public: "public", Pages: "pages"}, ".tmpl")
	fs := storage.NewMemory(map[string]string{
		"/proj/src/pages/index.tmpl":     "---\ntemplate: base\n---\nhome",
		"/proj/src/pages/blog/post.tmpl": "---\ntemplate: base\n---\npost",
		"/proj/src/templates/base.tmpl":  "<main>{{ .content }}</main>",
		"/proj/src/styles/main.scss":     "@import 'vars';\nbody { color: $c; }\n",
		"/proj/src/styles/_vars.scss":    "$c: red;\n",
		"/proj/src/assets/logo.svg":      "<svg/>",
	})

	first := func() Result {
		st, err := site.New(ctx, l, fs)
		require.NoError(t, err)
		res, err := Commit(ctx, plan.Site(ctx, st, plan.SiteOptions{}), fs, Options{PublicRoot: l.PublicDir})
		require.NoError(t, err)
		return res
	}
	res := first()
	require.Equal(t, []string{
		"/proj/public/assets/logo.svg",
		"/proj/public/blog/post/index.html",
		"/proj/public/index.html",
		"/proj/public/styles/main.css",
		"/proj/public/styles/main.css.map",
	}, res.Changed)

	again := first()
	require.Empty(t, again.Changed)
	require.Equal(t, 5, again.Unchanged)
}
