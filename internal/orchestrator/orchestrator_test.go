package orchestrator

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/satsuma/internal/build"
	"git.home.luguber.info/inful/satsuma/internal/config"
	"git.home.luguber.info/inful/satsuma/internal/metrics"
	"git.home.luguber.info/inful/satsuma/internal/plan"
	"git.home.luguber.info/inful/satsuma/internal/storage"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *recordingNotifier) Notify(_ context.Context, changed []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, changed)
	return nil
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type countingRecorder struct {
	metrics.NoopRecorder
	mu      sync.Mutex
	dropped int
	reloads int
	classes []string
}

func (c *countingRecorder) IncDroppedEvents() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropped++
}

func (c *countingRecorder) IncReloads() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reloads++
}

func (c *countingRecorder) ObserveEventDuration(class string, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.classes = append(c.classes, class)
}

func testLayout() config.Layout {
	return config.NewLayout("/proj", config.DirectoriesConfig{Source: "src", Public: "public", Pages: "pages"}, ".tmpl")
}

type fixture struct {
	fs       *storage.Memory
	orch     *Orchestrator
	notifier *recordingNotifier
	recorder *countingRecorder
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	fs := storage.NewMemory(files)
	rec := &countingRecorder{}
	svc := build.NewService(nil, testLayout(), fs).WithRecorder(rec)
	st, _, err := svc.Full(context.Background(), false)
	require.NoError(t, err)
	n := &recordingNotifier{}
	return &fixture{fs: fs, orch: New(svc, st).WithNotifier(n), notifier: n, recorder: rec}
}

func (f *fixture) write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, f.fs.WriteFile(context.Background(), path, []byte(content)))
}

func blogSite() map[string]string {
	return map[string]string{
		"/proj/globals.yaml":              "site:\n  title: One\n",
		"/proj/src/pages/index.tmpl":      `{{ .site.title }}:{{ range .collections.Get "blog" }}{{ .Slug }};{{ end }}`,
		"/proj/src/pages/blog/a.tmpl":     "---\ntemplate: post\n---\nA",
		"/proj/src/pages/blog/b.tmpl":     "---\ntemplate: post\n---\nB",
		"/proj/src/pages/about.tmpl":      `{{ include "/templates/footer" }}`,
		"/proj/src/templates/post.tmpl":   `<article>{{ .content }}</article>{{ include "footer" }}`,
		"/proj/src/templates/footer.tmpl": "<footer/>",
		"/proj/src/styles/main.scss":      "@import 'vars';\na { c: $c; }\n",
		"/proj/src/styles/other.scss":     "p { m: 0; }\n",
		"/proj/src/styles/_vars.scss":     "$c: red;\n",
		"/proj/src/assets/logo.svg":       "<svg/>",
	}
}

func TestClassify(t *testing.T) {
	f := newFixture(t, blogSite())
	st := f.orch.State()
	cases := map[string]Class{
		"/proj/satsuma.yaml":             ClassConfig,
		"/proj/globals.yaml":             ClassConfig,
		"/proj/src/.satsumaignore":       ClassConfig,
		"/proj/src/pages/blog/a.tmpl":    ClassPage,
		"/proj/src/pages/new.tmpl":       ClassPage,
		"/proj/src/pages/_card.tmpl":     ClassTemplate,
		"/proj/src/templates/post.tmpl":  ClassTemplate,
		"/proj/src/styles/main.scss":     ClassStyleEntry,
		"/proj/src/styles/_vars.scss":    ClassStylePartial,
		"/proj/src/assets/logo.svg":      ClassAsset,
		"/proj/src/pages/blog/photo.jpg": ClassUninteresting,
		"/elsewhere/file.txt":            ClassUninteresting,
	}
	for path, want := range cases {
		require.Equal(t, want, Classify(st, path), path)
	}
}

func TestTemplateChange_RendersExactlyDependents(t *testing.T) {
	f := newFixture(t, map[string]string{
		"/proj/src/pages/a.tmpl":     `A{{ include "/templates/f" }}`,
		"/proj/src/pages/b.tmpl":     `B{{ include "/templates/f" }}`,
		"/proj/src/pages/c.tmpl":     "C",
		"/proj/src/templates/f.tmpl": "f1",
	})
	st := f.orch.State()
	actions, err := plan.Collect(templateChanged(context.Background(), st, "/proj/src/templates/f.tmpl", false))
	require.NoError(t, err)
	var outs []string
	for _, a := range actions {
		outs = append(outs, a.Output)
	}
	require.Equal(t, []string{"/proj/public/a/index.html", "/proj/public/b/index.html"}, outs)

	f.write(t, "/proj/src/templates/f.tmpl", "f2")
	out, err := f.orch.Handle(context.Background(), Event{Kind: Change, Path: "/proj/src/templates/f.tmpl"})
	require.NoError(t, err)
	require.True(t, out.Reload)
	require.Equal(t, []string{"/proj/public/a/index.html", "/proj/public/b/index.html"}, out.Changed)
	require.Equal(t, "Af2", f.fs.Snapshot()["/proj/public/a/index.html"])
}

func TestTemplateChange_UnknownFallsBackToAllPages(t *testing.T) {
	f := newFixture(t, map[string]string{
		"/proj/src/pages/a.tmpl": "A",
		"/proj/src/pages/b.tmpl": "B",
	})
	actions, err := plan.Collect(templateChanged(context.Background(), f.orch.State(), "/proj/src/templates/new.tmpl", false))
	require.NoError(t, err)
	require.Len(t, actions, 2)
}

func TestTemplateUnlink_PurgesKey(t *testing.T) {
	f := newFixture(t, blogSite())
	ctx := context.Background()
	footer := "/proj/src/templates/footer.tmpl"
	graph := f.orch.State().Renderer.Graph()
	require.NotEmpty(t, graph.PagesAffectedBy(footer))

	require.NoError(t, f.fs.Remove(ctx, footer))
	_, err := f.orch.Handle(ctx, Event{Kind: Unlink, Path: footer})
	require.NoError(t, err)
	require.Empty(t, graph.PagesAffectedBy(footer))
}

func TestStylesheetPartial_OnlyImportersRecompile(t *testing.T) {
	f := newFixture(t, blogSite())
	before := f.fs.Snapshot()

	f.write(t, "/proj/src/styles/_vars.scss", "$c: blue;\n")
	out, err := f.orch.Handle(context.Background(), Event{Kind: Change, Path: "/proj/src/styles/_vars.scss"})
	require.NoError(t, err)
	require.True(t, out.Reload)
	require.Contains(t, out.Changed, "/proj/public/styles/main.css")
	require.NotContains(t, out.Changed, "/proj/public/styles/other.css")

	after := f.fs.Snapshot()
	require.Contains(t, after["/proj/public/styles/main.css"], "c: blue;")
	require.Equal(t, before["/proj/public/styles/other.css"], after["/proj/public/styles/other.css"])
}

func TestStylesheetEntryUnlink(t *testing.T) {
	f := newFixture(t, blogSite())
	ctx := context.Background()
	require.NoError(t, f.fs.Remove(ctx, "/proj/src/styles/other.scss"))
	out, err := f.orch.Handle(ctx, Event{Kind: Unlink, Path: "/proj/src/styles/other.scss"})
	require.NoError(t, err)
	require.Equal(t, []string{"/proj/public/styles/other.css", "/proj/public/styles/other.css.map"}, out.Changed)
}

func TestPageChange_RerendersCollectionReaders(t *testing.T) {
	f := newFixture(t, blogSite())
	ctx := context.Background()
	require.Equal(t, "One:a;b;", f.fs.Snapshot()["/proj/public/index.html"])

	f.write(t, "/proj/src/pages/blog/c.tmpl", "C")
	out, err := f.orch.Handle(ctx, Event{Kind: Add, Path: "/proj/src/pages/blog/c.tmpl"})
	require.NoError(t, err)
	require.Equal(t, []string{"/proj/public/blog/c/index.html", "/proj/public/index.html"}, out.Changed)
	require.Equal(t, "One:a;b;c;", f.fs.Snapshot()["/proj/public/index.html"])
}

func TestPageChange_BodyOnly(t *testing.T) {
	f := newFixture(t, blogSite())
	f.write(t, "/proj/src/pages/about.tmpl", "about")
	out, err := f.orch.Handle(context.Background(), Event{Kind: Change, Path: "/proj/src/pages/about.tmpl"})
	require.NoError(t, err)
	require.Equal(t, []string{"/proj/public/about/index.html"}, out.Changed)
}

func TestPageUnlink_ScopedRemovalAndDependents(t *testing.T) {
	f := newFixture(t, blogSite())
	ctx := context.Background()
	before := f.fs.Snapshot()

	require.NoError(t, f.fs.Remove(ctx, "/proj/src/pages/blog/b.tmpl"))
	out, err := f.orch.Handle(ctx, Event{Kind: Unlink, Path: "/proj/src/pages/blog/b.tmpl"})
	require.NoError(t, err)
	require.True(t, out.Reload)
	require.Equal(t, []string{"/proj/public/blog/b", "/proj/public/index.html"}, out.Changed)

	after := f.fs.Snapshot()
	require.NotContains(t, after, "/proj/public/blog/b/index.html")
	require.Equal(t, "One:a;", after["/proj/public/index.html"])
	for path, content := range before {
		if !strings.HasPrefix(path, "/proj/public/") ||
			path == "/proj/public/blog/b/index.html" || path == "/proj/public/index.html" {
			continue
		}
		require.Equal(t, content, after[path], path)
	}
}

func TestGlobalsChange_FullRebuild(t *testing.T) {
	f := newFixture(t, blogSite())
	var roots []string
	f.orch.OnRoots(func(r []string) { roots = r })
	old := f.orch.State()

	f.write(t, "/proj/globals.yaml", "site:\n  title: Two\n")
	out, err := f.orch.Handle(context.Background(), Event{Kind: Change, Path: "/proj/globals.yaml"})
	require.NoError(t, err)
	require.Equal(t, []string{"/proj/public/index.html"}, out.Changed)
	require.Equal(t, "Two:a;b;", f.fs.Snapshot()["/proj/public/index.html"])
	require.NotSame(t, old, f.orch.State())
	require.Contains(t, roots, "/proj/src")
}

func TestConfigChange_Reconfigures(t *testing.T) {
	f := newFixture(t, blogSite())
	called := false
	f.orch.WithReconfigure(func(context.Context) (*build.Service, error) {
		called = true
		return f.orch.Service().Reconfigured(nil, testLayout()), nil
	})
	out, err := f.orch.Handle(context.Background(), Event{Kind: Change, Path: "/proj/satsuma.yaml"})
	require.NoError(t, err)
	require.True(t, called)
	require.False(t, out.Reload)
}

func TestAssetLifecycle(t *testing.T) {
	f := newFixture(t, blogSite())
	ctx := context.Background()

	f.write(t, "/proj/src/assets/new.txt", "hi")
	out, err := f.orch.Handle(ctx, Event{Kind: Add, Path: "/proj/src/assets/new.txt"})
	require.NoError(t, err)
	require.Equal(t, []string{"/proj/public/assets/new.txt"}, out.Changed)

	require.NoError(t, f.fs.Remove(ctx, "/proj/src/assets/new.txt"))
	out, err = f.orch.Handle(ctx, Event{Kind: Unlink, Path: "/proj/src/assets/new.txt"})
	require.NoError(t, err)
	require.Equal(t, []string{"/proj/public/assets/new.txt"}, out.Changed)
	require.NotContains(t, f.fs.Snapshot(), "/proj/public/assets/new.txt")
	require.Equal(t, 2, f.notifier.count())
}

func TestUnchangedOutputsDoNotReload(t *testing.T) {
	f := newFixture(t, blogSite())
	out, err := f.orch.Handle(context.Background(), Event{Kind: Change, Path: "/proj/src/assets/logo.svg"})
	require.NoError(t, err)
	require.False(t, out.Reload)
	require.Empty(t, out.Changed)
	require.Zero(t, f.notifier.count())
}

func TestUninterestingEventIsIgnored(t *testing.T) {
	f := newFixture(t, blogSite())
	out, err := f.orch.Handle(context.Background(), Event{Kind: Add, Path: "/proj/src/pages/blog/photo.jpg"})
	require.NoError(t, err)
	require.Equal(t, Outcome{}, out)
	require.Empty(t, f.recorder.classes)
}

func TestDropWhileBuilding(t *testing.T) {
	f := newFixture(t, blogSite())
	f.orch.building.Store(true)

	out, err := f.orch.Handle(context.Background(), Event{Kind: Change, Path: "/proj/src/assets/logo.svg"})
	require.NoError(t, err)
	require.True(t, out.Dropped)
	require.False(t, f.orch.Dispatch(context.Background(), Event{Kind: Change, Path: "/proj/src/assets/logo.svg"}))
	out, err = f.orch.Resync(context.Background())
	require.NoError(t, err)
	require.True(t, out.Dropped)
	require.Equal(t, 3, f.recorder.dropped)

	f.orch.building.Store(false)
	out, err = f.orch.Handle(context.Background(), Event{Kind: Change, Path: "/proj/src/assets/logo.svg"})
	require.NoError(t, err)
	require.False(t, out.Dropped)
}

func TestDispatch_RunsInBackground(t *testing.T) {
	f := newFixture(t, blogSite())
	f.write(t, "/proj/src/pages/about.tmpl", "changed")
	require.True(t, f.orch.Dispatch(context.Background(), Event{Kind: Change, Path: "/proj/src/pages/about.tmpl"}))
	f.orch.Wait()
	require.False(t, f.orch.Building())
	require.Equal(t, 1, f.notifier.count())
	require.Equal(t, 1, f.recorder.reloads)
	require.Equal(t, "changed", f.fs.Snapshot()["/proj/public/about/index.html"])
}

func TestResync(t *testing.T) {
	f := newFixture(t, blogSite())
	f.write(t, "/proj/src/assets/logo.svg", "<svg>2</svg>")
	out, err := f.orch.Resync(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"/proj/public/assets/logo.svg"}, out.Changed)
}

func TestGlobalsChange_CleansWhenConfigured(t *testing.T) {
	cfg, err := config.Parse([]byte("directories:\n  source: src\n  public: public\n  pages: pages\n"))
	require.NoError(t, err)
	require.True(t, cfg.CleanBeforeBuild())

	ctx := context.Background()
	fs := storage.NewMemory(blogSite())
	svc := build.NewService(cfg, testLayout(), fs)
	st, _, err := svc.Full(ctx, true)
	require.NoError(t, err)
	orch := New(svc, st)

	require.NoError(t, fs.WriteFile(ctx, "/proj/public/stale.html", []byte("old")))
	_, err = orch.Resync(ctx)
	require.NoError(t, err)
	require.Contains(t, fs.Snapshot(), "/proj/public/stale.html")

	require.NoError(t, fs.WriteFile(ctx, "/proj/globals.yaml", []byte("site:\n  title: Two\n")))
	out, err := orch.Handle(ctx, Event{Kind: Change, Path: "/proj/globals.yaml"})
	require.NoError(t, err)
	require.Contains(t, out.Changed, "/proj/public/stale.html")
	after := fs.Snapshot()
	require.NotContains(t, after, "/proj/public/stale.html")
	require.Equal(t, "Two:a;b;", after["/proj/public/index.html"])
}
