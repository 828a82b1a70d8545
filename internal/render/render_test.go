package render

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/satsuma/internal/config"
	"git.home.luguber.info/inful/satsuma/internal/foundation/errors"
	"git.home.luguber.info/inful/satsuma/internal/storage"
)

func testLayout() config.Layout {
	return config.NewLayout("/proj", config.DirectoriesConfig{Source: "src", Public: "public", Pages: "pages"}, ".tmpl")
}

func newRenderer(t *testing.T, files map[string]string) (*Renderer, *storage.Memory) {
	t.Helper()
	fs := storage.NewMemory(files)
	r, err := NewRenderer(testLayout(), fs, config.Globals{"site": map[string]any{"title": "Satsuma"}})
	require.NoError(t, err)
	_, err = r.Discover(context.Background())
	require.NoError(t, err)
	return r, fs
}

func TestResolveInclude(t *testing.T) {
	ctx := context.Background()
	fs := storage.NewMemory(map[string]string{
		"/src/partials/_nav.tmpl":         "",
		"/src/pages/blog/_card.tmpl":      "",
		"/src/partials/footer/index.tmpl": "",
	})
	require.Equal(t, "/src/partials/_nav.tmpl",
		ResolveInclude(ctx, fs, "/src", "/src/pages/index.tmpl", "/partials/_nav", ".tmpl"))
	require.Equal(t, "/src/pages/blog/_card.tmpl",
		ResolveInclude(ctx, fs, "/src", "/src/pages/blog/post.tmpl", "_card.tmpl", ".tmpl"))
	require.Equal(t, "/src/partials/footer/index.tmpl",
		ResolveInclude(ctx, fs, "/src", "/src/pages/index.tmpl", "../partials/footer", ".tmpl"))
	require.Equal(t, "/src/pages/missing",
		ResolveInclude(ctx, fs, "/src", "/src/pages/index.tmpl", "missing", ".tmpl"))
}

func TestRender_WithTemplateRecordsDependencies(t *testing.T) {
	r, _ := newRenderer(t, map[string]string{
		"/proj/src/pages/blog/post.tmpl": "---\ntemplate: post\ntitle: Hello\ntags: [a]\n---\n<p>{{ .title }}</p>{{ include \"/partials/_sig\" }}",
		"/proj/src/partials/_sig.tmpl":   "<em>{{ .site.title }}</em>",
		"/proj/src/templates/post.tmpl":  "<article>{{ .content }}</article>",
	})
	res, err := r.Render(context.Background(), "/proj/src/pages/blog/post.tmpl")
	require.NoError(t, err)
	require.Equal(t, "<article><p>Hello</p><em>Satsuma</em></article>", res.HTML)
	require.Equal(t, "/proj/public/blog/post/index.html", res.Entry.OutputPath)

	require.Equal(t, []string{
		"/proj/src/partials/_sig.tmpl",
		"/proj/src/templates/post.tmpl",
	}, r.Graph().DependenciesOf("/proj/src/pages/blog/post.tmpl"))
}

func TestRender_CollectionsReadAreTracked(t *testing.T) {
	r, _ := newRenderer(t, map[string]string{
		"/proj/src/pages/index.tmpl":  "{{ range .collections.Get \"blog\" }}{{ .Config.title }}@{{ .PublicPath }};{{ end }}",
		"/proj/src/pages/about.tmpl":  "about",
		"/proj/src/pages/blog/b.tmpl": "---\ntitle: B\n---\nb",
		"/proj/src/pages/blog/a.tmpl": "---\ntitle: A\n---\na",
	})
	res, err := r.Render(context.Background(), "/proj/src/pages/index.tmpl")
	require.NoError(t, err)
	require.Equal(t, "A@/blog/a/;B@/blog/b/;", res.HTML)

	_, err = r.Render(context.Background(), "/proj/src/pages/about.tmpl")
	require.NoError(t, err)

	require.Equal(t, []string{"/proj/src/pages/index.tmpl"}, r.Graph().PagesAffectedBy("collection:blog"))
}

func TestRender_ClearsStaleEdges(t *testing.T) {
	r, fs := newRenderer(t, map[string]string{
		"/proj/src/pages/index.tmpl": "{{ include \"_a\" }}",
		"/proj/src/pages/_a.tmpl":    "a",
		"/proj/src/pages/_b.tmpl":    "b",
	})
	ctx := context.Background()
	_, err := r.Render(ctx, "/proj/src/pages/index.tmpl")
	require.NoError(t, err)
	require.Equal(t, []string{"/proj/src/pages/index.tmpl"}, r.Graph().PagesAffectedBy("/proj/src/pages/_a.tmpl"))

	require.NoError(t, fs.WriteFile(ctx, "/proj/src/pages/index.tmpl", []byte("{{ include \"_b\" }}")))
	res, err := r.Render(ctx, "/proj/src/pages/index.tmpl")
	require.NoError(t, err)
	require.Equal(t, "b", res.HTML)
	require.Empty(t, r.Graph().PagesAffectedBy("/proj/src/pages/_a.tmpl"))
	require.Equal(t, []string{"/proj/src/pages/index.tmpl"}, r.Graph().PagesAffectedBy("/proj/src/pages/_b.tmpl"))
}

func TestRender_MissingTemplateIsTemplateError(t *testing.T) {
	r, _ := newRenderer(t, map[string]string{
		"/proj/src/pages/post.tmpl": "---\ntemplate: nope\n---\nx",
	})
	_, err := r.Render(context.Background(), "/proj/src/pages/post.tmpl")
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryTemplate))
}

func TestRender_BadConfigBlockYieldsEmptyConfig(t *testing.T) {
	r, _ := newRenderer(t, map[string]string{
		"/proj/src/pages/post.tmpl": "---\ntitle: [oops\n---\nbody",
	})
	res, err := r.Render(context.Background(), "/proj/src/pages/post.tmpl")
	require.NoError(t, err)
	require.Equal(t, "body", res.HTML)
	require.Empty(t, res.Entry.Config)
}

func TestRender_Markdown(t *testing.T) {
	r, _ := newRenderer(t, map[string]string{
		"/proj/src/pages/notes.tmpl": "{{ markdown \"# Notes\" }}",
	})
	res, err := r.Render(context.Background(), "/proj/src/pages/notes.tmpl")
	require.NoError(t, err)
	require.Contains(t, res.HTML, "<h1>Notes</h1>")
}

func TestRender_SelfIncludeFails(t *testing.T) {
	r, _ := newRenderer(t, map[string]string{
		"/proj/src/pages/loop.tmpl":  "{{ include \"_self\" }}",
		"/proj/src/pages/_self.tmpl": "{{ include \"_self\" }}",
	})
	_, err := r.Render(context.Background(), "/proj/src/pages/loop.tmpl")
	require.Error(t, err)
}

func TestRemove(t *testing.T) {
	r, _ := newRenderer(t, map[string]string{
		"/proj/src/pages/blog/a.tmpl": "a",
		"/proj/src/pages/blog/b.tmpl": "b",
	})
	require.Len(t, r.Collections()["blog"], 2)

	e, ok := r.Remove("/proj/src/pages/blog/a.tmpl")
	require.True(t, ok)
	require.Equal(t, "/proj/public/blog/a", e.OutputDir)
	require.Len(t, r.Collections()["blog"], 1)
	require.Equal(t, []string{"/proj/src/pages/blog/b.tmpl"}, r.ListPages())

	_, ok = r.Remove("/proj/src/pages/blog/a.tmpl")
	require.False(t, ok)
}

func TestOutputsUnder(t *testing.T) {
	r, _ := newRenderer(t, map[string]string{
		"/proj/src/pages/blog/index.tmpl": "i",
		"/proj/src/pages/blog/post.tmpl":  "p",
	})
	require.Equal(t, []string{"/proj/public/blog/post/index.html"},
		r.OutputsUnder("/proj/public/blog", "/proj/src/pages/blog/index.tmpl"))
}
