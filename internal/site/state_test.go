package site

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/satsuma/internal/config"
	"git.home.luguber.info/inful/satsuma/internal/storage"
)

func TestNew_LoadsGlobalsAndIgnore(t *testing.T) {
	l := config.NewLayout("/proj", config.DirectoriesConfig{Source: "src", Public: "public"}, ".tmpl")
	fs := storage.NewMemory(map[string]string{
		"/proj/globals.yaml":       "site:\n  title: T\n",
		"/proj/src/.satsumaignore": "*.psd\n",
	})
	st, err := New(context.Background(), l, fs)
	require.NoError(t, err)
	require.Equal(t, config.Globals{"title": "T"}, st.Globals.Site())
	require.True(t, st.Ignore.Ignored("/proj/src/a.psd"))
	require.NotNil(t, st.Renderer)
	require.NotNil(t, st.Compiler)
}

func TestNew_BadGlobalsIsConfigError(t *testing.T) {
	l := config.NewLayout("/proj", config.DirectoriesConfig{Source: "src", Public: "public"}, ".tmpl")
	fs := storage.NewMemory(map[string]string{"/proj/globals.yaml": "site: [x"})
	_, err := New(context.Background(), l, fs)
	require.Error(t, err)
}

func TestAssetMap(t *testing.T) {
	a := NewAssetMap()
	a.Set("/src/a.png", "/public/a.png")
	out, ok := a.Get("/src/a.png")
	require.True(t, ok)
	require.Equal(t, "/public/a.png", out)
	a.Delete("/src/a.png")
	require.Zero(t, a.Len())
	a.Set("/src/b", "/public/b")
	a.Reset()
	_, ok = a.Get("/src/b")
	require.False(t, ok)
}
