package action

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	w := Write("/public/index.html", []byte("x"), Meta{Label: "Rendered"})
	require.Equal(t, KindWrite, w.Kind)
	require.False(t, w.IsRemoval())
	require.Equal(t, "write /public/index.html", w.String())

	c := Copy("/src/a.png", "/public/a.png", Meta{})
	require.Equal(t, KindCopy, c.Kind)
	require.Equal(t, "copy /src/a.png -> /public/a.png", c.String())

	r := Remove("/public/old", Meta{})
	require.True(t, r.IsRemoval())
}
