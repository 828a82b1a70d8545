package preview

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/satsuma/internal/build"
	"git.home.luguber.info/inful/satsuma/internal/config"
	"git.home.luguber.info/inful/satsuma/internal/devserver"
	"git.home.luguber.info/inful/satsuma/internal/orchestrator"
	"git.home.luguber.info/inful/satsuma/internal/storage"
	"git.home.luguber.info/inful/satsuma/internal/watch"
)

func writeProject(t *testing.T, extra string) string {
	t.Helper()
	root := t.TempDir()
	cfg := "server:\n  livereload: true\n" +
		"directories:\n  source: src\n  public: public\n  pages: pages\n" +
		"build:\n  clean: false\n" +
		"watch:\n  settle: 10ms\n" + extra
	require.NoError(t, os.WriteFile(filepath.Join(root, "satsuma.yaml"), []byte(cfg), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "pages"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "pages", "index.tmpl"), []byte("home"), 0o600))
	return root
}

func start(t *testing.T, root string) (string, *orchestrator.Orchestrator, func()) {
	t.Helper()
	cfg, err := config.Load(filepath.Join(root, "satsuma.yaml"))
	require.NoError(t, err)
	layout, err := cfg.Layout()
	require.NoError(t, err)
	svc := build.NewService(cfg, layout, storage.NewOS())

	ln, err := devserver.Listen("127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	p := New(svc)
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, ln) }()

	var orch *orchestrator.Orchestrator
	select {
	case orch = <-p.Ready():
	case err := <-done:
		t.Fatalf("preview stopped early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("preview not ready")
	}
	stop := func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(6 * time.Second):
			t.Fatal("preview did not stop")
		}
	}
	return "http://" + ln.Addr().String(), orch, stop
}

func fetch(url string) string {
	resp, err := http.Get(url) // #nosec G107 -- test server
	if err != nil {
		return ""
	}
	defer func() { _ = resp.Body.Close() }()
	data, _ := io.ReadAll(resp.Body)
	return string(data)
}

func TestRun_RebuildsOnChange(t *testing.T) {
	root := writeProject(t, "")
	base, _, stop := start(t, root)
	defer stop()

	require.Equal(t, "home"+devserver.ScriptTag, fetch(base+"/"))

	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "pages", "index.tmpl"), []byte("welcome"), 0o600))
	require.Eventually(t, func() bool {
		return fetch(base+"/") == "welcome"+devserver.ScriptTag
	}, 5*time.Second, 25*time.Millisecond)
}

func TestRun_PeriodicResync(t *testing.T) {
	root := writeProject(t, "  resync_interval: 50ms\n")
	_, orch, stop := start(t, root)
	defer stop()

	out := filepath.Join(orch.Service().Layout().PublicDir, "index.html")
	require.FileExists(t, out)
	require.NoError(t, os.Remove(out))
	require.Eventually(t, func() bool {
		_, err := os.Stat(out)
		return err == nil
	}, 5*time.Second, 25*time.Millisecond)
}

func TestToEvent(t *testing.T) {
	require.Equal(t, orchestrator.Event{Kind: orchestrator.Add, Path: "/a"}, toEvent(watch.Event{Op: watch.Add, Path: "/a"}))
	require.Equal(t, orchestrator.Event{Kind: orchestrator.Change, Path: "/a"}, toEvent(watch.Event{Op: watch.Change, Path: "/a"}))
	require.Equal(t, orchestrator.Event{Kind: orchestrator.Unlink, Path: "/a"}, toEvent(watch.Event{Op: watch.Unlink, Path: "/a"}))
}
