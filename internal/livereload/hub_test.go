package livereload

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func connect(t *testing.T, url string) (*bufio.Reader, func()) {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), 3*time.Second)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	return bufio.NewReader(resp.Body), func() {
		cancel()
		_ = resp.Body.Close()
	}
}

func readUntil(t *testing.T, r *bufio.Reader, needle string) bool {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		line, err := r.ReadString('\n')
		if err != nil {
			return false
		}
		if strings.Contains(line, needle) {
			return true
		}
	}
	return false
}

func TestHub_InitialConnectGetsBaseline(t *testing.T) {
	hub := NewHub()
	defer hub.Shutdown()
	hub.Broadcast(Message{Hash: "abc123"})

	server := httptest.NewServer(hub)
	defer server.Close()

	r, done := connect(t, server.URL)
	defer done()
	require.True(t, readUntil(t, r, `"hash":"abc123"`))
}

func TestHub_BroadcastReachesClient(t *testing.T) {
	hub := NewHub()
	defer hub.Shutdown()
	server := httptest.NewServer(hub)
	defer server.Close()

	r, done := connect(t, server.URL)
	defer done()
	require.True(t, readUntil(t, r, ": connected"))
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Notify(context.Background(), []string{"/p/styles/main.css", "/p/styles/main.css.map"}))
	require.True(t, readUntil(t, r, `"css":true`))
}

func TestHub_DuplicateAndEmptyHashesIgnored(t *testing.T) {
	hub := NewHub()
	defer hub.Shutdown()
	hub.Broadcast(Message{Hash: "x"})
	hub.Broadcast(Message{Hash: ""})
	hub.Broadcast(Message{Hash: "x", CSSOnly: true})
	require.Equal(t, Message{Hash: "x"}, hub.last)
}

func TestHub_ShutdownRejectsClients(t *testing.T) {
	hub := NewHub()
	hub.Shutdown()
	rec := httptest.NewRecorder()
	hub.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, Path, nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCSSOnly(t *testing.T) {
	require.True(t, cssOnly([]string{"/p/a.css", "/p/a.css.map"}))
	require.False(t, cssOnly([]string{"/p/a.css", "/p/index.html"}))
	require.False(t, cssOnly(nil))
}

func TestSignalEncoding(t *testing.T) {
	data, err := EncodeSignal("origin-1", []string{"/p/index.html"})
	require.NoError(t, err)
	s, err := DecodeSignal(data)
	require.NoError(t, err)
	require.Equal(t, "origin-1", s.Origin)
	require.Equal(t, []string{"/p/index.html"}, s.Changed)
	require.NotEmpty(t, s.Hash)
	require.False(t, s.CSSOnly)
}

func TestScriptConnectsToHubPath(t *testing.T) {
	require.Contains(t, Script, "new EventSource('"+Path+"')")
}
