// Package livereload tells connected browsers to reload over server-sent
// events, and relays reload signals between processes over NATS.
package livereload

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Message is the payload of one reload event.
type Message struct {
	Hash string `json:"hash"`
	// CSSOnly is set when only stylesheets changed; clients may swap them in
	// place instead of reloading.
	CSSOnly bool `json:"css,omitempty"`
}

// Hub manages SSE clients at /livereload.
type Hub struct {
	mu      sync.RWMutex
	nextID  int
	clients map[int]*client
	closed  bool
	last    Message
	logger  *slog.Logger
	ping    time.Duration
}

type client struct {
	id   int
	ch   chan Message
	done chan struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{clients: map[int]*client{}, logger: slog.Default(), ping: 30 * time.Second}
}

// WithLogger sets a custom logger.
func (h *Hub) WithLogger(logger *slog.Logger) *Hub {
	h.logger = logger
	return h
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP implements the SSE endpoint.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, "livereload shutting down", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	c := &client{ch: make(chan Message, 8), done: make(chan struct{})}
	h.mu.Lock()
	c.id = h.nextID
	h.nextID++
	h.clients[c.id] = c
	current := h.last
	h.mu.Unlock()

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(": connected\n\n"); err != nil {
		h.removeClient(c.id)
		return
	}
	// the first event is the client's baseline, never a reload
	if current.Hash != "" {
		writeEvent(bw, current)
	}
	if err := bw.Flush(); err == nil {
		flusher.Flush()
	}

	hb := time.NewTicker(h.ping)
	defer hb.Stop()
	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			h.removeClient(c.id)
			return
		case <-c.done:
			return
		case <-hb.C:
			if _, err := bw.WriteString(": ping\n\n"); err == nil {
				_ = bw.Flush()
				flusher.Flush()
			}
		case msg := <-c.ch:
			if err := writeEvent(bw, msg); err != nil {
				h.logger.Debug("livereload write", "error", err)
				continue
			}
			_ = bw.Flush()
			flusher.Flush()
		}
	}
}

func writeEvent(bw *bufio.Writer, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = bw.WriteString("data: " + string(data) + "\n\n")
	return err
}

func (h *Hub) removeClient(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(c.done)
	}
}

// Broadcast sends msg to every client. Clients whose buffers are full are
// dropped; they reconnect and get the latest message as their baseline.
func (h *Hub) Broadcast(msg Message) {
	h.mu.Lock()
	if h.closed || msg.Hash == "" || msg.Hash == h.last.Hash {
		h.mu.Unlock()
		return
	}
	h.last = msg
	snapshot := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.Unlock()

	dropped := 0
	for _, c := range snapshot {
		select {
		case c.ch <- msg:
		default:
			dropped++
			h.removeClient(c.id)
		}
	}
	h.logger.Debug("livereload broadcast", "hash", msg.Hash, "clients", len(snapshot), "dropped", dropped)
}

// Notify broadcasts a reload for a build that changed outputs.
func (h *Hub) Notify(_ context.Context, changed []string) error {
	h.Broadcast(NewMessage(changed))
	return nil
}

// NewMessage builds a reload message for the changed outputs.
func NewMessage(changed []string) Message {
	return Message{Hash: strconv.FormatInt(time.Now().UnixNano(), 10), CSSOnly: cssOnly(changed)}
}

func cssOnly(changed []string) bool {
	if len(changed) == 0 {
		return false
	}
	for _, p := range changed {
		p = strings.TrimSuffix(p, ".map")
		if !strings.EqualFold(filepath.Ext(p), ".css") {
			return false
		}
	}
	return true
}

// Shutdown closes all clients and prevents future broadcasts.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = map[int]*client{}
	h.mu.Unlock()
	for _, c := range clients {
		close(c.done)
	}
}
