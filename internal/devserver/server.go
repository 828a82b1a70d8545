// Package devserver serves the public root during development, with the
// live-reload client injected into HTML pages.
package devserver

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"git.home.luguber.info/inful/satsuma/internal/foundation/errors"
	"git.home.luguber.info/inful/satsuma/internal/livereload"
)

// ScriptTag is injected into every HTML response when live reload is on.
const ScriptTag = `<script async src="` + livereload.ScriptPath + `"></script>`

// Server serves a directory.
type Server struct {
	public      string
	hub         *livereload.Hub
	metrics     http.Handler
	metricsPath string
	logger      *slog.Logger
}

// New creates a server for the public directory.
func New(public string) *Server {
	return &Server{public: public, logger: slog.Default()}
}

// WithLiveReload mounts hub and injects its client into HTML pages.
func (s *Server) WithLiveReload(hub *livereload.Hub) *Server {
	s.hub = hub
	return s
}

// WithMetrics mounts a metrics handler at path.
func (s *Server) WithMetrics(path string, h http.Handler) *Server {
	s.metricsPath = path
	s.metrics = h
	return s
}

// WithLogger sets a custom logger.
func (s *Server) WithLogger(logger *slog.Logger) *Server {
	s.logger = logger
	return s
}

// Handler returns the routing handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.hub != nil {
		mux.Handle(livereload.Path, s.hub)
		mux.HandleFunc(livereload.ScriptPath, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
			w.Header().Set("Cache-Control", "no-store")
			_, _ = w.Write([]byte(livereload.Script))
		})
	}
	if s.metrics != nil && s.metricsPath != "" {
		mux.Handle(s.metricsPath, s.metrics)
	}
	static := noCache(http.FileServer(http.Dir(s.public)))
	if s.hub != nil {
		static = s.inject(static)
	}
	mux.Handle("/", static)
	return mux
}

func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// inject adds the client script to HTML pages only, not assets.
func (s *Server) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if !(path == "" || strings.HasSuffix(path, "/") || strings.HasSuffix(path, ".html")) {
			next.ServeHTTP(w, r)
			return
		}
		inj := newInjector(w, ScriptTag)
		next.ServeHTTP(inj, r)
		inj.finalize()
	})
}

// Serve runs on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	// SSE connections are long-lived, so there is no write timeout
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second, IdleTimeout: 300 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info("Serving", slog.String("addr", "http://"+ln.Addr().String()), slog.String("dir", s.public))

	select {
	case <-ctx.Done():
		if s.hub != nil {
			s.hub.Shutdown()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	case err := <-errCh:
		if stdErrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.WrapError(err, errors.CategoryRuntime, "http server failed").Build()
	}
}

// Listen binds addr, failing fast with a runtime error.
func Listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRuntime, "failed to bind dev server").
			WithContext("addr", addr).
			Build()
	}
	return ln, nil
}
