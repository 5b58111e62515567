// Package preview serves the output tree over HTTP during development.
package preview

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/refsite/internal/config"
	"git.home.luguber.info/inful/refsite/internal/foundation/errors"
	"git.home.luguber.info/inful/refsite/internal/livereload"
	"git.home.luguber.info/inful/refsite/internal/logfields"
)

// MetricsPath serves Prometheus metrics when a metrics handler is configured.
const MetricsPath = "/metrics"

const shutdownTimeout = 5 * time.Second

// Server serves the output directory below the configured URL prefix, the live-reload
// endpoint and, optionally, metrics.
type Server struct {
	cfg     *config.Config
	hub     *livereload.Hub
	metrics http.Handler
	reading sync.Locker

	srv *http.Server
	ln  net.Listener
}

// New creates a Server. hub may be nil to disable live reload.
func New(cfg *config.Config, hub *livereload.Hub) *Server {
	return &Server{cfg: cfg, hub: hub}
}

// WithMetricsHandler serves h at MetricsPath.
func (s *Server) WithMetricsHandler(h http.Handler) *Server {
	s.metrics = h
	return s
}

// WithOutputLock makes every request for the output tree hold l, normally the read half
// of the lock the builder holds while it replaces the output directory.
func (s *Server) WithOutputLock(l sync.Locker) *Server {
	s.reading = l
	return s
}

// Handler returns the server's request router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	prefix := s.cfg.Prefix

	site := noCache(guarded(s.reading, staticHandler(s.cfg.OutputDir)))
	mux.Handle(prefix, http.StripPrefix(strings.TrimSuffix(prefix, "/"), site))
	if prefix != "/" {
		mux.Handle("/{$}", http.RedirectHandler(prefix, http.StatusFound))
	}
	if s.hub != nil {
		mux.Handle(livereload.Path, s.hub.Handler())
	}
	if s.metrics != nil {
		mux.Handle(MetricsPath, s.metrics)
	}
	return mux
}

// Listen binds the configured address so that startup fails before the first build
// completes when the port is taken.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Preview.Addr())
	if err != nil {
		return errors.WrapError(err, errors.CategoryRuntime, "preview server listen").
			WithContext("addr", s.cfg.Preview.Addr()).
			Build()
	}
	s.ln = ln
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.cfg.Preview.Addr()
}

// Serve serves requests until ctx is done, then shuts down gracefully and returns nil.
// Any other termination is returned as an error. Listen is called when it has not been.
func (s *Server) Serve(ctx context.Context) error {
	if s.ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	// No write timeout: live-reload connections stay open.
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(s.ln) }()
	slog.Info("Preview server listening", logfields.URL(fmt.Sprintf("http://%s%s", s.Addr(), s.cfg.Prefix)))

	select {
	case err := <-errCh:
		return errors.WrapError(err, errors.CategoryRuntime, "preview server stopped").Build()
	case <-ctx.Done():
	}

	if s.hub != nil {
		s.hub.Shutdown()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("Preview server shutdown error", logfields.Error(err))
	}
	if err := <-errCh; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("preview server: %w", err)
	}
	slog.Info("Preview server stopped")
	return nil
}

// staticHandler serves root. A bare URL without an extension falls back to the page
// with an .html extension when nothing exists at the exact path.
func staticHandler(root string) http.Handler {
	files := http.FileServer(http.Dir(root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		if p != "" && !strings.HasSuffix(p, "/") && path.Ext(p) == "" {
			exact := filepath.Join(root, filepath.FromSlash(path.Clean("/"+p)))
			if _, err := os.Stat(exact); os.IsNotExist(err) {
				if fi, err := os.Stat(exact + ".html"); err == nil && !fi.IsDir() {
					r = r.Clone(r.Context())
					r.URL.Path = p + ".html"
				}
			}
		}
		files.ServeHTTP(w, r)
	})
}

func guarded(l sync.Locker, next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l.Lock()
		defer l.Unlock()
		next.ServeHTTP(w, r)
	})
}

func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
