// Package gateway exposes analyses over HTTP, streaming team events as
// server-sent events.
package gateway

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"stockteam/internal/analysis"
	"stockteam/internal/channels"
	"stockteam/internal/history"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	shutdownTimeout  = 10 * time.Second
	defaultKeepAlive = 15 * time.Second
)

// RunStore is the read side of run history.
type RunStore interface {
	ListRuns(ctx context.Context, limit int) ([]history.Run, error)
	GetRun(ctx context.Context, id string) (*history.Run, error)
}

type Option func(*Server)

// WithToken requires "Authorization: Bearer <token>" on /v1 routes.
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// WithKeepAlive sets how often idle analysis streams are pinged.
func WithKeepAlive(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.keepAlive = d
		}
	}
}

// WithRunStore serves run history. Without it the /v1/runs routes answer
// 404.
func WithRunStore(store RunStore) Option {
	return func(s *Server) { s.runs = store }
}

type Server struct {
	analyzer  analysis.Analyzer
	runs      RunStore
	token     string
	keepAlive time.Duration
	mux       *http.ServeMux
}

func NewServer(analyzer analysis.Analyzer, chs []channels.Channel, opts ...Option) *Server {
	s := &Server{
		analyzer:  analyzer,
		keepAlive: defaultKeepAlive,
		mux:       http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	for _, ch := range chs {
		ch.RegisterRoutes(s.mux)
	}
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /v1/analyze", s.auth(s.handleAnalyze))
	s.mux.HandleFunc("GET /v1/runs", s.auth(s.handleListRuns))
	s.mux.HandleFunc("GET /v1/runs/{id}", s.auth(s.handleGetRun))
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
}

func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.mux, "gateway")
}

func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	if s.token == "" {
		return next
	}
	want := []byte("Bearer " + s.token)
	return func(w http.ResponseWriter, r *http.Request) {
		got := []byte(strings.TrimSpace(r.Header.Get("Authorization")))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("gateway: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down gateway")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("gateway shutdown: %w", err)
	}
	return nil
}
