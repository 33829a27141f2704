// Package httpserver exposes the sidecar's redact/rehydrate/session
// operations over a local HTTP API, the way the teacher gateway exposes its
// chat-completions surface: a *http.ServeMux built once in New, routed to
// one handler method per endpoint.
package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/pii-redactor/sidecar/internal/config"
	"github.com/pii-redactor/sidecar/internal/redactor"
	"github.com/pii-redactor/sidecar/internal/rehydrator"
	"github.com/pii-redactor/sidecar/internal/scanner/ner"
	"github.com/pii-redactor/sidecar/internal/vault"
)

// Server holds the mux and every collaborator a handler needs to service a
// request: the redaction pipeline, the vault it's built on, and a
// per-session pool of streaming rehydrators for callers that proxy a
// provider's response through /rehydrate one chunk at a time.
type Server struct {
	mux      *http.ServeMux
	cfg      *config.Config
	vault    vault.Vault
	pipeline *redactor.Pipeline
	ner      *ner.Scanner // nil if NER is disabled; non-nil even if not yet warm
	logger   *slog.Logger
	pool     *rehydrator.Pool
}

// New builds a Server wired to v and p and registers every route named in
// the external interface table. nerScanner may be nil when NER is disabled.
func New(cfg *config.Config, v vault.Vault, p *redactor.Pipeline, nerScanner *ner.Scanner, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		vault:    v,
		pipeline: p,
		ner:      nerScanner,
		logger:   logger,
		pool:     rehydrator.NewPool(v),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/redact", s.withRequestID(s.handleRedact))
	mux.HandleFunc("/redact-text", s.withRequestID(s.handleRedactText))
	mux.HandleFunc("/rehydrate", s.withRequestID(s.handleRehydrate))
	mux.HandleFunc("/clear", s.withRequestID(s.handleClear))
	mux.HandleFunc("/health", s.withRequestID(s.handleHealth))
	mux.HandleFunc("/sessions", s.withRequestID(s.handleSessions))
	s.mux = mux

	return s
}

// Handler returns the server's http.Handler, for tests that want to drive
// it with httptest without going through Run.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run starts the HTTP server on cfg.Server.Addr and blocks until ctx is
// canceled, at which point it drains in-flight requests with a bounded
// grace period and closes the vault. Callers derive ctx from
// signal.NotifyContext so a SIGTERM triggers a clean shutdown rather than
// an abrupt process kill.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("httpserver listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("httpserver shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return s.vault.Close()
}
