// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/logging"
	"github.com/gatehouse/gatehouse/internal/observability"
)

// Server serves the authentication API over HTTP.
type Server struct {
	addr       string
	gate       *auth.Gate
	service    *auth.Service
	resets     *auth.ResetService
	sessions   *auth.SessionStrategy
	metrics    *observability.Metrics
	logger     *slog.Logger
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// Options configures a Server. Gate and Service are required. Resets enables
// the password-reset endpoints. Sessions enables cookie issuance on login and
// the logout endpoint. Metrics and Logger are optional.
type Options struct {
	Addr     string
	Gate     *auth.Gate
	Service  *auth.Service
	Resets   *auth.ResetService
	Sessions *auth.SessionStrategy
	Metrics  *observability.Metrics
	Logger   *slog.Logger
}

// NewServer creates an API server.
func NewServer(opts Options) (*Server, error) {
	if opts.Gate == nil {
		return nil, oops.Errorf("gate is required")
	}
	if opts.Service == nil {
		return nil, oops.Errorf("auth service is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:     opts.Addr,
		gate:     opts.Gate,
		service:  opts.Service,
		resets:   opts.Resets,
		sessions: opts.Sessions,
		metrics:  opts.Metrics,
		logger:   logger,
	}, nil
}

// Handler returns the full request handler: routes wrapped in the gate
// middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("POST /api/v1/users", s.handleRegister)
	mux.HandleFunc("GET /api/v1/users/me", s.handleMe)
	mux.HandleFunc("POST /api/v1/auth_session/login", s.handleLogin)
	mux.HandleFunc("DELETE /api/v1/auth_session/logout", s.handleLogout)

	if s.resets != nil {
		mux.HandleFunc("POST /api/v1/reset_password", s.handleResetIssue)
		mux.HandleFunc("PUT /api/v1/reset_password", s.handleResetRedeem)
	}

	return s.withGate(mux)
}

// Start begins serving the API. It returns an error channel that receives
// any serve error; the channel closes on graceful shutdown.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("api server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("api server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("api server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the API server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_api_server").Wrap(err)
		}
	}

	s.logger.Info("api server stopped")
	return nil
}

// Addr returns the address the server is listening on.
// Returns empty string if not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// withGate enforces the gate verdict on every request before routing.
func (s *Server) withGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		verdict := s.gate.Check(r.Context(), r)

		if s.metrics != nil {
			s.metrics.GateDecisionsTotal.WithLabelValues(verdict.Decision.String()).Inc()
		}

		switch verdict.Decision {
		case auth.DecisionUnauthenticated:
			s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		case auth.DecisionForbidden:
			s.writeJSON(w, http.StatusForbidden, map[string]string{"error": "Forbidden"})
			return
		case auth.DecisionAllow:
		}

		if verdict.Account != nil {
			ctx := ContextWithAccount(r.Context(), verdict.Account)
			ctx = logging.ContextWithAccountID(ctx, verdict.Account.ID.String())
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}
