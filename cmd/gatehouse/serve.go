// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/auth"
	authpg "github.com/gatehouse/gatehouse/internal/auth/postgres"
	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/httpapi"
	"github.com/gatehouse/gatehouse/internal/logging"
	"github.com/gatehouse/gatehouse/internal/observability"
	"github.com/gatehouse/gatehouse/internal/store"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the authentication API server",
		Long: `Start the HTTP API server: registration, login/logout, password
reset, and per-request gating with the configured auth strategy.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, cmd)
		},
	}

	defaults := config.Default()
	flags := cmd.Flags()
	flags.String("listen_addr", defaults.ListenAddr, "API listen address")
	flags.String("metrics_addr", defaults.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	flags.String("database_url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	flags.String("log_format", defaults.LogFormat, "log format (json or text)")
	flags.String("auth.type", defaults.Auth.Type, "auth strategy (none, basic, session)")
	flags.String("auth.session_cookie", defaults.Auth.SessionCookie, "session cookie name")
	flags.Duration("auth.session_ttl", defaults.Auth.SessionTTL, "session lifetime (0 = never expires)")
	flags.String("auth.session_backend", defaults.Auth.SessionBackend, "session storage (memory or postgres)")
	flags.StringSlice("auth.excluded_paths", defaults.Auth.ExcludedPaths, "path patterns exempt from auth")
	flags.Int("auth.hash_concurrency", defaults.Auth.HashConcurrency, "max concurrent password hashes (0 = unbounded)")

	return cmd
}

// loadConfig resolves the config file path and merges file and flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path := configFile
	explicit := path != ""
	if path == "" {
		path = config.DefaultPath()
	}
	return config.Load(path, explicit, cmd.Flags())
}

func runServe(ctx context.Context, cfg config.Config, cmd *cobra.Command) error {
	logging.SetDefault("gatehouse", version, cfg.LogFormat)

	// The auth service stores accounts in PostgreSQL regardless of session
	// backend, so serve always needs a database.
	if cfg.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database_url is required (flag, config file, or DATABASE_URL)")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool, err := store.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	slog.Info("connected to database")

	accounts := authpg.NewAccountRepository(pool)

	var hasher auth.PasswordHasher = auth.NewArgon2idHasher()
	if cfg.Auth.HashConcurrency > 0 {
		hasher = auth.NewBoundedHasher(hasher, cfg.Auth.HashConcurrency)
	}

	sessions := buildSessionStore(cfg, pool)

	strategy, sessionStrategy, err := buildStrategy(cfg, accounts, hasher, sessions)
	if err != nil {
		return err
	}

	// The cookie name rides along even under header auth so a session
	// cookie offered there is rejected, not challenged.
	gate, err := auth.NewGate(strategy, cfg.Auth.ExcludedPaths,
		auth.WithCredentialCookie(cfg.Auth.SessionCookie))
	if err != nil {
		return err
	}

	service, err := auth.NewService(accounts, sessions, hasher)
	if err != nil {
		return err
	}

	resets, err := auth.NewResetService(accounts, hasher, nil)
	if err != nil {
		return err
	}

	// Observability server, when configured.
	var obsServer *observability.Server
	var metrics *observability.Metrics
	if cfg.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.MetricsAddr, func() bool {
			pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
			defer pingCancel()
			return pool.Ping(pingCtx) == nil
		})
		obsErrCh, obsErr := obsServer.Start()
		if obsErr != nil {
			return obsErr
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
		metrics = obsServer.Metrics()
	}

	apiServer, err := httpapi.NewServer(httpapi.Options{
		Addr:     cfg.ListenAddr,
		Gate:     gate,
		Service:  service,
		Resets:   resets,
		Sessions: sessionStrategy,
		Metrics:  metrics,
		Logger:   slog.Default(),
	})
	if err != nil {
		return err
	}

	apiErrCh, err := apiServer.Start()
	if err != nil {
		stopServer(obsServer)
		return err
	}
	go monitorServerErrors(ctx, cancel, apiErrCh, "api")

	cmd.Println("Gatehouse started")
	slog.Info("gatehouse ready",
		"listen_addr", apiServer.Addr(),
		"auth_type", cfg.Auth.Type,
		"session_backend", cfg.Auth.SessionBackend,
	)

	// Wait for a shutdown signal or a server failure.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		slog.Warn("error stopping api server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return nil
}

// buildSessionStore assembles the session store for the configured backend,
// wrapped with expiry when a TTL is set.
func buildSessionStore(cfg config.Config, pool *pgxpool.Pool) auth.SessionStore {
	var sessions auth.SessionStore
	if cfg.Auth.SessionBackend == config.SessionBackendPostgres {
		sessions = auth.NewDurableStore(authpg.NewSessionRepository(pool), nil)
	} else {
		sessions = auth.NewMemoryStore(nil)
	}

	if cfg.Auth.SessionTTL > 0 {
		sessions = auth.NewExpiringStore(sessions, cfg.Auth.SessionTTL, nil)
	}

	return sessions
}

// buildStrategy selects the auth strategy. The second return value is
// non-nil only for session auth, where the API layer needs cookie issuance
// and destruction.
func buildStrategy(cfg config.Config, accounts auth.AccountRepository, hasher auth.PasswordHasher, sessions auth.SessionStore) (auth.Strategy, *auth.SessionStrategy, error) {
	switch cfg.Auth.Type {
	case config.AuthTypeNone:
		return auth.NoAuth{}, nil, nil
	case config.AuthTypeBasic:
		strategy, err := auth.NewBasicStrategy(accounts, hasher)
		if err != nil {
			return nil, nil, err
		}
		return strategy, nil, nil
	case config.AuthTypeSession:
		strategy, err := auth.NewSessionStrategy(sessions, accounts, cfg.Auth.SessionCookie)
		if err != nil {
			return nil, nil, err
		}
		return strategy, strategy, nil
	default:
		return nil, nil, oops.Code("CONFIG_INVALID").
			With("auth_type", cfg.Auth.Type).
			Errorf("unknown auth type %q", cfg.Auth.Type)
	}
}

func stopServer(s *observability.Server) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		slog.Warn("failed to stop observability server during cleanup", "error", err)
	}
}

// monitorServerErrors cancels the context when a server reports an error,
// so one failed listener shuts the whole process down cleanly.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
