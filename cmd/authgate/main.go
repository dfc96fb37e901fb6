package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"authgate/internal/auth"
	"authgate/internal/config"
	"authgate/internal/db"
	"authgate/internal/httpserver"
	"authgate/internal/logging"
	"authgate/internal/metrics"
	"authgate/internal/proxy"
	"authgate/internal/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "authgate: %v\n", err)
		os.Exit(2)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("fatal error", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	verifier, err := auth.NewCredentialVerifier(cfg.Store.Credentials)
	if err != nil {
		return err
	}

	repo, closeRepo, err := openUserStore(ctx, cfg, verifier, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	settings := auth.TokenSettings{
		Key:      []byte(cfg.JWT.Key),
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		Lifetime: cfg.JWT.ExpireMinutes.Duration(),
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	var forwarder *proxy.Forwarder
	if cfg.Proxy.Enabled {
		forwarder, err = proxy.New(proxy.Config{
			BaseURL:             cfg.Proxy.DownstreamBaseURL,
			Timeout:             cfg.Proxy.DownstreamTimeout,
			MaxIdleConnsPerHost: cfg.Proxy.MaxIdleConnsPerHost,
		}, proxy.WithLogger(logger), proxy.WithMetrics(m))
		if err != nil {
			return err
		}
	}

	handler := httpserver.NewRouter(httpserver.Deps{
		Logger:  logger,
		Issuer:  auth.NewIssuer(repo, settings),
		Gate:    auth.NewGate(settings),
		Users:   repo,
		Proxy:   forwarder,
		Metrics: m,

		LoginLimiter: httpserver.NewLoginLimiter(cfg.LoginRateLimit, cfg.LoginBurst),
	})
	server := httpserver.New(cfg.HTTPAddr, handler, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "err", err)
		}
		return nil
	})
	return g.Wait()
}

// openUserStore builds the configured repository and seeds it.
func openUserStore(ctx context.Context, cfg config.Config, verifier auth.CredentialVerifier, logger *slog.Logger) (users.Repository, func(), error) {
	var seed []users.NewUser
	if cfg.Store.UsersPath != "" {
		loaded, err := users.LoadSeedFile(cfg.Store.UsersPath)
		if err != nil {
			return nil, nil, fmt.Errorf("load users: %w", err)
		}
		seed = loaded
	}

	var (
		repo    users.Repository
		closeFn = func() {}
	)
	switch cfg.Store.Kind {
	case "postgres":
		conn, err := db.Open(ctx, cfg.Store.DBDSN)
		if err != nil {
			return nil, nil, err
		}
		closeFn = func() { closeDB(conn, logger) }
		if err := db.RunMigrations(ctx, conn, cfg.Store.MigrationsPath); err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
		repo = users.NewPostgresStore(conn, verifier)
	default:
		if seed == nil {
			seed = users.FixtureUsers()
		}
		repo = users.NewMemoryStore(verifier)
	}

	n, err := users.Seed(ctx, repo, seed)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("seed users: %w", err)
	}
	logger.Info("user store ready", "kind", cfg.Store.Kind, "seeded", n)
	return repo, closeFn, nil
}

func closeDB(conn *sql.DB, logger *slog.Logger) {
	if err := conn.Close(); err != nil {
		logger.Error("close database", "err", err)
	}
}
