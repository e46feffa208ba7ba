// Package app wires the rnbw server runtime: config, logging, stores, HTTP
// routes, and the token sweeper.
package app

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"rnbw/cmd/identity"
	"rnbw/cmd/internal/auth/api"
	"rnbw/cmd/internal/reset"
	"rnbw/cmd/security/password"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is a small app-level lifecycle abstraction.
// It exists to allow DB-backed resources to be closed gracefully.
type Store interface {
	Close(ctx context.Context) error
}

// nopStore is used for file-backed store mode.
type nopStore struct{}

func (nopStore) Close(_ context.Context) error { return nil }

// App is the rnbw server runtime.
type App struct {
	cfg Config
	log Logger

	store Store

	dbPool    *pgxpool.Pool
	dbEnabled bool

	metrics *Metrics

	resets *reset.Service
	auth   *api.Handler
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel)
	}

	st, dbPool, dbEnabled, userStore, tokenStore, err := newStores(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}

	hashCfg, err := password.FromEnv()
	if err != nil {
		return nil, err
	}

	users, err := identity.NewManager(userStore, hashCfg, log)
	if err != nil {
		return nil, err
	}

	resetCfg := reset.LoadConfigFromEnv()
	opts := []reset.ServiceOption{
		reset.WithCaptchaVerifier(api.NewRecaptchaVerifier(api.RecaptchaConfig{
			Secret:      cfg.RecaptchaSecret,
			Environment: cfg.Environment,
			Timeout:     cfg.ExternalTimeout,
		})),
	}
	if cfg.SMTPHost != "" {
		sender, err := api.NewSMTPSender(api.SMTPConfig{
			Host:        cfg.SMTPHost,
			Port:        cfg.SMTPPort,
			Username:    cfg.SMTPUsername,
			Password:    cfg.SMTPPassword,
			From:        cfg.SMTPFrom,
			FrontendURL: cfg.FrontendURL,
			Timeout:     cfg.ExternalTimeout,
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, reset.WithSender(sender))
	} else {
		log.Info("email.disabled.noop_sender")
	}

	resets, err := reset.NewService(resetCfg, users, tokenStore, log, opts...)
	if err != nil {
		return nil, err
	}

	authCfg := api.LoadConfigFromEnv()
	authHandler, err := api.NewHandler(log, authCfg, users, resets, hashCfg)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:       cfg,
		log:       log,
		store:     st,
		dbPool:    dbPool,
		dbEnabled: dbEnabled,
		metrics:   NewMetrics(),
		resets:    resets,
		auth:      authHandler,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()

	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.metrics, a.auth)

	var handler http.Handler = mux
	handler = WithSecurityHeaders(handler)
	handler = WithRequestLogging(handler, a.log, a.metrics)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	if a.cfg.SweepInterval > 0 {
		go a.resets.RunSweeper(sweepCtx, a.cfg.SweepInterval)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	// Close store resources (pool etc).
	if err := a.store.Close(shutdownCtx); err != nil {
		a.log.Error("store.close.fail", "err", err)
	}

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// newStores decides between Postgres-backed persistence and the JSON snapshot
// files under DataDir.
func newStores(ctx context.Context, cfg Config, log Logger) (Store, *pgxpool.Pool, bool, identity.Store, reset.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.file_store", "dir", cfg.DataDir)

		users, err := identity.NewFileStore(filepath.Join(cfg.DataDir, "users.json"))
		if err != nil {
			return nil, nil, false, nil, nil, err
		}
		tokens, err := reset.NewFileStore(filepath.Join(cfg.DataDir, "reset-tokens.json"))
		if err != nil {
			return nil, nil, false, nil, nil, err
		}
		return nopStore{}, nil, false, users, tokens, nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, false, nil, nil, err
	}

	log.Info("db.enabled.postgres_store")

	users, err := identity.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, nil, false, nil, nil, err
	}
	tokens, err := reset.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, nil, false, nil, nil, err
	}

	return dbStore{pool: pool}, pool, true, users, tokens, nil
}

type dbStore struct {
	pool *pgxpool.Pool
}

func (s dbStore) Close(_ context.Context) error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
