// Package app wires the chitter server runtime: config, logging, stores, HTTP routes, and metrics.
//
// It is intentionally small and deterministic to keep behavior predictable.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"chitter/cmd/identity"
	authapi "chitter/cmd/internal/auth/api"
	"chitter/cmd/internal/auth/session"
	"chitter/cmd/internal/auth/verify"
	"chitter/cmd/internal/feed"
	feedapi "chitter/cmd/internal/feed/api"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is a small app-level lifecycle abstraction.
// It exists to allow DB-backed resources to be closed gracefully.
type Store interface {
	Close(ctx context.Context) error
}

// nopStore is used for in-memory store mode.
type nopStore struct{}

func (nopStore) Close(_ context.Context) error { return nil }

type dbStore struct {
	pool *pgxpool.Pool
}

func (s dbStore) Close(_ context.Context) error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// stores bundles the persistence backends behind their package interfaces.
type stores struct {
	users    identity.Store
	sessions session.Store
	posts    feed.Store
}

// App is the chitter server runtime: it owns HTTP server wiring and service dependencies.
type App struct {
	cfg Config
	log Logger

	store Store

	dbPool    *pgxpool.Pool
	dbEnabled bool

	metrics *Metrics

	auth  *authapi.Handler
	posts *feedapi.Handler
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	if err := ValidateSecurityConfig(cfg); err != nil {
		return nil, err
	}

	st, dbPool, dbEnabled, backends, err := newStore(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}

	closeOnErr := func() {
		_ = st.Close(context.Background())
	}

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		closeOnErr()
		return nil, err
	}
	tokens, err := session.NewJWTManager(sessCfg)
	if err != nil {
		closeOnErr()
		return nil, err
	}
	verifyCfg, err := verify.LoadConfigFromEnv()
	if err != nil {
		closeOnErr()
		return nil, err
	}

	sessions := session.NewService(sessCfg, backends.sessions, backends.users, tokens)
	verifier := verify.NewService(verifyCfg, backends.users)

	var opts []authapi.HandlerOption
	if sender := authapi.NewSendGridSenderFromEnv(); sender != nil {
		opts = append(opts, authapi.WithEmailSender(sender))
		log.Info("email.sendgrid.enabled")
	} else {
		log.Info("email.disabled.noop_sender")
	}

	authCfg := authapi.LoadConfigFromEnv()
	authHandler := authapi.NewHandler(log, authCfg, backends.users, sessions, verifier, opts...)
	feedHandler := feedapi.NewHandler(log, backends.posts, backends.users)

	return &App{
		cfg:       cfg,
		log:       log,
		store:     st,
		dbPool:    dbPool,
		dbEnabled: dbEnabled,
		metrics:   NewMetrics(),
		auth:      authHandler,
		posts:     feedHandler,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()

	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.metrics, a.auth, a.posts)

	var handler http.Handler = mux
	handler = a.metrics.WithMetrics(handler, mux)
	handler = WithCORS(handler, a.cfg, a.log)
	handler = WithSecurityHeaders(handler)
	handler = WithRequestLogging(handler, a.log)

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

// newStore decides between Postgres-backed persistence and the in-memory dev store.
// Postgres mode runs the embedded migrations before handing out the pool.
func newStore(ctx context.Context, cfg Config, log Logger) (Store, *pgxpool.Pool, bool, stores, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		backends := stores{
			users:    identity.NewMemoryStore(),
			sessions: session.NewMemoryStore(),
			posts:    feed.NewMemoryStore(),
		}
		return nopStore{}, nil, false, backends, nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, false, stores{}, err
	}

	if err := RunMigrations(ctx, cfg.DatabaseURL); err != nil {
		pool.Close()
		return nil, nil, false, stores{}, err
	}

	users, err := identity.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, nil, false, stores{}, err
	}

	log.Info("db.enabled.postgres_store")

	backends := stores{
		users:    users,
		sessions: session.NewPostgresStore(pool),
		posts:    feed.NewPostgresStore(pool),
	}

	// Ownership model: app owns the pool lifecycle.
	return dbStore{pool: pool}, pool, true, backends, nil
}
