// Package app wires the server runtime: config, logging, the auth
// pipeline, HTTP routes, and the stats channel.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"pulse/internal/api"
	"pulse/internal/auth"
	"pulse/internal/auth/session"
	"pulse/internal/auth/token"
	"pulse/internal/realtime"
	"pulse/internal/stats"
	"pulse/internal/user"
)

// App owns the wired runtime and its closable resources.
type App struct {
	cfg Config
	log Logger

	rdb    *redis.Client
	dbPool *pgxpool.Pool

	sessions    *session.Store
	interceptor *auth.Interceptor
	handler     *api.Handler
	info        *api.InfoHandler
	gateway     *realtime.Gateway
	pusher      *stats.Pusher
}

// New constructs a fully wired App from config.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogPretty)
	}

	rdb, err := NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	codec, err := token.NewCodec(token.Config{
		AccessSecret:  []byte(cfg.AccessSecret),
		RefreshSecret: []byte(cfg.RefreshSecret),
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
		Issuer:        cfg.TokenIssuer,
	})
	if err != nil {
		_ = rdb.Close()
		return nil, err
	}

	sessCfg := session.DefaultConfig()
	sessCfg.TTL = cfg.RefreshTTL
	sessCfg.CookieDomain = cfg.CookieDomain
	sessCfg.CookieSecure = cfg.CookieSecure
	sessions, err := session.NewStore(rdb, sessCfg)
	if err != nil {
		_ = rdb.Close()
		return nil, err
	}

	cookies := auth.NewCookies(auth.CookieConfig{
		Domain:   cfg.CookieDomain,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// Postgres when configured, in-memory store for development.
	var (
		dbPool *pgxpool.Pool
		store  user.Store
	)
	if cfg.DatabaseURL != "" {
		dbPool, err = NewDBPool(ctx, cfg)
		if err != nil {
			_ = rdb.Close()
			return nil, err
		}
		store, err = user.NewPostgresStore(dbPool)
		if err != nil {
			dbPool.Close()
			_ = rdb.Close()
			return nil, err
		}
		log.Info("db.enabled.postgres_store")
	} else {
		store = user.NewMemoryStore()
		log.Info("db.disabled.inmemory_store")
	}

	users, err := user.NewService(log, store)
	if err != nil {
		return nil, closeAll(err, rdb, dbPool)
	}

	mgr, err := auth.NewManager(log, codec, sessions, user.NewDirectory(store), cookies)
	if err != nil {
		return nil, closeAll(err, rdb, dbPool)
	}
	interceptor := auth.NewInterceptor(log, mgr, sessions, cookies)

	registry := realtime.NewRegistry(log, realtime.WithExpiryGuard())

	gwCfg := realtime.DefaultGatewayConfig()
	gwCfg.OriginPatterns = cfg.AllowedOrigins
	gateway, err := realtime.NewGateway(log, registry, gwCfg)
	if err != nil {
		return nil, closeAll(err, rdb, dbPool)
	}

	pusher, err := stats.NewPusher(log, registry, stats.NewRuntime(), cfg.StatsInterval)
	if err != nil {
		return nil, closeAll(err, rdb, dbPool)
	}

	handler, err := api.NewHandler(log, users, codec, sessions, cookies)
	if err != nil {
		return nil, closeAll(err, rdb, dbPool)
	}

	checks := map[string]api.Pinger{"redis": sessions, "users": store}
	info := api.NewInfoHandler(log, Version, checks)

	return &App{
		cfg:         cfg,
		log:         log,
		rdb:         rdb,
		dbPool:      dbPool,
		sessions:    sessions,
		interceptor: interceptor,
		handler:     handler,
		info:        info,
		gateway:     gateway,
		pusher:      pusher,
	}, nil
}

// Run starts the stats pusher and the HTTP server, blocking until
// context cancellation or a fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.handler, a.info, a.gateway)

	// Auth runs on every route; request logging wraps the whole chain.
	root := WithRequestLogging(a.interceptor.Wrap(mux), a.log)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           root,
		ReadHeaderTimeout: a.cfg.ReadHeaderTimeout,
		ReadTimeout:       a.cfg.ReadTimeout,
		WriteTimeout:      a.cfg.WriteTimeout,
		IdleTimeout:       a.cfg.IdleTimeout,
		MaxHeaderBytes:    a.cfg.MaxHeaderBytes,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	pusherDone := make(chan struct{})
	go func() {
		defer close(pusherDone)
		a.pusher.Run(runCtx)
	}()

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "version", Version, "db_enabled", a.dbPool != nil)

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

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	cancel()
	<-pusherDone

	if a.dbPool != nil {
		a.dbPool.Close()
	}
	if err := a.rdb.Close(); err != nil {
		a.log.Error("redis.close.fail", "err", err)
	}

	a.log.Info("server.stopped")
	return nil
}

func closeAll(err error, rdb *redis.Client, pool *pgxpool.Pool) error {
	if pool != nil {
		pool.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	return err
}
