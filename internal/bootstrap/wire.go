package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/quaykit/identity-service/internal/application/auth"
	"github.com/quaykit/identity-service/internal/config"
	"github.com/quaykit/identity-service/internal/infrastructure/db/postgres"
	"github.com/quaykit/identity-service/internal/infrastructure/memory"
	rabbitmq_pub "github.com/quaykit/identity-service/internal/infrastructure/messaging/rabbitmq"
	"github.com/quaykit/identity-service/internal/infrastructure/redis"
	"github.com/quaykit/identity-service/internal/infrastructure/security"
	"github.com/quaykit/identity-service/internal/logger"
	http_handlers "github.com/quaykit/identity-service/internal/transport/http/handlers"
	"github.com/quaykit/identity-service/internal/transport/http/middleware"
	"github.com/quaykit/identity-service/internal/transport/http/response"
	"github.com/quaykit/identity-service/internal/transport/http/router"
)

/*
========================
 Public entry (prod)
========================
*/

func NewServer() (*http.Server, func(), error) {
	return newServer(defaultDeps())
}

// NewServerWithDeps allows injecting dependencies for testing.
func NewServerWithDeps(deps Deps) (*http.Server, func(), error) {
	return newServer(deps)
}

/*
========================
 Dependency injection
========================
*/

type Deps struct {
	LoadConfig func() (*config.Config, error)

	NewDB func(addr string) (DBCloser, error)

	NewRedis func(addr, password string, db int) RedisClient

	NewPublisher func(rabbitURL string) (Publisher, error)

	NewRouter func(router.Deps) (http.Handler, error)
}

type DBCloser interface {
	Close() error
}

type RedisClient interface {
	Ping(ctx context.Context) error
	Close() error
}

type Publisher interface{}

/*
========================
 Core bootstrap logic
========================
*/

func newServer(deps Deps) (*http.Server, func(), error) {
	// 0) config
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	// 1) db
	db, err := deps.NewDB(cfg.DBAddr)
	if err != nil {
		return nil, nil, err
	}

	cleanupFns := []func(){
		func() { _ = db.Close() },
	}

	// 2) account repo
	sqlDB, ok := db.(*sql.DB)
	if !ok {
		runCleanup(cleanupFns)
		return nil, nil, errors.New("bootstrap: NewDB did not return *sql.DB")
	}

	accountRepo := postgres.NewAccountRepo(sqlDB)

	// 3) redis (best-effort)
	var redisCli RedisClient
	if deps.NewRedis != nil {
		c := deps.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := c.Ping(ctx); err != nil {
			logger.Logger.Warn().Err(err).Msg("redis unavailable; using in-process stores")
			_ = c.Close()
		} else {
			logger.Logger.Info().Msg("redis connected")
			redisCli = c
			cleanupFns = append(cleanupFns, func() { _ = c.Close() })
		}
	}

	// 4) session, reset-token and lockout stores
	var sessionStore auth.SessionStore
	var resetStore auth.ResetTokenStore
	var lockout auth.LockoutPolicy

	if redisCli != nil {
		rc := redisCli.(*redis.Client)
		sessionStore = redis.NewSessionStore(rc)
		resetStore = redis.NewResetTokenStore(rc)
		lockout = redis.NewLockoutPolicy(rc, cfg.LockoutThreshold, cfg.LockoutDuration)
	} else {
		sessionStore = memory.NewSessionStore()
		resetStore = memory.NewResetTokenStore()
		lockout = memory.NewLockoutPolicy(cfg.LockoutThreshold, cfg.LockoutDuration)
	}

	// 5) publisher
	pub, err := deps.NewPublisher(cfg.RabbitURL)
	if err != nil {
		if cfg.Env == "dev" {
			logger.Logger.Warn().Err(err).Msg("rabbitmq unavailable; using noop publisher")
			pub = memory.NewNoopPublisher()
		} else {
			runCleanup(cleanupFns)
			return nil, nil, err
		}
	}

	if c, ok := pub.(interface{ Close() error }); ok {
		cleanupFns = append(cleanupFns, func() { _ = c.Close() })
	}

	// 6) security
	hasher := security.NewBcryptHasher(cfg.BcryptCost)
	signer := security.NewSessionSigner(cfg.SessionSecret, "identity-service")

	// 7) service
	authSvc := auth.NewService(
		accountRepo,
		hasher,
		signer,
		sessionStore,
		resetStore,
		lockout,
		pub.(auth.EventPublisher),
		auth.Config{
			SessionTTL:            cfg.SessionTTL,
			PersistentSessionTTL:  cfg.PersistentSessionTTL,
			MinPasswordLength:     cfg.MinPasswordLength,
			ResetTokenTTL:         cfg.PasswordResetTokenTTL,
			ResetBaseURL:          cfg.PasswordResetBaseURL,
			RevokeSessionsOnReset: cfg.RevokeSessionsOnReset,
		},
	)

	authSvc = authSvc.WithAudit(func(action string, fields map[string]string) {
		evt := logger.Logger.Info().
			Bool("audit", true).
			Str("action", action)
		for k, v := range fields {
			evt = evt.Str(k, v)
		}
		evt.Msg("audit")
	})

	// 8) handlers + middleware
	authH := http_handlers.NewAuthHandler(authSvc, cfg.SecureCookies)

	// readiness only pings redis when the redis-backed stores are in use
	var cachePinger http_handlers.Pinger
	if redisCli != nil {
		cachePinger = redisCli
	}
	healthH := http_handlers.NewHealthHandler(sqlDB, cachePinger)
	sessionMW := middleware.Session(authSvc, response.WriteError)

	// 9) router
	mux, err := deps.NewRouter(router.Deps{
		Health:    healthH,
		Auth:      authH,
		RequestID: middleware.RequestID,
		SessionMW: sessionMW,
	})
	if err != nil {
		runCleanup(cleanupFns)
		return nil, nil, err
	}

	// 10) server
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	cleanup := func() {
		runCleanup(cleanupFns)
	}

	return srv, cleanup, nil
}

/*
========================
 Default deps (prod)
========================
*/

func defaultDeps() Deps {
	return Deps{
		LoadConfig: config.Load,
		NewDB: func(addr string) (DBCloser, error) {
			return config.NewDB(addr)
		},
		NewRedis: func(addr, password string, db int) RedisClient {
			return redis.New(addr, password, db)
		},
		NewPublisher: func(url string) (Publisher, error) {
			return rabbitmq_pub.NewPublisher(url)
		},
		NewRouter: func(d router.Deps) (http.Handler, error) {
			return router.New(d)
		},
	}
}

/*
========================
 helpers
========================
*/

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
