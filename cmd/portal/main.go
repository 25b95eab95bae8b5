package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/brightpath-hq/brightpath/internal/api"
	"github.com/brightpath-hq/brightpath/internal/app"
	"github.com/brightpath-hq/brightpath/internal/audit"
	"github.com/brightpath-hq/brightpath/internal/auth"
	"github.com/brightpath-hq/brightpath/internal/gate"
	"github.com/brightpath-hq/brightpath/internal/guard"
	"github.com/brightpath-hq/brightpath/internal/observability"
	"github.com/brightpath-hq/brightpath/internal/pages"
	platformcache "github.com/brightpath-hq/brightpath/internal/platform/cache"
	platformdb "github.com/brightpath-hq/brightpath/internal/platform/db"
	"github.com/brightpath-hq/brightpath/internal/session"
	"github.com/brightpath-hq/brightpath/internal/shared"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	// Postgres and Redis are optional collaborators: missing configuration
	// degrades the dependent feature, it does not stop the portal.
	var pool *pgxpool.Pool
	if cfg.PGDSN != "" {
		pool, err = platformdb.New(ctx, cfg.PGDSN)
		if err != nil {
			logger.Warn("postgres unavailable, auth event trail disabled", slog.Any("error", err))
			pool = nil
		} else {
			defer pool.Close()
		}
	} else {
		logger.Warn("PG_DSN not set, auth event trail disabled")
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = platformcache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("redis unavailable, identity cache disabled", slog.Any("error", err))
			redisClient = nil
		} else {
			defer func() {
				if err := redisClient.Close(); err != nil {
					logger.Warn("redis close", slog.Any("error", err))
				}
			}()
		}
	} else {
		logger.Warn("REDIS_ADDR not set, identity cache disabled")
	}

	codec := shared.NewCookieCodec(cfg.CookieSecret)
	cookies := shared.CookieConfig{
		TokenName: cfg.TokenCookie,
		RoleName:  cfg.RoleCookie,
		TTL:       cfg.CookieTTL,
		Secure:    cfg.IsProduction(),
	}
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret, cfg.IsProduction())
	metrics := observability.NewMetrics()

	upstream := api.NewClient(cfg.UpstreamURL, cfg.UpstreamTimeout, logger)
	identityCache := session.NewCache(redisClient, cfg.CookieSecret, cfg.SessionCacheTTL)
	sessions := session.NewManager(session.ManagerConfig{
		Backend: upstream,
		Cache:   identityCache,
		Codec:   codec,
		Cookies: cookies,
		Logger:  logger,
		Metrics: metrics,
		Timeout: cfg.RehydrateTimeout,
	})

	recorder := audit.NewRecorder(pool, logger)
	authHandler := auth.NewHandler(logger, sessions, upstream, recorder, cfg.CookieTTL)
	pagesHandler := pages.NewHandler(logger, guard.Protector{Logger: logger})

	router := app.NewRouter(app.RouterParams{
		Logger:       logger,
		Config:       cfg,
		Sessions:     sessions,
		CSRF:         csrfManager,
		Codec:        codec,
		Cookies:      cookies,
		AuthHandler:  authHandler,
		PagesHandler: pagesHandler,
		Gate: gate.Middleware{
			Codec:   codec,
			Cookies: cookies,
			Logger:  logger,
			Metrics: metrics,
		},
		Metrics: metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
