package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/glowcare/storefront/internal/app"
	"github.com/glowcare/storefront/internal/auth"
	"github.com/glowcare/storefront/internal/catalog"
	"github.com/glowcare/storefront/internal/observability"
	"github.com/glowcare/storefront/internal/platform/cache"
	"github.com/glowcare/storefront/internal/platform/db"
	"github.com/glowcare/storefront/internal/uploads"
	"github.com/glowcare/storefront/jobs"
)

// multipart framing on top of the image itself
const formOverheadBytes = 1 << 20

type stores struct {
	products catalog.ReadWriter
	accounts auth.Repository
	close    func()
}

func openStores(ctx context.Context, cfg *app.Config, logger *slog.Logger) (stores, error) {
	if cfg.UsesMemoryStore() {
		logger.Warn("using in-memory store, data is lost on restart")
		return stores{
			products: catalog.NewMemoryStore(),
			accounts: auth.NewMemoryRepository(),
			close:    func() {},
		}, nil
	}
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return stores{}, err
	}
	if cfg.PGMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return stores{}, err
		}
		logger.Info("database schema applied")
	}
	return stores{
		products: catalog.NewPGStore(pool),
		accounts: auth.NewRepository(pool),
		close:    pool.Close,
	}, nil
}

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

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("open stores", slog.Any("error", err))
		os.Exit(1)
	}
	defer st.close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	var denylist auth.Denylist = auth.NewRedisDenylist(redisClient)
	var cleanupQueue jobs.Enqueuer
	if err != nil {
		logger.Warn("redis unavailable, keeping revocations in process and removing uploads inline", slog.Any("error", err))
		denylist = auth.NewMemoryDenylist()
	} else {
		jobClient := jobs.NewClient(cache.QueueOptions(cfg.RedisAddr))
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		cleanupQueue = jobClient
	}

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		logger.Error("init token issuer", slog.Any("error", err))
		os.Exit(1)
	}

	uploadStore, err := uploads.NewStore(cfg.UploadDir, cfg.UploadMaxBytes)
	if err != nil {
		logger.Error("init upload store", slog.Any("error", err))
		os.Exit(1)
	}
	cleaner := jobs.UploadCleaner{Queue: cleanupQueue, Remover: uploadStore, Logger: logger}

	metrics := observability.NewMetrics()

	authService := auth.NewService(st.accounts, tokens, denylist)
	authHandler := auth.NewHandler(auth.HandlerParams{
		Logger:            logger,
		Service:           authService,
		Avatars:           uploadStore,
		Cleaner:           cleaner,
		CredentialLimiter: app.CredentialLimiter(),
	})

	catalogHandler := catalog.NewHandler(catalog.HandlerParams{
		Logger:       logger,
		Engine:       catalog.NewEngine(st.products),
		Admin:        catalog.NewAdminService(st.products),
		Images:       uploadStore,
		Cleaner:      cleaner,
		Metrics:      metrics,
		AdminGuard:   authHandler.Middleware().RequireAdmin,
		MaxBodyBytes: cfg.UploadMaxBytes + formOverheadBytes,
	})

	inspector := asynq.NewInspector(cache.QueueOptions(cfg.RedisAddr))
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		AuthHandler:    authHandler,
		CatalogHandler: catalogHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
		UploadDir:      uploadStore.Dir(),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("store", cfg.StoreDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
