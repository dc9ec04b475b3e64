package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/batiprix/batiprix/internal/apikeys"
	"github.com/batiprix/batiprix/internal/app"
	"github.com/batiprix/batiprix/internal/catalog/categories"
	"github.com/batiprix/batiprix/internal/catalog/products"
	"github.com/batiprix/batiprix/internal/catalog/units"
	"github.com/batiprix/batiprix/internal/dedup"
	"github.com/batiprix/batiprix/internal/observability"
	"github.com/batiprix/batiprix/internal/platform/cache"
	"github.com/batiprix/batiprix/internal/platform/db"
	"github.com/batiprix/batiprix/internal/pricing"
	"github.com/batiprix/batiprix/internal/suppliers"
	"github.com/batiprix/batiprix/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, dedup cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	var keyCache *dedup.KeyCache
	if redisClient != nil {
		keyCache = dedup.NewKeyCache(redisClient, cfg.DedupCacheTTL)
	}

	productsRepo := products.NewRepository(pool)
	productsService := products.NewService(productsRepo, keyCache)
	detector := dedup.NewDetector(productsService, keyCache)

	metrics := observability.NewMetrics()

	pricingRepo := pricing.NewRepository(pool)
	ledger := pricing.NewLedger(pricingRepo)
	pricingHandler := pricing.NewHandler(logger, ledger, metrics)

	productsHandler := products.NewHandler(logger, productsService, detector, ledger)
	categoriesHandler := categories.NewHandler(logger, categories.NewService(pool))
	unitsHandler := units.NewHandler(logger, units.NewService(pool))

	suppliersHandler := suppliers.NewHandler(logger, suppliers.NewService(suppliers.NewRepository(pool)))

	keysService := apikeys.NewService(apikeys.NewRepository(pool))
	keysHandler := apikeys.NewHandler(logger, keysService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Pool:              pool,
		Keys:              keysService,
		ProductsHandler:   productsHandler,
		CategoriesHandler: categoriesHandler,
		UnitsHandler:      unitsHandler,
		PricingHandler:    pricingHandler,
		SuppliersHandler:  suppliersHandler,
		APIKeysHandler:    keysHandler,
		JobsHandler:       jobsHandler,
		Metrics:           metrics,
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
