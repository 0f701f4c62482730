package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairyfeed/internal/config"
	"github.com/mamadbah2/dairyfeed/internal/repository/gormstore"
	"github.com/mamadbah2/dairyfeed/internal/repository/mongodb"
	"github.com/mamadbah2/dairyfeed/internal/repository/sheets"
	"github.com/mamadbah2/dairyfeed/internal/scheduler"
	"github.com/mamadbah2/dairyfeed/internal/server/handlers"
	"github.com/mamadbah2/dairyfeed/internal/server/router"
	"github.com/mamadbah2/dairyfeed/internal/service/catalog"
	commandsvc "github.com/mamadbah2/dairyfeed/internal/service/commands"
	"github.com/mamadbah2/dairyfeed/internal/service/dailyfeed"
	"github.com/mamadbah2/dairyfeed/internal/service/ledger"
	"github.com/mamadbah2/dairyfeed/internal/service/monitor"
	"github.com/mamadbah2/dairyfeed/internal/service/nutrition"
	reportingsvc "github.com/mamadbah2/dairyfeed/internal/service/reporting"
	whatsappsvc "github.com/mamadbah2/dairyfeed/internal/service/whatsapp"
	"github.com/mamadbah2/dairyfeed/pkg/clients/weather"
	whatsappclient "github.com/mamadbah2/dairyfeed/pkg/clients/whatsapp"
	"github.com/mamadbah2/dairyfeed/pkg/logger"
	"github.com/mamadbah2/dairyfeed/pkg/metrics"
	"github.com/mamadbah2/dairyfeed/pkg/redisstore"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := gormstore.Open(cfg.Database, baseLogger.Named("repo.gorm"))
	if err != nil {
		baseLogger.Fatal("failed to open database", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			baseLogger.Error("failed to close database", zap.Error(err))
		}
	}()
	if cfg.Database.SyncAlter {
		if err := store.Migrate(ctx); err != nil {
			baseLogger.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	jobMetrics := metrics.NewJobMetrics(registry)
	stockMetrics := metrics.NewStockMetrics(registry)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	monitorOpts := []monitor.Option{monitor.WithObserver(stockMetrics)}

	var idempotencyStore redisstore.IdempotencyStore
	if cfg.Redis.Enabled() {
		redisClient, err := redisstore.New(ctx, cfg.Redis)
		if err != nil {
			baseLogger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer func() { _ = redisClient.Close() }()
		idempotencyStore = redisClient
		monitorOpts = append(monitorOpts, monitor.WithLocker(redisClient))
		baseLogger.Info("redis enabled: idempotency replay and sweep lock active")
	} else {
		baseLogger.Warn("redis not configured, idempotency keys are ignored")
	}

	var archive mongodb.Repository
	if cfg.MongoDB.Enabled() {
		mongoRepo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		defer func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		archive = mongoRepo
	}

	var sheet sheets.Repository
	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		sheet = sheetsRepo
	}

	weatherClient := weather.NewClient(cfg.Weather, baseLogger.Named("client.weather"))
	nutritionSvc := nutrition.NewService(store, baseLogger.Named("svc.nutrition"))
	ledgerSvc := ledger.NewService(store, nutritionSvc, baseLogger.Named("svc.ledger"))
	catalogSvc := catalog.NewService(store, baseLogger.Named("svc.catalog"))
	dailyFeedSvc := dailyfeed.NewService(store, weatherClient, baseLogger.Named("svc.dailyfeed"))
	reportingSvc := reportingsvc.NewService(store, archive, sheet, baseLogger.Named("svc.reporting"))

	// The chat commands need the monitor and the monitor alerts through
	// WhatsApp, so the dispatcher resolves the monitor lazily.
	var monitorSvc *monitor.Service
	var messagingSvc whatsappsvc.MessagingService
	var webhookHandler *handlers.WebhookHandler
	if cfg.WhatsApp.Enabled() {
		commandDispatcher := commandsvc.NewService(reportingSvc, commandsvc.SweeperFunc(func(ctx context.Context) (*monitor.SweepResult, error) {
			return monitorSvc.Sweep(ctx)
		}), baseLogger.Named("svc.commands"))

		whatsClient := whatsappclient.NewClient(cfg.WhatsApp, baseLogger.Named("client.whatsapp"))
		metaSvc := whatsappsvc.NewMetaWhatsAppService(cfg.WhatsApp, whatsClient, commandDispatcher, baseLogger.Named("svc.whatsapp"))
		if cfg.WhatsApp.AlertRecipient != "" {
			monitorOpts = append(monitorOpts, monitor.WithAlerter(metaSvc))
		}
		messagingSvc = metaSvc
		webhookHandler = handlers.NewWebhookHandler(metaSvc, baseLogger.Named("handlers.whatsapp"))
	} else {
		baseLogger.Warn("whatsapp not configured, chat commands and alerts disabled")
	}
	monitorSvc = monitor.NewService(store, baseLogger.Named("svc.monitor"), monitorOpts...)

	engine := router.New(router.Handlers{
		Catalog:       handlers.NewCatalogHandler(catalogSvc, baseLogger.Named("handlers.catalog")),
		DailyFeed:     handlers.NewDailyFeedHandler(dailyFeedSvc, baseLogger.Named("handlers.dailyfeed")),
		Items:         handlers.NewDailyFeedItemHandler(ledgerSvc, baseLogger.Named("handlers.items")),
		Nutrients:     handlers.NewNutrientHandler(nutritionSvc, baseLogger.Named("handlers.nutrients")),
		Notifications: handlers.NewNotificationHandler(monitorSvc, baseLogger.Named("handlers.notifications")),
		Webhook:       webhookHandler,
	}, router.Options{
		Idempotency:    idempotencyStore,
		Metrics:        httpMetrics,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Health:         store.Ping,
	}, baseLogger.Named("router"))

	sched, err := scheduler.NewScheduler(*cfg, monitorSvc, reportingSvc, messagingSvc, jobMetrics, baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
