package main

import (
	"context"
	"errors"
	"log"

	"storefront-api/config"
	"storefront-api/internal/api"
	"storefront-api/internal/app"
	"storefront-api/internal/broker"
	"storefront-api/internal/models"
	"storefront-api/internal/service"
	"storefront-api/internal/util"
	"storefront-api/internal/worker"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	shutdown, err := app.Init(cfg, "storefront-postgres")
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer shutdown()

	logger := util.GetLogger()
	logger.Info("Starting relational storefront API")

	if !cfg.Postgres.Enabled() {
		logger.Fatal("POSTGRES_URL or DATABASE_URL is required")
	}
	db, err := app.ConnectPostgres(cfg.Postgres)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// MongoDB is optional here; it only feeds diagnostics and the console.
	var (
		mongoPinger   service.Pinger
		mongoExecutor service.CommandExecutor
		mongoCounter  service.ProductCounter
		redisPinger   service.Pinger
	)
	if ds, err := app.ConnectMongo(cfg.Mongo); err != nil {
		logger.Warn("MongoDB unavailable", zap.Error(err))
	} else if ds != nil {
		defer ds.Close(context.Background())
		mongoPinger, mongoExecutor, mongoCounter = ds, ds, ds
	}

	var (
		sourceCache service.SourceCache
		idem        service.IdempotencyStore
		locker      worker.Locker
	)
	if rc := app.ConnectRedis(cfg.Redis); rc != nil {
		defer rc.Close()
		sourceCache, idem, locker, redisPinger = rc, rc, rc, rc
	}

	publisher, closePublisher := app.NewPublisher(cfg.Kafka)
	defer closePublisher()

	resolver := service.NewSourceResolver(db, sourceCache, cfg.Features.SourceCacheTTL)
	orderService := service.NewOrderService(db, resolver, publisher, idem, cfg.Business)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var consumer *broker.Consumer
	if cfg.Kafka.Enabled() {
		consumer = broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
	}
	statsWorker := worker.NewStatsWorker(consumer, db, locker, cfg.Features.StatsRefreshInterval)
	if consumer == nil {
		// no event stream, so commits mark the view stale directly
		orderService = orderService.WithCommitHook(statsWorker.MarkDirty)
	}
	go func() {
		if err := statsWorker.Start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Stats worker error", zap.Error(err))
		}
	}()

	handler := api.NewHandler(api.Deps{
		Products:    service.NewProductService(db, resolver, orderService, cfg.Business),
		Orders:      orderService,
		Reviews:     service.NewReviewService(service.RelationalReviews(db, resolver)),
		Stats:       service.NewStatsService(db),
		Console:     service.NewConsoleService(cfg.Features.AllowSQL, db, mongoExecutor),
		Diagnostics: service.NewDiagnosticsService(models.BackendPostgres, db, mongoPinger, resolver).
			WithRedis(redisPinger).
			WithProductCounter(mongoCounter),
	})

	router := app.NewRouter(cfg.Server.Env)
	handler.SetupRoutes(router)

	app.Serve(cfg.Server.Port, router)

	workerCancel()
	if err := statsWorker.Stop(); err != nil {
		logger.Warn("Error stopping stats worker", zap.Error(err))
	}

	logger.Info("Server exited")
}
