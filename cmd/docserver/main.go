package main

import (
	"context"
	"log"
	"time"

	"storefront-api/config"
	"storefront-api/internal/api"
	"storefront-api/internal/app"
	"storefront-api/internal/models"
	"storefront-api/internal/service"
	"storefront-api/internal/util"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	shutdown, err := app.Init(cfg, "storefront-mongodb")
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer shutdown()

	logger := util.GetLogger()
	logger.Info("Starting document storefront API")

	if !cfg.Mongo.Enabled() {
		logger.Fatal("MONGODB_URI or MONGO_URL is required")
	}
	ds, err := app.ConnectMongo(cfg.Mongo)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer ds.Close(context.Background())

	indexCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ds.EnsureIndexes(indexCtx); err != nil {
		logger.Warn("Failed to ensure indexes", zap.Error(err))
	}
	cancel()

	// Postgres is optional here; it only feeds diagnostics and the console.
	var (
		pgPinger service.Pinger
		pgRunner service.QueryRunner
	)
	if db, err := app.ConnectPostgres(cfg.Postgres); err != nil {
		logger.Warn("Postgres unavailable", zap.Error(err))
	} else if db != nil {
		defer db.Close()
		pgPinger, pgRunner = db, db
	}

	diagnostics := service.NewDiagnosticsService(models.BackendMongo, pgPinger, ds, nil).
		WithProductCounter(ds)

	var idem service.IdempotencyStore
	if rc := app.ConnectRedis(cfg.Redis); rc != nil {
		defer rc.Close()
		idem = rc
		diagnostics.WithRedis(rc)
	}

	publisher, closePublisher := app.NewPublisher(cfg.Kafka)
	defer closePublisher()

	handler := api.NewHandler(api.Deps{
		Products:    service.NewDocumentProductService(ds, cfg.Business),
		Orders:      service.NewDocumentOrderService(ds, publisher, idem, cfg.Business),
		Reviews:     service.NewReviewService(ds.ListReviews),
		Console:     service.NewConsoleService(cfg.Features.AllowSQL, pgRunner, ds),
		Diagnostics: diagnostics,
	})

	router := app.NewRouter(cfg.Server.Env)
	handler.SetupRoutes(router)

	app.Serve(cfg.Server.Port, router)

	logger.Info("Server exited")
}
