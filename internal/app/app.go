// Package app holds the process wiring shared by both servers.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-api/config"
	"storefront-api/internal/broker"
	"storefront-api/internal/docstore"
	"storefront-api/internal/redisclient"
	"storefront-api/internal/store"
	"storefront-api/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const connectTimeout = 10 * time.Second

// Closer releases a resource at shutdown
type Closer func()

// Init sets up logging and tracing for a server binary
func Init(cfg *config.Config, service string) (Closer, error) {
	if err := util.InitLogger(cfg.Server.Env, service); err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	tp, err := util.InitTracer(service, cfg.Observ.JaegerEndpoint)
	if err != nil {
		return nil, fmt.Errorf("initialize tracer: %w", err)
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			util.GetLogger().Warn("Error shutting down tracer", zap.Error(err))
		}
		util.SyncLogger()
	}, nil
}

// ConnectPostgres opens the relational store, or returns nil when it is not
// configured.
func ConnectPostgres(cfg config.PostgresConfig) (*store.Store, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	db, err := store.NewStore(cfg.DSN())
	if err != nil {
		return nil, err
	}
	util.GetLogger().Info("Database connected", zap.String("engine", "postgres"))
	return db, nil
}

// ConnectMongo opens the document store, or returns nil when it is not
// configured.
func ConnectMongo(cfg config.MongoConfig) (*docstore.Store, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	ds, err := docstore.Connect(ctx, cfg.URI, cfg.DBName)
	if err != nil {
		return nil, err
	}
	util.GetLogger().Info("Database connected", zap.String("engine", "mongodb"), zap.String("db", cfg.DBName))
	return ds, nil
}

// ConnectRedis returns a client or nil. Redis only backs caches, so a
// failed connection is logged and the server runs without it.
func ConnectRedis(cfg config.RedisConfig) *redisclient.Client {
	if !cfg.Enabled() {
		return nil
	}
	client, err := redisclient.NewClient(cfg.Addr, cfg.Password, cfg.DB)
	if err != nil {
		util.GetLogger().Warn("Redis unavailable, continuing without it", zap.Error(err))
		return nil
	}
	util.GetLogger().Info("Redis connected", zap.String("addr", cfg.Addr))
	return client
}

// NewPublisher returns a Kafka publisher, or a no-op one when no brokers
// are configured.
func NewPublisher(cfg config.KafkaConfig) (broker.Publisher, Closer) {
	if !cfg.Enabled() {
		return broker.NopPublisher{}, func() {}
	}
	producer := broker.NewProducer(cfg.Brokers, cfg.TopicOrder)
	util.GetLogger().Info("Kafka producer initialized", zap.Strings("brokers", cfg.Brokers))
	return broker.NewEventPublisher(producer), func() { _ = producer.Close() }
}

// NewRouter returns a bare engine; middleware is added by the handler
func NewRouter(env string) *gin.Engine {
	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	return gin.New()
}

// Serve runs the HTTP server until SIGINT or SIGTERM and then drains it
func Serve(port string, router http.Handler) {
	logger := util.GetLogger()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("Server forced to shutdown", zap.Error(err))
	}
}
