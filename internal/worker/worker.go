package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"storefront-api/internal/broker"
	"storefront-api/internal/models"
	"storefront-api/internal/store"
	"storefront-api/internal/util"

	"go.uber.org/zap"
)

const refreshLockKey = "monthly-stats-refresh"

// StatsRefresher rebuilds the monthly stats view
type StatsRefresher interface {
	RefreshMonthlyStats(ctx context.Context) error
}

// Locker serialises refreshes across processes
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

// StatsWorker consumes ORDER_PLACED events and refreshes
// product_monthly_stats at most once per interval while orders keep coming.
type StatsWorker struct {
	consumer  *broker.Consumer
	refresher StatsRefresher
	locker    Locker
	interval  time.Duration

	mu    sync.Mutex
	dirty bool
}

// NewStatsWorker creates the worker. consumer and locker may be nil.
func NewStatsWorker(consumer *broker.Consumer, refresher StatsRefresher, locker Locker, interval time.Duration) *StatsWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &StatsWorker{
		consumer:  consumer,
		refresher: refresher,
		locker:    locker,
		interval:  interval,
	}
}

// Start runs until ctx is cancelled
func (w *StatsWorker) Start(ctx context.Context) error {
	logger := util.GetLogger()
	logger.Info("Starting stats worker", zap.Duration("interval", w.interval))

	if w.consumer != nil {
		handler := broker.NewEventHandler()
		handler.OnOrderPlaced(w.HandleOrderPlaced)
		go func() {
			if err := w.consumer.StartConsuming(ctx, handler.HandleMessage); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Stats consumer stopped", zap.Error(err))
			}
		}()
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping stats worker")
			return ctx.Err()
		case <-ticker.C:
			if err := w.RefreshIfDirty(ctx); err != nil {
				logger.Warn("Monthly stats refresh failed", zap.Error(err))
			}
		}
	}
}

// Stop closes the consumer
func (w *StatsWorker) Stop() error {
	if w.consumer == nil {
		return nil
	}
	return w.consumer.Close()
}

// HandleOrderPlaced marks the view stale for relational orders
func (w *StatsWorker) HandleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	if event.Backend != models.BackendPostgres {
		return nil
	}
	w.MarkDirty()
	return nil
}

// MarkDirty schedules a refresh on the next tick
func (w *StatsWorker) MarkDirty() {
	w.mu.Lock()
	w.dirty = true
	w.mu.Unlock()
}

// RefreshIfDirty refreshes the view when orders arrived since the last run.
// A missing view is not retried until new orders arrive.
func (w *StatsWorker) RefreshIfDirty(ctx context.Context) error {
	w.mu.Lock()
	dirty := w.dirty
	w.dirty = false
	w.mu.Unlock()

	if !dirty {
		return nil
	}

	if w.locker != nil {
		ok, err := w.locker.AcquireLock(ctx, refreshLockKey, w.interval)
		if err != nil {
			w.MarkDirty()
			return err
		}
		if !ok {
			// another process is refreshing; its snapshot may predate our orders
			w.MarkDirty()
			return nil
		}
		defer func() { _ = w.locker.ReleaseLock(context.Background(), refreshLockKey) }()
	}

	err := w.refresher.RefreshMonthlyStats(ctx)
	switch {
	case err == nil:
		util.StatsRefreshTotal.WithLabelValues("ok").Inc()
	case errors.Is(err, store.ErrSchemaUnavailable):
		util.StatsRefreshTotal.WithLabelValues("missing").Inc()
		return nil
	default:
		util.StatsRefreshTotal.WithLabelValues("error").Inc()
		w.MarkDirty()
	}
	return err
}
