package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront-api/config"
	"storefront-api/internal/broker"
	"storefront-api/internal/models"
	"storefront-api/internal/store"
	"storefront-api/internal/util"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// IdempotencyStore replays responses of repeated order requests
type IdempotencyStore interface {
	LoadIdempotent(ctx context.Context, key string, out interface{}) (bool, error)
	StoreIdempotent(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// IdempotencyTTL bounds how long an order response can be replayed
const IdempotencyTTL = 24 * time.Hour

// OrderService writes orders into the normalized schema
type OrderService struct {
	store     *store.Store
	resolver  Resolver
	publisher broker.Publisher
	idem      IdempotencyStore
	business  config.BusinessConfig
	onCommit  func()
	logger    *zap.Logger
}

// NewOrderService creates a new order service. idem may be nil.
func NewOrderService(
	store *store.Store,
	resolver Resolver,
	publisher broker.Publisher,
	idem IdempotencyStore,
	business config.BusinessConfig,
) *OrderService {
	if publisher == nil {
		publisher = broker.NopPublisher{}
	}
	return &OrderService{
		store:     store,
		resolver:  resolver,
		publisher: publisher,
		idem:      idem,
		business:  business,
		logger:    util.GetLogger(),
	}
}

// NewOrderID returns a 32 character hex identifier
func NewOrderID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// PlaceOrder validates items and writes the order in one transaction. Every
// unit becomes its own line-item and pricing row.
func (s *OrderService) PlaceOrder(ctx context.Context, req *models.PlaceOrderRequest) (*models.OrderResult, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.PlaceOrder")
	defer span.End()

	start := time.Now()

	if len(req.Items) == 0 {
		util.OrdersFailedTotal.WithLabelValues(models.BackendPostgres, "empty").Inc()
		return nil, &ValidationError{Field: "items", Message: "must be a non-empty array"}
	}

	if replay, ok := s.replay(ctx, req.IdempotencyKey); ok {
		return replay, nil
	}

	source, err := s.resolver.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve source: %w", err)
	}
	if source != models.SourceNormalized {
		util.OrdersFailedTotal.WithLabelValues(models.BackendPostgres, "schema").Inc()
		return nil, fmt.Errorf("%w: order writes need the normalized schema (source is %s)", ErrUnavailable, source)
	}

	customerID := firstNonEmpty(req.CustomerID, s.business.DefaultCustomerID)
	orderID := NewOrderID()
	purchasedAt := time.Now().UTC()

	var (
		total     decimal.Decimal
		lineCount int
		accepted  []orderItem
	)

	dbStart := time.Now()
	err = s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		header := models.OrderHeader{OrderID: orderID, CustomerID: customerID, Status: models.OrderStatusCreated}
		if err := store.InsertOrderHeader(ctx, tx, header); err != nil {
			return err
		}
		if err := store.InsertPurchaseTimestamp(ctx, tx, orderID, purchasedAt); err != nil {
			return err
		}

		lookup := func(ctx context.Context, productID string) (decimal.Decimal, error) {
			return store.LookupUnitPrice(ctx, tx, productID)
		}

		for _, in := range req.Items {
			item, ok, err := resolveItem(ctx, in, s.business.DefaultSellerID, lookup)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}

			for u := 0; u < item.Units; u++ {
				lineCount++
				line := models.OrderLine{
					OrderID:      orderID,
					OrderItemID:  lineCount,
					ProductID:    item.ProductID,
					SellerID:     item.SellerID,
					Price:        item.UnitPrice,
					FreightValue: decimal.Zero,
				}
				if err := store.InsertOrderLine(ctx, tx, line); err != nil {
					return err
				}
				total = total.Add(line.Price).Add(line.FreightValue)
			}
			accepted = append(accepted, item)
		}

		if lineCount == 0 {
			return ErrNoValidItems
		}

		if err := store.EnsurePaymentType(ctx, tx, s.business.DefaultPaymentType); err != nil {
			return err
		}
		return store.InsertPayment(ctx, tx, models.Payment{
			OrderID:      orderID,
			Sequential:   1,
			Type:         s.business.DefaultPaymentType,
			Installments: 1,
			Value:        total,
		})
	})
	dbElapsed := time.Since(dbStart)
	util.OrderWriteLatency.WithLabelValues(models.BackendPostgres).Observe(dbElapsed.Seconds())

	if err != nil {
		reason := "tx_error"
		if errors.Is(err, ErrNoValidItems) {
			reason = "no_valid_items"
		}
		util.OrdersFailedTotal.WithLabelValues(models.BackendPostgres, reason).Inc()
		s.logger.Warn("Order rolled back", zap.String("order_id", orderID), zap.Error(err))
		return nil, &TransactionError{Err: err}
	}

	util.OrdersPlacedTotal.WithLabelValues(models.BackendPostgres).Inc()
	util.OrderLineItemsTotal.WithLabelValues(models.BackendPostgres).Add(float64(lineCount))
	s.logger.Info("Order placed",
		zap.String("order_id", orderID),
		zap.Int("line_items", lineCount),
		zap.String("total", total.StringFixed(2)))

	result := &models.OrderResult{
		OrderID:   orderID,
		Total:     total,
		LineItems: lineCount,
		Source:    source,
		TimingMs: models.OrderTiming{
			DB:    dbElapsed.Milliseconds(),
			Total: time.Since(start).Milliseconds(),
		},
	}

	s.afterCommit(ctx, req.IdempotencyKey, customerID, result, accepted)
	return result, nil
}

// WithCommitHook registers fn to run after every committed order
func (s *OrderService) WithCommitHook(fn func()) *OrderService {
	s.onCommit = fn
	return s
}

func (s *OrderService) replay(ctx context.Context, key string) (*models.OrderResult, bool) {
	return replayOrder(ctx, s.idem, s.logger, models.BackendPostgres, key)
}

func (s *OrderService) afterCommit(ctx context.Context, key, customerID string, result *models.OrderResult, items []orderItem) {
	if s.onCommit != nil {
		s.onCommit()
	}
	publishAndRemember(ctx, s.publisher, s.idem, s.logger, models.BackendPostgres, key, customerID, result, items)
}

// idempotencyKey scopes a client key to one backend
func idempotencyKey(backend, key string) string {
	return backend + ":" + key
}

// replayOrder returns a stored response for key. Cache failures are logged
// and treated as a miss.
func replayOrder(ctx context.Context, idem IdempotencyStore, logger *zap.Logger, backend, key string) (*models.OrderResult, bool) {
	if key == "" || idem == nil {
		return nil, false
	}
	var stored models.OrderResult
	found, err := idem.LoadIdempotent(ctx, idempotencyKey(backend, key), &stored)
	if err != nil {
		logger.Warn("Idempotency lookup failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !found {
		return nil, false
	}
	logger.Info("Duplicate order request detected",
		zap.String("idempotency_key", key),
		zap.String("order_id", stored.OrderID))
	return &stored, true
}

func publishAndRemember(
	ctx context.Context,
	publisher broker.Publisher,
	idem IdempotencyStore,
	logger *zap.Logger,
	backend, key, customerID string,
	result *models.OrderResult,
	items []orderItem,
) {
	event := broker.NewOrderPlacedEvent(backend, result, customerID, eventItems(items))
	if err := publisher.PublishOrderPlaced(ctx, event); err != nil {
		logger.Error("Failed to publish OrderPlaced event", zap.String("order_id", result.OrderID), zap.Error(err))
	}

	if key != "" && idem != nil {
		if err := idem.StoreIdempotent(ctx, idempotencyKey(backend, key), result, IdempotencyTTL); err != nil {
			logger.Warn("Failed to store idempotency key", zap.String("key", key), zap.Error(err))
		}
	}
}
