package service

import (
	"context"
	"time"

	"storefront-api/config"
	"storefront-api/internal/broker"
	"storefront-api/internal/docstore"
	"storefront-api/internal/models"
	"storefront-api/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Origins recorded on order documents
const (
	OriginStorefront = "storefront"
	OriginAdmin      = "admin"
)

// DocumentOrderService writes orders as single documents. The order insert
// and the product counter updates are separate writes.
type DocumentOrderService struct {
	store     DocumentStore
	publisher broker.Publisher
	idem      IdempotencyStore
	business  config.BusinessConfig
	logger    *zap.Logger
}

// NewDocumentOrderService creates the MongoDB order writer. idem may be nil.
func NewDocumentOrderService(store DocumentStore, publisher broker.Publisher, idem IdempotencyStore, business config.BusinessConfig) *DocumentOrderService {
	if publisher == nil {
		publisher = broker.NopPublisher{}
	}
	return &DocumentOrderService{
		store:     store,
		publisher: publisher,
		idem:      idem,
		business:  business,
		logger:    util.GetLogger(),
	}
}

// PlaceOrder applies the same item rules as the relational writer
func (s *DocumentOrderService) PlaceOrder(ctx context.Context, req *models.PlaceOrderRequest) (*models.OrderResult, error) {
	ctx, span := util.StartSpan(ctx, "DocumentOrderService.PlaceOrder")
	defer span.End()

	start := time.Now()

	if len(req.Items) == 0 {
		util.OrdersFailedTotal.WithLabelValues(models.BackendMongo, "empty").Inc()
		return nil, &ValidationError{Field: "items", Message: "must be a non-empty array"}
	}

	if replay, ok := replayOrder(ctx, s.idem, s.logger, models.BackendMongo, req.IdempotencyKey); ok {
		return replay, nil
	}

	customerID := firstNonEmpty(req.CustomerID, s.business.DefaultCustomerID)
	dbStart := time.Now()

	var items []orderItem
	for _, in := range req.Items {
		item, ok, err := resolveItem(ctx, in, s.business.DefaultSellerID, s.store.AveragePrice)
		if err != nil {
			return nil, err
		}
		if ok {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		util.OrdersFailedTotal.WithLabelValues(models.BackendMongo, "no_valid_items").Inc()
		return nil, &TransactionError{Err: ErrNoValidItems}
	}

	result, err := s.write(ctx, NewOrderID(), customerID, OriginStorefront, items)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues(models.BackendMongo, "write_error").Inc()
		return nil, err
	}

	dbElapsed := time.Since(dbStart)
	util.OrderWriteLatency.WithLabelValues(models.BackendMongo).Observe(dbElapsed.Seconds())
	result.TimingMs = models.OrderTiming{DB: dbElapsed.Milliseconds(), Total: time.Since(start).Milliseconds()}

	s.logger.Info("Order placed",
		zap.String("order_id", result.OrderID),
		zap.Int("units", result.LineItems),
		zap.String("total", result.Total.StringFixed(2)))

	publishAndRemember(ctx, s.publisher, s.idem, s.logger, models.BackendMongo, req.IdempotencyKey, customerID, result, items)
	return result, nil
}

// write inserts the order document then bumps product counters
func (s *DocumentOrderService) write(ctx context.Context, orderID, customerID, origin string, items []orderItem) (*models.OrderResult, error) {
	total := decimal.Zero
	units := 0
	docItems := make([]docstore.OrderItemDoc, 0, len(items))
	for _, it := range items {
		docItems = append(docItems, docstore.OrderItemDoc{
			ProductID: it.ProductID,
			SellerID:  it.SellerID,
			Quantity:  it.Units,
			UnitPrice: it.UnitPrice.InexactFloat64(),
		})
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Units))))
		units += it.Units
	}

	err := s.store.InsertOrder(ctx, docstore.OrderDoc{
		ID:          orderID,
		CustomerID:  customerID,
		Status:      models.OrderStatusCreated,
		Items:       docItems,
		Total:       total.InexactFloat64(),
		PaymentType: s.business.DefaultPaymentType,
		Origin:      origin,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	if origin == OriginStorefront {
		counts := make([]docstore.ProductUnits, 0, len(eventItems(items)))
		for _, it := range eventItems(items) {
			counts = append(counts, docstore.ProductUnits{
				ProductID: it.ProductID,
				Units:     it.Units,
				UnitPrice: it.UnitPrice.InexactFloat64(),
			})
		}
		if err := s.store.IncrementOrderCounts(ctx, counts); err != nil {
			s.logger.Error("Order stored but product counters not updated", zap.String("order_id", orderID), zap.Error(err))
			return nil, err
		}
	}

	util.OrdersPlacedTotal.WithLabelValues(models.BackendMongo).Inc()
	util.OrderLineItemsTotal.WithLabelValues(models.BackendMongo).Add(float64(units))

	return &models.OrderResult{
		OrderID:   orderID,
		Total:     total,
		LineItems: units,
		Source:    models.SourceDocument,
	}, nil
}
