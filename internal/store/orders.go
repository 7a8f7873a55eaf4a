package store

import (
	"context"
	"time"

	"storefront-api/internal/models"

	"github.com/jmoiron/sqlx"
)

// The functions below run on the caller's transaction so an order is
// written all-or-nothing.

// InsertOrderHeader creates the orders_header row
func InsertOrderHeader(ctx context.Context, tx sqlx.ExecerContext, h models.OrderHeader) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO orders_header (order_id, customer_id, order_status) VALUES ($1, $2, $3)`,
		h.OrderID, h.CustomerID, h.Status)
	return wrap(err, "insert order header")
}

// InsertPurchaseTimestamp creates the order_timestamps row
func InsertPurchaseTimestamp(ctx context.Context, tx sqlx.ExecerContext, orderID string, purchasedAt time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO order_timestamps (order_id, order_purchase_timestamp) VALUES ($1, $2)`,
		orderID, purchasedAt)
	return wrap(err, "insert order timestamps")
}

// InsertOrderLine writes one line-item row and its pricing row
func InsertOrderLine(ctx context.Context, tx sqlx.ExecerContext, line models.OrderLine) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO order_items_core (order_id, order_item_id, product_id, seller_id) VALUES ($1, $2, $3, $4)`,
		line.OrderID, line.OrderItemID, line.ProductID, line.SellerID)
	if err != nil {
		return wrap(err, "insert order item")
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO order_item_pricing (order_id, order_item_id, price, freight_value) VALUES ($1, $2, $3, $4)`,
		line.OrderID, line.OrderItemID, line.Price, line.FreightValue)
	return wrap(err, "insert order item pricing")
}

// EnsurePaymentType inserts the payment type dimension row if missing
func EnsurePaymentType(ctx context.Context, tx sqlx.ExecerContext, paymentType string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO payment_types (payment_type) VALUES ($1) ON CONFLICT (payment_type) DO NOTHING`,
		paymentType)
	return wrap(err, "ensure payment type")
}

// InsertPayment writes the payment method and payment amount rows
func InsertPayment(ctx context.Context, tx sqlx.ExecerContext, p models.Payment) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO order_payment_methods (order_id, payment_sequential, payment_type, payment_installments) VALUES ($1, $2, $3, $4)`,
		p.OrderID, p.Sequential, p.Type, p.Installments)
	if err != nil {
		return wrap(err, "insert payment method")
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO order_payment_amounts (order_id, payment_sequential, payment_value) VALUES ($1, $2, $3)`,
		p.OrderID, p.Sequential, p.Value)
	return wrap(err, "insert payment amount")
}

// GetOrderLines returns the line rows of an order in item order
func (s *Store) GetOrderLines(ctx context.Context, orderID string) ([]models.OrderLine, error) {
	lines := []models.OrderLine{}
	err := s.db.SelectContext(ctx, &lines, `
		SELECT i.order_id, i.order_item_id, i.product_id, i.seller_id,
		       COALESCE(p.price, 0) AS price, COALESCE(p.freight_value, 0) AS freight_value
		FROM order_items_core i
		LEFT JOIN order_item_pricing p
		  ON p.order_id = i.order_id AND p.order_item_id = i.order_item_id
		WHERE i.order_id = $1
		ORDER BY i.order_item_id`, orderID)
	if err != nil {
		return nil, wrap(err, "get order lines")
	}
	return lines, nil
}
