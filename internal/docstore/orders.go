package docstore

import (
	"context"
	"fmt"
	"time"
)

// OrderItemDoc is one product entry of an order document
type OrderItemDoc struct {
	ProductID    string  `bson:"product_id"`
	SellerID     string  `bson:"seller_id"`
	Quantity     int     `bson:"quantity"`
	UnitPrice    float64 `bson:"unit_price"`
	FreightValue float64 `bson:"freight_value"`
}

// OrderDoc is the stored order document. Admin product creation also writes
// one as an order log entry.
type OrderDoc struct {
	ID          string         `bson:"_id"`
	CustomerID  string         `bson:"customer_id"`
	Status      string         `bson:"status"`
	Items       []OrderItemDoc `bson:"items"`
	Total       float64        `bson:"total"`
	PaymentType string         `bson:"payment_type"`
	Origin      string         `bson:"origin"`
	CreatedAt   time.Time      `bson:"created_at"`
}

// InsertOrder stores an order document
func (s *Store) InsertOrder(ctx context.Context, doc OrderDoc) error {
	if _, err := s.collection(OrdersCollection).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}
