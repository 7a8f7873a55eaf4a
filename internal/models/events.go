package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderPlaced = "ORDER_PLACED"
)

// Backends label events and metrics with the engine that served them
const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongodb"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent is published after an order commits
type OrderPlacedEvent struct {
	BaseEvent
	Backend    string          `json:"backend"`
	OrderID    string          `json:"order_id"`
	CustomerID string          `json:"customer_id"`
	Total      decimal.Decimal `json:"total"`
	Items      []OrderItemData `json:"items"`
}

// OrderItemData aggregates the line rows of one product in events
type OrderItemData struct {
	ProductID string          `json:"product_id"`
	Units     int             `json:"units"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}
