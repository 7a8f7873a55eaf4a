package service

import (
	"context"

	"storefront-api/internal/docstore"
	"storefront-api/internal/models"

	"github.com/shopspring/decimal"
)

// DocumentStore is the part of the MongoDB store the services use
type DocumentStore interface {
	ListProducts(ctx context.Context, q models.ProductQuery) ([]models.Product, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	UpsertProduct(ctx context.Context, doc docstore.ProductDoc, units int) (*models.Product, error)
	IncrementOrderCounts(ctx context.Context, items []docstore.ProductUnits) error
	AveragePrice(ctx context.Context, productID string) (decimal.Decimal, error)
	InsertOrder(ctx context.Context, doc docstore.OrderDoc) error
	ListReviews(ctx context.Context, productID string, limit, skip int) ([]models.Review, bool, error)
}
