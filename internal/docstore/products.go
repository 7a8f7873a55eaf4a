package docstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"storefront-api/internal/models"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProductDoc is the stored product document
type ProductDoc struct {
	ID         string    `bson:"_id"`
	SKU        string    `bson:"sku,omitempty"`
	Title      string    `bson:"title,omitempty"`
	Name       string    `bson:"name,omitempty"`
	Price      *float64  `bson:"price,omitempty"`
	OrderCount int64     `bson:"order_count"`
	UpdatedAt  time.Time `bson:"updated_at,omitempty"`
}

func (d ProductDoc) toModel() models.Product {
	p := models.Product{
		ID:         d.ID,
		SKU:        d.SKU,
		Title:      d.Title,
		Name:       d.Name,
		OrderCount: d.OrderCount,
	}
	if d.Price != nil {
		p.Price = decimal.NewNullDecimal(decimal.NewFromFloat(*d.Price).Round(2))
	}
	p.FillNames()
	return p
}

// ListProducts pages through the products collection by popularity
func (s *Store) ListProducts(ctx context.Context, q models.ProductQuery) ([]models.Product, error) {
	filter := bson.M{}
	if q.Search != "" {
		filter["_id"] = bson.M{"$regex": regexp.QuoteMeta(q.Search), "$options": "i"}
	}

	opts := options.Find().
		SetSort(bsonD("order_count", -1, "_id", 1)).
		SetSkip(int64(q.Offset)).
		SetLimit(int64(q.Limit))

	cursor, err := s.collection(ProductsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	var docs []ProductDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}

	products := make([]models.Product, 0, len(docs))
	for _, d := range docs {
		products = append(products, d.toModel())
	}
	return products, nil
}

// GetProduct returns one product or ErrNotFound
func (s *Store) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var doc ProductDoc
	err := s.collection(ProductsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	p := doc.toModel()
	return &p, nil
}

// UpsertProduct sets catalogue fields and adds units to the order counter
func (s *Store) UpsertProduct(ctx context.Context, doc ProductDoc, units int) (*models.Product, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if doc.SKU != "" {
		set["sku"] = doc.SKU
	}
	if doc.Title != "" {
		set["title"] = doc.Title
	}
	if doc.Name != "" {
		set["name"] = doc.Name
	}
	if doc.Price != nil {
		set["price"] = *doc.Price
	}

	update := bson.M{
		"$set": set,
		"$inc": bson.M{"order_count": units},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var out ProductDoc
	err := s.collection(ProductsCollection).FindOneAndUpdate(ctx, bson.M{"_id": doc.ID}, update, opts).Decode(&out)
	if err != nil {
		return nil, fmt.Errorf("upsert product: %w", err)
	}

	p := out.toModel()
	return &p, nil
}

// ProductUnits is the per-product unit count of an order
type ProductUnits struct {
	ProductID string
	Units     int
	UnitPrice float64
}

// IncrementOrderCounts bumps order_count by units sold, creating products
// first seen in an order.
func (s *Store) IncrementOrderCounts(ctx context.Context, items []ProductUnits) error {
	if len(items) == 0 {
		return nil
	}

	now := time.Now().UTC()
	writes := make([]mongo.WriteModel, 0, len(items))
	for _, item := range items {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": item.ProductID}).
			SetUpdate(bson.M{
				"$inc": bson.M{"order_count": item.Units},
				"$set": bson.M{"updated_at": now},
				"$setOnInsert": bson.M{
					"sku":   item.ProductID,
					"title": item.ProductID,
					"name":  item.ProductID,
					"price": item.UnitPrice,
				},
			}).
			SetUpsert(true))
	}

	_, err := s.collection(ProductsCollection).BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(true))
	if err != nil {
		return fmt.Errorf("increment order counts: %w", err)
	}
	return nil
}

// AveragePrice returns the stored price of a product, zero when unknown
func (s *Store) AveragePrice(ctx context.Context, productID string) (decimal.Decimal, error) {
	p, err := s.GetProduct(ctx, productID)
	if errors.Is(err, ErrNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	if !p.Price.Valid {
		return decimal.Zero, nil
	}
	return p.Price.Decimal, nil
}

// CountProducts reports the collection size for diagnostics
func (s *Store) CountProducts(ctx context.Context) (int64, error) {
	return s.collection(ProductsCollection).EstimatedDocumentCount(ctx)
}
