package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"storefront-api/config"
	"storefront-api/internal/docstore"
	"storefront-api/internal/models"
	"storefront-api/internal/store"
	"storefront-api/internal/util"

	"github.com/shopspring/decimal"
)

const (
	DefaultProductLimit = 50
	MaxProductLimit     = 500
)

// NormalizeProductQuery applies paging defaults and bounds
func NormalizeProductQuery(q models.ProductQuery) models.ProductQuery {
	if q.Limit <= 0 {
		q.Limit = DefaultProductLimit
	}
	if q.Limit > MaxProductLimit {
		q.Limit = MaxProductLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

// ProductStore is the relational product read path
type ProductStore interface {
	ListProducts(ctx context.Context, source models.SourceVariant, q models.ProductQuery) ([]models.Product, error)
	GetProduct(ctx context.Context, source models.SourceVariant, id string) (*models.Product, error)
}

// OrderPlacer writes an order
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req *models.PlaceOrderRequest) (*models.OrderResult, error)
}

// ProductService serves products derived from relational line items
type ProductService struct {
	products ProductStore
	resolver Resolver
	orders   OrderPlacer
	business config.BusinessConfig
}

// NewProductService creates a new product service
func NewProductService(products ProductStore, resolver Resolver, orders OrderPlacer, business config.BusinessConfig) *ProductService {
	return &ProductService{
		products: products,
		resolver: resolver,
		orders:   orders,
		business: business,
	}
}

// ListProducts lists products of the resolved source
func (s *ProductService) ListProducts(ctx context.Context, q models.ProductQuery) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.ListProducts")
	defer span.End()

	source, err := s.resolver.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve source: %w", err)
	}
	return s.products.ListProducts(ctx, source, NormalizeProductQuery(q))
}

// GetProduct returns a product or ErrNotFound
func (s *ProductService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.GetProduct")
	defer span.End()

	source, err := s.resolver.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve source: %w", err)
	}
	p, err := s.products.GetProduct(ctx, source, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: product %s", ErrNotFound, id)
	}
	return p, err
}

// CreateProduct records a product. Products only exist through line items
// in the normalized schema, so creation places an order for the admin
// customer. The staging table is read-only and gets an unsaved echo.
func (s *ProductService) CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.CreateProduct")
	defer span.End()

	id, err := validateCreateProduct(req)
	if err != nil {
		return nil, err
	}

	source, err := s.resolver.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve source: %w", err)
	}

	switch source {
	case models.SourceNormalized:
		_, err := s.orders.PlaceOrder(ctx, &models.PlaceOrderRequest{
			CustomerID: s.business.AdminCustomerID,
			Items: []models.OrderItemInput{{
				ProductID: models.FlexString(id),
				Quantity:  models.NumberFrom(req.Quantity),
				Price:     models.NumberFrom(req.Price),
				SellerID:  models.FlexString(req.SellerID),
			}},
		})
		if err != nil {
			return nil, err
		}
		return s.GetProduct(ctx, id)

	case models.SourceStaging:
		p := models.Product{
			ID:    id,
			SKU:   req.SKU,
			Title: req.Title,
			Name:  req.Name,
		}
		if req.Price != nil {
			p.Price = decimal.NewNullDecimal(decimal.NewFromFloat(*req.Price).Round(2))
		}
		p.FillNames()
		return &p, nil
	}

	return nil, fmt.Errorf("%w: no product tables found", ErrUnavailable)
}

func validateCreateProduct(req *models.CreateProductRequest) (string, error) {
	id := firstNonEmpty(req.ProductID())
	if id == "" {
		return "", &ValidationError{Field: "id", Message: "one of id, sku, title or name is required"}
	}
	if req.Price != nil && (math.IsNaN(*req.Price) || math.IsInf(*req.Price, 0) || *req.Price < 0) {
		return "", &ValidationError{Field: "price", Message: "must be a non-negative number"}
	}
	if req.Quantity != nil && (*req.Quantity < 1 || *req.Quantity != math.Trunc(*req.Quantity)) {
		return "", &ValidationError{Field: "quantity", Message: "must be a positive integer"}
	}
	return id, nil
}

// DocumentProductService serves products from the products collection
type DocumentProductService struct {
	store    DocumentStore
	business config.BusinessConfig
}

// NewDocumentProductService creates the MongoDB product service
func NewDocumentProductService(store DocumentStore, business config.BusinessConfig) *DocumentProductService {
	return &DocumentProductService{store: store, business: business}
}

func (s *DocumentProductService) ListProducts(ctx context.Context, q models.ProductQuery) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "DocumentProductService.ListProducts")
	defer span.End()

	return s.store.ListProducts(ctx, NormalizeProductQuery(q))
}

func (s *DocumentProductService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "DocumentProductService.GetProduct")
	defer span.End()

	p, err := s.store.GetProduct(ctx, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: product %s", ErrNotFound, id)
	}
	return p, err
}

// CreateProduct upserts the product document and logs an admin order for
// the units added.
func (s *DocumentProductService) CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "DocumentProductService.CreateProduct")
	defer span.End()

	id, err := validateCreateProduct(req)
	if err != nil {
		return nil, err
	}

	units := 1
	if req.Quantity != nil {
		units = int(*req.Quantity)
	}

	p, err := s.store.UpsertProduct(ctx, docstore.ProductDoc{
		ID:    id,
		SKU:   req.SKU,
		Title: req.Title,
		Name:  req.Name,
		Price: req.Price,
	}, units)
	if err != nil {
		return nil, err
	}

	price := 0.0
	if p.Price.Valid {
		price = p.Price.Decimal.InexactFloat64()
	}
	writer := &DocumentOrderService{store: s.store, business: s.business, logger: util.GetLogger()}
	item := orderItem{
		ProductID: id,
		SellerID:  firstNonEmpty(req.SellerID, s.business.DefaultSellerID),
		Units:     units,
		UnitPrice: decimal.NewFromFloat(price),
	}
	if _, err := writer.write(ctx, NewOrderID(), s.business.AdminCustomerID, OriginAdmin, []orderItem{item}); err != nil {
		return nil, fmt.Errorf("product saved but order log failed: %w", err)
	}

	return p, nil
}
