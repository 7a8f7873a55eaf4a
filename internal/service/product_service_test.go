package service

import (
	"context"
	"strings"
	"testing"

	"storefront-api/internal/docstore"
	"storefront-api/internal/models"
	"storefront-api/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryProducts struct {
	products []models.Product
	lastQ    models.ProductQuery
	sources  []models.SourceVariant
}

func (m *memoryProducts) ListProducts(ctx context.Context, source models.SourceVariant, q models.ProductQuery) ([]models.Product, error) {
	m.sources = append(m.sources, source)
	m.lastQ = q
	out := []models.Product{}
	for _, p := range m.products {
		if strings.Contains(strings.ToLower(p.ID), strings.ToLower(q.Search)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryProducts) GetProduct(ctx context.Context, source models.SourceVariant, id string) (*models.Product, error) {
	m.sources = append(m.sources, source)
	for _, p := range m.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

type recordingPlacer struct {
	reqs    []*models.PlaceOrderRequest
	onPlace func(req *models.PlaceOrderRequest)
}

func (r *recordingPlacer) PlaceOrder(ctx context.Context, req *models.PlaceOrderRequest) (*models.OrderResult, error) {
	r.reqs = append(r.reqs, req)
	if r.onPlace != nil {
		r.onPlace(req)
	}
	return &models.OrderResult{OrderID: NewOrderID()}, nil
}

func TestListProductsSearchAndPaging(t *testing.T) {
	products := &memoryProducts{products: []models.Product{{ID: "ABC123"}, {ID: "xyz789"}}}
	svc := NewProductService(products, FixedResolver(models.SourceNormalized), nil, testBusiness)

	got, err := svc.ListProducts(context.Background(), models.ProductQuery{Search: "abc", Limit: 9999, Offset: -1})
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "ABC123", got[0].ID)
	assert.Equal(t, MaxProductLimit, products.lastQ.Limit)
	assert.Equal(t, 0, products.lastQ.Offset)
	assert.Equal(t, []models.SourceVariant{models.SourceNormalized}, products.sources)
}

func TestNormalizeProductQueryDefaults(t *testing.T) {
	q := NormalizeProductQuery(models.ProductQuery{})
	assert.Equal(t, DefaultProductLimit, q.Limit)
	assert.Equal(t, 0, q.Offset)
}

func TestGetProductNotFound(t *testing.T) {
	svc := NewProductService(&memoryProducts{}, FixedResolver(models.SourceStaging), nil, testBusiness)

	_, err := svc.GetProduct(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateProductNormalizedPlacesAdminOrder(t *testing.T) {
	products := &memoryProducts{}
	placer := &recordingPlacer{onPlace: func(req *models.PlaceOrderRequest) {
		products.products = append(products.products, models.Product{ID: string(req.Items[0].ProductID), OrderCount: 1})
	}}
	svc := NewProductService(products, FixedResolver(models.SourceNormalized), placer, testBusiness)

	p, err := svc.CreateProduct(context.Background(), &models.CreateProductRequest{SKU: "new-sku", Price: f(9.99)})
	require.NoError(t, err)

	assert.Equal(t, "new-sku", p.ID)
	require.Len(t, placer.reqs, 1)
	assert.Equal(t, "admin", placer.reqs[0].CustomerID)
	assert.Equal(t, 9.99, placer.reqs[0].Items[0].Price.Value)
}

func TestCreateProductStagingIsNotPersisted(t *testing.T) {
	placer := &recordingPlacer{}
	svc := NewProductService(&memoryProducts{}, FixedResolver(models.SourceStaging), placer, testBusiness)

	p, err := svc.CreateProduct(context.Background(), &models.CreateProductRequest{ID: "p1", Price: f(3.456)})
	require.NoError(t, err)

	assert.Empty(t, placer.reqs)
	assert.Equal(t, "p1", p.Name)
	assert.Equal(t, "3.46", p.Price.Decimal.StringFixed(2))
	assert.Equal(t, int64(0), p.OrderCount)
}

func TestCreateProductValidation(t *testing.T) {
	svc := NewProductService(&memoryProducts{}, FixedResolver(models.SourceNormalized), &recordingPlacer{}, testBusiness)

	tests := []struct {
		name string
		req  models.CreateProductRequest
		want string
	}{
		{"no id", models.CreateProductRequest{}, "id"},
		{"negative price", models.CreateProductRequest{ID: "p", Price: f(-1)}, "price"},
		{"fractional quantity", models.CreateProductRequest{ID: "p", Quantity: f(0.5)}, "quantity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateProduct(context.Background(), &tt.req)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.want, vErr.Field)
		})
	}
}

func TestCreateProductWithoutTables(t *testing.T) {
	svc := NewProductService(&memoryProducts{}, FixedResolver(models.SourceNone), &recordingPlacer{}, testBusiness)

	_, err := svc.CreateProduct(context.Background(), &models.CreateProductRequest{ID: "p1"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

type fakeDocStore struct {
	products map[string]*models.Product
	orders   []docstore.OrderDoc
	counts   []docstore.ProductUnits
	upserts  []int
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{products: map[string]*models.Product{}}
}

func (s *fakeDocStore) ListProducts(ctx context.Context, q models.ProductQuery) ([]models.Product, error) {
	out := []models.Product{}
	for _, p := range s.products {
		out = append(out, *p)
	}
	return out, nil
}

func (s *fakeDocStore) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return p, nil
}

func (s *fakeDocStore) UpsertProduct(ctx context.Context, doc docstore.ProductDoc, units int) (*models.Product, error) {
	s.upserts = append(s.upserts, units)
	p := &models.Product{ID: doc.ID, OrderCount: int64(units)}
	if doc.Price != nil {
		p.Price = decimal.NewNullDecimal(decimal.NewFromFloat(*doc.Price))
	}
	p.FillNames()
	s.products[doc.ID] = p
	return p, nil
}

func (s *fakeDocStore) IncrementOrderCounts(ctx context.Context, items []docstore.ProductUnits) error {
	s.counts = append(s.counts, items...)
	return nil
}

func (s *fakeDocStore) AveragePrice(ctx context.Context, productID string) (decimal.Decimal, error) {
	if p, ok := s.products[productID]; ok && p.Price.Valid {
		return p.Price.Decimal, nil
	}
	return decimal.Zero, nil
}

func (s *fakeDocStore) InsertOrder(ctx context.Context, doc docstore.OrderDoc) error {
	s.orders = append(s.orders, doc)
	return nil
}

func (s *fakeDocStore) ListReviews(ctx context.Context, productID string, limit, skip int) ([]models.Review, bool, error) {
	return nil, false, nil
}

func TestDocumentCreateProductLogsAdminOrder(t *testing.T) {
	docs := newFakeDocStore()
	svc := NewDocumentProductService(docs, testBusiness)

	p, err := svc.CreateProduct(context.Background(), &models.CreateProductRequest{ID: "d1", Price: f(5), Quantity: f(2)})
	require.NoError(t, err)

	assert.Equal(t, "d1", p.ID)
	assert.Equal(t, []int{2}, docs.upserts)
	require.Len(t, docs.orders, 1)
	assert.Equal(t, OriginAdmin, docs.orders[0].Origin)
	assert.Equal(t, "admin", docs.orders[0].CustomerID)
	assert.Equal(t, 10.0, docs.orders[0].Total)
	assert.Empty(t, docs.counts)
}

func TestDocumentGetProductNotFound(t *testing.T) {
	svc := NewDocumentProductService(newFakeDocStore(), testBusiness)

	_, err := svc.GetProduct(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDocumentPlaceOrder(t *testing.T) {
	docs := newFakeDocStore()
	docs.products["p1"] = &models.Product{ID: "p1", Price: decimal.NewNullDecimal(decimal.NewFromFloat(2.5))}
	pub := &capturePublisher{}
	svc := NewDocumentOrderService(docs, pub, nil, testBusiness)

	result, err := svc.PlaceOrder(context.Background(), &models.PlaceOrderRequest{
		Items: []models.OrderItemInput{
			{ID: "p1", Quantity: num(2)},
			{ID: "p2", Price: num(1)},
			{ID: "p1", Price: num(3)},
			{ID: "bad", Quantity: num(-1)},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, models.SourceDocument, result.Source)
	assert.Equal(t, 4, result.LineItems)
	assert.Equal(t, "9.00", result.Total.StringFixed(2))
	require.Len(t, docs.orders, 1)
	assert.Equal(t, "guest_customer", docs.orders[0].CustomerID)
	assert.Len(t, docs.orders[0].Items, 3)
	assert.Equal(t, []docstore.ProductUnits{
		{ProductID: "p1", Units: 3, UnitPrice: 2.5},
		{ProductID: "p2", Units: 1, UnitPrice: 1},
	}, docs.counts)
	require.Len(t, pub.events, 1)
	assert.Equal(t, models.BackendMongo, pub.events[0].Backend)
}

func TestDocumentPlaceOrderNoValidItems(t *testing.T) {
	docs := newFakeDocStore()
	svc := NewDocumentOrderService(docs, nil, nil, testBusiness)

	_, err := svc.PlaceOrder(context.Background(), &models.PlaceOrderRequest{
		Items: []models.OrderItemInput{{ID: "p1", Price: num(-3)}},
	})
	assert.ErrorIs(t, err, ErrNoValidItems)
	assert.Empty(t, docs.orders)
}

func TestIdempotencyKeysAreScopedByBackend(t *testing.T) {
	idem := &memoryIdempotency{stored: map[string]*models.OrderResult{
		"postgres:key-1": {OrderID: "relational-order", Source: models.SourceNormalized},
	}}
	docs := newFakeDocStore()
	svc := NewDocumentOrderService(docs, nil, idem, testBusiness)

	req := &models.PlaceOrderRequest{
		Items:          []models.OrderItemInput{{ID: "p1", Price: num(2)}},
		IdempotencyKey: "key-1",
	}
	first, err := svc.PlaceOrder(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, "relational-order", first.OrderID)
	assert.Equal(t, models.SourceDocument, first.Source)
	require.Len(t, docs.orders, 1)
	assert.Contains(t, idem.stored, "mongodb:key-1")

	second, err := svc.PlaceOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Len(t, docs.orders, 1)
}
