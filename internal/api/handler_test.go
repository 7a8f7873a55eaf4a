package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"storefront-api/config"
	"storefront-api/internal/models"
	"storefront-api/internal/service"
	"storefront-api/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	products []models.Product
	lastQ    models.ProductQuery
}

func (f *fakeCatalog) ListProducts(ctx context.Context, q models.ProductQuery) ([]models.Product, error) {
	f.lastQ = q
	out := []models.Product{}
	for _, p := range f.products {
		if strings.Contains(strings.ToLower(p.ID), strings.ToLower(q.Search)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeCatalog) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	for _, p := range f.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("%w: product %s", service.ErrNotFound, id)
}

func (f *fakeCatalog) CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error) {
	if req.ProductID() == "" {
		return nil, &service.ValidationError{Field: "id", Message: "is required"}
	}
	p := models.Product{ID: req.ProductID()}
	p.FillNames()
	return &p, nil
}

type fakeOrders struct {
	req *models.PlaceOrderRequest
	err error
}

func (f *fakeOrders) PlaceOrder(ctx context.Context, req *models.PlaceOrderRequest) (*models.OrderResult, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	if len(req.Items) == 0 {
		return nil, &service.ValidationError{Field: "items", Message: "must be a non-empty array"}
	}
	return &models.OrderResult{
		OrderID:   "0123456789abcdef0123456789abcdef",
		Total:     decimal.RequireFromString("21.00"),
		LineItems: 2,
		Source:    models.SourceNormalized,
	}, nil
}

type fakeReviews struct{}

func (fakeReviews) ListReviews(ctx context.Context, productID string, limit, skip int) (*models.ReviewPage, error) {
	return &models.ReviewPage{Reviews: []models.Review{}, HasMore: skip == 0, Limit: limit, Skip: skip}, nil
}

type fakeStats struct {
	err error
}

func (f fakeStats) MonthlyStats(ctx context.Context, productID string) ([]models.MonthlyStat, error) {
	return []models.MonthlyStat{}, f.err
}

type fakeConsole struct {
	err error
}

func (f fakeConsole) RunSQL(ctx context.Context, req *models.SQLQueryRequest) (*models.SQLQueryResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.SQLQueryResult{Rows: []map[string]interface{}{{"n": 1}}, RowCount: 1}, nil
}

func (f fakeConsole) RunCommand(ctx context.Context, req *models.MongoCommandRequest) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte(`{"result": 3}`), nil
}

type fakeDiag struct {
	readyErr error
}

func (f fakeDiag) Diagnostics(ctx context.Context) *models.Diagnostics {
	return &models.Diagnostics{Backend: models.BackendPostgres, Postgres: models.StoreStatus{Configured: true, OK: true}}
}

func (f fakeDiag) Ready(ctx context.Context) error { return f.readyErr }

func newTestRouter(d Deps) *gin.Engine {
	gin.SetMode(gin.TestMode)
	if d.Products == nil {
		d.Products = &fakeCatalog{products: []models.Product{{ID: "ABC123"}, {ID: "xyz789"}}}
	}
	if d.Orders == nil {
		d.Orders = &fakeOrders{}
	}
	if d.Reviews == nil {
		d.Reviews = fakeReviews{}
	}
	if d.Console == nil {
		d.Console = fakeConsole{}
	}
	if d.Diagnostics == nil {
		d.Diagnostics = fakeDiag{}
	}
	router := gin.New()
	NewHandler(d).SetupRoutes(router)
	return router
}

func do(router *gin.Engine, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	w := do(newTestRouter(Deps{}), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok": true}`, w.Body.String())
}

func TestReadyUnavailable(t *testing.T) {
	router := newTestRouter(Deps{Diagnostics: fakeDiag{readyErr: fmt.Errorf("%w: postgres", service.ErrUnavailable)}})

	w := do(router, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, decode(t, w)["error"], "postgres")
}

func TestListProductsSearch(t *testing.T) {
	catalog := &fakeCatalog{products: []models.Product{{ID: "ABC123"}, {ID: "xyz789"}}}
	router := newTestRouter(Deps{Products: catalog})

	w := do(router, http.MethodGet, "/api/products?search=abc&limit=5&offset=abc", "")
	require.Equal(t, http.StatusOK, w.Code)

	var products []models.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &products))
	require.Len(t, products, 1)
	assert.Equal(t, "ABC123", products[0].ID)
	assert.Equal(t, 5, catalog.lastQ.Limit)
	assert.Equal(t, 0, catalog.lastQ.Offset)
}

func TestGetProductNotFound(t *testing.T) {
	w := do(newTestRouter(Deps{}), http.MethodGet, "/api/products/nope", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decode(t, w)["error"], "not found")
}

func TestCreateProduct(t *testing.T) {
	router := newTestRouter(Deps{})

	w := do(router, http.MethodPost, "/api/products", `{"sku": "s1", "price": 4.5}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "s1", decode(t, w)["name"])

	w = do(router, http.MethodPost, "/api/products", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateOrder(t *testing.T) {
	orders := &fakeOrders{}
	router := newTestRouter(Deps{Orders: orders})

	w := do(router, http.MethodPost, "/api/orders",
		`{"customer_id": "c1", "items": [{"id": "p1", "quantity": 2, "price": 10.5}]}`,
		"Idempotency-Key", "abc")
	require.Equal(t, http.StatusCreated, w.Code)

	body := decode(t, w)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", body["orderId"])
	assert.Equal(t, 21.0, body["total"])
	assert.Equal(t, 2.0, body["lineItems"])
	assert.Equal(t, "normalized", body["source"])
	assert.Contains(t, body, "timingMs")
	assert.Equal(t, "abc", orders.req.IdempotencyKey)
	assert.Equal(t, 10.5, orders.req.Items[0].Price.Value)
}

func TestCreateOrderErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		body string
		want int
	}{
		{"malformed json", nil, `{"items": [`, http.StatusBadRequest},
		{"empty items", nil, `{"items": []}`, http.StatusBadRequest},
		{"rolled back", &service.TransactionError{Err: service.ErrNoValidItems}, `{"items": [{}]}`, http.StatusBadRequest},
		{"staging schema", fmt.Errorf("%w: order writes need the normalized schema", service.ErrUnavailable), `{"items": [{"id": "p"}]}`, http.StatusServiceUnavailable},
		{"connection", errors.New("dial tcp: connection refused"), `{"items": [{"id": "p"}]}`, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(Deps{Orders: &fakeOrders{err: tt.err}})
			w := do(router, http.MethodPost, "/api/orders", tt.body)

			assert.Equal(t, tt.want, w.Code)
			assert.NotEmpty(t, decode(t, w)["error"])
		})
	}
}

func newSQLOrderRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	orders := service.NewOrderService(
		store.New(sqlx.NewDb(db, "sqlmock")),
		service.FixedResolver(models.SourceNormalized),
		nil, nil,
		config.BusinessConfig{DefaultCustomerID: "guest", DefaultSellerID: "seller", DefaultPaymentType: "credit_card"},
	)
	return newTestRouter(Deps{Orders: orders}), mock
}

func expectOrderHeader(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders_header").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO order_timestamps").WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestCreateOrderSkipsMalformedItem(t *testing.T) {
	router, mock := newSQLOrderRouter(t)

	expectOrderHeader(mock)
	mock.ExpectExec("INSERT INTO order_items_core").
		WithArgs(sqlmock.AnyArg(), 1, "good", "seller").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO order_item_pricing").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO payment_types").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO order_payment_methods").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO order_payment_amounts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	w := do(router, http.MethodPost, "/api/orders",
		`{"items": [{"id": "bad", "quantity": "abc", "price": 1}, {"id": "good", "quantity": 1, "price": 2}]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, 1.0, body["lineItems"])
	assert.Equal(t, 2.0, body["total"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderOnlyMalformedItemRollsBack(t *testing.T) {
	router, mock := newSQLOrderRouter(t)

	expectOrderHeader(mock)
	mock.ExpectRollback()

	w := do(router, http.MethodPost, "/api/orders", `{"items": [{"id": "bad", "quantity": "abc", "price": 1}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, decode(t, w)["error"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListReviews(t *testing.T) {
	w := do(newTestRouter(Deps{}), http.MethodGet, "/api/reviews/p1?limit=10&skip=0", "")

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["hasMore"])
	assert.Equal(t, 10.0, body["limit"])
	assert.Equal(t, []interface{}{}, body["reviews"])
}

func TestMonthlyStatsRoute(t *testing.T) {
	w := do(newTestRouter(Deps{}), http.MethodGet, "/api/monthly-stats/p1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	router := newTestRouter(Deps{Stats: fakeStats{err: fmt.Errorf("wrap: %w", store.ErrSchemaUnavailable)}})
	w = do(router, http.MethodGet, "/api/monthly-stats/p1", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	router = newTestRouter(Deps{Stats: fakeStats{}})
	w = do(router, http.MethodGet, "/api/monthly-stats/p1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestConsoleRoutes(t *testing.T) {
	router := newTestRouter(Deps{})

	w := do(router, http.MethodPost, "/api/postgres/query", `{"sql": "SELECT 1 AS n"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, decode(t, w)["rowCount"])

	w = do(router, http.MethodPost, "/api/mongodb/command", `{"command": "orders.countDocuments()"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"result": 3}`, w.Body.String())
}

func TestConsoleErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"disabled", service.ErrConsoleDisabled, http.StatusForbidden},
		{"not configured", fmt.Errorf("%w: mongodb is not configured", service.ErrUnavailable), http.StatusServiceUnavailable},
		{"bad command", &service.ValidationError{Field: "command", Message: "unsupported method"}, http.StatusBadRequest},
		{"driver rejected", &service.CommandError{Err: errors.New("unknown operator: $foo")}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(Deps{Console: fakeConsole{err: tt.err}})

			w := do(router, http.MethodPost, "/api/mongodb/command", `{"collection": "c", "method": "find"}`)
			assert.Equal(t, tt.want, w.Code)
			assert.NotEmpty(t, decode(t, w)["error"])

			w = do(router, http.MethodPost, "/api/postgres/query", `{"sql": "SELECT 1"}`)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	w := do(newTestRouter(Deps{}), http.MethodOptions, "/api/orders", "")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestDiagnostics(t *testing.T) {
	w := do(newTestRouter(Deps{}), http.MethodGet, "/diagnostics", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "postgres", decode(t, w)["backend"])
}
