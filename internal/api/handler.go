package api

import (
	"context"
	"net/http"
	"strconv"

	"storefront-api/internal/models"
	"storefront-api/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ProductCatalog serves and creates products
type ProductCatalog interface {
	ListProducts(ctx context.Context, q models.ProductQuery) ([]models.Product, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error)
}

// OrderPlacer writes orders
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req *models.PlaceOrderRequest) (*models.OrderResult, error)
}

// ReviewReader pages through reviews
type ReviewReader interface {
	ListReviews(ctx context.Context, productID string, limit, skip int) (*models.ReviewPage, error)
}

// StatsReader reads monthly product stats
type StatsReader interface {
	MonthlyStats(ctx context.Context, productID string) ([]models.MonthlyStat, error)
}

// Console runs passthrough queries
type Console interface {
	RunSQL(ctx context.Context, req *models.SQLQueryRequest) (*models.SQLQueryResult, error)
	RunCommand(ctx context.Context, req *models.MongoCommandRequest) ([]byte, error)
}

// Diagnoser reports store connectivity
type Diagnoser interface {
	Diagnostics(ctx context.Context) *models.Diagnostics
	Ready(ctx context.Context) error
}

// Deps wires services into the handler. Stats is optional and only the
// relational server provides it.
type Deps struct {
	Products    ProductCatalog
	Orders      OrderPlacer
	Reviews     ReviewReader
	Stats       StatsReader
	Console     Console
	Diagnostics Diagnoser
}

// Handler contains HTTP handlers
type Handler struct {
	products ProductCatalog
	orders   OrderPlacer
	reviews  ReviewReader
	stats    StatsReader
	console  Console
	diag     Diagnoser
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(d Deps) *Handler {
	return &Handler{
		products: d.Products,
		orders:   d.Orders,
		reviews:  d.Reviews,
		stats:    d.Stats,
		console:  d.Console,
		diag:     d.Diagnostics,
		logger:   util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/diagnostics", h.diagnostics)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/products", h.listProducts)
		api.GET("/products/:id", h.getProduct)
		api.POST("/products", h.createProduct)

		api.POST("/orders", h.createOrder)

		api.GET("/reviews/:productId", h.listReviews)

		if h.stats != nil {
			api.GET("/monthly-stats/:productId", h.monthlyStats)
		}

		api.POST("/postgres/query", h.runSQL)
		api.POST("/mongodb/command", h.runCommand)
	}
}

// healthCheck handles liveness requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// readinessCheck reports whether the primary store answers
func (h *Handler) readinessCheck(c *gin.Context) {
	if err := h.diag.Ready(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "status": "ready"})
}

func (h *Handler) diagnostics(c *gin.Context) {
	c.JSON(http.StatusOK, h.diag.Diagnostics(c.Request.Context()))
}

// listProducts handles GET /api/products
func (h *Handler) listProducts(c *gin.Context) {
	q := models.ProductQuery{
		Search: c.Query("search"),
		Limit:  queryInt(c, "limit"),
		Offset: queryInt(c, "offset"),
	}

	products, err := h.products.ListProducts(c.Request.Context(), q)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// getProduct handles GET /api/products/:id
func (h *Handler) getProduct(c *gin.Context) {
	product, err := h.products.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// createProduct handles admin product creation
func (h *Handler) createProduct(c *gin.Context) {
	var req models.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}

	product, err := h.products.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

// createOrder handles order placement
func (h *Handler) createOrder(c *gin.Context) {
	var req models.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}
	req.IdempotencyKey = c.GetHeader("Idempotency-Key")

	result, err := h.orders.PlaceOrder(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// listReviews handles GET /api/reviews/:productId
func (h *Handler) listReviews(c *gin.Context) {
	page, err := h.reviews.ListReviews(
		c.Request.Context(),
		c.Param("productId"),
		queryInt(c, "limit"),
		queryInt(c, "skip"),
	)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) monthlyStats(c *gin.Context) {
	rows, err := h.stats.MonthlyStats(c.Request.Context(), c.Param("productId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// runSQL handles POST /api/postgres/query
func (h *Handler) runSQL(c *gin.Context) {
	var req models.SQLQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}

	result, err := h.console.RunSQL(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// runCommand handles POST /api/mongodb/command
func (h *Handler) runCommand(c *gin.Context) {
	var req models.MongoCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}

	out, err := h.console.RunCommand(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", out)
}

// queryInt reads an integer query parameter; missing or malformed values
// yield 0 so the service default applies.
func queryInt(c *gin.Context, key string) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return v
}
