package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices and totals travel as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// SourceVariant names the data shape a request is served from
type SourceVariant string

const (
	SourceNormalized SourceVariant = "normalized"
	SourceStaging    SourceVariant = "staging"
	SourceNone       SourceVariant = "none"
	SourceDocument   SourceVariant = "document"
)

// Product is derived from line items in the relational variants and stored
// as a document in the document variant.
type Product struct {
	ID         string              `db:"id" json:"id"`
	SKU        string              `db:"-" json:"sku"`
	Title      string              `db:"-" json:"title"`
	Name       string              `db:"-" json:"name"`
	Price      decimal.NullDecimal `db:"price" json:"price"`
	OrderCount int64               `db:"order_count" json:"order_count"`
}

// FillNames mirrors the id into sku/title/name where the source has no
// catalogue columns.
func (p *Product) FillNames() {
	if p.SKU == "" {
		p.SKU = p.ID
	}
	if p.Title == "" {
		p.Title = p.ID
	}
	if p.Name == "" {
		p.Name = p.ID
	}
}

// ProductQuery carries list filters
type ProductQuery struct {
	Search string
	Limit  int
	Offset int
}

// CreateProductRequest is the admin-style product creation body
type CreateProductRequest struct {
	ID       string   `json:"id"`
	SKU      string   `json:"sku"`
	Title    string   `json:"title"`
	Name     string   `json:"name"`
	Price    *float64 `json:"price"`
	Quantity *float64 `json:"quantity"`
	SellerID string   `json:"seller_id"`
}

// ProductID returns the first non-empty identifier in the body
func (r *CreateProductRequest) ProductID() string {
	for _, v := range []string{r.ID, r.SKU, r.Title, r.Name} {
		if v != "" {
			return v
		}
	}
	return ""
}

// OrderHeader is a row of orders_header
type OrderHeader struct {
	OrderID    string `db:"order_id" json:"order_id"`
	CustomerID string `db:"customer_id" json:"customer_id"`
	Status     string `db:"order_status" json:"order_status"`
}

// OrderLine is one unit of a product within an order. Quantity N becomes N
// lines with consecutive item ids.
type OrderLine struct {
	OrderID      string          `db:"order_id" json:"order_id"`
	OrderItemID  int             `db:"order_item_id" json:"order_item_id"`
	ProductID    string          `db:"product_id" json:"product_id"`
	SellerID     string          `db:"seller_id" json:"seller_id"`
	Price        decimal.Decimal `db:"price" json:"price"`
	FreightValue decimal.Decimal `db:"freight_value" json:"freight_value"`
}

// Payment is the method/amount pair stored across two tables
type Payment struct {
	OrderID      string          `db:"order_id" json:"order_id"`
	Sequential   int             `db:"payment_sequential" json:"payment_sequential"`
	Type         string          `db:"payment_type" json:"payment_type"`
	Installments int             `db:"payment_installments" json:"payment_installments"`
	Value        decimal.Decimal `db:"payment_value" json:"payment_value"`
}

// Order statuses
const (
	OrderStatusCreated = "created"
)

// OrderItemInput is one entry of an order request. Both the storefront
// (id/price) and the admin (product_id/unit_price) spellings are accepted.
// Fields decode leniently so a malformed item is skipped instead of
// failing the whole request.
type OrderItemInput struct {
	ID        FlexString `json:"id"`
	ProductID FlexString `json:"product_id"`
	Quantity  FlexNumber `json:"quantity"`
	Price     FlexNumber `json:"price"`
	UnitPrice FlexNumber `json:"unit_price"`
	SellerID  FlexString `json:"seller_id"`
}

// PlaceOrderRequest is the body of POST /api/orders
type PlaceOrderRequest struct {
	CustomerID     string           `json:"customer_id"`
	Items          []OrderItemInput `json:"items"`
	IdempotencyKey string           `json:"-"`
}

// OrderTiming reports where request time went
type OrderTiming struct {
	DB    int64 `json:"db"`
	Total int64 `json:"total"`
}

// OrderResult is returned after a committed order
type OrderResult struct {
	OrderID   string          `json:"orderId"`
	Total     decimal.Decimal `json:"total"`
	LineItems int             `json:"lineItems"`
	Source    SourceVariant   `json:"source"`
	TimingMs  OrderTiming     `json:"timingMs"`
}

// Review joins the core and text review tables
type Review struct {
	ReviewID        string     `db:"review_id" bson:"_id" json:"review_id"`
	OrderID         string     `db:"order_id" bson:"order_id" json:"order_id"`
	ProductID       string     `db:"product_id" bson:"product_id" json:"product_id"`
	Score           int        `db:"review_score" bson:"score" json:"review_score"`
	CommentTitle    *string    `db:"review_comment_title" bson:"title,omitempty" json:"review_comment_title"`
	CommentMessage  *string    `db:"review_comment_message" bson:"message,omitempty" json:"review_comment_message"`
	CreatedAt       *time.Time `db:"review_creation_date" bson:"created_at,omitempty" json:"review_creation_date"`
	AnswerTimestamp *time.Time `db:"review_answer_timestamp" bson:"answered_at,omitempty" json:"review_answer_timestamp"`
}

// ReviewPage is a slice of reviews plus a continuation flag
type ReviewPage struct {
	Reviews []Review `json:"reviews"`
	HasMore bool     `json:"hasMore"`
	Limit   int      `json:"limit"`
	Skip    int      `json:"skip"`
}

// MonthlyStat is a row of the product_monthly_stats materialized view
type MonthlyStat struct {
	ProductID  string              `db:"product_id" json:"product_id"`
	Month      time.Time           `db:"month" json:"month"`
	OrderCount int64               `db:"order_count" json:"order_count"`
	Units      int64               `db:"units" json:"units"`
	Revenue    decimal.Decimal     `db:"revenue" json:"revenue"`
	AvgPrice   decimal.NullDecimal `db:"avg_price" json:"avg_price"`
}

// StoreStatus is one entry of the diagnostics summary
type StoreStatus struct {
	Configured bool          `json:"configured"`
	OK         bool          `json:"ok"`
	LatencyMs  int64         `json:"latencyMs"`
	Source     SourceVariant `json:"source,omitempty"`
	Products   *int64        `json:"products,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// Diagnostics summarises connectivity for both stores and the shared cache
type Diagnostics struct {
	Backend  string      `json:"backend"`
	Postgres StoreStatus `json:"postgres"`
	MongoDB  StoreStatus `json:"mongodb"`
	Redis    StoreStatus `json:"redis"`
}

// SQLQueryRequest is the body of the SQL console. Query is accepted as an
// alias of SQL.
type SQLQueryRequest struct {
	SQL    string        `json:"sql"`
	Query  string        `json:"query"`
	Params []interface{} `json:"params"`
}

// Statement returns the SQL text whichever key carried it
func (r *SQLQueryRequest) Statement() string {
	if r.SQL != "" {
		return r.SQL
	}
	return r.Query
}

// SQLQueryResult holds raw rows keyed by column name
type SQLQueryResult struct {
	Rows     []map[string]interface{} `json:"rows"`
	RowCount int                      `json:"rowCount"`
}

// MongoCommandRequest is either the shell form in Command or the structured
// collection/method/args form.
type MongoCommandRequest struct {
	Command    string          `json:"command"`
	Collection string          `json:"collection"`
	Method     string          `json:"method"`
	Args       json.RawMessage `json:"args"`
}
