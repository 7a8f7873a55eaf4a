package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"storefront-api/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const normalizedProductSelect = `
	SELECT i.product_id AS id,
	       ROUND(AVG(p.price)::numeric, 2) AS price,
	       COUNT(*) AS order_count
	FROM order_items_core i
	LEFT JOIN order_item_pricing p
	  ON p.order_id = i.order_id AND p.order_item_id = i.order_item_id`

const stagingProductSelect = `
	SELECT product_id AS id,
	       ROUND(AVG(price)::numeric, 2) AS price,
	       COUNT(*) AS order_count
	FROM orders`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern turns a search term into a literal substring pattern
func likePattern(search string) string {
	return "%" + likeEscaper.Replace(search) + "%"
}

// ListProducts aggregates line items into products for the given source
func (s *Store) ListProducts(ctx context.Context, source models.SourceVariant, q models.ProductQuery) ([]models.Product, error) {
	var query string
	switch source {
	case models.SourceNormalized:
		query = normalizedProductSelect + `
	WHERE i.product_id ILIKE $1
	GROUP BY i.product_id
	ORDER BY order_count DESC, i.product_id
	LIMIT $2 OFFSET $3`
	case models.SourceStaging:
		query = stagingProductSelect + `
	WHERE product_id IS NOT NULL AND product_id ILIKE $1
	GROUP BY product_id
	ORDER BY order_count DESC, product_id
	LIMIT $2 OFFSET $3`
	case models.SourceNone:
		return []models.Product{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}

	products := []models.Product{}
	if err := s.db.SelectContext(ctx, &products, query, likePattern(q.Search), q.Limit, q.Offset); err != nil {
		return nil, wrap(err, "list products")
	}

	for i := range products {
		products[i].FillNames()
	}
	return products, nil
}

// GetProduct returns one aggregated product or ErrNotFound
func (s *Store) GetProduct(ctx context.Context, source models.SourceVariant, id string) (*models.Product, error) {
	var query string
	switch source {
	case models.SourceNormalized:
		query = normalizedProductSelect + `
	WHERE i.product_id = $1
	GROUP BY i.product_id`
	case models.SourceStaging:
		query = stagingProductSelect + `
	WHERE product_id = $1
	GROUP BY product_id`
	case models.SourceNone:
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}

	var product models.Product
	err := s.db.GetContext(ctx, &product, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrap(err, "get product")
	}

	product.FillNames()
	return &product, nil
}

// LookupUnitPrice returns the rounded average price recorded for a product,
// zero when it has never been sold.
func LookupUnitPrice(ctx context.Context, q sqlx.QueryerContext, productID string) (decimal.Decimal, error) {
	var price decimal.Decimal
	err := sqlx.GetContext(ctx, q, &price, `
		SELECT COALESCE(ROUND(AVG(p.price)::numeric, 2), 0)
		FROM order_item_pricing p
		JOIN order_items_core i
		  ON i.order_id = p.order_id AND i.order_item_id = p.order_item_id
		WHERE i.product_id = $1`, productID)
	if err != nil {
		return decimal.Zero, wrap(err, "lookup unit price")
	}
	return price, nil
}
