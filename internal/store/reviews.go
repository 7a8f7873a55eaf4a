package store

import (
	"context"
	"fmt"

	"storefront-api/internal/models"
)

const normalizedReviewsQuery = `
	SELECT r.review_id, r.order_id, $1::text AS product_id, COALESCE(r.review_score, 0) AS review_score,
	       t.review_comment_title, t.review_comment_message,
	       r.review_creation_date, r.review_answer_timestamp
	FROM order_reviews_core r
	LEFT JOIN order_reviews_text t
	  ON t.review_id = r.review_id AND t.order_id = r.order_id
	WHERE EXISTS (
		SELECT 1 FROM order_items_core i
		WHERE i.order_id = r.order_id AND i.product_id = $1
	)
	ORDER BY r.review_creation_date DESC NULLS LAST, r.review_id
	LIMIT $2 OFFSET $3`

// The staging table repeats review columns on every unit row.
const stagingReviewsQuery = `
	SELECT DISTINCT review_id, order_id, product_id, COALESCE(review_score, 0) AS review_score,
	       review_comment_title, review_comment_message,
	       review_creation_date, review_answer_timestamp
	FROM orders
	WHERE product_id = $1 AND review_id IS NOT NULL
	ORDER BY review_creation_date DESC NULLS LAST, review_id
	LIMIT $2 OFFSET $3`

// ListReviews returns up to limit reviews for a product and whether more
// remain after them.
func (s *Store) ListReviews(ctx context.Context, source models.SourceVariant, productID string, limit, skip int) ([]models.Review, bool, error) {
	var query string
	switch source {
	case models.SourceNormalized:
		query = normalizedReviewsQuery
	case models.SourceStaging:
		query = stagingReviewsQuery
	case models.SourceNone:
		return []models.Review{}, false, nil
	default:
		return nil, false, fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}

	reviews := []models.Review{}
	if err := s.db.SelectContext(ctx, &reviews, query, productID, limit+1, skip); err != nil {
		return nil, false, wrap(err, "list reviews")
	}

	hasMore := len(reviews) > limit
	if hasMore {
		reviews = reviews[:limit]
	}
	return reviews, hasMore, nil
}
