package docstore

import (
	"context"
	"fmt"

	"storefront-api/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ListReviews pages through the reviews of a product, newest first
func (s *Store) ListReviews(ctx context.Context, productID string, limit, skip int) ([]models.Review, bool, error) {
	opts := options.Find().
		SetSort(bsonD("created_at", -1, "_id", 1)).
		SetSkip(int64(skip)).
		SetLimit(int64(limit + 1))

	cursor, err := s.collection(ReviewsCollection).Find(ctx, bson.M{"product_id": productID}, opts)
	if err != nil {
		return nil, false, fmt.Errorf("list reviews: %w", err)
	}

	reviews := []models.Review{}
	if err := cursor.All(ctx, &reviews); err != nil {
		return nil, false, fmt.Errorf("decode reviews: %w", err)
	}

	hasMore := len(reviews) > limit
	if hasMore {
		reviews = reviews[:limit]
	}
	return reviews, hasMore, nil
}
