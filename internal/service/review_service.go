package service

import (
	"context"
	"fmt"

	"storefront-api/internal/models"
	"storefront-api/internal/util"
)

const (
	DefaultReviewLimit = 10
	MaxReviewLimit     = 100
)

// ReviewLister fetches one page of reviews plus a continuation flag
type ReviewLister func(ctx context.Context, productID string, limit, skip int) ([]models.Review, bool, error)

// RelationalReviewStore is the relational review read path
type RelationalReviewStore interface {
	ListReviews(ctx context.Context, source models.SourceVariant, productID string, limit, skip int) ([]models.Review, bool, error)
}

// RelationalReviews binds a relational store to the resolved source
func RelationalReviews(reviews RelationalReviewStore, resolver Resolver) ReviewLister {
	return func(ctx context.Context, productID string, limit, skip int) ([]models.Review, bool, error) {
		source, err := resolver.Resolve(ctx)
		if err != nil {
			return nil, false, fmt.Errorf("resolve source: %w", err)
		}
		return reviews.ListReviews(ctx, source, productID, limit, skip)
	}
}

// ReviewService pages through a product's reviews
type ReviewService struct {
	list ReviewLister
}

// NewReviewService creates a new review service
func NewReviewService(list ReviewLister) *ReviewService {
	return &ReviewService{list: list}
}

// ListReviews normalizes paging and returns one page
func (s *ReviewService) ListReviews(ctx context.Context, productID string, limit, skip int) (*models.ReviewPage, error) {
	ctx, span := util.StartSpan(ctx, "ReviewService.ListReviews")
	defer span.End()

	if productID == "" {
		return nil, &ValidationError{Field: "productId", Message: "is required"}
	}
	if limit <= 0 {
		limit = DefaultReviewLimit
	}
	if limit > MaxReviewLimit {
		limit = MaxReviewLimit
	}
	if skip < 0 {
		skip = 0
	}

	reviews, hasMore, err := s.list(ctx, productID, limit, skip)
	if err != nil {
		return nil, err
	}
	if reviews == nil {
		reviews = []models.Review{}
	}

	return &models.ReviewPage{
		Reviews: reviews,
		HasMore: hasMore,
		Limit:   limit,
		Skip:    skip,
	}, nil
}
