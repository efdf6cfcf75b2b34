package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmehra2102/storefront/internal/catalog/domain"
	"github.com/dmehra2102/storefront/pkg/apperr"
)

type NewReview struct {
	ProductID int64
	UserID    string
	Rating    int
	Text      string
}

// AddReview records one review per user and product and refreshes the
// product's rating average.
func (s *Service) AddReview(ctx context.Context, in NewReview) (domain.Review, error) {
	if in.UserID == "" {
		return domain.Review{}, fmt.Errorf("%w: reviews need a signed-in user", apperr.ErrUnauthenticated)
	}
	if in.Rating < domain.MinRating || in.Rating > domain.MaxRating {
		return domain.Review{}, domain.ErrInvalidRating
	}
	if _, err := s.GetProduct(ctx, in.ProductID); err != nil {
		return domain.Review{}, err
	}
	return s.repo.AddReview(ctx, domain.Review{
		ProductID: in.ProductID,
		UserID:    in.UserID,
		Rating:    in.Rating,
		Text:      strings.TrimSpace(in.Text),
	})
}

func (s *Service) ListReviews(ctx context.Context, productID int64) ([]domain.Review, error) {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.repo.ListReviews(ctx, productID)
}

func (s *Service) ReviewStats(ctx context.Context, productID int64) (domain.ReviewStats, error) {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return domain.ReviewStats{}, err
	}
	return s.repo.ReviewStats(ctx, productID)
}
