package domain

import (
	"fmt"

	"github.com/dmehra2102/storefront/pkg/apperr"
)

var (
	ErrProductNotFound = fmt.Errorf("product %w", apperr.ErrNotFound)
	ErrDuplicateSKU    = fmt.Errorf("%w: sku or slug already exists", apperr.ErrConflict)

	ErrCategoryNotFound = fmt.Errorf("category %w", apperr.ErrNotFound)
	ErrBrandNotFound    = fmt.Errorf("brand %w", apperr.ErrNotFound)
	ErrDuplicateSlug    = fmt.Errorf("%w: slug already exists", apperr.ErrConflict)

	ErrDuplicateReview = fmt.Errorf("%w: product already reviewed by this user", apperr.ErrConflict)
	ErrInvalidRating   = fmt.Errorf("%w: rating must be between %d and %d", apperr.ErrValidation, MinRating, MaxRating)
)
