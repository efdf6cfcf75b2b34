package domain

import (
	"fmt"

	"github.com/dmehra2102/storefront/pkg/apperr"
)

var (
	ErrCartNotFound     = fmt.Errorf("cart %w", apperr.ErrNotFound)
	ErrItemNotFound     = fmt.Errorf("cart item %w", apperr.ErrNotFound)
	ErrProductNotFound  = fmt.Errorf("product %w", apperr.ErrNotFound)
	ErrInvalidQuantity  = fmt.Errorf("%w: quantity must be at least 1", apperr.ErrValidation)
	ErrQuantityTooLarge = fmt.Errorf("%w: quantity must be at most %d", apperr.ErrValidation, MaxQuantity)
)
