package domain

import (
	"errors"
	"fmt"

	"github.com/dmehra2102/storefront/pkg/apperr"
)

var (
	ErrEmptyCart         = fmt.Errorf("%w: cart is empty", apperr.ErrUnprocessable)
	ErrInsufficientStock = fmt.Errorf("%w: insufficient stock", apperr.ErrConflict)
	ErrInvalidTransition = fmt.Errorf("%w: invalid status transition", apperr.ErrConflict)
	ErrOrderNotFound     = fmt.Errorf("order %w", apperr.ErrNotFound)
	ErrProductNotFound   = fmt.Errorf("product %w", apperr.ErrNotFound)

	// ErrCheckoutFailed wraps storage faults during checkout. The transaction
	// has been rolled back and the caller may retry.
	ErrCheckoutFailed = errors.New("checkout failed")
)
