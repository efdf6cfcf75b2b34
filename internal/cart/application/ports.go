package application

import (
	"context"

	"github.com/dmehra2102/storefront/internal/cart/domain"
	"github.com/dmehra2102/storefront/pkg/identity"
)

type CartRepository interface {
	// GetOrCreate must converge concurrent callers for the same owner on a
	// single cart.
	GetOrCreate(ctx context.Context, owner identity.Identity) (domain.Cart, error)
	Find(ctx context.Context, owner identity.Identity) (domain.Cart, error)
	// AddItem inserts the line or increments its quantity atomically.
	AddItem(ctx context.Context, cartID string, productID int64, quantity int) (domain.Item, error)
	SetQuantity(ctx context.Context, cartID string, itemID int64, quantity int) (domain.Item, error)
	RemoveItem(ctx context.Context, cartID string, itemID int64) error
	Clear(ctx context.Context, cartID string) error
}

// ProductLookup reports whether a product can be put in a cart.
type ProductLookup interface {
	Exists(ctx context.Context, productID int64) (bool, error)
}
