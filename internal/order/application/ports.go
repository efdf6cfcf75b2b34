package application

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/outbox"
)

// Tx is the unit of work a checkout or status change runs in. Everything done
// through one Tx commits or rolls back together.
type Tx interface {
	// LockCart locks the user's cart row until the transaction ends and
	// returns its id. ErrEmptyCart when the user has no cart.
	LockCart(ctx context.Context, userID string) (string, error)
	CartLines(ctx context.Context, cartID string) ([]domain.CartLine, error)
	ClearCart(ctx context.Context, cartID string) error

	InsertOrder(ctx context.Context, o domain.Order) (domain.Order, error)
	// ReserveStock decrements stock only if enough is left and returns the
	// product's name and price at that instant.
	ReserveStock(ctx context.Context, productID int64, quantity int) (domain.Snapshot, error)
	Restock(ctx context.Context, productID int64, quantity int) error
	InsertItems(ctx context.Context, orderID string, items []domain.OrderItem) ([]domain.OrderItem, error)
	SetTotal(ctx context.Context, orderID string, total decimal.Decimal) error

	// LockOrder loads an order owned by userID, items included, and locks it.
	LockOrder(ctx context.Context, userID, orderID string) (domain.Order, error)
	SetStatus(ctx context.Context, orderID string, status domain.OrderStatus) (domain.Order, error)

	AppendEvent(ctx context.Context, msg outbox.Message) error
}

type OrderRepository interface {
	// InTx commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(tx Tx) error) error
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	Get(ctx context.Context, userID, orderID string) (domain.Order, error)
}
