package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// MaxQuantity is the largest quantity a cart line can hold.
const MaxQuantity = math.MaxInt32

// Cart belongs to exactly one owner: a user or an anonymous session.
type Cart struct {
	ID         string
	UserID     string
	SessionKey string
	Items      []Item
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Item is a cart line. ProductName and UnitPrice reflect the live product and
// are for display only; checkout reads the price again under lock.
type Item struct {
	ID          int64
	CartID      string
	ProductID   int64
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int
	AddedAt     time.Time
}

func (i Item) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (c Cart) TotalQuantity() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}
