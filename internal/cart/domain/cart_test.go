package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCartTotals(t *testing.T) {
	c := Cart{Items: []Item{
		{ProductID: 1, Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
		{ProductID: 2, Quantity: 1, UnitPrice: decimal.RequireFromString("5.00")},
	}}

	assert.Equal(t, 3, c.TotalQuantity())
	assert.Equal(t, "25.00", c.Total().StringFixed(2))
	assert.Equal(t, "20.00", c.Items[0].Subtotal().StringFixed(2))
	assert.True(t, Cart{}.Total().IsZero())
}
