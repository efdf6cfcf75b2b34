package domain

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

type StockStatus string

const (
	InStock      StockStatus = "in_stock"
	LimitedStock StockStatus = "limited_stock"
	OutOfStock   StockStatus = "out_of_stock"
)

const LimitedStockThreshold = 10

func StockStatusFor(stock int) StockStatus {
	switch {
	case stock <= 0:
		return OutOfStock
	case stock <= LimitedStockThreshold:
		return LimitedStock
	default:
		return InStock
	}
}

func (s StockStatus) Valid() bool {
	switch s {
	case InStock, LimitedStock, OutOfStock:
		return true
	}
	return false
}

type Product struct {
	ID            int64
	Name          string
	Slug          string
	SKU           string
	Description   string
	Price         decimal.Decimal
	OriginalPrice decimal.NullDecimal
	CategoryID    *int64
	BrandID       *int64
	Stock         int
	StockStatus   StockStatus
	IsActive      bool
	PurchaseCount int
	RatingAverage decimal.Decimal
	RatingCount   int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (p Product) OnSale() bool {
	return p.OriginalPrice.Valid && p.OriginalPrice.Decimal.GreaterThan(p.Price)
}

// DiscountPercentage is (original - price) / original * 100, rounded to two
// places, or zero when the product is not on sale.
func (p Product) DiscountPercentage() decimal.Decimal {
	if !p.OnSale() || p.OriginalPrice.Decimal.IsZero() {
		return decimal.Zero
	}
	orig := p.OriginalPrice.Decimal
	return orig.Sub(p.Price).Div(orig).Mul(decimal.NewFromInt(100)).Round(2)
}

func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

type SortKey string

var sortColumns = map[SortKey]string{
	"price":           "price ASC",
	"-price":          "price DESC",
	"name":            "name ASC",
	"-name":           "name DESC",
	"created_at":      "created_at ASC",
	"-created_at":     "created_at DESC",
	"purchase_count":  "purchase_count ASC",
	"-purchase_count": "purchase_count DESC",
	"rating_average":  "rating_average ASC",
	"-rating_average": "rating_average DESC",
}

// OrderBy returns the SQL ordering for k, falling back to newest first.
func (k SortKey) OrderBy() string {
	if col, ok := sortColumns[k]; ok {
		return col
	}
	return sortColumns["-created_at"]
}

// ListFilter narrows product listings. Zero values leave a dimension open.
type ListFilter struct {
	Page        int
	PageSize    int
	CategoryID  int64
	BrandID     int64
	MinPrice    decimal.NullDecimal
	MaxPrice    decimal.NullDecimal
	StockStatus StockStatus
	OnSale      bool
	// LowStock keeps products with 1..LowStock units left.
	LowStock int
	SortBy   SortKey
}

type Page struct {
	Items    []Product
	Total    int
	Page     int
	PageSize int
}
