package application

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dmehra2102/storefront/internal/catalog/domain"
	"github.com/dmehra2102/storefront/pkg/apperr"
)

const (
	defaultPageSize = 12
	maxPageSize     = 50
)

const defaultLowStock = domain.LimitedStockThreshold

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type NewProduct struct {
	Name          string
	SKU           string
	Description   string
	Price         decimal.Decimal
	OriginalPrice decimal.NullDecimal
	Stock         int
	CategoryID    *int64
	BrandID       *int64
}

func (s *Service) CreateProduct(ctx context.Context, in NewProduct) (domain.Product, error) {
	name := strings.TrimSpace(in.Name)
	sku := strings.TrimSpace(in.SKU)
	slug := domain.Slugify(name)

	switch {
	case name == "" || slug == "":
		return domain.Product{}, apperr.Validation("name is required")
	case sku == "":
		return domain.Product{}, apperr.Validation("sku is required")
	case in.Stock < 0:
		return domain.Product{}, apperr.Validation("stock cannot be negative")
	}
	if err := validatePrice(in.Price, in.OriginalPrice); err != nil {
		return domain.Product{}, err
	}
	if err := s.checkRefs(ctx, in.CategoryID, in.BrandID); err != nil {
		return domain.Product{}, err
	}

	return s.repo.Create(ctx, domain.Product{
		Name:          name,
		Slug:          slug,
		SKU:           sku,
		Description:   strings.TrimSpace(in.Description),
		Price:         in.Price,
		OriginalPrice: in.OriginalPrice,
		CategoryID:    in.CategoryID,
		BrandID:       in.BrandID,
		Stock:         in.Stock,
		StockStatus:   domain.StockStatusFor(in.Stock),
		IsActive:      true,
	})
}

func (s *Service) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	if id <= 0 {
		return domain.Product{}, apperr.Validation("invalid product id %d", id)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) GetProductBySlug(ctx context.Context, slug string) (domain.Product, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return s.repo.GetBySlug(ctx, slug)
}

func (s *Service) ListProducts(ctx context.Context, f domain.ListFilter) (domain.Page, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = defaultPageSize
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}
	switch {
	case f.CategoryID < 0:
		return domain.Page{}, apperr.Validation("invalid category %d", f.CategoryID)
	case f.BrandID < 0:
		return domain.Page{}, apperr.Validation("invalid brand %d", f.BrandID)
	case f.LowStock < 0:
		return domain.Page{}, apperr.Validation("low stock threshold cannot be negative")
	}
	if f.StockStatus != "" && !f.StockStatus.Valid() {
		return domain.Page{}, apperr.Validation("unknown stock status %q", f.StockStatus)
	}
	if f.MinPrice.Valid && f.MaxPrice.Valid && f.MinPrice.Decimal.GreaterThan(f.MaxPrice.Decimal) {
		return domain.Page{}, apperr.Validation("min_price is greater than max_price")
	}
	return s.repo.List(ctx, f)
}

func (s *Service) ListOnSale(ctx context.Context, f domain.ListFilter) (domain.Page, error) {
	f.OnSale = true
	return s.ListProducts(ctx, f)
}

// ListTrending ranks by purchases, which the order event worker maintains.
func (s *Service) ListTrending(ctx context.Context, f domain.ListFilter) (domain.Page, error) {
	f.SortBy = "-purchase_count"
	return s.ListProducts(ctx, f)
}

func (s *Service) ListLowStock(ctx context.Context, f domain.ListFilter) (domain.Page, error) {
	if f.LowStock == 0 {
		f.LowStock = defaultLowStock
	}
	return s.ListProducts(ctx, f)
}

func (s *Service) ListOutOfStock(ctx context.Context, f domain.ListFilter) (domain.Page, error) {
	f.StockStatus = domain.OutOfStock
	return s.ListProducts(ctx, f)
}

func (s *Service) UpdatePrice(ctx context.Context, id int64, price decimal.Decimal, original decimal.NullDecimal) (domain.Product, error) {
	if err := validatePrice(price, original); err != nil {
		return domain.Product{}, err
	}
	return s.repo.UpdatePrice(ctx, id, price, original)
}

func (s *Service) UpdateStock(ctx context.Context, id int64, stock int) (domain.Product, error) {
	if stock < 0 {
		return domain.Product{}, apperr.Validation("stock cannot be negative")
	}
	return s.repo.UpdateStock(ctx, id, stock)
}

// RecordSales moves purchase counters for one order event in a single
// transaction. Negative deltas come from cancellations.
func (s *Service) RecordSales(ctx context.Context, deltas map[int64]int) error {
	pending := make(map[int64]int, len(deltas))
	for id, d := range deltas {
		if d != 0 {
			pending[id] = d
		}
	}
	if len(pending) == 0 {
		return nil
	}
	return s.repo.AddPurchases(ctx, pending)
}

func (s *Service) checkRefs(ctx context.Context, categoryID, brandID *int64) error {
	if categoryID != nil {
		_, err := s.repo.GetCategory(ctx, *categoryID)
		if errors.Is(err, domain.ErrCategoryNotFound) {
			return apperr.Validation("unknown category %d", *categoryID)
		}
		if err != nil {
			return err
		}
	}
	if brandID != nil {
		_, err := s.repo.GetBrand(ctx, *brandID)
		if errors.Is(err, domain.ErrBrandNotFound) {
			return apperr.Validation("unknown brand %d", *brandID)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func validatePrice(price decimal.Decimal, original decimal.NullDecimal) error {
	if !price.IsPositive() {
		return apperr.Validation("price must be greater than zero")
	}
	if price.Exponent() < -2 {
		return apperr.Validation("price has more than two decimal places")
	}
	if original.Valid && original.Decimal.IsNegative() {
		return apperr.Validation("original_price cannot be negative")
	}
	return nil
}
