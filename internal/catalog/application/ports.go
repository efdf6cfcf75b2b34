package application

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/dmehra2102/storefront/internal/catalog/domain"
)

type ProductRepository interface {
	Create(ctx context.Context, p domain.Product) (domain.Product, error)
	Get(ctx context.Context, id int64) (domain.Product, error)
	GetBySlug(ctx context.Context, slug string) (domain.Product, error)
	List(ctx context.Context, f domain.ListFilter) (domain.Page, error)
	UpdatePrice(ctx context.Context, id int64, price decimal.Decimal, original decimal.NullDecimal) (domain.Product, error)
	UpdateStock(ctx context.Context, id int64, stock int) (domain.Product, error)
	// AddPurchases applies every delta or none.
	AddPurchases(ctx context.Context, deltas map[int64]int) error
}

type TaxonomyRepository interface {
	CreateCategory(ctx context.Context, c domain.Category) (domain.Category, error)
	GetCategory(ctx context.Context, id int64) (domain.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (domain.Category, error)
	ListCategories(ctx context.Context, f domain.CategoryFilter) ([]domain.Category, error)

	CreateBrand(ctx context.Context, b domain.Brand) (domain.Brand, error)
	GetBrand(ctx context.Context, id int64) (domain.Brand, error)
	GetBrandBySlug(ctx context.Context, slug string) (domain.Brand, error)
	ListBrands(ctx context.Context) ([]domain.Brand, error)
}

type ReviewRepository interface {
	// AddReview stores r and refreshes the product's rating aggregate in the
	// same transaction. VerifiedPurchase is derived from the user's orders.
	AddReview(ctx context.Context, r domain.Review) (domain.Review, error)
	ListReviews(ctx context.Context, productID int64) ([]domain.Review, error)
	ReviewStats(ctx context.Context, productID int64) (domain.ReviewStats, error)
}

type Repository interface {
	ProductRepository
	TaxonomyRepository
	ReviewRepository
}
