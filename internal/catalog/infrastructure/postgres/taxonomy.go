package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dmehra2102/storefront/internal/catalog/domain"
	"github.com/dmehra2102/storefront/pkg/postgres"
)

const categoryColumns = `c.id, c.name, c.slug, c.description, c.parent_id, c.is_active, c.created_at,
	(SELECT count(*) FROM products p WHERE p.category_id = c.id AND p.is_active)`

const brandColumns = `b.id, b.name, b.slug, b.description, b.is_active, b.created_at,
	(SELECT count(*) FROM products p WHERE p.brand_id = b.id AND p.is_active)`

func (r *Repository) CreateCategory(ctx context.Context, c domain.Category) (domain.Category, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO categories (name, slug, description, parent_id, is_active)
		VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		c.Name, c.Slug, c.Description, c.ParentID, c.IsActive).Scan(&id)
	if postgres.IsUniqueViolation(err) {
		return domain.Category{}, domain.ErrDuplicateSlug
	}
	if err != nil {
		return domain.Category{}, err
	}
	return r.GetCategory(ctx, id)
}

func (r *Repository) GetCategory(ctx context.Context, id int64) (domain.Category, error) {
	return r.oneCategory(ctx, `c.id = $1`, id)
}

func (r *Repository) GetCategoryBySlug(ctx context.Context, slug string) (domain.Category, error) {
	return r.oneCategory(ctx, `c.slug = $1`, slug)
}

func (r *Repository) oneCategory(ctx context.Context, cond string, arg any) (domain.Category, error) {
	c, err := scanCategory(r.pool.QueryRow(ctx,
		`SELECT `+categoryColumns+` FROM categories c WHERE c.is_active AND `+cond, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Category{}, domain.ErrCategoryNotFound
	}
	return c, err
}

func (r *Repository) ListCategories(ctx context.Context, f domain.CategoryFilter) ([]domain.Category, error) {
	q := `SELECT ` + categoryColumns + ` FROM categories c WHERE c.is_active`
	var args []any
	switch {
	case f.MainOnly:
		q += ` AND c.parent_id IS NULL`
	case f.ParentID > 0:
		args = append(args, f.ParentID)
		q += fmt.Sprintf(` AND c.parent_id = $%d`, len(args))
	}
	rows, err := r.pool.Query(ctx, q+` ORDER BY c.name, c.id`, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Category, error) {
		return scanCategory(row)
	})
}

func (r *Repository) CreateBrand(ctx context.Context, b domain.Brand) (domain.Brand, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO brands (name, slug, description, is_active)
		VALUES ($1,$2,$3,$4) RETURNING id`,
		b.Name, b.Slug, b.Description, b.IsActive).Scan(&id)
	if postgres.IsUniqueViolation(err) {
		return domain.Brand{}, domain.ErrDuplicateSlug
	}
	if err != nil {
		return domain.Brand{}, err
	}
	return r.GetBrand(ctx, id)
}

func (r *Repository) GetBrand(ctx context.Context, id int64) (domain.Brand, error) {
	return r.oneBrand(ctx, `b.id = $1`, id)
}

func (r *Repository) GetBrandBySlug(ctx context.Context, slug string) (domain.Brand, error) {
	return r.oneBrand(ctx, `b.slug = $1`, slug)
}

func (r *Repository) oneBrand(ctx context.Context, cond string, arg any) (domain.Brand, error) {
	b, err := scanBrand(r.pool.QueryRow(ctx,
		`SELECT `+brandColumns+` FROM brands b WHERE b.is_active AND `+cond, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Brand{}, domain.ErrBrandNotFound
	}
	return b, err
}

func (r *Repository) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+brandColumns+` FROM brands b WHERE b.is_active ORDER BY b.name, b.id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Brand, error) {
		return scanBrand(row)
	})
}

func scanCategory(row pgx.Row) (domain.Category, error) {
	var c domain.Category
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.ParentID, &c.IsActive, &c.CreatedAt, &c.ProductCount)
	return c, err
}

func scanBrand(row pgx.Row) (domain.Brand, error) {
	var b domain.Brand
	err := row.Scan(&b.ID, &b.Name, &b.Slug, &b.Description, &b.IsActive, &b.CreatedAt, &b.ProductCount)
	return b, err
}
