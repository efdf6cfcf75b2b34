package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dmehra2102/storefront/internal/catalog/domain"
	"github.com/dmehra2102/storefront/pkg/postgres"
)

const productColumns = `id, name, slug, sku, description, price, original_price, category_id, brand_id,
	stock, stock_status, is_active, purchase_count, rating_average, rating_count, created_at, updated_at`

// stockStatusSQL mirrors domain.StockStatusFor for in-place updates.
const stockStatusSQL = `CASE WHEN %[1]s <= 0 THEN 'out_of_stock' WHEN %[1]s <= 10 THEN 'limited_stock' ELSE 'in_stock' END`

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO products (name, slug, sku, description, price, original_price, category_id, brand_id, stock, stock_status, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING `+productColumns,
		p.Name, p.Slug, p.SKU, p.Description, p.Price, p.OriginalPrice, p.CategoryID, p.BrandID, p.Stock, string(p.StockStatus), p.IsActive)

	out, err := scanProduct(row)
	if postgres.IsUniqueViolation(err) {
		return domain.Product{}, domain.ErrDuplicateSKU
	}
	return out, err
}

func (r *Repository) Get(ctx context.Context, id int64) (domain.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1 AND is_active`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, err
}

func (r *Repository) GetBySlug(ctx context.Context, slug string) (domain.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE slug=$1 AND is_active`, slug))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, err
}

func (r *Repository) List(ctx context.Context, f domain.ListFilter) (domain.Page, error) {
	where := []string{"is_active"}
	args := []any{}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.CategoryID > 0 {
		add("category_id = $%d", f.CategoryID)
	}
	if f.BrandID > 0 {
		add("brand_id = $%d", f.BrandID)
	}
	if f.MinPrice.Valid {
		add("price >= $%d", f.MinPrice.Decimal)
	}
	if f.MaxPrice.Valid {
		add("price <= $%d", f.MaxPrice.Decimal)
	}
	if f.StockStatus != "" {
		add("stock_status = $%d", string(f.StockStatus))
	}
	if f.OnSale {
		where = append(where, "original_price > price")
	}
	if f.LowStock > 0 {
		add("stock BETWEEN 1 AND $%d", f.LowStock)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM products WHERE `+cond, args...).Scan(&total); err != nil {
		return domain.Page{}, err
	}

	args = append(args, f.PageSize, (f.Page-1)*f.PageSize)
	q := fmt.Sprintf(`SELECT %s FROM products WHERE %s ORDER BY %s, id LIMIT $%d OFFSET $%d`,
		productColumns, cond, f.SortBy.OrderBy(), len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return domain.Page{}, err
	}
	defer rows.Close()

	items := make([]domain.Product, 0, f.PageSize)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return domain.Page{}, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return domain.Page{}, err
	}
	return domain.Page{Items: items, Total: total, Page: f.Page, PageSize: f.PageSize}, nil
}

func (r *Repository) UpdatePrice(ctx context.Context, id int64, price decimal.Decimal, original decimal.NullDecimal) (domain.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `UPDATE products SET price=$2, original_price=$3, updated_at=now()
		WHERE id=$1 AND is_active RETURNING `+productColumns, id, price, original))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, err
}

func (r *Repository) UpdateStock(ctx context.Context, id int64, stock int) (domain.Product, error) {
	q := `UPDATE products SET stock=$2, stock_status=` + fmt.Sprintf(stockStatusSQL, "$2::int") + `, updated_at=now()
		WHERE id=$1 AND is_active RETURNING ` + productColumns
	p, err := scanProduct(r.pool.QueryRow(ctx, q, id, stock))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, err
}

func (r *Repository) AddPurchases(ctx context.Context, deltas map[int64]int) error {
	ids := make([]int64, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	return postgres.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, id := range ids {
			batch.Queue(`UPDATE products SET purchase_count = GREATEST(purchase_count + $2, 0) WHERE id=$1`, id, deltas[id])
		}
		br := tx.SendBatch(ctx, batch)
		defer br.Close()
		for _, id := range ids {
			ct, err := br.Exec()
			if err != nil {
				return fmt.Errorf("purchase count for product %d: %w", id, err)
			}
			if ct.RowsAffected() == 0 {
				r.log.Warn("purchase count for unknown product", "product_id", id)
			}
		}
		return br.Close()
	})
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	var status string
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.SKU, &p.Description, &p.Price, &p.OriginalPrice,
		&p.CategoryID, &p.BrandID, &p.Stock, &status, &p.IsActive, &p.PurchaseCount,
		&p.RatingAverage, &p.RatingCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Product{}, err
	}
	p.StockStatus = domain.StockStatus(status)
	return p, nil
}
