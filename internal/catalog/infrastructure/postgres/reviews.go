package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/dmehra2102/storefront/internal/catalog/domain"
	"github.com/dmehra2102/storefront/pkg/postgres"
)

const reviewColumns = `id, product_id, user_id, rating, review_text, is_verified_purchase, created_at, updated_at`

// AddReview locks the product row so concurrent reviews refresh the
// aggregate one at a time.
func (r *Repository) AddReview(ctx context.Context, rv domain.Review) (domain.Review, error) {
	var out domain.Review
	err := postgres.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		var locked int64
		if err := tx.QueryRow(ctx, `SELECT id FROM products WHERE id=$1 AND is_active FOR UPDATE`, rv.ProductID).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrProductNotFound
			}
			return err
		}

		row := tx.QueryRow(ctx, `INSERT INTO product_reviews (product_id, user_id, rating, review_text, is_verified_purchase)
			VALUES ($1, $2, $3, $4, EXISTS (
				SELECT 1 FROM order_items oi JOIN orders o ON o.id = oi.order_id
				WHERE oi.product_id = $1 AND o.user_id = $2 AND o.status <> 'cancelled'))
			RETURNING `+reviewColumns,
			rv.ProductID, rv.UserID, rv.Rating, rv.Text)
		var err error
		if out, err = scanReview(row); err != nil {
			if postgres.IsUniqueViolation(err) {
				return domain.ErrDuplicateReview
			}
			return err
		}

		_, err = tx.Exec(ctx, `UPDATE products SET
				rating_average = COALESCE((SELECT round(avg(rating), 2) FROM product_reviews WHERE product_id=$1), 0),
				rating_count = (SELECT count(*) FROM product_reviews WHERE product_id=$1)
			WHERE id=$1`, rv.ProductID)
		return err
	})
	return out, err
}

func (r *Repository) ListReviews(ctx context.Context, productID int64) ([]domain.Review, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+reviewColumns+` FROM product_reviews WHERE product_id=$1 ORDER BY created_at DESC, id DESC`, productID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Review, error) {
		return scanReview(row)
	})
}

func (r *Repository) ReviewStats(ctx context.Context, productID int64) (domain.ReviewStats, error) {
	rows, err := r.pool.Query(ctx, `SELECT rating, count(*), count(*) FILTER (WHERE is_verified_purchase)
		FROM product_reviews WHERE product_id=$1 GROUP BY rating`, productID)
	if err != nil {
		return domain.ReviewStats{}, err
	}
	defer rows.Close()

	var stats domain.ReviewStats
	for rows.Next() {
		var rating, count, verified int
		if err := rows.Scan(&rating, &count, &verified); err != nil {
			return domain.ReviewStats{}, err
		}
		stats.Tally(rating, count, verified)
	}
	return stats, rows.Err()
}

func scanReview(row pgx.Row) (domain.Review, error) {
	var rv domain.Review
	err := row.Scan(&rv.ID, &rv.ProductID, &rv.UserID, &rv.Rating, &rv.Text, &rv.VerifiedPurchase, &rv.CreatedAt, &rv.UpdatedAt)
	return rv, err
}
