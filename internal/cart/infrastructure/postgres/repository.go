package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/storefront/internal/cart/domain"
	"github.com/dmehra2102/storefront/pkg/identity"
	"github.com/dmehra2102/storefront/pkg/postgres"
)

const itemSelect = `SELECT ci.id, ci.cart_id, ci.product_id, p.name, p.price, ci.quantity, ci.added_at
	FROM cart_items ci JOIN products p ON p.id = ci.product_id`

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) GetOrCreate(ctx context.Context, owner identity.Identity) (domain.Cart, error) {
	// Concurrent first requests race on the partial unique index; the loser's
	// insert is a no-op and both read the same row.
	var err error
	if owner.Authenticated() {
		_, err = r.pool.Exec(ctx, `INSERT INTO carts (id, user_id) VALUES ($1, $2)
			ON CONFLICT (user_id) WHERE user_id IS NOT NULL DO NOTHING`, uuid.New(), owner.UserID)
	} else {
		_, err = r.pool.Exec(ctx, `INSERT INTO carts (id, session_key) VALUES ($1, $2)
			ON CONFLICT (session_key) WHERE session_key IS NOT NULL DO NOTHING`, uuid.New(), owner.SessionKey)
	}
	if err != nil {
		return domain.Cart{}, err
	}
	return r.Find(ctx, owner)
}

func (r *Repository) Find(ctx context.Context, owner identity.Identity) (domain.Cart, error) {
	var c domain.Cart
	var id uuid.UUID
	var userID, sessionKey *string
	err := r.pool.QueryRow(ctx, `SELECT id, user_id, session_key, created_at, updated_at
		FROM carts WHERE user_id = $1 OR session_key = $2`,
		nullable(owner.UserID), nullable(owner.SessionKey),
	).Scan(&id, &userID, &sessionKey, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Cart{}, domain.ErrCartNotFound
	}
	if err != nil {
		return domain.Cart{}, err
	}
	c.ID = id.String()
	if userID != nil {
		c.UserID = *userID
	}
	if sessionKey != nil {
		c.SessionKey = *sessionKey
	}

	rows, err := r.pool.Query(ctx, itemSelect+` WHERE ci.cart_id = $1 ORDER BY ci.added_at, ci.id`, id)
	if err != nil {
		return domain.Cart{}, err
	}
	c.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Item, error) {
		return scanItem(row)
	})
	if err != nil {
		return domain.Cart{}, err
	}
	return c, nil
}

func (r *Repository) AddItem(ctx context.Context, cartID string, productID int64, quantity int) (domain.Item, error) {
	var item domain.Item
	err := postgres.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		var itemID int64
		if err := tx.QueryRow(ctx, `INSERT INTO cart_items (cart_id, product_id, quantity)
			VALUES ($1, $2, $3)
			ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
			RETURNING id`, cartID, productID, quantity).Scan(&itemID); err != nil {
			if postgres.IsOutOfRange(err) {
				return domain.ErrQuantityTooLarge
			}
			return err
		}
		if err := touch(ctx, tx, cartID); err != nil {
			return err
		}
		var err error
		item, err = scanItem(tx.QueryRow(ctx, itemSelect+` WHERE ci.id = $1`, itemID))
		return err
	})
	return item, err
}

func (r *Repository) SetQuantity(ctx context.Context, cartID string, itemID int64, quantity int) (domain.Item, error) {
	var item domain.Item
	err := postgres.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE cart_items SET quantity = $3 WHERE id = $2 AND cart_id = $1`, cartID, itemID, quantity)
		if postgres.IsOutOfRange(err) {
			return domain.ErrQuantityTooLarge
		}
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrItemNotFound
		}
		if err := touch(ctx, tx, cartID); err != nil {
			return err
		}
		item, err = scanItem(tx.QueryRow(ctx, itemSelect+` WHERE ci.id = $1`, itemID))
		return err
	})
	return item, err
}

func (r *Repository) RemoveItem(ctx context.Context, cartID string, itemID int64) error {
	return postgres.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE id = $2 AND cart_id = $1`, cartID, itemID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrItemNotFound
		}
		return touch(ctx, tx, cartID)
	})
}

func (r *Repository) Clear(ctx context.Context, cartID string) error {
	return postgres.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
			return err
		}
		return touch(ctx, tx, cartID)
	})
}

func touch(ctx context.Context, tx pgx.Tx, cartID string) error {
	_, err := tx.Exec(ctx, `UPDATE carts SET updated_at = now() WHERE id = $1`, cartID)
	return err
}

func scanItem(row pgx.Row) (domain.Item, error) {
	var it domain.Item
	var cartID uuid.UUID
	err := row.Scan(&it.ID, &cartID, &it.ProductID, &it.ProductName, &it.UnitPrice, &it.Quantity, &it.AddedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Item{}, domain.ErrItemNotFound
	}
	if err != nil {
		return domain.Item{}, err
	}
	it.CartID = cartID.String()
	return it, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
