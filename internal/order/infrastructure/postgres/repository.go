package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dmehra2102/storefront/internal/order/application"
	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/outbox"
	"github.com/dmehra2102/storefront/pkg/postgres"
)

const orderColumns = `id::text, user_id, status, shipping_address, total_price, created_at, updated_at`

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) InTx(ctx context.Context, fn func(tx application.Tx) error) error {
	return postgres.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&txStore{tx: tx})
	})
}

func (r *Repository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Order, error) {
		return scanOrder(row)
	})
	if err != nil || len(orders) == 0 {
		return orders, err
	}

	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	items, err := loadItems(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

func (r *Repository) Get(ctx context.Context, userID, orderID string) (domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 AND user_id = $2`, orderID, userID))
	if err != nil {
		return domain.Order{}, err
	}
	items, err := loadItems(ctx, r.pool, []string{o.ID})
	if err != nil {
		return domain.Order{}, err
	}
	o.Items = items[o.ID]
	return o, nil
}

type txStore struct {
	tx pgx.Tx
}

func (s *txStore) LockCart(ctx context.Context, userID string) (string, error) {
	var id string
	err := s.tx.QueryRow(ctx, `SELECT id::text FROM carts WHERE user_id = $1 FOR UPDATE`, userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrEmptyCart
	}
	return id, err
}

// CartLines orders by product so concurrent checkouts take product row locks
// in the same order.
func (s *txStore) CartLines(ctx context.Context, cartID string) ([]domain.CartLine, error) {
	rows, err := s.tx.Query(ctx, `SELECT product_id, quantity FROM cart_items WHERE cart_id = $1 ORDER BY product_id`, cartID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.CartLine, error) {
		var l domain.CartLine
		err := row.Scan(&l.ProductID, &l.Quantity)
		return l, err
	})
}

func (s *txStore) ClearCart(ctx context.Context, cartID string) error {
	if _, err := s.tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return err
	}
	_, err := s.tx.Exec(ctx, `UPDATE carts SET updated_at = now() WHERE id = $1`, cartID)
	return err
}

func (s *txStore) InsertOrder(ctx context.Context, o domain.Order) (domain.Order, error) {
	err := s.tx.QueryRow(ctx, `INSERT INTO orders (id, user_id, status, shipping_address, total_price)
		VALUES ($1, $2, $3, $4, 0)
		RETURNING total_price, created_at, updated_at`,
		o.ID, o.UserID, string(o.Status), o.ShippingAddress,
	).Scan(&o.TotalPrice, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (s *txStore) ReserveStock(ctx context.Context, productID int64, quantity int) (domain.Snapshot, error) {
	snap := domain.Snapshot{ProductID: productID}
	err := s.tx.QueryRow(ctx, `UPDATE products
		SET stock = stock - $2,
		    stock_status = CASE WHEN stock - $2 <= 0 THEN 'out_of_stock' WHEN stock - $2 <= 10 THEN 'limited_stock' ELSE 'in_stock' END,
		    updated_at = now()
		WHERE id = $1 AND is_active AND stock >= $2
		RETURNING name, price`, productID, quantity,
	).Scan(&snap.Name, &snap.Price)
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Snapshot{}, err
	}

	var exists bool
	if err := s.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1 AND is_active)`, productID).Scan(&exists); err != nil {
		return domain.Snapshot{}, err
	}
	if !exists {
		return domain.Snapshot{}, domain.ErrProductNotFound
	}
	return domain.Snapshot{}, domain.ErrInsufficientStock
}

func (s *txStore) Restock(ctx context.Context, productID int64, quantity int) error {
	_, err := s.tx.Exec(ctx, `UPDATE products
		SET stock = stock + $2,
		    stock_status = CASE WHEN stock + $2 <= 0 THEN 'out_of_stock' WHEN stock + $2 <= 10 THEN 'limited_stock' ELSE 'in_stock' END,
		    updated_at = now()
		WHERE id = $1`, productID, quantity)
	return err
}

func (s *txStore) InsertItems(ctx context.Context, orderID string, items []domain.OrderItem) ([]domain.OrderItem, error) {
	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(`INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			orderID, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice)
	}
	results := s.tx.SendBatch(ctx, batch)
	out := make([]domain.OrderItem, len(items))
	for i, it := range items {
		it.OrderID = orderID
		if err := results.QueryRow().Scan(&it.ID); err != nil {
			_ = results.Close()
			return nil, err
		}
		out[i] = it
	}
	return out, results.Close()
}

func (s *txStore) SetTotal(ctx context.Context, orderID string, total decimal.Decimal) error {
	_, err := s.tx.Exec(ctx, `UPDATE orders SET total_price = $2, updated_at = now() WHERE id = $1`, orderID, total)
	return err
}

func (s *txStore) LockOrder(ctx context.Context, userID, orderID string) (domain.Order, error) {
	o, err := scanOrder(s.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 AND user_id = $2 FOR UPDATE`, orderID, userID))
	if err != nil {
		return domain.Order{}, err
	}
	items, err := loadItems(ctx, s.tx, []string{o.ID})
	if err != nil {
		return domain.Order{}, err
	}
	o.Items = items[o.ID]
	return o, nil
}

func (s *txStore) SetStatus(ctx context.Context, orderID string, status domain.OrderStatus) (domain.Order, error) {
	return scanOrder(s.tx.QueryRow(ctx, `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1 RETURNING `+orderColumns, orderID, string(status)))
}

func (s *txStore) AppendEvent(ctx context.Context, msg outbox.Message) error {
	return outbox.Append(ctx, s.tx, msg)
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadItems(ctx context.Context, q queryer, orderIDs []string) (map[string][]domain.OrderItem, error) {
	rows, err := q.Query(ctx, `SELECT id, order_id::text, product_id, product_name, quantity, unit_price
		FROM order_items WHERE order_id = ANY($1::uuid[]) ORDER BY id`, orderIDs)
	if err != nil {
		return nil, err
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.OrderItem, error) {
		var it domain.OrderItem
		err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice)
		return it, err
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string][]domain.OrderItem, len(orderIDs))
	for _, it := range items {
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, nil
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	var status string
	err := row.Scan(&o.ID, &o.UserID, &status, &o.ShippingAddress, &o.TotalPrice, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, err
	}
	o.Status = domain.OrderStatus(status)
	return o, nil
}
