//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	cartapp "github.com/dmehra2102/storefront/internal/cart/application"
	cartcatalog "github.com/dmehra2102/storefront/internal/cart/infrastructure/catalog"
	cartpg "github.com/dmehra2102/storefront/internal/cart/infrastructure/postgres"
	catalogapp "github.com/dmehra2102/storefront/internal/catalog/application"
	catalogpg "github.com/dmehra2102/storefront/internal/catalog/infrastructure/postgres"
	"github.com/dmehra2102/storefront/internal/order/application"
	"github.com/dmehra2102/storefront/internal/order/domain"
	orderpg "github.com/dmehra2102/storefront/internal/order/infrastructure/postgres"
	"github.com/dmehra2102/storefront/pkg/identity"
	"github.com/dmehra2102/storefront/test/integration"
)

var env *integration.Env

func TestMain(m *testing.M) {
	var err error
	env, err = integration.Setup(context.Background())
	if err != nil {
		panic(err)
	}
	code := m.Run()
	env.Teardown(context.Background())
	os.Exit(code)
}

type fixture struct {
	catalog *catalogapp.Service
	carts   *cartapp.Service
	orders  *application.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, env.Reset(ctx))

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	catalog := catalogapp.NewService(catalogpg.NewRepository(log, env.Pool))
	return fixture{
		catalog: catalog,
		carts:   cartapp.NewService(log, cartpg.NewRepository(log, env.Pool), cartcatalog.NewLookup(catalog)),
		orders:  application.NewService(log, orderpg.NewRepository(log, env.Pool)),
	}
}

func (f fixture) product(t *testing.T, sku, price string, stock int) int64 {
	t.Helper()
	p, err := f.catalog.CreateProduct(context.Background(), catalogapp.NewProduct{
		Name:  "Product " + sku,
		SKU:   sku,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	})
	require.NoError(t, err)
	return p.ID
}

func (f fixture) fill(t *testing.T, userID string, lines map[int64]int) string {
	t.Helper()
	ctx := context.Background()
	c, err := f.carts.GetOrCreate(ctx, identity.User(userID))
	require.NoError(t, err)
	for pid, q := range lines {
		_, err := f.carts.AddItem(ctx, c.ID, pid, q)
		require.NoError(t, err)
	}
	return c.ID
}

func countRows(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, env.Pool.QueryRow(context.Background(), query, args...).Scan(&n))
	return n
}

var addr = domain.CheckoutAttrs{ShippingAddress: "1 Infinite Loop"}

func TestCheckoutEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", "10.00", 5)
	b := f.product(t, "B", "5.00", 5)
	f.fill(t, "u1", map[int64]int{a: 2, b: 1})

	o, err := f.orders.Checkout(ctx, "u1", addr)
	require.NoError(t, err)
	assert.Equal(t, "25.00", o.TotalPrice.StringFixed(2))
	assert.Len(t, o.Items, 2)

	cart, err := f.carts.Find(ctx, identity.User("u1"))
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	pa, err := f.catalog.GetProduct(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 3, pa.Stock)

	assert.Equal(t, 1, countRows(t, `SELECT count(*) FROM outbox WHERE type = $1 AND aggregate_id = $2`, domain.EventOrderPlaced, o.ID))

	_, err = f.orders.Checkout(ctx, "u1", addr)
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
}

func TestCheckoutSnapshotSurvivesPriceChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", "10.00", 5)
	f.fill(t, "u1", map[int64]int{a: 2})

	o, err := f.orders.Checkout(ctx, "u1", addr)
	require.NoError(t, err)

	_, err = f.catalog.UpdatePrice(ctx, a, decimal.RequireFromString("42.00"), decimal.NullDecimal{})
	require.NoError(t, err)

	stored, err := f.orders.Get(ctx, "u1", o.ID)
	require.NoError(t, err)
	assert.Equal(t, "20.00", stored.TotalPrice.StringFixed(2))
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "10.00", stored.Items[0].UnitPrice.StringFixed(2))
}

func TestCheckoutInsufficientStockChangesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", "10.00", 5)
	b := f.product(t, "B", "5.00", 1)
	f.fill(t, "u1", map[int64]int{a: 2, b: 2})

	_, err := f.orders.Checkout(ctx, "u1", addr)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	assert.Zero(t, countRows(t, `SELECT count(*) FROM orders`))
	assert.Zero(t, countRows(t, `SELECT count(*) FROM outbox`))
	assert.Equal(t, 2, countRows(t, `SELECT count(*) FROM cart_items`))
	pa, err := f.catalog.GetProduct(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 5, pa.Stock)
}

func TestConcurrentCheckoutOfOneCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", "10.00", 50)
	f.fill(t, "u1", map[int64]int{a: 3})

	var placed, empty atomic.Int32
	var g errgroup.Group
	for i := 0; i < 6; i++ {
		g.Go(func() error {
			_, err := f.orders.Checkout(ctx, "u1", addr)
			switch {
			case err == nil:
				placed.Add(1)
			case errors.Is(err, domain.ErrEmptyCart):
				empty.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.EqualValues(t, 1, placed.Load())
	assert.EqualValues(t, 5, empty.Load())
	assert.Equal(t, 1, countRows(t, `SELECT count(*) FROM orders`))
	pa, err := f.catalog.GetProduct(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 47, pa.Stock)
}

func TestConcurrentCheckoutsNeverOversell(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", "1.00", 3)
	users := []string{"u1", "u2", "u3", "u4", "u5"}
	for _, u := range users {
		f.fill(t, u, map[int64]int{a: 1})
	}

	var placed atomic.Int32
	var g errgroup.Group
	for _, u := range users {
		u := u
		g.Go(func() error {
			_, err := f.orders.Checkout(ctx, u, addr)
			if err == nil {
				placed.Add(1)
				return nil
			}
			if errors.Is(err, domain.ErrInsufficientStock) {
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.EqualValues(t, 3, placed.Load())
	pa, err := f.catalog.GetProduct(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 0, pa.Stock)
}

func TestCancelRestocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", "10.00", 5)
	f.fill(t, "u1", map[int64]int{a: 4})

	o, err := f.orders.Checkout(ctx, "u1", addr)
	require.NoError(t, err)

	_, err = f.orders.ChangeStatus(ctx, "u1", o.ID, domain.StatusShipped)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	got, err := f.orders.ChangeStatus(ctx, "u1", o.ID, domain.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)

	pa, err := f.catalog.GetProduct(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 5, pa.Stock)
	assert.Equal(t, 1, countRows(t, `SELECT count(*) FROM outbox WHERE type = $1`, domain.EventOrderStatusChanged))

	mine, err := f.orders.ListMine(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Len(t, mine[0].Items, 1)
}
