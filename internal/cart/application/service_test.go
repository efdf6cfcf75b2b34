package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/dmehra2102/storefront/internal/cart/domain"
	"github.com/dmehra2102/storefront/pkg/apperr"
	"github.com/dmehra2102/storefront/pkg/identity"
)

type memRepo struct {
	mu     sync.Mutex
	carts  map[identity.Identity]*domain.Cart
	nextID int64
}

func newMemRepo() *memRepo {
	return &memRepo{carts: map[identity.Identity]*domain.Cart{}}
}

func (m *memRepo) GetOrCreate(_ context.Context, owner identity.Identity) (domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[owner]
	if !ok {
		c = &domain.Cart{ID: uuid.NewString(), UserID: owner.UserID, SessionKey: owner.SessionKey}
		m.carts[owner] = c
	}
	return *c, nil
}

func (m *memRepo) Find(_ context.Context, owner identity.Identity) (domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[owner]
	if !ok {
		return domain.Cart{}, domain.ErrCartNotFound
	}
	out := *c
	out.Items = append([]domain.Item(nil), c.Items...)
	return out, nil
}

func (m *memRepo) byID(id string) *domain.Cart {
	for _, c := range m.carts {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (m *memRepo) AddItem(_ context.Context, cartID string, productID int64, quantity int) (domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.byID(cartID)
	if c == nil {
		return domain.Item{}, domain.ErrCartNotFound
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity += quantity
			return c.Items[i], nil
		}
	}
	m.nextID++
	it := domain.Item{ID: m.nextID, CartID: cartID, ProductID: productID, Quantity: quantity}
	c.Items = append(c.Items, it)
	return it, nil
}

func (m *memRepo) SetQuantity(_ context.Context, cartID string, itemID int64, quantity int) (domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c := m.byID(cartID); c != nil {
		for i := range c.Items {
			if c.Items[i].ID == itemID {
				c.Items[i].Quantity = quantity
				return c.Items[i], nil
			}
		}
	}
	return domain.Item{}, domain.ErrItemNotFound
}

func (m *memRepo) RemoveItem(_ context.Context, cartID string, itemID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c := m.byID(cartID); c != nil {
		for i := range c.Items {
			if c.Items[i].ID == itemID {
				c.Items = append(c.Items[:i], c.Items[i+1:]...)
				return nil
			}
		}
	}
	return domain.ErrItemNotFound
}

func (m *memRepo) Clear(_ context.Context, cartID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c := m.byID(cartID); c != nil {
		c.Items = nil
	}
	return nil
}

type staticProducts map[int64]bool

func (s staticProducts) Exists(_ context.Context, id int64) (bool, error) { return s[id], nil }

func newTestService() (*Service, *memRepo) {
	repo := newMemRepo()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(log, repo, staticProducts{1: true, 2: true}), repo
}

func TestGetOrCreateIsStablePerOwner(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	a, err := svc.GetOrCreate(ctx, identity.User("u1"))
	require.NoError(t, err)
	b, err := svc.GetOrCreate(ctx, identity.User("u1"))
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)

	s, err := svc.GetOrCreate(ctx, identity.Session("sess-1"))
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, s.ID)

	_, err = svc.GetOrCreate(ctx, identity.Identity{})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.GetOrCreate(ctx, identity.Identity{UserID: "u1", SessionKey: "s"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestAddItemAccumulates(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	c, err := svc.GetOrCreate(ctx, identity.User("u1"))
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, c.ID, 1, 2)
	require.NoError(t, err)
	it, err := svc.AddItem(ctx, c.ID, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, it.Quantity)

	got, err := svc.Find(ctx, identity.User("u1"))
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 5, got.Items[0].Quantity)
}

func TestAddItemRejects(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	c, err := svc.GetOrCreate(ctx, identity.Session("s"))
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, c.ID, 1, 0)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.AddItem(ctx, c.ID, 1, -4)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.AddItem(ctx, c.ID, 99, 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.AddItem(ctx, c.ID, 1, domain.MaxQuantity+1)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestAddItemConcurrentSameProduct(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	c, err := svc.GetOrCreate(ctx, identity.User("u1"))
	require.NoError(t, err)

	var g errgroup.Group
	for i := 0; i < 20; i++ {
		g.Go(func() error {
			_, err := svc.AddItem(ctx, c.ID, 2, 1)
			return err
		})
	}
	require.NoError(t, g.Wait())

	got, err := repo.Find(ctx, identity.User("u1"))
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 20, got.Items[0].Quantity)
}

func TestUpdateItemQuantity(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	c, err := svc.GetOrCreate(ctx, identity.User("u1"))
	require.NoError(t, err)
	it, err := svc.AddItem(ctx, c.ID, 1, 2)
	require.NoError(t, err)

	t.Run("overwrites", func(t *testing.T) {
		got, removed, err := svc.UpdateItemQuantity(ctx, c.ID, it.ID, 7)
		require.NoError(t, err)
		assert.False(t, removed)
		assert.Equal(t, 7, got.Quantity)
	})

	t.Run("zero removes", func(t *testing.T) {
		_, removed, err := svc.UpdateItemQuantity(ctx, c.ID, it.ID, 0)
		require.NoError(t, err)
		assert.True(t, removed)

		got, err := svc.Find(ctx, identity.User("u1"))
		require.NoError(t, err)
		assert.Empty(t, got.Items)
	})

	t.Run("above column range", func(t *testing.T) {
		_, _, err := svc.UpdateItemQuantity(ctx, c.ID, it.ID, domain.MaxQuantity+1)
		assert.ErrorIs(t, err, domain.ErrQuantityTooLarge)
	})

	t.Run("missing item", func(t *testing.T) {
		_, _, err := svc.UpdateItemQuantity(ctx, c.ID, 12345, 1)
		assert.True(t, errors.Is(err, apperr.ErrNotFound))
	})
}

func TestRemoveItemScopedToCart(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	mine, err := svc.GetOrCreate(ctx, identity.User("u1"))
	require.NoError(t, err)
	theirs, err := svc.GetOrCreate(ctx, identity.User("u2"))
	require.NoError(t, err)
	it, err := svc.AddItem(ctx, theirs.ID, 1, 1)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.RemoveItem(ctx, mine.ID, it.ID), apperr.ErrNotFound)
	assert.NoError(t, svc.RemoveItem(ctx, theirs.ID, it.ID))
	assert.ErrorIs(t, svc.RemoveItem(ctx, theirs.ID, it.ID), apperr.ErrNotFound)
}

func TestClearIsIdempotent(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	c, err := svc.GetOrCreate(ctx, identity.User("u1"))
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, c.ID, 1, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, c.ID, 2, 1)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, c.ID))
	require.NoError(t, svc.Clear(ctx, c.ID))

	got, err := svc.Find(ctx, identity.User("u1"))
	require.NoError(t, err)
	assert.Empty(t, got.Items)
	assert.Equal(t, c.ID, got.ID)
}
