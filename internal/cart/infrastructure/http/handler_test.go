package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/storefront/internal/cart/application"
	"github.com/dmehra2102/storefront/internal/cart/domain"
	"github.com/dmehra2102/storefront/pkg/identity"
)

type stubRepo struct {
	mu    sync.Mutex
	carts map[identity.Identity]*domain.Cart
	next  int64
}

func (s *stubRepo) GetOrCreate(_ context.Context, owner identity.Identity) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.carts[owner]; ok {
		return *c, nil
	}
	c := &domain.Cart{ID: "cart-" + owner.UserID + owner.SessionKey, UserID: owner.UserID, SessionKey: owner.SessionKey}
	s.carts[owner] = c
	return *c, nil
}

func (s *stubRepo) Find(_ context.Context, owner identity.Identity) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.carts[owner]; ok {
		return *c, nil
	}
	return domain.Cart{}, domain.ErrCartNotFound
}

func (s *stubRepo) cart(id string) *domain.Cart {
	for _, c := range s.carts {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (s *stubRepo) AddItem(_ context.Context, cartID string, productID int64, q int) (domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cart(cartID)
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity += q
			return c.Items[i], nil
		}
	}
	s.next++
	it := domain.Item{ID: s.next, CartID: cartID, ProductID: productID, ProductName: "Mug", UnitPrice: decimal.RequireFromString("4.50"), Quantity: q}
	c.Items = append(c.Items, it)
	return it, nil
}

func (s *stubRepo) SetQuantity(_ context.Context, cartID string, itemID int64, q int) (domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.cart(cartID); c != nil {
		for i := range c.Items {
			if c.Items[i].ID == itemID {
				c.Items[i].Quantity = q
				return c.Items[i], nil
			}
		}
	}
	return domain.Item{}, domain.ErrItemNotFound
}

func (s *stubRepo) RemoveItem(_ context.Context, cartID string, itemID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.cart(cartID); c != nil {
		for i := range c.Items {
			if c.Items[i].ID == itemID {
				c.Items = append(c.Items[:i], c.Items[i+1:]...)
				return nil
			}
		}
	}
	return domain.ErrItemNotFound
}

func (s *stubRepo) Clear(_ context.Context, cartID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.cart(cartID); c != nil {
		c.Items = nil
	}
	return nil
}

type anyProduct struct{}

func (anyProduct) Exists(_ context.Context, id int64) (bool, error) { return id < 100, nil }

func newServer(t *testing.T, who identity.Identity) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := application.NewService(log, &stubRepo{carts: map[identity.Identity]*domain.Cart{}}, anyProduct{})
	routes := NewHandler(log, svc).Routes()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		routes.ServeHTTP(w, r.WithContext(identity.WithIdentity(r.Context(), who)))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out := map[string]any{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestAddAcceptsStringQuantityAndAccumulates(t *testing.T) {
	srv := newServer(t, identity.Session("s1"))

	status, body := do(t, srv, http.MethodPost, "/add", `{"product": 3, "quantity": "2"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Item added to cart", body["message"])

	status, body = do(t, srv, http.MethodPost, "/add", `{"product": "3"}`)
	require.Equal(t, http.StatusOK, status)
	item := body["item"].(map[string]any)
	assert.EqualValues(t, 3, item["quantity"])

	status, body = do(t, srv, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 3, body["total_items"])
	assert.Equal(t, "13.5", body["total"])
	assert.Nil(t, body["user"])
	assert.Equal(t, "s1", body["session_key"])
}

func TestAddRejectsBadInput(t *testing.T) {
	srv := newServer(t, identity.User("u1"))

	cases := map[string]struct {
		body   string
		status int
	}{
		"missing product":   {`{"quantity": 1}`, http.StatusBadRequest},
		"non-numeric qty":   {`{"product": 1, "quantity": "two"}`, http.StatusBadRequest},
		"zero qty":          {`{"product": 1, "quantity": 0}`, http.StatusBadRequest},
		"oversized qty":     {`{"product": 1, "quantity": 3000000000}`, http.StatusBadRequest},
		"unknown product":   {`{"product": 500}`, http.StatusNotFound},
		"malformed payload": {`{`, http.StatusBadRequest},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			status, body := do(t, srv, http.MethodPost, "/add", tc.body)
			assert.Equal(t, tc.status, status)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestUpdateAndRemove(t *testing.T) {
	srv := newServer(t, identity.User("u1"))
	_, body := do(t, srv, http.MethodPost, "/add", `{"product": 1, "quantity": 1}`)
	id := body["item"].(map[string]any)["id"]
	path := fmt.Sprintf("/item/%d", int64(id.(float64)))

	status, body := do(t, srv, http.MethodPatch, path, `{"quantity": 4}`)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 4, body["item"].(map[string]any)["quantity"])

	status, _ = do(t, srv, http.MethodPatch, path, `{}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, srv, http.MethodPatch, path, `{"quantity": "3000000000"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = do(t, srv, http.MethodPatch, path, `{"quantity": 0}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Item removed from cart", body["message"])

	status, _ = do(t, srv, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, srv, http.MethodDelete, "/item/abc", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestClearWithoutCartSucceeds(t *testing.T) {
	srv := newServer(t, identity.Session("fresh"))

	status, body := do(t, srv, http.MethodPost, "/clear", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Cart cleared", body["message"])

	status, _ = do(t, srv, http.MethodPatch, "/item/1", `{"quantity": 2}`)
	assert.Equal(t, http.StatusNotFound, status)
}
