package identity

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newResolver() *Resolver {
	return NewResolver(slog.New(slog.NewTextHandler(io.Discard, nil)), testSecret, "sessionid")
}

func capture(t *testing.T, res *Resolver, req *http.Request) (*httptest.ResponseRecorder, Identity) {
	t.Helper()
	var got Identity
	h := res.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := FromContext(r.Context())
		require.True(t, ok)
		got = id
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, got
}

func TestBearerTokenResolvesUser(t *testing.T) {
	token, err := IssueToken(testSecret, "user-42", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec, id := capture(t, newResolver(), req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, User("user-42"), id)
	assert.True(t, id.Authenticated())
	assert.Empty(t, rec.Result().Cookies())
}

func TestInvalidBearerIsRejected(t *testing.T) {
	token, err := IssueToken("other-secret", "user-42", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec, _ := capture(t, newResolver(), req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExpiredBearerIsRejected(t *testing.T) {
	token, err := IssueToken(testSecret, "user-42", -time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec, _ := capture(t, newResolver(), req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExistingSessionCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.AddCookie(&http.Cookie{Name: "sessionid", Value: "abc"})
	rec, id := capture(t, newResolver(), req)

	assert.Equal(t, Session("abc"), id)
	assert.Empty(t, rec.Result().Cookies())
}

func TestSessionMintedOnFirstContact(t *testing.T) {
	rec, id := capture(t, newResolver(), httptest.NewRequest(http.MethodGet, "/api/cart", nil))

	require.NoError(t, id.Validate())
	assert.False(t, id.Authenticated())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sessionid", cookies[0].Name)
	assert.Equal(t, id.SessionKey, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestRequireUser(t *testing.T) {
	res := newResolver()
	h := res.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	anon := httptest.NewRequest(http.MethodGet, "/api/orders/my", nil)
	anon = anon.WithContext(WithIdentity(anon.Context(), Session("s")))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, anon)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	user := httptest.NewRequest(http.MethodGet, "/api/orders/my", nil)
	user = user.WithContext(WithIdentity(user.Context(), User("u1")))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, user)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, User("u").Validate())
	assert.NoError(t, Session("s").Validate())
	assert.Error(t, Identity{}.Validate())
	assert.Error(t, Identity{UserID: "u", SessionKey: "s"}.Validate())
}
