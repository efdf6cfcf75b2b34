package identity

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dmehra2102/storefront/pkg/apperr"
	"github.com/dmehra2102/storefront/pkg/httpx"
)

const sessionMaxAge = 14 * 24 * time.Hour

type Resolver struct {
	log    *slog.Logger
	secret []byte
	cookie string
}

func NewResolver(log *slog.Logger, secret, cookieName string) *Resolver {
	return &Resolver{log: log, secret: []byte(secret), cookie: cookieName}
}

// Middleware attaches an Identity to every request. A bearer token wins;
// otherwise the session cookie is used, and a fresh session key is minted
// when the caller has none.
func (res *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token, ok := bearer(r); ok {
			userID, err := res.verify(token)
			if err != nil {
				httpx.Error(w, r, res.log, fmt.Errorf("%w: %v", apperr.ErrUnauthenticated, err))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), User(userID))))
			return
		}

		if c, err := r.Cookie(res.cookie); err == nil && c.Value != "" {
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), Session(c.Value))))
			return
		}

		key := uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     res.cookie,
			Value:    key,
			Path:     "/",
			MaxAge:   int(sessionMaxAge.Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), Session(key))))
	})
}

// RequireUser rejects callers that are not authenticated.
func (res *Resolver) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := FromContext(r.Context())
		if !ok || !id.Authenticated() {
			httpx.Error(w, r, res.log, fmt.Errorf("%w: authentication required", apperr.ErrUnauthenticated))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (res *Resolver) verify(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return res.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// IssueToken signs an access token for userID. Used by tests and local
// tooling; production tokens come from the auth service.
func IssueToken(secret, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}).SignedString([]byte(secret))
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return "", false
	}
	return strings.TrimSpace(h[7:]), true
}
