package idempotency

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmehra2102/storefront/pkg/httpx"
	"github.com/dmehra2102/storefront/pkg/identity"
)

const Header = "Idempotency-Key"

type Claimer interface {
	Key(parts ...any) string
	Seen(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Middleware rejects a repeated Idempotency-Key from the same caller with 409.
// The claim is dropped again when the wrapped handler fails or panics, so a
// failed request may be retried with the same key. Requests without the
// header pass straight through.
func Middleware(log *slog.Logger, store Claimer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(Header)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			owner := "anon"
			if id, ok := identity.FromContext(r.Context()); ok {
				owner = id.UserID + id.SessionKey
			}
			key := store.Key("http", r.Method, r.URL.Path, owner, raw)

			seen, err := store.Seen(r.Context(), key)
			if err != nil {
				log.ErrorContext(r.Context(), "idempotency check failed", "err", err)
				httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"error": "idempotency store unavailable"})
				return
			}
			if seen {
				httpx.JSON(w, http.StatusConflict, map[string]string{"error": "duplicate request"})
				return
			}

			// Deferred so a panicking handler gives its claim back too.
			ok := false
			defer func() {
				if ok {
					return
				}
				if err := store.Release(context.WithoutCancel(r.Context()), key); err != nil {
					log.Warn("idempotency release failed", "key", key, "err", err)
				}
			}()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			ok = ww.Status() < http.StatusBadRequest
		})
	}
}
