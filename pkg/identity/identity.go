// Package identity resolves who is calling: an authenticated user or an
// anonymous session. The resolved value travels on the request context from
// the middleware to the handler, which passes it on explicitly.
package identity

import (
	"context"
	"errors"
)

type Identity struct {
	UserID     string
	SessionKey string
}

func User(id string) Identity          { return Identity{UserID: id} }
func Session(key string) Identity      { return Identity{SessionKey: key} }
func (i Identity) Authenticated() bool { return i.UserID != "" }

// Validate enforces that exactly one of the two keys is set.
func (i Identity) Validate() error {
	if (i.UserID == "") == (i.SessionKey == "") {
		return errors.New("identity must carry exactly one of user id or session key")
	}
	return nil
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
