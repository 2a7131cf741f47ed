// Package ctxutil carries request-scoped values through context.Context.
package ctxutil

import (
	"context"
	"slices"
)

type ctxKey string

const (
	identityKey  ctxKey = "identity"
	requestIDKey ctxKey = "request_id"
)

// Identity is the authenticated caller of a request.
type Identity struct {
	AccountID int64
	Email     string
	Roles     []string
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool { return slices.Contains(i.Roles, "admin") }

// WithIdentity stores the caller in the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromCtx extracts the caller from the context.
// Returns false if the value is missing, has no account id, or has the wrong type.
func IdentityFromCtx(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	if !ok || id.AccountID <= 0 {
		return Identity{}, false
	}
	return id, true
}

// IsAdminCtx reports whether the context caller is an administrator.
func IsAdminCtx(ctx context.Context) bool {
	id, ok := IdentityFromCtx(ctx)
	return ok && id.IsAdmin()
}

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromCtx extracts the request ID from the context.
// Returns an empty string if absent.
func RequestIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
