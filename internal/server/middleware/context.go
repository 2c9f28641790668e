package middleware

import (
	"context"

	"github.com/gosuda/fieldops/internal/auth"
)

type contextKey string

const (
	ContextKeySchema   contextKey = "schema"
	ContextKeyUserID   contextKey = "user_id"
	ContextKeyUsername contextKey = "username"
)

// WithIdentity stores an authenticated caller in ctx.
func WithIdentity(ctx context.Context, id auth.Identity) context.Context {
	ctx = context.WithValue(ctx, ContextKeySchema, id.Schema)
	ctx = context.WithValue(ctx, ContextKeyUserID, id.UID)
	ctx = context.WithValue(ctx, ContextKeyUsername, id.Username)
	return ctx
}

func SchemaFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextKeySchema).(string)
	return v, ok && v != ""
}

func UserIDFromContext(ctx context.Context) (int64, bool) {
	v, ok := ctx.Value(ContextKeyUserID).(int64)
	return v, ok
}

func UsernameFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextKeyUsername).(string)
	return v, ok
}

// IdentityFromContext reassembles the caller stored by Auth.
func IdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	schema, ok := SchemaFromContext(ctx)
	if !ok {
		return auth.Identity{}, false
	}
	uid, ok := UserIDFromContext(ctx)
	if !ok {
		return auth.Identity{}, false
	}
	username, _ := UsernameFromContext(ctx)
	return auth.Identity{UID: uid, Username: username, Schema: schema}, true
}
