package middleware

import (
	"context"

	"github.com/angelmondragon/packfinderz-pos/pkg/session"
	"github.com/google/uuid"
)

type ctxKey int

const (
	userKey ctxKey = iota
	terminalKey
	sessionKey
)

func lookup[T any](ctx context.Context, key ctxKey) (T, bool) {
	var zero T
	if ctx == nil {
		return zero, false
	}
	v, ok := ctx.Value(key).(T)
	return v, ok
}

func attach(ctx context.Context, key ctxKey, value any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, value)
}

// UserIDFromContext reports the authenticated cashier. The nil uuid counts as absent.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := lookup[uuid.UUID](ctx, userKey)
	return id, ok && id != uuid.Nil
}

func TerminalIDFromContext(ctx context.Context) string {
	id, _ := lookup[string](ctx, terminalKey)
	return id
}

// SessionFromContext returns the session store of the acting terminal, or nil.
func SessionFromContext(ctx context.Context) session.Store {
	store, _ := lookup[session.Store](ctx, sessionKey)
	return store
}

func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return attach(ctx, userKey, userID)
}

func WithTerminalID(ctx context.Context, terminalID string) context.Context {
	return attach(ctx, terminalKey, terminalID)
}

func WithSession(ctx context.Context, store session.Store) context.Context {
	return attach(ctx, sessionKey, store)
}
