package http

import (
	"context"

	"landai/app/internal/domain/identity"
)

type contextKey string

const (
	requestIDContextKey contextKey = "landai/request-id"
	userContextKey      contextKey = "landai/user"
)

// RequestIDFromContext extracts the request identifier from the context when available.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if value, ok := ctx.Value(requestIDContextKey).(string); ok {
		return value
	}
	return ""
}

// UserFromContext returns the authenticated user, or nil for anonymous requests.
func UserFromContext(ctx context.Context) *identity.User {
	if ctx == nil {
		return nil
	}
	if user, ok := ctx.Value(userContextKey).(*identity.User); ok {
		return user
	}
	return nil
}

func withUser(ctx context.Context, user *identity.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}
