package auth

import (
	"context"

	"github.com/sipico/vssv/internal/storage"
)

type ctxKey int

const tokenKey ctxKey = iota

// WithToken adds the authenticated token to the context.
func WithToken(ctx context.Context, token *storage.Token) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// TokenFromContext retrieves the authenticated token from context.
// Returns nil if the request has not been authenticated.
func TokenFromContext(ctx context.Context) *storage.Token {
	token, _ := ctx.Value(tokenKey).(*storage.Token)
	return token
}
