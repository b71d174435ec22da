// Package auth resolves client auth tokens to usernames. Token issuance
// lives elsewhere; these backends only look tokens up.
package auth

import (
	"context"
	"strings"
)

// Store resolves a token. ok is false for unknown, expired or malformed
// tokens; err is reserved for backend failures.
type Store interface {
	Lookup(ctx context.Context, token string) (username string, ok bool, err error)
}

// StoreFunc adapts a function to Store.
type StoreFunc func(ctx context.Context, token string) (string, bool, error)

func (f StoreFunc) Lookup(ctx context.Context, token string) (string, bool, error) {
	return f(ctx, token)
}

func normalize(token string) string {
	token = strings.TrimSpace(token)
	return strings.TrimPrefix(token, "Bearer ")
}
