// Package tokens maps opaque bearer tokens to user ids with a bounded lifetime.
package tokens

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownToken is returned when a token is absent, revoked or expired.
var ErrUnknownToken = errors.New("unknown token")

// Store is the token-to-user mapping.
type Store interface {
	Issue(ctx context.Context, userID string) (string, error)
	Resolve(ctx context.Context, token string) (string, error)
	Revoke(ctx context.Context, token string) error
	Ping(ctx context.Context) error
}

// DefaultTTL is how long an issued token stays valid.
const DefaultTTL = 24 * time.Hour

func key(token string) string {
	return "auth_" + token
}

func newToken() string {
	return uuid.NewString()
}
