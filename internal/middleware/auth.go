package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/PaulBabatuyi/files-manager/internal/access"
	"github.com/PaulBabatuyi/files-manager/internal/common"
	"go.uber.org/zap"
)

// TokenHeader carries the opaque session token.
const TokenHeader = "X-Token"

type identityKey struct{}

// IdentityResolver is satisfied by *access.Resolver.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, token string) (access.Identity, error)
}

// Authenticate resolves the X-Token header into an access.Identity stored on
// the request context. Missing or unknown tokens leave the caller anonymous;
// each operation decides whether that is enough.
func Authenticate(resolver IdentityResolver, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(TokenHeader)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			id, err := resolver.ResolveIdentity(r.Context(), token)
			if err != nil && !errors.Is(err, common.ErrUnauthorized) {
				logger.Error("token lookup failed", zap.Error(err))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":"Internal server error"}`))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func WithIdentity(ctx context.Context, id access.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller set by Authenticate, or an anonymous one.
func IdentityFrom(ctx context.Context) access.Identity {
	id, _ := ctx.Value(identityKey{}).(access.Identity)
	return id
}
