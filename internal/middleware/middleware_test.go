package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/PaulBabatuyi/files-manager/internal/access"
	"github.com/PaulBabatuyi/files-manager/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type resolverFunc func(ctx context.Context, token string) (access.Identity, error)

func (f resolverFunc) ResolveIdentity(ctx context.Context, token string) (access.Identity, error) {
	return f(ctx, token)
}

func tokenResolver(valid, userID string) resolverFunc {
	return func(_ context.Context, token string) (access.Identity, error) {
		if token == valid {
			return access.User(userID), nil
		}
		return access.Anonymous(), common.ErrUnauthorized
	}
}

func serveIdentity(t *testing.T, h func(http.Handler) http.Handler, token string) (*httptest.ResponseRecorder, access.Identity) {
	t.Helper()
	var seen access.Identity
	handler := h(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = IdentityFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/files", nil)
	if token != "" {
		req.Header.Set(TokenHeader, token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seen
}

func TestAuthenticate(t *testing.T) {
	mw := Authenticate(tokenResolver("good", "u1"), zap.NewNop())

	rec, id := serveIdentity(t, mw, "good")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, access.User("u1"), id)

	_, id = serveIdentity(t, mw, "bad")
	assert.True(t, id.IsAnonymous())

	_, id = serveIdentity(t, mw, "")
	assert.True(t, id.IsAnonymous())
}

func TestAuthenticate_StoreFailure(t *testing.T) {
	mw := Authenticate(resolverFunc(func(context.Context, string) (access.Identity, error) {
		return access.Anonymous(), errors.New("redis: connection refused")
	}), zap.NewNop())

	rec, _ := serveIdentity(t, mw, "any")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := RequestLogger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/files", nil))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "POST", fields["method"])
	assert.Equal(t, int64(http.StatusTeapot), fields["status"])
	assert.Equal(t, int64(5), fields["bytes"])
}

func TestRequestLogger_ServerErrorsAtErrorLevel(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := RequestLogger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zap.ErrorLevel, logs.All()[0].Level)
}

func TestChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), tag("outer"), tag("inner"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}
