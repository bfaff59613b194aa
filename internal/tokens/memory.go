package tokens

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// maxMemoryTokens bounds the in-process store; the least recently used token is evicted first.
const maxMemoryTokens = 10000

// MemoryStore is an in-process Store for development and tests.
// Tokens do not survive a restart and are not shared between processes.
type MemoryStore struct {
	cache *expirable.LRU[string, string]
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{cache: expirable.NewLRU[string, string](maxMemoryTokens, nil, ttl)}
}

func (s *MemoryStore) Issue(_ context.Context, userID string) (string, error) {
	token := newToken()
	s.cache.Add(key(token), userID)
	return token, nil
}

func (s *MemoryStore) Resolve(_ context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrUnknownToken
	}
	userID, ok := s.cache.Get(key(token))
	if !ok {
		return "", ErrUnknownToken
	}
	return userID, nil
}

func (s *MemoryStore) Revoke(_ context.Context, token string) error {
	if !s.cache.Remove(key(token)) {
		return ErrUnknownToken
	}
	return nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}
