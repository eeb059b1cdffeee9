package payment

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// NonceStore remembers callback nonces for a bounded time so a captured
// valid signature cannot be replayed within the freshness window.
type NonceStore interface {
	// Remember marks the nonce as seen and reports whether it was fresh.
	Remember(ctx context.Context, nonce string, ttl time.Duration) (bool, error)
	// Forget releases a nonce so the gateway's retry of a transiently
	// failed delivery is not mistaken for a replay.
	Forget(ctx context.Context, nonce string) error
}

type MemoryNonceStore struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func NewMemoryNonceStore() *MemoryNonceStore {
	return &MemoryNonceStore{seen: make(map[string]time.Time)}
}

func (s *MemoryNonceStore) Remember(ctx context.Context, nonce string, ttl time.Duration) (bool, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Lazy purge; the set stays small because entries outlive the
	// freshness window only briefly.
	for key, expiry := range s.seen {
		if expiry.Before(now) {
			delete(s.seen, key)
		}
	}

	if expiry, exists := s.seen[nonce]; exists && expiry.After(now) {
		return false, nil
	}
	s.seen[nonce] = now.Add(ttl)
	return true, nil
}

func (s *MemoryNonceStore) Forget(ctx context.Context, nonce string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, nonce)
	return nil
}

// RedisNonceStore shares the seen-set across instances via SETNX.
type RedisNonceStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisNonceStore(rdb *redis.Client) *RedisNonceStore {
	return &RedisNonceStore{rdb: rdb, prefix: "callback:nonce:"}
}

func (s *RedisNonceStore) Remember(ctx context.Context, nonce string, ttl time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, s.prefix+nonce, 1, ttl).Result()
}

func (s *RedisNonceStore) Forget(ctx context.Context, nonce string) error {
	return s.rdb.Del(ctx, s.prefix+nonce).Err()
}
