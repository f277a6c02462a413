package lti

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MemoryNonceStore keeps seen nonces in process memory. Good enough
// for a single instance; multi-instance deployments should use Redis.
type MemoryNonceStore struct {
	mu    sync.Mutex
	seen  map[string]time.Time
	now   func() time.Time
}

func NewMemoryNonceStore() *MemoryNonceStore {
	return &MemoryNonceStore{
		seen: make(map[string]time.Time),
		now:  time.Now,
	}
}

func (m *MemoryNonceStore) SeenOrStore(_ context.Context, nonce string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for n, expires := range m.seen {
		if now.After(expires) {
			delete(m.seen, n)
		}
	}
	if _, ok := m.seen[nonce]; ok {
		return true, nil
	}
	m.seen[nonce] = now.Add(ttl)
	return false, nil
}

// RedisNonceStore shares nonce state across instances through Redis.
type RedisNonceStore struct {
	client *redis.Client
}

func NewRedisNonceStore(client *redis.Client) *RedisNonceStore {
	return &RedisNonceStore{client: client}
}

func (r *RedisNonceStore) SeenOrStore(ctx context.Context, nonce string, ttl time.Duration) (bool, error) {
	stored, err := r.client.SetNX(ctx, "lti:nonce:"+nonce, "1", ttl).Result()
	if err != nil {
		return false, err
	}
	return !stored, nil
}
