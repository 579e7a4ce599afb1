package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// IdempotencyStore serializes work per key and remembers its result.
type IdempotencyStore interface {
	// Acquire returns a release func when the lock was taken, nil otherwise.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
	Remember(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Recall(ctx context.Context, key string) ([]byte, bool, error)
}

const (
	lockPrefix   = "checkout:lock:"
	resultPrefix = "checkout:result:"
)

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisIdempotency struct {
	rdb redis.UniversalClient
}

func NewRedisIdempotency(rdb redis.UniversalClient) *RedisIdempotency {
	return &RedisIdempotency{rdb: rdb}
}

func (s *RedisIdempotency) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	token := uuid.NewString()
	ok, err := s.rdb.SetNX(ctx, lockPrefix+key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return func(ctx context.Context) error {
		return releaseScript.Run(ctx, s.rdb, []string{lockPrefix + key}, token).Err()
	}, nil
}

func (s *RedisIdempotency) Remember(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.rdb.Set(ctx, resultPrefix+key, value, ttl).Err()
}

func (s *RedisIdempotency) Recall(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := s.rdb.Get(ctx, resultPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// MemoryIdempotency is the single-process fallback used when Redis is not
// configured.
type MemoryIdempotency struct {
	mu      sync.Mutex
	locks   map[string]time.Time
	results map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func NewMemoryIdempotency() *MemoryIdempotency {
	return &MemoryIdempotency{
		locks:   make(map[string]time.Time),
		results: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryIdempotency) Acquire(_ context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if until, held := m.locks[key]; held && now.Before(until) {
		return nil, nil
	}
	until := now.Add(ttl)
	m.locks[key] = until
	return func(context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		if held, ok := m.locks[key]; ok && held.Equal(until) {
			delete(m.locks, key)
		}
		return nil
	}, nil
}

func (m *MemoryIdempotency) Remember(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[key] = memoryEntry{value: append([]byte(nil), value...), expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *MemoryIdempotency) Recall(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.results[key]
	if !ok || !m.now().Before(e.expiresAt) {
		delete(m.results, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

var (
	_ IdempotencyStore = (*RedisIdempotency)(nil)
	_ IdempotencyStore = (*MemoryIdempotency)(nil)
)
