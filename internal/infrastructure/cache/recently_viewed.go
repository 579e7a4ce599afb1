package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	RecentlyViewedLimit = 10
	recentlyViewedTTL   = 30 * 24 * time.Hour
	recentPrefix        = "recent:"
)

// RecentlyViewed keeps the last distinct products a session opened, most
// recent first.
type RecentlyViewed interface {
	Add(ctx context.Context, sessionID, productID string) error
	List(ctx context.Context, sessionID string) ([]string, error)
}

type RedisRecentlyViewed struct {
	rdb redis.UniversalClient
}

func NewRedisRecentlyViewed(rdb redis.UniversalClient) *RedisRecentlyViewed {
	return &RedisRecentlyViewed{rdb: rdb}
}

func (r *RedisRecentlyViewed) Add(ctx context.Context, sessionID, productID string) error {
	key := recentPrefix + sessionID
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LRem(ctx, key, 0, productID)
		p.LPush(ctx, key, productID)
		p.LTrim(ctx, key, 0, RecentlyViewedLimit-1)
		p.Expire(ctx, key, recentlyViewedTTL)
		return nil
	})
	return err
}

func (r *RedisRecentlyViewed) List(ctx context.Context, sessionID string) ([]string, error) {
	ids, err := r.rdb.LRange(ctx, recentPrefix+sessionID, 0, RecentlyViewedLimit-1).Result()
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

type MemoryRecentlyViewed struct {
	mu    sync.Mutex
	lists map[string][]string
}

func NewMemoryRecentlyViewed() *MemoryRecentlyViewed {
	return &MemoryRecentlyViewed{lists: make(map[string][]string)}
}

func (m *MemoryRecentlyViewed) Add(_ context.Context, sessionID, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := []string{productID}
	for _, id := range m.lists[sessionID] {
		if id != productID && len(next) < RecentlyViewedLimit {
			next = append(next, id)
		}
	}
	m.lists[sessionID] = next
	return nil
}

func (m *MemoryRecentlyViewed) List(_ context.Context, sessionID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.lists[sessionID]...), nil
}

var (
	_ RecentlyViewed = (*RedisRecentlyViewed)(nil)
	_ RecentlyViewed = (*MemoryRecentlyViewed)(nil)
)
