package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/andresuchdata/invintel/internal/domain"
)

const (
	defaultCacheTTL   = 5 * time.Minute
	defaultMaxEntries = 32
)

// memoryCache keeps snapshots in process. Entries are shared pointers and must
// not be modified by callers.
type memoryCache struct {
	lru *expirable.LRU[string, *domain.Snapshot]
}

func NewMemoryCache(maxEntries int, ttl time.Duration) SnapshotCache {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &memoryCache{lru: expirable.NewLRU[string, *domain.Snapshot](maxEntries, nil, ttl)}
}

func (c *memoryCache) GetSnapshot(ctx context.Context, key string) (*domain.Snapshot, bool, error) {
	snap, ok := c.lru.Get(key)
	return snap, ok, nil
}

func (c *memoryCache) SetSnapshot(ctx context.Context, key string, snap *domain.Snapshot) error {
	c.lru.Add(key, snap)
	return nil
}

func (c *memoryCache) InvalidateAll(ctx context.Context) error {
	c.lru.Purge()
	return nil
}
