// Package cache stores computed dashboard snapshots keyed by their thresholds.
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/andresuchdata/invintel/internal/config"
	"github.com/andresuchdata/invintel/internal/domain"
)

const (
	snapshotKeyPrefix = "invintel:snapshot"
	scanBatchSize     = 100
)

type SnapshotCache interface {
	GetSnapshot(ctx context.Context, key string) (*domain.Snapshot, bool, error)
	SetSnapshot(ctx context.Context, key string, snap *domain.Snapshot) error
	InvalidateAll(ctx context.Context) error
}

// New builds the cache selected by cfg.Backend.
func New(cfg config.CacheConfig) (SnapshotCache, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "memory":
		return NewMemoryCache(cfg.MaxEntries, cfg.TTL()), nil
	case "redis":
		return NewRedisCache(cfg)
	case "none", "noop", "off":
		return NewNoopCache(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// SnapshotKey derives the cache key for a threshold set.
func SnapshotKey(th domain.Thresholds) string {
	if th == domain.DefaultThresholds() {
		return snapshotKeyPrefix + ":default"
	}
	hash := sha1.Sum([]byte(th.Key()))
	return fmt.Sprintf("%s:%s", snapshotKeyPrefix, hex.EncodeToString(hash[:]))
}

type noopCache struct{}

func NewNoopCache() SnapshotCache {
	return &noopCache{}
}

func (n *noopCache) GetSnapshot(ctx context.Context, key string) (*domain.Snapshot, bool, error) {
	return nil, false, nil
}

func (n *noopCache) SetSnapshot(ctx context.Context, key string, snap *domain.Snapshot) error {
	return nil
}

func (n *noopCache) InvalidateAll(ctx context.Context) error {
	return nil
}
