package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/invintel/internal/config"
	"github.com/andresuchdata/invintel/internal/domain"
)

const pingTimeout = 5 * time.Second

// redisCache shares snapshots between API replicas. Entries are JSON
// encoded and expire after the configured TTL.
type redisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to redis and fails fast when it cannot be pinged.
func NewRedisCache(cfg config.CacheConfig) (SnapshotCache, error) {
	opts, err := buildRedisOptions(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	ttl := cfg.TTL()
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &redisCache{client: client, ttl: ttl}, nil
}

func (c *redisCache) GetSnapshot(ctx context.Context, key string) (*domain.Snapshot, bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	snap := new(domain.Snapshot)
	if err := json.Unmarshal(payload, snap); err != nil {
		return nil, false, fmt.Errorf("decode cached snapshot %s: %w", key, err)
	}
	return snap, true, nil
}

func (c *redisCache) SetSnapshot(ctx context.Context, key string, snap *domain.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return c.client.Set(ctx, key, payload, c.ttl).Err()
}

// InvalidateAll unlinks every snapshot key, whatever thresholds produced it.
func (c *redisCache) InvalidateAll(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, snapshotKeyPrefix+":*", scanBatchSize).Iterator()
	batch := make([]string, 0, scanBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := c.client.Unlink(ctx, batch...).Err()
		batch = batch[:0]
		return err
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				return fmt.Errorf("redis unlink snapshots: %w", err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan snapshots: %w", err)
	}
	if err := flush(); err != nil {
		return fmt.Errorf("redis unlink snapshots: %w", err)
	}
	return nil
}

// buildRedisOptions prefers REDIS_URL and falls back to host/port settings.
func buildRedisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		return opts, nil
	}

	host, port := cfg.RedisHost, cfg.RedisPort
	if host == "" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "6379"
	}
	return &redis.Options{
		Addr:     net.JoinHostPort(host, port),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}
