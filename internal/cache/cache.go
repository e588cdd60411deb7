package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"unit-gateway/internal/models"
)

// Cache holds the last known snapshot per unit under a fixed TTL. An
// expired or missing key means "unknown/offline", never an error.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func New(opts Options) *Cache {
	return &Cache{
		rdb: redis.NewClient(&redis.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		}),
		ttl: opts.TTL,
	}
}

// Key returns the cache key for a unit.
func Key(unitID int64) string {
	return fmt.Sprintf("device:%d", unitID)
}

// Set writes the unit's snapshot, resetting the TTL.
func (c *Cache) Set(ctx context.Context, unitID int64, snap models.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := c.rdb.Set(ctx, Key(unitID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache snapshot for unit %d: %w", unitID, err)
	}
	return nil
}

// Get returns the unit's raw snapshot JSON, or nil when no entry exists.
func (c *Cache) Get(ctx context.Context, unitID int64) ([]byte, error) {
	data, err := c.rdb.Get(ctx, Key(unitID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot for unit %d: %w", unitID, err)
	}
	return data, nil
}

// Ping verifies the Redis connection at startup.
func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close releases the underlying client.
func (c *Cache) Close() error {
	return c.rdb.Close()
}
