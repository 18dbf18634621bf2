// Package cache wraps a region store with a Redis read-through cache. The
// hierarchy changes on electoral-boundary reviews, i.e. rarely; a short TTL
// keeps dev and prod behaviour identical without invalidation plumbing.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	platformredis "ardhi/internal/platform/redis"
	"ardhi/internal/region/models"
)

// Store is the wrapped lookup interface.
type Store interface {
	FindCounty(ctx context.Context, name string) (*models.County, error)
}

// CachedStore serves county subtrees from Redis, falling back to the
// underlying store on miss. Cache failures degrade to direct lookups.
type CachedStore struct {
	next   Store
	client *platformredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func New(next Store, client *platformredis.Client, ttl time.Duration, logger *slog.Logger) *CachedStore {
	return &CachedStore{next: next, client: client, ttl: ttl, logger: logger}
}

func (c *CachedStore) FindCounty(ctx context.Context, name string) (*models.County, error) {
	key := "region:county:" + name

	if c.client != nil {
		raw, err := c.client.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var county models.County
			if err := json.Unmarshal(raw, &county); err == nil {
				return &county, nil
			}
			// Corrupt entry: fall through to the store and rewrite it.
		case !errors.Is(err, goredis.Nil):
			c.logger.Warn("region cache read failed", "county", name, "error", err)
		}
	}

	county, err := c.next.FindCounty(ctx, name)
	if err != nil {
		return nil, err
	}

	if c.client != nil {
		if raw, err := json.Marshal(county); err == nil {
			if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
				c.logger.Warn("region cache write failed", "county", name, "error", err)
			}
		}
	}
	return county, nil
}
