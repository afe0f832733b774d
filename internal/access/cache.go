package access

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const cacheVersionKey = "access:version"

// ContextSource computes a fresh permission context.
type ContextSource interface {
	Resolve(ctx context.Context, userID int64) (Context, error)
}

// CacheMetrics counts cache outcomes. Optional.
type CacheMetrics interface {
	CacheHit()
	CacheMiss()
}

// Cache fronts a ContextSource with versioned Redis entries. Invalidating a
// single user deletes their key; invalidating everything bumps the version,
// which orphans every existing key at once. Concurrent resolves for the same
// user are collapsed through singleflight. With a nil client or a
// non-positive TTL the cache degrades to a passthrough.
type Cache struct {
	client  *redis.Client
	source  ContextSource
	ttl     time.Duration
	group   singleflight.Group
	metrics CacheMetrics
}

// NewCache builds a Cache. Metrics may be nil.
func NewCache(client *redis.Client, source ContextSource, ttl time.Duration, metrics CacheMetrics) *Cache {
	return &Cache{client: client, source: source, ttl: ttl, metrics: metrics}
}

// Resolve returns the cached context for a user, computing and storing it on
// a miss. A Redis read failure falls back to a direct resolve.
func (c *Cache) Resolve(ctx context.Context, userID int64) (Context, error) {
	if c.client == nil || c.ttl <= 0 {
		return c.source.Resolve(ctx, userID)
	}
	key, err := c.key(ctx, userID)
	if err != nil {
		return c.source.Resolve(ctx, userID)
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var cached Context
		if err := json.Unmarshal(raw, &cached); err == nil {
			c.hit()
			return cached, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return c.source.Resolve(ctx, userID)
	}
	c.miss()

	resultChan := c.group.DoChan(key, func() (interface{}, error) {
		resolved, err := c.source.Resolve(ctx, userID)
		if err != nil {
			return Context{}, err
		}
		if encoded, err := json.Marshal(resolved); err == nil {
			c.client.Set(ctx, key, encoded, c.ttl)
		}
		return resolved, nil
	})
	select {
	case <-ctx.Done():
		return Context{}, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return Context{}, res.Err
		}
		return res.Val.(Context), nil
	}
}

// Invalidate drops one user's cached context.
func (c *Cache) Invalidate(ctx context.Context, userID int64) error {
	if c.client == nil || c.ttl <= 0 {
		return nil
	}
	key, err := c.key(ctx, userID)
	if err != nil {
		return err
	}
	return c.client.Del(ctx, key).Err()
}

// InvalidateAll bumps the cache version, orphaning every cached context.
// Orphaned keys expire on their own TTL.
func (c *Cache) InvalidateAll(ctx context.Context) error {
	if c.client == nil || c.ttl <= 0 {
		return nil
	}
	return c.client.Incr(ctx, cacheVersionKey).Err()
}

func (c *Cache) key(ctx context.Context, userID int64) (string, error) {
	ver, err := c.version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("access:ctx:v%d:%d", ver, userID), nil
}

func (c *Cache) version(ctx context.Context) (int64, error) {
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.Set(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

func (c *Cache) hit() {
	if c.metrics != nil {
		c.metrics.CacheHit()
	}
}

func (c *Cache) miss() {
	if c.metrics != nil {
		c.metrics.CacheMiss()
	}
}
