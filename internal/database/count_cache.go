package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eitanMobb/marinus-sm/internal/domain"
	"github.com/eitanMobb/marinus-sm/internal/filter"
	"github.com/eitanMobb/marinus-sm/internal/support"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const countCachePrefix = "marinus:count:"

type recordStore interface {
	Find(ctx context.Context, predicate filter.Predicate, page filter.Page) ([]domain.IPRecord, error)
	Count(ctx context.Context, predicate filter.Predicate) (int64, error)
}

// CountCache keeps collection counts in Redis for ttl. Lists always go to the
// underlying store; only Count is cached.
type CountCache struct {
	next   recordStore
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

func NewCountCache(next recordStore, client *redis.Client, ttl time.Duration) *CountCache {
	return &CountCache{
		next:   next,
		client: client,
		ttl:    ttl,
	}
}

func (c *CountCache) Find(ctx context.Context, predicate filter.Predicate, page filter.Page) ([]domain.IPRecord, error) {
	return c.next.Find(ctx, predicate, page)
}

func (c *CountCache) Count(ctx context.Context, predicate filter.Predicate) (int64, error) {
	key := countCacheKey(predicate)

	cached, err := c.client.Get(ctx, key).Int64()
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, redis.Nil) {
		log.Warn("count cache read failed, falling back to store", "key", key, "error", err)
	}

	// The shared lookup outlives any single caller; each caller waits on its
	// own context.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		count, err := c.next.Count(shared, predicate)
		if err != nil {
			return int64(0), err
		}
		if setErr := c.client.Set(shared, key, count, c.ttl).Err(); setErr != nil {
			log.Warn("count cache write failed", "key", key, "error", setErr)
		}
		return count, nil
	})

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return 0, res.Err
		}
		return res.Val.(int64), nil
	}
}

// Refresh recomputes the count for predicate and overwrites the cached value.
func (c *CountCache) Refresh(ctx context.Context, predicate filter.Predicate) (int64, error) {
	count, err := c.next.Count(ctx, predicate)
	if err != nil {
		return 0, err
	}
	if err := c.client.Set(ctx, countCacheKey(predicate), count, c.ttl).Err(); err != nil {
		return count, fmt.Errorf("database: store cached count: %w", err)
	}
	return count, nil
}

// Ping checks the underlying store; a Redis outage only degrades caching.
func (c *CountCache) Ping(ctx context.Context) error {
	if pinger, ok := c.next.(interface{ Ping(context.Context) error }); ok {
		return pinger.Ping(ctx)
	}
	return nil
}

func countCacheKey(predicate filter.Predicate) string {
	return fmt.Sprintf("%s%016x", countCachePrefix, support.HashString(predicate.Key()))
}
