package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"delivery-dispatch-service/internal/domain"
	"delivery-dispatch-service/internal/ports"
)

const routeKeyPrefix = "route:"

// RedisRouteCache stores computed route results in Redis keyed by the
// origin and the set of destinations. Destination order does not matter:
// the key sorts the rounded coordinates so that the same set of stops
// always maps to the same entry.
type RedisRouteCache struct {
	client *redis.Client
	ttl    time.Duration

	hits   atomic.Uint64
	misses atomic.Uint64
}

func NewRedisRouteCache(client *redis.Client, ttl time.Duration) *RedisRouteCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisRouteCache{client: client, ttl: ttl}
}

// routeKey rounds every coordinate to 4 decimal places (roughly 11 m of
// precision) so nearby lookups share cache entries.
func routeKey(origin domain.Coordinate, dests []domain.Coordinate, optimize bool) string {
	parts := make([]string, 0, len(dests))
	for _, d := range dests {
		parts = append(parts, fmt.Sprintf("%.4f,%.4f", d.Lat, d.Lon))
	}
	sort.Strings(parts)

	var b strings.Builder
	b.WriteString(routeKeyPrefix)
	fmt.Fprintf(&b, "%.4f,%.4f", origin.Lat, origin.Lon)
	b.WriteByte(':')
	b.WriteString(strings.Join(parts, ";"))
	if optimize {
		b.WriteString(":opt")
	}
	return b.String()
}

func (c *RedisRouteCache) Get(
	ctx context.Context,
	origin domain.Coordinate,
	dests []domain.Coordinate,
	optimize bool,
) (ports.CachedRoute, bool, error) {
	if c.client == nil {
		return ports.CachedRoute{}, false, errors.New("route cache: client is nil")
	}

	raw, err := c.client.Get(ctx, routeKey(origin, dests, optimize)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.misses.Add(1)
		return ports.CachedRoute{}, false, nil
	}
	if err != nil {
		return ports.CachedRoute{}, false, fmt.Errorf("route cache: get: %w", err)
	}

	var route ports.CachedRoute
	if err := json.Unmarshal(raw, &route); err != nil {
		// A corrupt entry is treated as a miss so the caller recomputes
		// and overwrites it.
		c.misses.Add(1)
		return ports.CachedRoute{}, false, nil
	}

	c.hits.Add(1)
	return route, true, nil
}

func (c *RedisRouteCache) Set(
	ctx context.Context,
	origin domain.Coordinate,
	dests []domain.Coordinate,
	optimize bool,
	route ports.CachedRoute,
) error {
	if c.client == nil {
		return errors.New("route cache: client is nil")
	}

	raw, err := json.Marshal(route)
	if err != nil {
		return fmt.Errorf("route cache: marshal: %w", err)
	}

	if err := c.client.Set(ctx, routeKey(origin, dests, optimize), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("route cache: set: %w", err)
	}
	return nil
}

// InvalidateAll removes every cached route. It scans instead of FLUSHDB so
// unrelated keys in the same database survive.
func (c *RedisRouteCache) InvalidateAll(ctx context.Context) error {
	if c.client == nil {
		return errors.New("route cache: client is nil")
	}

	iter := c.client.Scan(ctx, 0, routeKeyPrefix+"*", 100).Iterator()
	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("route cache: invalidate: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("route cache: scan: %w", err)
	}
	if len(batch) > 0 {
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("route cache: invalidate: %w", err)
		}
	}
	return nil
}

func (c *RedisRouteCache) Stats(ctx context.Context) (ports.CacheStats, error) {
	stats := ports.CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
	if c.client == nil {
		return stats, errors.New("route cache: client is nil")
	}

	iter := c.client.Scan(ctx, 0, routeKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		stats.Entries++
	}
	if err := iter.Err(); err != nil {
		return stats, fmt.Errorf("route cache: scan: %w", err)
	}
	return stats, nil
}
