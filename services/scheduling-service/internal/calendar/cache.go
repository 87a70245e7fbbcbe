package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// cacheStore is the slice of the Redis client the cache needs.
type cacheStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// CachedEventTypes keeps event type metadata in Redis. Only templates are
// cached; available times always go to the provider.
type CachedEventTypes struct {
	next   EventTypeSource
	store  cacheStore
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

func NewCachedEventTypes(next EventTypeSource, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedEventTypes {
	return newCachedEventTypes(next, rdb, ttl, logger)
}

func newCachedEventTypes(next EventTypeSource, store cacheStore, ttl time.Duration, logger *slog.Logger) *CachedEventTypes {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedEventTypes{next: next, store: store, ttl: ttl, prefix: "callbook:event_type", logger: logger}
}

func (c *CachedEventTypes) EventType(ctx context.Context, id string) (EventType, error) {
	key := c.prefix + ":" + eventTypeUUID(id)

	raw, err := c.store.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var et EventType
		if jsonErr := json.Unmarshal(raw, &et); jsonErr == nil {
			return et, nil
		}
		c.logger.Warn("discarding corrupt event type cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("event type cache read failed", "key", key, "err", err)
	}

	et, err := c.next.EventType(ctx, id)
	if err != nil {
		return EventType{}, err
	}
	if strings.TrimSpace(et.URI) == "" {
		return et, nil
	}
	if b, err := json.Marshal(et); err == nil {
		if err := c.store.Set(ctx, key, b, c.ttl).Err(); err != nil {
			c.logger.Warn("event type cache write failed", "key", key, "err", err)
		}
	}
	return et, nil
}
