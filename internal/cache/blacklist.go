// Package cache provides a Redis read-through cache in front of a blacklist
// repository.
//
// Only found entries are cached, so a new entry is visible to the next lookup
// of an email that had none. Every insert drops the email's cached entry: two
// concurrent creates can commit out of created_at order, and the earlier one
// must replace whatever the later one left in Redis. A lookup racing an insert
// can still repopulate the key until the TTL expires.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ignite/blacklist-api/internal/domain"
	"github.com/ignite/blacklist-api/internal/pkg/logger"
	"github.com/ignite/blacklist-api/internal/service/blacklist"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "blacklist:entry:"

// DefaultTTL is used when a non-positive TTL is configured.
const DefaultTTL = time.Hour

// BlacklistCache decorates a blacklist.Repository with Redis lookups.
type BlacklistCache struct {
	next   blacklist.Repository
	client *redis.Client
	ttl    time.Duration
}

// NewBlacklistCache wraps next with a Redis cache.
func NewBlacklistCache(next blacklist.Repository, client *redis.Client, ttl time.Duration) *BlacklistCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &BlacklistCache{next: next, client: client, ttl: ttl}
}

func key(email string) string { return keyPrefix + email }

// Insert writes through to the underlying repository, then invalidates the
// email's cached entry. A Redis failure does not fail the insert.
func (c *BlacklistCache) Insert(ctx context.Context, e *domain.BlacklistEntry) error {
	if err := c.next.Insert(ctx, e); err != nil {
		return err
	}
	if err := c.client.Del(ctx, key(e.Email)).Err(); err != nil {
		logger.Warn("cache: redis del failed", "email", e.Email, "error", err)
	}
	return nil
}

// FindByEmail serves from Redis when possible. Redis failures fall back to
// the underlying repository.
func (c *BlacklistCache) FindByEmail(ctx context.Context, email string) (*domain.BlacklistEntry, error) {
	raw, err := c.client.Get(ctx, key(email)).Bytes()
	switch {
	case err == nil:
		var e domain.BlacklistEntry
		if jerr := json.Unmarshal(raw, &e); jerr == nil {
			return &e, nil
		}
		logger.Warn("cache: discarding undecodable entry", "email", email)
	case !errors.Is(err, redis.Nil):
		logger.Warn("cache: redis get failed", "email", email, "error", err)
	}

	e, err := c.next.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if data, jerr := json.Marshal(e); jerr == nil {
		if serr := c.client.Set(ctx, key(email), data, c.ttl).Err(); serr != nil {
			logger.Warn("cache: redis set failed", "email", email, "error", serr)
		}
	}
	return e, nil
}

// Ping checks the underlying repository. Redis health is reported
// separately by the readiness probe.
func (c *BlacklistCache) Ping(ctx context.Context) error {
	return c.next.Ping(ctx)
}
