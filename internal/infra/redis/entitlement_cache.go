package redis

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"fitness-subscription-platform/internal/infra/metrics"
	"fitness-subscription-platform/internal/usecase"
)

var _ usecase.EntitlementCache = (*EntitlementCache)(nil)

// EntitlementCache stores positive "user has access" answers with a TTL that
// never outlives the subscription itself. Redis being down degrades to a
// database read on every check, never to a wrong answer.
type EntitlementCache struct {
	client RedisClient
	ttl    time.Duration
	log    *zerolog.Logger
}

func NewEntitlementCache(client RedisClient, ttl time.Duration, logger *zerolog.Logger) *EntitlementCache {
	return &EntitlementCache{client: client, ttl: ttl, log: logger}
}

func entitlementKey(userID string) string { return "entitlement:" + userID }

func (c *EntitlementCache) IsEntitled(ctx context.Context, userID string) bool {
	_, err := c.client.Get(ctx, entitlementKey(userID))
	if err != nil {
		if !errors.Is(err, ErrNil) {
			c.log.Warn().Err(err).Msg("entitlement cache read failed")
		}
		metrics.IncEntitlementCache("miss")
		return false
	}
	metrics.IncEntitlementCache("hit")
	return true
}

func (c *EntitlementCache) MarkEntitled(ctx context.Context, userID string, until time.Time) {
	ttl := c.ttl
	if remaining := time.Until(until); remaining < ttl {
		ttl = remaining
	}
	if ttl <= 0 {
		return
	}
	if err := c.client.Set(ctx, entitlementKey(userID), "1", ttl); err != nil {
		c.log.Warn().Err(err).Msg("entitlement cache write failed")
	}
}

func (c *EntitlementCache) Invalidate(ctx context.Context, userID string) {
	if err := c.client.Del(ctx, entitlementKey(userID)); err != nil {
		c.log.Warn().Err(err).Msg("entitlement cache invalidate failed")
	}
	metrics.IncEntitlementCache("invalidate")
}
