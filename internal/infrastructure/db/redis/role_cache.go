package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vitaltrack/health-tracker/internal/api/metrics"
	"github.com/vitaltrack/health-tracker/internal/core/domain"
)

const defaultRoleTTL = 5 * time.Minute

// RoleCache keeps user roles in Redis.
// Key format: role:<user_id>
type RoleCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRoleCache wraps client. A non-positive ttl falls back to five minutes.
func NewRoleCache(client *redis.Client, ttl time.Duration) *RoleCache {
	if ttl <= 0 {
		ttl = defaultRoleTTL
	}
	return &RoleCache{client: client, ttl: ttl}
}

// Get reports a miss, not an error, when the key is absent.
func (c *RoleCache) Get(ctx context.Context, userID string) (domain.Role, bool, error) {
	v, err := c.client.Get(ctx, c.key(userID)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		metrics.RoleCacheLookupsTotal.WithLabelValues("miss").Inc()
		return "", false, nil
	case err != nil:
		metrics.RoleCacheLookupsTotal.WithLabelValues("error").Inc()
		return "", false, fmt.Errorf("role cache get: %w", err)
	}
	metrics.RoleCacheLookupsTotal.WithLabelValues("hit").Inc()
	return domain.ParseRole(v), true, nil
}

func (c *RoleCache) Set(ctx context.Context, userID string, role domain.Role) error {
	if err := c.client.Set(ctx, c.key(userID), string(role), c.ttl).Err(); err != nil {
		return fmt.Errorf("role cache set: %w", err)
	}
	return nil
}

func (c *RoleCache) Delete(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, c.key(userID)).Err(); err != nil {
		return fmt.Errorf("role cache delete: %w", err)
	}
	return nil
}

func (c *RoleCache) key(userID string) string {
	return "role:" + userID
}
