package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/vitaltrack/health-tracker/internal/core/domain"
	"github.com/vitaltrack/health-tracker/internal/core/ports"
)

// RoleSource is the authoritative role store behind the cache.
type RoleSource interface {
	ports.RoleLookup
	ports.RoleStore
}

// CachedRoleLookup serves roles from a RoleCache and falls back to the store
// on a miss. Role writes go to the store first and then overwrite the cache
// entry, so the next lookup after SetRole returns the new role.
type CachedRoleLookup struct {
	source RoleSource
	cache  ports.RoleCache
	log    zerolog.Logger
}

// NewCachedRoleLookup wraps source. A nil cache disables caching.
func NewCachedRoleLookup(source RoleSource, cache ports.RoleCache, log zerolog.Logger) *CachedRoleLookup {
	return &CachedRoleLookup{source: source, cache: cache, log: log}
}

func (l *CachedRoleLookup) RoleOf(ctx context.Context, userID string) (domain.Role, error) {
	if l.cache == nil {
		return l.source.RoleOf(ctx, userID)
	}

	role, ok, err := l.cache.Get(ctx, userID)
	if err != nil {
		l.log.Warn().Err(err).Str("user_id", userID).Msg("role cache read failed, using store")
	} else if ok {
		return role, nil
	}

	role, err = l.source.RoleOf(ctx, userID)
	if err != nil {
		return "", err
	}

	if err := l.cache.Set(ctx, userID, role); err != nil {
		l.log.Warn().Err(err).Str("user_id", userID).Msg("role cache write failed")
	}
	return role, nil
}

func (l *CachedRoleLookup) SetRole(ctx context.Context, userID string, role domain.Role) error {
	if err := l.source.SetRole(ctx, userID, role); err != nil {
		return err
	}
	if l.cache == nil {
		return nil
	}

	if err := l.cache.Set(ctx, userID, role); err != nil {
		l.log.Warn().Err(err).Str("user_id", userID).Msg("role cache overwrite failed, evicting")
		if delErr := l.cache.Delete(ctx, userID); delErr != nil {
			// The stale entry lives until its TTL runs out.
			l.log.Error().Err(delErr).Str("user_id", userID).Msg("role cache eviction failed")
		}
	}
	return nil
}

// Forget drops the cached role of a deleted user.
func (l *CachedRoleLookup) Forget(ctx context.Context, userID string) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Delete(ctx, userID); err != nil {
		l.log.Warn().Err(err).Str("user_id", userID).Msg("role cache eviction failed")
	}
}
