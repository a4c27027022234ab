package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"compdash/internal/domain"
	"compdash/pkg/redis"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

const localCacheSize = 1024

// CacheService caches team lookups and holds idempotency locks. It uses redis
// when configured and an in-process LRU otherwise. Cache failures never fail
// a request; the fallback is always consulted.
type CacheService struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger

	local   *expirable.LRU[string, string]
	locksMu sync.Mutex
	locks   *expirable.LRU[string, struct{}]
}

// NewCacheService creates a cache service. redisClient may be nil.
func NewCacheService(redisClient *redis.Client, ttl time.Duration, logger *zap.Logger) *CacheService {
	if ttl <= 0 {
		ttl = redis.TTLTeam
	}
	return &CacheService{
		redis:  redisClient,
		ttl:    ttl,
		logger: logger,
		local:  expirable.NewLRU[string, string](localCacheSize, nil, ttl),
		locks:  expirable.NewLRU[string, struct{}](localCacheSize, nil, redis.TTLIdempotency),
	}
}

// Backend names the active cache backend
func (c *CacheService) Backend() string {
	if c.redis != nil {
		return "redis"
	}
	return "memory"
}

// GetTeamNameForEmail returns the cached team name for email or resolves it
// with fallback. Fallback errors are returned unchanged and never cached.
func (c *CacheService) GetTeamNameForEmail(ctx context.Context, email string, fallback func(ctx context.Context, email string) (string, error)) (string, error) {
	key := c.keyTeamByEmail(email)

	if name, ok := c.get(ctx, key); ok {
		c.logger.Debug("Team resolution cache hit")
		return name, nil
	}

	name, err := fallback(ctx, email)
	if err != nil {
		return "", err
	}

	c.set(ctx, key, name)
	return name, nil
}

// GetTeamWithCache retrieves a team with the cache-aside pattern. A nil team
// from fallback is returned as is and not cached.
func (c *CacheService) GetTeamWithCache(ctx context.Context, teamName string, fallback func(ctx context.Context, name string) (*domain.Team, error)) (*domain.Team, error) {
	key := c.keyTeamByName(teamName)

	if cached, ok := c.get(ctx, key); ok {
		var team domain.Team
		switch err := json.Unmarshal([]byte(cached), &team); {
		case err != nil:
			c.logger.Warn("Team cache corrupted, falling back to database",
				zap.String("team", teamName),
				zap.Error(err))
		case team.Name != teamName:
			c.logger.Warn("Team cache entry belongs to another team, falling back to database",
				zap.String("team", teamName),
				zap.String("cached_team", team.Name))
		default:
			c.logger.Debug("Team cache hit", zap.String("team", teamName))
			return &team, nil
		}
	}

	team, err := fallback(ctx, teamName)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, nil
	}

	if data, err := json.Marshal(team); err == nil {
		c.set(ctx, key, string(data))
	}
	return team, nil
}

// InvalidateTeam drops the cached team record and the cached resolution of
// every email listed on it
func (c *CacheService) InvalidateTeam(ctx context.Context, team *domain.Team) error {
	keys := []string{c.keyTeamByName(team.Name)}
	for _, slot := range team.Slots {
		if !slot.IsEmpty() {
			keys = append(keys, c.keyTeamByEmail(slot.Email))
		}
	}

	for _, key := range keys {
		c.local.Remove(key)
	}
	if c.redis == nil {
		return nil
	}
	if err := c.redis.Delete(ctx, keys...); err != nil {
		c.logger.Warn("Failed to invalidate team cache", zap.String("team", team.Name), zap.Error(err))
		return err
	}
	return nil
}

// TryIdempotencyLock acquires the lock for (userID, key). It returns false
// when the same key was used within the lock's TTL.
func (c *CacheService) TryIdempotencyLock(ctx context.Context, userID, key string) (bool, error) {
	if c.redis != nil {
		return c.redis.SetNX(ctx, c.redis.KeyBuilder.KeyIdempotency(userID, key), "1", redis.TTLIdempotency)
	}

	lockKey := fmt.Sprintf(redis.KeyIdempotency, userID, key)
	c.locksMu.Lock()
	defer c.locksMu.Unlock()
	if c.locks.Contains(lockKey) {
		return false, nil
	}
	c.locks.Add(lockKey, struct{}{})
	return true, nil
}

// HealthCheck pings redis when it is the active backend
func (c *CacheService) HealthCheck(ctx context.Context) error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Health(ctx)
}

func (c *CacheService) get(ctx context.Context, key string) (string, bool) {
	if c.redis == nil {
		return c.local.Get(key)
	}

	val, err := c.redis.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redis.ErrCacheMiss) {
			c.logger.Warn("Cache read failed, falling back to database", zap.Error(err))
		}
		return "", false
	}
	return val, true
}

func (c *CacheService) set(ctx context.Context, key, value string) {
	if c.redis == nil {
		c.local.Add(key, value)
		return
	}

	if err := c.redis.Set(ctx, key, value, c.ttl); err != nil {
		c.logger.Warn("Cache write failed", zap.Error(err))
	}
}

func (c *CacheService) keyTeamByEmail(email string) string {
	if c.redis != nil {
		return c.redis.KeyBuilder.KeyTeamByEmail(email)
	}
	return fmt.Sprintf(redis.KeyTeamByEmail, email)
}

func (c *CacheService) keyTeamByName(name string) string {
	if c.redis != nil {
		return c.redis.KeyBuilder.KeyTeamByName(name)
	}
	return fmt.Sprintf(redis.KeyTeamByName, name)
}

// ReleaseIdempotencyLock frees a lock so a failed attempt can be retried
func (c *CacheService) ReleaseIdempotencyLock(ctx context.Context, userID, key string) {
	if c.redis != nil {
		if err := c.redis.Delete(ctx, c.redis.KeyBuilder.KeyIdempotency(userID, key)); err != nil {
			c.logger.Warn("Failed to release idempotency lock", zap.Error(err))
		}
		return
	}

	c.locksMu.Lock()
	defer c.locksMu.Unlock()
	c.locks.Remove(fmt.Sprintf(redis.KeyIdempotency, userID, key))
}
