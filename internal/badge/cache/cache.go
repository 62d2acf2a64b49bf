// Package cache is a best-effort Redis read cache over event badge lists
// and stats. Cache failures are logged and treated as misses; the store
// remains the source of truth.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"ms-badging/internal/logger"
	"ms-badging/internal/models"
)

const (
	badgeListKeyPrefix = "badges:event:"
	statsKeyPrefix     = "badges:stats:"
)

type Cache struct {
	Client *redis.Client
	TTL    time.Duration
	Logger *logger.Logger
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Cache{Client: client, TTL: ttl}
}

func (c *Cache) GetEventBadges(ctx context.Context, eventID string) ([]models.Badge, bool) {
	data, err := c.Client.Get(ctx, badgeListKeyPrefix+eventID).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logError(fmt.Sprintf("badge list read for event %s failed: %v", eventID, err))
		return nil, false
	}
	var badges []models.Badge
	if err := json.Unmarshal([]byte(data), &badges); err != nil {
		c.logError(fmt.Sprintf("badge list decode for event %s failed: %v", eventID, err))
		return nil, false
	}
	return badges, true
}

func (c *Cache) SetEventBadges(ctx context.Context, eventID string, badges []models.Badge) {
	data, err := json.Marshal(badges)
	if err != nil {
		c.logError(fmt.Sprintf("badge list encode for event %s failed: %v", eventID, err))
		return
	}
	if err := c.Client.Set(ctx, badgeListKeyPrefix+eventID, data, c.TTL).Err(); err != nil {
		c.logError(fmt.Sprintf("badge list write for event %s failed: %v", eventID, err))
	}
}

func (c *Cache) GetStats(ctx context.Context, eventID string) (*models.BadgeStats, bool) {
	data, err := c.Client.Get(ctx, statsKeyPrefix+eventID).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logError(fmt.Sprintf("stats read for event %s failed: %v", eventID, err))
		return nil, false
	}
	var stats models.BadgeStats
	if err := json.Unmarshal([]byte(data), &stats); err != nil {
		c.logError(fmt.Sprintf("stats decode for event %s failed: %v", eventID, err))
		return nil, false
	}
	return &stats, true
}

func (c *Cache) SetStats(ctx context.Context, eventID string, stats *models.BadgeStats) {
	data, err := json.Marshal(stats)
	if err != nil {
		c.logError(fmt.Sprintf("stats encode for event %s failed: %v", eventID, err))
		return
	}
	if err := c.Client.Set(ctx, statsKeyPrefix+eventID, data, c.TTL).Err(); err != nil {
		c.logError(fmt.Sprintf("stats write for event %s failed: %v", eventID, err))
	}
}

// Invalidate drops both cached views of an event after any mutation.
func (c *Cache) Invalidate(ctx context.Context, eventID string) {
	if err := c.Client.Del(ctx, badgeListKeyPrefix+eventID, statsKeyPrefix+eventID).Err(); err != nil {
		c.logError(fmt.Sprintf("invalidate for event %s failed: %v", eventID, err))
	}
}

func (c *Cache) logError(message string) {
	if c.Logger != nil {
		c.Logger.Error("CACHE", message)
	}
}
