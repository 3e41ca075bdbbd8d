// Package cache provides the Redis read-through cache for per-tenant narrative settings.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ekaya-inc/inspection-engine/pkg/metrics"
	"github.com/ekaya-inc/inspection-engine/pkg/models"
)

const settingsCacheType = "narrative_settings"

// SettingsCache stores NarrativeSetting rows keyed by tenant.
// A miss is (nil, false, nil); errors are transport or decoding failures.
type SettingsCache interface {
	Get(ctx context.Context, tenantID uuid.UUID) (*models.NarrativeSetting, bool, error)
	Set(ctx context.Context, setting *models.NarrativeSetting) error
	Invalidate(ctx context.Context, tenantID uuid.UUID) error
}

type redisSettingsCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewSettingsCache returns a Redis-backed cache, or a cache that always misses when client is nil.
func NewSettingsCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) SettingsCache {
	if client == nil {
		return noopSettingsCache{}
	}
	return &redisSettingsCache{
		client: client,
		ttl:    ttl,
		logger: logger.Named("settings-cache"),
	}
}

var _ SettingsCache = (*redisSettingsCache)(nil)

func settingsKey(tenantID uuid.UUID) string {
	return fmt.Sprintf("narrative:settings:%s", tenantID)
}

func (c *redisSettingsCache) Get(ctx context.Context, tenantID uuid.UUID) (*models.NarrativeSetting, bool, error) {
	data, err := c.client.Get(ctx, settingsKey(tenantID)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheMisses.WithLabelValues(settingsCacheType).Inc()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get settings cache: %w", err)
	}

	var setting models.NarrativeSetting
	if err := json.Unmarshal(data, &setting); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached settings: %w", err)
	}

	metrics.CacheHits.WithLabelValues(settingsCacheType).Inc()
	c.logger.Debug("Settings cache hit", zap.String("tenant_id", tenantID.String()))
	return &setting, true, nil
}

func (c *redisSettingsCache) Set(ctx context.Context, setting *models.NarrativeSetting) error {
	data, err := json.Marshal(setting)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := c.client.Set(ctx, settingsKey(setting.TenantID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set settings cache: %w", err)
	}
	return nil
}

func (c *redisSettingsCache) Invalidate(ctx context.Context, tenantID uuid.UUID) error {
	if err := c.client.Del(ctx, settingsKey(tenantID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate settings cache: %w", err)
	}
	return nil
}

type noopSettingsCache struct{}

func (noopSettingsCache) Get(context.Context, uuid.UUID) (*models.NarrativeSetting, bool, error) {
	return nil, false, nil
}

func (noopSettingsCache) Set(context.Context, *models.NarrativeSetting) error { return nil }

func (noopSettingsCache) Invalidate(context.Context, uuid.UUID) error { return nil }
