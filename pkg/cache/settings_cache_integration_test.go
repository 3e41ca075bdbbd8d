//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/inspection-engine/pkg/metrics"
	"github.com/ekaya-inc/inspection-engine/pkg/models"
	"github.com/ekaya-inc/inspection-engine/pkg/testhelpers"
)

func TestRedisSettingsCache_RoundTrip(t *testing.T) {
	client := testhelpers.GetTestRedis(t)
	c := NewSettingsCache(client, time.Minute, zap.NewNop())
	ctx := context.Background()
	tenantID := uuid.New()

	missesBefore := testutil.ToFloat64(metrics.CacheMisses.WithLabelValues(settingsCacheType))
	_, ok, err := c.Get(ctx, tenantID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, missesBefore+1, testutil.ToFloat64(metrics.CacheMisses.WithLabelValues(settingsCacheType)))

	setting := &models.NarrativeSetting{
		ID:                  uuid.New(),
		TenantID:            tenantID,
		AutoApplyNarratives: true,
		AutoApplyThreshold:  0.8,
		Language:            "en-US",
	}
	require.NoError(t, c.Set(ctx, setting))

	got, ok, err := c.Get(ctx, tenantID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, setting.ID, got.ID)
	assert.True(t, got.AutoApplyNarratives)
	assert.InDelta(t, 0.8, got.AutoApplyThreshold, 1e-9)

	ttl, err := client.TTL(ctx, settingsKey(tenantID)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, c.Invalidate(ctx, tenantID))
	_, ok, err = c.Get(ctx, tenantID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisSettingsCache_CorruptEntry(t *testing.T) {
	client := testhelpers.GetTestRedis(t)
	c := NewSettingsCache(client, time.Minute, zap.NewNop())
	ctx := context.Background()
	tenantID := uuid.New()

	require.NoError(t, client.Set(ctx, settingsKey(tenantID), "not json", time.Minute).Err())

	_, ok, err := c.Get(ctx, tenantID)
	assert.Error(t, err)
	assert.False(t, ok)
}
