//go:build integration

package repositories

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/inspection-engine/pkg/apperrors"
	"github.com/ekaya-inc/inspection-engine/pkg/models"
)

func TestNarrativeSettingRepository_GetOrCreateDefaults(t *testing.T) {
	tc := setupNarrativeTest(t)
	ctx, cleanup := tc.createTestContext(tc.tenantID)
	defer cleanup()

	s, err := tc.settings.GetOrCreate(ctx, tc.tenantID)
	require.NoError(t, err)
	assert.Equal(t, tc.tenantID, s.TenantID)
	assert.False(t, s.AutoApplyNarratives)
	assert.InDelta(t, 0.72, s.AutoApplyThreshold, 1e-9)
	assert.Equal(t, "en-US", s.Language)

	again, err := tc.settings.GetOrCreate(ctx, tc.tenantID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, again.ID)
}

func TestNarrativeSettingRepository_GetOrCreate_ConcurrentFirstAccess(t *testing.T) {
	tc := setupNarrativeTest(t)

	const workers = 6
	var wg sync.WaitGroup
	ids := make(chan string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cleanup := tc.createTestContext(tc.tenantID)
			defer cleanup()
			s, err := tc.settings.GetOrCreate(ctx, tc.tenantID)
			if err != nil {
				t.Errorf("GetOrCreate: %v", err)
				return
			}
			ids <- s.ID.String()
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, 1, "exactly one settings row per tenant")
}

func TestNarrativeSettingRepository_Update(t *testing.T) {
	tc := setupNarrativeTest(t)
	ctx, cleanup := tc.createTestContext(tc.tenantID)
	defer cleanup()

	s, err := tc.settings.GetOrCreate(ctx, tc.tenantID)
	require.NoError(t, err)
	before := s.UpdatedAt

	s.AutoApplyNarratives = true
	s.AutoApplyThreshold = 0.9
	require.NoError(t, tc.settings.Update(ctx, s))
	assert.False(t, s.UpdatedAt.Before(before))

	got, err := tc.settings.GetOrCreate(ctx, tc.tenantID)
	require.NoError(t, err)
	assert.True(t, got.AutoApplyNarratives)
	assert.InDelta(t, 0.9, got.AutoApplyThreshold, 1e-9)

	missing := &models.NarrativeSetting{TenantID: tc.otherTenant, AutoApplyThreshold: 0.5, Language: "en-US"}
	assert.True(t, errors.Is(tc.settings.Update(ctx, missing), apperrors.ErrNotFound))
}
