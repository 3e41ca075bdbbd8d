package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/inspection-engine/pkg/apperrors"
	"github.com/ekaya-inc/inspection-engine/pkg/cache"
	"github.com/ekaya-inc/inspection-engine/pkg/logging"
	"github.com/ekaya-inc/inspection-engine/pkg/models"
	"github.com/ekaya-inc/inspection-engine/pkg/repositories"
)

// NarrativeSettingsService reads and updates per-tenant narrative settings.
type NarrativeSettingsService interface {
	// GetSettings returns the tenant's settings, creating the defaults on first access.
	GetSettings(ctx context.Context, tenantID uuid.UUID) (*models.NarrativeSetting, error)

	// UpdateSettings applies a partial update. updated_at is refreshed even for an empty patch.
	UpdateSettings(ctx context.Context, tenantID uuid.UUID, patch models.NarrativeSettingPatch) (*models.NarrativeSetting, error)
}

type narrativeSettingsService struct {
	repo   repositories.NarrativeSettingRepository
	cache  cache.SettingsCache
	logger *zap.Logger
}

// NewNarrativeSettingsService creates a new NarrativeSettingsService.
// Cache failures are logged and never fail a request.
func NewNarrativeSettingsService(repo repositories.NarrativeSettingRepository, settingsCache cache.SettingsCache, logger *zap.Logger) NarrativeSettingsService {
	return &narrativeSettingsService{
		repo:   repo,
		cache:  settingsCache,
		logger: logger.Named("narrative-settings"),
	}
}

var _ NarrativeSettingsService = (*narrativeSettingsService)(nil)

func (s *narrativeSettingsService) GetSettings(ctx context.Context, tenantID uuid.UUID) (*models.NarrativeSetting, error) {
	cached, ok, err := s.cache.Get(ctx, tenantID)
	if err != nil {
		s.logger.Warn("Settings cache read failed, falling back to database",
			zap.String("tenant_id", tenantID.String()),
			logging.ErrorField(err))
	}
	if ok {
		return cached, nil
	}

	setting, err := s.repo.GetOrCreate(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("get narrative settings: %w", err)
	}

	s.store(ctx, setting)
	return setting, nil
}

func (s *narrativeSettingsService) UpdateSettings(ctx context.Context, tenantID uuid.UUID, patch models.NarrativeSettingPatch) (*models.NarrativeSetting, error) {
	if err := models.Validate(patch); err != nil {
		return nil, err
	}
	if patch.Language != nil && strings.TrimSpace(*patch.Language) == "" {
		return nil, apperrors.NewValidationError("language", "is required")
	}

	// Read from the database, not the cache, so a stale entry is never written back.
	setting, err := s.repo.GetOrCreate(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("get narrative settings: %w", err)
	}

	if patch.AutoApplyNarratives != nil {
		setting.AutoApplyNarratives = *patch.AutoApplyNarratives
	}
	if patch.AutoApplyThreshold != nil {
		setting.AutoApplyThreshold = *patch.AutoApplyThreshold
	}
	if patch.Language != nil {
		setting.Language = strings.TrimSpace(*patch.Language)
	}

	if err := s.repo.Update(ctx, setting); err != nil {
		return nil, fmt.Errorf("update narrative settings: %w", err)
	}

	s.store(ctx, setting)

	s.logger.Info("Updated narrative settings",
		zap.String("tenant_id", tenantID.String()),
		zap.Bool("auto_apply", setting.AutoApplyNarratives),
		zap.Float64("threshold", setting.AutoApplyThreshold))

	return setting, nil
}

// store refreshes the cache entry. If the write fails the entry is dropped so readers go to the database.
func (s *narrativeSettingsService) store(ctx context.Context, setting *models.NarrativeSetting) {
	if err := s.cache.Set(ctx, setting); err != nil {
		s.logger.Warn("Failed to cache narrative settings",
			zap.String("tenant_id", setting.TenantID.String()),
			logging.ErrorField(err))
		if err := s.cache.Invalidate(ctx, setting.TenantID); err != nil {
			s.logger.Warn("Failed to invalidate narrative settings cache",
				zap.String("tenant_id", setting.TenantID.String()),
				logging.ErrorField(err))
		}
	}
}
