package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/inspection-engine/pkg/apperrors"
	"github.com/ekaya-inc/inspection-engine/pkg/database"
	"github.com/ekaya-inc/inspection-engine/pkg/models"
)

// NarrativeSettingRepository stores the single per-tenant settings row.
type NarrativeSettingRepository interface {
	// GetOrCreate returns the tenant's settings, inserting defaults on first access.
	GetOrCreate(ctx context.Context, tenantID uuid.UUID) (*models.NarrativeSetting, error)
	Update(ctx context.Context, setting *models.NarrativeSetting) error
}

type narrativeSettingRepository struct{}

// NewNarrativeSettingRepository creates a new NarrativeSettingRepository.
func NewNarrativeSettingRepository() NarrativeSettingRepository {
	return &narrativeSettingRepository{}
}

var _ NarrativeSettingRepository = (*narrativeSettingRepository)(nil)

func (r *narrativeSettingRepository) GetOrCreate(ctx context.Context, tenantID uuid.UUID) (*models.NarrativeSetting, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	// Two concurrent first reads both reach the INSERT; the unique constraint keeps one row.
	_, err := scope.Conn.Exec(ctx, `
		INSERT INTO engine_narrative_settings (tenant_id, auto_apply_narratives, auto_apply_threshold, language)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id) DO NOTHING`,
		tenantID, models.DefaultAutoApplyNarratives, models.DefaultAutoApplyThreshold, models.DefaultNarrativeLanguage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize narrative settings: %w", err)
	}

	var s models.NarrativeSetting
	err = scope.Conn.QueryRow(ctx, `
		SELECT id, tenant_id, auto_apply_narratives, auto_apply_threshold, language, created_at, updated_at
		FROM engine_narrative_settings
		WHERE tenant_id = $1`, tenantID).Scan(
		&s.ID, &s.TenantID, &s.AutoApplyNarratives, &s.AutoApplyThreshold, &s.Language, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get narrative settings: %w", err)
	}

	return &s, nil
}

func (r *narrativeSettingRepository) Update(ctx context.Context, setting *models.NarrativeSetting) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	err := scope.Conn.QueryRow(ctx, `
		UPDATE engine_narrative_settings
		SET auto_apply_narratives = $2, auto_apply_threshold = $3, language = $4, updated_at = now()
		WHERE tenant_id = $1
		RETURNING updated_at`,
		setting.TenantID, setting.AutoApplyNarratives, setting.AutoApplyThreshold, setting.Language,
	).Scan(&setting.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("failed to update narrative settings: %w", err)
	}

	return nil
}
