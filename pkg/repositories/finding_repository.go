package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/inspection-engine/pkg/apperrors"
	"github.com/ekaya-inc/inspection-engine/pkg/database"
	"github.com/ekaya-inc/inspection-engine/pkg/models"
)

// FindingRepository reads findings and writes their narrative fields.
// Findings themselves are owned by the report subsystem; Create exists for
// imports and tests.
type FindingRepository interface {
	Create(ctx context.Context, finding *models.Finding) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Finding, error)
	// UpdateNarrative writes narrative_id, narrative_text, narrative_variables and
	// narrative_confidence. Concurrent applies are last-write-wins.
	UpdateNarrative(ctx context.Context, finding *models.Finding) error
}

type findingRepository struct{}

// NewFindingRepository creates a new FindingRepository.
func NewFindingRepository() FindingRepository {
	return &findingRepository{}
}

var _ FindingRepository = (*findingRepository)(nil)

func (r *findingRepository) Create(ctx context.Context, finding *models.Finding) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	query := `
		INSERT INTO engine_findings (tenant_id, report_id, title, summary, section_name, severity)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := scope.Conn.QueryRow(ctx, query,
		finding.TenantID,
		finding.ReportID,
		finding.Title,
		finding.Summary,
		nullString(finding.SectionName),
		nullString(string(finding.Severity)),
	).Scan(&finding.ID, &finding.CreatedAt, &finding.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create finding: %w", err)
	}

	return nil
}

func (r *findingRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Finding, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `
		SELECT id, tenant_id, report_id, title, summary, section_name, severity,
		       narrative_id, narrative_text, narrative_variables, narrative_confidence,
		       created_at, updated_at
		FROM engine_findings
		WHERE id = $1 AND tenant_id = $2`

	finding, err := scanFinding(scope.Conn.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}

	return finding, nil
}

func (r *findingRepository) UpdateNarrative(ctx context.Context, finding *models.Finding) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	var variables []byte
	if finding.NarrativeVariables != nil {
		var err error
		variables, err = json.Marshal(finding.NarrativeVariables)
		if err != nil {
			return fmt.Errorf("failed to marshal narrative variables: %w", err)
		}
	}

	query := `
		UPDATE engine_findings
		SET narrative_id = $3, narrative_text = $4, narrative_variables = $5,
		    narrative_confidence = $6, updated_at = now()
		WHERE id = $1 AND tenant_id = $2
		RETURNING updated_at`

	err := scope.Conn.QueryRow(ctx, query,
		finding.ID,
		finding.TenantID,
		finding.NarrativeID,
		finding.NarrativeText,
		variables,
		finding.NarrativeConfidence,
	).Scan(&finding.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("failed to update finding narrative: %w", err)
	}

	return nil
}

func scanFinding(row pgx.Row) (*models.Finding, error) {
	var f models.Finding
	var sectionName, severity, narrativeText *string
	var variables []byte

	err := row.Scan(
		&f.ID,
		&f.TenantID,
		&f.ReportID,
		&f.Title,
		&f.Summary,
		&sectionName,
		&severity,
		&f.NarrativeID,
		&narrativeText,
		&variables,
		&f.NarrativeConfidence,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan finding: %w", err)
	}

	if sectionName != nil {
		f.SectionName = *sectionName
	}
	if severity != nil {
		f.Severity = models.FindingSeverity(*severity)
	}
	if narrativeText != nil {
		f.NarrativeText = *narrativeText
	}
	if len(variables) > 0 {
		if err := json.Unmarshal(variables, &f.NarrativeVariables); err != nil {
			return nil, fmt.Errorf("failed to unmarshal narrative variables: %w", err)
		}
	}

	return &f, nil
}
