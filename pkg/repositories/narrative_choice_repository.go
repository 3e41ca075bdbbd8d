package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ekaya-inc/inspection-engine/pkg/database"
	"github.com/ekaya-inc/inspection-engine/pkg/models"
)

// NarrativeChoiceRepository appends to the narrative application audit trail.
type NarrativeChoiceRepository interface {
	Create(ctx context.Context, choice *models.NarrativeChoice) error
	ListByFinding(ctx context.Context, tenantID, findingID uuid.UUID) ([]*models.NarrativeChoice, error)
}

type narrativeChoiceRepository struct{}

// NewNarrativeChoiceRepository creates a new NarrativeChoiceRepository.
func NewNarrativeChoiceRepository() NarrativeChoiceRepository {
	return &narrativeChoiceRepository{}
}

var _ NarrativeChoiceRepository = (*narrativeChoiceRepository)(nil)

func (r *narrativeChoiceRepository) Create(ctx context.Context, choice *models.NarrativeChoice) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	query := `
		INSERT INTO engine_narrative_choices (
			tenant_id, finding_id, narrative_id, chosen, score, edited, mode, user_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := scope.Conn.QueryRow(ctx, query,
		choice.TenantID,
		choice.FindingID,
		choice.NarrativeID,
		choice.Chosen,
		choice.Score,
		choice.Edited,
		choice.Mode,
		choice.UserID,
	).Scan(&choice.ID, &choice.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record narrative choice: %w", err)
	}

	return nil
}

func (r *narrativeChoiceRepository) ListByFinding(ctx context.Context, tenantID, findingID uuid.UUID) ([]*models.NarrativeChoice, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `
		SELECT id, tenant_id, finding_id, narrative_id, chosen, score, edited, mode, user_id, created_at
		FROM engine_narrative_choices
		WHERE tenant_id = $1 AND finding_id = $2
		ORDER BY created_at, id`

	rows, err := scope.Conn.Query(ctx, query, tenantID, findingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query narrative choices: %w", err)
	}
	defer rows.Close()

	choices := []*models.NarrativeChoice{}
	for rows.Next() {
		var c models.NarrativeChoice
		if err := rows.Scan(
			&c.ID, &c.TenantID, &c.FindingID, &c.NarrativeID, &c.Chosen,
			&c.Score, &c.Edited, &c.Mode, &c.UserID, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan narrative choice: %w", err)
		}
		choices = append(choices, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating narrative choices: %w", err)
	}

	return choices, nil
}
