package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/inspection-engine/pkg/apperrors"
	"github.com/ekaya-inc/inspection-engine/pkg/database"
	"github.com/ekaya-inc/inspection-engine/pkg/models"
)

// NarrativeTemplateRepository provides data access for narrative templates.
// Every method is scoped to a tenant; rows of other tenants behave as missing.
type NarrativeTemplateRepository interface {
	Create(ctx context.Context, tpl *models.NarrativeTemplate) error
	// BulkCreate inserts all templates in one transaction. Either all rows are written or none.
	BulkCreate(ctx context.Context, tpls []*models.NarrativeTemplate) error
	Update(ctx context.Context, tpl *models.NarrativeTemplate) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.NarrativeTemplate, error)
	// List returns one page of templates and the total number of matches.
	List(ctx context.Context, tenantID uuid.UUID, filter models.NarrativeTemplateFilter) ([]*models.NarrativeTemplate, int, error)
	// ListActiveByCategory returns active templates ordered by use_count DESC, id ASC.
	ListActiveByCategory(ctx context.Context, tenantID uuid.UUID, category models.NarrativeCategory) ([]*models.NarrativeTemplate, error)
	// IncrementUseCount adds one to use_count in a single statement.
	IncrementUseCount(ctx context.Context, tenantID, id uuid.UUID) error
	Deactivate(ctx context.Context, tenantID, id uuid.UUID) error
}

type narrativeTemplateRepository struct{}

// NewNarrativeTemplateRepository creates a new NarrativeTemplateRepository.
func NewNarrativeTemplateRepository() NarrativeTemplateRepository {
	return &narrativeTemplateRepository{}
}

var _ NarrativeTemplateRepository = (*narrativeTemplateRepository)(nil)

const narrativeTemplateColumns = `
	id, tenant_id, title, body, category, component, severity, tags,
	language, placeholders, use_count, is_active, created_at, updated_at`

const insertNarrativeTemplate = `
	INSERT INTO engine_narrative_templates (
		tenant_id, title, body, category, component, severity, tags,
		language, placeholders, use_count, is_active
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	RETURNING id, created_at, updated_at`

func insertArgs(tpl *models.NarrativeTemplate) []any {
	return []any{
		tpl.TenantID,
		tpl.Title,
		tpl.Body,
		tpl.Category,
		nullString(tpl.Component),
		nullString(string(tpl.Severity)),
		textArray(tpl.Tags),
		tpl.Language,
		textArray(tpl.Placeholders),
		tpl.UseCount,
		tpl.IsActive,
	}
}

func (r *narrativeTemplateRepository) Create(ctx context.Context, tpl *models.NarrativeTemplate) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	err := scope.Conn.QueryRow(ctx, insertNarrativeTemplate, insertArgs(tpl)...).
		Scan(&tpl.ID, &tpl.CreatedAt, &tpl.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create narrative template: %w", err)
	}

	return nil
}

func (r *narrativeTemplateRepository) BulkCreate(ctx context.Context, tpls []*models.NarrativeTemplate) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}
	if len(tpls) == 0 {
		return nil
	}

	tx, err := scope.Conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin bulk import: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, tpl := range tpls {
		batch.Queue(insertNarrativeTemplate, insertArgs(tpl)...)
	}

	results := tx.SendBatch(ctx, batch)
	for i, tpl := range tpls {
		if err := results.QueryRow().Scan(&tpl.ID, &tpl.CreatedAt, &tpl.UpdatedAt); err != nil {
			_ = results.Close()
			return fmt.Errorf("failed to insert template %d of bulk import: %w", i, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to finish bulk import batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit bulk import: %w", err)
	}

	return nil
}

func (r *narrativeTemplateRepository) Update(ctx context.Context, tpl *models.NarrativeTemplate) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	query := `
		UPDATE engine_narrative_templates
		SET title = $3, body = $4, category = $5, component = $6, severity = $7,
		    tags = $8, language = $9, placeholders = $10, is_active = $11, updated_at = now()
		WHERE id = $1 AND tenant_id = $2
		RETURNING use_count, updated_at`

	err := scope.Conn.QueryRow(ctx, query,
		tpl.ID,
		tpl.TenantID,
		tpl.Title,
		tpl.Body,
		tpl.Category,
		nullString(tpl.Component),
		nullString(string(tpl.Severity)),
		textArray(tpl.Tags),
		tpl.Language,
		textArray(tpl.Placeholders),
		tpl.IsActive,
	).Scan(&tpl.UseCount, &tpl.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("failed to update narrative template: %w", err)
	}

	return nil
}

func (r *narrativeTemplateRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.NarrativeTemplate, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `SELECT ` + narrativeTemplateColumns + `
		FROM engine_narrative_templates
		WHERE id = $1 AND tenant_id = $2`

	tpl, err := scanNarrativeTemplate(scope.Conn.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}

	return tpl, nil
}

func (r *narrativeTemplateRepository) List(ctx context.Context, tenantID uuid.UUID, filter models.NarrativeTemplateFilter) ([]*models.NarrativeTemplate, int, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, 0, fmt.Errorf("no tenant scope in context")
	}

	where, args := templateFilterClause(tenantID, filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM engine_narrative_templates WHERE ` + where
	if err := scope.Conn.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count narrative templates: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s
		FROM engine_narrative_templates
		WHERE %s
		ORDER BY use_count DESC, title, id
		LIMIT $%d OFFSET $%d`, narrativeTemplateColumns, where, len(args)-1, len(args))

	rows, err := scope.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query narrative templates: %w", err)
	}
	defer rows.Close()

	templates, err := collectNarrativeTemplates(rows)
	if err != nil {
		return nil, 0, err
	}

	return templates, total, nil
}

// templateFilterClause builds the WHERE clause for List. Placeholders start at $1 = tenant.
func templateFilterClause(tenantID uuid.UUID, filter models.NarrativeTemplateFilter) (string, []any) {
	conds := []string{"tenant_id = $1"}
	args := []any{tenantID}

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(args))))
	}

	if s := strings.TrimSpace(filter.Search); s != "" {
		add(`(title ILIKE ? ESCAPE '\' OR body ILIKE ? ESCAPE '\')`, "%"+escapeLike(s)+"%")
	}
	if filter.Category != "" {
		add("category = ?", filter.Category)
	}
	if c := strings.TrimSpace(filter.Component); c != "" {
		add("lower(component) = lower(?)", c)
	}
	if len(filter.Tags) > 0 {
		add("tags && ?", filter.Tags)
	}
	if filter.Severity != "" {
		add("severity = ?", filter.Severity)
	}
	if filter.IsActive != nil {
		add("is_active = ?", *filter.IsActive)
	}

	return strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *narrativeTemplateRepository) ListActiveByCategory(ctx context.Context, tenantID uuid.UUID, category models.NarrativeCategory) ([]*models.NarrativeTemplate, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `SELECT ` + narrativeTemplateColumns + `
		FROM engine_narrative_templates
		WHERE tenant_id = $1 AND category = $2 AND is_active
		ORDER BY use_count DESC, id ASC`

	rows, err := scope.Conn.Query(ctx, query, tenantID, category)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidate templates: %w", err)
	}
	defer rows.Close()

	return collectNarrativeTemplates(rows)
}

func (r *narrativeTemplateRepository) IncrementUseCount(ctx context.Context, tenantID, id uuid.UUID) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	result, err := scope.Conn.Exec(ctx, `
		UPDATE engine_narrative_templates
		SET use_count = use_count + 1, updated_at = now()
		WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to increment use count: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *narrativeTemplateRepository) Deactivate(ctx context.Context, tenantID, id uuid.UUID) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	result, err := scope.Conn.Exec(ctx, `
		UPDATE engine_narrative_templates
		SET is_active = false, updated_at = now()
		WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to deactivate narrative template: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// ============================================================================
// Helper Functions
// ============================================================================

func collectNarrativeTemplates(rows pgx.Rows) ([]*models.NarrativeTemplate, error) {
	templates := []*models.NarrativeTemplate{}
	for rows.Next() {
		tpl, err := scanNarrativeTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, tpl)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating narrative templates: %w", err)
	}

	return templates, nil
}

func scanNarrativeTemplate(row pgx.Row) (*models.NarrativeTemplate, error) {
	var t models.NarrativeTemplate
	var component, severity *string

	err := row.Scan(
		&t.ID,
		&t.TenantID,
		&t.Title,
		&t.Body,
		&t.Category,
		&component,
		&severity,
		&t.Tags,
		&t.Language,
		&t.Placeholders,
		&t.UseCount,
		&t.IsActive,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan narrative template: %w", err)
	}

	if component != nil {
		t.Component = *component
	}
	if severity != nil {
		t.Severity = models.FindingSeverity(*severity)
	}

	return &t, nil
}

// nullString returns nil if the string is empty, otherwise returns the string pointer.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// textArray keeps NOT NULL text[] columns from receiving NULL for a nil slice.
func textArray(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
