package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ekaya-inc/inspection-engine/pkg/database"
	"github.com/ekaya-inc/inspection-engine/pkg/models"
)

// TenantContextFunc acquires a tenant-scoped database connection.
// Returns the scoped context, a cleanup function (MUST be called), and any error.
// HTTP requests get their scope from database.WithTenantContext; this is for work
// that runs outside a request, such as the seed script.
type TenantContextFunc func(ctx context.Context, tenantID uuid.UUID) (context.Context, func(), error)

// NewTenantContextFunc creates a TenantContextFunc that uses the given database.
func NewTenantContextFunc(db *database.DB) TenantContextFunc {
	return func(ctx context.Context, tenantID uuid.UUID) (context.Context, func(), error) {
		scope, err := db.WithTenant(ctx, tenantID)
		if err != nil {
			return nil, nil, err
		}
		tenantCtx := database.SetTenantScope(ctx, scope)
		return tenantCtx, func() { scope.Close() }, nil
	}
}

// ImportTemplates runs BulkImport inside its own tenant scope.
func ImportTemplates(ctx context.Context, getTenant TenantContextFunc, svc NarrativeService, tenantID uuid.UUID, defs []models.NarrativeTemplateDefinition) (int, error) {
	tenantCtx, cleanup, err := getTenant(ctx, tenantID)
	if err != nil {
		return 0, fmt.Errorf("acquire tenant scope: %w", err)
	}
	defer cleanup()

	return svc.BulkImport(tenantCtx, tenantID, defs)
}
