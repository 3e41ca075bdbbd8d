//go:build integration

package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/ekaya-inc/inspection-engine/pkg/database"
	"github.com/ekaya-inc/inspection-engine/pkg/models"
	"github.com/ekaya-inc/inspection-engine/pkg/testhelpers"
)

// narrativeTestContext holds test dependencies for the narrative repositories.
type narrativeTestContext struct {
	t           *testing.T
	engineDB    *testhelpers.EngineDB
	templates   NarrativeTemplateRepository
	findings    FindingRepository
	choices     NarrativeChoiceRepository
	settings    NarrativeSettingRepository
	tenantID    uuid.UUID
	otherTenant uuid.UUID
}

// setupNarrativeTest initializes the test context with the shared testcontainer.
func setupNarrativeTest(t *testing.T) *narrativeTestContext {
	engineDB := testhelpers.GetEngineDB(t)
	tc := &narrativeTestContext{
		t:           t,
		engineDB:    engineDB,
		templates:   NewNarrativeTemplateRepository(),
		findings:    NewFindingRepository(),
		choices:     NewNarrativeChoiceRepository(),
		settings:    NewNarrativeSettingRepository(),
		tenantID:    uuid.MustParse("00000000-0000-0000-0000-000000000101"),
		otherTenant: uuid.MustParse("00000000-0000-0000-0000-000000000102"),
	}
	tc.cleanup()
	t.Cleanup(tc.cleanup)
	return tc
}

// cleanup removes every row owned by the two test tenants.
func (tc *narrativeTestContext) cleanup() {
	tc.engineDB.DeleteTenantRows(tc.t, tc.tenantID, tc.otherTenant)
}

// createTestContext returns a context scoped to tenantID.
func (tc *narrativeTestContext) createTestContext(tenantID uuid.UUID) (context.Context, func()) {
	tc.t.Helper()
	ctx := context.Background()
	scope, err := tc.engineDB.DB.WithTenant(ctx, tenantID)
	if err != nil {
		tc.t.Fatalf("failed to create tenant scope: %v", err)
	}
	return database.SetTenantScope(ctx, scope), scope.Close
}

func (tc *narrativeTestContext) createTemplate(ctx context.Context, tenantID uuid.UUID, title string, category models.NarrativeCategory, mutate func(*models.NarrativeTemplate)) *models.NarrativeTemplate {
	tc.t.Helper()
	tpl := &models.NarrativeTemplate{
		TenantID: tenantID,
		Title:    title,
		Body:     "The {{location}} " + title + " shows {{condition}}.",
		Category: category,
		Language: models.DefaultNarrativeLanguage,
		IsActive: true,
	}
	if mutate != nil {
		mutate(tpl)
	}
	if err := tc.templates.Create(ctx, tpl); err != nil {
		tc.t.Fatalf("failed to create template %q: %v", title, err)
	}
	return tpl
}

func (tc *narrativeTestContext) createFinding(ctx context.Context, title, summary string) *models.Finding {
	tc.t.Helper()
	f := &models.Finding{
		TenantID: tc.tenantID,
		Title:    title,
		Summary:  summary,
		Severity: models.SeverityMajor,
	}
	if err := tc.findings.Create(ctx, f); err != nil {
		tc.t.Fatalf("failed to create finding: %v", err)
	}
	return f
}
