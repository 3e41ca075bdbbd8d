package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/inspection-engine/pkg/apperrors"
	"github.com/ekaya-inc/inspection-engine/pkg/models"
	"github.com/ekaya-inc/inspection-engine/pkg/repositories"
)

// fakeTemplateRepo is an in-memory NarrativeTemplateRepository.
type fakeTemplateRepo struct {
	mu           sync.Mutex
	templates    map[uuid.UUID]*models.NarrativeTemplate
	incErr       error
	bulkErr      error
	lastFilter   models.NarrativeTemplateFilter
	bulkReceived int
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{templates: map[uuid.UUID]*models.NarrativeTemplate{}}
}

var _ repositories.NarrativeTemplateRepository = (*fakeTemplateRepo)(nil)

func (r *fakeTemplateRepo) Create(_ context.Context, tpl *models.NarrativeTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tpl.ID == uuid.Nil {
		tpl.ID = uuid.New()
	}
	tpl.CreatedAt = time.Now()
	tpl.UpdatedAt = tpl.CreatedAt
	cp := *tpl
	r.templates[tpl.ID] = &cp
	return nil
}

func (r *fakeTemplateRepo) BulkCreate(ctx context.Context, tpls []*models.NarrativeTemplate) error {
	r.bulkReceived = len(tpls)
	if r.bulkErr != nil {
		return r.bulkErr
	}
	for _, tpl := range tpls {
		_ = r.Create(ctx, tpl)
	}
	return nil
}

func (r *fakeTemplateRepo) Update(_ context.Context, tpl *models.NarrativeTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.templates[tpl.ID]
	if !ok || existing.TenantID != tpl.TenantID {
		return apperrors.ErrNotFound
	}
	tpl.UpdatedAt = time.Now()
	cp := *tpl
	r.templates[tpl.ID] = &cp
	return nil
}

func (r *fakeTemplateRepo) GetByID(_ context.Context, tenantID, id uuid.UUID) (*models.NarrativeTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tpl, ok := r.templates[id]
	if !ok || tpl.TenantID != tenantID {
		return nil, apperrors.ErrNotFound
	}
	cp := *tpl
	return &cp, nil
}

func (r *fakeTemplateRepo) List(_ context.Context, tenantID uuid.UUID, filter models.NarrativeTemplateFilter) ([]*models.NarrativeTemplate, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastFilter = filter

	var out []*models.NarrativeTemplate
	for _, tpl := range r.templates {
		if tpl.TenantID != tenantID {
			continue
		}
		if filter.Category != "" && tpl.Category != filter.Category {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(tpl.Title+" "+tpl.Body), strings.ToLower(filter.Search)) {
			continue
		}
		if filter.IsActive != nil && tpl.IsActive != *filter.IsActive {
			continue
		}
		cp := *tpl
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })

	total := len(out)
	if filter.Offset >= len(out) {
		return []*models.NarrativeTemplate{}, total, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, total, nil
}

func (r *fakeTemplateRepo) ListActiveByCategory(_ context.Context, tenantID uuid.UUID, category models.NarrativeCategory) ([]*models.NarrativeTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.NarrativeTemplate
	for _, tpl := range r.templates {
		if tpl.TenantID == tenantID && tpl.Category == category && tpl.IsActive {
			cp := *tpl
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UseCount != out[j].UseCount {
			return out[i].UseCount > out[j].UseCount
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *fakeTemplateRepo) IncrementUseCount(_ context.Context, tenantID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.incErr != nil {
		return r.incErr
	}
	tpl, ok := r.templates[id]
	if !ok || tpl.TenantID != tenantID {
		return apperrors.ErrNotFound
	}
	tpl.UseCount++
	return nil
}

func (r *fakeTemplateRepo) Deactivate(_ context.Context, tenantID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tpl, ok := r.templates[id]
	if !ok || tpl.TenantID != tenantID {
		return apperrors.ErrNotFound
	}
	tpl.IsActive = false
	return nil
}

// fakeFindingRepo is an in-memory FindingRepository.
type fakeFindingRepo struct {
	mu        sync.Mutex
	findings  map[uuid.UUID]*models.Finding
	updateErr error
}

func newFakeFindingRepo() *fakeFindingRepo {
	return &fakeFindingRepo{findings: map[uuid.UUID]*models.Finding{}}
}

var _ repositories.FindingRepository = (*fakeFindingRepo)(nil)

func (r *fakeFindingRepo) Create(_ context.Context, f *models.Finding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	cp := *f
	r.findings[f.ID] = &cp
	return nil
}

func (r *fakeFindingRepo) GetByID(_ context.Context, tenantID, id uuid.UUID) (*models.Finding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.findings[id]
	if !ok || f.TenantID != tenantID {
		return nil, apperrors.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *fakeFindingRepo) UpdateNarrative(_ context.Context, f *models.Finding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	existing, ok := r.findings[f.ID]
	if !ok || existing.TenantID != f.TenantID {
		return apperrors.ErrNotFound
	}
	cp := *f
	r.findings[f.ID] = &cp
	return nil
}

// fakeChoiceRepo records appended choices.
type fakeChoiceRepo struct {
	mu        sync.Mutex
	choices   []*models.NarrativeChoice
	createErr error
}

var _ repositories.NarrativeChoiceRepository = (*fakeChoiceRepo)(nil)

func (r *fakeChoiceRepo) Create(_ context.Context, c *models.NarrativeChoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	c.ID = uuid.New()
	cp := *c
	r.choices = append(r.choices, &cp)
	return nil
}

func (r *fakeChoiceRepo) ListByFinding(_ context.Context, tenantID, findingID uuid.UUID) ([]*models.NarrativeChoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.NarrativeChoice
	for _, c := range r.choices {
		if c.TenantID == tenantID && c.FindingID == findingID {
			out = append(out, c)
		}
	}
	return out, nil
}

// fakeSettingRepo is an in-memory NarrativeSettingRepository.
type fakeSettingRepo struct {
	mu       sync.Mutex
	settings map[uuid.UUID]*models.NarrativeSetting
	gets     int
	getErr   error
}

func newFakeSettingRepo() *fakeSettingRepo {
	return &fakeSettingRepo{settings: map[uuid.UUID]*models.NarrativeSetting{}}
}

var _ repositories.NarrativeSettingRepository = (*fakeSettingRepo)(nil)

func (r *fakeSettingRepo) GetOrCreate(_ context.Context, tenantID uuid.UUID) (*models.NarrativeSetting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	if r.getErr != nil {
		return nil, r.getErr
	}
	s, ok := r.settings[tenantID]
	if !ok {
		now := time.Now()
		s = &models.NarrativeSetting{
			ID:                  uuid.New(),
			TenantID:            tenantID,
			AutoApplyNarratives: models.DefaultAutoApplyNarratives,
			AutoApplyThreshold:  models.DefaultAutoApplyThreshold,
			Language:            models.DefaultNarrativeLanguage,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		r.settings[tenantID] = s
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSettingRepo) Update(_ context.Context, s *models.NarrativeSetting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.settings[s.TenantID]; !ok {
		return apperrors.ErrNotFound
	}
	s.UpdatedAt = time.Now()
	cp := *s
	r.settings[s.TenantID] = &cp
	return nil
}

// memorySettingsCache is a map-backed cache.SettingsCache with an injectable failure.
type memorySettingsCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]models.NarrativeSetting
	getErr  error
	setErr  error
}

func newMemorySettingsCache() *memorySettingsCache {
	return &memorySettingsCache{entries: map[uuid.UUID]models.NarrativeSetting{}}
}

func (c *memorySettingsCache) Get(_ context.Context, tenantID uuid.UUID) (*models.NarrativeSetting, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	s, ok := c.entries[tenantID]
	if !ok {
		return nil, false, nil
	}
	return &s, true, nil
}

func (c *memorySettingsCache) Set(_ context.Context, s *models.NarrativeSetting) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[s.TenantID] = *s
	return nil
}

func (c *memorySettingsCache) Invalidate(_ context.Context, tenantID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, tenantID)
	return nil
}
