package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/inspection-engine/pkg/apperrors"
	"github.com/ekaya-inc/inspection-engine/pkg/logging"
	"github.com/ekaya-inc/inspection-engine/pkg/metrics"
	"github.com/ekaya-inc/inspection-engine/pkg/models"
	"github.com/ekaya-inc/inspection-engine/pkg/narrative"
	"github.com/ekaya-inc/inspection-engine/pkg/repositories"
)

const (
	// SuggestionMinScore is exclusive: a template must score strictly above it.
	SuggestionMinScore = 0.3
	// MaxSuggestions caps the ranked suggestion list.
	MaxSuggestions = 5
)

// NarrativeSuggestion is one ranked candidate template for a finding.
type NarrativeSuggestion struct {
	Template  *models.NarrativeTemplate `json:"template"`
	Score     float64                   `json:"score"`
	Variables map[string]string         `json:"variables"`
	// MissingVariables lists template placeholders the extracted variables cannot fill.
	MissingVariables []string `json:"missing_variables"`
}

// NarrativeTemplateList is one page of templates plus the unpaged match count.
type NarrativeTemplateList struct {
	Templates  []*models.NarrativeTemplate `json:"templates"`
	TotalCount int                         `json:"total_count"`
}

// ApplyRequest describes applying a template to a finding.
type ApplyRequest struct {
	NarrativeID uuid.UUID
	// Variables nil means extract them from the finding.
	Variables map[string]string
	// Mode defaults to manual.
	Mode       models.ApplyMode
	UserID     string
	Confidence *float64
}

// AutoApplyResult reports what AutoApply decided.
type AutoApplyResult struct {
	Applied    bool                 `json:"applied"`
	Reason     string               `json:"reason,omitempty"`
	Suggestion *NarrativeSuggestion `json:"suggestion,omitempty"`
	Finding    *models.Finding      `json:"finding,omitempty"`
}

// Reasons reported by AutoApply when nothing was applied.
const (
	AutoApplyDisabled       = "disabled"
	AutoApplyNoSuggestion   = "no_suggestion"
	AutoApplyBelowThreshold = "below_threshold"
)

// NarrativeService provides narrative template management, suggestion and application.
type NarrativeService interface {
	// CreateTemplate validates def and stores a new active template with derived placeholders.
	CreateTemplate(ctx context.Context, tenantID uuid.UUID, def models.NarrativeTemplateDefinition) (*models.NarrativeTemplate, error)

	// UpdateTemplate applies a partial update. Placeholders are recomputed when the body changes.
	UpdateTemplate(ctx context.Context, tenantID, templateID uuid.UUID, patch models.NarrativeTemplatePatch) (*models.NarrativeTemplate, error)

	// DeactivateTemplate hides a template from suggestions. The row is kept.
	DeactivateTemplate(ctx context.Context, tenantID, templateID uuid.UUID) error

	GetTemplate(ctx context.Context, tenantID, templateID uuid.UUID) (*models.NarrativeTemplate, error)

	// ListTemplates returns one page of templates. A zero Limit uses the configured default.
	ListTemplates(ctx context.Context, tenantID uuid.UUID, filter models.NarrativeTemplateFilter) (*NarrativeTemplateList, error)

	// Suggest ranks the tenant's active templates in the finding's category.
	Suggest(ctx context.Context, tenantID, findingID uuid.UUID) ([]*NarrativeSuggestion, error)

	// Apply renders a template into a finding and records the choice.
	Apply(ctx context.Context, tenantID, findingID uuid.UUID, req ApplyRequest) (*models.Finding, error)

	// AutoApply applies the top suggestion when the tenant has auto-apply enabled
	// and the suggestion clears the tenant's threshold.
	AutoApply(ctx context.Context, tenantID, findingID uuid.UUID) (*AutoApplyResult, error)

	ExtractVariables(title, summary, sectionName string, hints *narrative.StructuredHints) narrative.ExtractedVariables

	Render(body string, vars map[string]string) string

	// BulkImport stores every definition or none. Returns the number inserted.
	BulkImport(ctx context.Context, tenantID uuid.UUID, defs []models.NarrativeTemplateDefinition) (int, error)
}

type narrativeService struct {
	templateRepo     repositories.NarrativeTemplateRepository
	findingRepo      repositories.FindingRepository
	choiceRepo       repositories.NarrativeChoiceRepository
	settingsSvc      NarrativeSettingsService
	extractor        *narrative.Extractor
	listDefaultLimit int
	logger           *zap.Logger
}

// NewNarrativeService creates a new NarrativeService.
// listDefaultLimit is the page size ListTemplates uses when the filter has none.
func NewNarrativeService(
	templateRepo repositories.NarrativeTemplateRepository,
	findingRepo repositories.FindingRepository,
	choiceRepo repositories.NarrativeChoiceRepository,
	settingsSvc NarrativeSettingsService,
	listDefaultLimit int,
	logger *zap.Logger,
) NarrativeService {
	return &narrativeService{
		templateRepo:     templateRepo,
		findingRepo:      findingRepo,
		choiceRepo:       choiceRepo,
		settingsSvc:      settingsSvc,
		extractor:        narrative.NewExtractor(),
		listDefaultLimit: listDefaultLimit,
		logger:           logger.Named("narrative-service"),
	}
}

var _ NarrativeService = (*narrativeService)(nil)

func (s *narrativeService) CreateTemplate(ctx context.Context, tenantID uuid.UUID, def models.NarrativeTemplateDefinition) (*models.NarrativeTemplate, error) {
	tpl, err := newTemplateFromDefinition(tenantID, def)
	if err != nil {
		return nil, err
	}

	if err := s.templateRepo.Create(ctx, tpl); err != nil {
		return nil, fmt.Errorf("create narrative template: %w", err)
	}

	s.logger.Info("Created narrative template",
		zap.String("tenant_id", tenantID.String()),
		zap.String("template_id", tpl.ID.String()),
		zap.String("category", string(tpl.Category)))

	return tpl, nil
}

func (s *narrativeService) UpdateTemplate(ctx context.Context, tenantID, templateID uuid.UUID, patch models.NarrativeTemplatePatch) (*models.NarrativeTemplate, error) {
	if err := models.Validate(patch); err != nil {
		return nil, err
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, apperrors.NewValidationError("title", "is required")
	}
	if patch.Body != nil && strings.TrimSpace(*patch.Body) == "" {
		return nil, apperrors.NewValidationError("body", "is required")
	}

	tpl, err := s.templateRepo.GetByID(ctx, tenantID, templateID)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		tpl.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Body != nil {
		tpl.Body = *patch.Body
		tpl.Placeholders = narrative.ExtractPlaceholders(tpl.Body)
	}
	if patch.Category != nil {
		tpl.Category = *patch.Category
	}
	if patch.Component != nil {
		tpl.Component = strings.TrimSpace(*patch.Component)
	}
	if patch.Severity != nil {
		tpl.Severity = *patch.Severity
	}
	if patch.Tags != nil {
		tpl.Tags = normalizeTags(*patch.Tags)
	}
	if patch.Language != nil {
		tpl.Language = strings.TrimSpace(*patch.Language)
	}
	if patch.IsActive != nil {
		tpl.IsActive = *patch.IsActive
	}

	if err := s.templateRepo.Update(ctx, tpl); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update narrative template: %w", err)
	}

	return tpl, nil
}

func (s *narrativeService) DeactivateTemplate(ctx context.Context, tenantID, templateID uuid.UUID) error {
	if err := s.templateRepo.Deactivate(ctx, tenantID, templateID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		return fmt.Errorf("deactivate narrative template: %w", err)
	}

	s.logger.Info("Deactivated narrative template",
		zap.String("tenant_id", tenantID.String()),
		zap.String("template_id", templateID.String()))
	return nil
}

func (s *narrativeService) GetTemplate(ctx context.Context, tenantID, templateID uuid.UUID) (*models.NarrativeTemplate, error) {
	return s.templateRepo.GetByID(ctx, tenantID, templateID)
}

func (s *narrativeService) ListTemplates(ctx context.Context, tenantID uuid.UUID, filter models.NarrativeTemplateFilter) (*NarrativeTemplateList, error) {
	if filter.Limit == 0 {
		filter.Limit = s.listDefaultLimit
	}
	if err := models.Validate(filter); err != nil {
		return nil, err
	}
	filter.Tags = normalizeTags(filter.Tags)

	templates, total, err := s.templateRepo.List(ctx, tenantID, filter)
	if err != nil {
		return nil, fmt.Errorf("list narrative templates: %w", err)
	}

	return &NarrativeTemplateList{Templates: templates, TotalCount: total}, nil
}

func (s *narrativeService) Suggest(ctx context.Context, tenantID, findingID uuid.UUID) ([]*NarrativeSuggestion, error) {
	finding, err := s.findingRepo.GetByID(ctx, tenantID, findingID)
	if err != nil {
		return nil, err
	}

	category := narrative.CategoryForSection(finding.SectionName)
	candidates, err := s.templateRepo.ListActiveByCategory(ctx, tenantID, category)
	if err != nil {
		return nil, fmt.Errorf("load candidate templates: %w", err)
	}

	// Variables do not depend on the template, so they are extracted once.
	vars := s.extractor.Extract(finding.Title, finding.Summary, finding.SectionName, nil).ToMap()
	text := narrative.FindingTextOf(finding)

	suggestions := make([]*NarrativeSuggestion, 0, len(candidates))
	for _, tpl := range candidates {
		score := narrative.Score(text, tpl)
		if score <= SuggestionMinScore {
			continue
		}
		_, missing := narrative.ValidateVariables(vars, tpl.Placeholders)
		suggestions = append(suggestions, &NarrativeSuggestion{
			Template:         tpl,
			Score:            score,
			Variables:        vars,
			MissingVariables: missing,
		})
	}

	// Candidates arrive ordered by use_count DESC, id ASC; stable sort keeps that order on ties.
	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Score > suggestions[j].Score
	})
	if len(suggestions) > MaxSuggestions {
		suggestions = suggestions[:MaxSuggestions]
	}

	metrics.SuggestionsServed.WithLabelValues(string(category)).Add(float64(len(suggestions)))
	for _, sg := range suggestions {
		metrics.SuggestionScore.Observe(sg.Score)
	}

	s.logger.Debug("Ranked narrative suggestions",
		zap.String("tenant_id", tenantID.String()),
		zap.String("finding_id", findingID.String()),
		zap.String("category", string(category)),
		zap.Int("candidates", len(candidates)),
		zap.Int("suggestions", len(suggestions)))

	return suggestions, nil
}

func (s *narrativeService) Apply(ctx context.Context, tenantID, findingID uuid.UUID, req ApplyRequest) (*models.Finding, error) {
	mode := req.Mode
	if mode == "" {
		mode = models.ApplyModeManual
	}
	if !mode.IsValid() {
		return nil, apperrors.NewValidationError("mode", "must be one of: manual auto edited")
	}
	if req.Confidence != nil && (*req.Confidence < 0 || *req.Confidence > 1) {
		return nil, apperrors.NewValidationError("confidence", "must be between 0 and 1")
	}

	tpl, err := s.templateRepo.GetByID(ctx, tenantID, req.NarrativeID)
	if err != nil {
		return nil, err
	}

	finding, err := s.findingRepo.GetByID(ctx, tenantID, findingID)
	if err != nil {
		return nil, err
	}

	vars := req.Variables
	if vars == nil {
		vars = s.extractor.Extract(finding.Title, finding.Summary, finding.SectionName, nil).ToMap()
	}

	rendered := narrative.Render(tpl.Body, vars)
	if narrative.HasUnresolved(rendered) {
		_, missing := narrative.ValidateVariables(vars, tpl.Placeholders)
		metrics.UnresolvedRenders.Inc()
		s.logger.Warn("Applied narrative has unresolved placeholders",
			zap.String("tenant_id", tenantID.String()),
			zap.String("finding_id", findingID.String()),
			zap.String("template_id", tpl.ID.String()),
			zap.Strings("missing", missing),
			zap.String("text", logging.TruncateString(rendered, 120)))
	}

	finding.NarrativeID = &tpl.ID
	finding.NarrativeText = rendered
	finding.NarrativeVariables = vars
	finding.NarrativeConfidence = req.Confidence

	if err := s.findingRepo.UpdateNarrative(ctx, finding); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update finding narrative: %w", err)
	}

	// The finding is already updated; a failed increment only skews ranking.
	if err := s.templateRepo.IncrementUseCount(ctx, tenantID, tpl.ID); err != nil {
		s.logger.Error("Failed to increment narrative use count",
			zap.String("tenant_id", tenantID.String()),
			zap.String("template_id", tpl.ID.String()),
			zap.Error(err))
	}

	if req.UserID != "" {
		choice := &models.NarrativeChoice{
			TenantID:    tenantID,
			FindingID:   finding.ID,
			NarrativeID: tpl.ID,
			Chosen:      mode != models.ApplyModeAuto,
			Score:       req.Confidence,
			Edited:      mode == models.ApplyModeEdited,
			Mode:        mode,
			UserID:      req.UserID,
		}
		if err := s.choiceRepo.Create(ctx, choice); err != nil {
			s.logger.Warn("Failed to record narrative choice",
				zap.String("tenant_id", tenantID.String()),
				zap.String("finding_id", finding.ID.String()),
				zap.Error(err))
		}
	}

	metrics.Applies.WithLabelValues(string(mode)).Inc()
	s.logger.Info("Applied narrative to finding",
		zap.String("tenant_id", tenantID.String()),
		zap.String("finding_id", finding.ID.String()),
		zap.String("template_id", tpl.ID.String()),
		zap.String("mode", string(mode)))

	return finding, nil
}

func (s *narrativeService) AutoApply(ctx context.Context, tenantID, findingID uuid.UUID) (*AutoApplyResult, error) {
	settings, err := s.settingsSvc.GetSettings(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !settings.AutoApplyNarratives {
		return &AutoApplyResult{Reason: AutoApplyDisabled}, nil
	}

	suggestions, err := s.Suggest(ctx, tenantID, findingID)
	if err != nil {
		return nil, err
	}
	if len(suggestions) == 0 {
		return &AutoApplyResult{Reason: AutoApplyNoSuggestion}, nil
	}

	top := suggestions[0]
	if top.Score < settings.AutoApplyThreshold {
		return &AutoApplyResult{Reason: AutoApplyBelowThreshold, Suggestion: top}, nil
	}

	score := top.Score
	finding, err := s.Apply(ctx, tenantID, findingID, ApplyRequest{
		NarrativeID: top.Template.ID,
		Variables:   top.Variables,
		Mode:        models.ApplyModeAuto,
		UserID:      "system",
		Confidence:  &score,
	})
	if err != nil {
		return nil, err
	}

	return &AutoApplyResult{Applied: true, Suggestion: top, Finding: finding}, nil
}

func (s *narrativeService) ExtractVariables(title, summary, sectionName string, hints *narrative.StructuredHints) narrative.ExtractedVariables {
	return s.extractor.Extract(title, summary, sectionName, hints)
}

func (s *narrativeService) Render(body string, vars map[string]string) string {
	return narrative.Render(body, vars)
}

func (s *narrativeService) BulkImport(ctx context.Context, tenantID uuid.UUID, defs []models.NarrativeTemplateDefinition) (int, error) {
	if len(defs) == 0 {
		return 0, nil
	}

	templates := make([]*models.NarrativeTemplate, 0, len(defs))
	for i, def := range defs {
		tpl, err := newTemplateFromDefinition(tenantID, def)
		if err != nil {
			return 0, prefixValidation(err, fmt.Sprintf("templates[%d].", i))
		}
		templates = append(templates, tpl)
	}

	if err := s.templateRepo.BulkCreate(ctx, templates); err != nil {
		return 0, fmt.Errorf("bulk import narrative templates: %w", err)
	}

	s.logger.Info("Imported narrative templates",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("count", len(templates)))

	return len(templates), nil
}

// newTemplateFromDefinition validates def and builds an active template with use_count 0.
func newTemplateFromDefinition(tenantID uuid.UUID, def models.NarrativeTemplateDefinition) (*models.NarrativeTemplate, error) {
	def.Title = strings.TrimSpace(def.Title)
	def.Component = strings.TrimSpace(def.Component)
	def.Language = strings.TrimSpace(def.Language)
	if strings.TrimSpace(def.Body) == "" {
		def.Body = ""
	}

	if err := models.Validate(def); err != nil {
		return nil, err
	}

	language := def.Language
	if language == "" {
		language = models.DefaultNarrativeLanguage
	}

	return &models.NarrativeTemplate{
		TenantID:     tenantID,
		Title:        def.Title,
		Body:         def.Body,
		Category:     def.Category,
		Component:    def.Component,
		Severity:     def.Severity,
		Tags:         normalizeTags(def.Tags),
		Language:     language,
		Placeholders: narrative.ExtractPlaceholders(def.Body),
		UseCount:     0,
		IsActive:     true,
	}, nil
}

// normalizeTags trims tags and drops empty ones.
func normalizeTags(tags []string) []string {
	if tags == nil {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// prefixValidation qualifies validation field names, e.g. "title" -> "templates[3].title".
func prefixValidation(err error, prefix string) error {
	var ve *apperrors.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	out := &apperrors.ValidationError{Fields: make([]apperrors.FieldError, len(ve.Fields))}
	for i, f := range ve.Fields {
		out.Fields[i] = apperrors.FieldError{Field: prefix + f.Field, Problem: f.Problem}
	}
	return out
}
