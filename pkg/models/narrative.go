package models

import (
	"time"

	"github.com/google/uuid"
)

// NarrativeCategory groups narrative templates by inspection trade.
type NarrativeCategory string

const (
	CategoryRoofing    NarrativeCategory = "ROOFING"
	CategoryHVAC       NarrativeCategory = "HVAC"
	CategoryPlumbing   NarrativeCategory = "PLUMBING"
	CategoryElectrical NarrativeCategory = "ELECTRICAL"
	CategoryExterior   NarrativeCategory = "EXTERIOR"
	CategoryInterior   NarrativeCategory = "INTERIOR"
	CategoryOther      NarrativeCategory = "OTHER"
)

// IsValid returns true if the category is one of the known values.
func (c NarrativeCategory) IsValid() bool {
	switch c {
	case CategoryRoofing, CategoryHVAC, CategoryPlumbing, CategoryElectrical,
		CategoryExterior, CategoryInterior, CategoryOther:
		return true
	}
	return false
}

// FindingSeverity is shared by findings and narrative templates.
// The empty value means "not set".
type FindingSeverity string

const (
	SeverityMajor  FindingSeverity = "MAJOR"
	SeveritySafety FindingSeverity = "SAFETY"
	SeverityMinor  FindingSeverity = "MINOR"
	SeverityInfo   FindingSeverity = "INFO"
)

// DefaultNarrativeLanguage is used when a template or setting does not specify one.
const DefaultNarrativeLanguage = "en-US"

// NarrativeTemplate is reusable report boilerplate with {{placeholder}} tokens.
// Stored in engine_narrative_templates. Rows are never physically deleted;
// DeactivateTemplate flips IsActive.
type NarrativeTemplate struct {
	ID        uuid.UUID         `json:"id"`
	TenantID  uuid.UUID         `json:"tenant_id"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Category  NarrativeCategory `json:"category"`
	Component string            `json:"component,omitempty"`
	Severity  FindingSeverity   `json:"severity,omitempty"`
	Tags      []string          `json:"tags"`
	Language  string            `json:"language"`
	// Placeholders is derived from Body on every write. Never accepted from input.
	Placeholders []string  `json:"placeholders"`
	UseCount     int       `json:"use_count"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NarrativeTemplateDefinition is the input for creating or bulk-importing a template.
type NarrativeTemplateDefinition struct {
	Title     string            `json:"title" yaml:"title" validate:"required,max=200"`
	Body      string            `json:"body" yaml:"body" validate:"required,max=10000"`
	Category  NarrativeCategory `json:"category" yaml:"category" validate:"required,oneof=ROOFING HVAC PLUMBING ELECTRICAL EXTERIOR INTERIOR OTHER"`
	Component string            `json:"component,omitempty" yaml:"component" validate:"max=100"`
	Severity  FindingSeverity   `json:"severity,omitempty" yaml:"severity" validate:"omitempty,oneof=MAJOR SAFETY MINOR INFO"`
	Tags      []string          `json:"tags,omitempty" yaml:"tags" validate:"max=50,dive,max=50"`
	Language  string            `json:"language,omitempty" yaml:"language" validate:"omitempty,max=10"`
}

// NarrativeTemplatePatch is a partial update. Nil fields are left unchanged.
type NarrativeTemplatePatch struct {
	Title     *string            `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Body      *string            `json:"body,omitempty" validate:"omitempty,min=1,max=10000"`
	Category  *NarrativeCategory `json:"category,omitempty" validate:"omitempty,oneof=ROOFING HVAC PLUMBING ELECTRICAL EXTERIOR INTERIOR OTHER"`
	Component *string            `json:"component,omitempty" validate:"omitempty,max=100"`
	Severity  *FindingSeverity   `json:"severity,omitempty" validate:"omitempty,oneof=MAJOR SAFETY MINOR INFO"`
	Tags      *[]string          `json:"tags,omitempty" validate:"omitempty,max=50,dive,max=50"`
	Language  *string            `json:"language,omitempty" validate:"omitempty,min=1,max=10"`
	IsActive  *bool              `json:"is_active,omitempty"`
}

// NarrativeTemplateFilter narrows ListTemplates results.
type NarrativeTemplateFilter struct {
	Search    string            `validate:"max=200"`
	Category  NarrativeCategory `validate:"omitempty,oneof=ROOFING HVAC PLUMBING ELECTRICAL EXTERIOR INTERIOR OTHER"`
	Component string            `validate:"max=100"`
	Tags      []string          `validate:"max=50,dive,max=50"`
	Severity  FindingSeverity   `validate:"omitempty,oneof=MAJOR SAFETY MINOR INFO"`
	IsActive  *bool
	Limit     int `validate:"gte=0,lte=100"`
	Offset    int `validate:"gte=0"`
}

// ApplyMode records how a narrative ended up on a finding.
type ApplyMode string

const (
	ApplyModeManual ApplyMode = "manual" // inspector picked the suggestion
	ApplyModeAuto   ApplyMode = "auto"   // auto-apply policy picked it
	ApplyModeEdited ApplyMode = "edited" // inspector picked it and edited the rendered text
)

// IsValid returns true if the mode is one of the known values.
func (m ApplyMode) IsValid() bool {
	return m == ApplyModeManual || m == ApplyModeAuto || m == ApplyModeEdited
}

// NarrativeChoice is an append-only record of a narrative being applied to a finding.
// Stored in engine_narrative_choices.
type NarrativeChoice struct {
	ID          uuid.UUID `json:"id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	FindingID   uuid.UUID `json:"finding_id"`
	NarrativeID uuid.UUID `json:"narrative_id"`
	Chosen      bool      `json:"chosen"`
	Score       *float64  `json:"score,omitempty"`
	Edited      bool      `json:"edited"`
	Mode        ApplyMode `json:"mode"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Narrative setting defaults applied when a tenant has no settings row yet.
const (
	DefaultAutoApplyNarratives = false
	DefaultAutoApplyThreshold  = 0.72
)

// NarrativeSetting holds per-tenant narrative configuration. Exactly one row per tenant.
type NarrativeSetting struct {
	ID                  uuid.UUID `json:"id"`
	TenantID            uuid.UUID `json:"tenant_id"`
	AutoApplyNarratives bool      `json:"auto_apply_narratives"`
	AutoApplyThreshold  float64   `json:"auto_apply_threshold"`
	Language            string    `json:"language"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// NarrativeSettingPatch is a partial settings update.
type NarrativeSettingPatch struct {
	AutoApplyNarratives *bool    `json:"auto_apply_narratives,omitempty"`
	AutoApplyThreshold  *float64 `json:"auto_apply_threshold,omitempty" validate:"omitempty,gte=0,lte=1"`
	Language            *string  `json:"language,omitempty" validate:"omitempty,min=1,max=10"`
}
