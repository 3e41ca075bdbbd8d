package models

import (
	"time"

	"github.com/google/uuid"
)

// Finding is an inspection finding owned by the report subsystem.
// The narrative engine reads Title/Summary/SectionName/Severity and writes the Narrative* fields.
// NarrativeText is a snapshot of the rendered template at apply time.
type Finding struct {
	ID                  uuid.UUID         `json:"id"`
	TenantID            uuid.UUID         `json:"tenant_id"`
	ReportID            *uuid.UUID        `json:"report_id,omitempty"`
	Title               string            `json:"title"`
	Summary             string            `json:"summary"`
	SectionName         string            `json:"section_name,omitempty"`
	Severity            FindingSeverity   `json:"severity,omitempty"`
	NarrativeID         *uuid.UUID        `json:"narrative_id,omitempty"`
	NarrativeText       string            `json:"narrative_text,omitempty"`
	NarrativeVariables  map[string]string `json:"narrative_variables,omitempty"`
	NarrativeConfidence *float64          `json:"narrative_confidence,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}
