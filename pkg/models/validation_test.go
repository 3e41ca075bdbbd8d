package models

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/inspection-engine/pkg/apperrors"
)

func TestValidate_TemplateDefinition_OK(t *testing.T) {
	def := NarrativeTemplateDefinition{
		Title:    "Roof Shingle Damage",
		Body:     "The {{material}} shingles on the {{location}} roof show {{condition}}.",
		Category: CategoryRoofing,
		Severity: SeverityMajor,
		Tags:     []string{"roof", "shingle"},
	}
	assert.NoError(t, Validate(def))
}

func TestValidate_TemplateDefinition_Problems(t *testing.T) {
	def := NarrativeTemplateDefinition{
		Title:    "",
		Body:     "body",
		Category: "GARDEN",
		Tags:     []string{"ok", strings.Repeat("x", 51)},
	}

	err := Validate(def)
	require.Error(t, err)

	var ve *apperrors.ValidationError
	require.True(t, errors.As(err, &ve))

	fields := map[string]string{}
	for _, f := range ve.Fields {
		fields[f.Field] = f.Problem
	}
	assert.Equal(t, "is required", fields["title"])
	assert.Contains(t, fields["category"], "must be one of")
	assert.Contains(t, fields, "tags[1]")
	assert.NotContains(t, fields, "body")
}

func TestValidate_SettingPatchThreshold(t *testing.T) {
	tooHigh := 1.5
	err := Validate(NarrativeSettingPatch{AutoApplyThreshold: &tooHigh})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Contains(t, err.Error(), "auto_apply_threshold")

	ok := 0.5
	assert.NoError(t, Validate(NarrativeSettingPatch{AutoApplyThreshold: &ok}))
}

func TestValidate_FilterLimit(t *testing.T) {
	err := Validate(NarrativeTemplateFilter{Limit: 500})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit: must be <= 100")

	assert.NoError(t, Validate(NarrativeTemplateFilter{Limit: 20, Category: CategoryHVAC}))
}

func TestCategoryAndModeIsValid(t *testing.T) {
	assert.True(t, CategoryOther.IsValid())
	assert.False(t, NarrativeCategory("roofing").IsValid())
	assert.True(t, ApplyModeEdited.IsValid())
	assert.False(t, ApplyMode("bulk").IsValid())
}
