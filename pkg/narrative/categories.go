package narrative

import (
	"strings"

	"github.com/ekaya-inc/inspection-engine/pkg/models"
)

// sectionCategories maps lower-cased report section names to template categories.
var sectionCategories = map[string]models.NarrativeCategory{
	"roofing":    models.CategoryRoofing,
	"plumbing":   models.CategoryPlumbing,
	"hvac":       models.CategoryHVAC,
	"electrical": models.CategoryElectrical,
	"exterior":   models.CategoryExterior,
	"grounds":    models.CategoryExterior,
	"garage":     models.CategoryExterior,
	"interior":   models.CategoryInterior,
	"bathroom":   models.CategoryInterior,
	"kitchen":    models.CategoryInterior,
	"rooms":      models.CategoryInterior,
	"bedrooms":   models.CategoryInterior,
}

// CategoryForSection returns the template category for a report section name.
// Unknown or empty names map to OTHER.
func CategoryForSection(sectionName string) models.NarrativeCategory {
	if c, ok := sectionCategories[strings.ToLower(strings.TrimSpace(sectionName))]; ok {
		return c
	}
	return models.CategoryOther
}
