package narrative

import (
	"strings"

	"github.com/ekaya-inc/inspection-engine/pkg/jsonutil"
)

// Extractor derives narrative variables from free-text finding titles and summaries.
type Extractor struct {
	patterns *PatternSet
}

// NewExtractor returns an Extractor using DefaultPatterns.
func NewExtractor() *Extractor {
	return NewExtractorWithPatterns(DefaultPatterns)
}

// NewExtractorWithPatterns returns an Extractor over a custom pattern table.
func NewExtractorWithPatterns(patterns *PatternSet) *Extractor {
	return &Extractor{patterns: patterns}
}

// Extract runs the pattern tables over title and summary, applies structured hints and
// fills defaults. It is deterministic: the same input always yields the same bag.
// hints may be nil.
func (e *Extractor) Extract(title, summary, sectionName string, hints *StructuredHints) ExtractedVariables {
	original := title + " " + summary
	corpus := strings.ToLower(original)

	var vars ExtractedVariables

	if m, ok := firstMatch(e.patterns.Location, corpus); ok {
		vars.Location = m[1]
	}

	if m, ok := firstMatch(e.patterns.Quantity, corpus); ok {
		vars.Quantity = m[1]
		if len(m) > 2 && m[2] != "" {
			vars.Unit = m[2]
		}
	}

	if m, ok := firstMatch(e.patterns.Condition, corpus); ok {
		vars.Condition = m[1]
	}

	if m, ok := firstMatch(e.patterns.Material, corpus); ok {
		vars.Material = m[1]
	}

	if m, ok := firstMatch(e.patterns.Component, corpus); ok {
		vars.Component = componentStem(m)
	} else if sectionName != "" {
		vars.Component = strings.ToLower(sectionName)
	}

	if m, ok := firstMatch(e.patterns.Area, corpus); ok {
		vars.Area = m[1]
	}

	if m, ok := firstMatch(e.patterns.RoomName, original); ok {
		vars.RoomName = m[1]
	}

	if m, ok := firstMatch(e.patterns.Dimension, corpus); ok {
		vars.Dimension = m[1]
	}

	applyHints(&vars, hints)
	applyDefaults(&vars)

	return vars
}

// componentStem returns the singular component from a Component pattern match
// ("valves" -> "valve"). Uncountable words come back unchanged.
func componentStem(m []string) string {
	for _, g := range m[1:] {
		if g != "" {
			return g
		}
	}
	return m[0]
}

func applyHints(vars *ExtractedVariables, hints *StructuredHints) {
	if hints == nil {
		return
	}

	set := func(dst *string, val string) {
		if val != "" {
			*dst = val
		}
	}

	set(&vars.RoomName, hints.Room)
	set(&vars.Area, hints.Area)
	set(&vars.Location, hints.Location)
	// Aliases first so the direct key overwrites them.
	set(&vars.Component, hints.System)
	set(&vars.Component, hints.Component)
	set(&vars.Condition, hints.Status)
	set(&vars.Condition, hints.Condition)
	set(&vars.Material, hints.Material)
	set(&vars.Quantity, jsonutil.FlexibleStringValue(hints.Count))
	set(&vars.Quantity, jsonutil.FlexibleStringValue(hints.Quantity))
}

func applyDefaults(vars *ExtractedVariables) {
	if vars.Location == "" {
		vars.Location = DefaultLocation
	}
	if vars.Condition == "" {
		vars.Condition = DefaultCondition
	}
	if vars.Component == "" {
		vars.Component = DefaultComponent
	}
	if vars.Area == "" {
		vars.Area = DefaultArea
	}
}

var defaultExtractor = NewExtractor()

// ExtractVariables runs the default extractor.
func ExtractVariables(title, summary, sectionName string, hints *StructuredHints) ExtractedVariables {
	return defaultExtractor.Extract(title, summary, sectionName, hints)
}
