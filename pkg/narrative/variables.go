package narrative

import (
	"encoding/json"
	"strings"
)

// Fallback values for variables the extractor could not find in the text.
const (
	DefaultLocation  = "the area"
	DefaultCondition = "deficient"
	DefaultComponent = "component"
	DefaultArea      = "the property"
)

// ExtractedVariables is the variable bag derived from a finding.
// JSON names match the placeholder names templates use.
type ExtractedVariables struct {
	Location  string `json:"location,omitempty"`
	Condition string `json:"condition,omitempty"`
	Quantity  string `json:"quantity,omitempty"`
	Unit      string `json:"unit,omitempty"`
	Component string `json:"component,omitempty"`
	Material  string `json:"material,omitempty"`
	Area      string `json:"area,omitempty"`
	RoomName  string `json:"roomName,omitempty"`
	Dimension string `json:"dimension,omitempty"`
}

// ToMap returns the set variables keyed by placeholder name. Unset variables are omitted.
func (v ExtractedVariables) ToMap() map[string]string {
	out := make(map[string]string, 9)
	put := func(k, val string) {
		if val != "" {
			out[k] = val
		}
	}
	put("location", v.Location)
	put("condition", v.Condition)
	put("quantity", v.Quantity)
	put("unit", v.Unit)
	put("component", v.Component)
	put("material", v.Material)
	put("area", v.Area)
	put("roomName", v.RoomName)
	put("dimension", v.Dimension)
	return out
}

// StructuredHints are structured values recorded on a finding (room pickers, checklists).
// A non-empty hint always overrides what pattern extraction found.
// System is an alias for Component, Status for Condition and Count for Quantity;
// when both the direct key and its alias are set the direct key wins.
type StructuredHints struct {
	Room      string `json:"room,omitempty"`
	Area      string `json:"area,omitempty"`
	Location  string `json:"location,omitempty"`
	Component string `json:"component,omitempty"`
	System    string `json:"system,omitempty"`
	Condition string `json:"condition,omitempty"`
	Status    string `json:"status,omitempty"`
	Material  string `json:"material,omitempty"`
	// Quantity and Count accept JSON strings or numbers.
	Quantity json.RawMessage `json:"quantity,omitempty"`
	Count    json.RawMessage `json:"count,omitempty"`
}

// ValidateVariables reports whether every required placeholder has a non-empty value.
// Lookups are case-insensitive, matching how Render substitutes.
func ValidateVariables(vars map[string]string, required []string) (bool, []string) {
	present := make(map[string]struct{}, len(vars))
	for k, v := range vars {
		if strings.TrimSpace(v) != "" {
			present[strings.ToLower(strings.TrimSpace(k))] = struct{}{}
		}
	}

	missing := []string{}
	for _, name := range required {
		if _, ok := present[strings.ToLower(strings.TrimSpace(name))]; !ok {
			missing = append(missing, name)
		}
	}
	return len(missing) == 0, missing
}
