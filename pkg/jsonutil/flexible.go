package jsonutil

import (
	"encoding/json"
	"strconv"
)

// FlexibleStringValue renders a JSON scalar as a string. Inspection apps send counts
// and measurements as numbers or strings interchangeably; both end up as text in a
// narrative. Returns empty string for null/empty.
func FlexibleStringValue(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		if numVal == float64(int64(numVal)) {
			return strconv.FormatInt(int64(numVal), 10)
		}
		return strconv.FormatFloat(numVal, 'g', -1, 64)
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return strconv.FormatBool(boolVal)
	}

	// Objects and arrays are kept as their JSON text.
	return string(raw)
}

// FlexibleStringMap converts a JSON object of scalars into a string map.
// Keys whose value renders empty are dropped. Returns nil for a nil input.
func FlexibleStringMap(raw map[string]json.RawMessage) map[string]string {
	if raw == nil {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s := FlexibleStringValue(v); s != "" {
			out[k] = s
		}
	}
	return out
}
