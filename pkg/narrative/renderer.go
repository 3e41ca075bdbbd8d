package narrative

import (
	"regexp"
	"sort"
	"strings"
)

// UnresolvedMarker replaces any placeholder left after substitution.
const UnresolvedMarker = "[unresolved]"

var placeholderToken = regexp.MustCompile(`\{\{([^{}]*)\}\}`)

// Render substitutes vars into body. Keys match {{ key }} case-insensitively with any
// whitespace inside the braces. Placeholders with no value become UnresolvedMarker.
// Substitution is a single pass over body, so braces inside a value are kept as written.
// Render never fails.
func Render(body string, vars map[string]string) string {
	lookup := foldKeys(vars)

	return placeholderToken.ReplaceAllStringFunc(body, func(token string) string {
		key := strings.ToLower(strings.TrimSpace(token[2 : len(token)-2]))
		if val, ok := lookup[key]; ok && key != "" {
			return val
		}
		return UnresolvedMarker
	})
}

// foldKeys lowercases keys. When two keys differ only in case the one that sorts
// first wins, so the result does not depend on map iteration order.
func foldKeys(vars map[string]string) map[string]string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]string, len(keys))
	for _, k := range keys {
		folded := strings.ToLower(strings.TrimSpace(k))
		if _, seen := out[folded]; !seen {
			out[folded] = vars[k]
		}
	}
	return out
}

// HasUnresolved reports whether a rendered string contains the unresolved marker.
func HasUnresolved(rendered string) bool {
	return strings.Contains(rendered, UnresolvedMarker)
}
