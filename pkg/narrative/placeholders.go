// Package narrative holds the pure text logic behind narrative suggestions:
// placeholder extraction, variable extraction from finding text, lexical scoring
// and template rendering. Nothing in this package performs I/O.
package narrative

import (
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// ExtractPlaceholders returns the distinct {{name}} tokens in body, in first-seen order.
// Names are trimmed and keep their original casing; two tokens that differ only in case
// count once because rendering matches them case-insensitively.
func ExtractPlaceholders(body string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return []string{}
	}

	seen := make(map[string]struct{}, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		name := strings.TrimSpace(m[1])
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, name)
	}
	return names
}
