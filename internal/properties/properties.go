// Package properties decodes Java-style .properties text into configuration
// trees. Parse implements the dialect used inside configuration packages;
// Convert implements the richer props2yaml dialect with array keys and
// scalar/mapping conflict promotion.
package properties

import (
	"strings"

	"github.com/eugenenazirov/confpack/internal/tree"
)

// Parse decodes properties text into a nested mapping. Keys are split on
// '.' into path segments created on demand; values are kept as literal
// strings, placeholders included. Blank lines and lines starting with '#'
// or '!' are ignored; lines without '=' are skipped.
func Parse(text string) *tree.Mapping {
	result := tree.NewMapping()

	for _, line := range strings.Split(text, "\n") {
		key, value, ok := splitLine(line)
		if !ok {
			continue
		}

		segments := strings.Split(key, ".")
		current := result
		for _, segment := range segments[:len(segments)-1] {
			next, ok := current.Get(segment)
			nested, isMapping := next.(*tree.Mapping)
			if !ok || !isMapping {
				nested = tree.NewMapping()
				current.Set(segment, nested)
			}
			current = nested
		}
		current.Set(segments[len(segments)-1], value)
	}

	return result
}

// splitLine splits a properties line on the first '=', trimming whitespace
// around both halves. It reports false for comments, blank lines, and
// malformed lines.
func splitLine(line string) (key, value string, ok bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "!") {
		return "", "", false
	}

	key, value, found := strings.Cut(trimmed, "=")
	if !found {
		return "", "", false
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key == "" {
		return "", "", false
	}
	return key, value, true
}
