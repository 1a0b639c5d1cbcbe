package properties

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/eugenenazirov/confpack/internal/tree"
)

// arrayKeyPattern matches indexed keys of the form base[3].
var arrayKeyPattern = regexp.MustCompile(`^(.+)\[(\d+)\]$`)

// Convert decodes properties text into a nested mapping using the extended
// props2yaml dialect: keys of the form base[index]=value build sequences
// (padded with nulls up to index), and a key that collides with an existing
// scalar or mapping keeps the earlier value under "_value" instead of
// dropping it.
func Convert(text string) *tree.Mapping {
	result := tree.NewMapping()

	for _, line := range strings.Split(text, "\n") {
		key, value, ok := splitLine(line)
		if !ok {
			continue
		}

		if match := arrayKeyPattern.FindStringSubmatch(key); match != nil {
			index, err := strconv.Atoi(match[2])
			if err != nil {
				continue
			}
			setArrayValue(result, match[1], index, value)
			continue
		}
		setSimpleValue(result, key, value)
	}

	return result
}

func setSimpleValue(root *tree.Mapping, key, value string) {
	segments := strings.Split(key, ".")
	current := descend(root, segments[:len(segments)-1])

	last := segments[len(segments)-1]
	existing, ok := current.Get(last)
	if !ok {
		current.Set(last, value)
		return
	}

	switch prior := existing.(type) {
	case *tree.Mapping:
		prior.Set("_value", value)
	default:
		promoted := tree.NewMapping()
		promoted.Set("_value", prior)
		promoted.Set("_value2", value)
		current.Set(last, promoted)
	}
}

func setArrayValue(root *tree.Mapping, baseKey string, index int, value string) {
	segments := strings.Split(baseKey, ".")
	current := descend(root, segments[:len(segments)-1])

	last := segments[len(segments)-1]
	var items []any
	switch existing, ok := current.Get(last); {
	case !ok:
		items = []any{}
	default:
		if seq, isSeq := existing.([]any); isSeq {
			items = seq
		} else {
			items = []any{existing}
		}
	}

	for len(items) <= index {
		items = append(items, nil)
	}
	items[index] = value
	current.Set(last, items)
}

// descend walks intermediate path segments, creating mappings on demand and
// preserving a displaced scalar under "_value".
func descend(root *tree.Mapping, segments []string) *tree.Mapping {
	current := root
	for _, segment := range segments {
		next, ok := current.Get(segment)
		if nested, isMapping := next.(*tree.Mapping); ok && isMapping {
			current = nested
			continue
		}
		nested := tree.NewMapping()
		if ok {
			nested.Set("_value", next)
		}
		current.Set(segment, nested)
		current = nested
	}
	return current
}
