// Package merge composes YAML merge-key nodes. A mapping carrying a "<<"
// key lists mapping fragments highest-priority first; composition folds
// them into a single mapping and layers the node's own sibling keys on top.
package merge

import (
	"errors"
	"fmt"

	"github.com/eugenenazirov/confpack/internal/tree"
)

// MergeKey is the mapping key that marks a merge node. The "<<:" syntax in
// YAML source parses to this key.
const MergeKey = "<<"

var (
	// ErrNotSequence is returned when a merge key's value is not a sequence.
	ErrNotSequence = errors.New("merge key value must be a sequence")
	// ErrFragmentNotMapping is returned when a merge fragment is not a mapping.
	ErrFragmentNotMapping = errors.New("merge fragment must be a mapping")
)

// Compose returns a new tree with every merge node replaced by its
// composed mapping. It expects references to be resolved already, so each
// fragment is a concrete mapping.
func Compose(value any) (any, error) {
	switch node := value.(type) {
	case *tree.Mapping:
		composed := node
		// A fragment may itself carry a merge key, which folding surfaces
		// at this level; keep folding until none remains.
		for {
			fragments, ok := composed.Get(MergeKey)
			if !ok {
				break
			}
			folded, err := fold(composed, fragments)
			if err != nil {
				return nil, err
			}
			composed = folded
		}

		out := tree.NewMapping()
		for _, key := range composed.Keys() {
			child, _ := composed.Get(key)
			composedChild, err := Compose(child)
			if err != nil {
				return nil, fmt.Errorf("compose %q: %w", key, err)
			}
			out.Set(key, composedChild)
		}
		return out, nil
	case []any:
		out := make([]any, 0, len(node))
		for i, item := range node {
			composedItem, err := Compose(item)
			if err != nil {
				return nil, fmt.Errorf("compose element %d: %w", i, err)
			}
			out = append(out, composedItem)
		}
		return out, nil
	default:
		return value, nil
	}
}

// fold merges the fragment list from lowest priority to highest, then
// layers the node's sibling keys on top at highest priority.
func fold(node *tree.Mapping, fragmentsValue any) (*tree.Mapping, error) {
	fragments, ok := fragmentsValue.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrNotSequence, fragmentsValue)
	}

	base := tree.NewMapping()
	for i := len(fragments) - 1; i >= 0; i-- {
		fragment, ok := fragments[i].(*tree.Mapping)
		if !ok {
			return nil, fmt.Errorf("%w: fragment %d is %T", ErrFragmentNotMapping, i, fragments[i])
		}
		base = deepMerge(base, fragment)
	}

	siblings := tree.NewMapping()
	for _, key := range node.Keys() {
		if key == MergeKey {
			continue
		}
		value, _ := node.Get(key)
		siblings.Set(key, value)
	}
	return deepMerge(base, siblings), nil
}

// deepMerge builds a new mapping where source entries win over target
// entries; only mapping-vs-mapping conflicts merge recursively, any other
// type combination resolves to the source value.
func deepMerge(target, source *tree.Mapping) *tree.Mapping {
	out := tree.NewMapping()
	for _, key := range target.Keys() {
		value, _ := target.Get(key)
		out.Set(key, tree.Clone(value))
	}
	for _, key := range source.Keys() {
		sourceValue, _ := source.Get(key)
		if existing, ok := out.Get(key); ok {
			existingMapping, existingOK := existing.(*tree.Mapping)
			sourceMapping, sourceOK := sourceValue.(*tree.Mapping)
			if existingOK && sourceOK {
				out.Set(key, deepMerge(existingMapping, sourceMapping))
				continue
			}
		}
		out.Set(key, tree.Clone(sourceValue))
	}
	return out
}
