// Package placeholder substitutes {{dotted.path}} tokens inside string
// scalars against a context mapping, iterating whole-tree passes to a
// fixed point so values that themselves contain tokens resolve across
// iterations.
package placeholder

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/eugenenazirov/confpack/internal/tree"
)

// DefaultMaxIterations bounds the fixed-point loop when callers pass a
// non-positive budget.
const DefaultMaxIterations = 10

var (
	// ErrNotFound is returned when a token's dotted path does not resolve in the context.
	ErrNotFound = errors.New("placeholder not found")
	// ErrNotScalar is returned when a token resolves to a mapping or sequence.
	ErrNotScalar = errors.New("placeholder value is not a scalar")
	// ErrUnresolved is returned when tokens remain after the iteration budget.
	ErrUnresolved = errors.New("circular or unresolved placeholder")
)

// tokenPattern is the single definition of what a placeholder token looks
// like; both substitution and the residual check go through it.
var tokenPattern = regexp.MustCompile(`\{\{([^{}]*)\}\}`)

// Substitute returns a new tree with every placeholder replaced by its
// context value. A missing context path is fatal immediately; tokens still
// present once the iteration budget is exhausted (or once a pass stops
// making progress) report non-convergence with an example token.
func Substitute(value any, context *tree.Mapping, maxIterations int) (any, error) {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if context == nil {
		context = tree.NewMapping()
	}

	current := value
	for i := 0; i < maxIterations; i++ {
		next, changed, err := substituteValue(current, context)
		if err != nil {
			return nil, err
		}
		current = next
		if !changed {
			break
		}
	}

	if token, found := firstToken(current); found {
		return nil, fmt.Errorf("%w: %s", ErrUnresolved, token)
	}
	return current, nil
}

func substituteValue(value any, context *tree.Mapping) (any, bool, error) {
	switch node := value.(type) {
	case string:
		return substituteString(node, context)
	case *tree.Mapping:
		out := tree.NewMapping()
		changed := false
		for _, key := range node.Keys() {
			child, _ := node.Get(key)
			next, childChanged, err := substituteValue(child, context)
			if err != nil {
				return nil, false, err
			}
			out.Set(key, next)
			changed = changed || childChanged
		}
		return out, changed, nil
	case []any:
		out := make([]any, 0, len(node))
		changed := false
		for _, item := range node {
			next, itemChanged, err := substituteValue(item, context)
			if err != nil {
				return nil, false, err
			}
			out = append(out, next)
			changed = changed || itemChanged
		}
		return out, changed, nil
	default:
		return value, false, nil
	}
}

func substituteString(s string, context *tree.Mapping) (string, bool, error) {
	out := s
	changed := false
	for _, match := range tokenPattern.FindAllStringSubmatch(s, -1) {
		token, dottedPath := match[0], strings.TrimSpace(match[1])

		value, err := lookup(context, dottedPath)
		if err != nil {
			return "", false, err
		}
		replacement, ok := tree.FormatScalar(value)
		if !ok {
			return "", false, fmt.Errorf("%w: %q resolves to %T", ErrNotScalar, dottedPath, value)
		}

		replaced := strings.ReplaceAll(out, token, replacement)
		if replaced != out {
			out = replaced
			changed = true
		}
	}
	return out, changed, nil
}

// lookup walks the context mapping segment by segment along a dotted path.
func lookup(context *tree.Mapping, dottedPath string) (any, error) {
	var current any = context
	for _, segment := range strings.Split(dottedPath, ".") {
		node, ok := current.(*tree.Mapping)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, dottedPath)
		}
		current, ok = node.Get(segment)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, dottedPath)
		}
	}
	return current, nil
}

// firstToken finds one remaining placeholder token, depth-first, as an
// example for non-convergence reporting.
func firstToken(value any) (string, bool) {
	switch node := value.(type) {
	case string:
		if match := tokenPattern.FindString(node); match != "" {
			return match, true
		}
	case *tree.Mapping:
		for _, key := range node.Keys() {
			child, _ := node.Get(key)
			if token, found := firstToken(child); found {
				return token, true
			}
		}
	case []any:
		for _, item := range node {
			if token, found := firstToken(item); found {
				return token, true
			}
		}
	}
	return "", false
}
