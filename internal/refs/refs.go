// Package refs expands $ref nodes inside configuration trees. A reference
// names a file in the package namespace plus an optional JSON Pointer; it
// resolves relative to the file containing it and re-anchors at every hop,
// so chains of references compose across directories.
package refs

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/go-openapi/jsonpointer"

	"github.com/eugenenazirov/confpack/internal/overlay"
	"github.com/eugenenazirov/confpack/internal/tree"
)

// RefKey is the mapping key that marks a reference node.
const RefKey = "$ref"

// LoadFunc reads and parses the file at a concrete location.
type LoadFunc func(location string) (any, error)

// Resolver expands references against one package namespace.
type Resolver struct {
	ns   overlay.Namespace
	load LoadFunc
}

// NewResolver constructs a Resolver over the given namespace and loader.
func NewResolver(ns overlay.Namespace, load LoadFunc) *Resolver {
	return &Resolver{ns: ns, load: load}
}

// refKey identifies one in-flight expansion for cycle detection: the
// logical path of the referring file plus the literal reference value.
type refKey struct {
	file string
	ref  string
}

// Resolve loads the document at the logical base path and returns a new
// tree with every reference node replaced by its fully resolved content.
func (r *Resolver) Resolve(basePath string) (any, error) {
	doc, err := r.loadLogical(basePath)
	if err != nil {
		return nil, err
	}
	active := make(map[refKey]struct{})
	return r.resolveValue(doc, basePath, active)
}

func (r *Resolver) loadLogical(logicalPath string) (any, error) {
	location, ok := r.ns[logicalPath]
	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %s)",
			ErrTargetNotFound, logicalPath, strings.Join(r.availablePaths(), ", "))
	}
	doc, err := r.load(location)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", logicalPath, err)
	}
	return doc, nil
}

func (r *Resolver) availablePaths() []string {
	paths := make([]string, 0, len(r.ns))
	for p := range r.ns {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// resolveValue walks the tree depth-first, rebuilding containers with
// resolved children. contextPath is the logical path of the file whose
// content is being walked; it changes when resolution crosses into a
// referenced file.
func (r *Resolver) resolveValue(value any, contextPath string, active map[refKey]struct{}) (any, error) {
	switch node := value.(type) {
	case *tree.Mapping:
		if refValue, ok := node.Get(RefKey); ok {
			return r.expandRef(node, refValue, contextPath, active)
		}
		out := tree.NewMapping()
		for _, key := range node.Keys() {
			child, _ := node.Get(key)
			resolved, err := r.resolveValue(child, contextPath, active)
			if err != nil {
				return nil, err
			}
			out.Set(key, resolved)
		}
		return out, nil
	case []any:
		out := make([]any, 0, len(node))
		for _, item := range node {
			resolved, err := r.resolveValue(item, contextPath, active)
			if err != nil {
				return nil, err
			}
			out = append(out, resolved)
		}
		return out, nil
	default:
		return value, nil
	}
}

func (r *Resolver) expandRef(node *tree.Mapping, refValue any, contextPath string, active map[refKey]struct{}) (any, error) {
	refString, ok := refValue.(string)
	if !ok {
		return nil, fmt.Errorf("%w: $ref in %s is not a string", ErrMalformedRef, contextPath)
	}
	if node.Len() != 1 {
		return nil, fmt.Errorf("%w: $ref %q in %s has sibling keys", ErrMalformedRef, refString, contextPath)
	}

	key := refKey{file: contextPath, ref: refString}
	if _, expanding := active[key]; expanding {
		return nil, fmt.Errorf("%w: %s -> %s", ErrCircularReference, contextPath, refString)
	}
	active[key] = struct{}{}
	defer delete(active, key)

	filePart, pointerPart, _ := strings.Cut(refString, "#")
	filePart = strings.Trim(filePart, `"'`)
	pointerPart = strings.Trim(pointerPart, `"'`)

	targetPath := contextPath
	if filePart != "" {
		targetPath = path.Clean(path.Join(path.Dir(contextPath), filePart))
	}

	doc, err := r.loadLogical(targetPath)
	if err != nil {
		return nil, fmt.Errorf("resolve $ref %q in %s: %w", refString, contextPath, err)
	}

	content := doc
	if pointerPart != "" {
		pointer, err := jsonpointer.New(pointerPart)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid pointer %q in $ref %q (%s): %v",
				ErrPointer, pointerPart, refString, contextPath, err)
		}
		content, _, err = pointer.Get(doc)
		if err != nil {
			return nil, fmt.Errorf("%w: pointer %q not resolvable in %s: %v",
				ErrPointer, pointerPart, targetPath, err)
		}
	}

	// Nested references inside the fetched content resolve relative to the
	// file they live in, not the file that invoked them.
	return r.resolveValue(content, targetPath, active)
}
