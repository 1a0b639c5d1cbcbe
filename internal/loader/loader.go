// Package loader reads configuration documents from disk and parses them
// into configuration trees. YAML documents go through a placeholder-safe
// pre-scan so {{...}} tokens survive parsing as literal strings; properties
// documents are decoded by the properties package.
package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/confpack/internal/properties"
	"github.com/eugenenazirov/confpack/internal/tree"
)

// ErrUnsupportedFormat indicates a file extension outside the recognized
// YAML and properties dialects.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Load reads and parses the file at location. The format is chosen by
// extension: .yaml/.yml or .properties.
func Load(location string) (any, error) {
	data, err := os.ReadFile(location)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", location, err)
	}

	switch strings.ToLower(filepath.Ext(location)) {
	case ".yaml", ".yml":
		doc, err := ParseYAML(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", location, err)
		}
		return doc, nil
	case ".properties":
		return properties.Parse(string(data)), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, location)
	}
}

// ParseYAML parses YAML text into a configuration tree, quoting unquoted
// whole-value placeholders first so the parser never interprets their
// braces as an inline mapping.
func ParseYAML(src []byte) (any, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(quotePlaceholders(src), &root); err != nil {
		return nil, err
	}
	if root.Kind == 0 {
		return nil, nil
	}
	return fromNode(&root)
}

// placeholderLine matches lines whose value is exactly one unquoted
// {{...}} token, optionally preceded by a sequence dash and followed by a
// comment. Quoted placeholders and placeholders embedded in longer strings
// do not match and pass through untouched.
var placeholderLine = regexp.MustCompile(`^(\s*(?:- +)?[^#\s][^:]*?:\s+)(\{\{[^{}]*\}\})\s*(#.*)?$`)

func quotePlaceholders(src []byte) []byte {
	lines := strings.Split(string(src), "\n")
	for i, line := range lines {
		match := placeholderLine.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		quoted := match[1] + `"` + match[2] + `"`
		if match[3] != "" {
			quoted += " " + match[3]
		}
		lines[i] = quoted
	}
	return []byte(strings.Join(lines, "\n"))
}

// fromNode converts a parsed yaml.Node into the tree value model,
// preserving mapping key order. Merge keys (<<) are carried through as
// ordinary entries; composing them is the merge package's job.
func fromNode(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}
		return fromNode(node.Content[0])
	case yaml.MappingNode:
		m := tree.NewMapping()
		for i := 0; i+1 < len(node.Content); i += 2 {
			value, err := fromNode(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			m.Set(node.Content[i].Value, value)
		}
		return m, nil
	case yaml.SequenceNode:
		seq := make([]any, 0, len(node.Content))
		for _, item := range node.Content {
			value, err := fromNode(item)
			if err != nil {
				return nil, err
			}
			seq = append(seq, value)
		}
		return seq, nil
	case yaml.AliasNode:
		return fromNode(node.Alias)
	case yaml.ScalarNode:
		return scalarFromNode(node)
	default:
		return nil, fmt.Errorf("unexpected YAML node kind %d at line %d", node.Kind, node.Line)
	}
}

func scalarFromNode(node *yaml.Node) (any, error) {
	var value any
	if err := node.Decode(&value); err != nil {
		return nil, fmt.Errorf("decode scalar at line %d: %w", node.Line, err)
	}
	switch v := value.(type) {
	case nil, string, bool, int64, float64:
		return v, nil
	case int:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	default:
		// Timestamps and other exotic scalar tags keep their literal text.
		return node.Value, nil
	}
}
