// Package pipeline sequences the resolution stages for one (package,
// environment, service) request: namespace construction, reference
// resolution, merge-key composition, service extraction, and placeholder
// substitution.
package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/confpack/internal/loader"
	"github.com/eugenenazirov/confpack/internal/merge"
	"github.com/eugenenazirov/confpack/internal/overlay"
	"github.com/eugenenazirov/confpack/internal/placeholder"
	"github.com/eugenenazirov/confpack/internal/refs"
	"github.com/eugenenazirov/confpack/internal/tree"
)

// SubstitutionScope selects which part of the resolved document the
// placeholder substitutor runs over. Both scopes source the context from
// the service's records in the full resolved document.
type SubstitutionScope string

const (
	// ScopeDocument substitutes over the entire resolved document and then
	// extracts the service entry.
	ScopeDocument SubstitutionScope = "document"
	// ScopeService extracts the service entry first and substitutes only
	// within it.
	ScopeService SubstitutionScope = "service"
)

const defaultMainConfig = "resources.yaml"

// contextPath is the sub-tree of a service entry supplying values for its
// own placeholders.
var contextPath = []string{"properties", "configs", "private", "records"}

// Options control non-default pipeline behaviour.
type Options struct {
	// MainConfig is the logical name of the entry-point file.
	// Defaults to resources.yaml.
	MainConfig string
	// MaxIterations bounds the placeholder fixed-point loop.
	MaxIterations int
	// Scope selects the substitution mode. Defaults to ScopeDocument.
	Scope SubstitutionScope
}

// Processor runs the resolution pipeline. It holds no per-run state;
// namespaces and cycle guards are created fresh for every Process call.
type Processor struct {
	logger *zap.Logger
	opts   Options
}

// New constructs a Processor. A nil logger disables stage logging.
func New(logger *zap.Logger, opts Options) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MainConfig == "" {
		opts.MainConfig = defaultMainConfig
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = placeholder.DefaultMaxIterations
	}
	if opts.Scope == "" {
		opts.Scope = ScopeDocument
	}
	return &Processor{logger: logger, opts: opts}
}

// Process compiles one configuration package for the given environment and
// returns a mapping with a single key: the service name bound to its fully
// resolved, substituted configuration.
func (p *Processor) Process(packagePath, environment, service string) (*tree.Mapping, error) {
	globalDir := filepath.Join(packagePath, "value", "global")
	envDir := filepath.Join(packagePath, "value", "specs", environment)

	p.logger.Info("building namespace",
		zap.String("global", globalDir),
		zap.String("environment", envDir))
	ns, err := overlay.Build(globalDir, envDir)
	if err != nil {
		return nil, err
	}

	p.logger.Info("resolving references", zap.String("main", p.opts.MainConfig))
	resolved, err := refs.NewResolver(ns, loader.Load).Resolve(p.opts.MainConfig)
	if err != nil {
		return nil, err
	}

	p.logger.Info("composing merge keys")
	composed, err := merge.Compose(resolved)
	if err != nil {
		return nil, err
	}

	document, ok := composed.(*tree.Mapping)
	if !ok {
		return nil, fmt.Errorf("%w: resolved document is %T, not a mapping", ErrServicesMalformed, composed)
	}

	entries, err := p.serviceEntries(document)
	if err != nil {
		return nil, err
	}
	index, err := findService(entries, service)
	if err != nil {
		return nil, err
	}
	context := recordsContext(entries[index])

	p.logger.Info("substituting placeholders",
		zap.String("service", service),
		zap.String("scope", string(p.opts.Scope)))

	var entry *tree.Mapping
	switch p.opts.Scope {
	case ScopeService:
		substituted, err := placeholder.Substitute(entries[index], context, p.opts.MaxIterations)
		if err != nil {
			return nil, err
		}
		entry = substituted.(*tree.Mapping)
	default:
		substituted, err := placeholder.Substitute(document, context, p.opts.MaxIterations)
		if err != nil {
			return nil, err
		}
		substitutedEntries, err := p.serviceEntries(substituted.(*tree.Mapping))
		if err != nil {
			return nil, err
		}
		entry = substitutedEntries[index]
	}

	name, err := serviceName(entry)
	if err != nil {
		return nil, err
	}
	out := tree.NewMapping()
	out.Set(name, entry)
	return out, nil
}

// serviceEntries returns the document's services as a slice of mappings.
// A lone mapping is tolerated and coerced to a one-element sequence, with
// a diagnostic since it usually signals a producer bug upstream.
func (p *Processor) serviceEntries(document *tree.Mapping) ([]*tree.Mapping, error) {
	value, ok := document.Get("services")
	if !ok {
		return nil, fmt.Errorf("%w: no services entry in resolved document", ErrServicesMalformed)
	}

	var items []any
	switch services := value.(type) {
	case []any:
		items = services
	case *tree.Mapping:
		p.logger.Warn("services is a single mapping; coercing to a one-element sequence")
		items = []any{services}
	default:
		return nil, fmt.Errorf("%w: services is %T, not a sequence", ErrServicesMalformed, value)
	}

	entries := make([]*tree.Mapping, 0, len(items))
	for i, item := range items {
		entry, ok := item.(*tree.Mapping)
		if !ok {
			return nil, fmt.Errorf("%w: services[%d] is %T, not a mapping", ErrServicesMalformed, i, item)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func findService(entries []*tree.Mapping, service string) (int, error) {
	names := make([]string, 0, len(entries))
	for i, entry := range entries {
		name, err := serviceName(entry)
		if err != nil {
			return 0, err
		}
		if name == service {
			return i, nil
		}
		names = append(names, name)
	}
	return 0, fmt.Errorf("%w: %q (available: [%s])", ErrServiceNotFound, service, strings.Join(names, " "))
}

func serviceName(entry *tree.Mapping) (string, error) {
	value, ok := entry.Get("name")
	if !ok {
		return "", fmt.Errorf("%w: service entry has no name field", ErrServicesMalformed)
	}
	name, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: service name is %T, not a string", ErrServicesMalformed, value)
	}
	return name, nil
}

// recordsContext extracts the service's substitution context, defaulting
// to an empty mapping when any segment is absent or not a mapping.
func recordsContext(entry *tree.Mapping) *tree.Mapping {
	current := entry
	for _, segment := range contextPath {
		value, ok := current.Get(segment)
		if !ok {
			return tree.NewMapping()
		}
		next, ok := value.(*tree.Mapping)
		if !ok {
			return tree.NewMapping()
		}
		current = next
	}
	return current
}
