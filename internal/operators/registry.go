// Package operators is the operator catalog. Each definition declares the
// ports, preconditions, rules and quick fixes of one operator type; the
// registry turns definitions into graph operators.
package operators

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/agext/levenshtein"

	"github.com/conduit-lang/pipecheck/internal/graph"
)

var (
	// ErrUnknownKind is returned when no definition has the requested name.
	ErrUnknownKind = errors.New("unknown operator type")
	// ErrUnknownParameter is returned for parameters a definition does not declare.
	ErrUnknownParameter = errors.New("unknown parameter")
)

// Parameter documents one operator parameter.
type Parameter struct {
	Name        string
	Description string
	Default     string
	Required    bool
}

// Definition describes an operator type.
type Definition struct {
	Name        string
	Category    string
	Description string
	Parameters  []Parameter

	// Build declares ports, preconditions and rules on a fresh operator
	// whose parameters are already set.
	Build func(op *graph.Operator) error
}

// Validate checks that the definition can be registered.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("definition name is required")
	}
	if d.Build == nil {
		return fmt.Errorf("definition %s has no build function", d.Name)
	}
	seen := make(map[string]bool)
	for _, p := range d.Parameters {
		if seen[p.Name] {
			return fmt.Errorf("definition %s declares parameter %s twice", d.Name, p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

func (d *Definition) parameter(name string) (Parameter, bool) {
	for _, p := range d.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// Registry manages the available operator types
type Registry struct {
	definitions map[string]*Definition
	mutex       sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		definitions: make(map[string]*Definition),
	}
}

// NewBuiltinRegistry creates a registry holding the built-in catalog.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	if err := RegisterBuiltins(r); err != nil {
		panic(err)
	}
	return r
}

// Register adds a definition
func (r *Registry) Register(def *Definition) error {
	if err := def.Validate(); err != nil {
		return fmt.Errorf("invalid operator definition: %w", err)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.definitions[def.Name]; exists {
		return fmt.Errorf("operator type %s already registered", def.Name)
	}
	r.definitions[def.Name] = def
	return nil
}

// Get returns a definition by name. Unknown names get a suggestion for
// the closest registered one.
func (r *Registry) Get(name string) (*Definition, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	def, exists := r.definitions[name]
	if !exists {
		if s := r.closest(name); s != "" {
			return nil, fmt.Errorf("%w %q (did you mean %q?)", ErrUnknownKind, name, s)
		}
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, name)
	}
	return def, nil
}

func (r *Registry) closest(name string) string {
	best, bestDist := "", len(name)/2+1
	for candidate := range r.definitions {
		if d := levenshtein.Distance(name, candidate, nil); d < bestDist || (d == bestDist && candidate < best) {
			best, bestDist = candidate, d
		}
	}
	return best
}

// List returns all definitions sorted by category and name
func (r *Registry) List() []*Definition {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	defs := make([]*Definition, 0, len(r.definitions))
	for _, def := range r.definitions {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool {
		if defs[i].Category != defs[j].Category {
			return defs[i].Category < defs[j].Category
		}
		return defs[i].Name < defs[j].Name
	})
	return defs
}

// Exists checks if an operator type is registered
func (r *Registry) Exists(name string) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	_, exists := r.definitions[name]
	return exists
}

// Create builds an operator of the given type. Parameters not supplied
// take their defaults; parameters the type does not declare are rejected.
func (r *Registry) Create(kind, name string, params map[string]string) (*graph.Operator, error) {
	def, err := r.Get(kind)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := def.parameter(k); !ok {
			return nil, fmt.Errorf("%w %q for %s operator %s", ErrUnknownParameter, k, kind, name)
		}
	}

	op := graph.NewOperator(name, kind)
	for _, p := range def.Parameters {
		if v, ok := params[p.Name]; ok {
			op.SetParameter(p.Name, v)
		} else if p.Default != "" {
			op.SetParameter(p.Name, p.Default)
		}
	}
	if err := def.Build(op); err != nil {
		return nil, fmt.Errorf("failed to build %s operator %s: %w", kind, name, err)
	}
	return op, nil
}
