package graph

import (
	"sort"

	"github.com/conduit-lang/pipecheck/internal/port"
)

// State is the progress of one operator within a propagation pass.
type State int

const (
	StatePending State = iota
	StateInputsResolved
	StateRulesApplied
	StateDone
	// StateError ends the pass for an operator whose upstream port stayed
	// unresolved. Its inputs were treated as unknown and its rules still
	// ran, so its outputs carry degraded metadata.
	StateError
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateInputsResolved:
		return "inputs_resolved"
	case StateRulesApplied:
		return "rules_applied"
	case StateDone:
		return "done"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Operator is a named processing unit. Operator implementations declare
// ports, preconditions and rules on it at construction time; the graph
// drives it during propagation.
type Operator struct {
	name        string
	kind        string
	inputs      *port.Ports
	outputs     *port.Ports
	transformer *port.Transformer
	params      map[string]string

	graph      *Graph
	state      State
	unresolved bool
}

// NewOperator creates an operator without ports.
func NewOperator(name, kind string) *Operator {
	op := &Operator{
		name:        name,
		kind:        kind,
		transformer: port.NewTransformer(),
		params:      make(map[string]string),
	}
	op.inputs = port.NewPorts(op, port.Input)
	op.outputs = port.NewPorts(op, port.Output)
	return op
}

// Name returns the operator's unique name within its graph.
func (op *Operator) Name() string {
	return op.name
}

// Kind returns the catalog type of the operator.
func (op *Operator) Kind() string {
	return op.kind
}

// Inputs returns the input ports.
func (op *Operator) Inputs() *port.Ports {
	return op.inputs
}

// Outputs returns the output ports.
func (op *Operator) Outputs() *port.Ports {
	return op.outputs
}

// Transformer returns the operator's rule list.
func (op *Operator) Transformer() *port.Transformer {
	return op.transformer
}

// Graph returns the graph the operator was added to, or nil.
func (op *Operator) Graph() *Graph {
	return op.graph
}

// State returns the operator's state in the last pass.
func (op *Operator) State() State {
	return op.state
}

// Unresolved reports whether some input stayed unresolved in the last pass.
func (op *Operator) Unresolved() bool {
	return op.unresolved
}

// Parameter returns a parameter value, or "".
func (op *Operator) Parameter(key string) string {
	return op.params[key]
}

// SetParameter changes a parameter. Metadata computed from the old value
// becomes stale, so the operator and everything downstream is cleared.
func (op *Operator) SetParameter(key, value string) {
	if old, ok := op.params[key]; ok && old == value {
		return
	}
	op.params[key] = value
	if op.graph != nil {
		op.graph.invalidate(op)
	}
}

// ParameterKeys returns the parameter names in sorted order.
func (op *Operator) ParameterKeys() []string {
	keys := make([]string, 0, len(op.params))
	for k := range op.params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Errors returns the errors currently attached to the operator's ports,
// inputs first.
func (op *Operator) Errors() port.ErrorList {
	var errs port.ErrorList
	for _, p := range op.inputs.All() {
		errs = append(errs, p.Errors()...)
	}
	for _, p := range op.outputs.All() {
		errs = append(errs, p.Errors()...)
	}
	return errs
}

func (op *Operator) owns(p *port.Port) bool {
	var ports *port.Ports
	if p.Direction() == port.Input {
		ports = op.inputs
	} else {
		ports = op.outputs
	}
	return ports.Port(p.Name()) == p
}
