package operators

import (
	"errors"
	"fmt"

	"github.com/conduit-lang/pipecheck/internal/graph"
	"github.com/conduit-lang/pipecheck/internal/metadata"
	"github.com/conduit-lang/pipecheck/internal/port"
)

// ErrNotInGraph is returned by fixes whose port is not wired into a graph.
var ErrNotInGraph = errors.New("port is not connected within a graph")

// declareRoleFixes offers, for a missing role, one fix per regular
// attribute of a suitable kind: insert a set_role operator in front of
// the port that gives that attribute the role.
func declareRoleFixes(r *Registry, role metadata.Role, kind metadata.ValueKind) port.FixProvider {
	return func(p *port.Port, m metadata.Mismatch, offered metadata.Descriptor) []port.QuickFix {
		if m.Kind != metadata.MismatchMissingRole || m.Role != role || m.Attribute != "" {
			return nil
		}
		es, ok := offered.(*metadata.ExampleSet)
		if !ok {
			return nil
		}

		var fixes []port.QuickFix
		for _, a := range es.Regular() {
			if !a.Kind.IsA(kind) {
				continue
			}
			name := a.Name
			fixes = append(fixes, port.NewSignificantQuickFix(
				port.PriorityDefault,
				fmt.Sprintf("Declare attribute '%s' as %s", name, role),
				func() error {
					_, err := InsertBefore(r, p, KindSetRole, "Set Role", map[string]string{
						"attribute": name,
						"role":      string(role),
					})
					return err
				},
			))
		}
		return fixes
	}
}

// InsertBefore places a new single-input operator between p and its
// source. The new operator's first input receives the old connection and
// its first output feeds p.
func InsertBefore(r *Registry, p *port.Port, kind, baseName string, params map[string]string) (*graph.Operator, error) {
	owner, ok := p.Owner().(*graph.Operator)
	if !ok || owner.Graph() == nil {
		return nil, ErrNotInGraph
	}
	g := owner.Graph()
	src := g.Source(p)
	if src == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotInGraph, p)
	}

	op, err := r.Create(kind, uniqueName(g, baseName), params)
	if err != nil {
		return nil, err
	}
	if op.Inputs().Len() == 0 || op.Outputs().Len() == 0 {
		return nil, fmt.Errorf("operator type %s cannot be inserted into a connection", kind)
	}
	if err := g.AddOperator(op); err != nil {
		return nil, err
	}
	if err := g.Disconnect(p); err != nil {
		return nil, err
	}
	if err := g.Connect(src, op.Inputs().All()[0]); err != nil {
		return nil, fmt.Errorf("failed to connect %s: %w", op.Name(), err)
	}
	if err := g.Connect(op.Outputs().All()[0], p); err != nil {
		return nil, fmt.Errorf("failed to connect %s: %w", op.Name(), err)
	}
	return op, nil
}

func uniqueName(g *graph.Graph, base string) string {
	if g.Operator(base) == nil {
		return base
	}
	for i := 2; ; i++ {
		name := fmt.Sprintf("%s (%d)", base, i)
		if g.Operator(name) == nil {
			return name
		}
	}
}
