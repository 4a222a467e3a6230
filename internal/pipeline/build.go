package pipeline

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/conduit-lang/pipecheck/internal/graph"
	"github.com/conduit-lang/pipecheck/internal/operators"
	"github.com/conduit-lang/pipecheck/internal/port"
)

// Build creates the graph described by def. The file's compatibility
// level is applied first, so a level in opts overrides it.
//
// Connections are made without the self-connection check; validate the
// result with CheckStructure. Ports of growing groups only exist once the
// ports before them are connected, so connections are retried until no
// more can be made.
func Build(def *Definition, reg *operators.Registry, opts ...graph.Option) (*graph.Graph, error) {
	var all []graph.Option
	if level, ok := def.Level(); ok {
		all = append(all, graph.WithLevel(level))
	}
	g := graph.New(append(all, opts...)...)

	for _, spec := range def.Operators {
		op, err := reg.Create(spec.Type, spec.Name, spec.Parameters)
		if err != nil {
			return nil, err
		}
		if err := g.AddOperator(op); err != nil {
			return nil, err
		}
	}

	pending := def.Connections
	for len(pending) > 0 {
		var retry []ConnectionSpec
		for _, c := range pending {
			from, to, err := resolve(g, c)
			if err != nil {
				retry = append(retry, c)
				continue
			}
			if err := g.ConnectUnchecked(from, to); err != nil {
				return nil, fmt.Errorf("failed to connect %s -> %s: %w", c.From, c.To, err)
			}
		}
		if len(retry) == len(pending) {
			_, _, err := resolve(g, retry[0])
			return nil, err
		}
		pending = retry
	}
	return g, nil
}

func resolve(g *graph.Graph, c ConnectionSpec) (*port.Port, *port.Port, error) {
	fromRef, err := ParsePortRef(c.From)
	if err != nil {
		return nil, nil, err
	}
	toRef, err := ParsePortRef(c.To)
	if err != nil {
		return nil, nil, err
	}
	from := lookup(g, fromRef, port.Output)
	if from == nil {
		return nil, nil, fmt.Errorf("%w: output %s", ErrUnresolvedPort, fromRef)
	}
	to := lookup(g, toRef, port.Input)
	if to == nil {
		return nil, nil, fmt.Errorf("%w: input %s", ErrUnresolvedPort, toRef)
	}
	return from, to, nil
}

func lookup(g *graph.Graph, ref PortRef, dir port.Direction) *port.Port {
	op := g.Operator(ref.Operator)
	if op == nil {
		return nil
	}
	if dir == port.Input {
		return op.Inputs().Port(ref.Port)
	}
	return op.Outputs().Port(ref.Port)
}

// FromGraph describes g as a definition, for example after quick fixes
// changed it.
func FromGraph(g *graph.Graph, name string) *Definition {
	def := &Definition{
		Version:            CurrentVersion,
		Name:               name,
		CompatibilityLevel: g.Level().Version(),
	}
	for _, op := range g.Operators() {
		spec := OperatorSpec{Name: op.Name(), Type: op.Kind()}
		for _, key := range op.ParameterKeys() {
			if spec.Parameters == nil {
				spec.Parameters = make(map[string]string)
			}
			spec.Parameters[key] = op.Parameter(key)
		}
		def.Operators = append(def.Operators, spec)
	}
	for _, c := range g.Connections() {
		def.Connections = append(def.Connections, ConnectionSpec{
			From: PortRef{Operator: c.From.Operator, Port: c.From.Name}.String(),
			To:   PortRef{Operator: c.To.Operator, Port: c.To.Name}.String(),
		})
	}
	return def
}

// Marshal encodes def as YAML.
func Marshal(def *Definition) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(def); err != nil {
		return nil, fmt.Errorf("failed to encode pipeline: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode pipeline: %w", err)
	}
	return buf.Bytes(), nil
}

// Write saves def to path.
func Write(path string, def *Definition) error {
	data, err := Marshal(def)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write pipeline: %w", err)
	}
	return nil
}
