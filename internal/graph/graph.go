// Package graph holds operators and the connections between their ports,
// and runs the metadata propagation pass over them.
//
// The connection relation is a pair of adjacency tables keyed by port ID;
// ports themselves never point at each other. A graph is not safe for
// concurrent use: mutations must not overlap a propagation pass.
package graph

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/pipecheck/internal/metadata"
	"github.com/conduit-lang/pipecheck/internal/port"
)

var (
	// ErrDuplicateOperator is returned when an operator name is taken.
	ErrDuplicateOperator = errors.New("duplicate operator name")
	// ErrUnknownOperator is returned for names not in the graph.
	ErrUnknownOperator = errors.New("unknown operator")
	// ErrForeignPort is returned for ports of operators outside the graph.
	ErrForeignPort = errors.New("port does not belong to this graph")
	// ErrDirection is returned when connecting anything but output to input.
	ErrDirection = errors.New("connections must go from an output to an input port")
	// ErrAlreadyConnected is returned when an input already has a source.
	ErrAlreadyConnected = errors.New("input port is already connected")
	// ErrNotConnected is returned when disconnecting a free port.
	ErrNotConnected = errors.New("port is not connected")
	// ErrSelfConnection is returned when a port would connect to its own operator.
	ErrSelfConnection = errors.New("cannot connect an operator to itself")
	// ErrCycle is reported by CheckStructure for cyclic graphs.
	ErrCycle = errors.New("graph contains a cycle")
)

// Option configures a Graph.
type Option func(*Graph)

// WithLevel sets the compatibility level used by propagation.
func WithLevel(level metadata.CompatibilityLevel) Option {
	return func(g *Graph) { g.level = level }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Graph) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// Graph is a set of operators and the connections between their ports.
type Graph struct {
	operators []*Operator
	byName    map[string]*Operator

	// sources maps an input port to its single source output port
	sources map[port.ID]port.ID
	// targets maps an output port to the input ports it feeds, in
	// connection order
	targets map[port.ID][]port.ID

	level  metadata.CompatibilityLevel
	logger *zap.Logger
	stale  bool
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		byName:  make(map[string]*Operator),
		sources: make(map[port.ID]port.ID),
		targets: make(map[port.ID][]port.ID),
		level:   metadata.DefaultLevel,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Level returns the compatibility level used by propagation.
func (g *Graph) Level() metadata.CompatibilityLevel {
	return g.level
}

// SetLevel changes the compatibility level. All metadata becomes stale.
func (g *Graph) SetLevel(level metadata.CompatibilityLevel) {
	if g.level == level {
		return
	}
	g.level = level
	g.invalidate(g.operators...)
}

// Stale reports whether metadata may be out of date because the graph
// changed, or the last pass did not complete, since the last full pass.
func (g *Graph) Stale() bool {
	return g.stale
}

// AddOperator appends an operator. Declaration order is the order of
// addition and is what reports are sorted by.
func (g *Graph) AddOperator(op *Operator) error {
	if _, exists := g.byName[op.name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateOperator, op.name)
	}
	if op.graph != nil && op.graph != g {
		return fmt.Errorf("operator %s already belongs to another graph", op.name)
	}
	op.graph = g
	op.inputs.SetLinker(g)
	op.outputs.SetLinker(g)
	g.operators = append(g.operators, op)
	g.byName[op.name] = op
	g.stale = true

	g.logger.Debug("operator added", zap.String("operator", op.name), zap.String("kind", op.kind))
	return nil
}

// Operator returns the named operator, or nil.
func (g *Graph) Operator(name string) *Operator {
	return g.byName[name]
}

// Operators returns the operators in declaration order.
func (g *Graph) Operators() []*Operator {
	out := make([]*Operator, len(g.operators))
	copy(out, g.operators)
	return out
}

// RemoveOperator disconnects every port of the operator and removes it.
func (g *Graph) RemoveOperator(name string) error {
	op, ok := g.byName[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOperator, name)
	}
	for _, in := range op.inputs.All() {
		if g.IsConnected(in) {
			_ = g.Disconnect(in)
		}
	}
	for _, out := range op.outputs.All() {
		for _, in := range g.Targets(out) {
			_ = g.Disconnect(in)
		}
	}

	for i, cur := range g.operators {
		if cur == op {
			g.operators = append(g.operators[:i], g.operators[i+1:]...)
			break
		}
	}
	delete(g.byName, name)
	op.graph = nil
	op.inputs.SetLinker(nil)
	op.outputs.SetLinker(nil)
	g.stale = true

	g.logger.Debug("operator removed", zap.String("operator", name))
	return nil
}

// Connect wires an output port to an input port. Both must belong to
// operators of this graph, the input must be free, and the two ports must
// be on different operators.
func (g *Graph) Connect(out, in *port.Port) error {
	if out.Owner().Name() == in.Owner().Name() {
		return fmt.Errorf("%w: %s -> %s", ErrSelfConnection, out, in)
	}
	return g.connect(out, in)
}

// ConnectUnchecked is Connect without the self-connection check. Loaders
// that import graphs whose structure is validated separately use it;
// CheckStructure reports what it let through, and propagation survives
// the resulting cycles.
func (g *Graph) ConnectUnchecked(out, in *port.Port) error {
	return g.connect(out, in)
}

func (g *Graph) connect(out, in *port.Port) error {
	if out.Direction() != port.Output || in.Direction() != port.Input {
		return fmt.Errorf("%w: %s -> %s", ErrDirection, out, in)
	}
	outOp, err := g.ownerOf(out)
	if err != nil {
		return err
	}
	inOp, err := g.ownerOf(in)
	if err != nil {
		return err
	}
	if src, ok := g.sources[in.ID()]; ok {
		return fmt.Errorf("%w: %s <- %s", ErrAlreadyConnected, in, src)
	}

	g.sources[in.ID()] = out.ID()
	g.targets[out.ID()] = append(g.targets[out.ID()], in.ID())

	outOp.outputs.Update()
	inOp.inputs.Update()
	g.invalidate(inOp)

	g.logger.Debug("ports connected", zap.Stringer("from", out.ID()), zap.Stringer("to", in.ID()))
	return nil
}

// Disconnect removes the connection feeding an input port.
func (g *Graph) Disconnect(in *port.Port) error {
	inOp, err := g.ownerOf(in)
	if err != nil {
		return err
	}
	src, ok := g.sources[in.ID()]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotConnected, in)
	}

	delete(g.sources, in.ID())
	remaining := g.targets[src][:0]
	for _, id := range g.targets[src] {
		if id != in.ID() {
			remaining = append(remaining, id)
		}
	}
	if len(remaining) == 0 {
		delete(g.targets, src)
	} else {
		g.targets[src] = remaining
	}

	g.invalidate(inOp)
	inOp.inputs.Update()
	if outOp := g.byName[src.Operator]; outOp != nil {
		outOp.outputs.Update()
	}

	g.logger.Debug("ports disconnected", zap.Stringer("from", src), zap.Stringer("to", in.ID()))
	return nil
}

// IsConnected implements port.Linker.
func (g *Graph) IsConnected(p *port.Port) bool {
	if p.Direction() == port.Input {
		_, ok := g.sources[p.ID()]
		return ok
	}
	return len(g.targets[p.ID()]) > 0
}

// Source returns the output port feeding in, or nil.
func (g *Graph) Source(in *port.Port) *port.Port {
	id, ok := g.sources[in.ID()]
	if !ok {
		return nil
	}
	return g.resolve(id)
}

// Targets returns the input ports fed by out.
func (g *Graph) Targets(out *port.Port) []*port.Port {
	ids := g.targets[out.ID()]
	ports := make([]*port.Port, 0, len(ids))
	for _, id := range ids {
		if p := g.resolve(id); p != nil {
			ports = append(ports, p)
		}
	}
	return ports
}

// Connection is one edge of the graph.
type Connection struct {
	From port.ID
	To   port.ID
}

// Connections lists every edge, ordered by the declaration order of the
// receiving operator and then by its input port order.
func (g *Graph) Connections() []Connection {
	var out []Connection
	for _, op := range g.operators {
		for _, in := range op.inputs.All() {
			if src, ok := g.sources[in.ID()]; ok {
				out = append(out, Connection{From: src, To: in.ID()})
			}
		}
	}
	return out
}

// CheckStructure reports self-connections and cycles. Propagation does
// not need a valid structure, but an invalid one cannot be executed.
func (g *Graph) CheckStructure() error {
	var errs []error
	for _, c := range g.Connections() {
		if c.From.Operator == c.To.Operator {
			errs = append(errs, fmt.Errorf("%w: %s -> %s", ErrSelfConnection, c.From, c.To))
		}
	}
	if cyclic := g.cyclicOperators(); len(cyclic) > 0 {
		errs = append(errs, fmt.Errorf("%w through %v", ErrCycle, cyclic))
	}
	return errors.Join(errs...)
}

func (g *Graph) ownerOf(p *port.Port) (*Operator, error) {
	op, ok := g.byName[p.Owner().Name()]
	if !ok || !op.owns(p) {
		return nil, fmt.Errorf("%w: %s", ErrForeignPort, p)
	}
	return op, nil
}

func (g *Graph) resolve(id port.ID) *port.Port {
	op, ok := g.byName[id.Operator]
	if !ok {
		return nil
	}
	if id.Direction == port.Input {
		return op.inputs.Port(id.Name)
	}
	return op.outputs.Port(id.Name)
}

// upstream returns the distinct operators feeding op, in declaration order.
func (g *Graph) upstream(op *Operator) []*Operator {
	seen := make(map[*Operator]bool)
	for _, in := range op.inputs.All() {
		if src, ok := g.sources[in.ID()]; ok {
			if srcOp := g.byName[src.Operator]; srcOp != nil {
				seen[srcOp] = true
			}
		}
	}
	return g.inDeclarationOrder(seen)
}

// downstream returns the given operators and everything reachable from
// them, in declaration order.
func (g *Graph) downstream(ops []*Operator) []*Operator {
	seen := make(map[*Operator]bool)
	queue := append([]*Operator(nil), ops...)
	for len(queue) > 0 {
		op := queue[0]
		queue = queue[1:]
		if op == nil || seen[op] || g.byName[op.name] != op {
			continue
		}
		seen[op] = true
		for _, out := range op.outputs.All() {
			for _, id := range g.targets[out.ID()] {
				queue = append(queue, g.byName[id.Operator])
			}
		}
	}
	return g.inDeclarationOrder(seen)
}

func (g *Graph) inDeclarationOrder(set map[*Operator]bool) []*Operator {
	out := make([]*Operator, 0, len(set))
	for _, op := range g.operators {
		if set[op] {
			out = append(out, op)
		}
	}
	return out
}

// invalidate clears the metadata of ops and everything downstream.
func (g *Graph) invalidate(ops ...*Operator) {
	for _, op := range g.downstream(ops) {
		op.inputs.Clear()
		op.outputs.Clear()
		op.state = StatePending
	}
	g.stale = true
}

// cyclicOperators returns the operators that a topological sort cannot
// order: those on a cycle and those only reachable through one.
func (g *Graph) cyclicOperators() []string {
	done := make(map[*Operator]bool)
	for progressed := true; progressed; {
		progressed = false
		for _, op := range g.operators {
			if done[op] {
				continue
			}
			ready := true
			for _, up := range g.upstream(op) {
				if !done[up] {
					ready = false
					break
				}
			}
			if ready {
				done[op] = true
				progressed = true
			}
		}
	}
	var names []string
	for _, op := range g.operators {
		if !done[op] {
			names = append(names, op.name)
		}
	}
	return names
}
