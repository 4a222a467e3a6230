package graph

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conduit-lang/pipecheck/internal/metadata"
	"github.com/conduit-lang/pipecheck/internal/port"
)

// Propagate runs one metadata pass. With no arguments every operator is
// visited; otherwise the given operators and everything downstream of them
// are, and the metadata of all other operators is reused as is.
//
// Operators are visited in topological order, ties broken by declaration
// order. When a cycle leaves no operator ready, the first pending operator
// that lies on a cycle is forced with unknown inputs on the cyclic edges;
// operators merely downstream of a cycle wait for it. A single structural
// cycle diagnostic naming the forced operators is added to the report.
// Cancelling ctx abandons the pass; the report is then marked incomplete.
func (g *Graph) Propagate(ctx context.Context, startingFrom ...*Operator) *Report {
	pass := &pass{
		graph: g,
		id:    uuid.New(),
		done:  make(map[*Operator]bool),
		scope: make(map[*Operator]bool),
	}
	pass.log = g.logger.With(zap.Stringer("pass", pass.id))

	var ordered []*Operator
	if len(startingFrom) == 0 {
		ordered = g.Operators()
	} else {
		ordered = g.downstream(startingFrom)
	}
	for _, op := range ordered {
		pass.scope[op] = true
		op.inputs.Clear()
		op.outputs.Clear()
		op.state = StatePending
		op.unresolved = false
	}
	pass.log.Debug("propagation started",
		zap.Int("operators", len(ordered)),
		zap.Stringer("level", g.level))

	abandoned := false
	for remaining := len(ordered); remaining > 0; remaining-- {
		if err := ctx.Err(); err != nil {
			pass.log.Warn("propagation abandoned", zap.Error(err))
			abandoned = true
			break
		}
		next := pass.nextReady(ordered)
		if next == nil {
			next = pass.firstOnCycle(ordered)
			pass.forced = append(pass.forced, next.name)
			pass.log.Debug("forcing operator on a cycle", zap.String("operator", next.name))
		}
		pass.evaluate(next)
	}

	report := newReport(pass.id, g.level, g.operators)
	if len(pass.forced) > 0 {
		report.Diagnostics = append(report.Diagnostics, port.NewStructuralCycle(pass.forced))
	}
	report.Abandoned = abandoned
	report.Complete = !abandoned && len(pass.forced) == 0
	if !abandoned && len(startingFrom) == 0 {
		g.stale = false
	}

	pass.log.Info("propagation finished",
		zap.Int("visited", len(pass.done)),
		zap.Int("errors", len(report.Errors())),
		zap.Bool("complete", report.Complete))
	return report
}

type pass struct {
	graph  *Graph
	id     uuid.UUID
	log    *zap.Logger
	scope  map[*Operator]bool
	done   map[*Operator]bool
	forced []string
}

// nextReady returns the first operator in declaration order whose in-scope
// upstream operators are all done.
func (p *pass) nextReady(ordered []*Operator) *Operator {
	for _, op := range ordered {
		if p.done[op] {
			continue
		}
		ready := true
		for _, up := range p.graph.upstream(op) {
			if p.scope[up] && !p.done[up] {
				ready = false
				break
			}
		}
		if ready {
			return op
		}
	}
	return nil
}

// firstOnCycle returns the first pending operator in declaration order
// that can reach itself through pending upstream operators. When nothing
// is ready such an operator always exists.
func (p *pass) firstOnCycle(ordered []*Operator) *Operator {
	for _, op := range ordered {
		if !p.done[op] && p.reachesItself(op) {
			return op
		}
	}
	return nil
}

func (p *pass) reachesItself(op *Operator) bool {
	seen := make(map[*Operator]bool)
	stack := []*Operator{op}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, up := range p.graph.upstream(cur) {
			if !p.scope[up] || p.done[up] {
				continue
			}
			if up == op {
				return true
			}
			if !seen[up] {
				seen[up] = true
				stack = append(stack, up)
			}
		}
	}
	return false
}

// evaluate delivers upstream metadata to every input of op and then runs
// its rules.
func (p *pass) evaluate(op *Operator) {
	g := p.graph
	for _, in := range op.inputs.All() {
		srcID, connected := g.sources[in.ID()]
		if !connected {
			in.Receive(nil, g.level)
			in.AssumeSatisfied()
			continue
		}

		var md metadata.Descriptor
		if src := g.resolve(srcID); src != nil {
			md = src.MetaData()
		}
		if md != nil {
			in.Receive(md, g.level)
			continue
		}

		in.Receive(metadata.Unknown, g.level)
		op.unresolved = true
		srcOp := g.byName[srcID.Operator]
		onCycle := p.scope[srcOp] && !p.done[srcOp]
		if !onCycle {
			in.AddError(port.NewUnresolvedUpstream(in, srcID))
		}
	}
	p.done[op] = true
	if op.unresolved {
		// degraded metadata still flows downstream
		op.transformer.Transform(g.level)
		op.state = StateError
		p.log.Debug("operator ran with unresolved inputs", zap.String("operator", op.name))
		return
	}

	op.state = StateInputsResolved
	op.transformer.Transform(g.level)
	op.state = StateRulesApplied
	if errs := op.Errors(); len(errs) > 0 {
		p.log.Debug("operator has errors", zap.String("operator", op.name), zap.Int("count", len(errs)))
	}
	op.state = StateDone
}
