// Package port implements the addressable slots of an operator: ports and
// port groups, the preconditions checked on input ports, the
// transformation rules that compute output metadata, and the error and
// quick-fix model that propagation reports through.
//
// Ports never hold references to their peers. Whether a port is connected
// is answered by a Linker, which the owning graph installs.
package port

import (
	"fmt"

	"github.com/conduit-lang/pipecheck/internal/metadata"
)

// Direction tells whether a port consumes or produces data.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Input {
		return "input"
	}
	return "output"
}

// Owner is the operator a port belongs to.
type Owner interface {
	Name() string
}

// Linker answers connection queries for ports. The graph implements it.
type Linker interface {
	IsConnected(p *Port) bool
}

// ID identifies a port within a graph.
type ID struct {
	Operator  string
	Direction Direction
	Name      string
}

func (id ID) String() string {
	return fmt.Sprintf("%s.%s", id.Operator, id.Name)
}

// Port is a named slot on an operator. It holds at most one metadata
// descriptor and at most one data object, the errors raised on it during
// the last propagation pass, and (for inputs) the preconditions that
// raise them.
type Port struct {
	ports *Ports
	name  string
	group *Group
	index int

	md      metadata.Descriptor
	assumed bool
	data    any

	errors        []*MetaDataError
	preconditions []Precondition
	unfold        bool
}

// Name returns the port name, unique among the owner's ports of the same
// direction.
func (p *Port) Name() string {
	return p.name
}

// Owner returns the operator the port belongs to.
func (p *Port) Owner() Owner {
	return p.ports.owner
}

// Direction returns whether the port is an input or an output.
func (p *Port) Direction() Direction {
	return p.ports.dir
}

// ID returns the graph-wide identity of the port.
func (p *Port) ID() ID {
	return ID{Operator: p.ports.owner.Name(), Direction: p.ports.dir, Name: p.name}
}

func (p *Port) String() string {
	return p.ID().String()
}

// Group returns the port group managing this port, or nil for a fixed port.
func (p *Port) Group() *Group {
	return p.group
}

// Index returns the 1-based position of the port in its group, or 0.
func (p *Port) Index() int {
	return p.index
}

// IsConnected asks the installed Linker. Without one, no port is connected.
func (p *Port) IsConnected() bool {
	l := p.ports.linker
	return l != nil && l.IsConnected(p)
}

// AddPrecondition attaches a check run on every Receive.
func (p *Port) AddPrecondition(pc Precondition) {
	p.preconditions = append(p.preconditions, pc)
}

// Preconditions returns the attached checks in declaration order.
func (p *Port) Preconditions() []Precondition {
	return p.preconditions
}

// SetUnfold makes preconditions see the innermost element of collection
// metadata instead of the collection itself.
func (p *Port) SetUnfold(unfold bool) {
	p.unfold = unfold
}

// Unfolds reports whether the port unfolds collections.
func (p *Port) Unfolds() bool {
	return p.unfold
}

// Receive stores md, drops all errors of the previous pass and runs the
// preconditions against the new metadata. A nil md means nothing is
// connected. Each call overwrites the previous state, so repeating it with
// the same input yields the same port state.
func (p *Port) Receive(md metadata.Descriptor, level metadata.CompatibilityLevel) {
	p.md = md
	p.assumed = false
	p.errors = nil

	if p.ports.dir != Input {
		return
	}

	checked := md
	if p.unfold && md != nil {
		checked = metadata.Unwrap(md)
	}

	missing := false
	for _, pc := range p.preconditions {
		for _, e := range pc.Check(p, checked, level) {
			if e.Kind == KindMissingMandatoryInput {
				if missing {
					continue
				}
				missing = true
			}
			p.errors = append(p.errors, e)
		}
	}
}

// AssumeSatisfied stubs the expected metadata of the first precondition
// that declares one into the port, as if something compatible were
// connected. It never raises errors and never touches existing ones; it
// exists so that authors can preview the shape downstream operators would
// see once the port is wired.
func (p *Port) AssumeSatisfied() {
	for _, pc := range p.preconditions {
		if exp := pc.Expected(); exp != nil {
			p.md = exp.Clone()
			p.assumed = true
			return
		}
	}
}

// IsAssumed reports whether the current metadata came from AssumeSatisfied.
func (p *Port) IsAssumed() bool {
	return p.assumed
}

// MetaData returns the last received or produced descriptor, or nil when
// nothing is known yet.
func (p *Port) MetaData() metadata.Descriptor {
	return p.md
}

// Clear forgets metadata and errors. It is called when the graph topology
// or upstream metadata changes.
func (p *Port) Clear() {
	p.md = nil
	p.assumed = false
	p.errors = nil
}

// Errors returns the errors currently attached to the port.
func (p *Port) Errors() []*MetaDataError {
	return p.errors
}

// AddError attaches errors raised by a rule or by the graph.
func (p *Port) AddError(errs ...*MetaDataError) {
	p.errors = append(p.errors, errs...)
}

// Data returns the runtime data object, if any.
func (p *Port) Data() any {
	return p.data
}

// SetData stores the runtime data object, replacing the previous one.
func (p *Port) SetData(data any) {
	p.data = data
}
