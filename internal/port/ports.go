package port

import "fmt"

// Ports is the ordered set of ports of one direction on one operator.
type Ports struct {
	owner  Owner
	dir    Direction
	ports  []*Port
	groups []*Group
	linker Linker
}

// NewPorts creates an empty port set.
func NewPorts(owner Owner, dir Direction) *Ports {
	return &Ports{owner: owner, dir: dir}
}

// Owner returns the operator owning the ports.
func (ps *Ports) Owner() Owner {
	return ps.owner
}

// Direction returns the direction shared by all ports in the set.
func (ps *Ports) Direction() Direction {
	return ps.dir
}

// Create adds a fixed port. Port names are part of an operator's static
// declaration, so a duplicate name is a programming error and panics.
func (ps *Ports) Create(name string) *Port {
	if ps.Port(name) != nil {
		panic(fmt.Sprintf("port: duplicate %s port %q on %s", ps.dir, name, ps.owner.Name()))
	}
	p := &Port{ports: ps, name: name}
	ps.ports = append(ps.ports, p)
	return p
}

// CreateGroup adds a port group whose first port is created immediately.
func (ps *Ports) CreateGroup(name string, opts ...GroupOption) *Group {
	g := &Group{ports: ps, name: name}
	for _, opt := range opts {
		opt(g)
	}
	ps.groups = append(ps.groups, g)
	first := g.grow()
	if g.firstMandatory {
		first.AddPrecondition(&groupMandatory{group: g})
	}
	return g
}

// Port returns the port with the given name, or nil.
func (ps *Ports) Port(name string) *Port {
	for _, p := range ps.ports {
		if p.name == name {
			return p
		}
	}
	return nil
}

// All returns the ports in order. Group ports are kept next to each other.
func (ps *Ports) All() []*Port {
	out := make([]*Port, len(ps.ports))
	copy(out, ps.ports)
	return out
}

// Len returns the number of ports.
func (ps *Ports) Len() int {
	return len(ps.ports)
}

// Groups returns the port groups in creation order.
func (ps *Ports) Groups() []*Group {
	return ps.groups
}

// SetLinker installs the connection oracle. The graph calls this when the
// owning operator is added.
func (ps *Ports) SetLinker(l Linker) {
	ps.linker = l
}

// Update restores the trailing-free-port invariant of every group after
// a connection change.
func (ps *Ports) Update() {
	for _, g := range ps.groups {
		g.Update()
	}
}

// Clear forgets metadata and errors on every port.
func (ps *Ports) Clear() {
	for _, p := range ps.ports {
		p.Clear()
	}
}

func (ps *Ports) insertAfter(after *Port, p *Port) {
	if after == nil {
		ps.ports = append(ps.ports, p)
		return
	}
	for i, cur := range ps.ports {
		if cur == after {
			ps.ports = append(ps.ports[:i+1], append([]*Port{p}, ps.ports[i+1:]...)...)
			return
		}
	}
	ps.ports = append(ps.ports, p)
}

func (ps *Ports) remove(p *Port) {
	for i, cur := range ps.ports {
		if cur == p {
			ps.ports = append(ps.ports[:i], ps.ports[i+1:]...)
			return
		}
	}
}
