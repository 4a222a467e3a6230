package port

import (
	"fmt"

	"github.com/conduit-lang/pipecheck/internal/metadata"
)

// Group manages a dynamically sized, ordered run of same-direction ports
// named "<name> 1", "<name> 2", ... It always keeps exactly one trailing
// unconnected port so that there is a free slot to wire into.
type Group struct {
	ports          *Ports
	name           string
	managed        []*Port
	firstMandatory bool
	unfold         bool
	perPort        func(*Port)
}

// GroupOption configures a Group at creation time.
type GroupOption func(*Group)

// FirstMandatory makes an entirely unconnected group an error, reported
// once on the first port.
func FirstMandatory() GroupOption {
	return func(g *Group) { g.firstMandatory = true }
}

// Unfolding makes the group's ports unfold collection metadata.
func Unfolding() GroupOption {
	return func(g *Group) { g.unfold = true }
}

// WithEachPort runs fn on every port the group creates, for example to
// attach a precondition.
func WithEachPort(fn func(*Port)) GroupOption {
	return func(g *Group) { g.perPort = fn }
}

// Name returns the group's port name prefix.
func (g *Group) Name() string {
	return g.name
}

// Ports returns the managed ports in order.
func (g *Group) Ports() []*Port {
	out := make([]*Port, len(g.managed))
	copy(out, g.managed)
	return out
}

// Len returns the number of managed ports, including the free one.
func (g *Group) Len() int {
	return len(g.managed)
}

// Connected returns the managed ports that are connected.
func (g *Group) Connected() []*Port {
	var out []*Port
	for _, p := range g.managed {
		if p.IsConnected() {
			out = append(out, p)
		}
	}
	return out
}

// Update grows the group by one port when the last port is connected and
// drops surplus unconnected ports from the end. Ports before the last
// connected one are never removed.
func (g *Group) Update() {
	trailing := 0
	for i := len(g.managed) - 1; i >= 0 && !g.managed[i].IsConnected(); i-- {
		trailing++
	}
	if trailing == 0 {
		g.grow()
		return
	}
	for ; trailing > 1; trailing-- {
		g.shrink()
	}
}

func (g *Group) grow() *Port {
	var last *Port
	if n := len(g.managed); n > 0 {
		last = g.managed[n-1]
	}
	index := len(g.managed) + 1
	p := &Port{
		ports:  g.ports,
		name:   fmt.Sprintf("%s %d", g.name, index),
		group:  g,
		index:  index,
		unfold: g.unfold,
	}
	if g.perPort != nil {
		g.perPort(p)
	}
	g.ports.insertAfter(last, p)
	g.managed = append(g.managed, p)
	return p
}

func (g *Group) shrink() {
	n := len(g.managed)
	if n <= 1 {
		return
	}
	last := g.managed[n-1]
	g.managed = g.managed[:n-1]
	g.ports.remove(last)
}

// Data collects the data objects of the connected ports in order,
// skipping nil. With unfold, every DataCollection is replaced by its
// leaves, recursing once per nesting level.
func (g *Group) Data(unfold bool) []any {
	var out []any
	for _, p := range g.managed {
		if !p.IsConnected() || p.Data() == nil {
			continue
		}
		if unfold {
			out = appendUnfolded(out, p.Data())
		} else {
			out = append(out, p.Data())
		}
	}
	return out
}

func appendUnfolded(out []any, d any) []any {
	c, ok := d.(*DataCollection)
	if !ok {
		return append(out, d)
	}
	for _, item := range c.Items {
		if item != nil {
			out = appendUnfolded(out, item)
		}
	}
	return out
}

// MetaData collects the metadata of the connected ports in order. A
// connected port without metadata contributes Unknown. With unfold, every
// collection descriptor is replaced by its innermost element.
func (g *Group) MetaData(unfold bool) []metadata.Descriptor {
	var out []metadata.Descriptor
	for _, p := range g.managed {
		if !p.IsConnected() {
			continue
		}
		md := p.MetaData()
		if md == nil {
			md = metadata.Unknown
		}
		if unfold {
			md = metadata.Unwrap(md)
		}
		out = append(out, md)
	}
	return out
}

// PassThroughRule merges the metadata of every connected port in the
// group into out.
func (g *Group) PassThroughRule(out *Port) *ManyToOnePassThroughRule {
	return &ManyToOnePassThroughRule{
		Inputs: func() []metadata.Descriptor { return g.MetaData(false) },
		Out:    out,
	}
}

// FlatteningPassThroughRule is PassThroughRule over unfolded metadata.
func (g *Group) FlatteningPassThroughRule(out *Port) *FlatteningPassThroughRule {
	return &FlatteningPassThroughRule{
		Inputs: func() []metadata.Descriptor { return g.MetaData(true) },
		Out:    out,
	}
}

func (g *Group) anyConnected() bool {
	for _, p := range g.managed {
		if p.IsConnected() {
			return true
		}
	}
	return false
}

// DataCollection is a runtime collection of data objects. Groups unfold it
// when asked to.
type DataCollection struct {
	Items []any
}

// NewDataCollection wraps items.
func NewDataCollection(items ...any) *DataCollection {
	return &DataCollection{Items: items}
}
