package metadata

import "fmt"

// Descriptor is the static description of one data object. The set of
// implementations is closed: Unknown, *ExampleSet, *Collection and
// *Generic.
type Descriptor interface {
	// String returns a short human-readable form
	String() string

	// Clone returns a copy that can be modified independently
	Clone() Descriptor

	// Equals reports structural equality
	Equals(other Descriptor) bool

	descriptor()
}

type unknownDescriptor struct{}

// Unknown is the descriptor of data whose shape is only known at runtime.
var Unknown Descriptor = unknownDescriptor{}

func (unknownDescriptor) String() string { return "unknown" }
func (unknownDescriptor) Clone() Descriptor { return Unknown }
func (unknownDescriptor) Equals(o Descriptor) bool { return IsUnknown(o) }
func (unknownDescriptor) descriptor() {}

// IsUnknown reports whether d carries no information. A nil descriptor
// counts as unknown.
func IsUnknown(d Descriptor) bool {
	if d == nil {
		return true
	}
	_, ok := d.(unknownDescriptor)
	return ok
}

// Object kinds of generic descriptors.
const (
	ObjectAny         = "object"
	ObjectModel       = "model"
	ObjectPrediction  = "prediction_model"
	ObjectTree        = "tree_model"
	ObjectPerformance = "performance_vector"
	ObjectExampleSet  = "example_set"
)

var objectParents = map[string]string{
	ObjectModel:       ObjectAny,
	ObjectPrediction:  ObjectModel,
	ObjectTree:        ObjectPrediction,
	ObjectPerformance: ObjectAny,
	ObjectExampleSet:  ObjectAny,
}

// ObjectKindIsA reports whether kind equals parent or descends from it.
// Every kind descends from ObjectAny.
func ObjectKindIsA(kind, parent string) bool {
	if parent == ObjectAny || kind == parent {
		return true
	}
	for cur, ok := objectParents[kind]; ok; cur, ok = objectParents[cur] {
		if cur == parent {
			return true
		}
	}
	return false
}

// Generic describes an opaque object such as a model.
type Generic struct {
	ObjectKind string
}

// NewGeneric creates a generic descriptor of the given object kind.
func NewGeneric(kind string) *Generic {
	return &Generic{ObjectKind: kind}
}

func (g *Generic) String() string { return g.ObjectKind }
func (g *Generic) Clone() Descriptor { return &Generic{ObjectKind: g.ObjectKind} }
func (g *Generic) descriptor() {}

// Equals compares object kinds.
func (g *Generic) Equals(o Descriptor) bool {
	og, ok := o.(*Generic)
	return ok && og.ObjectKind == g.ObjectKind
}

// Collection describes a collection whose elements share one descriptor.
type Collection struct {
	Elem Descriptor
}

// NewCollection wraps elem in one level of collection. A nil element is
// stored as Unknown.
func NewCollection(elem Descriptor) *Collection {
	if elem == nil {
		elem = Unknown
	}
	return &Collection{Elem: elem}
}

func (c *Collection) String() string {
	return fmt.Sprintf("collection<%s>", c.Elem)
}

// Clone copies the collection and its element descriptor.
func (c *Collection) Clone() Descriptor {
	return &Collection{Elem: c.Elem.Clone()}
}

// Equals compares element descriptors.
func (c *Collection) Equals(o Descriptor) bool {
	oc, ok := o.(*Collection)
	return ok && c.Elem.Equals(oc.Elem)
}

func (c *Collection) descriptor() {}

// Depth returns the number of collection levels wrapped around a
// non-collection descriptor.
func Depth(d Descriptor) int {
	depth := 0
	for {
		c, ok := d.(*Collection)
		if !ok {
			return depth
		}
		depth++
		d = c.Elem
	}
}

// UnwrapOnce strips one collection level. Non-collections are returned
// unchanged.
func UnwrapOnce(d Descriptor) Descriptor {
	if c, ok := d.(*Collection); ok {
		return c.Elem
	}
	return d
}

// Unwrap strips every collection level and returns the innermost element.
func Unwrap(d Descriptor) Descriptor {
	for {
		c, ok := d.(*Collection)
		if !ok {
			return d
		}
		d = c.Elem
	}
}
