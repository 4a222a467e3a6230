package metadata

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateAttribute is returned when an attribute name is already taken.
	ErrDuplicateAttribute = errors.New("duplicate attribute name")
	// ErrDuplicateRole is returned when a special role is already taken.
	ErrDuplicateRole = errors.New("duplicate special role")
	// ErrNoSuchAttribute is returned when an attribute name does not exist.
	ErrNoSuchAttribute = errors.New("no such attribute")
)

// Relation tells how the listed attributes relate to the attributes the
// data will really have.
type Relation int

const (
	// RelationEqual means exactly the listed attributes.
	RelationEqual Relation = iota
	// RelationSuperset means at least the listed attributes.
	RelationSuperset
	// RelationSubset means at most the listed attributes.
	RelationSubset
	// RelationUnknown means the list is only a hint.
	RelationUnknown
)

func (r Relation) String() string {
	switch r {
	case RelationEqual:
		return "equal"
	case RelationSuperset:
		return "superset"
	case RelationSubset:
		return "subset"
	default:
		return "unknown"
	}
}

// combine returns the weakest relation that holds for a union of
// attribute lists with relations r and o.
func (r Relation) combine(o Relation) Relation {
	switch {
	case r == RelationUnknown || o == RelationUnknown:
		return RelationUnknown
	case r == RelationSuperset || o == RelationSuperset:
		if r == RelationSubset || o == RelationSubset {
			return RelationUnknown
		}
		return RelationSuperset
	case r == RelationSubset || o == RelationSubset:
		return RelationSubset
	default:
		return RelationEqual
	}
}

// Presence is a three-valued answer to "does the schema contain X".
type Presence int

const (
	Absent Presence = iota
	Present
	PresenceUnknown
)

// ExampleSet describes a table of examples: its attributes, the number of
// examples and how complete the attribute list is.
type ExampleSet struct {
	attrs []*AttributeMetaData
	index map[string]int

	Count    Count
	Relation Relation

	// RegularKind constrains the kind of every regular attribute when the
	// example set is used as a requirement. KindAttribute accepts all.
	RegularKind ValueKind
}

// NewExampleSet builds a schema, enforcing unique names and roles.
func NewExampleSet(attrs ...*AttributeMetaData) (*ExampleSet, error) {
	es := &ExampleSet{index: make(map[string]int)}
	for _, a := range attrs {
		if err := es.AddAttribute(a); err != nil {
			return nil, err
		}
	}
	return es, nil
}

// MustExampleSet is NewExampleSet for statically known schemas. It panics
// when the schema violates an invariant.
func MustExampleSet(attrs ...*AttributeMetaData) *ExampleSet {
	es, err := NewExampleSet(attrs...)
	if err != nil {
		panic(err)
	}
	return es
}

// AddAttribute appends an attribute. Unnamed attributes are only subject
// to the role invariant.
func (es *ExampleSet) AddAttribute(a *AttributeMetaData) error {
	if es.index == nil {
		es.index = make(map[string]int)
	}
	if a.Name != "" {
		if _, exists := es.index[a.Name]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateAttribute, a.Name)
		}
	}
	if a.IsSpecial() && es.Special(a.Role) != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateRole, a.Role)
	}
	if a.Role == "" {
		a.Role = RoleRegular
	}
	if a.Name != "" {
		es.index[a.Name] = len(es.attrs)
	}
	es.attrs = append(es.attrs, a)
	return nil
}

// RemoveAttribute drops an attribute by name.
func (es *ExampleSet) RemoveAttribute(name string) bool {
	i, ok := es.index[name]
	if !ok {
		return false
	}
	es.attrs = append(es.attrs[:i], es.attrs[i+1:]...)
	es.reindex()
	return true
}

func (es *ExampleSet) reindex() {
	es.index = make(map[string]int, len(es.attrs))
	for i, a := range es.attrs {
		if a.Name != "" {
			es.index[a.Name] = i
		}
	}
}

// SetRole assigns role to the named attribute. An attribute that held the
// role before becomes regular.
func (es *ExampleSet) SetRole(name string, role Role) error {
	i, ok := es.index[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchAttribute, name)
	}
	if role.IsSpecial() {
		for j, a := range es.attrs {
			if j != i && a.Role == role {
				es.attrs[j] = a.WithRole(RoleRegular)
			}
		}
	}
	es.attrs[i] = es.attrs[i].WithRole(role)
	return nil
}

// Attribute returns the attribute with the given name, or nil.
func (es *ExampleSet) Attribute(name string) *AttributeMetaData {
	if i, ok := es.index[name]; ok {
		return es.attrs[i]
	}
	return nil
}

// Special returns the attribute holding role, or nil.
func (es *ExampleSet) Special(role Role) *AttributeMetaData {
	for _, a := range es.attrs {
		if a.Role == role {
			return a
		}
	}
	return nil
}

// Attributes returns the attributes in declaration order.
func (es *ExampleSet) Attributes() []*AttributeMetaData {
	out := make([]*AttributeMetaData, len(es.attrs))
	copy(out, es.attrs)
	return out
}

// Regular returns the attributes without a special role.
func (es *ExampleSet) Regular() []*AttributeMetaData {
	var out []*AttributeMetaData
	for _, a := range es.attrs {
		if !a.IsSpecial() {
			out = append(out, a)
		}
	}
	return out
}

// Len returns the number of listed attributes.
func (es *ExampleSet) Len() int {
	return len(es.attrs)
}

// ContainsName answers whether the data will have the named attribute.
func (es *ExampleSet) ContainsName(name string) Presence {
	if es.Attribute(name) != nil {
		return Present
	}
	return es.absence()
}

// ContainsRole answers whether the data will have an attribute with role.
func (es *ExampleSet) ContainsRole(role Role) Presence {
	if es.Special(role) != nil {
		return Present
	}
	return es.absence()
}

func (es *ExampleSet) absence() Presence {
	if es.Relation == RelationEqual || es.Relation == RelationSubset {
		return Absent
	}
	return PresenceUnknown
}

// Clone returns a deep copy.
func (es *ExampleSet) Clone() Descriptor {
	return es.CloneSet()
}

// CloneSet is Clone with the concrete type.
func (es *ExampleSet) CloneSet() *ExampleSet {
	c := &ExampleSet{
		attrs:       make([]*AttributeMetaData, len(es.attrs)),
		Count:       es.Count,
		Relation:    es.Relation,
		RegularKind: es.RegularKind,
	}
	for i, a := range es.attrs {
		c.attrs[i] = a.Clone()
	}
	c.reindex()
	return c
}

// Equals compares attributes in order, the count and the relation.
func (es *ExampleSet) Equals(o Descriptor) bool {
	other, ok := o.(*ExampleSet)
	if !ok || len(es.attrs) != len(other.attrs) {
		return false
	}
	if es.Count != other.Count || es.Relation != other.Relation || es.RegularKind != other.RegularKind {
		return false
	}
	for i, a := range es.attrs {
		if !a.Equals(other.attrs[i]) {
			return false
		}
	}
	return true
}

func (es *ExampleSet) String() string {
	names := make([]string, len(es.attrs))
	for i, a := range es.attrs {
		names[i] = a.String()
	}
	var b strings.Builder
	b.WriteString("example_set{")
	b.WriteString(strings.Join(names, ", "))
	if es.Relation == RelationSuperset || es.Relation == RelationUnknown {
		if len(names) > 0 {
			b.WriteString(", ")
		}
		b.WriteString("...")
	}
	b.WriteString("}")
	if !es.Count.IsUnknown() {
		fmt.Fprintf(&b, " n=%s", es.Count)
	}
	return b.String()
}

func (es *ExampleSet) descriptor() {}
