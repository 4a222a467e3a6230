package metadata

import (
	"fmt"
	"slices"
	"strings"
)

// NumericRange is the inclusive value range of a numeric attribute.
type NumericRange struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

func (r NumericRange) String() string {
	return fmt.Sprintf("[%g, %g]", r.Lower, r.Upper)
}

// AttributeMetaData describes one column of an example set. An empty Name
// is only meaningful inside a requirement, where it stands for "any
// attribute with this role".
type AttributeMetaData struct {
	Name string
	Kind ValueKind
	Role Role

	// Values lists the nominal values when they are known; nil means unknown.
	Values []string

	// Range is the numeric value range when known.
	Range *NumericRange

	Missing Count
}

// NewAttribute creates a regular attribute.
func NewAttribute(name string, kind ValueKind) *AttributeMetaData {
	return &AttributeMetaData{Name: name, Kind: kind, Role: RoleRegular}
}

// NewSpecialAttribute creates an attribute with a role.
func NewSpecialAttribute(name string, kind ValueKind, role Role) *AttributeMetaData {
	return &AttributeMetaData{Name: name, Kind: kind, Role: role}
}

// WithRole returns a copy of the attribute with a different role.
func (a *AttributeMetaData) WithRole(role Role) *AttributeMetaData {
	c := a.Clone()
	c.Role = role
	return c
}

// IsSpecial reports whether the attribute holds a special role.
func (a *AttributeMetaData) IsSpecial() bool {
	return a.Role.IsSpecial()
}

// Clone returns a deep copy.
func (a *AttributeMetaData) Clone() *AttributeMetaData {
	c := *a
	if a.Values != nil {
		c.Values = slices.Clone(a.Values)
	}
	if a.Range != nil {
		r := *a.Range
		c.Range = &r
	}
	return &c
}

// Equals compares name, kind, role and the known value information.
func (a *AttributeMetaData) Equals(o *AttributeMetaData) bool {
	if a == nil || o == nil {
		return a == o
	}
	if a.Name != o.Name || a.Kind != o.Kind || a.Role.String() != o.Role.String() {
		return false
	}
	if !slices.Equal(a.Values, o.Values) || (a.Values == nil) != (o.Values == nil) {
		return false
	}
	if (a.Range == nil) != (o.Range == nil) || (a.Range != nil && *a.Range != *o.Range) {
		return false
	}
	return a.Missing == o.Missing
}

func (a *AttributeMetaData) String() string {
	name := a.Name
	if name == "" {
		name = "*"
	}
	if a.IsSpecial() {
		return fmt.Sprintf("%s:%s(%s)", name, a.Kind, a.Role)
	}
	return fmt.Sprintf("%s:%s", name, a.Kind)
}

// ParseAttribute reads the compact form "name:kind[:role]", for example
// "outlook:nominal" or "play:binominal:label".
func ParseAttribute(s string) (*AttributeMetaData, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return nil, fmt.Errorf("invalid attribute %q: expected name:kind[:role]", s)
	}
	name := strings.TrimSpace(parts[0])
	if name == "" {
		return nil, fmt.Errorf("invalid attribute %q: empty name", s)
	}
	kind, err := ParseValueKind(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid attribute %q: %w", s, err)
	}
	role := RoleRegular
	if len(parts) == 3 {
		role = ParseRole(parts[2])
	}
	return NewSpecialAttribute(name, kind, role), nil
}

// ParseAttributes reads a comma separated list of compact attributes.
func ParseAttributes(s string) ([]*AttributeMetaData, error) {
	var attrs []*AttributeMetaData
	for _, field := range strings.Split(s, ",") {
		if strings.TrimSpace(field) == "" {
			continue
		}
		a, err := ParseAttribute(field)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, a)
	}
	return attrs, nil
}
