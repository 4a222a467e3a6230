// Package metadata describes the shape of data flowing along a pipeline
// edge without carrying the data itself. Descriptors are value objects:
// once handed to a port they are treated as immutable, and every
// transformation works on a Clone.
package metadata

import (
	"fmt"
	"strings"
)

// ValueKind is the value type of an attribute. Kinds form a tree rooted
// at KindAttribute; a kind is acceptable wherever one of its ancestors is
// required.
type ValueKind int

const (
	KindAttribute ValueKind = iota
	KindNominal
	KindBinominal
	KindPolynominal
	KindText
	KindNumeric
	KindInteger
	KindReal
	KindDateTime
	KindDate
	KindTime
)

var kindNames = map[ValueKind]string{
	KindAttribute:   "attribute",
	KindNominal:     "nominal",
	KindBinominal:   "binominal",
	KindPolynominal: "polynominal",
	KindText:        "text",
	KindNumeric:     "numeric",
	KindInteger:     "integer",
	KindReal:        "real",
	KindDateTime:    "date_time",
	KindDate:        "date",
	KindTime:        "time",
}

var kindParents = map[ValueKind]ValueKind{
	KindNominal:     KindAttribute,
	KindBinominal:   KindNominal,
	KindPolynominal: KindNominal,
	KindText:        KindNominal,
	KindNumeric:     KindAttribute,
	KindInteger:     KindNumeric,
	KindReal:        KindNumeric,
	KindDateTime:    KindAttribute,
	KindDate:        KindDateTime,
	KindTime:        KindDateTime,
}

func (k ValueKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseValueKind resolves a kind from its name. "datetime" is accepted as
// an alias of "date_time".
func ParseValueKind(s string) (ValueKind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "datetime" {
		return KindDateTime, nil
	}
	for kind, n := range kindNames {
		if n == name {
			return kind, nil
		}
	}
	return KindAttribute, fmt.Errorf("unknown value kind %q", s)
}

// IsA reports whether k equals parent or descends from it.
func (k ValueKind) IsA(parent ValueKind) bool {
	cur := k
	for {
		if cur == parent {
			return true
		}
		next, ok := kindParents[cur]
		if !ok {
			return false
		}
		cur = next
	}
}

// IsNominal reports whether k is a nominal kind.
func (k ValueKind) IsNominal() bool {
	return k.IsA(KindNominal)
}

// IsNumeric reports whether k is a numeric kind.
func (k ValueKind) IsNumeric() bool {
	return k.IsA(KindNumeric)
}

// Role is the role an attribute plays in an example set. Any role other
// than RoleRegular is special, and an example set holds at most one
// attribute per special role.
type Role string

const (
	RoleRegular    Role = "regular"
	RoleLabel      Role = "label"
	RoleID         Role = "id"
	RoleWeight     Role = "weight"
	RolePrediction Role = "prediction"
	RoleCluster    Role = "cluster"
	RoleBatch      Role = "batch"
)

// ParseRole normalizes a role name. The empty string means regular.
// Unlisted names are accepted as custom special roles.
func ParseRole(s string) Role {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return RoleRegular
	}
	return Role(name)
}

// IsSpecial reports whether r is a special role.
func (r Role) IsSpecial() bool {
	return r != "" && r != RoleRegular
}

func (r Role) String() string {
	if r == "" {
		return string(RoleRegular)
	}
	return string(r)
}
