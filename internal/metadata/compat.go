package metadata

import (
	"fmt"
	"strings"
)

// CompatibilityLevel controls how strictly an offered descriptor must
// match a requirement. Levels are ordered; a higher level rejects more.
type CompatibilityLevel int

const (
	LevelLegacy CompatibilityLevel = iota + 1
	LevelStandard
	LevelStrict
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = LevelStandard

func (l CompatibilityLevel) String() string {
	switch l {
	case LevelLegacy:
		return "legacy"
	case LevelStandard:
		return "standard"
	case LevelStrict:
		return "strict"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Version returns the versioned name of the level ("v1", "v2", ...).
func (l CompatibilityLevel) Version() string {
	return fmt.Sprintf("v%d", int(l))
}

// ParseLevel accepts either the name or the version of a level.
func ParseLevel(s string) (CompatibilityLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "legacy", "v1":
		return LevelLegacy, nil
	case "standard", "v2", "":
		return LevelStandard, nil
	case "strict", "v3":
		return LevelStrict, nil
	default:
		return 0, fmt.Errorf("unknown compatibility level %q", s)
	}
}

// AcceptsKind reports whether an attribute of kind offered satisfies a
// requirement of kind required at this level.
func (l CompatibilityLevel) AcceptsKind(required, offered ValueKind) bool {
	if offered.IsA(required) {
		return true
	}
	if l <= LevelStandard && required == KindReal && offered == KindInteger {
		return true
	}
	if l <= LevelLegacy {
		if required.IsNumeric() && offered.IsNumeric() {
			return true
		}
		if required.IsNominal() && offered.IsNominal() {
			return true
		}
	}
	return false
}

// MismatchKind classifies a compatibility failure.
type MismatchKind string

const (
	MismatchObjectKind         MismatchKind = "object_kind"
	MismatchCollection         MismatchKind = "collection"
	MismatchMissingAttribute   MismatchKind = "missing_attribute"
	MismatchMissingRole        MismatchKind = "missing_role"
	MismatchAttributeKind      MismatchKind = "attribute_kind"
	MismatchRegularKind        MismatchKind = "regular_kind"
	MismatchCount              MismatchKind = "count"
	MismatchDuplicateRole      MismatchKind = "duplicate_role"
	MismatchDuplicateAttribute MismatchKind = "duplicate_attribute"
)

// Mismatch is one reason why an offered descriptor does not satisfy a
// requirement. Each role or attribute problem is its own mismatch so that
// callers can attach a dedicated fix to it.
type Mismatch struct {
	Kind      MismatchKind
	Attribute string
	Role      Role
	Expected  string
	Actual    string
	Message   string
}

// IsCompatible reports whether offered satisfies required at level.
func IsCompatible(required, offered Descriptor, level CompatibilityLevel) bool {
	return len(Check(required, offered, level)) == 0
}

// Check lists every way in which offered fails to satisfy required.
// Unknown on either side is always compatible, and so is a generic
// example set offered where a schema is required: its attributes are
// simply not known.
func Check(required, offered Descriptor, level CompatibilityLevel) []Mismatch {
	if IsUnknown(required) || IsUnknown(offered) {
		return nil
	}

	switch req := required.(type) {
	case *Generic:
		if req.ObjectKind == ObjectAny {
			return nil
		}
		if _, ok := offered.(*ExampleSet); ok && ObjectKindIsA(ObjectExampleSet, req.ObjectKind) {
			return nil
		}
		off, ok := offered.(*Generic)
		if !ok {
			return []Mismatch{kindMismatch(required, offered)}
		}
		if !ObjectKindIsA(off.ObjectKind, req.ObjectKind) {
			return []Mismatch{{
				Kind:     MismatchObjectKind,
				Expected: req.ObjectKind,
				Actual:   off.ObjectKind,
				Message:  fmt.Sprintf("expected %s but received %s", req.ObjectKind, off.ObjectKind),
			}}
		}
		return nil

	case *Collection:
		off, ok := offered.(*Collection)
		if !ok {
			return []Mismatch{{
				Kind:     MismatchCollection,
				Expected: required.String(),
				Actual:   offered.String(),
				Message:  fmt.Sprintf("expected a collection but received %s", offered),
			}}
		}
		return Check(req.Elem, off.Elem, level)

	case *ExampleSet:
		if isShapeless(offered) {
			return nil
		}
		off, ok := offered.(*ExampleSet)
		if !ok {
			return []Mismatch{kindMismatch(required, offered)}
		}
		return checkExampleSet(req, off, level)
	}

	return nil
}

func kindMismatch(required, offered Descriptor) Mismatch {
	if _, ok := offered.(*Collection); ok {
		return Mismatch{
			Kind:     MismatchCollection,
			Expected: required.String(),
			Actual:   offered.String(),
			Message:  fmt.Sprintf("expected %s but received %s; the collection must be unpacked first", describeKind(required), offered),
		}
	}
	return Mismatch{
		Kind:     MismatchObjectKind,
		Expected: describeKind(required),
		Actual:   describeKind(offered),
		Message:  fmt.Sprintf("expected %s but received %s", describeKind(required), describeKind(offered)),
	}
}

func describeKind(d Descriptor) string {
	switch v := d.(type) {
	case *ExampleSet:
		return ObjectExampleSet
	case *Generic:
		return v.ObjectKind
	default:
		return d.String()
	}
}

func checkExampleSet(req, off *ExampleSet, level CompatibilityLevel) []Mismatch {
	var out []Mismatch

	for _, ra := range req.attrs {
		if ra.Name == "" {
			out = append(out, checkRoleRequirement(ra, off, level)...)
			continue
		}

		oa := off.Attribute(ra.Name)
		if oa == nil {
			if off.ContainsName(ra.Name) == Absent {
				out = append(out, Mismatch{
					Kind:      MismatchMissingAttribute,
					Attribute: ra.Name,
					Role:      ra.Role,
					Expected:  ra.String(),
					Message:   fmt.Sprintf("attribute '%s' is missing", ra.Name),
				})
			}
			continue
		}
		if ra.Kind != KindAttribute && !level.AcceptsKind(ra.Kind, oa.Kind) {
			out = append(out, Mismatch{
				Kind:      MismatchAttributeKind,
				Attribute: oa.Name,
				Role:      oa.Role,
				Expected:  ra.Kind.String(),
				Actual:    oa.Kind.String(),
				Message:   fmt.Sprintf("attribute '%s' must be %s but is %s", oa.Name, ra.Kind, oa.Kind),
			})
		}
		if ra.IsSpecial() && oa.Role != ra.Role {
			out = append(out, Mismatch{
				Kind:      MismatchMissingRole,
				Attribute: oa.Name,
				Role:      ra.Role,
				Expected:  string(ra.Role),
				Actual:    oa.Role.String(),
				Message:   fmt.Sprintf("attribute '%s' must have role %s", oa.Name, ra.Role),
			})
		}
	}

	if req.RegularKind != KindAttribute {
		for _, oa := range off.Regular() {
			if !level.AcceptsKind(req.RegularKind, oa.Kind) {
				out = append(out, Mismatch{
					Kind:      MismatchRegularKind,
					Attribute: oa.Name,
					Role:      RoleRegular,
					Expected:  req.RegularKind.String(),
					Actual:    oa.Kind.String(),
					Message:   fmt.Sprintf("regular attribute '%s' is %s; only %s attributes are supported", oa.Name, oa.Kind, req.RegularKind),
				})
			}
		}
	}

	if need := req.Count.Min(); need > 0 && !off.Count.CanReach(need) {
		out = append(out, Mismatch{
			Kind:     MismatchCount,
			Expected: fmt.Sprintf(">=%d examples", need),
			Actual:   fmt.Sprintf("%s examples", off.Count),
			Message:  fmt.Sprintf("at least %d examples are required but only %s are available", need, off.Count),
		})
	}

	return out
}

func checkRoleRequirement(ra *AttributeMetaData, off *ExampleSet, level CompatibilityLevel) []Mismatch {
	oa := off.Special(ra.Role)
	if oa == nil {
		if off.ContainsRole(ra.Role) == Absent {
			return []Mismatch{{
				Kind:     MismatchMissingRole,
				Role:     ra.Role,
				Expected: ra.String(),
				Message:  fmt.Sprintf("no attribute with role %s", ra.Role),
			}}
		}
		return nil
	}
	if ra.Kind != KindAttribute && !level.AcceptsKind(ra.Kind, oa.Kind) {
		return []Mismatch{{
			Kind:      MismatchAttributeKind,
			Attribute: oa.Name,
			Role:      ra.Role,
			Expected:  ra.Kind.String(),
			Actual:    oa.Kind.String(),
			Message:   fmt.Sprintf("%s attribute '%s' must be %s but is %s", ra.Role, oa.Name, ra.Kind, oa.Kind),
		}}
	}
	return nil
}
