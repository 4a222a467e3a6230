package metadata

import "fmt"

// Merge combines several descriptors into one, as a many-to-one pass
// through does. Example sets are unioned by attribute name, collections
// merge their elements, and equal generic kinds collapse into one. Unknown
// inputs are ignored, but they widen an example set's relation to
// superset and drop the upper bound of its count, since the unknown side
// may contribute attributes and examples. Conflicts do
// not stop the merge: the first occurrence wins and a Mismatch is
// returned per conflict.
func Merge(descs ...Descriptor) (Descriptor, []Mismatch) {
	var known []Descriptor
	for _, d := range descs {
		if !IsUnknown(d) {
			known = append(known, d)
		}
	}
	if len(known) == 0 {
		return Unknown, nil
	}
	partial := len(known) < len(descs)
	if containsExampleSet(known) {
		for i, d := range known {
			if isShapeless(d) {
				known[i] = shapelessExampleSet()
			}
		}
	}

	switch first := known[0].(type) {
	case *ExampleSet:
		sets := make([]*ExampleSet, 0, len(known))
		for _, d := range known {
			es, ok := d.(*ExampleSet)
			if !ok {
				return first.Clone(), []Mismatch{mergeKindMismatch(first, d)}
			}
			sets = append(sets, es)
		}
		merged, conflicts := unionExampleSets(sets)
		if partial {
			if merged.Relation == RelationEqual {
				merged.Relation = RelationSuperset
			}
			merged.Count = merged.Count.Union(UnknownCount())
		}
		return merged, conflicts

	case *Collection:
		elems := make([]Descriptor, 0, len(known))
		for _, d := range known {
			c, ok := d.(*Collection)
			if !ok {
				return first.Clone(), []Mismatch{mergeKindMismatch(first, d)}
			}
			elems = append(elems, c.Elem)
		}
		elem, conflicts := Merge(elems...)
		return NewCollection(elem), conflicts

	default:
		for _, d := range known[1:] {
			if !d.Equals(first) {
				return first.Clone(), []Mismatch{mergeKindMismatch(first, d)}
			}
		}
		return first.Clone(), nil
	}
}

func mergeKindMismatch(first, other Descriptor) Mismatch {
	return Mismatch{
		Kind:     MismatchObjectKind,
		Expected: describeKind(first),
		Actual:   describeKind(other),
		Message:  fmt.Sprintf("cannot merge %s with %s", describeKind(first), describeKind(other)),
	}
}

func unionExampleSets(sets []*ExampleSet) (*ExampleSet, []Mismatch) {
	merged := sets[0].CloneSet()
	var conflicts []Mismatch

	for _, es := range sets[1:] {
		merged.Relation = merged.Relation.combine(es.Relation)
		merged.Count = merged.Count.Union(es.Count)

		for _, a := range es.attrs {
			if existing := merged.Attribute(a.Name); existing != nil {
				if !existing.Kind.IsA(a.Kind) && !a.Kind.IsA(existing.Kind) {
					conflicts = append(conflicts, Mismatch{
						Kind:      MismatchDuplicateAttribute,
						Attribute: a.Name,
						Expected:  existing.Kind.String(),
						Actual:    a.Kind.String(),
						Message:   fmt.Sprintf("attribute '%s' is %s in one input and %s in another", a.Name, existing.Kind, a.Kind),
					})
				}
				continue
			}

			c := a.Clone()
			if c.IsSpecial() && merged.Special(c.Role) != nil {
				holder := merged.Special(c.Role)
				conflicts = append(conflicts, Mismatch{
					Kind:      MismatchDuplicateRole,
					Attribute: c.Name,
					Role:      c.Role,
					Expected:  holder.Name,
					Actual:    c.Name,
					Message:   fmt.Sprintf("both '%s' and '%s' have role %s", holder.Name, c.Name, c.Role),
				})
				c.Role = RoleRegular
			}
			// invariants were checked above
			_ = merged.AddAttribute(c)
		}
	}

	return merged, conflicts
}

// isShapeless reports whether d is a generic example set, which is what an
// unconnected input previews.
func isShapeless(d Descriptor) bool {
	g, ok := d.(*Generic)
	return ok && g.ObjectKind == ObjectExampleSet
}

// shapelessExampleSet stands in for a generic example set when it is
// merged with known schemas.
func shapelessExampleSet() *ExampleSet {
	es := MustExampleSet()
	es.Relation = RelationUnknown
	return es
}

func containsExampleSet(descs []Descriptor) bool {
	for _, d := range descs {
		if _, ok := d.(*ExampleSet); ok {
			return true
		}
	}
	return false
}
