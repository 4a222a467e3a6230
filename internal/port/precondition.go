package port

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agext/levenshtein"

	"github.com/conduit-lang/pipecheck/internal/metadata"
)

// Precondition is a check bound to an input port. Check is called with nil
// metadata when nothing is connected.
type Precondition interface {
	Check(p *Port, md metadata.Descriptor, level metadata.CompatibilityLevel) []*MetaDataError

	// Description is a short explanation shown to authors
	Description() string

	// Expected returns the descriptor used to stub unconnected ports, or nil
	Expected() metadata.Descriptor

	Mandatory() bool
}

// DescriptorPrecondition requires received metadata to satisfy a
// descriptor. It is mandatory unless made Optional.
type DescriptorPrecondition struct {
	expected    metadata.Descriptor
	optional    bool
	fixes       FixProvider
	description string
}

// Require creates a mandatory precondition on expected.
func Require(expected metadata.Descriptor) *DescriptorPrecondition {
	return &DescriptorPrecondition{expected: expected}
}

// Optional makes the input optional: nothing connected is not an error.
func (pc *DescriptorPrecondition) Optional() *DescriptorPrecondition {
	pc.optional = true
	return pc
}

// WithFixes sets the provider consulted for each mismatch.
func (pc *DescriptorPrecondition) WithFixes(fixes FixProvider) *DescriptorPrecondition {
	pc.fixes = fixes
	return pc
}

// Describe overrides the generated description.
func (pc *DescriptorPrecondition) Describe(description string) *DescriptorPrecondition {
	pc.description = description
	return pc
}

func (pc *DescriptorPrecondition) Check(p *Port, md metadata.Descriptor, level metadata.CompatibilityLevel) []*MetaDataError {
	if md == nil {
		if pc.optional {
			return nil
		}
		return []*MetaDataError{NewMissingMandatoryInput(p)}
	}
	return ErrorsFor(p, pc.expected, md, level, pc.fixes)
}

func (pc *DescriptorPrecondition) Description() string {
	if pc.description != "" {
		return pc.description
	}
	if pc.expected == nil {
		return "expects any input"
	}
	return fmt.Sprintf("expects %s", pc.expected)
}

func (pc *DescriptorPrecondition) Expected() metadata.Descriptor {
	return pc.expected
}

func (pc *DescriptorPrecondition) Mandatory() bool {
	return !pc.optional
}

// AttributePrecondition requires the example set on the port to contain
// the attributes whose names are read from operator parameters. The names
// are read on every check, so parameter edits are picked up. When an
// attribute is missing it proposes the closest existing names.
type AttributePrecondition struct {
	names func() []string
	set   func(i int, name string) error
}

// NewAttributePrecondition checks the attribute named by name(). Fixes call
// set with a replacement name.
func NewAttributePrecondition(name func() string, set func(string) error) *AttributePrecondition {
	return &AttributePrecondition{
		names: func() []string { return []string{name()} },
		set: func(_ int, replacement string) error {
			return set(replacement)
		},
	}
}

// NewAttributeListPrecondition checks every attribute listed by names().
// Fixes call set with the index of the misspelled name and a replacement.
func NewAttributeListPrecondition(names func() []string, set func(i int, name string) error) *AttributePrecondition {
	return &AttributePrecondition{names: names, set: set}
}

// maxSuggestions bounds the number of "did you mean" fixes per error.
const maxSuggestions = 3

func (pc *AttributePrecondition) Check(p *Port, md metadata.Descriptor, _ metadata.CompatibilityLevel) []*MetaDataError {
	es, ok := md.(*metadata.ExampleSet)
	if !ok {
		return nil
	}

	var errs []*MetaDataError
	for i, name := range pc.names() {
		if name == "" || es.ContainsName(name) != metadata.Absent {
			continue
		}
		m := metadata.Mismatch{
			Kind:      metadata.MismatchMissingAttribute,
			Attribute: name,
			Expected:  name,
			Message:   fmt.Sprintf("attribute '%s' does not exist", name),
		}
		errs = append(errs, NewIncompatibleMetaData(p, m, pc.suggest(i, name, es)...))
	}
	return errs
}

func (pc *AttributePrecondition) suggest(index int, name string, es *metadata.ExampleSet) []QuickFix {
	type candidate struct {
		name     string
		distance int
	}
	limit := max(2, len(name)/2)
	var candidates []candidate
	for _, a := range es.Attributes() {
		if a.Name == "" {
			continue
		}
		if d := levenshtein.Distance(name, a.Name, nil); d <= limit {
			candidates = append(candidates, candidate{name: a.Name, distance: d})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})
	if len(candidates) > maxSuggestions {
		candidates = candidates[:maxSuggestions]
	}

	fixes := make([]QuickFix, 0, len(candidates))
	for _, c := range candidates {
		replacement := c.name
		fixes = append(fixes, NewQuickFix(
			PriorityHigh+c.distance,
			fmt.Sprintf("Use attribute '%s' instead of '%s'", replacement, name),
			func() error { return pc.set(index, replacement) },
		))
	}
	return fixes
}

func (pc *AttributePrecondition) Description() string {
	names := pc.names()
	if len(names) == 1 {
		return fmt.Sprintf("expects attribute '%s'", names[0])
	}
	return fmt.Sprintf("expects attributes %s", strings.Join(names, ", "))
}

func (pc *AttributePrecondition) Expected() metadata.Descriptor {
	return nil
}

func (pc *AttributePrecondition) Mandatory() bool {
	return false
}

// groupMandatory reports a missing input on a group's first port when no
// port of the group is connected.
type groupMandatory struct {
	group *Group
}

func (pc *groupMandatory) Check(p *Port, md metadata.Descriptor, _ metadata.CompatibilityLevel) []*MetaDataError {
	if md != nil || pc.group.anyConnected() {
		return nil
	}
	return []*MetaDataError{NewMissingMandatoryInput(p)}
}

func (pc *groupMandatory) Description() string {
	return fmt.Sprintf("at least one %s must be connected", pc.group.name)
}

func (pc *groupMandatory) Expected() metadata.Descriptor {
	return nil
}

func (pc *groupMandatory) Mandatory() bool {
	return true
}
