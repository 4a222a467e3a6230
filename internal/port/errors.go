package port

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/conduit-lang/pipecheck/internal/metadata"
)

// ErrorKind classifies a metadata error.
type ErrorKind string

const (
	KindMissingMandatoryInput ErrorKind = "missing_mandatory_input"
	KindIncompatibleMetaData  ErrorKind = "incompatible_metadata"
	KindUnresolvedUpstream    ErrorKind = "unresolved_upstream"
	KindStructuralCycle       ErrorKind = "structural_cycle"
	KindInvalidParameter      ErrorKind = "invalid_parameter"
)

// ErrorCode is the stable identifier of an error kind.
type ErrorCode string

const (
	ErrMissingMandatoryInput ErrorCode = "MD100"
	ErrIncompatibleMetaData  ErrorCode = "MD101"
	ErrUnresolvedUpstream    ErrorCode = "MD102"
	ErrStructuralCycle       ErrorCode = "MD103"
	ErrInvalidParameter      ErrorCode = "MD104"
)

// Severity indicates how bad an error is.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// MetaDataError is a problem found during propagation. It is attached to
// exactly one port (graph-level diagnostics have none) and carries the
// quick fixes that could repair it, ordered by priority.
type MetaDataError struct {
	Code     ErrorCode `json:"code"`
	Kind     ErrorKind `json:"kind"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
	Location string    `json:"location,omitempty"`
	Expected string    `json:"expected,omitempty"`
	Actual   string    `json:"actual,omitempty"`

	Port *Port `json:"-"`

	fixes []QuickFix
}

// Error implements the error interface
func (e *MetaDataError) Error() string {
	if e.Location == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Location, e.Code, e.Message)
}

// Format returns a multi-line human-readable rendering
func (e *MetaDataError) Format() string {
	var b strings.Builder

	location := e.Location
	if location == "" {
		location = "<graph>"
	}
	fmt.Fprintf(&b, "%s: %s [%s]\n", location, strings.ToUpper(string(e.Severity)), e.Code)
	fmt.Fprintf(&b, "  %s\n", e.Message)

	if e.Expected != "" || e.Actual != "" {
		b.WriteString("\n")
		if e.Expected != "" {
			fmt.Fprintf(&b, "  Expected: %s\n", e.Expected)
		}
		if e.Actual != "" {
			fmt.Fprintf(&b, "  Actual:   %s\n", e.Actual)
		}
	}

	if len(e.fixes) > 0 {
		b.WriteString("\n  Quick fixes:\n")
		for _, f := range e.fixes {
			fmt.Fprintf(&b, "    - %s\n", f.Description())
		}
	}

	return b.String()
}

// QuickFixes returns the attached fixes, most important first.
func (e *MetaDataError) QuickFixes() []QuickFix {
	return e.fixes
}

// AddQuickFix attaches fixes and keeps them ordered by priority.
func (e *MetaDataError) AddQuickFix(fixes ...QuickFix) {
	e.fixes = append(e.fixes, fixes...)
	sort.SliceStable(e.fixes, func(i, j int) bool {
		return e.fixes[i].Priority() < e.fixes[j].Priority()
	})
}

type quickFixJSON struct {
	Priority    int    `json:"priority"`
	Significant bool   `json:"significant"`
	Description string `json:"description"`
}

// MarshalJSON includes the fix descriptions.
func (e *MetaDataError) MarshalJSON() ([]byte, error) {
	type plain MetaDataError
	fixes := make([]quickFixJSON, len(e.fixes))
	for i, f := range e.fixes {
		fixes[i] = quickFixJSON{Priority: f.Priority(), Significant: f.Significant(), Description: f.Description()}
	}
	return json.Marshal(struct {
		*plain
		QuickFixes []quickFixJSON `json:"quick_fixes,omitempty"`
	}{plain: (*plain)(e), QuickFixes: fixes})
}

// ToJSON returns the error as indented JSON
func (e *MetaDataError) ToJSON() (string, error) {
	bytes, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// ErrorList is a collection of metadata errors
type ErrorList []*MetaDataError

// Error implements the error interface
func (el ErrorList) Error() string {
	if len(el) == 0 {
		return "no errors"
	}
	var b strings.Builder
	for i, err := range el {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(err.Format())
	}
	return b.String()
}

// HasErrors reports whether any entry has error severity.
func (el ErrorList) HasErrors() bool {
	for _, e := range el {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Count returns the number of entries of the given kind.
func (el ErrorList) Count(kind ErrorKind) int {
	n := 0
	for _, e := range el {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func newPortError(p *Port, code ErrorCode, kind ErrorKind, severity Severity, message string) *MetaDataError {
	e := &MetaDataError{
		Code:     code,
		Kind:     kind,
		Severity: severity,
		Message:  message,
		Port:     p,
	}
	if p != nil {
		e.Location = p.String()
	}
	return e
}

// NewMissingMandatoryInput creates an MD100 error
func NewMissingMandatoryInput(p *Port) *MetaDataError {
	return newPortError(p, ErrMissingMandatoryInput, KindMissingMandatoryInput, SeverityError,
		"missing mandatory input")
}

// NewIncompatibleMetaData creates an MD101 error for one mismatch
func NewIncompatibleMetaData(p *Port, m metadata.Mismatch, fixes ...QuickFix) *MetaDataError {
	e := newPortError(p, ErrIncompatibleMetaData, KindIncompatibleMetaData, SeverityError, m.Message)
	e.Expected = m.Expected
	e.Actual = m.Actual
	e.AddQuickFix(fixes...)
	return e
}

// NewUnresolvedUpstream creates an MD102 warning
func NewUnresolvedUpstream(p *Port, upstream ID) *MetaDataError {
	return newPortError(p, ErrUnresolvedUpstream, KindUnresolvedUpstream, SeverityWarning,
		fmt.Sprintf("%s produced no metadata; treating input as unknown", upstream))
}

// NewStructuralCycle creates the MD103 graph diagnostic
func NewStructuralCycle(operators []string) *MetaDataError {
	return newPortError(nil, ErrStructuralCycle, KindStructuralCycle, SeverityError,
		fmt.Sprintf("graph is not a DAG; operators on a cycle were checked with unknown inputs: %s",
			strings.Join(operators, ", ")))
}

// NewInvalidParameter creates an MD104 error
func NewInvalidParameter(p *Port, parameter string, cause error) *MetaDataError {
	return newPortError(p, ErrInvalidParameter, KindInvalidParameter, SeverityError,
		fmt.Sprintf("parameter '%s' is invalid: %v", parameter, cause))
}

// FixProvider builds quick fixes for one mismatch found on a port.
type FixProvider func(p *Port, m metadata.Mismatch, offered metadata.Descriptor) []QuickFix

// ErrorsFor checks offered against required and returns one error per
// mismatch, each with the fixes the provider offers for it.
func ErrorsFor(p *Port, required, offered metadata.Descriptor, level metadata.CompatibilityLevel, fixes FixProvider) []*MetaDataError {
	var errs []*MetaDataError
	for _, m := range metadata.Check(required, offered, level) {
		var qf []QuickFix
		if fixes != nil {
			qf = fixes(p, m, offered)
		}
		errs = append(errs, NewIncompatibleMetaData(p, m, qf...))
	}
	return errs
}
