package graph

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/conduit-lang/pipecheck/internal/metadata"
	"github.com/conduit-lang/pipecheck/internal/port"
)

// OperatorReport holds the errors of one operator.
type OperatorReport struct {
	Operator string         `json:"operator"`
	Kind     string         `json:"kind"`
	Errors   port.ErrorList `json:"errors"`
}

// Report is the result of one propagation pass. Errors are grouped by
// operator in declaration order, input ports before output ports.
type Report struct {
	PassID      uuid.UUID        `json:"pass_id"`
	Level       string           `json:"compatibility_level"`
	Complete    bool             `json:"complete"`
	Abandoned   bool             `json:"abandoned,omitempty"`
	Operators   []OperatorReport `json:"operators"`
	Diagnostics port.ErrorList   `json:"diagnostics,omitempty"`
}

func newReport(id uuid.UUID, level metadata.CompatibilityLevel, ops []*Operator) *Report {
	r := &Report{
		PassID:    id,
		Level:     level.Version(),
		Operators: []OperatorReport{},
	}
	for _, op := range ops {
		if errs := op.Errors(); len(errs) > 0 {
			r.Operators = append(r.Operators, OperatorReport{Operator: op.name, Kind: op.kind, Errors: errs})
		}
	}
	return r
}

// Errors returns every error and warning: per-operator entries first,
// graph diagnostics last.
func (r *Report) Errors() port.ErrorList {
	var all port.ErrorList
	for _, op := range r.Operators {
		all = append(all, op.Errors...)
	}
	return append(all, r.Diagnostics...)
}

// For returns the errors of one operator.
func (r *Report) For(operator string) port.ErrorList {
	for _, op := range r.Operators {
		if op.Operator == operator {
			return op.Errors
		}
	}
	return nil
}

// QuickFixes returns the fixes of every entry in report order. The
// position in this list is the number shown to users.
func (r *Report) QuickFixes() []port.QuickFix {
	var fixes []port.QuickFix
	for _, e := range r.Errors() {
		fixes = append(fixes, e.QuickFixes()...)
	}
	return fixes
}

// HasErrors reports whether any entry has error severity.
func (r *Report) HasErrors() bool {
	return r.Errors().HasErrors()
}

// Count returns the number of entries of the given kind.
func (r *Report) Count(kind port.ErrorKind) int {
	return r.Errors().Count(kind)
}

// Format renders the report as text. Two passes over the same graph
// produce the same output.
func (r *Report) Format() string {
	var sb strings.Builder
	for _, op := range r.Operators {
		fmt.Fprintf(&sb, "%s (%s):\n", op.Operator, op.Kind)
		for _, e := range op.Errors {
			for _, line := range strings.Split(strings.TrimRight(e.Format(), "\n"), "\n") {
				sb.WriteString("  " + line + "\n")
			}
		}
	}
	for _, e := range r.Diagnostics {
		sb.WriteString(e.Format())
	}
	return sb.String()
}

// ToJSON renders the report as indented JSON.
func (r *Report) ToJSON() (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
