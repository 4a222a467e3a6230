package ui

import (
	"fmt"
	"io"

	"github.com/conduit-lang/pipecheck/internal/graph"
	"github.com/conduit-lang/pipecheck/internal/port"
)

// WriteReport renders a propagation report. Quick fixes are numbered in
// the order of graph.Report.QuickFixes, starting at 1.
func WriteReport(w io.Writer, r *graph.Report, noColor bool) {
	next := 1
	for _, e := range r.Errors() {
		opts := errorOptions(e, noColor)
		opts.FirstFix = next
		next += len(opts.Fixes)
		WriteError(w, opts)
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, Summary(r, noColor))
}

// Summary returns a one-line result for a report
func Summary(r *graph.Report, noColor bool) string {
	errs, warnings := 0, 0
	for _, e := range r.Errors() {
		if e.Severity == port.SeverityError {
			errs++
		} else {
			warnings++
		}
	}

	switch {
	case r.Abandoned:
		return Warning("Propagation was cancelled; results are partial.", noColor)
	case errs == 0 && warnings == 0:
		return FormatSuccess(fmt.Sprintf("Pipeline is valid (%s).", r.Level), noColor)
	case errs == 0:
		return Warning(fmt.Sprintf("%s, no errors (%s).", plural(warnings, "warning"), r.Level), noColor)
	default:
		return FormatError(ErrorOptions{
			Level:   ErrorLevelError,
			Problem: fmt.Sprintf("%s, %s (%s).", plural(errs, "error"), plural(warnings, "warning"), r.Level),
			NoColor: noColor,
		})
	}
}

func errorOptions(e *port.MetaDataError, noColor bool) ErrorOptions {
	level := ErrorLevelError
	switch e.Severity {
	case port.SeverityWarning:
		level = ErrorLevelWarning
	case port.SeverityInfo:
		level = ErrorLevelInfo
	}

	location := e.Location
	if location == "" {
		location = "pipeline"
	}
	opts := ErrorOptions{
		Level:   level,
		Problem: fmt.Sprintf("%s: %s [%s]", location, e.Message, e.Code),
		NoColor: noColor,
	}
	if e.Expected != "" {
		opts.Details = append(opts.Details, "Expected: "+e.Expected)
	}
	if e.Actual != "" {
		opts.Details = append(opts.Details, "Actual:   "+e.Actual)
	}
	for _, f := range e.QuickFixes() {
		opts.Fixes = append(opts.Fixes, f.Description())
	}
	return opts
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
