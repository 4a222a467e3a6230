package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// ErrorLevel represents the severity of an error message
type ErrorLevel int

const (
	ErrorLevelError ErrorLevel = iota
	ErrorLevelWarning
	ErrorLevelInfo
)

// ErrorOptions configures the error message formatting
type ErrorOptions struct {
	Level        ErrorLevel
	Context      string
	Problem      string
	Details      []string
	Consequence  string
	Suggestions  []string
	Fixes        []string
	FirstFix     int
	HelpCommands []string
	NoColor      bool
}

// FormatError creates a standardized error message with suggestions, quick
// fixes and help commands. Fixes are numbered from FirstFix.
//
// Example output:
//
//	❌ Tree.training set: input does not satisfy requirement [MD101]
//	   Expected: example set with label role
//	   Actual:   example set with 3 attributes
//
//	   [1] Declare attribute 'outlook' as label
//	   [2] Declare attribute 'play' as label
//
//	   → Apply a fix: pipecheck fix pipeline.yml --apply 1
func FormatError(opts ErrorOptions) string {
	var b strings.Builder

	headerColor, bodyColor, symbol := levelStyle(opts.Level)
	if opts.NoColor {
		headerColor.DisableColor()
		bodyColor.DisableColor()
	}

	// Header line with context
	if opts.Context != "" {
		headerColor.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(opts.Context), opts.Problem)
	} else {
		headerColor.Fprintf(&b, "%s %s\n", symbol, opts.Problem)
	}

	for _, line := range opts.Details {
		bodyColor.Fprintf(&b, "   %s\n", line)
	}

	if opts.Consequence != "" {
		b.WriteString("\n")
		bodyColor.Fprintf(&b, "   %s\n", opts.Consequence)
	}

	if len(opts.Suggestions) > 0 {
		b.WriteString("\n")
		yellow := color.New(color.FgYellow)
		if opts.NoColor {
			yellow.DisableColor()
		}
		yellow.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}

	if len(opts.Fixes) > 0 {
		b.WriteString("\n")
		green := color.New(color.FgGreen)
		if opts.NoColor {
			green.DisableColor()
		}
		for i, fix := range opts.Fixes {
			green.Fprintf(&b, "   [%d] ", opts.FirstFix+i)
			fmt.Fprintln(&b, fix)
		}
	}

	if len(opts.HelpCommands) > 0 {
		b.WriteString("\n")
		cyan := color.New(color.FgCyan)
		if opts.NoColor {
			cyan.DisableColor()
		}
		for _, cmd := range opts.HelpCommands {
			cyan.Fprintf(&b, "   → %s\n", cmd)
		}
	}

	return b.String()
}

func levelStyle(level ErrorLevel) (header, body *color.Color, symbol string) {
	switch level {
	case ErrorLevelWarning:
		return color.New(color.FgYellow, color.Bold), color.New(color.FgYellow), "⚠️"
	case ErrorLevelInfo:
		return color.New(color.FgCyan, color.Bold), color.New(color.FgCyan), "ℹ️"
	default:
		return color.New(color.FgRed, color.Bold), color.New(color.FgRed), "❌"
	}
}

// WriteError writes a formatted error message to the writer
func WriteError(w io.Writer, opts ErrorOptions) {
	fmt.Fprint(w, FormatError(opts))
}

// FormatSuccess creates a success message
func FormatSuccess(message string, noColor bool) string {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	return green.Sprintf("✓ %s", message)
}

// WriteSuccess writes a success message to the writer
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatSuccess(message, noColor))
}

// PipelineError creates a standardized error for a pipeline file that
// could not be loaded or built
func PipelineError(path string, err error, noColor bool) string {
	opts := ErrorOptions{
		Level:   ErrorLevelError,
		Context: "PIPELINE INVALID",
		Problem: fmt.Sprintf("Cannot load pipeline '%s'.", path),
		Details: strings.Split(err.Error(), "\n"),
		HelpCommands: []string{
			"See operator types: pipecheck operators",
			"Get help: pipecheck validate --help",
		},
		NoColor: noColor,
	}
	return FormatError(opts)
}

// UnknownOperatorError creates a standardized unknown operator type error
func UnknownOperatorError(kind string, suggestions []string, noColor bool) string {
	opts := ErrorOptions{
		Level:       ErrorLevelError,
		Context:     "OPERATOR NOT FOUND",
		Problem:     fmt.Sprintf("Cannot find operator type '%s'.", kind),
		Suggestions: suggestions,
		HelpCommands: []string{
			"See all operator types: pipecheck operators",
		},
		NoColor: noColor,
	}
	return FormatError(opts)
}

// ConfigError creates a standardized configuration error
func ConfigError(message string, noColor bool) string {
	opts := ErrorOptions{
		Level:   ErrorLevelError,
		Context: "CONFIGURATION ERROR",
		Problem: message,
		HelpCommands: []string{
			"View config: cat pipecheck.yml",
			"Get help: pipecheck --help",
		},
		NoColor: noColor,
	}
	return FormatError(opts)
}

// Warning creates a standardized warning message
func Warning(message string, noColor bool) string {
	return FormatError(ErrorOptions{Level: ErrorLevelWarning, Problem: message, NoColor: noColor})
}

// Info creates a standardized info message
func Info(message string, noColor bool) string {
	return FormatError(ErrorOptions{Level: ErrorLevelInfo, Problem: message, NoColor: noColor})
}
