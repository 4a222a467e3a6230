package ui

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

// Table prints rows in aligned columns under a bold header row. Cells for
// which the faint predicate holds are printed dimmed, which is how missing
// or previewed metadata stands out from propagated metadata.
type Table struct {
	headers []string
	rows    [][]string
	faint   func(cell string) bool
}

// NewTable creates a table with the given column headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

// Faint dims every cell for which match returns true.
func (t *Table) Faint(match func(cell string) bool) *Table {
	t.faint = match
	return t
}

// AddRow appends a row. Missing trailing cells are left empty.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Render writes the table. A table without headers prints nothing.
func (t *Table) Render(w io.Writer, noColor bool) {
	if len(t.headers) == 0 {
		return
	}
	head, rule, faint := style(color.Bold, color.FgCyan), style(color.FgHiBlack), style(color.Faint)
	if noColor {
		for _, c := range []*color.Color{head, rule, faint} {
			c.DisableColor()
		}
	}

	widths := columnWidths(t.headers, t.rows)
	rules := make([]string, len(widths))
	for i, n := range widths {
		rules[i] = strings.Repeat("─", n)
	}

	t.line(w, widths, t.headers, func(string) *color.Color { return head })
	t.line(w, widths, rules, func(string) *color.Color { return rule })
	for _, row := range t.rows {
		t.line(w, widths, row, func(cell string) *color.Color {
			if t.faint != nil && t.faint(cell) {
				return faint
			}
			return nil
		})
	}
}

// line pads every cell but the last, so lines carry no trailing blanks.
func (t *Table) line(w io.Writer, widths []int, cells []string, paint func(string) *color.Color) {
	n := min(len(cells), len(widths))
	out := make([]string, n)
	for i := 0; i < n; i++ {
		cell := cells[i]
		if i < n-1 {
			cell = padRight(cell, widths[i])
		}
		if c := paint(cells[i]); c != nil {
			cell = c.Sprint(cell)
		}
		out[i] = cell
	}
	fmt.Fprintln(w, strings.Join(out, "  "))
}

func columnWidths(headers []string, rows [][]string) []int {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], utf8.RuneCountInString(row[i]))
		}
	}
	return widths
}

func padRight(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

func style(attrs ...color.Attribute) *color.Color {
	return color.New(attrs...)
}

// Field is one "Key: value" line of WriteFields.
type Field struct {
	Key   string
	Value string
}

// WriteFields prints fields with their values aligned. Empty values are
// skipped.
func WriteFields(w io.Writer, fields []Field, noColor bool) {
	width := 0
	for _, f := range fields {
		if f.Value != "" {
			width = max(width, utf8.RuneCountInString(f.Key)+1)
		}
	}
	key := style(color.FgCyan)
	if noColor {
		key.DisableColor()
	}
	for _, f := range fields {
		if f.Value == "" {
			continue
		}
		key.Fprint(w, padRight(f.Key+":", width))
		fmt.Fprintf(w, " %s\n", f.Value)
	}
}

// WriteSection prints a bold title followed by indented lines and a blank
// line. Sections without lines are omitted.
func WriteSection(w io.Writer, title string, lines []string, noColor bool) {
	if len(lines) == 0 {
		return
	}
	bold := style(color.Bold, color.FgCyan)
	if noColor {
		bold.DisableColor()
	}
	bold.Fprintln(w, title)
	for _, line := range lines {
		fmt.Fprintf(w, "  %s\n", line)
	}
	fmt.Fprintln(w)
}

// Header prints a bold title underlined to its own width.
func Header(w io.Writer, title string, noColor bool) {
	bold, rule := style(color.Bold, color.FgCyan), style(color.FgHiBlack)
	if noColor {
		bold.DisableColor()
		rule.DisableColor()
	}
	bold.Fprintln(w, title)
	rule.Fprintln(w, strings.Repeat("─", utf8.RuneCountInString(title)))
}
