package ui

import (
	"bytes"
	"strings"
	"testing"
)

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable("Type", "Category", "Description")

	table.AddRow("retrieve", "data", "Reads an example set")
	table.AddRow("decision_tree", "modeling", "Learns a tree")

	table.Render(&buf, true)

	want := "" +
		"Type           Category  Description\n" +
		"─────────────  ────────  ────────────────────\n" +
		"retrieve       data      Reads an example set\n" +
		"decision_tree  modeling  Learns a tree\n"
	if buf.String() != want {
		t.Errorf("Table output mismatch\nGot:\n%s\nWant:\n%s", buf.String(), want)
	}
}

func TestTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	NewTable().Render(&buf, true)

	if buf.String() != "" {
		t.Errorf("Expected empty output for table with no headers, got: %q", buf.String())
	}
}

func TestTableShortRows(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable("Port", "Metadata")

	table.AddRow("output")
	table.Render(&buf, true)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 || lines[2] != "output" {
		t.Errorf("unexpected rendering of short row: %q", lines)
	}
}

func TestTableFaintCellsKeepAlignment(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable("Port", "Metadata").Faint(func(cell string) bool { return cell == "-" })

	table.AddRow("in", "-")
	table.AddRow("output", "example_set{a:real}")
	table.Render(&buf, true)

	want := "" +
		"Port    Metadata\n" +
		"──────  ───────────────────\n" +
		"in      -\n" +
		"output  example_set{a:real}\n"
	if buf.String() != want {
		t.Errorf("Table output mismatch\nGot:\n%s\nWant:\n%s", buf.String(), want)
	}
}

func TestWriteFields(t *testing.T) {
	var buf bytes.Buffer
	WriteFields(&buf, []Field{
		{"Type", "decision_tree"},
		{"Category", "modeling"},
		{"Description", ""},
	}, true)

	want := "Type:     decision_tree\nCategory: modeling\n"
	if buf.String() != want {
		t.Errorf("WriteFields output = %q; want %q", buf.String(), want)
	}
}

func TestWriteFieldsEmpty(t *testing.T) {
	var buf bytes.Buffer
	WriteFields(&buf, nil, true)

	if buf.String() != "" {
		t.Errorf("Expected empty output for no fields, got: %q", buf.String())
	}
}

func TestWriteSection(t *testing.T) {
	var buf bytes.Buffer
	WriteSection(&buf, "Parameters", []string{
		"criterion (default: gain_ratio)",
		"maximal_depth (default: 10)",
	}, true)

	want := "Parameters\n  criterion (default: gain_ratio)\n  maximal_depth (default: 10)\n\n"
	if buf.String() != want {
		t.Errorf("WriteSection output = %q; want %q", buf.String(), want)
	}

	buf.Reset()
	WriteSection(&buf, "Parameters", nil, true)
	if buf.String() != "" {
		t.Errorf("Expected empty sections to be omitted, got: %q", buf.String())
	}
}

func TestHeader(t *testing.T) {
	var buf bytes.Buffer
	Header(&buf, "Tree", true)

	if buf.String() != "Tree\n────\n" {
		t.Errorf("Header output = %q", buf.String())
	}
}

func TestPadRight(t *testing.T) {
	tests := []struct {
		input    string
		width    int
		expected string
	}{
		{"test", 10, "test      "},
		{"test", 4, "test"},
		{"test", 2, "test"},
		{"", 5, "     "},
		{"größe", 6, "größe "},
	}

	for _, tt := range tests {
		result := padRight(tt.input, tt.width)
		if result != tt.expected {
			t.Errorf("padRight(%q, %d) = %q; want %q", tt.input, tt.width, result, tt.expected)
		}
	}
}
