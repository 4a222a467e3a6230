package ui

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/conduit-lang/pipecheck/internal/graph"
	"github.com/conduit-lang/pipecheck/internal/operators"
)

func missingLabelReport(t *testing.T) *graph.Report {
	t.Helper()
	reg := operators.NewBuiltinRegistry()
	g := graph.New()

	data, err := reg.Create(operators.KindRetrieve, "Retrieve", map[string]string{"attributes": "outlook:nominal,play:binominal"})
	if err != nil {
		t.Fatal(err)
	}
	tree, err := reg.Create(operators.KindDecisionTree, "Tree", nil)
	if err != nil {
		t.Fatal(err)
	}
	unused, err := reg.Create(operators.KindApplyModel, "Apply", nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, op := range []*graph.Operator{data, tree, unused} {
		if err := g.AddOperator(op); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.Connect(data.Outputs().Port(operators.PortOutput), tree.Inputs().Port(operators.PortTrainingSet)); err != nil {
		t.Fatal(err)
	}
	return g.Propagate(context.Background())
}

func TestWriteReport(t *testing.T) {
	report := missingLabelReport(t)

	var buf bytes.Buffer
	WriteReport(&buf, report, true)
	output := buf.String()

	expected := []string{
		"❌ Tree.training set:",
		"[1] Declare attribute 'outlook' as label",
		"[2] Declare attribute 'play' as label",
		"❌ Apply.model:",
		"errors",
	}
	for _, exp := range expected {
		if !strings.Contains(output, exp) {
			t.Errorf("WriteReport() missing %q in:\n%s", exp, output)
		}
	}

	if strings.Index(output, "Tree.training set") > strings.Index(output, "Apply.model") {
		t.Errorf("entries are not in report order:\n%s", output)
	}
	if n := len(report.QuickFixes()); n != 2 {
		t.Errorf("expected 2 numbered fixes, got %d", n)
	}
}

func TestSummary(t *testing.T) {
	if s := Summary(&graph.Report{Level: "v2", Complete: true}, true); s != "✓ Pipeline is valid (v2)." {
		t.Errorf("Summary() for clean report = %q", s)
	}

	if s := Summary(&graph.Report{Level: "v2", Abandoned: true}, true); !strings.Contains(s, "cancelled") {
		t.Errorf("Summary() for abandoned report = %q", s)
	}

	s := Summary(missingLabelReport(t), true)
	if !strings.Contains(s, "3 errors, 0 warnings (v2).") {
		t.Errorf("Summary() = %q", s)
	}
}

func TestPlural(t *testing.T) {
	if got := plural(1, "error"); got != "1 error" {
		t.Errorf("plural(1) = %q", got)
	}
	if got := plural(3, "warning"); got != "3 warnings" {
		t.Errorf("plural(3) = %q", got)
	}
}
