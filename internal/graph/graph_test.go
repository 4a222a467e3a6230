package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/conduit-lang/pipecheck/internal/metadata"
	"github.com/conduit-lang/pipecheck/internal/port"
)

func labelSchema() *metadata.ExampleSet {
	return metadata.MustExampleSet(
		metadata.NewAttribute("a", metadata.KindNumeric),
		metadata.NewSpecialAttribute("b", metadata.KindNominal, metadata.RoleLabel),
	)
}

func requiresLabel() *metadata.ExampleSet {
	return metadata.MustExampleSet(metadata.NewSpecialAttribute("", metadata.KindNominal, metadata.RoleLabel))
}

// source produces a fixed descriptor on "out".
func source(name string, md metadata.Descriptor) *Operator {
	op := NewOperator(name, "source")
	out := op.Outputs().Create("out")
	op.Transformer().AddRule(port.NewGenerateNewRule(out, md))
	return op
}

// passThrough copies "in" to "out".
func passThrough(name string, required metadata.Descriptor) *Operator {
	op := NewOperator(name, "pass")
	in := op.Inputs().Create("in")
	if required != nil {
		in.AddPrecondition(port.Require(required))
	}
	out := op.Outputs().Create("out")
	op.Transformer().AddRule(port.NewPassThroughRule(in, out))
	return op
}

// merger unions "left" and "right" into "out".
func merger(name string) *Operator {
	op := NewOperator(name, "merge")
	left, right := op.Inputs().Create("left"), op.Inputs().Create("right")
	out := op.Outputs().Create("out")
	op.Transformer().AddRule(port.NewManyToOnePassThroughRule(out, left, right))
	return op
}

func in(op *Operator, name string) *port.Port  { return op.Inputs().Port(name) }
func out(op *Operator, name string) *port.Port { return op.Outputs().Port(name) }

func build(t *testing.T, ops ...*Operator) *Graph {
	t.Helper()
	g := New(WithLogger(zap.NewNop()))
	for _, op := range ops {
		require.NoError(t, g.AddOperator(op))
	}
	return g
}

func TestMissingMandatoryInput(t *testing.T) {
	x := passThrough("X", requiresLabel())
	g := build(t, x)

	report := g.Propagate(context.Background())

	errs := report.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, port.KindMissingMandatoryInput, errs[0].Kind)
	assert.Equal(t, "X.in", errs[0].Location)
	assert.True(t, report.Complete)
	assert.True(t, report.HasErrors())
}

func TestUnconnectedInputPreviewsExpectedShape(t *testing.T) {
	x := passThrough("X", requiresLabel())
	g := build(t, x)

	g.Propagate(context.Background())

	assert.True(t, in(x, "in").IsAssumed())
	assert.True(t, out(x, "out").MetaData().Equals(requiresLabel()))
}

func TestPassThroughDeliversSchema(t *testing.T) {
	x := source("X", labelSchema())
	y := passThrough("Y", requiresLabel())
	g := build(t, x, y)
	require.NoError(t, g.Connect(out(x, "out"), in(y, "in")))

	report := g.Propagate(context.Background())

	assert.Empty(t, report.Errors())
	assert.True(t, in(y, "in").MetaData().Equals(labelSchema()))
	assert.True(t, out(y, "out").MetaData().Equals(labelSchema()))
	assert.Equal(t, StateDone, y.State())
}

func TestManyToOneMerge(t *testing.T) {
	a := source("A", metadata.MustExampleSet(metadata.NewAttribute("a", metadata.KindNumeric)))
	b := source("B", metadata.MustExampleSet(metadata.NewAttribute("b", metadata.KindNumeric)))
	z := merger("Z")
	g := build(t, a, b, z)
	require.NoError(t, g.Connect(out(a, "out"), in(z, "left")))
	require.NoError(t, g.Connect(out(b, "out"), in(z, "right")))

	report := g.Propagate(context.Background())

	assert.Empty(t, report.Errors())
	assert.Equal(t, "example_set{a:numeric, b:numeric}", out(z, "out").MetaData().String())
}

func TestManyToOneDuplicateLabel(t *testing.T) {
	a := source("A", metadata.MustExampleSet(metadata.NewSpecialAttribute("x", metadata.KindNominal, metadata.RoleLabel)))
	b := source("B", metadata.MustExampleSet(metadata.NewSpecialAttribute("y", metadata.KindNominal, metadata.RoleLabel)))
	z := merger("Z")
	g := build(t, a, b, z)
	require.NoError(t, g.Connect(out(a, "out"), in(z, "left")))
	require.NoError(t, g.Connect(out(b, "out"), in(z, "right")))

	report := g.Propagate(context.Background())

	require.Len(t, report.Errors(), 1)
	e := report.Errors()[0]
	assert.Equal(t, port.KindIncompatibleMetaData, e.Kind)
	assert.Equal(t, "Z.out", e.Location)
	assert.Len(t, report.For("Z"), 1)
}

func TestSelfCycleTerminates(t *testing.T) {
	x := passThrough("X", nil)
	g := build(t, x)

	assert.ErrorIs(t, g.Connect(out(x, "out"), in(x, "in")), ErrSelfConnection)
	require.NoError(t, g.ConnectUnchecked(out(x, "out"), in(x, "in")))

	report := g.Propagate(context.Background())

	assert.Equal(t, 1, report.Count(port.KindStructuralCycle))
	assert.Len(t, report.Errors(), 1)
	assert.False(t, report.Complete)
	assert.Equal(t, StateError, x.State(), "the forced operator ran with an unknown input")
	assert.True(t, metadata.IsUnknown(out(x, "out").MetaData()))

	err := g.CheckStructure()
	assert.ErrorIs(t, err, ErrSelfConnection)
	assert.ErrorIs(t, err, ErrCycle)
}

func TestLongerCycleReportedOnce(t *testing.T) {
	a := source("A", labelSchema())
	m := merger("M")
	p := passThrough("P", nil)
	after := passThrough("After", nil)
	g := build(t, a, m, p, after)
	require.NoError(t, g.Connect(out(a, "out"), in(m, "left")))
	require.NoError(t, g.Connect(out(m, "out"), in(p, "in")))
	require.NoError(t, g.Connect(out(p, "out"), in(m, "right")))
	require.NoError(t, g.Connect(out(p, "out"), in(after, "in")))

	report := g.Propagate(context.Background())

	assert.Equal(t, 1, report.Count(port.KindStructuralCycle))
	assert.Zero(t, report.Count(port.KindUnresolvedUpstream))
	assert.Equal(t, StateError, m.State())
	for _, op := range []*Operator{a, p, after} {
		assert.Equal(t, StateDone, op.State(), op.Name())
	}
	assert.Regexp(t, `unknown inputs: M$`, report.Diagnostics[0].Message)
	// the known half of the merge survives, marked as partial
	es, ok := out(after, "out").MetaData().(*metadata.ExampleSet)
	require.True(t, ok)
	assert.NotNil(t, es.Attribute("a"))
	assert.Equal(t, metadata.RelationSuperset, es.Relation)
}

func TestOperatorsDownstreamOfCycleWait(t *testing.T) {
	// C is declared first but only consumes the cycle's output
	c := passThrough("C", requiresLabel())
	loop := merger("Loop")
	src := source("Source", labelSchema())
	g := build(t, c, loop, src)
	require.NoError(t, g.Connect(out(src, "out"), in(loop, "left")))
	require.NoError(t, g.ConnectUnchecked(out(loop, "out"), in(loop, "right")))
	require.NoError(t, g.Connect(out(loop, "out"), in(c, "in")))

	report := g.Propagate(context.Background())

	require.Equal(t, 1, report.Count(port.KindStructuralCycle))
	assert.Regexp(t, `unknown inputs: Loop$`, report.Diagnostics[0].Message)
	assert.Empty(t, report.For("C"))
	assert.False(t, c.Unresolved())
	assert.Equal(t, StateDone, c.State())
	assert.Equal(t, StateError, loop.State())

	es, ok := in(c, "in").MetaData().(*metadata.ExampleSet)
	require.True(t, ok, "C receives the metadata the cycle produced")
	assert.NotNil(t, es.Special(metadata.RoleLabel))
}

func TestCycleFeedingMissingLabelIsChecked(t *testing.T) {
	c := passThrough("C", requiresLabel())
	loop := merger("Loop")
	src := source("Source", metadata.MustExampleSet(metadata.NewAttribute("a", metadata.KindNumeric)))
	g := build(t, c, loop, src)
	require.NoError(t, g.Connect(out(src, "out"), in(loop, "left")))
	require.NoError(t, g.ConnectUnchecked(out(loop, "out"), in(loop, "right")))
	require.NoError(t, g.Connect(out(loop, "out"), in(c, "in")))

	report := g.Propagate(context.Background())

	// the unknown half of the loop may still carry a label
	assert.Empty(t, report.For("C"))
	assert.Equal(t, metadata.RelationSuperset, in(c, "in").MetaData().(*metadata.ExampleSet).Relation)
}

func TestPropagationIsIdempotent(t *testing.T) {
	a := source("A", metadata.MustExampleSet(metadata.NewSpecialAttribute("x", metadata.KindNominal, metadata.RoleLabel)))
	b := source("B", metadata.MustExampleSet(metadata.NewSpecialAttribute("y", metadata.KindNominal, metadata.RoleLabel)))
	z := merger("Z")
	y := passThrough("Y", requiresLabel())
	free := passThrough("Free", requiresLabel())
	g := build(t, a, b, z, y, free)
	require.NoError(t, g.Connect(out(a, "out"), in(z, "left")))
	require.NoError(t, g.Connect(out(b, "out"), in(z, "right")))
	require.NoError(t, g.Connect(out(z, "out"), in(y, "in")))

	first := g.Propagate(context.Background())
	second := g.Propagate(context.Background())

	assert.NotEqual(t, first.PassID, second.PassID)
	assert.Equal(t, first.Format(), second.Format())
	assert.Len(t, second.Errors(), len(first.Errors()))
	assert.True(t, out(y, "out").MetaData().Equals(out(z, "out").MetaData()))
}

func TestDegradationIsMonotone(t *testing.T) {
	// a Real attribute requirement fed an Integer attribute passes at
	// standard and legacy but not at strict
	required := metadata.MustExampleSet(metadata.NewAttribute("v", metadata.KindReal))
	offered := metadata.MustExampleSet(metadata.NewAttribute("v", metadata.KindInteger))

	counts := map[metadata.CompatibilityLevel]int{}
	for _, level := range []metadata.CompatibilityLevel{metadata.LevelLegacy, metadata.LevelStandard, metadata.LevelStrict} {
		x := source("X", offered)
		y := passThrough("Y", required)
		g := New(WithLevel(level))
		require.NoError(t, g.AddOperator(x))
		require.NoError(t, g.AddOperator(y))
		require.NoError(t, g.Connect(out(x, "out"), in(y, "in")))

		report := g.Propagate(context.Background())
		counts[level] = len(report.Errors())
		assert.Equal(t, level.Version(), report.Level)
	}

	assert.LessOrEqual(t, counts[metadata.LevelLegacy], counts[metadata.LevelStandard])
	assert.LessOrEqual(t, counts[metadata.LevelStandard], counts[metadata.LevelStrict])
	assert.Equal(t, 1, counts[metadata.LevelStrict])
}

func TestUnknownMergeInputNeverAddsErrors(t *testing.T) {
	many := metadata.MustExampleSet(metadata.NewAttribute("x", metadata.KindNumeric))
	many.Count = metadata.ExactCount(10)
	none := metadata.MustExampleSet(metadata.NewSpecialAttribute("y", metadata.KindNominal, metadata.RoleLabel))
	none.Count = metadata.ExactCount(0)
	needsExamples := requiresLabel()
	needsExamples.Count = metadata.AtLeast(1)

	run := func(left metadata.Descriptor) int {
		a := source("A", left)
		b := source("B", none)
		z := merger("Z")
		y := passThrough("Y", needsExamples)
		g := build(t, a, b, z, y)
		require.NoError(t, g.Connect(out(a, "out"), in(z, "left")))
		require.NoError(t, g.Connect(out(b, "out"), in(z, "right")))
		require.NoError(t, g.Connect(out(z, "out"), in(y, "in")))
		return len(g.Propagate(context.Background()).For("Y"))
	}

	known := run(many)
	degraded := run(metadata.Unknown)

	assert.Zero(t, known)
	assert.LessOrEqual(t, degraded, known)
}

func TestUnresolvedUpstreamWarning(t *testing.T) {
	silent := NewOperator("Silent", "sink")
	silent.Outputs().Create("out")
	y := passThrough("Y", requiresLabel())
	g := build(t, silent, y)
	require.NoError(t, g.Connect(out(silent, "out"), in(y, "in")))

	report := g.Propagate(context.Background())

	require.Len(t, report.Errors(), 1)
	assert.Equal(t, port.KindUnresolvedUpstream, report.Errors()[0].Kind)
	assert.False(t, report.HasErrors(), "unknown input is a warning, not an error")
	assert.True(t, y.Unresolved())
	assert.Equal(t, StateError, y.State())
	assert.True(t, metadata.IsUnknown(out(y, "out").MetaData()))
}

func TestPartialPropagation(t *testing.T) {
	x := source("X", labelSchema())
	y := passThrough("Y", nil)
	other := source("Other", metadata.NewGeneric(metadata.ObjectModel))
	g := build(t, x, y, other)
	require.NoError(t, g.Connect(out(x, "out"), in(y, "in")))
	g.Propagate(context.Background())
	assert.False(t, g.Stale())

	x.Transformer().AddRule(port.NewGenerateNewRule(out(x, "out"), metadata.NewGeneric(metadata.ObjectModel)))
	g.Propagate(context.Background(), x)

	assert.Equal(t, "model", out(y, "out").MetaData().String())
	assert.Equal(t, "model", out(other, "out").MetaData().String(), "untouched operators keep their metadata")
}

func TestCancelledPassIsIncomplete(t *testing.T) {
	g := build(t, source("X", labelSchema()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := g.Propagate(ctx)

	assert.True(t, report.Abandoned)
	assert.False(t, report.Complete)
	assert.True(t, g.Stale())
}

func TestConnectValidation(t *testing.T) {
	x := source("X", labelSchema())
	y := passThrough("Y", nil)
	z := passThrough("Z", nil)
	stranger := passThrough("Stranger", nil)
	g := build(t, x, y, z)

	assert.ErrorIs(t, g.Connect(in(y, "in"), out(x, "out")), ErrDirection)
	assert.ErrorIs(t, g.Connect(out(x, "out"), in(stranger, "in")), ErrForeignPort)
	require.NoError(t, g.Connect(out(x, "out"), in(y, "in")))
	assert.ErrorIs(t, g.Connect(out(z, "out"), in(y, "in")), ErrAlreadyConnected)
	require.NoError(t, g.Connect(out(x, "out"), in(z, "in")), "outputs fan out")

	assert.True(t, in(y, "in").IsConnected())
	assert.Same(t, out(x, "out"), g.Source(in(y, "in")))
	assert.Len(t, g.Targets(out(x, "out")), 2)
	assert.Len(t, g.Connections(), 2)
	assert.NoError(t, g.CheckStructure())

	assert.ErrorIs(t, g.AddOperator(passThrough("Y", nil)), ErrDuplicateOperator)
}

func TestDisconnectInvalidatesDownstream(t *testing.T) {
	x := source("X", labelSchema())
	y := passThrough("Y", nil)
	z := passThrough("Z", nil)
	g := build(t, x, y, z)
	require.NoError(t, g.Connect(out(x, "out"), in(y, "in")))
	require.NoError(t, g.Connect(out(y, "out"), in(z, "in")))
	g.Propagate(context.Background())
	require.NotNil(t, out(z, "out").MetaData())

	require.NoError(t, g.Disconnect(in(y, "in")))

	assert.True(t, g.Stale())
	assert.Nil(t, out(z, "out").MetaData())
	assert.NotNil(t, out(x, "out").MetaData(), "upstream metadata is kept")
	assert.ErrorIs(t, g.Disconnect(in(y, "in")), ErrNotConnected)
}

func TestGroupPortsFollowConnections(t *testing.T) {
	a := source("A", labelSchema())
	b := source("B", metadata.MustExampleSet(metadata.NewAttribute("c", metadata.KindReal)))
	u := NewOperator("U", "union")
	group := u.Inputs().CreateGroup("in", port.FirstMandatory())
	u.Transformer().AddRule(group.PassThroughRule(u.Outputs().Create("out")))
	g := build(t, a, b, u)

	require.NoError(t, g.Connect(out(a, "out"), group.Ports()[0]))
	require.NoError(t, g.Connect(out(b, "out"), group.Ports()[1]))
	assert.Equal(t, 3, group.Len())

	report := g.Propagate(context.Background())
	assert.Empty(t, report.Errors())
	assert.Equal(t, "example_set{a:numeric, b:nominal(label), c:real}", out(u, "out").MetaData().String())

	require.NoError(t, g.Disconnect(group.Ports()[1]))
	assert.Equal(t, 2, group.Len())
}

func TestRemoveOperator(t *testing.T) {
	x := source("X", labelSchema())
	y := passThrough("Y", nil)
	g := build(t, x, y)
	require.NoError(t, g.Connect(out(x, "out"), in(y, "in")))

	require.NoError(t, g.RemoveOperator("X"))

	assert.Nil(t, g.Operator("X"))
	assert.False(t, in(y, "in").IsConnected())
	assert.Len(t, g.Operators(), 1)
	assert.True(t, errors.Is(g.RemoveOperator("X"), ErrUnknownOperator))
}

func TestSetParameterInvalidates(t *testing.T) {
	x := source("X", labelSchema())
	g := build(t, x)
	g.Propagate(context.Background())

	x.SetParameter("k", "v")
	assert.True(t, g.Stale())
	assert.Nil(t, out(x, "out").MetaData())
	assert.Equal(t, []string{"k"}, x.ParameterKeys())
}

func TestReportJSON(t *testing.T) {
	g := build(t, passThrough("X", requiresLabel()))
	js, err := g.Propagate(context.Background()).ToJSON()
	require.NoError(t, err)

	assert.Contains(t, js, `"compatibility_level": "v2"`)
	assert.Contains(t, js, `"operator": "X"`)
	assert.Contains(t, js, `"code": "MD100"`)
}
