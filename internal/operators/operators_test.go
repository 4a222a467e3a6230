package operators

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/pipecheck/internal/graph"
	"github.com/conduit-lang/pipecheck/internal/metadata"
	"github.com/conduit-lang/pipecheck/internal/port"
)

type fixture struct {
	t *testing.T
	g *graph.Graph
	r *Registry
}

func newFixture(t *testing.T) *fixture {
	return &fixture{t: t, g: graph.New(), r: NewBuiltinRegistry()}
}

func (f *fixture) add(kind, name string, params map[string]string) *graph.Operator {
	f.t.Helper()
	op, err := f.r.Create(kind, name, params)
	require.NoError(f.t, err)
	require.NoError(f.t, f.g.AddOperator(op))
	return op
}

func (f *fixture) connect(from *graph.Operator, out string, to *graph.Operator, in string) {
	f.t.Helper()
	src := from.Outputs().Port(out)
	dst := to.Inputs().Port(in)
	require.NotNil(f.t, src, out)
	require.NotNil(f.t, dst, in)
	require.NoError(f.t, f.g.Connect(src, dst))
}

func (f *fixture) propagate() *graph.Report {
	return f.g.Propagate(context.Background())
}

func TestRegistry(t *testing.T) {
	r := NewBuiltinRegistry()

	assert.True(t, r.Exists(KindRetrieve))
	assert.Len(t, r.List(), 10)
	assert.Error(t, r.Register(retrieveDefinition()), "duplicate names are rejected")
	assert.Error(t, r.Register(&Definition{Name: "broken"}))

	_, err := r.Get("retreive")
	assert.ErrorIs(t, err, ErrUnknownKind)
	assert.Contains(t, err.Error(), `did you mean "retrieve"`)

	_, err = r.Create(KindRetrieve, "R", map[string]string{"colour": "blue"})
	assert.ErrorIs(t, err, ErrUnknownParameter)

	op, err := r.Create(KindDecisionTree, "Tree", nil)
	require.NoError(t, err)
	assert.Equal(t, "gain_ratio", op.Parameter("criterion"))
	assert.Equal(t, KindDecisionTree, op.Kind())
}

func TestListIsSortedByCategory(t *testing.T) {
	defs := NewBuiltinRegistry().List()
	for i := 1; i < len(defs); i++ {
		prev, cur := defs[i-1], defs[i]
		assert.True(t, prev.Category < cur.Category || (prev.Category == cur.Category && prev.Name < cur.Name))
	}
}

func TestRetrieveDeclaresSchema(t *testing.T) {
	f := newFixture(t)
	r := f.add(KindRetrieve, "Retrieve", map[string]string{
		"attributes": "a:numeric, b:nominal:label",
		"examples":   "10",
	})

	report := f.propagate()

	assert.Empty(t, report.Errors())
	assert.Equal(t, "example_set{a:numeric, b:nominal(label)} n=10", r.Outputs().Port(PortOutput).MetaData().String())
}

func TestRetrieveInvalidParameters(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]string
	}{
		{"bad kind", map[string]string{"attributes": "a:colour"}},
		{"duplicate", map[string]string{"attributes": "a:numeric,a:nominal"}},
		{"bad count", map[string]string{"attributes": "a:numeric", "examples": "many"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.add(KindRetrieve, "Retrieve", tt.params)

			report := f.propagate()

			require.Len(t, report.Errors(), 1)
			assert.Equal(t, port.KindInvalidParameter, report.Errors()[0].Kind)
			assert.Equal(t, port.ErrInvalidParameter, report.Errors()[0].Code)
		})
	}
}

func TestDecisionTreeMissingLabelFix(t *testing.T) {
	f := newFixture(t)
	data := f.add(KindRetrieve, "Retrieve", map[string]string{"attributes": "outlook:nominal,temperature:real,play:binominal"})
	tree := f.add(KindDecisionTree, "Tree", nil)
	f.connect(data, PortOutput, tree, PortTrainingSet)

	report := f.propagate()

	errs := report.For("Tree")
	require.Len(t, errs, 1)
	assert.Equal(t, port.KindIncompatibleMetaData, errs[0].Kind)
	fixes := errs[0].QuickFixes()
	require.Len(t, fixes, 2, "only nominal attributes qualify")
	assert.Equal(t, "Declare attribute 'outlook' as label", fixes[0].Description())
	assert.Equal(t, "Declare attribute 'play' as label", fixes[1].Description())
	assert.True(t, fixes[1].Significant())
	assert.Len(t, report.QuickFixes(), 2)

	require.NoError(t, fixes[1].Apply())
	report = f.propagate()

	assert.Empty(t, report.Errors())
	setRole := f.g.Operator("Set Role")
	require.NotNil(t, setRole)
	assert.Equal(t, "play", setRole.Parameter("attribute"))
	assert.Same(t, setRole.Outputs().Port(PortExampleSetOutput), f.g.Source(tree.Inputs().Port(PortTrainingSet)))
	es := tree.Outputs().Port(PortExampleSet).MetaData().(*metadata.ExampleSet)
	assert.Equal(t, "play", es.Special(metadata.RoleLabel).Name)
}

func TestSetRoleSuggestsAttribute(t *testing.T) {
	f := newFixture(t)
	data := f.add(KindRetrieve, "Retrieve", map[string]string{"attributes": "outlook:nominal,humidity:real"})
	setRole := f.add(KindSetRole, "Set Role", map[string]string{"attribute": "outlok", "role": "label"})
	f.connect(data, PortOutput, setRole, PortExampleSetInput)

	report := f.propagate()
	require.Len(t, report.Errors(), 1)
	fixes := report.Errors()[0].QuickFixes()
	require.NotEmpty(t, fixes)
	assert.Equal(t, "Use attribute 'outlook' instead of 'outlok'", fixes[0].Description())

	require.NoError(t, fixes[0].Apply())
	report = f.propagate()
	assert.Empty(t, report.Errors())
	assert.Equal(t, "example_set{outlook:nominal(label), humidity:real}",
		setRole.Outputs().Port(PortExampleSetOutput).MetaData().String())
	assert.Equal(t, "example_set{outlook:nominal, humidity:real}",
		setRole.Outputs().Port(PortOriginal).MetaData().String())
}

func TestUnconnectedInputRaisesOnlyItsOwnError(t *testing.T) {
	f := newFixture(t)
	setRole := f.add(KindSetRole, "Set Role", map[string]string{"attribute": "play", "role": "label"})
	tree := f.add(KindDecisionTree, "Tree", nil)
	apply := f.add(KindApplyModel, "Apply", nil)
	f.connect(setRole, PortExampleSetOutput, tree, PortTrainingSet)
	f.connect(tree, PortExampleSet, apply, PortUnlabelledData)
	f.connect(tree, PortModel, apply, PortModel)

	report := f.propagate()

	errs := report.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, port.KindMissingMandatoryInput, errs[0].Kind)
	assert.Equal(t, "Set Role.example set input", errs[0].Location)
	assert.True(t, setRole.Inputs().Port(PortExampleSetInput).IsAssumed())
	assert.Equal(t, "example_set", tree.Inputs().Port(PortTrainingSet).MetaData().String())
}

func TestSetRoleRequiresAttribute(t *testing.T) {
	f := newFixture(t)
	data := f.add(KindRetrieve, "Retrieve", map[string]string{"attributes": "a:numeric"})
	setRole := f.add(KindSetRole, "Set Role", nil)
	f.connect(data, PortOutput, setRole, PortExampleSetInput)

	report := f.propagate()

	require.Len(t, report.Errors(), 1)
	assert.Equal(t, port.KindInvalidParameter, report.Errors()[0].Kind)
}

func TestSelectAttributes(t *testing.T) {
	f := newFixture(t)
	data := f.add(KindRetrieve, "Retrieve", map[string]string{"attributes": "a:numeric,b:nominal,c:real,id:integer:id"})
	sel := f.add(KindSelectAttributes, "Select", map[string]string{"attributes": "a, c"})
	f.connect(data, PortOutput, sel, PortExampleSetInput)

	report := f.propagate()

	assert.Empty(t, report.Errors())
	assert.Equal(t, "example_set{a:numeric, c:real, id:integer(id)}",
		sel.Outputs().Port(PortExampleSetOutput).MetaData().String())
}

func TestSelectAttributesSuggestsEachName(t *testing.T) {
	f := newFixture(t)
	data := f.add(KindRetrieve, "Retrieve", map[string]string{"attributes": "alpha:numeric,beta:nominal"})
	sel := f.add(KindSelectAttributes, "Select", map[string]string{"attributes": "alpha,betta"})
	f.connect(data, PortOutput, sel, PortExampleSetInput)

	report := f.propagate()
	require.Len(t, report.Errors(), 1)
	require.NoError(t, report.Errors()[0].QuickFixes()[0].Apply())

	assert.Equal(t, "alpha,beta", sel.Parameter("attributes"))
	assert.Empty(t, f.propagate().Errors())
}

func TestSelectAttributesChecksEditedList(t *testing.T) {
	f := newFixture(t)
	data := f.add(KindRetrieve, "Retrieve", map[string]string{"attributes": "alpha:numeric,beta:nominal"})
	sel := f.add(KindSelectAttributes, "Select", map[string]string{"attributes": "alpha"})
	f.connect(data, PortOutput, sel, PortExampleSetInput)
	require.Empty(t, f.propagate().Errors())

	sel.SetParameter("attributes", "alpha,gamma,betta")
	report := f.propagate()

	errs := report.Errors()
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Message, "'gamma'")
	assert.Contains(t, errs[1].Message, "'betta'")

	require.NotEmpty(t, errs[1].QuickFixes())
	require.NoError(t, errs[1].QuickFixes()[0].Apply())
	assert.Equal(t, "alpha,gamma,beta", sel.Parameter("attributes"))
	assert.Len(t, f.propagate().Errors(), 1)
}

func TestScoringPipeline(t *testing.T) {
	f := newFixture(t)
	data := f.add(KindRetrieve, "Retrieve", map[string]string{"attributes": "outlook:nominal,play:binominal:label"})
	tree := f.add(KindDecisionTree, "Tree", nil)
	apply := f.add(KindApplyModel, "Apply", nil)
	perf := f.add(KindPerformance, "Performance", nil)
	f.connect(data, PortOutput, tree, PortTrainingSet)
	f.connect(tree, PortModel, apply, PortModel)
	f.connect(tree, PortExampleSet, apply, PortUnlabelledData)
	f.connect(apply, PortLabelledData, perf, PortLabelledData)

	report := f.propagate()

	assert.Empty(t, report.Errors())
	assert.Equal(t, "example_set{outlook:nominal, play:binominal(label), prediction(play):nominal(prediction)}",
		apply.Outputs().Port(PortLabelledData).MetaData().String())
	assert.Equal(t, metadata.ObjectPerformance, perf.Outputs().Port(PortPerformance).MetaData().String())
}

func TestPerformanceNeedsPrediction(t *testing.T) {
	f := newFixture(t)
	data := f.add(KindRetrieve, "Retrieve", map[string]string{"attributes": "outlook:nominal,play:binominal:label"})
	perf := f.add(KindPerformance, "Performance", nil)
	f.connect(data, PortOutput, perf, PortLabelledData)

	report := f.propagate()

	require.Len(t, report.Errors(), 1)
	assert.Contains(t, report.Errors()[0].Message, "prediction")
}

func TestApplyModelRejectsWrongObject(t *testing.T) {
	f := newFixture(t)
	data := f.add(KindRetrieve, "Retrieve", map[string]string{"attributes": "a:nominal:label"})
	tree := f.add(KindDecisionTree, "Tree", nil)
	perf := f.add(KindPerformance, "Performance", nil)
	apply := f.add(KindApplyModel, "Apply", nil)
	f.connect(data, PortOutput, tree, PortTrainingSet)
	f.connect(tree, PortExampleSet, perf, PortLabelledData)
	f.connect(perf, PortPerformance, apply, PortModel)
	f.connect(data, PortOutput, apply, PortUnlabelledData)

	report := f.propagate()

	errs := report.For("Apply")
	require.Len(t, errs, 1)
	assert.Equal(t, metadata.ObjectPrediction, errs[0].Expected)
	assert.Equal(t, metadata.ObjectPerformance, errs[0].Actual)
}

func TestDecisionTreeParameters(t *testing.T) {
	f := newFixture(t)
	f.add(KindDecisionTree, "Tree", map[string]string{"criterion": "entropy", "maximal_depth": "0"})

	report := f.propagate()

	assert.Equal(t, 2, report.Count(port.KindInvalidParameter))
	assert.Equal(t, 1, report.Count(port.KindMissingMandatoryInput))
}

func TestUnionGrowsAndMerges(t *testing.T) {
	f := newFixture(t)
	a := f.add(KindRetrieve, "A", map[string]string{"attributes": "a:numeric"})
	b := f.add(KindRetrieve, "B", map[string]string{"attributes": "b:nominal:label"})
	u := f.add(KindUnion, "Union", nil)
	f.connect(a, PortOutput, u, "example set 1")
	f.connect(b, PortOutput, u, "example set 2")

	report := f.propagate()

	assert.Empty(t, report.Errors())
	assert.Equal(t, 3, u.Inputs().Len())
	assert.Equal(t, "example_set{a:numeric, b:nominal(label)}", u.Outputs().Port(PortOutput).MetaData().String())
}

func TestUnionWithoutInputs(t *testing.T) {
	f := newFixture(t)
	f.add(KindUnion, "Union", nil)

	report := f.propagate()

	require.Len(t, report.Errors(), 1)
	assert.Equal(t, port.KindMissingMandatoryInput, report.Errors()[0].Kind)
	assert.Equal(t, "Union.example set 1", report.Errors()[0].Location)
}

func TestCollectThenCombine(t *testing.T) {
	f := newFixture(t)
	a := f.add(KindRetrieve, "A", map[string]string{"attributes": "a:numeric"})
	b := f.add(KindRetrieve, "B", map[string]string{"attributes": "b:real"})
	inner := f.add(KindCollect, "Inner", nil)
	outer := f.add(KindCollect, "Outer", nil)
	combine := f.add(KindCombine, "Combine", nil)
	f.connect(a, PortOutput, inner, "input 1")
	f.connect(b, PortOutput, inner, "input 2")
	f.connect(inner, PortCollection, outer, "input 1")
	f.connect(outer, PortCollection, combine, "input 1")

	report := f.propagate()

	assert.Empty(t, report.Errors())
	outerMD := outer.Outputs().Port(PortCollection).MetaData()
	assert.Equal(t, 2, metadata.Depth(outerMD))
	assert.Equal(t, "example_set{a:numeric, b:real}", combine.Outputs().Port(PortOutput).MetaData().String())
}

func TestCollectionIntoLearnerNeedsUnpacking(t *testing.T) {
	f := newFixture(t)
	a := f.add(KindRetrieve, "A", map[string]string{"attributes": "a:nominal:label"})
	collect := f.add(KindCollect, "Collect", nil)
	tree := f.add(KindDecisionTree, "Tree", nil)
	f.connect(a, PortOutput, collect, "input 1")
	f.connect(collect, PortCollection, tree, PortTrainingSet)

	report := f.propagate()

	errs := report.For("Tree")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "collection")
}

func TestMultiplyFansOut(t *testing.T) {
	f := newFixture(t)
	a := f.add(KindRetrieve, "A", map[string]string{"attributes": "a:nominal:label"})
	mult := f.add(KindMultiply, "Multiply", nil)
	t1 := f.add(KindDecisionTree, "Tree 1", nil)
	t2 := f.add(KindDecisionTree, "Tree 2", nil)
	f.connect(a, PortOutput, mult, PortInput)
	f.connect(mult, "output 1", t1, PortTrainingSet)
	f.connect(mult, "output 2", t2, PortTrainingSet)

	report := f.propagate()

	assert.Empty(t, report.Errors())
	assert.Equal(t, 3, mult.Outputs().Len())
	assert.True(t, t2.Inputs().Port(PortTrainingSet).MetaData().Equals(a.Outputs().Port(PortOutput).MetaData()))
}

func TestInsertBeforeRequiresConnection(t *testing.T) {
	f := newFixture(t)
	tree := f.add(KindDecisionTree, "Tree", nil)

	_, err := InsertBefore(f.r, tree.Inputs().Port(PortTrainingSet), KindSetRole, "Set Role", nil)
	assert.ErrorIs(t, err, ErrNotInGraph)
}
