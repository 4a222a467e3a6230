package operators

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/conduit-lang/pipecheck/internal/graph"
	"github.com/conduit-lang/pipecheck/internal/metadata"
	"github.com/conduit-lang/pipecheck/internal/port"
)

// Operator type names
const (
	KindRetrieve         = "retrieve"
	KindSetRole          = "set_role"
	KindSelectAttributes = "select_attributes"
	KindDecisionTree     = "decision_tree"
	KindApplyModel       = "apply_model"
	KindPerformance      = "performance"
	KindUnion            = "union"
	KindCollect          = "collect"
	KindCombine          = "combine"
	KindMultiply         = "multiply"
)

// Port names shared by several operator types
const (
	PortOutput           = "output"
	PortExampleSetInput  = "example set input"
	PortExampleSetOutput = "example set output"
	PortOriginal         = "original"
	PortTrainingSet      = "training set"
	PortModel            = "model"
	PortUnlabelledData   = "unlabelled data"
	PortLabelledData     = "labelled data"
	PortPerformance      = "performance"
	PortExampleSet       = "example set"
	PortInput            = "input"
	PortCollection       = "collection"
)

// Decision tree split criteria
var criteria = []string{"gain_ratio", "information_gain", "gini_index", "accuracy"}

// RegisterBuiltins adds the built-in catalog to r. Definitions whose quick
// fixes insert new operators build them through r.
func RegisterBuiltins(r *Registry) error {
	defs := []*Definition{
		retrieveDefinition(),
		setRoleDefinition(),
		selectAttributesDefinition(),
		decisionTreeDefinition(r),
		applyModelDefinition(),
		performanceDefinition(r),
		unionDefinition(),
		collectDefinition(),
		combineDefinition(),
		multiplyDefinition(),
	}
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			return fmt.Errorf("failed to register operator %s: %w", def.Name, err)
		}
	}
	return nil
}

func exampleSetInput(op *graph.Operator, name string) *port.Port {
	in := op.Inputs().Create(name)
	in.AddPrecondition(port.Require(metadata.NewGeneric(metadata.ObjectExampleSet)))
	return in
}

func retrieveDefinition() *Definition {
	return &Definition{
		Name:        KindRetrieve,
		Category:    "data",
		Description: "Reads a stored example set with a declared schema",
		Parameters: []Parameter{
			{Name: "repository_entry", Description: "location of the stored data"},
			{Name: "attributes", Description: "schema as name:kind[:role], comma separated"},
			{Name: "examples", Description: "number of examples, if known"},
		},
		Build: func(op *graph.Operator) error {
			out := op.Outputs().Create(PortOutput)
			op.Transformer().AddRule(port.RuleFunc(func(level metadata.CompatibilityLevel) {
				md, param, err := retrieveSchema(op)
				out.Receive(md, level)
				if err != nil {
					out.AddError(port.NewInvalidParameter(out, param, err))
				}
			}))
			return nil
		},
	}
}

func retrieveSchema(op *graph.Operator) (metadata.Descriptor, string, error) {
	spec := strings.TrimSpace(op.Parameter("attributes"))
	if spec == "" {
		return metadata.Unknown, "", nil
	}
	attrs, err := metadata.ParseAttributes(spec)
	if err != nil {
		return metadata.Unknown, "attributes", err
	}
	es, err := metadata.NewExampleSet(attrs...)
	if err != nil {
		return metadata.Unknown, "attributes", err
	}
	if n := strings.TrimSpace(op.Parameter("examples")); n != "" {
		count, err := strconv.Atoi(n)
		if err != nil || count < 0 {
			return es, "examples", fmt.Errorf("%q is not a non-negative integer", n)
		}
		es.Count = metadata.ExactCount(count)
	}
	return es, "", nil
}

func setRoleDefinition() *Definition {
	return &Definition{
		Name:        KindSetRole,
		Category:    "transform",
		Description: "Changes the role of one attribute",
		Parameters: []Parameter{
			{Name: "attribute", Description: "attribute to change", Required: true},
			{Name: "role", Description: "new role", Default: string(metadata.RoleRegular)},
		},
		Build: func(op *graph.Operator) error {
			in := exampleSetInput(op, PortExampleSetInput)
			in.AddPrecondition(parameterAttribute(op, "attribute"))
			out := op.Outputs().Create(PortExampleSetOutput)
			original := op.Outputs().Create(PortOriginal)

			op.Transformer().AddRule(&port.PassThroughRule{In: in, Out: out, Modify: func(md metadata.Descriptor) metadata.Descriptor {
				if es, ok := md.(*metadata.ExampleSet); ok {
					// a missing attribute is reported by the precondition
					_ = es.SetRole(op.Parameter("attribute"), metadata.ParseRole(op.Parameter("role")))
				}
				return md
			}})
			op.Transformer().AddRule(port.NewPassThroughRule(in, original))
			op.Transformer().AddRule(requiredParameters(op, out, "attribute"))
			return nil
		},
	}
}

// parameterAttribute checks that the attribute named by a parameter exists
// and suggests close names when it does not.
func parameterAttribute(op *graph.Operator, key string) port.Precondition {
	return port.NewAttributePrecondition(
		func() string { return op.Parameter(key) },
		func(name string) error {
			op.SetParameter(key, name)
			return nil
		},
	)
}

// requiredParameters reports empty required parameters on p.
func requiredParameters(op *graph.Operator, p *port.Port, keys ...string) port.Rule {
	return port.RuleFunc(func(metadata.CompatibilityLevel) {
		for _, key := range keys {
			if strings.TrimSpace(op.Parameter(key)) == "" {
				p.AddError(port.NewInvalidParameter(p, key, fmt.Errorf("a value is required")))
			}
		}
	})
}

func selectAttributesDefinition() *Definition {
	return &Definition{
		Name:        KindSelectAttributes,
		Category:    "transform",
		Description: "Keeps the listed regular attributes and all special ones",
		Parameters: []Parameter{
			{Name: "attributes", Description: "attribute names, comma separated", Required: true},
		},
		Build: func(op *graph.Operator) error {
			in := exampleSetInput(op, PortExampleSetInput)
			in.AddPrecondition(port.NewAttributeListPrecondition(
				func() []string { return splitList(op.Parameter("attributes")) },
				func(i int, name string) error {
					op.SetParameter("attributes", replaceListItem(op.Parameter("attributes"), i, name))
					return nil
				},
			))
			out := op.Outputs().Create(PortExampleSetOutput)
			original := op.Outputs().Create(PortOriginal)

			op.Transformer().AddRule(&port.PassThroughRule{In: in, Out: out, Modify: func(md metadata.Descriptor) metadata.Descriptor {
				es, ok := md.(*metadata.ExampleSet)
				if !ok {
					return md
				}
				keep := make(map[string]bool)
				for _, name := range splitList(op.Parameter("attributes")) {
					keep[name] = true
				}
				for _, a := range es.Regular() {
					if !keep[a.Name] {
						es.RemoveAttribute(a.Name)
					}
				}
				if es.Relation != metadata.RelationEqual {
					es.Relation = metadata.RelationSubset
				}
				return es
			}})
			op.Transformer().AddRule(port.NewPassThroughRule(in, original))
			op.Transformer().AddRule(requiredParameters(op, out, "attributes"))
			return nil
		},
	}
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func replaceListItem(s string, i int, value string) string {
	items := splitList(s)
	if i < len(items) {
		items[i] = value
	}
	return strings.Join(items, ",")
}

func decisionTreeDefinition(r *Registry) *Definition {
	return &Definition{
		Name:        KindDecisionTree,
		Category:    "modeling",
		Description: "Learns a decision tree for a nominal label",
		Parameters: []Parameter{
			{Name: "criterion", Description: strings.Join(criteria, "|"), Default: "gain_ratio"},
			{Name: "maximal_depth", Description: "depth limit, -1 for none", Default: "10"},
		},
		Build: func(op *graph.Operator) error {
			requirement := metadata.MustExampleSet(
				metadata.NewSpecialAttribute("", metadata.KindNominal, metadata.RoleLabel),
			)
			requirement.Count = metadata.AtLeast(1)

			in := op.Inputs().Create(PortTrainingSet)
			in.AddPrecondition(port.Require(requirement).
				Describe("expects an example set with a nominal label").
				WithFixes(declareRoleFixes(r, metadata.RoleLabel, metadata.KindNominal)))

			model := op.Outputs().Create(PortModel)
			exampleSet := op.Outputs().Create(PortExampleSet)

			op.Transformer().AddRule(port.NewGenerateNewRule(model, metadata.NewGeneric(metadata.ObjectTree)))
			op.Transformer().AddRule(port.NewPassThroughRule(in, exampleSet))
			op.Transformer().AddRule(port.RuleFunc(func(metadata.CompatibilityLevel) {
				if err := checkChoice(op.Parameter("criterion"), criteria); err != nil {
					model.AddError(port.NewInvalidParameter(model, "criterion", err))
				}
				if depth, err := strconv.Atoi(op.Parameter("maximal_depth")); err != nil || depth == 0 || depth < -1 {
					model.AddError(port.NewInvalidParameter(model, "maximal_depth",
						fmt.Errorf("%q must be -1 or a positive integer", op.Parameter("maximal_depth"))))
				}
			}))
			return nil
		},
	}
}

func checkChoice(value string, choices []string) error {
	for _, c := range choices {
		if value == c {
			return nil
		}
	}
	return fmt.Errorf("%q is not one of %s", value, strings.Join(choices, ", "))
}

func applyModelDefinition() *Definition {
	return &Definition{
		Name:        KindApplyModel,
		Category:    "scoring",
		Description: "Adds a prediction attribute using a trained model",
		Build: func(op *graph.Operator) error {
			model := op.Inputs().Create(PortModel)
			model.AddPrecondition(port.Require(metadata.NewGeneric(metadata.ObjectPrediction)))
			data := exampleSetInput(op, PortUnlabelledData)

			labelled := op.Outputs().Create(PortLabelledData)
			modelOut := op.Outputs().Create(PortModel)

			op.Transformer().AddRule(&port.PassThroughRule{In: data, Out: labelled, Modify: addPrediction})
			op.Transformer().AddRule(port.NewPassThroughRule(model, modelOut))
			return nil
		},
	}
}

// addPrediction appends a prediction attribute, replacing an existing one.
// Unknown input becomes a partial example set holding just the prediction.
func addPrediction(md metadata.Descriptor) metadata.Descriptor {
	es, ok := md.(*metadata.ExampleSet)
	if !ok {
		es = metadata.MustExampleSet()
		es.Relation = metadata.RelationSuperset
	}
	if old := es.Special(metadata.RolePrediction); old != nil {
		es.RemoveAttribute(old.Name)
	}
	name := "prediction"
	if label := es.Special(metadata.RoleLabel); label != nil {
		name = fmt.Sprintf("prediction(%s)", label.Name)
	}
	if es.Attribute(name) != nil {
		es.RemoveAttribute(name)
	}
	_ = es.AddAttribute(metadata.NewSpecialAttribute(name, metadata.KindNominal, metadata.RolePrediction))
	return es
}

func performanceDefinition(r *Registry) *Definition {
	return &Definition{
		Name:        KindPerformance,
		Category:    "evaluation",
		Description: "Compares label and prediction",
		Build: func(op *graph.Operator) error {
			requirement := metadata.MustExampleSet(
				metadata.NewSpecialAttribute("", metadata.KindAttribute, metadata.RoleLabel),
				metadata.NewSpecialAttribute("", metadata.KindAttribute, metadata.RolePrediction),
			)
			in := op.Inputs().Create(PortLabelledData)
			in.AddPrecondition(port.Require(requirement).
				Describe("expects an example set with label and prediction").
				WithFixes(declareRoleFixes(r, metadata.RoleLabel, metadata.KindAttribute)))

			perf := op.Outputs().Create(PortPerformance)
			exampleSet := op.Outputs().Create(PortExampleSet)
			op.Transformer().AddRule(port.NewGenerateNewRule(perf, metadata.NewGeneric(metadata.ObjectPerformance)))
			op.Transformer().AddRule(port.NewPassThroughRule(in, exampleSet))
			return nil
		},
	}
}

func unionDefinition() *Definition {
	return &Definition{
		Name:        KindUnion,
		Category:    "transform",
		Description: "Merges the attributes of all connected example sets",
		Build: func(op *graph.Operator) error {
			group := op.Inputs().CreateGroup(PortExampleSet, port.FirstMandatory(), port.WithEachPort(func(p *port.Port) {
				p.AddPrecondition(port.Require(metadata.NewGeneric(metadata.ObjectExampleSet)).Optional())
			}))
			op.Transformer().AddRule(group.PassThroughRule(op.Outputs().Create(PortOutput)))
			return nil
		},
	}
}

func collectDefinition() *Definition {
	return &Definition{
		Name:        KindCollect,
		Category:    "collections",
		Description: "Collects all inputs into one collection",
		Build: func(op *graph.Operator) error {
			group := op.Inputs().CreateGroup(PortInput, port.FirstMandatory())
			out := op.Outputs().Create(PortCollection)
			op.Transformer().AddRule(port.RuleFunc(func(level metadata.CompatibilityLevel) {
				elem, conflicts := metadata.Merge(group.MetaData(false)...)
				out.Receive(metadata.NewCollection(elem), level)
				for _, c := range conflicts {
					out.AddError(port.NewIncompatibleMetaData(out, c))
				}
			}))
			return nil
		},
	}
}

func combineDefinition() *Definition {
	return &Definition{
		Name:        KindCombine,
		Category:    "collections",
		Description: "Unpacks nested collections and merges their elements",
		Build: func(op *graph.Operator) error {
			group := op.Inputs().CreateGroup(PortInput, port.FirstMandatory(), port.Unfolding())
			op.Transformer().AddRule(group.FlatteningPassThroughRule(op.Outputs().Create(PortOutput)))
			return nil
		},
	}
}

func multiplyDefinition() *Definition {
	return &Definition{
		Name:        KindMultiply,
		Category:    "utility",
		Description: "Copies its input to every connected output",
		Build: func(op *graph.Operator) error {
			in := op.Inputs().Create(PortInput)
			in.AddPrecondition(port.Require(metadata.NewGeneric(metadata.ObjectAny)))
			outputs := op.Outputs().CreateGroup(PortOutput)
			op.Transformer().AddRule(port.RuleFunc(func(level metadata.CompatibilityLevel) {
				for _, out := range outputs.Ports() {
					port.NewPassThroughRule(in, out).Transform(level)
				}
			}))
			return nil
		},
	}
}
