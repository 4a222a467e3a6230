package port

import "github.com/conduit-lang/pipecheck/internal/metadata"

// Rule computes output metadata from input metadata. Rules never fail;
// they attach errors to the ports they write.
type Rule interface {
	Transform(level metadata.CompatibilityLevel)
}

// RuleFunc adapts a closure to Rule.
type RuleFunc func(level metadata.CompatibilityLevel)

// Transform calls f.
func (f RuleFunc) Transform(level metadata.CompatibilityLevel) {
	f(level)
}

func inputOrUnknown(p *Port) metadata.Descriptor {
	if md := p.MetaData(); md != nil {
		return md.Clone()
	}
	return metadata.Unknown
}

// PassThroughRule copies the metadata of In to Out, optionally through
// Modify. Modify receives a clone and may change it in place.
type PassThroughRule struct {
	In     *Port
	Out    *Port
	Modify func(md metadata.Descriptor) metadata.Descriptor
}

// NewPassThroughRule passes in through to out unchanged.
func NewPassThroughRule(in, out *Port) *PassThroughRule {
	return &PassThroughRule{In: in, Out: out}
}

func (r *PassThroughRule) Transform(level metadata.CompatibilityLevel) {
	md := inputOrUnknown(r.In)
	if r.Modify != nil {
		md = r.Modify(md)
	}
	r.Out.Receive(md, level)
}

// ManyToOnePassThroughRule merges several inputs into one output. Merge
// conflicts such as two label attributes become errors on Out.
type ManyToOnePassThroughRule struct {
	Inputs func() []metadata.Descriptor
	Out    *Port
}

// NewManyToOnePassThroughRule merges the metadata of the given ports.
func NewManyToOnePassThroughRule(out *Port, in ...*Port) *ManyToOnePassThroughRule {
	return &ManyToOnePassThroughRule{Inputs: portMetaData(in), Out: out}
}

func portMetaData(ports []*Port) func() []metadata.Descriptor {
	return func() []metadata.Descriptor {
		out := make([]metadata.Descriptor, 0, len(ports))
		for _, p := range ports {
			out = append(out, p.MetaData())
		}
		return out
	}
}

func (r *ManyToOnePassThroughRule) Transform(level metadata.CompatibilityLevel) {
	mergeInto(r.Out, r.Inputs(), level)
}

func mergeInto(out *Port, inputs []metadata.Descriptor, level metadata.CompatibilityLevel) {
	merged, conflicts := metadata.Merge(inputs...)
	out.Receive(merged, level)
	for _, c := range conflicts {
		out.AddError(NewIncompatibleMetaData(out, c))
	}
}

// FlatteningPassThroughRule strips one collection level from every input
// before merging them into Out.
type FlatteningPassThroughRule struct {
	Inputs func() []metadata.Descriptor
	Out    *Port
}

// NewFlatteningPassThroughRule flattens and merges the given ports.
func NewFlatteningPassThroughRule(out *Port, in ...*Port) *FlatteningPassThroughRule {
	return &FlatteningPassThroughRule{Inputs: portMetaData(in), Out: out}
}

func (r *FlatteningPassThroughRule) Transform(level metadata.CompatibilityLevel) {
	inputs := r.Inputs()
	flat := make([]metadata.Descriptor, len(inputs))
	for i, md := range inputs {
		if md != nil {
			md = metadata.UnwrapOnce(md)
		}
		flat[i] = md
	}
	mergeInto(r.Out, flat, level)
}

// GenerateNewRule delivers a fixed descriptor, typically on a source
// operator's output.
type GenerateNewRule struct {
	Out        *Port
	Descriptor metadata.Descriptor
}

// NewGenerateNewRule produces md on out.
func NewGenerateNewRule(out *Port, md metadata.Descriptor) *GenerateNewRule {
	return &GenerateNewRule{Out: out, Descriptor: md}
}

func (r *GenerateNewRule) Transform(level metadata.CompatibilityLevel) {
	if r.Descriptor == nil {
		r.Out.Receive(metadata.Unknown, level)
		return
	}
	r.Out.Receive(r.Descriptor.Clone(), level)
}

// Transformer is an operator's ordered list of rules.
type Transformer struct {
	rules []Rule
}

// NewTransformer creates an empty transformer.
func NewTransformer() *Transformer {
	return &Transformer{}
}

// AddRule appends a rule. Rules run in the order they were added and may
// read metadata written by earlier ones.
func (t *Transformer) AddRule(r Rule) {
	t.rules = append(t.rules, r)
}

// Rules returns the declared rules.
func (t *Transformer) Rules() []Rule {
	return t.rules
}

// Transform runs every rule once, in order.
func (t *Transformer) Transform(level metadata.CompatibilityLevel) {
	for _, r := range t.rules {
		r.Transform(level)
	}
}
