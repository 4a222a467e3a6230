// Package pipeline reads and writes pipeline files: the operators of a
// graph, their parameters, and the connections between their ports.
//
//	version: 1
//	name: golf
//	operators:
//	  - name: Retrieve
//	    type: retrieve
//	    parameters:
//	      attributes: outlook:nominal,play:binominal:label
//	  - name: Tree
//	    type: decision_tree
//	connections:
//	  - from: Retrieve.output
//	    to: Tree.training set
package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/conduit-lang/pipecheck/internal/metadata"
)

// CurrentVersion is the pipeline file format version written by Write.
const CurrentVersion = 1

var (
	// ErrInvalidDefinition is returned for structurally invalid files.
	ErrInvalidDefinition = errors.New("invalid pipeline definition")
	// ErrUnresolvedPort is returned when a connection names a port that
	// does not exist.
	ErrUnresolvedPort = errors.New("unresolved port reference")
)

// Definition is the file form of a pipeline.
type Definition struct {
	Version            int              `yaml:"version"`
	Name               string           `yaml:"name,omitempty"`
	CompatibilityLevel string           `yaml:"compatibility_level,omitempty"`
	Operators          []OperatorSpec   `yaml:"operators"`
	Connections        []ConnectionSpec `yaml:"connections,omitempty"`
}

// OperatorSpec declares one operator.
type OperatorSpec struct {
	Name       string            `yaml:"name"`
	Type       string            `yaml:"type"`
	Parameters map[string]string `yaml:"parameters,omitempty"`
}

// ConnectionSpec wires an output port to an input port. Both ends are
// written "<operator>.<port>".
type ConnectionSpec struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// PortRef names a port of an operator.
type PortRef struct {
	Operator string
	Port     string
}

func (r PortRef) String() string {
	return r.Operator + "." + r.Port
}

// ParsePortRef splits "<operator>.<port>". Operator names never contain
// dots, so the first dot separates the two.
func ParsePortRef(s string) (PortRef, error) {
	i := strings.Index(s, ".")
	if i <= 0 || i == len(s)-1 {
		return PortRef{}, fmt.Errorf("invalid port reference %q: expected <operator>.<port>", s)
	}
	return PortRef{Operator: strings.TrimSpace(s[:i]), Port: strings.TrimSpace(s[i+1:])}, nil
}

// Load reads and validates a pipeline file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline: %w", err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Parse decodes and validates a pipeline definition.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}
	if def.Version == 0 {
		def.Version = CurrentVersion
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Validate checks the parts of a definition that do not need a registry.
func (d *Definition) Validate() error {
	var errs []error
	if d.Version != CurrentVersion {
		errs = append(errs, fmt.Errorf("unsupported version %d", d.Version))
	}
	if d.CompatibilityLevel != "" {
		if _, err := metadata.ParseLevel(d.CompatibilityLevel); err != nil {
			errs = append(errs, err)
		}
	}

	names := make(map[string]bool, len(d.Operators))
	for i, op := range d.Operators {
		switch {
		case op.Name == "":
			errs = append(errs, fmt.Errorf("operator %d has no name", i+1))
		case strings.Contains(op.Name, "."):
			errs = append(errs, fmt.Errorf("operator name %q must not contain '.'", op.Name))
		case names[op.Name]:
			errs = append(errs, fmt.Errorf("duplicate operator name %q", op.Name))
		}
		if op.Type == "" {
			errs = append(errs, fmt.Errorf("operator %q has no type", op.Name))
		}
		names[op.Name] = true
	}

	for _, c := range d.Connections {
		for _, ref := range []string{c.From, c.To} {
			r, err := ParsePortRef(ref)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if !names[r.Operator] {
				errs = append(errs, fmt.Errorf("connection %s -> %s names unknown operator %q", c.From, c.To, r.Operator))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidDefinition, errors.Join(errs...))
	}
	return nil
}

// Level returns the compatibility level the file asks for, if any.
func (d *Definition) Level() (metadata.CompatibilityLevel, bool) {
	if d.CompatibilityLevel == "" {
		return metadata.DefaultLevel, false
	}
	level, err := metadata.ParseLevel(d.CompatibilityLevel)
	if err != nil {
		return metadata.DefaultLevel, false
	}
	return level, true
}
