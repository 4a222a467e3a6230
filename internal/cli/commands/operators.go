package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/pipecheck/internal/cli/ui"
	"github.com/conduit-lang/pipecheck/internal/operators"
	"github.com/conduit-lang/pipecheck/internal/port"
)

// NewOperatorsCommand creates the operators command
func NewOperatorsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "operators [type]",
		Short: "List the available operator types",
		Long: `List the operator types a pipeline file can use, or describe one type
with its parameters and ports.

Examples:
  pipecheck operators
  pipecheck operators decision_tree`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completeOperatorTypes,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := operators.NewBuiltinRegistry()
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				return describeOperator(cmd, opts, reg, args[0])
			}

			defs := reg.List()
			if opts.json {
				type entry struct {
					Type        string `json:"type"`
					Category    string `json:"category"`
					Description string `json:"description"`
				}
				entries := make([]entry, len(defs))
				for i, d := range defs {
					entries[i] = entry{Type: d.Name, Category: d.Category, Description: d.Description}
				}
				data, err := json.MarshalIndent(entries, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			table := ui.NewTable("Type", "Category", "Description")
			for _, d := range defs {
				table.AddRow(d.Name, d.Category, d.Description)
			}
			table.Render(out, opts.noColor)
			return nil
		},
	}
}

func describeOperator(cmd *cobra.Command, opts *rootOptions, reg *operators.Registry, kind string) error {
	out := cmd.OutOrStdout()

	def, err := reg.Get(kind)
	if err != nil {
		if errors.Is(err, operators.ErrUnknownKind) {
			names := make([]string, 0)
			for _, d := range reg.List() {
				names = append(names, d.Name)
			}
			fmt.Fprint(cmd.ErrOrStderr(), ui.UnknownOperatorError(kind, ui.FindSimilar(kind, names, nil), opts.noColor))
			return reported(err)
		}
		return err
	}

	// A throwaway instance shows the ports the type declares.
	op, err := reg.Create(def.Name, def.Name, nil)
	if err != nil {
		return err
	}

	ui.Header(out, def.Name, opts.noColor)
	ui.WriteFields(out, []ui.Field{
		{Key: "Category", Value: def.Category},
		{Key: "Description", Value: def.Description},
	}, opts.noColor)
	fmt.Fprintln(out)

	var params []string
	for _, p := range def.Parameters {
		var notes []string
		if p.Required {
			notes = append(notes, "required")
		}
		if p.Default != "" {
			notes = append(notes, "default: "+p.Default)
		}
		line := p.Name
		if len(notes) > 0 {
			line += " (" + strings.Join(notes, ", ") + ")"
		}
		if p.Description != "" {
			line += " - " + p.Description
		}
		params = append(params, line)
	}
	ui.WriteSection(out, "Parameters", params, opts.noColor)

	for _, side := range []struct {
		title string
		ports *port.Ports
	}{
		{"Inputs", op.Inputs()},
		{"Outputs", op.Outputs()},
	} {
		var lines []string
		for _, p := range side.ports.All() {
			if p.Group() != nil {
				continue
			}
			line := p.Name()
			var reqs []string
			for _, pc := range p.Preconditions() {
				if pc.Mandatory() {
					reqs = append(reqs, pc.Description())
				}
			}
			if len(reqs) > 0 {
				line += ": " + strings.Join(reqs, "; ")
			}
			lines = append(lines, line)
		}
		for _, g := range side.ports.Groups() {
			lines = append(lines, fmt.Sprintf("%s 1, %s 2, ... (grows as ports are connected)", g.Name(), g.Name()))
		}
		ui.WriteSection(out, side.title, lines, opts.noColor)
	}
	return nil
}
