package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/pipecheck/internal/cli/ui"
	"github.com/conduit-lang/pipecheck/internal/graph"
	"github.com/conduit-lang/pipecheck/internal/port"
)

// assumedSuffix marks previewed metadata on unconnected inputs
const assumedSuffix = " (assumed)"

// portState is the JSON form of one port after propagation
type portState struct {
	Operator  string `json:"operator"`
	Port      string `json:"port"`
	Direction string `json:"direction"`
	MetaData  string `json:"metadata"`
	Assumed   bool   `json:"assumed,omitempty"`
	Connected bool   `json:"connected"`
}

// NewInspectCommand creates the inspect command
func NewInspectCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <pipeline.yml> [operator]",
		Short: "Show the metadata at every port",
		Long: `Propagate metadata through the pipeline and show what each port
receives or produces. Unconnected inputs show the metadata that would
satisfy them, marked as assumed.

Examples:
  pipecheck inspect pipeline.yml
  pipecheck inspect pipeline.yml Tree
  pipecheck inspect pipeline.yml --json`,
		Args:              cobra.RangeArgs(1, 2),
		ValidArgsFunction: completePipelineFiles,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.newSession(cmd)
			if err != nil {
				return err
			}
			defer s.logger.Sync() //nolint:errcheck

			_, g, err := s.build(args[0])
			if err != nil {
				return err
			}
			g.Propagate(cmd.Context())

			ops := g.Operators()
			if len(args) == 2 {
				op := g.Operator(args[1])
				if op == nil {
					names := make([]string, len(ops))
					for i, o := range ops {
						names[i] = o.Name()
					}
					if best := ui.FindBestMatch(args[1], names, nil); best != "" {
						return fmt.Errorf("%w: %s (did you mean %q?)", graph.ErrUnknownOperator, args[1], best)
					}
					return fmt.Errorf("%w: %s", graph.ErrUnknownOperator, args[1])
				}
				ops = []*graph.Operator{op}
			}

			if s.json {
				var states []portState
				for _, op := range ops {
					states = append(states, portStates(op)...)
				}
				data, err := json.MarshalIndent(states, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to encode ports: %w", err)
				}
				fmt.Fprintln(s.out, string(data))
				return nil
			}

			for _, op := range ops {
				ui.Header(s.out, fmt.Sprintf("%s (%s)", op.Name(), op.Kind()), s.noColor)
				table := ui.NewTable("Port", "Direction", "Metadata").Faint(func(cell string) bool {
					return cell == "-" || strings.HasSuffix(cell, assumedSuffix)
				})
				for _, st := range portStates(op) {
					md := st.MetaData
					if st.Assumed {
						md += assumedSuffix
					}
					table.AddRow(st.Port, st.Direction, md)
				}
				table.Render(s.out, s.noColor)
				fmt.Fprintln(s.out)
			}
			return nil
		},
	}
}

func portStates(op *graph.Operator) []portState {
	var states []portState
	for _, ports := range []*port.Ports{op.Inputs(), op.Outputs()} {
		for _, p := range ports.All() {
			st := portState{
				Operator:  op.Name(),
				Port:      p.Name(),
				Direction: p.Direction().String(),
				MetaData:  "-",
				Assumed:   p.IsAssumed(),
				Connected: p.IsConnected(),
			}
			if md := p.MetaData(); md != nil {
				st.MetaData = md.String()
			}
			states = append(states, st)
		}
	}
	return states
}
