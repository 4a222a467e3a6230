package commands

import (
	"github.com/spf13/cobra"
)

// NewValidateCommand creates the validate command
func NewValidateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <pipeline.yml>",
		Short: "Propagate metadata through a pipeline and report problems",
		Long: `Build the pipeline graph, propagate metadata from the sources to the
sinks and report every port whose input does not satisfy its requirements.

The command exits with a non-zero status when the report contains errors.
Warnings alone do not fail validation.

Examples:
  pipecheck validate pipeline.yml
  pipecheck validate pipeline.yml --level strict
  pipecheck validate pipeline.yml --json`,
		Args:              cobra.ExactArgs(1),
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
			s.structure(g)

			report := g.Propagate(cmd.Context())
			if err := s.render(report); err != nil {
				return err
			}
			if report.HasErrors() {
				return ErrInvalidPipeline
			}
			return nil
		},
	}
}
