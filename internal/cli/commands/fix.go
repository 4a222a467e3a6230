package commands

import (
	"fmt"
	"path/filepath"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/pipecheck/internal/cli/ui"
	"github.com/conduit-lang/pipecheck/internal/pipeline"
	"github.com/conduit-lang/pipecheck/internal/port"
)

// selectFix asks the user to pick one of the offered fixes
var selectFix = defaultSelectFix

func defaultSelectFix(options []string) (int, error) {
	var selectedIdx int
	prompt := &survey.Select{
		Message: "Select a quick fix:",
		Options: options,
	}
	if err := survey.AskOne(prompt, &selectedIdx); err != nil {
		return 0, err
	}
	return selectedIdx, nil
}

// NewFixCommand creates the fix command
func NewFixCommand(opts *rootOptions) *cobra.Command {
	var (
		apply       int
		interactive bool
		write       string
	)

	cmd := &cobra.Command{
		Use:   "fix <pipeline.yml>",
		Short: "List and apply quick fixes",
		Long: `Validate the pipeline and list the quick fixes offered for its problems.

Fixes are numbered in report order. Apply one with --apply or pick it
from a list with --interactive; the pipeline is then validated again.
Use --write to save the changed pipeline.

Examples:
  pipecheck fix pipeline.yml
  pipecheck fix pipeline.yml --apply 2 --write pipeline.yml
  pipecheck fix pipeline.yml --interactive --write fixed.yml`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completePipelineFiles,
		RunE: func(cmd *cobra.Command, args []string) error {
			if apply < 0 {
				return fmt.Errorf("--apply must be positive, got %d", apply)
			}
			if apply > 0 && interactive {
				return fmt.Errorf("--apply and --interactive cannot be combined")
			}

			s, err := opts.newSession(cmd)
			if err != nil {
				return err
			}
			defer s.logger.Sync() //nolint:errcheck

			path := args[0]
			def, g, err := s.build(path)
			if err != nil {
				return err
			}

			report := g.Propagate(cmd.Context())
			fixes := report.QuickFixes()

			if apply == 0 && !interactive {
				if err := s.render(report); err != nil {
					return err
				}
				if len(fixes) > 0 && !s.json {
					fmt.Fprint(s.out, ui.Info(fmt.Sprintf("Apply a fix: pipecheck fix %s --apply N", path), s.noColor))
				}
				return nil
			}

			if len(fixes) == 0 {
				ui.WriteSuccess(s.out, "No quick fixes available.", s.noColor)
				return nil
			}

			idx := apply - 1
			if interactive {
				idx, err = selectFix(fixOptions(report.Errors()))
				if err != nil {
					return err
				}
			}
			if idx >= len(fixes) {
				return fmt.Errorf("no quick fix %d; %d available", apply, len(fixes))
			}

			fix := fixes[idx]
			if err := fix.Apply(); err != nil {
				return fmt.Errorf("failed to apply %q: %w", fix.Description(), err)
			}
			s.logger.Info("applied quick fix", zap.String("fix", fix.Description()), zap.Int("priority", fix.Priority()))
			if !s.json {
				ui.WriteSuccess(s.out, fmt.Sprintf("Applied: %s", fix.Description()), s.noColor)
				fmt.Fprintln(s.out)
			}

			report = g.Propagate(cmd.Context())
			if err := s.render(report); err != nil {
				return err
			}

			if write != "" {
				name := def.Name
				if name == "" {
					name = trimExt(filepath.Base(path))
				}
				out := pipeline.FromGraph(g, name)
				out.CompatibilityLevel = def.CompatibilityLevel
				if err := pipeline.Write(write, out); err != nil {
					return err
				}
				if !s.json {
					ui.WriteSuccess(s.out, fmt.Sprintf("Wrote %s", write), s.noColor)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&apply, "apply", 0, "Apply the quick fix with this number")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Choose a quick fix from a list")
	cmd.Flags().StringVarP(&write, "write", "w", "", "Write the fixed pipeline to this file")

	return cmd
}

// fixOptions labels every fix with the location of the problem it repairs,
// in the numbering order of the report
func fixOptions(errs port.ErrorList) []string {
	var options []string
	for _, e := range errs {
		location := e.Location
		if location == "" {
			location = "pipeline"
		}
		for _, f := range e.QuickFixes() {
			options = append(options, fmt.Sprintf("%s: %s", location, f.Description()))
		}
	}
	return options
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
