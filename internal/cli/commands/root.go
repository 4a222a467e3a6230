package commands

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// ErrInvalidPipeline is returned when validation finds errors. The report
// has already been printed, so Execute does not print it again.
var ErrInvalidPipeline = errors.New("pipeline has errors")

// rootOptions holds the persistent flags shared by all subcommands
type rootOptions struct {
	configDir string
	level     string
	json      bool
	noColor   bool
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "pipecheck",
		Short: "Design-time validation for dataflow pipelines",
		Long: color.CyanString(`pipecheck - metadata propagation for dataflow pipelines

pipecheck reads a pipeline file, wires its operators together and
propagates metadata through the graph without running anything. Every
port that receives something it cannot use is reported, together with
quick fixes that repair the pipeline.

Features:
  • Schema, role and kind checks at every input port
  • Three compatibility levels (legacy, standard, strict)
  • Quick fixes that can be applied and written back
  • Watch mode that re-validates on save`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configDir, "config", ".", "Directory containing pipecheck.yml")
	rootCmd.PersistentFlags().StringVar(&opts.level, "level", "", "Compatibility level: legacy, standard, strict (or v1, v2, v3)")
	rootCmd.PersistentFlags().BoolVar(&opts.json, "json", false, "Output the report as JSON")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	// Add subcommands
	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewValidateCommand(opts))
	rootCmd.AddCommand(NewFixCommand(opts))
	rootCmd.AddCommand(NewInspectCommand(opts))
	rootCmd.AddCommand(NewWatchCommand(opts))
	rootCmd.AddCommand(NewOperatorsCommand(opts))
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the pipecheck version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			// Set GoVersion to actual runtime if not set at build time
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			titleColor := color.New(color.FgCyan, color.Bold)
			out := cmd.OutOrStdout()

			titleColor.Fprint(out, "pipecheck version: ")
			fmt.Fprintln(out, Version)

			titleColor.Fprint(out, "Git commit: ")
			fmt.Fprintln(out, GitCommit)

			titleColor.Fprint(out, "Build date: ")
			fmt.Fprintln(out, BuildDate)

			titleColor.Fprint(out, "Go version: ")
			fmt.Fprintln(out, goVer)
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, ErrInvalidPipeline) && !errors.Is(err, errReported) {
			errorColor := color.New(color.FgRed, color.Bold)
			errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		}
		return err
	}
	return nil
}
