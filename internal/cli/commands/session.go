package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/pipecheck/internal/cli/config"
	"github.com/conduit-lang/pipecheck/internal/cli/ui"
	"github.com/conduit-lang/pipecheck/internal/graph"
	"github.com/conduit-lang/pipecheck/internal/logging"
	"github.com/conduit-lang/pipecheck/internal/metadata"
	"github.com/conduit-lang/pipecheck/internal/operators"
	"github.com/conduit-lang/pipecheck/internal/pipeline"
)

// errReported marks errors that were already rendered for the user
var errReported = errors.New("error already reported")

func reported(err error) error {
	return fmt.Errorf("%w: %w", errReported, err)
}

// session is the resolved configuration of one command invocation
type session struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *operators.Registry
	level    *metadata.CompatibilityLevel
	json     bool
	noColor  bool
	out      io.Writer
	errOut   io.Writer
}

// newSession loads the configuration and applies the persistent flags on
// top of it
func (o *rootOptions) newSession(cmd *cobra.Command) (*session, error) {
	s := &session{
		registry: operators.NewBuiltinRegistry(),
		out:      cmd.OutOrStdout(),
		errOut:   cmd.ErrOrStderr(),
		noColor:  o.noColor,
	}

	cfg, err := config.LoadFrom(o.configDir)
	if err != nil {
		fmt.Fprint(s.errOut, ui.ConfigError(err.Error(), s.noColor))
		return nil, reported(err)
	}
	s.cfg = cfg
	s.json = o.json || cfg.Output.Format == config.FormatJSON
	s.noColor = s.noColor || cfg.Output.NoColor

	if o.level != "" {
		level, err := metadata.ParseLevel(o.level)
		if err != nil {
			return nil, fmt.Errorf("invalid --level: %w", err)
		}
		s.level = &level
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	s.logger = logger
	return s, nil
}

// build loads the pipeline at path and builds its graph. The level comes
// from the --level flag, then the file, then the configuration.
func (s *session) build(path string) (*pipeline.Definition, *graph.Graph, error) {
	def, err := pipeline.Load(path)
	if err != nil {
		fmt.Fprint(s.errOut, ui.PipelineError(path, err, s.noColor))
		return nil, nil, reported(err)
	}

	opts := []graph.Option{graph.WithLogger(s.logger.With(zap.String("pipeline", path)))}
	if _, ok := def.Level(); !ok {
		opts = append(opts, graph.WithLevel(s.cfg.Level()))
	}
	if s.level != nil {
		opts = append(opts, graph.WithLevel(*s.level))
	}

	g, err := pipeline.Build(def, s.registry, opts...)
	if err != nil {
		fmt.Fprint(s.errOut, ui.PipelineError(path, err, s.noColor))
		return nil, nil, reported(err)
	}
	return def, g, nil
}

// render writes the report as JSON or text
func (s *session) render(report *graph.Report) error {
	if s.json {
		data, err := report.ToJSON()
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		fmt.Fprintln(s.out, data)
		return nil
	}
	ui.WriteReport(s.out, report, s.noColor)
	return nil
}

// structure prints graph-level problems that propagation cannot express
// on a port
func (s *session) structure(g *graph.Graph) {
	if s.json {
		return
	}
	if err := g.CheckStructure(); err != nil {
		fmt.Fprint(s.errOut, ui.Warning(err.Error(), s.noColor))
	}
}
