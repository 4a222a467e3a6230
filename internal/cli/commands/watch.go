package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/pipecheck/internal/cli/ui"
	"github.com/conduit-lang/pipecheck/internal/watch"
)

// NewWatchCommand creates the watch command
func NewWatchCommand(opts *rootOptions) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch <pipeline.yml>",
		Short: "Re-validate a pipeline whenever it changes",
		Long: `Validate the pipeline, then watch the file and validate it again each
time it is saved. Bursts of saves are coalesced; the delay defaults to
watch.debounce from pipecheck.yml.

Examples:
  pipecheck watch pipeline.yml
  pipecheck watch pipeline.yml --debounce 500ms`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completePipelineFiles,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.newSession(cmd)
			if err != nil {
				return err
			}
			defer s.logger.Sync() //nolint:errcheck

			if debounce <= 0 {
				debounce = s.cfg.Watch.Debounce
			}
			path := args[0]
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("cannot watch %s: %w", path, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// Debounced callbacks may overlap; validations must not.
			var mu sync.Mutex
			run := func() {
				mu.Lock()
				defer mu.Unlock()
				s.watchOnce(ctx, path)
			}

			run()

			fw, err := watch.NewFileWatcher([]string{path}, debounce, s.logger, func(files []string) error {
				if !s.json {
					timestamp := color.New(color.FgHiBlack)
					if s.noColor {
						timestamp.DisableColor()
					}
					timestamp.Fprintf(s.out, "[%s] %s changed\n", time.Now().Format("15:04:05"), path)
				}
				run()
				return nil
			})
			if err != nil {
				return err
			}
			if err := fw.Start(); err != nil {
				return err
			}

			if !s.json {
				fmt.Fprint(s.out, ui.Info(fmt.Sprintf("Watching %s. Press Ctrl+C to stop.", path), s.noColor))
			}

			<-ctx.Done()
			return fw.Stop()
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 0, "Delay after the last change before validating")

	return cmd
}

// watchOnce validates path and prints the result. Load errors are printed
// and otherwise ignored so that watching continues.
func (s *session) watchOnce(ctx context.Context, path string) {
	_, g, err := s.build(path)
	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprint(s.errOut, ui.PipelineError(path, err, s.noColor))
		}
		return
	}
	s.structure(g)
	if err := s.render(g.Propagate(ctx)); err != nil {
		fmt.Fprint(s.errOut, ui.Warning(err.Error(), s.noColor))
	}
}
