package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"testmgr/internal/cli"
	"testmgr/internal/config"
	"testmgr/internal/discovery"
	"testmgr/internal/domain"
	"testmgr/internal/execution"
	"testmgr/internal/ui"
)

// RunCommand handles the run command
type RunCommand struct {
	config    *config.Config
	registry  *discovery.Registry
	filter    *discovery.Filter
	formatter *ui.Formatter
	flags     *cli.Flags
}

// NewRunCommand creates a new RunCommand
func NewRunCommand(
	cfg *config.Config,
	registry *discovery.Registry,
	filter *discovery.Filter,
	formatter *ui.Formatter,
) *RunCommand {
	return &RunCommand{
		config:    cfg,
		registry:  registry,
		filter:    filter,
		formatter: formatter,
		flags:     &cli.Flags{},
	}
}

// Execute runs the command
func (rc *RunCommand) Execute(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progress := ui.NewProgressBar(os.Stdout)
	s, err := openSession(ctx, rc.config, rc.registry, sessionOptions{
		recorders: []execution.Recorder{progress},
		sinks:     []execution.ReportSink{progress},
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(context.Background()); err != nil {
			s.log.WithError(err).Warn("could not save the state")
		}
	}()

	if err := s.serveMetrics(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	tests := rc.targets(s.mgr.Tests())
	driver := execution.NewDriver(s.mgr.Scheduler(), rc.config.TickInterval)
	driver.SetStep(s.update)

	report, err := driver.Execute(ctx, tests)
	if errors.Is(err, execution.ErrNothingToRun) {
		color.Yellow("No tests to execute")
		return nil
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run failed: %w", err)
	}

	rc.formatter.PrintReport(&report)

	if report.Meta.FailedTests > 0 {
		if rc.flags.OpenFailures {
			if err := ui.NewFailureViewer(s.reports, os.Stdout).View(&report); err != nil {
				return err
			}
		}
		return fmt.Errorf("%d test(s) failed", report.Meta.FailedTests)
	}
	if report.Meta.Outcome != domain.OutcomeCompleted {
		return fmt.Errorf("run %s", report.Meta.Outcome)
	}
	return nil
}

// targets selects what --all and --filter ask for and returns the tests in tree order. Like
// pressing the checkboxes in the browser, the selection is kept afterwards.
func (rc *RunCommand) targets(tests []*domain.Test) []*domain.Test {
	pattern := rc.config.Flags.NameFilter
	if rc.flags.All || pattern != "" {
		for _, test := range tests {
			test.SetSelected(rc.filter.Match(test.Descriptor, pattern))
		}
	}
	return tests
}
