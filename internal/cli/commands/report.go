package commands

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"testmgr/internal/cli"
	"testmgr/internal/config"
	"testmgr/internal/storage"
	"testmgr/internal/ui"
)

// ReportCommand handles the report command
type ReportCommand struct {
	config    *config.Config
	formatter *ui.Formatter
	flags     *cli.Flags
}

// NewReportCommand creates a new ReportCommand
func NewReportCommand(cfg *config.Config, formatter *ui.Formatter) *ReportCommand {
	return &ReportCommand{config: cfg, formatter: formatter, flags: &cli.Flags{}}
}

// Execute runs the command
func (rc *ReportCommand) Execute(cmd *cobra.Command, args []string) error {
	reports := storage.NewReportStore(rc.config.GetReportPath())

	if id := rc.flags.Resolve; id != "" {
		found, err := reports.Resolve(id)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("no failure recorded for %s", id)
		}
		color.Green("✓ Marked %s as resolved", id)
		return nil
	}

	report, err := reports.Load()
	if err != nil {
		return err
	}
	if rc.flags.Interactive {
		return ui.NewFailureViewer(reports, os.Stdout).View(report)
	}
	rc.formatter.PrintReport(report)
	return nil
}
