package commands

import (
	"os"

	"github.com/spf13/cobra"

	"testmgr/internal/cli"
	"testmgr/internal/config"
	"testmgr/internal/discovery"
	"testmgr/internal/ui"
)

// Commands holds all CLI commands
type Commands struct {
	Run    *RunCommand
	List   *ListCommand
	UI     *UICommand
	State  *StateCommand
	Reset  *ResetCommand
	Report *ReportCommand
}

// NewCommands creates all commands with dependencies. The configuration is filled in by the
// PreRunE hook before any command executes.
func NewCommands(cfg *config.Config, registry *discovery.Registry) *Commands {
	formatter := ui.NewFormatter(os.Stdout, true)
	filter := discovery.NewFilter()

	return &Commands{
		Run:    NewRunCommand(cfg, registry, filter, formatter),
		List:   NewListCommand(cfg, registry, filter, formatter),
		UI:     NewUICommand(cfg, registry),
		State:  NewStateCommand(cfg, registry, formatter),
		Reset:  NewResetCommand(cfg, registry, os.Stdin),
		Report: NewReportCommand(cfg, formatter),
	}
}

// Register registers all commands with cobra
func (c *Commands) Register(rootCmd *cobra.Command, flags *cli.Flags, cfg *config.Config) {
	loadConfig := func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(flags.ToConfigFlags())
		if err != nil {
			return err
		}
		*cfg = *loaded
		return nil
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.ConfigFile, "config", "c", "", "Path to the config file (default: <project>/testmgr.yaml)")
	pf.StringVarP(&flags.ProjectPath, "project", "P", "", "Project directory holding the sources and the state directory")
	pf.StringVar(&flags.Backend, "store", "", "Persisted-state backend: file, redis or mysql")
	pf.StringVar(&flags.StateFormat, "state-format", "", "Format the state is saved in: yaml or legacy")
	pf.StringVar(&flags.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	// Run command
	runCmd := &cobra.Command{
		Use:     "run",
		Short:   "Run the selected tests headlessly",
		Long:    "Run the selected tests in the in-process simulation, tick by tick, and save the report of the run",
		RunE:    c.Run.Execute,
		PreRunE: loadConfig,
	}
	runCmd.Flags().StringVarP(&flags.NameFilter, "filter", "f", "", "Select the tests matching a name pattern before running (supports wildcards, e.g. 'Physics/**' or '*Falls*')")
	runCmd.Flags().BoolVarP(&flags.All, "all", "a", false, "Select every unlocked test before running")
	runCmd.Flags().DurationVar(&flags.TickInterval, "tick", 0, "Interval between scheduler ticks (default 16ms)")
	runCmd.Flags().StringVar(&flags.MetricsAddr, "metrics-addr", "", "Serve /metrics and /status on this address during the run")
	runCmd.Flags().BoolVar(&flags.OpenFailures, "open-failures", false, "Open the failure viewer when the run finishes with failures")
	rootCmd.AddCommand(runCmd)

	// List command
	listCmd := &cobra.Command{
		Use:     "list",
		Short:   "List discovered tests",
		Long:    "Discover the tests and print them as a tree with their last results",
		RunE:    c.List.Execute,
		PreRunE: loadConfig,
	}
	listCmd.Flags().StringVarP(&flags.NameFilter, "filter", "f", "", "Filter tests by name pattern (supports wildcards, e.g. 'Physics/**' or '*Falls*')")
	listCmd.Flags().BoolVarP(&flags.Expanded, "expanded", "e", false, "Print folded groups expanded")
	rootCmd.AddCommand(listCmd)

	// UI command
	uiCmd := &cobra.Command{
		Use:     "ui",
		Short:   "Browse and run tests interactively",
		Long:    "Open the interactive test tree: select, lock, run, pause and stop tests",
		RunE:    c.UI.Execute,
		PreRunE: loadConfig,
	}
	uiCmd.Flags().DurationVar(&flags.TickInterval, "tick", 0, "Interval between scheduler ticks (default 16ms)")
	uiCmd.Flags().StringVar(&flags.MetricsAddr, "metrics-addr", "", "Serve /metrics and /status on this address")
	rootCmd.AddCommand(uiCmd)

	// State command
	stateCmd := &cobra.Command{
		Use:     "state",
		Short:   "Show the persisted manager state",
		RunE:    c.State.Execute,
		PreRunE: loadConfig,
	}
	stateCmd.Flags().BoolVar(&flags.JSON, "json", false, "Print the state as JSON")
	rootCmd.AddCommand(stateCmd)

	// Reset command
	resetCmd := &cobra.Command{
		Use:     "reset",
		Short:   "Forget the persisted selection, locks, results and settings",
		RunE:    c.Reset.Execute,
		PreRunE: loadConfig,
	}
	resetCmd.Flags().BoolVarP(&flags.Yes, "yes", "y", false, "Do not ask for confirmation")
	resetCmd.Flags().BoolVar(&flags.ResultsOnly, "results", false, "Only clear the results of every test")
	rootCmd.AddCommand(resetCmd)

	// Report command
	reportCmd := &cobra.Command{
		Use:     "report",
		Short:   "Show the report of the last run",
		Long:    "Print the report of the last run, or browse its failures interactively",
		RunE:    c.Report.Execute,
		PreRunE: loadConfig,
	}
	reportCmd.Flags().BoolVarP(&flags.Interactive, "interactive", "i", false, "Browse the failures in an interactive viewer")
	reportCmd.Flags().StringVar(&flags.Resolve, "resolve", "", "Mark the failure of a test as resolved")
	rootCmd.AddCommand(reportCmd)

	c.bind(flags)
}

// bind hands the parsed flags to the commands that read more than the config carries.
func (c *Commands) bind(flags *cli.Flags) {
	c.Run.flags = flags
	c.List.flags = flags
	c.State.flags = flags
	c.Reset.flags = flags
	c.Report.flags = flags
}
