package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"testmgr/internal/cli"
	"testmgr/internal/cli/commands"
	"testmgr/internal/config"
	"testmgr/internal/discovery"
	"testmgr/internal/suites"
)

var version = "dev"

func main() {
	// Create root command
	rootCmd := &cobra.Command{
		Use:           "testmgr",
		Short:         "Tick-driven test manager",
		Long:          `Discover tests, organize them in a tree of groups, and run the selected ones tick by tick inside a live simulation. Selection, locks, results and settings are kept between sessions.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Create initial config with defaults
	cfg := config.New()

	// Create flags struct (will be populated by command flags)
	var flags cli.Flags

	registry := discovery.NewRegistry()
	suites.Register(registry)

	// Create commands with dependencies
	cmds := commands.NewCommands(cfg, registry)

	// Register all commands
	cmds.Register(rootCmd, &flags, cfg)

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
