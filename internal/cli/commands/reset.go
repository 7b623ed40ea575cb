package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"testmgr/internal/cli"
	"testmgr/internal/config"
	"testmgr/internal/discovery"
)

// ResetCommand handles the reset command
type ResetCommand struct {
	config   *config.Config
	registry *discovery.Registry
	in       io.Reader
	flags    *cli.Flags
}

// NewResetCommand creates a new ResetCommand reading the confirmation from in
func NewResetCommand(cfg *config.Config, registry *discovery.Registry, in io.Reader) *ResetCommand {
	return &ResetCommand{config: cfg, registry: registry, in: in, flags: &cli.Flags{}}
}

// Execute runs the command
func (rc *ResetCommand) Execute(cmd *cobra.Command, args []string) error {
	question := "Forget the selection, locks, results and settings of every test?"
	if rc.flags.ResultsOnly {
		question = "Clear the results of every test?"
	}
	if !rc.config.Flags.Yes && !confirm(rc.in, os.Stdout, question) {
		color.Yellow("Nothing was reset")
		return nil
	}

	s, err := openSession(cmd.Context(), rc.config, rc.registry, sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close(context.Background())

	if rc.flags.ResultsOnly {
		s.mgr.ResetAll()
		color.Green("✓ Cleared the results of %d test(s)", len(s.mgr.Tests()))
		return nil
	}
	if err := s.mgr.DoReset(cmd.Context()); err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}
	color.Green("✓ Reset the test manager")
	return nil
}

// confirm asks a yes/no question. Anything but y or yes is a no.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
