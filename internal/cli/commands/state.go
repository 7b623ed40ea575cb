package commands

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"testmgr/internal/cli"
	"testmgr/internal/config"
	"testmgr/internal/discovery"
	"testmgr/internal/ui"
)

// StateCommand handles the state command
type StateCommand struct {
	config    *config.Config
	registry  *discovery.Registry
	formatter *ui.Formatter
	flags     *cli.Flags
}

// NewStateCommand creates a new StateCommand
func NewStateCommand(cfg *config.Config, registry *discovery.Registry, formatter *ui.Formatter) *StateCommand {
	return &StateCommand{config: cfg, registry: registry, formatter: formatter, flags: &cli.Flags{}}
}

// Execute runs the command
func (sc *StateCommand) Execute(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context(), sc.config, sc.registry, sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close(context.Background())

	st := s.mgr.State()
	if sc.flags.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}
	sc.formatter.PrintState(st)
	return nil
}
