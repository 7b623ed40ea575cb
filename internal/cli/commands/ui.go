package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"testmgr/internal/config"
	"testmgr/internal/discovery"
	"testmgr/internal/ui"
)

// UICommand handles the ui command
type UICommand struct {
	config   *config.Config
	registry *discovery.Registry
}

// NewUICommand creates a new UICommand
func NewUICommand(cfg *config.Config, registry *discovery.Registry) *UICommand {
	return &UICommand{config: cfg, registry: registry}
}

// Execute runs the command
func (uc *UICommand) Execute(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context(), uc.config, uc.registry, sessionOptions{logToFile: true})
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

	browser := ui.NewBrowser(s.mgr, uc.config.TickInterval)
	browser.SetAfterUpdate(s.publish)
	return browser.Run(cmd.Context())
}
