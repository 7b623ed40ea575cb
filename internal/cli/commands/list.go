package commands

import (
	"context"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"testmgr/internal/cli"
	"testmgr/internal/config"
	"testmgr/internal/discovery"
	"testmgr/internal/foldout"
	"testmgr/internal/ui"
)

// ListCommand handles the list command
type ListCommand struct {
	config    *config.Config
	registry  *discovery.Registry
	filter    *discovery.Filter
	formatter *ui.Formatter
	flags     *cli.Flags
}

// NewListCommand creates a new ListCommand
func NewListCommand(
	cfg *config.Config,
	registry *discovery.Registry,
	filter *discovery.Filter,
	formatter *ui.Formatter,
) *ListCommand {
	return &ListCommand{
		config:    cfg,
		registry:  registry,
		filter:    filter,
		formatter: formatter,
		flags:     &cli.Flags{},
	}
}

// Execute runs the command
func (lc *ListCommand) Execute(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context(), lc.config, lc.registry, sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close(context.Background())

	tree := s.mgr.Tree()
	expanded := lc.flags.Expanded
	if pattern := lc.config.Flags.NameFilter; pattern != "" {
		// Only the matches, in a tree of their own, so the persisted tree stays whole.
		filtered := foldout.New()
		for _, test := range tree.AllTests() {
			if lc.filter.Match(test.Descriptor, pattern) {
				filtered.AttachTest(test)
			}
		}
		tree = filtered
		expanded = true
	}

	if len(tree.AllTests()) == 0 {
		color.Yellow("No tests found")
		return nil
	}

	lc.formatter.PrintTree(tree, expanded)
	return nil
}
