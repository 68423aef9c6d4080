package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/stackctl/cmd/stackctl/handlers"
)

// Status returns the status command.
func Status(g *handlers.Globals) *cobra.Command {
	var pr bool

	cmd := &cobra.Command{
		Use:   "status <project> <branch|number>",
		Short: "Show the state of an environment",
		Long: `Status derives an environment's state from its tagged instances:
absent, provisioning, ready, updating, or destroying.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Status(cmd.Context(), *g, args[0], args[1], pr)
		},
	}

	cmd.Flags().BoolVar(&pr, "pr", false, "Treat the second argument as a pull request number")

	return cmd
}
