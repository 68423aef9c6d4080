// Package commands defines the CLI command structure and flag bindings.
//
// Commands parse arguments and flags only. Execution is delegated to the
// handler functions in the handlers package.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/stackctl/cmd/stackctl/handlers"
)

// Root returns the root command for the stackctl CLI.
func Root() *cobra.Command {
	g := &handlers.Globals{}

	cmd := &cobra.Command{
		Use:           "stackctl",
		Short:         "Provision per-branch and per-PR application stacks on AWS",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&g.ConfigPath, "config", "c", "", "Path to stackctl configuration file (default: ./stackctl.yaml)")
	cmd.PersistentFlags().StringVar(&g.LogLevel, "log-level", "", "Log level: debug, info, warn, error")

	cmd.AddCommand(Project(g))
	cmd.AddCommand(Deploy(g))
	cmd.AddCommand(PR(g))
	cmd.AddCommand(Status(g))
	cmd.AddCommand(Reap(g))
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
