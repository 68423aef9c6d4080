package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/stackctl/cmd/stackctl/handlers"
)

// Project returns the project command group.
func Project(g *handlers.Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage project network scaffolds",
		Long: `A project owns one subnet and one network ACL inside the account network.
Every environment of the project is launched into that subnet.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create <project>",
		Short: "Create the project's subnet and ACL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.ProjectCreate(cmd.Context(), *g, args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "destroy <project>",
		Short: "Remove the project's subnet and ACL",
		Long: `Destroy removes the project's subnet and network ACL.

It refuses while any environment of the project still has instances.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.ProjectDestroy(cmd.Context(), *g, args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.ProjectList(cmd.Context(), *g)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "describe <project>",
		Short: "Show a project's scaffold and environments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.ProjectDescribe(cmd.Context(), *g, args[0])
		},
	})

	return cmd
}
