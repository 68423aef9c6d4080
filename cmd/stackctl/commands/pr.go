package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/stackctl/cmd/stackctl/handlers"
)

// PR returns the pull request environment command group.
func PR(g *handlers.Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pr",
		Short: "Manage pull request environments",
		Long: `A pull request environment is served at pr-<number>-<project> and expires
after the configured TTL. Expired environments are removed by "stackctl reap".`,
	}

	var opts handlers.PROptions
	create := &cobra.Command{
		Use:     "create <project> <number>",
		Short:   "Create a pull request environment",
		Example: "  stackctl pr create shop 42 --app app.yaml --ssh-key ~/.ssh/id_ed25519.pub",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Project = args[0]
			opts.Number = args[1]
			return handlers.PRCreate(cmd.Context(), *g, opts)
		},
	}
	create.Flags().StringVar(&opts.AppRef, "app", "", "Application descriptor: local file or s3://bucket/key (required)")
	create.Flags().StringArrayVar(&opts.SSHKeyFiles, "ssh-key", nil, "Public key file installed on the instances (repeatable)")
	_ = create.MarkFlagRequired("app")

	cmd.AddCommand(create)
	cmd.AddCommand(&cobra.Command{
		Use:   "destroy <project> <number>",
		Short: "Tear down a pull request environment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.PRDestroy(cmd.Context(), *g, args[0], args[1])
		},
	})

	return cmd
}
