package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/imamik/stackctl/cmd/stackctl/handlers"
)

// Deploy returns the branch deployment command group.
func Deploy(g *handlers.Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Manage branch deployments",
		Long: `A deployment runs one branch of a project. The main and master branches
are served at the project's own domain, other branches at <branch>-<project>.`,
	}

	cmd.AddCommand(deployCommand(g, "create", "Create a branch deployment", handlers.DeployCreate))
	cmd.AddCommand(deployCommand(g, "update", "Replace the running generation of a ready deployment", handlers.DeployUpdate))
	cmd.AddCommand(deployCommand(g, "apply", "Create the deployment, or update it when it is ready", handlers.DeployApply))
	cmd.AddCommand(&cobra.Command{
		Use:   "destroy <project> <branch>",
		Short: "Tear down a branch deployment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.DeployDestroy(cmd.Context(), *g, args[0], args[1])
		},
	})

	return cmd
}

type deployFunc func(ctx context.Context, g handlers.Globals, opts handlers.DeployOptions) error

func deployCommand(g *handlers.Globals, use, short string, run deployFunc) *cobra.Command {
	var opts handlers.DeployOptions

	cmd := &cobra.Command{
		Use:   use + " <project> <branch>",
		Short: short,
		Example: `  stackctl deploy ` + use + ` shop feature-login --revision 3f2c1ab --app app.yaml
  stackctl deploy ` + use + ` shop main --app s3://descriptors/shop/app.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Project = args[0]
			opts.Branch = args[1]
			return run(cmd.Context(), *g, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Revision, "revision", "", "Source revision recorded on the environment")
	cmd.Flags().StringVar(&opts.AppRef, "app", "", "Application descriptor: local file or s3://bucket/key (required)")
	cmd.Flags().StringArrayVar(&opts.SSHKeyFiles, "ssh-key", nil, "Public key file installed on the instances (repeatable)")
	_ = cmd.MarkFlagRequired("app")

	return cmd
}
