package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/stackctl/internal/provisioning"
)

// PROptions identifies a pull request environment and what to run on it.
type PROptions struct {
	Project     string
	Number      string
	AppRef      string
	SSHKeyFiles []string
}

// PRCreate creates the pull request environment. It expires after the
// configured PR TTL.
func PRCreate(ctx context.Context, g Globals, opts PROptions) error {
	rt, err := setup(ctx, g)
	if err != nil {
		return err
	}
	app, err := rt.loadApp(ctx, opts.AppRef)
	if err != nil {
		return err
	}
	keys, err := readSSHKeys(opts.SSHKeyFiles)
	if err != nil {
		return err
	}

	res, err := rt.orchestrator.CreatePR(ctx, opts.Project, opts.Number, app, keys)
	if err != nil {
		return fmt.Errorf("pull request %s/%s failed: %w", opts.Project, opts.Number, err)
	}
	printResult(stdout, "created", res)
	return nil
}

// PRDestroy tears down the pull request environment.
func PRDestroy(ctx context.Context, g Globals, project, number string) error {
	return runDestroy(ctx, g, provisioning.NewPR(project, number))
}
