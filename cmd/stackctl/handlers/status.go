package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/stackctl/internal/provisioning"
)

// Status prints the derived state of an environment. name is a branch, or
// a pull request number when pr is set.
func Status(ctx context.Context, g Globals, project, name string, pr bool) error {
	rt, err := setup(ctx, g)
	if err != nil {
		return err
	}
	env := provisioning.NewDeployment(project, name, "")
	if pr {
		env = provisioning.NewPR(project, name)
	}
	st, err := rt.orchestrator.Status(ctx, env)
	if err != nil {
		return fmt.Errorf("failed to get status of %s: %w", env, err)
	}
	printStatus(stdout, st)
	return nil
}
