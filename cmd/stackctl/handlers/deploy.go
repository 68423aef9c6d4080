package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/stackctl/internal/orchestration"
	"github.com/imamik/stackctl/internal/provisioning"
)

// DeployOptions identifies a branch deployment and what to run on it.
type DeployOptions struct {
	Project  string
	Branch   string
	Revision string
	// AppRef is a local descriptor path or an s3:// reference.
	AppRef string
	// SSHKeyFiles are public key files installed on the instances.
	SSHKeyFiles []string
}

func (o DeployOptions) environment(sshKeys []string) provisioning.Environment {
	env := provisioning.NewDeployment(o.Project, o.Branch, o.Revision)
	env.SSHKeys = sshKeys
	return env
}

// DeployCreate creates the branch deployment.
func DeployCreate(ctx context.Context, g Globals, opts DeployOptions) error {
	return runDeploy(ctx, g, opts, "created", (*orchestration.Orchestrator).Create)
}

// DeployUpdate replaces the running generation of the branch deployment.
func DeployUpdate(ctx context.Context, g Globals, opts DeployOptions) error {
	return runDeploy(ctx, g, opts, "updated", (*orchestration.Orchestrator).Update)
}

// DeployApply creates the deployment or updates it when it is ready.
func DeployApply(ctx context.Context, g Globals, opts DeployOptions) error {
	return runDeploy(ctx, g, opts, "deployed", (*orchestration.Orchestrator).Deploy)
}

type envOperation func(o *orchestration.Orchestrator, ctx context.Context, env provisioning.Environment, app provisioning.AppDescriptor) (*orchestration.Result, error)

func runDeploy(ctx context.Context, g Globals, opts DeployOptions, verb string, op envOperation) error {
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

	res, err := op(rt.orchestrator, ctx, opts.environment(keys), app)
	if err != nil {
		return fmt.Errorf("deploy %s/%s failed: %w", opts.Project, opts.Branch, err)
	}
	printResult(stdout, verb, res)
	return nil
}

// DeployDestroy tears down the branch deployment.
func DeployDestroy(ctx context.Context, g Globals, project, branch string) error {
	return runDestroy(ctx, g, provisioning.NewDeployment(project, branch, ""))
}

func runDestroy(ctx context.Context, g Globals, env provisioning.Environment) error {
	rt, err := setup(ctx, g)
	if err != nil {
		return err
	}
	res, err := rt.orchestrator.Destroy(ctx, env)
	if err != nil {
		return fmt.Errorf("destroy %s failed: %w", env, err)
	}
	fmt.Fprintf(stdout, "Environment %s destroyed\n", res.Environment)
	printWarnings(stdout, res.Warnings)
	return nil
}
