package handlers

import (
	"context"
	"fmt"
)

// ProjectCreate creates the project's network scaffold.
func ProjectCreate(ctx context.Context, g Globals, projectID string) error {
	rt, err := setup(ctx, g)
	if err != nil {
		return err
	}
	scaffold, err := rt.orchestrator.CreateProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to create project %s: %w", projectID, err)
	}
	fmt.Fprintf(stdout, "Project %s ready\n", projectID)
	fmt.Fprintf(stdout, "  subnet: %s (%s)\n", scaffold.SubnetID, scaffold.CIDR)
	return nil
}

// ProjectDestroy removes the project's scaffold. It refuses while any
// environment of the project still exists.
func ProjectDestroy(ctx context.Context, g Globals, projectID string) error {
	rt, err := setup(ctx, g)
	if err != nil {
		return err
	}
	if err := rt.orchestrator.DestroyProject(ctx, projectID); err != nil {
		return fmt.Errorf("failed to destroy project %s: %w", projectID, err)
	}
	fmt.Fprintf(stdout, "Project %s destroyed\n", projectID)
	return nil
}

// ProjectList prints every project with a scaffold.
func ProjectList(ctx context.Context, g Globals) error {
	rt, err := setup(ctx, g)
	if err != nil {
		return err
	}
	projects, err := rt.orchestrator.ListProjects(ctx)
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}
	if len(projects) == 0 {
		fmt.Fprintln(stdout, "No projects")
		return nil
	}
	for _, p := range projects {
		fmt.Fprintln(stdout, p)
	}
	return nil
}

// ProjectDescribe prints the project's scaffold and environments.
func ProjectDescribe(ctx context.Context, g Globals, projectID string) error {
	rt, err := setup(ctx, g)
	if err != nil {
		return err
	}
	desc, err := rt.orchestrator.DescribeProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to describe project %s: %w", projectID, err)
	}
	printProject(stdout, desc)
	return nil
}
