package compute

import (
	"context"
	"errors"
	"fmt"

	"github.com/imamik/stackctl/internal/provisioning"
	"github.com/imamik/stackctl/internal/util/async"
	"github.com/imamik/stackctl/internal/util/labels"
	"github.com/imamik/stackctl/internal/util/naming"
)

// DestroyReport summarizes a stack teardown.
type DestroyReport struct {
	StackName              string
	ContainersDeregistered int
	InstancesTerminated    int
	Warnings               []*provisioning.TeardownWarning
}

// teardown is the accumulator for destroy and for replacing a generation
// during update.
type teardown struct {
	env        provisioning.Environment
	stackName  string
	containers collector
	// instanceIDs limits termination to these instances. Nil means every
	// instance tagged with the stack.
	instanceIDs []string
	terminated  int
}

// DestroyStack tears down the environment's compute resources.
//
// Container deregistration and instance termination are mandatory: a
// failure there is returned. Load balancer, task, cluster, and security
// group removal are best-effort and show up as warnings in the report.
// Resources that do not exist count as removed.
func (p *Provisioner) DestroyStack(ctx context.Context, env provisioning.Environment) (*DestroyReport, error) {
	stackName, err := env.StackName()
	if err != nil {
		return nil, err
	}
	obs := p.observer.WithFields(map[string]string{"stack": stackName})
	td := &teardown{env: env, stackName: stackName}

	steps := []provisioning.Step[*teardown]{
		{Name: "containers", Policy: provisioning.Mandatory, Run: p.deregisterContainers(obs)},
		{Name: "instances", Policy: provisioning.Mandatory, Run: p.terminateInstances(obs)},
		{Name: "load-balancer", Policy: provisioning.BestEffort, Run: p.deleteLoadBalancer(obs)},
		{Name: "task", Policy: provisioning.BestEffort, Run: p.deleteTasks(obs)},
		{Name: "cluster", Policy: provisioning.BestEffort, Run: p.deleteCluster(obs)},
		{Name: "security-group", Policy: provisioning.BestEffort, Run: p.deleteSecurityGroup(obs)},
	}

	warnings, err := provisioning.RunSteps(ctx, obs, phaseDestroy, td, steps)
	report := &DestroyReport{
		StackName:              stackName,
		ContainersDeregistered: len(td.containers.ids),
		InstancesTerminated:    td.terminated,
		Warnings:               warnings,
	}
	if err != nil {
		return report, fmt.Errorf("failed to destroy %s: %w", stackName, err)
	}
	return report, nil
}

func (p *Provisioner) deregisterContainers(obs provisioning.Observer) func(context.Context, *teardown) error {
	return func(ctx context.Context, td *teardown) error {
		containers, err := p.compute.ListContainers(ctx, td.stackName)
		if errors.Is(err, provisioning.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		tasks := make([]async.Task, 0, len(containers))
		for _, id := range containers {
			tasks = append(tasks, async.Task{
				Name: id,
				Func: func(ctx context.Context) error {
					provisioning.LogResourceDeleting(obs, phaseDestroy, "container instance", id)
					if err := provisioning.IgnoreNotFound(p.compute.DeregisterContainer(ctx, td.stackName, id)); err != nil {
						return err
					}
					td.containers.add(id)
					return nil
				},
			})
		}
		return async.RunParallel(ctx, tasks)
	}
}

func (p *Provisioner) terminateInstances(obs provisioning.Observer) func(context.Context, *teardown) error {
	return func(ctx context.Context, td *teardown) error {
		ids := td.instanceIDs
		if ids == nil {
			instances, err := p.compute.ListInstances(ctx, labels.ForStack(td.stackName))
			if err != nil {
				return err
			}
			for _, inst := range instances {
				ids = append(ids, inst.ID)
			}
		}
		if len(ids) == 0 {
			return nil
		}

		provisioning.LogResourceDeleting(obs, phaseDestroy, "instances", td.stackName)
		if err := provisioning.IgnoreNotFound(p.compute.TerminateInstances(ctx, ids)); err != nil {
			return err
		}
		td.terminated = len(ids)
		provisioning.LogResourceDeleted(obs, phaseDestroy, "instances", td.stackName)
		return nil
	}
}

func (p *Provisioner) deleteLoadBalancer(obs provisioning.Observer) func(context.Context, *teardown) error {
	return func(ctx context.Context, td *teardown) error {
		name := naming.LoadBalancer(td.stackName)
		provisioning.LogResourceDeleting(obs, phaseDestroy, "load balancer", name)
		if err := provisioning.IgnoreNotFound(p.balancers.DeleteLoadBalancer(ctx, name)); err != nil {
			return err
		}
		provisioning.LogResourceDeleted(obs, phaseDestroy, "load balancer", name)
		return nil
	}
}

func (p *Provisioner) deleteTasks(obs provisioning.Observer) func(context.Context, *teardown) error {
	return func(ctx context.Context, td *teardown) error {
		provisioning.LogResourceDeleting(obs, phaseDestroy, "task", td.stackName)
		if err := provisioning.IgnoreNotFound(p.compute.DeleteTasks(ctx, td.stackName, td.stackName)); err != nil {
			return err
		}
		provisioning.LogResourceDeleted(obs, phaseDestroy, "task", td.stackName)
		return nil
	}
}

func (p *Provisioner) deleteCluster(obs provisioning.Observer) func(context.Context, *teardown) error {
	return func(ctx context.Context, td *teardown) error {
		provisioning.LogResourceDeleting(obs, phaseDestroy, "cluster", td.stackName)
		if err := provisioning.IgnoreNotFound(p.compute.DeleteCluster(ctx, td.stackName)); err != nil {
			return err
		}
		provisioning.LogResourceDeleted(obs, phaseDestroy, "cluster", td.stackName)
		return nil
	}
}

func (p *Provisioner) deleteSecurityGroup(obs provisioning.Observer) func(context.Context, *teardown) error {
	return func(ctx context.Context, td *teardown) error {
		id, err := p.security.FindSecurityGroup(ctx, p.networkID, td.stackName)
		if errors.Is(err, provisioning.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		provisioning.LogResourceDeleting(obs, phaseDestroy, "security group", id)
		if err := provisioning.IgnoreNotFound(p.security.DeleteSecurityGroup(ctx, id)); err != nil {
			return err
		}
		provisioning.LogResourceDeleted(obs, phaseDestroy, "security group", id)
		return nil
	}
}
