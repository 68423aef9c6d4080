package compute

import (
	"context"
	"fmt"
	"slices"

	"github.com/imamik/stackctl/internal/provisioning"
)

// UpdateStack replaces the running generation of req's environment.
//
// The existing instances are deregistered from the load balancer, then
// the old containers, instances, task, and cluster are removed on a
// best-effort basis, and finally CreateStack runs again reusing the load
// balancer. No DNS change is made; the domain stays bound to the same
// load balancer.
func (p *Provisioner) UpdateStack(ctx context.Context, req *provisioning.StackRequest, existingInstanceIDs []string) (*provisioning.StackRequest, []*provisioning.TeardownWarning, error) {
	obs := p.observer.WithFields(map[string]string{"stack": req.StackName})

	detach := []provisioning.Step[*provisioning.StackRequest]{
		{Name: "deregister", Policy: provisioning.Mandatory, Run: func(ctx context.Context, req *provisioning.StackRequest) error {
			lb, err := p.balancers.FindLoadBalancer(ctx, req.LoadBalancerName())
			if err != nil {
				return fmt.Errorf("load balancer of %s: %w", req.StackName, err)
			}
			req.LoadBalancer = lb
			if len(existingInstanceIDs) == 0 {
				return nil
			}
			return p.balancers.DeregisterInstances(ctx, lb.Name, existingInstanceIDs)
		}},
	}
	if _, err := provisioning.RunSteps(ctx, obs, phaseUpdate, req, detach); err != nil {
		return req, nil, &provisioning.ProvisionError{Step: provisioning.FailedStep(err), Request: req, Err: err}
	}

	td := &teardown{
		env:         req.Environment,
		stackName:   req.StackName,
		instanceIDs: slices.Clone(existingInstanceIDs),
	}
	if td.instanceIDs == nil {
		td.instanceIDs = []string{}
	}
	retire := []provisioning.Step[*teardown]{
		{Name: "containers", Policy: provisioning.BestEffort, Run: p.deregisterContainers(obs)},
		{Name: "instances", Policy: provisioning.BestEffort, Run: p.terminateInstances(obs)},
		{Name: "task", Policy: provisioning.BestEffort, Run: p.deleteTasks(obs)},
		{Name: "cluster", Policy: provisioning.BestEffort, Run: p.deleteCluster(obs)},
	}
	warnings, _ := provisioning.RunSteps(ctx, obs, phaseUpdate, td, retire)

	req.ReuseLoadBalancer = true
	req.Replaced = slices.Clone(existingInstanceIDs)
	out, err := p.CreateStack(ctx, req)
	return out, warnings, err
}
