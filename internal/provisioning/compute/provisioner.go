package compute

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/imamik/stackctl/internal/provisioning"
	"github.com/imamik/stackctl/internal/util/labels"
	"github.com/imamik/stackctl/internal/util/naming"
)

const (
	phaseCreate  = "create"
	phaseUpdate  = "update"
	phaseDestroy = "destroy"

	sshPort = 22
)

// DefaultIngressPorts are opened on every environment's security group.
var DefaultIngressPorts = []int32{80, 443}

// ScaffoldFinder resolves a project's network scaffold.
type ScaffoldFinder interface {
	Find(ctx context.Context, projectID string) (*provisioning.Scaffold, error)
}

// Config tunes the shape of provisioned stacks.
type Config struct {
	// InstanceCount is the number of backing instances per environment.
	InstanceCount int
	// IngressPorts are opened to the world on the security group.
	IngressPorts []int32
}

// Provisioner creates, updates, and destroys environment stacks.
type Provisioner struct {
	security  provisioning.SecurityAPI
	compute   provisioning.ComputeAPI
	balancers provisioning.LoadBalancerAPI
	scaffolds ScaffoldFinder
	networkID string
	cfg       Config
	observer  provisioning.Observer
}

// NewProvisioner returns a provisioner bound to the account network.
func NewProvisioner(
	provider interface {
		provisioning.SecurityAPI
		provisioning.ComputeAPI
		provisioning.LoadBalancerAPI
	},
	scaffolds ScaffoldFinder,
	networkID string,
	cfg Config,
	observer provisioning.Observer,
) *Provisioner {
	if cfg.InstanceCount <= 0 {
		cfg.InstanceCount = 1
	}
	if len(cfg.IngressPorts) == 0 {
		cfg.IngressPorts = DefaultIngressPorts
	}
	if observer == nil {
		observer = provisioning.NopObserver{}
	}
	return &Provisioner{
		security:  provider,
		compute:   provider,
		balancers: provider,
		scaffolds: scaffolds,
		networkID: networkID,
		cfg:       cfg,
		observer:  observer,
	}
}

// CreateStack provisions every compute resource of req's environment.
//
// Steps run in order; each group inside a step runs concurrently:
//
//  1. scaffold lookup
//  2. security group ‖ cluster
//  3. instances ‖ load balancer
//  4. task definition and service
//  5. load balancer registration
//
// On failure the returned *provisioning.ProvisionError carries req with
// everything created so far.
func (p *Provisioner) CreateStack(ctx context.Context, req *provisioning.StackRequest) (*provisioning.StackRequest, error) {
	obs := p.observer.WithFields(map[string]string{"stack": req.StackName})

	steps := []provisioning.Step[*provisioning.StackRequest]{
		{Name: "scaffold", Policy: provisioning.Mandatory, Run: p.resolveScaffold},
		provisioning.Parallel("security-group+cluster", provisioning.Mandatory,
			provisioning.Step[*provisioning.StackRequest]{Name: "security-group", Run: p.ensureSecurityGroup(obs)},
			provisioning.Step[*provisioning.StackRequest]{Name: "cluster", Run: p.createCluster(obs)},
		),
		provisioning.Parallel("instances+load-balancer", provisioning.Mandatory,
			provisioning.Step[*provisioning.StackRequest]{Name: "instances", Run: p.launchInstances(obs)},
			provisioning.Step[*provisioning.StackRequest]{Name: "load-balancer", Run: p.ensureLoadBalancer(obs)},
		),
		{Name: "task", Policy: provisioning.Mandatory, Run: p.createTask(obs)},
		{Name: "register", Policy: provisioning.Mandatory, Run: p.registerInstances},
	}

	if _, err := provisioning.RunSteps(ctx, obs, phaseCreate, req, steps); err != nil {
		return req, &provisioning.ProvisionError{
			Step:    provisioning.FailedStep(err),
			Request: req,
			Err:     err,
		}
	}
	return req, nil
}

// ResumeStack finishes a stack whose instances are already running after
// an earlier create stopped part way. The live instances and any existing
// load balancer are reused; the remaining steps are idempotent.
func (p *Provisioner) ResumeStack(ctx context.Context, req *provisioning.StackRequest, status *StackStatus) (*provisioning.StackRequest, error) {
	req.InstanceIDs = provisioning.LiveInstanceIDs(status.Instances)
	if status.LoadBalancer != nil {
		req.LoadBalancer = status.LoadBalancer
		req.ReuseLoadBalancer = true
	}
	return p.CreateStack(ctx, req)
}

// Missing names the create steps whose results are absent from status:
// "load-balancer", "register" when a live instance is not registered, and
// "task". An empty result means the compute stack is complete.
func (p *Provisioner) Missing(ctx context.Context, status *StackStatus) ([]string, error) {
	var missing []string
	if status.LoadBalancer == nil {
		missing = append(missing, "load-balancer", "register")
	} else {
		for _, id := range provisioning.LiveInstanceIDs(status.Instances) {
			if !slices.Contains(status.LoadBalancer.InstanceIDs, id) {
				missing = append(missing, "register")
				break
			}
		}
	}

	_, err := p.compute.FindTask(ctx, status.StackName, status.StackName)
	switch {
	case errors.Is(err, provisioning.ErrNotFound):
		missing = append(missing, "task")
	case err != nil:
		return nil, fmt.Errorf("failed to find task of %s: %w", status.StackName, err)
	}
	return missing, nil
}

// StackStatus is what the provider currently holds for one stack.
type StackStatus struct {
	StackName    string
	Instances    []provisioning.Instance
	LoadBalancer *provisioning.LoadBalancer
}

// Describe returns the stack's tagged instances and its load balancer.
// A stack with nothing provisioned yields an empty status, not an error.
func (p *Provisioner) Describe(ctx context.Context, env provisioning.Environment) (*StackStatus, error) {
	stackName, err := env.StackName()
	if err != nil {
		return nil, err
	}
	instances, err := p.compute.ListInstances(ctx, labels.ForStack(stackName))
	if err != nil {
		return nil, fmt.Errorf("failed to list instances of %s: %w", stackName, err)
	}
	status := &StackStatus{StackName: stackName, Instances: instances}

	lb, err := p.balancers.FindLoadBalancer(ctx, naming.LoadBalancer(stackName))
	switch {
	case err == nil:
		status.LoadBalancer = lb
	case !errors.Is(err, provisioning.ErrNotFound):
		return nil, fmt.Errorf("failed to describe load balancer of %s: %w", stackName, err)
	}
	return status, nil
}

func (p *Provisioner) resolveScaffold(ctx context.Context, req *provisioning.StackRequest) error {
	if req.Scaffold != nil {
		return nil
	}
	s, err := p.scaffolds.Find(ctx, req.Environment.ProjectID)
	if err != nil {
		return fmt.Errorf("project %s has no network scaffold: %w", req.Environment.ProjectID, err)
	}
	req.Scaffold = s
	return nil
}

func (p *Provisioner) ensureSecurityGroup(obs provisioning.Observer) func(context.Context, *provisioning.StackRequest) error {
	return func(ctx context.Context, req *provisioning.StackRequest) error {
		id, err := p.security.FindSecurityGroup(ctx, p.networkID, req.StackName)
		if err == nil {
			provisioning.LogResourceExists(obs, phaseCreate, "security group", req.StackName, id)
			req.SecurityGroupID = id
			return nil
		}
		if !errors.Is(err, provisioning.ErrNotFound) {
			return err
		}

		ports := slices.Clone(p.cfg.IngressPorts)
		if len(req.Environment.SSHKeys) > 0 && !slices.Contains(ports, sshPort) {
			ports = append(ports, sshPort)
		}

		provisioning.LogResourceCreating(obs, phaseCreate, "security group", req.StackName)
		id, err = p.security.CreateSecurityGroup(ctx, provisioning.SecurityGroupSpec{
			Name:         req.StackName,
			NetworkID:    p.networkID,
			Description:  "stackctl " + req.Environment.String(),
			IngressPorts: ports,
			Tags:         req.Tags,
		})
		if errors.Is(err, provisioning.ErrAlreadyExists) {
			id, err = p.security.FindSecurityGroup(ctx, p.networkID, req.StackName)
		}
		if err != nil {
			return err
		}
		provisioning.LogResourceCreated(obs, phaseCreate, "security group", req.StackName, id)
		req.SecurityGroupID = id
		return nil
	}
}

func (p *Provisioner) createCluster(obs provisioning.Observer) func(context.Context, *provisioning.StackRequest) error {
	return func(ctx context.Context, req *provisioning.StackRequest) error {
		provisioning.LogResourceCreating(obs, phaseCreate, "cluster", req.StackName)
		id, err := p.compute.CreateCluster(ctx, req.StackName, req.Tags)
		if err != nil {
			return err
		}
		provisioning.LogResourceCreated(obs, phaseCreate, "cluster", req.StackName, id)
		req.ClusterID = id
		return nil
	}
}

// launchInstances waits on the security group by reading it from req;
// step 2 has completed before step 3 starts.
func (p *Provisioner) launchInstances(obs provisioning.Observer) func(context.Context, *provisioning.StackRequest) error {
	return func(ctx context.Context, req *provisioning.StackRequest) error {
		if len(req.InstanceIDs) > 0 {
			provisioning.LogResourceExists(obs, phaseCreate, "instances", req.StackName, strings.Join(req.InstanceIDs, ","))
			return nil
		}
		scope := "instances:" + req.Environment.Revision
		if len(req.Replaced) > 0 {
			scope += ":" + strings.Join(req.Replaced, ",")
		}

		provisioning.LogResourceCreating(obs, phaseCreate, "instances", req.StackName)
		ids, err := p.compute.LaunchInstances(ctx, provisioning.InstanceSpec{
			ClusterName:     req.StackName,
			SubnetID:        req.Scaffold.SubnetID,
			SecurityGroupID: req.SecurityGroupID,
			Count:           p.cfg.InstanceCount,
			SSHKeys:         req.Environment.SSHKeys,
			Tags:            req.Tags,
			ClientToken:     naming.ClientToken(req.StackName, scope),
		})
		if err != nil {
			return err
		}
		provisioning.LogResourceCreated(obs, phaseCreate, "instances", req.StackName, strings.Join(ids, ","))
		req.InstanceIDs = ids
		return nil
	}
}

func (p *Provisioner) ensureLoadBalancer(obs provisioning.Observer) func(context.Context, *provisioning.StackRequest) error {
	return func(ctx context.Context, req *provisioning.StackRequest) error {
		if req.ReuseLoadBalancer && req.LoadBalancer != nil {
			provisioning.LogResourceExists(obs, phaseCreate, "load balancer", req.LoadBalancer.Name, req.LoadBalancer.DNSName)
			return nil
		}
		name := req.LoadBalancerName()
		provisioning.LogResourceCreating(obs, phaseCreate, "load balancer", name)
		lb, err := p.balancers.CreateLoadBalancer(ctx, provisioning.LoadBalancerSpec{
			Name:            name,
			SubnetID:        req.Scaffold.SubnetID,
			SecurityGroupID: req.SecurityGroupID,
			Tags:            req.Tags,
		})
		if err != nil {
			return err
		}
		provisioning.LogResourceCreated(obs, phaseCreate, "load balancer", name, lb.DNSName)
		req.LoadBalancer = lb
		return nil
	}
}

func (p *Provisioner) createTask(obs provisioning.Observer) func(context.Context, *provisioning.StackRequest) error {
	return func(ctx context.Context, req *provisioning.StackRequest) error {
		provisioning.LogResourceCreating(obs, phaseCreate, "task", req.StackName)
		task, err := p.compute.CreateTask(ctx, provisioning.TaskSpec{
			ClusterName:      req.StackName,
			Family:           req.StackName,
			Revision:         req.Environment.Revision,
			App:              req.App,
			LoadBalancerName: req.LoadBalancer.Name,
			Tags:             req.Tags,
		})
		if err != nil {
			return err
		}
		provisioning.LogResourceCreated(obs, phaseCreate, "task", req.StackName, task.Family)
		req.Task = task
		return nil
	}
}

func (p *Provisioner) registerInstances(ctx context.Context, req *provisioning.StackRequest) error {
	return p.balancers.RegisterInstances(ctx, req.LoadBalancer.Name, req.InstanceIDs)
}

// collector guards slices appended to from parallel tasks.
type collector struct {
	mu  sync.Mutex
	ids []string
}

func (c *collector) add(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = append(c.ids, id)
}
