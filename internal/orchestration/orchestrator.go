package orchestration

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/imamik/stackctl/internal/provisioning"
	"github.com/imamik/stackctl/internal/util/labels"
)

// DefaultPRTTL is how long a pull request environment lives before the
// reaper may destroy it.
const DefaultPRTTL = 72 * time.Hour

// Result is the outcome of a create, update, or deploy.
type Result struct {
	Environment provisioning.Environment
	StackName   string
	Domain      string
	State       EnvState
	// Created is false when the environment already existed and nothing
	// was provisioned.
	Created  bool
	Warnings []*provisioning.TeardownWarning
}

// DestroyResult is the outcome of a destroy.
type DestroyResult struct {
	Environment provisioning.Environment
	StackName   string
	Warnings    []*provisioning.TeardownWarning
}

// ProjectDescription lists a project's scaffold and environments.
type ProjectDescription struct {
	ProjectID    string
	Scaffold     *provisioning.Scaffold
	Environments []*Status
}

// Orchestrator drives environment lifecycles. It holds no environment
// state between calls; every operation re-derives state from the provider.
type Orchestrator struct {
	bootstrap *Bootstrap
	observer  provisioning.Observer
	prTTL     time.Duration
	now       func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPRTTL sets the lifetime of pull request environments.
func WithPRTTL(ttl time.Duration) Option {
	return func(o *Orchestrator) {
		if ttl > 0 {
			o.prTTL = ttl
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithObserver sets the observer receiving workflow events.
func WithObserver(obs provisioning.Observer) Option {
	return func(o *Orchestrator) {
		o.observer = obs
	}
}

// New returns an orchestrator over bootstrap.
func New(bootstrap *Bootstrap, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		bootstrap: bootstrap,
		observer:  provisioning.NopObserver{},
		prTTL:     DefaultPRTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.observer = withMetrics(o.observer)
	return o
}

// CreateDeployment creates the branch deployment of project, or returns
// the existing one when it is already ready.
func (o *Orchestrator) CreateDeployment(ctx context.Context, projectID, branch, revision string, app provisioning.AppDescriptor, sshKeys []string) (*Result, error) {
	env := provisioning.NewDeployment(projectID, branch, revision)
	env.SSHKeys = sshKeys
	return o.Create(ctx, env, app)
}

// CreatePR creates the pull request environment of project, or returns
// the existing one when it is already ready.
func (o *Orchestrator) CreatePR(ctx context.Context, projectID, number string, app provisioning.AppDescriptor, sshKeys []string) (*Result, error) {
	env := provisioning.NewPR(projectID, number)
	env.SSHKeys = sshKeys
	return o.Create(ctx, env, app)
}

// Create provisions env: scaffold, compute stack, then DNS binding.
func (o *Orchestrator) Create(ctx context.Context, env provisioning.Environment, app provisioning.AppDescriptor) (res *Result, err error) {
	start := time.Now()
	defer func() { recordOperationMetric("create", env.Kind, err, start) }()

	if err := env.Validate(); err != nil {
		return nil, err
	}
	m, err := o.bootstrap.State(ctx)
	if err != nil {
		return nil, err
	}

	scaffold, err := m.Scaffolds.FindOrCreate(ctx, env.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare project %s: %w", env.ProjectID, err)
	}

	status, err := m.Compute.Describe(ctx, env)
	if err != nil {
		return nil, err
	}

	var (
		missing   []string
		expiresAt time.Time
		from      = StateAbsent
	)
	switch state := deriveState(status.Instances); state {
	case StateReady:
		// Instances run, but an earlier create may have stopped before
		// the task, registration, or DNS steps.
		if missing, err = m.Compute.Missing(ctx, status); err != nil {
			return nil, err
		}
		if len(missing) == 0 {
			domain, bound, err := m.DNS.Bound(ctx, env, status.LoadBalancer.DNSName)
			if err != nil {
				return nil, err
			}
			if bound {
				return &Result{Environment: env, StackName: status.StackName, Domain: domain, State: StateReady}, nil
			}
			missing = []string{"dns"}
		}
		expiresAt = statusFromInstances(env, status.StackName, status.Instances).ExpiresAt
		from = StateReady
	case StateAbsent:
		if env.Kind == provisioning.KindPR {
			expiresAt = o.now().Add(o.prTTL)
		}
	default:
		return nil, fmt.Errorf("environment %s is %s: %w", env, state, provisioning.ErrNotReady)
	}

	req, err := provisioning.NewStackRequest(env, app, expiresAt)
	if err != nil {
		return nil, err
	}
	req.Scaffold = scaffold

	o.transition(env, from, StateProvisioning)
	switch {
	case from == StateAbsent:
		_, err = m.Compute.CreateStack(ctx, req)
	case slices.Equal(missing, []string{"dns"}):
		req.InstanceIDs = provisioning.LiveInstanceIDs(status.Instances)
		req.LoadBalancer = status.LoadBalancer
	default:
		o.observer.Event(provisioning.Event{
			Type:     provisioning.EventPhaseStarted,
			Phase:    "resume",
			Resource: env.String(),
			Message:  "completing stack, missing: " + strings.Join(missing, ", "),
		})
		_, err = m.Compute.ResumeStack(ctx, req, status)
	}
	if err != nil {
		o.transition(env, StateProvisioning, from)
		return nil, err
	}

	domain, err := m.DNS.Bind(ctx, env, req.LoadBalancer.DNSName)
	if err != nil {
		o.transition(env, StateProvisioning, from)
		return nil, &provisioning.ProvisionError{Step: "dns", Request: req, Err: err}
	}
	req.Domain = domain
	o.transition(env, StateProvisioning, StateReady)

	return &Result{
		Environment: env,
		StackName:   req.StackName,
		Domain:      domain,
		State:       StateReady,
		Created:     true,
	}, nil
}

// Update replaces the running generation of a ready environment. The DNS
// binding and load balancer are kept.
func (o *Orchestrator) Update(ctx context.Context, env provisioning.Environment, app provisioning.AppDescriptor) (res *Result, err error) {
	start := time.Now()
	defer func() { recordOperationMetric("update", env.Kind, err, start) }()

	if err := env.Validate(); err != nil {
		return nil, err
	}
	m, err := o.bootstrap.State(ctx)
	if err != nil {
		return nil, err
	}

	status, err := m.Compute.Describe(ctx, env)
	if err != nil {
		return nil, err
	}
	current := statusFromInstances(env, status.StackName, status.Instances)
	if current.State != StateReady {
		return nil, fmt.Errorf("environment %s is %s: %w", env, current.State, provisioning.ErrNotReady)
	}

	scaffold, err := m.Scaffolds.Find(ctx, env.ProjectID)
	if err != nil {
		return nil, err
	}
	req, err := provisioning.NewStackRequest(env, app, current.ExpiresAt)
	if err != nil {
		return nil, err
	}
	req.Scaffold = scaffold

	o.transition(env, StateReady, StateUpdating)
	_, warnings, err := m.Compute.UpdateStack(ctx, req, provisioning.LiveInstanceIDs(status.Instances))
	if err != nil {
		return nil, err
	}
	o.transition(env, StateUpdating, StateReady)

	domain, err := m.DNS.Domain(ctx, env)
	if err != nil {
		return nil, err
	}
	return &Result{
		Environment: env,
		StackName:   req.StackName,
		Domain:      domain,
		State:       StateReady,
		Created:     true,
		Warnings:    warnings,
	}, nil
}

// Deploy creates env when absent and updates it when ready.
func (o *Orchestrator) Deploy(ctx context.Context, env provisioning.Environment, app provisioning.AppDescriptor) (*Result, error) {
	status, err := o.Status(ctx, env)
	if err != nil {
		return nil, err
	}
	if status.State == StateReady {
		return o.Update(ctx, env, app)
	}
	return o.Create(ctx, env, app)
}

// Destroy removes env's DNS binding and compute stack. An unbind failure
// is reported as a warning and the compute teardown runs regardless.
// Destroying an environment that never existed succeeds.
func (o *Orchestrator) Destroy(ctx context.Context, env provisioning.Environment) (res *DestroyResult, err error) {
	start := time.Now()
	defer func() { recordOperationMetric("destroy", env.Kind, err, start) }()

	if err := env.Validate(); err != nil {
		return nil, err
	}
	stackName, err := env.StackName()
	if err != nil {
		return nil, err
	}
	m, err := o.bootstrap.State(ctx)
	if err != nil {
		return nil, err
	}

	o.transition(env, "", StateDestroying)
	result := &DestroyResult{Environment: env, StackName: stackName}

	if err := m.DNS.Unbind(ctx, env); err != nil {
		w := &provisioning.TeardownWarning{Step: "dns", Err: err}
		result.Warnings = append(result.Warnings, w)
		o.observer.Event(provisioning.Event{
			Type:    provisioning.EventTeardownWarning,
			Phase:   "destroy",
			Message: w.Error(),
			Fields:  map[string]string{"step": "dns", "policy": provisioning.BestEffort.String(), "stack": stackName},
		})
	}

	report, err := m.Compute.DestroyStack(ctx, env)
	if report != nil {
		result.Warnings = append(result.Warnings, report.Warnings...)
	}
	if err != nil {
		return result, err
	}
	o.transition(env, StateDestroying, StateAbsent)
	return result, nil
}

// Status reports env's current state.
func (o *Orchestrator) Status(ctx context.Context, env provisioning.Environment) (*Status, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	m, err := o.bootstrap.State(ctx)
	if err != nil {
		return nil, err
	}
	described, err := m.Compute.Describe(ctx, env)
	if err != nil {
		return nil, err
	}
	st := statusFromInstances(env, described.StackName, described.Instances)
	if described.LoadBalancer != nil {
		st.LoadBalancer = described.LoadBalancer.DNSName
	}
	if st.State != StateAbsent {
		if st.Domain, err = m.DNS.Domain(ctx, env); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// CreateProject finds or creates the project's network scaffold.
func (o *Orchestrator) CreateProject(ctx context.Context, projectID string) (*provisioning.Scaffold, error) {
	m, err := o.bootstrap.State(ctx)
	if err != nil {
		return nil, err
	}
	return m.Scaffolds.FindOrCreate(ctx, projectID)
}

// DestroyProject removes the project's scaffold. It fails with
// provisioning.ErrProjectHasEnvironments while any environment exists.
func (o *Orchestrator) DestroyProject(ctx context.Context, projectID string) error {
	if projectID == "" {
		return &provisioning.ValidationError{Field: "project", Message: "must not be empty"}
	}
	m, err := o.bootstrap.State(ctx)
	if err != nil {
		return err
	}
	return m.Scaffolds.Destroy(ctx, projectID)
}

// ListProjects returns the ids of all projects with a scaffold.
func (o *Orchestrator) ListProjects(ctx context.Context) ([]string, error) {
	m, err := o.bootstrap.State(ctx)
	if err != nil {
		return nil, err
	}
	return m.Scaffolds.List(ctx)
}

// DescribeProject returns the project's scaffold and every environment
// found by tag.
func (o *Orchestrator) DescribeProject(ctx context.Context, projectID string) (*ProjectDescription, error) {
	if projectID == "" {
		return nil, &provisioning.ValidationError{Field: "project", Message: "must not be empty"}
	}
	m, err := o.bootstrap.State(ctx)
	if err != nil {
		return nil, err
	}

	desc := &ProjectDescription{ProjectID: projectID}
	scaffold, err := m.Scaffolds.Find(ctx, projectID)
	switch {
	case err == nil:
		desc.Scaffold = scaffold
	case !errors.Is(err, provisioning.ErrNotFound):
		return nil, err
	}

	instances, err := o.bootstrap.Provider().ListInstances(ctx, labels.ForProject(projectID))
	if err != nil {
		return nil, fmt.Errorf("failed to list instances of project %s: %w", projectID, err)
	}
	for stackName, group := range groupByStack(instances) {
		env, err := provisioning.EnvironmentFromTags(group[0].Tags)
		if err != nil {
			continue
		}
		st := statusFromInstances(env, stackName, group)
		if st.Domain, err = m.DNS.Domain(ctx, env); err != nil {
			return nil, err
		}
		desc.Environments = append(desc.Environments, st)
	}
	sort.Slice(desc.Environments, func(i, j int) bool {
		return desc.Environments[i].StackName < desc.Environments[j].StackName
	})
	return desc, nil
}

func (o *Orchestrator) transition(env provisioning.Environment, from, to EnvState) {
	if from == "" {
		from = "*"
	}
	fields := map[string]string{"from": string(from), "to": string(to)}
	o.observer.Event(provisioning.Event{
		Type:     provisioning.EventStateChanged,
		Phase:    "state",
		Resource: env.String(),
		Message:  fmt.Sprintf("%s -> %s", from, to),
		Fields:   fields,
	})
}
