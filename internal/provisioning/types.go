package provisioning

import (
	"fmt"
	"strings"
	"time"

	"github.com/imamik/stackctl/internal/util/labels"
	"github.com/imamik/stackctl/internal/util/naming"
)

// EnvKind distinguishes long-lived deployments from pull request environments.
type EnvKind string

const (
	// KindDeployment is a per-branch environment that never expires.
	KindDeployment EnvKind = labels.EnvTypeDeployment
	// KindPR is a pull request environment with an expiry.
	KindPR EnvKind = labels.EnvTypePR
)

// Environment identifies one deployment or pull request environment of a
// project.
type Environment struct {
	ProjectID string
	Kind      EnvKind
	// Name is the branch for deployments and the PR number for pull requests.
	Name string
	// Revision is the build identifier of the generation being deployed.
	Revision string
	// SSHKeys are public keys installed on the backing instances.
	SSHKeys []string
}

// NewDeployment returns the environment for a branch deployment.
func NewDeployment(projectID, branch, revision string) Environment {
	return Environment{ProjectID: projectID, Kind: KindDeployment, Name: branch, Revision: revision}
}

// NewPR returns the environment for a pull request.
func NewPR(projectID, number string) Environment {
	return Environment{ProjectID: projectID, Kind: KindPR, Name: number}
}

// Validate rejects environments missing a required identifier.
func (e Environment) Validate() error {
	switch {
	case e.ProjectID == "":
		return &ValidationError{Field: "project", Message: "must not be empty"}
	case e.Name == "":
		return &ValidationError{Field: "environment", Message: "must not be empty"}
	case e.Kind != KindDeployment && e.Kind != KindPR:
		return &ValidationError{Field: "kind", Message: fmt.Sprintf("unknown environment kind %q", e.Kind)}
	}
	return nil
}

// QualifiedName distinguishes a pull request from a branch with the same
// name. Git refs cannot contain ':', so "pr:<n>" never collides with a branch.
func (e Environment) QualifiedName() string {
	if e.Kind == KindPR {
		return "pr:" + e.Name
	}
	return e.Name
}

// StackName returns the key every resource of the environment is tagged
// with. The revision is left out so each generation re-discovers the same
// stack.
func (e Environment) StackName() (string, error) {
	name, err := naming.RID(e.ProjectID, e.QualifiedName(), "")
	if err != nil {
		return "", &ValidationError{Field: "environment", Message: err.Error()}
	}
	return name, nil
}

// Subdomain returns the DNS label the environment is reachable under.
func (e Environment) Subdomain() string {
	if e.Kind == KindPR {
		return naming.PRSubdomain(e.ProjectID, e.Name)
	}
	return naming.DeploymentSubdomain(e.ProjectID, e.Name)
}

// Tags returns the tag set applied to every resource of the environment.
func (e Environment) Tags(stackName string, expiresAt time.Time) map[string]string {
	return labels.NewLabelBuilder(e.ProjectID).
		WithEnvironment(string(e.Kind), e.Name).
		WithStack(stackName).
		WithRevisionIfSet(e.Revision).
		WithExpiry(expiresAt).
		Build()
}

// String renders the environment for logs.
func (e Environment) String() string {
	return fmt.Sprintf("%s/%s", e.ProjectID, e.QualifiedName())
}

// EnvironmentFromTags rebuilds an environment from the tags of one of its
// resources.
func EnvironmentFromTags(tags map[string]string) (Environment, error) {
	env := Environment{
		ProjectID: tags[labels.KeyProject],
		Kind:      EnvKind(tags[labels.KeyEnvType]),
		Name:      tags[labels.KeyEnvName],
		Revision:  tags[labels.KeyRevision],
	}
	if err := env.Validate(); err != nil {
		return Environment{}, fmt.Errorf("tags do not describe an environment: %w", err)
	}
	return env, nil
}

// Scaffold is a project's network segment, shared by all its environments.
type Scaffold struct {
	NetworkID    string
	SubnetID     string
	ACLID        string
	RouteTableID string
	CIDR         string
}

// AppDescriptor is the JSON application definition passed through to the
// task/service call without interpretation.
type AppDescriptor []byte

// LoadBalancer is an environment's load balancer binding.
type LoadBalancer struct {
	Name    string
	DNSName string
	// InstanceIDs are the currently registered instances.
	InstanceIDs []string
}

// Task is the task definition family and services running an environment.
type Task struct {
	Family   string
	Revision string
	Services []string
}

// Instance is a backing compute instance discovered by tag.
type Instance struct {
	ID    string
	State string
	Tags  map[string]string
}

// Live reports whether the instance is pending or running.
func (i Instance) Live() bool {
	switch strings.ToLower(i.State) {
	case "pending", "running":
		return true
	}
	return false
}

// LiveInstanceIDs returns the ids of the pending or running instances.
func LiveInstanceIDs(instances []Instance) []string {
	var ids []string
	for _, inst := range instances {
		if inst.Live() {
			ids = append(ids, inst.ID)
		}
	}
	return ids
}

// StackRequest accumulates the outputs of each creation step. Steps that
// run in parallel write disjoint fields.
type StackRequest struct {
	Environment Environment
	StackName   string
	App         AppDescriptor
	Tags        map[string]string
	ExpiresAt   time.Time

	Scaffold        *Scaffold
	SecurityGroupID string
	ClusterID       string
	InstanceIDs     []string
	LoadBalancer    *LoadBalancer
	Task            *Task
	Domain          string

	// ReuseLoadBalancer skips load balancer creation and expects
	// LoadBalancer to be populated. Set by stack updates.
	ReuseLoadBalancer bool
	// Replaced lists instances of the previous generation; it scopes the
	// launch idempotency token so each generation gets fresh instances.
	Replaced []string
}

// NewStackRequest validates env and prepares the accumulator for it.
func NewStackRequest(env Environment, app AppDescriptor, expiresAt time.Time) (*StackRequest, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	stackName, err := env.StackName()
	if err != nil {
		return nil, err
	}
	return &StackRequest{
		Environment: env,
		StackName:   stackName,
		App:         app,
		Tags:        env.Tags(stackName, expiresAt),
		ExpiresAt:   expiresAt,
	}, nil
}

// LoadBalancerName returns the provider-safe load balancer name for the stack.
func (r *StackRequest) LoadBalancerName() string {
	return naming.LoadBalancer(r.StackName)
}
