package labels

import (
	"fmt"
	"time"
)

// Standard tag keys. The stackctl.io prefix namespaces them away from
// tags owned by other tooling in the same account.
const (
	// KeyManagedBy identifies the management system.
	KeyManagedBy = "stackctl.io/managed-by"

	// KeyAccount marks account-wide resources (network, hosted zone,
	// route table) that stackctl discovers at bootstrap.
	KeyAccount = "stackctl.io/account"

	// KeyProject identifies which project a resource belongs to.
	KeyProject = "stackctl.io/project"

	// KeyEnvType is either EnvTypeDeployment or EnvTypePR.
	KeyEnvType = "stackctl.io/env-type"

	// KeyEnvName is the deployment branch or pull request number.
	KeyEnvName = "stackctl.io/env-name"

	// KeyStack holds the environment's stack name.
	KeyStack = "stackctl.io/stack"

	// KeyRevision holds the build identifier of the running generation.
	KeyRevision = "stackctl.io/revision"

	// KeyExpiresAt holds an RFC 3339 UTC timestamp after which the
	// environment may be reaped.
	KeyExpiresAt = "stackctl.io/expires-at"
)

// Environment types.
const (
	EnvTypeDeployment = "deployment"
	EnvTypePR         = "pr"
)

// ManagedByStackctl is the value of KeyManagedBy on every resource we create.
const ManagedByStackctl = "stackctl"

// LabelBuilder provides a fluent interface for building resource tags.
type LabelBuilder struct {
	labels map[string]string
}

// NewLabelBuilder creates a new builder with the project and manager pre-set.
func NewLabelBuilder(projectID string) *LabelBuilder {
	return &LabelBuilder{
		labels: map[string]string{
			KeyManagedBy: ManagedByStackctl,
			KeyProject:   projectID,
		},
	}
}

// WithEnvironment adds the environment type and name.
func (lb *LabelBuilder) WithEnvironment(envType, name string) *LabelBuilder {
	lb.labels[KeyEnvType] = envType
	lb.labels[KeyEnvName] = name
	return lb
}

// WithStack adds the stack name.
func (lb *LabelBuilder) WithStack(stackName string) *LabelBuilder {
	lb.labels[KeyStack] = stackName
	return lb
}

// WithRevisionIfSet adds a revision tag only if revision is non-empty.
func (lb *LabelBuilder) WithRevisionIfSet(revision string) *LabelBuilder {
	if revision != "" {
		lb.labels[KeyRevision] = revision
	}
	return lb
}

// WithExpiry adds an expiry tag. A zero time means the resource never
// expires and no tag is written.
func (lb *LabelBuilder) WithExpiry(expiresAt time.Time) *LabelBuilder {
	if !expiresAt.IsZero() {
		lb.labels[KeyExpiresAt] = FormatExpiry(expiresAt)
	}
	return lb
}

// Merge adds all labels from the provided map.
func (lb *LabelBuilder) Merge(extra map[string]string) *LabelBuilder {
	for k, v := range extra {
		lb.labels[k] = v
	}
	return lb
}

// Build returns a copy of the labels map.
func (lb *LabelBuilder) Build() map[string]string {
	result := make(map[string]string, len(lb.labels))
	for k, v := range lb.labels {
		result[k] = v
	}
	return result
}

// ForProject returns the tag selector matching every resource of a project.
func ForProject(projectID string) map[string]string {
	return map[string]string{
		KeyManagedBy: ManagedByStackctl,
		KeyProject:   projectID,
	}
}

// ForStack returns the tag selector matching every resource of one stack.
func ForStack(stackName string) map[string]string {
	return map[string]string{
		KeyManagedBy: ManagedByStackctl,
		KeyStack:     stackName,
	}
}

// ForEnvType returns the tag selector matching every resource of the given
// environment type across all projects.
func ForEnvType(envType string) map[string]string {
	return map[string]string{
		KeyManagedBy: ManagedByStackctl,
		KeyEnvType:   envType,
	}
}

// Matches reports whether tags contains every key/value pair of selector.
func Matches(tags, selector map[string]string) bool {
	for k, v := range selector {
		if got, ok := tags[k]; !ok || got != v {
			return false
		}
	}
	return true
}

// FormatExpiry renders an expiry timestamp the way it is stored in tags.
func FormatExpiry(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ParseExpiry reads the expiry tag. The boolean is false when the tag is
// absent, which means the resource never expires.
func ParseExpiry(tags map[string]string) (time.Time, bool, error) {
	raw, ok := tags[KeyExpiresAt]
	if !ok || raw == "" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid %s tag %q: %w", KeyExpiresAt, raw, err)
	}
	return t, true, nil
}
