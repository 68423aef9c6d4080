package provisioning

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/stackctl/internal/util/labels"
)

func TestEnvironment_Validate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		env       Environment
		wantField string
	}{
		{"valid deployment", NewDeployment("proj1", "feature-x", ""), ""},
		{"valid pr", NewPR("proj1", "42"), ""},
		{"missing project", NewDeployment("", "feature-x", ""), "project"},
		{"missing name", NewPR("proj1", ""), "environment"},
		{"unknown kind", Environment{ProjectID: "p", Name: "n", Kind: "other"}, "kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.env.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.wantField, vErr.Field)
		})
	}
}

func TestEnvironment_StackNameIgnoresRevision(t *testing.T) {
	t.Parallel()
	a, err := NewDeployment("proj1", "feature-x", "r1").StackName()
	require.NoError(t, err)
	b, err := NewDeployment("proj1", "feature-x", "r2").StackName()
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestEnvironment_PRDistinctFromBranch(t *testing.T) {
	t.Parallel()
	pr, err := NewPR("proj1", "42").StackName()
	require.NoError(t, err)
	branch, err := NewDeployment("proj1", "42", "").StackName()
	require.NoError(t, err)

	assert.NotEqual(t, pr, branch)
}

func TestEnvironment_Subdomain(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "feature-x-proj1", NewDeployment("proj1", "feature-x", "").Subdomain())
	assert.Equal(t, "proj1", NewDeployment("proj1", "master", "").Subdomain())
	assert.Equal(t, "pr-42-proj1", NewPR("proj1", "42").Subdomain())
}

func TestEnvironmentFromTags_RoundTrip(t *testing.T) {
	t.Parallel()
	env := NewDeployment("proj1", "feature-x", "abc")
	stack, err := env.StackName()
	require.NoError(t, err)

	got, err := EnvironmentFromTags(env.Tags(stack, time.Time{}))
	require.NoError(t, err)
	assert.Equal(t, env, got)
}

func TestEnvironmentFromTags_Incomplete(t *testing.T) {
	t.Parallel()
	_, err := EnvironmentFromTags(map[string]string{labels.KeyProject: "proj1"})
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestNewStackRequest(t *testing.T) {
	t.Parallel()
	expiry := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	req, err := NewStackRequest(NewPR("proj1", "7"), AppDescriptor(`{}`), expiry)
	require.NoError(t, err)

	assert.Equal(t, req.StackName, req.Tags[labels.KeyStack])
	assert.Equal(t, "2026-05-01T00:00:00Z", req.Tags[labels.KeyExpiresAt])
	assert.Equal(t, labels.EnvTypePR, req.Tags[labels.KeyEnvType])
	assert.LessOrEqual(t, len(req.LoadBalancerName()), 32)

	_, err = NewStackRequest(NewPR("", "7"), nil, time.Time{})
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestInstance_Live(t *testing.T) {
	t.Parallel()
	assert.True(t, Instance{State: "running"}.Live())
	assert.True(t, Instance{State: "pending"}.Live())
	assert.False(t, Instance{State: "shutting-down"}.Live())
	assert.False(t, Instance{State: "terminated"}.Live())
}

func TestErrorTypes(t *testing.T) {
	t.Parallel()
	base := errors.New("no vpc")

	bErr := &BootstrapError{Err: base}
	assert.ErrorIs(t, bErr, base)
	assert.Contains(t, bErr.Error(), "bootstrap failed")

	req := &StackRequest{StackName: "s1"}
	pErr := &ProvisionError{Step: "task", Request: req, Err: base}
	assert.ErrorIs(t, pErr, base)
	assert.Equal(t, `provisioning s1 failed at step "task": no vpc`, pErr.Error())

	w := &TeardownWarning{Step: "cluster", Err: base}
	assert.Equal(t, "cluster: no vpc", w.Error())

	assert.NoError(t, IgnoreNotFound(fmt.Errorf("wrapped: %w", ErrNotFound)))
	assert.ErrorIs(t, IgnoreNotFound(base), base)
}
