package orchestration

import (
	"sort"
	"time"

	"github.com/imamik/stackctl/internal/provisioning"
	"github.com/imamik/stackctl/internal/util/labels"
)

// EnvState is the lifecycle state of an environment.
type EnvState string

const (
	StateAbsent       EnvState = "absent"
	StateProvisioning EnvState = "provisioning"
	StateReady        EnvState = "ready"
	StateUpdating     EnvState = "updating"
	StateDestroying   EnvState = "destroying"
)

// deriveState reads an environment's state off its tagged instances.
//
// No instances means absent. Instances shutting down mean destroying.
// Live instances of more than one revision mean an update is replacing a
// generation. Pending instances mean provisioning. Otherwise ready.
func deriveState(instances []provisioning.Instance) EnvState {
	if len(instances) == 0 {
		return StateAbsent
	}

	revisions := make(map[string]struct{})
	pending, live := false, false
	for _, inst := range instances {
		if !inst.Live() {
			continue
		}
		live = true
		revisions[inst.Tags[labels.KeyRevision]] = struct{}{}
		if inst.State == "pending" {
			pending = true
		}
	}

	switch {
	case !live:
		return StateDestroying
	case len(revisions) > 1:
		return StateUpdating
	case pending:
		return StateProvisioning
	default:
		return StateReady
	}
}

// Status describes one environment as the provider currently sees it.
type Status struct {
	Environment  provisioning.Environment
	StackName    string
	State        EnvState
	Domain       string
	Revision     string
	InstanceIDs  []string
	LoadBalancer string
	// ExpiresAt is zero for environments that never expire.
	ExpiresAt time.Time
}

// statusFromInstances fills the parts of a Status derivable from instance
// tags alone.
func statusFromInstances(env provisioning.Environment, stackName string, instances []provisioning.Instance) *Status {
	st := &Status{
		Environment: env,
		StackName:   stackName,
		State:       deriveState(instances),
	}
	for _, inst := range instances {
		st.InstanceIDs = append(st.InstanceIDs, inst.ID)
		if !inst.Live() {
			continue
		}
		if rev := inst.Tags[labels.KeyRevision]; rev != "" {
			st.Revision = rev
		}
		if exp, ok, err := labels.ParseExpiry(inst.Tags); err == nil && ok {
			st.ExpiresAt = exp
		}
	}
	sort.Strings(st.InstanceIDs)
	return st
}

// groupByStack buckets instances by their stack tag.
func groupByStack(instances []provisioning.Instance) map[string][]provisioning.Instance {
	out := make(map[string][]provisioning.Instance)
	for _, inst := range instances {
		stack := inst.Tags[labels.KeyStack]
		if stack == "" {
			continue
		}
		out[stack] = append(out[stack], inst)
	}
	return out
}
