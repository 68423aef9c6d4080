package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/imamik/stackctl/internal/provisioning"
	"github.com/imamik/stackctl/internal/util/async"
	"github.com/imamik/stackctl/internal/util/labels"
	"github.com/imamik/stackctl/internal/util/netutil"
)

const (
	phase = "scaffold"

	// DefaultSubnetBits extends the network prefix to size project subnets
	// (a /16 network yields /24 subnets).
	DefaultSubnetBits = 8

	// maxCreateAttempts bounds how often FindOrCreate moves on to the next
	// CIDR when a concurrent creator took the one it picked.
	maxCreateAttempts = 3
)

// ScaffoldManager finds, creates, and destroys project network scaffolds.
type ScaffoldManager struct {
	network    provisioning.NetworkAPI
	compute    provisioning.ComputeAPI
	networkID  string
	cidr       string
	subnetBits int
	observer   provisioning.Observer
}

// NewScaffoldManager returns a manager bound to the account network.
// compute is consulted before destroying a scaffold to refuse while
// environments still exist.
func NewScaffoldManager(
	network provisioning.NetworkAPI,
	compute provisioning.ComputeAPI,
	account provisioning.Network,
	subnetBits int,
	observer provisioning.Observer,
) *ScaffoldManager {
	if subnetBits <= 0 {
		subnetBits = DefaultSubnetBits
	}
	if observer == nil {
		observer = provisioning.NopObserver{}
	}
	return &ScaffoldManager{
		network:    network,
		compute:    compute,
		networkID:  account.ID,
		cidr:       account.CIDR,
		subnetBits: subnetBits,
		observer:   observer,
	}
}

// NetworkID returns the account network the manager is bound to.
func (m *ScaffoldManager) NetworkID() string {
	return m.networkID
}

// Find returns the project's scaffold or provisioning.ErrNotFound.
func (m *ScaffoldManager) Find(ctx context.Context, projectID string) (*provisioning.Scaffold, error) {
	subnets, err := m.network.ListSubnets(ctx, m.networkID, labels.ForProject(projectID))
	if err != nil {
		return nil, fmt.Errorf("failed to list subnets for project %s: %w", projectID, err)
	}
	if len(subnets) == 0 {
		return nil, fmt.Errorf("scaffold for project %s: %w", projectID, provisioning.ErrNotFound)
	}
	s := subnets[0]
	return &provisioning.Scaffold{
		NetworkID:    m.networkID,
		SubnetID:     s.ID,
		ACLID:        s.ACLID,
		RouteTableID: s.RouteTableID,
		CIDR:         s.CIDR,
	}, nil
}

// FindOrCreate returns the project's scaffold, creating it when absent.
// A subnet left without its route table or ACL by an earlier failure is
// associated again. Concurrent callers may race; a creation that collides
// with an existing subnet is resolved by querying again.
func (m *ScaffoldManager) FindOrCreate(ctx context.Context, projectID string) (*provisioning.Scaffold, error) {
	if projectID == "" {
		return nil, &provisioning.ValidationError{Field: "project", Message: "must not be empty"}
	}

	existing, err := m.Find(ctx, projectID)
	if err == nil {
		provisioning.LogResourceExists(m.observer, phase, "subnet", projectID, existing.SubnetID)
		return m.completeAssociations(ctx, projectID, existing)
	}
	if !errors.Is(err, provisioning.ErrNotFound) {
		return nil, err
	}

	tags := labels.NewLabelBuilder(projectID).Build()

	var (
		mu           sync.Mutex
		routeTableID string
		aclID        string
	)
	err = async.RunParallel(ctx, []async.Task{
		{Name: "route-table", Func: func(ctx context.Context) error {
			id, err := m.network.FindDefaultRouteTable(ctx, m.networkID)
			mu.Lock()
			routeTableID = id
			mu.Unlock()
			return err
		}},
		{Name: "acl", Func: func(ctx context.Context) error {
			id, err := m.findOrCreateACL(ctx, projectID, tags)
			mu.Lock()
			aclID = id
			mu.Unlock()
			return err
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to prepare scaffold for project %s: %w", projectID, err)
	}

	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		cidr, err := m.nextCIDR(ctx)
		if err != nil {
			return nil, err
		}

		provisioning.LogResourceCreating(m.observer, phase, "subnet", projectID)
		subnet, err := m.network.CreateSubnet(ctx, provisioning.SubnetSpec{
			NetworkID:    m.networkID,
			CIDR:         cidr,
			RouteTableID: routeTableID,
			ACLID:        aclID,
			Tags:         tags,
		})
		if err == nil {
			provisioning.LogResourceCreated(m.observer, phase, "subnet", projectID, subnet.ID)
			return &provisioning.Scaffold{
				NetworkID:    m.networkID,
				SubnetID:     subnet.ID,
				ACLID:        aclID,
				RouteTableID: routeTableID,
				CIDR:         subnet.CIDR,
			}, nil
		}
		if !errors.Is(err, provisioning.ErrAlreadyExists) {
			return nil, fmt.Errorf("failed to create subnet for project %s: %w", projectID, err)
		}

		// Someone else created a subnet first. If it was for this project
		// we are done; otherwise pick the next free range.
		if existing, findErr := m.Find(ctx, projectID); findErr == nil {
			provisioning.LogResourceExists(m.observer, phase, "subnet", projectID, existing.SubnetID)
			return m.completeAssociations(ctx, projectID, existing)
		}
	}
	return nil, fmt.Errorf("failed to create subnet for project %s after %d attempts: %w",
		projectID, maxCreateAttempts, provisioning.ErrAlreadyExists)
}

// Destroy removes the project's subnet and ACL. It refuses while any
// instance of the project exists. Missing resources count as destroyed.
func (m *ScaffoldManager) Destroy(ctx context.Context, projectID string) error {
	instances, err := m.compute.ListInstances(ctx, labels.ForProject(projectID))
	if err != nil {
		return fmt.Errorf("failed to list environments of project %s: %w", projectID, err)
	}
	if len(instances) > 0 {
		return fmt.Errorf("project %s (%d instances): %w", projectID, len(instances), provisioning.ErrProjectHasEnvironments)
	}

	aclID := ""
	scaffold, err := m.Find(ctx, projectID)
	switch {
	case err == nil:
		aclID = scaffold.ACLID
		provisioning.LogResourceDeleting(m.observer, phase, "subnet", scaffold.SubnetID)
		if err := provisioning.IgnoreNotFound(m.network.DeleteSubnet(ctx, scaffold.SubnetID)); err != nil {
			return fmt.Errorf("failed to delete subnet %s: %w", scaffold.SubnetID, err)
		}
		provisioning.LogResourceDeleted(m.observer, phase, "subnet", scaffold.SubnetID)
	case !errors.Is(err, provisioning.ErrNotFound):
		return err
	}

	if aclID == "" {
		aclID, err = m.network.FindACL(ctx, m.networkID, labels.ForProject(projectID))
		if errors.Is(err, provisioning.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to find ACL for project %s: %w", projectID, err)
		}
	}

	provisioning.LogResourceDeleting(m.observer, phase, "acl", aclID)
	if err := provisioning.IgnoreNotFound(m.network.DeleteACL(ctx, aclID)); err != nil {
		return fmt.Errorf("failed to delete ACL %s: %w", aclID, err)
	}
	provisioning.LogResourceDeleted(m.observer, phase, "acl", aclID)
	return nil
}

// List returns the ids of all projects with a scaffold.
func (m *ScaffoldManager) List(ctx context.Context) ([]string, error) {
	subnets, err := m.network.ListSubnets(ctx, m.networkID, map[string]string{
		labels.KeyManagedBy: labels.ManagedByStackctl,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list subnets: %w", err)
	}
	var projects []string
	for _, s := range subnets {
		if p := s.Tags[labels.KeyProject]; p != "" && !slices.Contains(projects, p) {
			projects = append(projects, p)
		}
	}
	slices.Sort(projects)
	return projects, nil
}

// completeAssociations re-applies the route table and ACL of a subnet
// whose creation stopped before both were associated.
func (m *ScaffoldManager) completeAssociations(ctx context.Context, projectID string, s *provisioning.Scaffold) (*provisioning.Scaffold, error) {
	if s.RouteTableID != "" && s.ACLID != "" {
		return s, nil
	}

	var routeTableID, aclID string
	if s.RouteTableID == "" {
		id, err := m.network.FindDefaultRouteTable(ctx, m.networkID)
		if err != nil {
			return nil, fmt.Errorf("failed to find route table for project %s: %w", projectID, err)
		}
		routeTableID = id
	}
	if s.ACLID == "" {
		id, err := m.findOrCreateACL(ctx, projectID, labels.NewLabelBuilder(projectID).Build())
		if err != nil {
			return nil, fmt.Errorf("failed to prepare ACL for project %s: %w", projectID, err)
		}
		aclID = id
	}

	provisioning.LogResourceCreating(m.observer, phase, "subnet-association", s.SubnetID)
	if err := m.network.AssociateSubnet(ctx, s.SubnetID, routeTableID, aclID); err != nil {
		return nil, fmt.Errorf("failed to associate subnet %s: %w", s.SubnetID, err)
	}
	provisioning.LogResourceCreated(m.observer, phase, "subnet-association", projectID, s.SubnetID)

	out := *s
	if routeTableID != "" {
		out.RouteTableID = routeTableID
	}
	if aclID != "" {
		out.ACLID = aclID
	}
	return &out, nil
}

// findOrCreateACL returns the project's ACL, creating it when absent. Two
// racing creators each query again afterwards; FindACL resolves to the same
// ACL for both and the loser deletes its own.
func (m *ScaffoldManager) findOrCreateACL(ctx context.Context, projectID string, tags map[string]string) (string, error) {
	selector := labels.ForProject(projectID)
	id, err := m.network.FindACL(ctx, m.networkID, selector)
	if err == nil {
		provisioning.LogResourceExists(m.observer, phase, "acl", projectID, id)
		return id, nil
	}
	if !errors.Is(err, provisioning.ErrNotFound) {
		return "", err
	}
	provisioning.LogResourceCreating(m.observer, phase, "acl", projectID)
	created, err := m.network.CreateACL(ctx, m.networkID, tags)
	if err != nil {
		return "", err
	}
	provisioning.LogResourceCreated(m.observer, phase, "acl", projectID, created)

	winner, err := m.network.FindACL(ctx, m.networkID, selector)
	if err != nil {
		return "", fmt.Errorf("failed to confirm ACL %s: %w", created, err)
	}
	if winner != created {
		provisioning.LogResourceDeleting(m.observer, phase, "acl", created)
		if err := provisioning.IgnoreNotFound(m.network.DeleteACL(ctx, created)); err != nil {
			return "", fmt.Errorf("failed to delete duplicate ACL %s: %w", created, err)
		}
		provisioning.LogResourceDeleted(m.observer, phase, "acl", created)
	}
	return winner, nil
}

func (m *ScaffoldManager) nextCIDR(ctx context.Context) (string, error) {
	all, err := m.network.ListSubnets(ctx, m.networkID, nil)
	if err != nil {
		return "", fmt.Errorf("failed to list subnets: %w", err)
	}
	used := make([]string, 0, len(all))
	for _, s := range all {
		used = append(used, s.CIDR)
	}
	cidr, err := netutil.NextFreeSubnet(m.cidr, m.subnetBits, used)
	if err != nil {
		return "", fmt.Errorf("failed to allocate subnet in %s: %w", m.cidr, err)
	}
	return cidr, nil
}
