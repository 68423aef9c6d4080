package fake

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/imamik/stackctl/internal/provisioning"
	"github.com/imamik/stackctl/internal/util/labels"
)

// Default account context of a new Provider.
const (
	NetworkID    = "vpc-1"
	NetworkCIDR  = "10.0.0.0/16"
	RouteTableID = "rtb-main"
	ZoneID       = "zone-1"
	Domain       = "example.com"
)

type securityGroup struct {
	id        string
	name      string
	networkID string
	tags      map[string]string
}

// Provider is an in-memory provisioning.Provider.
type Provider struct {
	mu sync.Mutex

	// Network and Zone are returned by discovery. Clear them to simulate
	// an account without tagged resources.
	Network *provisioning.Network
	Zone    string
	Domain  string

	subnets        map[string]*provisioning.Subnet
	acls           map[string]map[string]string
	securityGroups map[string]*securityGroup
	clusters       map[string]map[string]string
	containers     map[string][]string
	instances      map[string]*provisioning.Instance
	launchTokens   map[string][]string
	loadBalancers  map[string]*provisioning.LoadBalancer
	tasks          map[string]map[string]*provisioning.Task
	records        map[string]provisioning.Record

	failures map[string]error
	calls    []string
	nextID   int
}

var _ provisioning.Provider = (*Provider)(nil)

// NewProvider returns a provider with a discoverable network and zone.
func NewProvider() *Provider {
	return &Provider{
		Network:        &provisioning.Network{ID: NetworkID, CIDR: NetworkCIDR},
		Zone:           ZoneID,
		Domain:         Domain,
		subnets:        make(map[string]*provisioning.Subnet),
		acls:           make(map[string]map[string]string),
		securityGroups: make(map[string]*securityGroup),
		clusters:       make(map[string]map[string]string),
		containers:     make(map[string][]string),
		instances:      make(map[string]*provisioning.Instance),
		launchTokens:   make(map[string][]string),
		loadBalancers:  make(map[string]*provisioning.LoadBalancer),
		tasks:          make(map[string]map[string]*provisioning.Task),
		records:        make(map[string]provisioning.Record),
		failures:       make(map[string]error),
	}
}

// Fail makes every later call to method return err. A nil err clears it.
func (p *Provider) Fail(method string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.failures, method)
		return
	}
	p.failures[method] = err
}

// Calls returns the names of all calls made so far, in order.
func (p *Provider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.calls)
}

// CallCount returns how often method was called.
func (p *Provider) CallCount(method string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		if c == method {
			n++
		}
	}
	return n
}

// ResetCalls clears the call log.
func (p *Provider) ResetCalls() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = nil
}

// Record returns the DNS record named name.
func (p *Provider) Record(name string) (provisioning.Record, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.records[name]
	return r, ok
}

// HasCluster reports whether a cluster named name exists.
func (p *Provider) HasCluster(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.clusters[name]
	return ok
}

// HasLoadBalancer reports whether a load balancer named name exists.
func (p *Provider) HasLoadBalancer(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.loadBalancers[name]
	return ok
}

// TaskCount returns the number of task families across all clusters.
func (p *Provider) TaskCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, fams := range p.tasks {
		n += len(fams)
	}
	return n
}

// SecurityGroupCount returns the number of security groups.
func (p *Provider) SecurityGroupCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.securityGroups)
}

// AddInstance seeds a running instance with tags, bypassing the call log.
func (p *Provider) AddInstance(tags map[string]string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.newID("i")
	p.instances[id] = &provisioning.Instance{ID: id, State: "running", Tags: copyTags(tags)}
	return id
}

// SetInstanceState overrides the state of instance id.
func (p *Provider) SetInstanceState(id, state string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if inst, ok := p.instances[id]; ok {
		inst.State = state
	}
}

// InstanceState returns the state of instance id, or "" when unknown.
func (p *Provider) InstanceState(id string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if inst, ok := p.instances[id]; ok {
		return inst.State
	}
	return ""
}

// begin records the call and returns an injected failure, if any.
// Callers must hold p.mu.
func (p *Provider) begin(method string) error {
	p.calls = append(p.calls, method)
	return p.failures[method]
}

func (p *Provider) newID(prefix string) string {
	p.nextID++
	return fmt.Sprintf("%s-%d", prefix, p.nextID)
}

func copyTags(tags map[string]string) map[string]string {
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, provisioning.ErrNotFound)
}

// FindNetwork implements provisioning.NetworkAPI.
func (p *Provider) FindNetwork(_ context.Context) (*provisioning.Network, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("FindNetwork"); err != nil {
		return nil, err
	}
	if p.Network == nil {
		return nil, notFound("network", "tagged")
	}
	n := *p.Network
	return &n, nil
}

// ListSubnets implements provisioning.NetworkAPI.
func (p *Provider) ListSubnets(_ context.Context, networkID string, selector map[string]string) ([]provisioning.Subnet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("ListSubnets"); err != nil {
		return nil, err
	}
	var out []provisioning.Subnet
	for _, s := range p.subnets {
		if s.NetworkID == networkID && labels.Matches(s.Tags, selector) {
			c := *s
			c.Tags = copyTags(s.Tags)
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// FindDefaultRouteTable implements provisioning.NetworkAPI.
func (p *Provider) FindDefaultRouteTable(_ context.Context, _ string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("FindDefaultRouteTable"); err != nil {
		return "", err
	}
	return RouteTableID, nil
}

// CreateACL implements provisioning.NetworkAPI.
func (p *Provider) CreateACL(_ context.Context, _ string, tags map[string]string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("CreateACL"); err != nil {
		return "", err
	}
	id := p.newID("acl")
	p.acls[id] = copyTags(tags)
	return id, nil
}

// FindACL implements provisioning.NetworkAPI.
func (p *Provider) FindACL(_ context.Context, _ string, selector map[string]string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("FindACL"); err != nil {
		return "", err
	}
	ids := make([]string, 0, len(p.acls))
	for id, tags := range p.acls {
		if labels.Matches(tags, selector) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return "", notFound("acl", "tagged")
	}
	sort.Strings(ids)
	return ids[0], nil
}

// DeleteACL implements provisioning.NetworkAPI.
func (p *Provider) DeleteACL(_ context.Context, aclID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("DeleteACL"); err != nil {
		return err
	}
	if _, ok := p.acls[aclID]; !ok {
		return notFound("acl", aclID)
	}
	delete(p.acls, aclID)
	return nil
}

// CreateSubnet implements provisioning.NetworkAPI.
func (p *Provider) CreateSubnet(_ context.Context, spec provisioning.SubnetSpec) (*provisioning.Subnet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("CreateSubnet"); err != nil {
		return nil, err
	}
	for _, s := range p.subnets {
		if s.NetworkID == spec.NetworkID && s.CIDR == spec.CIDR {
			return nil, fmt.Errorf("subnet %s: %w", spec.CIDR, provisioning.ErrAlreadyExists)
		}
	}
	s := &provisioning.Subnet{
		ID:           p.newID("subnet"),
		NetworkID:    spec.NetworkID,
		CIDR:         spec.CIDR,
		RouteTableID: spec.RouteTableID,
		ACLID:        spec.ACLID,
		Tags:         copyTags(spec.Tags),
	}
	p.subnets[s.ID] = s
	c := *s
	return &c, nil
}

// AssociateSubnet implements provisioning.NetworkAPI.
func (p *Provider) AssociateSubnet(_ context.Context, subnetID, routeTableID, aclID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("AssociateSubnet"); err != nil {
		return err
	}
	s, ok := p.subnets[subnetID]
	if !ok {
		return notFound("subnet", subnetID)
	}
	if routeTableID != "" {
		s.RouteTableID = routeTableID
	}
	if aclID != "" {
		if _, ok := p.acls[aclID]; !ok {
			return notFound("acl", aclID)
		}
		s.ACLID = aclID
	}
	return nil
}

// DeleteSubnet implements provisioning.NetworkAPI.
func (p *Provider) DeleteSubnet(_ context.Context, subnetID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("DeleteSubnet"); err != nil {
		return err
	}
	if _, ok := p.subnets[subnetID]; !ok {
		return notFound("subnet", subnetID)
	}
	delete(p.subnets, subnetID)
	return nil
}

// CreateSecurityGroup implements provisioning.SecurityAPI.
func (p *Provider) CreateSecurityGroup(_ context.Context, spec provisioning.SecurityGroupSpec) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("CreateSecurityGroup"); err != nil {
		return "", err
	}
	for _, sg := range p.securityGroups {
		if sg.networkID == spec.NetworkID && sg.name == spec.Name {
			return "", fmt.Errorf("security group %s: %w", spec.Name, provisioning.ErrAlreadyExists)
		}
	}
	id := p.newID("sg")
	p.securityGroups[id] = &securityGroup{id: id, name: spec.Name, networkID: spec.NetworkID, tags: copyTags(spec.Tags)}
	return id, nil
}

// FindSecurityGroup implements provisioning.SecurityAPI.
func (p *Provider) FindSecurityGroup(_ context.Context, networkID, name string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("FindSecurityGroup"); err != nil {
		return "", err
	}
	for _, sg := range p.securityGroups {
		if sg.networkID == networkID && sg.name == name {
			return sg.id, nil
		}
	}
	return "", notFound("security group", name)
}

// DeleteSecurityGroup implements provisioning.SecurityAPI.
func (p *Provider) DeleteSecurityGroup(_ context.Context, groupID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("DeleteSecurityGroup"); err != nil {
		return err
	}
	if _, ok := p.securityGroups[groupID]; !ok {
		return notFound("security group", groupID)
	}
	delete(p.securityGroups, groupID)
	return nil
}

// CreateCluster implements provisioning.ComputeAPI.
func (p *Provider) CreateCluster(_ context.Context, name string, tags map[string]string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("CreateCluster"); err != nil {
		return "", err
	}
	if _, ok := p.clusters[name]; !ok {
		p.clusters[name] = copyTags(tags)
	}
	return "cluster/" + name, nil
}

// DeleteCluster implements provisioning.ComputeAPI.
func (p *Provider) DeleteCluster(_ context.Context, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("DeleteCluster"); err != nil {
		return err
	}
	if _, ok := p.clusters[name]; !ok {
		return notFound("cluster", name)
	}
	delete(p.clusters, name)
	delete(p.containers, name)
	return nil
}

// ListContainers implements provisioning.ComputeAPI.
func (p *Provider) ListContainers(_ context.Context, cluster string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("ListContainers"); err != nil {
		return nil, err
	}
	if _, ok := p.clusters[cluster]; !ok {
		return nil, notFound("cluster", cluster)
	}
	return slices.Clone(p.containers[cluster]), nil
}

// DeregisterContainer implements provisioning.ComputeAPI.
func (p *Provider) DeregisterContainer(_ context.Context, cluster, containerID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("DeregisterContainer"); err != nil {
		return err
	}
	list := p.containers[cluster]
	i := slices.Index(list, containerID)
	if i < 0 {
		return notFound("container instance", containerID)
	}
	p.containers[cluster] = slices.Delete(list, i, i+1)
	return nil
}

// LaunchInstances implements provisioning.ComputeAPI. Each launched
// instance joins the cluster as a container instance.
func (p *Provider) LaunchInstances(_ context.Context, spec provisioning.InstanceSpec) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("LaunchInstances"); err != nil {
		return nil, err
	}
	if ids, ok := p.launchTokens[spec.ClientToken]; ok && spec.ClientToken != "" {
		return slices.Clone(ids), nil
	}
	count := max(spec.Count, 1)
	ids := make([]string, 0, count)
	for range count {
		id := p.newID("i")
		p.instances[id] = &provisioning.Instance{ID: id, State: "running", Tags: copyTags(spec.Tags)}
		p.containers[spec.ClusterName] = append(p.containers[spec.ClusterName], "ci-"+id)
		ids = append(ids, id)
	}
	if spec.ClientToken != "" {
		p.launchTokens[spec.ClientToken] = ids
	}
	return slices.Clone(ids), nil
}

// ListInstances implements provisioning.ComputeAPI.
func (p *Provider) ListInstances(_ context.Context, selector map[string]string) ([]provisioning.Instance, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("ListInstances"); err != nil {
		return nil, err
	}
	var out []provisioning.Instance
	for _, inst := range p.instances {
		if inst.State == "terminated" || !labels.Matches(inst.Tags, selector) {
			continue
		}
		out = append(out, provisioning.Instance{ID: inst.ID, State: inst.State, Tags: copyTags(inst.Tags)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// TerminateInstances implements provisioning.ComputeAPI.
func (p *Provider) TerminateInstances(_ context.Context, ids []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("TerminateInstances"); err != nil {
		return err
	}
	for _, id := range ids {
		inst, ok := p.instances[id]
		if !ok {
			return notFound("instance", id)
		}
		inst.State = "terminated"
		for cluster, list := range p.containers {
			p.containers[cluster] = slices.DeleteFunc(list, func(c string) bool { return c == "ci-"+id })
		}
	}
	return nil
}

// CreateTask implements provisioning.ComputeAPI.
func (p *Provider) CreateTask(_ context.Context, spec provisioning.TaskSpec) (*provisioning.Task, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("CreateTask"); err != nil {
		return nil, err
	}
	if _, ok := p.clusters[spec.ClusterName]; !ok {
		return nil, notFound("cluster", spec.ClusterName)
	}
	if p.tasks[spec.ClusterName] == nil {
		p.tasks[spec.ClusterName] = make(map[string]*provisioning.Task)
	}
	task := &provisioning.Task{Family: spec.Family, Revision: spec.Revision, Services: []string{spec.Family}}
	p.tasks[spec.ClusterName][spec.Family] = task
	c := *task
	return &c, nil
}

// FindTask implements provisioning.ComputeAPI.
func (p *Provider) FindTask(_ context.Context, cluster, family string) (*provisioning.Task, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("FindTask"); err != nil {
		return nil, err
	}
	task, ok := p.tasks[cluster][family]
	if !ok {
		return nil, notFound("task family", family)
	}
	c := *task
	c.Services = slices.Clone(task.Services)
	return &c, nil
}

// DeleteTasks implements provisioning.ComputeAPI.
func (p *Provider) DeleteTasks(_ context.Context, cluster, family string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("DeleteTasks"); err != nil {
		return err
	}
	if _, ok := p.tasks[cluster][family]; !ok {
		return notFound("task family", family)
	}
	delete(p.tasks[cluster], family)
	return nil
}

// CreateLoadBalancer implements provisioning.LoadBalancerAPI.
func (p *Provider) CreateLoadBalancer(_ context.Context, spec provisioning.LoadBalancerSpec) (*provisioning.LoadBalancer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("CreateLoadBalancer"); err != nil {
		return nil, err
	}
	lb, ok := p.loadBalancers[spec.Name]
	if !ok {
		lb = &provisioning.LoadBalancer{Name: spec.Name, DNSName: spec.Name + ".elb.example.internal"}
		p.loadBalancers[spec.Name] = lb
	}
	c := *lb
	c.InstanceIDs = slices.Clone(lb.InstanceIDs)
	return &c, nil
}

// FindLoadBalancer implements provisioning.LoadBalancerAPI.
func (p *Provider) FindLoadBalancer(_ context.Context, name string) (*provisioning.LoadBalancer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("FindLoadBalancer"); err != nil {
		return nil, err
	}
	lb, ok := p.loadBalancers[name]
	if !ok {
		return nil, notFound("load balancer", name)
	}
	c := *lb
	c.InstanceIDs = slices.Clone(lb.InstanceIDs)
	return &c, nil
}

// DeleteLoadBalancer implements provisioning.LoadBalancerAPI.
func (p *Provider) DeleteLoadBalancer(_ context.Context, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("DeleteLoadBalancer"); err != nil {
		return err
	}
	if _, ok := p.loadBalancers[name]; !ok {
		return notFound("load balancer", name)
	}
	delete(p.loadBalancers, name)
	return nil
}

// RegisterInstances implements provisioning.LoadBalancerAPI.
func (p *Provider) RegisterInstances(_ context.Context, name string, instanceIDs []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("RegisterInstances"); err != nil {
		return err
	}
	lb, ok := p.loadBalancers[name]
	if !ok {
		return notFound("load balancer", name)
	}
	for _, id := range instanceIDs {
		if !slices.Contains(lb.InstanceIDs, id) {
			lb.InstanceIDs = append(lb.InstanceIDs, id)
		}
	}
	return nil
}

// DeregisterInstances implements provisioning.LoadBalancerAPI.
func (p *Provider) DeregisterInstances(_ context.Context, name string, instanceIDs []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("DeregisterInstances"); err != nil {
		return err
	}
	lb, ok := p.loadBalancers[name]
	if !ok {
		return notFound("load balancer", name)
	}
	lb.InstanceIDs = slices.DeleteFunc(lb.InstanceIDs, func(id string) bool {
		return slices.Contains(instanceIDs, id)
	})
	return nil
}

// FindZone implements provisioning.DNSAPI.
func (p *Provider) FindZone(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("FindZone"); err != nil {
		return "", err
	}
	if p.Zone == "" {
		return "", notFound("hosted zone", "tagged")
	}
	return p.Zone, nil
}

// ZoneDomain implements provisioning.DNSAPI.
func (p *Provider) ZoneDomain(_ context.Context, zoneID string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("ZoneDomain"); err != nil {
		return "", err
	}
	if zoneID != p.Zone {
		return "", notFound("hosted zone", zoneID)
	}
	return p.Domain + ".", nil
}

// UpsertRecord implements provisioning.DNSAPI.
func (p *Provider) UpsertRecord(_ context.Context, _ string, record provisioning.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("UpsertRecord"); err != nil {
		return err
	}
	p.records[record.Name] = record
	return nil
}

// FindRecord implements provisioning.DNSAPI.
func (p *Provider) FindRecord(_ context.Context, _ string, name string) (*provisioning.Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("FindRecord"); err != nil {
		return nil, err
	}
	record, ok := p.records[name]
	if !ok {
		return nil, notFound("record", name)
	}
	return &record, nil
}

// DeleteRecord implements provisioning.DNSAPI.
func (p *Provider) DeleteRecord(_ context.Context, _ string, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("DeleteRecord"); err != nil {
		return err
	}
	if _, ok := p.records[name]; !ok {
		return notFound("record", name)
	}
	delete(p.records, name)
	return nil
}
