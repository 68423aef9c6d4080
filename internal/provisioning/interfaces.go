package provisioning

import "context"

// Network is the account's virtual network.
type Network struct {
	ID   string
	CIDR string
}

// Subnet is a network segment. RouteTableID and ACLID are empty while the
// subnet still uses the network's main route table or default ACL.
type Subnet struct {
	ID           string
	NetworkID    string
	CIDR         string
	RouteTableID string
	ACLID        string
	Tags         map[string]string
}

// SubnetSpec describes a subnet to create and associate.
type SubnetSpec struct {
	NetworkID    string
	CIDR         string
	RouteTableID string
	ACLID        string
	Tags         map[string]string
}

// NetworkAPI manages network segments, ACLs, and route tables.
type NetworkAPI interface {
	// FindNetwork returns the account network tagged for this tool.
	FindNetwork(ctx context.Context) (*Network, error)
	// ListSubnets returns subnets in networkID whose tags match selector.
	// A nil selector returns every subnet in the network.
	ListSubnets(ctx context.Context, networkID string, selector map[string]string) ([]Subnet, error)
	FindDefaultRouteTable(ctx context.Context, networkID string) (string, error)
	CreateACL(ctx context.Context, networkID string, tags map[string]string) (string, error)
	// FindACL returns the ACL matching selector or ErrNotFound.
	FindACL(ctx context.Context, networkID string, selector map[string]string) (string, error)
	DeleteACL(ctx context.Context, aclID string) error
	// CreateSubnet creates the subnet and associates its route table and
	// ACL. It returns ErrAlreadyExists when the CIDR is taken.
	CreateSubnet(ctx context.Context, spec SubnetSpec) (*Subnet, error)
	// AssociateSubnet moves an existing subnet onto the given route table
	// and ACL. An empty id leaves that association unchanged.
	AssociateSubnet(ctx context.Context, subnetID, routeTableID, aclID string) error
	DeleteSubnet(ctx context.Context, subnetID string) error
}

// SecurityGroupSpec describes a security group for one environment.
type SecurityGroupSpec struct {
	Name        string
	NetworkID   string
	Description string
	// IngressPorts are opened to the world.
	IngressPorts []int32
	Tags         map[string]string
}

// SecurityAPI manages security groups.
type SecurityAPI interface {
	// CreateSecurityGroup returns ErrAlreadyExists when the name is taken.
	CreateSecurityGroup(ctx context.Context, spec SecurityGroupSpec) (string, error)
	// FindSecurityGroup returns the group id or ErrNotFound.
	FindSecurityGroup(ctx context.Context, networkID, name string) (string, error)
	DeleteSecurityGroup(ctx context.Context, groupID string) error
}

// InstanceSpec describes backing instances for an environment's cluster.
type InstanceSpec struct {
	ClusterName     string
	SubnetID        string
	SecurityGroupID string
	Count           int
	SSHKeys         []string
	Tags            map[string]string
	// ClientToken makes a retried launch return the original instances.
	ClientToken string
}

// TaskSpec describes the task definition and services for an environment.
type TaskSpec struct {
	ClusterName      string
	Family           string
	Revision         string
	App              AppDescriptor
	LoadBalancerName string
	Tags             map[string]string
}

// ComputeAPI manages clusters, container instances, backing instances, and
// task definitions.
type ComputeAPI interface {
	// CreateCluster is idempotent and returns the cluster id.
	CreateCluster(ctx context.Context, name string, tags map[string]string) (string, error)
	DeleteCluster(ctx context.Context, name string) error
	// ListContainers returns container instance ids, or ErrNotFound when the
	// cluster does not exist.
	ListContainers(ctx context.Context, cluster string) ([]string, error)
	DeregisterContainer(ctx context.Context, cluster, containerID string) error
	LaunchInstances(ctx context.Context, spec InstanceSpec) ([]string, error)
	// ListInstances returns live and stopping instances matching selector.
	ListInstances(ctx context.Context, selector map[string]string) ([]Instance, error)
	TerminateInstances(ctx context.Context, ids []string) error
	// CreateTask registers the task definition and creates or updates its
	// services.
	CreateTask(ctx context.Context, spec TaskSpec) (*Task, error)
	// FindTask returns the services of family in cluster, or ErrNotFound
	// when none exist.
	FindTask(ctx context.Context, cluster, family string) (*Task, error)
	// DeleteTasks removes services and task definitions of family.
	DeleteTasks(ctx context.Context, cluster, family string) error
}

// LoadBalancerSpec describes an environment's load balancer.
type LoadBalancerSpec struct {
	Name            string
	SubnetID        string
	SecurityGroupID string
	Tags            map[string]string
}

// LoadBalancerAPI manages load balancers and their instance targets.
type LoadBalancerAPI interface {
	// CreateLoadBalancer is idempotent for an identical spec.
	CreateLoadBalancer(ctx context.Context, spec LoadBalancerSpec) (*LoadBalancer, error)
	// FindLoadBalancer returns the load balancer or ErrNotFound.
	FindLoadBalancer(ctx context.Context, name string) (*LoadBalancer, error)
	DeleteLoadBalancer(ctx context.Context, name string) error
	RegisterInstances(ctx context.Context, name string, instanceIDs []string) error
	DeregisterInstances(ctx context.Context, name string, instanceIDs []string) error
}

// Record is a DNS record in a hosted zone.
type Record struct {
	Name  string
	Type  string
	Value string
	TTL   int64
}

// DNSAPI manages records in the account's hosted zone.
type DNSAPI interface {
	// FindZone returns the hosted zone tagged for this tool.
	FindZone(ctx context.Context) (string, error)
	// ZoneDomain returns the zone's apex domain.
	ZoneDomain(ctx context.Context, zoneID string) (string, error)
	UpsertRecord(ctx context.Context, zoneID string, record Record) error
	// FindRecord returns the record named name, or ErrNotFound.
	FindRecord(ctx context.Context, zoneID, name string) (*Record, error)
	// DeleteRecord removes every record named name, or returns ErrNotFound.
	DeleteRecord(ctx context.Context, zoneID, name string) error
}

// Provider is the full set of collaborator interfaces a cloud adapter
// implements.
type Provider interface {
	NetworkAPI
	SecurityAPI
	ComputeAPI
	LoadBalancerAPI
	DNSAPI
}
