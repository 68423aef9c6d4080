package aws

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	elb "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancing"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"

	"github.com/imamik/stackctl/internal/config"
)

// MockEC2 is a configurable EC2API. Unset funcs return empty output.
type MockEC2 struct {
	DescribeVpcsFunc                  func(ctx context.Context, in *ec2.DescribeVpcsInput) (*ec2.DescribeVpcsOutput, error)
	DescribeSubnetsFunc               func(ctx context.Context, in *ec2.DescribeSubnetsInput) (*ec2.DescribeSubnetsOutput, error)
	CreateSubnetFunc                  func(ctx context.Context, in *ec2.CreateSubnetInput) (*ec2.CreateSubnetOutput, error)
	DeleteSubnetFunc                  func(ctx context.Context, in *ec2.DeleteSubnetInput) (*ec2.DeleteSubnetOutput, error)
	DescribeRouteTablesFunc           func(ctx context.Context, in *ec2.DescribeRouteTablesInput) (*ec2.DescribeRouteTablesOutput, error)
	AssociateRouteTableFunc           func(ctx context.Context, in *ec2.AssociateRouteTableInput) (*ec2.AssociateRouteTableOutput, error)
	CreateNetworkAclFunc              func(ctx context.Context, in *ec2.CreateNetworkAclInput) (*ec2.CreateNetworkAclOutput, error)
	CreateNetworkAclEntryFunc         func(ctx context.Context, in *ec2.CreateNetworkAclEntryInput) (*ec2.CreateNetworkAclEntryOutput, error)
	DescribeNetworkAclsFunc           func(ctx context.Context, in *ec2.DescribeNetworkAclsInput) (*ec2.DescribeNetworkAclsOutput, error)
	ReplaceNetworkAclAssociationFunc  func(ctx context.Context, in *ec2.ReplaceNetworkAclAssociationInput) (*ec2.ReplaceNetworkAclAssociationOutput, error)
	DeleteNetworkAclFunc              func(ctx context.Context, in *ec2.DeleteNetworkAclInput) (*ec2.DeleteNetworkAclOutput, error)
	CreateSecurityGroupFunc           func(ctx context.Context, in *ec2.CreateSecurityGroupInput) (*ec2.CreateSecurityGroupOutput, error)
	AuthorizeSecurityGroupIngressFunc func(ctx context.Context, in *ec2.AuthorizeSecurityGroupIngressInput) (*ec2.AuthorizeSecurityGroupIngressOutput, error)
	DescribeSecurityGroupsFunc        func(ctx context.Context, in *ec2.DescribeSecurityGroupsInput) (*ec2.DescribeSecurityGroupsOutput, error)
	DeleteSecurityGroupFunc           func(ctx context.Context, in *ec2.DeleteSecurityGroupInput) (*ec2.DeleteSecurityGroupOutput, error)
	RunInstancesFunc                  func(ctx context.Context, in *ec2.RunInstancesInput) (*ec2.RunInstancesOutput, error)
	DescribeInstancesFunc             func(ctx context.Context, in *ec2.DescribeInstancesInput) (*ec2.DescribeInstancesOutput, error)
	TerminateInstancesFunc            func(ctx context.Context, in *ec2.TerminateInstancesInput) (*ec2.TerminateInstancesOutput, error)
}

func (m *MockEC2) DescribeVpcs(ctx context.Context, in *ec2.DescribeVpcsInput, _ ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error) {
	if m.DescribeVpcsFunc != nil {
		return m.DescribeVpcsFunc(ctx, in)
	}
	return &ec2.DescribeVpcsOutput{}, nil
}

func (m *MockEC2) DescribeSubnets(ctx context.Context, in *ec2.DescribeSubnetsInput, _ ...func(*ec2.Options)) (*ec2.DescribeSubnetsOutput, error) {
	if m.DescribeSubnetsFunc != nil {
		return m.DescribeSubnetsFunc(ctx, in)
	}
	return &ec2.DescribeSubnetsOutput{}, nil
}

func (m *MockEC2) CreateSubnet(ctx context.Context, in *ec2.CreateSubnetInput, _ ...func(*ec2.Options)) (*ec2.CreateSubnetOutput, error) {
	if m.CreateSubnetFunc != nil {
		return m.CreateSubnetFunc(ctx, in)
	}
	return &ec2.CreateSubnetOutput{Subnet: &ec2types.Subnet{SubnetId: aws.String("subnet-mock")}}, nil
}

func (m *MockEC2) DeleteSubnet(ctx context.Context, in *ec2.DeleteSubnetInput, _ ...func(*ec2.Options)) (*ec2.DeleteSubnetOutput, error) {
	if m.DeleteSubnetFunc != nil {
		return m.DeleteSubnetFunc(ctx, in)
	}
	return &ec2.DeleteSubnetOutput{}, nil
}

func (m *MockEC2) DescribeRouteTables(ctx context.Context, in *ec2.DescribeRouteTablesInput, _ ...func(*ec2.Options)) (*ec2.DescribeRouteTablesOutput, error) {
	if m.DescribeRouteTablesFunc != nil {
		return m.DescribeRouteTablesFunc(ctx, in)
	}
	return &ec2.DescribeRouteTablesOutput{}, nil
}

func (m *MockEC2) AssociateRouteTable(ctx context.Context, in *ec2.AssociateRouteTableInput, _ ...func(*ec2.Options)) (*ec2.AssociateRouteTableOutput, error) {
	if m.AssociateRouteTableFunc != nil {
		return m.AssociateRouteTableFunc(ctx, in)
	}
	return &ec2.AssociateRouteTableOutput{}, nil
}

func (m *MockEC2) CreateNetworkAcl(ctx context.Context, in *ec2.CreateNetworkAclInput, _ ...func(*ec2.Options)) (*ec2.CreateNetworkAclOutput, error) {
	if m.CreateNetworkAclFunc != nil {
		return m.CreateNetworkAclFunc(ctx, in)
	}
	return &ec2.CreateNetworkAclOutput{NetworkAcl: &ec2types.NetworkAcl{NetworkAclId: aws.String("acl-mock")}}, nil
}

func (m *MockEC2) CreateNetworkAclEntry(ctx context.Context, in *ec2.CreateNetworkAclEntryInput, _ ...func(*ec2.Options)) (*ec2.CreateNetworkAclEntryOutput, error) {
	if m.CreateNetworkAclEntryFunc != nil {
		return m.CreateNetworkAclEntryFunc(ctx, in)
	}
	return &ec2.CreateNetworkAclEntryOutput{}, nil
}

func (m *MockEC2) DescribeNetworkAcls(ctx context.Context, in *ec2.DescribeNetworkAclsInput, _ ...func(*ec2.Options)) (*ec2.DescribeNetworkAclsOutput, error) {
	if m.DescribeNetworkAclsFunc != nil {
		return m.DescribeNetworkAclsFunc(ctx, in)
	}
	return &ec2.DescribeNetworkAclsOutput{}, nil
}

func (m *MockEC2) ReplaceNetworkAclAssociation(ctx context.Context, in *ec2.ReplaceNetworkAclAssociationInput, _ ...func(*ec2.Options)) (*ec2.ReplaceNetworkAclAssociationOutput, error) {
	if m.ReplaceNetworkAclAssociationFunc != nil {
		return m.ReplaceNetworkAclAssociationFunc(ctx, in)
	}
	return &ec2.ReplaceNetworkAclAssociationOutput{}, nil
}

func (m *MockEC2) DeleteNetworkAcl(ctx context.Context, in *ec2.DeleteNetworkAclInput, _ ...func(*ec2.Options)) (*ec2.DeleteNetworkAclOutput, error) {
	if m.DeleteNetworkAclFunc != nil {
		return m.DeleteNetworkAclFunc(ctx, in)
	}
	return &ec2.DeleteNetworkAclOutput{}, nil
}

func (m *MockEC2) CreateSecurityGroup(ctx context.Context, in *ec2.CreateSecurityGroupInput, _ ...func(*ec2.Options)) (*ec2.CreateSecurityGroupOutput, error) {
	if m.CreateSecurityGroupFunc != nil {
		return m.CreateSecurityGroupFunc(ctx, in)
	}
	return &ec2.CreateSecurityGroupOutput{GroupId: aws.String("sg-mock")}, nil
}

func (m *MockEC2) AuthorizeSecurityGroupIngress(ctx context.Context, in *ec2.AuthorizeSecurityGroupIngressInput, _ ...func(*ec2.Options)) (*ec2.AuthorizeSecurityGroupIngressOutput, error) {
	if m.AuthorizeSecurityGroupIngressFunc != nil {
		return m.AuthorizeSecurityGroupIngressFunc(ctx, in)
	}
	return &ec2.AuthorizeSecurityGroupIngressOutput{}, nil
}

func (m *MockEC2) DescribeSecurityGroups(ctx context.Context, in *ec2.DescribeSecurityGroupsInput, _ ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupsOutput, error) {
	if m.DescribeSecurityGroupsFunc != nil {
		return m.DescribeSecurityGroupsFunc(ctx, in)
	}
	return &ec2.DescribeSecurityGroupsOutput{}, nil
}

func (m *MockEC2) DeleteSecurityGroup(ctx context.Context, in *ec2.DeleteSecurityGroupInput, _ ...func(*ec2.Options)) (*ec2.DeleteSecurityGroupOutput, error) {
	if m.DeleteSecurityGroupFunc != nil {
		return m.DeleteSecurityGroupFunc(ctx, in)
	}
	return &ec2.DeleteSecurityGroupOutput{}, nil
}

func (m *MockEC2) RunInstances(ctx context.Context, in *ec2.RunInstancesInput, _ ...func(*ec2.Options)) (*ec2.RunInstancesOutput, error) {
	if m.RunInstancesFunc != nil {
		return m.RunInstancesFunc(ctx, in)
	}
	return &ec2.RunInstancesOutput{}, nil
}

func (m *MockEC2) DescribeInstances(ctx context.Context, in *ec2.DescribeInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	if m.DescribeInstancesFunc != nil {
		return m.DescribeInstancesFunc(ctx, in)
	}
	return &ec2.DescribeInstancesOutput{}, nil
}

func (m *MockEC2) TerminateInstances(ctx context.Context, in *ec2.TerminateInstancesInput, _ ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error) {
	if m.TerminateInstancesFunc != nil {
		return m.TerminateInstancesFunc(ctx, in)
	}
	return &ec2.TerminateInstancesOutput{}, nil
}

// MockECS is a configurable ECSAPI. Unset funcs return empty output.
type MockECS struct {
	CreateClusterFunc               func(ctx context.Context, in *ecs.CreateClusterInput) (*ecs.CreateClusterOutput, error)
	DeleteClusterFunc               func(ctx context.Context, in *ecs.DeleteClusterInput) (*ecs.DeleteClusterOutput, error)
	ListContainerInstancesFunc      func(ctx context.Context, in *ecs.ListContainerInstancesInput) (*ecs.ListContainerInstancesOutput, error)
	DeregisterContainerInstanceFunc func(ctx context.Context, in *ecs.DeregisterContainerInstanceInput) (*ecs.DeregisterContainerInstanceOutput, error)
	RegisterTaskDefinitionFunc      func(ctx context.Context, in *ecs.RegisterTaskDefinitionInput) (*ecs.RegisterTaskDefinitionOutput, error)
	ListTaskDefinitionsFunc         func(ctx context.Context, in *ecs.ListTaskDefinitionsInput) (*ecs.ListTaskDefinitionsOutput, error)
	DeregisterTaskDefinitionFunc    func(ctx context.Context, in *ecs.DeregisterTaskDefinitionInput) (*ecs.DeregisterTaskDefinitionOutput, error)
	CreateServiceFunc               func(ctx context.Context, in *ecs.CreateServiceInput) (*ecs.CreateServiceOutput, error)
	UpdateServiceFunc               func(ctx context.Context, in *ecs.UpdateServiceInput) (*ecs.UpdateServiceOutput, error)
	ListServicesFunc                func(ctx context.Context, in *ecs.ListServicesInput) (*ecs.ListServicesOutput, error)
	DeleteServiceFunc               func(ctx context.Context, in *ecs.DeleteServiceInput) (*ecs.DeleteServiceOutput, error)
}

func (m *MockECS) CreateCluster(ctx context.Context, in *ecs.CreateClusterInput, _ ...func(*ecs.Options)) (*ecs.CreateClusterOutput, error) {
	if m.CreateClusterFunc != nil {
		return m.CreateClusterFunc(ctx, in)
	}
	return &ecs.CreateClusterOutput{Cluster: &ecstypes.Cluster{ClusterArn: aws.String("arn:aws:ecs:cluster/" + aws.ToString(in.ClusterName))}}, nil
}

func (m *MockECS) DeleteCluster(ctx context.Context, in *ecs.DeleteClusterInput, _ ...func(*ecs.Options)) (*ecs.DeleteClusterOutput, error) {
	if m.DeleteClusterFunc != nil {
		return m.DeleteClusterFunc(ctx, in)
	}
	return &ecs.DeleteClusterOutput{}, nil
}

func (m *MockECS) ListContainerInstances(ctx context.Context, in *ecs.ListContainerInstancesInput, _ ...func(*ecs.Options)) (*ecs.ListContainerInstancesOutput, error) {
	if m.ListContainerInstancesFunc != nil {
		return m.ListContainerInstancesFunc(ctx, in)
	}
	return &ecs.ListContainerInstancesOutput{}, nil
}

func (m *MockECS) DeregisterContainerInstance(ctx context.Context, in *ecs.DeregisterContainerInstanceInput, _ ...func(*ecs.Options)) (*ecs.DeregisterContainerInstanceOutput, error) {
	if m.DeregisterContainerInstanceFunc != nil {
		return m.DeregisterContainerInstanceFunc(ctx, in)
	}
	return &ecs.DeregisterContainerInstanceOutput{}, nil
}

func (m *MockECS) RegisterTaskDefinition(ctx context.Context, in *ecs.RegisterTaskDefinitionInput, _ ...func(*ecs.Options)) (*ecs.RegisterTaskDefinitionOutput, error) {
	if m.RegisterTaskDefinitionFunc != nil {
		return m.RegisterTaskDefinitionFunc(ctx, in)
	}
	return &ecs.RegisterTaskDefinitionOutput{TaskDefinition: &ecstypes.TaskDefinition{
		TaskDefinitionArn: aws.String("arn:aws:ecs:task-definition/" + aws.ToString(in.Family) + ":1"),
	}}, nil
}

func (m *MockECS) ListTaskDefinitions(ctx context.Context, in *ecs.ListTaskDefinitionsInput, _ ...func(*ecs.Options)) (*ecs.ListTaskDefinitionsOutput, error) {
	if m.ListTaskDefinitionsFunc != nil {
		return m.ListTaskDefinitionsFunc(ctx, in)
	}
	return &ecs.ListTaskDefinitionsOutput{}, nil
}

func (m *MockECS) DeregisterTaskDefinition(ctx context.Context, in *ecs.DeregisterTaskDefinitionInput, _ ...func(*ecs.Options)) (*ecs.DeregisterTaskDefinitionOutput, error) {
	if m.DeregisterTaskDefinitionFunc != nil {
		return m.DeregisterTaskDefinitionFunc(ctx, in)
	}
	return &ecs.DeregisterTaskDefinitionOutput{}, nil
}

func (m *MockECS) CreateService(ctx context.Context, in *ecs.CreateServiceInput, _ ...func(*ecs.Options)) (*ecs.CreateServiceOutput, error) {
	if m.CreateServiceFunc != nil {
		return m.CreateServiceFunc(ctx, in)
	}
	return &ecs.CreateServiceOutput{}, nil
}

func (m *MockECS) UpdateService(ctx context.Context, in *ecs.UpdateServiceInput, _ ...func(*ecs.Options)) (*ecs.UpdateServiceOutput, error) {
	if m.UpdateServiceFunc != nil {
		return m.UpdateServiceFunc(ctx, in)
	}
	return &ecs.UpdateServiceOutput{}, nil
}

func (m *MockECS) ListServices(ctx context.Context, in *ecs.ListServicesInput, _ ...func(*ecs.Options)) (*ecs.ListServicesOutput, error) {
	if m.ListServicesFunc != nil {
		return m.ListServicesFunc(ctx, in)
	}
	return &ecs.ListServicesOutput{}, nil
}

func (m *MockECS) DeleteService(ctx context.Context, in *ecs.DeleteServiceInput, _ ...func(*ecs.Options)) (*ecs.DeleteServiceOutput, error) {
	if m.DeleteServiceFunc != nil {
		return m.DeleteServiceFunc(ctx, in)
	}
	return &ecs.DeleteServiceOutput{}, nil
}

// MockELB is a configurable ELBAPI. Unset funcs return empty output.
type MockELB struct {
	CreateLoadBalancerFunc                  func(ctx context.Context, in *elb.CreateLoadBalancerInput) (*elb.CreateLoadBalancerOutput, error)
	ConfigureHealthCheckFunc                func(ctx context.Context, in *elb.ConfigureHealthCheckInput) (*elb.ConfigureHealthCheckOutput, error)
	DescribeLoadBalancersFunc               func(ctx context.Context, in *elb.DescribeLoadBalancersInput) (*elb.DescribeLoadBalancersOutput, error)
	DeleteLoadBalancerFunc                  func(ctx context.Context, in *elb.DeleteLoadBalancerInput) (*elb.DeleteLoadBalancerOutput, error)
	RegisterInstancesWithLoadBalancerFunc   func(ctx context.Context, in *elb.RegisterInstancesWithLoadBalancerInput) (*elb.RegisterInstancesWithLoadBalancerOutput, error)
	DeregisterInstancesFromLoadBalancerFunc func(ctx context.Context, in *elb.DeregisterInstancesFromLoadBalancerInput) (*elb.DeregisterInstancesFromLoadBalancerOutput, error)
}

func (m *MockELB) CreateLoadBalancer(ctx context.Context, in *elb.CreateLoadBalancerInput, _ ...func(*elb.Options)) (*elb.CreateLoadBalancerOutput, error) {
	if m.CreateLoadBalancerFunc != nil {
		return m.CreateLoadBalancerFunc(ctx, in)
	}
	return &elb.CreateLoadBalancerOutput{DNSName: aws.String(aws.ToString(in.LoadBalancerName) + ".elb.amazonaws.com")}, nil
}

func (m *MockELB) ConfigureHealthCheck(ctx context.Context, in *elb.ConfigureHealthCheckInput, _ ...func(*elb.Options)) (*elb.ConfigureHealthCheckOutput, error) {
	if m.ConfigureHealthCheckFunc != nil {
		return m.ConfigureHealthCheckFunc(ctx, in)
	}
	return &elb.ConfigureHealthCheckOutput{}, nil
}

func (m *MockELB) DescribeLoadBalancers(ctx context.Context, in *elb.DescribeLoadBalancersInput, _ ...func(*elb.Options)) (*elb.DescribeLoadBalancersOutput, error) {
	if m.DescribeLoadBalancersFunc != nil {
		return m.DescribeLoadBalancersFunc(ctx, in)
	}
	return &elb.DescribeLoadBalancersOutput{}, nil
}

func (m *MockELB) DeleteLoadBalancer(ctx context.Context, in *elb.DeleteLoadBalancerInput, _ ...func(*elb.Options)) (*elb.DeleteLoadBalancerOutput, error) {
	if m.DeleteLoadBalancerFunc != nil {
		return m.DeleteLoadBalancerFunc(ctx, in)
	}
	return &elb.DeleteLoadBalancerOutput{}, nil
}

func (m *MockELB) RegisterInstancesWithLoadBalancer(ctx context.Context, in *elb.RegisterInstancesWithLoadBalancerInput, _ ...func(*elb.Options)) (*elb.RegisterInstancesWithLoadBalancerOutput, error) {
	if m.RegisterInstancesWithLoadBalancerFunc != nil {
		return m.RegisterInstancesWithLoadBalancerFunc(ctx, in)
	}
	return &elb.RegisterInstancesWithLoadBalancerOutput{}, nil
}

func (m *MockELB) DeregisterInstancesFromLoadBalancer(ctx context.Context, in *elb.DeregisterInstancesFromLoadBalancerInput, _ ...func(*elb.Options)) (*elb.DeregisterInstancesFromLoadBalancerOutput, error) {
	if m.DeregisterInstancesFromLoadBalancerFunc != nil {
		return m.DeregisterInstancesFromLoadBalancerFunc(ctx, in)
	}
	return &elb.DeregisterInstancesFromLoadBalancerOutput{}, nil
}

// MockRoute53 is a configurable Route53API. Unset funcs return empty
// output.
type MockRoute53 struct {
	ListHostedZonesFunc          func(ctx context.Context, in *route53.ListHostedZonesInput) (*route53.ListHostedZonesOutput, error)
	ListTagsForResourceFunc      func(ctx context.Context, in *route53.ListTagsForResourceInput) (*route53.ListTagsForResourceOutput, error)
	GetHostedZoneFunc            func(ctx context.Context, in *route53.GetHostedZoneInput) (*route53.GetHostedZoneOutput, error)
	ListResourceRecordSetsFunc   func(ctx context.Context, in *route53.ListResourceRecordSetsInput) (*route53.ListResourceRecordSetsOutput, error)
	ChangeResourceRecordSetsFunc func(ctx context.Context, in *route53.ChangeResourceRecordSetsInput) (*route53.ChangeResourceRecordSetsOutput, error)
}

func (m *MockRoute53) ListHostedZones(ctx context.Context, in *route53.ListHostedZonesInput, _ ...func(*route53.Options)) (*route53.ListHostedZonesOutput, error) {
	if m.ListHostedZonesFunc != nil {
		return m.ListHostedZonesFunc(ctx, in)
	}
	return &route53.ListHostedZonesOutput{}, nil
}

func (m *MockRoute53) ListTagsForResource(ctx context.Context, in *route53.ListTagsForResourceInput, _ ...func(*route53.Options)) (*route53.ListTagsForResourceOutput, error) {
	if m.ListTagsForResourceFunc != nil {
		return m.ListTagsForResourceFunc(ctx, in)
	}
	return &route53.ListTagsForResourceOutput{}, nil
}

func (m *MockRoute53) GetHostedZone(ctx context.Context, in *route53.GetHostedZoneInput, _ ...func(*route53.Options)) (*route53.GetHostedZoneOutput, error) {
	if m.GetHostedZoneFunc != nil {
		return m.GetHostedZoneFunc(ctx, in)
	}
	return &route53.GetHostedZoneOutput{HostedZone: &r53types.HostedZone{Id: in.Id, Name: aws.String("example.com.")}}, nil
}

func (m *MockRoute53) ListResourceRecordSets(ctx context.Context, in *route53.ListResourceRecordSetsInput, _ ...func(*route53.Options)) (*route53.ListResourceRecordSetsOutput, error) {
	if m.ListResourceRecordSetsFunc != nil {
		return m.ListResourceRecordSetsFunc(ctx, in)
	}
	return &route53.ListResourceRecordSetsOutput{}, nil
}

func (m *MockRoute53) ChangeResourceRecordSets(ctx context.Context, in *route53.ChangeResourceRecordSetsInput, _ ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error) {
	if m.ChangeResourceRecordSetsFunc != nil {
		return m.ChangeResourceRecordSetsFunc(ctx, in)
	}
	return &route53.ChangeResourceRecordSetsOutput{}, nil
}

// mocks bundles one mock per service for a test client.
type mocks struct {
	ec2     *MockEC2
	ecs     *MockECS
	elb     *MockELB
	route53 *MockRoute53
}

func testSettings() Settings {
	return Settings{
		AccountTag:   "acct",
		AMI:          "ami-123",
		InstanceType: "t3.small",
	}
}

func testTimeouts() *config.Timeouts {
	return &config.Timeouts{
		Create:            time.Second,
		Delete:            time.Second,
		InstanceRunning:   time.Second,
		RetryMaxAttempts:  3,
		RetryInitialDelay: time.Millisecond,
		RetryMaxDelay:     5 * time.Millisecond,
	}
}

func newTestClient(settings Settings) (*Client, *mocks) {
	m := &mocks{ec2: &MockEC2{}, ecs: &MockECS{}, elb: &MockELB{}, route53: &MockRoute53{}}
	c := newClient(settings,
		WithAPIs(m.ec2, m.ecs, m.elb, m.route53),
		WithTimeouts(testTimeouts()))
	return c, m
}

// filterValues returns the values of the filter named name.
func filterValues(filters []ec2types.Filter, name string) []string {
	for _, f := range filters {
		if aws.ToString(f.Name) == name {
			return f.Values
		}
	}
	return nil
}
