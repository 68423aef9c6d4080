package aws

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/stackctl/internal/provisioning"
	"github.com/imamik/stackctl/internal/provisioning/infrastructure"
	"github.com/imamik/stackctl/internal/util/labels"
)

const defaultACL = "acl-default"

// vpcState backs the EC2 network calls of a mock with one in-memory VPC.
type vpcState struct {
	mu         sync.Mutex
	subnets    []ec2types.Subnet
	acls       map[string]map[string]string
	subnetACL  map[string]string
	subnetRTB  map[string]string
	replaceErr []error
	replaces   int
}

func newVPCState(m *MockEC2) *vpcState {
	v := &vpcState{
		acls:      make(map[string]map[string]string),
		subnetACL: make(map[string]string),
		subnetRTB: make(map[string]string),
	}
	m.DescribeSubnetsFunc = v.describeSubnets
	m.CreateSubnetFunc = v.createSubnet
	m.DescribeRouteTablesFunc = v.describeRouteTables
	m.AssociateRouteTableFunc = v.associateRouteTable
	m.CreateNetworkAclFunc = v.createNetworkACL
	m.DescribeNetworkAclsFunc = v.describeNetworkACLs
	m.ReplaceNetworkAclAssociationFunc = v.replaceACLAssociation
	return v
}

func tagsMatch(tags []ec2types.Tag, filters []ec2types.Filter) bool {
	have := fromEC2Tags(tags)
	for _, f := range filters {
		key, ok := strings.CutPrefix(aws.ToString(f.Name), "tag:")
		if ok && have[key] != f.Values[0] {
			return false
		}
	}
	return true
}

func (v *vpcState) describeSubnets(_ context.Context, in *ec2.DescribeSubnetsInput) (*ec2.DescribeSubnetsOutput, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []ec2types.Subnet
	for _, s := range v.subnets {
		if tagsMatch(s.Tags, in.Filters) {
			out = append(out, s)
		}
	}
	return &ec2.DescribeSubnetsOutput{Subnets: out}, nil
}

func (v *vpcState) createSubnet(_ context.Context, in *ec2.CreateSubnetInput) (*ec2.CreateSubnetOutput, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, s := range v.subnets {
		if aws.ToString(s.CidrBlock) == aws.ToString(in.CidrBlock) {
			return nil, apiError("InvalidSubnet.Conflict")
		}
	}
	s := ec2types.Subnet{
		SubnetId:  aws.String(fmt.Sprintf("subnet-%d", len(v.subnets)+1)),
		VpcId:     in.VpcId,
		CidrBlock: in.CidrBlock,
	}
	for _, spec := range in.TagSpecifications {
		s.Tags = append(s.Tags, spec.Tags...)
	}
	v.subnets = append(v.subnets, s)
	v.subnetACL[aws.ToString(s.SubnetId)] = defaultACL
	return &ec2.CreateSubnetOutput{Subnet: &s}, nil
}

func (v *vpcState) describeRouteTables(_ context.Context, in *ec2.DescribeRouteTablesInput) (*ec2.DescribeRouteTablesOutput, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	subnetIDs := filterValues(in.Filters, "association.subnet-id")
	if subnetIDs == nil {
		return &ec2.DescribeRouteTablesOutput{RouteTables: []ec2types.RouteTable{{RouteTableId: aws.String("rtb-1")}}}, nil
	}
	var out []ec2types.RouteTable
	for _, id := range subnetIDs {
		if rtb, ok := v.subnetRTB[id]; ok {
			out = append(out, ec2types.RouteTable{
				RouteTableId: aws.String(rtb),
				Associations: []ec2types.RouteTableAssociation{{SubnetId: aws.String(id)}},
			})
		}
	}
	return &ec2.DescribeRouteTablesOutput{RouteTables: out}, nil
}

func (v *vpcState) associateRouteTable(_ context.Context, in *ec2.AssociateRouteTableInput) (*ec2.AssociateRouteTableOutput, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	id := aws.ToString(in.SubnetId)
	if _, ok := v.subnetRTB[id]; ok {
		return nil, apiError("Resource.AlreadyAssociated")
	}
	v.subnetRTB[id] = aws.ToString(in.RouteTableId)
	return &ec2.AssociateRouteTableOutput{}, nil
}

func (v *vpcState) createNetworkACL(_ context.Context, in *ec2.CreateNetworkAclInput) (*ec2.CreateNetworkAclOutput, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	tags := map[string]string{}
	for _, spec := range in.TagSpecifications {
		for k, val := range fromEC2Tags(spec.Tags) {
			tags[k] = val
		}
	}
	id := "acl-" + tags[labels.KeyProject]
	if _, ok := v.acls[id]; ok {
		id = fmt.Sprintf("%s-%d", id, len(v.acls))
	}
	v.acls[id] = tags
	return &ec2.CreateNetworkAclOutput{NetworkAcl: &ec2types.NetworkAcl{NetworkAclId: aws.String(id)}}, nil
}

func (v *vpcState) describeNetworkACLs(_ context.Context, in *ec2.DescribeNetworkAclsInput) (*ec2.DescribeNetworkAclsOutput, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []ec2types.NetworkAcl
	if subnetIDs := filterValues(in.Filters, "association.subnet-id"); subnetIDs != nil {
		for _, id := range subnetIDs {
			acl, ok := v.subnetACL[id]
			if !ok {
				continue
			}
			out = append(out, ec2types.NetworkAcl{
				NetworkAclId: aws.String(acl),
				IsDefault:    aws.Bool(acl == defaultACL),
				Associations: []ec2types.NetworkAclAssociation{{
					SubnetId:                aws.String(id),
					NetworkAclAssociationId: aws.String("aclassoc-" + id),
				}},
			})
		}
		return &ec2.DescribeNetworkAclsOutput{NetworkAcls: out}, nil
	}
	for id, tags := range v.acls {
		if tagsMatch(ec2Tags(tags), in.Filters) {
			out = append(out, ec2types.NetworkAcl{NetworkAclId: aws.String(id)})
		}
	}
	return &ec2.DescribeNetworkAclsOutput{NetworkAcls: out}, nil
}

func (v *vpcState) replaceACLAssociation(_ context.Context, in *ec2.ReplaceNetworkAclAssociationInput) (*ec2.ReplaceNetworkAclAssociationOutput, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.replaces++
	if len(v.replaceErr) > 0 {
		err := v.replaceErr[0]
		v.replaceErr = v.replaceErr[1:]
		return nil, err
	}
	subnetID := strings.TrimPrefix(aws.ToString(in.AssociationId), "aclassoc-")
	v.subnetACL[subnetID] = aws.ToString(in.NetworkAclId)
	return &ec2.ReplaceNetworkAclAssociationOutput{}, nil
}

func newScaffolds(c *Client) *infrastructure.ScaffoldManager {
	return infrastructure.NewScaffoldManager(c, c, provisioning.Network{ID: "vpc-1", CIDR: "10.0.0.0/16"}, 0, nil)
}

func TestScaffold_FindOrCreateReportsAssociations(t *testing.T) {
	t.Parallel()
	c, m := newTestClient(testSettings())
	v := newVPCState(m.ec2)
	scaffolds := newScaffolds(c)

	for i := 0; i < 2; i++ {
		s, err := scaffolds.FindOrCreate(context.Background(), "proj1")
		require.NoError(t, err)
		assert.Equal(t, "subnet-1", s.SubnetID)
		assert.Equal(t, "acl-proj1", s.ACLID)
		assert.Equal(t, "rtb-1", s.RouteTableID)
	}
	assert.Len(t, v.subnets, 1)
	assert.Len(t, v.acls, 1)
	assert.Equal(t, 1, v.replaces)
}

func TestScaffold_FailedACLAssociationCompletedOnRetry(t *testing.T) {
	t.Parallel()
	c, m := newTestClient(testSettings())
	v := newVPCState(m.ec2)
	v.replaceErr = []error{apiError("InvalidParameterValue")}
	scaffolds := newScaffolds(c)

	_, err := scaffolds.FindOrCreate(context.Background(), "proj1")
	require.Error(t, err)
	assert.Equal(t, defaultACL, v.subnetACL["subnet-1"])

	subnets, err := c.ListSubnets(context.Background(), "vpc-1", nil)
	require.NoError(t, err)
	require.Len(t, subnets, 1)
	assert.Equal(t, "rtb-1", subnets[0].RouteTableID)
	assert.Empty(t, subnets[0].ACLID, "the default ACL is not reported")

	s, err := scaffolds.FindOrCreate(context.Background(), "proj1")
	require.NoError(t, err)
	assert.Equal(t, "subnet-1", s.SubnetID)
	assert.Equal(t, "acl-proj1", s.ACLID)
	assert.Equal(t, "rtb-1", s.RouteTableID)
	assert.Equal(t, "acl-proj1", v.subnetACL["subnet-1"])
	assert.Len(t, v.subnets, 1)
	assert.Len(t, v.acls, 1)
}

func TestScaffold_ThrottledACLAssociationRetried(t *testing.T) {
	t.Parallel()
	c, m := newTestClient(testSettings())
	v := newVPCState(m.ec2)
	v.replaceErr = []error{apiError("RequestLimitExceeded")}

	s, err := newScaffolds(c).FindOrCreate(context.Background(), "proj1")
	require.NoError(t, err)
	assert.Equal(t, "acl-proj1", s.ACLID)
	assert.Equal(t, 2, v.replaces)
}

func TestCreateSubnet_RetriesThrottling(t *testing.T) {
	t.Parallel()
	c, m := newTestClient(testSettings())

	attempts := 0
	m.ec2.CreateSubnetFunc = func(context.Context, *ec2.CreateSubnetInput) (*ec2.CreateSubnetOutput, error) {
		attempts++
		if attempts == 1 {
			return nil, apiError("RequestLimitExceeded")
		}
		return &ec2.CreateSubnetOutput{Subnet: &ec2types.Subnet{SubnetId: aws.String("subnet-2")}}, nil
	}

	s, err := c.CreateSubnet(context.Background(), provisioning.SubnetSpec{NetworkID: "vpc-1", CIDR: "10.0.2.0/24"})
	require.NoError(t, err)
	assert.Equal(t, "subnet-2", s.ID)
	assert.Equal(t, 2, attempts)
}
