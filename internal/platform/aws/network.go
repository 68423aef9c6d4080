package aws

import (
	"context"
	"fmt"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/imamik/stackctl/internal/provisioning"
	"github.com/imamik/stackctl/internal/util/labels"
)

// FindNetwork returns the VPC tagged with the account tag.
func (c *Client) FindNetwork(ctx context.Context) (*provisioning.Network, error) {
	out, err := c.ec2.DescribeVpcs(ctx, &ec2.DescribeVpcsInput{
		Filters: tagFilters(c.accountSelector()),
	})
	if err != nil {
		return nil, mapError("failed to describe VPCs", err)
	}
	if len(out.Vpcs) == 0 {
		return nil, fmt.Errorf("no VPC tagged %s=%s: %w", labels.KeyAccount, c.settings.AccountTag, provisioning.ErrNotFound)
	}
	vpc := out.Vpcs[0]
	return &provisioning.Network{
		ID:   aws.ToString(vpc.VpcId),
		CIDR: aws.ToString(vpc.CidrBlock),
	}, nil
}

// ListSubnets returns subnets of networkID matching selector, with their
// explicit route table and non-default ACL associations.
func (c *Client) ListSubnets(ctx context.Context, networkID string, selector map[string]string) ([]provisioning.Subnet, error) {
	filters := append([]ec2types.Filter{filter("vpc-id", networkID)}, tagFilters(selector)...)

	var subnets []provisioning.Subnet
	paginator := ec2.NewDescribeSubnetsPaginator(c.ec2, &ec2.DescribeSubnetsInput{Filters: filters})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, mapError("failed to describe subnets", err)
		}
		for _, s := range page.Subnets {
			subnets = append(subnets, provisioning.Subnet{
				ID:        aws.ToString(s.SubnetId),
				NetworkID: aws.ToString(s.VpcId),
				CIDR:      aws.ToString(s.CidrBlock),
				Tags:      fromEC2Tags(s.Tags),
			})
		}
	}
	if len(subnets) == 0 {
		return subnets, nil
	}

	ids := make([]string, len(subnets))
	for i, s := range subnets {
		ids[i] = s.ID
	}
	routeTables, acls, err := c.subnetAssociations(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range subnets {
		subnets[i].RouteTableID = routeTables[subnets[i].ID]
		subnets[i].ACLID = acls[subnets[i].ID]
	}
	return subnets, nil
}

// subnetAssociations maps subnet ids to their explicitly associated route
// table and to their ACL, skipping the network's default ACL.
func (c *Client) subnetAssociations(ctx context.Context, subnetIDs []string) (routeTables, acls map[string]string, err error) {
	byAssoc := []ec2types.Filter{{Name: aws.String("association.subnet-id"), Values: subnetIDs}}

	rtOut, err := c.ec2.DescribeRouteTables(ctx, &ec2.DescribeRouteTablesInput{Filters: byAssoc})
	if err != nil {
		return nil, nil, mapError("failed to describe subnet route tables", err)
	}
	routeTables = make(map[string]string, len(subnetIDs))
	for _, rt := range rtOut.RouteTables {
		for _, assoc := range rt.Associations {
			if id := aws.ToString(assoc.SubnetId); id != "" {
				routeTables[id] = aws.ToString(rt.RouteTableId)
			}
		}
	}

	aclOut, err := c.ec2.DescribeNetworkAcls(ctx, &ec2.DescribeNetworkAclsInput{Filters: byAssoc})
	if err != nil {
		return nil, nil, mapError("failed to describe subnet ACLs", err)
	}
	acls = make(map[string]string, len(subnetIDs))
	for _, acl := range aclOut.NetworkAcls {
		if aws.ToBool(acl.IsDefault) {
			continue
		}
		for _, assoc := range acl.Associations {
			if id := aws.ToString(assoc.SubnetId); id != "" {
				acls[id] = aws.ToString(acl.NetworkAclId)
			}
		}
	}
	return routeTables, acls, nil
}

// FindDefaultRouteTable returns the route table tagged with the account
// tag, falling back to the VPC's main route table.
func (c *Client) FindDefaultRouteTable(ctx context.Context, networkID string) (string, error) {
	tagged := append([]ec2types.Filter{filter("vpc-id", networkID)}, tagFilters(c.accountSelector())...)
	mainTable := []ec2types.Filter{filter("vpc-id", networkID), filter("association.main", "true")}

	for _, filters := range [][]ec2types.Filter{tagged, mainTable} {
		out, err := c.ec2.DescribeRouteTables(ctx, &ec2.DescribeRouteTablesInput{Filters: filters})
		if err != nil {
			return "", mapError("failed to describe route tables", err)
		}
		if len(out.RouteTables) > 0 {
			return aws.ToString(out.RouteTables[0].RouteTableId), nil
		}
	}
	return "", fmt.Errorf("route table for %s: %w", networkID, provisioning.ErrNotFound)
}

// CreateACL creates a network ACL that allows all traffic in both
// directions. Filtering happens in the security group.
func (c *Client) CreateACL(ctx context.Context, networkID string, tags map[string]string) (string, error) {
	var aclID string
	err := c.create(ctx, func(ctx context.Context) error {
		out, err := c.ec2.CreateNetworkAcl(ctx, &ec2.CreateNetworkAclInput{
			VpcId:             aws.String(networkID),
			TagSpecifications: tagSpec(ec2types.ResourceTypeNetworkAcl, tags),
		})
		if err != nil {
			return err
		}
		aclID = aws.ToString(out.NetworkAcl.NetworkAclId)
		return nil
	})
	if err != nil {
		return "", mapError("failed to create network ACL", err)
	}

	for _, egress := range []bool{false, true} {
		_, err := c.ec2.CreateNetworkAclEntry(ctx, &ec2.CreateNetworkAclEntryInput{
			NetworkAclId: aws.String(aclID),
			RuleNumber:   aws.Int32(100),
			Protocol:     aws.String("-1"),
			RuleAction:   ec2types.RuleActionAllow,
			CidrBlock:    aws.String("0.0.0.0/0"),
			Egress:       aws.Bool(egress),
		})
		if err != nil {
			return "", mapError(fmt.Sprintf("failed to add entry to network ACL %s", aclID), err)
		}
	}
	return aclID, nil
}

// FindACL returns the non-default ACL in networkID matching selector. When
// several match, the lowest id wins so concurrent callers agree.
func (c *Client) FindACL(ctx context.Context, networkID string, selector map[string]string) (string, error) {
	filters := append([]ec2types.Filter{filter("vpc-id", networkID), filter("default", "false")}, tagFilters(selector)...)
	out, err := c.ec2.DescribeNetworkAcls(ctx, &ec2.DescribeNetworkAclsInput{Filters: filters})
	if err != nil {
		return "", mapError("failed to describe network ACLs", err)
	}
	if len(out.NetworkAcls) == 0 {
		return "", fmt.Errorf("network ACL: %w", provisioning.ErrNotFound)
	}
	ids := make([]string, len(out.NetworkAcls))
	for i, acl := range out.NetworkAcls {
		ids[i] = aws.ToString(acl.NetworkAclId)
	}
	return slices.Min(ids), nil
}

// DeleteACL deletes the ACL, retrying while subnet associations drain.
func (c *Client) DeleteACL(ctx context.Context, aclID string) error {
	err := c.remove(ctx, func(ctx context.Context) error {
		_, err := c.ec2.DeleteNetworkAcl(ctx, &ec2.DeleteNetworkAclInput{NetworkAclId: aws.String(aclID)})
		return err
	})
	return mapError(fmt.Sprintf("failed to delete network ACL %s", aclID), err)
}

// CreateSubnet creates the subnet and moves it onto the given route table
// and ACL.
func (c *Client) CreateSubnet(ctx context.Context, spec provisioning.SubnetSpec) (*provisioning.Subnet, error) {
	var subnetID string
	err := c.create(ctx, func(ctx context.Context) error {
		out, err := c.ec2.CreateSubnet(ctx, &ec2.CreateSubnetInput{
			VpcId:             aws.String(spec.NetworkID),
			CidrBlock:         aws.String(spec.CIDR),
			TagSpecifications: tagSpec(ec2types.ResourceTypeSubnet, spec.Tags),
		})
		if err != nil {
			return err
		}
		subnetID = aws.ToString(out.Subnet.SubnetId)
		return nil
	})
	if err != nil {
		return nil, mapError(fmt.Sprintf("failed to create subnet %s", spec.CIDR), err)
	}

	if err := c.AssociateSubnet(ctx, subnetID, spec.RouteTableID, spec.ACLID); err != nil {
		return nil, err
	}

	return &provisioning.Subnet{
		ID:           subnetID,
		NetworkID:    spec.NetworkID,
		CIDR:         spec.CIDR,
		RouteTableID: spec.RouteTableID,
		ACLID:        spec.ACLID,
		Tags:         spec.Tags,
	}, nil
}

// AssociateSubnet moves subnetID onto routeTableID and aclID. Empty ids are
// skipped.
func (c *Client) AssociateSubnet(ctx context.Context, subnetID, routeTableID, aclID string) error {
	if routeTableID != "" {
		err := c.create(ctx, func(ctx context.Context) error {
			_, err := c.ec2.AssociateRouteTable(ctx, &ec2.AssociateRouteTableInput{
				RouteTableId: aws.String(routeTableID),
				SubnetId:     aws.String(subnetID),
			})
			return err
		})
		if err != nil {
			return mapError(fmt.Sprintf("failed to associate route table with subnet %s", subnetID), err)
		}
	}

	if aclID != "" {
		return c.associateACL(ctx, subnetID, aclID)
	}
	return nil
}

// associateACL replaces the subnet's current ACL association. A new subnet
// is always associated with the VPC default ACL.
func (c *Client) associateACL(ctx context.Context, subnetID, aclID string) error {
	out, err := c.ec2.DescribeNetworkAcls(ctx, &ec2.DescribeNetworkAclsInput{
		Filters: []ec2types.Filter{filter("association.subnet-id", subnetID)},
	})
	if err != nil {
		return mapError(fmt.Sprintf("failed to find ACL association of subnet %s", subnetID), err)
	}
	for _, acl := range out.NetworkAcls {
		for _, assoc := range acl.Associations {
			if aws.ToString(assoc.SubnetId) != subnetID {
				continue
			}
			err := c.create(ctx, func(ctx context.Context) error {
				_, err := c.ec2.ReplaceNetworkAclAssociation(ctx, &ec2.ReplaceNetworkAclAssociationInput{
					AssociationId: assoc.NetworkAclAssociationId,
					NetworkAclId:  aws.String(aclID),
				})
				return err
			})
			return mapError(fmt.Sprintf("failed to associate ACL %s with subnet %s", aclID, subnetID), err)
		}
	}
	return fmt.Errorf("ACL association of subnet %s: %w", subnetID, provisioning.ErrNotFound)
}

// DeleteSubnet deletes the subnet, retrying while network interfaces drain.
func (c *Client) DeleteSubnet(ctx context.Context, subnetID string) error {
	err := c.remove(ctx, func(ctx context.Context) error {
		_, err := c.ec2.DeleteSubnet(ctx, &ec2.DeleteSubnetInput{SubnetId: aws.String(subnetID)})
		return err
	})
	return mapError(fmt.Sprintf("failed to delete subnet %s", subnetID), err)
}

func (c *Client) accountSelector() map[string]string {
	return map[string]string{labels.KeyAccount: c.settings.AccountTag}
}
