package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/imamik/stackctl/internal/provisioning"
)

// CreateSecurityGroup creates the group and opens its ingress ports to the
// world. A duplicate name maps to ErrAlreadyExists.
func (c *Client) CreateSecurityGroup(ctx context.Context, spec provisioning.SecurityGroupSpec) (string, error) {
	out, err := c.ec2.CreateSecurityGroup(ctx, &ec2.CreateSecurityGroupInput{
		GroupName:         aws.String(spec.Name),
		Description:       aws.String(spec.Description),
		VpcId:             aws.String(spec.NetworkID),
		TagSpecifications: tagSpec(ec2types.ResourceTypeSecurityGroup, spec.Tags),
	})
	if err != nil {
		return "", mapError(fmt.Sprintf("failed to create security group %s", spec.Name), err)
	}
	groupID := aws.ToString(out.GroupId)

	if len(spec.IngressPorts) == 0 {
		return groupID, nil
	}
	_, err = c.ec2.AuthorizeSecurityGroupIngress(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
		GroupId:       aws.String(groupID),
		IpPermissions: ingressPermissions(spec.IngressPorts),
	})
	if err != nil && !hasErrorCode(err, "InvalidPermission.Duplicate") {
		return "", mapError(fmt.Sprintf("failed to authorize ingress on security group %s", groupID), err)
	}
	return groupID, nil
}

func ingressPermissions(ports []int32) []ec2types.IpPermission {
	perms := make([]ec2types.IpPermission, 0, len(ports))
	for _, port := range ports {
		perms = append(perms, ec2types.IpPermission{
			IpProtocol: aws.String("tcp"),
			FromPort:   aws.Int32(port),
			ToPort:     aws.Int32(port),
			IpRanges:   []ec2types.IpRange{{CidrIp: aws.String("0.0.0.0/0")}},
		})
	}
	return perms
}

// FindSecurityGroup returns the id of the group named name in networkID.
func (c *Client) FindSecurityGroup(ctx context.Context, networkID, name string) (string, error) {
	out, err := c.ec2.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		Filters: []ec2types.Filter{filter("vpc-id", networkID), filter("group-name", name)},
	})
	if err != nil {
		return "", mapError(fmt.Sprintf("failed to describe security group %s", name), err)
	}
	if len(out.SecurityGroups) == 0 {
		return "", fmt.Errorf("security group %s: %w", name, provisioning.ErrNotFound)
	}
	return aws.ToString(out.SecurityGroups[0].GroupId), nil
}

// DeleteSecurityGroup deletes the group. Instances and load balancers that
// still reference it cause DependencyViolation, which is retried.
func (c *Client) DeleteSecurityGroup(ctx context.Context, groupID string) error {
	err := c.remove(ctx, func(ctx context.Context) error {
		_, err := c.ec2.DeleteSecurityGroup(ctx, &ec2.DeleteSecurityGroupInput{GroupId: aws.String(groupID)})
		return err
	})
	return mapError(fmt.Sprintf("failed to delete security group %s", groupID), err)
}
