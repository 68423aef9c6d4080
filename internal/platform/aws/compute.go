package aws

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/ecs"

	"github.com/imamik/stackctl/internal/provisioning"
)

// CreateCluster creates the ECS cluster. ECS returns the existing cluster
// when the name is taken.
func (c *Client) CreateCluster(ctx context.Context, name string, tags map[string]string) (string, error) {
	var arn string
	err := c.create(ctx, func(ctx context.Context) error {
		out, err := c.ecs.CreateCluster(ctx, &ecs.CreateClusterInput{
			ClusterName: aws.String(name),
			Tags:        ecsTags(tags),
		})
		if err != nil {
			return err
		}
		arn = aws.ToString(out.Cluster.ClusterArn)
		return nil
	})
	if err != nil {
		return "", mapError(fmt.Sprintf("failed to create cluster %s", name), err)
	}
	return arn, nil
}

// DeleteCluster deletes the ECS cluster.
func (c *Client) DeleteCluster(ctx context.Context, name string) error {
	err := c.remove(ctx, func(ctx context.Context) error {
		_, err := c.ecs.DeleteCluster(ctx, &ecs.DeleteClusterInput{Cluster: aws.String(name)})
		return err
	})
	return mapError(fmt.Sprintf("failed to delete cluster %s", name), err)
}

// ListContainers returns the container instance ARNs of cluster.
func (c *Client) ListContainers(ctx context.Context, cluster string) ([]string, error) {
	var arns []string
	paginator := ecs.NewListContainerInstancesPaginator(c.ecs, &ecs.ListContainerInstancesInput{
		Cluster: aws.String(cluster),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, mapError(fmt.Sprintf("failed to list container instances of %s", cluster), err)
		}
		arns = append(arns, page.ContainerInstanceArns...)
	}
	return arns, nil
}

// DeregisterContainer removes a container instance from cluster, stopping
// any tasks still placed on it.
func (c *Client) DeregisterContainer(ctx context.Context, cluster, containerID string) error {
	_, err := c.ecs.DeregisterContainerInstance(ctx, &ecs.DeregisterContainerInstanceInput{
		Cluster:           aws.String(cluster),
		ContainerInstance: aws.String(containerID),
		Force:             aws.Bool(true),
	})
	return mapError(fmt.Sprintf("failed to deregister container instance %s", containerID), err)
}

// LaunchInstances starts container instances that join spec.ClusterName.
// A retried launch with the same ClientToken returns the original
// instances.
func (c *Client) LaunchInstances(ctx context.Context, spec provisioning.InstanceSpec) ([]string, error) {
	count := int32(max(spec.Count, 1))
	in := &ec2.RunInstancesInput{
		ImageId:      aws.String(c.settings.AMI),
		InstanceType: ec2types.InstanceType(c.settings.InstanceType),
		MinCount:     aws.Int32(count),
		MaxCount:     aws.Int32(count),
		UserData:     aws.String(userData(spec.ClusterName, spec.SSHKeys)),
		NetworkInterfaces: []ec2types.InstanceNetworkInterfaceSpecification{{
			DeviceIndex:              aws.Int32(0),
			SubnetId:                 aws.String(spec.SubnetID),
			Groups:                   []string{spec.SecurityGroupID},
			AssociatePublicIpAddress: aws.Bool(true),
		}},
		TagSpecifications: tagSpec(ec2types.ResourceTypeInstance, spec.Tags),
	}
	if spec.ClientToken != "" {
		in.ClientToken = aws.String(spec.ClientToken)
	}
	if c.settings.InstanceProfile != "" {
		in.IamInstanceProfile = &ec2types.IamInstanceProfileSpecification{Name: aws.String(c.settings.InstanceProfile)}
	}
	if c.settings.KeyName != "" {
		in.KeyName = aws.String(c.settings.KeyName)
	}

	var ids []string
	err := c.create(ctx, func(ctx context.Context) error {
		out, err := c.ec2.RunInstances(ctx, in)
		if err != nil {
			return err
		}
		ids = ids[:0]
		for _, inst := range out.Instances {
			ids = append(ids, aws.ToString(inst.InstanceId))
		}
		return nil
	})
	if err != nil {
		return nil, mapError(fmt.Sprintf("failed to launch instances for cluster %s", spec.ClusterName), err)
	}
	return ids, nil
}

// userData configures the ECS agent to join cluster and installs the
// given public keys for the default user.
func userData(cluster string, sshKeys []string) string {
	var b strings.Builder
	b.WriteString("#!/bin/bash\n")
	fmt.Fprintf(&b, "echo ECS_CLUSTER=%s >> /etc/ecs/ecs.config\n", cluster)
	if len(sshKeys) > 0 {
		b.WriteString("install -d -m 700 -o ec2-user -g ec2-user /home/ec2-user/.ssh\n")
		b.WriteString("cat >> /home/ec2-user/.ssh/authorized_keys <<'EOF'\n")
		for _, key := range sshKeys {
			b.WriteString(strings.TrimSpace(key))
			b.WriteByte('\n')
		}
		b.WriteString("EOF\n")
		b.WriteString("chown ec2-user:ec2-user /home/ec2-user/.ssh/authorized_keys\n")
		b.WriteString("chmod 600 /home/ec2-user/.ssh/authorized_keys\n")
	}
	return base64.StdEncoding.EncodeToString([]byte(b.String()))
}

// ListInstances returns instances matching selector that are not yet
// terminated.
func (c *Client) ListInstances(ctx context.Context, selector map[string]string) ([]provisioning.Instance, error) {
	filters := append(tagFilters(selector),
		filter("instance-state-name", "pending", "running", "stopping", "stopped", "shutting-down"))

	var instances []provisioning.Instance
	paginator := ec2.NewDescribeInstancesPaginator(c.ec2, &ec2.DescribeInstancesInput{Filters: filters})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, mapError("failed to describe instances", err)
		}
		for _, r := range page.Reservations {
			for _, inst := range r.Instances {
				state := ""
				if inst.State != nil {
					state = string(inst.State.Name)
				}
				instances = append(instances, provisioning.Instance{
					ID:    aws.ToString(inst.InstanceId),
					State: state,
					Tags:  fromEC2Tags(inst.Tags),
				})
			}
		}
	}
	return instances, nil
}

// TerminateInstances terminates ids. It does not wait for termination.
func (c *Client) TerminateInstances(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := c.remove(ctx, func(ctx context.Context) error {
		_, err := c.ec2.TerminateInstances(ctx, &ec2.TerminateInstancesInput{InstanceIds: ids})
		return err
	})
	return mapError(fmt.Sprintf("failed to terminate instances %s", strings.Join(ids, ", ")), err)
}
