package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	elb "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancing"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancing/types"

	"github.com/imamik/stackctl/internal/provisioning"
	"github.com/imamik/stackctl/internal/util/retry"
)

const (
	httpPort  = 80
	httpsPort = 443
)

// CreateLoadBalancer creates a classic load balancer forwarding HTTP to
// port 80 of the registered instances. HTTPS is terminated on the load
// balancer when an SSL certificate is configured.
func (c *Client) CreateLoadBalancer(ctx context.Context, spec provisioning.LoadBalancerSpec) (*provisioning.LoadBalancer, error) {
	var dnsName string
	err := c.create(ctx, func(ctx context.Context) error {
		out, err := c.elb.CreateLoadBalancer(ctx, &elb.CreateLoadBalancerInput{
			LoadBalancerName: aws.String(spec.Name),
			Listeners:        c.listeners(),
			Subnets:          []string{spec.SubnetID},
			SecurityGroups:   []string{spec.SecurityGroupID},
			Tags:             elbTags(spec.Tags),
		})
		if err != nil {
			return err
		}
		dnsName = aws.ToString(out.DNSName)
		return nil
	})
	if err != nil {
		return nil, mapError(fmt.Sprintf("failed to create load balancer %s", spec.Name), err)
	}

	_, err = c.elb.ConfigureHealthCheck(ctx, &elb.ConfigureHealthCheckInput{
		LoadBalancerName: aws.String(spec.Name),
		HealthCheck: &elbtypes.HealthCheck{
			Target:             aws.String(fmt.Sprintf("HTTP:%d%s", httpPort, c.healthCheckPath())),
			Interval:           aws.Int32(30),
			Timeout:            aws.Int32(5),
			HealthyThreshold:   aws.Int32(2),
			UnhealthyThreshold: aws.Int32(5),
		},
	})
	if err != nil {
		return nil, mapError(fmt.Sprintf("failed to configure health check of %s", spec.Name), err)
	}

	return &provisioning.LoadBalancer{Name: spec.Name, DNSName: dnsName}, nil
}

func (c *Client) listeners() []elbtypes.Listener {
	listeners := []elbtypes.Listener{{
		Protocol:         aws.String("HTTP"),
		LoadBalancerPort: httpPort,
		InstanceProtocol: aws.String("HTTP"),
		InstancePort:     aws.Int32(httpPort),
	}}
	if c.settings.SSLCertificateID != "" {
		listeners = append(listeners, elbtypes.Listener{
			Protocol:         aws.String("HTTPS"),
			LoadBalancerPort: httpsPort,
			InstanceProtocol: aws.String("HTTP"),
			InstancePort:     aws.Int32(httpPort),
			SSLCertificateId: aws.String(c.settings.SSLCertificateID),
		})
	}
	return listeners
}

func (c *Client) healthCheckPath() string {
	if c.settings.HealthCheckPath == "" {
		return "/"
	}
	return c.settings.HealthCheckPath
}

// FindLoadBalancer returns the load balancer named name with its
// registered instances.
func (c *Client) FindLoadBalancer(ctx context.Context, name string) (*provisioning.LoadBalancer, error) {
	out, err := c.elb.DescribeLoadBalancers(ctx, &elb.DescribeLoadBalancersInput{
		LoadBalancerNames: []string{name},
	})
	if err != nil {
		return nil, mapError(fmt.Sprintf("failed to describe load balancer %s", name), err)
	}
	if len(out.LoadBalancerDescriptions) == 0 {
		return nil, fmt.Errorf("load balancer %s: %w", name, provisioning.ErrNotFound)
	}
	d := out.LoadBalancerDescriptions[0]
	lb := &provisioning.LoadBalancer{
		Name:    aws.ToString(d.LoadBalancerName),
		DNSName: aws.ToString(d.DNSName),
	}
	for _, inst := range d.Instances {
		lb.InstanceIDs = append(lb.InstanceIDs, aws.ToString(inst.InstanceId))
	}
	return lb, nil
}

// DeleteLoadBalancer deletes the load balancer. Deleting a missing load
// balancer succeeds.
func (c *Client) DeleteLoadBalancer(ctx context.Context, name string) error {
	err := c.remove(ctx, func(ctx context.Context) error {
		_, err := c.elb.DeleteLoadBalancer(ctx, &elb.DeleteLoadBalancerInput{LoadBalancerName: aws.String(name)})
		return err
	})
	return mapError(fmt.Sprintf("failed to delete load balancer %s", name), err)
}

// RegisterInstances adds instances to the load balancer. Instances that
// were just launched are rejected until they run, so InvalidInstance is
// retried until the instance running timeout.
func (c *Client) RegisterInstances(ctx context.Context, name string, instanceIDs []string) error {
	if len(instanceIDs) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.InstanceRunning)
	defer cancel()

	err := retry.WithExponentialBackoff(ctx, func() error {
		_, err := c.elb.RegisterInstancesWithLoadBalancer(ctx, &elb.RegisterInstancesWithLoadBalancerInput{
			LoadBalancerName: aws.String(name),
			Instances:        elbInstances(instanceIDs),
		})
		return err
	}, append(c.retryOptions(), retry.WithRetryIf(func(err error) bool {
		return IsRetryable(err) || hasErrorCode(err, "InvalidInstance")
	}))...)
	return mapError(fmt.Sprintf("failed to register instances with %s", name), err)
}

// DeregisterInstances removes instances from the load balancer.
func (c *Client) DeregisterInstances(ctx context.Context, name string, instanceIDs []string) error {
	if len(instanceIDs) == 0 {
		return nil
	}
	_, err := c.elb.DeregisterInstancesFromLoadBalancer(ctx, &elb.DeregisterInstancesFromLoadBalancerInput{
		LoadBalancerName: aws.String(name),
		Instances:        elbInstances(instanceIDs),
	})
	return mapError(fmt.Sprintf("failed to deregister instances from %s", name), err)
}

func elbInstances(ids []string) []elbtypes.Instance {
	out := make([]elbtypes.Instance, 0, len(ids))
	for _, id := range ids {
		out = append(out, elbtypes.Instance{InstanceId: aws.String(id)})
	}
	return out
}
