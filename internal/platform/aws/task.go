package aws

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"

	"github.com/imamik/stackctl/internal/appdef"
	"github.com/imamik/stackctl/internal/provisioning"
)

// CreateTask registers one task definition per descriptor task and points
// a service of the same name at it. Existing services are updated in
// place. The load balancer is attached to the first container that
// publishes a port.
func (c *Client) CreateTask(ctx context.Context, spec provisioning.TaskSpec) (*provisioning.Task, error) {
	desc, err := appdef.Decode(spec.App)
	if err != nil {
		return nil, &provisioning.ValidationError{Field: "app", Message: err.Error()}
	}

	task := &provisioning.Task{Family: spec.Family, Revision: spec.Revision}
	lbAttached := spec.LoadBalancerName == ""
	for _, t := range desc.Tasks {
		name := taskFamily(spec.Family, t.Name)

		def, err := c.ecs.RegisterTaskDefinition(ctx, &ecs.RegisterTaskDefinitionInput{
			Family:               aws.String(name),
			ContainerDefinitions: containerDefinitions(t.ContainerDefinitions),
			Tags:                 ecsTags(spec.Tags),
		})
		if err != nil {
			return nil, mapError(fmt.Sprintf("failed to register task definition %s", name), err)
		}
		arn := aws.ToString(def.TaskDefinition.TaskDefinitionArn)

		var balancers []ecstypes.LoadBalancer
		if !lbAttached {
			if lb, ok := serviceLoadBalancer(spec.LoadBalancerName, t); ok {
				balancers = []ecstypes.LoadBalancer{lb}
				lbAttached = true
			}
		}

		if err := c.ensureService(ctx, spec, name, arn, desiredCount(t), balancers); err != nil {
			return nil, err
		}
		task.Services = append(task.Services, name)
	}
	return task, nil
}

func (c *Client) ensureService(ctx context.Context, spec provisioning.TaskSpec, name, taskDefinition string, count int32, balancers []ecstypes.LoadBalancer) error {
	_, err := c.ecs.UpdateService(ctx, &ecs.UpdateServiceInput{
		Cluster:        aws.String(spec.ClusterName),
		Service:        aws.String(name),
		TaskDefinition: aws.String(taskDefinition),
		DesiredCount:   aws.Int32(count),
	})
	if err == nil {
		return nil
	}
	if !hasErrorCode(err, "ServiceNotFoundException", "ServiceNotActiveException") {
		return mapError(fmt.Sprintf("failed to update service %s", name), err)
	}

	err = c.create(ctx, func(ctx context.Context) error {
		_, err := c.ecs.CreateService(ctx, &ecs.CreateServiceInput{
			Cluster:        aws.String(spec.ClusterName),
			ServiceName:    aws.String(name),
			TaskDefinition: aws.String(taskDefinition),
			DesiredCount:   aws.Int32(count),
			LoadBalancers:  balancers,
			Tags:           ecsTags(spec.Tags),
		})
		return err
	})
	return mapError(fmt.Sprintf("failed to create service %s", name), err)
}

// FindTask returns the services of family in cluster. A missing cluster or
// a family without services yields ErrNotFound.
func (c *Client) FindTask(ctx context.Context, cluster, family string) (*provisioning.Task, error) {
	services, err := c.listServices(ctx, cluster, family)
	if err != nil {
		return nil, err
	}
	if len(services) == 0 {
		return nil, fmt.Errorf("task family %s: %w", family, provisioning.ErrNotFound)
	}
	return &provisioning.Task{Family: family, Services: services}, nil
}

// DeleteTasks force-deletes every service of family in cluster and
// deregisters the family's active task definitions. It returns ErrNotFound
// when there was nothing to delete.
func (c *Client) DeleteTasks(ctx context.Context, cluster, family string) error {
	services, err := c.listServices(ctx, cluster, family)
	if err != nil {
		return err
	}
	for _, svc := range services {
		_, err := c.ecs.DeleteService(ctx, &ecs.DeleteServiceInput{
			Cluster: aws.String(cluster),
			Service: aws.String(svc),
			Force:   aws.Bool(true),
		})
		if err := provisioning.IgnoreNotFound(mapError(fmt.Sprintf("failed to delete service %s", svc), err)); err != nil {
			return err
		}
	}

	definitions, err := c.listTaskDefinitions(ctx, family)
	if err != nil {
		return err
	}
	for _, arn := range definitions {
		_, err := c.ecs.DeregisterTaskDefinition(ctx, &ecs.DeregisterTaskDefinitionInput{TaskDefinition: aws.String(arn)})
		if err != nil {
			return mapError(fmt.Sprintf("failed to deregister task definition %s", arn), err)
		}
	}

	if len(services) == 0 && len(definitions) == 0 {
		return fmt.Errorf("task family %s: %w", family, provisioning.ErrNotFound)
	}
	return nil
}

// listServices returns the names of services in cluster that belong to
// family.
func (c *Client) listServices(ctx context.Context, cluster, family string) ([]string, error) {
	var names []string
	paginator := ecs.NewListServicesPaginator(c.ecs, &ecs.ListServicesInput{Cluster: aws.String(cluster)})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, mapError(fmt.Sprintf("failed to list services of %s", cluster), err)
		}
		for _, arn := range page.ServiceArns {
			name := arn[strings.LastIndex(arn, "/")+1:]
			if belongsTo(name, family) {
				names = append(names, name)
			}
		}
	}
	return names, nil
}

// listTaskDefinitions returns the active task definition ARNs whose
// family belongs to family. The API filters on exact family names only, so
// the ARNs are matched here.
func (c *Client) listTaskDefinitions(ctx context.Context, family string) ([]string, error) {
	var arns []string
	paginator := ecs.NewListTaskDefinitionsPaginator(c.ecs, &ecs.ListTaskDefinitionsInput{
		Status: ecstypes.TaskDefinitionStatusActive,
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, mapError(fmt.Sprintf("failed to list task definitions of %s", family), err)
		}
		for _, arn := range page.TaskDefinitionArns {
			if belongsTo(definitionFamily(arn), family) {
				arns = append(arns, arn)
			}
		}
	}
	return arns, nil
}

// definitionFamily extracts the family from
// arn:aws:ecs:<region>:<account>:task-definition/<family>:<revision>.
func definitionFamily(arn string) string {
	name := arn[strings.LastIndex(arn, "/")+1:]
	if i := strings.LastIndex(name, ":"); i >= 0 {
		name = name[:i]
	}
	return name
}

func belongsTo(name, family string) bool {
	return name == family || strings.HasPrefix(name, family+"-")
}

func taskFamily(family, task string) string {
	return family + "-" + task
}

func desiredCount(t appdef.Task) int32 {
	if t.DesiredCount == 0 {
		return 1
	}
	return t.DesiredCount
}

func serviceLoadBalancer(name string, t appdef.Task) (ecstypes.LoadBalancer, bool) {
	for _, ctr := range t.ContainerDefinitions {
		if len(ctr.PortMappings) == 0 {
			continue
		}
		return ecstypes.LoadBalancer{
			LoadBalancerName: aws.String(name),
			ContainerName:    aws.String(ctr.Name),
			ContainerPort:    aws.Int32(ctr.PortMappings[0].ContainerPort),
		}, true
	}
	return ecstypes.LoadBalancer{}, false
}

func containerDefinitions(containers []appdef.Container) []ecstypes.ContainerDefinition {
	defs := make([]ecstypes.ContainerDefinition, 0, len(containers))
	for _, ctr := range containers {
		def := ecstypes.ContainerDefinition{
			Name:       aws.String(ctr.Name),
			Image:      aws.String(ctr.Image),
			Cpu:        ctr.CPU,
			Essential:  ctr.Essential,
			Command:    ctr.Command,
			EntryPoint: ctr.EntryPoint,
			Links:      ctr.Links,
		}
		if ctr.Memory > 0 {
			def.Memory = aws.Int32(ctr.Memory)
		}
		if ctr.MemoryReservation > 0 {
			def.MemoryReservation = aws.Int32(ctr.MemoryReservation)
		}
		if ctr.Hostname != "" {
			def.Hostname = aws.String(ctr.Hostname)
		}
		for _, kv := range ctr.Environment {
			def.Environment = append(def.Environment, ecstypes.KeyValuePair{
				Name:  aws.String(kv.Name),
				Value: aws.String(kv.Value),
			})
		}
		for _, pm := range ctr.PortMappings {
			mapping := ecstypes.PortMapping{ContainerPort: aws.Int32(pm.ContainerPort)}
			if pm.HostPort > 0 {
				mapping.HostPort = aws.Int32(pm.HostPort)
			}
			if pm.Protocol != "" {
				mapping.Protocol = ecstypes.TransportProtocol(strings.ToLower(pm.Protocol))
			}
			def.PortMappings = append(def.PortMappings, mapping)
		}
		defs = append(defs, def)
	}
	return defs
}
