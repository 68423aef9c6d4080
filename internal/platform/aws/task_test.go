package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/stackctl/internal/provisioning"
)

const testDescriptor = `{
  "tasks": [
    {
      "name": "worker",
      "containerDefinitions": [{"name": "worker", "image": "example/worker:1", "memory": 256}]
    },
    {
      "name": "web",
      "desiredCount": 2,
      "containerDefinitions": [{
        "name": "app",
        "image": "example/app:1",
        "cpu": 128,
        "environment": [{"name": "MODE", "value": "prod"}],
        "portMappings": [{"containerPort": 8080, "hostPort": 80, "protocol": "TCP"}]
      }]
    }
  ]
}`

func TestCreateTask_CreatesServices(t *testing.T) {
	t.Parallel()
	c, m := newTestClient(testSettings())

	var registered []*ecs.RegisterTaskDefinitionInput
	m.ecs.RegisterTaskDefinitionFunc = func(_ context.Context, in *ecs.RegisterTaskDefinitionInput) (*ecs.RegisterTaskDefinitionOutput, error) {
		registered = append(registered, in)
		return &ecs.RegisterTaskDefinitionOutput{TaskDefinition: &ecstypes.TaskDefinition{
			TaskDefinitionArn: aws.String("arn:" + aws.ToString(in.Family)),
		}}, nil
	}
	m.ecs.UpdateServiceFunc = func(context.Context, *ecs.UpdateServiceInput) (*ecs.UpdateServiceOutput, error) {
		return nil, apiError("ServiceNotFoundException")
	}
	created := map[string]*ecs.CreateServiceInput{}
	m.ecs.CreateServiceFunc = func(_ context.Context, in *ecs.CreateServiceInput) (*ecs.CreateServiceOutput, error) {
		created[aws.ToString(in.ServiceName)] = in
		return &ecs.CreateServiceOutput{}, nil
	}

	task, err := c.CreateTask(context.Background(), provisioning.TaskSpec{
		ClusterName:      "stack-1",
		Family:           "stack-1",
		Revision:         "abc",
		App:              provisioning.AppDescriptor(testDescriptor),
		LoadBalancerName: "stack-1-lb",
	})
	require.NoError(t, err)
	assert.Equal(t, "stack-1", task.Family)
	assert.Equal(t, "abc", task.Revision)
	assert.Equal(t, []string{"stack-1-worker", "stack-1-web"}, task.Services)

	require.Len(t, registered, 2)
	web := registered[1].ContainerDefinitions[0]
	assert.Equal(t, "example/app:1", aws.ToString(web.Image))
	assert.Equal(t, int32(128), web.Cpu)
	assert.Equal(t, "MODE", aws.ToString(web.Environment[0].Name))
	assert.Equal(t, int32(80), aws.ToInt32(web.PortMappings[0].HostPort))
	assert.Equal(t, ecstypes.TransportProtocolTcp, web.PortMappings[0].Protocol)
	assert.Equal(t, int32(256), aws.ToInt32(registered[0].ContainerDefinitions[0].Memory))

	require.Contains(t, created, "stack-1-worker")
	require.Contains(t, created, "stack-1-web")
	assert.Equal(t, int32(1), aws.ToInt32(created["stack-1-worker"].DesiredCount))
	assert.Empty(t, created["stack-1-worker"].LoadBalancers)
	assert.Equal(t, int32(2), aws.ToInt32(created["stack-1-web"].DesiredCount))
	require.Len(t, created["stack-1-web"].LoadBalancers, 1)
	lb := created["stack-1-web"].LoadBalancers[0]
	assert.Equal(t, "stack-1-lb", aws.ToString(lb.LoadBalancerName))
	assert.Equal(t, "app", aws.ToString(lb.ContainerName))
	assert.Equal(t, int32(8080), aws.ToInt32(lb.ContainerPort))
	assert.Equal(t, "arn:stack-1-web", aws.ToString(created["stack-1-web"].TaskDefinition))
}

func TestCreateTask_UpdatesExistingService(t *testing.T) {
	t.Parallel()
	c, m := newTestClient(testSettings())

	var updated []string
	m.ecs.UpdateServiceFunc = func(_ context.Context, in *ecs.UpdateServiceInput) (*ecs.UpdateServiceOutput, error) {
		updated = append(updated, aws.ToString(in.Service))
		return &ecs.UpdateServiceOutput{}, nil
	}
	m.ecs.CreateServiceFunc = func(context.Context, *ecs.CreateServiceInput) (*ecs.CreateServiceOutput, error) {
		t.Fatal("CreateService should not be called for existing services")
		return nil, nil
	}

	_, err := c.CreateTask(context.Background(), provisioning.TaskSpec{
		ClusterName: "stack-1",
		Family:      "stack-1",
		App:         provisioning.AppDescriptor(testDescriptor),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"stack-1-worker", "stack-1-web"}, updated)
}

func TestCreateTask_InvalidDescriptor(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(testSettings())

	_, err := c.CreateTask(context.Background(), provisioning.TaskSpec{
		ClusterName: "stack-1",
		Family:      "stack-1",
		App:         provisioning.AppDescriptor(`{"tasks": []}`),
	})
	var verr *provisioning.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestDeleteTasks(t *testing.T) {
	t.Parallel()
	c, m := newTestClient(testSettings())

	m.ecs.ListServicesFunc = func(context.Context, *ecs.ListServicesInput) (*ecs.ListServicesOutput, error) {
		return &ecs.ListServicesOutput{ServiceArns: []string{
			"arn:aws:ecs:us-east-1:1:service/stack-1/stack-1-web",
			"arn:aws:ecs:us-east-1:1:service/stack-1/stack-10-web",
			"arn:aws:ecs:us-east-1:1:service/stack-1/stack-1-worker",
		}}, nil
	}
	var deleted []string
	m.ecs.DeleteServiceFunc = func(_ context.Context, in *ecs.DeleteServiceInput) (*ecs.DeleteServiceOutput, error) {
		assert.True(t, aws.ToBool(in.Force))
		deleted = append(deleted, aws.ToString(in.Service))
		return &ecs.DeleteServiceOutput{}, nil
	}
	m.ecs.ListTaskDefinitionsFunc = func(context.Context, *ecs.ListTaskDefinitionsInput) (*ecs.ListTaskDefinitionsOutput, error) {
		return &ecs.ListTaskDefinitionsOutput{TaskDefinitionArns: []string{
			"arn:aws:ecs:us-east-1:1:task-definition/stack-1-web:1",
			"arn:aws:ecs:us-east-1:1:task-definition/stack-10-web:4",
			"arn:aws:ecs:us-east-1:1:task-definition/stack-1-worker:2",
		}}, nil
	}
	var deregistered []string
	m.ecs.DeregisterTaskDefinitionFunc = func(_ context.Context, in *ecs.DeregisterTaskDefinitionInput) (*ecs.DeregisterTaskDefinitionOutput, error) {
		deregistered = append(deregistered, aws.ToString(in.TaskDefinition))
		return &ecs.DeregisterTaskDefinitionOutput{}, nil
	}

	require.NoError(t, c.DeleteTasks(context.Background(), "stack-1", "stack-1"))
	assert.Equal(t, []string{"stack-1-web", "stack-1-worker"}, deleted)
	assert.Equal(t, []string{
		"arn:aws:ecs:us-east-1:1:task-definition/stack-1-web:1",
		"arn:aws:ecs:us-east-1:1:task-definition/stack-1-worker:2",
	}, deregistered)
}

func TestDefinitionFamily(t *testing.T) {
	t.Parallel()
	tests := []struct {
		arn  string
		want string
	}{
		{arn: "arn:aws:ecs:us-east-1:1:task-definition/stack-1-web:12", want: "stack-1-web"},
		{arn: "stack-1-web:3", want: "stack-1-web"},
		{arn: "stack-1-web", want: "stack-1-web"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, definitionFamily(tt.arn), tt.arn)
	}
}

func TestDeleteTasks_NothingToDelete(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(testSettings())

	err := c.DeleteTasks(context.Background(), "stack-1", "stack-1")
	assert.ErrorIs(t, err, provisioning.ErrNotFound)
}

func TestFindTask(t *testing.T) {
	t.Parallel()
	c, m := newTestClient(testSettings())

	m.ecs.ListServicesFunc = func(_ context.Context, in *ecs.ListServicesInput) (*ecs.ListServicesOutput, error) {
		assert.Equal(t, "stack-1", aws.ToString(in.Cluster))
		return &ecs.ListServicesOutput{ServiceArns: []string{
			"arn:aws:ecs:us-east-1:1:service/stack-1/stack-1-web",
			"arn:aws:ecs:us-east-1:1:service/stack-1/stack-10-web",
		}}, nil
	}

	task, err := c.FindTask(context.Background(), "stack-1", "stack-1")
	require.NoError(t, err)
	assert.Equal(t, &provisioning.Task{Family: "stack-1", Services: []string{"stack-1-web"}}, task)
}

func TestFindTask_NotFound(t *testing.T) {
	t.Parallel()
	c, m := newTestClient(testSettings())

	_, err := c.FindTask(context.Background(), "stack-1", "stack-1")
	assert.ErrorIs(t, err, provisioning.ErrNotFound)

	m.ecs.ListServicesFunc = func(context.Context, *ecs.ListServicesInput) (*ecs.ListServicesOutput, error) {
		return nil, apiError("ClusterNotFoundException")
	}
	_, err = c.FindTask(context.Background(), "stack-1", "stack-1")
	assert.ErrorIs(t, err, provisioning.ErrNotFound)
}
