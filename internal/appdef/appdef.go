package appdef

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/imamik/stackctl/internal/provisioning"
)

// S3Scheme marks descriptor references stored in an object store.
const S3Scheme = "s3://"

// Descriptor is a decoded application descriptor.
type Descriptor struct {
	Tasks []Task `json:"tasks"`
}

// Task is one task definition and the service that runs it.
type Task struct {
	Name                 string      `json:"name"`
	DesiredCount         int32       `json:"desiredCount,omitempty"`
	ContainerDefinitions []Container `json:"containerDefinitions"`
}

// Container is a container definition.
type Container struct {
	Name              string        `json:"name"`
	Image             string        `json:"image"`
	CPU               int32         `json:"cpu,omitempty"`
	Memory            int32         `json:"memory,omitempty"`
	MemoryReservation int32         `json:"memoryReservation,omitempty"`
	Essential         *bool         `json:"essential,omitempty"`
	Command           []string      `json:"command,omitempty"`
	EntryPoint        []string      `json:"entryPoint,omitempty"`
	Environment       []KeyValue    `json:"environment,omitempty"`
	PortMappings      []PortMapping `json:"portMappings,omitempty"`
	Links             []string      `json:"links,omitempty"`
	Hostname          string        `json:"hostname,omitempty"`
}

// KeyValue is an environment variable.
type KeyValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PortMapping maps a container port to a host port.
type PortMapping struct {
	ContainerPort int32  `json:"containerPort"`
	HostPort      int32  `json:"hostPort,omitempty"`
	Protocol      string `json:"protocol,omitempty"`
}

// Fetcher reads descriptors from an object store.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// Decode parses a JSON or YAML descriptor and validates it.
func Decode(data []byte) (*Descriptor, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errors.New("descriptor is empty")
	}
	raw, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse descriptor: %w", err)
	}
	var d Descriptor
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("failed to decode descriptor: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks that every task and container is named and every
// container has an image.
func (d *Descriptor) Validate() error {
	if len(d.Tasks) == 0 {
		return errors.New("descriptor defines no tasks")
	}
	seen := make(map[string]bool, len(d.Tasks))
	for i, task := range d.Tasks {
		if task.Name == "" {
			return fmt.Errorf("tasks[%d]: name is required", i)
		}
		if seen[task.Name] {
			return fmt.Errorf("tasks[%d]: duplicate task name %q", i, task.Name)
		}
		seen[task.Name] = true
		if task.DesiredCount < 0 {
			return fmt.Errorf("task %s: desiredCount must not be negative", task.Name)
		}
		if len(task.ContainerDefinitions) == 0 {
			return fmt.Errorf("task %s: at least one container definition is required", task.Name)
		}
		for j, c := range task.ContainerDefinitions {
			if c.Name == "" {
				return fmt.Errorf("task %s: containerDefinitions[%d]: name is required", task.Name, j)
			}
			if c.Image == "" {
				return fmt.Errorf("task %s: container %s: image is required", task.Name, c.Name)
			}
		}
	}
	return nil
}

// Normalize converts a JSON or YAML descriptor to validated JSON.
func Normalize(data []byte) (provisioning.AppDescriptor, error) {
	d, err := Decode(data)
	if err != nil {
		return nil, err
	}
	out, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to encode descriptor: %w", err)
	}
	return out, nil
}

// Load reads the descriptor at ref, a local path or an s3://bucket/key
// reference, and returns it as validated JSON. fetcher may be nil when
// ref is local.
func Load(ctx context.Context, ref string, fetcher Fetcher) (provisioning.AppDescriptor, error) {
	if ref == "" {
		return nil, &provisioning.ValidationError{Field: "app", Message: "descriptor reference must not be empty"}
	}

	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(ref, S3Scheme) {
		if fetcher == nil {
			return nil, fmt.Errorf("cannot load %s: no object store configured", ref)
		}
		data, err = fetcher.Fetch(ctx, ref)
	} else {
		data, err = os.ReadFile(ref)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor %s: %w", ref, err)
	}

	app, err := Normalize(data)
	if err != nil {
		return nil, fmt.Errorf("descriptor %s: %w", ref, err)
	}
	return app, nil
}
