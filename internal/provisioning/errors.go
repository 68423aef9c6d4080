package provisioning

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by provider adapters when a resource does not
	// exist. Destroy paths treat it as success; find-or-create treats it as
	// the signal to create.
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists is returned when a create collides with an existing
	// resource. Find-or-create re-queries instead of failing.
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrProjectHasEnvironments refuses project destruction while any
	// environment of the project still has resources.
	ErrProjectHasEnvironments = errors.New("project still has environments")

	// ErrNotReady is returned by update when the environment is not in the
	// ready state.
	ErrNotReady = errors.New("environment is not ready")
)

// ValidationError reports a missing or malformed identifier. It is raised
// before any provider call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// BootstrapError reports that account-wide context (network, DNS zone)
// could not be discovered.
type BootstrapError struct {
	Err error
}

func (e *BootstrapError) Error() string {
	return fmt.Sprintf("bootstrap failed: %v", e.Err)
}

func (e *BootstrapError) Unwrap() error {
	return e.Err
}

// ProvisionError reports a failed mandatory creation step. Request holds
// everything created before the failure.
type ProvisionError struct {
	Step    string
	Request *StackRequest
	Err     error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provisioning %s failed at step %q: %v", e.Request.StackName, e.Step, e.Err)
}

func (e *ProvisionError) Unwrap() error {
	return e.Err
}

// TeardownWarning records a best-effort step that failed. Warnings are
// reported, never returned as the outcome of an operation.
type TeardownWarning struct {
	Step string
	Err  error
}

func (w *TeardownWarning) Error() string {
	return fmt.Sprintf("%s: %v", w.Step, w.Err)
}

func (w *TeardownWarning) Unwrap() error {
	return w.Err
}

// StepError is returned by RunSteps when a mandatory step fails.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// IgnoreNotFound returns nil for ErrNotFound and err otherwise.
func IgnoreNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
