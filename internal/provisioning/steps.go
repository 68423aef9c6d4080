package provisioning

import (
	"context"
	"errors"
	"time"

	"github.com/imamik/stackctl/internal/util/async"
)

// Policy decides what a step failure does to the rest of a workflow.
type Policy int

const (
	// Mandatory steps abort the workflow on failure.
	Mandatory Policy = iota
	// BestEffort steps record a TeardownWarning and let the workflow continue.
	BestEffort
)

func (p Policy) String() string {
	if p == BestEffort {
		return "best-effort"
	}
	return "mandatory"
}

// Step is one unit of a workflow over an accumulator of type T.
type Step[T any] struct {
	Name   string
	Policy Policy
	Run    func(ctx context.Context, acc T) error
}

// Parallel combines steps into a single step whose members run
// concurrently. The members' own policies are ignored; the group's policy
// applies to their joined error.
func Parallel[T any](name string, policy Policy, steps ...Step[T]) Step[T] {
	return Step[T]{
		Name:   name,
		Policy: policy,
		Run: func(ctx context.Context, acc T) error {
			tasks := make([]async.Task, 0, len(steps))
			for _, s := range steps {
				tasks = append(tasks, async.Task{
					Name: s.Name,
					Func: func(ctx context.Context) error { return s.Run(ctx, acc) },
				})
			}
			return async.RunParallel(ctx, tasks)
		},
	}
}

// RunSteps executes steps in order, threading acc through each of them.
//
// A failed Mandatory step stops the run and is returned as a *StepError.
// A failed BestEffort step is logged and collected as a *TeardownWarning;
// the remaining steps still run.
func RunSteps[T any](ctx context.Context, obs Observer, phase string, acc T, steps []Step[T]) ([]*TeardownWarning, error) {
	start := time.Now()
	LogPhaseStart(obs, phase)

	var warnings []*TeardownWarning
	for _, s := range steps {
		err := s.Run(ctx, acc)
		if err == nil {
			continue
		}

		fields := map[string]string{"step": s.Name, "policy": s.Policy.String()}
		if s.Policy == BestEffort {
			w := &TeardownWarning{Step: s.Name, Err: err}
			warnings = append(warnings, w)
			obs.Event(Event{
				Type:    EventTeardownWarning,
				Phase:   phase,
				Message: w.Error(),
				Fields:  fields,
			})
			continue
		}

		obs.Event(Event{
			Type:    EventStepFailed,
			Phase:   phase,
			Message: err.Error(),
			Fields:  fields,
		})
		stepErr := &StepError{Step: s.Name, Err: err}
		LogPhaseFailed(obs, phase, stepErr)
		return warnings, stepErr
	}

	LogPhaseComplete(obs, phase, time.Since(start))
	return warnings, nil
}

// FailedStep returns the name of the mandatory step err originated from,
// or "" when err did not come from RunSteps.
func FailedStep(err error) string {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Step
	}
	return ""
}
