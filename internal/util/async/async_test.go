package async

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunParallel_Success(t *testing.T) {
	var count atomic.Int32

	tasks := []Task{
		{Name: "task1", Func: func(_ context.Context) error {
			count.Add(1)
			return nil
		}},
		{Name: "task2", Func: func(_ context.Context) error {
			count.Add(1)
			return nil
		}},
		{Name: "task3", Func: func(_ context.Context) error {
			count.Add(1)
			return nil
		}},
	}

	if err := RunParallel(context.Background(), tasks); err != nil {
		t.Errorf("expected no error, got: %v", err)
	}

	if count.Load() != 3 {
		t.Errorf("expected 3 tasks to run, got %d", count.Load())
	}
}

func TestRunParallel_EmptyTasks(t *testing.T) {
	if err := RunParallel(context.Background(), nil); err != nil {
		t.Errorf("expected no error for empty tasks, got: %v", err)
	}
}

func TestRunParallel_SingleError(t *testing.T) {
	expectedErr := errors.New("task failed")

	tasks := []Task{
		{Name: "success", Func: func(_ context.Context) error { return nil }},
		{Name: "failing", Func: func(_ context.Context) error { return expectedErr }},
	}

	err := RunParallel(context.Background(), tasks)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected wrapped task error, got: %v", err)
	}
	if !strings.Contains(err.Error(), "failing") {
		t.Errorf("expected task name in error, got: %v", err)
	}
}

func TestRunParallel_AllErrorsReported(t *testing.T) {
	errA := errors.New("a broke")
	errB := errors.New("b broke")

	tasks := []Task{
		{Name: "a", Func: func(_ context.Context) error { return errA }},
		{Name: "ok", Func: func(_ context.Context) error { return nil }},
		{Name: "b", Func: func(_ context.Context) error { return errB }},
	}

	err := RunParallel(context.Background(), tasks)
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("expected both errors, got: %v", err)
	}
	if got, want := err.Error(), "a: a broke\nb: b broke"; got != want {
		t.Errorf("error message = %q, want %q", got, want)
	}
}

func TestRunParallel_RunsConcurrently(t *testing.T) {
	release := make(chan struct{})
	var started atomic.Int32

	task := func(_ context.Context) error {
		started.Add(1)
		<-release
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- RunParallel(context.Background(), []Task{
			{Name: "one", Func: task},
			{Name: "two", Func: task},
		})
	}()

	deadline := time.After(time.Second)
	for started.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("tasks did not start concurrently")
		case <-time.After(time.Millisecond):
		}
	}
	close(release)

	if err := <-done; err != nil {
		t.Errorf("expected no error, got: %v", err)
	}
}

func TestRunParallel_PassesContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")

	err := RunParallel(ctx, []Task{{Name: "ctx", Func: func(c context.Context) error {
		if c.Value(key{}) != "v" {
			return errors.New("context not propagated")
		}
		return nil
	}}})
	if err != nil {
		t.Errorf("expected no error, got: %v", err)
	}
}
