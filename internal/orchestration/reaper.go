package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/imamik/stackctl/internal/provisioning"
	"github.com/imamik/stackctl/internal/util/labels"
)

// DefaultReaperConcurrency bounds how many environments a sweep destroys
// at once.
const DefaultReaperConcurrency = 4

// Destroyer tears down one environment.
type Destroyer interface {
	Destroy(ctx context.Context, env provisioning.Environment) (*DestroyResult, error)
}

// InstanceLister lists instances by tag.
type InstanceLister interface {
	ListInstances(ctx context.Context, selector map[string]string) ([]provisioning.Instance, error)
}

// Reaper destroys pull request environments past their expiry.
type Reaper struct {
	destroyer   Destroyer
	lister      InstanceLister
	concurrency int
	now         func() time.Time
	observer    provisioning.Observer
}

// ReaperOption configures a Reaper.
type ReaperOption func(*Reaper)

// WithConcurrency bounds parallel destroys within a sweep.
func WithConcurrency(n int) ReaperOption {
	return func(r *Reaper) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithReaperClock replaces time.Now.
func WithReaperClock(now func() time.Time) ReaperOption {
	return func(r *Reaper) {
		r.now = now
	}
}

// WithReaperObserver sets the observer receiving sweep events.
func WithReaperObserver(obs provisioning.Observer) ReaperOption {
	return func(r *Reaper) {
		r.observer = obs
	}
}

// NewReaper returns a reaper that finds environments through lister and
// destroys them through destroyer.
func NewReaper(destroyer Destroyer, lister InstanceLister, opts ...ReaperOption) *Reaper {
	r := &Reaper{
		destroyer:   destroyer,
		lister:      lister,
		concurrency: DefaultReaperConcurrency,
		now:         time.Now,
		observer:    provisioning.NopObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewReaperFor returns a reaper over an orchestrator and its provider.
func NewReaperFor(o *Orchestrator, opts ...ReaperOption) *Reaper {
	return NewReaper(o, o.bootstrap.Provider(), opts...)
}

type expired struct {
	env       provisioning.Environment
	expiresAt time.Time
}

// Sweep destroys every pull request environment whose expiry is before
// now. It returns the environments destroyed and the joined errors of
// those that failed. Re-running a sweep is a no-op for environments
// already gone.
func (r *Reaper) Sweep(ctx context.Context) ([]provisioning.Environment, error) {
	now := r.now()
	instances, err := r.lister.ListInstances(ctx, labels.ForEnvType(labels.EnvTypePR))
	if err != nil {
		return nil, fmt.Errorf("failed to list pull request instances: %w", err)
	}

	candidates, parseErrs := r.expiredEnvironments(instances, now)

	var (
		mu        sync.Mutex
		destroyed []provisioning.Environment
		errs      = parseErrs
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, c := range candidates {
		g.Go(func() error {
			r.observer.Event(provisioning.Event{
				Type:     provisioning.EventResourceDeleting,
				Phase:    "reap",
				Resource: c.env.String(),
				Message:  fmt.Sprintf("expired at %s", labels.FormatExpiry(c.expiresAt)),
			})
			_, err := r.destroyer.Destroy(gctx, c.env)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", c.env, err))
				return nil
			}
			destroyed = append(destroyed, c.env)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(destroyed, func(i, j int) bool { return destroyed[i].String() < destroyed[j].String() })
	recordSweepMetric(len(destroyed), len(errs), now)
	r.observer.Event(provisioning.Event{
		Type:    provisioning.EventPhaseCompleted,
		Phase:   "reap",
		Message: fmt.Sprintf("sweep destroyed %d of %d expired environments", len(destroyed), len(candidates)),
	})
	return destroyed, errors.Join(errs...)
}

func (r *Reaper) expiredEnvironments(instances []provisioning.Instance, now time.Time) ([]expired, []error) {
	var (
		out  []expired
		errs []error
	)
	groups := groupByStack(instances)
	stacks := make([]string, 0, len(groups))
	for s := range groups {
		stacks = append(stacks, s)
	}
	sort.Strings(stacks)

	for _, stack := range stacks {
		tags := groups[stack][0].Tags
		expiresAt, ok, err := labels.ParseExpiry(tags)
		if err != nil {
			errs = append(errs, fmt.Errorf("stack %s: %w", stack, err))
			continue
		}
		if !ok || !expiresAt.Before(now) {
			continue
		}
		env, err := provisioning.EnvironmentFromTags(tags)
		if err != nil {
			errs = append(errs, fmt.Errorf("stack %s: %w", stack, err))
			continue
		}
		out = append(out, expired{env: env, expiresAt: expiresAt})
	}
	return out, errs
}

// Run sweeps immediately and then every interval until ctx is done.
// Sweep failures are reported to the observer and do not stop the loop.
func (r *Reaper) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("reaper interval must be positive, got %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.Sweep(ctx); err != nil {
			r.observer.Event(provisioning.Event{
				Type:    provisioning.EventPhaseFailed,
				Phase:   "reap",
				Message: err.Error(),
			})
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
