package aws

import (
	"context"
	"time"

	"github.com/imamik/stackctl/internal/util/retry"
)

// call runs fn under timeout, retrying transient API errors with
// exponential backoff. Other errors are marked fatal and returned on the
// first attempt.
func (c *Client) call(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return retry.WithExponentialBackoff(ctx, func() error {
		err := fn(ctx)
		if err != nil && !IsRetryable(err) {
			return retry.Fatal(err)
		}
		return err
	}, c.retryOptions()...)
}

// retryOptions returns the backoff settings shared by every adapter call.
func (c *Client) retryOptions() []retry.Option {
	opts := []retry.Option{
		retry.WithMaxRetries(c.timeouts.RetryMaxAttempts),
		retry.WithInitialDelay(c.timeouts.RetryInitialDelay),
	}
	if c.timeouts.RetryMaxDelay > 0 {
		opts = append(opts, retry.WithMaxDelay(c.timeouts.RetryMaxDelay))
	}
	return opts
}

// create runs a create call with the create timeout.
func (c *Client) create(ctx context.Context, fn func(ctx context.Context) error) error {
	return c.call(ctx, c.timeouts.Create, fn)
}

// remove runs a delete call with the delete timeout.
func (c *Client) remove(ctx context.Context, fn func(ctx context.Context) error) error {
	return c.call(ctx, c.timeouts.Delete, fn)
}
