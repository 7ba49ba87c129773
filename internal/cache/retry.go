package cache

import (
	"time"

	retry "github.com/avast/retry-go/v5"
)

// RetryOptions controls WithRetry.
type RetryOptions struct {
	// Attempts is the total number of calls, including the first. Defaults to 3.
	Attempts uint

	// Delay is the base backoff between attempts. Defaults to 50ms.
	Delay time.Duration

	// RetryIf decides whether an error is worth another attempt. Errors wrapped
	// with retry.Unrecoverable are never retried. Defaults to retrying every
	// other error.
	RetryIf func(error) bool
}

// WithRetry wraps populate so that transient failures are retried before Get
// sees them. The engine itself never retries.
func WithRetry[K comparable, V any](populate Populator[K, V], opts RetryOptions) Populator[K, V] {
	attempts := opts.Attempts
	if attempts == 0 {
		attempts = 3
	}
	delay := opts.Delay
	if delay <= 0 {
		delay = 50 * time.Millisecond
	}
	retryOpts := []retry.Option{
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.LastErrorOnly(true),
	}
	if retryIf := opts.RetryIf; retryIf != nil {
		retryOpts = append(retryOpts, retry.RetryIf(func(err error) bool {
			return retry.IsRecoverable(err) && retryIf(err)
		}))
	}
	return func(key K) (V, error) {
		return retry.NewWithData[V](retryOpts...).Do(func() (V, error) {
			return populate(key)
		})
	}
}
