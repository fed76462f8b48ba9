package fetcher

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/quantmind-br/whyml-go/internal/domain"
)

// Retrier handles retry logic with exponential backoff
type Retrier struct {
	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
	multiplier      float64
}

// RetrierOptions contains options for creating a Retrier
type RetrierOptions struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultRetrierOptions returns default retrier options
func DefaultRetrierOptions() RetrierOptions {
	return RetrierOptions{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		Multiplier:      2.0,
	}
}

// NewRetrier creates a new Retrier with the given options. A negative
// MaxRetries disables retrying.
func NewRetrier(opts RetrierOptions) *Retrier {
	defaults := DefaultRetrierOptions()
	if opts.MaxRetries == 0 {
		opts.MaxRetries = defaults.MaxRetries
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = defaults.InitialInterval
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = defaults.MaxInterval
	}
	if opts.Multiplier <= 0 {
		opts.Multiplier = defaults.Multiplier
	}

	return &Retrier{
		maxRetries:      opts.MaxRetries,
		initialInterval: opts.InitialInterval,
		maxInterval:     opts.MaxInterval,
		multiplier:      opts.Multiplier,
	}
}

// MaxRetries returns the configured retry budget
func (r *Retrier) MaxRetries() int {
	return r.maxRetries
}

// newBackoff creates a new exponential backoff. The returned hint lets the
// caller stretch the next interval to a server's Retry-After.
func (r *Retrier) newBackoff(ctx context.Context) (backoff.BackOff, *retryAfterBackOff) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initialInterval
	b.MaxInterval = r.maxInterval
	b.Multiplier = r.multiplier
	b.RandomizationFactor = 0.5
	b.MaxElapsedTime = 0
	b.Reset()

	hint := &retryAfterBackOff{BackOff: b, max: r.maxInterval}
	return backoff.WithContext(backoff.WithMaxRetries(hint, uint64(r.maxRetries)), ctx), hint
}

// retryAfterBackOff waits at least the pending Retry-After, capped at max
type retryAfterBackOff struct {
	backoff.BackOff
	max  time.Duration
	wait time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop {
		return next
	}
	if wait := min(b.wait, b.max); wait > next {
		next = wait
	}
	b.wait = 0
	return next
}

func (b *retryAfterBackOff) Reset() {
	b.wait = 0
	b.BackOff.Reset()
}

// Retry executes an operation with exponential backoff
func (r *Retrier) Retry(ctx context.Context, operation func() error) error {
	_, err := RetryWithValue(ctx, r, func() (struct{}, error) {
		return struct{}{}, operation()
	})
	return err
}

// RetryWithValue executes an operation with exponential backoff and returns a
// value. Errors that are not retryable stop immediately; the last operation
// error is returned rather than the backoff wrapper.
func RetryWithValue[T any](ctx context.Context, r *Retrier, operation func() (T, error)) (T, error) {
	var result T
	var lastErr error
	policy, hint := r.newBackoff(ctx)

	err := backoff.Retry(func() error {
		var err error
		result, err = operation()
		if err == nil {
			return nil
		}

		lastErr = err

		if !domain.IsRetryable(err) {
			return backoff.Permanent(err)
		}

		var re *domain.RetryableError
		if errors.As(err, &re) && re.RetryAfter > 0 {
			hint.wait = time.Duration(re.RetryAfter) * time.Second
		}
		return err
	}, policy)

	if err != nil {
		if lastErr == nil {
			// context ended before the first attempt
			return result, err
		}
		return result, lastErr
	}

	return result, nil
}

// ShouldRetryStatus returns true if the HTTP status code should be retried
func ShouldRetryStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	case http.StatusNotImplemented, http.StatusHTTPVersionNotSupported:
		return false
	}

	// server errors, including Cloudflare's 520-530 range
	return statusCode >= 500 && statusCode <= 599
}

// ParseRetryAfter parses a Retry-After header given in seconds or as an HTTP date
func ParseRetryAfter(retryAfter string, now time.Time) time.Duration {
	retryAfter = strings.TrimSpace(retryAfter)
	if retryAfter == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		if seconds <= 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}

	if at, err := http.ParseTime(retryAfter); err == nil {
		if d := at.Sub(now); d > 0 {
			return d.Round(time.Second)
		}
	}
	return 0
}
