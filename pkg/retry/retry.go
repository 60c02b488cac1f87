// Package retry provides exponential retry and timeout helpers shared by the
// boundaries and by callers that want to retry outside a render cycle.
package retry

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Goden-Gun/resilience-lib/pkg/apperr"
	"github.com/Goden-Gun/resilience-lib/pkg/codes"
	"github.com/Goden-Gun/resilience-lib/pkg/tracing"
)

const (
	DefaultMaxRetries = 3
	DefaultDelay      = time.Second
)

var tracer = tracing.Tracer("resilience-lib/retry")

// Options tunes Do. The zero value retries three times starting at one second.
type Options struct {
	MaxRetries int
	Delay      time.Duration
	// MaxDelay caps a single wait. Zero means uncapped.
	MaxDelay time.Duration
	// ShouldRetry decides whether a failure is worth another attempt.
	// Defaults to apperr.IsRetryable.
	ShouldRetry func(error) bool
	// OnRetry runs before each wait with the 1-based attempt that failed.
	OnRetry func(attempt int, err error, next time.Duration)
	Clock   clockwork.Clock
}

func (o *Options) applyDefaults() {
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	} else if o.MaxRetries == 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.Delay <= 0 {
		o.Delay = DefaultDelay
	}
	if o.ShouldRetry == nil {
		o.ShouldRetry = func(err error) bool { return apperr.IsRetryable(err) }
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
}

// Backoff returns base * 2^attempt for a 0-indexed attempt.
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt <= 0 {
		return base
	}
	if attempt >= 62 || base > time.Duration(math.MaxInt64>>uint(attempt)) {
		return time.Duration(math.MaxInt64)
	}
	return base << uint(attempt)
}

// NewBackOff builds the doubling policy used by Do: no jitter, no elapsed
// time limit, stopping after MaxRetries waits.
func NewBackOff(opts Options) backoff.BackOff {
	opts.applyDefaults()
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = opts.Delay
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxElapsedTime = 0
	b.MaxInterval = time.Duration(math.MaxInt64)
	if opts.MaxDelay > 0 {
		b.MaxInterval = opts.MaxDelay
	}
	b.Reset()
	return backoff.WithMaxRetries(b, uint64(opts.MaxRetries))
}

// Do runs op until it succeeds, ShouldRetry rejects the failure, the retry
// budget is spent or ctx ends. The first attempt is not a retry.
func Do(ctx context.Context, op func(ctx context.Context) error, opts Options) error {
	opts.applyDefaults()
	attempt := 0
	operation := func() error {
		attempt++
		spanCtx, span := tracer.Start(ctx, "retry.attempt")
		span.SetAttributes(attribute.Int("retry.attempt", attempt))
		err := op(spanCtx)
		tracing.Fail(span, err)
		span.End()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !opts.ShouldRetry(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		if opts.OnRetry != nil {
			opts.OnRetry(attempt, err, next)
		}
	}
	b := backoff.WithContext(NewBackOff(opts), ctx)
	return backoff.RetryNotifyWithTimer(operation, b, notify, &clockTimer{clock: opts.Clock})
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts Options) (T, error) {
	var out T
	err := Do(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	}, opts)
	return out, err
}

// WithTimeout runs op with a deadline. When the deadline passes first the
// result is a TIMEOUT_ERROR; op keeps its context and should honour it.
func WithTimeout(ctx context.Context, d time.Duration, op func(ctx context.Context) error) error {
	_, err := WithTimeoutValue(ctx, d, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// WithTimeoutValue is WithTimeout for operations that produce a value.
func WithTimeoutValue[T any](ctx context.Context, d time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := op(ctx)
		done <- result{v, err}
	}()

	var zero T
	select {
	case r := <-done:
		if r.err != nil && errors.Is(r.err, context.DeadlineExceeded) {
			return zero, timeoutError(d, r.err)
		}
		return r.v, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, timeoutError(d, ctx.Err())
		}
		return zero, ctx.Err()
	}
}

func timeoutError(d time.Duration, cause error) error {
	return apperr.Wrap(codes.Timeout, "operation timed out after "+d.String(), cause)
}

// Sleep waits d on clock, returning early with ctx.Err() when ctx ends.
func Sleep(ctx context.Context, clock clockwork.Clock, d time.Duration) error {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	t := clock.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.Chan():
		return nil
	}
}

// clockTimer drives backoff waits from a clockwork clock so tests can
// advance time instead of sleeping.
type clockTimer struct {
	clock clockwork.Clock
	timer clockwork.Timer
}

func (t *clockTimer) Start(d time.Duration) {
	if t.timer == nil {
		t.timer = t.clock.NewTimer(d)
		return
	}
	t.timer.Reset(d)
}

func (t *clockTimer) Stop() {
	if t.timer != nil {
		t.timer.Stop()
	}
}

func (t *clockTimer) C() <-chan time.Time {
	return t.timer.Chan()
}
