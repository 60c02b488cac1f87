package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Goden-Gun/resilience-lib/pkg/apperr"
	"github.com/Goden-Gun/resilience-lib/pkg/codes"
)

func TestBackoff(t *testing.T) {
	base := time.Second
	assert.Equal(t, time.Second, Backoff(base, 0))
	assert.Equal(t, 2*time.Second, Backoff(base, 1))
	assert.Equal(t, 4*time.Second, Backoff(base, 2))
	assert.Equal(t, 8*time.Second, Backoff(base, 3))
	assert.Equal(t, time.Duration(1<<63-1), Backoff(base, 70))
}

func TestNewBackOffMatchesBackoff(t *testing.T) {
	b := NewBackOff(Options{MaxRetries: 3, Delay: 250 * time.Millisecond})
	for i := 0; i < 3; i++ {
		assert.Equal(t, Backoff(250*time.Millisecond, i), b.NextBackOff(), "attempt %d", i)
	}
	assert.Equal(t, backoff.Stop, b.NextBackOff())
}

func runDo(ctx context.Context, op func(context.Context) error, opts Options) <-chan error {
	errc := make(chan error, 1)
	go func() { errc <- Do(ctx, op, opts) }()
	return errc
}

func TestDoRecoversAfterTransientFailures(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	calls := 0
	var waits []time.Duration

	errc := runDo(ctx, func(context.Context) error {
		calls++
		if calls < 3 {
			return apperr.New(codes.Network, "down")
		}
		return nil
	}, Options{
		Delay: 100 * time.Millisecond,
		Clock: clock,
		OnRetry: func(_ int, _ error, next time.Duration) {
			waits = append(waits, next)
		},
	})

	for i := 0; i < 2; i++ {
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(Backoff(100*time.Millisecond, i))
	}
	require.NoError(t, <-errc)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, waits)
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	calls := 0
	notFound := apperr.New(codes.NotFound, "gone")
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return notFound
	}, Options{Clock: clockwork.NewFakeClock()})

	assert.Same(t, notFound, err)
	assert.Equal(t, 1, calls)
}

func TestDoExhaustsBudget(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	calls := 0
	errc := runDo(ctx, func(context.Context) error {
		calls++
		return errors.New("flaky")
	}, Options{MaxRetries: 2, Delay: time.Second, Clock: clock})

	for i := 0; i < 2; i++ {
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(Backoff(time.Second, i))
	}
	err := <-errc
	require.EqualError(t, err, "flaky")
	assert.Equal(t, 3, calls)
}

func TestDoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	clock := clockwork.NewFakeClock()
	errc := runDo(ctx, func(context.Context) error {
		return apperr.New(codes.Server, "busy")
	}, Options{Clock: clock})

	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
}

func TestDoValue(t *testing.T) {
	v, err := DoValue(context.Background(), func(context.Context) (string, error) {
		return "post", nil
	}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "post", v)
}

func TestWithTimeout(t *testing.T) {
	err := WithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrTimeout)
	assert.Equal(t, "TIMEOUT_ERROR", apperr.FormatError(err).Code)

	v, err := WithTimeoutValue(context.Background(), time.Second, func(context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestSleep(t *testing.T) {
	clock := clockwork.NewFakeClock()
	done := make(chan error, 1)
	go func() { done <- Sleep(context.Background(), clock, time.Minute) }()

	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))
	clock.Advance(time.Minute)
	require.NoError(t, <-done)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, clock, time.Hour), context.Canceled)
}
