package boundary

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Goden-Gun/resilience-lib/pkg/logger"
	"github.com/Goden-Gun/resilience-lib/pkg/view"
)

const (
	DefaultAsyncMaxRetries = 3
	DefaultAsyncRetryDelay = time.Second
)

// AsyncOptions configures an AsyncBoundary. Zero values take the defaults.
type AsyncOptions struct {
	Name            string
	Fallback        Fallback
	LoadingFallback Component
	// OnError runs synchronously when a failure is caught.
	OnError func(err error, info ErrorInfo)
	// OnReset runs on every return to Normal: retry success or full reset.
	OnReset func()
	// MaxRetries below zero disables retrying.
	MaxRetries int
	RetryDelay time.Duration
	ResetKeys  []any
	Presenter  view.Presenter
	Logger     logger.Logger
	Observer   Observer
	Clock      clockwork.Clock
}

// AsyncBoundary catches child failures and retries them on request after an
// exponentially growing delay. retryCount only returns to zero on a full
// reset, so once the budget is spent Retry stays a no-op until Reset or a
// reset key change.
type AsyncBoundary struct {
	m *machine
}

func NewAsync(child Component, opts AsyncOptions) *AsyncBoundary {
	if opts.Name == "" {
		opts.Name = "async"
	}
	return &AsyncBoundary{m: newMachine(child, opts, DefaultAsyncMaxRetries, DefaultAsyncRetryDelay)}
}

func newMachine(child Component, opts AsyncOptions, defRetries int, defDelay time.Duration) *machine {
	maxRetries := opts.MaxRetries
	switch {
	case maxRetries < 0:
		maxRetries = 0
	case maxRetries == 0:
		maxRetries = defRetries
	}
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = defDelay
	}
	m := &machine{
		name:           opts.Name,
		child:          child,
		maxRetries:     maxRetries,
		retryDelay:     delay,
		fallback:       opts.Fallback,
		loading:        opts.LoadingFallback,
		onError:        opts.OnError,
		onReset:        opts.OnReset,
		presenter:      opts.Presenter,
		log:            opts.Logger,
		obs:            opts.Observer,
		clock:          opts.Clock,
		title:          "An error occurred",
		loadingMessage: "Retrying...",
		resetKeys:      append([]any(nil), opts.ResetKeys...),
	}
	m.init()
	return m
}

// Render renders the child, the error fallback, or the loading fallback while
// a retry is pending. The first Render after a successful retry returns the
// markup that retry produced instead of rendering the child again.
func (b *AsyncBoundary) Render(ctx context.Context) (string, error) { return b.m.render(ctx) }

// Retry schedules another attempt. It returns false, logging a warning, when
// the boundary is not errored, the error is not retryable or the budget is spent.
func (b *AsyncBoundary) Retry() bool { return b.m.retry() }

// Reset is a full reset: Normal state, zero retries, pending timer cancelled.
func (b *AsyncBoundary) Reset() { b.m.reset("manual") }

// SetResetKeys replaces the reset keys; any changed key forces a full reset.
func (b *AsyncBoundary) SetResetKeys(keys ...any) { b.m.setResetKeys(keys) }

func (b *AsyncBoundary) Snapshot() Snapshot { return b.m.snapshot() }

// Close cancels the pending retry. Timer callbacks arriving later do nothing.
func (b *AsyncBoundary) Close() { b.m.close() }

// WithAsync wraps child in an AsyncBoundary for call sites that compose
// components instead of nesting them.
func WithAsync(child Component, opts AsyncOptions) *AsyncBoundary {
	if opts.Name == "" {
		if n, ok := child.(interface{ Name() string }); ok {
			opts.Name = n.Name()
		}
	}
	return NewAsync(child, opts)
}
