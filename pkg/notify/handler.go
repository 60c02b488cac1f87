package notify

import (
	"context"
	"sync"
	"time"

	"github.com/Goden-Gun/resilience-lib/pkg/apperr"
)

const DefaultHandlerMaxRetries = 3

// HandlerOptions configures a Handler.
type HandlerOptions struct {
	MaxRetries int
	// OnRetry runs with the new local retry count when a retryable error is
	// reported and budget remains.
	OnRetry func(attempt int)
	// OnMaxRetriesReached runs when a retryable error arrives after the
	// budget is spent.
	OnMaxRetriesReached func(d apperr.Details)
	AutoHide            time.Duration
}

// Handler reports explicitly caught errors into a Center and keeps its own
// retry counter. The counter is local to the Handler and unrelated to any
// boundary's retry count.
type Handler struct {
	center *Center
	opts   HandlerOptions

	mu         sync.Mutex
	err        *apperr.Error
	details    apperr.Details
	retryCount int
}

// NewHandler binds a Handler to center. A nil center only tracks state.
func NewHandler(center *Center, opts HandlerOptions) *Handler {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultHandlerMaxRetries
	}
	return &Handler{center: center, opts: opts}
}

// HandlerFromContext binds a Handler to the Center carried by ctx.
func HandlerFromContext(ctx context.Context, opts HandlerOptions) (*Handler, error) {
	c, err := FromContext(ctx)
	if err != nil {
		return nil, err
	}
	return NewHandler(c, opts), nil
}

// HandleError classifies err, records it as the current error and queues a
// notification.
func (h *Handler) HandleError(ctx context.Context, err error) apperr.Details {
	ae := apperr.CreateAppError(err)
	if ae == nil {
		return apperr.Details{}
	}
	d := ae.Details()

	h.mu.Lock()
	h.err = ae
	h.details = d
	var attempt int
	maxed := false
	if d.Retryable {
		if h.retryCount < h.opts.MaxRetries {
			h.retryCount++
			attempt = h.retryCount
		} else {
			maxed = true
		}
	}
	h.mu.Unlock()

	if h.center != nil {
		h.center.Add(ctx, ae, AddOptions{AutoHide: h.opts.AutoHide})
	}
	switch {
	case attempt > 0 && h.opts.OnRetry != nil:
		h.opts.OnRetry(attempt)
	case maxed && h.opts.OnMaxRetriesReached != nil:
		h.opts.OnMaxRetriesReached(d)
	}
	return d
}

// ClearError forgets the current error and restarts the retry count.
func (h *Handler) ClearError() {
	h.mu.Lock()
	h.err = nil
	h.details = apperr.Details{}
	h.retryCount = 0
	h.mu.Unlock()
}

// Err returns the current error, nil when none.
func (h *Handler) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err == nil {
		return nil
	}
	return h.err
}

func (h *Handler) Details() apperr.Details {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.details
}

func (h *Handler) RetryCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.retryCount
}

// Wrap runs fn and reports its failure. The original error is returned.
func (h *Handler) Wrap(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		h.HandleError(ctx, err)
		return err
	}
	return nil
}

// WrapValue is Wrap for functions that produce a value.
func WrapValue[T any](ctx context.Context, h *Handler, fn func(ctx context.Context) (T, error)) (T, error) {
	v, err := fn(ctx)
	if err != nil {
		h.HandleError(ctx, err)
		var zero T
		return zero, err
	}
	return v, nil
}
