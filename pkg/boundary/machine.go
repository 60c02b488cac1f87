package boundary

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Goden-Gun/resilience-lib/pkg/apperr"
	"github.com/Goden-Gun/resilience-lib/pkg/codes"
	"github.com/Goden-Gun/resilience-lib/pkg/logger"
	"github.com/Goden-Gun/resilience-lib/pkg/probe"
	"github.com/Goden-Gun/resilience-lib/pkg/retry"
	"github.com/Goden-Gun/resilience-lib/pkg/tracing"
	"github.com/Goden-Gun/resilience-lib/pkg/view"
)

var tracer = tracing.Tracer("resilience-lib/boundary")

// machine is the retrying state machine shared by AsyncBoundary and BlogBoundary.
type machine struct {
	name       string
	child      Component
	maxRetries int
	retryDelay time.Duration

	fallback       Fallback
	loading        Component
	onError        func(error, ErrorInfo)
	onReset        func()
	presenter      view.Presenter
	log            logger.Logger
	obs            Observer
	clock          clockwork.Clock
	probe          probe.Probe
	probeTimeout   time.Duration
	title          string
	loadingMessage string
	message        func(error) string

	mu          sync.Mutex
	state       State
	err         error
	info        ErrorInfo
	retryCount  int
	lastRetryAt time.Time
	timer       clockwork.Timer
	// gen invalidates timer callbacks scheduled before a reset, reschedule or close.
	gen       uint64
	closed    bool
	resetKeys []any
	// recovered is the markup of the last successful retry render, served
	// once by the next Render so the child is not rendered twice.
	recovered    string
	hasRecovered bool

	ctx    context.Context
	cancel context.CancelFunc
}

func (m *machine) init() {
	m.ctx, m.cancel = context.WithCancel(context.Background())
	if m.clock == nil {
		m.clock = clockwork.NewRealClock()
	}
	if m.presenter == nil {
		m.presenter = view.Default()
	}
	if m.message == nil {
		m.message = errorMessage
	}
	m.log = boundaryLogger(m.log, m.name)
	m.obs = observerOrNop(m.obs)
}

func (m *machine) render(ctx context.Context) (string, error) {
	ctx = withFrame(ctx, m.name)

	m.mu.Lock()
	state := m.state
	if state == StateNormal && m.hasRecovered {
		out := m.recovered
		m.recovered, m.hasRecovered = "", false
		m.mu.Unlock()
		return out, nil
	}
	m.mu.Unlock()

	switch state {
	case StateRetrying:
		return m.renderLoading(ctx)
	case StateErrored:
		return m.renderFallback(ctx)
	}

	out, info, err := guard(ctx, m.child)
	if err == nil {
		return out, nil
	}

	m.mu.Lock()
	if m.state == StateNormal {
		m.state = StateErrored
		m.err = err
		m.info = info
	}
	m.mu.Unlock()

	m.caught(err, info)
	return m.renderFallback(ctx)
}

func (m *machine) caught(err error, info ErrorInfo) {
	if m.onError != nil {
		m.onError(err, info)
	}
	m.log.Error("render failed", caughtFields(m.name, err, info))
	m.obs.ObserveCatch(m.name, apperr.FormatError(err))
}

func (m *machine) canRetryLocked() bool {
	return !m.closed && m.err != nil && apperr.IsRetryable(m.err) && m.retryCount < m.maxRetries
}

func (m *machine) retry() bool {
	m.mu.Lock()
	if m.state != StateErrored || !m.canRetryLocked() {
		fields := logger.Fields{
			"boundary":    m.name,
			"state":       m.state.String(),
			"retry_count": m.retryCount,
			"max_retries": m.maxRetries,
			"retryable":   apperr.IsRetryable(m.err),
		}
		m.mu.Unlock()
		m.log.Warn("retry ignored", fields)
		return false
	}
	attempt, delay := m.scheduleLocked()
	m.mu.Unlock()

	m.log.Debug("retry scheduled", logger.Fields{"boundary": m.name, "attempt": attempt, "delay": delay.String()})
	m.obs.ObserveRetry(m.name, attempt, delay)
	return true
}

// scheduleLocked moves to Retrying and arms the single retry timer. The delay
// is computed from the retry count before it is incremented.
func (m *machine) scheduleLocked() (attempt int, delay time.Duration) {
	delay = retry.Backoff(m.retryDelay, m.retryCount)
	m.retryCount++
	m.state = StateRetrying
	m.lastRetryAt = m.clock.Now()
	m.stopTimerLocked()
	m.gen++
	gen := m.gen
	m.timer = m.clock.AfterFunc(delay, func() { m.fire(gen) })
	return m.retryCount, delay
}

func (m *machine) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *machine) live(gen uint64) bool {
	return !m.closed && gen == m.gen
}

func (m *machine) fire(gen uint64) {
	m.mu.Lock()
	if !m.live(gen) || m.state != StateRetrying {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	attempt := m.retryCount
	ctx := m.ctx
	m.mu.Unlock()

	ctx, span := tracer.Start(ctx, "boundary.retry")
	span.SetAttributes(attribute.String("boundary.name", m.name), attribute.Int("boundary.attempt", attempt))
	defer span.End()

	if m.probe != nil {
		if err := m.checkConnectivity(ctx); err != nil {
			tracing.Fail(span, err)
			m.probeFailed(gen, err)
			return
		}
	}

	out, info, err := guard(withFrame(ctx, m.name), m.child)

	m.mu.Lock()
	if !m.live(gen) {
		m.mu.Unlock()
		return
	}
	if err == nil {
		m.state = StateNormal
		m.err = nil
		m.info = ErrorInfo{}
		m.recovered, m.hasRecovered = out, true
		m.mu.Unlock()

		if m.onReset != nil {
			m.onReset()
		}
		m.log.Info("recovered", logger.Fields{"boundary": m.name, "retry_count": attempt})
		m.obs.ObserveRecovery(m.name, attempt)
		return
	}
	m.state = StateErrored
	m.err = err
	m.info = info
	exhausted := m.retryCount >= m.maxRetries
	m.mu.Unlock()

	tracing.Fail(span, err)
	m.caught(err, info)
	if exhausted {
		m.exhausted(attempt)
	}
}

func (m *machine) checkConnectivity(ctx context.Context) error {
	if m.probeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.probeTimeout)
		defer cancel()
	}
	_, err := probe.Verify(ctx, m.probe)
	return err
}

// probeFailed re-enters Errored and chains the next backoff attempt while
// budget remains.
func (m *machine) probeFailed(gen uint64, cause error) {
	err := apperr.Wrap(codes.Network, "Network check failed: content service unreachable", cause)

	m.mu.Lock()
	if !m.live(gen) {
		m.mu.Unlock()
		return
	}
	m.state = StateErrored
	m.err = err
	m.info = ErrorInfo{ComponentStack: m.name}
	chained := m.retryCount < m.maxRetries
	var (
		attempt int
		delay   time.Duration
	)
	if chained {
		attempt, delay = m.scheduleLocked()
	}
	count := m.retryCount
	m.mu.Unlock()

	m.log.Warn("connectivity probe failed", logger.Fields{
		"boundary":    m.name,
		"retry_count": count,
		"max_retries": m.maxRetries,
		"cause":       cause.Error(),
	})
	if chained {
		m.obs.ObserveRetry(m.name, attempt, delay)
		return
	}
	m.exhausted(count)
}

func (m *machine) exhausted(attempts int) {
	m.log.Warn("retry limit reached", logger.Fields{"boundary": m.name, "retry_count": attempts, "max_retries": m.maxRetries})
	m.obs.ObserveExhausted(m.name, attempts)
}

// reset returns to Normal with a fresh retry budget and cancels any pending
// retry. onReset fires only when leaving a non-Normal state.
func (m *machine) reset(reason string) {
	m.mu.Lock()
	prev := m.state
	m.stopTimerLocked()
	m.gen++
	m.state = StateNormal
	m.err = nil
	m.info = ErrorInfo{}
	m.retryCount = 0
	m.lastRetryAt = time.Time{}
	m.recovered, m.hasRecovered = "", false
	m.mu.Unlock()

	if prev == StateNormal {
		return
	}
	if m.onReset != nil {
		m.onReset()
	}
	m.log.Info("boundary reset", logger.Fields{"boundary": m.name, "reason": reason, "from": prev.String()})
}

func (m *machine) setResetKeys(keys []any) {
	next := append([]any(nil), keys...)
	m.mu.Lock()
	prev := m.resetKeys
	m.resetKeys = next
	m.mu.Unlock()
	if keysChanged(prev, next) {
		m.reset("reset keys changed")
	}
}

func keysChanged(prev, next []any) bool {
	if len(prev) != len(next) {
		return true
	}
	for i := range prev {
		if !sameKey(prev[i], next[i]) {
			return true
		}
	}
	return false
}

// sameKey compares two reset keys. Comparable types holding uncomparable
// dynamic values (an interface field carrying a slice) fall back to DeepEqual.
func sameKey(a, b any) (same bool) {
	defer func() {
		if recover() != nil {
			same = reflect.DeepEqual(a, b)
		}
	}()
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

func (m *machine) close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.stopTimerLocked()
	m.gen++
	m.cancel()
}

func (m *machine) snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Snapshot{
		State:       m.state,
		HasError:    m.err != nil,
		Err:         m.err,
		Info:        m.info,
		RetryCount:  m.retryCount,
		MaxRetries:  m.maxRetries,
		IsRetrying:  m.state == StateRetrying,
		CanRetry:    m.state == StateErrored && m.canRetryLocked(),
		LastRetryAt: m.lastRetryAt,
	}
	if m.err != nil {
		s.Details = apperr.FormatError(m.err)
	}
	return s
}

func (m *machine) props() FallbackProps {
	s := m.snapshot()
	return FallbackProps{
		Err:        s.Err,
		Details:    s.Details,
		Info:       s.Info,
		RetryCount: s.RetryCount,
		MaxRetries: s.MaxRetries,
		CanRetry:   s.CanRetry,
		Retry:      m.retry,
		Reset:      func() { m.reset("manual") },
	}
}

func (m *machine) renderFallback(ctx context.Context) (string, error) {
	fb := m.fallback
	if fb == nil {
		fb = m.defaultFallback
	}
	return renderFallback(ctx, m.name, fb, m.props())
}

func (m *machine) defaultFallback(_ context.Context, p FallbackProps) (string, error) {
	exhausted := p.MaxRetries > 0 && p.RetryCount >= p.MaxRetries
	return m.presenter.Present(view.Notice{
		Variant:    view.VariantInline,
		Title:      m.title,
		Message:    m.message(p.Err),
		Severity:   codes.SeverityError,
		RetryCount: p.RetryCount,
		MaxRetries: p.MaxRetries,
		CanRetry:   p.CanRetry,
		Exhausted:  exhausted,
		Actions:    []view.Action{{Name: "retry", Label: "Try Again", Disabled: !p.CanRetry}},
	})
}

func (m *machine) renderLoading(ctx context.Context) (string, error) {
	if m.loading != nil {
		out, _, err := guard(ctx, m.loading)
		if err != nil {
			return "", err
		}
		return out, nil
	}
	s := m.snapshot()
	return m.presenter.Present(view.Notice{
		Variant:    view.VariantLoading,
		Message:    m.loadingMessage,
		RetryCount: s.RetryCount,
		MaxRetries: s.MaxRetries,
	})
}
