package boundary

import (
	"context"
	"sync"

	"github.com/Goden-Gun/resilience-lib/pkg/apperr"
	"github.com/Goden-Gun/resilience-lib/pkg/codes"
	"github.com/Goden-Gun/resilience-lib/pkg/logger"
	"github.com/Goden-Gun/resilience-lib/pkg/view"
)

const (
	globalTitle          = "Something went wrong"
	globalDefaultMessage = "An unexpected error occurred"
)

// GlobalOptions configures a GlobalBoundary.
type GlobalOptions struct {
	Name      string
	Fallback  Fallback
	Presenter view.Presenter
	Logger    logger.Logger
	Observer  Observer
	// Development adds a collapsible raw stack panel to the default fallback.
	Development bool
	// OnReload is the full page reload escape hatch.
	OnReload func()
}

// GlobalBoundary is the last-resort safety net: Normal or Errored, no timers.
type GlobalBoundary struct {
	child Component
	name  string
	opts  GlobalOptions
	log   logger.Logger
	obs   Observer

	mu    sync.Mutex
	state State
	err   error
	info  ErrorInfo
}

func NewGlobal(child Component, opts GlobalOptions) *GlobalBoundary {
	if opts.Name == "" {
		opts.Name = "global"
	}
	if opts.Presenter == nil {
		opts.Presenter = view.Default()
	}
	return &GlobalBoundary{
		child: child,
		name:  opts.Name,
		opts:  opts,
		log:   boundaryLogger(opts.Logger, opts.Name),
		obs:   observerOrNop(opts.Observer),
	}
}

func (g *GlobalBoundary) Render(ctx context.Context) (string, error) {
	ctx = withFrame(ctx, g.name)

	g.mu.Lock()
	errored := g.state == StateErrored
	g.mu.Unlock()
	if errored {
		return g.fallback(ctx)
	}

	out, info, err := guard(ctx, g.child)
	if err == nil {
		return out, nil
	}

	g.mu.Lock()
	g.state = StateErrored
	g.err = err
	g.info = info
	g.mu.Unlock()

	g.log.Error("render failed", caughtFields(g.name, err, info))
	g.obs.ObserveCatch(g.name, apperr.FormatError(err))
	return g.fallback(ctx)
}

// Reset clears the captured error; the next Render starts the child from scratch.
func (g *GlobalBoundary) Reset() {
	g.mu.Lock()
	prev := g.state
	g.state = StateNormal
	g.err = nil
	g.info = ErrorInfo{}
	g.mu.Unlock()
	if prev != StateNormal {
		g.log.Info("boundary reset", logger.Fields{"boundary": g.name})
	}
}

// Reload resets the boundary and invokes the page reload hook.
func (g *GlobalBoundary) Reload() {
	g.Reset()
	if g.opts.OnReload != nil {
		g.opts.OnReload()
	}
}

func (g *GlobalBoundary) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := Snapshot{State: g.state, HasError: g.err != nil, Err: g.err, Info: g.info}
	if g.err != nil {
		s.Details = apperr.FormatError(g.err)
	}
	return s
}

func (g *GlobalBoundary) fallback(ctx context.Context) (string, error) {
	g.mu.Lock()
	props := FallbackProps{Err: g.err, Info: g.info, Reset: g.Reset}
	g.mu.Unlock()
	props.Details = apperr.FormatError(props.Err)

	fb := g.opts.Fallback
	if fb == nil {
		fb = g.defaultFallback
	}
	return renderFallback(ctx, g.name, fb, props)
}

func (g *GlobalBoundary) defaultFallback(_ context.Context, p FallbackProps) (string, error) {
	msg := errorMessage(p.Err)
	if msg == "" {
		msg = globalDefaultMessage
	}
	n := view.Notice{
		Variant:  view.VariantPage,
		Title:    globalTitle,
		Message:  msg,
		Severity: codes.SeverityCritical,
		Actions: []view.Action{
			{Name: "reset", Label: "Try Again"},
			{Name: "reload", Label: "Reload Page"},
		},
	}
	if g.opts.Development {
		n.Stack = stackOf(p.Err)
		if n.Stack == "" {
			n.Stack = p.Info.ComponentStack
		}
	}
	return g.opts.Presenter.Present(n)
}
