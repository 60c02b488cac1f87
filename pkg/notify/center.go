// Package notify holds the application-wide queue of transient error
// notifications. It is fed explicitly, typically from goroutines and request
// handlers whose failures no boundary can intercept.
package notify

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/Goden-Gun/resilience-lib/pkg/apperr"
	"github.com/Goden-Gun/resilience-lib/pkg/codes"
	"github.com/Goden-Gun/resilience-lib/pkg/logger"
	"github.com/Goden-Gun/resilience-lib/pkg/view"
)

const defaultSinkTimeout = 5 * time.Second

// Entry is one notification.
type Entry struct {
	ID string `json:"id"`
	apperr.Details
	Timestamp time.Time     `json:"timestamp"`
	AutoHide  time.Duration `json:"auto_hide,omitempty"`
}

// AddOptions overrides parts of the classified details of an added entry.
type AddOptions struct {
	// AutoHide removes the entry after the duration. Zero uses the center default.
	AutoHide time.Duration
	// Sticky disables auto-hide for this entry.
	Sticky   bool
	Title    string
	Message  string
	Severity codes.Severity
}

// Sink receives every added entry. Publishing is asynchronous and failures
// are only logged.
type Sink interface {
	Publish(ctx context.Context, e Entry) error
}

// Observer receives queue events without tying the package to a metrics backend.
type Observer interface {
	ObserveNotification(d apperr.Details)
	ObserveDismissal(reason string)
}

type nopObserver struct{}

func (nopObserver) ObserveNotification(apperr.Details) {}
func (nopObserver) ObserveDismissal(string)            {}

// Options configures a Center.
type Options struct {
	Clock           clockwork.Clock
	Logger          logger.Logger
	Sinks           []Sink
	SinkTimeout     time.Duration
	DefaultAutoHide time.Duration
	Presenter       view.Presenter
	Observer        Observer
}

// Center owns the notification list. The list only changes through the
// add, remove and clear actions, applied under one lock.
type Center struct {
	opts Options
	log  logger.Logger
	obs  Observer

	mu      sync.Mutex
	entries []Entry
	timers  map[string]clockwork.Timer
	subs    map[int]func([]Entry)
	nextSub int
	closed  bool

	publishing sync.WaitGroup
}

func NewCenter(opts Options) *Center {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Presenter == nil {
		opts.Presenter = view.Default()
	}
	if opts.SinkTimeout <= 0 {
		opts.SinkTimeout = defaultSinkTimeout
	}
	l := opts.Logger
	if l == nil {
		l = logger.Named("notify")
	}
	var obs Observer = nopObserver{}
	if opts.Observer != nil {
		obs = opts.Observer
	}
	return &Center{
		opts:   opts,
		log:    logger.Safe(l),
		obs:    obs,
		timers: make(map[string]clockwork.Timer),
		subs:   make(map[int]func([]Entry)),
	}
}

// Add classifies raw and appends a new entry. Identical errors are not
// deduplicated.
func (c *Center) Add(ctx context.Context, raw any, opts ...AddOptions) Entry {
	var o AddOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	details := apperr.FormatError(raw)
	if raw == nil {
		details = apperr.ErrUnknown.Details()
	}
	if o.Title != "" {
		details.Title = o.Title
	}
	if o.Message != "" {
		details.Message = o.Message
	}
	if o.Severity != "" {
		details.Severity = o.Severity
	}
	autoHide := o.AutoHide
	if autoHide <= 0 {
		autoHide = c.opts.DefaultAutoHide
	}
	if o.Sticky {
		autoHide = 0
	}
	e := Entry{
		ID:        uuid.NewString(),
		Details:   details,
		Timestamp: c.opts.Clock.Now(),
		AutoHide:  autoHide,
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return e
	}
	c.entries = reduce(c.entries, action{kind: actionAdd, entry: e})
	if autoHide > 0 {
		id := e.ID
		c.timers[id] = c.opts.Clock.AfterFunc(autoHide, func() { c.dismiss(id, "auto_hide") })
	}
	snap, subs := c.snapshotLocked()
	c.mu.Unlock()

	fields := apperr.Fields(raw)
	fields["notification_id"] = e.ID
	c.log.Info("notification added", fields)
	c.obs.ObserveNotification(details)
	notifyAll(subs, snap)
	c.publish(ctx, e)
	return e
}

// Remove dismisses an entry. It reports whether the entry existed.
func (c *Center) Remove(id string) bool {
	return c.dismiss(id, "manual")
}

func (c *Center) dismiss(id, reason string) bool {
	c.mu.Lock()
	if !contains(c.entries, id) {
		c.mu.Unlock()
		return false
	}
	if t, ok := c.timers[id]; ok {
		t.Stop()
		delete(c.timers, id)
	}
	c.entries = reduce(c.entries, action{kind: actionRemove, id: id})
	snap, subs := c.snapshotLocked()
	c.mu.Unlock()

	c.log.Debug("notification removed", logger.Fields{"notification_id": id, "reason": reason})
	c.obs.ObserveDismissal(reason)
	notifyAll(subs, snap)
	return true
}

// Clear removes every entry and cancels all auto-hide timers. Calling it on
// an empty list is a no-op.
func (c *Center) Clear() {
	c.mu.Lock()
	if len(c.entries) == 0 {
		c.mu.Unlock()
		return
	}
	c.stopTimersLocked()
	c.entries = reduce(c.entries, action{kind: actionClear})
	snap, subs := c.snapshotLocked()
	c.mu.Unlock()

	c.obs.ObserveDismissal("clear")
	notifyAll(subs, snap)
}

// Errors returns the entries in insertion order, newest last.
func (c *Center) Errors() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Entry(nil), c.entries...)
}

// Subscribe registers fn to receive the list after every change. The
// returned function unsubscribes.
func (c *Center) Subscribe(fn func([]Entry)) (cancel func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Render draws the live list as an overlay region, one toast per entry.
func (c *Center) Render(_ context.Context) (string, error) {
	entries := c.Errors()
	var b strings.Builder
	b.WriteString(`<div class="error-notifications" aria-live="polite">`)
	for _, e := range entries {
		out, err := c.opts.Presenter.Present(view.Notice{
			Variant:  view.VariantToast,
			ID:       e.ID,
			Title:    e.Title,
			Message:  e.Message,
			Severity: e.Severity,
			Actions:  []view.Action{{Name: "dismiss", Label: "Close"}},
		})
		if err != nil {
			return "", err
		}
		b.WriteString(out)
	}
	b.WriteString(`</div>`)
	return b.String(), nil
}

// Close stops all timers and waits for in-flight sink publishes. Later Adds
// are dropped.
func (c *Center) Close() {
	c.mu.Lock()
	c.closed = true
	c.stopTimersLocked()
	c.mu.Unlock()
	c.publishing.Wait()
}

func (c *Center) stopTimersLocked() {
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
}

func (c *Center) snapshotLocked() ([]Entry, []func([]Entry)) {
	snap := append([]Entry(nil), c.entries...)
	subs := make([]func([]Entry), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	return snap, subs
}

func (c *Center) publish(ctx context.Context, e Entry) {
	if ctx == nil {
		ctx = context.Background()
	}
	for _, s := range c.opts.Sinks {
		c.publishing.Add(1)
		go func(s Sink) {
			defer c.publishing.Done()
			pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.SinkTimeout)
			defer cancel()
			if err := s.Publish(pctx, e); err != nil {
				c.log.Warn("publish notification failed", logger.Fields{"notification_id": e.ID, "error": err.Error()})
			}
		}(s)
	}
}

func notifyAll(subs []func([]Entry), snap []Entry) {
	for _, fn := range subs {
		fn(snap)
	}
}

func contains(entries []Entry, id string) bool {
	for _, e := range entries {
		if e.ID == id {
			return true
		}
	}
	return false
}
