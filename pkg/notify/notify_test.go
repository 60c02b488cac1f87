package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Goden-Gun/resilience-lib/pkg/apperr"
	"github.com/Goden-Gun/resilience-lib/pkg/codes"
	"github.com/Goden-Gun/resilience-lib/pkg/logger"
)

func newCenter(t *testing.T, opts Options) *Center {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	c := NewCenter(opts)
	t.Cleanup(c.Close)
	return c
}

func TestAddDoesNotDeduplicate(t *testing.T) {
	c := newCenter(t, Options{})
	ctx := context.Background()

	a := c.Add(ctx, errors.New("x"))
	b := c.Add(ctx, errors.New("x"))

	entries := c.Errors()
	require.Len(t, entries, 2)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.ID, entries[0].ID)
	assert.Equal(t, b.ID, entries[1].ID)
	assert.Equal(t, "UNKNOWN_ERROR", entries[0].Code)
	assert.Equal(t, "x", entries[0].Message)
}

func TestAddOverrides(t *testing.T) {
	c := newCenter(t, Options{})
	e := c.Add(context.Background(), &apperr.StatusError{StatusCode: 503}, AddOptions{
		Title:    "Blog offline",
		Severity: codes.SeverityCritical,
	})
	assert.Equal(t, "Blog offline", e.Title)
	assert.Equal(t, codes.SeverityCritical, e.Severity)
	assert.Equal(t, "SERVER_ERROR", e.Code)
	assert.True(t, e.Retryable)

	n := c.Add(context.Background(), nil)
	assert.Equal(t, "UNKNOWN_ERROR", n.Code)
}

func TestClearIsIdempotent(t *testing.T) {
	c := newCenter(t, Options{})
	c.Add(context.Background(), errors.New("a"))
	c.Clear()
	assert.Empty(t, c.Errors())
	assert.NotPanics(t, c.Clear)
	assert.Empty(t, c.Errors())
}

func TestRemove(t *testing.T) {
	c := newCenter(t, Options{})
	e := c.Add(context.Background(), errors.New("a"))
	keep := c.Add(context.Background(), errors.New("b"))

	assert.True(t, c.Remove(e.ID))
	assert.False(t, c.Remove(e.ID))
	require.Len(t, c.Errors(), 1)
	assert.Equal(t, keep.ID, c.Errors()[0].ID)
}

func TestAutoHide(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newCenter(t, Options{Clock: clock, DefaultAutoHide: 5 * time.Second})
	ctx := context.Background()

	c.Add(ctx, errors.New("short"), AddOptions{AutoHide: time.Second})
	c.Add(ctx, errors.New("default"))
	sticky := c.Add(ctx, errors.New("sticky"), AddOptions{Sticky: true})
	require.Len(t, c.Errors(), 3)

	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return len(c.Errors()) == 2 }, time.Second, time.Millisecond)

	clock.Advance(4 * time.Second)
	require.Eventually(t, func() bool { return len(c.Errors()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, sticky.ID, c.Errors()[0].ID)
}

func TestManualRemoveCancelsAutoHide(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newCenter(t, Options{Clock: clock})
	e := c.Add(context.Background(), errors.New("a"), AddOptions{AutoHide: time.Second})

	require.True(t, c.Remove(e.ID))
	c.mu.Lock()
	assert.Empty(t, c.timers)
	c.mu.Unlock()

	later := c.Add(context.Background(), errors.New("b"))
	clock.Advance(time.Minute)
	time.Sleep(10 * time.Millisecond)
	require.Len(t, c.Errors(), 1)
	assert.Equal(t, later.ID, c.Errors()[0].ID)
}

func TestSubscribe(t *testing.T) {
	c := newCenter(t, Options{})
	var (
		mu   sync.Mutex
		seen []int
	)
	cancel := c.Subscribe(func(entries []Entry) {
		mu.Lock()
		seen = append(seen, len(entries))
		mu.Unlock()
	})

	e := c.Add(context.Background(), errors.New("a"))
	c.Remove(e.ID)
	cancel()
	c.Add(context.Background(), errors.New("b"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 0}, seen)
}

type captureSink struct {
	mu      sync.Mutex
	entries []Entry
	err     error
}

func (s *captureSink) Publish(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return s.err
}

func TestSinks(t *testing.T) {
	base, hook := test.NewNullLogger()
	ok := &captureSink{}
	broken := &captureSink{err: errors.New("broker down")}
	c := NewCenter(Options{
		Logger: logger.FromEntry(logrus.NewEntry(base)),
		Sinks:  []Sink{ok, broken},
	})

	e := c.Add(context.Background(), errors.New("a"))
	c.Close()

	require.Len(t, ok.entries, 1)
	assert.Equal(t, e.ID, ok.entries[0].ID)
	require.Len(t, broken.entries, 1)

	found := false
	for _, entry := range hook.AllEntries() {
		if entry.Message == "publish notification failed" {
			found = true
			assert.Equal(t, logrus.WarnLevel, entry.Level)
		}
	}
	assert.True(t, found)

	c.Add(context.Background(), errors.New("after close"))
	assert.Len(t, c.Errors(), 1)
}

func TestRender(t *testing.T) {
	c := newCenter(t, Options{})
	c.Add(context.Background(), errors.New("<b>boom</b>"))
	out, err := c.Render(context.Background())
	require.NoError(t, err)
	assert.Contains(t, out, `class="error-notifications"`)
	assert.Contains(t, out, "Unexpected Error")
	assert.Contains(t, out, "&lt;b&gt;boom&lt;/b&gt;")
	assert.Contains(t, out, `data-action="dismiss"`)
}

func TestFromContext(t *testing.T) {
	_, err := FromContext(context.Background())
	assert.ErrorIs(t, err, ErrNoProvider)

	_, err = HandlerFromContext(context.Background(), HandlerOptions{})
	assert.ErrorIs(t, err, ErrNoProvider)

	c := newCenter(t, Options{})
	got, err := FromContext(NewContext(context.Background(), c))
	require.NoError(t, err)
	assert.Same(t, c, got)
}

func TestHandlerRetryCounter(t *testing.T) {
	c := newCenter(t, Options{})
	var attempts []int
	maxed := 0
	h := NewHandler(c, HandlerOptions{
		MaxRetries:          2,
		OnRetry:             func(n int) { attempts = append(attempts, n) },
		OnMaxRetriesReached: func(apperr.Details) { maxed++ },
	})
	ctx := context.Background()
	network := &apperr.StatusError{Err: errors.New("refused")}

	for i := 0; i < 3; i++ {
		d := h.HandleError(ctx, network)
		assert.Equal(t, "NETWORK_ERROR", d.Code)
	}
	assert.Equal(t, []int{1, 2}, attempts)
	assert.Equal(t, 1, maxed)
	assert.Equal(t, 2, h.RetryCount())
	assert.Len(t, c.Errors(), 3)

	h.HandleError(ctx, apperr.Validation("title required"))
	assert.Equal(t, 2, h.RetryCount())
	assert.Equal(t, "VALIDATION_ERROR", h.Details().Code)
	assert.ErrorIs(t, h.Err(), apperr.ErrValidation)

	h.ClearError()
	assert.NoError(t, h.Err())
	assert.Equal(t, 0, h.RetryCount())
	assert.Equal(t, apperr.Details{}, h.Details())
}

func TestHandlerWrap(t *testing.T) {
	c := newCenter(t, Options{})
	h := NewHandler(c, HandlerOptions{})
	ctx := context.Background()
	boom := errors.New("boom")

	assert.Same(t, boom, h.Wrap(ctx, func(context.Context) error { return boom }))
	assert.NoError(t, h.Wrap(ctx, func(context.Context) error { return nil }))

	v, err := WrapValue(ctx, h, func(context.Context) (int, error) { return 3, nil })
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	_, err = WrapValue(ctx, h, func(context.Context) (int, error) { return 0, boom })
	assert.Same(t, boom, err)
	assert.Len(t, c.Errors(), 2)
}

func TestReduceDoesNotMutate(t *testing.T) {
	orig := []Entry{{ID: "a"}, {ID: "b"}}
	removed := reduce(orig, action{kind: actionRemove, id: "a"})
	assert.Len(t, orig, 2)
	assert.Len(t, removed, 1)

	added := reduce(orig[:1], action{kind: actionAdd, entry: Entry{ID: "c"}})
	assert.Equal(t, "b", orig[1].ID)
	assert.Equal(t, "c", added[1].ID)
	assert.Nil(t, reduce(orig, action{kind: actionClear}))
}
