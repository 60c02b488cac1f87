package boundary

import (
	"context"
	"strings"
	"time"

	"github.com/Goden-Gun/resilience-lib/pkg/probe"
)

const (
	DefaultBlogMaxRetries   = 3
	DefaultBlogRetryDelay   = 2 * time.Second
	DefaultBlogProbeTimeout = 5 * time.Second
)

// BlogOptions configures a BlogBoundary.
type BlogOptions struct {
	AsyncOptions
	// Probe is consulted before each retry re-renders the child. A failed
	// probe schedules the next attempt automatically.
	Probe        probe.Probe
	ProbeTimeout time.Duration
}

type contentRule struct {
	needle  string
	message string
}

// Ordered; the first rule whose needle occurs in the error text wins.
var contentRules = []contentRule{
	{"hooks", "An internal error occurred while loading this content. Please try again."},
	{"Network", "Unable to connect to the content service. Please check your internet connection."},
	{"timeout", "The content took too long to load. Please try again."},
	{"404", "The requested content could not be found."},
	{"403", "You do not have permission to view this content."},
}

// ClassifyContentError maps an error to a reader-facing message by
// case-sensitive substring match, falling back to the raw message.
func ClassifyContentError(err error) string {
	msg := errorMessage(err)
	for _, r := range contentRules {
		if strings.Contains(msg, r.needle) {
			return r.message
		}
	}
	return msg
}

// BlogBoundary is an AsyncBoundary for content loaders.
type BlogBoundary struct {
	m *machine
}

func NewBlog(child Component, opts BlogOptions) *BlogBoundary {
	if opts.Name == "" {
		opts.Name = "blog"
	}
	m := newMachine(child, opts.AsyncOptions, DefaultBlogMaxRetries, DefaultBlogRetryDelay)
	m.title = "Unable to load content"
	m.loadingMessage = "Loading content..."
	m.message = ClassifyContentError
	m.probe = opts.Probe
	m.probeTimeout = opts.ProbeTimeout
	if m.probeTimeout <= 0 {
		m.probeTimeout = DefaultBlogProbeTimeout
	}
	return &BlogBoundary{m: m}
}

func (b *BlogBoundary) Render(ctx context.Context) (string, error) { return b.m.render(ctx) }
func (b *BlogBoundary) Retry() bool                                { return b.m.retry() }
func (b *BlogBoundary) Reset()                                     { b.m.reset("manual") }
func (b *BlogBoundary) SetResetKeys(keys ...any)                   { b.m.setResetKeys(keys) }
func (b *BlogBoundary) Snapshot() Snapshot                         { return b.m.snapshot() }

// Close cancels the pending retry timer and any in-flight probe.
func (b *BlogBoundary) Close() { b.m.close() }
