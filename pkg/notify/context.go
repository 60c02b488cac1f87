package notify

import (
	"context"
	"errors"
)

// ErrNoProvider is returned when no Center was installed in the context.
var ErrNoProvider = errors.New("notify: error center not found in context; wrap the request with NewContext")

type centerKey struct{}

// NewContext returns a copy of ctx carrying c.
func NewContext(ctx context.Context, c *Center) context.Context {
	return context.WithValue(ctx, centerKey{}, c)
}

// FromContext returns the Center installed by NewContext.
func FromContext(ctx context.Context) (*Center, error) {
	if ctx == nil {
		return nil, ErrNoProvider
	}
	c, ok := ctx.Value(centerKey{}).(*Center)
	if !ok || c == nil {
		return nil, ErrNoProvider
	}
	return c, nil
}
