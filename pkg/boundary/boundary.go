// Package boundary isolates failures of a rendered component so that one
// broken subtree degrades to a fallback instead of failing the whole page.
//
// A boundary intercepts only what happens synchronously inside the child's
// Render: a returned error or a panic. Goroutines started by a child run
// outside the guard and are never caught here; report those through
// notify.Handler or Center.Add instead.
//
// Three flavours are provided:
//
//	GlobalBoundary  last-resort page panel with a manual reset, no timers
//	AsyncBoundary   timed exponential retry, loading state and reset keys
//	BlogBoundary    AsyncBoundary with content-aware messages and a
//	                connectivity probe that chains retries on its own
package boundary

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/Goden-Gun/resilience-lib/pkg/apperr"
	"github.com/Goden-Gun/resilience-lib/pkg/logger"
)

// Component renders a piece of markup.
type Component interface {
	Render(ctx context.Context) (string, error)
}

// RenderFunc adapts a function to Component.
type RenderFunc func(ctx context.Context) (string, error)

func (f RenderFunc) Render(ctx context.Context) (string, error) { return f(ctx) }

// Static is a Component that always renders the same markup.
type Static string

func (s Static) Render(context.Context) (string, error) { return string(s), nil }

// ErrorInfo describes where a failure was caught.
type ErrorInfo struct {
	// ComponentStack is the chain of enclosing boundary names, outermost first.
	ComponentStack string
	Panicked       bool
}

// FallbackProps is handed to a custom fallback.
type FallbackProps struct {
	Err        error
	Details    apperr.Details
	Info       ErrorInfo
	RetryCount int
	MaxRetries int
	CanRetry   bool
	// Retry asks the boundary for another attempt. Nil on GlobalBoundary.
	Retry func() bool
	Reset func()
}

// Fallback renders the replacement for a failed child.
type Fallback func(ctx context.Context, p FallbackProps) (string, error)

type pathKey struct{}

func withFrame(ctx context.Context, name string) context.Context {
	path := Path(ctx)
	next := make([]string, len(path), len(path)+1)
	copy(next, path)
	return context.WithValue(ctx, pathKey{}, append(next, name))
}

// Path returns the names of the boundaries enclosing ctx, outermost first.
func Path(ctx context.Context) []string {
	if ctx == nil {
		return nil
	}
	path, _ := ctx.Value(pathKey{}).([]string)
	return path
}

// guard renders c, converting a panic into *apperr.PanicError.
func guard(ctx context.Context, c Component) (out string, info ErrorInfo, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = ""
			err = &apperr.PanicError{Value: r, Stack: debug.Stack()}
			info = ErrorInfo{ComponentStack: strings.Join(Path(ctx), " > "), Panicked: true}
		}
	}()
	out, err = c.Render(ctx)
	if err != nil {
		return "", ErrorInfo{ComponentStack: strings.Join(Path(ctx), " > ")}, err
	}
	return out, ErrorInfo{}, nil
}

// renderFallback runs a fallback under the guard. Its failure is returned so
// the enclosing boundary can handle it.
func renderFallback(ctx context.Context, name string, fb Fallback, props FallbackProps) (string, error) {
	out, _, err := guard(ctx, RenderFunc(func(ctx context.Context) (string, error) {
		return fb(ctx, props)
	}))
	if err != nil {
		return "", fmt.Errorf("%s fallback: %w", name, err)
	}
	return out, nil
}

func stackOf(err error) string {
	var pe *apperr.PanicError
	if errors.As(err, &pe) {
		return string(pe.Stack)
	}
	return ""
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func caughtFields(name string, err error, info ErrorInfo) logger.Fields {
	f := apperr.Fields(err)
	f["boundary"] = name
	f["message"] = errorMessage(err)
	f["component_stack"] = info.ComponentStack
	f["panicked"] = info.Panicked
	if stack := stackOf(err); stack != "" {
		f["stack"] = stack
	}
	return f
}

func boundaryLogger(l logger.Logger, name string) logger.Logger {
	if l == nil {
		l = logger.FromEntry(logger.WithFields(logger.Fields{"component": "boundary", "boundary": name}))
	}
	return logger.Safe(l)
}
