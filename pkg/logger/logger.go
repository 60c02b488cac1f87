package logger

import (
	"context"
	"io"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

// Package logger is a thin wrapper around logrus' standard logger.
//
// It is designed to be imported as `log`, so applications can share a single
// logging backend configured once (typically via resilience-lib/pkg/bootstrap).
// Components that need an injectable sink take a Logger instead.

type Fields = log.Fields
type Entry = log.Entry
type Level = log.Level
type Formatter = log.Formatter
type Hook = log.Hook

const (
	ErrorLevel = log.ErrorLevel
	WarnLevel  = log.WarnLevel
	InfoLevel  = log.InfoLevel
	DebugLevel = log.DebugLevel
)

func StandardLogger() *log.Logger           { return log.StandardLogger() }
func AddHook(h Hook)                         { log.AddHook(h) }
func SetFormatter(f Formatter)               { log.SetFormatter(f) }
func SetLevel(level Level)                   { log.SetLevel(level) }
func ParseLevel(level string) (Level, error) { return log.ParseLevel(level) }
func SetOutput(out io.Writer)                { log.SetOutput(out) }

func WithField(key string, value any) *Entry { return log.WithField(key, value) }
func WithFields(fields Fields) *Entry        { return log.WithFields(fields) }
func WithError(err error) *Entry             { return log.WithError(err) }

// WithTrace binds ctx and adds "trace_id" when OpenTelemetry span context is present.
func WithTrace(ctx context.Context) *Entry {
	e := log.WithContext(ctx)
	if ctx == nil {
		return e
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		e = e.WithField("trace_id", sc.TraceID().String())
	}
	return e
}

// Logger is the structured logging collaborator used by boundaries and the
// notification center. Every method takes a message and optional metadata.
type Logger interface {
	Error(msg string, fields ...Fields)
	Warn(msg string, fields ...Fields)
	Info(msg string, fields ...Fields)
	Debug(msg string, fields ...Fields)
}

type entryLogger struct {
	entry *Entry
}

// FromEntry adapts a logrus entry (or logger via log.NewEntry) to Logger.
func FromEntry(e *Entry) Logger {
	if e == nil {
		return Nop()
	}
	return &entryLogger{entry: e}
}

// Standard returns a Logger backed by the logrus standard logger.
func Standard() Logger {
	return FromEntry(log.NewEntry(log.StandardLogger()))
}

// Named returns the standard logger tagged with a component field.
func Named(component string) Logger {
	return FromEntry(log.WithField("component", component))
}

func (l *entryLogger) Error(msg string, fields ...Fields) { l.with(fields).Error(msg) }
func (l *entryLogger) Warn(msg string, fields ...Fields)  { l.with(fields).Warn(msg) }
func (l *entryLogger) Info(msg string, fields ...Fields)  { l.with(fields).Info(msg) }
func (l *entryLogger) Debug(msg string, fields ...Fields) { l.with(fields).Debug(msg) }

func (l *entryLogger) with(fields []Fields) *Entry {
	e := l.entry
	for _, f := range fields {
		if len(f) > 0 {
			e = e.WithFields(f)
		}
	}
	return e
}

type nopLogger struct{}

// Nop discards everything.
func Nop() Logger { return nopLogger{} }

func (nopLogger) Error(string, ...Fields) {}
func (nopLogger) Warn(string, ...Fields)  {}
func (nopLogger) Info(string, ...Fields)  {}
func (nopLogger) Debug(string, ...Fields) {}

type safeLogger struct {
	next Logger
}

// Safe wraps l so that a panicking backend (broken writer, hook failure)
// never propagates into the caller. A nil l yields Nop.
func Safe(l Logger) Logger {
	if l == nil {
		return Nop()
	}
	if s, ok := l.(*safeLogger); ok {
		return s
	}
	return &safeLogger{next: l}
}

func (s *safeLogger) Error(msg string, fields ...Fields) {
	defer swallow()
	s.next.Error(msg, fields...)
}

func (s *safeLogger) Warn(msg string, fields ...Fields) {
	defer swallow()
	s.next.Warn(msg, fields...)
}

func (s *safeLogger) Info(msg string, fields ...Fields) {
	defer swallow()
	s.next.Info(msg, fields...)
}

func (s *safeLogger) Debug(msg string, fields ...Fields) {
	defer swallow()
	s.next.Debug(msg, fields...)
}

func swallow() { _ = recover() }
