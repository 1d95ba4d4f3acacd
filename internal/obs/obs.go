// Package obs defines the observability seams shared by the pipelines and
// the CLI: structured logging, clock injection, stage metrics and tracing.
// Implementations here are process-local; callers pick richer exporters
// (expvar, Prometheus) or the no-op defaults.
package obs

import (
	"context"
	"time"
)

// Logger is the minimal leveled key-value logger the pipelines emit through.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

// Clock supplies the current time so runs can be replayed deterministically.
type Clock interface {
	Now() time.Time
}

// MetricsRecorder aggregates stage outcomes. Observe records an operation's
// duration and result; ObserveAttrition records how a filter stage shrank
// the working set.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
	ObserveAttrition(ctx context.Context, stage string, rowsIn, rowsOut int)
}

// Tracer opens a span per pipeline stage.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan terminates a span, recording the stage error if any.
type TraceSpan interface {
	End(err error)
}

// NopLogger returns a logger that discards everything.
func NopLogger() Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// NopMetrics returns a recorder that discards everything.
func NopMetrics() MetricsRecorder { return nopMetrics{} }

type nopMetrics struct{}

func (nopMetrics) Observe(context.Context, string, bool, time.Duration) {}
func (nopMetrics) ObserveAttrition(context.Context, string, int, int)   {}

// NopTracer returns a tracer whose spans do nothing.
func NopTracer() Tracer { return nopTracer{} }

type (
	nopTracer struct{}
	nopSpan   struct{}
)

func (nopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, nopSpan{}
}

func (nopSpan) End(error) {}

// SystemClock returns a Clock backed by time.Now in UTC.
func SystemClock() Clock { return systemClock{} }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
