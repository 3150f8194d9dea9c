// Package telemetry defines the logging, metrics, and tracing seams used
// throughout the runtime. Components depend on these interfaces, never on a
// concrete backend, so tests can run with Noop implementations.
package telemetry

import "context"

type (
	// Logger emits structured, leveled log lines.
	Logger interface {
		Debug(ctx context.Context, msg string, keyvals ...any)
		Info(ctx context.Context, msg string, keyvals ...any)
		Warn(ctx context.Context, msg string, keyvals ...any)
		Error(ctx context.Context, msg string, keyvals ...any)
	}

	// Metrics records counters, timers, and gauges.
	Metrics interface {
		IncCounter(name string, tags map[string]string)
		RecordTimer(name string, ms float64, tags map[string]string)
		RecordGauge(name string, value float64, tags map[string]string)
	}

	// Tracer starts spans for a unit of work.
	Tracer interface {
		Start(ctx context.Context, name string) (context.Context, Span)
	}

	// Span is a single unit of traced work.
	Span interface {
		End()
		AddEvent(name string, keyvals ...any)
		SetError(err error)
	}
)
