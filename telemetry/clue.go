package telemetry

import (
	"context"

	"goa.design/clue/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ClueLogger logs through goa.design/clue/log, which renders structured
// key/value pairs against the context-bound logger.
type ClueLogger struct{}

// NewClueLogger returns a Logger backed by clue/log.
func NewClueLogger() Logger { return ClueLogger{} }

func (ClueLogger) Debug(ctx context.Context, msg string, keyvals ...any) {
	fielders := append([]log.Fielder{log.KV{K: "msg", V: msg}}, kvSliceToClue(keyvals)...)
	log.Debug(ctx, fielders...)
}

func (ClueLogger) Info(ctx context.Context, msg string, keyvals ...any) {
	fielders := append([]log.Fielder{log.KV{K: "msg", V: msg}}, kvSliceToClue(keyvals)...)
	log.Info(ctx, fielders...)
}

func (ClueLogger) Warn(ctx context.Context, msg string, keyvals ...any) {
	fielders := []log.Fielder{log.KV{K: "msg", V: msg}, log.KV{K: "severity", V: "warning"}}
	fielders = append(fielders, kvSliceToClue(keyvals)...)
	log.Warn(ctx, fielders...)
}

func (ClueLogger) Error(ctx context.Context, msg string, keyvals ...any) {
	fielders := append([]log.Fielder{log.KV{K: "msg", V: msg}}, kvSliceToClue(keyvals)...)
	log.Error(ctx, nil, fielders...)
}

// kvSliceToClue converts variadic key-value pairs into Clue's log.Fielder
// slice. A key with no paired value is logged with a nil value; non-string
// keys are dropped.
func kvSliceToClue(keyvals []any) []log.Fielder {
	var fielders []log.Fielder
	for i := 0; i < len(keyvals); i += 2 {
		k, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		var v any
		if i+1 < len(keyvals) {
			v = keyvals[i+1]
		}
		fielders = append(fielders, log.KV{K: k, V: v})
	}
	return fielders
}

// ClueMetrics records metrics through an OpenTelemetry meter.
type ClueMetrics struct {
	meter metric.Meter
}

// NewClueMetrics returns a Metrics backed by the given OTEL meter.
func NewClueMetrics(meter metric.Meter) Metrics { return &ClueMetrics{meter: meter} }

func (m *ClueMetrics) IncCounter(name string, tags map[string]string) {
	c, err := m.meter.Int64Counter(name)
	if err != nil {
		return
	}
	c.Add(context.Background(), 1, metric.WithAttributes(attrs(tags)...))
}

func (m *ClueMetrics) RecordTimer(name string, ms float64, tags map[string]string) {
	h, err := m.meter.Float64Histogram(name)
	if err != nil {
		return
	}
	h.Record(context.Background(), ms, metric.WithAttributes(attrs(tags)...))
}

func (m *ClueMetrics) RecordGauge(name string, value float64, tags map[string]string) {
	g, err := m.meter.Float64Gauge(name)
	if err != nil {
		return
	}
	g.Record(context.Background(), value, metric.WithAttributes(attrs(tags)...))
}

// ClueTracer starts spans through an OpenTelemetry tracer.
type ClueTracer struct {
	tracer trace.Tracer
}

// NewClueTracer returns a Tracer backed by the given OTEL tracer.
func NewClueTracer(tracer trace.Tracer) Tracer { return &ClueTracer{tracer: tracer} }

func (t *ClueTracer) Start(ctx context.Context, name string) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name)
	return ctx, &clueSpan{span: span}
}

type clueSpan struct{ span trace.Span }

func (s *clueSpan) End() { s.span.End() }

func (s *clueSpan) AddEvent(name string, keyvals ...any) {
	s.span.AddEvent(name)
}

func (s *clueSpan) SetError(err error) {
	if err != nil {
		s.span.RecordError(err)
	}
}
