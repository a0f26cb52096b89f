package observe

import (
	"context"
	"time"
)

// Middleware wraps operations with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: the span context is passed to the wrapped function.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware. Nil components are replaced by no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = newNoopTracer()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Observe runs fn inside a span for op, records its duration and outcome,
// and logs a debug line on success or a warning on failure.
func (m *Middleware) Observe(ctx context.Context, op Operation, fn func(context.Context) error) error {
	ctx, span := m.tracer.StartSpan(ctx, op)
	start := time.Now()

	err := fn(ctx)

	duration := time.Since(start)
	m.tracer.EndSpan(span, err)
	m.metrics.RecordCall(ctx, op, duration, err)

	fields := make([]Field, 0, len(op.Attrs)+3)
	fields = append(fields, F("operation", op.Name), F("duration", duration))
	for _, a := range op.Attrs {
		fields = append(fields, F(string(a.Key), a.Value.Emit()))
	}
	if err != nil {
		fields = append(fields, F("error", err))
		m.logger.Warn(ctx, "call failed", fields...)
	} else {
		m.logger.Debug(ctx, "call completed", fields...)
	}
	return err
}

// Instrument returns fn wrapped by m. describe derives the Operation from
// each call's arguments.
func Instrument[A, R any](m *Middleware, describe func(A) Operation, fn func(context.Context, A) (R, error)) func(context.Context, A) (R, error) {
	return func(ctx context.Context, args A) (R, error) {
		var result R
		err := m.Observe(ctx, describe(args), func(ctx context.Context) error {
			var err error
			result, err = fn(ctx, args)
			return err
		})
		return result, err
	}
}
