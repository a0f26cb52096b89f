package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records call metrics.
type Metrics interface {
	RecordCall(ctx context.Context, op Operation, duration time.Duration, err error)
}

type metricsImpl struct {
	calls    metric.Int64Counter
	errors   metric.Int64Counter
	duration metric.Float64Histogram
}

// NewMetrics creates the api.calls, api.errors and api.duration_ms
// instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	calls, err := meter.Int64Counter(
		"api.calls",
		metric.WithDescription("Total number of remote API calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errs, err := meter.Int64Counter(
		"api.errors",
		metric.WithDescription("Total number of failed remote API calls"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"api.duration_ms",
		metric.WithDescription("Remote API call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{calls: calls, errors: errs, duration: duration}, nil
}

func (m *metricsImpl) RecordCall(ctx context.Context, op Operation, duration time.Duration, err error) {
	opt := metric.WithAttributes(attribute.String("operation.name", op.Name))

	m.calls.Add(ctx, 1, opt)
	if err != nil {
		m.errors.Add(ctx, 1, opt)
	}
	m.duration.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

type noopMetrics struct{}

func (noopMetrics) RecordCall(context.Context, Operation, time.Duration, error) {}

// CacheMetrics counts memoization cache lookups and stores. Its methods
// match memo.Hooks so it can be passed to memo.WithHooks directly.
type CacheMetrics struct {
	hits   metric.Int64Counter
	misses metric.Int64Counter
	stores metric.Int64Counter
	bytes  metric.Int64Counter
}

// NewCacheMetrics creates the memo.* instruments on meter.
func NewCacheMetrics(meter metric.Meter) (*CacheMetrics, error) {
	hits, err := meter.Int64Counter("memo.hits",
		metric.WithDescription("Cache lookups answered from the store"),
		metric.WithUnit("{lookup}"))
	if err != nil {
		return nil, err
	}
	misses, err := meter.Int64Counter("memo.misses",
		metric.WithDescription("Cache lookups that invoked the wrapped function"),
		metric.WithUnit("{lookup}"))
	if err != nil {
		return nil, err
	}
	stores, err := meter.Int64Counter("memo.stores",
		metric.WithDescription("Results written to the store"),
		metric.WithUnit("{entry}"))
	if err != nil {
		return nil, err
	}
	bytes, err := meter.Int64Counter("memo.stored_bytes",
		metric.WithDescription("Encoded bytes written to the store"),
		metric.WithUnit("By"))
	if err != nil {
		return nil, err
	}
	return &CacheMetrics{hits: hits, misses: misses, stores: stores, bytes: bytes}, nil
}

// Lookup records a hit or a miss for namespace.
func (c *CacheMetrics) Lookup(ctx context.Context, namespace string, hit bool) {
	opt := metric.WithAttributes(attribute.String("memo.namespace", namespace))
	if hit {
		c.hits.Add(ctx, 1, opt)
		return
	}
	c.misses.Add(ctx, 1, opt)
}

// Stored records a write of size encoded bytes for namespace.
func (c *CacheMetrics) Stored(ctx context.Context, namespace string, size int) {
	opt := metric.WithAttributes(attribute.String("memo.namespace", namespace))
	c.stores.Add(ctx, 1, opt)
	c.bytes.Add(ctx, int64(size), opt)
}
