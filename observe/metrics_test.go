package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMeter() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumFor returns the counter value for the data point carrying attr.
func sumFor(t *testing.T, rm metricdata.ResourceMetrics, name string, attr attribute.KeyValue) int64 {
	t.Helper()
	m := findMetric(rm, name)
	if m == nil {
		return 0
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s: expected Sum[int64], got %T", name, m.Data)
	}
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attr.Key); ok && v == attr.Value {
			return dp.Value
		}
	}
	return 0
}

func TestMetrics_RecordCall(t *testing.T) {
	reader, mp := newTestMeter()
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	op := Operation{Name: "openreview.get_notes"}
	ctx := context.Background()
	m.RecordCall(ctx, op, 20*time.Millisecond, nil)
	m.RecordCall(ctx, op, 30*time.Millisecond, errors.New("503"))

	rm := collect(t, reader)
	attr := attribute.String("operation.name", "openreview.get_notes")
	if got := sumFor(t, rm, "api.calls", attr); got != 2 {
		t.Errorf("api.calls = %d, want 2", got)
	}
	if got := sumFor(t, rm, "api.errors", attr); got != 1 {
		t.Errorf("api.errors = %d, want 1", got)
	}

	hist := findMetric(rm, "api.duration_ms")
	if hist == nil {
		t.Fatal("api.duration_ms not found")
	}
	h, ok := hist.Data.(metricdata.Histogram[float64])
	if !ok || len(h.DataPoints) != 1 {
		t.Fatalf("unexpected histogram data: %#v", hist.Data)
	}
	if h.DataPoints[0].Count != 2 || h.DataPoints[0].Sum != 50 {
		t.Errorf("count=%d sum=%v, want 2 and 50", h.DataPoints[0].Count, h.DataPoints[0].Sum)
	}
}

func TestCacheMetrics(t *testing.T) {
	reader, mp := newTestMeter()
	c, err := NewCacheMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewCacheMetrics: %v", err)
	}

	ctx := context.Background()
	c.Lookup(ctx, "openreview.get_notes", false)
	c.Stored(ctx, "openreview.get_notes", 120)
	c.Lookup(ctx, "openreview.get_notes", true)
	c.Lookup(ctx, "openreview.get_notes", true)
	c.Lookup(ctx, "other", false)

	rm := collect(t, reader)
	ns := attribute.String("memo.namespace", "openreview.get_notes")
	tests := []struct {
		name string
		want int64
	}{
		{"memo.hits", 2},
		{"memo.misses", 1},
		{"memo.stores", 1},
		{"memo.stored_bytes", 120},
	}
	for _, tt := range tests {
		if got := sumFor(t, rm, tt.name, ns); got != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, got, tt.want)
		}
	}
	if got := sumFor(t, rm, "memo.misses", attribute.String("memo.namespace", "other")); got != 1 {
		t.Errorf("memo.misses{other} = %d, want 1", got)
	}
}
