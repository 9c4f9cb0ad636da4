package otel

import (
	"context"
	"testing"
	"time"

	"github.com/corvid-db/corvid/telemetry"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestCollectorImplementsInterface(t *testing.T) {
	var _ telemetry.MetricsCollector = (*Collector)(nil)
}

func newTestCollector(t *testing.T) (*Collector, *metric.ManualReader) {
	t.Helper()
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	t.Cleanup(func() { provider.Shutdown(context.Background()) })

	c, err := NewCollector(provider)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	return c, reader
}

func TestNewCollectorNilProvider(t *testing.T) {
	c, err := NewCollector(nil)
	if err == nil || c != nil {
		t.Fatal("NewCollector(nil) should return an error and a nil collector")
	}
}

func TestRecordHitMiss(t *testing.T) {
	c, reader := newTestCollector(t)
	c.RecordHit()
	c.RecordHit()
	c.RecordMiss()

	rm := collect(t, reader)
	if sumOf(rm, "corvid_hits_total") != 2 {
		t.Error("expected 2 hits")
	}
	if sumOf(rm, "corvid_misses_total") != 1 {
		t.Error("expected 1 miss")
	}
}

func TestRecordSetDelete(t *testing.T) {
	c, reader := newTestCollector(t)
	c.RecordSet()
	c.RecordSet()
	c.RecordSet()
	c.RecordDelete()

	rm := collect(t, reader)
	if sumOf(rm, "corvid_sets_total") != 3 {
		t.Error("expected 3 sets")
	}
	if sumOf(rm, "corvid_deletes_total") != 1 {
		t.Error("expected 1 delete")
	}
}

func TestRecordEvictionSumsAcrossPolicies(t *testing.T) {
	c, reader := newTestCollector(t)
	c.RecordEviction("allkeys-lru")
	c.RecordEviction("allkeys-lru")
	c.RecordEviction("volatile-ttl")

	rm := collect(t, reader)
	if sumOf(rm, "corvid_evictions_total") != 3 {
		t.Error("expected 3 evictions total across policies")
	}
}

func TestRecordRehashStep(t *testing.T) {
	c, reader := newTestCollector(t)
	c.RecordRehashStep(100)
	c.RecordRehashStep(50)

	rm := collect(t, reader)
	if sumOf(rm, "corvid_rehash_steps_total") != 150 {
		t.Error("expected rehash steps to sum to 150")
	}
}

func TestRecordJobLatencyAndEvictionLoop(t *testing.T) {
	c, reader := newTestCollector(t)
	c.RecordJobLatency("lazy_free", 5*time.Millisecond)
	c.RecordEvictionLoop(2 * time.Millisecond)

	rm := collect(t, reader)
	if countOf(rm, "corvid_job_latency_ns") != 1 {
		t.Error("expected one job latency observation")
	}
	if countOf(rm, "corvid_eviction_loop_latency_ns") != 1 {
		t.Error("expected one eviction loop latency observation")
	}
}

func TestCollectorConcurrentUse(t *testing.T) {
	c, _ := newTestCollector(t)
	const goroutines = 10
	done := make(chan struct{}, goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				c.RecordHit()
				c.RecordSet()
				c.RecordEviction("allkeys-lru")
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < goroutines; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for concurrent recorders")
		}
	}
}

func TestWithMeterName(t *testing.T) {
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	c, err := NewCollector(provider, WithMeterName("custom_corvid"))
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	c.RecordHit()

	rm := collect(t, reader)
	if len(rm.ScopeMetrics) == 0 || rm.ScopeMetrics[0].Scope.Name != "custom_corvid" {
		t.Fatalf("expected scope name 'custom_corvid', got %+v", rm.ScopeMetrics)
	}
}

func collect(t *testing.T, reader *metric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func sumOf(rm metricdata.ResourceMetrics, name string) int64 {
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func countOf(rm metricdata.ResourceMetrics, name string) uint64 {
	var total uint64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if hist, ok := m.Data.(metricdata.Histogram[int64]); ok {
				for _, dp := range hist.DataPoints {
					total += dp.Count
				}
			}
		}
	}
	return total
}
