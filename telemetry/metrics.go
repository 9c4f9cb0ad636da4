package telemetry

import "time"

// MetricsCollector is the metrics port shared by the hash table, reactor,
// background workers and eviction engine. Implementations must be safe for
// concurrent use from both the core goroutine and background worker
// goroutines.
type MetricsCollector interface {
	// RecordHit records a successful lookup.
	RecordHit()

	// RecordMiss records a failed lookup.
	RecordMiss()

	// RecordSet records an insert or replace.
	RecordSet()

	// RecordDelete records a delete.
	RecordDelete()

	// RecordEviction records one key evicted under the named policy.
	RecordEviction(policy string)

	// RecordRehashStep records one incremental rehash step moving n
	// entries from the old table to the new table.
	RecordRehashStep(n int)

	// RecordJobLatency records the time a background job of the given
	// class spent executing.
	RecordJobLatency(class string, d time.Duration)

	// RecordEvictionLoop records the wall-clock time spent in one
	// ensure-headroom pass.
	RecordEvictionLoop(d time.Duration)
}

// NoOpMetricsCollector discards every observation. It is the default so
// that metrics-free embedders pay nothing for the instrumentation points.
type NoOpMetricsCollector struct{}

func (NoOpMetricsCollector) RecordHit()                                 {}
func (NoOpMetricsCollector) RecordMiss()                                {}
func (NoOpMetricsCollector) RecordSet()                                 {}
func (NoOpMetricsCollector) RecordDelete()                              {}
func (NoOpMetricsCollector) RecordEviction(policy string)               {}
func (NoOpMetricsCollector) RecordRehashStep(n int)                     {}
func (NoOpMetricsCollector) RecordJobLatency(class string, d time.Duration) {}
func (NoOpMetricsCollector) RecordEvictionLoop(d time.Duration)         {}
