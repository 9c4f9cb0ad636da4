package otel

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Collector implements telemetry.MetricsCollector using OpenTelemetry
// instruments. Every method is safe for concurrent use; the underlying
// OTEL instruments are lock-free.
type Collector struct {
	hits        metric.Int64Counter
	misses      metric.Int64Counter
	sets        metric.Int64Counter
	deletes     metric.Int64Counter
	evictions   metric.Int64Counter
	rehashSteps metric.Int64Counter
	jobLatency  metric.Int64Histogram
	evictLoop   metric.Int64Histogram
}

// Options configures a Collector.
type Options struct {
	// MeterName is the OpenTelemetry meter name. Default:
	// "github.com/corvid-db/corvid".
	MeterName string
}

// Option is a functional option for configuring a Collector.
type Option func(*Options)

// WithMeterName overrides the default meter name.
func WithMeterName(name string) Option {
	return func(o *Options) { o.MeterName = name }
}

// NewCollector creates a Collector backed by the given MeterProvider.
func NewCollector(provider metric.MeterProvider, opts ...Option) (*Collector, error) {
	if provider == nil {
		return nil, errors.New("meter provider cannot be nil")
	}

	options := Options{MeterName: "github.com/corvid-db/corvid"}
	for _, opt := range opts {
		opt(&options)
	}
	meter := provider.Meter(options.MeterName)

	c := &Collector{}
	var err error

	if c.hits, err = meter.Int64Counter("corvid_hits_total", metric.WithDescription("Total hash table lookup hits")); err != nil {
		return nil, err
	}
	if c.misses, err = meter.Int64Counter("corvid_misses_total", metric.WithDescription("Total hash table lookup misses")); err != nil {
		return nil, err
	}
	if c.sets, err = meter.Int64Counter("corvid_sets_total", metric.WithDescription("Total inserts and replaces")); err != nil {
		return nil, err
	}
	if c.deletes, err = meter.Int64Counter("corvid_deletes_total", metric.WithDescription("Total deletes")); err != nil {
		return nil, err
	}
	if c.evictions, err = meter.Int64Counter("corvid_evictions_total", metric.WithDescription("Total keys evicted, labeled by policy")); err != nil {
		return nil, err
	}
	if c.rehashSteps, err = meter.Int64Counter("corvid_rehash_steps_total", metric.WithDescription("Total entries migrated by incremental rehashing")); err != nil {
		return nil, err
	}
	if c.jobLatency, err = meter.Int64Histogram("corvid_job_latency_ns", metric.WithDescription("Background worker job latency"), metric.WithUnit("ns")); err != nil {
		return nil, err
	}
	if c.evictLoop, err = meter.Int64Histogram("corvid_eviction_loop_latency_ns", metric.WithDescription("ensure-headroom pass latency"), metric.WithUnit("ns")); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Collector) RecordHit()    { c.hits.Add(context.Background(), 1) }
func (c *Collector) RecordMiss()   { c.misses.Add(context.Background(), 1) }
func (c *Collector) RecordSet()    { c.sets.Add(context.Background(), 1) }
func (c *Collector) RecordDelete() { c.deletes.Add(context.Background(), 1) }

func (c *Collector) RecordEviction(policy string) {
	c.evictions.Add(context.Background(), 1, metric.WithAttributes(attribute.String("policy", policy)))
}

func (c *Collector) RecordRehashStep(n int) {
	c.rehashSteps.Add(context.Background(), int64(n))
}

func (c *Collector) RecordJobLatency(class string, d time.Duration) {
	c.jobLatency.Record(context.Background(), d.Nanoseconds(), metric.WithAttributes(attribute.String("class", class)))
}

func (c *Collector) RecordEvictionLoop(d time.Duration) {
	c.evictLoop.Record(context.Background(), d.Nanoseconds())
}
