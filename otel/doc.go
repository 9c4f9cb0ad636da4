// Package otel provides OpenTelemetry integration for corvid engine metrics.
//
// # Overview
//
// This package implements telemetry.MetricsCollector using OpenTelemetry,
// so the engine's hit/miss/eviction/rehash/job-latency signals can be
// exported to Prometheus, Jaeger, DataDog, or any other OTEL-compatible
// backend without the core module depending on the OTEL SDK.
//
// # Quick start
//
//	exporter, _ := prometheus.New()
//	provider := metric.NewMeterProvider(metric.WithReader(exporter))
//	defer provider.Shutdown(context.Background())
//
//	collector, err := otel.NewCollector(provider)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	eng, err := corvid.New(corvid.Config{MetricsCollector: collector})
//
// # Architecture
//
// The core module defines telemetry.MetricsCollector and defaults to
// telemetry.NoOpMetricsCollector; this package is the only place the
// OpenTelemetry SDK is imported, so embedders who don't need metrics never
// pull it in transitively.
package otel
