// Package telemetry defines the small, dependency-light ports that every
// corvid subsystem is constructed with: structured logging, a cached time
// source, and a metrics sink. Each subsystem takes these as interfaces so
// the core never imports an observability backend directly; the otel
// subpackage is one concrete MetricsCollector implementation among many a
// collaborator could supply.
//
// Copyright (c) 2025 Corvid Authors
// SPDX-License-Identifier: MPL-2.0
package telemetry

import "github.com/agilira/go-timecache"

// Logger defines a minimal logging interface with zero overhead.
// Implementations should use structured logging and be allocation-free.
type Logger interface {
	// Debug logs a debug message with optional key-value pairs.
	Debug(msg string, keyvals ...interface{})

	// Info logs an info message with optional key-value pairs.
	Info(msg string, keyvals ...interface{})

	// Warn logs a warning message with optional key-value pairs.
	Warn(msg string, keyvals ...interface{})

	// Error logs an error message with optional key-value pairs.
	Error(msg string, keyvals ...interface{})
}

// NoOpLogger discards everything. Used as the default so subsystems never
// have to nil-check their logger.
type NoOpLogger struct{}

func (NoOpLogger) Debug(msg string, keyvals ...interface{}) {}
func (NoOpLogger) Info(msg string, keyvals ...interface{})  {}
func (NoOpLogger) Warn(msg string, keyvals ...interface{})  {}
func (NoOpLogger) Error(msg string, keyvals ...interface{}) {}

// TimeProvider provides current time with caching for performance. The
// reactor's timer deadlines and the eviction engine's LRU clock both read
// through this on the hot path, so implementations must be fast and
// allocation-free.
type TimeProvider interface {
	// Now returns the current time in nanoseconds since the epoch.
	Now() int64
}

// systemTimeProvider is the default TimeProvider, backed by go-timecache's
// background-refreshed clock instead of a syscall per call.
type systemTimeProvider struct{}

func (systemTimeProvider) Now() int64 { return timecache.CachedTimeNano() }

// NewSystemTimeProvider returns the default, go-timecache-backed TimeProvider.
func NewSystemTimeProvider() TimeProvider { return systemTimeProvider{} }
