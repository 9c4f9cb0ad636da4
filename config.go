// config.go: engine-wide configuration
//
// Copyright (c) 2025 Corvid Authors
// SPDX-License-Identifier: MPL-2.0
package corvid

import (
	"github.com/corvid-db/corvid/eviction"
	"github.com/corvid-db/corvid/telemetry"
)

// Config holds the recognized configuration surface for an Engine: the
// reactor, rehash and eviction knobs a collaborator (command dispatcher,
// config-file loader) is expected to set before calling New, plus the
// ambient logging/time/metrics ports every subsystem is constructed with.
type Config struct {
	// ReactorSetSize is the number of file-descriptor slots the reactor
	// preallocates. Must be > 0. Default: DefaultReactorSetSize.
	ReactorSetSize int

	// RehashEnabled toggles whether the hash table may grow or shrink by
	// allocating a second internal table. Disabling it does not pause an
	// already in-flight rehash; it only declines to start new ones,
	// except where the load factor forces growth regardless (see
	// hashtable.HashTable's canResize semantics).
	RehashEnabled bool

	// Databases is the number of logical keyspaces the engine creates.
	// Must be > 0. Default: DefaultDatabaseCount.
	Databases int

	// MaxMemory is the memory ceiling in bytes the eviction engine
	// enforces. 0 means unlimited.
	MaxMemory uint64

	// MaxMemoryPolicy selects which keys are eligible for eviction and how
	// their score is computed.
	MaxMemoryPolicy eviction.Policy

	// MaxMemorySamples is how many keys the eviction engine samples per
	// database per candidate pool population. Must be in 1..64. Default:
	// DefaultMaxMemorySamples.
	MaxMemorySamples int

	// LFULogFactor tunes the logarithmic counter's increment probability.
	// Must be >= 0. Default: DefaultLFULogFactor.
	LFULogFactor float64

	// LFUDecayMinutes is how many minutes of idle time decrement an LFU
	// counter by one; 0 disables decay. Must be >= 0. Default:
	// DefaultLFUDecayMinutes.
	LFUDecayMinutes int

	// LazyFreeOnEviction routes evicted values' release through the
	// background worker pool instead of freeing them synchronously.
	LazyFreeOnEviction bool

	// SlaveIgnoreMaxMemory, when true, signals that this engine is a
	// replica and should not evict on its own: it waits for the
	// corresponding delete to arrive from its master. The engine itself
	// does not implement replication; this flag is surfaced for a
	// replication collaborator to consult before calling EnsureHeadroom.
	SlaveIgnoreMaxMemory bool

	// Logger is used for debugging and monitoring. Default: NoOpLogger.
	Logger telemetry.Logger

	// TimeProvider supplies cached wall-clock reads for timer deadlines
	// and the LRU clock. Default: telemetry.NewSystemTimeProvider().
	TimeProvider telemetry.TimeProvider

	// MetricsCollector collects hit/miss/eviction/rehash/job-latency
	// signals. Default: NoOpMetricsCollector (zero overhead).
	MetricsCollector telemetry.MetricsCollector

	// OnEvict, if set, is called synchronously on the core goroutine
	// whenever the eviction engine deletes a key, so a replication or
	// append-log collaborator can propagate the delete. It must not
	// block or call back into the Engine.
	OnEvict func(dbID int, key []byte)

	// OnExpire, if set, is called synchronously on the core goroutine
	// whenever a lazily-checked TTL causes a key to be deleted.
	OnExpire func(dbID int, key []byte)
}

// Recognized defaults for Config fields, applied by Validate.
const (
	DefaultMaxMemorySamples = 5
	DefaultLFULogFactor     = 10.0
	DefaultLFUDecayMinutes  = 1
)

// Validate normalizes out-of-range fields to documented defaults. It never
// returns a non-nil error; like the teacher's own Config.Validate, this is
// normalization, not rejection -- callers that want strict validation
// should check fields themselves before calling New.
//
// Default values applied:
//   - ReactorSetSize: DefaultReactorSetSize if <= 0
//   - Databases: DefaultDatabaseCount if <= 0
//   - MaxMemorySamples: DefaultMaxMemorySamples if outside 1..64
//   - LFULogFactor: DefaultLFULogFactor if < 0
//   - LFUDecayMinutes: DefaultLFUDecayMinutes if < 0
//   - Logger/TimeProvider/MetricsCollector: NoOp/system defaults if nil
func (c *Config) Validate() error {
	if c.ReactorSetSize <= 0 {
		c.ReactorSetSize = DefaultReactorSetSize
	}

	if c.Databases <= 0 {
		c.Databases = DefaultDatabaseCount
	}

	if c.MaxMemorySamples < 1 || c.MaxMemorySamples > 64 {
		c.MaxMemorySamples = DefaultMaxMemorySamples
	}

	if c.LFULogFactor < 0 {
		c.LFULogFactor = DefaultLFULogFactor
	}

	if c.LFUDecayMinutes < 0 {
		c.LFUDecayMinutes = DefaultLFUDecayMinutes
	}

	if c.Logger == nil {
		c.Logger = telemetry.NoOpLogger{}
	}

	if c.TimeProvider == nil {
		c.TimeProvider = telemetry.NewSystemTimeProvider()
	}

	if c.MetricsCollector == nil {
		c.MetricsCollector = telemetry.NoOpMetricsCollector{}
	}

	return nil
}

// DefaultConfig returns a configuration with sensible defaults: no memory
// ceiling, NoEviction policy, rehashing enabled, and the ambient NoOp
// ports.
func DefaultConfig() Config {
	return Config{
		ReactorSetSize:   DefaultReactorSetSize,
		RehashEnabled:    true,
		Databases:        DefaultDatabaseCount,
		MaxMemoryPolicy:  eviction.NoEviction,
		MaxMemorySamples: DefaultMaxMemorySamples,
		LFULogFactor:     DefaultLFULogFactor,
		LFUDecayMinutes:  DefaultLFUDecayMinutes,
		Logger:           telemetry.NoOpLogger{},
		TimeProvider:     telemetry.NewSystemTimeProvider(),
		MetricsCollector: telemetry.NoOpMetricsCollector{},
	}
}

// evictionConfig projects the subset of Config the eviction engine needs.
func (c Config) evictionConfig() eviction.Config {
	return eviction.Config{
		MaxMemory:          c.MaxMemory,
		Policy:             c.MaxMemoryPolicy,
		SampleCount:        c.MaxMemorySamples,
		LFULogFactor:       c.LFULogFactor,
		LFUDecayMinutes:    c.LFUDecayMinutes,
		LazyFreeOnEviction: c.LazyFreeOnEviction,
	}
}
