// Package corvid wires together a chained, incrementally-rehashed hash
// table, a single-threaded reactor, a background worker pool, and a
// sampling-based eviction engine into the in-memory data-engine core of a
// Redis-like key-value server.
//
// # Overview
//
// Corvid is the subsystem responsible for:
//   - dispatching I/O and timed work on a single-threaded reactor
//   - off-loading blocking work (fsync, close, large-value free) to a
//     small background worker pool
//   - keeping the dataset inside a configured memory budget via an
//     approximate LRU/LFU/TTL eviction policy
//
// Command parsing, the wire protocol, persistence (AOF/RDB), replication,
// and cluster gossip are not part of this package; they are external
// collaborators that drive an *Engine through its programmatic API.
//
// # Quick start
//
//	engine, err := corvid.New(corvid.Config{
//	    MaxMemory:       64 << 20,
//	    MaxMemoryPolicy: eviction.AllKeysLRU,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Close()
//
//	db := engine.Database(0)
//	db.Set([]byte("key"), corvid.StringValue([]byte("value")))
//	if v, ok := db.Get([]byte("key")); ok {
//	    fmt.Println(string(v.Bytes))
//	}
//
//	go engine.Run()
//
// # Value model
//
// Every entry's value is a Value: a tagged variant over a byte string, a
// signed integer, or a BoxedObject capability (size-estimate + release),
// the stand-in for richer encodings (lists, sets, sorted sets, streams)
// that are out of scope for this engine.
//
// # Concurrency model
//
// The reactor, hash table, and eviction engine all run on the single
// goroutine that calls Run (or repeatedly calls ProcessEvents): there is
// no internal locking, because only that goroutine touches their state.
// The background worker pool runs on its own goroutines, one per job
// class, and is the only cross-goroutine boundary; values handed to
// LazyFree must not be touched by the core goroutine again.
//
// # Observability
//
// Corvid carries a NoOp-by-default telemetry stack: a Logger, a
// TimeProvider (cached wall-clock reads via go-timecache), and a
// MetricsCollector, all injected through Config. The separate corvid/otel
// module supplies an OpenTelemetry-backed MetricsCollector for consumers
// who want it, without pulling the OTEL SDK into the core module's
// dependency graph.
//
// # Configuration and hot reload
//
// Config.Validate normalizes out-of-range fields to documented defaults
// rather than erroring. HotConfig, built on github.com/agilira/argus,
// watches a config file and applies the safely-reloadable subset (memory
// ceiling, policy, sample count, LFU parameters, lazy free on eviction) to
// a running Engine without reconstructing it.
//
// # Error handling
//
// Boundary-crossing failures are structured errors from
// github.com/agilira/go-errors, carrying an ErrorCode and context fields;
// see errors.go for the full taxonomy (ErrCodeKeyNotFound,
// ErrCodeMemoryPressure, ErrCodeFdOutOfRange, and so on) and the
// IsNotFound/IsMemoryPressure/IsRetryable helpers.
//
// Copyright (c) 2025 Corvid Authors
// SPDX-License-Identifier: MPL-2.0
package corvid
