// interfaces.go: the value model and database-facing capability set for
// the corvid engine.
//
// Copyright (c) 2025 Corvid Authors
// SPDX-License-Identifier: MPL-2.0
package corvid

import "sync/atomic"

// Kind discriminates the populated field of a Value.
type Kind int

const (
	// KindBytes holds an owned byte-string view.
	KindBytes Kind = iota
	// KindInt holds a signed 64-bit integer.
	KindInt
	// KindBoxed holds an opaque object behind the BoxedObject capability
	// set -- the stand-in for list/set/sorted-set/stream encodings, which
	// are out of scope for this engine (see BoxedObject).
	KindBoxed
)

func (k Kind) String() string {
	switch k {
	case KindBytes:
		return "bytes"
	case KindInt:
		return "int"
	case KindBoxed:
		return "boxed"
	default:
		return "unknown"
	}
}

// BoxedObject is the capability set a boxed value must satisfy: the engine
// never inspects a boxed object's internal shape, only its size for memory
// accounting and its release behavior for LazyFree. A skiplist-backed
// sorted set is the canonical example of a value that would implement this
// in a complete server; this engine core only needs the capability set,
// not the encoding.
type BoxedObject interface {
	// EstimateSize reports the object's approximate retained size in
	// bytes, fed into the memory accountant.
	EstimateSize() uintptr
	// Release frees the object's resources. Called at most once, either
	// synchronously on the core goroutine or from a LazyFree worker.
	Release()
}

// Value is the tagged variant every hash-table entry stores: exactly one
// of Bytes, Int, or Boxed is meaningful, selected by Kind. Replaces the ad
// hoc virtual dispatch of a C-style tagged object with a plain Go struct.
type Value struct {
	Kind  Kind
	Bytes []byte
	Int   int64
	Boxed BoxedObject
}

// StringValue builds a Value holding an owned byte-string view. The slice
// is not copied; callers that need isolation should copy before calling.
func StringValue(b []byte) Value { return Value{Kind: KindBytes, Bytes: b} }

// IntValue builds a Value holding a signed 64-bit integer.
func IntValue(n int64) Value { return Value{Kind: KindInt, Int: n} }

// BoxedValue builds a Value wrapping a BoxedObject.
func BoxedValue(obj BoxedObject) Value { return Value{Kind: KindBoxed, Boxed: obj} }

// EstimateSize reports v's approximate retained size in bytes: len(Bytes)
// for KindBytes, a fixed word size for KindInt, and the boxed object's own
// estimate for KindBoxed.
func (v Value) EstimateSize() uintptr {
	switch v.Kind {
	case KindBytes:
		return uintptr(len(v.Bytes))
	case KindInt:
		return 8
	case KindBoxed:
		if v.Boxed == nil {
			return 0
		}
		return v.Boxed.EstimateSize()
	default:
		return 0
	}
}

// Release satisfies workers.Freeable so a Value can be handed directly to
// the background worker pool's LazyFree job as arg1. Only KindBoxed values
// carry anything to release; Bytes and Int are left to the garbage
// collector once unreachable.
func (v Value) Release() {
	if v.Kind == KindBoxed && v.Boxed != nil {
		v.Boxed.Release()
	}
}

// RefCounted wraps a BoxedObject with an atomic reference count, for boxed
// values shared by more than one entry. Release decrements the count and
// only forwards to the wrapped object's Release at zero; it is safe to
// call from any goroutine, including a LazyFree worker racing the core
// goroutine's own drop of its last reference.
type RefCounted struct {
	obj BoxedObject
	n   int32
}

// NewRefCounted wraps obj with an initial reference count of 1.
func NewRefCounted(obj BoxedObject) *RefCounted {
	return &RefCounted{obj: obj, n: 1}
}

// Retain increments the reference count and returns the receiver, so
// callers can write `v := Value{Boxed: shared.Retain()}`.
func (r *RefCounted) Retain() *RefCounted {
	atomic.AddInt32(&r.n, 1)
	return r
}

// EstimateSize delegates to the wrapped object.
func (r *RefCounted) EstimateSize() uintptr { return r.obj.EstimateSize() }

// Release decrements the reference count, forwarding to the wrapped
// object's Release only when the count reaches zero.
func (r *RefCounted) Release() {
	if atomic.AddInt32(&r.n, -1) == 0 {
		r.obj.Release()
	}
}

// Stats summarizes a Database's activity, mirroring the counters the hash
// table and eviction engine already track through MetricsCollector --
// exposed here as a point-in-time snapshot for collaborators that want a
// cheap read without standing up a full metrics backend.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Sets      uint64
	Deletes   uint64
	Evictions uint64
	Keys      int
	Expires   int
}

// HitRatio returns Hits / (Hits + Misses) as a percentage in [0, 100], or
// 0 if there have been no lookups yet.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}
