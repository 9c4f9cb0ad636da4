// accountant.go: the engine's memory accountant -- there is no C
// allocator to query for resident bytes, so the engine keeps a running
// total of each Value's estimated size instead.
//
// Copyright (c) 2025 Corvid Authors
// SPDX-License-Identifier: MPL-2.0
package corvid

import "sync/atomic"

// memoryAccountant implements eviction.MemoryAccountant by tracking the
// sum of Value.EstimateSize() across every live key, updated as Database
// inserts, replaces, and removes entries.
type memoryAccountant struct {
	bytes int64
}

func newMemoryAccountant() *memoryAccountant { return &memoryAccountant{} }

// AllocatorReportedBytes returns the running total of estimated value
// sizes. It never goes negative: add/remove are always balanced by
// Database's own bookkeeping.
func (a *memoryAccountant) AllocatorReportedBytes() uint64 {
	return uint64(atomic.LoadInt64(&a.bytes))
}

// ExcludedBytes is always zero: this engine has no append-log buffer or
// replica output buffer of its own to exclude from the budget.
func (a *memoryAccountant) ExcludedBytes() uint64 { return 0 }

func (a *memoryAccountant) add(n uintptr)    { atomic.AddInt64(&a.bytes, int64(n)) }
func (a *memoryAccountant) remove(n uintptr) { atomic.AddInt64(&a.bytes, -int64(n)) }
