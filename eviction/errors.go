package eviction

import "github.com/agilira/go-errors"

// ErrCodeMemoryPressure marks EnsureHeadroom's non-fatal failure to reach
// the configured budget.
const ErrCodeMemoryPressure errors.ErrorCode = "CORVID_EVICTION_MEMORY_PRESSURE"

// NewErrMemoryPressure reports that EnsureHeadroom could not free enough
// memory to satisfy the configured ceiling. Non-fatal: callers should
// refuse memory-increasing writes, not crash.
func NewErrMemoryPressure(memUsed, maxMemory uint64) error {
	return errors.NewWithContext(ErrCodeMemoryPressure, "memory pressure: unable to reach configured ceiling", map[string]interface{}{
		"mem_used":   memUsed,
		"max_memory": maxMemory,
	})
}

// IsMemoryPressure reports whether err is a MemoryPressure condition.
func IsMemoryPressure(err error) bool { return errors.HasCode(err, ErrCodeMemoryPressure) }
