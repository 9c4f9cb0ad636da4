// errors.go: structured error taxonomy for the corvid engine
//
// This file provides structured error types using the go-errors library,
// matching the error taxonomy in the engine's design: allocation/growth
// failures, duplicate/missing keys, reactor registration faults, memory
// pressure, and fatal job-handler shapes.
//
// Copyright (c) 2025 Corvid Authors
// SPDX-License-Identifier: MPL-2.0
package corvid

import (
	goerrors "errors"
	"fmt"

	"github.com/agilira/go-errors"
)

// Error codes for corvid engine operations.
const (
	// Configuration errors (1xxx)
	ErrCodeInvalidConfig errors.ErrorCode = "CORVID_INVALID_CONFIG"

	// Operation errors (2xxx)
	ErrCodeKeyNotFound    errors.ErrorCode = "CORVID_KEY_NOT_FOUND"
	ErrCodeDuplicateKey   errors.ErrorCode = "CORVID_DUPLICATE_KEY"
	ErrCodeEmptyKey       errors.ErrorCode = "CORVID_EMPTY_KEY"
	ErrCodeDatabaseOutOfRange errors.ErrorCode = "CORVID_DATABASE_OUT_OF_RANGE"

	// Reactor errors (3xxx)
	ErrCodeFdOutOfRange   errors.ErrorCode = "CORVID_FD_OUT_OF_RANGE"
	ErrCodeSetSizeTooLarge errors.ErrorCode = "CORVID_SET_SIZE_TOO_LARGE"
	ErrCodeBackendFault   errors.ErrorCode = "CORVID_BACKEND_FAULT"

	// Eviction errors (4xxx)
	ErrCodeMemoryPressure errors.ErrorCode = "CORVID_MEMORY_PRESSURE"

	// Background worker errors (5xxx)
	ErrCodeJobHandlerFatal errors.ErrorCode = "CORVID_JOB_HANDLER_FATAL"

	// Internal errors (9xxx)
	ErrCodeInternalError  errors.ErrorCode = "CORVID_INTERNAL_ERROR"
	ErrCodePanicRecovered errors.ErrorCode = "CORVID_PANIC_RECOVERED"
)

// Common error messages
const (
	msgInvalidConfig       = "invalid engine configuration"
	msgKeyNotFound         = "key not found"
	msgDuplicateKey        = "key already exists"
	msgEmptyKey            = "key cannot be empty"
	msgDatabaseOutOfRange  = "database index out of range"
	msgFdOutOfRange        = "file descriptor out of range for reactor set size"
	msgSetSizeTooLarge     = "requested set size exceeds backend capacity"
	msgBackendFault        = "reactor polling backend fault"
	msgMemoryPressure      = "memory usage exceeds configured ceiling"
	msgJobHandlerFatal     = "background job had an unrecognized argument shape"
	msgInternalError       = "internal engine error"
	msgPanicRecovered      = "panic recovered in engine operation"
)

// NewErrInvalidConfig creates an error for a configuration rejected
// outright (as opposed to normalized by Config.Validate).
func NewErrInvalidConfig(reason string) error {
	return errors.NewWithField(ErrCodeInvalidConfig, msgInvalidConfig, "reason", reason)
}

// NewErrKeyNotFound creates an error when a key-addressed operation finds
// nothing.
func NewErrKeyNotFound(key []byte) error {
	return errors.NewWithField(ErrCodeKeyNotFound, msgKeyNotFound, "key", string(key))
}

// NewErrDuplicateKey creates an error when Add is called with a key
// already present.
func NewErrDuplicateKey(key []byte) error {
	return errors.NewWithField(ErrCodeDuplicateKey, msgDuplicateKey, "key", string(key))
}

// NewErrEmptyKey creates an error when an operation is given an empty key.
func NewErrEmptyKey(operation string) error {
	return errors.NewWithField(ErrCodeEmptyKey, msgEmptyKey, "operation", operation)
}

// NewErrDatabaseOutOfRange creates an error when a database index is
// outside the configured range.
func NewErrDatabaseOutOfRange(index, count int) error {
	return errors.NewWithContext(ErrCodeDatabaseOutOfRange, msgDatabaseOutOfRange, map[string]interface{}{
		"index": index,
		"count": count,
	})
}

// NewErrFdOutOfRange creates an error when a reactor registration names a
// descriptor beyond the reactor's set size.
func NewErrFdOutOfRange(fd, setSize int) error {
	return errors.NewWithContext(ErrCodeFdOutOfRange, msgFdOutOfRange, map[string]interface{}{
		"fd":       fd,
		"set_size": setSize,
	})
}

// NewErrSetSizeTooLarge creates an error when a reactor resize exceeds
// what the polling backend can accommodate.
func NewErrSetSizeTooLarge(setSize int) error {
	return errors.NewWithField(ErrCodeSetSizeTooLarge, msgSetSizeTooLarge, "set_size", setSize)
}

// NewErrBackendFault creates an error for a non-retryable reactor backend
// failure.
func NewErrBackendFault(op string, cause error) error {
	return errors.Wrap(cause, ErrCodeBackendFault, msgBackendFault).
		WithContext("op", op).
		WithSeverity("critical")
}

// NewErrMemoryPressure creates an error when ensure_headroom cannot bring
// memory usage back under the configured ceiling.
func NewErrMemoryPressure(used, max uint64) error {
	return errors.NewWithContext(ErrCodeMemoryPressure, msgMemoryPressure, map[string]interface{}{
		"used_bytes": used,
		"max_bytes":  max,
	}).AsRetryable()
}

// NewErrJobHandlerFatal creates the error panicked when a LazyFree job
// carries an argument shape no handler recognizes.
func NewErrJobHandlerFatal(class string) error {
	return errors.NewWithField(ErrCodeJobHandlerFatal, msgJobHandlerFatal, "class", class).
		WithSeverity("critical")
}

// NewErrInternal creates a generic internal error, wrapping cause when
// present.
func NewErrInternal(operation string, cause error) error {
	if cause != nil {
		return errors.Wrap(cause, ErrCodeInternalError, msgInternalError).
			WithContext("operation", operation).
			WithSeverity("warning")
	}
	return errors.NewWithField(ErrCodeInternalError, msgInternalError, "operation", operation).
		WithSeverity("warning")
}

// NewErrPanicRecovered creates an error when a panic is recovered at an
// API boundary.
func NewErrPanicRecovered(operation string, panicValue interface{}) error {
	return errors.NewWithContext(ErrCodePanicRecovered, msgPanicRecovered, map[string]interface{}{
		"operation":   operation,
		"panic_value": fmt.Sprintf("%v", panicValue),
	}).WithSeverity("critical")
}

// IsNotFound reports whether err is a key-not-found error.
func IsNotFound(err error) bool { return errors.HasCode(err, ErrCodeKeyNotFound) }

// IsDuplicateKey reports whether err is a duplicate-key error.
func IsDuplicateKey(err error) bool { return errors.HasCode(err, ErrCodeDuplicateKey) }

// IsEmptyKey reports whether err is an empty-key error.
func IsEmptyKey(err error) bool { return errors.HasCode(err, ErrCodeEmptyKey) }

// IsMemoryPressure reports whether err is a memory-pressure error.
func IsMemoryPressure(err error) bool { return errors.HasCode(err, ErrCodeMemoryPressure) }

// IsRetryable reports whether err can be retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var retryable errors.Retryable
	if goerrors.As(err, &retryable) {
		return retryable.IsRetryable()
	}
	return false
}

// GetErrorCode extracts the error code from err, or "" if it has none.
func GetErrorCode(err error) errors.ErrorCode {
	if err == nil {
		return ""
	}
	var coder errors.ErrorCoder
	if goerrors.As(err, &coder) {
		return coder.ErrorCode()
	}
	return ""
}

// GetErrorContext extracts structured context from err, or nil if it has
// none.
func GetErrorContext(err error) map[string]interface{} {
	if err == nil {
		return nil
	}
	var corvidErr *errors.Error
	if goerrors.As(err, &corvidErr) {
		return corvidErr.Context
	}
	return nil
}
