// errors_test.go: tests and benchmarks for the corvid error taxonomy
//
// Copyright (c) 2025 Corvid Authors
// SPDX-License-Identifier: MPL-2.0
package corvid

import (
	"encoding/json"
	goerrors "errors"
	"testing"

	"github.com/agilira/go-errors"
)

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		name         string
		errFunc      func() error
		expectedCode errors.ErrorCode
		shouldRetry  bool
	}{
		{
			name:         "InvalidConfig",
			errFunc:      func() error { return NewErrInvalidConfig("bad reactor set size") },
			expectedCode: ErrCodeInvalidConfig,
			shouldRetry:  false,
		},
		{
			name:         "KeyNotFound",
			errFunc:      func() error { return NewErrKeyNotFound([]byte("missing")) },
			expectedCode: ErrCodeKeyNotFound,
			shouldRetry:  false,
		},
		{
			name:         "DuplicateKey",
			errFunc:      func() error { return NewErrDuplicateKey([]byte("dup")) },
			expectedCode: ErrCodeDuplicateKey,
			shouldRetry:  false,
		},
		{
			name:         "EmptyKey",
			errFunc:      func() error { return NewErrEmptyKey("Set") },
			expectedCode: ErrCodeEmptyKey,
			shouldRetry:  false,
		},
		{
			name:         "DatabaseOutOfRange",
			errFunc:      func() error { return NewErrDatabaseOutOfRange(16, 16) },
			expectedCode: ErrCodeDatabaseOutOfRange,
			shouldRetry:  false,
		},
		{
			name:         "FdOutOfRange",
			errFunc:      func() error { return NewErrFdOutOfRange(20000, 1024) },
			expectedCode: ErrCodeFdOutOfRange,
			shouldRetry:  false,
		},
		{
			name:         "SetSizeTooLarge",
			errFunc:      func() error { return NewErrSetSizeTooLarge(1 << 30) },
			expectedCode: ErrCodeSetSizeTooLarge,
			shouldRetry:  false,
		},
		{
			name:         "MemoryPressure",
			errFunc:      func() error { return NewErrMemoryPressure(2048, 1024) },
			expectedCode: ErrCodeMemoryPressure,
			shouldRetry:  true,
		},
		{
			name:         "JobHandlerFatal",
			errFunc:      func() error { return NewErrJobHandlerFatal("LazyFree") },
			expectedCode: ErrCodeJobHandlerFatal,
			shouldRetry:  false,
		},
		{
			name:         "PanicRecovered",
			errFunc:      func() error { return NewErrPanicRecovered("Set", "boom") },
			expectedCode: ErrCodePanicRecovered,
			shouldRetry:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.errFunc()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.HasCode(err, tt.expectedCode) {
				t.Errorf("expected code %s, got %s", tt.expectedCode, GetErrorCode(err))
			}
			if IsRetryable(err) != tt.shouldRetry {
				t.Errorf("expected retryable=%v, got %v", tt.shouldRetry, IsRetryable(err))
			}
			if err.Error() == "" {
				t.Error("error message should not be empty")
			}
		})
	}
}

func TestErrorWrapping(t *testing.T) {
	cause := goerrors.New("epoll_ctl failed")

	err := NewErrBackendFault("RegisterFile", cause)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	unwrapped := goerrors.Unwrap(err)
	if unwrapped == nil {
		t.Fatal("expected unwrapped error, got nil")
	}

	rootCause := errors.RootCause(err)
	if rootCause.Error() != cause.Error() {
		t.Errorf("expected root cause %q, got %q", cause.Error(), rootCause.Error())
	}
}

func TestErrorContext(t *testing.T) {
	err := NewErrMemoryPressure(2048, 1024)

	ctx := GetErrorContext(err)
	if ctx == nil {
		t.Fatal("expected context, got nil")
	}

	if used, ok := ctx["used_bytes"]; !ok || used != uint64(2048) {
		t.Errorf("expected used_bytes=2048 in context, got %v", used)
	}
	if max, ok := ctx["max_bytes"]; !ok || max != uint64(1024) {
		t.Errorf("expected max_bytes=1024 in context, got %v", max)
	}
}

func TestSpecificErrorCheckers(t *testing.T) {
	notFoundErr := NewErrKeyNotFound([]byte("missing"))
	if !IsNotFound(notFoundErr) {
		t.Error("IsNotFound should return true for KeyNotFound error")
	}

	dupErr := NewErrDuplicateKey([]byte("dup"))
	if !IsDuplicateKey(dupErr) {
		t.Error("IsDuplicateKey should return true for DuplicateKey error")
	}

	emptyErr := NewErrEmptyKey("Set")
	if !IsEmptyKey(emptyErr) {
		t.Error("IsEmptyKey should return true for EmptyKey error")
	}

	pressureErr := NewErrMemoryPressure(10, 5)
	if !IsMemoryPressure(pressureErr) {
		t.Error("IsMemoryPressure should return true for MemoryPressure error")
	}

	if IsNotFound(nil) || IsDuplicateKey(nil) || IsEmptyKey(nil) || IsMemoryPressure(nil) {
		t.Error("all Is* checkers should return false for nil")
	}
}

func TestErrorJSONSerialization(t *testing.T) {
	err := NewErrMemoryPressure(2048, 1024)

	var corvidErr *errors.Error
	if !goerrors.As(err, &corvidErr) {
		t.Fatal("expected *errors.Error type")
	}

	data, jsonErr := json.Marshal(corvidErr)
	if jsonErr != nil {
		t.Fatalf("JSON marshal failed: %v", jsonErr)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("JSON unmarshal failed: %v", err)
	}

	if decoded["code"] != string(ErrCodeMemoryPressure) {
		t.Errorf("expected code %q in JSON, got %v", ErrCodeMemoryPressure, decoded["code"])
	}
	if decoded["message"] == "" {
		t.Error("expected non-empty message in JSON")
	}

	ctx, ok := decoded["context"].(map[string]interface{})
	if !ok {
		t.Fatal("expected context in JSON")
	}
	if ctx["used_bytes"] != float64(2048) {
		t.Errorf("expected used_bytes=2048 in context, got %v", ctx["used_bytes"])
	}
}

func TestErrorSeverity(t *testing.T) {
	panicErr := NewErrPanicRecovered("Set", "boom")
	var corvidErr *errors.Error
	if goerrors.As(panicErr, &corvidErr) {
		if corvidErr.Severity != "critical" {
			t.Errorf("expected severity=critical, got %s", corvidErr.Severity)
		}
	}

	internalErr := NewErrInternal("Set", nil)
	if goerrors.As(internalErr, &corvidErr) {
		if corvidErr.Severity != "warning" {
			t.Errorf("expected severity=warning, got %s", corvidErr.Severity)
		}
	}

	faultErr := NewErrBackendFault("RegisterFile", goerrors.New("boom"))
	if goerrors.As(faultErr, &corvidErr) {
		if corvidErr.Severity != "critical" {
			t.Errorf("expected severity=critical, got %s", corvidErr.Severity)
		}
	}
}

func TestGetErrorCode(t *testing.T) {
	if GetErrorCode(nil) != "" {
		t.Error("expected empty string for nil error")
	}

	stdErr := goerrors.New("standard error")
	if GetErrorCode(stdErr) != "" {
		t.Error("expected empty string for standard error")
	}

	corvidErr := NewErrKeyNotFound([]byte("test"))
	if GetErrorCode(corvidErr) != ErrCodeKeyNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeKeyNotFound, GetErrorCode(corvidErr))
	}
}

func BenchmarkErrorCreation(b *testing.B) {
	b.Run("Simple", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = NewErrKeyNotFound([]byte("test-key"))
		}
	})

	b.Run("WithContext", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = NewErrMemoryPressure(2048, 1024)
		}
	})

	b.Run("Wrapped", func(b *testing.B) {
		cause := goerrors.New("underlying error")
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_ = NewErrBackendFault("RegisterFile", cause)
		}
	})
}

func BenchmarkErrorChecking(b *testing.B) {
	err := NewErrMemoryPressure(2048, 1024)

	b.Run("HasCode", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = errors.HasCode(err, ErrCodeMemoryPressure)
		}
	})

	b.Run("IsRetryable", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = IsRetryable(err)
		}
	})

	b.Run("GetErrorCode", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = GetErrorCode(err)
		}
	})

	b.Run("GetErrorContext", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = GetErrorContext(err)
		}
	})
}
