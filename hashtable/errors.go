package hashtable

import (
	"github.com/agilira/go-errors"
)

// Error codes for hash table operations.
const (
	ErrCodeDuplicateKey errors.ErrorCode = "CORVID_HT_DUPLICATE_KEY"
	ErrCodeKeyNotFound  errors.ErrorCode = "CORVID_HT_KEY_NOT_FOUND"
	ErrCodeGrowthFailed errors.ErrorCode = "CORVID_HT_GROWTH_FAILED"
)

const (
	msgDuplicateKey = "key already exists in hash table"
	msgKeyNotFound  = "key not found in hash table"
	msgGrowthFailed = "table growth declined"
)

// NewErrDuplicateKey reports that Add was called with a key already present.
func NewErrDuplicateKey(key []byte) error {
	return errors.NewWithField(ErrCodeDuplicateKey, msgDuplicateKey, "key", string(key))
}

// NewErrKeyNotFound reports that a key-addressed operation found nothing.
func NewErrKeyNotFound(key []byte) error {
	return errors.NewWithField(ErrCodeKeyNotFound, msgKeyNotFound, "key", string(key))
}

// NewErrGrowthFailed reports that growth was requested but declined --
// resizing is disabled, a rehash is already in flight, or the target size
// equals the current one. This is a
// soft condition: the table keeps operating on its current tables.
func NewErrGrowthFailed(reason string) error {
	return errors.NewWithField(ErrCodeGrowthFailed, msgGrowthFailed, "reason", reason).AsRetryable()
}

// IsDuplicateKey reports whether err is a duplicate-key error.
func IsDuplicateKey(err error) bool { return errors.HasCode(err, ErrCodeDuplicateKey) }

// IsKeyNotFound reports whether err is a key-not-found error.
func IsKeyNotFound(err error) bool { return errors.HasCode(err, ErrCodeKeyNotFound) }
