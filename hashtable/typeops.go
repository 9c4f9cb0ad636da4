package hashtable

import (
	"bytes"

	"github.com/cespare/xxhash/v2"
)

// TypeOps supplies the behavior a HashTable needs but cannot know on its
// own: how to hash and compare keys, and how to take ownership of (or
// release) keys and values as they move in and out of the table. Dup
// functions may be left nil to mean "identity, no copy"; destroy functions
// may be left nil to mean "nothing to release".
type TypeOps struct {
	Hash         func(key []byte) uint64
	Equal        func(a, b []byte) bool
	KeyDup       func(key []byte) []byte
	ValueDup     func(v interface{}) interface{}
	KeyDestroy   func(key []byte)
	ValueDestroy func(v interface{})
}

// DefaultTypeOps returns TypeOps suitable for byte-string keys: xxhash for
// hashing (stable across calls, equal keys hash equal), bytes.Equal for
// comparison, and a copying KeyDup so the table never aliases a caller's
// backing array.
func DefaultTypeOps() TypeOps {
	return TypeOps{
		Hash:  func(key []byte) uint64 { return xxhash.Sum64(key) },
		Equal: bytes.Equal,
		KeyDup: func(key []byte) []byte {
			dup := make([]byte, len(key))
			copy(dup, key)
			return dup
		},
	}
}

func (t TypeOps) dupKey(key []byte) []byte {
	if t.KeyDup == nil {
		return key
	}
	return t.KeyDup(key)
}

func (t TypeOps) dupValue(v interface{}) interface{} {
	if t.ValueDup == nil {
		return v
	}
	return t.ValueDup(v)
}

func (t TypeOps) destroyKey(key []byte) {
	if t.KeyDestroy != nil {
		t.KeyDestroy(key)
	}
}

func (t TypeOps) destroyValue(v interface{}) {
	if t.ValueDestroy != nil {
		t.ValueDestroy(v)
	}
}
