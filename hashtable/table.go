// Package hashtable implements the chained, incrementally-rehashed hash
// table that backs every keyspace in the engine: two internal tables (T0,
// T1), growing or shrinking by migrating one bucket at a time so no single
// operation pays for a full rehash.
package hashtable

import (
	"math/rand"
	"time"

	"github.com/corvid-db/corvid/telemetry"
)

const (
	initialTableSize  = 4
	forceResizeRatio  = 5.0
	shrinkLoadFactor  = 0.10
	rehashStepBuckets = 100
)

type bucketTable struct {
	buckets []*Entry
	size    uint64
	mask    uint64
	used    uint64
}

func newBucketTable(size uint64) bucketTable {
	if size < 1 {
		size = 1
	}
	return bucketTable{buckets: make([]*Entry, size), size: size, mask: size - 1}
}

// HashTable is a chained hash table with incremental rehashing. It is not
// safe for concurrent use: per the engine's single-threaded core model,
// exactly one goroutine is expected to own a HashTable.
type HashTable struct {
	tables    [2]bucketTable
	rehashIdx int64
	typeOps   TypeOps
	canResize bool
	metrics   telemetry.MetricsCollector
}

// Option configures a HashTable at construction time.
type Option func(*HashTable)

// WithMetrics attaches a MetricsCollector. The default is a no-op collector.
func WithMetrics(m telemetry.MetricsCollector) Option {
	return func(ht *HashTable) {
		if m != nil {
			ht.metrics = m
		}
	}
}

// WithResizing toggles whether growth/shrink may allocate a new table.
// Disabled tables still rehash to completion once started, and still force
// growth past forceResizeRatio -- this mirrors the source's
// dictSetResizeEnabled semantics, used by collaborators that want to defer
// big allocations during a fork-based snapshot.
func WithResizing(enabled bool) Option {
	return func(ht *HashTable) { ht.canResize = enabled }
}

// New constructs an empty HashTable using typeOps for hashing, comparison
// and ownership.
func New(typeOps TypeOps, opts ...Option) *HashTable {
	ht := &HashTable{
		typeOps:   typeOps,
		rehashIdx: -1,
		canResize: true,
		metrics:   telemetry.NoOpMetricsCollector{},
	}
	ht.tables[0] = newBucketTable(initialTableSize)
	for _, opt := range opts {
		opt(ht)
	}
	return ht
}

// Len returns the number of live entries across both internal tables.
func (ht *HashTable) Len() int { return int(ht.tables[0].used + ht.tables[1].used) }

// IsRehashing reports whether a rehash is currently in progress.
func (ht *HashTable) IsRehashing() bool { return ht.rehashIdx != -1 }

// Add inserts key/value, failing with a duplicate-key error if key is
// already present.
func (ht *HashTable) Add(key []byte, value interface{}) error {
	ht.rehashStepIfNeeded()
	if e := ht.lookup(key); e != nil {
		return NewErrDuplicateKey(key)
	}
	ht.insertNew(key, value)
	ht.metrics.RecordSet()
	return nil
}

// AddRaw returns the existing entry for key without replacing it, or
// inserts and returns a new entry holding a nil value. existed reports
// which case occurred.
func (ht *HashTable) AddRaw(key []byte) (entry *Entry, existed bool) {
	ht.rehashStepIfNeeded()
	if e := ht.lookup(key); e != nil {
		return e, true
	}
	return ht.insertNew(key, nil), false
}

// Replace inserts key/value if absent, or substitutes the value (destroying
// the old one via TypeOps) if present. inserted reports which case occurred.
func (ht *HashTable) Replace(key []byte, value interface{}) (inserted bool) {
	ht.rehashStepIfNeeded()
	if e := ht.lookup(key); e != nil {
		old := e.value
		e.value = ht.typeOps.dupValue(value)
		ht.typeOps.destroyValue(old)
		ht.metrics.RecordSet()
		return false
	}
	ht.insertNew(key, value)
	ht.metrics.RecordSet()
	return true
}

// Find looks up key, opportunistically advancing the rehash cursor by one
// step if a rehash is in progress.
func (ht *HashTable) Find(key []byte) *Entry {
	ht.rehashStepIfNeeded()
	e := ht.lookup(key)
	if e != nil {
		ht.metrics.RecordHit()
	} else {
		ht.metrics.RecordMiss()
	}
	return e
}

// Delete removes key, destroying its key and value via TypeOps. It reports
// whether the key was present.
func (ht *HashTable) Delete(key []byte) bool {
	e := ht.Unlink(key)
	if e == nil {
		return false
	}
	ht.typeOps.destroyKey(e.key)
	ht.typeOps.destroyValue(e.value)
	return true
}

// Unlink removes and returns key's entry without destroying it, handing
// ownership to the caller -- used to defer destruction onto a background
// worker (lazy free).
func (ht *HashTable) Unlink(key []byte) *Entry {
	ht.rehashStepIfNeeded()
	if ht.tables[0].size == 0 {
		return nil
	}
	h := ht.typeOps.Hash(key)
	for i := 0; i <= 1; i++ {
		if i == 1 && !ht.IsRehashing() {
			break
		}
		tbl := &ht.tables[i]
		if tbl.size == 0 {
			continue
		}
		idx := h & tbl.mask
		var prev *Entry
		for e := tbl.buckets[idx]; e != nil; e = e.next {
			if ht.typeOps.Equal(e.key, key) {
				if prev == nil {
					tbl.buckets[idx] = e.next
				} else {
					prev.next = e.next
				}
				tbl.used--
				ht.metrics.RecordDelete()
				return e
			}
			prev = e
		}
	}
	ht.metrics.RecordMiss()
	return nil
}

func (ht *HashTable) lookup(key []byte) *Entry {
	if ht.tables[0].size == 0 {
		return nil
	}
	h := ht.typeOps.Hash(key)
	for i := 0; i <= 1; i++ {
		if i == 1 && !ht.IsRehashing() {
			break
		}
		tbl := &ht.tables[i]
		if tbl.size == 0 {
			continue
		}
		idx := h & tbl.mask
		for e := tbl.buckets[idx]; e != nil; e = e.next {
			if ht.typeOps.Equal(e.key, key) {
				return e
			}
		}
	}
	return nil
}

func (ht *HashTable) insertNew(key []byte, value interface{}) *Entry {
	ht.maybeExpand()
	tbl := &ht.tables[0]
	if ht.IsRehashing() {
		tbl = &ht.tables[1]
	}
	idx := ht.typeOps.Hash(key) & tbl.mask
	e := &Entry{key: ht.typeOps.dupKey(key), value: ht.typeOps.dupValue(value)}
	e.next = tbl.buckets[idx]
	tbl.buckets[idx] = e
	tbl.used++
	return e
}

// maybeExpand starts a rehash to a larger T1 if the load factor crossed the
// growth threshold. Declining to grow (resizing disabled, or a rehash
// already running) is a soft condition: inserts keep landing on the
// current table.
func (ht *HashTable) maybeExpand() {
	if ht.IsRehashing() {
		return
	}
	t0 := &ht.tables[0]
	if t0.used == 0 {
		return
	}
	loadFactor := float64(t0.used) / float64(t0.size)
	needsGrowth := t0.used >= t0.size
	forced := loadFactor > forceResizeRatio
	if !needsGrowth && !forced {
		return
	}
	if !ht.canResize && !forced {
		return
	}
	_ = ht.expandTo(t0.used * 2)
}

func (ht *HashTable) expandTo(minSize uint64) error {
	if ht.IsRehashing() {
		return NewErrGrowthFailed("rehash already in progress")
	}
	newSize := nextPowerOfTwo(minSize)
	if newSize < initialTableSize {
		newSize = initialTableSize
	}
	if newSize == ht.tables[0].size {
		return NewErrGrowthFailed("target size unchanged")
	}
	ht.tables[1] = newBucketTable(newSize)
	ht.rehashIdx = 0
	return nil
}

// Resize shrinks the table if the load factor has dropped below
// shrinkLoadFactor and resizing is enabled.
func (ht *HashTable) Resize() error {
	if !ht.canResize {
		return NewErrGrowthFailed("resizing disabled")
	}
	if ht.IsRehashing() {
		return NewErrGrowthFailed("rehash already in progress")
	}
	t0 := &ht.tables[0]
	if t0.size <= initialTableSize {
		return nil
	}
	if float64(t0.used)/float64(t0.size) >= shrinkLoadFactor {
		return nil
	}
	minimal := t0.used
	if minimal < initialTableSize {
		minimal = initialTableSize
	}
	return ht.expandTo(minimal)
}

// rehashStepIfNeeded advances the cursor by a single bucket, the amount of
// work every read/write API call is willing to donate to an in-flight
// rehash.
func (ht *HashTable) rehashStepIfNeeded() {
	if ht.IsRehashing() {
		ht.rehash(1)
	}
}

// RehashMilliseconds advances the rehash cursor for at most the given
// wall-clock budget, in chunks of rehashStepBuckets buckets, and reports
// whether a rehash is still in progress.
func (ht *HashTable) RehashMilliseconds(ms int) bool {
	if !ht.IsRehashing() {
		return false
	}
	deadline := time.Now().Add(time.Duration(ms) * time.Millisecond)
	for ht.IsRehashing() {
		ht.rehash(rehashStepBuckets)
		if !time.Now().Before(deadline) {
			break
		}
	}
	return ht.IsRehashing()
}

// rehash advances the cursor by up to n non-empty buckets, skipping empty
// ones, bounded to 10*n empty-bucket visits so a sparse table can't make a
// rehash call run unbounded.
func (ht *HashTable) rehash(n int) {
	emptyVisits := n * 10
	moved := 0
	for ; n > 0 && ht.tables[0].used != 0; n-- {
		for ht.tables[0].buckets[ht.rehashIdx] == nil {
			ht.rehashIdx++
			emptyVisits--
			if emptyVisits == 0 {
				ht.metrics.RecordRehashStep(moved)
				return
			}
		}
		e := ht.tables[0].buckets[ht.rehashIdx]
		for e != nil {
			next := e.next
			idx := ht.typeOps.Hash(e.key) & ht.tables[1].mask
			e.next = ht.tables[1].buckets[idx]
			ht.tables[1].buckets[idx] = e
			ht.tables[0].used--
			ht.tables[1].used++
			moved++
			e = next
		}
		ht.tables[0].buckets[ht.rehashIdx] = nil
		ht.rehashIdx++
	}
	ht.metrics.RecordRehashStep(moved)
	if ht.tables[0].used == 0 {
		ht.tables[0] = ht.tables[1]
		ht.tables[1] = bucketTable{}
		ht.rehashIdx = -1
	}
}

// RandomEntry returns a uniformly-ish chosen live entry, or nil if the
// table is empty. During rehash, both tables are covered proportionally to
// their used counts.
func (ht *HashTable) RandomEntry() *Entry {
	if ht.Len() == 0 {
		return nil
	}
	var head *Entry
	if ht.IsRehashing() {
		for head == nil {
			span := ht.tables[0].size + ht.tables[1].size - uint64(ht.rehashIdx)
			h := uint64(ht.rehashIdx) + uint64(rand.Int63())%span
			if h >= ht.tables[0].size {
				head = ht.tables[1].buckets[h-ht.tables[0].size]
			} else {
				head = ht.tables[0].buckets[h]
			}
		}
	} else {
		t0 := &ht.tables[0]
		for head == nil {
			head = t0.buckets[uint64(rand.Int63())&t0.mask]
		}
	}
	length := 0
	for e := head; e != nil; e = e.next {
		length++
	}
	skip := rand.Intn(length)
	e := head
	for ; skip > 0; skip-- {
		e = e.next
	}
	return e
}

func nextPowerOfTwo(n uint64) uint64 {
	if n < 1 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
