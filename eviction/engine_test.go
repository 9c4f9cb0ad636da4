package eviction

import (
	"sync"
	"testing"
	"time"
)

type fakeEntry struct {
	value      interface{}
	accessMeta uint32
	expireAt   int64
	volatile   bool
}

type fakeDB struct {
	mu      sync.Mutex
	id      int
	entries map[string]*fakeEntry
}

func newFakeDB(id int) *fakeDB { return &fakeDB{id: id, entries: make(map[string]*fakeEntry)} }

func (d *fakeDB) ID() int { return d.id }

func (d *fakeDB) put(key string, accessMeta uint32, expireAt int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[key] = &fakeEntry{value: key, accessMeta: accessMeta, expireAt: expireAt, volatile: expireAt != 0}
}

func (d *fakeDB) Len(allKeys bool) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, e := range d.entries {
		if allKeys || e.volatile {
			n++
		}
	}
	return n
}

func (d *fakeDB) SampleKeys(allKeys bool, n int) []Sample {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Sample
	for k, e := range d.entries {
		if !allKeys && !e.volatile {
			continue
		}
		out = append(out, Sample{Key: []byte(k), AccessMeta: e.accessMeta, ExpireAtMillis: e.expireAt})
		if len(out) >= n {
			break
		}
	}
	return out
}

func (d *fakeDB) RandomKey(allKeys bool) ([]byte, bool) {
	samples := d.SampleKeys(allKeys, 1)
	if len(samples) == 0 {
		return nil, false
	}
	return samples[0].Key, true
}

func (d *fakeDB) Unlink(key []byte) (interface{}, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[string(key)]
	if !ok {
		return nil, false
	}
	delete(d.entries, string(key))
	return e.value, true
}

type fakeAccountant struct {
	mu       sync.Mutex
	used     uint64
	excluded uint64
}

func (a *fakeAccountant) AllocatorReportedBytes() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.used
}

func (a *fakeAccountant) ExcludedBytes() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.excluded
}

func (a *fakeAccountant) free(n uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n > a.used {
		a.used = 0
	} else {
		a.used -= n
	}
}

// TestEnsureHeadroomKeepsFreshKeysUnderLRU covers scenario 4: with a
// 1000 KiB ceiling and AllKeysLRU, the most recently touched keys must survive
// eviction while older ones are reclaimed.
func TestEnsureHeadroomKeepsFreshKeysUnderLRU(t *testing.T) {
	db := newFakeDB(0)
	accountant := &fakeAccountant{used: 1100 * 1024, excluded: 0}

	const perKeyBytes = 200
	const total = 10_000
	const keepFresh = 10

	for i := 0; i < total; i++ {
		key := sampleKey(i)
		// Older keys get a stamp far in the past (low clock value); the
		// keepFresh set is stamped at "now".
		var meta uint32
		if i < keepFresh {
			meta = LRUClock(time.Unix(100_000, 0))
		} else {
			meta = LRUClock(time.Unix(0, 0))
		}
		db.put(key, meta, 0)
	}

	cfg := DefaultConfig()
	cfg.MaxMemory = 1000 * 1024
	cfg.Policy = AllKeysLRU
	cfg.SampleCount = 20

	eng := New(cfg, accountant, []Database{db}, WithTimeProvider(fixedTime(100_000)))

	// Each eviction should report bytes freed back to the accountant so the
	// loop can converge.
	eng2 := &accountantFreer{Engine: eng, accountant: accountant, perKey: perKeyBytes}
	if err := eng2.run(); err != nil {
		t.Fatalf("EnsureHeadroom: %v", err)
	}

	for i := 0; i < keepFresh; i++ {
		if _, ok := db.entries[sampleKey(i)]; !ok {
			t.Fatalf("expected fresh key %d to survive eviction", i)
		}
	}
}

// accountantFreer runs its own headroom loop over the Engine's candidate
// selection in place of Engine.EnsureHeadroom, updating the accountant
// after each eviction to stand in for the allocator's real post-free
// bookkeeping in these tests.
type accountantFreer struct {
	*Engine
	accountant *fakeAccountant
	perKey     uint64
}

func (f *accountantFreer) run() error {
	for {
		before := f.accountant.AllocatorReportedBytes()
		if before <= f.cfg.MaxMemory {
			return nil
		}
		db, key, found := f.selectCandidate()
		if !found {
			return NewErrMemoryPressure(before, f.cfg.MaxMemory)
		}
		if _, existed := db.Unlink(key); existed {
			f.accountant.free(f.perKey)
			f.notify(db.ID(), key)
			f.metrics.RecordEviction(f.cfg.Policy.String())
		}
	}
}

func sampleKey(i int) string {
	return "key-" + string(rune('a'+i%26)) + string(rune('0'+(i/26)%10)) + string(rune(i))
}

type fixedTimeProvider int64

func (t fixedTimeProvider) Now() int64 { return int64(t) * int64(time.Second) }

func fixedTime(unixSeconds int64) fixedTimeProvider { return fixedTimeProvider(unixSeconds) }

// TestEnsureHeadroomPicksEarliestExpiryUnderTTL covers scenario 5: between
// two keys expiring at 1000ms and 2000ms from now, the sooner-to-expire key
// must be evicted first.
func TestEnsureHeadroomPicksEarliestExpiryUnderTTL(t *testing.T) {
	db := newFakeDB(0)
	now := time.Unix(1_000_000, 0)
	db.put("soon", 0, now.UnixMilli()+1000)
	db.put("later", 0, now.UnixMilli()+2000)

	cfg := DefaultConfig()
	cfg.MaxMemory = 1
	cfg.Policy = VolatileTTL
	cfg.SampleCount = 5

	accountant := &fakeAccountant{used: 100, excluded: 0}
	eng := New(cfg, accountant, []Database{db}, WithTimeProvider(fixedTime(now.Unix())))

	dbSel, key, found := eng.selectCandidate()
	if !found {
		t.Fatal("expected a candidate from a non-empty expires set")
	}
	if dbSel.ID() != 0 || string(key) != "soon" {
		t.Fatalf("expected 'soon' to be selected first under VolatileTTL, got %q", key)
	}
}

func TestEnsureHeadroomNoEvictionReturnsPressure(t *testing.T) {
	db := newFakeDB(0)
	db.put("a", 0, 0)
	accountant := &fakeAccountant{used: 2000, excluded: 0}

	cfg := DefaultConfig()
	cfg.MaxMemory = 1000
	cfg.Policy = NoEviction

	eng := New(cfg, accountant, []Database{db})
	err := eng.EnsureHeadroom()
	if !IsMemoryPressure(err) {
		t.Fatalf("expected MemoryPressure under NoEviction over budget, got %v", err)
	}
}

func TestEnsureHeadroomIdempotentWhenAlreadyUnderBudget(t *testing.T) {
	db := newFakeDB(0)
	accountant := &fakeAccountant{used: 100, excluded: 0}
	cfg := DefaultConfig()
	cfg.MaxMemory = 1000
	cfg.Policy = AllKeysLRU

	eng := New(cfg, accountant, []Database{db})
	if err := eng.EnsureHeadroom(); err != nil {
		t.Fatalf("expected no-op under budget, got %v", err)
	}
	if err := eng.EnsureHeadroom(); err != nil {
		t.Fatalf("expected second call to remain a no-op, got %v", err)
	}
}
