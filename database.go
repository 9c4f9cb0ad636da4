// database.go: the per-keyspace view collaborators read and write through,
// and the adapter that lets it serve as an eviction.Database.
//
// Copyright (c) 2025 Corvid Authors
// SPDX-License-Identifier: MPL-2.0
package corvid

import (
	"math/rand"

	"github.com/corvid-db/corvid/eviction"
	"github.com/corvid-db/corvid/hashtable"
	"github.com/corvid-db/corvid/telemetry"
)

// Database is one logical keyspace: a main dict of all live keys and an
// expires dict tracking the subset with a TTL. It owns no goroutine of its
// own; every method is expected to run on the engine's single core
// goroutine, per the engine's single-threaded concurrency model.
type Database struct {
	id      int
	data    *hashtable.HashTable
	expires *hashtable.HashTable
	engine  *Engine
}

func newDatabase(id int, engine *Engine, metrics telemetry.MetricsCollector) *Database {
	resizing := hashtable.WithResizing(engine.config().RehashEnabled)
	return &Database{
		id:      id,
		data:    hashtable.New(hashtable.DefaultTypeOps(), hashtable.WithMetrics(metrics), resizing),
		expires: hashtable.New(hashtable.DefaultTypeOps(), resizing),
		engine:  engine,
	}
}

// ID returns the database's index within the engine.
func (d *Database) ID() int { return d.id }

// Len reports the number of live keys.
func (d *Database) Len() int { return d.data.Len() }

// Get looks up key, stamping its access-meta under the engine's configured
// policy on a hit, and lazily expiring it first if its TTL has passed.
func (d *Database) Get(key []byte) (Value, bool) {
	if d.expireIfDue(key) {
		return Value{}, false
	}
	e := d.data.Find(key)
	if e == nil {
		return Value{}, false
	}
	d.stampAccess(e)
	v, _ := e.Value().(Value)
	return v, true
}

// Set inserts or replaces key's value, clearing any existing TTL -- callers
// that want to preserve a TTL across a Set must re-apply it via Expire.
func (d *Database) Set(key []byte, value Value) {
	d.expires.Delete(key)
	e, existed := d.data.AddRaw(key)
	if existed {
		if old, ok := e.Value().(Value); ok {
			d.engine.accountant.remove(old.EstimateSize())
		}
		d.engine.release(e.Value())
	}
	e.SetValue(value)
	d.engine.accountant.add(value.EstimateSize())
	d.stampAccess(e)
	d.engine.metrics().RecordSet()
}

// Delete removes key, releasing its value synchronously (or via the
// background worker pool, per LazyFreeOnEviction) and reports whether it
// was present.
func (d *Database) Delete(key []byte) bool {
	e := d.data.Unlink(key)
	d.expires.Delete(key)
	if e == nil {
		return false
	}
	if v, ok := e.Value().(Value); ok {
		d.engine.accountant.remove(v.EstimateSize())
	}
	d.engine.release(e.Value())
	return true
}

// Has reports whether key is present, without stamping access.
func (d *Database) Has(key []byte) bool {
	if d.expireIfDue(key) {
		return false
	}
	return d.data.Find(key) != nil
}

// Expire sets key's absolute expiry time in Unix milliseconds. It is a
// no-op if key is not present.
func (d *Database) Expire(key []byte, atUnixMillis int64) bool {
	if d.data.Find(key) == nil {
		return false
	}
	d.expires.Replace(key, IntValue(atUnixMillis))
	return true
}

// Persist clears key's TTL, if any, returning whether one was cleared.
func (d *Database) Persist(key []byte) bool {
	return d.expires.Delete(key)
}

// expireIfDue deletes key if it carries a TTL that has passed, reporting
// whether it did so.
func (d *Database) expireIfDue(key []byte) bool {
	ee := d.expires.Find(key)
	if ee == nil {
		return false
	}
	v, _ := ee.Value().(Value)
	if d.engine.nowMillis() < v.Int {
		return false
	}
	d.Delete(key)
	if cb := d.engine.config().OnExpire; cb != nil {
		cb(d.id, key)
	}
	return true
}

func (d *Database) stampAccess(e *hashtable.Entry) {
	now := d.engine.now()
	cfg := d.engine.config()
	switch {
	case isLFUPolicy(cfg.MaxMemoryPolicy):
		counter := eviction.LFUDecrAndReturn(e.AccessMeta(), eviction.NowMinutes(now), cfg.LFUDecayMinutes)
		counter = eviction.LFULogIncr(counter, cfg.LFULogFactor, rand.Float64)
		e.SetAccessMeta(eviction.StampLFU(now, counter))
	default:
		e.SetAccessMeta(eviction.StampLRU(now))
	}
}

func isLFUPolicy(p eviction.Policy) bool {
	return p == eviction.AllKeysLFU || p == eviction.VolatileLFU
}

// --- eviction.Database adapter ---

// ID, above, also satisfies eviction.Database.ID.

// evictionLen implements eviction.Database.Len: allKeys selects the main
// dict (true) or the expires dict (false).
func (d *Database) evictionLen(allKeys bool) int {
	if allKeys {
		return d.data.Len()
	}
	return d.expires.Len()
}

func (d *Database) sampleKeys(allKeys bool, n int) []eviction.Sample {
	if allKeys {
		entries := d.data.SomeEntries(n)
		samples := make([]eviction.Sample, 0, len(entries))
		for _, e := range entries {
			samples = append(samples, eviction.Sample{Key: e.Key(), AccessMeta: e.AccessMeta()})
		}
		return samples
	}

	expiring := d.expires.SomeEntries(n)
	samples := make([]eviction.Sample, 0, len(expiring))
	for _, ee := range expiring {
		v, _ := ee.Value().(Value)
		meta := uint32(0)
		if e := d.data.Find(ee.Key()); e != nil {
			meta = e.AccessMeta()
		}
		samples = append(samples, eviction.Sample{
			Key:            ee.Key(),
			AccessMeta:     meta,
			ExpireAtMillis: v.Int,
		})
	}
	return samples
}

func (d *Database) randomKey(allKeys bool) ([]byte, bool) {
	tbl := d.data
	if !allKeys {
		tbl = d.expires
	}
	e := tbl.RandomEntry()
	if e == nil {
		return nil, false
	}
	return e.Key(), true
}

// unlink implements eviction.Database.Unlink: removes key from both dicts
// and returns its value for the caller (the eviction engine) to release.
func (d *Database) unlink(key []byte) (interface{}, bool) {
	e := d.data.Unlink(key)
	d.expires.Delete(key)
	if e == nil {
		return nil, false
	}
	value := e.Value()
	if v, ok := value.(Value); ok {
		d.engine.accountant.remove(v.EstimateSize())
	}
	return value, true
}

// databaseView adapts *Database to eviction.Database without exporting the
// Len/SampleKeys/RandomKey/Unlink method names on Database's own public
// surface, which carry different, richer signatures there (Len takes no
// argument, there's no public SampleKeys, etc).
type databaseView struct{ db *Database }

func (v databaseView) ID() int                              { return v.db.ID() }
func (v databaseView) Len(allKeys bool) int                  { return v.db.evictionLen(allKeys) }
func (v databaseView) SampleKeys(allKeys bool, n int) []eviction.Sample {
	return v.db.sampleKeys(allKeys, n)
}
func (v databaseView) RandomKey(allKeys bool) ([]byte, bool) { return v.db.randomKey(allKeys) }
func (v databaseView) Unlink(key []byte) (interface{}, bool) { return v.db.unlink(key) }
