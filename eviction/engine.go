package eviction

import (
	"time"

	"github.com/corvid-db/corvid/telemetry"
	"github.com/corvid-db/corvid/workers"
)

// maxDrainIterations bounds how long EnsureHeadroom waits for outstanding
// LazyFree jobs before giving up and reporting MemoryPressure.
const maxDrainIterations = 1000

const drainSlice = time.Millisecond

// Engine is the sampling-based eviction selector: on EnsureHeadroom it
// scores candidates from every registered Database according to its
// configured Policy and deletes the worst until the configured memory
// ceiling is satisfied or no more progress can be made.
type Engine struct {
	cfg        Config
	accountant MemoryAccountant
	databases  []Database
	pool       *Pool
	workerPool *workers.Pool

	logger       telemetry.Logger
	metrics      telemetry.MetricsCollector
	timeProvider telemetry.TimeProvider

	notify func(dbid int, key []byte)

	cursor        int
	deletionCount uint64
}

// Option configures an Engine at construction time.
type Option func(*Engine)

func WithWorkerPool(p *workers.Pool) Option { return func(e *Engine) { e.workerPool = p } }

func WithLogger(l telemetry.Logger) Option { return func(e *Engine) { e.logger = l } }

func WithMetrics(m telemetry.MetricsCollector) Option { return func(e *Engine) { e.metrics = m } }

func WithTimeProvider(tp telemetry.TimeProvider) Option {
	return func(e *Engine) { e.timeProvider = tp }
}

// WithNotifier registers a callback fired after every eviction, used to
// propagate an expiry/delete event and publish a keyspace notification.
func WithNotifier(fn func(dbid int, key []byte)) Option {
	return func(e *Engine) { e.notify = fn }
}

// New builds an Engine over the given databases and memory accountant.
func New(cfg Config, accountant MemoryAccountant, databases []Database, opts ...Option) *Engine {
	e := &Engine{
		cfg:          cfg,
		accountant:   accountant,
		databases:    databases,
		pool:         NewPool(),
		logger:       telemetry.NoOpLogger{},
		metrics:      telemetry.NoOpMetricsCollector{},
		timeProvider: telemetry.NewSystemTimeProvider(),
		notify:       func(int, []byte) {},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) now() time.Time { return time.Unix(0, e.timeProvider.Now()) }

func (e *Engine) memUsed() uint64 {
	used := e.accountant.AllocatorReportedBytes()
	excluded := e.accountant.ExcludedBytes()
	if excluded >= used {
		return 0
	}
	return used - excluded
}

// EnsureHeadroom is the main entry point: if memory usage exceeds
// MaxMemory it evicts candidates until back under budget, returning
// MemoryPressure if it cannot. A MaxMemory of 0 means unlimited and is
// always a no-op.
func (e *Engine) EnsureHeadroom() error {
	if e.cfg.MaxMemory == 0 {
		return nil
	}

	memUsed := e.memUsed()
	if memUsed <= e.cfg.MaxMemory {
		return nil
	}
	toFree := memUsed - e.cfg.MaxMemory

	var freed uint64
	for freed < toFree {
		if e.cfg.Policy == NoEviction {
			return NewErrMemoryPressure(memUsed, e.cfg.MaxMemory)
		}

		db, key, found := e.selectCandidate()
		if !found {
			break
		}

		gained, evicted := e.evictOne(db, key)
		if !evicted {
			continue
		}
		freed += gained

		if e.cfg.LazyFreeOnEviction {
			e.deletionCount++
			if e.deletionCount%16 == 0 && e.memUsed() <= e.cfg.MaxMemory {
				return nil
			}
		}
	}

	if freed >= toFree {
		return nil
	}

	return e.waitForDrainThenRecheck()
}

// evictOne removes key from db, releasing its value synchronously or via
// the background worker pool per LazyFreeOnEviction, and returns the
// allocator-reported bytes recovered by the synchronous portion of the
// delete (clamped at 0). When the release is deferred to BW, the allocator
// has typically not yet reclaimed the memory, so gained under-counts; the
// periodic recheck above is what keeps this from stalling headroom
// recovery indefinitely.
func (e *Engine) evictOne(db Database, key []byte) (gained uint64, evicted bool) {
	before := e.accountant.AllocatorReportedBytes()
	value, existed := db.Unlink(key)
	if !existed {
		return 0, false
	}
	after := e.accountant.AllocatorReportedBytes()
	if before > after {
		gained = before - after
	}

	if e.cfg.LazyFreeOnEviction && e.workerPool != nil {
		e.workerPool.Submit(workers.LazyFree, value, nil, nil)
	} else if f, ok := value.(workers.Freeable); ok {
		f.Release()
	}

	e.notify(db.ID(), key)
	e.metrics.RecordEviction(e.cfg.Policy.String())
	return gained, true
}

func (e *Engine) selectCandidate() (Database, []byte, bool) {
	if e.cfg.Policy.usesRandom() {
		return e.selectRandomCandidate()
	}
	return e.selectScoredCandidate()
}

func (e *Engine) selectRandomCandidate() (Database, []byte, bool) {
	n := len(e.databases)
	if n == 0 {
		return nil, nil, false
	}
	allKeys := e.cfg.Policy.allKeys()
	for i := 0; i < n; i++ {
		e.cursor = (e.cursor + 1) % n
		db := e.databases[e.cursor]
		if db.Len(allKeys) == 0 {
			continue
		}
		if key, ok := db.RandomKey(allKeys); ok {
			return db, key, true
		}
	}
	return nil, nil, false
}

func (e *Engine) selectScoredCandidate() (Database, []byte, bool) {
	allKeys := e.cfg.Policy.allKeys()
	totalKeys := 0
	for _, db := range e.databases {
		n := db.Len(allKeys)
		if n == 0 {
			continue
		}
		totalKeys += n
		for _, s := range db.SampleKeys(allKeys, e.cfg.SampleCount) {
			e.pool.Insert(s.Key, db.ID(), e.score(s))
		}
	}
	if totalKeys == 0 {
		return nil, nil, false
	}

	for {
		entry, ok := e.pool.PopBest()
		if !ok {
			return nil, nil, false
		}
		db := e.dbByID(entry.DBID)
		if db == nil {
			continue
		}
		return db, entry.Key, true
	}
}

func (e *Engine) score(s Sample) uint64 {
	switch {
	case e.cfg.Policy.usesLRU():
		return EstimateIdle(LRUClock(e.now()), s.AccessMeta)
	case e.cfg.Policy.usesLFU():
		counter := LFUDecrAndReturn(s.AccessMeta, NowMinutes(e.now()), e.cfg.LFUDecayMinutes)
		return uint64(255 - counter)
	case e.cfg.Policy.usesTTL():
		return ^uint64(0) - uint64(s.ExpireAtMillis)
	default:
		return 0
	}
}

func (e *Engine) dbByID(id int) Database {
	for _, db := range e.databases {
		if db.ID() == id {
			return db
		}
	}
	return nil
}

func (e *Engine) waitForDrainThenRecheck() error {
	for i := 0; i < maxDrainIterations; i++ {
		if e.workerPool != nil && e.workerPool.PendingOf(workers.LazyFree) > 0 {
			e.workerPool.WaitStepOf(workers.LazyFree)
		} else {
			time.Sleep(drainSlice)
		}
		if e.memUsed() <= e.cfg.MaxMemory {
			return nil
		}
	}
	return NewErrMemoryPressure(e.memUsed(), e.cfg.MaxMemory)
}
