// engine.go: the Engine that wires the hash-table databases, reactor,
// background worker pool, and eviction engine into one running core.
//
// Copyright (c) 2025 Corvid Authors
// SPDX-License-Identifier: MPL-2.0
package corvid

import (
	"sync/atomic"
	"time"

	"github.com/corvid-db/corvid/eviction"
	"github.com/corvid-db/corvid/reactor"
	"github.com/corvid-db/corvid/telemetry"
	"github.com/corvid-db/corvid/workers"
)

// Engine is the in-memory data-engine core: a set of databases, a
// single-threaded reactor that drives them, a background worker pool for
// off-loaded blocking work, and an eviction engine keeping the dataset
// inside its memory budget.
//
// Every method on Engine and on the Databases it owns is expected to run
// on the single goroutine that calls Run (or repeatedly drives the
// reactor directly); there is no internal locking for that path. The only
// exception is configuration: cfgVal holds an immutable Config snapshot
// swapped atomically, so HotConfig can reload from Argus's own goroutine
// without taking a lock the core goroutine would also need.
type Engine struct {
	cfgVal atomic.Value // Config

	reactor    *reactor.Reactor
	workerPool *workers.Pool
	eviction   *eviction.Engine
	databases  []*Database

	accountant *memoryAccountant

	maintenanceTimerID int64
}

// New constructs an Engine from cfg, normalizing out-of-range fields via
// Config.Validate. It starts the background worker pool but does not
// start the reactor loop; call Run (or ProcessEvents) for that.
func New(cfg Config, opts ...reactor.Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{accountant: newMemoryAccountant()}
	e.cfgVal.Store(cfg)

	pool := workers.New(
		workers.WithLogger(cfg.Logger),
		workers.WithMetrics(cfg.MetricsCollector),
		workers.WithTimeProvider(cfg.TimeProvider),
	)
	pool.Start()
	e.workerPool = pool

	reactorOpts := append([]reactor.Option{
		reactor.WithLogger(cfg.Logger),
		reactor.WithTimeProvider(cfg.TimeProvider),
	}, opts...)

	r, err := reactor.New(cfg.ReactorSetSize, reactorOpts...)
	if err != nil {
		return nil, NewErrBackendFault("reactor.New", err)
	}
	e.reactor = r

	e.databases = make([]*Database, cfg.Databases)
	views := make([]eviction.Database, cfg.Databases)
	for i := range e.databases {
		db := newDatabase(i, e, cfg.MetricsCollector)
		e.databases[i] = db
		views[i] = databaseView{db}
	}

	e.eviction = eviction.New(cfg.evictionConfig(), e.accountant, views,
		eviction.WithWorkerPool(pool),
		eviction.WithLogger(cfg.Logger),
		eviction.WithMetrics(cfg.MetricsCollector),
		eviction.WithTimeProvider(cfg.TimeProvider),
		eviction.WithNotifier(e.onEvicted),
	)

	e.maintenanceTimerID = e.reactor.CreateTimer(eviction.ClockResolutionMillis*time.Millisecond, e.maintenanceTick, nil, nil)

	return e, nil
}

// Database returns the database at index id. It panics if id is outside
// 0..Config.Databases-1, the same contract a slice index carries; callers
// accepting an external index should validate it with NewErrDatabaseOutOfRange
// first.
func (e *Engine) Database(id int) *Database {
	if id < 0 || id >= len(e.databases) {
		panic(NewErrDatabaseOutOfRange(id, len(e.databases)))
	}
	return e.databases[id]
}

// NumDatabases returns the number of logical keyspaces the engine owns.
func (e *Engine) NumDatabases() int { return len(e.databases) }

// Run drives the reactor's event loop until Stop is called. It is the
// collaborator-facing equivalent of the teacher's main-loop entry point.
func (e *Engine) Run() { e.reactor.Main() }

// Stop requests that Run return after its current iteration.
func (e *Engine) Stop() { e.reactor.Stop() }

// Close stops the reactor loop, drains and kills the background worker
// pool, and releases reactor backend resources. It does not wait for Run
// to observe Stop; callers running Run on another goroutine should wait
// on it themselves.
func (e *Engine) Close() error {
	e.reactor.DeleteTimer(e.maintenanceTimerID)
	e.reactor.Stop()
	e.workerPool.KillAll()
	return e.reactor.Close()
}

// EnsureHeadroom runs one eviction pass, deleting candidates until memory
// usage is back under Config.MaxMemory or no further progress is
// possible. Collaborators normally don't call this directly: the engine's
// maintenance timer already does, on every clock tick.
func (e *Engine) EnsureHeadroom() error { return e.eviction.EnsureHeadroom() }

// RegisterFile exposes the reactor's file registration to collaborators
// driving their own listeners/connections through this engine's loop.
func (e *Engine) RegisterFile(fd, mask int, proc reactor.FileProc, clientData interface{}) error {
	return e.reactor.RegisterFile(fd, mask, proc, clientData)
}

// UnregisterFile exposes the reactor's file de-registration.
func (e *Engine) UnregisterFile(fd, mask int) { e.reactor.UnregisterFile(fd, mask) }

// CreateTimer exposes the reactor's timer creation for collaborators that
// need their own periodic work on the core goroutine.
func (e *Engine) CreateTimer(delay time.Duration, proc reactor.TimeProc, clientData interface{}, finalizer reactor.EventFinalizer) int64 {
	return e.reactor.CreateTimer(delay, proc, clientData, finalizer)
}

// DeleteTimer exposes the reactor's timer cancellation.
func (e *Engine) DeleteTimer(id int64) bool { return e.reactor.DeleteTimer(id) }

// SubmitJob exposes the background worker pool to collaborators with
// their own blocking work (e.g. an append-log writer's fsync).
func (e *Engine) SubmitJob(class workers.JobClass, arg1, arg2, arg3 interface{}) {
	e.workerPool.Submit(class, arg1, arg2, arg3)
}

// config returns the current configuration snapshot. It is cheap and safe
// to call from any goroutine; the returned Config is never mutated in
// place.
func (e *Engine) config() Config { return e.cfgVal.Load().(Config) }

// applyHotConfig swaps in newConfig and reconstructs the wrapped eviction
// engine against it, since eviction.Engine's own configuration has no
// public setter. ReactorSetSize and Databases are carried over from the
// running engine unconditionally: HotConfig never changes them.
func (e *Engine) applyHotConfig(newConfig Config) {
	current := e.config()
	newConfig.ReactorSetSize = current.ReactorSetSize
	newConfig.Databases = current.Databases
	if newConfig.Logger == nil {
		newConfig.Logger = current.Logger
	}
	if newConfig.TimeProvider == nil {
		newConfig.TimeProvider = current.TimeProvider
	}
	if newConfig.MetricsCollector == nil {
		newConfig.MetricsCollector = current.MetricsCollector
	}

	views := make([]eviction.Database, len(e.databases))
	for i, db := range e.databases {
		views[i] = databaseView{db}
	}

	e.eviction = eviction.New(newConfig.evictionConfig(), e.accountant, views,
		eviction.WithWorkerPool(e.workerPool),
		eviction.WithLogger(newConfig.Logger),
		eviction.WithMetrics(newConfig.MetricsCollector),
		eviction.WithTimeProvider(newConfig.TimeProvider),
		eviction.WithNotifier(e.onEvicted),
	)

	e.cfgVal.Store(newConfig)
}

// onEvicted is the eviction engine's notifier callback: it forwards to
// Config.OnEvict, if the collaborator set one, so that e.g. a replication
// or AOF layer can propagate the delete.
func (e *Engine) onEvicted(dbid int, key []byte) {
	if cb := e.config().OnEvict; cb != nil {
		cb(dbid, key)
	}
}

// maintenanceTick runs on the reactor's timer list once per clock
// resolution: it steps any in-flight rehashes and enforces the memory
// ceiling. Its return value reschedules itself at the same period.
func (e *Engine) maintenanceTick(r *reactor.Reactor, id int64, clientData interface{}) int64 {
	cfg := e.config()
	if cfg.RehashEnabled {
		for _, db := range e.databases {
			db.data.RehashMilliseconds(1)
			db.expires.RehashMilliseconds(1)
		}
	}

	if err := e.EnsureHeadroom(); err != nil {
		cfg.Logger.Debug("ensure_headroom did not reach target", "error", err)
	}

	return eviction.ClockResolutionMillis
}

// policy returns the eviction policy the current configuration selects.
func (e *Engine) policy() eviction.Policy { return e.config().MaxMemoryPolicy }

// metrics returns the current metrics collector.
func (e *Engine) metrics() telemetry.MetricsCollector { return e.config().MetricsCollector }

// now returns the engine's current time, as reported by the configured
// TimeProvider.
func (e *Engine) now() time.Time { return time.Unix(0, e.config().TimeProvider.Now()) }

// nowMillis is now in Unix milliseconds, the unit Database stores expiry
// deadlines in.
func (e *Engine) nowMillis() int64 { return e.now().UnixMilli() }

// release frees value: synchronously if it implements workers.Freeable
// (or is a Value wrapping a BoxedObject), or through the background
// worker pool's LazyFree class when Config.LazyFreeOnEviction is set.
func (e *Engine) release(value interface{}) {
	if value == nil {
		return
	}

	if e.config().LazyFreeOnEviction {
		if f, ok := value.(workers.Freeable); ok {
			e.workerPool.Submit(workers.LazyFree, f, nil, nil)
			return
		}
	}

	if f, ok := value.(workers.Freeable); ok {
		f.Release()
	}
}
