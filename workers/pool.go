package workers

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/corvid-db/corvid/telemetry"
)

var classThreadNames = [numJobClasses]string{
	CloseFile:       "corvid_bw_close",
	FsyncAppendLog:  "corvid_bw_fsync",
	LazyFree:        "corvid_bw_lazyfree",
}

// Pool is the fixed-size background worker pool: one goroutine per
// JobClass, each pinned to its own OS thread, draining its class's FIFO
// queue to completion order.
type Pool struct {
	queues  [numJobClasses]*classQueue
	stopped atomic.Bool
	wg      sync.WaitGroup

	logger       telemetry.Logger
	metrics      telemetry.MetricsCollector
	timeProvider telemetry.TimeProvider

	lastFsyncErr atomic.Value
}

// Option configures a Pool at construction time.
type Option func(*Pool)

func WithLogger(l telemetry.Logger) Option { return func(p *Pool) { p.logger = l } }

func WithMetrics(m telemetry.MetricsCollector) Option { return func(p *Pool) { p.metrics = m } }

func WithTimeProvider(tp telemetry.TimeProvider) Option {
	return func(p *Pool) { p.timeProvider = tp }
}

// New builds a Pool with its queues ready but no worker goroutines running
// yet; call Start to launch them.
func New(opts ...Option) *Pool {
	p := &Pool{
		logger:       telemetry.NoOpLogger{},
		metrics:      telemetry.NoOpMetricsCollector{},
		timeProvider: telemetry.NewSystemTimeProvider(),
	}
	for c := range p.queues {
		p.queues[c] = newClassQueue()
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the pool's worker goroutines, one per JobClass.
func (p *Pool) Start() {
	for c := JobClass(0); c < numJobClasses; c++ {
		p.wg.Add(1)
		go func(class JobClass) {
			defer p.wg.Done()
			runtime.LockOSThread()
			setThreadName(classThreadNames[class])
			p.run(class)
		}(c)
	}
}

// Submit enqueues a job on its class's FIFO. Jobs of the same class are
// dequeued in submission order.
func (p *Pool) Submit(class JobClass, arg1, arg2, arg3 interface{}) {
	p.queues[class].push(&Job{Class: class, Arg1: arg1, Arg2: arg2, Arg3: arg3})
}

// PendingOf returns the number of jobs of class still queued or in flight.
func (p *Pool) PendingOf(class JobClass) uint64 {
	return p.queues[class].pendingCount()
}

// WaitStepOf blocks until one job of class completes, if any was pending,
// then returns the pending count observed at that point. It returns
// immediately if no job of that class is in flight.
func (p *Pool) WaitStepOf(class JobClass) uint64 {
	return p.queues[class].waitStep()
}

// LastFsyncError returns the most recently observed FsyncAppendLog failure,
// or nil if none has occurred.
func (p *Pool) LastFsyncError() error {
	v := p.lastFsyncErr.Load()
	if v == nil {
		return nil
	}
	return v.(error)
}

// KillAll requests every worker goroutine stop once its queue drains, then
// waits for them to exit. Unlike the crash-path pthread_cancel this
// replaces, a job already in flight always runs to completion: Go has no
// safe equivalent to forceful mid-job thread termination, so shutdown here
// is cooperative rather than unclean.
func (p *Pool) KillAll() {
	p.stopped.Store(true)
	for _, q := range p.queues {
		q.wakeAll()
	}
	p.wg.Wait()
}

func (p *Pool) run(class JobClass) {
	for {
		job, ok := p.queues[class].popBlocking(p.stopped.Load)
		if !ok {
			return
		}
		start := time.Unix(0, p.timeProvider.Now())
		p.process(class, job)
		p.metrics.RecordJobLatency(class.String(), time.Since(start))
		p.queues[class].completeStep()
	}
}

func (p *Pool) process(class JobClass, job *Job) {
	switch class {
	case CloseFile:
		p.processCloseFile(job)
	case FsyncAppendLog:
		p.processFsync(job)
	case LazyFree:
		p.processLazyFree(job)
	}
}

func (p *Pool) processCloseFile(job *Job) {
	fd, ok := job.Arg1.(int)
	if !ok {
		return
	}
	if err := unix.Close(fd); err != nil {
		p.logger.Debug("workers: close failed, ignoring", "fd", fd, "err", err)
	}
}

func (p *Pool) processFsync(job *Job) {
	fd, ok := job.Arg1.(int)
	if !ok {
		return
	}
	if err := unix.Fsync(fd); err != nil {
		p.lastFsyncErr.Store(err)
		p.logger.Warn("workers: fsync failed", "fd", fd, "err", err)
	}
}

func (p *Pool) processLazyFree(job *Job) {
	switch {
	case job.Arg1 != nil && job.Arg2 == nil && job.Arg3 == nil:
		release(job.Arg1)
	case job.Arg2 != nil && job.Arg3 != nil:
		release(job.Arg2)
		release(job.Arg3)
	case job.Arg3 != nil:
		release(job.Arg3)
	default:
		panic(NewErrUnknownLazyFreeShape(job))
	}
}

func release(v interface{}) {
	if f, ok := v.(Freeable); ok {
		f.Release()
	}
}
