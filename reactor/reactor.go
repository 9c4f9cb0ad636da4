// Package reactor implements the engine's single-threaded event loop: a
// Reactor multiplexes readiness on registered file descriptors with a list
// of time-driven callbacks, dispatching both from one goroutine per
// iteration. The polling backend (epoll on Linux, POSIX select elsewhere)
// is pluggable behind the Backend interface in backend.go.
package reactor

import (
	"sync/atomic"
	"time"

	"github.com/corvid-db/corvid/telemetry"
)

// Event mask bits, mirrored on the classic readable/writable/barrier
// event-loop design.
const (
	Readable = 1 << iota
	Writable
	Barrier
)

// ProcessEvents flags.
const (
	FileEvents = 1 << iota
	TimeEvents
	DontWait
	CallAfterSleep
)

const AllEvents = FileEvents | TimeEvents

// NoMore is returned by a TimeProc to indicate the timer should not be
// rescheduled; it fires its EventFinalizer (if any) and is then removed.
const NoMore = -1

// FileProc handles readiness on a registered descriptor. mask reports which
// bit (Readable or Writable) triggered this particular invocation.
type FileProc func(r *Reactor, fd int, clientData interface{}, mask int)

// TimeProc runs when a timer's deadline has arrived. The returned value is
// either NoMore or a delay in milliseconds until the next firing.
type TimeProc func(r *Reactor, id int64, clientData interface{}) int64

// EventFinalizer runs once, after a timer has fired its last TimeProc (NoMore
// returned) or been explicitly deleted.
type EventFinalizer func(r *Reactor, clientData interface{})

// BeforeSleepProc runs once per ProcessEvents iteration, either immediately
// before or immediately after the backend poll.
type BeforeSleepProc func(r *Reactor)

type fileEvent struct {
	mask       int
	readProc   FileProc
	writeProc  FileProc
	clientData interface{}
}

type timerEvent struct {
	id         int64
	when       time.Time
	proc       TimeProc
	finalizer  EventFinalizer
	clientData interface{}
	deleted    bool
	prev, next *timerEvent
}

// Reactor is the engine's event loop: one goroutine calls Main or
// repeatedly calls ProcessEvents; registration methods are only safe to
// call from that same goroutine, except Stop which may be called from
// any goroutine to request shutdown.
type Reactor struct {
	setSize  int
	maxFd    int
	registry []fileEvent

	timerHead   *timerEvent
	nextTimerID int64

	lastWallTime time.Time

	backend      Backend
	logger       telemetry.Logger
	timeProvider telemetry.TimeProvider

	beforeSleep BeforeSleepProc
	afterSleep  BeforeSleepProc

	stop     atomic.Bool
	dontWait atomic.Bool
}

// Option configures a Reactor at construction time.
type Option func(*Reactor)

// WithBackend overrides the platform-default polling Backend.
func WithBackend(b Backend) Option { return func(r *Reactor) { r.backend = b } }

// WithLogger attaches a structured logger; defaults to telemetry.NoOpLogger.
func WithLogger(l telemetry.Logger) Option { return func(r *Reactor) { r.logger = l } }

// WithTimeProvider overrides the clock source used for timer scheduling and
// wall-clock skew detection; defaults to telemetry.NewSystemTimeProvider.
func WithTimeProvider(tp telemetry.TimeProvider) Option {
	return func(r *Reactor) { r.timeProvider = tp }
}

// WithBeforeSleep registers a hook invoked once per iteration, right before
// the backend poll (when file events are in scope for that iteration).
func WithBeforeSleep(p BeforeSleepProc) Option { return func(r *Reactor) { r.beforeSleep = p } }

// WithAfterSleep registers a hook invoked once per iteration, right after
// the backend poll returns (only honored when CallAfterSleep is set).
func WithAfterSleep(p BeforeSleepProc) Option { return func(r *Reactor) { r.afterSleep = p } }

// New builds a Reactor able to track descriptors in [0, setSize).
func New(setSize int, opts ...Option) (*Reactor, error) {
	r := &Reactor{
		setSize:      setSize,
		maxFd:        -1,
		registry:     make([]fileEvent, setSize),
		logger:       telemetry.NoOpLogger{},
		timeProvider: telemetry.NewSystemTimeProvider(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.backend == nil {
		b, err := newDefaultBackend(setSize)
		if err != nil {
			return nil, err
		}
		r.backend = b
	}
	return r, nil
}

func (r *Reactor) now() time.Time {
	return time.Unix(0, r.timeProvider.Now())
}

// BackendName reports the active polling backend's name, e.g. "epoll".
func (r *Reactor) BackendName() string { return r.backend.Name() }

// Close releases the polling backend's resources.
func (r *Reactor) Close() error { return r.backend.Close() }

// Stop requests that Main return after its current iteration. Safe to call
// from any goroutine.
func (r *Reactor) Stop() { r.stop.Store(true) }

// SetDontWait forces every subsequent ProcessEvents call to poll
// non-blockingly, regardless of the flags it's given, until cleared.
func (r *Reactor) SetDontWait(v bool) { r.dontWait.Store(v) }

// RegisterFile arms proc for the bits set in mask on fd. Calling it again
// for the same fd with a different mask adds to, rather than replaces, the
// existing registration (mirroring separate read/write registration
// calls against one descriptor).
func (r *Reactor) RegisterFile(fd, mask int, proc FileProc, clientData interface{}) error {
	if fd < 0 || fd >= r.setSize {
		return NewErrFdOutOfRange(fd, r.setSize)
	}
	fe := &r.registry[fd]
	alreadyRegistered := fe.mask&(Readable|Writable) != 0
	newMask := fe.mask | mask
	if err := r.backend.Add(fd, newMask&(Readable|Writable), alreadyRegistered); err != nil {
		return err
	}
	if mask&Readable != 0 {
		fe.readProc = proc
	}
	if mask&Writable != 0 {
		fe.writeProc = proc
	}
	fe.clientData = clientData
	fe.mask = newMask
	if fd > r.maxFd {
		r.maxFd = fd
	}
	return nil
}

// UnregisterFile disarms the bits set in mask on fd.
func (r *Reactor) UnregisterFile(fd, mask int) {
	if fd < 0 || fd >= r.setSize {
		return
	}
	fe := &r.registry[fd]
	if fe.mask == 0 {
		return
	}
	newMask := fe.mask &^ mask
	remove := newMask&(Readable|Writable) == 0
	_ = r.backend.Del(fd, newMask&(Readable|Writable), remove)
	if mask&Readable != 0 {
		fe.readProc = nil
	}
	if mask&Writable != 0 {
		fe.writeProc = nil
	}
	fe.mask = newMask
	if remove {
		fe.clientData = nil
		if fd == r.maxFd {
			r.recomputeMaxFd()
		}
	}
}

func (r *Reactor) recomputeMaxFd() {
	for fd := r.maxFd - 1; fd >= 0; fd-- {
		if r.registry[fd].mask != 0 {
			r.maxFd = fd
			return
		}
	}
	r.maxFd = -1
}

// CreateTimer schedules proc to run after delay, returning an id usable
// with DeleteTimer. New timers are inserted at the head of the timer list;
// the list carries no deadline ordering.
func (r *Reactor) CreateTimer(delay time.Duration, proc TimeProc, clientData interface{}, finalizer EventFinalizer) int64 {
	id := r.nextTimerID
	r.nextTimerID++
	te := &timerEvent{
		id:         id,
		when:       r.now().Add(delay),
		proc:       proc,
		finalizer:  finalizer,
		clientData: clientData,
	}
	te.next = r.timerHead
	if r.timerHead != nil {
		r.timerHead.prev = te
	}
	r.timerHead = te
	return id
}

// DeleteTimer tombstones the timer with the given id; its finalizer (if
// any) runs on the next processTimers pass, and the node is unlinked at
// the end of that same pass.
func (r *Reactor) DeleteTimer(id int64) bool {
	for te := r.timerHead; te != nil; te = te.next {
		if te.id == id && !te.deleted {
			te.deleted = true
			return true
		}
	}
	return false
}

// ProcessEvents runs one iteration of the dispatch algorithm and returns the
// number of file and timer callbacks invoked. Unless flags carries DontWait
// or SetDontWait(true) is in effect, it blocks in the backend poll until
// the nearest pending timer is due, or indefinitely when no timer is
// pending.
func (r *Reactor) ProcessEvents(flags int) int {
	if flags&(TimeEvents|FileEvents) == 0 {
		return 0
	}
	if r.dontWait.Load() {
		flags |= DontWait
	}

	processed := 0

	if r.maxFd != -1 || (flags&TimeEvents != 0 && flags&DontWait == 0) {
		timeout := r.computeTimeout(flags)

		if r.beforeSleep != nil && flags&FileEvents != 0 {
			r.beforeSleep(r)
		}

		fired, err := r.backend.Poll(timeout)
		if err != nil {
			r.logger.Error("reactor: backend poll fault, aborting", "backend", r.backend.Name(), "err", err)
			panic(err)
		}

		if flags&CallAfterSleep != 0 && r.afterSleep != nil {
			r.afterSleep(r)
		}

		if flags&FileEvents != 0 {
			for _, fe := range fired {
				processed += r.dispatchFileEvent(fe)
			}
		}
	}

	if flags&TimeEvents != 0 {
		processed += r.processTimers()
	}

	return processed
}

// computeTimeout returns -1 for an indefinite block, 0 for a non-blocking
// poll, or the duration until the nearest pending timer.
func (r *Reactor) computeTimeout(flags int) time.Duration {
	if flags&DontWait != 0 {
		return 0
	}
	if flags&TimeEvents == 0 {
		return -1
	}
	nearest := r.nearestTimer()
	if nearest == nil {
		return -1
	}
	d := nearest.when.Sub(r.now())
	if d < 0 {
		d = 0
	}
	return d
}

func (r *Reactor) nearestTimer() *timerEvent {
	var nearest *timerEvent
	for te := r.timerHead; te != nil; te = te.next {
		if te.deleted {
			continue
		}
		if nearest == nil || te.when.Before(nearest.when) {
			nearest = te
		}
	}
	return nearest
}

// dispatchFileEvent invokes the handlers armed for a single ready
// descriptor. Under Barrier, a write-then-read order is used instead of the
// default read-then-write, and at most one invocation per armed bit runs.
func (r *Reactor) dispatchFileEvent(fired FiredEvent) int {
	processed := 0
	fe := &r.registry[fired.Fd]

	readReady := fe.mask&fired.Mask&Readable != 0 && fe.readProc != nil
	writeReady := fe.mask&fired.Mask&Writable != 0 && fe.writeProc != nil
	inverted := fe.mask&Barrier != 0 && readReady && writeReady

	if !inverted {
		if readReady {
			fe.readProc(r, fired.Fd, fe.clientData, Readable)
			processed++
		}
		fe = &r.registry[fired.Fd]
		if writeReady && fe.writeProc != nil {
			fe.writeProc(r, fired.Fd, fe.clientData, Writable)
			processed++
		}
		return processed
	}

	fe.writeProc(r, fired.Fd, fe.clientData, Writable)
	processed++
	fe = &r.registry[fired.Fd]
	if fe.readProc != nil {
		fe.readProc(r, fired.Fd, fe.clientData, Readable)
		processed++
	}
	return processed
}

// processTimers runs one pass over the timer list. If the wall clock has
// jumped backward, or forward by more than half an hour, since the
// previous pass, every live timer is treated as due exactly once; this
// protects periodic maintenance work (rehash steps, eviction sweeps) from
// stalling indefinitely after a system suspend/resume or clock adjustment.
func (r *Reactor) processTimers() int {
	processed := 0
	now := r.now()
	if r.lastWallTime.IsZero() {
		r.lastWallTime = now
	}
	skewed := now.Before(r.lastWallTime) || now.Sub(r.lastWallTime) > 30*time.Minute
	r.lastWallTime = now

	for te := r.timerHead; te != nil; te = te.next {
		if te.deleted {
			continue
		}
		if skewed || !te.when.After(now) {
			delay := te.proc(r, te.id, te.clientData)
			processed++
			if delay == NoMore {
				te.deleted = true
			} else {
				te.when = r.now().Add(time.Duration(delay) * time.Millisecond)
			}
		}
	}

	r.reapDeletedTimers()
	return processed
}

func (r *Reactor) reapDeletedTimers() {
	te := r.timerHead
	for te != nil {
		next := te.next
		if te.deleted {
			if te.finalizer != nil {
				te.finalizer(r, te.clientData)
			}
			if te.prev != nil {
				te.prev.next = te.next
			} else {
				r.timerHead = te.next
			}
			if te.next != nil {
				te.next.prev = te.prev
			}
		}
		te = next
	}
}

// Main runs ProcessEvents in a loop until Stop is called.
func (r *Reactor) Main() {
	for !r.stop.Load() {
		r.ProcessEvents(AllEvents | CallAfterSleep)
	}
}
