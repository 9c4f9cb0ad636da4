// Package workers implements the engine's background worker pool: one
// goroutine per job class drains a FIFO queue of off-loaded work (closing
// files, fsyncing the append log, freeing large values) so the core
// single-threaded event loop never blocks on it.
package workers

// JobClass identifies which queue and worker goroutine a Job belongs to.
type JobClass int

const (
	// CloseFile closes a file descriptor; close failures are diagnostic
	// only and never surface to the submitter.
	CloseFile JobClass = iota
	// FsyncAppendLog fsyncs a file descriptor; failures are recorded and
	// retrievable via Pool.LastFsyncError.
	FsyncAppendLog
	// LazyFree releases an object, a pair of hash tables, or a
	// skiplist-shaped value off the core goroutine, chosen by which of
	// Arg1/Arg2/Arg3 are set.
	LazyFree

	numJobClasses
)

func (c JobClass) String() string {
	switch c {
	case CloseFile:
		return "close_file"
	case FsyncAppendLog:
		return "fsync_append_log"
	case LazyFree:
		return "lazy_free"
	default:
		return "unknown"
	}
}

// Freeable is the capability boxed values, tables, and other bulk
// structures implement so LazyFree can release them without knowing their
// concrete type.
type Freeable interface {
	Release()
}

// Job is a unit of work submitted to a single class's queue. Which of
// Arg1/Arg2/Arg3 are populated, and in what combination, determines what a
// LazyFree job actually does; CloseFile and FsyncAppendLog only ever use
// Arg1, holding a file descriptor.
type Job struct {
	Class JobClass
	Arg1  interface{}
	Arg2  interface{}
	Arg3  interface{}
}
