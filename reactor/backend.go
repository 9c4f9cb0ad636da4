package reactor

import "time"

// FiredEvent is one ready descriptor returned by a Backend's Poll.
type FiredEvent struct {
	Fd   int
	Mask int
}

// Backend is the pluggable OS polling strategy behind a Reactor. Two
// backends are required by the spec this engine implements: a scalable
// edge-notification backend (epoll, Linux-only) and a POSIX select-style
// fallback available on every other Unix. Both are wired in by platform
// build tags; newDefaultBackend picks the right one for the running OS.
type Backend interface {
	// Add sets fd's active event mask to mask. alreadyRegistered tells
	// the backend whether fd previously had a nonzero mask, so an
	// epoll-style backend can choose ADD vs MOD.
	Add(fd, mask int, alreadyRegistered bool) error

	// Del updates fd's active mask after removing some bits. If remove
	// is true the resulting mask is empty and fd should be fully
	// unregistered from the backend; otherwise mask is the new,
	// still-nonempty active mask.
	Del(fd, mask int, remove bool) error

	// Resize grows or shrinks the backend's descriptor capacity. It
	// fails with ErrSetSizeTooLarge if the backend cannot accommodate
	// setSize.
	Resize(setSize int) error

	// Poll blocks for up to timeout (or indefinitely if timeout < 0)
	// waiting for ready descriptors.
	Poll(timeout time.Duration) ([]FiredEvent, error)

	// Name identifies the backend, e.g. "epoll" or "select".
	Name() string

	// Close releases backend resources.
	Close() error
}
