//go:build !windows

package reactor

import (
	"time"

	"golang.org/x/sys/unix"
)

// selectMaxFd mirrors the classic FD_SETSIZE limit of the POSIX select(2)
// fallback: its fixed-size bitsets cannot address a descriptor past this.
const selectMaxFd = 1024

type selectBackend struct {
	setSize int
	masks   []int
	maxFd   int
}

func newSelectBackend(setSize int) (Backend, error) {
	if setSize > selectMaxFd {
		return nil, NewErrSetSizeTooLarge(setSize)
	}
	return &selectBackend{setSize: setSize, masks: make([]int, setSize), maxFd: -1}, nil
}

func (b *selectBackend) Add(fd, mask int, _ bool) error {
	if fd >= b.setSize {
		return NewErrFdOutOfRange(fd, b.setSize)
	}
	b.masks[fd] = mask
	if fd > b.maxFd {
		b.maxFd = fd
	}
	return nil
}

func (b *selectBackend) Del(fd, mask int, remove bool) error {
	if fd >= b.setSize {
		return nil
	}
	if remove {
		b.masks[fd] = 0
	} else {
		b.masks[fd] = mask
	}
	return nil
}

func (b *selectBackend) Resize(setSize int) error {
	if setSize > selectMaxFd {
		return NewErrSetSizeTooLarge(setSize)
	}
	masks := make([]int, setSize)
	copy(masks, b.masks)
	b.masks = masks
	b.setSize = setSize
	return nil
}

func (b *selectBackend) Poll(timeout time.Duration) ([]FiredEvent, error) {
	var rfds, wfds unix.FdSet
	fdZero(&rfds)
	fdZero(&wfds)
	for fd, mask := range b.masks {
		if mask&Readable != 0 {
			fdSet(&rfds, fd)
		}
		if mask&Writable != 0 {
			fdSet(&wfds, fd)
		}
	}

	var tv *unix.Timeval
	if timeout >= 0 {
		t := unix.NsecToTimeval(timeout.Nanoseconds())
		tv = &t
	}

	n, err := unix.Select(b.maxFd+1, &rfds, &wfds, nil, tv)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, NewErrBackendFault("select", err)
	}
	if n == 0 {
		return nil, nil
	}

	fired := make([]FiredEvent, 0, n)
	for fd, mask := range b.masks {
		if mask == 0 {
			continue
		}
		m := 0
		if mask&Readable != 0 && fdIsSet(&rfds, fd) {
			m |= Readable
		}
		if mask&Writable != 0 && fdIsSet(&wfds, fd) {
			m |= Writable
		}
		if m != 0 {
			fired = append(fired, FiredEvent{Fd: fd, Mask: m})
		}
	}
	return fired, nil
}

func (b *selectBackend) Name() string { return "select" }

func (b *selectBackend) Close() error { return nil }

func fdZero(set *unix.FdSet) {
	for i := range set.Bits {
		set.Bits[i] = 0
	}
}

func fdSet(set *unix.FdSet, fd int) {
	set.Bits[fd/64] |= 1 << (uint(fd) % 64)
}

func fdIsSet(set *unix.FdSet, fd int) bool {
	return set.Bits[fd/64]&(1<<(uint(fd)%64)) != 0
}
