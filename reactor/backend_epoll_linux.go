//go:build linux

package reactor

import (
	"time"

	"golang.org/x/sys/unix"
)

// epollMaxEvents bounds how many descriptors the epoll backend will
// preallocate a ready-buffer for; Resize beyond this fails with
// ErrSetSizeTooLarge.
const epollMaxEvents = 1 << 20

type epollBackend struct {
	epfd   int
	events []unix.EpollEvent
}

func newEpollBackend(setSize int) (Backend, error) {
	if setSize > epollMaxEvents {
		return nil, NewErrSetSizeTooLarge(setSize)
	}
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, NewErrBackendFault("epoll_create1", err)
	}
	return &epollBackend{epfd: fd, events: make([]unix.EpollEvent, setSize)}, nil
}

func epollMaskFor(mask int) uint32 {
	var m uint32
	if mask&Readable != 0 {
		m |= unix.EPOLLIN
	}
	if mask&Writable != 0 {
		m |= unix.EPOLLOUT
	}
	return m
}

func (b *epollBackend) Add(fd, mask int, alreadyRegistered bool) error {
	ev := unix.EpollEvent{Fd: int32(fd), Events: epollMaskFor(mask)}
	op := unix.EPOLL_CTL_ADD
	if alreadyRegistered {
		op = unix.EPOLL_CTL_MOD
	}
	if err := unix.EpollCtl(b.epfd, op, fd, &ev); err != nil {
		return NewErrBackendFault("epoll_ctl", err)
	}
	return nil
}

func (b *epollBackend) Del(fd, mask int, remove bool) error {
	if remove {
		if err := unix.EpollCtl(b.epfd, unix.EPOLL_CTL_DEL, fd, &unix.EpollEvent{}); err != nil {
			return NewErrBackendFault("epoll_ctl del", err)
		}
		return nil
	}
	ev := unix.EpollEvent{Fd: int32(fd), Events: epollMaskFor(mask)}
	if err := unix.EpollCtl(b.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return NewErrBackendFault("epoll_ctl mod", err)
	}
	return nil
}

func (b *epollBackend) Resize(setSize int) error {
	if setSize > epollMaxEvents {
		return NewErrSetSizeTooLarge(setSize)
	}
	b.events = make([]unix.EpollEvent, setSize)
	return nil
}

func (b *epollBackend) Poll(timeout time.Duration) ([]FiredEvent, error) {
	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
	}
	n, err := unix.EpollWait(b.epfd, b.events, ms)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, NewErrBackendFault("epoll_wait", err)
	}
	fired := make([]FiredEvent, 0, n)
	for i := 0; i < n; i++ {
		ev := b.events[i]
		mask := 0
		if ev.Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
			mask |= Readable
		}
		if ev.Events&(unix.EPOLLOUT|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
			mask |= Writable
		}
		if mask != 0 {
			fired = append(fired, FiredEvent{Fd: int(ev.Fd), Mask: mask})
		}
	}
	return fired, nil
}

func (b *epollBackend) Name() string { return "epoll" }

func (b *epollBackend) Close() error { return unix.Close(b.epfd) }

func newDefaultBackend(setSize int) (Backend, error) { return newEpollBackend(setSize) }
