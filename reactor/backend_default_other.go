//go:build !linux && !windows

package reactor

// On non-Linux Unixes the scalable epoll backend has no equivalent wired
// into this package (kqueue and event-ports are noted in the spec as
// optional plug-in equivalents, not implemented here), so the POSIX
// select(2) fallback is the default.
func newDefaultBackend(setSize int) (Backend, error) { return newSelectBackend(setSize) }
