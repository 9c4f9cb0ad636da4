//go:build windows

package reactor

// Neither required backend (epoll, POSIX select) exists on Windows; an
// IOCP backend is the documented plug-in slot for this platform but is
// out of scope for this engine. Callers on Windows must supply a Backend
// of their own via WithBackend.
func newDefaultBackend(setSize int) (Backend, error) {
	return nil, NewErrBackendFault("no backend available on windows", nil)
}
