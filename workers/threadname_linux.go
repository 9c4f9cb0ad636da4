//go:build linux

package workers

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// setThreadName gives the calling OS thread a name visible in /proc and to
// tools like top -H, matching the C source's redis_set_thread_title. The
// caller must have already called runtime.LockOSThread. Best-effort: a
// failure here is not worth surfacing, since it affects diagnostics only.
func setThreadName(name string) {
	if len(name) > 15 {
		name = name[:15]
	}
	buf := append([]byte(name), 0)
	_ = unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(&buf[0])), 0, 0, 0)
}
