package reactor

import "github.com/agilira/go-errors"

// Error codes for reactor operations.
const (
	ErrCodeFdOutOfRange   errors.ErrorCode = "CORVID_REACTOR_FD_OUT_OF_RANGE"
	ErrCodeSetSizeTooLarge errors.ErrorCode = "CORVID_REACTOR_SET_SIZE_TOO_LARGE"
	ErrCodeBackendFault   errors.ErrorCode = "CORVID_REACTOR_BACKEND_FAULT"
)

// NewErrFdOutOfRange reports that fd is outside [0, setSize).
func NewErrFdOutOfRange(fd, setSize int) error {
	return errors.NewWithContext(ErrCodeFdOutOfRange, "file descriptor out of range", map[string]interface{}{
		"fd":       fd,
		"set_size": setSize,
	})
}

// NewErrSetSizeTooLarge reports that the backend cannot accommodate the
// requested descriptor capacity.
func NewErrSetSizeTooLarge(setSize int) error {
	return errors.NewWithField(ErrCodeSetSizeTooLarge, "backend cannot accommodate set size", "set_size", setSize)
}

// NewErrBackendFault wraps a syscall-level polling backend failure. The
// backends treat EINTR as an empty poll rather than a fault; ProcessEvents
// panics with any BackendFault a backend's Poll returns.
func NewErrBackendFault(op string, cause error) error {
	if cause == nil {
		return errors.NewWithField(ErrCodeBackendFault, "polling backend fault", "op", op)
	}
	return errors.Wrap(cause, ErrCodeBackendFault, "polling backend fault").WithContext("op", op)
}

// IsBackendFault reports whether err is a backend fault.
func IsBackendFault(err error) bool { return errors.HasCode(err, ErrCodeBackendFault) }
