package fs

import (
	"errors"
	"os"
	"syscall"

	"github.com/DarkKowalski/tinyfs/internal/logging"
	"github.com/DarkKowalski/tinyfs/internal/passthrough"
)

var (
	errLogger = logging.GetLogger().WithPrefix("error")
)

// ToFuseError converts an operation error into the errno handed back to the
// kernel. The host errno carried by the error is preferred; errors without
// one fall back to the closest errno of their kind.
func ToFuseError(err error) error {
	if err == nil {
		return nil
	}

	var ptErr *passthrough.Error
	if errors.As(err, &ptErr) {
		errLogger.Trace("Converting operation error to FUSE error: %v", ptErr)
		if ptErr.Errno != 0 {
			return ptErr.Errno
		}
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}

	errLogger.Trace("Converting standard error to FUSE error: %v", err)
	switch {
	case errors.Is(err, passthrough.ErrNotFound), errors.Is(err, os.ErrNotExist):
		return syscall.ENOENT
	case errors.Is(err, passthrough.ErrPermissionDenied), errors.Is(err, os.ErrPermission):
		return syscall.EACCES
	case errors.Is(err, passthrough.ErrInvalidHandle):
		return syscall.EBADF
	default:
		errLogger.Debug("Unknown error type, returning EIO: %v", err)
		return syscall.EIO
	}
}

// errnoResult converts an operation error into the negated errno cgofuse
// expects, 0 on success.
func errnoResult(err error) int {
	if err == nil {
		return 0
	}
	return -int(ToFuseError(err).(syscall.Errno))
}
