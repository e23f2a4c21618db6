package passthrough

import (
	"errors"
	"fmt"
	"syscall"
)

var (
	// ErrNotFound indicates the resolved path does not exist on the host
	ErrNotFound = errors.New("not found")

	// ErrNotADirectory indicates a directory was expected
	ErrNotADirectory = errors.New("not a directory")

	// ErrIsADirectory indicates a non-directory was expected
	ErrIsADirectory = errors.New("is a directory")

	// ErrPermissionDenied indicates a host access or privilege check failed
	ErrPermissionDenied = errors.New("permission denied")

	// ErrAlreadyExists indicates the target of a creation already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrNotEmpty indicates removal of a non-empty directory
	ErrNotEmpty = errors.New("directory not empty")

	// ErrInvalidHandle indicates a handle that is not currently open
	ErrInvalidHandle = errors.New("invalid handle")

	// ErrHostIO covers every other host filesystem failure
	ErrHostIO = errors.New("host i/o error")
)

// Error describes a failed operation. Kind is one of the sentinel errors
// above, Errno the host error code handed back to the kernel bridge, and Err
// the host error the failure originated from, if any.
type Error struct {
	Op    string        // Operation that failed (e.g., "getattr", "read")
	Path  string        // Virtual path the operation was invoked with
	Kind  error         // One of the Err* sentinels
	Errno syscall.Errno // Host error code
	Err   error         // Underlying host error, nil when synthesized
}

// Error implements the error interface, providing a formatted error message
func (e *Error) Error() string {
	cause := e.Err
	if cause == nil {
		cause = e.Kind
	}
	if e.Path == "" {
		return fmt.Sprintf("operation %s failed: %v", e.Op, cause)
	}
	return fmt.Sprintf("operation %s on %s failed: %v", e.Op, e.Path, cause)
}

// Unwrap exposes the kind, the errno and the host error to errors.Is/As.
func (e *Error) Unwrap() []error {
	errs := []error{e.Kind, e.Errno}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

var errnoKinds = map[syscall.Errno]error{
	syscall.ENOENT:    ErrNotFound,
	syscall.ENOTDIR:   ErrNotADirectory,
	syscall.EISDIR:    ErrIsADirectory,
	syscall.EACCES:    ErrPermissionDenied,
	syscall.EPERM:     ErrPermissionDenied,
	syscall.EEXIST:    ErrAlreadyExists,
	syscall.ENOTEMPTY: ErrNotEmpty,
	syscall.EBADF:     ErrInvalidHandle,
}

// KindOf returns the error kind matching a host errno.
func KindOf(errno syscall.Errno) error {
	if kind, ok := errnoKinds[errno]; ok {
		return kind
	}
	return ErrHostIO
}

// hostError translates a host failure into an *Error. Failures that carry no
// errno are reported as EIO.
func hostError(op, path string, err error) error {
	if err == nil {
		return nil
	}

	errno := syscall.EIO
	var hostErrno syscall.Errno
	if errors.As(err, &hostErrno) {
		errno = hostErrno
	}

	return &Error{
		Op:    op,
		Path:  path,
		Kind:  KindOf(errno),
		Errno: errno,
		Err:   err,
	}
}

// newError builds an *Error for conditions detected by the operation table
// itself rather than reported by the host.
func newError(op, path string, kind error, errno syscall.Errno) error {
	return &Error{
		Op:    op,
		Path:  path,
		Kind:  kind,
		Errno: errno,
	}
}

// Errno extracts the host error code from err, EIO when none is carried.
func Errno(err error) syscall.Errno {
	var ptErr *Error
	if errors.As(err, &ptErr) {
		return ptErr.Errno
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return syscall.EIO
}

// Common operation names for consistent logging and error reporting
const (
	OpAccess   = "access"
	OpChmod    = "chmod"
	OpChown    = "chown"
	OpGetattr  = "getattr"
	OpReaddir  = "readdir"
	OpReadlink = "readlink"
	OpMknod    = "mknod"
	OpRmdir    = "rmdir"
	OpMkdir    = "mkdir"
	OpStatfs   = "statfs"
	OpUnlink   = "unlink"
	OpSymlink  = "symlink"
	OpRename   = "rename"
	OpLink     = "link"
	OpUtimens  = "utimens"
	OpOpen     = "open"
	OpCreate   = "create"
	OpRead     = "read"
	OpWrite    = "write"
	OpTruncate = "truncate"
	OpFlush    = "flush"
	OpRelease  = "release"
	OpFsync    = "fsync"
)
