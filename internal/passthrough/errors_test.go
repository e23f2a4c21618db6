package passthrough

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		errno syscall.Errno
		kind  error
	}{
		{syscall.ENOENT, ErrNotFound},
		{syscall.ENOTDIR, ErrNotADirectory},
		{syscall.EISDIR, ErrIsADirectory},
		{syscall.EACCES, ErrPermissionDenied},
		{syscall.EPERM, ErrPermissionDenied},
		{syscall.EEXIST, ErrAlreadyExists},
		{syscall.ENOTEMPTY, ErrNotEmpty},
		{syscall.EBADF, ErrInvalidHandle},
		{syscall.EIO, ErrHostIO},
		{syscall.EXDEV, ErrHostIO},
		{syscall.ENOSPC, ErrHostIO},
	}

	for _, tt := range tests {
		t.Run(tt.errno.Error(), func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.errno))
		})
	}
}

func TestHostError(t *testing.T) {
	t.Run("nil passes through", func(t *testing.T) {
		assert.NoError(t, hostError(OpRead, "/f", nil))
	})

	t.Run("errno is kept", func(t *testing.T) {
		cause := &os.PathError{Op: "lstat", Path: "/srv/x", Err: syscall.EXDEV}
		err := hostError(OpRename, "/x", cause)

		var ptErr *Error
		require.ErrorAs(t, err, &ptErr)
		assert.Equal(t, OpRename, ptErr.Op)
		assert.Equal(t, "/x", ptErr.Path)
		assert.Equal(t, ErrHostIO, ptErr.Kind)
		assert.Equal(t, syscall.EXDEV, ptErr.Errno)
		assert.ErrorIs(t, err, syscall.EXDEV)

		var pathErr *os.PathError
		require.ErrorAs(t, err, &pathErr)
		assert.Equal(t, "/srv/x", pathErr.Path)
	})

	t.Run("missing errno becomes EIO", func(t *testing.T) {
		err := hostError(OpWrite, "/f", errors.New("disk on fire"))
		assert.ErrorIs(t, err, ErrHostIO)
		assert.Equal(t, syscall.EIO, Errno(err))
	})

	t.Run("wrapped errno is found", func(t *testing.T) {
		err := hostError(OpUnlink, "/f", fmt.Errorf("remove: %w", syscall.ENOENT))
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})
}

func TestErrorMessage(t *testing.T) {
	err := hostError(OpGetattr, "/missing", &os.PathError{Op: "lstat", Path: "/srv/missing", Err: syscall.ENOENT})
	assert.Equal(t, "operation getattr on /missing failed: lstat /srv/missing: no such file or directory", err.Error())

	err = newError(OpRead, "/f", ErrInvalidHandle, syscall.EBADF)
	assert.Equal(t, "operation read on /f failed: invalid handle", err.Error())

	err = newError(OpStatfs, "", ErrHostIO, syscall.EIO)
	assert.Equal(t, "operation statfs failed: host i/o error", err.Error())
}

func TestErrno(t *testing.T) {
	assert.Equal(t, syscall.EBADF, Errno(newError(OpRead, "/f", ErrInvalidHandle, syscall.EBADF)))
	assert.Equal(t, syscall.ENOSPC, Errno(fmt.Errorf("wrapped: %w", syscall.ENOSPC)))
	assert.Equal(t, syscall.EIO, Errno(errors.New("plain")))
}
