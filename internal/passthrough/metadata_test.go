package passthrough

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestGetattr(t *testing.T) {
	pfs, root, rec := setupTestFS(t)
	full := writeHostFile(t, root, "file.txt", "some content")

	t.Run("regular file", func(t *testing.T) {
		attr, err := pfs.Getattr("/file.txt")
		require.NoError(t, err)

		info, err := os.Lstat(full)
		require.NoError(t, err)
		st := info.Sys().(*syscall.Stat_t)

		assert.Equal(t, int64(len("some content")), attr.Size)
		assert.Equal(t, st.Mode, attr.Mode)
		assert.Equal(t, st.Uid, attr.Uid)
		assert.Equal(t, st.Gid, attr.Gid)
		assert.Equal(t, uint64(1), attr.Nlink)
		assert.True(t, attr.Mtime.Equal(info.ModTime()))
		assert.False(t, attr.Atime.IsZero())
		assert.False(t, attr.Ctime.IsZero())
		assert.False(t, attr.IsDir())
		assert.Equal(t, OpGetattr, rec.last().Op)
	})

	t.Run("root is a directory", func(t *testing.T) {
		attr, err := pfs.Getattr("/")
		require.NoError(t, err)
		assert.True(t, attr.IsDir())
	})

	t.Run("symlink is not followed", func(t *testing.T) {
		require.NoError(t, os.Symlink("file.txt", filepath.Join(root, "link")))

		attr, err := pfs.Getattr("/link")
		require.NoError(t, err)
		assert.True(t, attr.IsSymlink())
		assert.Equal(t, int64(len("file.txt")), attr.Size)
	})

	t.Run("dangling symlink still has attributes", func(t *testing.T) {
		require.NoError(t, os.Symlink("nowhere", filepath.Join(root, "dangling")))

		attr, err := pfs.Getattr("/dangling")
		require.NoError(t, err)
		assert.True(t, attr.IsSymlink())
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := pfs.Getattr("/does-not-exist")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, err, syscall.ENOENT)
		assert.ErrorIs(t, err, fs.ErrNotExist)
		assert.Equal(t, syscall.ENOENT, Errno(err))

		var ptErr *Error
		require.ErrorAs(t, err, &ptErr)
		assert.Equal(t, OpGetattr, ptErr.Op)
		assert.Equal(t, "/does-not-exist", ptErr.Path)
		assert.Equal(t, err, rec.last().Err)
	})

	t.Run("path through a file", func(t *testing.T) {
		_, err := pfs.Getattr("/file.txt/child")
		assert.ErrorIs(t, err, ErrNotADirectory)
	})
}

func TestChmod(t *testing.T) {
	pfs, root, _ := setupTestFS(t)
	writeHostFile(t, root, "f", "x")

	require.NoError(t, pfs.Chmod("/f", 0o600))

	attr, err := pfs.Getattr("/f")
	require.NoError(t, err)
	assert.Equal(t, uint32(0o600), attr.Mode&0o7777)
	assert.Equal(t, uint32(unix.S_IFREG), attr.Mode&unix.S_IFMT)

	err = pfs.Chmod("/missing", 0o600)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChown(t *testing.T) {
	pfs, root, _ := setupTestFS(t)
	writeHostFile(t, root, "f", "x")

	before, err := pfs.Getattr("/f")
	require.NoError(t, err)

	// changing to the current owner is allowed for everyone
	require.NoError(t, pfs.Chown("/f", int(before.Uid), int(before.Gid)))
	require.NoError(t, pfs.Chown("/f", -1, -1))

	after, err := pfs.Getattr("/f")
	require.NoError(t, err)
	assert.Equal(t, before.Uid, after.Uid)
	assert.Equal(t, before.Gid, after.Gid)

	assert.ErrorIs(t, pfs.Chown("/missing", -1, -1), ErrNotFound)

	if os.Geteuid() != 0 {
		err = pfs.Chown("/f", 0, 0)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	}
}

func TestUtimens(t *testing.T) {
	pfs, root, _ := setupTestFS(t)
	writeHostFile(t, root, "f", "x")

	atime := time.Date(2001, 2, 3, 4, 5, 6, 0, time.UTC)
	mtime := time.Date(2002, 3, 4, 5, 6, 7, 0, time.UTC)

	t.Run("explicit times", func(t *testing.T) {
		times := []unix.Timespec{
			unix.NsecToTimespec(atime.UnixNano()),
			unix.NsecToTimespec(mtime.UnixNano()),
		}
		require.NoError(t, pfs.Utimens("/f", times))

		attr, err := pfs.Getattr("/f")
		require.NoError(t, err)
		assert.True(t, attr.Atime.Equal(atime), "atime %v", attr.Atime)
		assert.True(t, attr.Mtime.Equal(mtime), "mtime %v", attr.Mtime)
	})

	t.Run("omit keeps a timestamp", func(t *testing.T) {
		times := []unix.Timespec{
			{Nsec: unix.UTIME_NOW},
			{Nsec: unix.UTIME_OMIT},
		}
		require.NoError(t, pfs.Utimens("/f", times))

		attr, err := pfs.Getattr("/f")
		require.NoError(t, err)
		assert.True(t, attr.Mtime.Equal(mtime))
		assert.True(t, attr.Atime.After(atime))
	})

	t.Run("nil means now", func(t *testing.T) {
		require.NoError(t, pfs.Utimens("/f", nil))

		attr, err := pfs.Getattr("/f")
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now(), attr.Mtime, time.Minute)
	})

	t.Run("missing path", func(t *testing.T) {
		assert.ErrorIs(t, pfs.Utimens("/missing", nil), ErrNotFound)
	})
}

func TestAccess(t *testing.T) {
	pfs, root, _ := setupTestFS(t)
	writeHostFile(t, root, "f", "x")

	assert.NoError(t, pfs.Access("/f", unix.F_OK))
	assert.NoError(t, pfs.Access("/f", unix.R_OK))

	err := pfs.Access("/missing", unix.F_OK)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, syscall.EACCES, Errno(err))
	assert.False(t, errors.Is(err, ErrNotFound))

	if os.Geteuid() != 0 {
		require.NoError(t, os.Chmod(filepath.Join(root, "f"), 0o400))
		assert.ErrorIs(t, pfs.Access("/f", unix.W_OK), ErrPermissionDenied)
	}
}

func TestStatfs(t *testing.T) {
	pfs, root, _ := setupTestFS(t)

	stat, err := pfs.Statfs("/")
	require.NoError(t, err)

	var st unix.Statfs_t
	require.NoError(t, unix.Statfs(root, &st))

	assert.Equal(t, st.Blocks, stat.Blocks)
	assert.Equal(t, uint64(st.Bsize), stat.Bsize)
	assert.Equal(t, uint64(st.Frsize), stat.Frsize)
	assert.Equal(t, uint64(st.Namelen), stat.Namemax)
	assert.Equal(t, st.Files, stat.Files)
	assert.Equal(t, stat.Ffree, stat.Favail)
	assert.NotZero(t, stat.Namemax)
	assert.LessOrEqual(t, stat.Bavail, stat.Blocks)

	_, err = pfs.Statfs("/missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
