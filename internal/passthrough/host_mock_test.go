package passthrough

import (
	"errors"
	"os"
	"syscall"
	"testing"

	"github.com/DarkKowalski/tinyfs/internal/host"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// mockHost forwards to the real host except for the calls a test overrides.
type mockHost struct {
	host.OS
	mock.Mock
}

func (m *mockHost) Rename(oldpath, newpath string) error {
	args := m.Called(oldpath, newpath)
	return args.Error(0)
}

func (m *mockHost) Lstat(path string, stat *unix.Stat_t) error {
	args := m.Called(path, stat)
	return args.Error(0)
}

func (m *mockHost) ReadDirNames(path string) ([]string, error) {
	args := m.Called(path)
	names, _ := args.Get(0).([]string)
	return names, args.Error(1)
}

func TestHostFailuresPropagate(t *testing.T) {
	root := t.TempDir()
	h := &mockHost{}
	pfs, err := New(root, h, nil)
	require.NoError(t, err)

	t.Run("rename failure is reported without rollback", func(t *testing.T) {
		writeHostFile(t, root, "a", "a")
		h.On("Rename", root+"/a", root+"/b").
			Return(&os.LinkError{Op: "rename", Old: root + "/a", New: root + "/b", Err: syscall.EPERM}).
			Once()

		err := pfs.Rename("/a", "/b")
		assert.ErrorIs(t, err, ErrPermissionDenied)
		assert.Equal(t, syscall.EPERM, Errno(err))

		_, statErr := os.Stat(root + "/a")
		assert.NoError(t, statErr)
	})

	t.Run("errors without errno become EIO", func(t *testing.T) {
		h.On("Lstat", root+"/x", mock.Anything).Return(errors.New("transport closed")).Once()

		_, err := pfs.Getattr("/x")
		assert.ErrorIs(t, err, ErrHostIO)
		assert.Equal(t, syscall.EIO, Errno(err))
	})

	t.Run("readdir keeps host order", func(t *testing.T) {
		h.On("ReadDirNames", root+"/d").Return([]string{"z", "a", "m"}, nil).Once()

		entries, err := pfs.Readdir("/d")
		require.NoError(t, err)
		assert.Equal(t, []string{".", "..", "z", "a", "m"}, entries)
	})

	t.Run("readdir failure", func(t *testing.T) {
		h.On("ReadDirNames", root+"/gone").
			Return(nil, &os.PathError{Op: "open", Path: root + "/gone", Err: syscall.ENOENT}).
			Once()

		_, err := pfs.Readdir("/gone")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	h.AssertExpectations(t)
}
