// Package passthrough implements the operation table of a passthrough
// filesystem: every call names a virtual path inside the mount, which is
// resolved beneath the root directory and forwarded to the host filesystem.
//
// The table keeps no caches. Apart from the immutable MountContext its only
// state is the HandleTable of files opened through open and create.
package passthrough

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// HostFS is the set of host filesystem calls the operation table forwards
// to. Errors should carry the host errno (as *os.PathError and friends do).
type HostFS interface {
	Access(path string, mode uint32) error
	Lstat(path string, stat *unix.Stat_t) error
	Statfs(path string, buf *unix.Statfs_t) error
	Chmod(path string, mode uint32) error
	Chown(path string, uid, gid int) error
	UtimesNano(path string, times []unix.Timespec) error
	ReadDirNames(path string) ([]string, error)
	Mkdir(path string, mode uint32) error
	Rmdir(path string) error
	Unlink(path string) error
	Mknod(path string, mode uint32, dev int) error
	Symlink(target, linkpath string) error
	Readlink(path string) (string, error)
	Link(oldpath, newpath string) error
	Rename(oldpath, newpath string) error
	Open(path string, flags int, mode uint32) (*os.File, error)
}

// Operations is the fixed operation table a kernel bridge dispatches to.
type Operations interface {
	Access(path string, mode uint32) error
	Chmod(path string, mode uint32) error
	Chown(path string, uid, gid int) error
	Getattr(path string) (Attr, error)
	Readdir(path string) ([]string, error)
	Readlink(path string) (string, error)
	Mknod(path string, mode uint32, dev int) error
	Rmdir(path string) error
	Mkdir(path string, mode uint32) error
	Statfs(path string) (StatFS, error)
	Unlink(path string) error
	Symlink(target, linkPath string) error
	Rename(oldPath, newPath string) error
	Link(existingPath, newPath string) error
	Utimens(path string, times []unix.Timespec) error
	Open(path string, flags int) (Handle, error)
	Create(path string, mode uint32) (Handle, error)
	Read(path string, length int, offset int64, h Handle) ([]byte, error)
	Write(path string, buf []byte, offset int64, h Handle) (int, error)
	Truncate(path string, length int64) error
	Flush(path string, h Handle) error
	Release(path string, h Handle) error
	Fsync(path string, datasync bool, h Handle) error
}

// Attr is the attribute record returned by Getattr.
type Attr struct {
	Atime time.Time
	Ctime time.Time
	Gid   uint32
	Mode  uint32 // type and permission bits as in st_mode
	Mtime time.Time
	Nlink uint64
	Size  int64
	Uid   uint32
}

// IsDir reports whether the record describes a directory.
func (a Attr) IsDir() bool {
	return a.Mode&unix.S_IFMT == unix.S_IFDIR
}

// IsSymlink reports whether the record describes a symbolic link.
func (a Attr) IsSymlink() bool {
	return a.Mode&unix.S_IFMT == unix.S_IFLNK
}

// StatFS is the filesystem capacity record returned by Statfs.
type StatFS struct {
	Bavail  uint64 // blocks available to unprivileged users
	Bfree   uint64
	Blocks  uint64
	Bsize   uint64
	Favail  uint64 // inodes available to unprivileged users
	Ffree   uint64
	Files   uint64
	Flag    uint64
	Frsize  uint64
	Namemax uint64
}

// FS is the passthrough operation table.
type FS struct {
	mount   *MountContext
	host    HostFS
	handles *HandleTable
	tracer  Tracer
}

var _ Operations = (*FS)(nil)

// New creates an operation table rooted at root. A nil tracer disables
// tracing.
func New(root string, host HostFS, tracer Tracer) (*FS, error) {
	if host == nil {
		return nil, fmt.Errorf("host filesystem must not be nil")
	}
	mc, err := NewMountContext(root)
	if err != nil {
		return nil, err
	}
	return &FS{
		mount:   mc,
		host:    host,
		handles: NewHandleTable(),
		tracer:  tracer,
	}, nil
}

// Root returns the absolute root directory.
func (fs *FS) Root() string {
	return fs.mount.Root()
}

// Resolve maps a virtual path to its host path.
func (fs *FS) Resolve(virtualPath string) string {
	return fs.mount.Resolve(virtualPath)
}

// OpenHandles returns the number of handles currently open.
func (fs *FS) OpenHandles() int {
	return fs.handles.Len()
}

// observe reports a finished operation to the tracer. It is deferred with
// pointers so it sees the final byte count and error.
func (fs *FS) observe(op, path string, start time.Time, n *int, err *error) {
	if fs.tracer == nil {
		return
	}
	ev := Event{
		Op:       op,
		Path:     path,
		Start:    start,
		Duration: time.Since(start),
		Err:      *err,
	}
	if n != nil {
		ev.Bytes = *n
	}
	fs.tracer.Trace(ev)
}
