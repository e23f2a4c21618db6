//go:build cgofuse

package fs

import (
	"context"
	"errors"
	"fmt"

	"github.com/DarkKowalski/tinyfs/internal/logging"
	"github.com/DarkKowalski/tinyfs/internal/passthrough"

	"github.com/winfsp/cgofuse/fuse"
	"golang.org/x/sys/unix"
)

var (
	cgoLogger = logging.GetLogger().WithPrefix("cgofuse")
)

// noOwner is how libfuse passes an unchanged uid or gid.
const noOwner = ^uint32(0)

// CgoFS exposes a passthrough operation table through libfuse's path-based
// API. Every callback forwards directly to the table.
type CgoFS struct {
	fuse.FileSystemBase
	ops passthrough.Operations
}

// NewCgoFS creates a cgofuse filesystem serving ops.
func NewCgoFS(ops passthrough.Operations) *CgoFS {
	return &CgoFS{ops: ops}
}

// Statfs gets filesystem statistics.
func (c *CgoFS) Statfs(path string, stat *fuse.Statfs_t) int {
	st, err := c.ops.Statfs(path)
	if err != nil {
		return errnoResult(err)
	}

	stat.Bsize = st.Bsize
	stat.Frsize = st.Frsize
	stat.Blocks = st.Blocks
	stat.Bfree = st.Bfree
	stat.Bavail = st.Bavail
	stat.Files = st.Files
	stat.Ffree = st.Ffree
	stat.Favail = st.Favail
	stat.Flag = st.Flag
	stat.Namemax = st.Namemax
	return 0
}

// Mknod creates a file node.
func (c *CgoFS) Mknod(path string, mode uint32, dev uint64) int {
	return errnoResult(c.ops.Mknod(path, mode, int(dev)))
}

// Mkdir creates a directory.
func (c *CgoFS) Mkdir(path string, mode uint32) int {
	return errnoResult(c.ops.Mkdir(path, mode))
}

// Unlink removes a file.
func (c *CgoFS) Unlink(path string) int {
	return errnoResult(c.ops.Unlink(path))
}

// Rmdir removes a directory.
func (c *CgoFS) Rmdir(path string) int {
	return errnoResult(c.ops.Rmdir(path))
}

// Link creates a hard link to a file.
func (c *CgoFS) Link(oldpath string, newpath string) int {
	return errnoResult(c.ops.Link(oldpath, newpath))
}

// Symlink creates a symbolic link.
func (c *CgoFS) Symlink(target string, newpath string) int {
	return errnoResult(c.ops.Symlink(target, newpath))
}

// Readlink reads the target of a symbolic link.
func (c *CgoFS) Readlink(path string) (int, string) {
	target, err := c.ops.Readlink(path)
	if err != nil {
		return errnoResult(err), ""
	}
	return 0, target
}

// Rename renames a file.
func (c *CgoFS) Rename(oldpath string, newpath string) int {
	return errnoResult(c.ops.Rename(oldpath, newpath))
}

// Chmod changes the permission bits of a file.
func (c *CgoFS) Chmod(path string, mode uint32) int {
	return errnoResult(c.ops.Chmod(path, mode))
}

// Chown changes the owner and group of a file.
func (c *CgoFS) Chown(path string, uid uint32, gid uint32) int {
	return errnoResult(c.ops.Chown(path, ownerID(uid), ownerID(gid)))
}

func ownerID(id uint32) int {
	if id == noOwner {
		return -1
	}
	return int(id)
}

// Utimens changes the access and modification times of a file.
func (c *CgoFS) Utimens(path string, tmsp []fuse.Timespec) int {
	var times []unix.Timespec
	if len(tmsp) == 2 {
		times = []unix.Timespec{
			{Sec: tmsp[0].Sec, Nsec: tmsp[0].Nsec},
			{Sec: tmsp[1].Sec, Nsec: tmsp[1].Nsec},
		}
	}
	return errnoResult(c.ops.Utimens(path, times))
}

// Access checks file access permissions.
func (c *CgoFS) Access(path string, mask uint32) int {
	return errnoResult(c.ops.Access(path, mask))
}

// Create creates and opens a file.
func (c *CgoFS) Create(path string, _ int, mode uint32) (int, uint64) {
	h, err := c.ops.Create(path, mode)
	if err != nil {
		return errnoResult(err), ^uint64(0)
	}
	return 0, uint64(h)
}

// Open opens a file.
func (c *CgoFS) Open(path string, flags int) (int, uint64) {
	h, err := c.ops.Open(path, flags)
	if err != nil {
		return errnoResult(err), ^uint64(0)
	}
	return 0, uint64(h)
}

// Getattr gets file attributes.
func (c *CgoFS) Getattr(path string, stat *fuse.Stat_t, _ uint64) int {
	attr, err := c.ops.Getattr(path)
	if err != nil {
		return errnoResult(err)
	}

	stat.Mode = attr.Mode
	stat.Nlink = safeUint64ToUint32(attr.Nlink)
	stat.Uid = attr.Uid
	stat.Gid = attr.Gid
	stat.Size = attr.Size
	stat.Atim = fuse.NewTimespec(attr.Atime)
	stat.Mtim = fuse.NewTimespec(attr.Mtime)
	stat.Ctim = fuse.NewTimespec(attr.Ctime)
	stat.Blksize = 4096
	stat.Blocks = (attr.Size + 511) / 512
	return 0
}

// Truncate changes the size of a file.
func (c *CgoFS) Truncate(path string, size int64, _ uint64) int {
	return errnoResult(c.ops.Truncate(path, size))
}

// Read reads data from a file.
func (c *CgoFS) Read(path string, buff []byte, ofst int64, fh uint64) int {
	data, err := c.ops.Read(path, len(buff), ofst, passthrough.Handle(fh))
	if err != nil {
		return errnoResult(err)
	}
	return copy(buff, data)
}

// Write writes data to a file.
func (c *CgoFS) Write(path string, buff []byte, ofst int64, fh uint64) int {
	n, err := c.ops.Write(path, buff, ofst, passthrough.Handle(fh))
	if err != nil {
		return errnoResult(err)
	}
	return n
}

// Flush flushes cached file data.
func (c *CgoFS) Flush(path string, fh uint64) int {
	return errnoResult(c.ops.Flush(path, passthrough.Handle(fh)))
}

// Release closes an open file.
func (c *CgoFS) Release(path string, fh uint64) int {
	return errnoResult(c.ops.Release(path, passthrough.Handle(fh)))
}

// Fsync synchronizes file contents.
func (c *CgoFS) Fsync(path string, datasync bool, fh uint64) int {
	return errnoResult(c.ops.Fsync(path, datasync, passthrough.Handle(fh)))
}

// Opendir opens a directory. Directories hold no handle.
func (c *CgoFS) Opendir(path string) (int, uint64) {
	attr, err := c.ops.Getattr(path)
	if err != nil {
		return errnoResult(err), ^uint64(0)
	}
	if !attr.IsDir() {
		return -fuse.ENOTDIR, ^uint64(0)
	}
	return 0, ^uint64(0)
}

// Readdir reads a directory.
func (c *CgoFS) Readdir(path string, fill func(name string, stat *fuse.Stat_t, ofst int64) bool, _ int64, _ uint64) int {
	names, err := c.ops.Readdir(path)
	if err != nil {
		return errnoResult(err)
	}

	for _, name := range names {
		if !fill(name, nil, 0) {
			break
		}
	}
	return 0
}

// Releasedir closes an open directory.
func (c *CgoFS) Releasedir(string, uint64) int {
	return 0
}

func (o Options) cgofuseArgs() []string {
	subtype := o.Subtype
	if subtype == "" {
		subtype = o.FSName
	}

	args := []string{
		"-o", "fsname=" + o.FSName,
		"-o", "subtype=" + subtype,
		"-o", "attr_timeout=0",
		"-o", "entry_timeout=0",
		"-o", "direct_io",
	}
	if o.AllowOther {
		args = append(args, "-o", "allow_other")
	}
	if o.DefaultPermissions {
		args = append(args, "-o", "default_permissions")
	}
	if o.AllowNonEmpty {
		args = append(args, "-o", "nonempty")
	}
	if o.SingleThreaded {
		args = append(args, "-s")
	}
	return args
}

// ServeCgofuse mounts ops at mountPoint through cgofuse and serves requests
// until ctx is cancelled or the filesystem is unmounted externally.
func ServeCgofuse(ctx context.Context, ops passthrough.Operations, mountPoint string, options Options) error {
	if ops == nil {
		return errors.New("operation table is required")
	}
	if options.FSName == "" {
		options.FSName = "tinyfs"
	}

	host := fuse.NewFileSystemHost(NewCgoFS(ops))
	args := options.cgofuseArgs()
	cgoLogger.Debug("Mounting with options: %v", args)

	done := make(chan bool, 1)
	go func() {
		done <- host.Mount(mountPoint, args)
	}()

	select {
	case ok := <-done:
		if !ok {
			return fmt.Errorf("mount failed at %s", mountPoint)
		}
		cgoLogger.Info("Filesystem unmounted externally")
		return nil
	case <-ctx.Done():
	}

	cgoLogger.Info("Unmounting filesystem from: %s", mountPoint)
	if !host.Unmount() {
		return fmt.Errorf("unmount failed at %s", mountPoint)
	}
	<-done
	cgoLogger.Info("Unmount completed successfully")
	return nil
}
