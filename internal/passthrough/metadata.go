package passthrough

import (
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Access checks the host's access permission for path. Any failed check is
// reported as permission denied.
func (fs *FS) Access(path string, mode uint32) (err error) {
	defer fs.observe(OpAccess, path, time.Now(), nil, &err)

	if hostErr := fs.host.Access(fs.Resolve(path), mode); hostErr != nil {
		return &Error{
			Op:    OpAccess,
			Path:  path,
			Kind:  ErrPermissionDenied,
			Errno: syscall.EACCES,
			Err:   hostErr,
		}
	}
	return nil
}

// Getattr returns the attributes of path without following a final symlink.
func (fs *FS) Getattr(path string) (attr Attr, err error) {
	defer fs.observe(OpGetattr, path, time.Now(), nil, &err)

	var st unix.Stat_t
	if err := fs.host.Lstat(fs.Resolve(path), &st); err != nil {
		return Attr{}, hostError(OpGetattr, path, err)
	}

	return Attr{
		Atime: time.Unix(st.Atim.Unix()),
		Ctime: time.Unix(st.Ctim.Unix()),
		Gid:   st.Gid,
		Mode:  st.Mode,
		Mtime: time.Unix(st.Mtim.Unix()),
		Nlink: uint64(st.Nlink),
		Size:  st.Size,
		Uid:   st.Uid,
	}, nil
}

// Chmod changes the mode of path.
func (fs *FS) Chmod(path string, mode uint32) (err error) {
	defer fs.observe(OpChmod, path, time.Now(), nil, &err)
	return hostError(OpChmod, path, fs.host.Chmod(fs.Resolve(path), mode))
}

// Chown changes the owner and group of path. An id of -1 leaves it
// unchanged.
func (fs *FS) Chown(path string, uid, gid int) (err error) {
	defer fs.observe(OpChown, path, time.Now(), nil, &err)
	return hostError(OpChown, path, fs.host.Chown(fs.Resolve(path), uid, gid))
}

// Utimens sets the access and modification times of path. times holds the
// access time followed by the modification time; nil sets both to now.
// UTIME_NOW and UTIME_OMIT are honoured per entry.
func (fs *FS) Utimens(path string, times []unix.Timespec) (err error) {
	defer fs.observe(OpUtimens, path, time.Now(), nil, &err)
	return hostError(OpUtimens, path, fs.host.UtimesNano(fs.Resolve(path), times))
}

// Statfs returns capacity statistics of the filesystem holding path.
func (fs *FS) Statfs(path string) (stat StatFS, err error) {
	defer fs.observe(OpStatfs, path, time.Now(), nil, &err)

	var st unix.Statfs_t
	if err := fs.host.Statfs(fs.Resolve(path), &st); err != nil {
		return StatFS{}, hostError(OpStatfs, path, err)
	}

	// statfs(2) has no separate unprivileged inode count; statvfs(3)
	// reports f_ffree there as well.
	return StatFS{
		Bavail:  st.Bavail,
		Bfree:   st.Bfree,
		Blocks:  st.Blocks,
		Bsize:   uint64(st.Bsize),
		Favail:  st.Ffree,
		Ffree:   st.Ffree,
		Files:   st.Files,
		Flag:    uint64(st.Flags),
		Frsize:  uint64(st.Frsize),
		Namemax: uint64(st.Namelen),
	}, nil
}
