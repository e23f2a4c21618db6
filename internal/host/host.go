// Package host wraps the host operating system's filesystem calls used by
// the passthrough operation table.
package host

import (
	"os"

	"golang.org/x/sys/unix"
)

// OS is an implementation wrapping Unix filesystem functions.
type OS struct{}

// Access wraps around [unix.Access].
func (OS) Access(path string, mode uint32) error {
	return pathErr("access", path, unix.Access(path, mode))
}

// Lstat wraps around [unix.Lstat].
func (OS) Lstat(path string, stat *unix.Stat_t) error {
	return pathErr("lstat", path, unix.Lstat(path, stat))
}

// Statfs wraps around [unix.Statfs].
func (OS) Statfs(path string, buf *unix.Statfs_t) error {
	return pathErr("statfs", path, unix.Statfs(path, buf))
}

// Chmod wraps around [unix.Chmod].
func (OS) Chmod(path string, mode uint32) error {
	return pathErr("chmod", path, unix.Chmod(path, mode))
}

// Chown wraps around [unix.Chown].
func (OS) Chown(path string, uid, gid int) error {
	return pathErr("chown", path, unix.Chown(path, uid, gid))
}

// UtimesNano wraps around [unix.UtimesNano]. A nil times slice sets both
// timestamps to the current time.
func (OS) UtimesNano(path string, times []unix.Timespec) error {
	if times == nil {
		now := unix.Timespec{Nsec: unix.UTIME_NOW}
		times = []unix.Timespec{now, now}
	}
	return pathErr("utimes", path, unix.UtimesNano(path, times))
}

// ReadDirNames lists the entry names of the directory at path in the order
// the host returns them.
func (OS) ReadDirNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return f.Readdirnames(-1)
}

// Mkdir wraps around [unix.Mkdir].
func (OS) Mkdir(path string, mode uint32) error {
	return pathErr("mkdir", path, unix.Mkdir(path, mode))
}

// Rmdir wraps around [unix.Rmdir].
func (OS) Rmdir(path string) error {
	return pathErr("rmdir", path, unix.Rmdir(path))
}

// Unlink wraps around [unix.Unlink].
func (OS) Unlink(path string) error {
	return pathErr("unlink", path, unix.Unlink(path))
}

// Mknod wraps around [unix.Mknod].
func (OS) Mknod(path string, mode uint32, dev int) error {
	return pathErr("mknod", path, unix.Mknod(path, mode, dev))
}

// Symlink wraps around [unix.Symlink].
func (OS) Symlink(target, linkpath string) error {
	return linkErr("symlink", target, linkpath, unix.Symlink(target, linkpath))
}

// Readlink wraps around [os.Readlink].
func (OS) Readlink(path string) (string, error) {
	return os.Readlink(path)
}

// Link wraps around [unix.Link].
func (OS) Link(oldpath, newpath string) error {
	return linkErr("link", oldpath, newpath, unix.Link(oldpath, newpath))
}

// Rename wraps around [unix.Rename].
func (OS) Rename(oldpath, newpath string) error {
	return linkErr("rename", oldpath, newpath, unix.Rename(oldpath, newpath))
}

// Open wraps around [unix.Open], handing the descriptor to an [os.File].
// The mode is passed to the host untouched.
func (OS) Open(path string, flags int, mode uint32) (*os.File, error) {
	fd, err := unix.Open(path, flags|unix.O_CLOEXEC, mode)
	if err != nil {
		return nil, pathErr("open", path, err)
	}
	return os.NewFile(uintptr(fd), path), nil
}

func pathErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &os.PathError{Op: op, Path: path, Err: err}
}

func linkErr(op, oldpath, newpath string, err error) error {
	if err == nil {
		return nil
	}
	return &os.LinkError{Op: op, Old: oldpath, New: newpath, Err: err}
}
