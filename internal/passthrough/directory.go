package passthrough

import (
	"time"
)

// Readdir lists path: "." and ".." first, followed by the host's entries in
// the order the host returns them. The listing is rebuilt on every call.
func (fs *FS) Readdir(path string) (entries []string, err error) {
	defer fs.observe(OpReaddir, path, time.Now(), nil, &err)

	names, err := fs.host.ReadDirNames(fs.Resolve(path))
	if err != nil {
		return nil, hostError(OpReaddir, path, err)
	}

	entries = make([]string, 0, len(names)+2)
	entries = append(entries, ".", "..")
	return append(entries, names...), nil
}

// Mkdir creates the directory path.
func (fs *FS) Mkdir(path string, mode uint32) (err error) {
	defer fs.observe(OpMkdir, path, time.Now(), nil, &err)
	return hostError(OpMkdir, path, fs.host.Mkdir(fs.Resolve(path), mode))
}

// Rmdir removes the empty directory path.
func (fs *FS) Rmdir(path string) (err error) {
	defer fs.observe(OpRmdir, path, time.Now(), nil, &err)
	return hostError(OpRmdir, path, fs.host.Rmdir(fs.Resolve(path)))
}

// Unlink removes the non-directory path.
func (fs *FS) Unlink(path string) (err error) {
	defer fs.observe(OpUnlink, path, time.Now(), nil, &err)
	return hostError(OpUnlink, path, fs.host.Unlink(fs.Resolve(path)))
}

// Mknod creates a filesystem node. Mode and device are forwarded unchecked;
// the host decides whether the caller may create device nodes.
func (fs *FS) Mknod(path string, mode uint32, dev int) (err error) {
	defer fs.observe(OpMknod, path, time.Now(), nil, &err)
	return hostError(OpMknod, path, fs.host.Mknod(fs.Resolve(path), mode, dev))
}

// Symlink creates linkPath pointing at target. The target is stored
// verbatim; only the link's own location is resolved.
func (fs *FS) Symlink(target, linkPath string) (err error) {
	defer fs.observe(OpSymlink, linkPath, time.Now(), nil, &err)
	return hostError(OpSymlink, linkPath, fs.host.Symlink(target, fs.Resolve(linkPath)))
}

// Readlink returns the target of the symlink at path. Absolute targets
// inside the root are returned relative to the mount root.
func (fs *FS) Readlink(path string) (target string, err error) {
	defer fs.observe(OpReadlink, path, time.Now(), nil, &err)

	target, err = fs.host.Readlink(fs.Resolve(path))
	if err != nil {
		return "", hostError(OpReadlink, path, err)
	}
	return fs.mount.Unresolve(target), nil
}

// Link creates newPath as a hard link to existingPath.
func (fs *FS) Link(existingPath, newPath string) (err error) {
	defer fs.observe(OpLink, newPath, time.Now(), nil, &err)
	return hostError(OpLink, newPath, fs.host.Link(fs.Resolve(existingPath), fs.Resolve(newPath)))
}

// Rename moves oldPath to newPath, replacing newPath where the host allows.
func (fs *FS) Rename(oldPath, newPath string) (err error) {
	defer fs.observe(OpRename, oldPath, time.Now(), nil, &err)
	return hostError(OpRename, oldPath, fs.host.Rename(fs.Resolve(oldPath), fs.Resolve(newPath)))
}
