package fs

import (
	"context"
	"syscall"

	"github.com/DarkKowalski/tinyfs/internal/logging"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
)

var (
	dirLogger = logging.GetLogger().WithPrefix("dir")
)

// Dir represents a directory of the host tree.
type Dir struct {
	node
}

// Lookup implements the NodeRequestLookuper interface, finding a child node.
// Entries are never cached by the kernel.
func (d *Dir) Lookup(_ context.Context, req *fuse.LookupRequest, resp *fuse.LookupResponse) (fusefs.Node, error) {
	defer d.fs.lock()()

	childPath := d.child(req.Name)
	dirLogger.Trace("Looking up %q in directory %q", req.Name, d.path)

	attr, err := d.fs.ops.Getattr(childPath)
	if err != nil {
		return nil, ToFuseError(err)
	}

	resp.EntryValid = 0
	return d.fs.newNode(childPath, attr), nil
}

// ReadDirAll implements the HandleReadDirAller interface, listing directory contents.
func (d *Dir) ReadDirAll(_ context.Context) ([]fuse.Dirent, error) {
	defer d.fs.lock()()

	names, err := d.fs.ops.Readdir(d.path)
	if err != nil {
		return nil, ToFuseError(err)
	}

	entries := make([]fuse.Dirent, 0, len(names))
	for _, name := range names {
		entries = append(entries, fuse.Dirent{Name: name, Type: fuse.DT_Unknown})
	}

	dirLogger.Trace("Directory %q contains %d entries", d.path, len(entries))
	return entries, nil
}

// Mkdir implements the NodeMkdirer interface.
func (d *Dir) Mkdir(_ context.Context, req *fuse.MkdirRequest) (fusefs.Node, error) {
	defer d.fs.lock()()

	newPath := d.child(req.Name)
	if err := d.fs.ops.Mkdir(newPath, permBits(req.Mode)); err != nil {
		return nil, ToFuseError(err)
	}
	return &Dir{node: node{fs: d.fs, path: newPath}}, nil
}

// Remove implements the NodeRemover interface, removing a file or directory.
func (d *Dir) Remove(_ context.Context, req *fuse.RemoveRequest) error {
	defer d.fs.lock()()

	childPath := d.child(req.Name)
	if req.Dir {
		return ToFuseError(d.fs.ops.Rmdir(childPath))
	}
	return ToFuseError(d.fs.ops.Unlink(childPath))
}

// Rename implements the NodeRenamer interface.
func (d *Dir) Rename(_ context.Context, req *fuse.RenameRequest, newDir fusefs.Node) error {
	target, ok := newDir.(*Dir)
	if !ok {
		dirLogger.Error("Rename target is not a directory node")
		return syscall.EINVAL
	}

	defer d.fs.lock()()

	oldPath := d.child(req.OldName)
	newPath := target.child(req.NewName)
	dirLogger.Debug("Rename operation: %q -> %q", oldPath, newPath)

	return ToFuseError(d.fs.ops.Rename(oldPath, newPath))
}

// Symlink implements the NodeSymlinker interface. The target is stored as
// given.
func (d *Dir) Symlink(_ context.Context, req *fuse.SymlinkRequest) (fusefs.Node, error) {
	defer d.fs.lock()()

	linkPath := d.child(req.NewName)
	if err := d.fs.ops.Symlink(req.Target, linkPath); err != nil {
		return nil, ToFuseError(err)
	}
	return d.fs.newFile(linkPath), nil
}

// Link implements the NodeLinker interface.
func (d *Dir) Link(_ context.Context, req *fuse.LinkRequest, old fusefs.Node) (fusefs.Node, error) {
	existing, ok := old.(*File)
	if !ok {
		return nil, syscall.EPERM
	}

	defer d.fs.lock()()

	newPath := d.child(req.NewName)
	if err := d.fs.ops.Link(existing.path, newPath); err != nil {
		return nil, ToFuseError(err)
	}
	return d.fs.newFile(newPath), nil
}

// Mknod implements the NodeMknoder interface.
func (d *Dir) Mknod(_ context.Context, req *fuse.MknodRequest) (fusefs.Node, error) {
	defer d.fs.lock()()

	newPath := d.child(req.Name)
	if err := d.fs.ops.Mknod(newPath, unixMode(req.Mode), int(req.Rdev)); err != nil {
		return nil, ToFuseError(err)
	}
	return d.fs.newFile(newPath), nil
}

// Create implements the NodeCreater interface. The new file is opened
// write-only; an existing file keeps its content.
func (d *Dir) Create(_ context.Context, req *fuse.CreateRequest, resp *fuse.CreateResponse) (fusefs.Node, fusefs.Handle, error) {
	defer d.fs.lock()()

	newPath := d.child(req.Name)
	h, err := d.fs.ops.Create(newPath, permBits(req.Mode))
	if err != nil {
		return nil, nil, ToFuseError(err)
	}

	file := d.fs.newFile(newPath)
	resp.EntryValid = 0
	resp.Flags |= fuse.OpenDirectIO

	dirLogger.Debug("Created file %q", newPath)
	return file, file.track(h), nil
}
