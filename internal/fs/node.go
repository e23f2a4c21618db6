package fs

import (
	"context"
	"path"
	"time"

	"github.com/DarkKowalski/tinyfs/internal/logging"
	"github.com/DarkKowalski/tinyfs/internal/passthrough"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
	"golang.org/x/sys/unix"
)

var (
	nodeLogger = logging.GetLogger().WithPrefix("node")
)

// node is the part shared by directories and files: a virtual path and the
// requests that operate on the path alone.
type node struct {
	fs   *TinyFS
	path string
}

func (n *node) child(name string) string {
	return path.Join(n.path, name)
}

// Attr implements the fusefs.Node interface.
func (n *node) Attr(_ context.Context, a *fuse.Attr) error {
	defer n.fs.lock()()

	attr, err := n.fs.ops.Getattr(n.path)
	if err != nil {
		return ToFuseError(err)
	}
	fillAttr(a, attr)
	return nil
}

// Setattr implements the fusefs.NodeSetattrer interface. The request is
// applied as chmod, chown, truncate and utimens calls in that order, each
// only when the kernel marked the field valid, and answered with fresh
// attributes.
func (n *node) Setattr(_ context.Context, req *fuse.SetattrRequest, resp *fuse.SetattrResponse) error {
	defer n.fs.lock()()

	nodeLogger.Trace("Setattr on %q: %v", n.path, req.Valid)

	if req.Valid.Mode() {
		if err := n.fs.ops.Chmod(n.path, permBits(req.Mode)); err != nil {
			return ToFuseError(err)
		}
	}

	if req.Valid.Uid() || req.Valid.Gid() {
		uid, gid := -1, -1
		if req.Valid.Uid() {
			uid = int(req.Uid)
		}
		if req.Valid.Gid() {
			gid = int(req.Gid)
		}
		if err := n.fs.ops.Chown(n.path, uid, gid); err != nil {
			return ToFuseError(err)
		}
	}

	if req.Valid.Size() {
		if err := n.fs.ops.Truncate(n.path, int64(req.Size)); err != nil {
			return ToFuseError(err)
		}
	}

	if times, ok := setattrTimes(req); ok {
		if err := n.fs.ops.Utimens(n.path, times); err != nil {
			return ToFuseError(err)
		}
	}

	attr, err := n.fs.ops.Getattr(n.path)
	if err != nil {
		return ToFuseError(err)
	}
	fillAttr(&resp.Attr, attr)
	return nil
}

// Access implements the fusefs.NodeAccesser interface.
func (n *node) Access(_ context.Context, req *fuse.AccessRequest) error {
	defer n.fs.lock()()
	return ToFuseError(n.fs.ops.Access(n.path, req.Mask))
}

// setattrTimes builds the utimens argument for the timestamps of req.
// Timestamps the kernel did not mark are omitted.
func setattrTimes(req *fuse.SetattrRequest) ([]unix.Timespec, bool) {
	atime := timespec(req.Valid.Atime(), req.Valid.AtimeNow(), req.Atime)
	mtime := timespec(req.Valid.Mtime(), req.Valid.MtimeNow(), req.Mtime)
	if atime.Nsec == unix.UTIME_OMIT && mtime.Nsec == unix.UTIME_OMIT {
		return nil, false
	}
	return []unix.Timespec{atime, mtime}, true
}

func timespec(set, now bool, t time.Time) unix.Timespec {
	switch {
	case now:
		return unix.Timespec{Nsec: unix.UTIME_NOW}
	case set:
		return unix.NsecToTimespec(t.UnixNano())
	default:
		return unix.Timespec{Nsec: unix.UTIME_OMIT}
	}
}

// fillAttr copies attributes into a kernel reply. Validity is zero so the
// kernel asks again on every access.
func fillAttr(a *fuse.Attr, attr passthrough.Attr) {
	a.Valid = 0
	a.Mode = fileMode(attr.Mode)
	a.Size = safeInt64ToUint64(attr.Size)
	a.Nlink = safeUint64ToUint32(attr.Nlink)
	a.Uid = attr.Uid
	a.Gid = attr.Gid
	a.Atime = attr.Atime
	a.Mtime = attr.Mtime
	a.Ctime = attr.Ctime
	a.BlockSize = 4096
	a.Blocks = safeInt64ToUint64((attr.Size + 511) / 512)
}

// newNode builds the node matching attr for a virtual path.
func (tfs *TinyFS) newNode(p string, attr passthrough.Attr) fusefs.Node {
	if attr.IsDir() {
		return &Dir{node: node{fs: tfs, path: p}}
	}
	return tfs.newFile(p)
}
