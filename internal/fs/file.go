package fs

import (
	"context"
	"sync"

	"github.com/DarkKowalski/tinyfs/internal/logging"
	"github.com/DarkKowalski/tinyfs/internal/passthrough"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
)

var (
	fileLogger = logging.GetLogger().WithPrefix("file")
)

// File represents any non-directory node: regular files, symlinks, fifos
// and device nodes.
type File struct {
	node

	mu      sync.Mutex
	handles map[passthrough.Handle]struct{} // opened through this node
}

func (tfs *TinyFS) newFile(p string) *File {
	return &File{
		node:    node{fs: tfs, path: p},
		handles: make(map[passthrough.Handle]struct{}),
	}
}

// track remembers h for fsync and wraps it in a kernel handle.
func (f *File) track(h passthrough.Handle) *FileHandle {
	f.mu.Lock()
	f.handles[h] = struct{}{}
	f.mu.Unlock()

	return &FileHandle{file: f, handle: h}
}

func (f *File) forget(h passthrough.Handle) {
	f.mu.Lock()
	delete(f.handles, h)
	f.mu.Unlock()
}

func (f *File) openHandles() []passthrough.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()

	handles := make([]passthrough.Handle, 0, len(f.handles))
	for h := range f.handles {
		handles = append(handles, h)
	}
	return handles
}

// Open implements the NodeOpener interface. Files are opened with direct
// I/O so the kernel page cache is bypassed.
func (f *File) Open(_ context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fusefs.Handle, error) {
	defer f.fs.lock()()

	fileLogger.Debug("Opening file %q with flags %v", f.path, req.Flags)

	h, err := f.fs.ops.Open(f.path, int(req.Flags))
	if err != nil {
		return nil, ToFuseError(err)
	}

	resp.Flags |= fuse.OpenDirectIO
	return f.track(h), nil
}

// Readlink implements the NodeReadlinker interface.
func (f *File) Readlink(_ context.Context, _ *fuse.ReadlinkRequest) (string, error) {
	defer f.fs.lock()()

	target, err := f.fs.ops.Readlink(f.path)
	if err != nil {
		return "", ToFuseError(err)
	}
	return target, nil
}

// Fsync implements the NodeFsyncer interface. The kernel addresses fsync to
// the node, so every handle opened through it is synced.
func (f *File) Fsync(_ context.Context, req *fuse.FsyncRequest) error {
	defer f.fs.lock()()

	datasync := req.Flags&1 != 0
	for _, h := range f.openHandles() {
		if err := f.fs.ops.Fsync(f.path, datasync, h); err != nil {
			return ToFuseError(err)
		}
	}
	return nil
}

// FileHandle is the kernel handle of one open table handle. Transfers on
// the same handle are serialized because the table positions the file
// before every read and write.
type FileHandle struct {
	file   *File
	handle passthrough.Handle
	mu     sync.Mutex
}

// Read implements the HandleReader interface.
func (fh *FileHandle) Read(_ context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	defer fh.file.fs.lock()()
	fh.mu.Lock()
	defer fh.mu.Unlock()

	fileLogger.Trace("Reading %d bytes from file %q at offset %d", req.Size, fh.file.path, req.Offset)

	data, err := fh.file.fs.ops.Read(fh.file.path, req.Size, req.Offset, fh.handle)
	if err != nil {
		return ToFuseError(err)
	}
	resp.Data = data
	return nil
}

// Write implements the HandleWriter interface.
func (fh *FileHandle) Write(_ context.Context, req *fuse.WriteRequest, resp *fuse.WriteResponse) error {
	defer fh.file.fs.lock()()
	fh.mu.Lock()
	defer fh.mu.Unlock()

	fileLogger.Trace("Writing %d bytes to file %q at offset %d", len(req.Data), fh.file.path, req.Offset)

	n, err := fh.file.fs.ops.Write(fh.file.path, req.Data, req.Offset, fh.handle)
	resp.Size = n
	return ToFuseError(err)
}

// Flush implements the HandleFlusher interface.
func (fh *FileHandle) Flush(_ context.Context, _ *fuse.FlushRequest) error {
	defer fh.file.fs.lock()()
	fh.mu.Lock()
	defer fh.mu.Unlock()

	return ToFuseError(fh.file.fs.ops.Flush(fh.file.path, fh.handle))
}

// Release implements the HandleReleaser interface, closing the table handle.
func (fh *FileHandle) Release(_ context.Context, _ *fuse.ReleaseRequest) error {
	defer fh.file.fs.lock()()
	fh.mu.Lock()
	defer fh.mu.Unlock()

	fh.file.forget(fh.handle)
	fileLogger.Debug("Closing file %q", fh.file.path)
	return ToFuseError(fh.file.fs.ops.Release(fh.file.path, fh.handle))
}
