package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/DarkKowalski/tinyfs/internal/logging"
	"github.com/DarkKowalski/tinyfs/internal/passthrough"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
)

var (
	vfsLogger = logging.GetLogger().WithPrefix("vfs")
)

// Options control how the filesystem is mounted and dispatched.
type Options struct {
	FSName             string
	Subtype            string
	AllowOther         bool
	DefaultPermissions bool
	AllowNonEmpty      bool

	// SingleThreaded dispatches one kernel request at a time.
	SingleThreaded bool
}

// TinyFS exposes a passthrough operation table to the kernel through
// bazil.org/fuse. Nodes carry their virtual path and forward every request
// to the table; no node state outlives a request apart from open handles.
type TinyFS struct {
	ops     passthrough.Operations
	options Options
	serial  sync.Mutex // held for every request in single-threaded mode
}

// NewTinyFS creates a bridge serving ops.
func NewTinyFS(ops passthrough.Operations, options Options) (*TinyFS, error) {
	if ops == nil {
		return nil, errors.New("operation table is required")
	}
	if options.FSName == "" {
		options.FSName = "tinyfs"
	}

	vfsLogger.Debug("Creating bridge (single-threaded=%v)", options.SingleThreaded)
	return &TinyFS{ops: ops, options: options}, nil
}

// lock serializes requests in single-threaded mode. The returned function
// releases it.
func (tfs *TinyFS) lock() func() {
	if !tfs.options.SingleThreaded {
		return func() {}
	}
	tfs.serial.Lock()
	return tfs.serial.Unlock
}

// Root implements the fusefs.FS interface, returning the root directory node.
func (tfs *TinyFS) Root() (fusefs.Node, error) {
	vfsLogger.Trace("Getting root directory node")
	return &Dir{node: node{fs: tfs, path: "/"}}, nil
}

// Statfs implements the fusefs.FSStatfser interface.
func (tfs *TinyFS) Statfs(_ context.Context, _ *fuse.StatfsRequest, resp *fuse.StatfsResponse) error {
	defer tfs.lock()()

	st, err := tfs.ops.Statfs("/")
	if err != nil {
		return ToFuseError(err)
	}

	resp.Blocks = st.Blocks
	resp.Bfree = st.Bfree
	resp.Bavail = st.Bavail
	resp.Files = st.Files
	resp.Ffree = st.Ffree
	resp.Bsize = safeUint64ToUint32(st.Bsize)
	resp.Frsize = safeUint64ToUint32(st.Frsize)
	resp.Namelen = safeUint64ToUint32(st.Namemax)
	return nil
}

func (tfs *TinyFS) mountOptions() []fuse.MountOption {
	subtype := tfs.options.Subtype
	if subtype == "" {
		subtype = tfs.options.FSName
	}

	opts := []fuse.MountOption{
		fuse.FSName(tfs.options.FSName),
		fuse.Subtype(subtype),
	}
	if !tfs.options.SingleThreaded {
		opts = append(opts, fuse.AsyncRead())
	}
	if tfs.options.AllowOther {
		opts = append(opts, fuse.AllowOther())
	}
	if tfs.options.DefaultPermissions {
		opts = append(opts, fuse.DefaultPermissions())
	}
	if tfs.options.AllowNonEmpty {
		opts = append(opts, fuse.AllowNonEmptyMount())
	}
	return opts
}

func waitForMount(mountpoint string) error {
	for i := 0; i < 30; i++ {
		info, err := os.Stat(mountpoint)
		if err == nil && info.IsDir() {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("mount point not available after 3 seconds")
}

// Serve mounts the filesystem at mountPoint and serves requests until ctx is
// cancelled or the filesystem is unmounted externally.
func (tfs *TinyFS) Serve(ctx context.Context, mountPoint string) error {
	vfsLogger.Info("Mounting filesystem")
	vfsLogger.Debug("Mount point: %s", mountPoint)

	c, err := fuse.Mount(mountPoint, tfs.mountOptions()...)
	if err != nil {
		return fmt.Errorf("mount failed: %w", err)
	}
	defer c.Close()

	done := make(chan error, 1)
	go func() {
		done <- fusefs.Serve(c, tfs)
	}()

	if err := waitForMount(mountPoint); err != nil {
		vfsLogger.Error("Mount point not ready: %v", err)
		_ = fuse.Unmount(mountPoint)
		<-done
		return fmt.Errorf("mount point failed to initialize: %w", err)
	}
	vfsLogger.Info("Filesystem mounted successfully")

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("serve failed: %w", err)
		}
		vfsLogger.Info("Filesystem unmounted externally")
		return nil
	case <-ctx.Done():
	}

	vfsLogger.Info("Unmounting filesystem from: %s", mountPoint)
	if err := fuse.Unmount(mountPoint); err != nil {
		vfsLogger.Error("Unmount failed: %v", err)
		return fmt.Errorf("unmount failed: %w", err)
	}
	if err := <-done; err != nil {
		return fmt.Errorf("serve failed: %w", err)
	}
	vfsLogger.Info("Unmount completed successfully")
	return nil
}
