package passthrough

import (
	"errors"
	"io"
	"os"
	"syscall"
	"time"
)

// Open opens path with the given flags and returns a new handle.
func (fs *FS) Open(path string, flags int) (h Handle, err error) {
	defer fs.observe(OpOpen, path, time.Now(), nil, &err)

	resolved := fs.Resolve(path)
	file, err := fs.host.Open(resolved, flags, 0)
	if err != nil {
		return 0, hostError(OpOpen, path, err)
	}
	return fs.handles.Add(file, resolved), nil
}

// Create opens path write-only, creating it with mode if it does not exist.
// An existing file is not truncated.
func (fs *FS) Create(path string, mode uint32) (h Handle, err error) {
	defer fs.observe(OpCreate, path, time.Now(), nil, &err)

	resolved := fs.Resolve(path)
	file, err := fs.host.Open(resolved, os.O_WRONLY|os.O_CREATE, mode)
	if err != nil {
		return 0, hostError(OpCreate, path, err)
	}
	return fs.handles.Add(file, resolved), nil
}

// Read reads up to length bytes at offset through h. The file position is
// set to offset before the transfer; callers sharing a handle between
// threads must serialize their reads and writes.
func (fs *FS) Read(path string, length int, offset int64, h Handle) (data []byte, err error) {
	var n int
	defer fs.observe(OpRead, path, time.Now(), &n, &err)

	file, ok := fs.handles.Get(h)
	if !ok {
		return nil, newError(OpRead, path, ErrInvalidHandle, syscall.EBADF)
	}
	if length < 0 {
		return nil, newError(OpRead, path, ErrHostIO, syscall.EINVAL)
	}

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, hostError(OpRead, path, err)
	}

	buf := make([]byte, length)
	n, err = io.ReadFull(file, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, hostError(OpRead, path, err)
	}
	return buf[:n], nil
}

// Write writes buf at offset through h and returns the number of bytes
// written. Like Read it repositions the file before the transfer.
func (fs *FS) Write(path string, buf []byte, offset int64, h Handle) (n int, err error) {
	defer fs.observe(OpWrite, path, time.Now(), &n, &err)

	file, ok := fs.handles.Get(h)
	if !ok {
		return 0, newError(OpWrite, path, ErrInvalidHandle, syscall.EBADF)
	}

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return 0, hostError(OpWrite, path, err)
	}

	n, err = file.Write(buf)
	if err != nil {
		return n, hostError(OpWrite, path, err)
	}
	return n, nil
}

// Truncate sets the size of path to length. It works on the path alone,
// opening and closing the file for the call.
func (fs *FS) Truncate(path string, length int64) (err error) {
	defer fs.observe(OpTruncate, path, time.Now(), nil, &err)

	file, err := fs.host.Open(fs.Resolve(path), os.O_RDWR, 0)
	if err != nil {
		return hostError(OpTruncate, path, err)
	}

	truncErr := file.Truncate(length)
	closeErr := file.Close()
	if truncErr != nil {
		return hostError(OpTruncate, path, truncErr)
	}
	return hostError(OpTruncate, path, closeErr)
}

// Flush syncs the data and metadata of the file behind h to storage.
func (fs *FS) Flush(path string, h Handle) (err error) {
	defer fs.observe(OpFlush, path, time.Now(), nil, &err)
	return fs.sync(OpFlush, path, h)
}

// Fsync behaves exactly like Flush. The datasync flag is accepted but a full
// data and metadata sync is always performed.
func (fs *FS) Fsync(path string, _ bool, h Handle) (err error) {
	defer fs.observe(OpFsync, path, time.Now(), nil, &err)
	return fs.sync(OpFsync, path, h)
}

func (fs *FS) sync(op, path string, h Handle) error {
	file, ok := fs.handles.Get(h)
	if !ok {
		return newError(op, path, ErrInvalidHandle, syscall.EBADF)
	}
	return hostError(op, path, file.Sync())
}

// Release closes h. The handle is invalid afterwards even if the host
// reports an error while closing.
func (fs *FS) Release(path string, h Handle) (err error) {
	defer fs.observe(OpRelease, path, time.Now(), nil, &err)

	file, ok := fs.handles.Remove(h)
	if !ok {
		return newError(OpRelease, path, ErrInvalidHandle, syscall.EBADF)
	}
	return hostError(OpRelease, path, file.Close())
}
