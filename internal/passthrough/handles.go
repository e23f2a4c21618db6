package passthrough

import (
	"os"
	"sync"
)

// Handle identifies one open file. Handles are never reused within a
// HandleTable and the zero Handle is never issued.
type Handle uint64

type openFile struct {
	file *os.File
	path string // resolved path at open time
}

// HandleTable owns the files opened through the operation table from open or
// create until release. The lock only guards the bookkeeping map; transfers
// on an open file are not serialized.
type HandleTable struct {
	mu      sync.RWMutex
	next    Handle
	entries map[Handle]*openFile
}

// NewHandleTable creates an empty HandleTable.
func NewHandleTable() *HandleTable {
	return &HandleTable{
		entries: make(map[Handle]*openFile),
	}
}

// Add registers an open file and returns its new handle.
func (t *HandleTable) Add(file *os.File, path string) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.next++
	t.entries[t.next] = &openFile{file: file, path: path}
	return t.next
}

// Get returns the file behind h if h is open.
func (t *HandleTable) Get(h Handle) (*os.File, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entry, ok := t.entries[h]
	if !ok {
		return nil, false
	}
	return entry.file, true
}

// Path returns the resolved path h was opened with.
func (t *HandleTable) Path(h Handle) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entry, ok := t.entries[h]
	if !ok {
		return "", false
	}
	return entry.path, true
}

// Remove releases h from the table and returns its file. After Remove the
// handle is invalid for every further lookup.
func (t *HandleTable) Remove(h Handle) (*os.File, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[h]
	if !ok {
		return nil, false
	}
	delete(t.entries, h)
	return entry.file, true
}

// Len returns the number of open handles.
func (t *HandleTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
