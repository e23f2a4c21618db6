package fs

import (
	fusefs "bazil.org/fuse/fs"
)

// Node represents any node of the mounted tree
type Node interface {
	fusefs.Node
	fusefs.NodeSetattrer
	fusefs.NodeAccesser
}

// Directory represents a directory of the mounted tree
type Directory interface {
	Node
	fusefs.NodeRequestLookuper
	fusefs.HandleReadDirAller
	fusefs.NodeMkdirer
	fusefs.NodeRemover
	fusefs.NodeRenamer
	fusefs.NodeSymlinker
	fusefs.NodeLinker
	fusefs.NodeMknoder
	fusefs.NodeCreater
}

// FileInterface represents a non-directory node of the mounted tree
type FileInterface interface {
	Node
	fusefs.NodeOpener
	fusefs.NodeReadlinker
	fusefs.NodeFsyncer
}

// FileHandleInterface represents an open file handle
type FileHandleInterface interface {
	fusefs.Handle
	fusefs.HandleReader
	fusefs.HandleWriter
	fusefs.HandleFlusher
	fusefs.HandleReleaser
}

var (
	_ fusefs.FS           = (*TinyFS)(nil)
	_ fusefs.FSStatfser   = (*TinyFS)(nil)
	_ Directory           = (*Dir)(nil)
	_ FileInterface       = (*File)(nil)
	_ FileHandleInterface = (*FileHandle)(nil)
)
