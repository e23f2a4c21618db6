package passthrough

import (
	"fmt"
	"path/filepath"
	"strings"
)

const separator = "/"

// MountContext holds the absolute host directory every virtual path
// resolves beneath. It is immutable once created.
type MountContext struct {
	root string
}

// NewMountContext creates a MountContext for root. Relative roots are made
// absolute against the working directory.
func NewMountContext(root string) (*MountContext, error) {
	if root == "" {
		return nil, fmt.Errorf("root directory must not be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %q: %w", root, err)
	}
	return &MountContext{root: abs}, nil
}

// Root returns the absolute root directory.
func (mc *MountContext) Root() string {
	return mc.root
}

// Resolve maps a virtual path to the concrete host path. At most one leading
// separator is stripped and the remainder is appended to the root with a
// single separator; no cleaning of "." or ".." takes place.
func (mc *MountContext) Resolve(virtualPath string) string {
	rel := strings.TrimPrefix(virtualPath, separator)
	if rel == "" {
		return mc.root
	}
	if strings.HasSuffix(mc.root, separator) {
		return mc.root + rel
	}
	return mc.root + separator + rel
}

// contains reports whether the absolute host path lies at or under the root.
func (mc *MountContext) contains(hostPath string) bool {
	if hostPath == mc.root {
		return true
	}
	prefix := mc.root
	if !strings.HasSuffix(prefix, separator) {
		prefix += separator
	}
	return strings.HasPrefix(hostPath, prefix)
}

// Unresolve rewrites an absolute host path under the root so that it is
// relative to the mount root. Other paths are returned unchanged.
func (mc *MountContext) Unresolve(hostPath string) string {
	if !filepath.IsAbs(hostPath) || !mc.contains(hostPath) {
		return hostPath
	}
	rel, err := filepath.Rel(mc.root, hostPath)
	if err != nil {
		return hostPath
	}
	return rel
}
