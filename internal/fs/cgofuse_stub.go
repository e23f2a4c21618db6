//go:build !cgofuse

package fs

import (
	"context"
	"errors"

	"github.com/DarkKowalski/tinyfs/internal/passthrough"
)

// ErrCgofuseUnavailable is returned by ServeCgofuse in builds without the
// cgofuse tag.
var ErrCgofuseUnavailable = errors.New("built without cgofuse support (rebuild with -tags cgofuse)")

// ServeCgofuse always fails in builds without the cgofuse tag.
func ServeCgofuse(_ context.Context, _ passthrough.Operations, _ string, _ Options) error {
	return ErrCgofuseUnavailable
}
