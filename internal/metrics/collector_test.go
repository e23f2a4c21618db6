package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"syscall"
	"testing"
	"time"

	"github.com/DarkKowalski/tinyfs/internal/host"
	"github.com/DarkKowalski/tinyfs/internal/passthrough"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()

	c, err := NewCollector(&Config{
		Address:   "127.0.0.1:0",
		Path:      "/metrics",
		Namespace: "tinyfs",
	})
	require.NoError(t, err)
	return c
}

func TestNewCollector(t *testing.T) {
	c, err := NewCollector(nil)
	require.NoError(t, err)
	assert.Equal(t, "/metrics", c.config.Path)
	assert.Equal(t, "tinyfs", c.config.Namespace)
	assert.Nil(t, c.Addr())
}

func TestTrace(t *testing.T) {
	c := newTestCollector(t)

	c.Trace(passthrough.Event{Op: passthrough.OpRead, Duration: time.Millisecond, Bytes: 512})
	c.Trace(passthrough.Event{Op: passthrough.OpRead, Duration: time.Millisecond, Bytes: 256})
	c.Trace(passthrough.Event{
		Op:  passthrough.OpGetattr,
		Err: &passthrough.Error{Op: passthrough.OpGetattr, Kind: passthrough.ErrNotFound, Errno: syscall.ENOENT},
	})
	c.Trace(passthrough.Event{Op: passthrough.OpWrite, Err: errors.New("no errno")})

	assert.Equal(t, 2.0, testutil.ToFloat64(c.operationCounter.WithLabelValues(passthrough.OpRead, "success")))
	assert.Equal(t, 768.0, testutil.ToFloat64(c.bytesCounter.WithLabelValues(passthrough.OpRead)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.operationCounter.WithLabelValues(passthrough.OpGetattr, "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.errorCounter.WithLabelValues(passthrough.OpGetattr, "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.errorCounter.WithLabelValues(passthrough.OpWrite, "host_io")))
	assert.Equal(t, 3, testutil.CollectAndCount(c.operationDuration))
}

func TestTraceThroughOperationTable(t *testing.T) {
	c := newTestCollector(t)

	pfs, err := passthrough.New(t.TempDir(), host.OS{}, c)
	require.NoError(t, err)
	require.NoError(t, c.TrackHandles(pfs.OpenHandles))

	h, err := pfs.Create("/f", 0o644)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.openHandles))

	_, err = pfs.Write("/f", []byte("hello"), 0, h)
	require.NoError(t, err)
	require.NoError(t, pfs.Release("/f", h))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.openHandles))

	_, err = pfs.Read("/f", 5, 0, h)
	require.Error(t, err)

	assert.Equal(t, 5.0, testutil.ToFloat64(c.bytesCounter.WithLabelValues(passthrough.OpWrite)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.errorCounter.WithLabelValues(passthrough.OpRead, "invalid_handle")))

	assert.Error(t, c.TrackHandles(pfs.OpenHandles))
}

func TestServe(t *testing.T) {
	c := newTestCollector(t)
	c.Trace(passthrough.Event{Op: passthrough.OpMkdir})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, c.Start(ctx))
	require.NotNil(t, c.Addr())
	assert.Error(t, c.Start(ctx))

	resp, err := http.Get("http://" + c.Addr().String() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `tinyfs_operations_total{operation="mkdir",status="success"} 1`)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	assert.NoError(t, c.Stop(stopCtx))
}
