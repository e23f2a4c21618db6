// Package metrics exports per-operation Prometheus metrics for the
// passthrough operation table.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/DarkKowalski/tinyfs/internal/logging"
	"github.com/DarkKowalski/tinyfs/internal/passthrough"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config represents metrics configuration
type Config struct {
	Address   string // listen address of the HTTP endpoint
	Path      string // path the metrics are served under
	Namespace string
}

// Collector records every operation of the table it traces. It implements
// passthrough.Tracer.
type Collector struct {
	mu       sync.Mutex
	config   *Config
	registry *prometheus.Registry
	logger   *logging.Logger

	operationCounter  *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	bytesCounter      *prometheus.CounterVec
	errorCounter      *prometheus.CounterVec

	openHandles prometheus.GaugeFunc

	server   *http.Server
	listener net.Listener
}

// NewCollector creates a new metrics collector with its own registry.
func NewCollector(config *Config) (*Collector, error) {
	if config == nil {
		config = &Config{
			Address:   "127.0.0.1:9469",
			Path:      "/metrics",
			Namespace: "tinyfs",
		}
	}

	c := &Collector{
		config:   config,
		registry: prometheus.NewRegistry(),
		logger:   logging.GetLogger().WithPrefix("METRICS"),
	}
	c.initMetrics()

	if err := c.registerMetrics(); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	return c, nil
}

func (c *Collector) initMetrics() {
	c.operationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.config.Namespace,
			Name:      "operations_total",
			Help:      "Total number of filesystem operations",
		},
		[]string{"operation", "status"},
	)

	c.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: c.config.Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of filesystem operations in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 12), // 10us to ~42s
		},
		[]string{"operation"},
	)

	c.bytesCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.config.Namespace,
			Name:      "transferred_bytes_total",
			Help:      "Bytes moved by read and write",
		},
		[]string{"operation"},
	)

	c.errorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.config.Namespace,
			Name:      "errors_total",
			Help:      "Failed filesystem operations by error kind",
		},
		[]string{"operation", "kind"},
	)
}

func (c *Collector) registerMetrics() error {
	metrics := []prometheus.Collector{
		c.operationCounter,
		c.operationDuration,
		c.bytesCounter,
		c.errorCounter,
	}

	for _, metric := range metrics {
		if err := c.registry.Register(metric); err != nil {
			return err
		}
	}
	return nil
}

// TrackHandles exports the value of count as the open handle gauge. It may
// be called once per collector.
func (c *Collector) TrackHandles(count func() int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.openHandles != nil {
		return errors.New("open handles are already tracked")
	}

	gauge := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: c.config.Namespace,
			Name:      "open_handles",
			Help:      "Number of files currently open through the filesystem",
		},
		func() float64 { return float64(count()) },
	)
	if err := c.registry.Register(gauge); err != nil {
		return fmt.Errorf("failed to register open handle gauge: %w", err)
	}
	c.openHandles = gauge
	return nil
}

// Trace implements passthrough.Tracer.
func (c *Collector) Trace(ev passthrough.Event) {
	status := "success"
	if ev.Err != nil {
		status = "error"
		c.errorCounter.With(prometheus.Labels{
			"operation": ev.Op,
			"kind":      classifyError(ev.Err),
		}).Inc()
	}

	c.operationCounter.With(prometheus.Labels{
		"operation": ev.Op,
		"status":    status,
	}).Inc()
	c.operationDuration.With(prometheus.Labels{
		"operation": ev.Op,
	}).Observe(ev.Duration.Seconds())

	if ev.Bytes > 0 {
		c.bytesCounter.With(prometheus.Labels{
			"operation": ev.Op,
		}).Add(float64(ev.Bytes))
	}
}

var errorKinds = []struct {
	kind  error
	label string
}{
	{passthrough.ErrNotFound, "not_found"},
	{passthrough.ErrNotADirectory, "not_a_directory"},
	{passthrough.ErrIsADirectory, "is_a_directory"},
	{passthrough.ErrPermissionDenied, "permission_denied"},
	{passthrough.ErrAlreadyExists, "already_exists"},
	{passthrough.ErrNotEmpty, "not_empty"},
	{passthrough.ErrInvalidHandle, "invalid_handle"},
}

func classifyError(err error) string {
	for _, k := range errorKinds {
		if errors.Is(err, k.kind) {
			return k.label
		}
	}
	return "host_io"
}

// Handler returns the HTTP handler serving the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Start listens on the configured address and serves metrics in the
// background until Stop is called or ctx is cancelled.
func (c *Collector) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.server != nil {
		return errors.New("metrics server already started")
	}

	listener, err := net.Listen("tcp", c.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", c.config.Address, err)
	}

	mux := http.NewServeMux()
	mux.Handle(c.config.Path, c.Handler())

	c.listener = listener
	c.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	server := c.server
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("Metrics server error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	c.logger.Info("Serving metrics on http://%s%s", listener.Addr(), c.config.Path)
	return nil
}

// Addr returns the address the metrics server listens on, or nil before
// Start.
func (c *Collector) Addr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.listener == nil {
		return nil
	}
	return c.listener.Addr()
}

// Stop stops the metrics server
func (c *Collector) Stop(ctx context.Context) error {
	c.mu.Lock()
	server := c.server
	c.mu.Unlock()

	if server != nil {
		return server.Shutdown(ctx)
	}
	return nil
}
