package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/DarkKowalski/tinyfs/internal/config"
	"github.com/DarkKowalski/tinyfs/internal/fs"
	"github.com/DarkKowalski/tinyfs/internal/host"
	"github.com/DarkKowalski/tinyfs/internal/logging"
	"github.com/DarkKowalski/tinyfs/internal/metrics"
	"github.com/DarkKowalski/tinyfs/internal/passthrough"

	"github.com/dustin/go-humanize"
)

var (
	logger = logging.GetLogger()
)

const usage = `Usage: tinyfs [flags] ROOT MOUNTPOINT

Mirror the directory tree under ROOT at MOUNTPOINT.

Flags:
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		logger.Error("%v", err)
		os.Exit(1)
	}
}

// loadConfig assembles the configuration from defaults, the optional YAML
// and dotenv files, the environment and finally the command line.
func loadConfig(args []string) (*config.Config, error) {
	flags := flag.NewFlagSet("tinyfs", flag.ContinueOnError)
	flags.Usage = func() {
		fmt.Fprint(flags.Output(), usage)
		flags.PrintDefaults()
	}

	rootDir := flags.String("root", "", "Directory to mirror")
	mountPoint := flags.String("mount", "", "Mount point for the filesystem")
	configFile := flags.String("config", "", "YAML configuration file")
	envFile := flags.String("env", "", "Dotenv file with TINYFS_* settings")
	verbose := flags.Bool("verbose", false, "Enable verbose logging")
	singleThreaded := flags.Bool("single-threaded", false, "Handle one request at a time")
	bridge := flags.String("bridge", "", "Kernel bridge: bazil or cgofuse")
	metricsAddr := flags.String("metrics-addr", "", "Serve Prometheus metrics on this address")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	cfg := config.NewDefault()
	if *configFile != "" {
		if err := cfg.LoadFromFile(*configFile); err != nil {
			return nil, err
		}
	}
	if *envFile != "" {
		if err := cfg.LoadFromEnvFile(*envFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}

	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "root":
			cfg.Root = *rootDir
		case "mount":
			cfg.MountPoint = *mountPoint
		case "verbose":
			if *verbose {
				cfg.LogLevel = logging.LevelDebug.String()
			}
		case "single-threaded":
			cfg.SingleThreaded = *singleThreaded
		case "bridge":
			cfg.Bridge = *bridge
		case "metrics-addr":
			cfg.Metrics.Enabled = true
			cfg.Metrics.Address = *metricsAddr
		}
	})

	switch positional := flags.Args(); len(positional) {
	case 0:
	case 2:
		cfg.Root, cfg.MountPoint = positional[0], positional[1]
	default:
		flags.Usage()
		return nil, fmt.Errorf("expected ROOT and MOUNTPOINT, got %d arguments", len(positional))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg.Root = filepath.Clean(cfg.Root)
	cfg.MountPoint = filepath.Clean(cfg.MountPoint)
	return cfg, nil
}

func checkRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("cannot use root directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root %s is not a directory", root)
	}
	return nil
}

func logCapacity(ops passthrough.Operations, root string) {
	st, err := ops.Statfs("/")
	if err != nil {
		logger.Warn("Cannot read capacity of %s: %v", root, err)
		return
	}
	logger.Info("Root %s: %s free of %s, %d inodes free",
		root,
		humanize.IBytes(st.Bavail*st.Frsize),
		humanize.IBytes(st.Blocks*st.Frsize),
		st.Ffree,
	)
}

func run(args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	if level, ok := logging.ParseLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	logger.Info("Starting tinyfs...")
	logger.Debug("Root: %s", cfg.Root)
	logger.Debug("Mount point: %s", cfg.MountPoint)
	logger.Debug("Bridge: %s (single-threaded=%v)", cfg.Bridge, cfg.SingleThreaded)

	if err := checkRoot(cfg.Root); err != nil {
		return err
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector, err = metrics.NewCollector(&metrics.Config{
			Address:   cfg.Metrics.Address,
			Path:      cfg.Metrics.Path,
			Namespace: "tinyfs",
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics collector: %w", err)
		}
	}

	tracer := passthrough.Tracers(passthrough.NewLogTracer(logger.WithPrefix("ops")), tracerOrNil(collector))
	ops, err := passthrough.New(cfg.Root, host.OS{}, tracer)
	if err != nil {
		return fmt.Errorf("failed to create operation table: %w", err)
	}
	logCapacity(ops, ops.Root())

	logger.Debug("Setting up signal handlers...")
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if collector != nil {
		if err := collector.TrackHandles(ops.OpenHandles); err != nil {
			return err
		}
		if err := collector.Start(ctx); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := collector.Stop(shutdownCtx); err != nil {
				logger.Warn("Metrics server shutdown: %v", err)
			}
		}()
	}

	options := fs.Options{
		FSName:             cfg.Mount.FSName,
		Subtype:            cfg.Mount.Subtype,
		AllowOther:         cfg.Mount.AllowOther,
		DefaultPermissions: cfg.Mount.DefaultPermissions,
		AllowNonEmpty:      cfg.Mount.AllowNonEmpty,
		SingleThreaded:     cfg.SingleThreaded,
	}

	switch cfg.Bridge {
	case config.BridgeCgofuse:
		err = fs.ServeCgofuse(ctx, ops, cfg.MountPoint, options)
	default:
		var tfs *fs.TinyFS
		tfs, err = fs.NewTinyFS(ops, options)
		if err == nil {
			err = tfs.Serve(ctx, cfg.MountPoint)
		}
	}
	if err != nil {
		return err
	}

	if n := ops.OpenHandles(); n > 0 {
		logger.Warn("%d handles were still open at shutdown", n)
	}
	logger.Info("Clean shutdown complete")
	return nil
}

// tracerOrNil keeps a nil collector from becoming a non-nil Tracer.
func tracerOrNil(c *metrics.Collector) passthrough.Tracer {
	if c == nil {
		return nil
	}
	return c
}
