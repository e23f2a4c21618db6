// Package config holds the process configuration of tinyfs and the layers it
// is assembled from: built-in defaults, a YAML file, a dotenv file and the
// process environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Bridge names accepted in Config.Bridge.
const (
	BridgeBazil   = "bazil"
	BridgeCgofuse = "cgofuse"
)

const envPrefix = "TINYFS_"

// Config represents the complete application configuration
type Config struct {
	Root           string        `yaml:"root"`
	MountPoint     string        `yaml:"mount_point"`
	LogLevel       string        `yaml:"log_level"`
	Bridge         string        `yaml:"bridge"`
	SingleThreaded bool          `yaml:"single_threaded"`
	Mount          MountConfig   `yaml:"mount"`
	Metrics        MetricsConfig `yaml:"metrics"`
}

// MountConfig represents options handed to the kernel at mount time
type MountConfig struct {
	FSName             string `yaml:"fsname"`
	Subtype            string `yaml:"subtype"`
	AllowOther         bool   `yaml:"allow_other"`
	DefaultPermissions bool   `yaml:"default_permissions"`
	AllowNonEmpty      bool   `yaml:"allow_non_empty"`
}

// MetricsConfig represents the Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Path    string `yaml:"path"`
}

// NewDefault returns a configuration with sensible defaults
func NewDefault() *Config {
	return &Config{
		LogLevel: "INFO",
		Bridge:   BridgeBazil,
		Mount: MountConfig{
			FSName:  "tinyfs",
			Subtype: "tinyfs",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: "127.0.0.1:9469",
			Path:    "/metrics",
		},
	}
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// LoadFromEnvFile loads TINYFS_* settings from dotenv files without
// touching the process environment.
func (c *Config) LoadFromEnvFile(filenames ...string) error {
	data, err := godotenv.Read(filenames...)
	if err != nil {
		return fmt.Errorf("failed to read env file: %w", err)
	}

	return c.apply(func(key string) string {
		return data[key]
	})
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	return c.apply(os.Getenv)
}

func (c *Config) apply(lookup func(string) string) error {
	get := func(name string) string {
		return strings.TrimSpace(lookup(envPrefix + name))
	}

	setString := func(name string, dst *string) {
		if val := get(name); val != "" {
			*dst = val
		}
	}

	var errs []string
	setBool := func(name string, dst *bool) {
		val := get(name)
		if val == "" {
			return
		}
		b, err := strconv.ParseBool(val)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s%s: %q is not a boolean", envPrefix, name, val))
			return
		}
		*dst = b
	}

	setString("ROOT", &c.Root)
	setString("MOUNT_POINT", &c.MountPoint)
	setString("LOG_LEVEL", &c.LogLevel)
	setString("BRIDGE", &c.Bridge)
	setBool("SINGLE_THREADED", &c.SingleThreaded)

	setString("FSNAME", &c.Mount.FSName)
	setString("SUBTYPE", &c.Mount.Subtype)
	setBool("ALLOW_OTHER", &c.Mount.AllowOther)
	setBool("DEFAULT_PERMISSIONS", &c.Mount.DefaultPermissions)
	setBool("ALLOW_NON_EMPTY", &c.Mount.AllowNonEmpty)

	setBool("METRICS_ENABLED", &c.Metrics.Enabled)
	setString("METRICS_ADDRESS", &c.Metrics.Address)
	setString("METRICS_PATH", &c.Metrics.Path)

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("root must be set")
	}

	if c.MountPoint == "" {
		return fmt.Errorf("mount_point must be set")
	}

	validLogLevels := []string{"ERROR", "WARN", "INFO", "DEBUG", "TRACE"}
	logLevelValid := false
	for _, level := range validLogLevels {
		if strings.EqualFold(c.LogLevel, level) {
			logLevelValid = true
			break
		}
	}
	if !logLevelValid {
		return fmt.Errorf("invalid log_level: %s (must be one of: %s)",
			c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	switch c.Bridge {
	case BridgeBazil, BridgeCgofuse:
	default:
		return fmt.Errorf("invalid bridge: %s (must be one of: %s, %s)", c.Bridge, BridgeBazil, BridgeCgofuse)
	}

	if c.Metrics.Enabled {
		if c.Metrics.Address == "" {
			return fmt.Errorf("metrics address must be set when metrics are enabled")
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return fmt.Errorf("metrics path must start with /: %s", c.Metrics.Path)
		}
	}

	return nil
}
