// Package config loads the process-level settings named in §6: where
// to watch for files, where to write processed output, how often to
// poll, where the pipeline document lives, and how to bind the
// observability HTTP surface. Layering follows the teacher's pattern:
// built-in defaults, then an optional YAML file, then environment
// variable overrides.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	apperrors "github.com/streamgraph/engine/pkg/errors"
)

// Config holds every process-level setting the core consumes (§6).
type Config struct {
	BaseDir        string        `yaml:"base_dir"`
	OutputDir      string        `yaml:"output_dir"`
	PollInterval   time.Duration `yaml:"-"`
	PollIntervalMS int           `yaml:"poll_interval_ms"`
	ConfigPath     string        `yaml:"config_path"`
	DashboardHost  string        `yaml:"dashboard_host"`
	DashboardPort  int           `yaml:"dashboard_port"`
	TracingEnabled bool          `yaml:"tracing_enabled"`
}

// Defaults returns the built-in baseline before any file or
// environment overrides are applied.
func Defaults() *Config {
	return &Config{
		BaseDir:        "./data",
		OutputDir:      "",
		PollIntervalMS: 1000,
		ConfigPath:     "./pipeline.yaml",
		DashboardHost:  "127.0.0.1",
		DashboardPort:  8000,
		TracingEnabled: false,
	}
}

// Load builds a Config by layering defaults, an optional YAML file at
// path (skipped entirely if path is empty or doesn't exist), and
// STREAMGRAPH_* environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	applyEnvironmentOverrides(cfg)

	cfg.PollInterval = time.Duration(cfg.PollIntervalMS) * time.Millisecond
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.BaseDir == "" {
		return nil, apperrors.Config("config.Load", "base_dir is required")
	}

	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return apperrors.IO("config.applyFile", "cannot read config file").Wrap(err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return apperrors.Config("config.applyFile", "malformed config file").Wrap(err)
	}
	return nil
}

func applyEnvironmentOverrides(cfg *Config) {
	if v := os.Getenv("STREAMGRAPH_BASE_DIR"); v != "" {
		cfg.BaseDir = v
	}
	if v := os.Getenv("STREAMGRAPH_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("STREAMGRAPH_POLL_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PollIntervalMS = n
		}
	}
	if v := os.Getenv("STREAMGRAPH_CONFIG_PATH"); v != "" {
		cfg.ConfigPath = v
	}
	if v := os.Getenv("STREAMGRAPH_DASHBOARD_HOST"); v != "" {
		cfg.DashboardHost = v
	}
	if v := os.Getenv("STREAMGRAPH_DASHBOARD_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DashboardPort = n
		}
	}
	if v := os.Getenv("STREAMGRAPH_TRACING_ENABLED"); v != "" {
		cfg.TracingEnabled = strings.EqualFold(v, "true") || v == "1"
	}
}
