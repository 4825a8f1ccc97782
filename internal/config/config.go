// Package config loads netifd's process-level configuration: the resolv
// writer's output path, the OTel exporter endpoint, and the resolv
// rewrite interval. The config/RPC surface that would populate interface
// state is out of scope (spec.md §1); this is only the daemon's own
// bootstrap knobs.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is netifd's daemon-level configuration.
type Config struct {
	ResolvConfPath    string
	ResolvRewriteEvery time.Duration
	MetricsAddr       string
	LogLevel          string
}

// Default returns netifd's built-in defaults, overridden by environment
// variables where set (the teacher's config pattern: env-driven with
// hardcoded fallbacks, no file-based loader since that surface is
// out of scope here).
func Default() *Config {
	cfg := &Config{
		ResolvConfPath:     "/tmp/resolv.conf",
		ResolvRewriteEvery: 5 * time.Second,
		MetricsAddr:        ":9090",
		LogLevel:           "info",
	}

	if v := os.Getenv("NETIFD_RESOLV_CONF_PATH"); v != "" {
		cfg.ResolvConfPath = v
	}
	if v := os.Getenv("NETIFD_RESOLV_REWRITE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ResolvRewriteEvery = d
		}
	}
	if v := os.Getenv("NETIFD_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("NETIFD_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	return cfg
}

// ParseBoolEnv reads a boolean from the named environment variable,
// returning def when it is unset or does not parse. cmd/netifd does not
// call it.
func ParseBoolEnv(name string, def bool) bool {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
