package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML config file, applies environment variable
// overrides, and validates the result.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return cfg, nil
}

// Load builds a Config from defaults and environment variables alone, for
// callers that do not carry a config file.
func Load() (*Config, error) {
	return LoadFile("")
}

func applyEnvOverrides(cfg *Config) {
	if url := os.Getenv("CORELINK_TRANSPORT_URL"); url != "" {
		cfg.Transport.URL = url
	}
	if baud := os.Getenv("CORELINK_TRANSPORT_BAUD"); baud != "" {
		if b, err := strconv.Atoi(baud); err == nil {
			cfg.Transport.Baud = b
		}
	}
	if level := os.Getenv("CORELINK_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("CORELINK_LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}
	if window := os.Getenv("CORELINK_DISCOVERY_WINDOW_SECONDS"); window != "" {
		if w, err := strconv.Atoi(window); err == nil {
			cfg.Timeouts.DiscoveryWindowSeconds = w
		}
	}
	if wait := os.Getenv("CORELINK_RESERVATION_WAIT_SECONDS"); wait != "" {
		if w, err := strconv.Atoi(wait); err == nil {
			cfg.Timeouts.ReservationWaitSeconds = w
		}
	}
}
