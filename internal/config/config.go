// Package config holds the link's configuration: transport settings,
// timeouts, and logging, loadable from a YAML file with environment
// variable overrides.
package config

import "fmt"

// Config holds everything needed to open and run a Link.
type Config struct {
	Transport TransportConfig `yaml:"transport"`
	Timeouts  TimeoutConfig   `yaml:"timeouts"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// TransportConfig describes the shared MAVLink transport.
type TransportConfig struct {
	// URL is a serial device path or a "udp:host:port" network endpoint.
	URL string `yaml:"url"`
	// Baud is used only for serial URLs.
	Baud int `yaml:"baud"`
}

// TimeoutConfig holds the link's timing knobs.
type TimeoutConfig struct {
	DiscoveryWindowSeconds int `yaml:"discovery_window_seconds"`
	ReservationWaitSeconds int `yaml:"reservation_wait_seconds"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json", "text"
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Transport: TransportConfig{
			URL:  "/dev/ttyUSB0",
			Baud: 57600,
		},
		Timeouts: TimeoutConfig{
			DiscoveryWindowSeconds: 5,
			ReservationWaitSeconds: 3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks that the configuration can be used to open a link.
func (c *Config) Validate() error {
	if c.Transport.URL == "" {
		return fmt.Errorf("transport url must not be empty")
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Timeouts.DiscoveryWindowSeconds <= 0 {
		return fmt.Errorf("discovery_window_seconds must be positive")
	}
	if c.Timeouts.ReservationWaitSeconds <= 0 {
		return fmt.Errorf("reservation_wait_seconds must be positive")
	}
	return nil
}
