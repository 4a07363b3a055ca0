package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Adapter   string          `yaml:"adapter"`
	LogLevel  string          `yaml:"log_level"`
	LogFile   string          `yaml:"log_file"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Session   SessionConfig   `yaml:"session"`
	Bluez     BluezConfig     `yaml:"bluez"`
	Monitor   MonitorConfig   `yaml:"monitor"`
}

// DiscoveryConfig holds inquiry and name resolution settings.
type DiscoveryConfig struct {
	InquiryDuration time.Duration `yaml:"inquiry_duration"`
	Capacity        int           `yaml:"capacity"`
	MaxNameAttempts int           `yaml:"max_name_attempts"` // 0 retries forever
}

// SessionConfig holds directory query and channel setup settings.
type SessionConfig struct {
	NegotiationTimeout time.Duration `yaml:"negotiation_timeout"` // 0 disables
	MTU                uint16        `yaml:"mtu"`
	PinCode            string        `yaml:"pin_code"`
}

// BluezConfig holds host stack settings.
type BluezConfig struct {
	OverrideService bool `yaml:"override_service"`
}

// MonitorConfig holds application loop settings.
type MonitorConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	Headless     bool          `yaml:"headless"`
	LedCounter   bool          `yaml:"led_counter"`
}

var adapterPattern = regexp.MustCompile(`^hci[0-9]+$`)

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "wiiremote")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with the values the remote is known to work with.
func Default() *Config {
	return &Config{
		Adapter:  "hci0",
		LogLevel: "info",
		Discovery: DiscoveryConfig{
			InquiryDuration: 6400 * time.Millisecond, // 5 x 1.28s inquiry units
			Capacity:        1,
			MaxNameAttempts: 3,
		},
		Session: SessionConfig{
			NegotiationTimeout: 10 * time.Second,
			MTU:                48,
			PinCode:            "0000",
		},
		Bluez: BluezConfig{
			OverrideService: false,
		},
		Monitor: MonitorConfig{
			PollInterval: time.Second / 60,
			Headless:     false,
			LedCounter:   true,
		},
	}
}

// Load reads and parses a YAML config file. Missing fields keep their defaults.
// A leading ~ in log_file is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.LogFile = expandTilde(cfg.LogFile)

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if !adapterPattern.MatchString(c.Adapter) {
		return fmt.Errorf("adapter must look like \"hci0\", got %q", c.Adapter)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	if c.Discovery.InquiryDuration <= 0 {
		return fmt.Errorf("discovery.inquiry_duration must be > 0")
	}
	if c.Discovery.Capacity < 1 {
		return fmt.Errorf("discovery.capacity must be >= 1")
	}
	if c.Discovery.MaxNameAttempts < 0 {
		return fmt.Errorf("discovery.max_name_attempts must be >= 0")
	}

	if c.Session.NegotiationTimeout < 0 {
		return fmt.Errorf("session.negotiation_timeout must be >= 0")
	}
	if c.Session.MTU < 48 {
		return fmt.Errorf("session.mtu must be >= 48, got %d", c.Session.MTU)
	}
	if c.Session.PinCode == "" || len(c.Session.PinCode) > 16 {
		return fmt.Errorf("session.pin_code must be 1-16 characters")
	}

	if c.Monitor.PollInterval <= 0 {
		return fmt.Errorf("monitor.poll_interval must be > 0")
	}

	return nil
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
