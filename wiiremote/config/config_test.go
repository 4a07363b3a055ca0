package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Adapter != "hci0" {
		t.Errorf("Adapter = %q, want %q", cfg.Adapter, "hci0")
	}
	if cfg.Discovery.Capacity != 1 {
		t.Errorf("Discovery.Capacity = %d, want 1", cfg.Discovery.Capacity)
	}
	if cfg.Session.MTU != 48 {
		t.Errorf("Session.MTU = %d, want 48", cfg.Session.MTU)
	}
	if cfg.Session.PinCode != "0000" {
		t.Errorf("Session.PinCode = %q, want %q", cfg.Session.PinCode, "0000")
	}
	if cfg.Session.NegotiationTimeout != 10*time.Second {
		t.Errorf("Session.NegotiationTimeout = %v, want 10s", cfg.Session.NegotiationTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
}

func TestLoad(t *testing.T) {
	yamlContent := `
adapter: hci1
log_level: debug
discovery:
  inquiry_duration: 3s
  max_name_attempts: 0
session:
  negotiation_timeout: 2500ms
  pin_code: "1234"
monitor:
  headless: true
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Adapter != "hci1" {
		t.Errorf("Adapter = %q, want %q", cfg.Adapter, "hci1")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.Discovery.InquiryDuration != 3*time.Second {
		t.Errorf("Discovery.InquiryDuration = %v, want 3s", cfg.Discovery.InquiryDuration)
	}
	if cfg.Discovery.MaxNameAttempts != 0 {
		t.Errorf("Discovery.MaxNameAttempts = %d, want 0", cfg.Discovery.MaxNameAttempts)
	}
	if cfg.Session.NegotiationTimeout != 2500*time.Millisecond {
		t.Errorf("Session.NegotiationTimeout = %v, want 2.5s", cfg.Session.NegotiationTimeout)
	}
	if cfg.Session.PinCode != "1234" {
		t.Errorf("Session.PinCode = %q, want %q", cfg.Session.PinCode, "1234")
	}
	if !cfg.Monitor.Headless {
		t.Error("Monitor.Headless = false, want true")
	}
	// untouched keys keep defaults
	if cfg.Discovery.Capacity != 1 {
		t.Errorf("Discovery.Capacity = %d, want default 1", cfg.Discovery.Capacity)
	}
	if cfg.Session.MTU != 48 {
		t.Errorf("Session.MTU = %d, want default 48", cfg.Session.MTU)
	}
}

func TestLoadExpandsTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("log_file: ~/wiiremote.log\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if want := filepath.Join(home, "wiiremote.log"); cfg.LogFile != want {
		t.Errorf("LogFile = %q, want %q", cfg.LogFile, want)
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load() should return error for nonexistent file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("discovery: [unclosed"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	if _, err := Load(cfgPath); err == nil {
		t.Error("Load() should fail on malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"valid default", func(c *Config) {}, ""},
		{"bad adapter", func(c *Config) { c.Adapter = "wlan0" }, "adapter"},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, "log_level"},
		{"zero inquiry", func(c *Config) { c.Discovery.InquiryDuration = 0 }, "inquiry_duration"},
		{"zero capacity", func(c *Config) { c.Discovery.Capacity = 0 }, "capacity"},
		{"negative attempts", func(c *Config) { c.Discovery.MaxNameAttempts = -1 }, "max_name_attempts"},
		{"negative timeout", func(c *Config) { c.Session.NegotiationTimeout = -time.Second }, "negotiation_timeout"},
		{"disabled timeout", func(c *Config) { c.Session.NegotiationTimeout = 0 }, ""},
		{"small mtu", func(c *Config) { c.Session.MTU = 23 }, "mtu"},
		{"empty pin", func(c *Config) { c.Session.PinCode = "" }, "pin_code"},
		{"zero poll", func(c *Config) { c.Monitor.PollInterval = 0 }, "poll_interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}
