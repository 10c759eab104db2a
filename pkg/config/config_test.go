package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	tempDir := t.TempDir()

	t.Run("Valid Config", func(t *testing.T) {
		configContent := `
amplifier:
  host: "192.168.1.50"
  port: 9101
  password: "9876"
  auto_connect: true
  timing:
    settle_delay: 300ms
    closed_retry: 10s

web:
  port: 8090
  bind_address: "127.0.0.1"

log_buffer:
  max_entries: 200

logging:
  level: "debug"
  file: "/var/log/ampd.log"
  console: true
  structured: true

mqtt:
  enabled: true
  broker: "mqtt.local"
`
		configPath := filepath.Join(tempDir, "valid.yaml")
		if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
			t.Fatalf("Failed to write config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		if config.Amplifier.Host != "192.168.1.50" {
			t.Errorf("Expected host 192.168.1.50, got %s", config.Amplifier.Host)
		}
		if config.Amplifier.Port != 9101 {
			t.Errorf("Expected port 9101, got %d", config.Amplifier.Port)
		}
		if config.Amplifier.Timing.SettleDelay != 300*time.Millisecond {
			t.Errorf("Expected settle delay 300ms, got %s", config.Amplifier.Timing.SettleDelay)
		}
		if config.Amplifier.Timing.ClosedRetry != 10*time.Second {
			t.Errorf("Expected closed retry 10s, got %s", config.Amplifier.Timing.ClosedRetry)
		}
		// Unset timings fall back to the protocol defaults
		if config.Amplifier.Timing.RefusedRetry != 3*time.Second {
			t.Errorf("Expected refused retry 3s, got %s", config.Amplifier.Timing.RefusedRetry)
		}
		if config.LogBuffer.MaxEntries != 200 {
			t.Errorf("Expected max entries 200, got %d", config.LogBuffer.MaxEntries)
		}
		if !config.Logging.Structured || !config.Logging.Console {
			t.Error("Expected structured console logging")
		}
		if config.MQTT.Port != 1883 || config.MQTT.Topic != "ampd" {
			t.Errorf("Expected mqtt defaults, got port %d topic %s", config.MQTT.Port, config.MQTT.Topic)
		}
		if err := config.Validate(); err != nil {
			t.Errorf("Expected valid config, got: %v", err)
		}
	})

	t.Run("Defaults", func(t *testing.T) {
		configPath := filepath.Join(tempDir, "empty.yaml")
		if err := os.WriteFile(configPath, []byte("amplifier:\n  host: amp.local\n"), 0644); err != nil {
			t.Fatalf("Failed to write config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		if config.Amplifier.Port != 9100 {
			t.Errorf("Expected default port 9100, got %d", config.Amplifier.Port)
		}
		if config.Amplifier.Password != "1234" {
			t.Errorf("Expected default password 1234, got %s", config.Amplifier.Password)
		}
		if config.Amplifier.Timing.InactivityTimeout != 30*time.Second {
			t.Errorf("Expected inactivity timeout 30s, got %s", config.Amplifier.Timing.InactivityTimeout)
		}
		if config.Web.Port != 8080 {
			t.Errorf("Expected web port 8080, got %d", config.Web.Port)
		}
		if config.API.UnixSocket != "/tmp/ampd.sock" {
			t.Errorf("Expected socket /tmp/ampd.sock, got %s", config.API.UnixSocket)
		}
		if config.LogBuffer.MaxEntries != 500 {
			t.Errorf("Expected 500 log entries, got %d", config.LogBuffer.MaxEntries)
		}
	})

	t.Run("Missing File", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(tempDir, "nope.yaml"))
		if err == nil || !strings.Contains(err.Error(), "failed to read config file") {
			t.Errorf("Expected read error, got %v", err)
		}
	})

	t.Run("Invalid YAML", func(t *testing.T) {
		_, err := ParseConfig([]byte("amplifier: [unterminated"))
		if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
			t.Errorf("Expected parse error, got %v", err)
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"Defaults are valid", func(c *Config) {}, ""},
		{"Auto connect without host", func(c *Config) { c.Amplifier.AutoConnect = true }, "host is required"},
		{"Port out of range", func(c *Config) { c.Amplifier.Port = 70000 }, "amplifier port"},
		{"Web port out of range", func(c *Config) { c.Web.Port = -1 }, "web port"},
		{"Negative timing", func(c *Config) { c.Amplifier.Timing.CloseGrace = -time.Second }, "close_grace"},
		{"MQTT without broker", func(c *Config) { c.MQTT.Enabled = true }, "mqtt broker"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestAmplifierOptions(t *testing.T) {
	c := Default()
	c.Amplifier.Telnet = true
	c.Amplifier.Timing.SettleDelay = 250 * time.Millisecond

	opts := c.AmplifierOptions()
	if opts.SettleDelay != 250*time.Millisecond {
		t.Errorf("Expected settle delay 250ms, got %s", opts.SettleDelay)
	}
	if opts.ConnectTimeout != 30*time.Second || opts.KeepAlive != 10*time.Second {
		t.Errorf("Expected 30s/10s connect timing, got %s/%s", opts.ConnectTimeout, opts.KeepAlive)
	}
	if !opts.Telnet {
		t.Error("Expected telnet option to carry over")
	}
}

func TestSameTarget(t *testing.T) {
	a := Default()
	a.Amplifier.Host = "amp.local"
	b := Default()
	b.Amplifier.Host = "amp.local"
	b.Web.Port = 9999

	if !a.SameTarget(b) {
		t.Error("Expected web changes to keep the same target")
	}

	b.Amplifier.Password = "0000"
	if a.SameTarget(b) {
		t.Error("Expected password change to change the target")
	}
}
