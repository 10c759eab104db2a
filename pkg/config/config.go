package config

import (
	"fmt"
	"os"
	"time"

	"github.com/dougsko/ampd/pkg/amp"
	"github.com/dougsko/ampd/pkg/logging"
	"gopkg.in/yaml.v2"
)

// Config represents the ampd configuration
type Config struct {
	Amplifier struct {
		Host        string `yaml:"host"`
		Port        int    `yaml:"port"`
		Password    string `yaml:"password"`
		AutoConnect bool   `yaml:"auto_connect"`

		// Wrap the stream in a telnet codec for firmware that negotiates options
		Telnet bool `yaml:"telnet"`

		Timing struct {
			ConnectTimeout    time.Duration `yaml:"connect_timeout"`
			KeepAlive         time.Duration `yaml:"keepalive"`
			InactivityTimeout time.Duration `yaml:"inactivity_timeout"`
			SettleDelay       time.Duration `yaml:"settle_delay"`
			RefusedRetry      time.Duration `yaml:"refused_retry"`
			ClosedRetry       time.Duration `yaml:"closed_retry"`
			CloseGrace        time.Duration `yaml:"close_grace"`
		} `yaml:"timing"`
	} `yaml:"amplifier"`

	Web struct {
		Port        int    `yaml:"port"`
		BindAddress string `yaml:"bind_address"`
	} `yaml:"web"`

	API struct {
		UnixSocket string `yaml:"unix_socket"`
	} `yaml:"api"`

	LogBuffer struct {
		MaxEntries int `yaml:"max_entries"`
	} `yaml:"log_buffer"`

	Logging logging.Config `yaml:"logging"`

	MQTT struct {
		Enabled  bool   `yaml:"enabled"`
		Broker   string `yaml:"broker"`
		Port     int    `yaml:"port"`
		Topic    string `yaml:"topic"`
		ClientID string `yaml:"client_id"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"mqtt"`

	Notify struct {
		TripAlerts bool `yaml:"trip_alerts"`
	} `yaml:"notify"`
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML and fills in defaults
func ParseConfig(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.setDefaults()
	return &config, nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	var config Config
	config.setDefaults()
	return &config
}

func (c *Config) setDefaults() {
	if c.Amplifier.Port == 0 {
		c.Amplifier.Port = amp.DefaultPort
	}
	if c.Amplifier.Password == "" {
		c.Amplifier.Password = amp.DefaultProbePassword
	}

	timing := &c.Amplifier.Timing
	if timing.ConnectTimeout == 0 {
		timing.ConnectTimeout = amp.DefaultConnectTimeout
	}
	if timing.KeepAlive == 0 {
		timing.KeepAlive = amp.DefaultKeepAlive
	}
	if timing.InactivityTimeout == 0 {
		timing.InactivityTimeout = amp.DefaultInactivityTimeout
	}
	if timing.SettleDelay == 0 {
		timing.SettleDelay = amp.DefaultSettleDelay
	}
	if timing.RefusedRetry == 0 {
		timing.RefusedRetry = amp.DefaultRefusedRetryDelay
	}
	if timing.ClosedRetry == 0 {
		timing.ClosedRetry = amp.DefaultClosedRetryDelay
	}
	if timing.CloseGrace == 0 {
		timing.CloseGrace = amp.DefaultCloseGrace
	}

	if c.Web.Port == 0 {
		c.Web.Port = 8080
	}
	if c.Web.BindAddress == "" {
		c.Web.BindAddress = "0.0.0.0"
	}
	if c.API.UnixSocket == "" {
		c.API.UnixSocket = "/tmp/ampd.sock"
	}
	if c.LogBuffer.MaxEntries == 0 {
		c.LogBuffer.MaxEntries = 500
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.MaxSize == 0 {
		c.Logging.MaxSize = 10
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = 3
	}
	if c.Logging.MaxAge == 0 {
		c.Logging.MaxAge = 28
	}
	if c.MQTT.Port == 0 {
		c.MQTT.Port = 1883
	}
	if c.MQTT.Topic == "" {
		c.MQTT.Topic = "ampd"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "ampd"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Amplifier.AutoConnect && c.Amplifier.Host == "" {
		return fmt.Errorf("amplifier host is required when auto_connect is enabled")
	}
	if c.Amplifier.Port < 1 || c.Amplifier.Port > 65535 {
		return fmt.Errorf("amplifier port %d out of range", c.Amplifier.Port)
	}
	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web port %d out of range", c.Web.Port)
	}
	if c.LogBuffer.MaxEntries < 1 {
		return fmt.Errorf("log_buffer max_entries must be positive")
	}

	timing := c.Amplifier.Timing
	for name, d := range map[string]time.Duration{
		"connect_timeout":    timing.ConnectTimeout,
		"keepalive":          timing.KeepAlive,
		"inactivity_timeout": timing.InactivityTimeout,
		"settle_delay":       timing.SettleDelay,
		"refused_retry":      timing.RefusedRetry,
		"closed_retry":       timing.ClosedRetry,
		"close_grace":        timing.CloseGrace,
	} {
		if d < 0 {
			return fmt.Errorf("amplifier timing %s must not be negative", name)
		}
	}

	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt broker is required when mqtt is enabled")
	}
	return nil
}

// AmplifierOptions converts the timing section into session options
func (c *Config) AmplifierOptions() amp.Options {
	timing := c.Amplifier.Timing
	return amp.Options{
		ConnectTimeout:    timing.ConnectTimeout,
		KeepAlive:         timing.KeepAlive,
		InactivityTimeout: timing.InactivityTimeout,
		SettleDelay:       timing.SettleDelay,
		RefusedRetryDelay: timing.RefusedRetry,
		ClosedRetryDelay:  timing.ClosedRetry,
		CloseGrace:        timing.CloseGrace,
		Telnet:            c.Amplifier.Telnet,
	}
}

// AmplifierAddress returns host, port and password of the configured target
func (c *Config) AmplifierAddress() (string, int, string) {
	return c.Amplifier.Host, c.Amplifier.Port, c.Amplifier.Password
}

// SameTarget reports whether both configs point the session at the same
// amplifier with the same connection behaviour.
func (c *Config) SameTarget(other *Config) bool {
	return c.Amplifier.Host == other.Amplifier.Host &&
		c.Amplifier.Port == other.Amplifier.Port &&
		c.Amplifier.Password == other.Amplifier.Password &&
		c.Amplifier.Telnet == other.Amplifier.Telnet &&
		c.Amplifier.Timing == other.Amplifier.Timing
}
