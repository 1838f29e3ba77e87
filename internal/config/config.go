// Package config loads and validates reflow.json, the server's project
// configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/reflow-dev/reflow/internal/errors"
	"github.com/reflow-dev/reflow/pkg/live"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "reflow.json"

	// DefaultPort is the default server port.
	DefaultPort = 3000

	// DefaultHost is the default bind host.
	DefaultHost = "localhost"
)

// Config represents the complete reflow.json configuration.
type Config struct {
	// Name is the project name, used as the metrics namespace default.
	Name string `json:"name,omitempty"`

	// Version is the project version.
	Version string `json:"version,omitempty"`

	// Host is the bind host.
	Host string `json:"host,omitempty"`

	// Port is the server port.
	Port int `json:"port,omitempty"`

	// Live contains WebSocket connection tuning.
	Live LiveConfig `json:"live,omitempty"`

	// Metrics contains Prometheus settings.
	Metrics MetricsConfig `json:"metrics,omitempty"`

	// Log contains logging settings.
	Log LogConfig `json:"log,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// LiveConfig contains WebSocket connection settings. Durations are strings
// in time.ParseDuration form (e.g. "30s").
type LiveConfig struct {
	// PingInterval is how often the server pings idle peers.
	PingInterval string `json:"pingInterval,omitempty"`

	// WriteTimeout bounds each socket write.
	WriteTimeout string `json:"writeTimeout,omitempty"`

	// ReadTimeout is the idle deadline; pongs extend it.
	ReadTimeout string `json:"readTimeout,omitempty"`

	// MaxFrameSize caps inbound message size in bytes.
	MaxFrameSize int64 `json:"maxFrameSize,omitempty"`

	// SendBuffer is the per-peer outbound queue length.
	SendBuffer int `json:"sendBuffer,omitempty"`

	// AllowedOrigins lists Origin headers accepted on upgrade.
	AllowedOrigins []string `json:"allowedOrigins,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled controls whether metrics are registered and served.
	Enabled bool `json:"enabled,omitempty"`

	// Namespace is the metrics namespace (default: the project name).
	Namespace string `json:"namespace,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty"`

	// Format is "text" or "json".
	Format string `json:"format,omitempty"`
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		Name:    "reflow",
		Version: "0.1.0",
		Host:    DefaultHost,
		Port:    DefaultPort,
		Live: LiveConfig{
			PingInterval: "30s",
			WriteTimeout: "10s",
			ReadTimeout:  "60s",
			MaxFrameSize: 1 << 20,
			SendBuffer:   64,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from the specified directory. It looks for
// reflow.json there; a missing file yields the defaults.
func Load(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ConfigFileName)
	return LoadFile(configPath)
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := New()
			cfg.configPath = path
			return cfg, nil
		}
		return nil, errors.Wrap("E101", errors.CategoryConfig, "cannot read "+ConfigFileName, err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap("E102", errors.CategoryConfig, "cannot parse "+ConfigFileName, err).
			WithSuggestion("check that " + ConfigFileName + " is valid JSON")
	}
	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration back to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.New("E104", errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap("E105", errors.CategoryConfig, "cannot encode "+ConfigFileName, err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap("E105", errors.CategoryConfig, "cannot write "+path, err)
	}
	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Addr returns the host:port bind address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	d := New()
	if c.Name == "" {
		c.Name = d.Name
	}
	if c.Host == "" {
		c.Host = d.Host
	}
	if c.Port == 0 {
		c.Port = d.Port
	}
	if c.Live.PingInterval == "" {
		c.Live.PingInterval = d.Live.PingInterval
	}
	if c.Live.WriteTimeout == "" {
		c.Live.WriteTimeout = d.Live.WriteTimeout
	}
	if c.Live.ReadTimeout == "" {
		c.Live.ReadTimeout = d.Live.ReadTimeout
	}
	if c.Live.MaxFrameSize == 0 {
		c.Live.MaxFrameSize = d.Live.MaxFrameSize
	}
	if c.Live.SendBuffer == 0 {
		c.Live.SendBuffer = d.Live.SendBuffer
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = c.Name
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

// Validate checks field values and duration syntax.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return errors.New("E103", errors.CategoryConfig, fmt.Sprintf("invalid port %d", c.Port)).
			WithSuggestion("use a port between 1 and 65535")
	}
	for _, d := range []struct{ name, value string }{
		{"live.pingInterval", c.Live.PingInterval},
		{"live.writeTimeout", c.Live.WriteTimeout},
		{"live.readTimeout", c.Live.ReadTimeout},
	} {
		if _, err := time.ParseDuration(d.value); err != nil {
			return errors.Wrap("E103", errors.CategoryConfig, "invalid duration for "+d.name, err).
				WithSuggestion(`use time.ParseDuration syntax, e.g. "30s" or "1m30s"`)
		}
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("E103", errors.CategoryConfig, "invalid log level "+c.Log.Level).
			WithSuggestion("use debug, info, warn, or error")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.New("E103", errors.CategoryConfig, "invalid log format "+c.Log.Format).
			WithSuggestion("use text or json")
	}
	return nil
}

// LiveConfig converts the wire-format settings into live.Config. Call only
// after Validate; bad durations panic here.
func (c *Config) LiveConfig() live.Config {
	mustParse := func(s string) time.Duration {
		d, err := time.ParseDuration(s)
		if err != nil {
			panic(fmt.Sprintf("config not validated: %v", err))
		}
		return d
	}
	return live.Config{
		PingInterval:   mustParse(c.Live.PingInterval),
		WriteTimeout:   mustParse(c.Live.WriteTimeout),
		ReadTimeout:    mustParse(c.Live.ReadTimeout),
		MaxFrameSize:   c.Live.MaxFrameSize,
		SendBuffer:     c.Live.SendBuffer,
		AllowedOrigins: c.Live.AllowedOrigins,
	}
}
