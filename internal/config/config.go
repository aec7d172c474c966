// Package config handles configuration loading using viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the top-level static configuration. Maps to the `darkstat:`
// root key in YAML.
type Config struct {
	Capture CaptureConfig `mapstructure:"capture"`
	DNS     DNSConfig     `mapstructure:"dns"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Log     LogConfig     `mapstructure:"log"`
}

// configRoot wraps Config under the `darkstat:` YAML root key.
type configRoot struct {
	Darkstat Config `mapstructure:"darkstat"`
}

// CaptureConfig selects and tunes the capture source.
type CaptureConfig struct {
	Interface string `mapstructure:"interface"`
	Source    string `mapstructure:"source"` // pcap | afpacket
	Promisc   bool   `mapstructure:"promisc"`
	Filter    string `mapstructure:"filter"` // BPF filter expression

	// PPPoE makes the Ethernet decoder expect PPPoE session frames.
	PPPoE bool `mapstructure:"pppoe"`

	TimeoutMs    int `mapstructure:"timeout_ms"`
	BufferSizeMB int `mapstructure:"buffer_size_mb"` // afpacket ring size
}

// DNSConfig controls the reverse-DNS resolver child process.
type DNSConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// PrivdropUser is the account the resolver child runs as. Empty
	// keeps the invoking user's privileges.
	PrivdropUser string `mapstructure:"privdrop_user"`
}

// MetricsConfig contains Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string           `mapstructure:"level"`  // debug | info | warn | error
	Format  string           `mapstructure:"format"` // json | text
	Outputs LogOutputsConfig `mapstructure:"outputs"`
}

// LogOutputsConfig lists log output destinations. Stdout is always on.
type LogOutputsConfig struct {
	File FileOutputConfig `mapstructure:"file"`
}

// FileOutputConfig configures rotated file output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Path     string         `mapstructure:"path"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig contains file rotation settings.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups"`
	Compress   bool `mapstructure:"compress"`
}

// Load reads, defaults and validates the configuration at path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Environment variable overrides: key "darkstat.log.level" maps to
	// env "DARKSTAT_LOG_LEVEL" via the key replacer.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Darkstat

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("darkstat.capture.source", "pcap")
	v.SetDefault("darkstat.capture.promisc", true)
	v.SetDefault("darkstat.capture.timeout_ms", 500)
	v.SetDefault("darkstat.capture.buffer_size_mb", 16)

	v.SetDefault("darkstat.dns.enabled", true)

	v.SetDefault("darkstat.metrics.enabled", true)
	v.SetDefault("darkstat.metrics.listen", ":9113")
	v.SetDefault("darkstat.metrics.path", "/metrics")

	v.SetDefault("darkstat.log.level", "info")
	v.SetDefault("darkstat.log.format", "text")
	v.SetDefault("darkstat.log.outputs.file.enabled", false)
	v.SetDefault("darkstat.log.outputs.file.path", "/var/log/darkstat/darkstat.log")
	v.SetDefault("darkstat.log.outputs.file.rotation.max_size_mb", 100)
	v.SetDefault("darkstat.log.outputs.file.rotation.max_age_days", 30)
	v.SetDefault("darkstat.log.outputs.file.rotation.max_backups", 5)
	v.SetDefault("darkstat.log.outputs.file.rotation.compress", true)
}

// Validate checks cross-field constraints Load cannot express as defaults.
func (c *Config) Validate() error {
	if c.Capture.Interface == "" {
		return fmt.Errorf("capture.interface is required")
	}
	switch c.Capture.Source {
	case "pcap", "afpacket":
	default:
		return fmt.Errorf("capture.source must be pcap or afpacket, got %q", c.Capture.Source)
	}
	if c.Capture.TimeoutMs <= 0 {
		return fmt.Errorf("capture.timeout_ms must be positive, got %d", c.Capture.TimeoutMs)
	}
	return nil
}
