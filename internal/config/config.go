// Package config provides configuration management for entropool.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mrz1836/entropool/internal/chacha"
	"github.com/mrz1836/entropool/internal/engine"
	"github.com/mrz1836/entropool/internal/fileutil"
	"github.com/mrz1836/entropool/internal/pool"
	poolerr "github.com/mrz1836/entropool/pkg/errors"
)

// Config represents the application configuration.
type Config struct {
	Version int           `yaml:"version"`
	Home    string        `yaml:"home"`
	Pool    PoolConfig    `yaml:"pool"`
	Cipher  CipherConfig  `yaml:"cipher"`
	Server  ServerConfig  `yaml:"server"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// PoolConfig defines buffer pool settings.
type PoolConfig struct {
	Buffers         int    `yaml:"buffers"`
	RowWords        int    `yaml:"row_words"`
	Policy          string `yaml:"policy"`
	RefreshInterval string `yaml:"refresh_interval"`
	StagingFastMax  int    `yaml:"staging_fast_max"`
	MemoryLock      bool   `yaml:"memory_lock"`
}

// CipherConfig defines whitening cipher settings.
type CipherConfig struct {
	Rounds int `yaml:"rounds"`
}

// ServerConfig defines HTTP server settings.
type ServerConfig struct {
	Listen          string  `yaml:"listen"`
	MaxRequestBytes int     `yaml:"max_request_bytes"`
	RatePerSecond   float64 `yaml:"rate_per_second"`
	Burst           int     `yaml:"burst"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
	Color         string `yaml:"color"`
	Verbose       bool   `yaml:"verbose"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads configuration from the specified file.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, poolerr.Wrap(poolerr.ErrConfigInvalid, "parsing %s: %v", path, err)
	}

	return cfg, nil
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return fileutil.WriteAtomic(path, data, 0o600)
}

// Path returns the default config file path.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// DefaultHome returns the default entropool home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".entropool"
	}
	return filepath.Join(home, ".entropool")
}

// Validate checks every setting the engine and server depend on.
func (c *Config) Validate() error {
	if err := c.PoolConfig().Validate(); err != nil {
		return err
	}
	if _, err := engine.ParsePolicy(c.Pool.Policy); err != nil {
		return err
	}
	if _, err := c.RefreshDuration(); err != nil {
		return err
	}
	if c.Pool.StagingFastMax < 0 {
		return invalid("pool.staging_fast_max", strconv.Itoa(c.Pool.StagingFastMax), "must not be negative")
	}
	if !chacha.ValidRounds(c.Cipher.Rounds) {
		return poolerr.WithDetails(poolerr.ErrInvalidRounds, map[string]string{
			"rounds": strconv.Itoa(c.Cipher.Rounds),
			"valid":  "8, 12, 20",
		})
	}
	if c.Server.MaxRequestBytes < 1 {
		return invalid("server.max_request_bytes", strconv.Itoa(c.Server.MaxRequestBytes), "must be positive")
	}
	if c.Server.RatePerSecond <= 0 {
		return invalid("server.rate_per_second", strconv.FormatFloat(c.Server.RatePerSecond, 'f', -1, 64), "must be positive")
	}
	if c.Server.Burst < 1 {
		return invalid("server.burst", strconv.Itoa(c.Server.Burst), "must be positive")
	}
	return nil
}

func invalid(key, value, reason string) error {
	return poolerr.WithDetails(poolerr.ErrConfigInvalid, map[string]string{
		"key":    key,
		"value":  value,
		"reason": reason,
	})
}

// PoolConfig returns the pool dimensions.
func (c *Config) PoolConfig() pool.Config {
	return pool.Config{
		Buffers:    c.Pool.Buffers,
		RowWords:   c.Pool.RowWords,
		LockMemory: c.Pool.MemoryLock,
	}
}

// RefreshDuration parses the background refresh interval.
func (c *Config) RefreshDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.Pool.RefreshInterval)
	if err != nil || d <= 0 {
		return 0, invalid("pool.refresh_interval", c.Pool.RefreshInterval, "must be a positive duration such as 601s")
	}
	return d, nil
}

// GetHome returns the entropool home directory.
func (c *Config) GetHome() string {
	return c.Home
}

// GetLoggingLevel returns the configured logging level.
func (c *Config) GetLoggingLevel() string {
	return c.Logging.Level
}

// GetLoggingFile returns the configured log file path.
func (c *Config) GetLoggingFile() string {
	return c.Logging.File
}

// GetOutputFormat returns the default output format.
func (c *Config) GetOutputFormat() string {
	return c.Output.DefaultFormat
}

// IsVerbose returns true if verbose output is enabled.
func (c *Config) IsVerbose() bool {
	return c.Output.Verbose
}
