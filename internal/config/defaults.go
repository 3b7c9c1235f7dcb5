package config

import (
	"github.com/mrz1836/entropool/internal/chacha"
	"github.com/mrz1836/entropool/internal/engine"
	"github.com/mrz1836/entropool/internal/pool"
)

// Server defaults.
const (
	DefaultListen          = "127.0.0.1:8420"
	DefaultMaxRequestBytes = 16 << 20
	DefaultRatePerSecond   = 50
	DefaultBurst           = 100
)

// DefaultRefreshInterval is the background refresh interval as written to the
// config file.
const DefaultRefreshInterval = "601s"

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version: 1,
		Home:    "~/.entropool",
		Pool: PoolConfig{
			Buffers:         pool.DefaultBuffers,
			RowWords:        pool.DefaultRowWords,
			Policy:          engine.PolicyNameFast,
			RefreshInterval: DefaultRefreshInterval,
			StagingFastMax:  engine.DefaultStagingFastMax,
			MemoryLock:      true,
		},
		Cipher: CipherConfig{
			Rounds: chacha.DefaultRounds,
		},
		Server: ServerConfig{
			Listen:          DefaultListen,
			MaxRequestBytes: DefaultMaxRequestBytes,
			RatePerSecond:   DefaultRatePerSecond,
			Burst:           DefaultBurst,
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Color:         "auto",
			Verbose:       false,
		},
		Logging: LoggingConfig{
			Level: "error",
			File:  "~/.entropool/entropool.log",
		},
	}
}
