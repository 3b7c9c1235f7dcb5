package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvHome            = "ENTROPOOL_HOME"
	EnvPolicy          = "ENTROPOOL_POLICY"
	EnvListen          = "ENTROPOOL_LISTEN"
	EnvOutputFormat    = "ENTROPOOL_OUTPUT_FORMAT"
	EnvVerbose         = "ENTROPOOL_VERBOSE"
	EnvLogLevel        = "ENTROPOOL_LOG_LEVEL"
	EnvRefreshInterval = "ENTROPOOL_REFRESH_INTERVAL"
	EnvCipherRounds    = "ENTROPOOL_CIPHER_ROUNDS"
	EnvNoColor         = "NO_COLOR"
)

// DotEnvFile is the name of the optional environment file.
const DotEnvFile = ".env"

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are skipped and variables that are already set
// keep their value.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return err
		}
	}
	return nil
}

// ApplyEnvironment applies environment variable overrides to the configuration.
//
//nolint:gocognit,gocyclo // Environment variable overrides require sequential checks
func ApplyEnvironment(cfg *Config) {
	if v := os.Getenv(EnvHome); v != "" {
		cfg.Home = v
	}

	if v := os.Getenv(EnvPolicy); v != "" {
		cfg.Pool.Policy = strings.ToLower(strings.TrimSpace(v))
	}

	if v := os.Getenv(EnvListen); v != "" {
		cfg.Server.Listen = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvOutputFormat); v != "" {
		cfg.Output.DefaultFormat = strings.ToLower(v)
	}

	if v := os.Getenv(EnvVerbose); v != "" {
		cfg.Output.Verbose = parseBool(v)
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}

	if v := os.Getenv(EnvRefreshInterval); v != "" {
		cfg.Pool.RefreshInterval = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvCipherRounds); v != "" {
		if rounds, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.Cipher.Rounds = rounds
		}
	}

	// NO_COLOR disables colored output
	if _, ok := os.LookupEnv(EnvNoColor); ok {
		cfg.Output.Color = "never"
	}
}

// parseBool parses a boolean string value.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "1" || s == "true" || s == "yes" || s == "on" {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}
