package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"1", "1", true},
		{"true", "true", true},
		{"TRUE", "TRUE", true},
		{"yes", "yes", true},
		{"YES", "YES", true},
		{"on", "on", true},
		{"ON", "ON", true},
		{"with spaces", "  true  ", true},
		{"0", "0", false},
		{"false", "false", false},
		{"FALSE", "FALSE", false},
		{"no", "no", false},
		{"off", "off", false},
		{"empty", "", false},
		{"random", "random", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			result := parseBool(tc.input)
			assert.Equal(t, tc.expected, result)
		})
	}
}

func TestApplyEnvironment(t *testing.T) {
	tests := []struct {
		name   string
		env    map[string]string
		verify func(t *testing.T, cfg *Config)
	}{
		{
			name: "home",
			env:  map[string]string{EnvHome: "/custom/home"},
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/custom/home", cfg.Home)
			},
		},
		{
			name: "policy is normalized",
			env:  map[string]string{EnvPolicy: " Whitened "},
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "whitened", cfg.Pool.Policy)
			},
		},
		{
			name: "listen",
			env:  map[string]string{EnvListen: " 0.0.0.0:9999 "},
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "0.0.0.0:9999", cfg.Server.Listen)
			},
		},
		{
			name: "output format",
			env:  map[string]string{EnvOutputFormat: "JSON"},
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "json", cfg.Output.DefaultFormat)
			},
		},
		{
			name: "verbose",
			env:  map[string]string{EnvVerbose: "yes"},
			verify: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.Output.Verbose)
			},
		},
		{
			name: "log level",
			env:  map[string]string{EnvLogLevel: "WARN"},
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "warn", cfg.Logging.Level)
			},
		},
		{
			name: "refresh interval",
			env:  map[string]string{EnvRefreshInterval: "5s"},
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "5s", cfg.Pool.RefreshInterval)
			},
		},
		{
			name: "cipher rounds",
			env:  map[string]string{EnvCipherRounds: "8"},
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8, cfg.Cipher.Rounds)
			},
		},
		{
			name: "invalid cipher rounds ignored",
			env:  map[string]string{EnvCipherRounds: "eight"},
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 20, cfg.Cipher.Rounds)
			},
		},
		{
			name: "no color",
			env:  map[string]string{EnvNoColor: ""},
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "never", cfg.Output.Color)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg := Defaults()
			ApplyEnvironment(cfg)
			tt.verify(t, cfg)
		})
	}
}

func TestApplyEnvironment_Empty(t *testing.T) {
	for _, k := range []string{EnvHome, EnvPolicy, EnvListen, EnvOutputFormat, EnvVerbose, EnvLogLevel, EnvRefreshInterval, EnvCipherRounds} {
		t.Setenv(k, "")
	}
	// NO_COLOR counts when merely present, so clear it for this test.
	if v, ok := os.LookupEnv(EnvNoColor); ok {
		require.NoError(t, os.Unsetenv(EnvNoColor))
		t.Cleanup(func() { _ = os.Setenv(EnvNoColor, v) })
	}

	cfg := Defaults()
	ApplyEnvironment(cfg)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DotEnvFile)
	require.NoError(t, os.WriteFile(path, []byte("ENTROPOOL_POLICY=whitened\nENTROPOOL_LISTEN=127.0.0.1:1\n"), 0o600))

	t.Setenv(EnvPolicy, "")
	require.NoError(t, os.Unsetenv(EnvPolicy))
	t.Setenv(EnvListen, "127.0.0.1:2")

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))

	assert.Equal(t, "whitened", os.Getenv(EnvPolicy))
	assert.Equal(t, "127.0.0.1:2", os.Getenv(EnvListen), "existing variables win")
}

func TestLoadDotEnv_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DotEnvFile)
	require.NoError(t, os.WriteFile(path, []byte("ENTROPOOL_POLICY='unterminated\n"), 0o600))

	assert.Error(t, LoadDotEnv(path))
}
