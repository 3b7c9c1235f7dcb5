// Package cli implements the entropool command-line interface.
//
// This package uses global variables to manage CLI state, which is the standard
// pattern for Cobra-based CLI applications. The globals are initialized in
// PersistentPreRunE and cleaned up in PersistentPostRun.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/mrz1836/entropool/internal/config"
	"github.com/mrz1836/entropool/internal/output"
	poolerr "github.com/mrz1836/entropool/pkg/errors"
)

// Command group IDs.
const (
	groupEntropy = "entropy"
	groupConfig  = "config"
	groupUtility = "utility"
)

var (
	// Global flags
	homeDir      string
	configFile   string
	outputFormat string
	verbose      bool

	// Global state initialized in PersistentPreRunE
	cfg        *config.Config
	configPath string
	logger     *config.Logger
	formatter  *output.Formatter

	helpOnce sync.Once
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "entropool",
	Short: "A pooled pseudo-random byte generator",
	Long: `entropool serves random bytes from a pool of continuously remixed buffers.

Bytes can be read once from the command line or served over HTTP. The fast
policy hands out pool bytes directly, the whitened policy additionally XORs
them with a ChaCha keystream.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return initGlobals(cmd)
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		cleanup()
	},
}

// Execute runs the root command.
func Execute() error {
	helpOnce.Do(func() {
		walkCommands(rootCmd, enrichParentLong)
	})

	err := rootCmd.Execute()
	if err != nil {
		format := output.FormatText
		if formatter != nil {
			format = formatter.Format()
		}
		_ = output.FormatError(rootCmd.ErrOrStderr(), err, format)
		return err
	}
	return nil
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	return poolerr.ExitCode(err)
}

// initGlobals loads .env files and configuration, then sets up the logger
// and formatter. Precedence is flags, then environment, then config file.
func initGlobals(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(config.DotEnvFile); err != nil {
		return poolerr.Wrap(poolerr.ErrConfigInvalid, "loading %s: %v", config.DotEnvFile, err)
	}

	home := homeDir
	if home == "" {
		home = os.Getenv(config.EnvHome)
	}
	if home == "" {
		home = config.DefaultHome()
	}
	home = expandHome(home)

	homeEnv := filepath.Join(home, config.DotEnvFile)
	if err := config.LoadDotEnv(homeEnv); err != nil {
		return poolerr.Wrap(poolerr.ErrConfigInvalid, "loading %s: %v", homeEnv, err)
	}

	configPath = configFile
	if configPath == "" {
		configPath = config.Path(home)
	}

	var err error
	cfg, err = config.Load(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if configFile != "" {
			return poolerr.WithDetails(poolerr.ErrConfigNotFound, map[string]string{"path": configPath})
		}
		cfg = config.Defaults()
		cfg.Home = home
	case err != nil:
		return err
	}

	config.ApplyEnvironment(cfg)

	// Override with command-line flags
	if homeDir != "" {
		cfg.Home = homeDir
	}
	cfg.Home = expandHome(cfg.Home)
	if verbose {
		cfg.Output.Verbose = true
		cfg.Logging.Level = "debug"
	}
	if outputFormat != "" && outputFormat != "auto" {
		cfg.Output.DefaultFormat = outputFormat
	}

	logLevel := config.ParseLogLevel(cfg.Logging.Level)
	logger, err = config.NewLogger(logLevel, cfg.Logging.File)
	if err != nil {
		// Use null logger if we can't create the file
		logger = config.NullLogger()
	}

	explicitFormat := output.ParseFormat(cfg.Output.DefaultFormat)
	w := cmd.OutOrStdout()
	formatter = output.NewFormatter(output.DetectFormat(w, explicitFormat), w)

	return nil
}

// expandHome replaces a leading "~" with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}

// cleanup releases resources.
func cleanup() {
	if logger != nil {
		_ = logger.Close()
	}
}

// Config returns the global configuration.
func Config() *config.Config {
	return cfg
}

// Logger returns the global logger.
func Logger() *config.Logger {
	return logger
}

// Formatter returns the global output formatter.
func Formatter() *output.Formatter {
	return formatter
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: groupEntropy, Title: "Entropy:"},
		&cobra.Group{ID: groupConfig, Title: "Configuration:"},
		&cobra.Group{ID: groupUtility, Title: "Utilities:"},
	)

	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "entropool data directory (default: ~/.entropool)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: <home>/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "auto", "output format: text, json, auto")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	_ = rootCmd.RegisterFlagCompletionFunc("output", fixedChoices("text", "json", "auto"))
}
