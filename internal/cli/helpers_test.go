package cli

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mrz1836/entropool/internal/config"
)

// resetFlags restores every flag variable to its default and clears the
// Changed marks cobra keeps between runs.
func resetFlags() {
	homeDir, configFile, outputFormat, verbose = "", "", "auto", false
	readCount, readHex, readEncoding, readOut, readPolicy, readForce = 32, false, "", "", "", false
	serveListen, statusAddr = "", ""
	configForce = false

	walkCommands(rootCmd, func(c *cobra.Command) {
		unmark := func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
		c.Flags().VisitAll(unmark)
		c.PersistentFlags().VisitAll(unmark)
	})
}

// isolate points HOME at a temp dir, disables file logging and returns the
// entropool home to pass as --home.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv(config.EnvLogLevel, "off")
	for _, k := range []string{config.EnvHome, config.EnvPolicy, config.EnvListen, config.EnvOutputFormat,
		config.EnvVerbose, config.EnvRefreshInterval, config.EnvCipherRounds} {
		t.Setenv(k, "")
	}
	return t.TempDir()
}

// run executes the root command with args and returns what it wrote to
// stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		resetFlags()
	})

	err := rootCmd.Execute()
	return stdout.String(), err
}
