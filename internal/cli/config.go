package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/entropool/internal/config"
	"github.com/mrz1836/entropool/internal/output"
	"github.com/mrz1836/entropool/internal/suggest"
	poolerr "github.com/mrz1836/entropool/pkg/errors"
)

// configCmd is the parent command for configuration operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Manage configuration",
	GroupID: groupConfig,
	Long:    `View and modify entropool configuration settings.`,
}

// configInitCmd initializes the configuration.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Long: `Create a default configuration file at ~/.entropool/config.yaml.

If a configuration file already exists, this command will not overwrite it
unless --force is specified.`,
	Example: `  entropool config init
  entropool config init --force`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

// configShowCmd shows the current configuration.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the effective configuration: the config file merged with
environment overrides and command-line flags.`,
	Example: `  entropool config show
  entropool config show -o json`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

// configGetCmd gets a specific configuration value.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long: `Get a specific configuration value by its key.

Keys use dot notation, for example pool.policy or server.listen.`,
	Example: `  entropool config get pool.policy
  entropool config get cipher.rounds`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeConfigKeys,
	RunE:              runConfigGet,
}

// configSetCmd sets a configuration value.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a specific configuration value by its key.

The resulting configuration is validated before the file is updated.`,
	Example: `  entropool config set pool.policy whitened
  entropool config set pool.refresh_interval 5m
  entropool config set server.listen 0.0.0.0:8420`,
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: completeConfigKeys,
	RunE:              runConfigSet,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var configForce bool

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)

	configCmd.Annotations = map[string]string{annotationKeys: strings.Join(configKeyNames(), ",")}

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite existing configuration")
}

// configKey binds a dotted key to its accessor pair.
type configKey struct {
	name string
	get  func(*config.Config) string
	set  func(*config.Config, string) error
}

//nolint:gochecknoglobals // Static key table
var configKeys = []configKey{
	{"home", func(c *config.Config) string { return c.Home }, setString(func(c *config.Config) *string { return &c.Home })},
	{"pool.buffers", func(c *config.Config) string { return strconv.Itoa(c.Pool.Buffers) }, setInt(func(c *config.Config) *int { return &c.Pool.Buffers })},
	{"pool.row_words", func(c *config.Config) string { return strconv.Itoa(c.Pool.RowWords) }, setInt(func(c *config.Config) *int { return &c.Pool.RowWords })},
	{"pool.policy", func(c *config.Config) string { return c.Pool.Policy }, setString(func(c *config.Config) *string { return &c.Pool.Policy })},
	{"pool.refresh_interval", func(c *config.Config) string { return c.Pool.RefreshInterval }, setString(func(c *config.Config) *string { return &c.Pool.RefreshInterval })},
	{"pool.staging_fast_max", func(c *config.Config) string { return strconv.Itoa(c.Pool.StagingFastMax) }, setInt(func(c *config.Config) *int { return &c.Pool.StagingFastMax })},
	{"pool.memory_lock", func(c *config.Config) string { return strconv.FormatBool(c.Pool.MemoryLock) }, setBool(func(c *config.Config) *bool { return &c.Pool.MemoryLock })},
	{"cipher.rounds", func(c *config.Config) string { return strconv.Itoa(c.Cipher.Rounds) }, setInt(func(c *config.Config) *int { return &c.Cipher.Rounds })},
	{"server.listen", func(c *config.Config) string { return c.Server.Listen }, setString(func(c *config.Config) *string { return &c.Server.Listen })},
	{"server.max_request_bytes", func(c *config.Config) string { return strconv.Itoa(c.Server.MaxRequestBytes) }, setInt(func(c *config.Config) *int { return &c.Server.MaxRequestBytes })},
	{"server.rate_per_second", func(c *config.Config) string { return strconv.FormatFloat(c.Server.RatePerSecond, 'f', -1, 64) }, setRate},
	{"server.burst", func(c *config.Config) string { return strconv.Itoa(c.Server.Burst) }, setInt(func(c *config.Config) *int { return &c.Server.Burst })},
	{"output.default_format", func(c *config.Config) string { return c.Output.DefaultFormat }, setChoice(func(c *config.Config) *string { return &c.Output.DefaultFormat }, "text", "json", "auto")},
	{"output.color", func(c *config.Config) string { return c.Output.Color }, setChoice(func(c *config.Config) *string { return &c.Output.Color }, "auto", "always", "never")},
	{"output.verbose", func(c *config.Config) string { return strconv.FormatBool(c.Output.Verbose) }, setBool(func(c *config.Config) *bool { return &c.Output.Verbose })},
	{"logging.level", func(c *config.Config) string { return c.Logging.Level }, setChoice(func(c *config.Config) *string { return &c.Logging.Level }, "off", "error", "warn", "debug")},
	{"logging.file", func(c *config.Config) string { return c.Logging.File }, setString(func(c *config.Config) *string { return &c.Logging.File })},
}

func configKeyNames() []string {
	names := make([]string, len(configKeys))
	for i, k := range configKeys {
		names[i] = k.name
	}
	return names
}

func lookupConfigKey(name string) (configKey, error) {
	for _, k := range configKeys {
		if k.name == name {
			return k, nil
		}
	}
	err := poolerr.WithDetails(poolerr.ErrUnknownConfigKey, map[string]string{"key": name})
	if match := suggest.Closest(name, configKeyNames()); match != "" {
		return configKey{}, poolerr.WithSuggestion(err, fmt.Sprintf("did you mean '%s'?", match))
	}
	return configKey{}, poolerr.WithSuggestion(err, "run 'entropool config show' to list keys")
}

func invalidValue(key, value, valid string) error {
	return poolerr.WithDetails(poolerr.ErrInvalidFormat, map[string]string{
		"key":   key,
		"value": value,
		"valid": valid,
	})
}

func setString(field func(*config.Config) *string) func(*config.Config, string) error {
	return func(c *config.Config, v string) error {
		*field(c) = strings.TrimSpace(v)
		return nil
	}
}

func setInt(field func(*config.Config) *int) func(*config.Config, string) error {
	return func(c *config.Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return invalidValue("", v, "an integer")
		}
		*field(c) = n
		return nil
	}
}

func setBool(field func(*config.Config) *bool) func(*config.Config, string) error {
	return func(c *config.Config, v string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return invalidValue("", v, "true or false")
		}
		*field(c) = b
		return nil
	}
}

func setChoice(field func(*config.Config) *string, choices ...string) func(*config.Config, string) error {
	return func(c *config.Config, v string) error {
		v = strings.ToLower(strings.TrimSpace(v))
		for _, choice := range choices {
			if v == choice {
				*field(c) = v
				return nil
			}
		}
		return invalidValue("", v, strings.Join(choices, ", "))
	}
}

func setRate(c *config.Config, v string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return invalidValue("server.rate_per_second", v, "a number")
	}
	c.Server.RatePerSecond = f
	return nil
}

func completeConfigKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return configKeyNames(), cobra.ShellCompDirectiveNoFileComp
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	if _, err := os.Stat(configPath); err == nil && !configForce {
		return poolerr.WithSuggestion(
			poolerr.WithDetails(poolerr.ErrGeneral, map[string]string{"path": configPath}),
			fmt.Sprintf("configuration already exists at %s. Use --force to overwrite.", configPath),
		)
	}

	defaultCfg := config.Defaults()
	defaultCfg.Home = cfg.Home

	if err := config.Save(defaultCfg, configPath); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	w := cmd.OutOrStdout()
	if formatter.IsJSON() {
		return formatter.Success("configuration initialized at " + configPath)
	}
	out(w, "Configuration initialized at %s\n", configPath)
	outln(w)
	outln(w, "Edit this file to configure:")
	outln(w, "  - pool.policy: Output policy (fast/whitened)")
	outln(w, "  - pool.refresh_interval: Background refresh interval")
	outln(w, "  - cipher.rounds: ChaCha rounds (8/12/20)")
	outln(w, "  - server.listen: HTTP listen address")
	outln(w, "  - logging.level: Log level (off/error/warn/debug)")

	return nil
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	values := make(map[string]string, len(configKeys))
	fields := make([]output.Field, 0, len(configKeys))
	for _, k := range configKeys {
		values[k.name] = k.get(cfg)
		fields = append(fields, output.Field{Label: k.name, Value: values[k.name]})
	}
	return formatter.Render(values, fields)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	k, err := lookupConfigKey(args[0])
	if err != nil {
		return err
	}
	outln(cmd.OutOrStdout(), k.get(cfg))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	name, value := args[0], args[1]

	k, err := lookupConfigKey(name)
	if err != nil {
		return err
	}

	// Edit the file as written, not the environment-merged view.
	fileCfg, err := config.Load(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		fileCfg = config.Defaults()
		fileCfg.Home = cfg.Home
	case err != nil:
		return err
	}

	if err := k.set(fileCfg, value); err != nil {
		var pe *poolerr.PoolError
		if errors.As(err, &pe) && pe.Details != nil && pe.Details["key"] == "" {
			pe.Details["key"] = name
		}
		return err
	}
	if err := fileCfg.Validate(); err != nil {
		return err
	}

	if err := config.Save(fileCfg, configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	w := cmd.OutOrStdout()
	if formatter.IsJSON() {
		return formatter.JSON(map[string]string{"key": name, "value": k.get(fileCfg)})
	}
	out(w, "Set %s = %s\n", name, k.get(fileCfg))
	return nil
}
