package cli

import (
	"runtime"

	"github.com/spf13/cobra"
)

// BuildInfo describes the binary, set by the linker through main.
type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

//nolint:gochecknoglobals // Build metadata is injected once at startup
var buildInfo BuildInfo

// SetBuildInfo records build metadata for the version command.
func SetBuildInfo(info BuildInfo) {
	buildInfo = info
}

func formatVersion(info BuildInfo) string {
	v, commit, date := info.Version, info.Commit, info.Date
	if v == "" {
		v = "dev"
	}
	if commit == "" {
		commit = "unknown"
	}
	if date == "" {
		date = "unknown"
	}
	return v + " (commit: " + commit + ", built: " + date + ")"
}

// versionCmd prints build information.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var versionCmd = &cobra.Command{
	Use:     "version",
	Short:   "Print version information",
	GroupID: groupUtility,
	Long:    `Print the entropool version, commit and build date.`,
	Example: `  entropool version
  entropool version -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		w := cmd.OutOrStdout()
		if formatter.IsJSON() {
			return formatter.JSON(struct {
				BuildInfo
				Go string `json:"go"`
			}{buildInfo, runtime.Version()})
		}
		out(w, "entropool %s\n", formatVersion(buildInfo))
		return nil
	},
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(versionCmd)
}
