package cli

import (
	"github.com/spf13/cobra"
)

// completionCmd generates shell completion scripts.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var completionCmd = &cobra.Command{
	Use:     "completion [bash|zsh|fish|powershell]",
	Short:   "Generate shell completion script",
	GroupID: groupUtility,
	Long:    `Generate shell completion scripts for entropool.`,
	Example: `  # Bash:
  $ source <(entropool completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ entropool completion bash > /etc/bash_completion.d/entropool
  # macOS:
  $ entropool completion bash > $(brew --prefix)/etc/bash_completion.d/entropool

  # Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ entropool completion zsh > "${fpath[1]}/_entropool"

  # You will need to start a new shell for this setup to take effect.

  # Fish:
  $ entropool completion fish | source

  # To load completions for each session, execute once:
  $ entropool completion fish > ~/.config/fish/completions/entropool.fish

  # PowerShell:
  PS> entropool completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> entropool completion powershell > entropool.ps1
  # and source this file from your PowerShell profile.`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletion(cmd.OutOrStdout())
		case "zsh":
			return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
		case "fish":
			return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
		}
		return nil
	},
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(completionCmd)
}

// fixedChoices completes a flag from a fixed value set.
func fixedChoices(choices ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return choices, cobra.ShellCompDirectiveNoFileComp
	}
}
