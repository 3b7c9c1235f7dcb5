package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCompletion_Bash tests bash completion script generation.
func TestCompletion_Bash(t *testing.T) {
	var buf bytes.Buffer

	// Call the completion generator directly with the root command
	err := rootCmd.GenBashCompletion(&buf)
	require.NoError(t, err)

	// Verify output is not empty
	output := buf.String()
	assert.NotEmpty(t, output, "bash completion should generate output")
	assert.Contains(t, output, "bash", "completion should mention bash")
}

// TestCompletion_Zsh tests zsh completion script generation.
func TestCompletion_Zsh(t *testing.T) {
	var buf bytes.Buffer

	// Call the completion generator directly
	err := rootCmd.GenZshCompletion(&buf)
	require.NoError(t, err)

	// Verify output is not empty
	output := buf.String()
	assert.NotEmpty(t, output)
	assert.Greater(t, len(output), 10, "zsh completion should have content")
}

// TestCompletion_Fish tests fish completion script generation.
func TestCompletion_Fish(t *testing.T) {
	var buf bytes.Buffer

	// Call the completion generator directly
	err := rootCmd.GenFishCompletion(&buf, true)
	require.NoError(t, err)

	// Verify output is not empty
	output := buf.String()
	assert.NotEmpty(t, output)
	assert.Contains(t, output, "complete") // fish uses 'complete' command
}

// TestCompletion_PowerShell tests powershell completion script generation.
func TestCompletion_PowerShell(t *testing.T) {
	var buf bytes.Buffer

	// Call the completion generator directly
	err := rootCmd.GenPowerShellCompletionWithDesc(&buf)
	require.NoError(t, err)

	// Verify output is not empty
	output := buf.String()
	assert.NotEmpty(t, output)
	assert.Contains(t, output, "Register-ArgumentCompleter") // PowerShell completion marker
}

func TestCompletion_Command(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			home := isolate(t)
			out, err := run(t, "--home", home, "completion", shell)
			require.NoError(t, err)
			assert.Contains(t, out, "entropool")
		})
	}
}

func TestCompletion_UnknownShell(t *testing.T) {
	home := isolate(t)
	_, err := run(t, "--home", home, "completion", "tcsh")
	require.Error(t, err)
}

func TestCompletion_FlagValues(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"policy", []string{"read", "--policy", ""}, []string{"fast", "whitened"}},
		{"encoding", []string{"read", "--encoding", ""}, []string{"raw", "hex", "base64"}},
		{"output", []string{"status", "-o", ""}, []string{"text", "json", "auto"}},
		{"config keys", []string{"config", "get", "pool."}, []string{"pool.policy", "pool.buffers"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			out, err := run(t, append([]string{cobra.ShellCompRequestCmd}, tt.args...)...)
			require.NoError(t, err)

			lines := strings.Split(strings.TrimSpace(out), "\n")
			for _, w := range tt.want {
				assert.Contains(t, lines, w)
			}
		})
	}
}
