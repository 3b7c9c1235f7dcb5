package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// shutdownSignals stop a running server.
//
//nolint:gochecknoglobals // Fixed signal set
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// contextWithTimeout bounds a single request made on behalf of cmd.
func contextWithTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(commandContext(cmd), d)
}

// signalContext is canceled by the first shutdown signal or when the command
// context ends.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(commandContext(cmd), shutdownSignals...)
}
