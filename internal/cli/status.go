package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/entropool/internal/metrics"
	"github.com/mrz1836/entropool/internal/output"
	poolerr "github.com/mrz1836/entropool/pkg/errors"
)

// statusTimeout bounds the status request.
const statusTimeout = 5 * time.Second

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var statusAddr string

// statusCmd queries a running server.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show counters of a running server",
	GroupID: groupEntropy,
	Long: `Query a running entropool server for its counters and pool state: open
sessions, bytes served, busy buffers, refresh counts and cipher position.`,
	Example: `  entropool status
  entropool status --addr 10.0.0.5:8420 -o json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusAddr, "addr", "", "server address (default: server.listen from config)")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	addr := cfg.Server.Listen
	if statusAddr != "" {
		addr = statusAddr
	}

	st, err := fetchStatus(cmd, addr)
	if err != nil {
		return err
	}

	return formatter.Render(st, statusFields(st))
}

func statusURL(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return strings.TrimSuffix(addr, "/") + "/v1/status"
	}
	return "http://" + addr + "/v1/status"
}

func fetchStatus(cmd *cobra.Command, addr string) (*metrics.Status, error) {
	ctx, cancel := contextWithTimeout(cmd, statusTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL(addr), nil)
	if err != nil {
		return nil, poolerr.Wrap(poolerr.ErrInvalidInput, "building status request: %v", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, poolerr.WithSuggestion(
			poolerr.WithDetails(poolerr.ErrGeneral, map[string]string{"addr": addr, "error": err.Error()}),
			"start a server with 'entropool serve' or pass --addr",
		)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		var eo output.ErrorOutput
		if json.Unmarshal(body, &eo) == nil && eo.Error.Code != "" {
			return nil, &poolerr.PoolError{
				Code:       eo.Error.Code,
				Message:    eo.Error.Message,
				Details:    eo.Error.Details,
				Suggestion: eo.Error.Suggestion,
				ExitCode:   eo.Error.ExitCode,
			}
		}
		return nil, poolerr.WithDetails(poolerr.ErrGeneral, map[string]string{
			"addr":   addr,
			"status": resp.Status,
		})
	}

	var st metrics.Status
	if err := json.Unmarshal(body, &st); err != nil {
		return nil, poolerr.Wrap(poolerr.ErrInvalidFormat, "decoding status: %v", err)
	}
	return &st, nil
}

func statusFields(st *metrics.Status) []output.Field {
	return []output.Field{
		{Label: "Policy", Value: st.Policy},
		{Label: "Buffers", Value: fmt.Sprintf("%d (%d busy)", st.Buffers, st.BusyBuffers)},
		{Label: "Memory", Value: st.Memory},
		{Label: "Open sessions", Value: strconv.FormatInt(st.CurrentOpen, 10)},
		{Label: "Total sessions", Value: strconv.FormatInt(st.TotalOpen, 10)},
		{Label: "Served", Value: fmt.Sprintf("%d bytes (%d KiB)", st.BytesServed, st.KiBServed)},
		{Label: "Reads", Value: fmt.Sprintf("%d (%d errors, %.3f ms avg)", st.Reads, st.ReadErrors, st.AvgReadLatencyMs)},
		{Label: "Discarded", Value: strconv.FormatInt(st.DiscardedBytes, 10) + " bytes"},
		{Label: "Rate limited", Value: strconv.FormatInt(st.RateLimited, 10)},
		{Label: "Refreshes", Value: fmt.Sprintf("%d (%d by daemon)", st.Refreshes, st.DaemonRefreshes)},
		{Label: "Refresh interval", Value: (time.Duration(st.RefreshIntervalMs) * time.Millisecond).String()},
		{Label: "Cipher", Value: fmt.Sprintf("ChaCha%d, %d blocks", st.CipherRounds, st.CipherBlocks)},
	}
}
