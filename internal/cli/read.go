package cli

import (
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mrz1836/entropool/internal/device"
	"github.com/mrz1836/entropool/internal/engine"
	"github.com/mrz1836/entropool/internal/fileutil"
	"github.com/mrz1836/entropool/internal/output"
	poolerr "github.com/mrz1836/entropool/pkg/errors"
)

// MaxReadBytes caps a single read command.
const MaxReadBytes = 1 << 30

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	readCount    int
	readHex      bool
	readEncoding string
	readOut      string
	readPolicy   string
	readForce    bool
)

// readCmd generates random bytes once and exits.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var readCmd = &cobra.Command{
	Use:     "read",
	Short:   "Generate random bytes",
	GroupID: groupEntropy,
	Long: `Generate random bytes from a freshly seeded pool and write them to stdout
or to a file.

Raw bytes are not written to a terminal unless --force is given; use --hex or
--encoding base64 for printable output. Files are written atomically with
0600 permissions.`,
	Example: `  entropool read -n 32 --hex
  entropool read -n 1048576 --out key.bin
  entropool read -n 64 --encoding base64 --policy whitened`,
	Args: cobra.NoArgs,
	RunE: runRead,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(readCmd)

	readCmd.Flags().IntVarP(&readCount, "bytes", "n", 32, "number of bytes to generate")
	readCmd.Flags().BoolVar(&readHex, "hex", false, "hex-encode the output (same as --encoding hex)")
	readCmd.Flags().StringVar(&readEncoding, "encoding", "", "output encoding: raw, hex, base64")
	readCmd.Flags().StringVar(&readOut, "out", "", "write to this file instead of stdout")
	readCmd.Flags().StringVar(&readPolicy, "policy", "", "output policy for this read: fast, whitened")
	readCmd.Flags().BoolVar(&readForce, "force", false, "write raw bytes even when stdout is a terminal")
	readCmd.MarkFlagsMutuallyExclusive("hex", "encoding")
	_ = readCmd.RegisterFlagCompletionFunc("policy", fixedChoices(engine.PolicyNames()...))
	_ = readCmd.RegisterFlagCompletionFunc("encoding", fixedChoices(output.Encodings()...))
}

// readRequest is a validated read command.
type readRequest struct {
	count    int
	encoding output.Encoding
	path     string
}

// readResult is the JSON summary of a read written to a file.
type readResult struct {
	Path     string `json:"path"`
	Bytes    int    `json:"bytes"`
	Encoding string `json:"encoding"`
	Policy   string `json:"policy"`
	Session  string `json:"session"`
}

func parseReadRequest() (*readRequest, error) {
	if readCount < 0 || readCount > MaxReadBytes {
		return nil, poolerr.WithDetails(poolerr.ErrInvalidInput, map[string]string{
			"bytes": strconv.Itoa(readCount),
			"max":   strconv.Itoa(MaxReadBytes),
		})
	}

	encName := readEncoding
	if readHex {
		encName = string(output.EncodingHex)
	}
	enc, err := output.ParseEncoding(encName)
	if err != nil {
		return nil, err
	}

	return &readRequest{count: readCount, encoding: enc, path: readOut}, nil
}

func runRead(cmd *cobra.Command, _ []string) error {
	req, err := parseReadRequest()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if req.path == "" && req.encoding == output.EncodingRaw && output.IsTerminal(w) && !readForce {
		return poolerr.WithSuggestion(
			poolerr.WithDetails(poolerr.ErrInvalidInput, map[string]string{"reason": "refusing to write raw bytes to a terminal"}),
			"use --hex, --encoding base64, --out <file>, or --force",
		)
	}

	if readPolicy != "" {
		cfg.Pool.Policy = readPolicy
	}

	eng, err := startEngine(cfg, logger.With("engine"), engine.WithoutDaemon())
	if err != nil {
		return err
	}
	defer eng.Shutdown()

	sess := device.Open(eng)
	defer func() { _ = sess.Close() }()

	n := int64(req.count)
	if req.path == "" {
		return output.CopyPayload(w, sess, n, req.encoding)
	}

	err = fileutil.WriteAtomicFunc(req.path, 0o600, func(fw io.Writer) error {
		return output.CopyPayload(fw, sess, n, req.encoding)
	})
	if err != nil {
		return err
	}
	logger.Debug("wrote %d bytes to %s (session %s)", req.count, req.path, sess.ID())

	if formatter.IsJSON() {
		return formatter.JSON(readResult{
			Path:     req.path,
			Bytes:    req.count,
			Encoding: string(req.encoding),
			Policy:   eng.Policy().String(),
			Session:  sess.ID(),
		})
	}
	out(w, "Wrote %d bytes to %s\n", req.count, req.path)
	return nil
}
