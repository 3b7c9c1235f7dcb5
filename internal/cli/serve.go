package cli

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/mrz1836/entropool/internal/config"
	"github.com/mrz1836/entropool/internal/httpapi"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var serveListen string

// serveCmd runs the HTTP server until interrupted.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Serve random bytes over HTTP",
	GroupID: groupEntropy,
	Long: `Start a long-running engine with its background refresh daemon and serve it
over HTTP until interrupted.

Endpoints:
  GET  /v1/random?n=N&encoding=raw|hex|base64   generate N bytes
  POST /v1/random                               accept and discard the body
  GET  /v1/status                               counters and pool state
  GET  /healthz                                 liveness

Each request is one session. Requests are rate limited per client address.`,
	Example: `  entropool serve
  entropool serve --listen 0.0.0.0:8420
  ENTROPOOL_POLICY=whitened entropool serve -v`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (default: server.listen from config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	addr := cfg.Server.Listen
	if serveListen != "" {
		addr = serveListen
	}

	if cfg.Output.Verbose {
		logger.SetMirror(cmd.ErrOrStderr())
		defer logger.SetMirror(nil)
	}

	eng, err := startEngine(cfg, logger.With("engine"))
	if err != nil {
		return err
	}
	defer eng.Shutdown()

	if cfg.Output.Verbose {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	httpLog := logger.With("http")
	srv := httpapi.New(eng, httpapi.Config{
		MaxRequestBytes: cfg.Server.MaxRequestBytes,
		RatePerSecond:   cfg.Server.RatePerSecond,
		Burst:           cfg.Server.Burst,
	},
		httpapi.WithLogger(httpLog),
		httpapi.WithAccessLog(httpLog.Writer(config.LogLevelDebug)),
		httpapi.WithPanicLog(httpLog.Writer(config.LogLevelError)),
	)

	ctx, stop := signalContext(cmd)
	defer stop()

	out(cmd.ErrOrStderr(), "entropool serving on http://%s (policy %s)\n", addr, eng.Policy())
	return srv.ListenAndServe(ctx, addr)
}
