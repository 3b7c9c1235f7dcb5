// Package httpapi serves the engine over HTTP. Every request is handled as
// one device session.
package httpapi

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrz1836/entropool/internal/device"
	"github.com/mrz1836/entropool/internal/metrics"
)

// ShutdownTimeout bounds how long Serve waits for in-flight requests after
// its context is canceled.
const ShutdownTimeout = 5 * time.Second

// Source is the engine surface the server needs.
type Source interface {
	device.Source
	Status() metrics.Status
	Closed() bool
}

// Logger receives server events.
type Logger interface {
	Debug(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Config holds transport limits.
type Config struct {
	MaxRequestBytes int
	RatePerSecond   float64
	Burst           int
}

// Option configures a Server.
type Option func(*Server)

// WithLogger routes server events to l.
func WithLogger(l Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAccessLog writes one line per request to w.
func WithAccessLog(w io.Writer) Option {
	return func(s *Server) {
		s.accessLog = w
	}
}

// WithPanicLog writes recovered panics to w.
func WithPanicLog(w io.Writer) Option {
	return func(s *Server) {
		s.panicLog = w
	}
}

// Server is the HTTP front end for an engine.
type Server struct {
	src       Source
	cfg       Config
	limiter   *RateLimiter
	logger    Logger
	accessLog io.Writer
	panicLog  io.Writer
	router    *gin.Engine
}

// New builds a server for src.
func New(src Source, cfg Config, opts ...Option) *Server {
	s := &Server{
		src:       src,
		cfg:       cfg,
		limiter:   NewRateLimiter(cfg.RatePerSecond, cfg.Burst),
		logger:    nopLogger{},
		accessLog: io.Discard,
		panicLog:  io.Discard,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// Handler returns the server's http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.LoggerWithWriter(s.accessLog), gin.RecoveryWithWriter(s.panicLog))

	r.GET("/healthz", s.health)

	v1 := r.Group("/v1", s.rateLimit)
	{
		v1.GET("/random", s.random)
		v1.POST("/random", s.discard)
		v1.GET("/status", s.status)
	}
	r.NoRoute(s.notFound)
	return r
}

// Serve accepts connections on ln until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Debug("http server listening on %s", ln.Addr())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("http shutdown: %v", err)
		return err
	}
	<-errCh
	s.logger.Debug("http server stopped")
	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}
