package engine

import (
	"time"

	"github.com/mrz1836/entropool/internal/chacha"
	"github.com/mrz1836/entropool/internal/metrics"
	"github.com/mrz1836/entropool/internal/pool"
	"github.com/mrz1836/entropool/internal/refresher"
)

// DefaultStagingFastMax is the largest read staged through the reusable tier.
const DefaultStagingFastMax = 64 * 1024

// Logger is the interface for engine logging.
type Logger interface {
	Debug(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

type options struct {
	pool           pool.Config
	policy         Policy
	rounds         int
	interval       time.Duration
	stagingFastMax int
	daemon         bool
	logger         Logger
	counters       *metrics.Counters
}

func defaultOptions() options {
	return options{
		pool:           pool.DefaultConfig(),
		policy:         PolicyFast,
		rounds:         chacha.DefaultRounds,
		interval:       refresher.DefaultInterval,
		stagingFastMax: DefaultStagingFastMax,
		daemon:         true,
		logger:         nopLogger{},
	}
}

// Option configures an Engine.
type Option func(*options)

// WithPoolConfig sets the pool dimensions and memory policy.
func WithPoolConfig(cfg pool.Config) Option {
	return func(o *options) { o.pool = cfg }
}

// WithPolicy selects the output policy.
func WithPolicy(p Policy) Option {
	return func(o *options) { o.policy = p }
}

// WithCipherRounds sets the cipher round count (8, 12 or 20).
func WithCipherRounds(rounds int) Option {
	return func(o *options) { o.rounds = rounds }
}

// WithRefreshInterval sets the background refresh interval.
func WithRefreshInterval(d time.Duration) Option {
	return func(o *options) { o.interval = d }
}

// WithStagingFastMax sets the largest staging area served from the reusable
// tier. Larger reads allocate.
func WithStagingFastMax(n int) Option {
	return func(o *options) { o.stagingFastMax = n }
}

// WithoutDaemon disables the background refresh daemon.
func WithoutDaemon() Option {
	return func(o *options) { o.daemon = false }
}

// WithLogger sets the engine logger.
func WithLogger(l Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithCounters shares an existing set of counters with the engine.
func WithCounters(c *metrics.Counters) Option {
	return func(o *options) { o.counters = c }
}
