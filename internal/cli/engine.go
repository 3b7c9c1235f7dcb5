package cli

import (
	"github.com/mrz1836/entropool/internal/config"
	"github.com/mrz1836/entropool/internal/engine"
	"github.com/mrz1836/entropool/internal/seed"
)

// engineOptions translates a validated configuration into engine options.
func engineOptions(c *config.Config, l engine.Logger) ([]engine.Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	policy, err := engine.ParsePolicy(c.Pool.Policy)
	if err != nil {
		return nil, err
	}
	interval, err := c.RefreshDuration()
	if err != nil {
		return nil, err
	}

	return []engine.Option{
		engine.WithPoolConfig(c.PoolConfig()),
		engine.WithPolicy(policy),
		engine.WithCipherRounds(c.Cipher.Rounds),
		engine.WithRefreshInterval(interval),
		engine.WithStagingFastMax(c.Pool.StagingFastMax),
		engine.WithLogger(l),
	}, nil
}

// startEngine seeds and initializes an engine from c. extra options are
// applied after the configured ones.
func startEngine(c *config.Config, l engine.Logger, extra ...engine.Option) (*engine.Engine, error) {
	opts, err := engineOptions(c, l)
	if err != nil {
		return nil, err
	}

	material, err := seed.Gather(seed.DefaultSize)
	if err != nil {
		return nil, err
	}
	defer seed.Zero(material)

	return engine.Initialize(material, append(opts, extra...)...)
}
