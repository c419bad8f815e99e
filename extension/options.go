package extension

import (
	"time"

	"github.com/xraph/tally"
	"github.com/xraph/tally/partition"
	"github.com/xraph/tally/plugin"
	"github.com/xraph/tally/store"
)

// Option configures the tally Forge extension.
type Option func(*Extension)

// WithStore sets the store for the engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithEngineOption passes a tally.Option through to the underlying engine.
func WithEngineOption(opt tally.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers a tally plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, tally.WithPlugin(p))
	}
}

// WithRule registers a partition rule. Any rule set this way replaces the
// built-in rules and the Kinds filter.
func WithRule(r partition.Rule) Option {
	return func(e *Extension) {
		e.rules = append(e.rules, r)
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithTolerance sets the drift tolerance as a decimal string.
func WithTolerance(tol string) Option {
	return func(e *Extension) { e.config.Tolerance = tol }
}

// WithPageSize sets the replay page size.
func WithPageSize(n int) Option {
	return func(e *Extension) { e.config.PageSize = n }
}

// WithSweepInterval enables the background reconcile sweep.
func WithSweepInterval(d time.Duration) Option {
	return func(e *Extension) { e.config.SweepInterval = d }
}

// WithKinds restricts the built-in partition rules to kinds.
func WithKinds(kinds ...string) Option {
	return func(e *Extension) { e.config.Kinds = kinds }
}
