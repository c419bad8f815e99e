package tally

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/tally/partition"
	"github.com/xraph/tally/plugin"
	"github.com/xraph/tally/store"
	"github.com/xraph/tally/stream"
	"github.com/xraph/tally/types"
)

// DefaultPageSize is the number of entries fetched per store call during
// replay.
const DefaultPageSize = 500

// Engine maintains the running balances of every stream in a store.
type Engine struct {
	store   store.Store
	rules   *partition.Registry
	plugins *plugin.Registry
	logger  *slog.Logger
	clock   *types.Clock

	tolerance      decimal.Decimal
	pageSize       int
	migrateOnStart bool
	sweepInterval  time.Duration

	locksMu sync.Mutex
	locks   map[stream.Key]*sync.Mutex

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	customRules []partition.Rule
}

// New creates a new Engine over s. Without WithRule the built-in inventory,
// stock and statement rules are registered.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:          s,
		plugins:        plugin.NewRegistry(),
		logger:         slog.Default(),
		clock:          types.NewClock(nil, types.DefaultResolution),
		tolerance:      types.DefaultTolerance,
		pageSize:       DefaultPageSize,
		migrateOnStart: true,
		locks:          make(map[stream.Key]*sync.Mutex),
		stopChan:       make(chan struct{}),
	}

	for _, opt := range opts {
		opt(e)
	}

	rules := e.customRules
	if len(rules) == 0 {
		rules = partition.Builtin()
	}
	e.rules = partition.NewRegistry()
	for _, r := range rules {
		if err := e.rules.Replace(r); err != nil {
			e.logger.Warn("partition rule rejected", "kind", r.Kind, "error", err)
		}
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithRule registers a partition rule. A later rule for the same kind
// replaces an earlier one.
func WithRule(r partition.Rule) Option {
	return func(e *Engine) {
		e.customRules = append(e.customRules, r)
	}
}

// WithTolerance sets the largest balance difference treated as consistent.
func WithTolerance(tol decimal.Decimal) Option {
	return func(e *Engine) {
		if !tol.IsNegative() {
			e.tolerance = tol
		}
	}
}

// WithPageSize sets how many entries replay fetches per store call.
func WithPageSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.pageSize = n
		}
	}
}

// WithClock sets the clock that stamps RecordedAt.
func WithClock(c *types.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithMigrateOnStart controls whether Start migrates the store.
func WithMigrateOnStart(enabled bool) Option {
	return func(e *Engine) {
		e.migrateOnStart = enabled
	}
}

// WithSweepInterval makes Start run ReconcileAll every d in the background.
// Zero disables the sweep.
func WithSweepInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.sweepInterval = d
	}
}

// Start migrates the store, initializes plugins and launches the
// background sweep when one is configured.
func (e *Engine) Start(ctx context.Context) error {
	if e.migrateOnStart {
		if err := e.store.Migrate(ctx); err != nil {
			return err
		}
	}

	e.plugins.EmitInit(ctx, e)

	if e.sweepInterval > 0 {
		e.wg.Add(1)
		go e.sweepWorker(ctx)
	}

	e.logger.Info("tally started",
		"kinds", e.rules.Kinds(),
		"tolerance", e.tolerance.String(),
		"page_size", e.pageSize,
		"sweep_interval", e.sweepInterval,
	)

	return nil
}

// Stop shuts down the engine and closes the store.
func (e *Engine) Stop() error {
	e.stopOnce.Do(func() { close(e.stopChan) })
	e.wg.Wait()

	e.plugins.EmitShutdown(context.Background())

	return e.store.Close()
}

// Store returns the underlying store.
func (e *Engine) Store() store.Store { return e.store }

// Rules returns the partition rule registry.
func (e *Engine) Rules() *partition.Registry { return e.rules }

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Tolerance returns the drift tolerance.
func (e *Engine) Tolerance() decimal.Decimal { return e.tolerance }

// sweepWorker reconciles every stream on each tick until Stop.
func (e *Engine) sweepWorker(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			report := e.ReconcileAll(ctx)
			e.logger.Info("sweep finished",
				"streams", len(report.Reports),
				"updated", report.Updated(),
				"failed", report.Failed(),
				"status", report.Status(),
			)
		}
	}
}

// lock serializes writers of the given streams in-process. Keys are
// locked in sorted order so edits spanning two streams cannot deadlock.
func (e *Engine) lock(keys ...stream.Key) (unlock func()) {
	keys = slices.Clone(keys)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	mus := make([]*sync.Mutex, len(keys))
	e.locksMu.Lock()
	for i, k := range keys {
		mu, ok := e.locks[k]
		if !ok {
			mu = &sync.Mutex{}
			e.locks[k] = mu
		}
		mus[i] = mu
	}
	e.locksMu.Unlock()

	for _, mu := range mus {
		mu.Lock()
	}
	return func() {
		for i := len(mus) - 1; i >= 0; i-- {
			mus[i].Unlock()
		}
	}
}
