// Package extension provides the Forge extension adapter for tally.
//
// It implements the forge.Extension interface to integrate the tally engine
// into a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.tally" or "tally" keys.
package extension

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/tally"
	"github.com/xraph/tally/partition"
	"github.com/xraph/tally/store"
	"github.com/xraph/tally/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "tally"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Running-balance maintenance engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts tally as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *tally.Engine
	store      store.Store
	rules      []partition.Rule
	engineOpts []tally.Option
}

// New creates a new tally Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying engine.
// This is nil until Register is called.
func (e *Extension) Engine() *tally.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	opts, err := buildEngineOpts(e.config, e.rules, e.engineOpts)
	if err != nil {
		return err
	}

	e.engine = tally.New(e.store, opts...)

	return vessel.Provide(fapp.Container(), func() (*tally.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("tally: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("tally: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs tally.Option values from the resolved config.
// Pass-through options come last so they win over config.
func buildEngineOpts(cfg Config, rules []partition.Rule, extra []tally.Option) ([]tally.Option, error) {
	opts := make([]tally.Option, 0, len(extra)+8)

	opts = append(opts, tally.WithMigrateOnStart(!cfg.DisableMigrate))

	if cfg.Tolerance != "" {
		tol, err := decimal.NewFromString(cfg.Tolerance)
		if err != nil {
			return nil, fmt.Errorf("tally: invalid tolerance %q: %w", cfg.Tolerance, err)
		}
		if tol.IsNegative() {
			return nil, fmt.Errorf("tally: tolerance %q must not be negative", cfg.Tolerance)
		}
		opts = append(opts, tally.WithTolerance(tol))
	}
	if cfg.PageSize > 0 {
		opts = append(opts, tally.WithPageSize(cfg.PageSize))
	}
	if cfg.SweepInterval > 0 {
		opts = append(opts, tally.WithSweepInterval(cfg.SweepInterval))
	}

	enabled, err := selectRules(cfg.Kinds, rules)
	if err != nil {
		return nil, err
	}
	for _, r := range enabled {
		opts = append(opts, tally.WithRule(r))
	}

	return append(opts, extra...), nil
}

// selectRules returns the programmatic rules when given, otherwise the
// built-in rules filtered to kinds.
func selectRules(kinds []string, rules []partition.Rule) ([]partition.Rule, error) {
	if len(rules) > 0 {
		return rules, nil
	}
	if len(kinds) == 0 {
		return nil, nil
	}

	builtin := partition.Builtin()
	selected := make([]partition.Rule, 0, len(kinds))
	for _, kind := range kinds {
		i := slices.IndexFunc(builtin, func(r partition.Rule) bool { return r.Kind == kind })
		if i < 0 {
			return nil, fmt.Errorf("%w: %q", tally.ErrNoPartitionRule, kind)
		}
		selected = append(selected, builtin[i])
	}
	return selected, nil
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("tally: configuration is required but not found in config files; " +
				"ensure 'extensions.tally' or 'tally' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("tally: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("tolerance", e.config.Tolerance),
		forge.F("page_size", e.config.PageSize),
		forge.F("sweep_interval", e.config.SweepInterval),
		forge.F("kinds", e.config.Kinds),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.tally" first (namespaced pattern).
	if cm.IsSet("extensions.tally") {
		if err := cm.Bind("extensions.tally", &cfg); err == nil {
			e.Logger().Debug("tally: loaded config from file",
				forge.F("key", "extensions.tally"),
			)
			return cfg, true
		}
		e.Logger().Warn("tally: failed to bind extensions.tally config",
			forge.F("error", "bind failed"),
		)
	}

	// Try top-level "tally" key.
	if cm.IsSet("tally") {
		if err := cm.Bind("tally", &cfg); err == nil {
			e.Logger().Debug("tally: loaded config from file",
				forge.F("key", "tally"),
			)
			return cfg, true
		}
		e.Logger().Warn("tally: failed to bind tally config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Tolerance == "" {
		cfg.Tolerance = defaults.Tolerance
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = defaults.PageSize
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.Tolerance == "" && programmaticConfig.Tolerance != "" {
		yamlConfig.Tolerance = programmaticConfig.Tolerance
	}

	// Duration/int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.PageSize == 0 && programmaticConfig.PageSize != 0 {
		yamlConfig.PageSize = programmaticConfig.PageSize
	}
	if yamlConfig.SweepInterval == 0 && programmaticConfig.SweepInterval != 0 {
		yamlConfig.SweepInterval = programmaticConfig.SweepInterval
	}
	if len(yamlConfig.Kinds) == 0 && len(programmaticConfig.Kinds) != 0 {
		yamlConfig.Kinds = programmaticConfig.Kinds
	}

	// Fill remaining zeros with defaults.
	return mergeWithDefaults(yamlConfig)
}
