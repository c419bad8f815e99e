package extension

import "time"

// Config holds the tally extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.tally" or "tally" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Tolerance is the largest balance difference treated as consistent,
	// as a decimal string (default: "0.01").
	Tolerance string `json:"tolerance" mapstructure:"tolerance" yaml:"tolerance"`

	// PageSize is the number of entries replay fetches per store call
	// (default: 500).
	PageSize int `json:"page_size" mapstructure:"page_size" yaml:"page_size"`

	// SweepInterval runs a full reconcile of every stream at this interval.
	// Zero disables the sweep.
	SweepInterval time.Duration `json:"sweep_interval" mapstructure:"sweep_interval" yaml:"sweep_interval"`

	// Kinds restricts the built-in partition rules to the named kinds.
	// Empty enables all of them. Ignored when rules are set with WithRule.
	Kinds []string `json:"kinds" mapstructure:"kinds" yaml:"kinds"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Tolerance: "0.01",
		PageSize:  500,
	}
}
