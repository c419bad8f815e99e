package audithook

import "log/slog"

// Option configures an Extension.
type Option func(*Extension)

// WithLogger sets the logger for the extension.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extension) {
		e.logger = logger
	}
}

// WithEnabledActions sets which actions to audit.
// If not called, every action except entry.appended is audited.
func WithEnabledActions(actions ...string) Option {
	return func(e *Extension) {
		e.enabled = make(map[string]bool)
		for _, action := range actions {
			e.enabled[action] = true
		}
	}
}

// WithDisabledActions audits every known action except the given ones.
func WithDisabledActions(actions ...string) Option {
	return func(e *Extension) {
		e.enabled = make(map[string]bool)
		for _, action := range allActions() {
			e.enabled[action] = true
		}
		for _, action := range actions {
			delete(e.enabled, action)
		}
	}
}

// allActions returns all known audit actions.
func allActions() []string {
	return []string{
		ActionEntryAppended,
		ActionEntryBackdated,
		ActionEntryUpdated,
		ActionEntryDeleted,
		ActionDriftDetected,
		ActionRowUpdateFailed,
		ActionStreamReconciled,
	}
}

// defaultActions is every action but entry.appended, which fires on each
// write.
func defaultActions() map[string]bool {
	enabled := make(map[string]bool)
	for _, action := range allActions() {
		if action != ActionEntryAppended {
			enabled[action] = true
		}
	}
	return enabled
}
