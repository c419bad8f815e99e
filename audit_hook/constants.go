package audithook

// Action constants for audit events.
const (
	// Entry actions
	ActionEntryAppended  = "entry.appended"
	ActionEntryBackdated = "entry.backdated"
	ActionEntryUpdated   = "entry.updated"
	ActionEntryDeleted   = "entry.deleted"

	// Reconcile actions
	ActionDriftDetected    = "stream.drift_detected"
	ActionRowUpdateFailed  = "stream.row_update_failed"
	ActionStreamReconciled = "stream.reconciled"
)

// Resource constants for audit events.
const (
	ResourceEntry  = "entry"
	ResourceStream = "stream"
)

// Category constants for audit events.
const (
	CategoryEntry     = "entry"
	CategoryReconcile = "reconcile"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
