package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/tally/entry"
	"github.com/xraph/tally/stream"
)

// DefaultTimeout bounds a single hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// Hook implementations are discovered once, at registration.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	onInit             []OnInit
	onShutdown         []OnShutdown
	onEntryAppended    []OnEntryAppended
	onBackdatedEntry   []OnBackdatedEntry
	onEntryUpdated     []OnEntryUpdated
	onEntryDeleted     []OnEntryDeleted
	onDriftDetected    []OnDriftDetected
	onRowUpdateFailed  []OnRowUpdateFailed
	onStreamReconciled []OnStreamReconciled
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-call hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its hooks.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnEntryAppended); ok {
		r.onEntryAppended = append(r.onEntryAppended, v)
	}
	if v, ok := p.(OnBackdatedEntry); ok {
		r.onBackdatedEntry = append(r.onBackdatedEntry, v)
	}
	if v, ok := p.(OnEntryUpdated); ok {
		r.onEntryUpdated = append(r.onEntryUpdated, v)
	}
	if v, ok := p.(OnEntryDeleted); ok {
		r.onEntryDeleted = append(r.onEntryDeleted, v)
	}
	if v, ok := p.(OnDriftDetected); ok {
		r.onDriftDetected = append(r.onDriftDetected, v)
	}
	if v, ok := p.(OnRowUpdateFailed); ok {
		r.onRowUpdateFailed = append(r.onRowUpdateFailed, v)
	}
	if v, ok := p.(OnStreamReconciled); ok {
		r.onStreamReconciled = append(r.onStreamReconciled, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"hooks", hooksOf(p),
	)

	return nil
}

var hookTypes = []struct {
	name string
	typ  reflect.Type
}{
	{"OnInit", reflect.TypeFor[OnInit]()},
	{"OnShutdown", reflect.TypeFor[OnShutdown]()},
	{"OnEntryAppended", reflect.TypeFor[OnEntryAppended]()},
	{"OnBackdatedEntry", reflect.TypeFor[OnBackdatedEntry]()},
	{"OnEntryUpdated", reflect.TypeFor[OnEntryUpdated]()},
	{"OnEntryDeleted", reflect.TypeFor[OnEntryDeleted]()},
	{"OnDriftDetected", reflect.TypeFor[OnDriftDetected]()},
	{"OnRowUpdateFailed", reflect.TypeFor[OnRowUpdateFailed]()},
	{"OnStreamReconciled", reflect.TypeFor[OnStreamReconciled]()},
}

// hooksOf lists the hooks implemented by p.
func hooksOf(p Plugin) []string {
	var hooks []string
	t := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if t.Implements(h.typ) {
			hooks = append(hooks, h.name)
		}
	}
	return hooks
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// emit calls fn for each hook implementation, logging failures.
func emit[T Plugin](ctx context.Context, r *Registry, hook string, plugins []T, fn func(T) error) {
	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error { return fn(p) }); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine any) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	emit(ctx, r, "OnInit", plugins, func(p OnInit) error { return p.OnInit(ctx, engine) })
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	emit(ctx, r, "OnShutdown", plugins, func(p OnShutdown) error { return p.OnShutdown(ctx) })
}

// EmitEntryAppended emits an entry appended event.
func (r *Registry) EmitEntryAppended(ctx context.Context, e *entry.Entry) {
	r.mu.RLock()
	plugins := r.onEntryAppended
	r.mu.RUnlock()

	emit(ctx, r, "OnEntryAppended", plugins, func(p OnEntryAppended) error { return p.OnEntryAppended(ctx, e) })
}

// EmitBackdatedEntry emits a backdated entry event.
func (r *Registry) EmitBackdatedEntry(ctx context.Context, e, tail *entry.Entry) {
	r.mu.RLock()
	plugins := r.onBackdatedEntry
	r.mu.RUnlock()

	emit(ctx, r, "OnBackdatedEntry", plugins, func(p OnBackdatedEntry) error { return p.OnBackdatedEntry(ctx, e, tail) })
}

// EmitEntryUpdated emits an entry updated event.
func (r *Registry) EmitEntryUpdated(ctx context.Context, before, after *entry.Entry) {
	r.mu.RLock()
	plugins := r.onEntryUpdated
	r.mu.RUnlock()

	emit(ctx, r, "OnEntryUpdated", plugins, func(p OnEntryUpdated) error { return p.OnEntryUpdated(ctx, before, after) })
}

// EmitEntryDeleted emits an entry deleted event.
func (r *Registry) EmitEntryDeleted(ctx context.Context, e *entry.Entry) {
	r.mu.RLock()
	plugins := r.onEntryDeleted
	r.mu.RUnlock()

	emit(ctx, r, "OnEntryDeleted", plugins, func(p OnEntryDeleted) error { return p.OnEntryDeleted(ctx, e) })
}

// EmitDriftDetected emits a drift detected event.
func (r *Registry) EmitDriftDetected(ctx context.Context, key stream.Key, drifts []stream.Drift) {
	r.mu.RLock()
	plugins := r.onDriftDetected
	r.mu.RUnlock()

	emit(ctx, r, "OnDriftDetected", plugins, func(p OnDriftDetected) error { return p.OnDriftDetected(ctx, key, drifts) })
}

// EmitRowUpdateFailed emits a row update failure event.
func (r *Registry) EmitRowUpdateFailed(ctx context.Context, key stream.Key, failure stream.RowFailure) {
	r.mu.RLock()
	plugins := r.onRowUpdateFailed
	r.mu.RUnlock()

	emit(ctx, r, "OnRowUpdateFailed", plugins, func(p OnRowUpdateFailed) error { return p.OnRowUpdateFailed(ctx, key, failure) })
}

// EmitStreamReconciled emits a stream reconciled event.
func (r *Registry) EmitStreamReconciled(ctx context.Context, report *stream.Report) {
	r.mu.RLock()
	plugins := r.onStreamReconciled
	r.mu.RUnlock()

	emit(ctx, r, "OnStreamReconciled", plugins, func(p OnStreamReconciled) error { return p.OnStreamReconciled(ctx, report) })
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins must never stall a write or a reconcile run.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(r.timeout):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
