package plugin_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xraph/tally/entry"
	"github.com/xraph/tally/plugin"
	"github.com/xraph/tally/stream"
)

type recorder struct {
	name string

	mu         sync.Mutex
	appended   int
	reconciled []*stream.Report
	failures   []stream.RowFailure
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) OnEntryAppended(_ context.Context, _ *entry.Entry) error {
	r.mu.Lock()
	r.appended++
	r.mu.Unlock()
	return nil
}

func (r *recorder) OnStreamReconciled(_ context.Context, report *stream.Report) error {
	r.mu.Lock()
	r.reconciled = append(r.reconciled, report)
	r.mu.Unlock()
	return nil
}

func (r *recorder) OnRowUpdateFailed(_ context.Context, _ stream.Key, f stream.RowFailure) error {
	r.mu.Lock()
	r.failures = append(r.failures, f)
	r.mu.Unlock()
	return errors.New("sink unavailable")
}

type slowPlugin struct{}

func (slowPlugin) Name() string { return "slow" }

func (slowPlugin) OnEntryDeleted(ctx context.Context, _ *entry.Entry) error {
	select {
	case <-time.After(time.Second):
	case <-ctx.Done():
	}
	return nil
}

func TestRegisterDuplicate(t *testing.T) {
	reg := plugin.NewRegistry()
	if err := reg.Register(&recorder{name: "rec"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := reg.Register(&recorder{name: "rec"}); err == nil {
		t.Error("expected duplicate registration to fail")
	}
	if reg.Count() != 1 {
		t.Errorf("Count: got %d, want 1", reg.Count())
	}
	if reg.Get("rec") == nil || reg.Get("missing") != nil {
		t.Error("Get returned an unexpected plugin")
	}
}

func TestDispatchOnlyToImplementers(t *testing.T) {
	reg := plugin.NewRegistry()
	rec := &recorder{name: "rec"}
	_ = reg.Register(rec)
	_ = reg.Register(slowPlugin{})

	ctx := context.Background()
	reg.EmitEntryAppended(ctx, &entry.Entry{})
	reg.EmitEntryAppended(ctx, &entry.Entry{})
	reg.EmitStreamReconciled(ctx, &stream.Report{Key: "stock:a"})

	if rec.appended != 2 {
		t.Errorf("appended: got %d, want 2", rec.appended)
	}
	if len(rec.reconciled) != 1 || rec.reconciled[0].Key != "stock:a" {
		t.Errorf("reconciled: got %+v", rec.reconciled)
	}
}

func TestHookErrorsAreSwallowed(t *testing.T) {
	reg := plugin.NewRegistry()
	rec := &recorder{name: "rec"}
	_ = reg.Register(rec)

	reg.EmitRowUpdateFailed(context.Background(), "stock:a", stream.RowFailure{Reason: "timeout"})
	if len(rec.failures) != 1 {
		t.Errorf("failures: got %d, want 1", len(rec.failures))
	}
}

func TestHookTimeout(t *testing.T) {
	reg := plugin.NewRegistry().WithTimeout(20 * time.Millisecond)
	_ = reg.Register(slowPlugin{})

	start := time.Now()
	reg.EmitEntryDeleted(context.Background(), &entry.Entry{})
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("slow hook should be abandoned after the timeout, took %v", elapsed)
	}
}
