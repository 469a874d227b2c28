package inprocess

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/howmanysmall/relay-syncd/src/internal/plugin"
)

type fakePlugin struct {
	run func(ctx context.Context, stop <-chan struct{}, profileName string, emit func(plugin.Signal)) (plugin.SyncResults, error)
}

func (f *fakePlugin) Run(ctx context.Context, stop <-chan struct{}, profileName string, emit func(plugin.Signal)) (plugin.SyncResults, error) {
	return f.run(ctx, stop, profileName, emit)
}

func drain(t *testing.T, signals <-chan plugin.Signal, timeout time.Duration) []plugin.Signal {
	t.Helper()
	var out []plugin.Signal
	deadline := time.After(timeout)
	for {
		select {
		case sig, ok := <-signals:
			if !ok {
				return out
			}
			out = append(out, sig)
		case <-deadline:
			t.Fatal("timed out draining signals")
		}
	}
}

func TestRunner_SuccessEmitsSuccessDoneDestroyed(t *testing.T) {
	p := &fakePlugin{run: func(ctx context.Context, stop <-chan struct{}, profileName string, emit func(plugin.Signal)) (plugin.SyncResults, error) {
		emit(plugin.Signal{Kind: plugin.SignalTransferProgress, CommittedCount: 1})
		return plugin.SyncResults{Message: "ok"}, nil
	}}
	r := NewRunner(p, "calendar")

	ok, err := r.Start()
	if err != nil || !ok {
		t.Fatalf("expected Start to succeed, got ok=%v err=%v", ok, err)
	}

	sigs := drain(t, r.Signals(), 2*time.Second)

	var kinds []plugin.SignalKind
	for _, s := range sigs {
		kinds = append(kinds, s.Kind)
	}
	want := []plugin.SignalKind{plugin.SignalTransferProgress, plugin.SignalSuccess, plugin.SignalDone, plugin.SignalDestroyed}
	if len(kinds) != len(want) {
		t.Fatalf("expected %d signals, got %d: %v", len(want), len(kinds), kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("signal %d: expected %v, got %v", i, want[i], kinds[i])
		}
	}
}

func TestRunner_ErrorEmitsErrorDoneDestroyed(t *testing.T) {
	p := &fakePlugin{run: func(ctx context.Context, stop <-chan struct{}, profileName string, emit func(plugin.Signal)) (plugin.SyncResults, error) {
		return plugin.SyncResults{}, errors.New("boom")
	}}
	r := NewRunner(p, "contacts")

	if ok, err := r.Start(); err != nil || !ok {
		t.Fatalf("expected Start to succeed, got ok=%v err=%v", ok, err)
	}

	sigs := drain(t, r.Signals(), 2*time.Second)
	if len(sigs) != 3 || sigs[0].Kind != plugin.SignalError {
		t.Fatalf("expected [error, done, destroyed], got %+v", sigs)
	}
}

func TestRunner_AbortCancelsContext(t *testing.T) {
	started := make(chan struct{})
	p := &fakePlugin{run: func(ctx context.Context, stop <-chan struct{}, profileName string, emit func(plugin.Signal)) (plugin.SyncResults, error) {
		close(started)
		<-ctx.Done()
		return plugin.SyncResults{}, ctx.Err()
	}}
	r := NewRunner(p, "notes")

	if ok, _ := r.Start(); !ok {
		t.Fatal("expected Start to succeed")
	}
	<-started
	r.Abort("user")

	sigs := drain(t, r.Signals(), 2*time.Second)
	if len(sigs) == 0 || sigs[len(sigs)-1].Kind != plugin.SignalDestroyed {
		t.Fatalf("expected the signal stream to end in destroyed, got %+v", sigs)
	}
}

func TestRunner_CannotStartTwice(t *testing.T) {
	p := &fakePlugin{run: func(ctx context.Context, stop <-chan struct{}, profileName string, emit func(plugin.Signal)) (plugin.SyncResults, error) {
		return plugin.SyncResults{}, nil
	}}
	r := NewRunner(p, "photos")

	if ok, _ := r.Start(); !ok {
		t.Fatal("expected first Start to succeed")
	}
	if ok, _ := r.Start(); ok {
		t.Fatal("expected second Start to fail")
	}
	drain(t, r.Signals(), 2*time.Second)
}
