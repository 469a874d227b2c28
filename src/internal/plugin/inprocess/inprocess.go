// Package inprocess implements the PluginRunner variant for plugins
// loaded as Go-native code rather than spawned as a subprocess. Workers
// run on bounded goroutines gated by a `semaphore.NewWeighted`, capping
// how many plugins execute concurrently in this process.
package inprocess

import (
	"context"
	"sync"
	"time"

	"github.com/klauspost/cpuid/v2"
	"golang.org/x/sync/semaphore"

	"github.com/howmanysmall/relay-syncd/src/internal/plugin"
)

// Plugin is the in-process analogue of a shared-library plugin: Run
// does the actual sync work, emitting Signal values through emit and
// returning the terminal SyncResults. Run must return promptly after
// ctx is cancelled; it should also poll stop for a graceful exit point.
type Plugin interface {
	Run(ctx context.Context, stop <-chan struct{}, profileName string, emit func(plugin.Signal)) (plugin.SyncResults, error)
}

// defaultMaxWorkers bounds the number of in-process plugin workers
// active across the whole daemon at once. Sized off the physical core
// count rather than a fixed constant, since a sync plugin is mostly
// I/O-bound but still worth capping below the logical thread count on
// small devices; falls back to 4 if CPU detection comes back empty.
func defaultMaxWorkers() int64 {
	if n := cpuid.CPU.PhysicalCores; n > 0 {
		return int64(n)
	}
	return 4
}

var workerSem = semaphore.NewWeighted(defaultMaxWorkers())

// SetMaxWorkers reconfigures the daemon-wide in-process worker bound.
// Intended for startup configuration only.
func SetMaxWorkers(n int64) {
	if n <= 0 {
		n = defaultMaxWorkers()
	}
	workerSem = semaphore.NewWeighted(n)
}

// Runner drives one Plugin instance on a worker goroutine.
type Runner struct {
	plugin      Plugin
	profileName string

	mu      sync.Mutex
	started bool
	aborted bool
	results plugin.SyncResults

	cancel context.CancelFunc
	stopCh chan struct{}
	stopOnce sync.Once

	signals chan plugin.Signal
}

// NewRunner creates a Runner for p bound to profileName. The returned
// Runner is not started.
func NewRunner(p Plugin, profileName string) *Runner {
	return &Runner{
		plugin:      p,
		profileName: profileName,
		stopCh:      make(chan struct{}),
		signals:     make(chan plugin.Signal, 32),
	}
}

// Start acquires a worker slot and launches the plugin on a goroutine.
// It returns false without launching if the runner was already started
// or has no plugin bound.
func (r *Runner) Start() (bool, error) {
	r.mu.Lock()
	if r.started || r.plugin == nil {
		r.mu.Unlock()
		return false, nil
	}
	r.started = true
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.mu.Unlock()

	if err := workerSem.Acquire(ctx, 1); err != nil {
		r.mu.Lock()
		r.started = false
		r.mu.Unlock()
		return false, nil
	}

	go r.run(ctx)
	return true, nil
}

func (r *Runner) run(ctx context.Context) {
	defer workerSem.Release(1)

	start := time.Now()
	results, err := r.plugin.Run(ctx, r.stopCh, r.profileName, r.emit)
	results.Start = start
	if results.End.IsZero() {
		results.End = time.Now()
	}

	if err != nil {
		rerr, ok := err.(*plugin.RunnerError)
		if !ok {
			rerr = &plugin.RunnerError{Category: plugin.ErrorCategoryPlugin, Operation: "run", Message: err.Error(), Underlying: err}
		}
		r.emit(plugin.Signal{Kind: plugin.SignalError, Profile: r.profileName, Message: rerr.Message, MinorCode: "PLUGIN_ERROR", PluginTransient: rerr.Transient})
	} else {
		r.emit(plugin.Signal{Kind: plugin.SignalSuccess, Profile: r.profileName, Message: results.Message})
	}

	r.mu.Lock()
	r.results = results
	r.mu.Unlock()

	r.emit(plugin.Signal{Kind: plugin.SignalDone})
	r.emit(plugin.Signal{Kind: plugin.SignalDestroyed})
	close(r.signals)
}

// emit forwards sig to the session's Signals channel. It blocks rather
// than drop: this runs on the plugin's own worker goroutine, not the
// shared event-loop goroutine, so a blocking send here does not stall
// the core — dropping a signal instead could silently swallow a
// terminal event.
func (r *Runner) emit(sig plugin.Signal) {
	r.signals <- sig
}

// Abort requests immediate termination. Safe to call once; subsequent
// calls are no-ops.
func (r *Runner) Abort(reason string) {
	r.mu.Lock()
	r.aborted = true
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Stop requests graceful termination, leaving the plugin free to run
// to its own checkpoint before returning.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// Results returns the snapshot captured when the plugin returned. Zero
// value if the plugin has not yet finished.
func (r *Runner) Results() plugin.SyncResults {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results
}

// Signals returns the channel of Signal events this runner emits.
func (r *Runner) Signals() <-chan plugin.Signal {
	return r.signals
}
