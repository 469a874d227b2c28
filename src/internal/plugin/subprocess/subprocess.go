// Package subprocess implements the PluginRunner variant that launches
// a worker executable and speaks a newline-delimited JSON protocol over
// its stdio pipes, per the worker executable's CLI contract (plugin name, profile
// name, plugin library path as positional arguments).
package subprocess

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/howmanysmall/relay-syncd/src/internal/plugin"
)

// Runner drives one out-of-process plugin worker.
type Runner struct {
	workerPath  string
	pluginName  string
	profileName string
	libPath     string

	mu      sync.Mutex
	started bool
	aborted bool
	results plugin.SyncResults

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	cancel context.CancelFunc

	signals chan plugin.Signal
}

// NewRunner creates a Runner that will launch workerPath with the
// pluginName/profileName/libPath argument triple the worker executable expects.
func NewRunner(workerPath, pluginName, profileName, libPath string) *Runner {
	return &Runner{
		workerPath:  workerPath,
		pluginName:  pluginName,
		profileName: profileName,
		libPath:     libPath,
		signals:     make(chan plugin.Signal, 32),
	}
}

// Start launches the worker process and begins reading its event
// stream on a goroutine. It returns false if the process could not be
// started at all, or if Start was already called.
func (r *Runner) Start() (bool, error) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return false, nil
	}
	r.started = true
	r.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, r.workerPath, r.pluginName, r.profileName, r.libPath)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return false, fmt.Errorf("subprocess: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return false, fmt.Errorf("subprocess: stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return false, nil
	}

	r.mu.Lock()
	r.cmd = cmd
	r.stdin = stdin
	r.cancel = cancel
	r.mu.Unlock()

	go r.readLoop(stdout)
	return true, nil
}

func (r *Runner) readLoop(stdout io.ReadCloser) {
	start := time.Now()
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	sawTerminal := false

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		sig, terminal := r.parseLine(line)
		if terminal {
			sawTerminal = true
		}
		r.emit(sig)
	}

	r.mu.Lock()
	cmd := r.cmd
	r.mu.Unlock()
	if cmd != nil {
		_ = cmd.Wait()
	}

	if !sawTerminal {
		r.emit(plugin.Signal{Kind: plugin.SignalError, Profile: r.profileName, MinorCode: "NO_ERROR", Message: "worker terminated without a terminal event"})
	}

	results := r.Results()
	results.Start = start
	if results.End.IsZero() {
		results.End = time.Now()
	}
	r.mu.Lock()
	r.results = results
	r.mu.Unlock()

	r.emit(plugin.Signal{Kind: plugin.SignalDone})
	r.emit(plugin.Signal{Kind: plugin.SignalDestroyed})
	close(r.signals)
}

// parseLine extracts the tagged event from one newline-delimited JSON
// line using gjson rather than a full unmarshal. Expected shape:
// {"event":"<tag>", ...fields}.
func (r *Runner) parseLine(line []byte) (sig plugin.Signal, terminal bool) {
	result := gjson.ParseBytes(line)
	event := result.Get("event").String()

	switch event {
	case "transfer_progress":
		return plugin.Signal{
			Kind:           plugin.SignalTransferProgress,
			Profile:        r.profileName,
			Database:       result.Get("db").String(),
			Direction:      plugin.Direction(result.Get("direction").String()),
			MIMEType:       result.Get("mime").String(),
			CommittedCount: result.Get("committed_count").Int(),
		}, false

	case "storage_acquired":
		return plugin.Signal{Kind: plugin.SignalStorageAcquired, Profile: r.profileName, MIMEType: result.Get("mime").String()}, false

	case "sync_progress_detail":
		return plugin.Signal{Kind: plugin.SignalProgressDetail, Profile: r.profileName, Code: result.Get("code").String()}, false

	case "error":
		transient := result.Get("transient").Bool()
		return plugin.Signal{
			Kind:            plugin.SignalError,
			Profile:         r.profileName,
			Message:         result.Get("message").String(),
			MinorCode:       "PLUGIN_ERROR",
			PluginTransient: transient,
		}, true

	case "success":
		return plugin.Signal{Kind: plugin.SignalSuccess, Profile: r.profileName, Message: result.Get("message").String()}, true

	default:
		return plugin.Signal{Kind: plugin.SignalProgressDetail, Profile: r.profileName, Code: "unknown:" + event}, false
	}
}

// emit forwards sig to the session's Signals channel. It blocks rather
// than drop: this runs on the runner's own readLoop goroutine, not the
// shared event-loop goroutine, so a blocking send here does not stall
// the core — dropping a signal instead could silently swallow a
// terminal event.
func (r *Runner) emit(sig plugin.Signal) {
	r.signals <- sig
}

// Abort writes an abort command to the worker's stdin and then cancels
// the process context, which kills the worker right away without
// waiting for it to act on the request. Safe to call once.
func (r *Runner) Abort(reason string) {
	r.mu.Lock()
	r.aborted = true
	stdin := r.stdin
	cancel := r.cancel
	r.mu.Unlock()

	if stdin != nil {
		_, _ = io.WriteString(stdin, fmt.Sprintf(`{"op":"abort","reason":%q}`+"\n", reason))
	}
	if cancel != nil {
		cancel()
	}
}

// Stop writes a graceful-stop command to the worker's stdin.
func (r *Runner) Stop() {
	r.mu.Lock()
	stdin := r.stdin
	r.mu.Unlock()

	if stdin != nil {
		_, _ = io.WriteString(stdin, "{\"op\":\"stop\"}\n")
	}
}

// Results returns the snapshot captured when the worker's event stream
// ended. Zero value if the worker has not yet finished.
func (r *Runner) Results() plugin.SyncResults {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results
}

// Signals returns the channel of Signal events this runner emits.
func (r *Runner) Signals() <-chan plugin.Signal {
	return r.signals
}
