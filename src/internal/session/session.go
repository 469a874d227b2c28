// Package session implements SyncSession: the per-profile state
// machine that coordinates transport acquisition, plugin startup,
// storage release, and terminal result reporting. A Session is owned
// by the single-threaded event loop — every
// exported method here must be called from that one goroutine; the
// only cross-goroutine traffic is the runner's Signals channel, which
// the owning loop pumps into HandleSignal itself.
package session

import (
	"github.com/howmanysmall/relay-syncd/src/internal/plugin"
	"github.com/howmanysmall/relay-syncd/src/internal/storage"
	"github.com/howmanysmall/relay-syncd/src/internal/synccode"
	"github.com/howmanysmall/relay-syncd/src/internal/transport"
)

// State is a SyncSession lifecycle stage.
type State int

// Session states.
const (
	StateCreated State = iota
	StateAwaitingTransport
	StateStarting
	StateRunning
	StateAborting
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateAwaitingTransport:
		return "awaiting_transport"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateAborting:
		return "aborting"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Result is the terminal outcome a Session reports exactly once.
type Result struct {
	Profile   string
	Status    synccode.Status
	Message   string
	Minor     synccode.MinorCode
	TargetID  string
	Scheduled bool
	Transient bool
}

// Options configures a new Session.
type Options struct {
	ProfileName       string
	RequiredTransport transport.Kind
	NeedsTransport    bool // destination_type == online && !Scheduled
	Scheduled         bool
	Storages          []string
	Runner            plugin.Runner
	Tracker           *transport.Tracker
	Booker            *storage.Booker
	OnFinished        func(Result)
}

// Session is one SyncSession instance.
type Session struct {
	profileName       string
	requiredTransport transport.Kind
	needsTransport    bool
	scheduled         bool
	storages          []string

	runner  plugin.Runner
	tracker *transport.Tracker
	booker  *storage.Booker

	onFinished func(Result)

	state       State
	aborted     bool
	sawTerminal bool
	released    bool
}

// New creates a Session in the Created state. Storage reservation is
// the Scheduler's responsibility and must already have succeeded
// before Start is called.
func New(opts Options) *Session {
	return &Session{
		profileName:       opts.ProfileName,
		requiredTransport: opts.RequiredTransport,
		needsTransport:    opts.NeedsTransport,
		scheduled:         opts.Scheduled,
		storages:          opts.Storages,
		runner:            opts.Runner,
		tracker:           opts.Tracker,
		booker:            opts.Booker,
		onFinished:        opts.OnFinished,
	}
}

// State returns the session's current lifecycle stage.
func (s *Session) State() State { return s.state }

// Start begins the session: if a transport is required and currently
// unavailable the session waits in AwaitingTransport; otherwise it
// proceeds straight to launching the plugin.
func (s *Session) Start() {
	if s.state != StateCreated {
		return
	}

	if s.needsTransport && (s.tracker == nil || !s.tracker.IsAvailable(s.requiredTransport)) {
		s.state = StateAwaitingTransport
		return
	}

	s.beginStarting()
}

// NotifyTransportChanged informs an AwaitingTransport session that the
// tracker's view of kind has changed. Changes to any other kind, or
// arriving outside AwaitingTransport, are ignored.
func (s *Session) NotifyTransportChanged(kind transport.Kind, available bool) {
	if s.state != StateAwaitingTransport || kind != s.requiredTransport {
		return
	}
	if available {
		s.beginStarting()
		return
	}
	s.finish(synccode.Error, "", synccode.ConnectionError, true)
}

func (s *Session) beginStarting() {
	s.state = StateStarting

	if s.aborted {
		s.finish(synccode.Error, "", synccode.Aborted, false)
		return
	}

	if s.runner == nil {
		s.finish(synccode.Error, "", synccode.InternalError, false)
		return
	}

	ok, err := s.runner.Start()
	if err != nil || !ok {
		s.finish(synccode.Error, "", synccode.InternalError, false)
		return
	}

	s.state = StateRunning
}

// Abort requests termination. Before the plugin has successfully
// started, this finishes the session immediately with outer status
// ERROR and minor code ABORTED, without ever touching the plugin. Once
// Running, the plugin's own Abort is invoked and the eventual terminal
// status is forced to ABORTED regardless of what the plugin itself
// reports.
func (s *Session) Abort(reason string) {
	switch s.state {
	case StateFinished, StateAborting:
		return
	case StateCreated, StateAwaitingTransport, StateStarting:
		s.aborted = true
		s.finish(synccode.Error, "", synccode.Aborted, false)
	case StateRunning:
		s.aborted = true
		s.state = StateAborting
		s.runner.Abort(reason)
	}
}

// Signals returns the owning runner's event channel, for the event
// loop to pump into HandleSignal. Returns nil if the session has no
// runner (none was bound, or SignalDestroyed has been handled).
func (s *Session) Signals() <-chan plugin.Signal {
	if s.runner == nil {
		return nil
	}
	return s.runner.Signals()
}

// HandleSignal advances the session in response to one Signal from its
// runner. Must be called from the owning event-loop goroutine.
func (s *Session) HandleSignal(sig plugin.Signal) {
	switch sig.Kind {
	case plugin.SignalSuccess:
		s.sawTerminal = true
		status := synccode.Done
		minor := synccode.NoError
		if s.aborted {
			status = synccode.StatusAborted
			minor = synccode.Aborted
		}
		s.finish(status, sig.Message, minor, false)

	case plugin.SignalError:
		s.sawTerminal = true
		minor := sig.MinorCode
		if minor == "" {
			minor = synccode.InternalError
		}
		status := synccode.ToStatus(minor)
		message := sig.Message
		transient := sig.PluginTransient
		if s.aborted {
			status = synccode.StatusAborted
			minor = synccode.Aborted
			transient = false
		}
		s.finish(status, message, minor, transient)

	case plugin.SignalDone:
		if !s.sawTerminal {
			s.finish(synccode.Error, "", synccode.NoError, false)
		}

	case plugin.SignalDestroyed:
		s.runner = nil
	}
}

// ReleaseStorages idempotently releases any storages this session
// reserved. Safe to call multiple times and safe to call even if
// finish() already released them.
func (s *Session) ReleaseStorages() {
	if s.released || s.booker == nil || len(s.storages) == 0 {
		return
	}
	s.booker.Release(s.storages)
	s.released = true
}

func (s *Session) finish(status synccode.Status, message string, minor synccode.MinorCode, transient bool) {
	if s.state == StateFinished {
		return
	}
	s.state = StateFinished

	var targetID string
	if s.runner != nil {
		targetID = s.runner.Results().TargetID
	}

	s.ReleaseStorages()

	if s.onFinished != nil {
		s.onFinished(Result{
			Profile:   s.profileName,
			Status:    status,
			Message:   message,
			Minor:     minor,
			TargetID:  targetID,
			Scheduled: s.scheduled,
			Transient: transient,
		})
	}
}
