// Package scheduler implements the Scheduler: profile-driven admission
// control over SyncSessions, retry backoff bounded by each profile's
// finite retry-interval sequence, and viability gating on storage and
// transport availability. It is the top of the single-threaded
// event-loop stack — every exported method is
// meant to be called from the owning loop goroutine, except where
// documented.
package scheduler

import (
	"time"

	"github.com/howmanysmall/relay-syncd/src/internal/profile"
	"github.com/howmanysmall/relay-syncd/src/internal/session"
	"github.com/howmanysmall/relay-syncd/src/internal/storage"
	"github.com/howmanysmall/relay-syncd/src/internal/synccode"
	"github.com/howmanysmall/relay-syncd/src/internal/transport"
)

// retryState is a profile's in-flight retry bookkeeping, consumed one
// interval at a time.
type retryState struct {
	remaining []time.Duration
	nextAt    time.Time
}

// SessionFactory builds the runner-backed Session for a profile once
// the Scheduler decides to start it. The Scheduler itself has no
// opinion on which PluginRunner variant a profile uses.
type SessionFactory func(sp *profile.SyncProfile, storages []string, scheduled bool, onFinished func(session.Result)) *session.Session

// Scheduler drives the whole system.
type Scheduler struct {
	store   *profile.Store
	tracker *transport.Tracker
	booker  *storage.Booker
	newSession SessionFactory

	active  map[string]*session.Session
	retries map[string]*retryState
	// pendingStorage holds profiles whose viability was met but whose
	// storage reservation failed, so they can be retried once the
	// holding session terminates.
	pendingStorage map[string]bool
}

// New creates a Scheduler. store, tracker and booker must outlive the
// Scheduler; factory constructs the Session (and its PluginRunner) for
// a profile once the Scheduler has decided to start it.
func New(store *profile.Store, tracker *transport.Tracker, booker *storage.Booker, factory SessionFactory) *Scheduler {
	return &Scheduler{
		store:          store,
		tracker:        tracker,
		booker:         booker,
		newSession:     factory,
		active:         make(map[string]*session.Session),
		retries:        make(map[string]*retryState),
		pendingStorage: make(map[string]bool),
	}
}

// NextInstant computes the next instant sp should be attempted. A
// pending retry takes precedence over the profile's own schedule; the
// zero Time means "no scheduled instant".
func (s *Scheduler) NextInstant(sp *profile.SyncProfile, now time.Time) time.Time {
	if rs, pending := s.retries[sp.Name]; pending {
		return rs.nextAt
	}
	return sp.Schedule.NextFire(now)
}

// Viable reports whether sp's required transport is currently
// available.
func (s *Scheduler) Viable(sp *profile.SyncProfile) bool {
	if s.tracker == nil {
		return true
	}
	kind := transport.Kind(sp.RequiredTransport())
	return s.tracker.IsAvailable(kind)
}

// Fire attempts to start sp's session now. It refuses if a session for
// this profile is already active (one-session-per-profile admission
// control), if the profile is not viable, or if storage reservation
// fails — in the storage-failure case the profile is remembered and
// listed by PendingStorageProfiles, so the event loop can fire it again
// once the holding session terminates. It returns true iff a new
// Session was started.
func (s *Scheduler) Fire(sp *profile.SyncProfile, now time.Time) bool {
	if _, running := s.active[sp.Name]; running {
		return false
	}
	if !s.Viable(sp) {
		return false
	}

	storages := sp.StorageNames()
	if s.booker != nil && !s.booker.Reserve(storages, sp.Name) {
		s.pendingStorage[sp.Name] = true
		return false
	}

	_, hadRetry := s.retries[sp.Name]
	scheduled := hadRetry || sp.Schedule.Enabled

	sess := s.newSession(sp, storages, scheduled, func(r session.Result) {
		s.onSessionFinished(sp, r, storages)
	})
	s.active[sp.Name] = sess
	delete(s.pendingStorage, sp.Name)
	sess.Start()
	return true
}

func (s *Scheduler) onSessionFinished(sp *profile.SyncProfile, r session.Result, storages []string) {
	delete(s.active, sp.Name)

	if synccode.Retryable(r.Minor, r.Transient) {
		s.scheduleRetry(sp, time.Now())
	} else {
		delete(s.retries, sp.Name)
	}

	if s.booker != nil {
		s.booker.Release(storages)
	}
}

// scheduleRetry consumes the next retry interval for sp, if any remain.
// On exhaustion, the retry state is cleared and the profile falls back
// to its normal schedule.
func (s *Scheduler) scheduleRetry(sp *profile.SyncProfile, now time.Time) {
	rs, ok := s.retries[sp.Name]
	if !ok {
		rs = &retryState{remaining: append([]time.Duration(nil), sp.RetryIntervals...)}
		s.retries[sp.Name] = rs
	}

	if len(rs.remaining) == 0 {
		delete(s.retries, sp.Name)
		return
	}

	interval := rs.remaining[0]
	rs.remaining = rs.remaining[1:]
	rs.nextAt = now.Add(interval)
}

// ClearRetry drops any retry state for profileName, e.g. after an
// out-of-band success.
func (s *Scheduler) ClearRetry(profileName string) {
	delete(s.retries, profileName)
}

// NotifyTransportChanged forwards a transport change to every active
// session. It does not re-evaluate profiles previously deferred for lack
// of viability: the caller calls Fire for those again itself, since the
// Scheduler doesn't enumerate the full profile set.
func (s *Scheduler) NotifyTransportChanged(kind transport.Kind, available bool) {
	for _, sess := range s.active {
		sess.NotifyTransportChanged(kind, available)
	}
}

// Abort aborts the active session for profileName, if any.
func (s *Scheduler) Abort(profileName, reason string) {
	if sess, ok := s.active[profileName]; ok {
		sess.Abort(reason)
	}
}

// IsActive reports whether profileName currently has a non-terminal
// session.
func (s *Scheduler) IsActive(profileName string) bool {
	_, ok := s.active[profileName]
	return ok
}

// RetryPending reports whether profileName currently has a pending
// retry, and how many further retries remain after it.
func (s *Scheduler) RetryPending(profileName string) (remaining int, pending bool) {
	rs, ok := s.retries[profileName]
	if !ok {
		return 0, false
	}
	return len(rs.remaining), true
}

// Session returns the active Session for profileName, if any, so a
// caller (the event loop) can pump its runner's signals into it.
func (s *Scheduler) Session(profileName string) (*session.Session, bool) {
	sess, ok := s.active[profileName]
	return sess, ok
}

// PendingStorageProfiles lists profiles whose last Fire failed only
// because a storage reservation was unavailable. The event loop
// re-attempts Fire for these whenever a session terminates.
func (s *Scheduler) PendingStorageProfiles() []string {
	names := make([]string, 0, len(s.pendingStorage))
	for name := range s.pendingStorage {
		names = append(names, name)
	}
	return names
}
