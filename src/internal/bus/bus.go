// Package bus implements the single-threaded cooperative event loop: a
// serial goroutine draining profile-store mutations, transport changes,
// plugin-runner signals and a periodic schedule check, and dispatching
// them into the Scheduler and its Sessions. Nothing outside this loop
// is meant to touch Scheduler or Session state directly.
package bus

import (
	"context"
	"log/slog"
	"time"

	"github.com/howmanysmall/relay-syncd/src/internal/plugin"
	"github.com/howmanysmall/relay-syncd/src/internal/profile"
	"github.com/howmanysmall/relay-syncd/src/internal/scheduler"
	"github.com/howmanysmall/relay-syncd/src/internal/session"
	"github.com/howmanysmall/relay-syncd/src/internal/transport"
)

// sessionEvent carries one runner Signal tagged with the profile it
// belongs to, so the loop's single select statement can dispatch
// signals from every active session without a dynamic per-session
// select arm.
type sessionEvent struct {
	profile string
	signal  plugin.Signal
}

// Bus is the event loop. Construct with New and run with Run; Run
// blocks until ctx is cancelled.
type Bus struct {
	store   *profile.Store
	tracker *transport.Tracker
	sched   *scheduler.Scheduler
	logger  *slog.Logger

	profileEvents   <-chan profile.Event
	transportEvents <-chan transport.Event
	sessionEvents   chan sessionEvent

	tickInterval time.Duration
}

// Options configures New.
type Options struct {
	Store           *profile.Store
	Tracker         *transport.Tracker
	Scheduler       *scheduler.Scheduler
	Logger          *slog.Logger
	ProfileEvents   <-chan profile.Event
	TransportEvents <-chan transport.Event
	// TickInterval governs how often the loop re-scans profiles for a
	// due SyncSchedule or pending retry. Defaults to one second.
	TickInterval time.Duration
}

// New creates a Bus from opts. The Store, Tracker and Scheduler must
// already be wired to share the same underlying state.
func New(opts Options) *Bus {
	tick := opts.TickInterval
	if tick <= 0 {
		tick = time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		store:           opts.Store,
		tracker:         opts.Tracker,
		sched:           opts.Scheduler,
		logger:          logger,
		profileEvents:   opts.ProfileEvents,
		transportEvents: opts.TransportEvents,
		sessionEvents:   make(chan sessionEvent, 64),
		tickInterval:    tick,
	}
}

// Run drains every event source until ctx is cancelled.
func (b *Bus) Run(ctx context.Context) {
	ticker := time.NewTicker(b.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-b.profileEvents:
			if !ok {
				b.profileEvents = nil
				continue
			}
			b.handleProfileEvent(ev)

		case ev, ok := <-b.transportEvents:
			if !ok {
				b.transportEvents = nil
				continue
			}
			b.handleTransportEvent(ev)

		case ev := <-b.sessionEvents:
			b.handleSessionEvent(ev)

		case now := <-ticker.C:
			b.sweep(now)
		}
	}
}

func (b *Bus) handleProfileEvent(ev profile.Event) {
	if ev.Kind == profile.EventRemoved || ev.Kind == profile.EventLogsModified {
		return
	}

	sp, err := b.store.LoadSyncProfile(ev.Name)
	if err != nil || sp == nil {
		b.logger.Warn("bus: failed to load profile after change", "profile", ev.Name, "error", err)
		return
	}
	if err := b.store.Expand(sp.Profile); err != nil {
		b.logger.Warn("bus: failed to expand profile", "profile", ev.Name, "error", err)
		return
	}

	b.tryFire(sp, time.Now())
}

func (b *Bus) handleTransportEvent(ev transport.Event) {
	b.sched.NotifyTransportChanged(ev.Kind, ev.Available)
	b.sweep(time.Now())
}

func (b *Bus) handleSessionEvent(ev sessionEvent) {
	sess, ok := b.sched.Session(ev.profile)
	if !ok {
		return
	}
	sess.HandleSignal(ev.signal)

	if ev.signal.Kind == plugin.SignalDestroyed {
		b.sweep(time.Now())
	}
}

// sweep re-evaluates every enabled sync profile: profiles whose
// SyncSchedule or pending retry has come due, and profiles previously
// deferred for a failed storage reservation.
func (b *Bus) sweep(now time.Time) {
	names, err := b.store.List(profile.TypeSync)
	if err != nil {
		b.logger.Warn("bus: failed to list sync profiles", "error", err)
		return
	}

	pending := make(map[string]bool)
	for _, name := range b.sched.PendingStorageProfiles() {
		pending[name] = true
	}

	for _, name := range names {
		sp, err := b.store.LoadSyncProfile(name)
		if err != nil || sp == nil || !sp.Enabled || sp.Hidden {
			continue
		}
		if err := b.store.Expand(sp.Profile); err != nil {
			continue
		}

		if b.sched.IsActive(name) {
			continue
		}

		due := pending[name]
		if !due {
			next := b.sched.NextInstant(sp, now)
			due = !next.IsZero() && !next.After(now)
		}
		if due {
			b.tryFire(sp, now)
		}
	}
}

func (b *Bus) tryFire(sp *profile.SyncProfile, now time.Time) {
	if !b.sched.Fire(sp, now) {
		return
	}
	sess, ok := b.sched.Session(sp.Name)
	if !ok {
		return
	}
	b.track(sp.Name, sess)
}

// track relays sess's runner signals onto the loop's own sessionEvents
// channel, so HandleSignal is only ever called from the owning
// goroutine even though the runner delivers from its own.
func (b *Bus) track(profileName string, sess *session.Session) {
	signals := sess.Signals()
	if signals == nil {
		return
	}
	go func() {
		for sig := range signals {
			b.sessionEvents <- sessionEvent{profile: profileName, signal: sig}
		}
	}()
}
