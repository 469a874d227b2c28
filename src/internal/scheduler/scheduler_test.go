package scheduler

import (
	"testing"
	"time"

	"github.com/howmanysmall/relay-syncd/src/internal/plugin"
	"github.com/howmanysmall/relay-syncd/src/internal/profile"
	"github.com/howmanysmall/relay-syncd/src/internal/session"
	"github.com/howmanysmall/relay-syncd/src/internal/storage"
	"github.com/howmanysmall/relay-syncd/src/internal/synccode"
	"github.com/howmanysmall/relay-syncd/src/internal/transport"
)

// newUnavailableTracker returns a Tracker with every connectivity kind
// left at its zero-value (unavailable) default.
func newUnavailableTracker() *transport.Tracker {
	return transport.New(nil)
}

// controllableRunner lets a test decide the outcome of Start and then
// manually deliver a terminal signal.
type controllableRunner struct {
	startOK bool
	signals chan plugin.Signal
	results plugin.SyncResults
}

func newControllableRunner() *controllableRunner {
	return &controllableRunner{startOK: true, signals: make(chan plugin.Signal, 4)}
}

func (r *controllableRunner) Start() (bool, error)          { return r.startOK, nil }
func (r *controllableRunner) Abort(string)                  {}
func (r *controllableRunner) Stop()                          {}
func (r *controllableRunner) Results() plugin.SyncResults    { return r.results }
func (r *controllableRunner) Signals() <-chan plugin.Signal  { return r.signals }

func sessionFactoryFor(runners map[string]*controllableRunner) SessionFactory {
	return func(sp *profile.SyncProfile, storages []string, scheduled bool, onFinished func(session.Result)) *session.Session {
		return session.New(session.Options{
			ProfileName: sp.Name,
			Runner:      runners[sp.Name],
			Scheduled:   scheduled,
			OnFinished:  onFinished,
		})
	}
}

func syncProfileWithStorages(name string, storages ...string) *profile.SyncProfile {
	p := &profile.Profile{Name: name, Type: profile.TypeSync, Enabled: true}
	for _, s := range storages {
		p.SubProfiles = append(p.SubProfiles, &profile.Profile{Name: s, Type: profile.TypeStorage})
	}
	return &profile.SyncProfile{Profile: p}
}

// S3 — Storage exclusion: P1 holds {calendar, contacts}; P2 requires
// {contacts}; reservation fails and no session starts for P2 until P1
// terminates and releases.
func TestFire_StorageExclusionDefersUntilRelease(t *testing.T) {
	booker := storage.New()
	r1 := newControllableRunner()
	r2 := newControllableRunner()
	runners := map[string]*controllableRunner{"p1": r1, "p2": r2}

	sched := New(nil, nil, booker, sessionFactoryFor(runners))

	p1 := syncProfileWithStorages("p1", "calendar", "contacts")
	p2 := syncProfileWithStorages("p2", "contacts")

	if !sched.Fire(p1, time.Now()) {
		t.Fatal("expected P1 to start")
	}
	if sched.Fire(p2, time.Now()) {
		t.Fatal("expected P2 to be refused while P1 holds contacts")
	}

	r1.results = plugin.SyncResults{}
	r1.signals <- plugin.Signal{Kind: plugin.SignalSuccess}

	sess1 := sched.active["p1"]
	sess1.HandleSignal(<-r1.signals)

	if sched.IsActive("p1") {
		t.Fatal("expected P1 to be removed from active sessions after finishing")
	}
	if !sched.Fire(p2, time.Now()) {
		t.Fatal("expected P2 to succeed once P1 released its storages")
	}
}

func TestFire_RefusesSecondSessionForSameProfile(t *testing.T) {
	booker := storage.New()
	r1 := newControllableRunner()
	runners := map[string]*controllableRunner{"p1": r1}
	sched := New(nil, nil, booker, sessionFactoryFor(runners))

	p1 := syncProfileWithStorages("p1")

	if !sched.Fire(p1, time.Now()) {
		t.Fatal("expected first Fire to succeed")
	}
	if sched.Fire(p1, time.Now()) {
		t.Fatal("expected a second Fire for the same profile to be refused")
	}
}

// S4 — Retry exhaustion: retry_intervals = [1, 5, 15]. Three
// consecutive CONNECTION_ERROR failures consume all three retries; a
// fourth failure must not schedule another.
func TestScheduleRetry_ExhaustsAfterThreeIntervals(t *testing.T) {
	booker := storage.New()
	runner := newControllableRunner()
	runners := map[string]*controllableRunner{"p": runner}
	sched := New(nil, nil, booker, sessionFactoryFor(runners))

	sp := syncProfileWithStorages("p")
	sp.RetryIntervals = []time.Duration{1 * time.Minute, 5 * time.Minute, 15 * time.Minute}

	fail := func() {
		sched.Fire(sp, time.Now())
		sess := sched.active["p"]
		sess.HandleSignal(plugin.Signal{Kind: plugin.SignalError, MinorCode: synccode.ConnectionError})
	}

	fail() // originating failure: consumes interval 0 (1m), schedules retry 1
	if remaining, pending := sched.RetryPending("p"); !pending || remaining != 2 {
		t.Fatalf("expected 2 remaining after first failure, got remaining=%d pending=%v", remaining, pending)
	}

	fail() // retry 1 fails: consumes interval 1 (5m), schedules retry 2
	if remaining, pending := sched.RetryPending("p"); !pending || remaining != 1 {
		t.Fatalf("expected 1 remaining after second failure, got remaining=%d pending=%v", remaining, pending)
	}

	fail() // retry 2 fails: consumes interval 2 (15m), schedules retry 3
	if remaining, pending := sched.RetryPending("p"); !pending || remaining != 0 {
		t.Fatalf("expected 0 remaining after third failure, got remaining=%d pending=%v", remaining, pending)
	}

	fail() // retry 3 fails: sequence exhausted, no further retry
	if _, pending := sched.RetryPending("p"); pending {
		t.Fatal("expected retry state cleared after the sequence is exhausted")
	}
}

func TestScheduleRetry_SuccessClearsState(t *testing.T) {
	booker := storage.New()
	runner := newControllableRunner()
	runners := map[string]*controllableRunner{"p": runner}
	sched := New(nil, nil, booker, sessionFactoryFor(runners))

	sp := syncProfileWithStorages("p")
	sp.RetryIntervals = []time.Duration{time.Minute}

	sched.Fire(sp, time.Now())
	sched.active["p"].HandleSignal(plugin.Signal{Kind: plugin.SignalError, MinorCode: synccode.ConnectionError})
	if _, pending := sched.RetryPending("p"); !pending {
		t.Fatal("expected a retry to be pending after the failure")
	}

	sched.Fire(sp, time.Now())
	sched.active["p"].HandleSignal(plugin.Signal{Kind: plugin.SignalSuccess})
	if _, pending := sched.RetryPending("p"); pending {
		t.Fatal("expected retry state cleared after success")
	}
}

func TestViable_UnavailableTransportRefusesFire(t *testing.T) {
	booker := storage.New()
	runner := newControllableRunner()
	runners := map[string]*controllableRunner{"p": runner}

	tr := newUnavailableTracker()
	sched := New(nil, tr, booker, sessionFactoryFor(runners))

	sp := syncProfileWithStorages("p")
	if sched.Fire(sp, time.Now()) {
		t.Fatal("expected Fire to refuse an unviable profile")
	}
}
