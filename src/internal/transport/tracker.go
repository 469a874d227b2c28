// Package transport implements the TransportTracker: a mutex-guarded
// connectivity snapshot covering USB, Bluetooth and Internet, fed by
// caller-supplied events and by internal pollers, emitting a
// connectivity_changed notification exactly once per actual value
// change.
package transport

import "sync"

// Kind is a connectivity source.
type Kind string

// Connectivity kinds.
const (
	KindUSB      Kind = "usb"
	KindBT       Kind = "bt"
	KindInternet Kind = "internet"
)

// Event is emitted for every observed transition that changes the
// tracker's snapshot.
type Event struct {
	Kind      Kind
	Available bool
}

// btAdapterState tracks the single "default" Bluetooth adapter this
// tracker follows (only the first adapter discovered
// is tracked; other paths are ignored).
type btAdapterState struct {
	known   bool
	path    string
	powered bool
}

// Tracker is the TransportTracker. Its snapshot map is the one piece of
// shared state in this codebase read from more than the owning event
// loop goroutine, so it is guarded by its own RWMutex rather than
// relying on loop ownership.
type Tracker struct {
	mu     sync.RWMutex
	state  map[Kind]bool
	bt     btAdapterState
	events chan<- Event
}

// New creates a Tracker with every kind initially unavailable. events
// receives a notification for every value change; pass nil to discard
// them.
func New(events chan<- Event) *Tracker {
	return &Tracker{
		state: map[Kind]bool{
			KindUSB:      false,
			KindBT:       false,
			KindInternet: false,
		},
		events: events,
	}
}

// IsAvailable reads the current snapshot value for kind. Safe to call
// from any goroutine.
func (t *Tracker) IsAvailable(kind Kind) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state[kind]
}

// Snapshot returns a copy of the full connectivity map.
func (t *Tracker) Snapshot() map[Kind]bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[Kind]bool, len(t.state))
	for k, v := range t.state {
		out[k] = v
	}
	return out
}

// setAndEmit updates kind's value, emitting Event only when the value
// actually changes.
func (t *Tracker) setAndEmit(kind Kind, value bool) {
	t.mu.Lock()
	changed := t.state[kind] != value
	if changed {
		t.state[kind] = value
	}
	t.mu.Unlock()

	if changed {
		t.emit(Event{Kind: kind, Available: value})
	}
}

func (t *Tracker) emit(ev Event) {
	if t.events == nil {
		return
	}
	select {
	case t.events <- ev:
	default:
	}
}

// SetUSB records a USB connection toggle.
func (t *Tracker) SetUSB(connected bool) {
	t.setAndEmit(KindUSB, connected)
}

// SetInternet records an Internet reachability change.
func (t *Tracker) SetInternet(reachable bool) {
	t.setAndEmit(KindInternet, reachable)
}

// AdapterAdded records a newly discovered BT adapter at path, with its
// initial Powered value (established by an explicit query at attach
// time). A second adapter discovered while one is
// already tracked is ignored.
func (t *Tracker) AdapterAdded(path string, powered bool) {
	t.mu.Lock()
	if t.bt.known {
		t.mu.Unlock()
		return
	}
	t.bt = btAdapterState{known: true, path: path, powered: powered}
	t.mu.Unlock()

	t.setAndEmit(KindBT, powered)
}

// PoweredChanged records a Powered property change on the adapter at
// path. Events for any path other than the tracked default are
// ignored.
func (t *Tracker) PoweredChanged(path string, powered bool) {
	t.mu.Lock()
	if !t.bt.known || t.bt.path != path {
		t.mu.Unlock()
		return
	}
	t.bt.powered = powered
	t.mu.Unlock()

	t.setAndEmit(KindBT, powered)
}

// AdapterRemoved forgets the tracked adapter if path matches it.
func (t *Tracker) AdapterRemoved(path string) {
	t.mu.Lock()
	if !t.bt.known || t.bt.path != path {
		t.mu.Unlock()
		return
	}
	t.bt = btAdapterState{}
	t.mu.Unlock()

	t.setAndEmit(KindBT, false)
}
