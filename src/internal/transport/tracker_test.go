package transport

import "testing"

func TestTracker_InitiallyUnavailable(t *testing.T) {
	tr := New(nil)
	for _, k := range []Kind{KindUSB, KindBT, KindInternet} {
		if tr.IsAvailable(k) {
			t.Fatalf("expected %s unavailable at startup", k)
		}
	}
}

func TestTracker_USBIdempotence(t *testing.T) {
	events := make(chan Event, 8)
	tr := New(events)

	tr.SetUSB(true)
	tr.SetUSB(true)
	tr.SetUSB(true)

	if got := len(events); got != 1 {
		t.Fatalf("expected exactly 1 emission for repeated identical value, got %d", got)
	}
	if !tr.IsAvailable(KindUSB) {
		t.Fatal("expected USB available")
	}

	tr.SetUSB(false)
	if got := len(events); got != 2 {
		t.Fatalf("expected a second emission on actual change, got %d", got)
	}
}

func TestTracker_BTAdapterLifecycle(t *testing.T) {
	events := make(chan Event, 8)
	tr := New(events)

	tr.AdapterAdded("/org/bluez/hci0", true)
	if !tr.IsAvailable(KindBT) {
		t.Fatal("expected BT available after adapter added powered")
	}

	tr.PoweredChanged("/org/bluez/hci0", false)
	if tr.IsAvailable(KindBT) {
		t.Fatal("expected BT unavailable after powered=false")
	}

	// Event for an untracked path is ignored.
	tr.PoweredChanged("/org/bluez/hci1", true)
	if tr.IsAvailable(KindBT) {
		t.Fatal("expected untracked adapter path to be ignored")
	}

	tr.AdapterRemoved("/org/bluez/hci0")
	if tr.IsAvailable(KindBT) {
		t.Fatal("expected BT unavailable after adapter removed")
	}

	drained := 0
	for {
		select {
		case <-events:
			drained++
			continue
		default:
		}
		break
	}
	if drained != 2 {
		t.Fatalf("expected 2 emissions (added-powered, powered-false); removed-while-already-false is a no-op; got %d", drained)
	}
}

func TestTracker_OnlyFirstAdapterTracked(t *testing.T) {
	events := make(chan Event, 8)
	tr := New(events)

	tr.AdapterAdded("/org/bluez/hci0", false)
	tr.AdapterAdded("/org/bluez/hci1", true)

	if tr.IsAvailable(KindBT) {
		t.Fatal("expected the second adapter to be ignored, leaving BT unpowered")
	}
}

func TestTracker_SnapshotIsACopy(t *testing.T) {
	tr := New(nil)
	tr.SetInternet(true)

	snap := tr.Snapshot()
	snap[KindInternet] = false

	if !tr.IsAvailable(KindInternet) {
		t.Fatal("expected mutating the snapshot copy to not affect the tracker")
	}
}
