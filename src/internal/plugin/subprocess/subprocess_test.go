package subprocess

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/howmanysmall/relay-syncd/src/internal/plugin"
)

// writeWorkerScript writes a POSIX shell worker that echoes body (a
// newline-delimited JSON event stream) to stdout and exits 0. It
// ignores its positional arguments and stdin, which is enough to
// exercise the Runner's read loop without depending on a real plugin.
func writeWorkerScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("subprocess worker script requires a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), "worker.sh")
	script := "#!/bin/sh\ncat <<'EOF'\n" + body + "EOF\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write worker script: %v", err)
	}
	return path
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

func TestRunner_SuccessLine(t *testing.T) {
	worker := writeWorkerScript(t, `{"event":"transfer_progress","db":"calendar","direction":"upload","mime":"text/calendar","committed_count":3}
{"event":"success","message":"all done"}
`)
	r := NewRunner(worker, "caldav", "calendar", "/usr/lib/plugins/caldav.so")

	ok, err := r.Start()
	if err != nil || !ok {
		t.Fatalf("expected Start to succeed, got ok=%v err=%v", ok, err)
	}

	sigs := drain(t, r.Signals(), 5*time.Second)
	if len(sigs) != 4 {
		t.Fatalf("expected [progress, success, done, destroyed], got %+v", sigs)
	}
	if sigs[0].Kind != plugin.SignalTransferProgress || sigs[0].CommittedCount != 3 {
		t.Fatalf("expected parsed progress signal, got %+v", sigs[0])
	}
	if sigs[1].Kind != plugin.SignalSuccess || sigs[1].Message != "all done" {
		t.Fatalf("expected parsed success signal, got %+v", sigs[1])
	}
	if sigs[2].Kind != plugin.SignalDone || sigs[3].Kind != plugin.SignalDestroyed {
		t.Fatalf("expected terminal done/destroyed tail, got %+v", sigs[2:])
	}
}

func TestRunner_ErrorLineMarksTerminal(t *testing.T) {
	worker := writeWorkerScript(t, `{"event":"error","message":"network unreachable","transient":true}
`)
	r := NewRunner(worker, "imap", "mail", "/usr/lib/plugins/imap.so")

	if ok, _ := r.Start(); !ok {
		t.Fatal("expected Start to succeed")
	}

	sigs := drain(t, r.Signals(), 5*time.Second)
	if len(sigs) != 3 || sigs[0].Kind != plugin.SignalError {
		t.Fatalf("expected [error, done, destroyed], got %+v", sigs)
	}
	if !sigs[0].PluginTransient {
		t.Fatal("expected transient flag to round-trip from the worker's JSON")
	}
}

func TestRunner_NoTerminalEventIsReportedAsUnexpected(t *testing.T) {
	worker := writeWorkerScript(t, `{"event":"sync_progress_detail","code":"connecting"}
`)
	r := NewRunner(worker, "imap", "mail", "/usr/lib/plugins/imap.so")

	if ok, _ := r.Start(); !ok {
		t.Fatal("expected Start to succeed")
	}

	sigs := drain(t, r.Signals(), 5*time.Second)
	if len(sigs) < 4 {
		t.Fatalf("expected at least [detail, error-for-missing-terminal, done, destroyed], got %+v", sigs)
	}
	foundUnexpected := false
	for _, s := range sigs {
		if s.Kind == plugin.SignalError && s.MinorCode == "NO_ERROR" {
			foundUnexpected = true
		}
	}
	if !foundUnexpected {
		t.Fatalf("expected an unexpected-termination error signal, got %+v", sigs)
	}
}
