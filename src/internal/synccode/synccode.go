// Package synccode defines the error and outcome taxonomy shared by the
// profile log, the plugin runner, the sync session and the scheduler, so
// none of those packages need to import each other just to agree on the
// vocabulary of "what happened".
package synccode

// MinorCode is the fine-grained error taxonomy a SyncResult records.
type MinorCode string

// Minor codes in the sync-result error taxonomy.
const (
	NoError             MinorCode = "NO_ERROR"
	InternalError       MinorCode = "INTERNAL_ERROR"
	ConnectionError     MinorCode = "CONNECTION_ERROR"
	Aborted             MinorCode = "ABORTED"
	PluginError         MinorCode = "PLUGIN_ERROR"
	UnsupportedSyncType MinorCode = "UNSUPPORTED_SYNC_TYPE"
)

// MajorOutcome is the coarse success/failure/cancellation classification
// a SyncResult records.
type MajorOutcome string

// Major outcomes.
const (
	Success   MajorOutcome = "success"
	Failed    MajorOutcome = "failed"
	Cancelled MajorOutcome = "cancelled"
)

// Status is the outer status reported to clients at session end.
type Status string

// Outer statuses.
const (
	Done          Status = "DONE"
	StatusAborted Status = "ABORTED"
	NotPossible   Status = "NOTPOSSIBLE"
	Error         Status = "ERROR"
)

// ToStatus maps a minor code to the outer status reported to clients:
// UNSUPPORTED_SYNC_TYPE maps to NOTPOSSIBLE, everything else to ERROR.
func ToStatus(code MinorCode) Status {
	if code == UnsupportedSyncType {
		return NotPossible
	}
	return Error
}

// Retryable reports whether a minor code is eligible for the scheduler's
// retry sequence. CONNECTION_ERROR is always retryable; PLUGIN_ERROR is
// retryable only when the runner itself flagged the failure transient
// (see plugin.RunnerError.Transient).
func Retryable(code MinorCode, transient bool) bool {
	switch code {
	case ConnectionError:
		return true
	case PluginError:
		return transient
	default:
		return false
	}
}
