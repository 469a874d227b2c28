package profile

import (
	"time"

	"github.com/howmanysmall/relay-syncd/src/internal/synccode"
)

// SyncResult is one append-only entry in a SyncLog.
type SyncResult struct {
	Start       time.Time
	End         time.Time
	Major       synccode.MajorOutcome
	Minor       synccode.MinorCode
	TargetID    string
	Scheduled   bool
}

// SyncLog is the append-only sequence of SyncResults for one sync
// profile.
type SyncLog struct {
	Results []SyncResult
}

// Append records a new result at the end of the log.
func (l *SyncLog) Append(r SyncResult) {
	l.Results = append(l.Results, r)
}

// Last returns the most recent result, or the zero value and false if
// the log is empty.
func (l *SyncLog) Last() (SyncResult, bool) {
	if l == nil || len(l.Results) == 0 {
		return SyncResult{}, false
	}
	return l.Results[len(l.Results)-1], true
}
