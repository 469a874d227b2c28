// Package plugin defines the PluginRunner capability shared by the
// in-process and out-of-process runner implementations, plus the
// error taxonomy both report through.
package plugin

import (
	"fmt"
	"time"

	"github.com/howmanysmall/relay-syncd/src/internal/synccode"
)

// Direction is a transfer direction reported in progress signals.
type Direction string

// Transfer directions.
const (
	DirectionUpload   Direction = "upload"
	DirectionDownload Direction = "download"
	DirectionTwoWay   Direction = "two-way"
)

// SignalKind tags the variant held by a Signal.
type SignalKind int

// Signal kinds emitted by a PluginRunner to its owning session.
const (
	SignalTransferProgress SignalKind = iota
	SignalStorageAcquired
	SignalProgressDetail
	SignalError
	SignalSuccess
	SignalDone
	SignalDestroyed
)

// Signal is one event a runner emits to its owning session. Which
// payload fields are meaningful depends on Kind.
type Signal struct {
	Kind SignalKind

	Profile         string
	Database        string
	Direction       Direction
	MIMEType        string
	CommittedCount  int64
	Code            string
	Message         string
	MinorCode       synccode.MinorCode
	PluginTransient bool // true if the failure is transient (eligible for scheduler retry)
}

// SyncResults is the snapshot a runner reports at or after completion.
type SyncResults struct {
	TargetID  string
	Major     synccode.MajorOutcome
	Minor     synccode.MinorCode
	Message   string
	Start     time.Time
	End       time.Time
}

// Runner is the capability a SyncSession drives, implemented by both
// the in-process and the out-of-process variants.
type Runner interface {
	// Start initializes and begins the sync, returning whether startup
	// succeeded. May only be called once.
	Start() (bool, error)
	// Abort requests immediate termination with a status hint. May be
	// called once.
	Abort(reason string)
	// Stop requests graceful termination.
	Stop()
	// Results returns the snapshot captured at or after completion.
	Results() SyncResults
	// Signals returns the channel of Signal events this runner emits.
	// Signals is exhausted when the channel is closed after a
	// SignalDestroyed.
	Signals() <-chan Signal
}

// ErrorCategory classifies where a RunnerError arose. Whether the
// failure is transient (worth retrying) is carried separately by
// RunnerError.Transient.
type ErrorCategory int

// Error categories.
const (
	ErrorCategoryUnknown ErrorCategory = iota
	ErrorCategoryStartup
	ErrorCategoryTransport
	ErrorCategoryProtocol
	ErrorCategoryPlugin
)

func (c ErrorCategory) String() string {
	switch c {
	case ErrorCategoryStartup:
		return "Startup"
	case ErrorCategoryTransport:
		return "Transport"
	case ErrorCategoryProtocol:
		return "Protocol"
	case ErrorCategoryPlugin:
		return "Plugin"
	default:
		return "Unknown"
	}
}

// RunnerError is a detailed error a runner implementation can return or
// wrap into a SignalError.
type RunnerError struct {
	Category  ErrorCategory
	Operation string
	Message   string
	Transient bool
	Underlying error
}

func (e *RunnerError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Operation, e.Message)
}

func (e *RunnerError) Unwrap() error {
	return e.Underlying
}
