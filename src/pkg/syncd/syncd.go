// Package syncd provides public API types and functions for the syncd
// background sync-orchestration daemon.
package syncd

import (
	"github.com/howmanysmall/relay-syncd/src/internal/config"
	"github.com/howmanysmall/relay-syncd/src/internal/profile"
	"github.com/howmanysmall/relay-syncd/src/internal/synccode"
)

// Settings and related types are re-exported for public API access.
type (
	Settings = config.Settings
	// PathsSettings re-exports config.PathsSettings for public API consumers.
	PathsSettings = config.PathsSettings
	// DaemonSettings re-exports config.DaemonSettings for public API consumers.
	DaemonSettings = config.DaemonSettings
)

// ProfileType and related types are re-exported for public API access.
type (
	ProfileType = profile.Type
	// Profile re-exports profile.Profile for public API consumers.
	Profile = profile.Profile
	// SyncProfile re-exports profile.SyncProfile for public API consumers.
	SyncProfile = profile.SyncProfile
	// SyncResult re-exports profile.SyncResult for public API consumers.
	SyncResult = profile.SyncResult
)

// Status re-exports synccode.Status for public API consumers.
type Status = synccode.Status

// Re-export profile type constants.
const (
	TypeSync    = profile.TypeSync
	TypeService = profile.TypeService
	TypeStorage = profile.TypeStorage
	TypeClient  = profile.TypeClient
	TypeServer  = profile.TypeServer
)

// Re-export outer status constants.
const (
	StatusDone        = synccode.Done
	StatusAborted     = synccode.StatusAborted
	StatusNotPossible = synccode.NotPossible
	StatusError       = synccode.Error
)

// LoadSettings loads the daemon's settings file from the given path, or
// its default search locations when path is empty, filling unset fields
// with built-in defaults.
func LoadSettings(path string) (*Settings, error) {
	loader := config.NewLoader()
	return loader.Load(path)
}
