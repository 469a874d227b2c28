package config

import "time"

// Settings is the daemon's own configuration, distinct from any sync
// profile: where the profile store lives, where the cache directory is
// provisioned, and the bounds the daemon applies to its own components.
type Settings struct {
	Version string        `json:"version" toml:"version"`
	Paths   PathsSettings `json:"paths" toml:"paths"`
	Daemon  DaemonSettings `json:"daemon" toml:"daemon"`
}

// PathsSettings locates the on-disk pieces of the profile store and the
// daemon's cache directory.
type PathsSettings struct {
	PrimaryRoot   string `json:"primaryRoot" toml:"primaryRoot"`
	SecondaryRoot string `json:"secondaryRoot" toml:"secondaryRoot"`
	CacheDir      string `json:"cacheDir" toml:"cacheDir"`
}

// DaemonSettings bounds the daemon's own runtime behavior.
type DaemonSettings struct {
	MaxInProcessWorkers int64         `json:"maxInProcessWorkers" toml:"maxInProcessWorkers"`
	TransportPoll        time.Duration `json:"transportPoll" toml:"transportPoll"`
	WatchDebounce        time.Duration `json:"watchDebounce" toml:"watchDebounce"`
	CacheGroup           string        `json:"cacheGroup" toml:"cacheGroup"`
}
