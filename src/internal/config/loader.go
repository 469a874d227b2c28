// Package config loads the daemon's own settings file, distinct from
// the sync profiles the daemon schedules.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/gjson"
)

// Loader locates and parses a Settings file from one of several
// formats, falling back to a built-in default when none is found.
type Loader struct {
	searchPaths []string
}

// NewLoader creates a Loader with the default search paths.
func NewLoader() *Loader {
	return &Loader{
		searchPaths: []string{
			".",
			"~/.config/relay-syncd",
			"/etc/relay-syncd",
		},
	}
}

// Load loads Settings from configPath, or searches the default
// candidates if configPath is empty, or returns built-in defaults if
// nothing is found.
func (l *Loader) Load(configPath string) (*Settings, error) {
	if configPath == "" {
		configPath = l.findDefaultConfig()
	}

	if configPath == "" {
		return l.defaults(), nil
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", configPath, err)
	}

	ext := strings.ToLower(filepath.Ext(configPath))

	settings, err := l.parseByExtension(content, ext)
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", configPath, err)
	}

	l.applyDefaults(settings)

	return settings, nil
}

func (l *Loader) findDefaultConfig() string {
	candidates := []string{
		"relay-syncd.jsonc",
		"relay-syncd.json",
		"relay-syncd.toml",
		".relay-syncd.jsonc",
		".relay-syncd.json",
		".relay-syncd.toml",
	}

	for _, searchPath := range l.searchPaths {
		for _, candidate := range candidates {
			fullPath := filepath.Join(searchPath, candidate)
			if _, err := os.Stat(fullPath); err == nil {
				return fullPath
			}
		}
	}

	return ""
}

func (l *Loader) parseByExtension(content []byte, ext string) (*Settings, error) {
	var settings Settings

	switch ext {
	case ".json", ".jsonc":
		cleaned := l.stripJSONComments(string(content))
		if err := json.Unmarshal([]byte(cleaned), &settings); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(content, &settings); err != nil {
			return nil, fmt.Errorf("invalid TOML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	return &settings, nil
}

// stripJSONComments strips `//` line comments from JSONC input, falling
// back to the content untouched if it does not look like an object.
func (l *Loader) stripJSONComments(content string) string {
	result := gjson.Parse(content)
	if !result.IsObject() {
		return content
	}

	var cleaned map[string]any
	if err := json.Unmarshal([]byte(content), &cleaned); err == nil {
		out, _ := json.Marshal(cleaned)
		return string(out)
	}

	lines := strings.Split(content, "\n")
	var cleanedLines []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "//") {
			continue
		}
		if idx := strings.Index(line, "//"); idx != -1 {
			line = line[:idx]
		}
		cleanedLines = append(cleanedLines, line)
	}

	return strings.Join(cleanedLines, "\n")
}

func (l *Loader) applyDefaults(s *Settings) {
	defaults := l.defaults()

	if s.Version == "" {
		s.Version = defaults.Version
	}
	if s.Paths.PrimaryRoot == "" {
		s.Paths.PrimaryRoot = defaults.Paths.PrimaryRoot
	}
	if s.Paths.SecondaryRoot == "" {
		s.Paths.SecondaryRoot = defaults.Paths.SecondaryRoot
	}
	if s.Paths.CacheDir == "" {
		s.Paths.CacheDir = defaults.Paths.CacheDir
	}
	if s.Daemon.MaxInProcessWorkers <= 0 {
		s.Daemon.MaxInProcessWorkers = defaults.Daemon.MaxInProcessWorkers
	}
	if s.Daemon.TransportPoll <= 0 {
		s.Daemon.TransportPoll = defaults.Daemon.TransportPoll
	}
	if s.Daemon.WatchDebounce <= 0 {
		s.Daemon.WatchDebounce = defaults.Daemon.WatchDebounce
	}
}

// defaults mirror the daemon's conventional layout: the primary root under the user's
// generic data location, the secondary root at the fixed system path.
func (l *Loader) defaults() *Settings {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	return &Settings{
		Version: "1.0",
		Paths: PathsSettings{
			PrimaryRoot:   filepath.Join(home, ".local", "share", "system", "privileged", "msyncd"),
			SecondaryRoot: "/etc/buteo/profiles",
			CacheDir:      filepath.Join(home, ".cache", "msyncd"),
		},
		Daemon: DaemonSettings{
			MaxInProcessWorkers: 8,
			TransportPoll:       5 * time.Second,
			WatchDebounce:       100 * time.Millisecond,
		},
	}
}
