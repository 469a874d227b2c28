package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Paths locates the two profile roots: primary is user-writable, secondary
// is the read-only system default overlay. Passed in explicitly rather
// than read from process-wide globals, per the dependency-injection
// redesign note on cycle-safe expansion.
type Paths struct {
	Primary   string
	Secondary string
}

func defaultPaths() Paths {
	return Paths{
		Primary:   filepath.Join(os.Getenv("HOME"), ".local", "share", "system", "privileged", "msyncd"),
		Secondary: "/etc/buteo/profiles",
	}
}

const (
	fileExt = ".xml"
	logExt  = ".log.xml"
	logDir  = "sync/logs"
)

// EventKind classifies a profile_changed notification.
type EventKind int

// Event kinds.
const (
	EventAdded EventKind = iota
	EventModified
	EventRemoved
	EventLogsModified
)

// Event is emitted after every successful ProfileStore mutation.
type Event struct {
	Name       string
	Kind       EventKind
	Serialized []byte
}

// Store is the ProfileStore: it parses/writes profile documents,
// resolves the primary/secondary overlay, expands sub-profile
// references, and performs crash-safe saves.
type Store struct {
	paths  Paths
	events chan<- Event
}

// New creates a Store rooted at paths. events receives a notification
// after every successful mutation; pass nil to discard them.
func New(paths Paths, events chan<- Event) *Store {
	if paths.Primary == "" && paths.Secondary == "" {
		paths = defaultPaths()
	}
	return &Store{paths: paths, events: events}
}

func (s *Store) emit(ev Event) {
	if s.events == nil {
		return
	}
	select {
	case s.events <- ev:
	default:
	}
}

func (s *Store) typeDir(root string, typ Type) string {
	return filepath.Join(root, string(typ))
}

func (s *Store) profilePath(root string, name string, typ Type) string {
	return filepath.Join(s.typeDir(root, typ), name+fileExt)
}

// findProfileFile resolves the overlay: try primary, then secondary; if
// neither exists, the nominal (missing) path is the primary one.
func (s *Store) findProfileFile(name string, typ Type) string {
	primary := s.profilePath(s.paths.Primary, name, typ)
	if _, err := os.Stat(primary); err == nil {
		return primary
	}
	secondary := s.profilePath(s.paths.Secondary, name, typ)
	if _, err := os.Stat(secondary); err == nil {
		return secondary
	}
	return primary
}

// reconcileBackup implements the crash-safe backup dance: if a .bak
// sibling exists, parse it; if valid, it replaces the primary and the
// backup is removed; if invalid, the backup alone is removed, leaving
// the primary untouched.
func (s *Store) reconcileBackup(path string) {
	backupPath := path + ".bak"
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return
	}

	if _, err := unmarshalProfile(data); err == nil {
		_ = os.MkdirAll(filepath.Dir(path), 0o755)
		_ = os.WriteFile(path, data, 0o644)
	}
	_ = os.Remove(backupPath)
}

// Load resolves name/typ through the overlay, reconciles any pending
// backup, and parses the result. It returns (nil, nil) if no profile
// exists; parse failure is also reported as (nil, nil) — logged by the
// caller via the returned error's absence, per the "return
// absent and leave the filesystem untouched".
func (s *Store) Load(name string, typ Type) (*Profile, error) {
	path := s.findProfileFile(name, typ)
	s.reconcileBackup(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("profile: read %s: %w", path, err)
	}

	p, err := unmarshalProfile(data)
	if err != nil {
		return nil, nil
	}
	return p, nil
}

// LoadSyncProfile loads name as a sync profile, additionally extracting
// the destination type, schedule and retry intervals.
func (s *Store) LoadSyncProfile(name string) (*SyncProfile, error) {
	path := s.findProfileFile(name, TypeSync)
	s.reconcileBackup(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("profile: read %s: %w", path, err)
	}

	p, err := unmarshalProfile(data)
	if err != nil {
		return nil, nil
	}

	destType, intervals, schedule, err := syncMetaFromXML(data)
	if err != nil {
		return nil, nil
	}

	syncLog, _ := s.LoadLog(name)

	return &SyncProfile{
		Profile:         p,
		DestinationType: destType,
		RetryIntervals:  intervals,
		Schedule:        schedule,
		Log:             syncLog,
	}, nil
}

// List returns the union of basenames under typ in both roots, primary
// winning on name collision (meaning: duplicates are deduplicated, the
// overlay resolution itself happens in Load). Ordering is not
// guaranteed.
func (s *Store) List(typ Type) ([]string, error) {
	seen := make(map[string]bool)
	var names []string

	for _, root := range []string{s.paths.Primary, s.paths.Secondary} {
		entries, err := os.ReadDir(s.typeDir(root, typ))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("profile: list %s: %w", root, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			name := e.Name()
			if filepath.Ext(name) != fileExt {
				continue
			}
			base := name[:len(name)-len(fileExt)]
			if !seen[base] {
				seen[base] = true
				names = append(names, base)
			}
		}
	}

	sort.Strings(names)
	return names, nil
}

// Expand iteratively resolves p's unresolved sub-profile references by
// loading each referenced (name, type) and merging its keys and
// sub-profiles into the parent: the parent's explicit keys override the
// sub-profile's, the sub-profile supplies whatever the parent doesn't
// set. Passes repeat until the sub-profile count stops growing — the
// cycle-safe fixpoint — using an explicit
// already-loaded set rather than relying purely on the count, per the
// spec's own implementation note.
func (s *Store) Expand(p *Profile) error {
	if p.expanded {
		return nil
	}

	loaded := map[[2]string]bool{{p.Name, string(p.Type)}: true}

	for {
		before := countAll(p)

		if err := s.expandPass(p, loaded); err != nil {
			return err
		}

		after := countAll(p)
		if after == before {
			break
		}
	}

	markExpanded(p)
	return nil
}

func (s *Store) expandPass(p *Profile, loaded map[[2]string]bool) error {
	for _, sub := range p.SubProfiles {
		key := [2]string{sub.Name, string(sub.Type)}
		if loaded[key] {
			continue
		}
		loaded[key] = true

		backing, err := s.Load(sub.Name, sub.Type)
		if err != nil {
			return err
		}
		if backing == nil {
			continue
		}

		mergeInto(sub, backing)

		if err := s.expandPass(sub, loaded); err != nil {
			return err
		}
	}
	return nil
}

// mergeInto merges backing's keys and sub-profiles into target: target's
// explicit keys win, backing supplies the rest.
func mergeInto(target, backing *Profile) {
	if target.Keys == nil {
		target.Keys = make(map[string]string)
	}
	for k, v := range backing.Keys {
		if _, set := target.Keys[k]; !set {
			target.Keys[k] = v
		}
	}
	target.SubProfiles = append(target.SubProfiles, backing.SubProfiles...)
}

func countAll(p *Profile) int {
	total := len(p.SubProfiles)
	for _, sub := range p.SubProfiles {
		total += countAll(sub)
	}
	return total
}

func markExpanded(p *Profile) {
	p.expanded = true
	for _, sub := range p.SubProfiles {
		markExpanded(sub)
	}
}

// Save renders p to its canonical form and writes it atomically: any
// existing file is first copied to a .bak sibling, the new content is
// written, and the backup is removed only after the write succeeds. A
// crash between backup creation and write completion is recovered on
// the next Load. sp may be nil for non-sync profiles.
func (s *Store) Save(p *Profile, sp *SyncProfile) error {
	data, err := marshalProfile(p, sp)
	if err != nil {
		return err
	}

	dir := s.typeDir(s.paths.Primary, p.Type)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("profile: create dir %s: %w", dir, err)
	}

	target := s.profilePath(s.paths.Primary, p.Name, p.Type)
	backupPath := target + ".bak"

	kind := EventAdded
	if _, err := os.Stat(target); err == nil {
		kind = EventModified

		existing, rerr := os.ReadFile(target)
		if rerr != nil {
			return fmt.Errorf("profile: read existing %s: %w", target, rerr)
		}
		if werr := os.WriteFile(backupPath, existing, 0o644); werr != nil {
			return fmt.Errorf("profile: backup %s: %w", target, werr)
		}
	}

	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("profile: write %s: %w", target, err)
	}
	_ = os.Remove(backupPath)

	s.emit(Event{Name: p.Name, Kind: kind, Serialized: data})
	return nil
}

// Remove refuses if p is protected; otherwise it deletes the profile
// file and its log file, tolerating a missing log.
func (s *Store) Remove(name string, typ Type) error {
	existing, err := s.Load(name, typ)
	if err != nil {
		return err
	}
	if existing != nil && existing.Protected {
		return fmt.Errorf("profile: %s/%s is protected", typ, name)
	}

	target := s.profilePath(s.paths.Primary, name, typ)
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("profile: remove %s: %w", target, err)
	}

	logPath := s.logPath(name)
	if err := os.Remove(logPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("profile: remove log %s: %w", logPath, err)
	}

	s.emit(Event{Name: name, Kind: EventRemoved})
	return nil
}

// Rename renames the profile file and, on success, its log file; a log
// rename failure rolls back the profile rename.
func (s *Store) Rename(oldName, newName string, typ Type) error {
	oldPath := s.profilePath(s.paths.Primary, oldName, typ)
	newPath := s.profilePath(s.paths.Primary, newName, typ)

	if err := os.Rename(oldPath, newPath); err != nil {
		return fmt.Errorf("profile: rename %s: %w", oldPath, err)
	}

	oldLog, newLog := s.logPath(oldName), s.logPath(newName)
	if _, err := os.Stat(oldLog); err == nil {
		if err := os.Rename(oldLog, newLog); err != nil {
			_ = os.Rename(newPath, oldPath)
			return fmt.Errorf("profile: rename log %s: %w", oldLog, err)
		}
	}

	s.emit(Event{Name: newName, Kind: EventModified})
	return nil
}

func (s *Store) logPath(name string) string {
	return filepath.Join(s.paths.Primary, logDir, name+logExt)
}

// LoadLog reads the sync log for name, returning nil if it does not
// exist.
func (s *Store) LoadLog(name string) (*SyncLog, error) {
	data, err := os.ReadFile(s.logPath(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("profile: read log %s: %w", name, err)
	}
	return unmarshalLog(data)
}

// SaveLog writes log for name atomically (truncating any prior content),
// creating directories on demand.
func (s *Store) SaveLog(name string, log *SyncLog) error {
	dir := filepath.Join(s.paths.Primary, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("profile: create log dir: %w", err)
	}

	data, err := marshalLog(log)
	if err != nil {
		return err
	}

	if err := os.WriteFile(s.logPath(name), data, 0o644); err != nil {
		return fmt.Errorf("profile: write log %s: %w", name, err)
	}

	s.emit(Event{Name: name, Kind: EventLogsModified})
	return nil
}
