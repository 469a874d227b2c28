package profile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce is how long Watch waits after the last event for a given
// path before treating it as settled.
const watchDebounce = 100 * time.Millisecond

var watchedTypes = []Type{TypeSync, TypeService, TypeStorage, TypeClient, TypeServer}

// Watch monitors both profile roots for on-disk changes and emits an Event
// on the store's events channel for each settled change, debouncing raw
// fsnotify events. It runs until ctx is cancelled, at which point the
// watcher is closed and Watch returns.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("profile: create watcher: %w", err)
	}
	defer watcher.Close()

	for _, root := range []string{s.paths.Primary, s.paths.Secondary} {
		for _, typ := range watchedTypes {
			dir := s.typeDir(root, typ)
			if root == s.paths.Primary {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("profile: create %s: %w", dir, err)
				}
			} else if _, err := os.Stat(dir); err != nil {
				continue
			}
			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("profile: watch %s: %w", dir, err)
			}
		}
	}

	debouncer := &watchDebouncer{pending: make(map[string]*time.Timer)}
	defer debouncer.stopAll()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			s.handleWatchEvent(debouncer, event)

		case _, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
		}
	}
}

func (s *Store) handleWatchEvent(debouncer *watchDebouncer, event fsnotify.Event) {
	name, typ, ok := s.classifyWatchPath(event.Name)
	if !ok {
		return
	}

	debouncer.debounce(event.Name, func() {
		kind := EventModified
		if event.Op&fsnotify.Remove == fsnotify.Remove || event.Op&fsnotify.Rename == fsnotify.Rename {
			kind = EventRemoved
		} else if event.Op&fsnotify.Create == fsnotify.Create {
			kind = EventAdded
		}

		var serialized []byte
		if kind != EventRemoved {
			if p, err := s.Load(name, typ); err == nil && p != nil {
				if data, err := marshalProfile(p, nil); err == nil {
					serialized = data
				}
			}
		}

		s.emit(Event{Name: name, Kind: kind, Serialized: serialized})
	})
}

// classifyWatchPath maps a raw fsnotify path back to the (name, type) it
// belongs to, ignoring anything that isn't a profile document.
func (s *Store) classifyWatchPath(path string) (name string, typ Type, ok bool) {
	if filepath.Ext(path) != fileExt {
		return "", "", false
	}
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, fileExt)
	parent := filepath.Base(filepath.Dir(path))

	for _, t := range watchedTypes {
		if parent == string(t) {
			return base, t, true
		}
	}
	return "", "", false
}

type watchDebouncer struct {
	mu      sync.Mutex
	pending map[string]*time.Timer
}

func (d *watchDebouncer) debounce(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if timer, exists := d.pending[key]; exists {
		timer.Stop()
	}
	d.pending[key] = time.AfterFunc(watchDebounce, func() {
		d.mu.Lock()
		delete(d.pending, key)
		d.mu.Unlock()
		fn()
	})
}

func (d *watchDebouncer) stopAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range d.pending {
		t.Stop()
	}
	d.pending = make(map[string]*time.Timer)
}
