// Package cache provisions the daemon's cache directory: creating it on
// startup and chowning it to the invoking user and a same-named group,
// per the daemon's environment setup.
package cache

import (
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"strconv"

	"golang.org/x/sys/unix"
)

// Ensure creates dir (and any missing parents) if absent, then chowns
// it to the current user and to a group of the same name as the user.
// A missing group is tolerated and logged rather than treated as a
// failure, tolerating that case explicitly.
func Ensure(dir string, logger *slog.Logger) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("cache: create %s: %w", dir, err)
	}

	u, err := user.Current()
	if err != nil {
		return fmt.Errorf("cache: look up current user: %w", err)
	}

	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return fmt.Errorf("cache: parse uid %q: %w", u.Uid, err)
	}

	gid := -1
	if g, err := user.LookupGroup(u.Username); err == nil {
		if parsed, err := strconv.Atoi(g.Gid); err == nil {
			gid = parsed
		}
	} else if logger != nil {
		logger.Warn("cache: no group matching username, leaving group unchanged", "user", u.Username, "error", err)
	}

	if err := unix.Chown(dir, uid, gid); err != nil {
		return fmt.Errorf("cache: chown %s: %w", dir, err)
	}

	return nil
}
