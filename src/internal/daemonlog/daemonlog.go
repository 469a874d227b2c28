// Package daemonlog is the daemon's structured logging setup: a thin
// log/slog wrapper standing in for the plain fmt.Printf calls a
// one-shot CLI can get away with. A background daemon has no user
// watching stdout, so every line carries a level and structured fields
// instead of a hand-formatted sentence.
package daemonlog

import (
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Options configures New.
type Options struct {
	// Writer defaults to os.Stderr.
	Writer io.Writer
	// Level defaults to slog.LevelInfo.
	Level slog.Leveler
	// JSON switches to a structured JSON handler, for when the daemon's
	// output is consumed by another process rather than a terminal.
	JSON bool
}

// New builds the daemon's root logger. In JSON mode it renders one JSON
// object per line; otherwise it renders slog key=value text lines. When
// the writer is a terminal it is wrapped by go-colorable (a Windows
// console shim); the text handler itself emits no color codes.
func New(opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	level := opts.Level
	if level == nil {
		level = slog.LevelInfo
	}

	if opts.JSON {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}

	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		w = colorable.NewColorable(f)
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// ForProfile returns a logger scoped to one sync profile, so every
// line emitted while handling it carries the profile name without
// every call site repeating slog.String("profile", name).
func ForProfile(logger *slog.Logger, profileName string) *slog.Logger {
	return logger.With(slog.String("profile", profileName))
}
