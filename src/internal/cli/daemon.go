package cli

import (
	"log/slog"

	"github.com/howmanysmall/relay-syncd/src/internal/config"
	"github.com/howmanysmall/relay-syncd/src/internal/daemonlog"
	"github.com/howmanysmall/relay-syncd/src/internal/plugin"
	"github.com/howmanysmall/relay-syncd/src/internal/plugin/subprocess"
	"github.com/howmanysmall/relay-syncd/src/internal/profile"
	"github.com/howmanysmall/relay-syncd/src/internal/scheduler"
	"github.com/howmanysmall/relay-syncd/src/internal/session"
	"github.com/howmanysmall/relay-syncd/src/internal/storage"
	"github.com/howmanysmall/relay-syncd/src/internal/transport"
)

// loadSettings resolves the daemon's own Settings, applying any
// command-line overrides for the profile store roots on top of the
// file/defaults the Loader produces.
func loadSettings() (*config.Settings, error) {
	loader := config.NewLoader()
	settings, err := loader.Load(configFile)
	if err != nil {
		return nil, err
	}
	if primaryRoot != "" {
		settings.Paths.PrimaryRoot = primaryRoot
	}
	if secondaryRoot != "" {
		settings.Paths.SecondaryRoot = secondaryRoot
	}
	return settings, nil
}

// newLogger builds the daemon's root logger per the verbose/json-logs
// persistent flags.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return daemonlog.New(daemonlog.Options{Level: level, JSON: jsonLogs})
}

// newStore builds a ProfileStore rooted at settings' overlay paths.
func newStore(settings *config.Settings, events chan<- profile.Event) *profile.Store {
	return profile.New(profile.Paths{
		Primary:   settings.Paths.PrimaryRoot,
		Secondary: settings.Paths.SecondaryRoot,
	}, events)
}

// newSessionFactory builds a scheduler.SessionFactory that launches
// each profile's plugin out-of-process, per the worker executable's CLI
// contract (plugin name, profile name, plugin library path). A profile
// without a "worker-path" key gets a nil Runner, which the Session maps
// to an INTERNAL_ERROR at start — there is no in-process plugin
// registry here, since plugin implementations themselves are outside
// this daemon's scope.
func newSessionFactory(tracker *transport.Tracker, booker *storage.Booker, logger *slog.Logger) scheduler.SessionFactory {
	return func(sp *profile.SyncProfile, storages []string, scheduled bool, onFinished func(session.Result)) *session.Session {
		var runner plugin.Runner
		if workerPath := sp.Key("worker-path"); workerPath != "" {
			runner = subprocess.NewRunner(workerPath, sp.Key("plugin-name"), sp.Name, sp.Key("plugin-lib"))
		}

		needsTransport := sp.DestinationType == profile.DestinationOnline && !scheduled

		return session.New(session.Options{
			ProfileName:       sp.Name,
			RequiredTransport: transport.Kind(sp.RequiredTransport()),
			NeedsTransport:    needsTransport,
			Scheduled:         scheduled,
			Storages:          storages,
			Runner:            runner,
			Tracker:           tracker,
			Booker:            booker,
			OnFinished: func(r session.Result) {
				logger.Info("sync finished", "profile", r.Profile, "status", r.Status, "minor", r.Minor, "scheduled", r.Scheduled)
				onFinished(r)
			},
		})
	}
}
