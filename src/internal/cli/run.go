package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/howmanysmall/relay-syncd/src/internal/bus"
	"github.com/howmanysmall/relay-syncd/src/internal/cache"
	"github.com/howmanysmall/relay-syncd/src/internal/plugin/inprocess"
	"github.com/howmanysmall/relay-syncd/src/internal/profile"
	"github.com/howmanysmall/relay-syncd/src/internal/scheduler"
	"github.com/howmanysmall/relay-syncd/src/internal/storage"
	"github.com/howmanysmall/relay-syncd/src/internal/transport"
)

var maxWorkers int64

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the sync daemon event loop",
	Long: `Run provisions the daemon's cache directory, loads the profile store
and transport tracker, and drives the scheduler's single-threaded event
loop until interrupted with SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		settings, err := loadSettings()
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
		logger := newLogger()

		if err := cache.Ensure(settings.Paths.CacheDir, logger); err != nil {
			return fmt.Errorf("provision cache directory: %w", err)
		}

		switch {
		case maxWorkers > 0:
			inprocess.SetMaxWorkers(maxWorkers)
		case settings.Daemon.MaxInProcessWorkers > 0:
			inprocess.SetMaxWorkers(settings.Daemon.MaxInProcessWorkers)
		}

		profileEvents := make(chan profile.Event, 32)
		store := newStore(settings, profileEvents)

		transportEvents := make(chan transport.Event, 32)
		tracker := transport.New(transportEvents)

		booker := storage.New()
		sched := scheduler.New(store, tracker, booker, newSessionFactory(tracker, booker, logger))

		loop := bus.New(bus.Options{
			Store:           store,
			Tracker:         tracker,
			Scheduler:       sched,
			Logger:          logger,
			ProfileEvents:   profileEvents,
			TransportEvents: transportEvents,
			TickInterval:    settings.Daemon.TransportPoll,
		})

		base := cmd.Context()
		if base == nil {
			base = context.Background()
		}
		ctx, stop := signal.NotifyContext(base, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		go func() {
			if err := transport.Poll(ctx, tracker, settings.Daemon.TransportPoll); err != nil {
				logger.Warn("transport poller stopped", "error", err)
			}
		}()
		go func() {
			if err := store.Watch(ctx); err != nil {
				logger.Warn("profile watcher stopped", "error", err)
			}
		}()

		logger.Info("syncd starting", "primaryRoot", settings.Paths.PrimaryRoot, "secondaryRoot", settings.Paths.SecondaryRoot)
		loop.Run(ctx)
		logger.Info("syncd stopped")
		return nil
	},
}

func init() {
	runCmd.Flags().Int64Var(&maxWorkers, "max-workers", 0, "bound on concurrent in-process plugin workers (0 = use settings)")
	rootCmd.AddCommand(runCmd)
}
