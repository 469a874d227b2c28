package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/howmanysmall/relay-syncd/src/internal/display"
	"github.com/howmanysmall/relay-syncd/src/internal/profile"
	"github.com/howmanysmall/relay-syncd/src/internal/transport"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print a one-shot transport and sync-profile snapshot",
	RunE: func(_ *cobra.Command, _ []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		store := newStore(settings, nil)

		tracker := transport.New(nil)
		scanCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		_ = transport.Poll(scanCtx, tracker, time.Hour)
		cancel()

		colorEnabled := term.IsTerminal(int(os.Stdout.Fd()))

		fmt.Println(display.CreateBanner("syncd status", colorEnabled))

		renderer := display.NewStatusRenderer(colorEnabled, true)
		snapshot := tracker.Snapshot()
		for kind, available := range snapshot {
			if available {
				renderer.PrintSuccess(fmt.Sprintf("%s available", kind))
			} else {
				renderer.PrintWarning(fmt.Sprintf("%s unavailable", kind))
			}
		}

		fmt.Println(display.CreateSeparator(60, colorEnabled))

		names, err := store.List(profile.TypeSync)
		if err != nil {
			return fmt.Errorf("list sync profiles: %w", err)
		}

		for _, name := range names {
			sp, err := store.LoadSyncProfile(name)
			if err != nil || sp == nil {
				continue
			}

			if !sp.Enabled {
				renderer.PrintInfo(fmt.Sprintf("%s disabled", name))
				continue
			}

			required := sp.RequiredTransport()
			ready := tracker.IsAvailable(transport.Kind(required))

			detail := fmt.Sprintf("requires %s", required)
			if sp.Log != nil {
				if last, ok := sp.Log.Last(); ok {
					detail = fmt.Sprintf("%s, last %s (%s)", detail, last.Major, last.Minor)
				}
			}

			if ready {
				renderer.PrintInfo(fmt.Sprintf("%s ready", name), detail)
			} else {
				renderer.PrintWarning(fmt.Sprintf("%s awaiting transport", name), detail)
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
