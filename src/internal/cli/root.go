// Package cli provides the daemon's own operator commands: starting the
// event loop, inspecting and editing sync profiles, validating the
// profile store, and printing a status snapshot. It stands in for the
// IPC/RPC surface a UI client would otherwise use.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	configFile    string
	verbose       bool
	jsonLogs      bool
	primaryRoot   string
	secondaryRoot string
)

var rootCmd = &cobra.Command{
	Use:   "syncd",
	Short: "Background sync orchestration daemon",
	Long: `syncd orchestrates data-exchange jobs ("sync sessions") between this
device and remote endpoints, described by declarative profiles on disk.
It decides when a profile should sync, whether the environment permits
it, how to acquire shared storage resources without conflict, and how
to recover from transient failures with bounded retries.

Examples:
  syncd run                                # start the daemon event loop
  syncd profile list sync                  # list sync profiles
  syncd profile show sync my-account       # show a profile's resolved keys
  syncd validate                           # check every profile parses and expands
  syncd status                             # print transport + sync-profile snapshot`,
}

// SetVersionInfo sets the version information for the CLI.
func SetVersionInfo(version, buildTime, commit string) {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(fmt.Sprintf(`syncd version %s
Build time: %s
Commit: %s
`, version, buildTime, commit))
}

// Execute runs the root command for the syncd CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "daemon settings file (searches relay-syncd.{toml,json,jsonc} by default)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose (debug-level) logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "emit structured JSON log lines instead of key=value text")
	rootCmd.PersistentFlags().StringVar(&primaryRoot, "primary-root", "", "override the primary (user-writable) profile root")
	rootCmd.PersistentFlags().StringVar(&secondaryRoot, "secondary-root", "", "override the secondary (read-only) profile root")
}
