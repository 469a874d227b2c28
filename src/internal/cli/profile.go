package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/howmanysmall/relay-syncd/src/internal/profile"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Inspect and edit sync profiles",
}

var profileListCmd = &cobra.Command{
	Use:   "list <type>",
	Short: "List profile names of the given type (sync, service, storage, client, server)",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		store := newStore(settings, nil)

		names, err := store.List(profile.Type(args[0]))
		if err != nil {
			return err
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show <type> <name>",
	Short: "Print a profile's expanded keys and sub-profiles",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		store := newStore(settings, nil)

		typ := profile.Type(args[0])
		name := args[1]

		if typ == profile.TypeSync {
			sp, err := store.LoadSyncProfile(name)
			if err != nil {
				return err
			}
			if sp == nil {
				return fmt.Errorf("profile: no sync profile named %q", name)
			}
			if err := store.Expand(sp.Profile); err != nil {
				return fmt.Errorf("profile: expand %q: %w", name, err)
			}
			printSyncProfile(sp)
			return nil
		}

		p, err := store.Load(name, typ)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("profile: no %s profile named %q", typ, name)
		}
		if err := store.Expand(p); err != nil {
			return fmt.Errorf("profile: expand %q: %w", name, err)
		}
		printProfile(p, 0)
		return nil
	},
}

var profileSetCmd = &cobra.Command{
	Use:   "set <type> <name> <key=value>...",
	Short: "Create or update a profile's scalar keys and save it",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(_ *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		store := newStore(settings, nil)

		typ := profile.Type(args[0])
		name := args[1]

		p, err := store.Load(name, typ)
		if err != nil {
			return err
		}
		if p == nil {
			p = &profile.Profile{Name: name, Type: typ, Enabled: true, Keys: map[string]string{}}
		}
		if p.Keys == nil {
			p.Keys = map[string]string{}
		}

		for _, kv := range args[2:] {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("profile: malformed key=value pair %q", kv)
			}
			p.Keys[k] = v
		}

		var sp *profile.SyncProfile
		if typ == profile.TypeSync {
			sp, _ = store.LoadSyncProfile(name)
		}

		return store.Save(p, sp)
	},
}

var profileRemoveCmd = &cobra.Command{
	Use:   "remove <type> <name>",
	Short: "Remove a profile and its log, refusing protected profiles",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		store := newStore(settings, nil)
		return store.Remove(args[1], profile.Type(args[0]))
	},
}

var profileRenameCmd = &cobra.Command{
	Use:   "rename <type> <old> <new>",
	Short: "Rename a profile and its log",
	Args:  cobra.ExactArgs(3),
	RunE: func(_ *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		store := newStore(settings, nil)
		return store.Rename(args[1], args[2], profile.Type(args[0]))
	},
}

func printProfile(p *profile.Profile, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Printf("%s%s (%s) enabled=%t protected=%t hidden=%t\n", indent, p.Name, p.Type, p.Enabled, p.Protected, p.Hidden)

	keys := make([]string, 0, len(p.Keys))
	for k := range p.Keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%s  %s = %s\n", indent, k, p.Keys[k])
	}

	for _, sub := range p.SubProfiles {
		printProfile(sub, depth+1)
	}
}

func printSyncProfile(sp *profile.SyncProfile) {
	printProfile(sp.Profile, 0)
	fmt.Printf("  destination: %s\n", sp.DestinationType)
	fmt.Printf("  required transport: %s\n", sp.RequiredTransport())
	fmt.Printf("  storages: %s\n", strings.Join(sp.StorageNames(), ", "))
	fmt.Printf("  schedule enabled: %t\n", sp.Schedule.Enabled)

	if sp.Log != nil {
		if last, ok := sp.Log.Last(); ok {
			fmt.Printf("  last result: %s (%s) at %s\n", last.Major, last.Minor, last.End.Format(time.RFC3339))
		}
	}
}

func init() {
	profileCmd.AddCommand(profileListCmd, profileShowCmd, profileSetCmd, profileRemoveCmd, profileRenameCmd)
	rootCmd.AddCommand(profileCmd)
}
