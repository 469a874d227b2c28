package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/howmanysmall/relay-syncd/src/internal/display"
	"github.com/howmanysmall/relay-syncd/src/internal/profile"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and expand every profile, reporting parse and expansion errors",
	Long: `Validate lists every profile of every type in both roots, loads it and
expands its sub-profile references, and reports each profile that fails
to parse or to expand. A sub-profile reference with no backing profile
file is skipped by expansion and is not reported.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		store := newStore(settings, nil)
		renderer := display.NewStatusRenderer(true, false)

		types := []profile.Type{
			profile.TypeSync,
			profile.TypeService,
			profile.TypeStorage,
			profile.TypeClient,
			profile.TypeServer,
		}

		var failures int
		var checked int

		for _, typ := range types {
			names, err := store.List(typ)
			if err != nil {
				renderer.PrintError(fmt.Sprintf("list %s profiles", typ), err.Error())
				failures++
				continue
			}

			for _, name := range names {
				checked++
				p, err := store.Load(name, typ)
				if err != nil {
					renderer.PrintError(fmt.Sprintf("%s/%s: load failed", typ, name), err.Error())
					failures++
					continue
				}
				if p == nil {
					renderer.PrintError(fmt.Sprintf("%s/%s: parse failed", typ, name))
					failures++
					continue
				}
				if err := store.Expand(p); err != nil {
					renderer.PrintError(fmt.Sprintf("%s/%s: expand failed", typ, name), err.Error())
					failures++
					continue
				}
				renderer.PrintSuccess(fmt.Sprintf("%s/%s ok", typ, name))
			}
		}

		if failures > 0 {
			return fmt.Errorf("validate: %d of %d profiles failed", failures, checked)
		}
		renderer.PrintInfo(fmt.Sprintf("validated %d profiles", checked))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
