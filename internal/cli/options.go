// Package cli — options.go implements the "emacsup options" command.
//
// options prints the merged configure option set for a given override
// string, including the Wayland/GTK augmentation as it would apply on
// this machine. It exists so the merge result can be inspected without
// reading build output.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"emacsup/internal/configure"
)

// NewOptionsCommand creates the "options" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewOptionsCommand() *cobra.Command {
	var overrides string

	cmd := &cobra.Command{
		Use:   "options",
		Short: "Show the merged configure option set",
		Long: `Show the configure options a run would pass to the build, after merging
the defaults with the given overrides.

Overrides use the configure forms: --with-<feature>[=<value>] keeps or
replaces a feature, --without-<feature> removes it. Anything else is
passed through to configure unchanged.

Examples:
  emacsup options
  emacsup options --options --without-xwidgets
  emacsup options --options --with-x-toolkit=lucid,--with-imagemagick`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptions(overrides)
		},
	}

	cmd.Flags().StringVar(&overrides, "options", "", "Comma-separated configure option overrides")

	return cmd
}

// runOptions is the main logic function for the options command.
func runOptions(overrides string) error {
	parsed := configure.ParseList(overrides)
	merged := configure.Merge(configure.Defaults(), parsed)
	merged = configure.AugmentForWayland(merged, parsed, os.Getenv)

	rendered := configure.Strings(merged)

	if IsJSONOutput() {
		data, _ := json.MarshalIndent(map[string]interface{}{
			"configureOptions": rendered,
		}, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	for _, opt := range rendered {
		fmt.Println(opt)
	}
	return nil
}
