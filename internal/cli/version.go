package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/confsched/internal/sqlite"
)

const modulePath = "github.com/mesh-intelligence/confsched"

// Version is the release of the schedule tool. Overridden at link time by
// the mage Build target.
var Version = "0.1.0"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the schedule version",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "schedule v%s\nmodule: %s\nschema: %d\n", Version, modulePath, sqlite.CurrentVersion)
			return nil
		},
	}
}
