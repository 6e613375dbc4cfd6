package cli

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/confsched/internal/fixtures"
)

func (a *app) newLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <dir>",
		Short: "Load conference data files into the store",
		Long: `Load reads one file per collection from dir and applies them in a single
transaction as the sync collaborator. Each collection is read from the
first of <name>.jsonl, <name>.yaml, <name>.yml or <name>.toml present:
blocks, tracks, rooms, speakers, sessions, sandbox, announcements,
mapmarkers, maptiles, session_speakers and session_tracks.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeFn, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			sum, err := fixtures.Load(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			return a.printSummary(cmd.OutOrStdout(), "loaded", sum)
		},
	}
}

func (a *app) newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <dir>",
		Short: "Export the store as JSONL files that load accepts",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeFn, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			sum, err := fixtures.Export(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			return a.printSummary(cmd.OutOrStdout(), "exported", sum)
		},
	}
}

func (a *app) printSummary(w io.Writer, verb string, sum fixtures.Summary) error {
	if a.flags.jsonMode {
		return writeJSON(w, map[string]any{
			"records": sum.Records,
			"skipped": sum.Skipped,
			"total":   sum.Total(),
		})
	}
	names := make([]string, 0, len(sum.Records))
	for name := range sum.Records {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(w, "%-18s %d\n", name, sum.Records[name])
	}
	fmt.Fprintf(w, "%s %d records", verb, sum.Total())
	if sum.Skipped > 0 {
		fmt.Fprintf(w, " (%d malformed lines skipped)", sum.Skipped)
	}
	fmt.Fprintln(w)
	return nil
}
