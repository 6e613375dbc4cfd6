package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/confsched/pkg/contract"
	"github.com/mesh-intelligence/confsched/pkg/sqlite"
	"github.com/mesh-intelligence/confsched/pkg/types"
)

// resolve parses a command-line identifier and renders its full form,
// adding the sync trust flag when asked.
func resolve(arg string, sync bool) (string, error) {
	res, err := contract.Parse(arg)
	if err != nil {
		return "", err
	}
	if sync {
		res = res.WithSync()
	}
	return res.String(), nil
}

func (a *app) newTypeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "type <uri>",
		Short: "Print the content type of an identifier",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// TypeOf never touches storage, so the store stays detached.
			mime, err := sqlite.NewBackend().TypeOf(args[0])
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"uri": args[0], "type": mime})
			}
			fmt.Fprintln(cmd.OutOrStdout(), mime)
			return nil
		},
	}
}

func (a *app) newQueryCmd() *cobra.Command {
	var (
		columns []string
		where   string
		rawArgs []string
		sort    string
	)
	cmd := &cobra.Command{
		Use:   "query <uri>",
		Short: "Query rows through the resource router",
		Long: `Query runs the read plan of an identifier and prints the rows.

Examples:
  schedule query blocks
  schedule query 'sessions/search/grpc' --columns session_id,session_title
  schedule query tracks/android/sessions --where 'session_type=?' --arg CODE_LAB
  schedule query 'sessions?filter=sessions_codelabs_only' --sort 'session_title ASC'`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uri, err := resolve(args[0], false)
			if err != nil {
				return err
			}
			store, closeFn, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			rs, err := store.Query(cmd.Context(), uri, types.Query{
				Projection: columns,
				Selection:  where,
				Args:       parseArgs(rawArgs),
				SortOrder:  sort,
			})
			if err != nil {
				return err
			}
			return a.printRows(cmd.OutOrStdout(), rs)
		},
	}
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "columns to project (default: all)")
	cmd.Flags().StringVar(&where, "where", "", "extra selection with ? placeholders")
	cmd.Flags().StringArrayVar(&rawArgs, "arg", nil, "selection argument (repeatable)")
	cmd.Flags().StringVar(&sort, "sort", "", "sort order (default: the collection's canonical order)")
	return cmd
}

func (a *app) newInsertCmd() *cobra.Command {
	var (
		set  []string
		sync bool
	)
	cmd := &cobra.Command{
		Use:   "insert <uri> --set key=value ...",
		Short: "Insert a row, replacing any row with the same key",
		Example: `  schedule insert rooms --set room_id=r1 --set room_name='Room One'
  schedule insert sessions/s1/speakers --set speaker_id=ada`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseAssignments(set)
			if err != nil {
				return err
			}
			if len(values) == 0 {
				return fmt.Errorf("%w: insert needs at least one --set", errUsage)
			}
			uri, err := resolve(args[0], sync)
			if err != nil {
				return err
			}
			store, closeFn, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			item, err := store.Insert(cmd.Context(), uri, values)
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"uri": item})
			}
			fmt.Fprintln(cmd.OutOrStdout(), item)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&set, "set", nil, "column assignment key=value (repeatable)")
	cmd.Flags().BoolVar(&sync, "sync", false, "mark the write as coming from the sync collaborator")
	return cmd
}

func (a *app) newUpdateCmd() *cobra.Command {
	var (
		set     []string
		where   string
		rawArgs []string
		sync    bool
	)
	cmd := &cobra.Command{
		Use:     "update <uri> --set key=value ...",
		Short:   "Update the rows selected by an identifier",
		Example: `  schedule update sessions/s1 --set session_starred=1`,
		Args:    exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseAssignments(set)
			if err != nil {
				return err
			}
			if len(values) == 0 {
				return fmt.Errorf("%w: update needs at least one --set", errUsage)
			}
			uri, err := resolve(args[0], sync)
			if err != nil {
				return err
			}
			store, closeFn, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			n, err := store.Update(cmd.Context(), uri, values, where, parseArgs(rawArgs)...)
			if err != nil {
				return err
			}
			return a.printCount(cmd, "updated", n)
		},
	}
	cmd.Flags().StringArrayVar(&set, "set", nil, "column assignment key=value (repeatable)")
	cmd.Flags().StringVar(&where, "where", "", "extra selection with ? placeholders")
	cmd.Flags().StringArrayVar(&rawArgs, "arg", nil, "selection argument (repeatable)")
	cmd.Flags().BoolVar(&sync, "sync", false, "mark the write as coming from the sync collaborator")
	return cmd
}

func (a *app) newDeleteCmd() *cobra.Command {
	var (
		where   string
		rawArgs []string
		sync    bool
	)
	cmd := &cobra.Command{
		Use:   "delete <uri>",
		Short: "Delete the rows selected by an identifier",
		Long: `Delete removes the rows selected by an identifier and the optional selection.
Deleting the root identifier "/" erases the whole store.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uri, err := resolve(args[0], sync)
			if err != nil {
				return err
			}
			store, closeFn, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			n, err := store.Delete(cmd.Context(), uri, where, parseArgs(rawArgs)...)
			if err != nil {
				return err
			}
			return a.printCount(cmd, "deleted", n)
		},
	}
	cmd.Flags().StringVar(&where, "where", "", "extra selection with ? placeholders")
	cmd.Flags().StringArrayVar(&rawArgs, "arg", nil, "selection argument (repeatable)")
	cmd.Flags().BoolVar(&sync, "sync", false, "mark the write as coming from the sync collaborator")
	return cmd
}

func (a *app) newReindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the session full-text index",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closeFn, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			if err := store.RebuildSearchIndex(cmd.Context()); err != nil {
				return err
			}
			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), map[string]bool{"rebuilt": true})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "search index rebuilt")
			return nil
		},
	}
}

func (a *app) printCount(cmd *cobra.Command, verb string, n int64) error {
	if a.flags.jsonMode {
		return writeJSON(cmd.OutOrStdout(), map[string]int64{verb: n})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d rows\n", verb, n)
	return nil
}
