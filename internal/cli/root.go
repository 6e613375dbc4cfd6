// Package cli implements the schedule command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/confsched/internal/fixtures"
	"github.com/mesh-intelligence/confsched/internal/logging"
	"github.com/mesh-intelligence/confsched/internal/paths"
	"github.com/mesh-intelligence/confsched/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// errUsage marks malformed command lines.
var errUsage = errors.New("usage")

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	logLevel  string
}

// app is the state shared by the commands of one tree. setup fills configDir
// and cfg before any RunE runs.
type app struct {
	flags     rootFlags
	configDir string
	cfg       *viper.Viper
}

// NewRootCmd creates the top-level "schedule" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "schedule",
		Short: "Query and maintain a local conference schedule store",
		Long: `schedule reads and writes the conference store through resource identifiers.
An identifier is either the full form
  content://com.meshintelligence.confsched/sessions/<id>?filter=...
or a bare path such as sessions/<id>.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", errUsage, err)
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: $XDG_CONFIG_HOME/confsched)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $XDG_DATA_HOME/confsched)")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")

	root.AddCommand(
		newVersionCmd(),
		a.newInitCmd(),
		a.newTypeCmd(),
		a.newQueryCmd(),
		a.newInsertCmd(),
		a.newUpdateCmd(),
		a.newDeleteCmd(),
		a.newReindexCmd(),
		a.newLoadCmd(),
		a.newExportCmd(),
		a.newStatsCmd(),
	)
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command line and returns its exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(logging.ContextWithNewCorrelationID(ctx)); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitCode(err)
	}
	return exitSuccess
}

func exitCode(err error) int {
	for _, target := range []error{
		errUsage,
		types.ErrUnsupportedResource,
		types.ErrInvalidArgs,
		types.ErrSelectionArgs,
		types.ErrBackendEmpty,
		types.ErrBackendUnknown,
		types.ErrInvalidConfig,
		fixtures.ErrNoFixtures,
	} {
		if errors.Is(err, target) {
			return exitUserError
		}
	}
	return exitSysError
}

// setup resolves the config directory, loads configuration and configures
// logging.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	switch cmd.Name() {
	case "version", "help":
		return nil
	}

	dir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolving config dir: %w", err)
	}
	if err := loadDotEnv(dir); err != nil {
		return err
	}
	v, err := loadConfig(dir)
	if err != nil {
		return err
	}
	if a.flags.logLevel != "" {
		v.Set(cfgKeyLogLevel, a.flags.logLevel)
	}
	logging.Init(logging.Config{
		Level:  v.GetString(cfgKeyLogLevel),
		Format: v.GetString(cfgKeyLogFormat),
		Caller: v.GetBool(cfgKeyLogCaller),
		Output: cmd.ErrOrStderr(),
	})

	a.configDir = dir
	a.cfg = v
	logging.Ctx(cmd.Context()).Debug().Str("config_dir", dir).Str("command", cmd.Name()).Msg("configured")
	return nil
}

// exactArgs is cobra.ExactArgs with the error marked as a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		return nil
	}
}
