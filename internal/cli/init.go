package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/confsched/internal/logging"
	"github.com/mesh-intelligence/confsched/pkg/sqlite"
)

func (a *app) newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize schedule storage",
		Long:  "Create the configuration and data directories, write config.yaml if missing, then create or upgrade the store.",
		Args:  exactArgs(0),
		RunE:  a.runInit,
	}
}

func (a *app) runInit(cmd *cobra.Command, _ []string) error {
	cfg, err := a.storeConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(a.configDir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	configPath := filepath.Join(a.configDir, configFileExt)
	written, err := writeConfigIfMissing(configPath, configFile{
		Backend:  cfg.Backend,
		DataDir:  cfg.DataDir,
		LogLevel: a.cfg.GetString(cfgKeyLogLevel),
	})
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	store := sqlite.NewBackend()
	if err := store.Attach(cfg); err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	version, err := store.Version(cmd.Context())
	if derr := store.Detach(); derr != nil && err == nil {
		err = derr
	}
	if err != nil {
		return fmt.Errorf("finalizing storage: %w", err)
	}

	logging.Ctx(cmd.Context()).Info().Str("config", configPath).Bool("config_written", written).
		Str("data_dir", cfg.DataDir).Int("schema_version", version).Msg("initialized")
	if a.flags.jsonMode {
		return writeJSON(cmd.OutOrStdout(), map[string]any{
			"config":         configPath,
			"data_dir":       cfg.DataDir,
			"schema_version": version,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Schedule store initialized in %s (schema %d)\n", cfg.DataDir, version)
	return nil
}
