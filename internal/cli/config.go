package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/confsched/internal/paths"
	"github.com/mesh-intelligence/confsched/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	dotEnvFile     = ".env"
	envPrefix      = "SCHEDULE"

	cfgKeyBackend      = "backend"
	cfgKeyDataDir      = "data_dir"
	cfgKeyBusyTimeout  = "busy_timeout_ms"
	cfgKeyJournalMode  = "journal_mode"
	cfgKeyLogLevel     = "log_level"
	cfgKeyLogFormat    = "log_format"
	cfgKeyLogCaller    = "log_caller"
	cfgKeyNotifyBuffer = "notify_buffer"
)

// configDefaults are applied below config.yaml and the environment.
var configDefaults = map[string]any{
	cfgKeyBackend:      types.BackendSQLite,
	cfgKeyBusyTimeout:  5000,
	cfgKeyJournalMode:  "wal",
	cfgKeyLogLevel:     "warn",
	cfgKeyLogFormat:    "console",
	cfgKeyLogCaller:    false,
	cfgKeyNotifyBuffer: 64,
}

// envKeys are bound to SCHEDULE_<KEY>. data_dir is absent: SCHEDULE_DATA_DIR
// ranks below config.yaml and is handled by paths.ResolveDataDir.
var envKeys = []string{
	cfgKeyBackend,
	cfgKeyBusyTimeout,
	cfgKeyJournalMode,
	cfgKeyLogLevel,
	cfgKeyLogFormat,
	cfgKeyLogCaller,
	cfgKeyNotifyBuffer,
}

// configFile holds the structure written to config.yaml by init.
type configFile struct {
	Backend  string `yaml:"backend"`
	DataDir  string `yaml:"data_dir,omitempty"`
	LogLevel string `yaml:"log_level,omitempty"`
}

// loadConfig reads config.yaml from configDir using Viper. A missing file is
// not an error.
func loadConfig(configDir string) (*viper.Viper, error) {
	v := viper.New()
	for k, val := range configDefaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(envPrefix)
	for _, k := range envKeys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("binding %s: %w", k, err)
		}
	}
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return v, nil
}

// loadDotEnv exports the variables of configDir/.env that are not already
// set in the environment.
func loadDotEnv(configDir string) error {
	path := filepath.Join(configDir, dotEnvFile)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// storeConfig assembles the store configuration from viper and the data
// directory precedence.
func (a *app) storeConfig() (types.Config, error) {
	var cfg types.Config
	if err := a.cfg.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", types.ErrInvalidConfig, err)
	}
	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, a.cfg.GetString(cfgKeyDataDir))
	if err != nil {
		return cfg, fmt.Errorf("resolving data dir: %w", err)
	}
	cfg.DataDir = dataDir
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// writeConfigIfMissing creates config.yaml if the file does not exist. If it
// already exists, the function returns nil.
func writeConfigIfMissing(path string, cfg configFile) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# schedule configuration. Keys may be overridden by SCHEDULE_<KEY>.\n")
	return true, os.WriteFile(path, append(header, data...), 0o644)
}
