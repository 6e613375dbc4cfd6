package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/confsched/internal/paths"
	"github.com/mesh-intelligence/confsched/pkg/types"
)

// unsetenv removes key for the duration of the test.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoadConfig_Defaults(t *testing.T) {
	for _, k := range envKeys {
		unsetenv(t, "SCHEDULE_"+strings.ToUpper(k))
	}
	v, err := loadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, types.BackendSQLite, v.GetString(cfgKeyBackend))
	assert.Equal(t, "wal", v.GetString(cfgKeyJournalMode))
	assert.Equal(t, 5000, v.GetInt(cfgKeyBusyTimeout))
	assert.Equal(t, "warn", v.GetString(cfgKeyLogLevel))
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileExt), []byte(
		"journal_mode: delete\nlog_level: debug\nbusy_timeout_ms: 100\n"), 0o644))
	unsetenv(t, "SCHEDULE_JOURNAL_MODE")
	t.Setenv("SCHEDULE_LOG_LEVEL", "error")

	v, err := loadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "delete", v.GetString(cfgKeyJournalMode))
	assert.Equal(t, "error", v.GetString(cfgKeyLogLevel), "environment beats config.yaml")
	assert.Equal(t, 100, v.GetInt(cfgKeyBusyTimeout))
}

func TestLoadConfig_Malformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileExt), []byte("backend: [\n"), 0o644))
	_, err := loadConfig(dir)
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, loadDotEnv(dir), "a missing .env is fine")

	unsetenv(t, "SCHEDULE_JOURNAL_MODE")
	t.Setenv("SCHEDULE_LOG_LEVEL", "info")
	require.NoError(t, os.WriteFile(filepath.Join(dir, dotEnvFile), []byte(
		"SCHEDULE_JOURNAL_MODE=truncate\nSCHEDULE_LOG_LEVEL=trace\n"), 0o644))

	require.NoError(t, loadDotEnv(dir))
	assert.Equal(t, "truncate", os.Getenv("SCHEDULE_JOURNAL_MODE"))
	assert.Equal(t, "info", os.Getenv("SCHEDULE_LOG_LEVEL"), ".env never overrides the environment")
}

func TestStoreConfig(t *testing.T) {
	unsetenv(t, "SCHEDULE_JOURNAL_MODE")
	unsetenv(t, "SCHEDULE_BACKEND")
	unsetenv(t, paths.EnvDataDir)
	tmp := t.TempDir()

	tests := []struct {
		name    string
		config  string
		flag    string
		wantDir string
		wantErr error
	}{
		{
			name:    "config data_dir",
			config:  "data_dir: " + filepath.Join(tmp, "cfg") + "\n",
			wantDir: filepath.Join(tmp, "cfg"),
		},
		{
			name:    "flag beats config",
			config:  "data_dir: " + filepath.Join(tmp, "cfg") + "\n",
			flag:    filepath.Join(tmp, "flag"),
			wantDir: filepath.Join(tmp, "flag"),
		},
		{
			name:    "unknown backend",
			config:  "backend: postgres\n",
			flag:    tmp,
			wantErr: types.ErrBackendUnknown,
		},
		{
			name:    "bad journal mode",
			config:  "journal_mode: sideways\n",
			flag:    tmp,
			wantErr: types.ErrInvalidConfig,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, configFileExt), []byte(tt.config), 0o644))
			v, err := loadConfig(dir)
			require.NoError(t, err)

			a := &app{flags: rootFlags{dataDir: tt.flag}, cfg: v}
			cfg, err := a.storeConfig()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDir, cfg.DataDir)
			assert.Equal(t, "wal", cfg.JournalMode)
		})
	}
}

func TestWriteConfigIfMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), configFileExt)
	written, err := writeConfigIfMissing(path, configFile{Backend: types.BackendSQLite, DataDir: "/srv/schedule"})
	require.NoError(t, err)
	assert.True(t, written)

	v, err := loadConfig(filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, "/srv/schedule", v.GetString(cfgKeyDataDir))

	written, err = writeConfigIfMissing(path, configFile{Backend: "other"})
	require.NoError(t, err)
	assert.False(t, written)
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"42", int64(42)},
		{"-7", int64(-7)},
		{"1.5", 1.5},
		{"true", true},
		{"null", nil},
		{"Room One", "Room One"},
		{"007", "007"},
		{`"quoted"`, "quoted"},
		{`{"kind":"post"}`, map[string]any{"kind": "post"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseValue(tt.in))
		})
	}
}

func TestParseAssignments(t *testing.T) {
	values, err := parseAssignments([]string{"room_id=r1", "room_name=a=b", "room_floor="})
	require.NoError(t, err)
	assert.Equal(t, types.Values{"room_id": "r1", "room_name": "a=b", "room_floor": ""}, values)

	_, err = parseAssignments([]string{"=x"})
	assert.ErrorIs(t, err, errUsage)
}
