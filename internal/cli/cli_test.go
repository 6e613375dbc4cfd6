package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/confsched/internal/sqlite"
)

// harness runs command lines against private config and data directories.
type harness struct {
	configDir string
	dataDir   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()
	return &harness{
		configDir: filepath.Join(root, "config"),
		dataDir:   filepath.Join(root, "data"),
	}
}

func (h *harness) run(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"--config-dir", h.configDir, "--data-dir", h.dataDir}, args...)
	code := run(context.Background(), full, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

// mustRun fails the test unless the command exits successfully.
func (h *harness) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, errOut, code := h.run(t, args...)
	require.Equal(t, exitSuccess, code, "stderr: %s", errOut)
	return out
}

func (h *harness) queryJSON(t *testing.T, args ...string) []map[string]any {
	t.Helper()
	out := h.mustRun(t, append([]string{"--json", "query"}, args...)...)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows), out)
	return rows
}

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func conferenceDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFixture(t, dir, "blocks.jsonl", `{"block_id":"b1","block_title":"Morning","block_start":1000,"block_end":2000,"block_type":"session"}
`)
	writeFixture(t, dir, "rooms.yaml", `- room_id: r1
  room_name: Room One
`)
	writeFixture(t, dir, "tracks.toml", `[[records]]
track_id = "android"
track_name = "Android"
`)
	writeFixture(t, dir, "speakers.jsonl", `{"speaker_id":"ada","speaker_name":"Ada Lovelace"}
`)
	writeFixture(t, dir, "sessions.jsonl", `{"session_id":"s1","block_id":"b1","room_id":"r1","session_title":"Intro to Protocols","session_abstract":"Learn gRPC","session_type":"SESSION"}
{"session_id":"s2","block_id":"b1","room_id":"r1","session_title":"Compose Lab","session_type":"CODE_LAB"}
`)
	writeFixture(t, dir, "session_speakers.jsonl", `{"session_id":"s1","speaker_id":"ada"}
`)
	writeFixture(t, dir, "session_tracks.jsonl", `{"session_id":"s1","track_id":"android"}
{"session_id":"s2","track_id":"android"}
`)
	return dir
}

func TestVersion(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun(t, "version")
	assert.Contains(t, out, "schedule v"+Version)
	assert.Contains(t, out, modulePath)
	assert.Contains(t, out, "schema: 107")

	_, err := os.Stat(h.configDir)
	assert.True(t, os.IsNotExist(err), "version does not touch the config dir")
}

func TestInit(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun(t, "init")
	assert.Contains(t, out, "schema 107")

	data, err := os.ReadFile(filepath.Join(h.configDir, configFileExt))
	require.NoError(t, err)
	assert.Contains(t, string(data), "backend: sqlite")
	assert.Contains(t, string(data), "data_dir: "+h.dataDir)
	assert.FileExists(t, filepath.Join(h.dataDir, sqlite.DatabaseFile))

	// A second init keeps an edited config.
	custom := "backend: sqlite\nlog_level: error\n"
	require.NoError(t, os.WriteFile(filepath.Join(h.configDir, configFileExt), []byte(custom), 0o644))
	h.mustRun(t, "init")
	data, err = os.ReadFile(filepath.Join(h.configDir, configFileExt))
	require.NoError(t, err)
	assert.Equal(t, custom, string(data))
}

func TestType(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun(t, "type", "sessions/s1")
	assert.Equal(t, "vnd.confsched.cursor.item/vnd.confsched.session\n", out)

	out = h.mustRun(t, "type", "content://com.meshintelligence.confsched/blocks")
	assert.Equal(t, "vnd.confsched.cursor.dir/vnd.confsched.block\n", out)

	_, _, code := h.run(t, "type", "search_index")
	assert.Equal(t, exitUserError, code)
}

func TestInsertQueryUpdateDelete(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun(t, "insert", "rooms", "--set", "room_id=r1", "--set", "room_name=Room One", "--set", "room_floor=2")
	assert.Equal(t, "content://com.meshintelligence.confsched/rooms/r1\n", out)
	h.mustRun(t, "insert", "rooms", "--set", "room_id=r2", "--set", "room_name=Annex")

	rows := h.queryJSON(t, "rooms", "--columns", "room_id,room_name", "--sort", "room_id ASC")
	require.Len(t, rows, 2)
	assert.Equal(t, "r1", rows[0]["room_id"])
	assert.Equal(t, "Annex", rows[1]["room_name"])
	assert.NotContains(t, rows[0], "room_floor")

	out = h.mustRun(t, "update", "rooms", "--set", "room_name=Main Hall", "--where", "room_id=?", "--arg", "r1")
	assert.Equal(t, "updated 1 rows\n", out)
	rows = h.queryJSON(t, "rooms/r1")
	require.Len(t, rows, 1)
	assert.Equal(t, "Main Hall", rows[0]["room_name"])

	out = h.mustRun(t, "--json", "delete", "rooms/r2")
	var deleted map[string]int64
	require.NoError(t, json.Unmarshal([]byte(out), &deleted))
	assert.Equal(t, int64(1), deleted["deleted"])
	assert.Len(t, h.queryJSON(t, "rooms"), 1)
}

func TestQueryTable(t *testing.T) {
	h := newHarness(t)
	h.mustRun(t, "insert", "rooms", "--set", "room_id=r1", "--set", "room_name=Room One")

	out := h.mustRun(t, "query", "rooms", "--columns", "room_id,room_name")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "room_id  room_name", lines[0])
	assert.Equal(t, "r1       Room One", lines[1])
	assert.Equal(t, "(1 rows)", lines[2])
}

func TestLoadSearchExport(t *testing.T) {
	h := newHarness(t)
	src := conferenceDir(t)

	out := h.mustRun(t, "load", src)
	assert.Contains(t, out, "loaded 9 records")

	rows := h.queryJSON(t, "sessions/search/lovelace", "--columns", "session_id")
	require.Len(t, rows, 1)
	assert.Equal(t, "s1", rows[0]["session_id"])

	rows = h.queryJSON(t, "tracks/android/sessions", "--columns", "session_id", "--where", "session_type=?", "--arg", "CODE_LAB")
	require.Len(t, rows, 1)
	assert.Equal(t, "s2", rows[0]["session_id"])

	h.mustRun(t, "reindex")
	assert.Len(t, h.queryJSON(t, "sessions/search/grpc"), 1)

	dst := filepath.Join(t.TempDir(), "export")
	out = h.mustRun(t, "--json", "export", dst)
	var sum struct {
		Records map[string]int `json:"records"`
		Total   int            `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.Equal(t, 9, sum.Total)
	assert.Equal(t, 2, sum.Records["sessions"])
	assert.FileExists(t, filepath.Join(dst, "session_tracks.jsonl"))
}

func TestStats(t *testing.T) {
	h := newHarness(t)
	h.mustRun(t, "load", conferenceDir(t))

	out := h.mustRun(t, "--json", "stats")
	var stats struct {
		SchemaVersion int            `json:"schema_version"`
		Rows          map[string]int `json:"rows"`
		Metrics       []sample       `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, sqlite.CurrentVersion, stats.SchemaVersion)
	assert.Equal(t, 2, stats.Rows["sessions"])
	assert.Equal(t, 1, stats.Rows["blocks"])
	assert.Equal(t, 0, stats.Rows["feedback"])

	var names []string
	for _, s := range stats.Metrics {
		names = append(names, s.Name)
	}
	assert.Contains(t, names, `schedule_query_duration_seconds_count{route="sessions"}`)

	out = h.mustRun(t, "stats")
	assert.Contains(t, out, "schema version 107")
	assert.Contains(t, out, "sessions")
}

func TestExitCodes(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"unknown identifier", []string{"query", "nope/nope/nope"}, exitUserError},
		{"missing argument", []string{"query"}, exitUserError},
		{"unknown flag", []string{"query", "rooms", "--bogus"}, exitUserError},
		{"args without selection", []string{"query", "rooms", "--arg", "x"}, exitUserError},
		{"bad assignment", []string{"insert", "rooms", "--set", "room_id"}, exitUserError},
		{"insert without values", []string{"insert", "rooms"}, exitUserError},
		{"read-only route", []string{"update", "sessions/search/x", "--set", "session_starred=1"}, exitUserError},
		{"empty fixtures dir", []string{"load", t.TempDir()}, exitUserError},
		{"success", []string{"query", "rooms"}, exitSuccess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, code := h.run(t, tt.args...)
			assert.Equal(t, tt.want, code, stderr)
			if tt.want != exitSuccess {
				assert.Contains(t, stderr, "Error:")
			}
		})
	}
}

func TestSyncFlagSuppressesUpstream(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun(t, "insert", "rooms", "--sync", "--set", "room_id=r9")
	assert.Equal(t, "content://com.meshintelligence.confsched/rooms/r9\n", out, "the returned item carries no trust flag")
}
