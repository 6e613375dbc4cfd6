package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/confsched/pkg/contract"
	"github.com/mesh-intelligence/confsched/pkg/types"
)

func testConfig(dir string) types.Config {
	return types.Config{Backend: types.BackendSQLite, DataDir: dir}
}

// setupBackend returns an attached backend in a temp dir. It is detached
// when the test ends.
func setupBackend(t *testing.T, opts ...Option) *Backend {
	t.Helper()
	b := NewBackend(opts...)
	require.NoError(t, b.Attach(testConfig(t.TempDir())))
	t.Cleanup(func() { b.Detach() })
	return b
}

func uri(route contract.Route, args ...string) string {
	return contract.MustBuild(route, args...).String()
}

func syncURI(route contract.Route, args ...string) string {
	return contract.MustBuild(route, args...).WithSync().String()
}

func mustInsert(t *testing.T, b *Backend, route contract.Route, values types.Values, args ...string) string {
	t.Helper()
	item, err := b.Insert(context.Background(), uri(route, args...), values)
	require.NoError(t, err)
	return item
}

// countRows counts rows of a table straight from the database.
func countRows(t *testing.T, b *Backend, table string, where string, args ...any) int {
	t.Helper()
	q := "SELECT COUNT(*) FROM " + table
	if where != "" {
		q += " WHERE " + where
	}
	var n int
	require.NoError(t, b.db.QueryRow(q, args...).Scan(&n))
	return n
}

// snapshot dumps every table so that two states can be compared.
func snapshot(t *testing.T, b *Backend) map[string][][]any {
	t.Helper()
	out := map[string][][]any{}
	for _, table := range contract.AllTables() {
		rows, err := b.db.Query(fmt.Sprintf("SELECT * FROM %s ORDER BY rowid", table))
		require.NoError(t, err)
		data, err := scanRows(rows)
		rows.Close()
		require.NoError(t, err)
		out[table.String()] = data
	}
	return out
}

// openRaw opens the database file in dir without going through Attach.
func openRaw(t *testing.T, dir string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(dir, DatabaseFile))
	require.NoError(t, err)
	return db
}

type recordingNotifier struct {
	mu      sync.Mutex
	changes []types.Change
	widgets int
}

func (n *recordingNotifier) NotifyChange(_ context.Context, c types.Change) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, c)
	return nil
}

func (n *recordingNotifier) RefreshWidgets(context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.widgets++
	return nil
}

func (n *recordingNotifier) snapshot() ([]types.Change, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]types.Change(nil), n.changes...), n.widgets
}

type fakeSync struct {
	mu        sync.Mutex
	calls     []string
	cancelErr error
}

func (s *fakeSync) CancelSync(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "cancel")
	return s.cancelErr
}

func (s *fakeSync) RequestSync(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "request")
	return nil
}

// seedSchedule loads a small conference: two blocks, two rooms, two tracks,
// four sessions and two speakers.
func seedSchedule(t *testing.T, b *Backend) {
	t.Helper()
	mustInsert(t, b, contract.Blocks, types.Values{
		"block_id": "b1", "block_title": "Morning", "block_start": int64(1000), "block_end": int64(2000), "block_type": contract.BlockTypeSession,
	})
	mustInsert(t, b, contract.Blocks, types.Values{
		"block_id": "b2", "block_title": "Afternoon", "block_start": int64(3000), "block_end": int64(4000), "block_type": contract.BlockTypeSession,
	})
	mustInsert(t, b, contract.Rooms, types.Values{"room_id": "r1", "room_name": "Room One", "room_floor": "1"})
	mustInsert(t, b, contract.Rooms, types.Values{"room_id": "r2", "room_name": "Room Two", "room_floor": "2"})
	mustInsert(t, b, contract.Tracks, types.Values{"track_id": "android", "track_name": "Android", "track_color": int64(1)})
	mustInsert(t, b, contract.Tracks, types.Values{"track_id": "cloud", "track_name": "Cloud", "track_color": int64(2)})

	sessions := []types.Values{
		{"session_id": "s1", "block_id": "b1", "room_id": "r1", "session_type": contract.SessionTypeSession, "session_title": "Intro to Protocols", "session_abstract": "Learn gRPC"},
		{"session_id": "s2", "block_id": "b1", "room_id": "r2", "session_type": contract.SessionTypeOfficeHours, "session_title": "Office Hours"},
		{"session_id": "s3", "block_id": "b2", "room_id": "r1", "session_type": contract.SessionTypeCodelab, "session_title": "Codelab"},
		{"session_id": "s4", "block_id": "b2", "room_id": "r2", "session_type": contract.SessionTypeKeynote, "session_title": "Keynote"},
	}
	for _, s := range sessions {
		mustInsert(t, b, contract.Sessions, s)
	}
	mustInsert(t, b, contract.SessionTracks, types.Values{"track_id": "android"}, "s1")
	mustInsert(t, b, contract.SessionTracks, types.Values{"track_id": "android"}, "s2")
	mustInsert(t, b, contract.SessionTracks, types.Values{"track_id": "cloud"}, "s3")
	mustInsert(t, b, contract.SessionTracks, types.Values{"track_id": "cloud"}, "s4")

	mustInsert(t, b, contract.Speakers, types.Values{"speaker_id": "ada", "speaker_name": "Ada Lovelace"})
	mustInsert(t, b, contract.Speakers, types.Values{"speaker_id": "alan", "speaker_name": "Alan Turing"})
	mustInsert(t, b, contract.SessionSpeakers, types.Values{"speaker_id": "ada"}, "s1")
	mustInsert(t, b, contract.SessionSpeakers, types.Values{"speaker_id": "alan"}, "s3")
}

func sessionIDs(rs *types.ResultSet) []string {
	var out []string
	for i := 0; i < rs.Len(); i++ {
		out = append(out, rs.String(i, "session_id"))
	}
	return out
}
