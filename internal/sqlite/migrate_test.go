package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/confsched/internal/metrics"
	"github.com/mesh-intelligence/confsched/pkg/contract"
	"github.com/mesh-intelligence/confsched/pkg/types"
)

// writeLaunchStore creates a store at the launch version holding one starred
// session, a duplicated track link, a block and a launch-era map marker.
func writeLaunchStore(t *testing.T, dir string) {
	t.Helper()
	db := openRaw(t, dir)
	defer db.Close()
	ctx := context.Background()

	require.NoError(t, execAll(ctx, db, launchDDL))
	require.NoError(t, execAll(ctx, db, []string{
		fmt.Sprintf(`PRAGMA user_version = %d`, VersionLaunch),
		`INSERT INTO blocks (block_id, block_title, block_start, block_end) VALUES ('b1', 'Morning', 1000, 2000)`,
		`INSERT INTO sessions (session_id, block_id, session_title, session_starred) VALUES ('s1', 'b1', 'Kept', 1)`,
		`INSERT INTO sessions (session_id, block_id, session_title, session_starred) VALUES ('s2', 'b1', 'Plain', 0)`,
		`INSERT INTO sessions_tracks (session_id, track_id) VALUES ('s1', 'android')`,
		`INSERT INTO sessions_tracks (session_id, track_id) VALUES ('s1', 'android')`,
		`INSERT INTO sandbox (company_id, company_name) VALUES ('acme', 'Acme')`,
		`INSERT INTO mapmarkers (map_marker_id, map_marker_type, map_marker_latitude, map_marker_longitude, map_marker_floor) VALUES ('m1', 'room', 1.5, 2.5, 1)`,
	}))
}

// writeLegacyStore creates a store from the pre-launch vendors schema.
func writeLegacyStore(t *testing.T, dir string, version int) {
	t.Helper()
	db := openRaw(t, dir)
	defer db.Close()

	require.NoError(t, execAll(context.Background(), db, []string{
		`CREATE TABLE sessions (_id INTEGER PRIMARY KEY AUTOINCREMENT, session_id TEXT, session_title TEXT, session_starred INTEGER)`,
		`CREATE TABLE vendors (_id INTEGER PRIMARY KEY AUTOINCREMENT, vendor_id TEXT, vendor_name TEXT)`,
		`CREATE TRIGGER vendors_noop AFTER DELETE ON vendors BEGIN SELECT 1; END`,
		`INSERT INTO sessions (session_id, session_title, session_starred) VALUES ('old', 'Old', 1)`,
		`INSERT INTO vendors (vendor_id, vendor_name) VALUES ('v1', 'Vendor')`,
		fmt.Sprintf(`PRAGMA user_version = %d`, version),
	}))
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = ?`, name).Scan(&n))
	return n > 0
}

func TestSchemaMatchesRegistry(t *testing.T) {
	b := setupBackend(t)

	for _, table := range contract.AllTables() {
		t.Run(table.String(), func(t *testing.T) {
			rows, err := b.db.Query(fmt.Sprintf(`SELECT name FROM pragma_table_info('%s')`, table))
			require.NoError(t, err)
			defer rows.Close()

			var got []string
			for rows.Next() {
				var name string
				require.NoError(t, rows.Scan(&name))
				got = append(got, name)
			}
			require.NoError(t, rows.Err())
			assert.Equal(t, contract.ColumnNames(table), got)
		})
	}
}

func TestCanUpgrade(t *testing.T) {
	tests := []struct {
		version int
		want    bool
	}{
		{22, false},
		{VersionLaunch - 1, false},
		{VersionLaunch, true},
		{VersionFeedback, true},
		{VersionCompanyStarred, true},
		{CurrentVersion, true},
		{CurrentVersion + 1, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, canUpgrade(tt.version), "version %d", tt.version)
	}
}

func TestPatchChainIsContiguous(t *testing.T) {
	require.NotEmpty(t, patches)
	assert.Equal(t, VersionLaunch, patches[0].from)
	for i, p := range patches {
		assert.Equal(t, VersionLaunch+i, p.from)
	}
	assert.Equal(t, CurrentVersion, patches[len(patches)-1].from+1)
}

func TestUpgradeFromLaunchPreservesStarred(t *testing.T) {
	dir := t.TempDir()
	writeLaunchStore(t, dir)
	before := testutil.ToFloat64(metrics.Migrations.WithLabelValues(metrics.KindUpgrade))

	syncer := &fakeSync{}
	b := NewBackend(WithSyncController(syncer))
	require.NoError(t, b.Attach(testConfig(dir)))
	defer b.Detach()
	ctx := context.Background()

	v, err := b.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, v)
	assert.Equal(t, []string{"cancel", "request"}, syncer.calls)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.Migrations.WithLabelValues(metrics.KindUpgrade)))

	rs, err := b.Query(ctx, uri(contract.SessionsStarred), types.Query{Projection: []string{"session_id"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, sessionIDs(rs))

	// 105 clears blocks and rebuilds markers; 107 collapses duplicate links.
	assert.Zero(t, countRows(t, b, "blocks", ""))
	assert.Zero(t, countRows(t, b, "mapmarkers", ""))
	assert.Equal(t, 1, countRows(t, b, "sessions_tracks", ""))
	assert.Equal(t, 0, countRows(t, b, "sandbox", "company_starred != 0"))

	// The upgraded schema accepts feedback and a second identical link is
	// replaced rather than duplicated.
	mustInsert(t, b, contract.SessionFeedback, types.Values{
		"feedback_session_rating": 5, "feedback_answer_q1": 1, "feedback_answer_q2": 2,
		"feedback_answer_q3": 3, "feedback_answer_q4": 4,
	}, "s1")
	mustInsert(t, b, contract.SessionTracks, types.Values{"track_id": "android"}, "s1")
	assert.Equal(t, 1, countRows(t, b, "sessions_tracks", ""))
}

func TestUpgradeFromIntermediateVersion(t *testing.T) {
	dir := t.TempDir()
	writeLaunchStore(t, dir)

	// Bring the raw store to 106 by hand, then let Attach finish.
	db := openRaw(t, dir)
	ctx := context.Background()
	require.NoError(t, inTx(ctx, db, func(tx *sql.Tx) error {
		if err := execAll(ctx, tx, patches[0].stmts); err != nil {
			return err
		}
		if err := execAll(ctx, tx, patches[1].stmts); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, VersionCompanyStarred))
		return err
	}))
	require.NoError(t, db.Close())

	b := NewBackend()
	require.NoError(t, b.Attach(testConfig(dir)))
	defer b.Detach()

	v, err := b.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, v)
	assert.Equal(t, 1, countRows(t, b, "sessions", "session_starred = 1"))
	assert.Equal(t, 1, countRows(t, b, "sessions_tracks", ""))
}

func TestUpgradeAcrossGapRecreates(t *testing.T) {
	for _, version := range []int{22, CurrentVersion + 5} {
		t.Run(fmt.Sprint(version), func(t *testing.T) {
			dir := t.TempDir()
			writeLegacyStore(t, dir, version)
			before := testutil.ToFloat64(metrics.Migrations.WithLabelValues(metrics.KindRecreate))

			syncer := &fakeSync{}
			b := NewBackend(WithSyncController(syncer))
			require.NoError(t, b.Attach(testConfig(dir)))
			defer b.Detach()

			v, err := b.Version(context.Background())
			require.NoError(t, err)
			assert.Equal(t, CurrentVersion, v)
			assert.Equal(t, []string{"cancel", "request"}, syncer.calls)
			assert.Equal(t, before+1, testutil.ToFloat64(metrics.Migrations.WithLabelValues(metrics.KindRecreate)))

			assert.False(t, tableExists(t, b.db, "vendors"))
			assert.Zero(t, countRows(t, b, "sessions", ""), "recreate must start empty")
			for _, table := range contract.AllTables() {
				assert.True(t, tableExists(t, b.db, table.String()), table.String())
			}
		})
	}
}

func TestCreateSchemaRecordsMetric(t *testing.T) {
	before := testutil.ToFloat64(metrics.Migrations.WithLabelValues(metrics.KindCreate))
	setupBackend(t)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.Migrations.WithLabelValues(metrics.KindCreate)))
}

func TestSessionDeleteTriggers(t *testing.T) {
	b := setupBackend(t)
	seedSchedule(t, b)
	mustInsert(t, b, contract.SessionFeedback, types.Values{
		"feedback_session_rating": 4, "feedback_answer_q1": 1, "feedback_answer_q2": 1,
		"feedback_answer_q3": 1, "feedback_answer_q4": 1,
	}, "s1")
	mustInsert(t, b, contract.SessionFeedback, types.Values{
		"feedback_session_rating": 3, "feedback_answer_q1": 1, "feedback_answer_q2": 1,
		"feedback_answer_q3": 1, "feedback_answer_q4": 1,
	}, "s3")

	n, err := b.Delete(context.Background(), uri(contract.Session, "s1"), "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.Zero(t, countRows(t, b, "sessions_tracks", "session_id = 's1'"))
	assert.Zero(t, countRows(t, b, "sessions_speakers", "session_id = 's1'"))
	assert.Zero(t, countRows(t, b, "feedback", "session_id = 's1'"))

	assert.Equal(t, 3, countRows(t, b, "sessions_tracks", ""))
	assert.Equal(t, 1, countRows(t, b, "sessions_speakers", ""))
	assert.Equal(t, 1, countRows(t, b, "feedback", ""))
	assert.Equal(t, 2, countRows(t, b, "speakers", ""), "speakers are not owned by sessions")
}

func TestReplaceDoesNotFireDeleteTriggers(t *testing.T) {
	b := setupBackend(t)
	seedSchedule(t, b)

	// Re-syncing a session replaces its row; its links must survive.
	mustInsert(t, b, contract.Sessions, types.Values{
		"session_id": "s1", "block_id": "b1", "room_id": "r1", "session_title": "Intro to Protocols, again",
	})
	assert.Equal(t, 1, countRows(t, b, "sessions", "session_id = 's1'"))
	assert.Equal(t, 1, countRows(t, b, "sessions_tracks", "session_id = 's1'"))
	assert.Equal(t, 1, countRows(t, b, "sessions_speakers", "session_id = 's1'"))
}
