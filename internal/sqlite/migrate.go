package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/confsched/internal/logging"
	"github.com/mesh-intelligence/confsched/internal/metrics"
)

// Schema versions, stored in PRAGMA user_version.
const (
	VersionLaunch           = 104
	VersionFeedback         = 105
	VersionCompanyStarred   = 106
	VersionTrackLinksUnique = 107

	CurrentVersion = VersionTrackLinksUnique
)

// patch moves the schema from version from to from+1. User-owned columns
// (session_starred, company_starred) are never touched by a patch.
type patch struct {
	from  int
	stmts []string
}

var patches = []patch{
	{
		from: VersionLaunch,
		stmts: []string{
			// Block ids changed meaning; the next sync refills them.
			`DELETE FROM blocks`,
			`DROP TABLE IF EXISTS mapmarkers`,
			`CREATE TABLE mapmarkers (
    _id INTEGER PRIMARY KEY AUTOINCREMENT,
    map_marker_id TEXT NOT NULL,
    map_marker_type TEXT NOT NULL,
    map_marker_latitude DOUBLE NOT NULL,
    map_marker_longitude DOUBLE NOT NULL,
    map_marker_label TEXT,
    map_marker_floor INTEGER NOT NULL,
    track_id TEXT,
    UNIQUE (map_marker_id) ON CONFLICT REPLACE
)`,
			`CREATE TABLE feedback (
    _id INTEGER PRIMARY KEY AUTOINCREMENT,
    updated INTEGER NOT NULL DEFAULT -1,
    session_id TEXT REFERENCES sessions(session_id),
    feedback_session_rating INTEGER NOT NULL,
    feedback_answer_q1 INTEGER NOT NULL,
    feedback_answer_q2 INTEGER NOT NULL,
    feedback_answer_q3 INTEGER NOT NULL,
    feedback_answer_q4 INTEGER NOT NULL,
    feedback_comments TEXT,
    UNIQUE (session_id) ON CONFLICT REPLACE
)`,
			`CREATE TRIGGER sessions_feedback_delete AFTER DELETE ON sessions
BEGIN DELETE FROM feedback WHERE feedback.session_id = old.session_id; END`,
		},
	},
	{
		from: VersionFeedback,
		stmts: []string{
			`ALTER TABLE sandbox ADD COLUMN company_starred INTEGER NOT NULL DEFAULT 0`,
		},
	},
	{
		from: VersionCompanyStarred,
		stmts: []string{
			`DELETE FROM sessions_tracks WHERE _id NOT IN (
    SELECT MIN(_id) FROM sessions_tracks GROUP BY session_id, track_id)`,
			`CREATE UNIQUE INDEX idx_sessions_tracks_unique ON sessions_tracks(session_id, track_id)`,
		},
	},
}

// canUpgrade reports whether the patch chain reaches CurrentVersion from v.
func canUpgrade(v int) bool {
	return v >= VersionLaunch && v <= CurrentVersion
}

// readVersion returns PRAGMA user_version.
func readVersion(ctx context.Context, q querier) (int, error) {
	var v int
	if err := q.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

// createSchema builds the launch schema and applies every patch, so a fresh
// store always ends at CurrentVersion.
func createSchema(ctx context.Context, db *sql.DB) error {
	return inTx(ctx, db, func(tx *sql.Tx) error {
		if err := execAll(ctx, tx, launchDDL); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
		return applyPatches(ctx, tx, VersionLaunch)
	})
}

// upgradeSchema moves a store at version old to CurrentVersion in one
// transaction. It reports whether the data was destroyed: versions the
// patch chain cannot reach are dropped and recreated.
func upgradeSchema(ctx context.Context, db *sql.DB, old int) (recreated bool, err error) {
	log := logging.Ctx(ctx)
	if !canUpgrade(old) {
		log.Warn().Int("from", old).Int("to", CurrentVersion).Msg("destroying old data during upgrade")
		err := inTx(ctx, db, func(tx *sql.Tx) error {
			if err := execAll(ctx, tx, dropDDL); err != nil {
				return fmt.Errorf("dropping schema at version %d: %w", old, err)
			}
			if err := execAll(ctx, tx, launchDDL); err != nil {
				return fmt.Errorf("recreating schema: %w", err)
			}
			return applyPatches(ctx, tx, VersionLaunch)
		})
		if err != nil {
			return false, err
		}
		metrics.RecordMigration(metrics.KindRecreate)
		return true, nil
	}

	err = inTx(ctx, db, func(tx *sql.Tx) error {
		return applyPatches(ctx, tx, old)
	})
	if err != nil {
		return false, err
	}
	log.Info().Int("from", old).Int("to", CurrentVersion).Msg("schema upgraded")
	metrics.RecordMigration(metrics.KindUpgrade)
	return false, nil
}

// applyPatches runs every patch at or after version from, in order, and
// stamps the resulting version.
func applyPatches(ctx context.Context, tx *sql.Tx, from int) error {
	v := from
	for _, p := range patches {
		if p.from < v {
			continue
		}
		if err := execAll(ctx, tx, p.stmts); err != nil {
			return fmt.Errorf("migrating schema %d to %d: %w", p.from, p.from+1, err)
		}
		v = p.from + 1
	}
	// PRAGMA does not take bound parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, v)); err != nil {
		return fmt.Errorf("stamping schema version %d: %w", v, err)
	}
	return nil
}

func execAll(ctx context.Context, e execer, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := e.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
