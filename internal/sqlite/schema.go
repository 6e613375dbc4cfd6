// Package sqlite implements the schedule store on SQLite: schema creation and
// versioned upgrade, the identifier-routed query layer, and the request
// dispatcher behind types.Provider.
package sqlite

// Schema DDL at the launch version (104). Later versions are reached by the
// patches in migrate.go, which a fresh store also runs.
const (
	createBlocks = `CREATE TABLE blocks (
    _id INTEGER PRIMARY KEY AUTOINCREMENT,
    block_id TEXT NOT NULL,
    block_title TEXT NOT NULL,
    block_start INTEGER NOT NULL,
    block_end INTEGER NOT NULL,
    block_type TEXT,
    block_meta TEXT,
    UNIQUE (block_id) ON CONFLICT REPLACE
)`

	createTracks = `CREATE TABLE tracks (
    _id INTEGER PRIMARY KEY AUTOINCREMENT,
    track_id TEXT NOT NULL,
    track_name TEXT,
    track_color INTEGER,
    track_level INTEGER,
    track_order_in_level INTEGER,
    track_is_meta INTEGER NOT NULL DEFAULT 0,
    track_abstract TEXT,
    track_hashtag TEXT,
    UNIQUE (track_id) ON CONFLICT REPLACE
)`

	createRooms = `CREATE TABLE rooms (
    _id INTEGER PRIMARY KEY AUTOINCREMENT,
    room_id TEXT NOT NULL,
    room_name TEXT,
    room_floor TEXT,
    UNIQUE (room_id) ON CONFLICT REPLACE
)`

	createSessions = `CREATE TABLE sessions (
    _id INTEGER PRIMARY KEY AUTOINCREMENT,
    updated INTEGER NOT NULL DEFAULT -1,
    session_id TEXT NOT NULL,
    block_id TEXT REFERENCES blocks(block_id),
    room_id TEXT REFERENCES rooms(room_id),
    session_type TEXT,
    session_level TEXT,
    session_title TEXT,
    session_abstract TEXT,
    session_requirements TEXT,
    session_keywords TEXT,
    session_hashtag TEXT,
    session_url TEXT,
    session_youtube_url TEXT,
    session_moderator_url TEXT,
    session_pdf_url TEXT,
    session_notes_url TEXT,
    session_starred INTEGER NOT NULL DEFAULT 0,
    session_cal_event_id INTEGER,
    session_livestream_url TEXT,
    UNIQUE (session_id) ON CONFLICT REPLACE
)`

	createSpeakers = `CREATE TABLE speakers (
    _id INTEGER PRIMARY KEY AUTOINCREMENT,
    updated INTEGER NOT NULL DEFAULT -1,
    speaker_id TEXT NOT NULL,
    speaker_name TEXT,
    speaker_image_url TEXT,
    speaker_company TEXT,
    speaker_abstract TEXT,
    speaker_url TEXT,
    UNIQUE (speaker_id) ON CONFLICT REPLACE
)`

	createSessionsSpeakers = `CREATE TABLE sessions_speakers (
    _id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL REFERENCES sessions(session_id),
    speaker_id TEXT NOT NULL REFERENCES speakers(speaker_id),
    UNIQUE (session_id, speaker_id) ON CONFLICT REPLACE
)`

	// Uniqueness of (session_id, track_id) arrives with version 107.
	createSessionsTracks = `CREATE TABLE sessions_tracks (
    _id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL REFERENCES sessions(session_id),
    track_id TEXT NOT NULL REFERENCES tracks(track_id)
)`

	createSandbox = `CREATE TABLE sandbox (
    _id INTEGER PRIMARY KEY AUTOINCREMENT,
    updated INTEGER NOT NULL DEFAULT -1,
    company_id TEXT NOT NULL,
    track_id TEXT REFERENCES tracks(track_id),
    block_id TEXT REFERENCES blocks(block_id),
    room_id TEXT REFERENCES rooms(room_id),
    company_name TEXT,
    company_desc TEXT,
    company_url TEXT,
    company_logo_url TEXT,
    UNIQUE (company_id) ON CONFLICT REPLACE
)`

	createAnnouncements = `CREATE TABLE announcements (
    _id INTEGER PRIMARY KEY AUTOINCREMENT,
    updated INTEGER NOT NULL DEFAULT -1,
    announcement_id TEXT,
    announcement_title TEXT NOT NULL,
    announcement_activity_json BLOB,
    announcement_url TEXT,
    announcement_date INTEGER NOT NULL,
    UNIQUE (announcement_id) ON CONFLICT REPLACE
)`

	createMapTiles = `CREATE TABLE mapoverlays (
    _id INTEGER PRIMARY KEY AUTOINCREMENT,
    map_tile_floor INTEGER NOT NULL,
    map_tile_file TEXT NOT NULL,
    map_tile_url TEXT NOT NULL,
    UNIQUE (map_tile_floor) ON CONFLICT REPLACE
)`

	// The launch marker table predates track tagging; version 105 drops and
	// recreates it.
	createMapMarkersLaunch = `CREATE TABLE mapmarkers (
    _id INTEGER PRIMARY KEY AUTOINCREMENT,
    map_marker_id TEXT NOT NULL,
    map_marker_type TEXT NOT NULL,
    map_marker_latitude DOUBLE NOT NULL,
    map_marker_longitude DOUBLE NOT NULL,
    map_marker_label TEXT,
    map_marker_floor INTEGER NOT NULL,
    UNIQUE (map_marker_id) ON CONFLICT REPLACE
)`

	// Porter stemming so that "frustration" matches "frustrated".
	createSessionsSearch = `CREATE VIRTUAL TABLE sessions_search USING fts5(
    session_id UNINDEXED,
    body,
    tokenize = 'porter unicode61'
)`

	createSearchSuggest = `CREATE TABLE search_suggest (
    _id INTEGER PRIMARY KEY AUTOINCREMENT,
    suggest_text_1 TEXT NOT NULL,
    UNIQUE (suggest_text_1) ON CONFLICT REPLACE
)`
)

// Triggers keeping the link tables in step with sessions.
const (
	triggerSessionsTracksDelete = `CREATE TRIGGER sessions_tracks_delete AFTER DELETE ON sessions
BEGIN DELETE FROM sessions_tracks WHERE sessions_tracks.session_id = old.session_id; END`

	triggerSessionsSpeakersDelete = `CREATE TRIGGER sessions_speakers_delete AFTER DELETE ON sessions
BEGIN DELETE FROM sessions_speakers WHERE sessions_speakers.session_id = old.session_id; END`
)

// Index DDL for the join and filter columns used by the query plans.
const (
	idxSessionsBlock        = `CREATE INDEX idx_sessions_block ON sessions(block_id)`
	idxSessionsRoom         = `CREATE INDEX idx_sessions_room ON sessions(room_id)`
	idxSessionsSpeakersSpkr = `CREATE INDEX idx_sessions_speakers_speaker ON sessions_speakers(speaker_id)`
	idxSessionsTracksTrack  = `CREATE INDEX idx_sessions_tracks_track ON sessions_tracks(track_id)`
	idxSandboxTrack         = `CREATE INDEX idx_sandbox_track ON sandbox(track_id)`
	idxBlocksStart          = `CREATE INDEX idx_blocks_start ON blocks(block_start, block_end)`
)

// launchDDL creates the launch-version schema, in dependency order.
var launchDDL = []string{
	createBlocks,
	createTracks,
	createRooms,
	createSessions,
	createSpeakers,
	createSessionsSpeakers,
	createSessionsTracks,
	createSandbox,
	createAnnouncements,
	createMapTiles,
	createMapMarkersLaunch,
	createSessionsSearch,
	createSearchSuggest,
	triggerSessionsTracksDelete,
	triggerSessionsSpeakersDelete,
	idxSessionsBlock,
	idxSessionsRoom,
	idxSessionsSpeakersSpkr,
	idxSessionsTracksTrack,
	idxSandboxTrack,
	idxBlocksStart,
}

// dropDDL removes every object the store has ever owned, including the
// vendors tables of the pre-launch schema. Indexes go with their tables.
var dropDDL = []string{
	`DROP TRIGGER IF EXISTS sessions_tracks_delete`,
	`DROP TRIGGER IF EXISTS sessions_speakers_delete`,
	`DROP TRIGGER IF EXISTS sessions_feedback_delete`,
	`DROP TABLE IF EXISTS blocks`,
	`DROP TABLE IF EXISTS tracks`,
	`DROP TABLE IF EXISTS rooms`,
	`DROP TABLE IF EXISTS sessions`,
	`DROP TABLE IF EXISTS speakers`,
	`DROP TABLE IF EXISTS sessions_speakers`,
	`DROP TABLE IF EXISTS sessions_tracks`,
	`DROP TABLE IF EXISTS sandbox`,
	`DROP TABLE IF EXISTS vendors`,
	`DROP TABLE IF EXISTS announcements`,
	`DROP TABLE IF EXISTS feedback`,
	`DROP TABLE IF EXISTS sessions_search`,
	`DROP TABLE IF EXISTS vendors_search`,
	`DROP TABLE IF EXISTS search_suggest`,
	`DROP TABLE IF EXISTS mapmarkers`,
	`DROP TABLE IF EXISTS mapoverlays`,
}
