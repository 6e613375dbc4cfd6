package sqlite

import (
	"github.com/mesh-intelligence/confsched/pkg/contract"
)

// Join expressions. Every plan that joins the same pair of tables uses the
// same condition text.
const (
	onSessionsBlocks       = "sessions.block_id=blocks.block_id"
	onSessionsRooms        = "sessions.room_id=rooms.room_id"
	onSandboxTracks        = "sandbox.track_id=tracks.track_id"
	onSandboxBlocks        = "sandbox.block_id=blocks.block_id"
	onSandboxRooms         = "sandbox.room_id=rooms.room_id"
	onSessionsSpeakersSpkr = "sessions_speakers.speaker_id=speakers.speaker_id"
	onSessionsSpeakersSess = "sessions_speakers.session_id=sessions.session_id"
	onSessionsTracksTrack  = "sessions_tracks.track_id=tracks.track_id"
	onSessionsTracksSess   = "sessions_tracks.session_id=sessions.session_id"
	onSearchSessions       = "sessions_search.session_id=sessions.session_id"
	onMapMarkersTracks     = "mapmarkers.track_id=tracks.track_id"

	joinBlocks = " LEFT OUTER JOIN blocks ON "
	joinRooms  = " LEFT OUTER JOIN rooms ON "
	joinTracks = " LEFT OUTER JOIN tracks ON "

	sessionsJoinBlocksRooms = "sessions" +
		joinBlocks + onSessionsBlocks +
		joinRooms + onSessionsRooms

	sessionsJoinRooms = "sessions" + joinRooms + onSessionsRooms

	sandboxJoinTracksBlocksRooms = "sandbox" +
		joinTracks + onSandboxTracks +
		joinBlocks + onSandboxBlocks +
		joinRooms + onSandboxRooms

	sessionsSpeakersJoinSpeakers = "sessions_speakers" +
		" LEFT OUTER JOIN speakers ON " + onSessionsSpeakersSpkr

	sessionsSpeakersJoinSessionsBlocksRooms = "sessions_speakers" +
		" LEFT OUTER JOIN sessions ON " + onSessionsSpeakersSess +
		joinBlocks + onSessionsBlocks +
		joinRooms + onSessionsRooms

	sessionsTracksJoinTracks = "sessions_tracks" + joinTracks + onSessionsTracksTrack

	sessionsTracksJoinSessionsBlocksRooms = "sessions_tracks" +
		" LEFT OUTER JOIN sessions ON " + onSessionsTracksSess +
		joinBlocks + onSessionsBlocks +
		joinRooms + onSessionsRooms

	sessionsSearchJoinSessionsBlocksRooms = "sessions_search" +
		" LEFT OUTER JOIN sessions ON " + onSearchSessions +
		joinBlocks + onSessionsBlocks +
		joinRooms + onSessionsRooms

	sessionsJoinTracksBlocks = "sessions" +
		" LEFT OUTER JOIN sessions_tracks ON " + onSessionsTracksSess +
		joinTracks + onSessionsTracksTrack +
		joinBlocks + onSessionsBlocks

	mapMarkersJoinTracks = "mapmarkers" + joinTracks + onMapMarkersTracks
)

// Correlated subqueries computing block aggregates. The starred-session
// columns pick the first starred session by title; equal titles fall back to
// insertion order.
const (
	blockSessions = " FROM sessions WHERE sessions.block_id=blocks.block_id"
	blockStarred  = blockSessions + " AND sessions.session_starred=1"
	starredOrder  = " ORDER BY sessions.session_title, sessions._id LIMIT 1)"

	subBlockSessionsCount = "(SELECT COUNT(sessions.session_id)" + blockSessions + ")"

	subBlockNumStarredSessions = "(SELECT COUNT(1)" + blockStarred + ")"

	subBlockNumLivestreamedSessions = "(SELECT COUNT(1)" + blockSessions +
		" AND IFNULL(sessions.session_livestream_url,'')!='')"

	subBlockStarredSessionID         = "(SELECT sessions.session_id" + blockStarred + starredOrder
	subBlockStarredSessionTitle      = "(SELECT sessions.session_title" + blockStarred + starredOrder
	subBlockStarredSessionHashtags   = "(SELECT sessions.session_hashtag" + blockStarred + starredOrder
	subBlockStarredSessionURL        = "(SELECT sessions.session_url" + blockStarred + starredOrder
	subBlockStarredSessionLivestream = "(SELECT sessions.session_livestream_url" + blockStarred + starredOrder
	subBlockStarredSessionRoomName   = "(SELECT rooms.room_name FROM " + sessionsJoinRooms + " WHERE sessions.block_id=blocks.block_id AND sessions.session_starred=1" + starredOrder
	subBlockStarredSessionRoomID     = "(SELECT rooms.room_id FROM " + sessionsJoinRooms + " WHERE sessions.block_id=blocks.block_id AND sessions.session_starred=1" + starredOrder
)

// Track aggregates, search snippet and suggestion columns.
const (
	trackSessionsOfType      = " FROM sessions_tracks INNER JOIN sessions ON " + onSessionsTracksSess + " WHERE sessions_tracks.track_id=tracks.track_id AND sessions.session_type"
	subTrackSessionsCount    = "(SELECT COUNT(sessions_tracks.session_id)" + trackSessionsOfType + " != '" + contract.SessionTypeOfficeHours + "')"
	subTrackOfficeHoursCount = "(SELECT COUNT(sessions_tracks.session_id)" + trackSessionsOfType + " = '" + contract.SessionTypeOfficeHours + "')"
	subTrackSandboxCount     = "(SELECT COUNT(sandbox.company_id) FROM sandbox WHERE sandbox.track_id=tracks.track_id)"
	subSessionsSnippet       = "snippet(sessions_search, 1, '{', '}', '…', 16)"
	subSuggestIntentQuery    = "suggest_text_1"
)

// Predicates layered onto plans by route and by the filter parameter.
const (
	filterSessionsCodelabsOnly = "session_type NOT IN ('" + contract.SessionTypeOfficeHours + "','" + contract.SessionTypeKeynote + "')"
	filterOfficeHoursOnly      = "session_type = ?"
	sandboxSearchSelection     = "sandbox.company_name LIKE ? OR sandbox.company_desc LIKE ?"
	sessionsRoomAfterSelection = "(blocks.block_start <= ? AND blocks.block_end >= ?) OR (blocks.block_start >= ?)"
	sessionsAtSelection        = "blocks.block_start <= ? AND blocks.block_end >= ?"
	blocksBetweenSelection     = "blocks.block_start >= ? AND blocks.block_start <= ?"
)
