// Package contract defines the schedule data contract: the schema registry
// (tables, columns, canonical sorts, predicate fragments) and the resource
// identifier layer that names query and mutation targets.
//
// Every table and column is an enumerated symbol. Storage-level names are
// rendered by String in one place, so a column is spelled exactly once.
package contract

// Table identifies a physical table of the schedule store.
type Table int

// Tables of the schedule store.
const (
	TableBlocks Table = iota
	TableTracks
	TableRooms
	TableSessions
	TableSpeakers
	TableSessionsSpeakers
	TableSessionsTracks
	TableSandbox
	TableAnnouncements
	TableFeedback
	TableMapMarkers
	TableMapTiles
	TableSessionsSearch
	TableSearchSuggest
	numTables
)

var tableNames = [numTables]string{
	TableBlocks:           "blocks",
	TableTracks:           "tracks",
	TableRooms:            "rooms",
	TableSessions:         "sessions",
	TableSpeakers:         "speakers",
	TableSessionsSpeakers: "sessions_speakers",
	TableSessionsTracks:   "sessions_tracks",
	TableSandbox:          "sandbox",
	TableAnnouncements:    "announcements",
	TableFeedback:         "feedback",
	TableMapMarkers:       "mapmarkers",
	TableMapTiles:         "mapoverlays",
	TableSessionsSearch:   "sessions_search",
	TableSearchSuggest:    "search_suggest",
}

// String returns the storage name of the table.
func (t Table) String() string {
	if t < 0 || t >= numTables {
		return ""
	}
	return tableNames[t]
}

// AllTables lists every table in creation order.
func AllTables() []Table {
	out := make([]Table, 0, numTables)
	for t := Table(0); t < numTables; t++ {
		out = append(out, t)
	}
	return out
}

// Column identifies a stored or virtual column.
type Column int

// Stored columns. Columns shared by several tables (session_id, track_id,
// block_id, room_id, speaker_id, updated) are declared once and reused.
const (
	ID Column = iota
	Updated

	BlockID
	BlockTitle
	BlockStart
	BlockEnd
	BlockType
	BlockMeta

	TrackID
	TrackName
	TrackColor
	TrackLevel
	TrackOrderInLevel
	TrackIsMeta
	TrackAbstract
	TrackHashtag

	RoomID
	RoomName
	RoomFloor

	SessionID
	SessionType
	SessionLevel
	SessionTitle
	SessionAbstract
	SessionRequirements
	SessionTags
	SessionHashtags
	SessionURL
	SessionYoutubeURL
	SessionModeratorURL
	SessionPDFURL
	SessionNotesURL
	SessionStarred
	SessionCalEventID
	SessionLivestreamURL

	SpeakerID
	SpeakerName
	SpeakerImageURL
	SpeakerCompany
	SpeakerAbstract
	SpeakerURL

	CompanyID
	CompanyName
	CompanyDesc
	CompanyURL
	CompanyLogoURL
	CompanyStarred

	AnnouncementID
	AnnouncementTitle
	AnnouncementActivityJSON
	AnnouncementURL
	AnnouncementDate

	FeedbackSessionRating
	FeedbackAnswerQ1
	FeedbackAnswerQ2
	FeedbackAnswerQ3
	FeedbackAnswerQ4
	FeedbackComments

	MarkerID
	MarkerType
	MarkerLatitude
	MarkerLongitude
	MarkerLabel
	MarkerFloor

	TileFloor
	TileFile
	TileURL

	SearchBody
	SuggestText1

	// Virtual columns, computed at query time.
	SuggestIntentQuery
	SessionsCount
	NumStarredSessions
	NumLivestreamedSessions
	StarredSessionID
	StarredSessionTitle
	StarredSessionLivestreamURL
	StarredSessionRoomName
	StarredSessionRoomID
	StarredSessionHashtags
	StarredSessionURL
	OfficeHoursCount
	SandboxCount
	SearchSnippet
	numColumns
)

const firstVirtual = SuggestIntentQuery

var columnNames = [numColumns]string{
	ID:      "_id",
	Updated: "updated",

	BlockID:    "block_id",
	BlockTitle: "block_title",
	BlockStart: "block_start",
	BlockEnd:   "block_end",
	BlockType:  "block_type",
	BlockMeta:  "block_meta",

	TrackID:           "track_id",
	TrackName:         "track_name",
	TrackColor:        "track_color",
	TrackLevel:        "track_level",
	TrackOrderInLevel: "track_order_in_level",
	TrackIsMeta:       "track_is_meta",
	TrackAbstract:     "track_abstract",
	TrackHashtag:      "track_hashtag",

	RoomID:    "room_id",
	RoomName:  "room_name",
	RoomFloor: "room_floor",

	SessionID:            "session_id",
	SessionType:          "session_type",
	SessionLevel:         "session_level",
	SessionTitle:         "session_title",
	SessionAbstract:      "session_abstract",
	SessionRequirements:  "session_requirements",
	SessionTags:          "session_keywords",
	SessionHashtags:      "session_hashtag",
	SessionURL:           "session_url",
	SessionYoutubeURL:    "session_youtube_url",
	SessionModeratorURL:  "session_moderator_url",
	SessionPDFURL:        "session_pdf_url",
	SessionNotesURL:      "session_notes_url",
	SessionStarred:       "session_starred",
	SessionCalEventID:    "session_cal_event_id",
	SessionLivestreamURL: "session_livestream_url",

	SpeakerID:       "speaker_id",
	SpeakerName:     "speaker_name",
	SpeakerImageURL: "speaker_image_url",
	SpeakerCompany:  "speaker_company",
	SpeakerAbstract: "speaker_abstract",
	SpeakerURL:      "speaker_url",

	CompanyID:      "company_id",
	CompanyName:    "company_name",
	CompanyDesc:    "company_desc",
	CompanyURL:     "company_url",
	CompanyLogoURL: "company_logo_url",
	CompanyStarred: "company_starred",

	AnnouncementID:           "announcement_id",
	AnnouncementTitle:        "announcement_title",
	AnnouncementActivityJSON: "announcement_activity_json",
	AnnouncementURL:          "announcement_url",
	AnnouncementDate:         "announcement_date",

	FeedbackSessionRating: "feedback_session_rating",
	FeedbackAnswerQ1:      "feedback_answer_q1",
	FeedbackAnswerQ2:      "feedback_answer_q2",
	FeedbackAnswerQ3:      "feedback_answer_q3",
	FeedbackAnswerQ4:      "feedback_answer_q4",
	FeedbackComments:      "feedback_comments",

	MarkerID:        "map_marker_id",
	MarkerType:      "map_marker_type",
	MarkerLatitude:  "map_marker_latitude",
	MarkerLongitude: "map_marker_longitude",
	MarkerLabel:     "map_marker_label",
	MarkerFloor:     "map_marker_floor",

	TileFloor: "map_tile_floor",
	TileFile:  "map_tile_file",
	TileURL:   "map_tile_url",

	SearchBody:   "body",
	SuggestText1: "suggest_text_1",

	SuggestIntentQuery: "suggest_intent_query",

	SessionsCount:               "sessions_count",
	NumStarredSessions:          "num_starred_sessions",
	NumLivestreamedSessions:     "num_livestreamed_sessions",
	StarredSessionID:            "starred_session_id",
	StarredSessionTitle:         "starred_session_title",
	StarredSessionLivestreamURL: "starred_session_livestream_url",
	StarredSessionRoomName:      "starred_session_room_name",
	StarredSessionRoomID:        "starred_session_room_id",
	StarredSessionHashtags:      "starred_session_hashtags",
	StarredSessionURL:           "starred_session_url",
	OfficeHoursCount:            "office_hours_count",
	SandboxCount:                "sandbox_count",
	SearchSnippet:               "search_snippet",
}

// String returns the storage name of the column.
func (c Column) String() string {
	if c < 0 || c >= numColumns {
		return ""
	}
	return columnNames[c]
}

// In returns the column qualified with the given table, e.g. "sessions.block_id".
func (c Column) In(t Table) string {
	return t.String() + "." + c.String()
}

// Virtual reports whether the column is computed at query time rather than stored.
func (c Column) Virtual() bool {
	return c >= firstVirtual && c < numColumns
}

// AllColumns lists every declared column, stored and virtual.
func AllColumns() []Column {
	out := make([]Column, 0, numColumns)
	for c := Column(0); c < numColumns; c++ {
		out = append(out, c)
	}
	return out
}

// tableColumns lists the stored columns of each table in declaration order.
var tableColumns = map[Table][]Column{
	TableBlocks: {ID, BlockID, BlockTitle, BlockStart, BlockEnd, BlockType, BlockMeta},
	TableTracks: {ID, TrackID, TrackName, TrackColor, TrackLevel, TrackOrderInLevel,
		TrackIsMeta, TrackAbstract, TrackHashtag},
	TableRooms: {ID, RoomID, RoomName, RoomFloor},
	TableSessions: {ID, Updated, SessionID, BlockID, RoomID, SessionType, SessionLevel,
		SessionTitle, SessionAbstract, SessionRequirements, SessionTags, SessionHashtags,
		SessionURL, SessionYoutubeURL, SessionModeratorURL, SessionPDFURL, SessionNotesURL,
		SessionStarred, SessionCalEventID, SessionLivestreamURL},
	TableSpeakers: {ID, Updated, SpeakerID, SpeakerName, SpeakerImageURL, SpeakerCompany,
		SpeakerAbstract, SpeakerURL},
	TableSessionsSpeakers: {ID, SessionID, SpeakerID},
	TableSessionsTracks:   {ID, SessionID, TrackID},
	TableSandbox: {ID, Updated, CompanyID, TrackID, BlockID, RoomID, CompanyName,
		CompanyDesc, CompanyURL, CompanyLogoURL, CompanyStarred},
	TableAnnouncements: {ID, Updated, AnnouncementID, AnnouncementTitle,
		AnnouncementActivityJSON, AnnouncementURL, AnnouncementDate},
	TableFeedback: {ID, Updated, SessionID, FeedbackSessionRating, FeedbackAnswerQ1,
		FeedbackAnswerQ2, FeedbackAnswerQ3, FeedbackAnswerQ4, FeedbackComments},
	TableMapMarkers: {ID, MarkerID, MarkerType, MarkerLatitude, MarkerLongitude,
		MarkerLabel, MarkerFloor, TrackID},
	TableMapTiles:       {ID, TileFloor, TileFile, TileURL},
	TableSessionsSearch: {SessionID, SearchBody},
	TableSearchSuggest:  {ID, SuggestText1},
}

// Columns returns the stored columns of t. The returned slice is a copy.
func Columns(t Table) []Column {
	cols := tableColumns[t]
	out := make([]Column, len(cols))
	copy(out, cols)
	return out
}

// ColumnNames returns the storage names of the stored columns of t.
func ColumnNames(t Table) []string {
	cols := tableColumns[t]
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.String()
	}
	return out
}

// HasColumn reports whether t stores a column with the given storage name.
func HasColumn(t Table, name string) bool {
	for _, c := range tableColumns[t] {
		if c.String() == name {
			return true
		}
	}
	return false
}

// KeyColumn returns the natural key column of t. Tables keyed by a pair
// (the many-to-many join tables) and the search table return false.
func KeyColumn(t Table) (Column, bool) {
	switch t {
	case TableBlocks:
		return BlockID, true
	case TableTracks:
		return TrackID, true
	case TableRooms:
		return RoomID, true
	case TableSessions, TableFeedback:
		return SessionID, true
	case TableSpeakers:
		return SpeakerID, true
	case TableSandbox:
		return CompanyID, true
	case TableAnnouncements:
		return AnnouncementID, true
	case TableMapMarkers:
		return MarkerID, true
	case TableMapTiles:
		return TileFloor, true
	case TableSearchSuggest:
		return SuggestText1, true
	default:
		return 0, false
	}
}
