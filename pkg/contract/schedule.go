package contract

// Special values for the updated column.
const (
	// UpdatedNever marks an entry that has never been updated or does not exist yet.
	UpdatedNever int64 = -2
	// UpdatedUnknown marks an entry whose last update time is not known.
	UpdatedUnknown int64 = -1
)

// Block types.
const (
	BlockTypeGeneric     = "generic"
	BlockTypeFood        = "food"
	BlockTypeSession     = "session"
	BlockTypeCodelab     = "codelab"
	BlockTypeKeynote     = "keynote"
	BlockTypeOfficeHours = "officehours"
	BlockTypeSandbox     = "sandbox_only"
)

// Session types.
const (
	SessionTypeSession     = "SESSION"
	SessionTypeCodelab     = "CODE_LAB"
	SessionTypeKeynote     = "KEYNOTE"
	SessionTypeOfficeHours = "OFFICE_HOURS"
	SessionTypeSandbox     = "DEVELOPER_SANDBOX"
)

// Track meta classification.
const (
	TrackMetaNone = iota
	TrackMetaSessionsOnly
	TrackMetaSandboxOfficeHoursOnly
	TrackMetaOfficeHoursOnly
)

// AllTrackID is the pseudo track id meaning "every track".
const AllTrackID = "all"

// Values of the filter query parameter.
const (
	// FilterSessionsCodelabsOnly excludes keynotes and office hours.
	FilterSessionsCodelabsOnly = "sessions_codelabs_only"
	FilterOfficeHoursOnly      = "office_hours_only"
)

// Default sort orders.
var defaultSorts = map[Table]string{
	TableBlocks:        BlockStart.String() + " ASC, " + BlockEnd.String() + " ASC",
	TableTracks:        TrackLevel.String() + ", " + TrackOrderInLevel.String() + ", " + TrackName.String(),
	TableRooms:         RoomFloor.String() + " ASC, " + RoomName.String() + " COLLATE NOCASE ASC",
	TableSessions:      BlockStart.String() + " ASC, " + SessionTitle.String() + " COLLATE NOCASE ASC",
	TableSpeakers:      SpeakerName.String() + " COLLATE NOCASE ASC",
	TableSandbox:       CompanyName.String() + " COLLATE NOCASE ASC",
	TableAnnouncements: AnnouncementDate.String() + " COLLATE NOCASE DESC",
	TableFeedback:      ID.String() + " ASC",
	TableMapMarkers:    MarkerFloor.String() + " ASC, " + MarkerID.String() + " ASC",
	TableMapTiles:      TileFloor.String() + " ASC",
	TableSearchSuggest: SuggestText1.String() + " COLLATE NOCASE ASC",
}

// DefaultSort returns the canonical ORDER BY expression for rows of t, or ""
// when the table has no canonical order.
func DefaultSort(t Table) string {
	return defaultSorts[t]
}

// Reusable predicate fragments. Each is written against unqualified column
// names and is meant to be layered onto a query plan with its Args helper.
var (
	// EmptySessionsSelection matches session-type blocks with no sessions.
	// It relies on the SessionsCount virtual column of the blocks plan.
	EmptySessionsSelection = BlockType.String() + " IN ('" + BlockTypeSession + "','" +
		BlockTypeCodelab + "','" + BlockTypeOfficeHours + "') AND " + SessionsCount.String() + " = 0"

	// LivestreamSelection matches sessions with a livestream.
	LivestreamSelection = SessionLivestreamURL.String() + " IS NOT NULL AND " +
		SessionLivestreamURL.String() + " != ''"

	// AtTimeSelection matches rows whose block is running at a given time.
	AtTimeSelection = BlockStart.String() + " < ? AND " + BlockEnd.String() + " > ?"

	// UpcomingSelection matches livestreamed sessions in the next block after a given time.
	UpcomingSelection = BlockStart.String() + " = (SELECT MIN(" + BlockStart.String() + ") FROM " +
		"blocks LEFT OUTER JOIN sessions ON blocks.block_id=sessions.block_id WHERE " +
		LivestreamSelection + " AND " + BlockStart.String() + " > ?)"

	// SandboxAtTimeInRoomSelection matches sandbox companies present in a room at a given time.
	SandboxAtTimeInRoomSelection = BlockStart.String() + " < ? AND " + BlockEnd.String() +
		" > ? AND " + RoomID.In(TableSandbox) + " = ?"
)

// AtTimeArgs returns the arguments for AtTimeSelection.
func AtTimeArgs(millis int64) []any {
	return []any{millis, millis}
}

// UpcomingArgs returns the arguments for UpcomingSelection.
func UpcomingArgs(minMillis int64) []any {
	return []any{minMillis}
}

// SandboxAtTimeInRoomArgs returns the arguments for SandboxAtTimeInRoomSelection.
func SandboxAtTimeInRoomArgs(millis int64, roomID string) []any {
	return []any{millis, millis, roomID}
}
