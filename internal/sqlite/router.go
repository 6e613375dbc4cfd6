package sqlite

import (
	"fmt"

	"github.com/mesh-intelligence/confsched/pkg/contract"
	"github.com/mesh-intelligence/confsched/pkg/types"
)

// planFunc builds a selection for a parsed resource.
type planFunc func(res contract.Resource) (*selectionBuilder, error)

// insertRule describes where an insert on a route lands and which item
// identifier it returns.
type insertRule struct {
	table contract.Table
	// pathCol, when set, is filled from the first path argument.
	pathCol contract.Column
	// key is the column whose value names the returned item; noColumn
	// returns item without arguments.
	key  contract.Column
	item contract.Route
}

const noColumn contract.Column = -1

// routeEntry keeps the read plan and the write plans of a route side by
// side. A nil field means the route does not support that operation.
type routeEntry struct {
	expanded planFunc
	simple   planFunc
	insert   *insertRule
}

// routes has an entry for every contract.Route. Root and SearchIndex are
// dispatched before the table is consulted and carry empty entries.
var routes = map[contract.Route]routeEntry{
	contract.Root:        {},
	contract.SearchIndex: {},

	contract.Blocks: {
		expanded: func(contract.Resource) (*selectionBuilder, error) {
			return blockAggregates(newSelection().table(contract.TableBlocks.String()), true), nil
		},
		simple: whole(contract.TableBlocks),
		insert: &insertRule{table: contract.TableBlocks, pathCol: noColumn, key: contract.BlockID, item: contract.Block},
	},
	contract.BlocksBetween: {
		expanded: func(res contract.Resource) (*selectionBuilder, error) {
			start, err := res.Int64Arg(0)
			if err != nil {
				return nil, err
			}
			end, err := res.Int64Arg(1)
			if err != nil {
				return nil, err
			}
			return blockAggregates(newSelection().table(contract.TableBlocks.String()), false).
				where(blocksBetweenSelection, start, end), nil
		},
	},
	contract.Block: {
		expanded: func(res contract.Resource) (*selectionBuilder, error) {
			return blockAggregates(newSelection().table(contract.TableBlocks.String()), false).
				where(contract.BlockID.In(contract.TableBlocks)+"=?", res.Arg(0)), nil
		},
		simple: keyed(contract.TableBlocks, contract.BlockID),
	},
	contract.BlockSessions: {
		expanded: func(res contract.Resource) (*selectionBuilder, error) {
			return blockAggregates(sessionsPlan(sessionsJoinBlocksRooms), false).
				where(contract.BlockID.In(contract.TableSessions)+"=?", res.Arg(0)), nil
		},
	},
	contract.BlockStarredSessions: {
		expanded: func(res contract.Resource) (*selectionBuilder, error) {
			return blockAggregates(sessionsPlan(sessionsJoinBlocksRooms), false).
				where(contract.BlockID.In(contract.TableSessions)+"=?", res.Arg(0)).
				where(contract.SessionStarred.In(contract.TableSessions) + "=1"), nil
		},
	},

	contract.Tracks: {
		expanded: func(contract.Resource) (*selectionBuilder, error) {
			return newSelection().table(contract.TableTracks.String()).
				mapExpr(contract.SessionsCount, subTrackSessionsCount).
				mapExpr(contract.OfficeHoursCount, subTrackOfficeHoursCount).
				mapExpr(contract.SandboxCount, subTrackSandboxCount), nil
		},
		simple: whole(contract.TableTracks),
		insert: &insertRule{table: contract.TableTracks, pathCol: noColumn, key: contract.TrackID, item: contract.Track},
	},
	contract.Track: {
		expanded: keyed(contract.TableTracks, contract.TrackID),
		simple:   keyed(contract.TableTracks, contract.TrackID),
	},
	contract.TrackSessions: {
		expanded: func(res contract.Resource) (*selectionBuilder, error) {
			b := sessionsPlan(sessionsTracksJoinSessionsBlocksRooms)
			if id := res.Arg(0); id != contract.AllTrackID {
				b.where(contract.TrackID.In(contract.TableSessionsTracks)+"=?", id)
			} else {
				// One row per session even when it belongs to several tracks.
				b.groupByExpr(contract.SessionID.In(contract.TableSessions))
			}
			return b, nil
		},
	},
	contract.TrackSandbox: {
		expanded: func(res contract.Resource) (*selectionBuilder, error) {
			return sandboxPlan().where(contract.TrackID.In(contract.TableSandbox)+"=?", res.Arg(0)), nil
		},
	},

	contract.Rooms: {
		expanded: whole(contract.TableRooms),
		simple:   whole(contract.TableRooms),
		insert:   &insertRule{table: contract.TableRooms, pathCol: noColumn, key: contract.RoomID, item: contract.Room},
	},
	contract.Room: {
		expanded: keyed(contract.TableRooms, contract.RoomID),
		simple:   keyed(contract.TableRooms, contract.RoomID),
	},
	contract.RoomSessions: {
		expanded: func(res contract.Resource) (*selectionBuilder, error) {
			return sessionsPlan(sessionsJoinBlocksRooms).
				where(contract.RoomID.In(contract.TableSessions)+"=?", res.Arg(0)), nil
		},
	},

	contract.Sessions: {
		expanded: func(contract.Resource) (*selectionBuilder, error) {
			return sessionsPlan(sessionsJoinBlocksRooms), nil
		},
		simple: whole(contract.TableSessions),
		insert: &insertRule{table: contract.TableSessions, pathCol: noColumn, key: contract.SessionID, item: contract.Session},
	},
	contract.SessionsStarred: {
		expanded: func(contract.Resource) (*selectionBuilder, error) {
			return sessionsPlan(sessionsJoinBlocksRooms).
				where(contract.SessionStarred.In(contract.TableSessions) + "=1"), nil
		},
	},
	contract.SessionsWithTrack: {
		expanded: func(contract.Resource) (*selectionBuilder, error) {
			return withTrackPlan(), nil
		},
	},
	contract.SessionWithTrack: {
		expanded: func(res contract.Resource) (*selectionBuilder, error) {
			return withTrackPlan().
				where(contract.SessionID.In(contract.TableSessions)+"=?", res.Arg(0)), nil
		},
	},
	contract.SessionsSearch: {
		expanded: func(res contract.Resource) (*selectionBuilder, error) {
			return sessionsPlan(sessionsSearchJoinSessionsBlocksRooms).
				mapExpr(contract.SearchSnippet, subSessionsSnippet).
				where(contract.TableSessionsSearch.String()+" MATCH ?", matchQuery(res.Arg(0))), nil
		},
	},
	contract.SessionsAt: {
		expanded: func(res contract.Resource) (*selectionBuilder, error) {
			t, err := res.Int64Arg(0)
			if err != nil {
				return nil, err
			}
			return sessionsPlan(sessionsJoinBlocksRooms).where(sessionsAtSelection, t, t), nil
		},
	},
	contract.SessionsRoomAfter: {
		expanded: func(res contract.Resource) (*selectionBuilder, error) {
			t, err := res.Int64Arg(1)
			if err != nil {
				return nil, err
			}
			return sessionsPlan(sessionsJoinBlocksRooms).
				where(contract.RoomID.In(contract.TableSessions)+"=?", res.Arg(0)).
				where(sessionsRoomAfterSelection, t, t, t), nil
		},
	},
	contract.Session: {
		expanded: func(res contract.Resource) (*selectionBuilder, error) {
			return sessionsPlan(sessionsJoinBlocksRooms).
				where(contract.SessionID.In(contract.TableSessions)+"=?", res.Arg(0)), nil
		},
		simple: keyed(contract.TableSessions, contract.SessionID),
	},
	contract.SessionSpeakers: {
		expanded: func(res contract.Resource) (*selectionBuilder, error) {
			return newSelection().table(sessionsSpeakersJoinSpeakers).
				mapToTable(contract.ID, contract.TableSpeakers).
				mapToTable(contract.SpeakerID, contract.TableSpeakers).
				where(contract.SessionID.In(contract.TableSessionsSpeakers)+"=?", res.Arg(0)), nil
		},
		simple: keyed(contract.TableSessionsSpeakers, contract.SessionID),
		insert: &insertRule{table: contract.TableSessionsSpeakers, pathCol: contract.SessionID, key: contract.SpeakerID, item: contract.Speaker},
	},
	contract.SessionTracks: {
		expanded: func(res contract.Resource) (*selectionBuilder, error) {
			return newSelection().table(sessionsTracksJoinTracks).
				mapToTable(contract.ID, contract.TableTracks).
				mapToTable(contract.TrackID, contract.TableTracks).
				where(contract.SessionID.In(contract.TableSessionsTracks)+"=?", res.Arg(0)), nil
		},
		simple: keyed(contract.TableSessionsTracks, contract.SessionID),
		insert: &insertRule{table: contract.TableSessionsTracks, pathCol: contract.SessionID, key: contract.TrackID, item: contract.Track},
	},

	contract.Speakers: {
		expanded: whole(contract.TableSpeakers),
		simple:   whole(contract.TableSpeakers),
		insert:   &insertRule{table: contract.TableSpeakers, pathCol: noColumn, key: contract.SpeakerID, item: contract.Speaker},
	},
	contract.Speaker: {
		expanded: keyed(contract.TableSpeakers, contract.SpeakerID),
		simple:   keyed(contract.TableSpeakers, contract.SpeakerID),
	},
	contract.SpeakerSessions: {
		expanded: func(res contract.Resource) (*selectionBuilder, error) {
			return sessionsPlan(sessionsSpeakersJoinSessionsBlocksRooms).
				where(contract.SpeakerID.In(contract.TableSessionsSpeakers)+"=?", res.Arg(0)), nil
		},
	},

	contract.Sandbox: {
		expanded: func(contract.Resource) (*selectionBuilder, error) {
			return sandboxPlan(), nil
		},
		simple: whole(contract.TableSandbox),
		insert: &insertRule{table: contract.TableSandbox, pathCol: noColumn, key: contract.CompanyID, item: contract.SandboxCompany},
	},
	contract.SandboxSearch: {
		expanded: func(res contract.Resource) (*selectionBuilder, error) {
			pattern := "%" + res.Arg(0) + "%"
			return sandboxPlan().where(sandboxSearchSelection, pattern, pattern), nil
		},
	},
	contract.SandboxCompany: {
		expanded: func(res contract.Resource) (*selectionBuilder, error) {
			return sandboxPlan().where(contract.CompanyID.In(contract.TableSandbox)+"=?", res.Arg(0)), nil
		},
		simple: keyed(contract.TableSandbox, contract.CompanyID),
	},

	contract.Announcements: {
		expanded: whole(contract.TableAnnouncements),
		simple:   whole(contract.TableAnnouncements),
		insert:   &insertRule{table: contract.TableAnnouncements, pathCol: noColumn, key: contract.AnnouncementID, item: contract.Announcement},
	},
	contract.Announcement: {
		expanded: keyed(contract.TableAnnouncements, contract.AnnouncementID),
		simple:   keyed(contract.TableAnnouncements, contract.AnnouncementID),
	},

	contract.SearchSuggest: {
		expanded: func(contract.Resource) (*selectionBuilder, error) {
			return newSelection().table(contract.TableSearchSuggest.String()).
				mapExpr(contract.SuggestIntentQuery, subSuggestIntentQuery), nil
		},
		simple: whole(contract.TableSearchSuggest),
		insert: &insertRule{table: contract.TableSearchSuggest, pathCol: noColumn, key: noColumn, item: contract.SearchSuggest},
	},

	contract.MapMarkers: {
		expanded: func(contract.Resource) (*selectionBuilder, error) {
			return mapMarkersPlan(), nil
		},
		simple: whole(contract.TableMapMarkers),
		insert: &insertRule{table: contract.TableMapMarkers, pathCol: noColumn, key: contract.MarkerID, item: contract.MapMarker},
	},
	contract.MapMarkersFloor: {
		expanded: func(res contract.Resource) (*selectionBuilder, error) {
			return mapMarkersPlan().where(contract.MarkerFloor.In(contract.TableMapMarkers)+"=?", res.Arg(0)), nil
		},
		simple: keyed(contract.TableMapMarkers, contract.MarkerFloor),
	},
	contract.MapMarker: {
		expanded: func(res contract.Resource) (*selectionBuilder, error) {
			return mapMarkersPlan().where(contract.MarkerID.In(contract.TableMapMarkers)+"=?", res.Arg(0)), nil
		},
		simple: keyed(contract.TableMapMarkers, contract.MarkerID),
	},

	contract.MapTiles: {
		expanded: whole(contract.TableMapTiles),
		simple:   whole(contract.TableMapTiles),
		insert:   &insertRule{table: contract.TableMapTiles, pathCol: noColumn, key: contract.TileFloor, item: contract.MapTile},
	},
	contract.MapTile: {
		expanded: keyed(contract.TableMapTiles, contract.TileFloor),
		simple:   keyed(contract.TableMapTiles, contract.TileFloor),
	},

	contract.Feedback: {
		expanded: whole(contract.TableFeedback),
		simple:   whole(contract.TableFeedback),
		insert:   &insertRule{table: contract.TableFeedback, pathCol: noColumn, key: contract.SessionID, item: contract.SessionFeedback},
	},
	contract.SessionFeedback: {
		expanded: keyed(contract.TableFeedback, contract.SessionID),
		simple:   keyed(contract.TableFeedback, contract.SessionID),
		insert:   &insertRule{table: contract.TableFeedback, pathCol: contract.SessionID, key: contract.SessionID, item: contract.SessionFeedback},
	},
}

// lookupRoute returns the entry for r, failing for routes the table does not
// know.
func lookupRoute(r contract.Route) (routeEntry, error) {
	e, ok := routes[r]
	if !ok {
		return routeEntry{}, fmt.Errorf("%w: %v", types.ErrUnsupportedResource, r)
	}
	return e, nil
}

// whole selects every row of t.
func whole(t contract.Table) planFunc {
	return func(contract.Resource) (*selectionBuilder, error) {
		return newSelection().writes(t), nil
	}
}

// keyed selects the rows of t whose col equals the first path argument.
func keyed(t contract.Table, col contract.Column) planFunc {
	return func(res contract.Resource) (*selectionBuilder, error) {
		return newSelection().writes(t).where(col.String()+"=?", res.Arg(0)), nil
	}
}

// sessionsPlan joins sessions to their block and room through expr and
// disambiguates the shared columns in favour of sessions.
func sessionsPlan(expr string) *selectionBuilder {
	return newSelection().table(expr).
		mapToTable(contract.ID, contract.TableSessions).
		mapToTable(contract.SessionID, contract.TableSessions).
		mapToTable(contract.BlockID, contract.TableSessions).
		mapToTable(contract.RoomID, contract.TableSessions).
		mapToTable(contract.BlockTitle, contract.TableBlocks).
		mapToTable(contract.BlockStart, contract.TableBlocks).
		mapToTable(contract.BlockEnd, contract.TableBlocks).
		mapToTable(contract.BlockType, contract.TableBlocks).
		mapToTable(contract.RoomName, contract.TableRooms)
}

// blockAggregates adds the per-block session counts, and with starred the
// columns describing the first starred session of the block.
func blockAggregates(b *selectionBuilder, starred bool) *selectionBuilder {
	b.mapExpr(contract.SessionsCount, subBlockSessionsCount).
		mapExpr(contract.NumStarredSessions, subBlockNumStarredSessions).
		mapExpr(contract.NumLivestreamedSessions, subBlockNumLivestreamedSessions)
	if starred {
		b.mapExpr(contract.StarredSessionID, subBlockStarredSessionID).
			mapExpr(contract.StarredSessionTitle, subBlockStarredSessionTitle).
			mapExpr(contract.StarredSessionHashtags, subBlockStarredSessionHashtags).
			mapExpr(contract.StarredSessionURL, subBlockStarredSessionURL).
			mapExpr(contract.StarredSessionLivestreamURL, subBlockStarredSessionLivestream).
			mapExpr(contract.StarredSessionRoomName, subBlockStarredSessionRoomName).
			mapExpr(contract.StarredSessionRoomID, subBlockStarredSessionRoomID)
	}
	return b
}

func withTrackPlan() *selectionBuilder {
	return newSelection().table(sessionsJoinTracksBlocks).
		mapToTable(contract.ID, contract.TableSessions).
		mapToTable(contract.SessionID, contract.TableSessions).
		mapToTable(contract.TrackID, contract.TableTracks).
		mapToTable(contract.TrackName, contract.TableTracks).
		mapToTable(contract.TrackColor, contract.TableTracks).
		mapToTable(contract.BlockID, contract.TableBlocks).
		mapToTable(contract.BlockStart, contract.TableBlocks).
		mapToTable(contract.BlockEnd, contract.TableBlocks)
}

func sandboxPlan() *selectionBuilder {
	return newSelection().table(sandboxJoinTracksBlocksRooms).
		mapToTable(contract.ID, contract.TableSandbox).
		mapToTable(contract.TrackID, contract.TableSandbox).
		mapToTable(contract.BlockID, contract.TableSandbox).
		mapToTable(contract.RoomID, contract.TableSandbox).
		mapToTable(contract.TrackName, contract.TableTracks).
		mapToTable(contract.TrackColor, contract.TableTracks).
		mapToTable(contract.BlockStart, contract.TableBlocks).
		mapToTable(contract.BlockEnd, contract.TableBlocks).
		mapToTable(contract.RoomName, contract.TableRooms)
}

func mapMarkersPlan() *selectionBuilder {
	return newSelection().table(mapMarkersJoinTracks).
		mapToTable(contract.ID, contract.TableMapMarkers).
		mapToTable(contract.TrackID, contract.TableMapMarkers).
		mapToTable(contract.TrackName, contract.TableTracks).
		mapToTable(contract.TrackColor, contract.TableTracks)
}

// applyFilter layers the predicate selected by the filter parameter onto b.
// Unknown values are ignored.
func applyFilter(b *selectionBuilder, filter string) {
	switch filter {
	case contract.FilterSessionsCodelabsOnly:
		b.where(filterSessionsCodelabsOnly)
	case contract.FilterOfficeHoursOnly:
		b.where(filterOfficeHoursOnly, contract.SessionTypeOfficeHours)
	}
}
