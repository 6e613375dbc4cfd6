package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/confsched/pkg/contract"
	"github.com/mesh-intelligence/confsched/pkg/types"
)

func sampleArgs(r contract.Route) []string {
	args := make([]string, r.Arity())
	for i := range args {
		args[i] = "1"
	}
	return args
}

func TestRoutesCoverEveryRoute(t *testing.T) {
	for _, r := range contract.AllRoutes() {
		_, ok := routes[r]
		assert.True(t, ok, "no router entry for %s", r)
	}
	assert.Len(t, routes, len(contract.AllRoutes()))
}

func TestRoutesHaveReadPlans(t *testing.T) {
	for _, r := range contract.AllRoutes() {
		if r == contract.Root || r == contract.SearchIndex {
			continue
		}
		t.Run(r.String(), func(t *testing.T) {
			entry := routes[r]
			require.NotNil(t, entry.expanded)

			res := contract.MustBuild(r, sampleArgs(r)...)
			sb, err := entry.expanded(res)
			require.NoError(t, err)
			_, exprs := sb.defaultProjection(r.Table())
			_, _, err = sb.query(exprs, contract.DefaultSort(r.Table()), 0)
			assert.NoError(t, err)
		})
	}
}

func TestWritePlansTargetRouteTable(t *testing.T) {
	for _, r := range contract.AllRoutes() {
		entry := routes[r]
		if entry.simple == nil {
			continue
		}
		t.Run(r.String(), func(t *testing.T) {
			sb, err := entry.simple(contract.MustBuild(r, sampleArgs(r)...))
			require.NoError(t, err)
			require.True(t, sb.hasTable)
			switch r {
			case contract.SessionSpeakers:
				assert.Equal(t, contract.TableSessionsSpeakers, sb.target)
			case contract.SessionTracks:
				assert.Equal(t, contract.TableSessionsTracks, sb.target)
			default:
				assert.Equal(t, r.Table(), sb.target)
			}
		})
	}
}

func TestInsertRulesHaveKeys(t *testing.T) {
	for r, entry := range routes {
		rule := entry.insert
		if rule == nil {
			continue
		}
		if rule.key != noColumn {
			assert.True(t, contract.HasColumn(rule.table, rule.key.String()), "%s: key %s not in %s", r, rule.key, rule.table)
			assert.Equal(t, 1, rule.item.Arity(), "%s: item route must take the key", r)
		}
		if rule.pathCol != noColumn {
			assert.True(t, contract.HasColumn(rule.table, rule.pathCol.String()), "%s", r)
		}
	}
}

func TestNumericArgsAreValidated(t *testing.T) {
	tests := []struct {
		route contract.Route
		args  []string
	}{
		{contract.SessionsAt, []string{"noon"}},
		{contract.SessionsRoomAfter, []string{"r1", "later"}},
		{contract.BlocksBetween, []string{"1", "x"}},
	}
	for _, tt := range tests {
		_, err := routes[tt.route].expanded(contract.MustBuild(tt.route, tt.args...))
		assert.ErrorIs(t, err, types.ErrInvalidArgs, tt.route.String())
	}
}

func TestTrackSessionsAllHasNoPredicate(t *testing.T) {
	sb, err := routes[contract.TrackSessions].expanded(contract.MustBuild(contract.TrackSessions, contract.AllTrackID))
	require.NoError(t, err)
	assert.Empty(t, sb.selection())
	assert.Equal(t, "sessions.session_id", sb.groupBy)

	sb, err = routes[contract.TrackSessions].expanded(contract.MustBuild(contract.TrackSessions, "android"))
	require.NoError(t, err)
	assert.Equal(t, "(sessions_tracks.track_id=?)", sb.selection())
	assert.Empty(t, sb.groupBy)
}

func TestApplyFilter(t *testing.T) {
	sb := newSelection().table("sessions")
	applyFilter(sb, contract.FilterSessionsCodelabsOnly)
	applyFilter(sb, "bogus")
	assert.Equal(t, "("+filterSessionsCodelabsOnly+")", sb.selection())

	sb = newSelection().table("sessions")
	applyFilter(sb, contract.FilterOfficeHoursOnly)
	assert.Equal(t, []any{contract.SessionTypeOfficeHours}, sb.selectionArgs())
}

func TestLookupRouteUnknown(t *testing.T) {
	_, err := lookupRoute(contract.Route(9999))
	assert.ErrorIs(t, err, types.ErrUnsupportedResource)
}
