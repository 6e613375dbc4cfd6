package contract

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/confsched/pkg/types"
)

// Identifier scheme and authority.
const (
	Scheme    = "content"
	Authority = "com.meshintelligence.confsched"
)

// Query parameters recognized on identifiers.
const (
	ParamFilter = "filter"
	ParamLimit  = "limit"
	// ParamCallerIsSync is the trust flag: "true" marks a mutation as coming
	// from the sync collaborator, which suppresses upstream propagation of
	// the resulting change notification.
	ParamCallerIsSync = "caller_is_syncadapter"
)

// ErrNoMatch is returned by Parse for identifiers that match no route.
var ErrNoMatch = fmt.Errorf("%w: no route matches", types.ErrUnsupportedResource)

// Route is a recognized identifier shape (collection plus variant). Values
// are stable match codes.
type Route int

// Routes. The numbering groups routes by collection.
const (
	Root Route = 0

	Blocks               Route = 100
	BlocksBetween        Route = 101
	Block                Route = 102
	BlockSessions        Route = 103
	BlockStarredSessions Route = 104

	Tracks        Route = 200
	Track         Route = 201
	TrackSessions Route = 202
	TrackSandbox  Route = 203

	Rooms        Route = 300
	Room         Route = 301
	RoomSessions Route = 302

	Sessions          Route = 400
	SessionsStarred   Route = 401
	SessionsWithTrack Route = 402
	SessionsSearch    Route = 403
	SessionsAt        Route = 404
	Session           Route = 405
	SessionSpeakers   Route = 406
	SessionTracks     Route = 407
	SessionWithTrack  Route = 408
	SessionsRoomAfter Route = 410

	Speakers        Route = 500
	Speaker         Route = 501
	SpeakerSessions Route = 502

	Sandbox        Route = 600
	SandboxSearch  Route = 603
	SandboxCompany Route = 604

	Announcements Route = 700
	Announcement  Route = 701

	SearchSuggest Route = 800
	SearchIndex   Route = 801

	MapMarkers      Route = 900
	MapMarkersFloor Route = 901
	MapMarker       Route = 902

	MapTiles Route = 1000
	MapTile  Route = 1001

	Feedback        Route = 1002
	SessionFeedback Route = 1003
)

type routeDef struct {
	route   Route
	pattern string
	// table is the table whose rows the route yields.
	table Table
	item  bool
	// typed is false for routes without a MIME type.
	typed bool
	alias bool
	segs  []string
}

// routeDefs is ordered for matching: when two patterns of equal length
// could match, literal segments are declared before wildcards.
var routeDefs = []routeDef{
	{route: Blocks, pattern: "blocks", table: TableBlocks, typed: true},
	{route: BlocksBetween, pattern: "blocks/between/*/*", table: TableBlocks, typed: true},
	{route: Block, pattern: "blocks/*", table: TableBlocks, item: true, typed: true},
	{route: BlockSessions, pattern: "blocks/*/sessions", table: TableSessions, typed: true},
	{route: BlockStarredSessions, pattern: "blocks/*/sessions/starred", table: TableSessions, typed: true},

	{route: Tracks, pattern: "tracks", table: TableTracks, typed: true},
	{route: Track, pattern: "tracks/*", table: TableTracks, item: true, typed: true},
	{route: TrackSessions, pattern: "tracks/*/sessions", table: TableSessions, typed: true},
	{route: TrackSandbox, pattern: "tracks/*/sandbox", table: TableSandbox, typed: true},
	{route: TrackSandbox, pattern: "tracks/*/vendors", table: TableSandbox, typed: true, alias: true},

	{route: Rooms, pattern: "rooms", table: TableRooms, typed: true},
	{route: Room, pattern: "rooms/*", table: TableRooms, item: true, typed: true},
	{route: RoomSessions, pattern: "rooms/*/sessions", table: TableSessions, typed: true},

	{route: Sessions, pattern: "sessions", table: TableSessions, typed: true},
	{route: SessionsStarred, pattern: "sessions/starred", table: TableSessions, typed: true},
	{route: SessionsWithTrack, pattern: "sessions/with_track", table: TableSessions, typed: true},
	{route: SessionsSearch, pattern: "sessions/search/*", table: TableSessions, typed: true},
	{route: SessionsAt, pattern: "sessions/at/*", table: TableSessions, typed: true},
	{route: SessionsRoomAfter, pattern: "sessions/room/*/after/*", table: TableSessions, typed: true},
	{route: Session, pattern: "sessions/*", table: TableSessions, item: true, typed: true},
	{route: SessionSpeakers, pattern: "sessions/*/speakers", table: TableSpeakers, typed: true},
	{route: SessionTracks, pattern: "sessions/*/tracks", table: TableTracks, typed: true},
	{route: SessionWithTrack, pattern: "sessions/*/with_track", table: TableSessions, typed: true},
	{route: SessionWithTrack, pattern: "sessions/with_track/*", table: TableSessions, typed: true, alias: true},

	{route: Speakers, pattern: "speakers", table: TableSpeakers, typed: true},
	{route: Speaker, pattern: "speakers/*", table: TableSpeakers, item: true, typed: true},
	{route: SpeakerSessions, pattern: "speakers/*/sessions", table: TableSessions, typed: true},

	{route: Sandbox, pattern: "sandbox", table: TableSandbox, typed: true},
	{route: SandboxSearch, pattern: "sandbox/search/*", table: TableSandbox, typed: true},
	{route: SandboxCompany, pattern: "sandbox/*", table: TableSandbox, item: true, typed: true},
	{route: Sandbox, pattern: "vendors", table: TableSandbox, typed: true, alias: true},
	{route: SandboxSearch, pattern: "vendors/search/*", table: TableSandbox, typed: true, alias: true},
	{route: SandboxCompany, pattern: "vendors/*", table: TableSandbox, item: true, typed: true, alias: true},

	{route: Announcements, pattern: "announcements", table: TableAnnouncements, typed: true},
	{route: Announcement, pattern: "announcements/*", table: TableAnnouncements, item: true, typed: true},

	{route: SearchSuggest, pattern: "search_suggest_query", table: TableSearchSuggest},
	{route: SearchIndex, pattern: "search_index", table: TableSessionsSearch},

	{route: MapMarkers, pattern: "mapmarkers", table: TableMapMarkers, typed: true},
	{route: MapMarkersFloor, pattern: "mapmarkers/floor/*", table: TableMapMarkers, typed: true},
	{route: MapMarker, pattern: "mapmarkers/*", table: TableMapMarkers, item: true, typed: true},

	{route: MapTiles, pattern: "maptiles", table: TableMapTiles, typed: true},
	{route: MapTile, pattern: "maptiles/*", table: TableMapTiles, item: true, typed: true},

	{route: Feedback, pattern: "feedback", table: TableFeedback, typed: true},
	{route: SessionFeedback, pattern: "feedback/*", table: TableFeedback, item: true, typed: true},
}

// canonical maps each route to its non-alias definition.
var canonical = map[Route]*routeDef{}

func init() {
	for i := range routeDefs {
		d := &routeDefs[i]
		d.segs = strings.Split(d.pattern, "/")
		if !d.alias {
			canonical[d.route] = d
		}
	}
}

// AllRoutes lists every route, Root included, in declaration order.
func AllRoutes() []Route {
	out := []Route{Root}
	for _, d := range routeDefs {
		if !d.alias {
			out = append(out, d.route)
		}
	}
	return out
}

// String returns the canonical path pattern of the route, "/" for Root.
func (r Route) String() string {
	if r == Root {
		return "/"
	}
	if d, ok := canonical[r]; ok {
		return d.pattern
	}
	return "route(" + strconv.Itoa(int(r)) + ")"
}

// Table returns the table whose rows the route yields.
func (r Route) Table() Table {
	if d, ok := canonical[r]; ok {
		return d.table
	}
	return -1
}

// Arity returns the number of path arguments the route takes.
func (r Route) Arity() int {
	d, ok := canonical[r]
	if !ok {
		return 0
	}
	n := 0
	for _, s := range d.segs {
		if s == "*" {
			n++
		}
	}
	return n
}

// IsItem reports whether the route names a single item.
func (r Route) IsItem() bool {
	d, ok := canonical[r]
	return ok && d.item
}

func (r Route) valid() bool {
	_, ok := canonical[r]
	return ok || r == Root
}

// Resource is a parsed or built identifier: a route, the path arguments in
// pattern order, and query parameters.
type Resource struct {
	Route  Route
	Args   []string
	Params url.Values
}

// Build returns the identifier for route with the given path arguments. It
// never touches storage.
func Build(route Route, args ...string) (Resource, error) {
	if !route.valid() {
		return Resource{}, fmt.Errorf("%w: %v", types.ErrUnsupportedResource, route)
	}
	if want := route.Arity(); len(args) != want {
		return Resource{}, fmt.Errorf("%w: %s takes %d arguments, got %d", types.ErrInvalidArgs, route, want, len(args))
	}
	for i, a := range args {
		if a == "" {
			return Resource{}, fmt.Errorf("%w: %s argument %d is empty", types.ErrInvalidArgs, route, i)
		}
	}
	out := make([]string, len(args))
	copy(out, args)
	res := Resource{Route: route, Args: out}
	// An argument equal to a literal segment can make the path match another
	// route, e.g. sessions/starred.
	back, err := Parse(res.Path())
	if err != nil || back.Route != route || !slices.Equal(back.Args, out) {
		return Resource{}, fmt.Errorf("%w: %s arguments %q name another identifier", types.ErrInvalidArgs, route, args)
	}
	return res, nil
}

// MustBuild is like Build but panics on error. Use it with constant arguments.
func MustBuild(route Route, args ...string) Resource {
	r, err := Build(route, args...)
	if err != nil {
		panic(err)
	}
	return r
}

// Parse resolves an identifier. It accepts the full form
// "content://<authority>/<path>?<params>" or a bare path such as
// "sessions/abc". Unknown identifiers yield ErrNoMatch.
func Parse(s string) (Resource, error) {
	u, err := url.Parse(s)
	if err != nil {
		return Resource{}, fmt.Errorf("%w: %q: %v", ErrNoMatch, s, err)
	}
	if u.Scheme != "" && (u.Scheme != Scheme || u.Host != Authority) {
		return Resource{}, fmt.Errorf("%w: %q", ErrNoMatch, s)
	}
	params := u.Query()
	path := strings.Trim(u.EscapedPath(), "/")
	if path == "" {
		return Resource{Route: Root, Params: params}, nil
	}
	segs := strings.Split(path, "/")
	for i := range routeDefs {
		if args, ok := routeDefs[i].match(segs); ok {
			return Resource{Route: routeDefs[i].route, Args: args, Params: params}, nil
		}
	}
	return Resource{}, fmt.Errorf("%w: %q", ErrNoMatch, s)
}

func (d *routeDef) match(segs []string) ([]string, bool) {
	if len(segs) != len(d.segs) {
		return nil, false
	}
	var args []string
	for i, p := range d.segs {
		if p != "*" {
			if segs[i] != p {
				return nil, false
			}
			continue
		}
		v, err := url.PathUnescape(segs[i])
		if err != nil || v == "" {
			return nil, false
		}
		args = append(args, v)
	}
	return args, true
}

// Path returns the escaped path of the identifier without a leading slash.
func (r Resource) Path() string {
	d, ok := canonical[r.Route]
	if !ok {
		return ""
	}
	segs := make([]string, len(d.segs))
	n := 0
	for i, p := range d.segs {
		if p == "*" && n < len(r.Args) {
			segs[i] = url.PathEscape(r.Args[n])
			n++
			continue
		}
		segs[i] = p
	}
	return strings.Join(segs, "/")
}

// String renders the full identifier.
func (r Resource) String() string {
	u := url.URL{Scheme: Scheme, Host: Authority}
	if p := r.Path(); p != "" {
		u.RawPath = "/" + p
		u.Path, _ = url.PathUnescape(u.RawPath)
	} else {
		u.Path = "/"
	}
	if len(r.Params) > 0 {
		u.RawQuery = r.Params.Encode()
	}
	return u.String()
}

// Arg returns path argument i, or "".
func (r Resource) Arg(i int) string {
	if i < 0 || i >= len(r.Args) {
		return ""
	}
	return r.Args[i]
}

// Int64Arg returns path argument i parsed as a base-10 integer.
func (r Resource) Int64Arg(i int) (int64, error) {
	n, err := strconv.ParseInt(r.Arg(i), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s argument %d: %v", types.ErrInvalidArgs, r.Route, i, err)
	}
	return n, nil
}

// Param returns the value of query parameter key.
func (r Resource) Param(key string) string {
	return r.Params.Get(key)
}

// WithParam returns a copy of r with query parameter key set to value.
func (r Resource) WithParam(key, value string) Resource {
	params := url.Values{}
	for k, v := range r.Params {
		params[k] = append([]string(nil), v...)
	}
	params.Set(key, value)
	r.Params = params
	return r
}

// WithSync returns a copy of r carrying the sync trust flag.
func (r Resource) WithSync() Resource {
	return r.WithParam(ParamCallerIsSync, "true")
}

// FromSync reports whether r carries the sync trust flag.
func (r Resource) FromSync() bool {
	return r.Params.Get(ParamCallerIsSync) == "true"
}

// IsRoot reports whether r names the whole store.
func (r Resource) IsRoot() bool {
	return r.Route == Root
}

// MIMEType returns the collection or item type tag of route. Routes that
// only exist for side effects (Root, SearchSuggest, SearchIndex) have none.
func MIMEType(route Route) (string, error) {
	d, ok := canonical[route]
	if !ok || !d.typed {
		return "", fmt.Errorf("%w: no type for %v", types.ErrUnsupportedResource, route)
	}
	kind := "dir"
	if d.item {
		kind = "item"
	}
	return "vnd.confsched.cursor." + kind + "/vnd.confsched." + mimeSuffix[d.table], nil
}

var mimeSuffix = map[Table]string{
	TableBlocks:        "block",
	TableTracks:        "track",
	TableRooms:         "room",
	TableSessions:      "session",
	TableSpeakers:      "speaker",
	TableSandbox:       "sandbox",
	TableAnnouncements: "announcement",
	TableMapMarkers:    "mapmarker",
	TableMapTiles:      "maptiles",
	TableFeedback:      "session_feedback",
}
