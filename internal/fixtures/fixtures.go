// Package fixtures loads conference data from files into a schedule store
// and exports it back. It plays the part of the sync collaborator: every
// write it makes carries the trust flag, so none of it is pushed upstream.
//
// A collection is read from the first of <name>.jsonl, <name>.yaml,
// <name>.yml or <name>.toml found in the directory. JSONL holds one object
// per line; YAML holds a list of mappings; TOML holds a [[records]] array.
package fixtures

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/confsched/internal/logging"
	"github.com/mesh-intelligence/confsched/pkg/contract"
	"github.com/mesh-intelligence/confsched/pkg/types"
)

// collection describes one fixture file and where its records land.
type collection struct {
	name  string
	route contract.Route
	table contract.Table
	// derive lists the fields a missing natural key is computed from.
	derive []contract.Column
}

// link describes a file of session link records. Each record carries a
// session_id and the key of the linked entity in other.
type link struct {
	name  string
	route contract.Route
	other contract.Column
}

// Collections in load order.
var collections = []collection{
	{"blocks", contract.Blocks, contract.TableBlocks, []contract.Column{contract.BlockStart, contract.BlockEnd}},
	{"tracks", contract.Tracks, contract.TableTracks, []contract.Column{contract.TrackName}},
	{"rooms", contract.Rooms, contract.TableRooms, []contract.Column{contract.RoomName}},
	{"speakers", contract.Speakers, contract.TableSpeakers, []contract.Column{contract.SpeakerName}},
	{"sessions", contract.Sessions, contract.TableSessions, []contract.Column{contract.SessionTitle}},
	{"sandbox", contract.Sandbox, contract.TableSandbox, []contract.Column{contract.CompanyName}},
	{"announcements", contract.Announcements, contract.TableAnnouncements, nil},
	{"mapmarkers", contract.MapMarkers, contract.TableMapMarkers, nil},
	{"maptiles", contract.MapTiles, contract.TableMapTiles, nil},
}

var links = []link{
	{"session_speakers", contract.SessionSpeakers, contract.SpeakerID},
	{"session_tracks", contract.SessionTracks, contract.TrackID},
}

// Summary counts what a Load or Export touched, by collection name.
type Summary struct {
	Records map[string]int
	// Skipped counts malformed JSONL lines.
	Skipped int
}

// Total is the number of records across all collections.
func (s Summary) Total() int {
	n := 0
	for _, c := range s.Records {
		n += c
	}
	return n
}

// Load reads every fixture file in dir and applies the records to p in a
// single batch, then rebuilds the search index. Missing files are skipped;
// a directory with no fixtures at all is an error.
func Load(ctx context.Context, p types.Provider, dir string) (Summary, error) {
	log := logging.Ctx(ctx).With().Str("dir", dir).Logger()
	sum := Summary{Records: map[string]int{}}
	var ops []types.Operation

	for _, c := range collections {
		records, skipped, found, err := readCollection(dir, c.name)
		if err != nil {
			return sum, err
		}
		if !found {
			continue
		}
		sum.Skipped += skipped
		target := contract.MustBuild(c.route).WithSync().String()
		for i, rec := range records {
			if err := fillKey(c, rec); err != nil {
				return sum, fmt.Errorf("%s record %d: %w", c.name, i, err)
			}
			ops = append(ops, trusted(types.NewInsert(target, rec)))
		}
		sum.Records[c.name] = len(records)
	}

	for _, l := range links {
		records, skipped, found, err := readCollection(dir, l.name)
		if err != nil {
			return sum, err
		}
		if !found {
			continue
		}
		sum.Skipped += skipped
		for i, rec := range records {
			session := rec.String(contract.SessionID.String())
			res, err := contract.Build(l.route, session)
			if err != nil {
				return sum, fmt.Errorf("%s record %d: %w", l.name, i, err)
			}
			values := types.Values{l.other.String(): rec[l.other.String()]}
			ops = append(ops, trusted(types.NewInsert(res.WithSync().String(), values)))
		}
		sum.Records[l.name] = len(records)
	}

	if len(sum.Records) == 0 {
		return sum, fmt.Errorf("%w: no fixture files in %s", ErrNoFixtures, dir)
	}

	if _, err := p.ApplyBatch(ctx, ops); err != nil {
		return sum, fmt.Errorf("applying fixtures: %w", err)
	}
	if _, err := p.Update(ctx, contract.MustBuild(contract.SearchIndex).String(), nil, ""); err != nil {
		return sum, fmt.Errorf("rebuilding search index: %w", err)
	}
	log.Info().Int("records", sum.Total()).Int("skipped", sum.Skipped).Msg("fixtures loaded")
	return sum, nil
}

// ErrNoFixtures is returned by Load when dir holds no recognised files.
var ErrNoFixtures = errors.New("no fixtures")

func trusted(op types.Operation) types.Operation {
	op.FromSync = true
	return op
}

// fillKey derives the natural key of rec when it is absent.
func fillKey(c collection, rec types.Values) error {
	key, ok := contract.KeyColumn(c.table)
	if !ok || rec.String(key.String()) != "" || len(c.derive) == 0 {
		return nil
	}
	fields := make([]string, len(c.derive))
	for i, col := range c.derive {
		fields[i] = rec.String(col.String())
	}
	derived, err := contract.DeriveKey(c.table, fields...)
	if err != nil {
		return err
	}
	rec[key.String()] = derived
	return nil
}

// readCollection reads the first fixture file for name. found is false when
// no file exists.
func readCollection(dir, name string) (records []types.Values, skipped int, found bool, err error) {
	for _, f := range formats {
		path := filepath.Join(dir, name+f.ext)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, 0, false, fmt.Errorf("checking %s: %w", path, err)
		}
		records, skipped, err = f.read(path)
		if err != nil {
			return nil, 0, true, err
		}
		return records, skipped, true, nil
	}
	return nil, 0, false, nil
}
