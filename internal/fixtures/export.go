package fixtures

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/confsched/internal/logging"
	"github.com/mesh-intelligence/confsched/pkg/contract"
	"github.com/mesh-intelligence/confsched/pkg/types"
)

// Export writes every collection and link file of p to dir as JSONL. The
// output can be fed back to Load. Row identifiers (_id) are not exported and
// NULL columns are omitted.
func Export(ctx context.Context, p types.Provider, dir string) (Summary, error) {
	sum := Summary{Records: map[string]int{}}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return sum, fmt.Errorf("creating %s: %w", dir, err)
	}

	var sessionIDs []string
	for _, c := range collections {
		rs, err := p.Query(ctx, contract.MustBuild(c.route).String(), types.Query{
			Projection: exportColumns(c.table),
		})
		if err != nil {
			return sum, fmt.Errorf("reading %s: %w", c.name, err)
		}
		if c.table == contract.TableSessions {
			for i := 0; i < rs.Len(); i++ {
				sessionIDs = append(sessionIDs, rs.String(i, contract.SessionID.String()))
			}
		}
		if err := writeJSONL(filepath.Join(dir, c.name+".jsonl"), rows(rs)); err != nil {
			return sum, fmt.Errorf("writing %s: %w", c.name, err)
		}
		sum.Records[c.name] = rs.Len()
	}

	for _, l := range links {
		var records []map[string]any
		for _, id := range sessionIDs {
			res, err := contract.Build(l.route, id)
			if err != nil {
				return sum, err
			}
			rs, err := p.Query(ctx, res.String(), types.Query{
				Projection: []string{l.other.String()},
				SortOrder:  l.other.In(l.route.Table()),
			})
			if err != nil {
				return sum, fmt.Errorf("reading %s of %s: %w", l.name, id, err)
			}
			for i := 0; i < rs.Len(); i++ {
				other := rs.Value(i, l.other.String())
				if other == nil {
					continue
				}
				records = append(records, map[string]any{
					contract.SessionID.String(): id,
					l.other.String():            other,
				})
			}
		}
		if err := writeJSONL(filepath.Join(dir, l.name+".jsonl"), records); err != nil {
			return sum, fmt.Errorf("writing %s: %w", l.name, err)
		}
		sum.Records[l.name] = len(records)
	}

	logging.Ctx(ctx).Info().Str("dir", dir).Int("records", sum.Total()).Msg("fixtures exported")
	return sum, nil
}

func exportColumns(t contract.Table) []string {
	var out []string
	for _, c := range contract.Columns(t) {
		if c == contract.ID {
			continue
		}
		out = append(out, c.String())
	}
	return out
}

func rows(rs *types.ResultSet) []map[string]any {
	out := make([]map[string]any, 0, rs.Len())
	for _, m := range rs.Maps() {
		for k, v := range m {
			if v == nil {
				delete(m, k)
			}
		}
		out = append(out, m)
	}
	return out
}
