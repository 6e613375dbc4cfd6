package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/confsched/internal/metrics"
	"github.com/mesh-intelligence/confsched/pkg/contract"
	"github.com/mesh-intelligence/confsched/pkg/types"
)

// countedRoutes are the collections stats reports row counts for.
var countedRoutes = []contract.Route{
	contract.Blocks,
	contract.Tracks,
	contract.Rooms,
	contract.Sessions,
	contract.Speakers,
	contract.Sandbox,
	contract.Announcements,
	contract.MapMarkers,
	contract.MapTiles,
	contract.Feedback,
}

// sample is one flattened metric value.
type sample struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func (a *app) newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print row counts and the metrics collected while reading them",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closeFn, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			version, err := store.Version(cmd.Context())
			if err != nil {
				return err
			}
			counts, err := countRows(cmd.Context(), store)
			if err != nil {
				return err
			}
			samples, err := gatherSamples(prometheus.DefaultGatherer)
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"schema_version": version,
					"rows":           counts,
					"metrics":        samples,
				})
			}
			return printStats(cmd.OutOrStdout(), version, counts, samples)
		},
	}
}

func countRows(ctx context.Context, p types.Provider) (map[string]int, error) {
	counts := make(map[string]int, len(countedRoutes))
	for _, r := range countedRoutes {
		t := r.Table()
		rs, err := p.Query(ctx, contract.MustBuild(r).String(), types.Query{
			Projection: []string{contract.ID.In(t)},
		})
		if err != nil {
			return nil, fmt.Errorf("counting %s: %w", t, err)
		}
		counts[t.String()] = rs.Len()
	}
	return counts, nil
}

// gatherSamples flattens the schedule metric families of g. Histograms
// contribute their _count and _sum.
func gatherSamples(g prometheus.Gatherer) ([]sample, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, fmt.Errorf("gathering metrics: %w", err)
	}
	var out []sample
	for _, mf := range families {
		name := mf.GetName()
		if !strings.HasPrefix(name, metrics.Namespace+"_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := formatLabels(m.GetLabel())
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				out = append(out, sample{name + labels, m.GetCounter().GetValue()})
			case dto.MetricType_GAUGE:
				out = append(out, sample{name + labels, m.GetGauge().GetValue()})
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				out = append(out,
					sample{name + "_count" + labels, float64(h.GetSampleCount())},
					sample{name + "_sum" + labels, h.GetSampleSum()},
				)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func formatLabels(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return ""
	}
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = fmt.Sprintf("%s=%q", p.GetName(), p.GetValue())
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func printStats(w io.Writer, version int, counts map[string]int, samples []sample) error {
	fmt.Fprintf(w, "schema version %d\n\n", version)
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	headerColor.Fprintln(w, "rows")
	for _, name := range names {
		fmt.Fprintf(w, "  %-14s %d\n", name, counts[name])
	}
	fmt.Fprintln(w)
	headerColor.Fprintln(w, "metrics")
	for _, s := range samples {
		fmt.Fprintf(w, "  %s %g\n", s.Name, s.Value)
	}
	return nil
}
