package cli

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/fatih/color"
	"github.com/goccy/go-json"

	"github.com/mesh-intelligence/confsched/pkg/types"
)

var headerColor = color.New(color.Bold, color.FgCyan)

// writeJSON writes v as indented JSON followed by a newline.
func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printRows writes rs as an aligned table with a colored header, or as a
// JSON array of objects in --json mode. NULL cells print as empty.
func (a *app) printRows(w io.Writer, rs *types.ResultSet) error {
	if a.flags.jsonMode {
		return writeJSON(w, rs.Maps())
	}

	widths := make([]int, len(rs.Columns))
	for i, c := range rs.Columns {
		widths[i] = len(c)
	}
	cells := make([][]string, rs.Len())
	for r := range cells {
		cells[r] = make([]string, len(rs.Columns))
		for i, c := range rs.Columns {
			s := strings.ReplaceAll(rs.String(r, c), "\n", " ")
			cells[r][i] = s
			widths[i] = max(widths[i], len(s))
		}
	}

	header := make([]string, len(rs.Columns))
	for i, c := range rs.Columns {
		header[i] = headerColor.Sprintf("%-*s", widths[i], c)
	}
	if _, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(header, "  "), " ")); err != nil {
		return err
	}
	for _, row := range cells {
		line := make([]string, len(row))
		for i, s := range row {
			line[i] = fmt.Sprintf("%-*s", widths[i], s)
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(line, "  "), " ")); err != nil {
			return err
		}
	}
	fmt.Fprintf(w, "(%d rows)\n", rs.Len())
	return nil
}

// parseValue converts a command-line value: valid JSON is decoded, with
// integral numbers kept as int64, and anything else is used as a string.
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	if f, ok := v.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return v
}

// parseAssignments turns key=value pairs into Values.
func parseAssignments(pairs []string) (types.Values, error) {
	values := types.Values{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: invalid assignment %q (expected key=value)", errUsage, p)
		}
		values[k] = parseValue(v)
	}
	return values, nil
}

func parseArgs(raw []string) []any {
	if len(raw) == 0 {
		return nil
	}
	out := make([]any, len(raw))
	for i, s := range raw {
		out[i] = parseValue(s)
	}
	return out
}
