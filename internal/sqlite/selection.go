package sqlite

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mesh-intelligence/confsched/pkg/contract"
	"github.com/mesh-intelligence/confsched/pkg/types"
)

// selectionBuilder accumulates a table expression, AND-ed predicate
// fragments with their arguments, and projection rewrites, then renders
// SELECT, UPDATE and DELETE statements. The first misuse is remembered and
// returned when a statement is rendered.
type selectionBuilder struct {
	tableExpr string
	// target is set on write plans: the single table UPDATE and DELETE act on.
	target   contract.Table
	hasTable bool

	selections []string
	args       []any

	projection map[string]string
	mapped     []string

	groupBy string

	err error
}

func newSelection() *selectionBuilder {
	return &selectionBuilder{projection: map[string]string{}}
}

// table sets the table expression of a read plan, usually a join.
func (b *selectionBuilder) table(expr string) *selectionBuilder {
	b.tableExpr = expr
	return b
}

// writes sets a single target table; the plan can then render UPDATE and
// DELETE as well as SELECT.
func (b *selectionBuilder) writes(t contract.Table) *selectionBuilder {
	b.tableExpr = t.String()
	b.target = t
	b.hasTable = true
	return b
}

// where ANDs a parenthesized predicate onto the plan. An empty selection is
// skipped; arguments without a selection are an error.
func (b *selectionBuilder) where(selection string, args ...any) *selectionBuilder {
	if strings.TrimSpace(selection) == "" {
		if len(args) > 0 && b.err == nil {
			b.err = fmt.Errorf("%w: %d arguments", types.ErrSelectionArgs, len(args))
		}
		return b
	}
	b.selections = append(b.selections, "("+selection+")")
	b.args = append(b.args, args...)
	return b
}

// mapExpr projects col as the computed expression expr.
func (b *selectionBuilder) mapExpr(col contract.Column, expr string) *selectionBuilder {
	return b.mapRaw(col.String(), expr+" AS "+col.String())
}

// mapToTable qualifies col with t, resolving ambiguity in joins.
func (b *selectionBuilder) mapToTable(col contract.Column, t contract.Table) *selectionBuilder {
	return b.mapRaw(col.String(), col.In(t))
}

func (b *selectionBuilder) mapRaw(name, expr string) *selectionBuilder {
	if _, ok := b.projection[name]; !ok {
		b.mapped = append(b.mapped, name)
	}
	b.projection[name] = expr
	return b
}

// groupByExpr collapses the joined rows sharing expr into one.
func (b *selectionBuilder) groupByExpr(expr string) *selectionBuilder {
	b.groupBy = expr
	return b
}

// selection renders the accumulated WHERE clause without the keyword.
func (b *selectionBuilder) selection() string {
	return strings.Join(b.selections, " AND ")
}

// selectionArgs returns a copy of the accumulated arguments.
func (b *selectionBuilder) selectionArgs() []any {
	out := make([]any, len(b.args))
	copy(out, b.args)
	return out
}

// mapColumns rewrites requested names through the projection map. Names the
// plan does not map pass through unchanged.
func (b *selectionBuilder) mapColumns(columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		if expr, ok := b.projection[c]; ok {
			out[i] = expr
		} else {
			out[i] = c
		}
	}
	return out
}

// defaultProjection lists the stored columns of t followed by every other
// column the plan maps. Unmapped stored columns are qualified with t.
func (b *selectionBuilder) defaultProjection(t contract.Table) (names, exprs []string) {
	seen := map[string]bool{}
	for _, c := range contract.Columns(t) {
		name := c.String()
		seen[name] = true
		names = append(names, name)
		if expr, ok := b.projection[name]; ok {
			exprs = append(exprs, expr)
		} else {
			exprs = append(exprs, c.In(t))
		}
	}
	for _, name := range b.mapped {
		if seen[name] {
			continue
		}
		names = append(names, name)
		exprs = append(exprs, b.projection[name])
	}
	return names, exprs
}

// query renders a SELECT over exprs. limit is appended as given when it
// is a positive integer.
func (b *selectionBuilder) query(exprs []string, orderBy string, limit int) (string, []any, error) {
	if b.err != nil {
		return "", nil, b.err
	}
	if b.tableExpr == "" {
		return "", nil, fmt.Errorf("%w: plan has no table", types.ErrUnsupportedResource)
	}
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if len(exprs) == 0 {
		sb.WriteString("*")
	} else {
		sb.WriteString(strings.Join(exprs, ", "))
	}
	sb.WriteString(" FROM ")
	sb.WriteString(b.tableExpr)
	if sel := b.selection(); sel != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(sel)
	}
	if b.groupBy != "" {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(b.groupBy)
	}
	if orderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(orderBy)
	}
	if limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", limit)
	}
	return sb.String(), b.selectionArgs(), nil
}

// update renders an UPDATE of the target table. Keys of values must be
// stored columns of the target.
func (b *selectionBuilder) update(values types.Values) (string, []any, error) {
	if b.err != nil {
		return "", nil, b.err
	}
	if !b.hasTable {
		return "", nil, fmt.Errorf("%w: plan is read-only", types.ErrUnsupportedResource)
	}
	cols, err := checkColumns(b.target, values)
	if err != nil {
		return "", nil, err
	}
	if len(cols) == 0 {
		return "", nil, fmt.Errorf("%w: no values to update", types.ErrInvalidArgs)
	}
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+len(b.args))
	for i, c := range cols {
		sets[i] = c + " = ?"
		v, err := normalizeValue(values[c])
		if err != nil {
			return "", nil, fmt.Errorf("column %s: %w", c, err)
		}
		args = append(args, v)
	}
	stmt := "UPDATE " + b.target.String() + " SET " + strings.Join(sets, ", ")
	if sel := b.selection(); sel != "" {
		stmt += " WHERE " + sel
	}
	return stmt, append(args, b.args...), nil
}

// delete renders a DELETE from the target table.
func (b *selectionBuilder) delete() (string, []any, error) {
	if b.err != nil {
		return "", nil, b.err
	}
	if !b.hasTable {
		return "", nil, fmt.Errorf("%w: plan is read-only", types.ErrUnsupportedResource)
	}
	stmt := "DELETE FROM " + b.target.String()
	if sel := b.selection(); sel != "" {
		stmt += " WHERE " + sel
	}
	return stmt, b.selectionArgs(), nil
}

// insertStatement renders INSERT OR REPLACE into t; a row colliding on the
// natural key is replaced.
func insertStatement(t contract.Table, values types.Values) (string, []any, error) {
	cols, err := checkColumns(t, values)
	if err != nil {
		return "", nil, err
	}
	if len(cols) == 0 {
		return "", nil, fmt.Errorf("%w: no values to insert", types.ErrInvalidArgs)
	}
	args := make([]any, len(cols))
	for i, c := range cols {
		v, err := normalizeValue(values[c])
		if err != nil {
			return "", nil, fmt.Errorf("column %s: %w", c, err)
		}
		args[i] = v
	}
	stmt := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		t, strings.Join(cols, ", "), placeholders(len(cols)))
	return stmt, args, nil
}

// checkColumns returns the keys of values in sorted order, rejecting any
// that t does not store.
func checkColumns(t contract.Table, values types.Values) ([]string, error) {
	cols := make([]string, 0, len(values))
	for k := range values {
		if !contract.HasColumn(t, k) {
			return nil, fmt.Errorf("%w: %s has no column %q", types.ErrInvalidArgs, t, k)
		}
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
