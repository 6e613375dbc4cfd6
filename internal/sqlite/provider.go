package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"strconv"
	"time"

	"github.com/mesh-intelligence/confsched/internal/logging"
	"github.com/mesh-intelligence/confsched/internal/metrics"
	"github.com/mesh-intelligence/confsched/pkg/contract"
	"github.com/mesh-intelligence/confsched/pkg/types"
)

// TypeOf returns the MIME-like type of uri.
func (b *Backend) TypeOf(uri string) (string, error) {
	res, err := contract.Parse(uri)
	if err != nil {
		return "", err
	}
	return contract.MIMEType(res.Route)
}

// Query runs the read plan of uri. An empty projection selects the stored
// columns of the route's table followed by the plan's computed columns; an
// empty sort order uses the table's canonical sort.
func (b *Backend) Query(ctx context.Context, uri string, q types.Query) (rs *types.ResultSet, err error) {
	res, err := contract.Parse(uri)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { metrics.RecordQuery(res.Route.String(), time.Since(start), err) }()

	db, release, err := b.reader()
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		sb    *selectionBuilder
		names []string
		exprs []string
		order = q.SortOrder
		limit int
	)
	if res.Route == contract.SearchSuggest {
		sb, names, exprs, err = suggestPlan(q)
		if err != nil {
			return nil, err
		}
		order = contract.DefaultSort(contract.TableSearchSuggest)
		limit, _ = strconv.Atoi(res.Param(contract.ParamLimit))
	} else {
		entry, err := lookupRoute(res.Route)
		if err != nil {
			return nil, err
		}
		if entry.expanded == nil {
			return nil, fmt.Errorf("%w: %s cannot be queried", types.ErrUnsupportedResource, res.Route)
		}
		sb, err = entry.expanded(res)
		if err != nil {
			return nil, err
		}
		applyFilter(sb, res.Param(contract.ParamFilter))
		sb.where(q.Selection, q.Args...)
		if len(q.Projection) == 0 {
			names, exprs = sb.defaultProjection(res.Route.Table())
		} else {
			names = append([]string(nil), q.Projection...)
			exprs = sb.mapColumns(q.Projection)
		}
		if order == "" {
			order = contract.DefaultSort(res.Route.Table())
		}
	}

	stmt, args, err := sb.query(exprs, order, limit)
	if err != nil {
		return nil, err
	}
	logging.Ctx(ctx).Debug().Str("route", res.Route.String()).Str("sql", stmt).Msg("query")

	rows, err := db.QueryContext(context.WithoutCancel(ctx), stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", res.Route, err)
	}
	defer rows.Close()

	data, err := scanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("reading %s rows: %w", res.Route, err)
	}
	return &types.ResultSet{Columns: names, Rows: data}, nil
}

// suggestPlan turns the incoming text into a prefix match against the
// suggestion table and fixes the result shape.
func suggestPlan(q types.Query) (*selectionBuilder, []string, []string, error) {
	args := append([]any(nil), q.Args...)
	if len(args) > 0 {
		args[0] = fmt.Sprint(args[0]) + "%"
	}
	sb := newSelection().table(contract.TableSearchSuggest.String()).
		mapExpr(contract.SuggestIntentQuery, subSuggestIntentQuery).
		where(q.Selection, args...)
	names := []string{
		contract.ID.String(),
		contract.SuggestText1.String(),
		contract.SuggestIntentQuery.String(),
	}
	return sb, names, sb.mapColumns(names), nil
}

// Insert writes values into the table behind uri, replacing any row with the
// same natural key, and returns the identifier of the stored item.
func (b *Backend) Insert(ctx context.Context, uri string, values types.Values) (string, error) {
	res, err := contract.Parse(uri)
	if err != nil {
		return "", err
	}
	db, release, err := b.writer()
	if err != nil {
		return "", err
	}
	defer release()

	ctx = context.WithoutCancel(ctx)
	var (
		item  contract.Resource
		table contract.Table
	)
	err = inTx(ctx, db, func(tx *sql.Tx) error {
		var err error
		item, table, err = insertRow(ctx, tx, res, values)
		return err
	})
	if err != nil {
		return "", err
	}
	metrics.RecordMutation(types.OpInsert.String(), table.String())
	b.notify(ctx, types.Change{URI: uri, SyncToNetwork: !res.FromSync()})
	return item.String(), nil
}

// Update applies values to the rows selected by uri and selection. Updating
// the search index identifier rebuilds the index instead.
func (b *Backend) Update(ctx context.Context, uri string, values types.Values, selection string, args ...any) (int64, error) {
	res, err := contract.Parse(uri)
	if err != nil {
		return 0, err
	}
	if res.Route == contract.SearchIndex {
		if err := b.RebuildSearchIndex(ctx); err != nil {
			return 0, err
		}
		return 1, nil
	}

	db, release, err := b.writer()
	if err != nil {
		return 0, err
	}
	defer release()

	ctx = context.WithoutCancel(ctx)
	var (
		n     int64
		table contract.Table
	)
	err = inTx(ctx, db, func(tx *sql.Tx) error {
		var err error
		n, table, err = updateRows(ctx, tx, res, values, selection, args)
		return err
	})
	if err != nil {
		return 0, err
	}
	metrics.RecordMutation(types.OpUpdate.String(), table.String())
	b.notify(ctx, types.Change{URI: uri, SyncToNetwork: !res.FromSync()})
	return n, nil
}

// Delete removes the rows selected by uri and selection. Deleting the root
// identifier wipes the store; that change is never propagated upstream.
func (b *Backend) Delete(ctx context.Context, uri string, selection string, args ...any) (int64, error) {
	res, err := contract.Parse(uri)
	if err != nil {
		return 0, err
	}
	ctx = context.WithoutCancel(ctx)
	if res.IsRoot() {
		if err := b.Wipe(ctx); err != nil {
			return 0, err
		}
		b.notify(ctx, types.Change{URI: uri, SyncToNetwork: false})
		return 1, nil
	}

	db, release, err := b.writer()
	if err != nil {
		return 0, err
	}
	defer release()

	var (
		n     int64
		table contract.Table
	)
	err = inTx(ctx, db, func(tx *sql.Tx) error {
		var err error
		n, table, err = deleteRows(ctx, tx, res, selection, args)
		return err
	})
	if err != nil {
		return 0, err
	}
	metrics.RecordMutation(types.OpDelete.String(), table.String())
	b.notify(ctx, types.Change{URI: uri, SyncToNetwork: !res.FromSync()})
	return n, nil
}

// batchEffect is what an applied operation leaves to do after commit.
type batchEffect struct {
	kind   types.OpKind
	table  contract.Table
	change *types.Change
}

// ApplyBatch runs ops in order inside one transaction. The first failing
// operation aborts the batch; nothing is committed and the error is a
// *types.BatchError. Change notifications go out only after commit.
func (b *Backend) ApplyBatch(ctx context.Context, ops []types.Operation) ([]types.Result, error) {
	db, release, err := b.writer()
	if err != nil {
		return nil, err
	}
	defer release()

	ctx = context.WithoutCancel(ctx)
	log := logging.Ctx(ctx)
	results := make([]types.Result, len(ops))
	effects := make([]batchEffect, 0, len(ops))

	err = inTx(ctx, db, func(tx *sql.Tx) error {
		for i, op := range ops {
			effect, result, err := applyOperation(ctx, tx, op)
			if err != nil {
				return &types.BatchError{Index: i, Op: op, Err: err}
			}
			results[i] = result
			effects = append(effects, effect)
		}
		return nil
	})
	if err != nil {
		metrics.RecordBatch(false)
		log.Warn().Err(err).Int("operations", len(ops)).Msg("batch rolled back")
		return nil, err
	}
	metrics.RecordBatch(true)
	log.Debug().Int("operations", len(ops)).Msg("batch committed")

	for _, e := range effects {
		if e.change == nil {
			continue
		}
		metrics.RecordMutation(e.kind.String(), e.table.String())
		b.notify(ctx, *e.change)
	}
	return results, nil
}

func applyOperation(ctx context.Context, tx *sql.Tx, op types.Operation) (batchEffect, types.Result, error) {
	effect := batchEffect{kind: op.Kind}
	res, err := contract.Parse(op.URI)
	if err != nil {
		return effect, types.Result{}, err
	}
	change := &types.Change{URI: op.URI, SyncToNetwork: !(op.FromSync || res.FromSync())}

	switch op.Kind {
	case types.OpInsert:
		item, table, err := insertRow(ctx, tx, res, op.Values)
		if err != nil {
			return effect, types.Result{}, err
		}
		effect.table, effect.change = table, change
		return effect, types.Result{URI: item.String()}, nil

	case types.OpUpdate:
		if res.Route == contract.SearchIndex {
			if err := rebuildSearchIndex(ctx, tx); err != nil {
				return effect, types.Result{}, err
			}
			return effect, types.Result{Count: 1}, nil
		}
		n, table, err := updateRows(ctx, tx, res, op.Values, op.Selection, op.Args)
		if err != nil {
			return effect, types.Result{}, err
		}
		effect.table, effect.change = table, change
		return effect, types.Result{Count: n}, nil

	case types.OpDelete:
		if res.IsRoot() {
			return effect, types.Result{}, fmt.Errorf("%w: the store cannot be wiped inside a batch", types.ErrUnsupportedResource)
		}
		n, table, err := deleteRows(ctx, tx, res, op.Selection, op.Args)
		if err != nil {
			return effect, types.Result{}, err
		}
		effect.table, effect.change = table, change
		return effect, types.Result{Count: n}, nil
	}
	return effect, types.Result{}, fmt.Errorf("%w: operation kind %d", types.ErrInvalidArgs, op.Kind)
}

// insertRow applies the insert rule of res.
func insertRow(ctx context.Context, e execer, res contract.Resource, values types.Values) (contract.Resource, contract.Table, error) {
	entry, err := lookupRoute(res.Route)
	if err != nil {
		return contract.Resource{}, 0, err
	}
	rule := entry.insert
	if rule == nil {
		return contract.Resource{}, 0, fmt.Errorf("%w: %s does not accept inserts", types.ErrUnsupportedResource, res.Route)
	}

	vals := maps.Clone(values)
	if vals == nil {
		vals = types.Values{}
	}
	if rule.pathCol != noColumn {
		vals[rule.pathCol.String()] = res.Arg(0)
	}

	var item contract.Resource
	if rule.key == noColumn {
		item, err = contract.Build(rule.item)
	} else {
		key := vals.String(rule.key.String())
		if key == "" {
			return contract.Resource{}, 0, fmt.Errorf("%w: %s requires %s", types.ErrInvalidArgs, res.Route, rule.key)
		}
		item, err = contract.Build(rule.item, key)
	}
	if err != nil {
		return contract.Resource{}, 0, err
	}

	stmt, args, err := insertStatement(rule.table, vals)
	if err != nil {
		return contract.Resource{}, 0, err
	}
	if _, err := e.ExecContext(ctx, stmt, args...); err != nil {
		return contract.Resource{}, 0, fmt.Errorf("inserting into %s: %w", rule.table, err)
	}
	return item, rule.table, nil
}

// writePlan returns the simple selection of res with the caller's selection
// layered on.
func writePlan(res contract.Resource, op types.OpKind, selection string, args []any) (*selectionBuilder, error) {
	entry, err := lookupRoute(res.Route)
	if err != nil {
		return nil, err
	}
	if entry.simple == nil {
		return nil, fmt.Errorf("%w: %s does not accept %s", types.ErrUnsupportedResource, res.Route, op)
	}
	sb, err := entry.simple(res)
	if err != nil {
		return nil, err
	}
	return sb.where(selection, args...), nil
}

func updateRows(ctx context.Context, e execer, res contract.Resource, values types.Values, selection string, args []any) (int64, contract.Table, error) {
	sb, err := writePlan(res, types.OpUpdate, selection, args)
	if err != nil {
		return 0, 0, err
	}
	stmt, bound, err := sb.update(values)
	if err != nil {
		return 0, 0, err
	}
	return execCount(ctx, e, sb.target, stmt, bound)
}

func deleteRows(ctx context.Context, e execer, res contract.Resource, selection string, args []any) (int64, contract.Table, error) {
	sb, err := writePlan(res, types.OpDelete, selection, args)
	if err != nil {
		return 0, 0, err
	}
	stmt, bound, err := sb.delete()
	if err != nil {
		return 0, 0, err
	}
	return execCount(ctx, e, sb.target, stmt, bound)
}

func execCount(ctx context.Context, e execer, t contract.Table, stmt string, args []any) (int64, contract.Table, error) {
	result, err := e.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, t, fmt.Errorf("writing %s: %w", t, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, t, fmt.Errorf("writing %s: %w", t, err)
	}
	return n, t, nil
}

// notify publishes c and asks widgets to refresh. Delivery failures are
// logged; the mutation has already happened.
func (b *Backend) notify(ctx context.Context, c types.Change) {
	log := logging.Ctx(ctx)
	if err := b.notifier.NotifyChange(ctx, c); err != nil && !errors.Is(err, context.Canceled) {
		log.Warn().Err(err).Str("uri", c.URI).Msg("change notification failed")
	}
	if err := b.notifier.RefreshWidgets(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Warn().Err(err).Msg("widget refresh failed")
	}
}
