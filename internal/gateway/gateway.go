package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/wrenchwise/workshop-api/app/observability/metrics"
	"github.com/wrenchwise/workshop-api/internal/types"
)

// DB is the slice of pgxpool.Pool the gateway needs. pgxmock's pool
// interface satisfies it too, which is how the gateway tests run without
// a live database.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Statement is one unit of an ExecuteTransaction batch.
type Statement struct {
	Query  string
	Params []any
}

// Gateway provides parameterized CRUD helpers over a relational
// connection. Table and column identifiers are trusted caller-controlled
// strings, never raw user input; every value travels as a bind parameter.
//
// Queries use `?` placeholders and are rebound to Postgres `$n` form
// before execution, so WHERE fragments compose without the caller
// tracking parameter offsets.
type Gateway struct {
	logger *slog.Logger
	db     DB

	// Transaction state. A pool-backed gateway has tx == nil; Begin
	// returns a tx-bound child. depth counts nested Begin calls on a
	// tx-bound gateway: only the outermost Commit commits. done marks a
	// tx-bound gateway whose transaction has finished; further
	// statements on it fail instead of falling through to the pool.
	tx    pgx.Tx
	depth int
	done  bool
}

// New returns a pool-backed gateway.
func New(db DB, logger *slog.Logger) *Gateway {
	return &Gateway{db: db, logger: logger}
}

// InTx reports whether the gateway is bound to an open transaction.
func (g *Gateway) InTx() bool { return g.tx != nil }

func (g *Gateway) querier() DB {
	if g.tx != nil {
		return txQuerier{g.tx}
	}
	return g.db
}

// txQuerier adapts pgx.Tx to the DB interface. Begin on a tx is never
// reached: the gateway ref-counts instead of opening savepoints.
type txQuerier struct{ tx pgx.Tx }

func (q txQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return q.tx.Exec(ctx, sql, args...)
}
func (q txQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return q.tx.Query(ctx, sql, args...)
}
func (q txQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return q.tx.QueryRow(ctx, sql, args...)
}
func (q txQuerier) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("nested pgx transactions are not used")
}

// Rebind converts `?` placeholders to Postgres `$1..$n` form.
func Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// errClosed rejects statements on a gateway whose transaction already
// committed or rolled back.
func (g *Gateway) errClosed(op string) error {
	if !g.done {
		return nil
	}
	return fmt.Errorf("%s on closed transaction: %w", op, types.ErrInternal)
}

// observe feeds the query duration histogram when metrics are up.
func (g *Gateway) observe(ctx context.Context, op string, start time.Time) {
	if m := metrics.Get(); m != nil {
		m.DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("op", op)))
	}
}

func (g *Gateway) startSpan(ctx context.Context, op, object string) (context.Context, trace.Span) {
	return otel.Tracer("Gateway").Start(ctx, op, trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", op),
		attribute.String("db.sql.table", object),
	))
}

// fail logs the statement with its parameters and returns a generic
// internal error so schema details never leak to callers.
func (g *Gateway) fail(ctx context.Context, span trace.Span, op, query string, params []any, err error) error {
	if m := metrics.Get(); m != nil {
		m.DbQueryErrorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
	}
	g.logger.ErrorContext(ctx, "query gateway failure",
		slog.String("op", op),
		slog.String("query", query),
		slog.Any("params", params),
		slog.Any("error", err),
	)
	span.RecordError(err)
	span.SetStatus(codes.Error, op+" failed")
	return fmt.Errorf("%s failed: %w", op, types.ErrInternal)
}

// SelectOne runs query and returns the first row as a column→value map,
// or ErrNotFound when the result set is empty.
func (g *Gateway) SelectOne(ctx context.Context, query string, params ...any) (map[string]any, error) {
	rows, err := g.Select(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, types.ErrNotFound
	}
	return rows[0], nil
}

// Select runs query and returns all rows as column→value maps. An empty
// result is a nil slice, not an error.
func (g *Gateway) Select(ctx context.Context, query string, params ...any) ([]map[string]any, error) {
	if err := g.errClosed("SELECT"); err != nil {
		return nil, err
	}
	ctx, span := g.startSpan(ctx, "SELECT", "")
	defer span.End()
	defer g.observe(ctx, "SELECT", time.Now())

	rows, err := g.querier().Query(ctx, Rebind(query), params...)
	if err != nil {
		return nil, g.fail(ctx, span, "SELECT", query, params, err)
	}
	defer rows.Close()

	var out []map[string]any
	fields := rows.FieldDescriptions()
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, g.fail(ctx, span, "SELECT", query, params, err)
		}
		row := make(map[string]any, len(fields))
		for i, fd := range fields {
			row[string(fd.Name)] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, g.fail(ctx, span, "SELECT", query, params, err)
	}
	span.SetStatus(codes.Ok, "rows fetched")
	return out, nil
}

// Insert builds an INSERT from the field map and returns the generated
// primary key. Keys are sorted so the statement is deterministic.
func (g *Gateway) Insert(ctx context.Context, table string, fields map[string]any) (uuid.UUID, error) {
	if err := g.errClosed("INSERT"); err != nil {
		return uuid.Nil, err
	}
	ctx, span := g.startSpan(ctx, "INSERT", table)
	defer span.End()
	defer g.observe(ctx, "INSERT", time.Now())

	cols := sortedKeys(fields)
	placeholders := make([]string, len(cols))
	params := make([]any, len(cols))
	for i, c := range cols {
		placeholders[i] = "?"
		params[i] = fields[c]
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	var id uuid.UUID
	if err := g.querier().QueryRow(ctx, Rebind(query), params...).Scan(&id); err != nil {
		return uuid.Nil, g.fail(ctx, span, "INSERT", query, params, err)
	}
	span.SetStatus(codes.Ok, "row inserted")
	return id, nil
}

// Update builds an UPDATE from the field map; whereClause is a trusted
// fragment with `?` placeholders. Returns the affected-row count.
func (g *Gateway) Update(ctx context.Context, table string, fields map[string]any, whereClause string, whereParams ...any) (int64, error) {
	if err := g.errClosed("UPDATE"); err != nil {
		return 0, err
	}
	ctx, span := g.startSpan(ctx, "UPDATE", table)
	defer span.End()
	defer g.observe(ctx, "UPDATE", time.Now())

	cols := sortedKeys(fields)
	setClauses := make([]string, len(cols))
	params := make([]any, 0, len(cols)+len(whereParams))
	for i, c := range cols {
		setClauses[i] = c + " = ?"
		params = append(params, fields[c])
	}
	params = append(params, whereParams...)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", table, strings.Join(setClauses, ", "), whereClause)

	tag, err := g.querier().Exec(ctx, Rebind(query), params...)
	if err != nil {
		return 0, g.fail(ctx, span, "UPDATE", query, params, err)
	}
	span.SetStatus(codes.Ok, "rows updated")
	return tag.RowsAffected(), nil
}

// Delete removes rows matching the trusted whereClause fragment and
// returns the affected-row count.
func (g *Gateway) Delete(ctx context.Context, table string, whereClause string, whereParams ...any) (int64, error) {
	if err := g.errClosed("DELETE"); err != nil {
		return 0, err
	}
	ctx, span := g.startSpan(ctx, "DELETE", table)
	defer span.End()
	defer g.observe(ctx, "DELETE", time.Now())

	query := fmt.Sprintf("DELETE FROM %s WHERE %s", table, whereClause)
	tag, err := g.querier().Exec(ctx, Rebind(query), whereParams...)
	if err != nil {
		return 0, g.fail(ctx, span, "DELETE", query, whereParams, err)
	}
	span.SetStatus(codes.Ok, "rows deleted")
	return tag.RowsAffected(), nil
}

// Count returns the number of matching rows; zero matches is integer 0,
// never an error. An empty whereClause counts the whole table.
func (g *Gateway) Count(ctx context.Context, table string, whereClause string, whereParams ...any) (int, error) {
	if err := g.errClosed("COUNT"); err != nil {
		return 0, err
	}
	ctx, span := g.startSpan(ctx, "COUNT", table)
	defer span.End()
	defer g.observe(ctx, "COUNT", time.Now())

	query := "SELECT COUNT(*) FROM " + table
	if whereClause != "" {
		query += " WHERE " + whereClause
	}
	var count int
	if err := g.querier().QueryRow(ctx, Rebind(query), whereParams...).Scan(&count); err != nil {
		return 0, g.fail(ctx, span, "COUNT", query, whereParams, err)
	}
	span.SetStatus(codes.Ok, "rows counted")
	return count, nil
}

// Exists is strictly Count > 0.
func (g *Gateway) Exists(ctx context.Context, table string, whereClause string, whereParams ...any) (bool, error) {
	count, err := g.Count(ctx, table, whereClause, whereParams...)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Exec runs an arbitrary statement and returns the affected-row count.
func (g *Gateway) Exec(ctx context.Context, query string, params ...any) (int64, error) {
	if err := g.errClosed("EXEC"); err != nil {
		return 0, err
	}
	ctx, span := g.startSpan(ctx, "EXEC", "")
	defer span.End()
	defer g.observe(ctx, "EXEC", time.Now())

	tag, err := g.querier().Exec(ctx, Rebind(query), params...)
	if err != nil {
		return 0, g.fail(ctx, span, "EXEC", query, params, err)
	}
	span.SetStatus(codes.Ok, "statement executed")
	return tag.RowsAffected(), nil
}

// Begin opens a transaction and returns a gateway bound to it. Calling
// Begin on an already transaction-bound gateway does not open a second
// transaction: it increments a depth counter and returns the same
// gateway, so nested helpers can wrap calls that are sometimes already
// inside a transaction.
func (g *Gateway) Begin(ctx context.Context) (*Gateway, error) {
	if err := g.errClosed("BEGIN"); err != nil {
		return nil, err
	}
	if g.tx != nil {
		g.depth++
		return g, nil
	}
	tx, err := g.db.Begin(ctx)
	if err != nil {
		g.logger.ErrorContext(ctx, "failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("begin transaction: %w", types.ErrInternal)
	}
	return &Gateway{logger: g.logger, db: g.db, tx: tx}, nil
}

// Commit closes the transaction when called at the outermost level;
// nested calls only decrement the depth counter.
func (g *Gateway) Commit(ctx context.Context) error {
	if g.tx == nil {
		return errors.New("commit outside transaction")
	}
	if g.depth > 0 {
		g.depth--
		return nil
	}
	err := g.tx.Commit(ctx)
	g.tx = nil
	g.done = true
	if err != nil {
		g.logger.ErrorContext(ctx, "failed to commit transaction", slog.Any("error", err))
		return fmt.Errorf("commit transaction: %w", types.ErrInternal)
	}
	return nil
}

// Rollback aborts the whole transaction regardless of nesting depth and
// poisons the gateway: later statements on it fail rather than running
// against the pool. Rolling back an already-closed transaction is a
// no-op so deferred rollbacks after Commit stay safe.
func (g *Gateway) Rollback(ctx context.Context) error {
	if g.tx == nil {
		return nil
	}
	err := g.tx.Rollback(ctx)
	g.tx = nil
	g.depth = 0
	g.done = true
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		g.logger.ErrorContext(ctx, "failed to roll back transaction", slog.Any("error", err))
		return fmt.Errorf("rollback transaction: %w", types.ErrInternal)
	}
	return nil
}

// Tx runs fn inside a transaction: fn's gateway is transaction-bound and
// any error triggers a full rollback. When the receiver is already
// transaction-bound, fn joins the existing transaction.
func (g *Gateway) Tx(ctx context.Context, fn func(*Gateway) error) error {
	txg, err := g.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(txg); err != nil {
		_ = txg.Rollback(ctx)
		return err
	}
	return txg.Commit(ctx)
}

// ExecuteTransaction runs the statements in order inside one
// transaction: any failure rolls everything back.
func (g *Gateway) ExecuteTransaction(ctx context.Context, stmts []Statement) error {
	return g.Tx(ctx, func(txg *Gateway) error {
		for _, s := range stmts {
			if _, err := txg.Exec(ctx, s.Query, s.Params...); err != nil {
				return err
			}
		}
		return nil
	})
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
