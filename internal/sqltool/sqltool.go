// Package sqltool runs exploratory queries against PostgreSQL or SQLite.
//
// Table and column names are always quoted as identifiers and values are
// bound as parameters, so names and values taken from tool arguments never
// become SQL text.
package sqltool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver
)

// Supported driver names.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

// ErrInvalidIdentifier is returned for empty or malformed table/column names.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// Config selects the driver and data source.
type Config struct {
	Driver string
	DSN    string
}

// DB wraps a database/sql handle with the dialect needed to build queries.
type DB struct {
	db     *sql.DB
	driver string
}

// Open connects and pings the database.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	switch cfg.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
	if cfg.DSN == "" {
		return nil, errors.New("database DSN is empty")
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &DB{db: db, driver: cfg.Driver}, nil
}

// Close releases the connection pool.
func (d *DB) Close() error {
	return d.db.Close()
}

// Driver returns the driver name the DB was opened with.
func (d *DB) Driver() string {
	return d.driver
}

// placeholder returns the n-th (1-based) bind parameter for the dialect.
func (d *DB) placeholder(n int) string {
	if d.driver == DriverPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// QuoteIdentifier quotes a possibly schema-qualified name ("schema.table").
// Each part is wrapped in double quotes with embedded quotes doubled.
func QuoteIdentifier(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrInvalidIdentifier)
	}
	parts := strings.Split(name, ".")
	if len(parts) > 2 {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	for i, p := range parts {
		if p == "" || strings.ContainsRune(p, 0) {
			return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
		}
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, "."), nil
}

// ExecFile executes every statement in the SQL script at path.
func (d *DB) ExecFile(ctx context.Context, path string) error {
	script, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read SQL file: %w", err)
	}
	if _, err := d.db.ExecContext(ctx, string(script)); err != nil {
		return fmt.Errorf("failed to execute %s: %w", path, err)
	}
	return nil
}

// Result is a fully materialized query result.
type Result struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Query runs a read query and returns all rows. Byte slices are returned as
// strings so the result marshals to readable JSON.
func (d *DB) Query(ctx context.Context, query string, args ...any) (*Result, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	res := &Result{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		res.Rows = append(res.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return res, nil
}

func (d *DB) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ColumnNames lists the columns of table in declaration order. A
// "schema.table" name restricts PostgreSQL lookups to that schema.
func (d *DB) ColumnNames(ctx context.Context, table string) ([]string, error) {
	if _, err := QuoteIdentifier(table); err != nil {
		return nil, err
	}

	if d.driver == DriverSQLite {
		return d.queryStrings(ctx, `SELECT name FROM pragma_table_info(?) ORDER BY cid`, table)
	}

	if schema, name, ok := strings.Cut(table, "."); ok {
		return d.queryStrings(ctx, `SELECT column_name FROM information_schema.columns
			WHERE table_schema = $1 AND table_name = $2 ORDER BY ordinal_position`, schema, name)
	}
	return d.queryStrings(ctx, `SELECT column_name FROM information_schema.columns
		WHERE table_name = $1 ORDER BY ordinal_position`, table)
}

// TableColumns is one table and its columns in declaration order.
type TableColumns struct {
	Table   string   `json:"table"`
	Columns []string `json:"columns"`
}

// AllColumnNames lists every table of schema with its columns, ordered by
// table name. SQLite has a single schema and ignores the argument.
func (d *DB) AllColumnNames(ctx context.Context, schema string) ([]TableColumns, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if d.driver == DriverSQLite {
		rows, err = d.db.QueryContext(ctx, `SELECT m.name, p.name
			FROM sqlite_master AS m JOIN pragma_table_info(m.name) AS p
			WHERE m.type = 'table' AND m.name NOT LIKE 'sqlite_%'
			ORDER BY m.name, p.cid`)
	} else {
		rows, err = d.db.QueryContext(ctx, `SELECT table_name, column_name
			FROM information_schema.columns
			WHERE table_schema = $1
			ORDER BY table_name, ordinal_position`, schema)
	}
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	out := []TableColumns{}
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return nil, err
		}
		if n := len(out); n == 0 || out[n-1].Table != table {
			out = append(out, TableColumns{Table: table})
		}
		last := &out[len(out)-1]
		last.Columns = append(last.Columns, column)
	}
	return out, rows.Err()
}

// ValueCount is one distinct value of a column and how often it occurs.
type ValueCount struct {
	Value any   `json:"value"`
	Count int64 `json:"count"`
}

// ColumnCounts counts the distinct values of column, most frequent first.
func (d *DB) ColumnCounts(ctx context.Context, table, column string) ([]ValueCount, error) {
	t, err := QuoteIdentifier(table)
	if err != nil {
		return nil, err
	}
	c, err := QuoteIdentifier(column)
	if err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`SELECT %s, COUNT(*) AS count FROM %s GROUP BY %s ORDER BY count DESC, 1`, c, t, c)
	res, err := d.Query(ctx, q)
	if err != nil {
		return nil, err
	}

	out := make([]ValueCount, 0, len(res.Rows))
	for _, r := range res.Rows {
		n, err := toInt64(r[1])
		if err != nil {
			return nil, err
		}
		out = append(out, ValueCount{Value: r[0], Count: n})
	}
	return out, nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	}
	return 0, fmt.Errorf("unexpected count type %T", v)
}

// PropertyQuery selects one property of the rows where Column equals Value.
type PropertyQuery struct {
	Table    string
	Column   string
	Value    any
	Property string
	OrderBy  string // optional column to sort by
	Limit    int    // 0 means no limit
}

// PropertyRecord is one (id, collect_time, property) row.
type PropertyRecord struct {
	ID          any `json:"id"`
	CollectTime any `json:"collect_time"`
	Value       any `json:"value"`
}

// PropertyValues returns id, collect_time and the requested property for
// every matching row. The table must have id and collect_time columns.
func (d *DB) PropertyValues(ctx context.Context, q PropertyQuery) ([]PropertyRecord, error) {
	t, err := QuoteIdentifier(q.Table)
	if err != nil {
		return nil, err
	}
	c, err := QuoteIdentifier(q.Column)
	if err != nil {
		return nil, err
	}
	p, err := QuoteIdentifier(q.Property)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT id, collect_time, %s FROM %s WHERE %s = %s`, p, t, c, d.placeholder(1))
	if q.OrderBy != "" {
		o, err := QuoteIdentifier(q.OrderBy)
		if err != nil {
			return nil, err
		}
		query += " ORDER BY " + o
	}
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	res, err := d.Query(ctx, query, q.Value)
	if err != nil {
		return nil, err
	}
	out := make([]PropertyRecord, 0, len(res.Rows))
	for _, r := range res.Rows {
		out = append(out, PropertyRecord{ID: r[0], CollectTime: normalizeTime(r[1]), Value: r[2]})
	}
	return out, nil
}

func normalizeTime(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.Format(time.RFC3339Nano)
	}
	return v
}

// RowsWhere returns all columns of the rows where column equals value.
func (d *DB) RowsWhere(ctx context.Context, table, column string, value any, limit int) (*Result, error) {
	t, err := QuoteIdentifier(table)
	if err != nil {
		return nil, err
	}
	c, err := QuoteIdentifier(column)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT * FROM %s WHERE %s = %s`, t, c, d.placeholder(1))
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	return d.Query(ctx, query, value)
}
