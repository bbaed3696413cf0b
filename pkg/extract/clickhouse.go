package extract

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dbwarden/warden/pkg/conn"
	"github.com/dbwarden/warden/pkg/schema"
)

// Catalog queries against the system.* tables. Integer flags are cast to
// Int32 in SQL because database/sql will not convert the native UInt8 values
// into Go bools.
const (
	chVersionQuery = `SELECT version()`

	chDatabaseQuery = `SELECT currentDatabase(), version()`

	chTablesQuery = `
SELECT database, name, primary_key, toInt64(ifNull(total_rows, -1))
FROM system.tables
WHERE database NOT IN ('system', 'INFORMATION_SCHEMA', 'information_schema')
  AND engine NOT IN ('View', 'MaterializedView')
ORDER BY database, name`

	chColumnsQuery = `
SELECT database, table, name, type, toInt32(position), default_kind, default_expression, toInt32(is_in_primary_key)
FROM system.columns
WHERE database NOT IN ('system', 'INFORMATION_SCHEMA', 'information_schema')
ORDER BY database, table, position`

	chViewsQuery = `
SELECT database, name, create_table_query
FROM system.tables
WHERE database NOT IN ('system', 'INFORMATION_SCHEMA', 'information_schema')
  AND engine IN ('View', 'MaterializedView')
ORDER BY database, name`

	chFunctionsQuery = `
SELECT name, create_query
FROM system.functions
WHERE origin = 'SQLUserDefined'
ORDER BY name`
)

// chTypeTags maps unwrapped ClickHouse base types onto normalized tags.
// Unsigned integers fold onto the signed tag of the same width; the raw type
// string stays on the column.
var chTypeTags = map[string]schema.TypeTag{
	"Int8":        schema.TypeTinyInt,
	"Int16":       schema.TypeSmallInt,
	"Int32":       schema.TypeInt,
	"Int64":       schema.TypeBigInt,
	"UInt8":       schema.TypeTinyInt,
	"UInt16":      schema.TypeSmallInt,
	"UInt32":      schema.TypeInt,
	"UInt64":      schema.TypeBigInt,
	"Float32":     schema.TypeReal,
	"Float64":     schema.TypeFloat,
	"Decimal":     schema.TypeDecimal,
	"Decimal32":   schema.TypeDecimal,
	"Decimal64":   schema.TypeDecimal,
	"Decimal128":  schema.TypeDecimal,
	"Bool":        schema.TypeBool,
	"String":      schema.TypeText,
	"FixedString": schema.TypeChar,
	"Date":        schema.TypeDate,
	"Date32":      schema.TypeDate,
	"DateTime":    schema.TypeDateTime,
	"DateTime64":  schema.TypeDateTime,
	"UUID":        schema.TypeUUID,
	"JSON":        schema.TypeJSON,
}

func chTypeTag(base string) schema.TypeTag {
	if tag, ok := chTypeTags[base]; ok {
		return tag
	}
	return schema.TypeUnknown
}

// chUnwrap strips one wrapper like Nullable(...) from a type string.
func chUnwrap(s, wrapper string) (string, bool) {
	prefix := wrapper + "("
	if strings.HasPrefix(s, prefix) && strings.HasSuffix(s, ")") {
		return s[len(prefix) : len(s)-1], true
	}
	return "", false
}

// chParseType unwraps Nullable and LowCardinality and splits the base type
// name from its parenthesized arguments: "Nullable(Decimal(18, 4))" becomes
// ("Decimal", ["18", "4"], true).
func chParseType(raw string) (base string, args []string, nullable bool) {
	s := strings.TrimSpace(raw)
	for {
		if inner, ok := chUnwrap(s, "Nullable"); ok {
			nullable = true
			s = inner
			continue
		}
		if inner, ok := chUnwrap(s, "LowCardinality"); ok {
			s = inner
			continue
		}
		break
	}

	i := strings.IndexByte(s, '(')
	if i < 0 || !strings.HasSuffix(s, ")") {
		return s, nil, nullable
	}
	base = s[:i]
	for _, a := range strings.Split(s[i+1:len(s)-1], ",") {
		args = append(args, strings.TrimSpace(a))
	}
	return base, args, nullable
}

func chArgInt(args []string, i int) int {
	if i < len(args) {
		if n, err := strconv.Atoi(args[i]); err == nil {
			return n
		}
	}
	return 0
}

// chApplyType fills the type facets of col from a raw ClickHouse type string.
// The raw string is preserved as the display type.
func chApplyType(col *schema.Column, raw string) {
	base, args, nullable := chParseType(raw)
	col.DataType = raw
	col.Type = chTypeTag(base)
	col.IsNullable = nullable

	switch base {
	case "FixedString":
		col.MaxLength = chArgInt(args, 0)
	case "String":
		col.MaxLength = -1
	case "Decimal":
		col.Precision = chArgInt(args, 0)
		col.Scale = chArgInt(args, 1)
	case "Decimal32":
		col.Precision = 9
		col.Scale = chArgInt(args, 0)
	case "Decimal64":
		col.Precision = 18
		col.Scale = chArgInt(args, 0)
	case "Decimal128":
		col.Precision = 38
		col.Scale = chArgInt(args, 0)
	case "DateTime64":
		col.Scale = chArgInt(args, 0)
	}
}

// chPrimaryKey splits the comma-separated primary_key expression from
// system.tables, preserving key order.
func chPrimaryKey(expr string) []string {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	parts := strings.Split(expr, ",")
	cols := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			cols = append(cols, p)
		}
	}
	return cols
}

type clickhouseExtractor struct {
	log      *zap.Logger
	provider conn.Provider
	connID   string
}

// NewClickHouse returns an extractor for ClickHouse with reduced coverage:
// tables, columns, primary keys, views, and SQL user-defined functions.
// ClickHouse has no foreign keys, stored procedures, or DML triggers, so
// those collections stay empty.
func NewClickHouse(provider conn.Provider, connectionID string, log *zap.Logger) Extractor {
	return &clickhouseExtractor{
		log:      log.Named("extract.clickhouse"),
		provider: provider,
		connID:   connectionID,
	}
}

func (e *clickhouseExtractor) Engine() conn.Engine { return conn.EngineClickHouse }

func (e *clickhouseExtractor) ConnectionID() string { return e.connID }

func (e *clickhouseExtractor) TestConnection(ctx context.Context) (*Status, error) {
	return testConnection(ctx, e.provider, e.connID, chVersionQuery)
}

func (e *clickhouseExtractor) Extract(ctx context.Context, opts Options) (*schema.Database, error) {
	sess, err := e.provider.Acquire(ctx, e.connID)
	if err != nil {
		return nil, extractionErr("acquire", err)
	}
	defer func() { _ = sess.Close() }()

	filter := newSchemaFilter(opts.Schemas)
	db := &schema.Database{ExtractedAt: time.Now().UTC().Truncate(time.Millisecond)}

	if err := e.readDatabase(ctx, sess, db); err != nil {
		return nil, err
	}

	tables, keys, err := e.readTables(ctx, sess, filter, opts.IncludeRowCounts)
	if err != nil {
		return nil, err
	}
	if err := e.readColumns(ctx, sess, tables); err != nil {
		return nil, err
	}
	for _, key := range keys {
		db.Tables = append(db.Tables, *tables[key])
	}

	if db.Views, err = e.readViews(ctx, sess, filter, opts.IncludeDefinitions); err != nil {
		return nil, err
	}
	if db.Functions, err = e.readFunctions(ctx, sess, opts.IncludeDefinitions); err != nil {
		return nil, err
	}

	db.Sort()
	e.log.Debug("extraction complete",
		zap.String("connection", e.connID),
		zap.String("database", db.Name),
		zap.Int("tables", len(db.Tables)),
		zap.Int("views", len(db.Views)),
		zap.Int("functions", len(db.Functions)),
	)
	return db, nil
}

func (e *clickhouseExtractor) readDatabase(ctx context.Context, sess conn.Session, db *schema.Database) error {
	rows, err := sess.Query(ctx, chDatabaseQuery)
	if err != nil {
		return extractionErr("database", err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&db.Name, &db.ServerVersion); err != nil {
			return extractionErr("database", err)
		}
	}
	return rowsErr("database", rows)
}

func (e *clickhouseExtractor) readTables(ctx context.Context, sess conn.Session, filter schemaFilter, includeRowCounts bool) (map[string]*schema.Table, []string, error) {
	rows, err := sess.Query(ctx, chTablesQuery)
	if err != nil {
		return nil, nil, extractionErr("tables", err)
	}
	defer rows.Close()

	tables := make(map[string]*schema.Table)
	var keys []string
	for rows.Next() {
		var database, tableName, primaryKey string
		var totalRows int64
		if err := rows.Scan(&database, &tableName, &primaryKey, &totalRows); err != nil {
			return nil, nil, extractionErr("tables", err)
		}
		if !filter.includes(database) {
			continue
		}

		t := &schema.Table{
			Schema:            database,
			Name:              tableName,
			PrimaryKeyColumns: chPrimaryKey(primaryKey),
		}
		if includeRowCounts && totalRows >= 0 {
			t.RowCount = &totalRows
		}

		key := schema.ObjectKey(database, tableName)
		tables[key] = t
		keys = append(keys, key)
	}
	return tables, keys, rowsErr("tables", rows)
}

func (e *clickhouseExtractor) readColumns(ctx context.Context, sess conn.Session, tables map[string]*schema.Table) error {
	rows, err := sess.Query(ctx, chColumnsQuery)
	if err != nil {
		return extractionErr("columns", err)
	}
	defer rows.Close()

	for rows.Next() {
		var database, tableName, colName, typeString, defaultKind, defaultExpr string
		var position, inPrimaryKey int
		if err := rows.Scan(&database, &tableName, &colName, &typeString, &position, &defaultKind, &defaultExpr, &inPrimaryKey); err != nil {
			return extractionErr("columns", err)
		}

		t, ok := tables[schema.ObjectKey(database, tableName)]
		if !ok {
			continue
		}

		col := schema.Column{
			Name:         colName,
			Position:     position,
			IsPrimaryKey: inPrimaryKey != 0,
		}
		chApplyType(&col, typeString)
		switch defaultKind {
		case "DEFAULT":
			col.Default = &defaultExpr
		case "MATERIALIZED", "ALIAS":
			col.IsComputed = true
			col.Expression = defaultExpr
		}
		t.Columns = append(t.Columns, col)
	}
	return rowsErr("columns", rows)
}

func (e *clickhouseExtractor) readViews(ctx context.Context, sess conn.Session, filter schemaFilter, includeDefs bool) ([]schema.View, error) {
	rows, err := sess.Query(ctx, chViewsQuery)
	if err != nil {
		return nil, extractionErr("views", err)
	}
	defer rows.Close()

	var views []schema.View
	for rows.Next() {
		var v schema.View
		if err := rows.Scan(&v.Schema, &v.Name, &v.Definition); err != nil {
			return nil, extractionErr("views", err)
		}
		if !filter.includes(v.Schema) {
			continue
		}
		if !includeDefs {
			v.Definition = ""
		}
		views = append(views, v)
	}
	return views, rowsErr("views", rows)
}

// readFunctions lists SQL user-defined functions. They are global in
// ClickHouse, so the schema is left empty.
func (e *clickhouseExtractor) readFunctions(ctx context.Context, sess conn.Session, includeDefs bool) ([]schema.Function, error) {
	rows, err := sess.Query(ctx, chFunctionsQuery)
	if err != nil {
		return nil, extractionErr("functions", err)
	}
	defer rows.Close()

	var funcs []schema.Function
	for rows.Next() {
		var f schema.Function
		if err := rows.Scan(&f.Name, &f.Definition); err != nil {
			return nil, extractionErr("functions", err)
		}
		f.Kind = schema.FunctionScalar
		if !includeDefs {
			f.Definition = ""
		}
		funcs = append(funcs, f)
	}
	return funcs, rowsErr("functions", rows)
}
