package extract

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dbwarden/warden/pkg/conn"
	"github.com/dbwarden/warden/pkg/schema"
)

// Catalog queries against pg_catalog and information_schema. Schemas with
// the reserved pg_ prefix and information_schema are always excluded; any
// further filtering happens client-side.
const (
	pgVersionQuery = `SELECT version()`

	pgDatabaseQuery = `
SELECT current_database(), current_setting('server_version'), d.datcollate
FROM pg_database d
WHERE d.datname = current_database()`

	pgTablesQuery = `
SELECT n.nspname, c.relname
FROM pg_class c
JOIN pg_namespace n ON n.oid = c.relnamespace
WHERE c.relkind IN ('r', 'p')
  AND NOT c.relispartition
  AND n.nspname NOT LIKE 'pg_%' AND n.nspname <> 'information_schema'
ORDER BY n.nspname, c.relname`

	pgColumnsQuery = `
SELECT
	c.table_schema,
	c.table_name,
	c.column_name,
	c.udt_name,
	COALESCE(c.character_maximum_length, 0),
	COALESCE(c.numeric_precision, 0),
	COALESCE(c.numeric_scale, 0),
	COALESCE(c.datetime_precision, 0),
	c.is_nullable = 'YES',
	c.is_identity = 'YES' OR COALESCE(c.column_default LIKE 'nextval(%', false),
	c.is_generated = 'ALWAYS',
	COALESCE(c.generation_expression, ''),
	c.column_default,
	c.ordinal_position
FROM information_schema.columns c
WHERE c.table_schema NOT LIKE 'pg_%' AND c.table_schema <> 'information_schema'
ORDER BY c.table_schema, c.table_name, c.ordinal_position`

	pgIndexesQuery = `
SELECT
	n.nspname,
	t.relname,
	ic.relname,
	am.amname,
	ix.indisunique,
	ix.indisprimary,
	COALESCE(pg_get_expr(ix.indpred, ix.indrelid), ''),
	COALESCE(a.attname, pg_get_indexdef(ix.indexrelid, ord.n::int, true)),
	ord.n > ix.indnkeyatts
FROM pg_index ix
JOIN pg_class ic ON ic.oid = ix.indexrelid
JOIN pg_class t ON t.oid = ix.indrelid
JOIN pg_namespace n ON n.oid = t.relnamespace
JOIN pg_am am ON am.oid = ic.relam
CROSS JOIN LATERAL unnest(ix.indkey) WITH ORDINALITY AS ord(attnum, n)
LEFT JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ord.attnum AND ord.attnum > 0
WHERE t.relkind IN ('r', 'p')
  AND NOT t.relispartition
  AND n.nspname NOT LIKE 'pg_%' AND n.nspname <> 'information_schema'
ORDER BY n.nspname, t.relname, ic.relname, ord.n`

	pgForeignKeysQuery = `
SELECT
	n.nspname,
	t.relname,
	con.conname,
	rn.nspname,
	rt.relname,
	a.attname,
	ra.attname,
	con.confdeltype::text,
	con.confupdtype::text
FROM pg_constraint con
JOIN pg_class t ON t.oid = con.conrelid
JOIN pg_namespace n ON n.oid = t.relnamespace
JOIN pg_class rt ON rt.oid = con.confrelid
JOIN pg_namespace rn ON rn.oid = rt.relnamespace
CROSS JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS cols(attnum, refattnum, n)
JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = cols.attnum
JOIN pg_attribute ra ON ra.attrelid = rt.oid AND ra.attnum = cols.refattnum
WHERE con.contype = 'f'
  AND n.nspname NOT LIKE 'pg_%' AND n.nspname <> 'information_schema'
ORDER BY n.nspname, t.relname, con.conname, cols.n`

	pgViewsQuery = `
SELECT schemaname, viewname, definition
FROM pg_views
WHERE schemaname NOT LIKE 'pg_%' AND schemaname <> 'information_schema'
UNION ALL
SELECT schemaname, matviewname, definition
FROM pg_matviews
WHERE schemaname NOT LIKE 'pg_%' AND schemaname <> 'information_schema'
ORDER BY 1, 2`

	pgRoutinesQuery = `
SELECT
	n.nspname,
	p.proname,
	p.oid::text,
	p.prokind::text,
	pg_get_functiondef(p.oid),
	COALESCE(pg_get_function_result(p.oid), ''),
	p.proretset
FROM pg_proc p
JOIN pg_namespace n ON n.oid = p.pronamespace
WHERE p.prokind IN ('f', 'p')
  AND n.nspname NOT LIKE 'pg_%' AND n.nspname <> 'information_schema'
ORDER BY n.nspname, p.proname, p.oid`

	pgParametersQuery = `
SELECT
	p.specific_name,
	COALESCE(p.parameter_name, ''),
	COALESCE(p.data_type, ''),
	p.ordinal_position,
	p.parameter_default IS NOT NULL,
	COALESCE(p.parameter_mode IN ('OUT', 'INOUT'), false)
FROM information_schema.parameters p
WHERE p.specific_schema NOT LIKE 'pg_%' AND p.specific_schema <> 'information_schema'
  AND p.ordinal_position > 0
ORDER BY p.specific_name, p.ordinal_position`

	pgTriggersQuery = `
SELECT
	n.nspname,
	c.relname,
	t.tgname,
	pg_get_triggerdef(t.oid, true),
	t.tgenabled::text = 'D'
FROM pg_trigger t
JOIN pg_class c ON c.oid = t.tgrelid
JOIN pg_namespace n ON n.oid = c.relnamespace
WHERE NOT t.tgisinternal
  AND n.nspname NOT LIKE 'pg_%' AND n.nspname <> 'information_schema'
ORDER BY n.nspname, c.relname, t.tgname`

	// reltuples is the planner's estimate; -1 means the table has never been
	// analyzed and is skipped.
	pgRowCountsQuery = `
SELECT n.nspname, c.relname, c.reltuples::bigint
FROM pg_class c
JOIN pg_namespace n ON n.oid = c.relnamespace
WHERE c.relkind IN ('r', 'p')
  AND NOT c.relispartition
  AND n.nspname NOT LIKE 'pg_%' AND n.nspname <> 'information_schema'
ORDER BY n.nspname, c.relname`
)

// pgTypeTags maps pg_type names (udt_name) onto normalized tags.
var pgTypeTags = map[string]schema.TypeTag{
	"int2":        schema.TypeSmallInt,
	"int4":        schema.TypeInt,
	"int8":        schema.TypeBigInt,
	"bool":        schema.TypeBool,
	"numeric":     schema.TypeDecimal,
	"money":       schema.TypeMoney,
	"float4":      schema.TypeReal,
	"float8":      schema.TypeFloat,
	"bpchar":      schema.TypeChar,
	"varchar":     schema.TypeVarChar,
	"text":        schema.TypeText,
	"citext":      schema.TypeText,
	"name":        schema.TypeText,
	"bytea":       schema.TypeVarBinary,
	"date":        schema.TypeDate,
	"time":        schema.TypeTime,
	"timetz":      schema.TypeTime,
	"timestamp":   schema.TypeTimestamp,
	"timestamptz": schema.TypeTimestampTZ,
	"interval":    schema.TypeInterval,
	"uuid":        schema.TypeUUID,
	"json":        schema.TypeJSON,
	"jsonb":       schema.TypeJSONB,
	"xml":         schema.TypeXML,
}

func pgTypeTag(udtName string) schema.TypeTag {
	if tag, ok := pgTypeTags[strings.ToLower(udtName)]; ok {
		return tag
	}
	return schema.TypeUnknown
}

// pgFacets cleans the information_schema length, precision, and scale columns
// so only the facets that apply to the type survive. Unbounded text types get
// MaxLength -1, matching the MAX convention used for SQL Server.
func pgFacets(udtName string, charLen, numPrecision, numScale, dtPrecision int) (maxLen, precision, scale int) {
	switch udtName {
	case "varchar", "bpchar":
		if charLen > 0 {
			return charLen, 0, 0
		}
		return -1, 0, 0
	case "text", "bytea":
		return -1, 0, 0
	case "numeric":
		return 0, numPrecision, numScale
	case "time", "timetz", "timestamp", "timestamptz", "interval":
		return 0, 0, dtPrecision
	default:
		return 0, 0, 0
	}
}

// pgTypeString renders the display form of a column type, e.g.
// "varchar(255)", "numeric(19,4)", "timestamptz", "timestamp(3)". Precision
// on time types is shown only when it differs from the default of 6.
func pgTypeString(udtName string, maxLen, precision, scale int) string {
	switch udtName {
	case "int2":
		return "smallint"
	case "int4":
		return "integer"
	case "int8":
		return "bigint"
	case "float4":
		return "real"
	case "float8":
		return "double precision"
	case "bool":
		return "boolean"
	case "bpchar":
		if maxLen > 0 {
			return fmt.Sprintf("char(%d)", maxLen)
		}
		return "char"
	case "varchar":
		if maxLen > 0 {
			return fmt.Sprintf("varchar(%d)", maxLen)
		}
		return "varchar"
	case "numeric":
		if precision > 0 {
			return fmt.Sprintf("numeric(%d,%d)", precision, scale)
		}
		return "numeric"
	case "time", "timetz", "timestamp", "timestamptz":
		if scale != 6 {
			return fmt.Sprintf("%s(%d)", udtName, scale)
		}
		return udtName
	default:
		return udtName
	}
}

func pgIndexType(amname string) schema.IndexType {
	switch amname {
	case "btree":
		return schema.IndexBTree
	case "hash":
		return schema.IndexHash
	case "gin":
		return schema.IndexGIN
	case "gist":
		return schema.IndexGiST
	case "spgist":
		return schema.IndexSPGiST
	case "brin":
		return schema.IndexBRIN
	default:
		return schema.IndexUnknown
	}
}

// pgRefAction maps a pg_constraint action code onto its SQL form.
func pgRefAction(code string) schema.RefAction {
	switch code {
	case "r":
		return schema.RefRestrict
	case "c":
		return schema.RefCascade
	case "n":
		return schema.RefSetNull
	case "d":
		return schema.RefSetDefault
	default:
		return schema.RefNoAction
	}
}

type postgresExtractor struct {
	log      *zap.Logger
	provider conn.Provider
	connID   string
}

// NewPostgres returns an extractor that reads the PostgreSQL catalogs.
// Partitioned tables are extracted as a single object; their partitions are
// not listed separately. Materialized views appear alongside regular views.
func NewPostgres(provider conn.Provider, connectionID string, log *zap.Logger) Extractor {
	return &postgresExtractor{
		log:      log.Named("extract.postgres"),
		provider: provider,
		connID:   connectionID,
	}
}

func (e *postgresExtractor) Engine() conn.Engine { return conn.EnginePostgres }

func (e *postgresExtractor) ConnectionID() string { return e.connID }

func (e *postgresExtractor) TestConnection(ctx context.Context) (*Status, error) {
	return testConnection(ctx, e.provider, e.connID, pgVersionQuery)
}

func (e *postgresExtractor) Extract(ctx context.Context, opts Options) (*schema.Database, error) {
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

	tables, keys, err := e.readTables(ctx, sess, filter)
	if err != nil {
		return nil, err
	}
	if err := e.readColumns(ctx, sess, tables); err != nil {
		return nil, err
	}
	if err := e.readIndexes(ctx, sess, tables); err != nil {
		return nil, err
	}
	if err := e.readForeignKeys(ctx, sess, tables); err != nil {
		return nil, err
	}
	if opts.IncludeRowCounts {
		if err := e.readRowCounts(ctx, sess, tables); err != nil {
			return nil, err
		}
	}
	for _, key := range keys {
		db.Tables = append(db.Tables, *tables[key])
	}

	if db.Views, err = e.readViews(ctx, sess, filter, opts.IncludeDefinitions); err != nil {
		return nil, err
	}

	procs, funcs, err := e.readRoutines(ctx, sess, filter, opts.IncludeDefinitions)
	if err != nil {
		return nil, err
	}
	if err := e.readParameters(ctx, sess, procs, funcs); err != nil {
		return nil, err
	}
	for _, p := range procs {
		db.Procedures = append(db.Procedures, *p)
	}
	for _, f := range funcs {
		db.Functions = append(db.Functions, *f)
	}

	if db.Triggers, err = e.readTriggers(ctx, sess, filter, opts.IncludeDefinitions); err != nil {
		return nil, err
	}

	db.Sort()
	e.log.Debug("extraction complete",
		zap.String("connection", e.connID),
		zap.String("database", db.Name),
		zap.Int("tables", len(db.Tables)),
		zap.Int("views", len(db.Views)),
		zap.Int("procedures", len(db.Procedures)),
		zap.Int("functions", len(db.Functions)),
		zap.Int("triggers", len(db.Triggers)),
	)
	return db, nil
}

func (e *postgresExtractor) readDatabase(ctx context.Context, sess conn.Session, db *schema.Database) error {
	rows, err := sess.Query(ctx, pgDatabaseQuery)
	if err != nil {
		return extractionErr("database", err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&db.Name, &db.ServerVersion, &db.Collation); err != nil {
			return extractionErr("database", err)
		}
	}
	return rowsErr("database", rows)
}

func (e *postgresExtractor) readTables(ctx context.Context, sess conn.Session, filter schemaFilter) (map[string]*schema.Table, []string, error) {
	rows, err := sess.Query(ctx, pgTablesQuery)
	if err != nil {
		return nil, nil, extractionErr("tables", err)
	}
	defer rows.Close()

	tables := make(map[string]*schema.Table)
	var keys []string
	for rows.Next() {
		var schemaName, tableName string
		if err := rows.Scan(&schemaName, &tableName); err != nil {
			return nil, nil, extractionErr("tables", err)
		}
		if !filter.includes(schemaName) {
			continue
		}

		key := schema.ObjectKey(schemaName, tableName)
		tables[key] = &schema.Table{Schema: schemaName, Name: tableName}
		keys = append(keys, key)
	}
	return tables, keys, rowsErr("tables", rows)
}

func (e *postgresExtractor) readColumns(ctx context.Context, sess conn.Session, tables map[string]*schema.Table) error {
	rows, err := sess.Query(ctx, pgColumnsQuery)
	if err != nil {
		return extractionErr("columns", err)
	}
	defer rows.Close()

	for rows.Next() {
		var schemaName, tableName, colName, udtName, expression string
		var charLen, numPrecision, numScale, dtPrecision, position int
		var nullable, identity, generated bool
		var defaultVal sql.NullString
		if err := rows.Scan(
			&schemaName, &tableName, &colName, &udtName,
			&charLen, &numPrecision, &numScale, &dtPrecision,
			&nullable, &identity, &generated,
			&expression, &defaultVal, &position,
		); err != nil {
			return extractionErr("columns", err)
		}

		t, ok := tables[schema.ObjectKey(schemaName, tableName)]
		if !ok {
			continue
		}

		maxLen, precision, scale := pgFacets(udtName, charLen, numPrecision, numScale, dtPrecision)
		dataType := pgTypeString(udtName, maxLen, precision, scale)
		tag := pgTypeTag(udtName)
		if elem, isArray := strings.CutPrefix(udtName, "_"); isArray {
			dataType = pgTypeString(elem, 0, 0, 0) + "[]"
			tag = schema.TypeUnknown
			maxLen, precision, scale = 0, 0, 0
		}

		col := schema.Column{
			Name:       colName,
			DataType:   dataType,
			Type:       tag,
			MaxLength:  maxLen,
			Precision:  precision,
			Scale:      scale,
			IsNullable: nullable,
			IsIdentity: identity,
			IsComputed: generated,
			Expression: expression,
			Position:   position,
		}
		if defaultVal.Valid {
			col.Default = &defaultVal.String
		}
		t.Columns = append(t.Columns, col)
	}
	return rowsErr("columns", rows)
}

func (e *postgresExtractor) readIndexes(ctx context.Context, sess conn.Session, tables map[string]*schema.Table) error {
	rows, err := sess.Query(ctx, pgIndexesQuery)
	if err != nil {
		return extractionErr("indexes", err)
	}
	defer rows.Close()

	type indexRef struct {
		table *schema.Table
		index *schema.Index
	}
	seen := make(map[string]*schema.Index)
	var order []indexRef

	for rows.Next() {
		var schemaName, tableName, indexName, amName, filterPredicate, columnName string
		var unique, primaryKey, included bool
		if err := rows.Scan(
			&schemaName, &tableName, &indexName, &amName,
			&unique, &primaryKey, &filterPredicate,
			&columnName, &included,
		); err != nil {
			return extractionErr("indexes", err)
		}

		t, ok := tables[schema.ObjectKey(schemaName, tableName)]
		if !ok {
			continue
		}

		key := schema.ObjectKey(schemaName, tableName) + "/" + strings.ToLower(indexName)
		ix, ok := seen[key]
		if !ok {
			ix = &schema.Index{
				Name:            indexName,
				Type:            pgIndexType(amName),
				IsUnique:        unique,
				IsPrimaryKey:    primaryKey,
				FilterPredicate: filterPredicate,
			}
			seen[key] = ix
			order = append(order, indexRef{table: t, index: ix})
		}
		if included {
			ix.IncludedColumns = append(ix.IncludedColumns, columnName)
		} else {
			ix.KeyColumns = append(ix.KeyColumns, columnName)
		}
	}
	if err := rowsErr("indexes", rows); err != nil {
		return err
	}

	for _, ref := range order {
		if ref.index.IsPrimaryKey {
			ref.table.PrimaryKeyColumns = ref.index.KeyColumns
			for _, name := range ref.index.KeyColumns {
				if col := ref.table.Column(name); col != nil {
					col.IsPrimaryKey = true
				}
			}
		}
		ref.table.Indexes = append(ref.table.Indexes, *ref.index)
	}
	return nil
}

func (e *postgresExtractor) readForeignKeys(ctx context.Context, sess conn.Session, tables map[string]*schema.Table) error {
	rows, err := sess.Query(ctx, pgForeignKeysQuery)
	if err != nil {
		return extractionErr("foreign_keys", err)
	}
	defer rows.Close()

	type fkRef struct {
		table *schema.Table
		fk    *schema.ForeignKey
	}
	seen := make(map[string]*schema.ForeignKey)
	var order []fkRef

	for rows.Next() {
		var schemaName, tableName, fkName, refSchema, refTable string
		var parentColumn, referencedColumn, deleteCode, updateCode string
		if err := rows.Scan(
			&schemaName, &tableName, &fkName,
			&refSchema, &refTable,
			&parentColumn, &referencedColumn,
			&deleteCode, &updateCode,
		); err != nil {
			return extractionErr("foreign_keys", err)
		}

		t, ok := tables[schema.ObjectKey(schemaName, tableName)]
		if !ok {
			continue
		}

		key := schema.ObjectKey(schemaName, tableName) + "/" + strings.ToLower(fkName)
		fk, ok := seen[key]
		if !ok {
			fk = &schema.ForeignKey{
				Name:             fkName,
				ReferencedSchema: refSchema,
				ReferencedTable:  refTable,
				OnDelete:         pgRefAction(deleteCode),
				OnUpdate:         pgRefAction(updateCode),
			}
			seen[key] = fk
			order = append(order, fkRef{table: t, fk: fk})
		}
		fk.Columns = append(fk.Columns, parentColumn)
		fk.ReferencedColumns = append(fk.ReferencedColumns, referencedColumn)
	}
	if err := rowsErr("foreign_keys", rows); err != nil {
		return err
	}

	for _, ref := range order {
		ref.table.ForeignKeys = append(ref.table.ForeignKeys, *ref.fk)
	}
	return nil
}

func (e *postgresExtractor) readRowCounts(ctx context.Context, sess conn.Session, tables map[string]*schema.Table) error {
	rows, err := sess.Query(ctx, pgRowCountsQuery)
	if err != nil {
		return extractionErr("row_counts", err)
	}
	defer rows.Close()

	for rows.Next() {
		var schemaName, tableName string
		var count int64
		if err := rows.Scan(&schemaName, &tableName, &count); err != nil {
			return extractionErr("row_counts", err)
		}
		if count < 0 {
			continue
		}
		if t, ok := tables[schema.ObjectKey(schemaName, tableName)]; ok {
			t.RowCount = &count
		}
	}
	return rowsErr("row_counts", rows)
}

func (e *postgresExtractor) readViews(ctx context.Context, sess conn.Session, filter schemaFilter, includeDefs bool) ([]schema.View, error) {
	rows, err := sess.Query(ctx, pgViewsQuery)
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

// readRoutines loads procedures and functions keyed by pg_proc oid so that
// parameters can be attached to the right overload.
func (e *postgresExtractor) readRoutines(ctx context.Context, sess conn.Session, filter schemaFilter, includeDefs bool) (map[string]*schema.Procedure, map[string]*schema.Function, error) {
	rows, err := sess.Query(ctx, pgRoutinesQuery)
	if err != nil {
		return nil, nil, extractionErr("routines", err)
	}
	defer rows.Close()

	procs := make(map[string]*schema.Procedure)
	funcs := make(map[string]*schema.Function)
	for rows.Next() {
		var schemaName, routineName, oid, kind, definition, returnType string
		var returnsSet bool
		if err := rows.Scan(&schemaName, &routineName, &oid, &kind, &definition, &returnType, &returnsSet); err != nil {
			return nil, nil, extractionErr("routines", err)
		}
		if !filter.includes(schemaName) {
			continue
		}
		if !includeDefs {
			definition = ""
		}

		if kind == "p" {
			procs[oid] = &schema.Procedure{Schema: schemaName, Name: routineName, Definition: definition}
			continue
		}

		f := &schema.Function{
			Schema:     schemaName,
			Name:       routineName,
			Definition: definition,
			ReturnType: returnType,
			Kind:       schema.FunctionScalar,
		}
		if returnsSet {
			f.Kind = schema.FunctionMultiStatementTable
		}
		funcs[oid] = f
	}
	return procs, funcs, rowsErr("routines", rows)
}

// readParameters attaches parameter rows to their routine. The
// information_schema specific_name convention is "name_oid", which carries
// the overload identity.
func (e *postgresExtractor) readParameters(ctx context.Context, sess conn.Session, procs map[string]*schema.Procedure, funcs map[string]*schema.Function) error {
	rows, err := sess.Query(ctx, pgParametersQuery)
	if err != nil {
		return extractionErr("parameters", err)
	}
	defer rows.Close()

	for rows.Next() {
		var specificName string
		var param schema.Parameter
		if err := rows.Scan(
			&specificName,
			&param.Name, &param.DataType, &param.Position, &param.HasDefault, &param.IsOutput,
		); err != nil {
			return extractionErr("parameters", err)
		}

		oid := specificName
		if i := strings.LastIndex(specificName, "_"); i >= 0 {
			oid = specificName[i+1:]
		}
		if p, ok := procs[oid]; ok {
			p.Parameters = append(p.Parameters, param)
		} else if f, ok := funcs[oid]; ok {
			f.Parameters = append(f.Parameters, param)
		}
	}
	return rowsErr("parameters", rows)
}

func (e *postgresExtractor) readTriggers(ctx context.Context, sess conn.Session, filter schemaFilter, includeDefs bool) ([]schema.Trigger, error) {
	rows, err := sess.Query(ctx, pgTriggersQuery)
	if err != nil {
		return nil, extractionErr("triggers", err)
	}
	defer rows.Close()

	var triggers []schema.Trigger
	for rows.Next() {
		var tr schema.Trigger
		if err := rows.Scan(&tr.TableSchema, &tr.TableName, &tr.Name, &tr.Definition, &tr.IsDisabled); err != nil {
			return nil, extractionErr("triggers", err)
		}
		if !filter.includes(tr.TableSchema) {
			continue
		}

		tr.Schema = tr.TableSchema
		if !includeDefs {
			tr.Definition = ""
		}
		triggers = append(triggers, tr)
	}
	return triggers, rowsErr("triggers", rows)
}
