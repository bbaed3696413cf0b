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

// Catalog queries against the sys.* views. Each query is static; schema
// filtering happens client-side so the SQL stays byte-stable for tests.
const (
	mssqlVersionQuery = `SELECT @@VERSION`

	mssqlDatabaseQuery = `
SELECT
	DB_NAME(),
	CAST(SERVERPROPERTY('ProductVersion') AS nvarchar(128)),
	CAST(DATABASEPROPERTYEX(DB_NAME(), 'Collation') AS nvarchar(128))`

	mssqlTablesQuery = `
SELECT
	s.name,
	t.name,
	t.temporal_type,
	ISNULL(hs.name, ''),
	ISNULL(ht.name, '')
FROM sys.tables t
JOIN sys.schemas s ON s.schema_id = t.schema_id
LEFT JOIN sys.tables ht ON ht.object_id = t.history_table_id
LEFT JOIN sys.schemas hs ON hs.schema_id = ht.schema_id
WHERE t.is_ms_shipped = 0 AND t.temporal_type <> 1
ORDER BY s.name, t.name`

	mssqlColumnsQuery = `
SELECT
	s.name,
	t.name,
	c.name,
	ty.name,
	c.max_length,
	c.precision,
	c.scale,
	c.is_nullable,
	c.is_identity,
	c.is_computed,
	ISNULL(cc.definition, ''),
	dc.definition,
	c.column_id
FROM sys.columns c
JOIN sys.tables t ON t.object_id = c.object_id
JOIN sys.schemas s ON s.schema_id = t.schema_id
JOIN sys.types ty ON ty.user_type_id = c.user_type_id
LEFT JOIN sys.computed_columns cc ON cc.object_id = c.object_id AND cc.column_id = c.column_id
LEFT JOIN sys.default_constraints dc ON dc.object_id = c.default_object_id
WHERE t.is_ms_shipped = 0 AND t.temporal_type <> 1
ORDER BY s.name, t.name, c.column_id`

	mssqlIndexesQuery = `
SELECT
	s.name,
	t.name,
	i.name,
	i.type_desc,
	i.is_unique,
	i.is_primary_key,
	ISNULL(i.filter_definition, ''),
	c.name,
	ic.is_included_column
FROM sys.indexes i
JOIN sys.tables t ON t.object_id = i.object_id
JOIN sys.schemas s ON s.schema_id = t.schema_id
JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
WHERE t.is_ms_shipped = 0 AND t.temporal_type <> 1 AND i.type > 0 AND i.is_hypothetical = 0
ORDER BY s.name, t.name, i.name, ic.key_ordinal, ic.index_column_id`

	mssqlForeignKeysQuery = `
SELECT
	s.name,
	t.name,
	fk.name,
	rs.name,
	rt.name,
	pc.name,
	rc.name,
	fk.delete_referential_action_desc,
	fk.update_referential_action_desc
FROM sys.foreign_keys fk
JOIN sys.tables t ON t.object_id = fk.parent_object_id
JOIN sys.schemas s ON s.schema_id = t.schema_id
JOIN sys.tables rt ON rt.object_id = fk.referenced_object_id
JOIN sys.schemas rs ON rs.schema_id = rt.schema_id
JOIN sys.foreign_key_columns fkc ON fkc.constraint_object_id = fk.object_id
JOIN sys.columns pc ON pc.object_id = fkc.parent_object_id AND pc.column_id = fkc.parent_column_id
JOIN sys.columns rc ON rc.object_id = fkc.referenced_object_id AND rc.column_id = fkc.referenced_column_id
WHERE fk.is_ms_shipped = 0
ORDER BY s.name, t.name, fk.name, fkc.constraint_column_id`

	mssqlViewsQuery = `
SELECT s.name, v.name, ISNULL(m.definition, '')
FROM sys.views v
JOIN sys.schemas s ON s.schema_id = v.schema_id
LEFT JOIN sys.sql_modules m ON m.object_id = v.object_id
WHERE v.is_ms_shipped = 0
ORDER BY s.name, v.name`

	mssqlProceduresQuery = `
SELECT s.name, p.name, ISNULL(m.definition, '')
FROM sys.procedures p
JOIN sys.schemas s ON s.schema_id = p.schema_id
LEFT JOIN sys.sql_modules m ON m.object_id = p.object_id
WHERE p.is_ms_shipped = 0
ORDER BY s.name, p.name`

	mssqlFunctionsQuery = `
SELECT s.name, o.name, RTRIM(o.type), ISNULL(m.definition, ''), ISNULL(TYPE_NAME(rp.user_type_id), '')
FROM sys.objects o
JOIN sys.schemas s ON s.schema_id = o.schema_id
LEFT JOIN sys.sql_modules m ON m.object_id = o.object_id
LEFT JOIN sys.parameters rp ON rp.object_id = o.object_id AND rp.parameter_id = 0
WHERE o.type IN ('FN', 'IF', 'TF') AND o.is_ms_shipped = 0
ORDER BY s.name, o.name`

	mssqlParametersQuery = `
SELECT s.name, o.name, p.name, TYPE_NAME(p.user_type_id), p.parameter_id, p.has_default_value, p.is_output
FROM sys.parameters p
JOIN sys.objects o ON o.object_id = p.object_id
JOIN sys.schemas s ON s.schema_id = o.schema_id
WHERE o.type IN ('P', 'FN', 'IF', 'TF') AND o.is_ms_shipped = 0 AND p.parameter_id > 0
ORDER BY s.name, o.name, p.parameter_id`

	mssqlTriggersQuery = `
SELECT s.name, st.name, tr.name, ISNULL(m.definition, ''), tr.is_disabled
FROM sys.triggers tr
JOIN sys.tables st ON st.object_id = tr.parent_id
JOIN sys.schemas s ON s.schema_id = st.schema_id
LEFT JOIN sys.sql_modules m ON m.object_id = tr.object_id
WHERE tr.is_ms_shipped = 0 AND tr.parent_class = 1
ORDER BY s.name, st.name, tr.name`

	// Row counts come from partition stats rather than COUNT(*) so large
	// tables stay cheap to snapshot.
	mssqlRowCountsQuery = `
SELECT s.name, t.name, SUM(ps.row_count)
FROM sys.dm_db_partition_stats ps
JOIN sys.tables t ON t.object_id = ps.object_id
JOIN sys.schemas s ON s.schema_id = t.schema_id
WHERE ps.index_id IN (0, 1) AND t.is_ms_shipped = 0
GROUP BY s.name, t.name`
)

// mssqlTypeTags maps sys.types names onto normalized tags. Aliases collapse
// onto their canonical tag so narrowing detection compares like with like.
var mssqlTypeTags = map[string]schema.TypeTag{
	"int":              schema.TypeInt,
	"bigint":           schema.TypeBigInt,
	"smallint":         schema.TypeSmallInt,
	"tinyint":          schema.TypeTinyInt,
	"bit":              schema.TypeBit,
	"decimal":          schema.TypeDecimal,
	"numeric":          schema.TypeDecimal,
	"money":            schema.TypeMoney,
	"smallmoney":       schema.TypeMoney,
	"float":            schema.TypeFloat,
	"real":             schema.TypeReal,
	"char":             schema.TypeChar,
	"nchar":            schema.TypeNChar,
	"varchar":          schema.TypeVarChar,
	"nvarchar":         schema.TypeNVarChar,
	"sysname":          schema.TypeNVarChar,
	"text":             schema.TypeText,
	"ntext":            schema.TypeText,
	"binary":           schema.TypeBinary,
	"varbinary":        schema.TypeVarBinary,
	"image":            schema.TypeBinary,
	"date":             schema.TypeDate,
	"time":             schema.TypeTime,
	"datetime":         schema.TypeDateTime,
	"smalldatetime":    schema.TypeDateTime,
	"datetime2":        schema.TypeDateTime2,
	"datetimeoffset":   schema.TypeDateTimeOffset,
	"rowversion":       schema.TypeTimestamp,
	"timestamp":        schema.TypeTimestamp,
	"uniqueidentifier": schema.TypeUUID,
	"xml":              schema.TypeXML,
}

func mssqlTypeTag(name string) schema.TypeTag {
	if tag, ok := mssqlTypeTags[strings.ToLower(name)]; ok {
		return tag
	}
	return schema.TypeUnknown
}

// mssqlFacets cleans the raw catalog length, precision, and scale so only the
// facets that apply to the type survive. nchar and nvarchar lengths arrive in
// bytes and are halved to character counts; -1 (MAX) passes through.
func mssqlFacets(typeName string, rawLen, rawPrecision, rawScale int) (maxLen, precision, scale int) {
	switch strings.ToLower(typeName) {
	case "char", "varchar", "binary", "varbinary", "text", "image":
		return rawLen, 0, 0
	case "nchar", "nvarchar", "ntext", "sysname":
		if rawLen > 0 {
			rawLen /= 2
		}
		return rawLen, 0, 0
	case "decimal", "numeric", "money", "smallmoney":
		return 0, rawPrecision, rawScale
	case "float", "real":
		return 0, rawPrecision, 0
	case "time", "datetime2", "datetimeoffset":
		return 0, 0, rawScale
	default:
		return 0, 0, 0
	}
}

// mssqlTypeString renders the display form of a column type from its cleaned
// facets, e.g. "nvarchar(255)", "varbinary(max)", "decimal(19,4)",
// "datetime2(7)".
func mssqlTypeString(typeName string, maxLen, precision, scale int) string {
	name := strings.ToLower(typeName)
	switch name {
	case "char", "nchar", "varchar", "nvarchar", "binary", "varbinary":
		if maxLen == -1 {
			return name + "(max)"
		}
		return fmt.Sprintf("%s(%d)", name, maxLen)
	case "decimal", "numeric":
		return fmt.Sprintf("%s(%d,%d)", name, precision, scale)
	case "time", "datetime2", "datetimeoffset":
		return fmt.Sprintf("%s(%d)", name, scale)
	default:
		return name
	}
}

// mssqlRefAction turns an action_desc like SET_NULL into its SQL form.
func mssqlRefAction(desc string) schema.RefAction {
	return schema.RefAction(strings.ReplaceAll(desc, "_", " "))
}

func mssqlIndexType(typeDesc string) schema.IndexType {
	switch {
	case strings.Contains(typeDesc, "COLUMNSTORE"):
		return schema.IndexColumnstore
	case typeDesc == "CLUSTERED":
		return schema.IndexClustered
	case typeDesc == "NONCLUSTERED":
		return schema.IndexNonClustered
	default:
		return schema.IndexUnknown
	}
}

type sqlServerExtractor struct {
	log      *zap.Logger
	provider conn.Provider
	connID   string
}

// NewSQLServer returns an extractor that reads the SQL Server sys.* catalog
// views. Temporal history tables are folded into their parent table rather
// than extracted as standalone objects.
func NewSQLServer(provider conn.Provider, connectionID string, log *zap.Logger) Extractor {
	return &sqlServerExtractor{
		log:      log.Named("extract.sqlserver"),
		provider: provider,
		connID:   connectionID,
	}
}

func (e *sqlServerExtractor) Engine() conn.Engine { return conn.EngineSQLServer }

func (e *sqlServerExtractor) ConnectionID() string { return e.connID }

func (e *sqlServerExtractor) TestConnection(ctx context.Context) (*Status, error) {
	return testConnection(ctx, e.provider, e.connID, mssqlVersionQuery)
}

func (e *sqlServerExtractor) Extract(ctx context.Context, opts Options) (*schema.Database, error) {
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

	procs, err := e.readProcedures(ctx, sess, filter, opts.IncludeDefinitions)
	if err != nil {
		return nil, err
	}
	funcs, err := e.readFunctions(ctx, sess, filter, opts.IncludeDefinitions)
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

func (e *sqlServerExtractor) readDatabase(ctx context.Context, sess conn.Session, db *schema.Database) error {
	rows, err := sess.Query(ctx, mssqlDatabaseQuery)
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

// readTables returns the table map keyed by schema.ObjectKey plus the keys in
// catalog order so assembly stays deterministic before the final sort.
func (e *sqlServerExtractor) readTables(ctx context.Context, sess conn.Session, filter schemaFilter) (map[string]*schema.Table, []string, error) {
	rows, err := sess.Query(ctx, mssqlTablesQuery)
	if err != nil {
		return nil, nil, extractionErr("tables", err)
	}
	defer rows.Close()

	tables := make(map[string]*schema.Table)
	var keys []string
	for rows.Next() {
		var schemaName, tableName, historySchema, historyTable string
		var temporalType int
		if err := rows.Scan(&schemaName, &tableName, &temporalType, &historySchema, &historyTable); err != nil {
			return nil, nil, extractionErr("tables", err)
		}
		if !filter.includes(schemaName) {
			continue
		}

		t := &schema.Table{Schema: schemaName, Name: tableName, IsTemporal: temporalType == 2}
		if t.IsTemporal && historyTable != "" {
			t.HistoryTable = historySchema + "." + historyTable
		}

		key := schema.ObjectKey(schemaName, tableName)
		tables[key] = t
		keys = append(keys, key)
	}
	return tables, keys, rowsErr("tables", rows)
}

func (e *sqlServerExtractor) readColumns(ctx context.Context, sess conn.Session, tables map[string]*schema.Table) error {
	rows, err := sess.Query(ctx, mssqlColumnsQuery)
	if err != nil {
		return extractionErr("columns", err)
	}
	defer rows.Close()

	for rows.Next() {
		var schemaName, tableName, colName, typeName, expression string
		var rawLen, rawPrecision, rawScale, position int
		var nullable, identity, computed bool
		var defaultVal sql.NullString
		if err := rows.Scan(
			&schemaName, &tableName, &colName, &typeName,
			&rawLen, &rawPrecision, &rawScale,
			&nullable, &identity, &computed,
			&expression, &defaultVal, &position,
		); err != nil {
			return extractionErr("columns", err)
		}

		t, ok := tables[schema.ObjectKey(schemaName, tableName)]
		if !ok {
			continue
		}

		maxLen, precision, scale := mssqlFacets(typeName, rawLen, rawPrecision, rawScale)
		col := schema.Column{
			Name:       colName,
			DataType:   mssqlTypeString(typeName, maxLen, precision, scale),
			Type:       mssqlTypeTag(typeName),
			MaxLength:  maxLen,
			Precision:  precision,
			Scale:      scale,
			IsNullable: nullable,
			IsIdentity: identity,
			IsComputed: computed,
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

func (e *sqlServerExtractor) readIndexes(ctx context.Context, sess conn.Session, tables map[string]*schema.Table) error {
	rows, err := sess.Query(ctx, mssqlIndexesQuery)
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
		var schemaName, tableName, indexName, typeDesc, filterPredicate, columnName string
		var unique, primaryKey, included bool
		if err := rows.Scan(
			&schemaName, &tableName, &indexName, &typeDesc,
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
				Type:            mssqlIndexType(typeDesc),
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

func (e *sqlServerExtractor) readForeignKeys(ctx context.Context, sess conn.Session, tables map[string]*schema.Table) error {
	rows, err := sess.Query(ctx, mssqlForeignKeysQuery)
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
		var parentColumn, referencedColumn, deleteAction, updateAction string
		if err := rows.Scan(
			&schemaName, &tableName, &fkName,
			&refSchema, &refTable,
			&parentColumn, &referencedColumn,
			&deleteAction, &updateAction,
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
				OnDelete:         mssqlRefAction(deleteAction),
				OnUpdate:         mssqlRefAction(updateAction),
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

func (e *sqlServerExtractor) readRowCounts(ctx context.Context, sess conn.Session, tables map[string]*schema.Table) error {
	rows, err := sess.Query(ctx, mssqlRowCountsQuery)
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
		if t, ok := tables[schema.ObjectKey(schemaName, tableName)]; ok {
			t.RowCount = &count
		}
	}
	return rowsErr("row_counts", rows)
}

func (e *sqlServerExtractor) readViews(ctx context.Context, sess conn.Session, filter schemaFilter, includeDefs bool) ([]schema.View, error) {
	rows, err := sess.Query(ctx, mssqlViewsQuery)
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

// readProcedures loads procedures keyed by object so parameter rows can be
// attached afterwards.
func (e *sqlServerExtractor) readProcedures(ctx context.Context, sess conn.Session, filter schemaFilter, includeDefs bool) (map[string]*schema.Procedure, error) {
	rows, err := sess.Query(ctx, mssqlProceduresQuery)
	if err != nil {
		return nil, extractionErr("procedures", err)
	}
	defer rows.Close()

	procs := make(map[string]*schema.Procedure)
	for rows.Next() {
		var p schema.Procedure
		if err := rows.Scan(&p.Schema, &p.Name, &p.Definition); err != nil {
			return nil, extractionErr("procedures", err)
		}
		if !filter.includes(p.Schema) {
			continue
		}
		if !includeDefs {
			p.Definition = ""
		}
		procs[schema.ObjectKey(p.Schema, p.Name)] = &p
	}
	return procs, rowsErr("procedures", rows)
}

func (e *sqlServerExtractor) readFunctions(ctx context.Context, sess conn.Session, filter schemaFilter, includeDefs bool) (map[string]*schema.Function, error) {
	rows, err := sess.Query(ctx, mssqlFunctionsQuery)
	if err != nil {
		return nil, extractionErr("functions", err)
	}
	defer rows.Close()

	funcs := make(map[string]*schema.Function)
	for rows.Next() {
		var f schema.Function
		var objectType, returnType string
		if err := rows.Scan(&f.Schema, &f.Name, &objectType, &f.Definition, &returnType); err != nil {
			return nil, extractionErr("functions", err)
		}
		if !filter.includes(f.Schema) {
			continue
		}
		if !includeDefs {
			f.Definition = ""
		}

		switch objectType {
		case "FN":
			f.Kind = schema.FunctionScalar
			f.ReturnType = strings.ToLower(returnType)
		case "IF":
			f.Kind = schema.FunctionInlineTable
			f.ReturnType = "table"
		case "TF":
			f.Kind = schema.FunctionMultiStatementTable
			f.ReturnType = "table"
		}
		funcs[schema.ObjectKey(f.Schema, f.Name)] = &f
	}
	return funcs, rowsErr("functions", rows)
}

// readParameters attaches parameter rows to their routine. has_default_value
// is only populated for CLR objects; T-SQL defaults would require parsing the
// definition, which extraction does not attempt.
func (e *sqlServerExtractor) readParameters(ctx context.Context, sess conn.Session, procs map[string]*schema.Procedure, funcs map[string]*schema.Function) error {
	rows, err := sess.Query(ctx, mssqlParametersQuery)
	if err != nil {
		return extractionErr("parameters", err)
	}
	defer rows.Close()

	for rows.Next() {
		var schemaName, objectName string
		var param schema.Parameter
		if err := rows.Scan(
			&schemaName, &objectName,
			&param.Name, &param.DataType, &param.Position, &param.HasDefault, &param.IsOutput,
		); err != nil {
			return extractionErr("parameters", err)
		}
		param.DataType = strings.ToLower(param.DataType)

		key := schema.ObjectKey(schemaName, objectName)
		if p, ok := procs[key]; ok {
			p.Parameters = append(p.Parameters, param)
		} else if f, ok := funcs[key]; ok {
			f.Parameters = append(f.Parameters, param)
		}
	}
	return rowsErr("parameters", rows)
}

func (e *sqlServerExtractor) readTriggers(ctx context.Context, sess conn.Session, filter schemaFilter, includeDefs bool) ([]schema.Trigger, error) {
	rows, err := sess.Query(ctx, mssqlTriggersQuery)
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

		// DML triggers live in the schema of their parent table.
		tr.Schema = tr.TableSchema
		if !includeDefs {
			tr.Definition = ""
		}
		triggers = append(triggers, tr)
	}
	return triggers, rowsErr("triggers", rows)
}
