package schema

// TypeTag is the normalized, vendor-neutral classification of a column type.
// Extractors map raw vendor type strings onto these tags via a fixed table;
// anything unrecognized becomes TypeUnknown with the raw text preserved on
// the column.
type TypeTag string

const (
	TypeInt            TypeTag = "int"
	TypeBigInt         TypeTag = "bigint"
	TypeSmallInt       TypeTag = "smallint"
	TypeTinyInt        TypeTag = "tinyint"
	TypeBit            TypeTag = "bit"
	TypeBool           TypeTag = "bool"
	TypeDecimal        TypeTag = "decimal"
	TypeMoney          TypeTag = "money"
	TypeFloat          TypeTag = "float"
	TypeReal           TypeTag = "real"
	TypeChar           TypeTag = "char"
	TypeNChar          TypeTag = "nchar"
	TypeVarChar        TypeTag = "varchar"
	TypeNVarChar       TypeTag = "nvarchar"
	TypeText           TypeTag = "text"
	TypeBinary         TypeTag = "binary"
	TypeVarBinary      TypeTag = "varbinary"
	TypeDate           TypeTag = "date"
	TypeTime           TypeTag = "time"
	TypeDateTime       TypeTag = "datetime"
	TypeDateTime2      TypeTag = "datetime2"
	TypeDateTimeOffset TypeTag = "datetimeoffset"
	TypeTimestamp      TypeTag = "timestamp"
	TypeTimestampTZ    TypeTag = "timestamptz"
	TypeInterval       TypeTag = "interval"
	TypeUUID           TypeTag = "uuid"
	TypeJSON           TypeTag = "json"
	TypeJSONB          TypeTag = "jsonb"
	TypeXML            TypeTag = "xml"
	TypeUnknown        TypeTag = "unknown"
)

// IndexType classifies an index by its physical organization or access
// method.
type IndexType string

const (
	IndexClustered    IndexType = "clustered"
	IndexNonClustered IndexType = "nonclustered"
	IndexColumnstore  IndexType = "columnstore"
	IndexBTree        IndexType = "btree"
	IndexHash         IndexType = "hash"
	IndexGIN          IndexType = "gin"
	IndexGiST         IndexType = "gist"
	IndexSPGiST       IndexType = "spgist"
	IndexBRIN         IndexType = "brin"
	IndexUnknown      IndexType = "unknown"
)

// RefAction is a referential action on a foreign key.
type RefAction string

const (
	RefNoAction   RefAction = "NO ACTION"
	RefRestrict   RefAction = "RESTRICT"
	RefCascade    RefAction = "CASCADE"
	RefSetNull    RefAction = "SET NULL"
	RefSetDefault RefAction = "SET DEFAULT"
)

// FunctionKind classifies a user-defined function.
type FunctionKind string

const (
	// FunctionScalar returns a single value.
	FunctionScalar FunctionKind = "scalar"

	// FunctionInlineTable is a single-statement table-valued function.
	FunctionInlineTable FunctionKind = "inline_table"

	// FunctionMultiStatementTable builds and returns a table variable, or for
	// PostgreSQL, any set-returning function.
	FunctionMultiStatementTable FunctionKind = "multi_statement_table"
)
