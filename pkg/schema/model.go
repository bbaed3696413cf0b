package schema

import (
	"sort"
	"strings"
	"time"

	"github.com/dbwarden/warden/pkg/compare"
)

type (
	// Database is the root container for an extracted schema. Collections are
	// kept in extraction order until Sort is called; canonical serialization
	// always sorts.
	Database struct {
		Name          string    `json:"database_name"`
		ServerVersion string    `json:"server_version"`
		Collation     string    `json:"collation"`
		ExtractedAt   time.Time `json:"extracted_at"`

		Tables     []Table     `json:"tables"`
		Views      []View      `json:"views"`
		Procedures []Procedure `json:"procedures"`
		Functions  []Function  `json:"functions"`
		Triggers   []Trigger   `json:"triggers"`
	}

	// Table describes a single table with its columns, indexes, and foreign
	// keys. RowCount is populated only when row counts were requested during
	// extraction and is excluded from content hashing.
	Table struct {
		Schema            string       `json:"schema"`
		Name              string       `json:"name"`
		Columns           []Column     `json:"columns"`
		Indexes           []Index      `json:"indexes"`
		ForeignKeys       []ForeignKey `json:"foreign_keys"`
		PrimaryKeyColumns []string     `json:"primary_key_columns"`
		RowCount          *int64       `json:"row_count"`
		IsTemporal        bool         `json:"is_temporal"`
		HistoryTable      string       `json:"history_table"`
	}

	// Column describes a table column. DataType preserves the raw vendor type
	// string; Type is the normalized tag used for narrowing detection.
	// MaxLength of -1 means MAX / unbounded.
	Column struct {
		Name         string  `json:"name"`
		DataType     string  `json:"data_type"`
		Type         TypeTag `json:"type"`
		MaxLength    int     `json:"max_length"`
		Precision    int     `json:"precision"`
		Scale        int     `json:"scale"`
		IsNullable   bool    `json:"is_nullable"`
		IsIdentity   bool    `json:"is_identity"`
		IsPrimaryKey bool    `json:"is_primary_key"`
		IsComputed   bool    `json:"is_computed"`
		Expression   string  `json:"expression"`
		Default      *string `json:"default_value"`
		Position     int     `json:"ordinal_position"`
	}

	// Index describes an index. KeyColumns and IncludedColumns are ordered.
	Index struct {
		Name            string    `json:"name"`
		Type            IndexType `json:"type"`
		IsUnique        bool      `json:"is_unique"`
		IsPrimaryKey    bool      `json:"is_primary_key"`
		KeyColumns      []string  `json:"key_columns"`
		IncludedColumns []string  `json:"included_columns"`
		FilterPredicate string    `json:"filter_predicate"`
	}

	// ForeignKey describes a foreign key constraint. Columns and
	// ReferencedColumns are ordered and always the same length.
	ForeignKey struct {
		Name              string    `json:"name"`
		Columns           []string  `json:"columns"`
		ReferencedSchema  string    `json:"referenced_schema"`
		ReferencedTable   string    `json:"referenced_table"`
		ReferencedColumns []string  `json:"referenced_columns"`
		OnDelete          RefAction `json:"on_delete"`
		OnUpdate          RefAction `json:"on_update"`
	}

	// View describes a view. Definition holds the normalized body text.
	View struct {
		Schema     string `json:"schema"`
		Name       string `json:"name"`
		Definition string `json:"definition"`
	}

	// Procedure describes a stored procedure.
	Procedure struct {
		Schema     string      `json:"schema"`
		Name       string      `json:"name"`
		Definition string      `json:"definition"`
		Parameters []Parameter `json:"parameters"`
	}

	// Function describes a user-defined function.
	Function struct {
		Schema     string       `json:"schema"`
		Name       string       `json:"name"`
		Definition string       `json:"definition"`
		Parameters []Parameter  `json:"parameters"`
		ReturnType string       `json:"return_type"`
		Kind       FunctionKind `json:"kind"`
	}

	// Trigger describes a DML trigger attached to a table.
	Trigger struct {
		Schema      string `json:"schema"`
		Name        string `json:"name"`
		TableSchema string `json:"table_schema"`
		TableName   string `json:"table_name"`
		Definition  string `json:"definition"`
		IsDisabled  bool   `json:"is_disabled"`
	}

	// Parameter describes a routine parameter in declaration order.
	Parameter struct {
		Name       string `json:"name"`
		DataType   string `json:"data_type"`
		Position   int    `json:"position"`
		HasDefault bool   `json:"has_default"`
		IsOutput   bool   `json:"is_output"`
	}
)

// ObjectKey returns the case-insensitive lookup key for a schema-qualified
// object name. Name comparisons throughout the model are case-insensitive.
func ObjectKey(schema, name string) string {
	return strings.ToLower(schema + "." + name)
}

// QualifiedName returns the display form "schema.name".
func (t *Table) QualifiedName() string { return t.Schema + "." + t.Name }

// QualifiedName returns the display form "schema.name".
func (v *View) QualifiedName() string { return v.Schema + "." + v.Name }

// QualifiedName returns the display form "schema.name".
func (p *Procedure) QualifiedName() string { return p.Schema + "." + p.Name }

// QualifiedName returns the display form "schema.name".
func (f *Function) QualifiedName() string { return f.Schema + "." + f.Name }

// QualifiedName returns the display form "schema.name".
func (tr *Trigger) QualifiedName() string { return tr.Schema + "." + tr.Name }

// Column returns the column with the given name (case-insensitive), or nil.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if strings.EqualFold(t.Columns[i].Name, name) {
			return &t.Columns[i]
		}
	}
	return nil
}

// Sort orders every collection by its stable key: objects by (schema, name),
// columns and parameters by ordinal position, indexes and foreign keys by
// name. Sorting is case-insensitive and idempotent.
func (d *Database) Sort() {
	sort.SliceStable(d.Tables, func(i, j int) bool {
		return ObjectKey(d.Tables[i].Schema, d.Tables[i].Name) < ObjectKey(d.Tables[j].Schema, d.Tables[j].Name)
	})
	sort.SliceStable(d.Views, func(i, j int) bool {
		return ObjectKey(d.Views[i].Schema, d.Views[i].Name) < ObjectKey(d.Views[j].Schema, d.Views[j].Name)
	})
	sort.SliceStable(d.Procedures, func(i, j int) bool {
		return ObjectKey(d.Procedures[i].Schema, d.Procedures[i].Name) < ObjectKey(d.Procedures[j].Schema, d.Procedures[j].Name)
	})
	sort.SliceStable(d.Functions, func(i, j int) bool {
		return ObjectKey(d.Functions[i].Schema, d.Functions[i].Name) < ObjectKey(d.Functions[j].Schema, d.Functions[j].Name)
	})
	sort.SliceStable(d.Triggers, func(i, j int) bool {
		return ObjectKey(d.Triggers[i].Schema, d.Triggers[i].Name) < ObjectKey(d.Triggers[j].Schema, d.Triggers[j].Name)
	})

	for i := range d.Tables {
		t := &d.Tables[i]
		sort.SliceStable(t.Columns, func(a, b int) bool { return t.Columns[a].Position < t.Columns[b].Position })
		sort.SliceStable(t.Indexes, func(a, b int) bool {
			return strings.ToLower(t.Indexes[a].Name) < strings.ToLower(t.Indexes[b].Name)
		})
		sort.SliceStable(t.ForeignKeys, func(a, b int) bool {
			return strings.ToLower(t.ForeignKeys[a].Name) < strings.ToLower(t.ForeignKeys[b].Name)
		})
	}
	for i := range d.Procedures {
		p := &d.Procedures[i]
		sort.SliceStable(p.Parameters, func(a, b int) bool { return p.Parameters[a].Position < p.Parameters[b].Position })
	}
	for i := range d.Functions {
		f := &d.Functions[i]
		sort.SliceStable(f.Parameters, func(a, b int) bool { return f.Parameters[a].Position < f.Parameters[b].Position })
	}
}

// Equal reports structural equality with another column. Ordinal position is
// included; row-level metadata does not exist on columns so every field
// participates.
func (c *Column) Equal(other *Column) bool {
	if eq, more := compare.NilCheck(c, other); !more {
		return eq
	}

	return strings.EqualFold(c.Name, other.Name) &&
		c.DataType == other.DataType &&
		c.Type == other.Type &&
		c.MaxLength == other.MaxLength &&
		c.Precision == other.Precision &&
		c.Scale == other.Scale &&
		c.IsNullable == other.IsNullable &&
		c.IsIdentity == other.IsIdentity &&
		c.IsPrimaryKey == other.IsPrimaryKey &&
		c.IsComputed == other.IsComputed &&
		c.Expression == other.Expression &&
		compare.Pointers(c.Default, other.Default) &&
		c.Position == other.Position
}

// Equal reports structural equality with another index.
func (i *Index) Equal(other *Index) bool {
	if eq, more := compare.NilCheck(i, other); !more {
		return eq
	}

	return strings.EqualFold(i.Name, other.Name) &&
		i.Type == other.Type &&
		i.IsUnique == other.IsUnique &&
		i.IsPrimaryKey == other.IsPrimaryKey &&
		compare.Strings(i.KeyColumns, other.KeyColumns) &&
		compare.Strings(i.IncludedColumns, other.IncludedColumns) &&
		i.FilterPredicate == other.FilterPredicate
}

// Equal reports structural equality with another foreign key.
func (fk *ForeignKey) Equal(other *ForeignKey) bool {
	if eq, more := compare.NilCheck(fk, other); !more {
		return eq
	}

	return strings.EqualFold(fk.Name, other.Name) &&
		compare.Strings(fk.Columns, other.Columns) &&
		strings.EqualFold(fk.ReferencedSchema, other.ReferencedSchema) &&
		strings.EqualFold(fk.ReferencedTable, other.ReferencedTable) &&
		compare.Strings(fk.ReferencedColumns, other.ReferencedColumns) &&
		fk.OnDelete == other.OnDelete &&
		fk.OnUpdate == other.OnUpdate
}

// Equal reports structural equality with another parameter.
func (p *Parameter) Equal(other *Parameter) bool {
	if eq, more := compare.NilCheck(p, other); !more {
		return eq
	}

	return strings.EqualFold(p.Name, other.Name) &&
		p.DataType == other.DataType &&
		p.Position == other.Position &&
		p.HasDefault == other.HasDefault &&
		p.IsOutput == other.IsOutput
}

// EqualParameters compares two ordered parameter lists.
func EqualParameters(a, b []Parameter) bool {
	return compare.Slices(a, b, func(x, y Parameter) bool { return x.Equal(&y) })
}
