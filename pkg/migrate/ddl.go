package migrate

import (
	"strings"

	"github.com/dbwarden/warden/pkg/diff"
	"github.com/dbwarden/warden/pkg/schema"
	"github.com/dbwarden/warden/pkg/utils"
)

// separator joins multiple statements inside a single step. The executor
// splits on the matching convention before running them.
func (g *Generator) separator() string {
	if g.dialect == DialectSQLServer {
		return "\nGO\n"
	}
	return ";\n"
}

func (g *Generator) addColumnKeyword() string {
	if g.dialect == DialectSQLServer {
		return "ADD"
	}
	return "ADD COLUMN"
}

// columnDDL renders a column clause for CREATE TABLE and ADD COLUMN. The
// column's DataType already carries its facets (length, precision, scale).
func (g *Generator) columnDDL(c *schema.Column) string {
	var sb strings.Builder
	sb.WriteString(utils.QuoteIdentifier(c.Name, g.style))

	if c.IsComputed {
		if g.dialect == DialectSQLServer {
			sb.WriteString(" AS ")
			sb.WriteString(c.Expression)
		} else {
			sb.WriteString(" ")
			sb.WriteString(c.DataType)
			sb.WriteString(" GENERATED ALWAYS AS ")
			sb.WriteString(c.Expression)
			sb.WriteString(" STORED")
		}
		return sb.String()
	}

	sb.WriteString(" ")
	sb.WriteString(c.DataType)

	if c.IsIdentity {
		if g.dialect == DialectSQLServer {
			sb.WriteString(" IDENTITY(1,1)")
		} else {
			sb.WriteString(" GENERATED BY DEFAULT AS IDENTITY")
		}
	}
	if c.IsNullable {
		sb.WriteString(" NULL")
	} else {
		sb.WriteString(" NOT NULL")
	}
	if c.Default != nil {
		sb.WriteString(" DEFAULT ")
		sb.WriteString(*c.Default)
	}
	return sb.String()
}

func (g *Generator) createTableSQL(t *schema.Table) string {
	cols := make([]string, 0, len(t.Columns)+1)
	for i := range t.Columns {
		cols = append(cols, "    "+g.columnDDL(&t.Columns[i]))
	}

	if len(t.PrimaryKeyColumns) > 0 {
		quoted := make([]string, len(t.PrimaryKeyColumns))
		for i, name := range t.PrimaryKeyColumns {
			quoted[i] = utils.QuoteIdentifier(name, g.style)
		}
		clause := "    "
		for i := range t.Indexes {
			if t.Indexes[i].IsPrimaryKey {
				clause += "CONSTRAINT " + utils.QuoteIdentifier(t.Indexes[i].Name, g.style) + " "
				break
			}
		}
		cols = append(cols, clause+"PRIMARY KEY ("+strings.Join(quoted, ", ")+")")
	}

	return utils.NewSQLBuilder(g.style).
		Create("TABLE").QualifiedName(t.Schema, t.Name).
		Raw("(\n" + strings.Join(cols, ",\n") + "\n)").
		String()
}

func (g *Generator) dropColumnSQL(ref *diff.ColumnRef) string {
	return utils.NewSQLBuilder(g.style).
		Alter("TABLE").QualifiedName(ref.TableSchema, ref.TableName).
		Keyword("DROP", "COLUMN").Name(ref.Column.Name).
		String()
}

// mssqlAlterColumnSQL restates type and nullability together, which is how
// T-SQL expresses both kinds of change.
func (g *Generator) mssqlAlterColumnSQL(tableSchema, tableName string, c *schema.Column) string {
	null := "NOT NULL"
	if c.IsNullable {
		null = "NULL"
	}
	return utils.NewSQLBuilder(g.style).
		Alter("TABLE").QualifiedName(tableSchema, tableName).
		Keyword("ALTER", "COLUMN").Name(c.Name).
		Raw(c.DataType).Keyword(null).
		String()
}

func (g *Generator) pgAlterColumnTypeSQL(tableSchema, tableName string, c *schema.Column) string {
	return utils.NewSQLBuilder(g.style).
		Alter("TABLE").QualifiedName(tableSchema, tableName).
		Keyword("ALTER", "COLUMN").Name(c.Name).
		Keyword("TYPE").Raw(c.DataType).
		String()
}

func (g *Generator) pgAlterColumnNullSQL(tableSchema, tableName string, c *schema.Column) string {
	action := "SET NOT NULL"
	if c.IsNullable {
		action = "DROP NOT NULL"
	}
	return utils.NewSQLBuilder(g.style).
		Alter("TABLE").QualifiedName(tableSchema, tableName).
		Keyword("ALTER", "COLUMN").Name(c.Name).
		Raw(action).
		String()
}

// alterDefaultSQL sets or drops the column default to match the given
// column. SQL Server models defaults as named constraints, so dropping one
// requires the constraint name, which extraction does not preserve; the
// generated T-SQL drops via a lookup in sys.default_constraints.
func (g *Generator) alterDefaultSQL(tableSchema, tableName string, c *schema.Column) string {
	if g.dialect == DialectPostgres {
		b := utils.NewSQLBuilder(g.style).
			Alter("TABLE").QualifiedName(tableSchema, tableName).
			Keyword("ALTER", "COLUMN").Name(c.Name)
		if c.Default == nil {
			return b.Raw("DROP DEFAULT").String()
		}
		return b.Keyword("SET", "DEFAULT").Raw(*c.Default).String()
	}

	if c.Default == nil {
		return mssqlDropDefaultSQL(tableSchema, tableName, c.Name)
	}
	return utils.NewSQLBuilder(g.style).
		Alter("TABLE").QualifiedName(tableSchema, tableName).
		Keyword("ADD", "DEFAULT").Raw(*c.Default).
		Keyword("FOR").Name(c.Name).
		String()
}

func mssqlDropDefaultSQL(tableSchema, tableName, column string) string {
	qualified := utils.QuoteQualified(tableSchema, tableName, utils.QuoteBracket)
	return strings.Join([]string{
		"DECLARE @df sysname;",
		"SELECT @df = d.name FROM sys.default_constraints d",
		"    JOIN sys.columns c ON c.default_object_id = d.object_id",
		"    WHERE d.parent_object_id = OBJECT_ID('" + tableSchema + "." + tableName + "') AND c.name = '" + column + "';",
		"IF @df IS NOT NULL EXEC('ALTER TABLE " + qualified + " DROP CONSTRAINT ' + @df);",
	}, "\n")
}

func (g *Generator) createIndexSQL(tableSchema, tableName string, ix *schema.Index) string {
	b := utils.NewSQLBuilder(g.style).Keyword("CREATE")
	if ix.IsUnique {
		b.Keyword("UNIQUE")
	}
	if g.dialect == DialectSQLServer {
		switch ix.Type {
		case schema.IndexClustered:
			b.Keyword("CLUSTERED")
		case schema.IndexColumnstore:
			b.Keyword("COLUMNSTORE")
		}
	}
	b.Keyword("INDEX").Name(ix.Name).On(tableSchema, tableName)

	if g.dialect == DialectPostgres && ix.Type != schema.IndexBTree && ix.Type != schema.IndexUnknown {
		b.Keyword("USING", strings.ToUpper(string(ix.Type)))
	}
	b.Columns(ix.KeyColumns...)

	if g.dialect == DialectSQLServer && len(ix.IncludedColumns) > 0 {
		b.Keyword("INCLUDE").Columns(ix.IncludedColumns...)
	}
	if ix.FilterPredicate != "" {
		b.Keyword("WHERE").Raw(ix.FilterPredicate)
	}
	return b.String()
}

func (g *Generator) dropIndexSQL(tableSchema, tableName string, ix *schema.Index) string {
	if g.dialect == DialectSQLServer {
		// T-SQL scopes index names to their table.
		return utils.NewSQLBuilder(g.style).
			Drop("INDEX").Name(ix.Name).On(tableSchema, tableName).
			String()
	}
	return utils.NewSQLBuilder(g.style).
		Drop("INDEX").QualifiedName(tableSchema, ix.Name).
		String()
}

func (g *Generator) addForeignKeySQL(tableSchema, tableName string, fk *schema.ForeignKey) string {
	b := utils.NewSQLBuilder(g.style).
		Alter("TABLE").QualifiedName(tableSchema, tableName).
		Keyword("ADD", "CONSTRAINT").Name(fk.Name).
		Keyword("FOREIGN", "KEY").Columns(fk.Columns...).
		Keyword("REFERENCES").QualifiedName(fk.ReferencedSchema, fk.ReferencedTable).
		Columns(fk.ReferencedColumns...)

	if fk.OnDelete != "" && fk.OnDelete != schema.RefNoAction {
		b.Keyword("ON", "DELETE", string(fk.OnDelete))
	}
	if fk.OnUpdate != "" && fk.OnUpdate != schema.RefNoAction {
		b.Keyword("ON", "UPDATE", string(fk.OnUpdate))
	}
	return b.String()
}

func (g *Generator) dropConstraintSQL(tableSchema, tableName, constraint string) string {
	return utils.NewSQLBuilder(g.style).
		Alter("TABLE").QualifiedName(tableSchema, tableName).
		Keyword("DROP", "CONSTRAINT").Name(constraint).
		String()
}
