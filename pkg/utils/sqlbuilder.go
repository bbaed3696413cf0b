package utils

import "strings"

// SQLBuilder provides a fluent interface for building DDL statements with
// dialect-aware identifier quoting. Fragments are accumulated in order and
// joined with single spaces.
//
// Example usage:
//
//	sql := utils.NewSQLBuilder(utils.QuoteBracket).
//	    Drop("TABLE").
//	    QualifiedName("dbo", "orders").
//	    String()
//	// Result: DROP TABLE [dbo].[orders]
type SQLBuilder struct {
	style QuoteStyle
	parts []string
}

// NewSQLBuilder creates a new SQLBuilder using the given quoting style.
func NewSQLBuilder(style QuoteStyle) *SQLBuilder {
	return &SQLBuilder{style: style, parts: make([]string, 0, 8)}
}

// Create appends "CREATE <objectType>".
func (b *SQLBuilder) Create(objectType string) *SQLBuilder {
	return b.Keyword("CREATE", objectType)
}

// CreateOrAlter appends "CREATE OR ALTER <objectType>" (T-SQL) used for
// procedures, functions, views, and triggers.
func (b *SQLBuilder) CreateOrAlter(objectType string) *SQLBuilder {
	return b.Keyword("CREATE", "OR", "ALTER", objectType)
}

// CreateOrReplace appends "CREATE OR REPLACE <objectType>" (PostgreSQL).
func (b *SQLBuilder) CreateOrReplace(objectType string) *SQLBuilder {
	return b.Keyword("CREATE", "OR", "REPLACE", objectType)
}

// Alter appends "ALTER <objectType>".
func (b *SQLBuilder) Alter(objectType string) *SQLBuilder {
	return b.Keyword("ALTER", objectType)
}

// Drop appends "DROP <objectType>".
func (b *SQLBuilder) Drop(objectType string) *SQLBuilder {
	return b.Keyword("DROP", objectType)
}

// IfExists appends "IF EXISTS".
func (b *SQLBuilder) IfExists() *SQLBuilder {
	return b.Keyword("IF", "EXISTS")
}

// IfNotExists appends "IF NOT EXISTS".
func (b *SQLBuilder) IfNotExists() *SQLBuilder {
	return b.Keyword("IF", "NOT", "EXISTS")
}

// Keyword appends raw keywords without quoting.
func (b *SQLBuilder) Keyword(words ...string) *SQLBuilder {
	b.parts = append(b.parts, words...)
	return b
}

// Name appends a quoted identifier.
func (b *SQLBuilder) Name(name string) *SQLBuilder {
	b.parts = append(b.parts, QuoteIdentifier(name, b.style))
	return b
}

// QualifiedName appends a quoted schema-qualified name.
func (b *SQLBuilder) QualifiedName(schema, name string) *SQLBuilder {
	b.parts = append(b.parts, QuoteQualified(schema, name, b.style))
	return b
}

// On appends "ON <schema>.<table>", used by index statements.
func (b *SQLBuilder) On(schema, table string) *SQLBuilder {
	b.parts = append(b.parts, "ON", QuoteQualified(schema, table, b.style))
	return b
}

// Columns appends a parenthesized, comma-separated list of quoted column
// names.
func (b *SQLBuilder) Columns(names ...string) *SQLBuilder {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = QuoteIdentifier(name, b.style)
	}
	b.parts = append(b.parts, "("+strings.Join(quoted, ", ")+")")
	return b
}

// Raw appends a fragment verbatim. The caller is responsible for any quoting
// inside the fragment.
func (b *SQLBuilder) Raw(fragment string) *SQLBuilder {
	if fragment != "" {
		b.parts = append(b.parts, fragment)
	}
	return b
}

// String assembles the statement.
func (b *SQLBuilder) String() string {
	return strings.Join(b.parts, " ")
}
