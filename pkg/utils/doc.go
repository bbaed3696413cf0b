// Package utils provides common utility functions used throughout the Warden codebase.
//
// This package contains shared utilities that are used by multiple packages to avoid
// code duplication and ensure consistent behavior across the application.
//
// # Identifier Quoting (quoting.go)
//
// The quoting utilities provide consistent handling of SQL identifiers across
// the supported engines. SQL Server uses square brackets while PostgreSQL uses
// double quotes, so every function takes a QuoteStyle:
//
//	// T-SQL bracket quoting
//	name := utils.QuoteIdentifier("order", utils.QuoteBracket)
//	// Result: [order]
//
//	// PostgreSQL double-quote quoting
//	name = utils.QuoteIdentifier("order", utils.QuoteDouble)
//	// Result: "order"
//
//	// Schema-qualified names are quoted part by part
//	qualified := utils.QuoteQualified("dbo", "orders", utils.QuoteBracket)
//	// Result: [dbo].[orders]
//
// Embedded closing quote characters are escaped by doubling (]] and ""), and
// quoting is idempotent: an already quoted identifier is not quoted again.
//
// # SQL Builder (sqlbuilder.go)
//
// The SQLBuilder provides a fluent interface for assembling DDL statements
// from keywords, quoted identifiers, and raw fragments:
//
//	sql := utils.NewSQLBuilder(utils.QuoteBracket).
//	    Drop("TABLE").
//	    QualifiedName("dbo", "orders").
//	    String()
//	// Result: DROP TABLE [dbo].[orders]
//
// # Definition Normalization (utils.go)
//
// NormalizeDefinition canonicalizes procedure, function, view, and trigger
// bodies before hashing or comparison: CRLF line endings become LF and
// trailing whitespace is stripped from each line. This keeps content hashes
// stable across operating systems and client tools that rewrite whitespace.
package utils
