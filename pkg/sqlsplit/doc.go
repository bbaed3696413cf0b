// Package sqlsplit splits SQL scripts into individually executable
// statements. Two dialects are supported: T-SQL, whose batches are separated
// by a whole-word GO at the start of a line, and standard SQL, whose
// statements end at semicolons. Separators inside string literals, quoted
// identifiers, dollar-quoted bodies, and comments are never treated as
// boundaries.
//
// Splitting is token-based rather than regex-based: the script is run
// through a lexer so literal and comment state is tracked exactly.
//
// Example usage:
//
//	stmts, err := sqlsplit.Split("CREATE TABLE t (id INT);\nGO\nDROP TABLE t;", sqlsplit.TSQL)
//	// ["CREATE TABLE t (id INT);", "DROP TABLE t;"]
package sqlsplit
