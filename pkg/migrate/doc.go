// Package migrate turns schema diffs into ordered, reversible migrations.
//
// A Migration is a checksummed sequence of steps, each carrying forward DDL
// and, where a safe symbolic inverse exists, rollback DDL. Steps are ordered
// so that DDL dependencies hold: children are dropped before parents,
// parents are created before children, columns are added before the indexes
// that use them, and indexes are dropped before the columns they cover.
//
// Two dialects are supported: SQL Server T-SQL and PostgreSQL. The dialect
// is fixed on the generator and recorded on every migration it produces.
//
// Multi-migration plans are ordered by Kahn's algorithm over the declared
// dependencies, with ties broken lexicographically by id; a dependency cycle
// is an error, never a silent reorder.
//
// Example usage:
//
//	gen, err := migrate.NewGenerator(migrate.DialectSQLServer)
//	if err != nil {
//	    return err
//	}
//
//	m, err := gen.Generate(diff.Compute(current, desired), "add-last-login")
//	if err != nil {
//	    return err
//	}
//	if result := migrate.Validate(m, migrate.ValidateOptions{}); !result.Valid {
//	    return errors.Errorf("invalid migration: %v", result.Errors)
//	}
package migrate
