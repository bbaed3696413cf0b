// Package checks defines health checks and the registry that organizes
// them.
//
// A Check is a read-only probe: it runs catalog queries against a session
// and returns a Result, never an error. Internal failures, including
// unsupported engines, come back as error-status results so an orchestrator
// can aggregate them without special cases. Deadlines arrive on the context.
//
// Checks are described by a Definition carrying category, default severity,
// supported engines, compliance frameworks, tags, and default parameters.
// The Registry filters on those attributes and supports disabling a check
// without unregistering it. Builtin() returns the stock suite covering
// performance, security, compliance, and configuration concerns for SQL
// Server and PostgreSQL.
package checks
