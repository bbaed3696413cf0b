package consts

import "os"

const (
	// ModeDir is the standard file mode for creating directories
	ModeDir = os.FileMode(0o755)

	// ModeFile is the standard file mode for creating files
	ModeFile = os.FileMode(0o644)

	// LedgerTable is the name of the migration tracking table the executor
	// creates in every managed database.
	LedgerTable = "__migrations"

	// AuditTable is the name of the table the PostgreSQL audit store writes
	// entries to.
	AuditTable = "audit_entries"
)
