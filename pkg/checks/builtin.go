package checks

// Builtin returns a registry preloaded with every built-in check. It panics
// only on a programming error (duplicate check ids).
func Builtin() *Registry {
	r := NewRegistry()
	for _, c := range []Check{
		missingPrimaryKeys(),
		unindexedForeignKeys(),
		indexFragmentation(),
		staleStatistics(),
		longRunningSessions(),
		wideTables(),
		permissiveRoles(),
		orphanedUsers(),
		weakAuthConfig(),
		xpCmdshellEnabled(),
		piiColumnNames(),
		backupRecency(),
		riskyDatabaseSettings(),
		connectionHeadroom(),
	} {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
	return r
}
