// Package conn provides connection management for the supported database
// engines: connection configuration, credential resolution, pooled
// acquisition of single-ownership sessions, and the transport/query error
// taxonomy.
//
// A Session wraps a dedicated *sql.Conn checked out of the engine's pool, so
// a session is never shared between goroutines. Sessions carry optional
// transaction state: Begin routes subsequent Query/Exec calls through the
// transaction until Commit or Rollback.
//
// Example usage:
//
//	registry := conn.NewRegistry(logger, creds,
//	    conn.Config{ID: "prod-primary", TenantID: "acme", Engine: conn.EngineSQLServer, DSN: dsn},
//	)
//	defer func() { _ = registry.Close() }()
//
//	sess, err := registry.Acquire(ctx, "prod-primary")
//	if err != nil {
//	    return err
//	}
//	defer func() { _ = sess.Close() }()
//
//	rows, err := sess.Query(ctx, "SELECT name FROM sys.tables")
package conn
