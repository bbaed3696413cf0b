// Package extract populates the vendor-neutral schema model from live
// databases. One extractor exists per engine: SQL Server and PostgreSQL get
// full coverage (tables, columns, indexes, foreign keys, views, procedures,
// functions, triggers, optional row counts); ClickHouse is a reduced
// extractor covering tables, columns, primary keys, views, and user-defined
// functions, mainly to prove the extractor contract is pluggable.
//
// Extraction is all-or-nothing: any failed catalog query aborts the run with
// an *ExtractionError naming the logical query that failed. Extractors never
// mutate the target database and always filter out engine-internal schemas.
//
// Example usage:
//
//	ex, err := extract.New(conn.EngineSQLServer, provider, "prod-primary", logger)
//	if err != nil {
//	    return err
//	}
//
//	db, err := ex.Extract(ctx, extract.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//
//	snap, err := extract.CreateSnapshot(ctx, ex, extract.SnapshotParams{
//	    TenantID: "acme",
//	    Label:    "nightly",
//	})
package extract
