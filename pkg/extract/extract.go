package extract

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
	mssql "github.com/denisenkom/go-mssqldb"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/dbwarden/warden/pkg/conn"
	"github.com/dbwarden/warden/pkg/schema"
)

type (
	// Extractor populates a schema.Database from a live connection.
	Extractor interface {
		// Engine reports the engine this extractor targets.
		Engine() conn.Engine

		// ConnectionID reports the connection this extractor reads from.
		ConnectionID() string

		// TestConnection opens a session and runs a trivial version query.
		// Authentication failures are reported via Status.OK=false; only
		// unexpected transport failures return an error.
		TestConnection(ctx context.Context) (*Status, error)

		// Extract reads the catalog and returns the populated model, sorted
		// by (schema, name). Extraction is all-or-nothing.
		Extract(ctx context.Context, opts Options) (*schema.Database, error)
	}

	// Status is the result of a connection test.
	Status struct {
		OK            bool
		Message       string
		ServerVersion string
	}

	// Options controls what an extraction includes.
	Options struct {
		// IncludeDefinitions keeps view/procedure/function/trigger bodies.
		// When false the objects are extracted with empty definitions.
		IncludeDefinitions bool

		// IncludeRowCounts populates Table.RowCount from engine metadata
		// (never full table scans).
		IncludeRowCounts bool

		// Schemas restricts extraction to the named schemas. Empty means all
		// non-system schemas.
		Schemas []string
	}

	// SnapshotParams carries provenance for CreateSnapshot.
	SnapshotParams struct {
		TenantID   string
		UserID     string
		Label      string
		IsBaseline bool
	}
)

// DefaultOptions returns the standard extraction options: definitions
// included, row counts skipped.
func DefaultOptions() Options {
	return Options{IncludeDefinitions: true}
}

// ExtractionError wraps the failure of one logical catalog query.
type ExtractionError struct {
	Query string
	Cause error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction query %q failed: %v", e.Query, e.Cause)
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

// extractionErr wraps err unless it is already an *ExtractionError.
func extractionErr(query string, err error) error {
	var ee *ExtractionError
	if errors.As(err, &ee) {
		return err
	}
	return &ExtractionError{Query: query, Cause: err}
}

// rowsErr surfaces an iteration error from rows, wrapped for the query that
// produced them.
func rowsErr(query string, rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		return extractionErr(query, err)
	}
	return nil
}

// New returns the extractor for the given engine.
func New(engine conn.Engine, provider conn.Provider, connectionID string, log *zap.Logger) (Extractor, error) {
	switch engine {
	case conn.EngineSQLServer:
		return NewSQLServer(provider, connectionID, log), nil
	case conn.EnginePostgres:
		return NewPostgres(provider, connectionID, log), nil
	case conn.EngineClickHouse:
		return NewClickHouse(provider, connectionID, log), nil
	default:
		return nil, errors.Errorf("no extractor for engine %q", engine)
	}
}

// CreateSnapshot composes Extract with content hashing and snapshot identity.
func CreateSnapshot(ctx context.Context, ex Extractor, params SnapshotParams) (*schema.Snapshot, error) {
	db, err := ex.Extract(ctx, DefaultOptions())
	if err != nil {
		return nil, err
	}

	return schema.NewSnapshot(db, schema.SnapshotParams{
		ConnectionID: ex.ConnectionID(),
		TenantID:     params.TenantID,
		CreatedBy:    params.UserID,
		Label:        params.Label,
		IsBaseline:   params.IsBaseline,
	})
}

// schemaFilter implements the Options.Schemas restriction client-side so the
// catalog queries stay static.
type schemaFilter map[string]struct{}

func newSchemaFilter(schemas []string) schemaFilter {
	if len(schemas) == 0 {
		return nil
	}
	f := make(schemaFilter, len(schemas))
	for _, s := range schemas {
		f[strings.ToLower(s)] = struct{}{}
	}
	return f
}

// includes reports whether the schema passes the filter. An empty filter
// passes everything.
func (f schemaFilter) includes(schemaName string) bool {
	if f == nil {
		return true
	}
	_, ok := f[strings.ToLower(schemaName)]
	return ok
}

// isAuthError classifies driver errors that indicate credential or
// authorization problems rather than transport failures.
func isAuthError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 28: invalid authorization specification.
		return strings.HasPrefix(pgErr.Code, "28")
	}

	var msErr mssql.Error
	if errors.As(err, &msErr) {
		switch msErr.Number {
		case 18456, 18452, 18461, 4060:
			return true
		}
	}

	var chErr *clickhouse.Exception
	if errors.As(err, &chErr) {
		return chErr.Code == 516 || chErr.Code == 497
	}

	return false
}

// testConnection is the shared TestConnection implementation: acquire a
// session, run the engine's version query, classify failures.
func testConnection(ctx context.Context, provider conn.Provider, connectionID, versionQuery string) (*Status, error) {
	sess, err := provider.Acquire(ctx, connectionID)
	if err != nil {
		if isAuthError(err) {
			return &Status{OK: false, Message: err.Error()}, nil
		}
		return nil, err
	}
	defer func() { _ = sess.Close() }()

	rows, err := sess.Query(ctx, versionQuery)
	if err != nil {
		if isAuthError(err) {
			return &Status{OK: false, Message: err.Error()}, nil
		}
		return nil, err
	}
	defer rows.Close()

	var version string
	if rows.Next() {
		if err := rows.Scan(&version); err != nil {
			return nil, errors.Wrap(err, "scanning server version")
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &Status{OK: true, Message: "connection successful", ServerVersion: version}, nil
}
