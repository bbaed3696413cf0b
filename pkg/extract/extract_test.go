package extract_test

import (
	"context"
	"testing"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/DATA-DOG/go-sqlmock"
	mssql "github.com/denisenkom/go-mssqldb"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dbwarden/warden/pkg/conn"
	"github.com/dbwarden/warden/pkg/extract"
)

func TestTestConnection(t *testing.T) {
	ex, mock := newMockExtractor(t, conn.EnginePostgres)
	mock.ExpectQuery(`SELECT version\(\)`).WillReturnRows(
		sqlmock.NewRows([]string{"version"}).
			AddRow("PostgreSQL 16.3 on x86_64-pc-linux-gnu"))

	status, err := ex.TestConnection(context.Background())
	require.NoError(t, err)
	require.True(t, status.OK)
	require.Equal(t, "PostgreSQL 16.3 on x86_64-pc-linux-gnu", status.ServerVersion)
}

// Credential and authorization failures are reported as a status, not an
// error; only transport problems escape as errors.
func TestTestConnectionAuthFailure(t *testing.T) {
	tests := []struct {
		name   string
		engine conn.Engine
		err    error
	}{
		{
			name:   "postgres invalid password",
			engine: conn.EnginePostgres,
			err:    &pgconn.PgError{Code: "28P01", Message: "password authentication failed"},
		},
		{
			name:   "sqlserver login failed",
			engine: conn.EngineSQLServer,
			err:    mssql.Error{Number: 18456, Message: "Login failed for user 'warden'."},
		},
		{
			name:   "sqlserver database unavailable",
			engine: conn.EngineSQLServer,
			err:    mssql.Error{Number: 4060, Message: "Cannot open database."},
		},
		{
			name:   "clickhouse authentication failed",
			engine: conn.EngineClickHouse,
			err:    &clickhouse.Exception{Code: 516, Message: "Authentication failed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex, err := extract.New(tt.engine, &mockProvider{err: tt.err}, "c1", zaptest.NewLogger(t))
			require.NoError(t, err)

			status, err := ex.TestConnection(context.Background())
			require.NoError(t, err)
			require.False(t, status.OK)
			require.NotEmpty(t, status.Message)
		})
	}
}

func TestTestConnectionTransportFailure(t *testing.T) {
	ex, err := extract.New(conn.EnginePostgres, &mockProvider{err: errors.New("dial tcp 10.0.0.5:5432: connection refused")}, "c1", zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = ex.TestConnection(context.Background())
	require.Error(t, err)
}

func TestCreateSnapshot(t *testing.T) {
	ex, mock := newMockExtractor(t, conn.EngineSQLServer)
	expectSQLServerCatalog(mock, false)

	snap, err := extract.CreateSnapshot(context.Background(), ex, extract.SnapshotParams{
		TenantID: "acme",
		UserID:   "dba@acme.io",
		Label:    "nightly",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Equal(t, "test-conn", snap.ConnectionID)
	require.Equal(t, "acme", snap.TenantID)
	require.Equal(t, "dba@acme.io", snap.CreatedBy)
	require.Equal(t, "nightly", snap.Label)
	require.False(t, snap.IsBaseline)
	require.NotEmpty(t, snap.ID)
	require.Len(t, snap.ContentHash, 64)
	require.Len(t, snap.Schema.Tables, 2)
}

func TestCreateSnapshotExtractFailure(t *testing.T) {
	ex, mock := newMockExtractor(t, conn.EngineSQLServer)
	mock.ExpectQuery(`SERVERPROPERTY`).WillReturnError(errors.New("network dropped"))

	_, err := extract.CreateSnapshot(context.Background(), ex, extract.SnapshotParams{TenantID: "acme"})
	require.Error(t, err)

	var ee *extract.ExtractionError
	require.ErrorAs(t, err, &ee)
	require.Equal(t, "database", ee.Query)
}
