package migrate_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dbwarden/warden/pkg/migrate"
	"github.com/dbwarden/warden/pkg/utils"
)

func TestParseDialect(t *testing.T) {
	for _, alias := range []string{"sqlserver", "MSSQL", "tsql"} {
		d, err := migrate.ParseDialect(alias)
		require.NoError(t, err)
		require.Equal(t, migrate.DialectSQLServer, d)
	}
	for _, alias := range []string{"postgres", "PostgreSQL", "pg"} {
		d, err := migrate.ParseDialect(alias)
		require.NoError(t, err)
		require.Equal(t, migrate.DialectPostgres, d)
	}

	_, err := migrate.ParseDialect("sqlite")
	require.Error(t, err)
}

func TestDialectQuoteStyle(t *testing.T) {
	require.Equal(t, utils.QuoteBracket, migrate.DialectSQLServer.QuoteStyle())
	require.Equal(t, utils.QuoteDouble, migrate.DialectPostgres.QuoteStyle())
}

// Metadata is excluded from the checksum, so applying or renaming a
// migration never invalidates it.
func TestChecksumCoversStepsOnly(t *testing.T) {
	m := validMigration()
	checksum := m.ComputeChecksum()
	require.Len(t, checksum, 64)

	m.Name = "renamed"
	m.Status = migrate.StatusApplied
	now := time.Now()
	m.AppliedAt = &now
	m.AppliedBy = "deploy-bot"
	require.Equal(t, checksum, m.ComputeChecksum())

	m.Steps[0].ForwardSQL += " -- tweak"
	require.NotEqual(t, checksum, m.ComputeChecksum())
}

// Line-ending and trailing-whitespace differences in step SQL do not change
// the checksum.
func TestChecksumNormalizesSQL(t *testing.T) {
	a := validMigration()
	b := validMigration()
	b.Steps[0].ForwardSQL = "ALTER TABLE [dbo].[Users] ADD [LastLogin] datetime2(7) NULL  \r\n"

	require.Equal(t, a.ComputeChecksum(), b.ComputeChecksum())
}
