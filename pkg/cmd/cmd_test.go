package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dbwarden/warden/pkg/audit"
	"github.com/dbwarden/warden/pkg/cmd/testutil"
	"github.com/dbwarden/warden/pkg/config"
	"github.com/dbwarden/warden/pkg/migrate"
)

func TestChecksListShowsBuiltins(t *testing.T) {
	out, err := testutil.RunCommand(t, checksList())
	require.NoError(t, err)
	require.Contains(t, out, "missing-primary-keys")
	require.Contains(t, out, "permissive-roles")
}

func TestChecksListCategoryFilter(t *testing.T) {
	out, err := testutil.RunCommand(t, checksList(), "--category", "security")
	require.NoError(t, err)
	require.Contains(t, out, "permissive-roles")
	require.NotContains(t, out, "missing-primary-keys")
}

func TestChecksListFrameworkFilter(t *testing.T) {
	out, err := testutil.RunCommand(t, checksList(), "--framework", "GDPR")
	require.NoError(t, err)
	require.Contains(t, out, "pii-column-names")
	require.NotContains(t, out, "wide-tables")
}

func TestCommandsRequireConfig(t *testing.T) {
	_, err := testutil.RunCommand(t, snapshot(nil), "create", "--connection", "prod")
	require.ErrorContains(t, err, "warden.yaml not found")

	_, err = testutil.RunCommand(t, diffCmd(nil), "--connection", "prod")
	require.ErrorContains(t, err, "warden.yaml not found")

	_, err = testutil.RunCommand(t, migrateCmd(nil), "status", "--connection", "prod")
	require.ErrorContains(t, err, "warden.yaml not found")
}

func TestMigrationFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{SnapshotDir: filepath.Join(dir, "snapshots")}

	m := &migrate.Migration{
		ID:      "m-1",
		Name:    "add_users",
		Version: "20260801120000",
		Dialect: migrate.DialectPostgres,
		Steps: []migrate.Step{
			{Order: 1, Description: "create table public.users", ForwardSQL: "CREATE TABLE users (id int)", RollbackSQL: "DROP TABLE users"},
		},
	}
	m.Checksum = m.ComputeChecksum()

	path, err := writeMigration(cfg, m)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "migrations", "20260801120000_add_users.json"), path)

	got, err := readMigration(path)
	require.NoError(t, err)
	require.Equal(t, m.ID, got.ID)
	require.Equal(t, m.Checksum, got.Checksum)
	require.Equal(t, m.Checksum, got.ComputeChecksum())
}

func TestAuditVerifyEmptyChain(t *testing.T) {
	cfg := &config.Config{
		TenantID: "acme",
		Audit:    audit.Config{Enabled: true},
	}

	out, err := testutil.RunCommand(t, auditCmd(cfg), "verify")
	require.NoError(t, err)
	require.Contains(t, out, "Chain intact: 0 entries")
}

func TestAuditTailEmpty(t *testing.T) {
	cfg := &config.Config{
		TenantID: "acme",
		Audit:    audit.Config{Enabled: true},
	}

	out, err := testutil.RunCommand(t, auditCmd(cfg), "tail")
	require.NoError(t, err)
	require.Contains(t, out, "No audit entries")
}
