package config_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dbwarden/warden/pkg/config"
	"github.com/dbwarden/warden/pkg/conn"
	"github.com/dbwarden/warden/pkg/migrate"
)

const fullConfig = `
tenant_id: acme
migration_dialect: sqlserver
snapshot_dir: /var/lib/warden/snapshots
connections:
  - id: prod-primary
    engine: sqlserver
    dsn: sqlserver://warden@db:1433?database=app
    password: hunter2
  - id: analytics
    engine: postgres
    dsn: postgres://warden@pg:5432/analytics
orchestrator:
  max_concurrent_checks: 8
  check_timeout_seconds: 30
  alert_on_critical: true
  alert_webhook_url: https://hooks.example.com/warden
audit:
  enabled: true
  buffer_size: 50
schedules:
  - name: nightly
    connection_id: prod-primary
    cron: "0 2 * * *"
    checks: [missing-primary-keys, permissive-roles]
deployment_triggers:
  - name: pre-flight
    checks: [missing-primary-keys]
    run_before: true
`

func TestLoadConfig(t *testing.T) {
	cfg, err := config.LoadConfig(strings.NewReader(fullConfig))
	require.NoError(t, err)

	require.Equal(t, "acme", cfg.TenantID)
	require.Equal(t, migrate.DialectSQLServer, cfg.Dialect())
	require.Equal(t, "/var/lib/warden/snapshots", cfg.SnapshotDir)
	require.Len(t, cfg.Connections, 2)
	require.Equal(t, 8, cfg.Orchestrator.MaxConcurrentChecks)
	require.True(t, cfg.Audit.Enabled)
	require.Len(t, cfg.Schedules, 1)
	require.Len(t, cfg.Deployments, 1)

	// Orchestrator tenant defaults from the top-level tenant.
	require.Equal(t, "acme", cfg.Orchestrator.TenantID)

	configs := cfg.ConnConfigs()
	require.Equal(t, conn.EngineSQLServer, configs[0].Engine)
	require.Equal(t, conn.EnginePostgres, configs[1].Engine)
	require.Equal(t, "acme", configs[0].TenantID)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := config.LoadConfig(strings.NewReader("tenant_id: acme\n"))
	require.NoError(t, err)

	require.Equal(t, migrate.DialectPostgres, cfg.Dialect())
	require.Equal(t, ".warden/snapshots", cfg.SnapshotDir)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing tenant", "connections: []\n"},
		{"bad dialect", "tenant_id: acme\nmigration_dialect: oracle\n"},
		{"bad engine", "tenant_id: acme\nconnections:\n  - id: a\n    engine: db2\n    dsn: x\n"},
		{"missing dsn", "tenant_id: acme\nconnections:\n  - id: a\n    engine: postgres\n"},
		{"duplicate connection", "tenant_id: acme\nconnections:\n  - {id: a, engine: postgres, dsn: x}\n  - {id: a, engine: postgres, dsn: y}\n"},
		{"invalid cron", "tenant_id: acme\nconnections:\n  - {id: a, engine: postgres, dsn: x}\nschedules:\n  - {name: s, connection_id: a, cron: \"not cron\"}\n"},
		{"schedule unknown connection", "tenant_id: acme\nschedules:\n  - {name: s, connection_id: ghost, cron: \"* * * * *\"}\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.LoadConfig(strings.NewReader(tc.yaml))
			require.Error(t, err)
		})
	}
}

func TestCredentialsFromConfig(t *testing.T) {
	cfg, err := config.LoadConfig(strings.NewReader(fullConfig))
	require.NoError(t, err)

	creds := cfg.Credentials()
	secret, err := creds.Fetch(t.Context(), "acme", "prod-primary", "alice")
	require.NoError(t, err)
	require.Equal(t, "hunter2", secret)

	// No password configured for analytics.
	_, err = creds.Fetch(t.Context(), "acme", "analytics", "alice")
	require.Error(t, err)
}
