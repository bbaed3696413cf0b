package checks

import "github.com/dbwarden/warden/pkg/conn"

func riskyDatabaseSettings() Check {
	return &sqlCheck{
		def: Definition{
			ID:              "risky-database-settings",
			Name:            "Risky database settings",
			Description:     "Finds server or database settings known to hurt durability or performance.",
			Category:        CategoryConfiguration,
			DefaultSeverity: SeverityMedium,
			Engines:         []conn.Engine{conn.EngineSQLServer, conn.EnginePostgres},
			Tags:            []string{"settings"},
			Enabled:         true,
		},
		queries: map[conn.Engine]string{
			conn.EngineSQLServer: `
SELECT d.name + ' (auto_shrink)', 0 FROM sys.databases d WHERE d.is_auto_shrink_on = 1
UNION ALL
SELECT d.name + ' (auto_close)', 0 FROM sys.databases d WHERE d.is_auto_close_on = 1
ORDER BY 1`,
			conn.EnginePostgres: `
SELECT name || '=' || setting, 0
FROM pg_catalog.pg_settings
WHERE (name = 'fsync' AND setting = 'off')
   OR (name = 'full_page_writes' AND setting = 'off')
ORDER BY 1`,
		},
		assess: failWhenAny(StatusWarning,
			"settings that trade durability or performance for convenience",
			"no risky settings found"),
	}
}

func connectionHeadroom() Check {
	return &sqlCheck{
		def: Definition{
			ID:              "connection-headroom",
			Name:            "Connection headroom",
			Description:     "Warns when connection usage approaches the server limit.",
			Category:        CategoryConfiguration,
			DefaultSeverity: SeverityMedium,
			Engines:         []conn.Engine{conn.EngineSQLServer, conn.EnginePostgres},
			Tags:            []string{"capacity"},
			Parameters:      map[string]any{"max_utilization_percent": 80.0},
			Enabled:         true,
		},
		queries: map[conn.Engine]string{
			conn.EngineSQLServer: `
SELECT 'connections',
       100.0 * (SELECT COUNT(*) FROM sys.dm_exec_connections) / NULLIF(@@MAX_CONNECTIONS, 0)`,
			conn.EnginePostgres: `
SELECT 'connections',
       100.0 * (SELECT COUNT(*) FROM pg_catalog.pg_stat_activity)
       / NULLIF(current_setting('max_connections')::float, 0)`,
		},
		assess: failAboveThreshold(StatusWarning, "max_utilization_percent", 80,
			"connection usage is close to the server limit",
			"connection usage has headroom"),
	}
}
