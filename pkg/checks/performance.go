package checks

import "github.com/dbwarden/warden/pkg/conn"

func missingPrimaryKeys() Check {
	return &sqlCheck{
		def: Definition{
			ID:              "missing-primary-keys",
			Name:            "Missing primary keys",
			Description:     "Finds user tables without a primary key constraint.",
			Category:        CategoryPerformance,
			DefaultSeverity: SeverityMedium,
			Engines:         []conn.Engine{conn.EngineSQLServer, conn.EnginePostgres},
			Tags:            []string{"schema", "keys"},
			Enabled:         true,
		},
		queries: map[conn.Engine]string{
			conn.EngineSQLServer: `
SELECT s.name + '.' + t.name, 0
FROM sys.tables t
JOIN sys.schemas s ON s.schema_id = t.schema_id
WHERE t.is_ms_shipped = 0
  AND NOT EXISTS (
    SELECT 1 FROM sys.key_constraints kc
    WHERE kc.parent_object_id = t.object_id AND kc.type = 'PK'
  )
ORDER BY 1`,
			conn.EnginePostgres: `
SELECT n.nspname || '.' || c.relname, 0
FROM pg_catalog.pg_class c
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
WHERE c.relkind = 'r'
  AND n.nspname NOT IN ('pg_catalog', 'pg_toast', 'information_schema')
  AND NOT EXISTS (
    SELECT 1 FROM pg_catalog.pg_constraint con
    WHERE con.conrelid = c.oid AND con.contype = 'p'
  )
ORDER BY 1`,
		},
		assess: failWhenAny(StatusFailed,
			"tables without a primary key",
			"every user table has a primary key"),
	}
}

func unindexedForeignKeys() Check {
	return &sqlCheck{
		def: Definition{
			ID:              "unindexed-foreign-keys",
			Name:            "Unindexed foreign keys",
			Description:     "Finds foreign keys whose referencing columns have no supporting index.",
			Category:        CategoryPerformance,
			DefaultSeverity: SeverityMedium,
			Engines:         []conn.Engine{conn.EngineSQLServer, conn.EnginePostgres},
			Tags:            []string{"schema", "indexes"},
			Enabled:         true,
		},
		queries: map[conn.Engine]string{
			conn.EngineSQLServer: `
SELECT s.name + '.' + t.name + '.' + fk.name, 0
FROM sys.foreign_keys fk
JOIN sys.tables t ON t.object_id = fk.parent_object_id
JOIN sys.schemas s ON s.schema_id = t.schema_id
WHERE NOT EXISTS (
    SELECT 1
    FROM sys.foreign_key_columns fkc
    JOIN sys.index_columns ic
      ON ic.object_id = fkc.parent_object_id
     AND ic.column_id = fkc.parent_column_id
     AND ic.index_column_id = 1
    WHERE fkc.constraint_object_id = fk.object_id
)
ORDER BY 1`,
			conn.EnginePostgres: `
SELECT n.nspname || '.' || c.relname || '.' || con.conname, 0
FROM pg_catalog.pg_constraint con
JOIN pg_catalog.pg_class c ON c.oid = con.conrelid
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
WHERE con.contype = 'f'
  AND NOT EXISTS (
    SELECT 1 FROM pg_catalog.pg_index i
    WHERE i.indrelid = con.conrelid
      AND i.indkey::int2[] @> con.conkey::int2[]
  )
ORDER BY 1`,
		},
		assess: failWhenAny(StatusWarning,
			"foreign keys without a supporting index",
			"all foreign keys are indexed"),
	}
}

func indexFragmentation() Check {
	return &sqlCheck{
		def: Definition{
			ID:              "index-fragmentation",
			Name:            "Index fragmentation",
			Description:     "Finds indexes fragmented beyond the configured percentage.",
			Category:        CategoryPerformance,
			DefaultSeverity: SeverityLow,
			Engines:         []conn.Engine{conn.EngineSQLServer},
			Tags:            []string{"indexes", "maintenance"},
			Parameters:      map[string]any{"max_fragmentation_percent": 30.0},
			Enabled:         true,
		},
		queries: map[conn.Engine]string{
			conn.EngineSQLServer: `
SELECT s.name + '.' + t.name + '.' + i.name, ps.avg_fragmentation_in_percent
FROM sys.dm_db_index_physical_stats(DB_ID(), NULL, NULL, NULL, 'LIMITED') ps
JOIN sys.indexes i ON i.object_id = ps.object_id AND i.index_id = ps.index_id
JOIN sys.tables t ON t.object_id = ps.object_id
JOIN sys.schemas s ON s.schema_id = t.schema_id
WHERE i.name IS NOT NULL AND ps.page_count > 100
ORDER BY 1`,
		},
		assess: failAboveThreshold(StatusWarning, "max_fragmentation_percent", 30,
			"fragmented indexes need a rebuild or reorganize",
			"index fragmentation is within bounds"),
	}
}

func staleStatistics() Check {
	return &sqlCheck{
		def: Definition{
			ID:              "stale-statistics",
			Name:            "Stale statistics",
			Description:     "Finds tables whose optimizer statistics are older than the configured age.",
			Category:        CategoryPerformance,
			DefaultSeverity: SeverityLow,
			Engines:         []conn.Engine{conn.EngineSQLServer, conn.EnginePostgres},
			Tags:            []string{"statistics", "maintenance"},
			Parameters:      map[string]any{"max_age_days": 7.0},
			Enabled:         true,
		},
		queries: map[conn.Engine]string{
			conn.EngineSQLServer: `
SELECT s.name + '.' + t.name,
       COALESCE(DATEDIFF(day, MIN(STATS_DATE(st.object_id, st.stats_id)), GETUTCDATE()), 365)
FROM sys.stats st
JOIN sys.tables t ON t.object_id = st.object_id
JOIN sys.schemas s ON s.schema_id = t.schema_id
GROUP BY s.name, t.name
ORDER BY 1`,
			conn.EnginePostgres: `
SELECT schemaname || '.' || relname,
       EXTRACT(epoch FROM now() - COALESCE(GREATEST(last_analyze, last_autoanalyze), now() - interval '365 days')) / 86400.0
FROM pg_catalog.pg_stat_user_tables
ORDER BY 1`,
		},
		assess: failAboveThreshold(StatusWarning, "max_age_days", 7,
			"tables with stale optimizer statistics",
			"optimizer statistics are fresh"),
	}
}

func longRunningSessions() Check {
	return &sqlCheck{
		def: Definition{
			ID:              "long-running-sessions",
			Name:            "Long-running sessions",
			Description:     "Finds active sessions running longer than the configured duration.",
			Category:        CategoryPerformance,
			DefaultSeverity: SeverityMedium,
			Engines:         []conn.Engine{conn.EngineSQLServer, conn.EnginePostgres},
			Tags:            []string{"sessions", "runtime"},
			Parameters:      map[string]any{"max_duration_seconds": 300.0},
			Enabled:         true,
		},
		queries: map[conn.Engine]string{
			conn.EngineSQLServer: `
SELECT CAST(r.session_id AS nvarchar(12)), r.total_elapsed_time / 1000.0
FROM sys.dm_exec_requests r
WHERE r.session_id <> @@SPID AND r.status <> 'background'
ORDER BY 1`,
			conn.EnginePostgres: `
SELECT pid::text, EXTRACT(epoch FROM now() - query_start)
FROM pg_catalog.pg_stat_activity
WHERE state = 'active' AND pid <> pg_backend_pid()
ORDER BY 1`,
		},
		assess: failAboveThreshold(StatusWarning, "max_duration_seconds", 300,
			"sessions running longer than allowed",
			"no long-running sessions"),
	}
}

func wideTables() Check {
	return &sqlCheck{
		def: Definition{
			ID:              "wide-tables",
			Name:            "Wide tables",
			Description:     "Finds tables with more columns than the configured limit.",
			Category:        CategoryPerformance,
			DefaultSeverity: SeverityLow,
			Engines:         []conn.Engine{conn.EngineSQLServer, conn.EnginePostgres},
			Tags:            []string{"schema", "design"},
			Parameters:      map[string]any{"max_columns": 50.0},
			Enabled:         true,
		},
		queries: map[conn.Engine]string{
			conn.EngineSQLServer: `
SELECT table_schema + '.' + table_name, COUNT(*)
FROM INFORMATION_SCHEMA.COLUMNS
WHERE table_schema NOT IN ('sys', 'INFORMATION_SCHEMA')
GROUP BY table_schema, table_name
ORDER BY 1`,
			conn.EnginePostgres: `
SELECT table_schema || '.' || table_name, COUNT(*)
FROM information_schema.columns
WHERE table_schema NOT IN ('pg_catalog', 'information_schema')
GROUP BY table_schema, table_name
ORDER BY 1`,
		},
		assess: failAboveThreshold(StatusWarning, "max_columns", 50,
			"tables wider than the column limit",
			"table widths are within bounds"),
	}
}
