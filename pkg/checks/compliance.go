package checks

import "github.com/dbwarden/warden/pkg/conn"

func piiColumnNames() Check {
	return &sqlCheck{
		def: Definition{
			ID:              "pii-column-names",
			Name:            "PII column names",
			Description:     "Finds columns whose names suggest personal data that may need protection.",
			Category:        CategoryCompliance,
			DefaultSeverity: SeverityMedium,
			Engines:         []conn.Engine{conn.EngineSQLServer, conn.EnginePostgres},
			Frameworks:      []string{"GDPR", "HIPAA"},
			Tags:            []string{"pii", "data-classification"},
			Enabled:         true,
		},
		queries: map[conn.Engine]string{
			conn.EngineSQLServer: `
SELECT table_schema + '.' + table_name + '.' + column_name, 0
FROM INFORMATION_SCHEMA.COLUMNS
WHERE table_schema NOT IN ('sys', 'INFORMATION_SCHEMA')
  AND (LOWER(column_name) LIKE '%ssn%'
    OR LOWER(column_name) LIKE '%social_security%'
    OR LOWER(column_name) LIKE '%credit_card%'
    OR LOWER(column_name) LIKE '%passport%'
    OR LOWER(column_name) LIKE '%date_of_birth%')
ORDER BY 1`,
			conn.EnginePostgres: `
SELECT table_schema || '.' || table_name || '.' || column_name, 0
FROM information_schema.columns
WHERE table_schema NOT IN ('pg_catalog', 'information_schema')
  AND (LOWER(column_name) LIKE '%ssn%'
    OR LOWER(column_name) LIKE '%social_security%'
    OR LOWER(column_name) LIKE '%credit_card%'
    OR LOWER(column_name) LIKE '%passport%'
    OR LOWER(column_name) LIKE '%date_of_birth%')
ORDER BY 1`,
		},
		assess: failWhenAny(StatusWarning,
			"columns that look like unclassified personal data",
			"no PII-suggestive column names found"),
	}
}

func backupRecency() Check {
	return &sqlCheck{
		def: Definition{
			ID:              "backup-recency",
			Name:            "Backup recency",
			Description:     "Finds databases whose last full backup is older than the configured age.",
			Category:        CategoryCompliance,
			DefaultSeverity: SeverityHigh,
			Engines:         []conn.Engine{conn.EngineSQLServer},
			Frameworks:      []string{"SOC2"},
			Tags:            []string{"backup", "recovery"},
			Parameters:      map[string]any{"max_backup_age_hours": 24.0},
			Enabled:         true,
		},
		queries: map[conn.Engine]string{
			conn.EngineSQLServer: `
SELECT d.name, COALESCE(DATEDIFF(hour, MAX(b.backup_finish_date), GETUTCDATE()), 8760)
FROM sys.databases d
LEFT JOIN msdb.dbo.backupset b ON b.database_name = d.name AND b.type = 'D'
WHERE d.database_id > 4
GROUP BY d.name
ORDER BY 1`,
		},
		assess: failAboveThreshold(StatusFailed, "max_backup_age_hours", 24,
			"databases without a recent full backup",
			"all databases have recent full backups"),
	}
}
