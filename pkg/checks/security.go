package checks

import "github.com/dbwarden/warden/pkg/conn"

func permissiveRoles() Check {
	return &sqlCheck{
		def: Definition{
			ID:              "permissive-roles",
			Name:            "Permissive roles",
			Description:     "Finds principals holding server-wide administrative rights.",
			Category:        CategorySecurity,
			DefaultSeverity: SeverityCritical,
			Engines:         []conn.Engine{conn.EngineSQLServer, conn.EnginePostgres},
			Frameworks:      []string{"SOC2", "PCI-DSS"},
			Tags:            []string{"access", "roles"},
			Enabled:         true,
		},
		queries: map[conn.Engine]string{
			conn.EngineSQLServer: `
SELECT p.name, 0
FROM sys.server_role_members rm
JOIN sys.server_principals r ON r.principal_id = rm.role_principal_id
JOIN sys.server_principals p ON p.principal_id = rm.member_principal_id
WHERE r.name = 'sysadmin' AND p.name <> 'sa'
ORDER BY 1`,
			conn.EnginePostgres: `
SELECT rolname, 0
FROM pg_catalog.pg_roles
WHERE rolsuper AND rolname <> 'postgres'
ORDER BY 1`,
		},
		assess: failWhenAny(StatusCritical,
			"principals with unrestricted administrative rights",
			"no unexpected administrative principals"),
	}
}

func orphanedUsers() Check {
	return &sqlCheck{
		def: Definition{
			ID:              "orphaned-users",
			Name:            "Orphaned database users",
			Description:     "Finds database users whose server login no longer exists.",
			Category:        CategorySecurity,
			DefaultSeverity: SeverityHigh,
			Engines:         []conn.Engine{conn.EngineSQLServer},
			Frameworks:      []string{"SOC2"},
			Tags:            []string{"access", "users"},
			Enabled:         true,
		},
		queries: map[conn.Engine]string{
			conn.EngineSQLServer: `
SELECT dp.name, 0
FROM sys.database_principals dp
LEFT JOIN sys.server_principals sp ON sp.sid = dp.sid
WHERE dp.type IN ('S', 'U')
  AND dp.authentication_type_desc = 'INSTANCE'
  AND dp.principal_id > 4
  AND sp.sid IS NULL
ORDER BY 1`,
		},
		assess: failWhenAny(StatusFailed,
			"users without a matching server login",
			"no orphaned users"),
	}
}

func weakAuthConfig() Check {
	return &sqlCheck{
		def: Definition{
			ID:              "weak-auth-config",
			Name:            "Weak authentication configuration",
			Description:     "Finds authentication settings below the expected baseline.",
			Category:        CategorySecurity,
			DefaultSeverity: SeverityHigh,
			Engines:         []conn.Engine{conn.EngineSQLServer, conn.EnginePostgres},
			Frameworks:      []string{"PCI-DSS", "HIPAA"},
			Tags:            []string{"authentication"},
			Enabled:         true,
		},
		queries: map[conn.Engine]string{
			conn.EngineSQLServer: `
SELECT name, 0
FROM sys.sql_logins
WHERE is_policy_checked = 0 OR is_expiration_checked = 0
ORDER BY 1`,
			conn.EnginePostgres: `
SELECT name || '=' || setting, 0
FROM pg_catalog.pg_settings
WHERE name = 'password_encryption' AND setting <> 'scram-sha-256'`,
		},
		assess: failWhenAny(StatusFailed,
			"authentication settings below baseline",
			"authentication configuration meets the baseline"),
	}
}

func xpCmdshellEnabled() Check {
	return &sqlCheck{
		def: Definition{
			ID:              "xp-cmdshell-enabled",
			Name:            "xp_cmdshell enabled",
			Description:     "Flags the xp_cmdshell extended procedure being enabled server-wide.",
			Category:        CategorySecurity,
			DefaultSeverity: SeverityCritical,
			Engines:         []conn.Engine{conn.EngineSQLServer},
			Frameworks:      []string{"PCI-DSS"},
			Tags:            []string{"surface-area"},
			Enabled:         true,
		},
		queries: map[conn.Engine]string{
			conn.EngineSQLServer: `
SELECT name, CAST(value_in_use AS float)
FROM sys.configurations
WHERE name = 'xp_cmdshell' AND CAST(value_in_use AS int) = 1`,
		},
		assess: failWhenAny(StatusCritical,
			"xp_cmdshell is enabled",
			"xp_cmdshell is disabled"),
	}
}
