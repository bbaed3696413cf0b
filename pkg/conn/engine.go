package conn

import "github.com/pkg/errors"

// Engine identifies a supported database engine.
type Engine string

const (
	// EngineSQLServer is Microsoft SQL Server (T-SQL dialect).
	EngineSQLServer Engine = "sqlserver"

	// EnginePostgres is PostgreSQL.
	EnginePostgres Engine = "postgres"

	// EngineClickHouse is ClickHouse.
	EngineClickHouse Engine = "clickhouse"
)

// ParseEngine normalizes an engine name from configuration. Common aliases
// are accepted.
func ParseEngine(name string) (Engine, error) {
	switch name {
	case "sqlserver", "mssql":
		return EngineSQLServer, nil
	case "postgres", "postgresql", "pg":
		return EnginePostgres, nil
	case "clickhouse":
		return EngineClickHouse, nil
	default:
		return "", errors.Errorf("unsupported engine %q", name)
	}
}
