package migrate

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/dbwarden/warden/pkg/diff"
	"github.com/dbwarden/warden/pkg/utils"
)

type (
	// Dialect selects the SQL flavor a migration is generated for.
	Dialect string

	// Status is the lifecycle state of a migration. Applied and rolled_back
	// are terminal.
	Status string

	// Migration is an ordered sequence of reversible DDL steps produced from
	// a schema diff. The checksum covers the canonicalized steps and is
	// verified before execution.
	Migration struct {
		ID              string                `json:"id"`
		Name            string                `json:"name"`
		Version         string                `json:"version"`
		Description     string                `json:"description"`
		Dialect         Dialect               `json:"dialect"`
		Checksum        string                `json:"checksum"`
		Steps           []Step                `json:"steps"`
		Dependencies    []string              `json:"dependencies,omitempty"`
		BreakingChanges []diff.BreakingChange `json:"breaking_changes,omitempty"`
		Status          Status                `json:"status"`
		AppliedAt       *time.Time            `json:"applied_at,omitempty"`
		AppliedBy       string                `json:"applied_by,omitempty"`
	}

	// Step is one unit of forward DDL with an optional symbolic rollback.
	// RollbackSQL is empty when no safe inverse exists in DDL (dropped
	// tables and columns cannot be restored without their data).
	Step struct {
		Order               int    `json:"order"`
		Description         string `json:"description"`
		ForwardSQL          string `json:"forward_sql"`
		RollbackSQL         string `json:"rollback_sql,omitempty"`
		RequiresLock        bool   `json:"requires_lock"`
		EstimatedDurationMS int64  `json:"estimated_duration_ms"`
	}
)

const (
	DialectSQLServer Dialect = "sqlserver"
	DialectPostgres  Dialect = "postgres"
)

const (
	StatusPending    Status = "pending"
	StatusApplied    Status = "applied"
	StatusFailed     Status = "failed"
	StatusRolledBack Status = "rolled_back"
)

// ParseDialect normalizes a dialect name from configuration.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "sqlserver", "mssql", "tsql":
		return DialectSQLServer, nil
	case "postgres", "postgresql", "pg":
		return DialectPostgres, nil
	default:
		return "", errors.Errorf("unsupported dialect %q", name)
	}
}

// QuoteStyle returns the identifier quoting convention for the dialect.
func (d Dialect) QuoteStyle() utils.QuoteStyle {
	if d == DialectSQLServer {
		return utils.QuoteBracket
	}
	return utils.QuoteDouble
}

// ComputeChecksum returns the lowercase hex SHA-256 digest of the
// canonicalized steps. Step order, descriptions, and both SQL directions
// participate; metadata (id, name, status) does not, so re-serializing a
// migration never changes its checksum.
func (m *Migration) ComputeChecksum() string {
	steps := append([]Step(nil), m.Steps...)
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Order < steps[j].Order })

	h := sha256.New()
	for _, s := range steps {
		h.Write([]byte(strconv.Itoa(s.Order)))
		h.Write([]byte{0x1f})
		h.Write([]byte(s.Description))
		h.Write([]byte{0x1f})
		h.Write([]byte(strings.TrimSpace(utils.NormalizeDefinition(s.ForwardSQL))))
		h.Write([]byte{0x1f})
		h.Write([]byte(strings.TrimSpace(utils.NormalizeDefinition(s.RollbackSQL))))
		h.Write([]byte{0x1f})
		h.Write([]byte(strconv.FormatBool(s.RequiresLock)))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// HasBreakingChanges reports whether applying the migration may invalidate
// existing clients or data.
func (m *Migration) HasBreakingChanges() bool { return len(m.BreakingChanges) > 0 }
