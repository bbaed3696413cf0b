package migrate

import (
	"fmt"
	"strings"

	"github.com/dbwarden/warden/pkg/sqlsplit"
)

// ValidateOptions tunes migration validation.
type ValidateOptions struct {
	// AllowTruncate permits TRUNCATE statements, which are otherwise
	// rejected as destructive.
	AllowTruncate bool
}

// ValidationResult reports validation findings. Errors make the migration
// unrunnable; warnings do not.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func (r *ValidationResult) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Validate checks a migration for structural soundness and destructive
// statements before it is allowed to execute. The denylist scan works on
// bare words outside string literals and comments, so "DROP DATABASE" in a
// log message literal does not trip it.
func Validate(m *Migration, opts ValidateOptions) *ValidationResult {
	result := &ValidationResult{}

	if len(m.Steps) == 0 {
		result.errorf("migration %s has no steps", m.ID)
	}
	if m.Checksum != "" && m.Checksum != m.ComputeChecksum() {
		result.errorf("checksum mismatch: migration %s was modified after generation", m.ID)
	}

	seen := make(map[int]bool, len(m.Steps))
	for i, s := range m.Steps {
		if s.Order != i+1 {
			result.errorf("step %d has order %d, orders must be dense starting at 1", i+1, s.Order)
		}
		if seen[s.Order] {
			result.errorf("duplicate step order %d", s.Order)
		}
		seen[s.Order] = true

		if strings.TrimSpace(s.ForwardSQL) == "" {
			result.errorf("step %d has no forward sql", s.Order)
			continue
		}
		if s.RollbackSQL == "" {
			result.warnf("step %d (%s) has no rollback", s.Order, s.Description)
		}

		scanDenylist(result, s, opts)
	}

	if m.HasBreakingChanges() {
		for _, bc := range m.BreakingChanges {
			result.warnf("breaking change: %s", bc.Description)
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

func scanDenylist(result *ValidationResult, s Step, opts ValidateOptions) {
	words, err := sqlsplit.Words(s.ForwardSQL)
	if err != nil {
		result.errorf("step %d: unparseable sql: %v", s.Order, err)
		return
	}

	for i, w := range words {
		next := ""
		if i+1 < len(words) {
			next = words[i+1]
		}

		switch w {
		case "drop":
			if next == "database" {
				result.errorf("step %d contains DROP DATABASE", s.Order)
			}
		case "truncate":
			if !opts.AllowTruncate {
				result.errorf("step %d contains TRUNCATE, which is destructive and not allowed", s.Order)
			}
		case "shutdown":
			result.errorf("step %d contains SHUTDOWN", s.Order)
		case "sp_configure":
			result.errorf("step %d reconfigures the server via sp_configure", s.Order)
		}

		if strings.HasPrefix(w, "xp_") {
			result.errorf("step %d calls extended procedure %s", s.Order, w)
		}
	}
}
