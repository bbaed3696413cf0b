package checks

import (
	"context"

	"github.com/dbwarden/warden/pkg/conn"
)

type (
	// Category groups checks by concern.
	Category string

	// Severity ranks how serious a finding is.
	Severity string

	// Status is the outcome of a single check run.
	Status string

	// Definition is the static description of a check: identity, grouping,
	// the frameworks it maps to, and its default parameters.
	Definition struct {
		ID              string         `json:"id"`
		Name            string         `json:"name"`
		Description     string         `json:"description"`
		Category        Category       `json:"category"`
		DefaultSeverity Severity       `json:"default_severity"`
		Engines         []conn.Engine  `json:"engines"`
		Frameworks      []string       `json:"frameworks,omitempty"`
		Tags            []string       `json:"tags,omitempty"`
		Parameters      map[string]any `json:"parameters,omitempty"`
		Enabled         bool           `json:"enabled"`
	}

	// Result is the outcome of one check execution. DurationMS is measured
	// by the caller, not the check.
	Result struct {
		CheckID         string         `json:"check_id"`
		CheckName       string         `json:"check_name"`
		Category        Category       `json:"category"`
		Severity        Severity       `json:"severity"`
		Status          Status         `json:"status"`
		Message         string         `json:"message"`
		Details         map[string]any `json:"details,omitempty"`
		Remediation     string         `json:"remediation,omitempty"`
		AffectedObjects []string       `json:"affected_objects,omitempty"`
		DurationMS      int64          `json:"duration_ms"`
	}

	// Check is a read-only probe against a database session. Execute must
	// return an error-status Result instead of raising; the deadline comes
	// in on the context.
	Check interface {
		Definition() Definition
		Execute(ctx context.Context, sess conn.Session, params map[string]any) Result
	}
)

const (
	CategoryPerformance   Category = "performance"
	CategorySecurity      Category = "security"
	CategoryCompliance    Category = "compliance"
	CategoryConfiguration Category = "configuration"
)

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

const (
	StatusPassed   Status = "passed"
	StatusWarning  Status = "warning"
	StatusFailed   Status = "failed"
	StatusCritical Status = "critical"
	StatusError    Status = "error"
)

// SupportsEngine reports whether the check can run against the engine.
func (d Definition) SupportsEngine(engine conn.Engine) bool {
	for _, e := range d.Engines {
		if e == engine {
			return true
		}
	}
	return false
}
