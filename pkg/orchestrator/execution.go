package orchestrator

import (
	"time"

	"github.com/dbwarden/warden/pkg/checks"
)

// TriggerType says what caused an execution.
type TriggerType string

const (
	TriggerOnDemand   TriggerType = "on_demand"
	TriggerScheduled  TriggerType = "scheduled"
	TriggerDeployment TriggerType = "deployment"
)

type (
	// Trigger identifies the cause of an execution. Source is free-form
	// provenance, e.g. a trigger name or "{deployment_id}:{phase}".
	Trigger struct {
		Type   TriggerType
		Source string
	}

	// Selection picks the checks to run. Explicit ids, a category, and a
	// framework are unioned; an empty selection means every enabled check.
	Selection struct {
		CheckIDs  []string
		Category  checks.Category
		Framework string
	}

	// Execution is one orchestrated run of a check set against a single
	// connection. Results accumulate while the status is running; once
	// completed the record is frozen.
	Execution struct {
		ID               string          `json:"id"`
		TenantID         string          `json:"tenant_id"`
		ConnectionID     string          `json:"connection_id"`
		TriggerType      TriggerType     `json:"trigger_type"`
		TriggerSource    string          `json:"trigger_source,omitempty"`
		Status           checks.Status   `json:"status"`
		StartedAt        time.Time       `json:"started_at"`
		CompletedAt      *time.Time      `json:"completed_at,omitempty"`
		Results          []checks.Result `json:"results"`
		BeforeSnapshotID string          `json:"before_snapshot_id,omitempty"`
	}
)

// DurationMS reports the wall time of the execution, or elapsed time so far
// when it is still running.
func (e *Execution) DurationMS() int64 {
	end := time.Now().UTC()
	if e.CompletedAt != nil {
		end = *e.CompletedAt
	}
	return end.Sub(e.StartedAt).Milliseconds()
}

// PassedCount counts results with status passed.
func (e *Execution) PassedCount() int { return e.countStatus(checks.StatusPassed) }

// FailedCount counts results with status failed or critical.
func (e *Execution) FailedCount() int {
	return e.countStatus(checks.StatusFailed) + e.countStatus(checks.StatusCritical)
}

// WarningCount counts results with status warning.
func (e *Execution) WarningCount() int { return e.countStatus(checks.StatusWarning) }

// CriticalCount counts results with status critical.
func (e *Execution) CriticalCount() int { return e.countStatus(checks.StatusCritical) }

func (e *Execution) countStatus(s checks.Status) int {
	n := 0
	for _, r := range e.Results {
		if r.Status == s {
			n++
		}
	}
	return n
}

// aggregateStatus rolls individual results up by precedence: error beats
// critical beats failed beats warning beats passed.
func aggregateStatus(results []checks.Result) checks.Status {
	agg := checks.StatusPassed
	for _, r := range results {
		switch r.Status {
		case checks.StatusError:
			return checks.StatusError
		case checks.StatusCritical:
			agg = checks.StatusCritical
		case checks.StatusFailed:
			if agg != checks.StatusCritical {
				agg = checks.StatusFailed
			}
		case checks.StatusWarning:
			if agg == checks.StatusPassed {
				agg = checks.StatusWarning
			}
		}
	}
	return agg
}
