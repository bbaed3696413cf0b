package checks

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dbwarden/warden/pkg/conn"
)

// finding is one row of interest returned by a check query: the object it
// concerns and an optional metric value.
type finding struct {
	object string
	metric float64
}

type (
	// assessFunc turns the findings of a check query into a verdict.
	assessFunc func(findings []finding, params map[string]any) verdict

	verdict struct {
		status  Status
		message string
		details map[string]any

		// affected overrides the default "every finding" object list when a
		// threshold narrows the set.
		affected []string
	}

	// sqlCheck runs one catalog query per engine and assesses the rows it
	// returns. Every built-in check is an instance of it. Queries must scan
	// into (object text, metric float) pairs; checks without a meaningful
	// metric select 0.
	sqlCheck struct {
		def     Definition
		queries map[conn.Engine]string
		assess  assessFunc
	}
)

func (c *sqlCheck) Definition() Definition { return c.def }

// Execute runs the engine's query and assesses the findings. Failures of
// any kind become an error-status Result; nothing escapes to the caller.
func (c *sqlCheck) Execute(ctx context.Context, sess conn.Session, params map[string]any) Result {
	result := Result{
		CheckID:   c.def.ID,
		CheckName: c.def.Name,
		Category:  c.def.Category,
		Severity:  c.def.DefaultSeverity,
	}

	query, ok := c.queries[sess.Engine()]
	if !ok {
		result.Status = StatusError
		result.Message = fmt.Sprintf("check %s does not support engine %s", c.def.ID, sess.Engine())
		return result
	}

	findings, err := c.collect(ctx, sess, query)
	if err != nil {
		result.Status = StatusError
		result.Message = err.Error()
		return result
	}

	v := c.assess(findings, mergeParams(c.def.Parameters, params))
	result.Status = v.status
	result.Message = v.message
	result.Details = v.details
	if v.affected != nil {
		result.AffectedObjects = v.affected
	} else if v.status != StatusPassed {
		for _, f := range findings {
			result.AffectedObjects = append(result.AffectedObjects, f.object)
		}
	}
	return result
}

func (c *sqlCheck) collect(ctx context.Context, sess conn.Session, query string) ([]finding, error) {
	rows, err := sess.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var findings []finding
	for rows.Next() {
		var (
			object string
			metric sql.NullFloat64
		)
		if err := rows.Scan(&object, &metric); err != nil {
			return nil, err
		}
		findings = append(findings, finding{object: object, metric: metric.Float64})
	}
	return findings, rows.Err()
}

// mergeParams overlays caller parameters on the check's defaults.
func mergeParams(defaults, overrides map[string]any) map[string]any {
	merged := make(map[string]any, len(defaults)+len(overrides))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

// floatParam reads a numeric parameter, tolerating the int/float types YAML
// and JSON produce.
func floatParam(params map[string]any, key string, fallback float64) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return fallback
	}
}

// failWhenAny is the common verdict shape: any finding fails the check with
// the definition's severity escalated to the given status.
func failWhenAny(status Status, failMsg, passMsg string) assessFunc {
	return func(findings []finding, _ map[string]any) verdict {
		if len(findings) == 0 {
			return verdict{status: StatusPassed, message: passMsg}
		}
		return verdict{
			status:  status,
			message: fmt.Sprintf("%s (%d affected)", failMsg, len(findings)),
			details: map[string]any{"count": len(findings)},
		}
	}
}

// failAboveThreshold fails when any finding's metric exceeds the parameter.
func failAboveThreshold(status Status, paramKey string, fallback float64, failMsg, passMsg string) assessFunc {
	return func(findings []finding, params map[string]any) verdict {
		threshold := floatParam(params, paramKey, fallback)

		var over []string
		for _, f := range findings {
			if f.metric > threshold {
				over = append(over, f.object)
			}
		}
		if len(over) == 0 {
			return verdict{status: StatusPassed, message: passMsg}
		}
		return verdict{
			status:   status,
			message:  fmt.Sprintf("%s (%d over threshold %.0f)", failMsg, len(over), threshold),
			details:  map[string]any{"count": len(over), "threshold": threshold},
			affected: over,
		}
	}
}
