package orchestrator

import (
	"sync"
	"time"

	"github.com/dbwarden/warden/pkg/checks"
)

// HealthStatus is the coarse roll-up for one connection.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthCritical HealthStatus = "critical"
)

type (
	// Health is the cached roll-up of the latest execution against a
	// connection. Scores are the passed ratio per category on a 0-100
	// scale; a category with no results scores 100.
	Health struct {
		ConnectionID     string       `json:"connection_id"`
		OverallStatus    HealthStatus `json:"overall_status"`
		LastCheck        time.Time    `json:"last_check"`
		ChecksPassed     int          `json:"checks_passed"`
		ChecksFailed     int          `json:"checks_failed"`
		ChecksWarning    int          `json:"checks_warning"`
		PerformanceScore float64      `json:"performance_score"`
		SecurityScore    float64      `json:"security_score"`
		ComplianceScore  float64      `json:"compliance_score"`
		CriticalIssues   int          `json:"critical_issues"`
	}

	// HealthCache keeps the latest Health per connection.
	HealthCache struct {
		mu     sync.RWMutex
		byConn map[string]*Health
	}
)

// NewHealthCache returns an empty cache.
func NewHealthCache() *HealthCache {
	return &HealthCache{byConn: make(map[string]*Health)}
}

// Update recomputes the health for the execution's connection and caches
// it, returning the new value.
func (c *HealthCache) Update(exec *Execution) *Health {
	h := healthFor(exec)

	c.mu.Lock()
	c.byConn[exec.ConnectionID] = h
	c.mu.Unlock()
	return h
}

// Get returns the cached health for a connection, if any. The returned
// value is a copy.
func (c *HealthCache) Get(connectionID string) (Health, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	h, ok := c.byConn[connectionID]
	if !ok {
		return Health{}, false
	}
	return *h, true
}

func healthFor(exec *Execution) *Health {
	h := &Health{
		ConnectionID:  exec.ConnectionID,
		LastCheck:     exec.StartedAt,
		ChecksPassed:  exec.PassedCount(),
		ChecksFailed:  exec.FailedCount(),
		ChecksWarning: exec.WarningCount(),
	}

	var (
		passed = map[checks.Category]int{}
		total  = map[checks.Category]int{}
		failed bool
	)
	for _, r := range exec.Results {
		total[r.Category]++
		switch r.Status {
		case checks.StatusPassed:
			passed[r.Category]++
		case checks.StatusCritical:
			h.CriticalIssues++
			failed = true
		case checks.StatusFailed, checks.StatusError:
			failed = true
		}
	}

	h.PerformanceScore = score(passed, total, checks.CategoryPerformance)
	h.SecurityScore = score(passed, total, checks.CategorySecurity)
	h.ComplianceScore = score(passed, total, checks.CategoryCompliance)

	switch {
	case h.CriticalIssues > 0 || h.SecurityScore < 40:
		h.OverallStatus = HealthCritical
	case failed || minScore(h) < 70:
		h.OverallStatus = HealthDegraded
	default:
		h.OverallStatus = HealthHealthy
	}
	return h
}

func score(passed, total map[checks.Category]int, cat checks.Category) float64 {
	if total[cat] == 0 {
		return 100
	}
	return float64(passed[cat]) / float64(total[cat]) * 100
}

func minScore(h *Health) float64 {
	min := h.PerformanceScore
	for _, s := range []float64{h.SecurityScore, h.ComplianceScore} {
		if s < min {
			min = s
		}
	}
	return min
}
