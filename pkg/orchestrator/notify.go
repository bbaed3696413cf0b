package orchestrator

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type (
	// Alert is the webhook payload describing a finished execution.
	Alert struct {
		ExecutionID   string       `json:"execution_id"`
		ConnectionID  string       `json:"connection_id"`
		TenantID      string       `json:"tenant_id"`
		Status        string       `json:"status"`
		CriticalCount int          `json:"critical_count"`
		FailedCount   int          `json:"failed_count"`
		Timestamp     time.Time    `json:"timestamp"`
		OverallHealth HealthStatus `json:"overall_health,omitempty"`
		ChecksPassed  int          `json:"checks_passed"`
		ChecksWarning int          `json:"checks_warning"`
	}

	// Notifier posts alerts to a webhook behind a circuit breaker. Delivery
	// is best effort: failures are logged, never retried, and an open
	// breaker drops alerts outright.
	Notifier struct {
		log     *zap.Logger
		url     string
		client  *http.Client
		breaker *gobreaker.CircuitBreaker
	}
)

// NewNotifier builds a notifier for the webhook URL.
func NewNotifier(url string, log *zap.Logger) *Notifier {
	return &Notifier{
		log:    log,
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "alert-webhook",
			Timeout: time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

// Notify posts the alert for a finished execution. Errors are logged and
// returned for observability; callers typically ignore them.
func (n *Notifier) Notify(exec *Execution, health *Health) error {
	alert := Alert{
		ExecutionID:   exec.ID,
		ConnectionID:  exec.ConnectionID,
		TenantID:      exec.TenantID,
		Status:        string(exec.Status),
		CriticalCount: exec.CriticalCount(),
		FailedCount:   exec.FailedCount(),
		Timestamp:     time.Now().UTC(),
		ChecksPassed:  exec.PassedCount(),
		ChecksWarning: exec.WarningCount(),
	}
	if exec.CompletedAt != nil {
		alert.Timestamp = *exec.CompletedAt
	}
	if health != nil {
		alert.OverallHealth = health.OverallStatus
	}

	body, err := json.Marshal(alert)
	if err != nil {
		return errors.Wrap(err, "encoding alert")
	}

	_, err = n.breaker.Execute(func() (any, error) {
		resp, err := n.client.Post(n.url, "application/json", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode >= 300 {
			return nil, errors.Errorf("webhook returned %s", resp.Status)
		}
		return nil, nil
	})
	if err != nil {
		n.log.Warn("alert webhook delivery failed",
			zap.String("execution_id", exec.ID),
			zap.Error(err))
		return errors.Wrap(err, "delivering alert")
	}

	n.log.Debug("alert delivered", zap.String("execution_id", exec.ID))
	return nil
}
