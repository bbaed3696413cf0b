package orchestrator_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dbwarden/warden/pkg/checks"
	"github.com/dbwarden/warden/pkg/conn"
	"github.com/dbwarden/warden/pkg/orchestrator"
)

// stubSession satisfies conn.Session without a database. The fake checks in
// this file never touch it.
type stubSession struct {
	engine conn.Engine
}

func (s *stubSession) Engine() conn.Engine { return s.engine }

func (s *stubSession) Query(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errors.New("stub session has no database")
}

func (s *stubSession) Exec(context.Context, string, ...any) error { return nil }
func (s *stubSession) Begin(context.Context) error                { return nil }
func (s *stubSession) Commit() error                              { return nil }
func (s *stubSession) Rollback() error                            { return nil }
func (s *stubSession) Close() error                               { return nil }

type stubProvider struct {
	engine conn.Engine
}

func (p *stubProvider) Acquire(context.Context, string) (conn.Session, error) {
	return &stubSession{engine: p.engine}, nil
}

// staticCheck returns a fixed result.
type staticCheck struct {
	def    checks.Definition
	status checks.Status
}

func (c *staticCheck) Definition() checks.Definition { return c.def }

func (c *staticCheck) Execute(context.Context, conn.Session, map[string]any) checks.Result {
	return checks.Result{
		CheckID:   c.def.ID,
		CheckName: c.def.Name,
		Category:  c.def.Category,
		Severity:  c.def.DefaultSeverity,
		Status:    c.status,
		Message:   string(c.status),
	}
}

// blockingCheck waits for its context to expire, then reports passed. It
// simulates a runaway query.
type blockingCheck struct {
	def checks.Definition
}

func (c *blockingCheck) Definition() checks.Definition { return c.def }

func (c *blockingCheck) Execute(ctx context.Context, _ conn.Session, _ map[string]any) checks.Result {
	<-ctx.Done()
	return checks.Result{CheckID: c.def.ID, Status: checks.StatusPassed}
}

func def(id string, category checks.Category) checks.Definition {
	return checks.Definition{
		ID:       id,
		Name:     id,
		Category: category,
		Engines:  []conn.Engine{conn.EnginePostgres, conn.EngineSQLServer},
		Enabled:  true,
	}
}

func registryWith(t *testing.T, cs ...checks.Check) *checks.Registry {
	t.Helper()

	r := checks.NewRegistry()
	for _, c := range cs {
		require.NoError(t, r.Register(c))
	}
	return r
}

func newOrchestrator(t *testing.T, cfg orchestrator.Config, cs ...checks.Check) *orchestrator.Orchestrator {
	t.Helper()

	if cfg.TenantID == "" {
		cfg.TenantID = "acme"
	}
	return orchestrator.New(cfg, registryWith(t, cs...), &stubProvider{engine: conn.EnginePostgres}, nil, zap.NewNop())
}

func TestRunChecksSortsAndAggregates(t *testing.T) {
	o := newOrchestrator(t, orchestrator.Config{},
		&staticCheck{def: def("b-check", checks.CategoryPerformance), status: checks.StatusWarning},
		&staticCheck{def: def("a-check", checks.CategorySecurity), status: checks.StatusPassed},
		&staticCheck{def: def("c-check", checks.CategoryPerformance), status: checks.StatusPassed},
	)

	exec, err := o.RunChecks(context.Background(), "prod", orchestrator.Selection{}, orchestrator.Trigger{Type: orchestrator.TriggerOnDemand})
	require.NoError(t, err)

	require.Equal(t, checks.StatusWarning, exec.Status)
	require.NotNil(t, exec.CompletedAt)
	require.Len(t, exec.Results, 3)
	require.Equal(t, "a-check", exec.Results[0].CheckID)
	require.Equal(t, "b-check", exec.Results[1].CheckID)
	require.Equal(t, "c-check", exec.Results[2].CheckID)
	require.Equal(t, 2, exec.PassedCount())
	require.Equal(t, 1, exec.WarningCount())

	// The execution is indexed and retrievable.
	got, ok := o.Execution(exec.ID)
	require.True(t, ok)
	require.Equal(t, exec.ID, got.ID)
}

func TestAggregationPrecedence(t *testing.T) {
	cases := []struct {
		name     string
		statuses []checks.Status
		want     checks.Status
	}{
		{"all passed", []checks.Status{checks.StatusPassed, checks.StatusPassed}, checks.StatusPassed},
		{"warning beats passed", []checks.Status{checks.StatusPassed, checks.StatusWarning}, checks.StatusWarning},
		{"failed beats warning", []checks.Status{checks.StatusWarning, checks.StatusFailed}, checks.StatusFailed},
		{"critical beats failed", []checks.Status{checks.StatusFailed, checks.StatusCritical}, checks.StatusCritical},
		{"error beats everything", []checks.Status{checks.StatusCritical, checks.StatusError}, checks.StatusError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cs := make([]checks.Check, len(tc.statuses))
			for i, s := range tc.statuses {
				cs[i] = &staticCheck{def: def(string(rune('a'+i))+"-check", checks.CategoryPerformance), status: s}
			}

			o := newOrchestrator(t, orchestrator.Config{}, cs...)
			exec, err := o.RunChecks(context.Background(), "prod", orchestrator.Selection{}, orchestrator.Trigger{Type: orchestrator.TriggerOnDemand})
			require.NoError(t, err)
			require.Equal(t, tc.want, exec.Status)
		})
	}
}

// A runaway check must not block the execution past its timeout.
func TestCheckTimeoutProducesSyntheticError(t *testing.T) {
	o := newOrchestrator(t, orchestrator.Config{MaxConcurrentChecks: 2, CheckTimeoutSeconds: 1},
		&staticCheck{def: def("a-fast", checks.CategoryPerformance), status: checks.StatusPassed},
		&blockingCheck{def: def("b-slow", checks.CategoryPerformance)},
	)

	start := time.Now()
	exec, err := o.RunChecks(context.Background(), "prod", orchestrator.Selection{}, orchestrator.Trigger{Type: orchestrator.TriggerOnDemand})
	require.NoError(t, err)
	require.Less(t, time.Since(start), 5*time.Second)

	require.Equal(t, checks.StatusError, exec.Status)
	require.Len(t, exec.Results, 2)
	require.Equal(t, checks.StatusPassed, exec.Results[0].Status)
	require.Equal(t, checks.StatusError, exec.Results[1].Status)
	require.Contains(t, exec.Results[1].Message, "timeout after 1s")

	// Health reflects the finished execution despite the timeout.
	_, ok := o.Health().Get("prod")
	require.True(t, ok)
}

func TestExcludedChecksAreSkipped(t *testing.T) {
	o := newOrchestrator(t, orchestrator.Config{ExcludedChecks: []string{"b-check"}},
		&staticCheck{def: def("a-check", checks.CategoryPerformance), status: checks.StatusPassed},
		&staticCheck{def: def("b-check", checks.CategoryPerformance), status: checks.StatusFailed},
	)

	exec, err := o.RunChecks(context.Background(), "prod", orchestrator.Selection{}, orchestrator.Trigger{Type: orchestrator.TriggerOnDemand})
	require.NoError(t, err)
	require.Len(t, exec.Results, 1)
	require.Equal(t, "a-check", exec.Results[0].CheckID)
	require.Equal(t, checks.StatusPassed, exec.Status)
}

func TestSelectionUnionsFilters(t *testing.T) {
	sec := def("sec-check", checks.CategorySecurity)
	sec.Frameworks = []string{"SOC2"}

	o := newOrchestrator(t, orchestrator.Config{},
		&staticCheck{def: def("perf-check", checks.CategoryPerformance), status: checks.StatusPassed},
		&staticCheck{def: sec, status: checks.StatusPassed},
		&staticCheck{def: def("conf-check", checks.CategoryConfiguration), status: checks.StatusPassed},
	)

	exec, err := o.RunChecks(context.Background(), "prod", orchestrator.Selection{
		CheckIDs:  []string{"conf-check"},
		Framework: "SOC2",
	}, orchestrator.Trigger{Type: orchestrator.TriggerOnDemand})
	require.NoError(t, err)
	require.Len(t, exec.Results, 2)
	require.Equal(t, "conf-check", exec.Results[0].CheckID)
	require.Equal(t, "sec-check", exec.Results[1].CheckID)
}

func TestSelectionMatchingNothingErrors(t *testing.T) {
	o := newOrchestrator(t, orchestrator.Config{},
		&staticCheck{def: def("a-check", checks.CategoryPerformance), status: checks.StatusPassed},
	)

	_, err := o.RunChecks(context.Background(), "prod", orchestrator.Selection{
		CheckIDs: []string{"ghost"},
	}, orchestrator.Trigger{Type: orchestrator.TriggerOnDemand})
	require.Error(t, err)
}

func TestUnsupportedEngineChecksAreSkipped(t *testing.T) {
	mssqlOnly := def("mssql-check", checks.CategorySecurity)
	mssqlOnly.Engines = []conn.Engine{conn.EngineSQLServer}

	o := newOrchestrator(t, orchestrator.Config{},
		&staticCheck{def: def("a-check", checks.CategoryPerformance), status: checks.StatusPassed},
		&staticCheck{def: mssqlOnly, status: checks.StatusFailed},
	)

	// Provider hands out postgres sessions, so the SQL Server check is
	// filtered out instead of erroring.
	exec, err := o.RunChecks(context.Background(), "prod", orchestrator.Selection{}, orchestrator.Trigger{Type: orchestrator.TriggerOnDemand})
	require.NoError(t, err)
	require.Len(t, exec.Results, 1)
	require.Equal(t, "a-check", exec.Results[0].CheckID)
}

func TestAlertWebhookFires(t *testing.T) {
	received := make(chan map[string]any, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		received <- payload
	}))
	defer srv.Close()

	o := newOrchestrator(t, orchestrator.Config{
		AlertOnFailure:  true,
		AlertWebhookURL: srv.URL,
	},
		&staticCheck{def: def("a-check", checks.CategoryPerformance), status: checks.StatusFailed},
		&staticCheck{def: def("b-check", checks.CategorySecurity), status: checks.StatusCritical},
	)

	exec, err := o.RunChecks(context.Background(), "prod", orchestrator.Selection{}, orchestrator.Trigger{Type: orchestrator.TriggerOnDemand})
	require.NoError(t, err)

	select {
	case payload := <-received:
		require.Equal(t, exec.ID, payload["execution_id"])
		require.Equal(t, "prod", payload["connection_id"])
		require.Equal(t, "acme", payload["tenant_id"])
		require.Equal(t, "critical", payload["status"])
		require.Equal(t, float64(1), payload["critical_count"])
		require.Equal(t, float64(2), payload["failed_count"])
		ts, err := time.Parse(time.RFC3339Nano, payload["timestamp"].(string))
		require.NoError(t, err)
		require.False(t, ts.IsZero())
	case <-time.After(3 * time.Second):
		t.Fatal("webhook was not called")
	}
}

func TestNoAlertWhenAllPassed(t *testing.T) {
	called := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called <- struct{}{}
	}))
	defer srv.Close()

	o := newOrchestrator(t, orchestrator.Config{
		AlertOnFailure:  true,
		AlertOnCritical: true,
		AlertWebhookURL: srv.URL,
	}, &staticCheck{def: def("a-check", checks.CategoryPerformance), status: checks.StatusPassed})

	_, err := o.RunChecks(context.Background(), "prod", orchestrator.Selection{}, orchestrator.Trigger{Type: orchestrator.TriggerOnDemand})
	require.NoError(t, err)

	select {
	case <-called:
		t.Fatal("webhook should not have been called")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestNotifierBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := orchestrator.NewNotifier(srv.URL, zap.NewNop())
	now := time.Now().UTC()
	exec := &orchestrator.Execution{ID: "e-1", Status: checks.StatusFailed, CompletedAt: &now}

	for i := 0; i < 5; i++ {
		err := n.Notify(exec, nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "webhook returned")
	}

	// Breaker is open now; the endpoint is no longer contacted.
	err := n.Notify(exec, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "circuit breaker is open")
}
