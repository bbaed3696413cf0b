package orchestrator_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dbwarden/warden/pkg/checks"
	"github.com/dbwarden/warden/pkg/conn"
	"github.com/dbwarden/warden/pkg/orchestrator"
)

// recordingRunner captures dispatches from the scheduler.
type recordingRunner struct {
	mu    sync.Mutex
	runs  []orchestrator.Trigger
	block chan struct{}
}

func (r *recordingRunner) run(_ context.Context, _ string, _ orchestrator.Selection, trigger orchestrator.Trigger) (*orchestrator.Execution, error) {
	r.mu.Lock()
	r.runs = append(r.runs, trigger)
	r.mu.Unlock()

	if r.block != nil {
		<-r.block
	}
	return &orchestrator.Execution{}, nil
}

func (r *recordingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}

func TestScheduledTriggerInvalidCron(t *testing.T) {
	m := orchestrator.NewTriggerManager(zap.NewNop())
	err := m.AddScheduled("bad", "prod", "not a cron", nil, time.Now())
	require.Error(t, err)
}

// A trigger whose slot has passed fires on the next tick, and missed slots
// collapse into a single dispatch.
func TestScheduledTriggerFiresOnceForMissedSlots(t *testing.T) {
	base := time.Date(2026, 6, 1, 0, 30, 0, 0, time.UTC)

	m := orchestrator.NewTriggerManager(zap.NewNop())
	// Top of every hour.
	require.NoError(t, m.AddScheduled("hourly", "prod", "0 * * * *", []string{"a-check"}, base))

	runner := &recordingRunner{}
	s := orchestrator.NewScheduler(m, runner.run, zap.NewNop())

	// Nothing due before the first slot.
	s.Tick(context.Background(), base.Add(10*time.Minute))
	require.Zero(t, runner.count())

	// Three slots were missed; exactly one dispatch happens.
	s.Tick(context.Background(), base.Add(3*time.Hour))
	require.Eventually(t, func() bool { return runner.count() == 1 },
		time.Second, 10*time.Millisecond)

	require.Equal(t, orchestrator.TriggerScheduled, runner.runs[0].Type)
	require.Equal(t, "hourly", runner.runs[0].Source)

	// The next run is the slot after the tick time, not a missed one.
	next, ok := m.NextRun("hourly")
	require.True(t, ok)
	require.Equal(t, time.Date(2026, 6, 1, 4, 0, 0, 0, time.UTC), next)

	// Ticking again at the same time does not refire.
	s.Tick(context.Background(), base.Add(3*time.Hour))
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, runner.count())
}

func TestScheduledTriggerSkipsOverlappingRuns(t *testing.T) {
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	m := orchestrator.NewTriggerManager(zap.NewNop())
	require.NoError(t, m.AddScheduled("everyminute", "prod", "* * * * *", []string{"a-check"}, base))

	runner := &recordingRunner{block: make(chan struct{})}
	s := orchestrator.NewScheduler(m, runner.run, zap.NewNop())

	s.Tick(context.Background(), base.Add(time.Minute))
	require.Eventually(t, func() bool { return runner.count() == 1 },
		time.Second, 10*time.Millisecond)

	// The first dispatch is still blocked; the next slot is skipped.
	s.Tick(context.Background(), base.Add(2*time.Minute))
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, runner.count())

	// Once it finishes, a later slot fires again.
	close(runner.block)
	minute := 2
	require.Eventually(t, func() bool {
		minute++
		s.Tick(context.Background(), base.Add(time.Duration(minute)*time.Minute))
		return runner.count() == 2
	}, 2*time.Second, 20*time.Millisecond)
}

func TestOnDemandTriggerResolution(t *testing.T) {
	m := orchestrator.NewTriggerManager(zap.NewNop())
	m.AddOnDemand("nightly-audit", []string{"a-check", "b-check"})

	ids, ok := m.ChecksToRun("nightly-audit")
	require.True(t, ok)
	require.Equal(t, []string{"a-check", "b-check"}, ids)

	_, ok = m.ChecksToRun("ghost")
	require.False(t, ok)
}

func TestDeploymentCheckIDsUnion(t *testing.T) {
	m := orchestrator.NewTriggerManager(zap.NewNop())
	m.AddDeployment("pre-flight", []string{"b-check", "a-check"}, true, false)
	m.AddDeployment("post-flight", []string{"c-check"}, false, true)
	m.AddDeployment("both", []string{"a-check", "c-check"}, true, true)

	require.Equal(t, []string{"a-check", "b-check", "c-check"}, m.DeploymentCheckIDs(orchestrator.PhaseBefore))
	require.Equal(t, []string{"a-check", "c-check"}, m.DeploymentCheckIDs(orchestrator.PhaseAfter))
}

// fakeSnapshotter records snapshot requests.
type fakeSnapshotter struct {
	mu    sync.Mutex
	calls []string
}

func (s *fakeSnapshotter) Snapshot(_ context.Context, connectionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, connectionID)
	return "snap-1", nil
}

func TestRunDeploymentChecks(t *testing.T) {
	snaps := &fakeSnapshotter{}
	o := orchestrator.New(orchestrator.Config{TenantID: "acme"},
		registryWith(t,
			&staticCheck{def: def("a-check", checks.CategoryPerformance), status: checks.StatusPassed},
			&staticCheck{def: def("b-check", checks.CategorySecurity), status: checks.StatusPassed},
		),
		&stubProvider{engine: conn.EnginePostgres}, snaps, zap.NewNop())

	m := orchestrator.NewTriggerManager(zap.NewNop())
	m.AddDeployment("pre-flight", []string{"a-check", "b-check"}, true, false)

	exec, err := o.RunDeploymentChecks(context.Background(), m, "prod", "deploy-42", orchestrator.PhaseBefore)
	require.NoError(t, err)

	require.Equal(t, orchestrator.TriggerDeployment, exec.TriggerType)
	require.Equal(t, "deploy-42:before", exec.TriggerSource)
	require.Equal(t, "snap-1", exec.BeforeSnapshotID)
	require.Equal(t, []string{"prod"}, snaps.calls)
	require.Len(t, exec.Results, 2)

	// The after phase has no matching triggers.
	_, err = o.RunDeploymentChecks(context.Background(), m, "prod", "deploy-42", orchestrator.PhaseAfter)
	require.Error(t, err)
}
