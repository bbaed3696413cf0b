package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Phase marks which side of a deployment a check run belongs to.
type Phase string

const (
	PhaseBefore Phase = "before"
	PhaseAfter  Phase = "after"
)

type (
	// OnDemandTrigger is a named, pre-configured check selection fired only
	// by explicit request.
	OnDemandTrigger struct {
		Name     string
		CheckIDs []string
	}

	// ScheduledTrigger fires its check set on a cron schedule against a
	// fixed connection.
	ScheduledTrigger struct {
		Name         string
		ConnectionID string
		Expression   string
		CheckIDs     []string

		schedule cron.Schedule
		nextRun  time.Time
		running  bool
	}

	// DeploymentTrigger fires around deployments.
	DeploymentTrigger struct {
		Name      string
		CheckIDs  []string
		RunBefore bool
		RunAfter  bool
	}

	// TriggerManager owns the in-memory trigger set. Triggers are rebuilt
	// from configuration at startup; there is no persistence.
	TriggerManager struct {
		log *zap.Logger

		mu          sync.Mutex
		onDemand    map[string]*OnDemandTrigger
		scheduled   map[string]*ScheduledTrigger
		deployments map[string]*DeploymentTrigger
	}
)

// NewTriggerManager returns an empty manager.
func NewTriggerManager(log *zap.Logger) *TriggerManager {
	return &TriggerManager{
		log:         log,
		onDemand:    make(map[string]*OnDemandTrigger),
		scheduled:   make(map[string]*ScheduledTrigger),
		deployments: make(map[string]*DeploymentTrigger),
	}
}

// AddOnDemand registers a named on-demand selection.
func (m *TriggerManager) AddOnDemand(name string, checkIDs []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDemand[name] = &OnDemandTrigger{Name: name, CheckIDs: checkIDs}
}

// ChecksToRun resolves a named on-demand trigger.
func (m *TriggerManager) ChecksToRun(name string) ([]string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.onDemand[name]
	if !ok {
		return nil, false
	}
	return t.CheckIDs, true
}

// AddScheduled registers a cron-driven trigger. The expression is parsed
// with the standard five-field cron syntax; the first run is the next slot
// after now.
func (m *TriggerManager) AddScheduled(name, connectionID, expression string, checkIDs []string, now time.Time) error {
	schedule, err := cron.ParseStandard(expression)
	if err != nil {
		return errors.Wrapf(err, "invalid cron expression %q for trigger %s", expression, name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.scheduled[name] = &ScheduledTrigger{
		Name:         name,
		ConnectionID: connectionID,
		Expression:   expression,
		CheckIDs:     checkIDs,
		schedule:     schedule,
		nextRun:      schedule.Next(now),
	}
	return nil
}

// AddDeployment registers a deployment trigger.
func (m *TriggerManager) AddDeployment(name string, checkIDs []string, runBefore, runAfter bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deployments[name] = &DeploymentTrigger{
		Name:      name,
		CheckIDs:  checkIDs,
		RunBefore: runBefore,
		RunAfter:  runAfter,
	}
}

// DeploymentCheckIDs unions the check ids of every deployment trigger that
// participates in the given phase, sorted for determinism.
func (m *TriggerManager) DeploymentCheckIDs(phase Phase) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	set := make(map[string]struct{})
	for _, t := range m.deployments {
		if (phase == PhaseBefore && t.RunBefore) || (phase == PhaseAfter && t.RunAfter) {
			for _, id := range t.CheckIDs {
				set[id] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// due returns the scheduled triggers whose next run is at or before now,
// marking each as running and advancing its next slot. Triggers whose
// previous dispatch is still in flight are skipped. A trigger fires at most
// once per call regardless of how many slots were missed.
func (m *TriggerManager) due(now time.Time) []*ScheduledTrigger {
	m.mu.Lock()
	defer m.mu.Unlock()

	var fired []*ScheduledTrigger
	for _, t := range m.scheduled {
		if now.Before(t.nextRun) {
			continue
		}
		if t.running {
			m.log.Warn("scheduled trigger still running, skipping dispatch",
				zap.String("trigger", t.Name))
			t.nextRun = t.schedule.Next(now)
			continue
		}
		t.running = true
		t.nextRun = t.schedule.Next(now)
		fired = append(fired, t)
	}
	return fired
}

func (m *TriggerManager) finished(t *ScheduledTrigger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.running = false
}

// NextRun reports the next fire time for a scheduled trigger.
func (m *TriggerManager) NextRun(name string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.scheduled[name]
	if !ok {
		return time.Time{}, false
	}
	return t.nextRun, true
}

// RunDeploymentChecks runs the union of all deployment triggers matching
// the phase, tagged with "{deployment_id}:{phase}". Before-phase runs
// capture a schema snapshot first.
func (o *Orchestrator) RunDeploymentChecks(ctx context.Context, triggers *TriggerManager, connectionID, deploymentID string, phase Phase) (*Execution, error) {
	ids := triggers.DeploymentCheckIDs(phase)
	if len(ids) == 0 {
		return nil, errors.Errorf("no deployment triggers registered for phase %s", phase)
	}

	return o.run(ctx, connectionID, Selection{CheckIDs: ids}, Trigger{
		Type:   TriggerDeployment,
		Source: fmt.Sprintf("%s:%s", deploymentID, phase),
	}, phase == PhaseBefore)
}
