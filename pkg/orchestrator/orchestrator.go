package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/dbwarden/warden/pkg/checks"
	"github.com/dbwarden/warden/pkg/conn"
)

const (
	defaultMaxConcurrent = 4
	defaultCheckTimeout  = 120
)

type (
	// Config controls one orchestrator instance.
	Config struct {
		TenantID            string   `yaml:"tenant_id"`
		MaxConcurrentChecks int      `yaml:"max_concurrent_checks"`
		CheckTimeoutSeconds int      `yaml:"check_timeout_seconds"`
		ExcludedChecks      []string `yaml:"excluded_checks"`
		AlertOnCritical     bool     `yaml:"alert_on_critical"`
		AlertOnFailure      bool     `yaml:"alert_on_failure"`
		AlertWebhookURL     string   `yaml:"alert_webhook_url"`
	}

	// Snapshotter captures a schema snapshot for a connection and returns
	// its id. Deployment before-phase runs use it.
	Snapshotter interface {
		Snapshot(ctx context.Context, connectionID string) (string, error)
	}

	// Orchestrator runs selected checks against a connection with bounded
	// parallelism and per-check timeouts, keeping an in-memory index of
	// executions and the latest health per connection.
	Orchestrator struct {
		log      *zap.Logger
		cfg      Config
		registry *checks.Registry
		provider conn.Provider
		snaps    Snapshotter
		health   *HealthCache
		notifier *Notifier

		mu         sync.Mutex
		executions map[string]*Execution
	}
)

func (c Config) maxConcurrent() int64 {
	if c.MaxConcurrentChecks > 0 {
		return int64(c.MaxConcurrentChecks)
	}
	return defaultMaxConcurrent
}

func (c Config) checkTimeout() time.Duration {
	secs := c.CheckTimeoutSeconds
	if secs <= 0 {
		secs = defaultCheckTimeout
	}
	return time.Duration(secs) * time.Second
}

// New builds an orchestrator. snaps may be nil, in which case deployment
// before-phase runs skip the schema snapshot.
func New(cfg Config, registry *checks.Registry, provider conn.Provider, snaps Snapshotter, log *zap.Logger) *Orchestrator {
	o := &Orchestrator{
		log:        log,
		cfg:        cfg,
		registry:   registry,
		provider:   provider,
		snaps:      snaps,
		health:     NewHealthCache(),
		executions: make(map[string]*Execution),
	}
	if cfg.AlertWebhookURL != "" {
		o.notifier = NewNotifier(cfg.AlertWebhookURL, log)
	}
	return o
}

// Health exposes the cached per-connection roll-ups.
func (o *Orchestrator) Health() *HealthCache { return o.health }

// Execution returns a completed or running execution by id.
func (o *Orchestrator) Execution(id string) (*Execution, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	e, ok := o.executions[id]
	return e, ok
}

// RunChecks resolves the selection and runs it against the connection as a
// single execution. The call blocks until every check has completed or
// timed out.
func (o *Orchestrator) RunChecks(ctx context.Context, connectionID string, sel Selection, trigger Trigger) (*Execution, error) {
	return o.run(ctx, connectionID, sel, trigger, false)
}

func (o *Orchestrator) run(ctx context.Context, connectionID string, sel Selection, trigger Trigger, withSnapshot bool) (*Execution, error) {
	selected := o.resolve(sel)
	if len(selected) == 0 {
		return nil, errors.Errorf("selection matched no checks for connection %s", connectionID)
	}

	exec := &Execution{
		ID:            uuid.NewString(),
		TenantID:      o.cfg.TenantID,
		ConnectionID:  connectionID,
		TriggerType:   trigger.Type,
		TriggerSource: trigger.Source,
		Status:        checks.StatusPassed,
		StartedAt:     time.Now().UTC(),
	}

	o.mu.Lock()
	o.executions[exec.ID] = exec
	o.mu.Unlock()

	o.log.Info("check execution started",
		zap.String("execution_id", exec.ID),
		zap.String("connection_id", connectionID),
		zap.String("trigger", string(trigger.Type)),
		zap.Int("checks", len(selected)))

	if withSnapshot {
		if o.snaps == nil {
			o.log.Warn("snapshot requested but no snapshotter configured",
				zap.String("execution_id", exec.ID))
		} else if id, err := o.snaps.Snapshot(ctx, connectionID); err != nil {
			o.log.Warn("before snapshot failed",
				zap.String("execution_id", exec.ID), zap.Error(err))
		} else {
			exec.BeforeSnapshotID = id
		}
	}

	results := o.runBounded(ctx, connectionID, selected)

	sort.Slice(results, func(i, j int) bool { return results[i].CheckID < results[j].CheckID })

	now := time.Now().UTC()
	o.mu.Lock()
	exec.Results = results
	exec.Status = aggregateStatus(results)
	exec.CompletedAt = &now
	o.mu.Unlock()

	health := o.health.Update(exec)

	o.log.Info("check execution completed",
		zap.String("execution_id", exec.ID),
		zap.String("status", string(exec.Status)),
		zap.Int("passed", exec.PassedCount()),
		zap.Int("failed", exec.FailedCount()),
		zap.Int64("duration_ms", exec.DurationMS()))

	if o.shouldAlert(exec) {
		// Fire and forget; delivery failures never affect the execution.
		go func() { _ = o.notifier.Notify(exec, health) }()
	}
	return exec, nil
}

// resolve unions explicit ids, the category filter, and the framework
// filter, then removes excluded checks. An empty selection selects every
// enabled check.
func (o *Orchestrator) resolve(sel Selection) []checks.Check {
	byID := make(map[string]checks.Check)

	for _, id := range sel.CheckIDs {
		if c, ok := o.registry.Get(id); ok {
			byID[id] = c
		} else {
			o.log.Warn("selection references unknown check", zap.String("check_id", id))
		}
	}
	if sel.Category != "" {
		for _, def := range o.registry.List(checks.Filter{Category: sel.Category}) {
			if c, ok := o.registry.Get(def.ID); ok {
				byID[def.ID] = c
			}
		}
	}
	if sel.Framework != "" {
		for _, c := range o.registry.ForFramework(sel.Framework) {
			byID[c.Definition().ID] = c
		}
	}
	if len(sel.CheckIDs) == 0 && sel.Category == "" && sel.Framework == "" {
		for _, def := range o.registry.List(checks.Filter{}) {
			if c, ok := o.registry.Get(def.ID); ok {
				byID[def.ID] = c
			}
		}
	}

	for _, id := range o.cfg.ExcludedChecks {
		delete(byID, id)
	}

	out := make([]checks.Check, 0, len(byID))
	for _, c := range byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Definition().ID < out[j].Definition().ID
	})
	return out
}

// runBounded runs the checks with at most maxConcurrent in flight. Each
// check gets its own session; sessions are never shared across goroutines.
func (o *Orchestrator) runBounded(ctx context.Context, connectionID string, selected []checks.Check) []checks.Result {
	var (
		sem     = semaphore.NewWeighted(o.cfg.maxConcurrent())
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []checks.Result
	)

	for _, c := range selected {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context cancelled while waiting; report the remainder as
			// errors rather than dropping them silently.
			def := c.Definition()
			mu.Lock()
			results = append(results, erroredResult(def, "cancelled before start"))
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(c checks.Check) {
			defer wg.Done()
			defer sem.Release(1)

			r, ok := o.runOne(ctx, connectionID, c)
			if !ok {
				return
			}
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		}(c)
	}

	wg.Wait()
	return results
}

// runOne executes a single check under the configured timeout. The second
// return is false when the check was skipped (engine not supported).
func (o *Orchestrator) runOne(ctx context.Context, connectionID string, c checks.Check) (checks.Result, bool) {
	def := c.Definition()

	sess, err := o.provider.Acquire(ctx, connectionID)
	if err != nil {
		return erroredResult(def, fmt.Sprintf("acquiring session: %v", err)), true
	}
	defer func() { _ = sess.Close() }()

	if len(def.Engines) > 0 && !def.SupportsEngine(sess.Engine()) {
		o.log.Debug("skipping check for unsupported engine",
			zap.String("check_id", def.ID),
			zap.String("engine", string(sess.Engine())))
		return checks.Result{}, false
	}

	timeout := o.cfg.checkTimeout()
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	done := make(chan checks.Result, 1)
	go func() { done <- c.Execute(cctx, sess, def.Parameters) }()

	select {
	case r := <-done:
		r.DurationMS = time.Since(start).Milliseconds()
		return r, true
	case <-cctx.Done():
		// The runaway goroutine keeps the buffered channel; its session
		// operations fail once the context expires.
		r := erroredResult(def, fmt.Sprintf("timeout after %ds", int(timeout.Seconds())))
		r.DurationMS = time.Since(start).Milliseconds()
		o.log.Warn("check timed out",
			zap.String("check_id", def.ID),
			zap.Duration("timeout", timeout))
		return r, true
	}
}

func erroredResult(def checks.Definition, msg string) checks.Result {
	return checks.Result{
		CheckID:   def.ID,
		CheckName: def.Name,
		Category:  def.Category,
		Severity:  def.DefaultSeverity,
		Status:    checks.StatusError,
		Message:   msg,
	}
}

func (o *Orchestrator) shouldAlert(exec *Execution) bool {
	if o.notifier == nil {
		return false
	}
	if o.cfg.AlertOnCritical {
		for _, r := range exec.Results {
			if r.Status == checks.StatusCritical {
				return true
			}
		}
	}
	if o.cfg.AlertOnFailure {
		switch exec.Status {
		case checks.StatusFailed, checks.StatusCritical, checks.StatusError:
			return true
		}
	}
	return false
}
