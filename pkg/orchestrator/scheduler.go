package orchestrator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// tickInterval is how often the scheduler polls its triggers.
const tickInterval = time.Minute

// RunFunc dispatches one check run. The scheduler calls it for each fired
// trigger.
type RunFunc func(ctx context.Context, connectionID string, sel Selection, trigger Trigger) (*Execution, error)

// Scheduler polls the trigger manager once a minute and dispatches due
// scheduled triggers. Dispatches run concurrently; a trigger whose previous
// run has not finished is skipped for that slot.
type Scheduler struct {
	log      *zap.Logger
	triggers *TriggerManager
	run      RunFunc

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewScheduler builds a scheduler over the manager. Start must be called to
// begin ticking.
func NewScheduler(triggers *TriggerManager, run RunFunc, log *zap.Logger) *Scheduler {
	return &Scheduler{
		log:      log,
		triggers: triggers,
		run:      run,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the tick loop. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		defer close(s.doneCh)

		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()

		for {
			select {
			case now := <-ticker.C:
				s.Tick(ctx, now.UTC())
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			}
		}
	}()
}

// Stop halts the tick loop. In-flight dispatches are not interrupted.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.doneCh
}

// Tick fires every scheduled trigger due at now. Exported so callers and
// tests can drive the scheduler with their own clock.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	for _, t := range s.triggers.due(now) {
		t := t
		go func() {
			defer s.triggers.finished(t)

			s.log.Info("scheduled trigger fired",
				zap.String("trigger", t.Name),
				zap.String("connection_id", t.ConnectionID))

			_, err := s.run(ctx, t.ConnectionID, Selection{CheckIDs: t.CheckIDs}, Trigger{
				Type:   TriggerScheduled,
				Source: t.Name,
			})
			if err != nil {
				s.log.Error("scheduled trigger dispatch failed",
					zap.String("trigger", t.Name),
					zap.Error(err))
			}
		}()
	}
}
