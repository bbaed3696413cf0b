package cmd

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/dbwarden/warden/pkg/audit"
	"github.com/dbwarden/warden/pkg/checks"
	"github.com/dbwarden/warden/pkg/config"
	"github.com/dbwarden/warden/pkg/conn"
	"github.com/dbwarden/warden/pkg/extract"
	"github.com/dbwarden/warden/pkg/orchestrator"
	"github.com/dbwarden/warden/pkg/schema"
)

// connRegistry builds the connection registry from config.
func connRegistry(cfg *config.Config) *conn.Registry {
	return conn.NewRegistry(rootLogger, cfg.Credentials(), cfg.ConnConfigs()...)
}

// extractorFor resolves the engine for a connection id and builds its
// extractor.
func extractorFor(cfg *config.Config, registry *conn.Registry, connectionID string) (extract.Extractor, error) {
	cc, ok := registry.Lookup(connectionID)
	if !ok {
		return nil, errors.Wrap(conn.ErrUnknownConnection, connectionID)
	}
	return extract.New(cc.Engine, registry, connectionID, rootLogger)
}

// snapshotStore returns the file-backed snapshot store.
func snapshotStore(cfg *config.Config) *schema.Store {
	return schema.NewStore(cfg.SnapshotDir)
}

// liveSnapshotter adapts extraction to the orchestrator's Snapshotter.
type liveSnapshotter struct {
	cfg      *config.Config
	registry *conn.Registry
}

func (s *liveSnapshotter) Snapshot(ctx context.Context, connectionID string) (string, error) {
	ex, err := extractorFor(s.cfg, s.registry, connectionID)
	if err != nil {
		return "", err
	}

	snap, err := extract.CreateSnapshot(ctx, ex, extract.SnapshotParams{
		TenantID: s.cfg.TenantID,
		Label:    "deployment-before",
	})
	if err != nil {
		return "", err
	}

	if _, err := snapshotStore(s.cfg).Save(snap); err != nil {
		return "", err
	}
	return snap.ID, nil
}

// buildOrchestrator wires the orchestrator with the builtin check registry
// and configured triggers.
func buildOrchestrator(cfg *config.Config, registry *conn.Registry) (*orchestrator.Orchestrator, *orchestrator.TriggerManager, error) {
	o := orchestrator.New(cfg.Orchestrator, checks.Builtin(), registry,
		&liveSnapshotter{cfg: cfg, registry: registry}, rootLogger)

	triggers := orchestrator.NewTriggerManager(rootLogger)
	for _, d := range cfg.Deployments {
		triggers.AddDeployment(d.Name, d.Checks, d.RunBefore, d.RunAfter)
	}
	return o, triggers, nil
}

// buildAudit wires the audit log. With a store_connection_id it persists to
// that Postgres database; otherwise entries live in memory for the process
// lifetime.
func buildAudit(ctx context.Context, cfg *config.Config) (*audit.Log, audit.Store, error) {
	store, err := auditStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return audit.NewLog(store, rootLogger, cfg.Audit), store, nil
}

func auditStore(ctx context.Context, cfg *config.Config) (audit.Store, error) {
	id := cfg.Audit.StoreConnectionID
	if id == "" {
		return audit.NewMemoryStore(), nil
	}

	var target *config.Connection
	for i := range cfg.Connections {
		if cfg.Connections[i].ID == id {
			target = &cfg.Connections[i]
			break
		}
	}
	if target == nil {
		return nil, errors.Errorf("audit store_connection_id %q is not a configured connection", id)
	}

	engine, _ := conn.ParseEngine(target.Engine)
	if engine != conn.EnginePostgres {
		return nil, errors.Errorf("audit store connection %q must be postgres, got %s", id, target.Engine)
	}

	db, err := sqlx.Open("pgx", target.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "opening audit store %s", id)
	}

	store := audit.NewPGStore(db)
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// recordAudit emits one CLI audit event, best effort.
func recordAudit(ctx context.Context, log *audit.Log, tenantID, action, resourceType, resourceID string, success bool, details map[string]any) {
	if log == nil {
		return
	}

	_, err := log.Record(ctx, audit.Event{
		TenantID:     tenantID,
		Action:       action,
		Severity:     audit.SeverityInfo,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Success:      success,
		Details:      details,
	})
	if err != nil {
		rootLogger.Warn("audit record failed")
	}
}
