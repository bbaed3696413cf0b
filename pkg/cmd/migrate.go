package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"

	"github.com/dbwarden/warden/pkg/config"
	"github.com/dbwarden/warden/pkg/consts"
	"github.com/dbwarden/warden/pkg/diff"
	"github.com/dbwarden/warden/pkg/executor"
	"github.com/dbwarden/warden/pkg/extract"
	"github.com/dbwarden/warden/pkg/migrate"
)

// migrateCmd creates the `warden migrate` command with plan, apply,
// rollback, and status subcommands. Plans are stored as JSON files under
// the migrations directory next to the snapshot store.
func migrateCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:   "migrate",
		Usage:  "Plan and execute schema migrations",
		Before: requireConfig(cfg),
		Commands: []*cli.Command{
			migratePlan(cfg),
			migrateApply(cfg),
			migrateRollback(cfg),
			migrateStatus(cfg),
		},
	}
}

func migrationsDir(cfg *config.Config) string {
	return filepath.Join(filepath.Dir(cfg.SnapshotDir), "migrations")
}

func connectionFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "connection",
		Aliases:  []string{"c"},
		Usage:    "connection id",
		Required: true,
	}
}

func migratePlan(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "plan",
		Usage: "Generate a migration that moves the live schema to a snapshot",
		Flags: []cli.Flag{
			connectionFlag(),
			&cli.StringFlag{
				Name:     "name",
				Usage:    "migration name",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "to",
				Usage: "target snapshot id (defaults to the latest snapshot)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			connectionID := cmd.String("connection")
			registry := connRegistry(cfg)

			ex, err := extractorFor(cfg, registry, connectionID)
			if err != nil {
				return err
			}
			live, err := ex.Extract(ctx, extract.DefaultOptions())
			if err != nil {
				return err
			}

			store := snapshotStore(cfg)
			var target *diff.Diff
			if id := cmd.String("to"); id != "" {
				snap, err := store.Load(connectionID, id)
				if err != nil {
					return err
				}
				target = diff.Compute(live, snap.Schema)
			} else {
				snap, err := store.Latest(connectionID)
				if err != nil {
					return err
				}
				target = diff.Compute(live, snap.Schema)
			}

			if target.Empty() {
				fmt.Fprintln(cmd.Writer, "Schemas match; nothing to migrate")
				return nil
			}

			gen, err := migrate.NewGenerator(cfg.Dialect())
			if err != nil {
				return err
			}
			m, err := gen.Generate(target, cmd.String("name"))
			if err != nil {
				return err
			}

			path, err := writeMigration(cfg, m)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.Writer, "Migration %s planned (%d steps)\n", m.ID, len(m.Steps))
			fmt.Fprintf(cmd.Writer, "- File: %s\n", path)
			for _, bc := range m.BreakingChanges {
				fmt.Fprintf(cmd.Writer, "! %s: %s\n", bc.ObjectName, bc.Description)
			}
			return nil
		},
	}
}

func migrateApply(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "apply",
		Usage: "Execute a planned migration",
		Flags: []cli.Flag{
			connectionFlag(),
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "migration file produced by plan",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "preview the statements without executing",
			},
			&cli.BoolFlag{
				Name:  "per-step",
				Usage: "commit after each step instead of one transaction",
			},
			&cli.BoolFlag{
				Name:  "allow-truncate",
				Usage: "permit TRUNCATE statements",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			m, err := readMigration(cmd.String("file"))
			if err != nil {
				return err
			}

			exec, closeSess, err := executorFor(ctx, cfg, cmd)
			if err != nil {
				return err
			}
			defer closeSess()

			if cmd.Bool("dry-run") {
				report, err := exec.DryRun(m)
				if err != nil {
					return err
				}
				printDryRun(cmd, report)
				return nil
			}

			auditLog, _, auditErr := buildAudit(ctx, cfg)
			if auditErr != nil {
				return auditErr
			}
			defer func() { _ = auditLog.Stop(ctx) }()

			result, err := exec.Execute(ctx, m)
			recordAudit(ctx, auditLog, cfg.TenantID, "migration.apply", "migration", m.ID, err == nil, map[string]any{
				"connection_id": cmd.String("connection"),
				"name":          m.Name,
				"steps":         len(m.Steps),
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.Writer, "Migration %s applied: %d/%d steps in %s\n",
				result.MigrationID, result.StepsExecuted, result.StepsTotal, result.Duration)
			return nil
		},
	}
}

func migrateRollback(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "rollback",
		Usage: "Roll back an applied migration",
		Flags: []cli.Flag{
			connectionFlag(),
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "migration file produced by plan",
				Required: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			m, err := readMigration(cmd.String("file"))
			if err != nil {
				return err
			}

			exec, closeSess, err := executorFor(ctx, cfg, cmd)
			if err != nil {
				return err
			}
			defer closeSess()

			auditLog, _, auditErr := buildAudit(ctx, cfg)
			if auditErr != nil {
				return auditErr
			}
			defer func() { _ = auditLog.Stop(ctx) }()

			result, err := exec.Rollback(ctx, m)
			recordAudit(ctx, auditLog, cfg.TenantID, "migration.rollback", "migration", m.ID, err == nil, map[string]any{
				"connection_id": cmd.String("connection"),
				"name":          m.Name,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.Writer, "Migration %s rolled back: %d/%d steps\n",
				result.MigrationID, result.StepsExecuted, result.StepsTotal)
			return nil
		},
	}
}

func migrateStatus(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the migration ledger for a connection",
		Flags: []cli.Flag{connectionFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			registry := connRegistry(cfg)
			sess, err := registry.Acquire(ctx, cmd.String("connection"))
			if err != nil {
				return err
			}
			defer func() { _ = sess.Close() }()

			query := fmt.Sprintf(
				"SELECT id, name, version, status, applied_by FROM %s ORDER BY applied_at",
				consts.LedgerTable,
			)
			rows, err := sess.Query(ctx, query)
			if err != nil {
				fmt.Fprintln(cmd.Writer, "No migration ledger found")
				return nil
			}
			defer func() { _ = rows.Close() }()

			n := 0
			for rows.Next() {
				var id, name, version, status, appliedBy string
				if err := rows.Scan(&id, &name, &version, &status, &appliedBy); err != nil {
					return errors.Wrap(err, "scanning ledger row")
				}
				fmt.Fprintf(cmd.Writer, "%-12s %-36s %-20s %-11s %s\n", status, id, name, version, appliedBy)
				n++
			}
			if n == 0 {
				fmt.Fprintln(cmd.Writer, "No migrations recorded")
			}
			return rows.Err()
		},
	}
}

// executorFor acquires a session for the --connection flag and builds an
// executor over it. The returned func releases the session.
func executorFor(ctx context.Context, cfg *config.Config, cmd *cli.Command) (*executor.Executor, func(), error) {
	registry := connRegistry(cfg)
	sess, err := registry.Acquire(ctx, cmd.String("connection"))
	if err != nil {
		return nil, nil, err
	}

	exec, err := executor.New(sess, rootLogger, executor.Options{
		AppliedBy:           cfg.TenantID,
		PerStepTransactions: cmd.Bool("per-step"),
		AllowTruncate:       cmd.Bool("allow-truncate"),
	})
	if err != nil {
		_ = sess.Close()
		return nil, nil, err
	}
	return exec, func() { _ = sess.Close() }, nil
}

func writeMigration(cfg *config.Config, m *migrate.Migration) (string, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encoding migration")
	}

	dir := migrationsDir(cfg)
	if err := os.MkdirAll(dir, consts.ModeDir); err != nil {
		return "", errors.Wrapf(err, "creating %s", dir)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.json", m.Version, m.Name))
	if err := os.WriteFile(path, append(data, '\n'), consts.ModeFile); err != nil {
		return "", errors.Wrapf(err, "writing %s", path)
	}
	return path, nil
}

func readMigration(path string) (*migrate.Migration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}

	var m migrate.Migration
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	return &m, nil
}

func printDryRun(cmd *cli.Command, report *executor.DryRunReport) {
	fmt.Fprintf(cmd.Writer, "Dry run for %s (estimated %dms)\n", report.MigrationID, report.TotalEstimatedMS)
	for _, step := range report.Steps {
		lock := ""
		if step.RequiresLock {
			lock = "  [locks]"
		}
		fmt.Fprintf(cmd.Writer, "%d. %s%s\n", step.Order, step.Description, lock)
		for _, stmt := range step.Statements {
			fmt.Fprintf(cmd.Writer, "   %s\n", stmt)
		}
	}
	for _, w := range report.LockWarnings {
		fmt.Fprintf(cmd.Writer, "! %s\n", w)
	}
}
