package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/dbwarden/warden/pkg/checks"
	"github.com/dbwarden/warden/pkg/config"
	"github.com/dbwarden/warden/pkg/orchestrator"
)

// checksCmd creates the `warden checks` command with list and run
// subcommands backed by the built-in check registry.
func checksCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "checks",
		Usage: "List and run database health checks",
		Commands: []*cli.Command{
			checksList(),
			checksRun(cfg),
		},
	}
}

func checksList() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List available checks",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Usage: "filter by category"},
			&cli.StringFlag{Name: "framework", Usage: "filter by compliance framework"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			defs := checks.Builtin().List(checks.Filter{
				Category:  checks.Category(cmd.String("category")),
				Framework: cmd.String("framework"),
			})
			if len(defs) == 0 {
				fmt.Fprintln(cmd.Writer, "No checks match")
				return nil
			}

			for _, def := range defs {
				frameworks := ""
				if len(def.Frameworks) > 0 {
					frameworks = "  [" + strings.Join(def.Frameworks, ", ") + "]"
				}
				fmt.Fprintf(cmd.Writer, "%-28s %-13s %-8s %s%s\n",
					def.ID, def.Category, def.DefaultSeverity, def.Description, frameworks)
			}
			return nil
		},
	}
}

func checksRun(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:   "run",
		Usage:  "Run checks against a connection",
		Before: requireConfig(cfg),
		Flags: []cli.Flag{
			connectionFlag(),
			&cli.StringSliceFlag{Name: "check", Usage: "check id to run (repeatable)"},
			&cli.StringFlag{Name: "category", Usage: "run every check in a category"},
			&cli.StringFlag{Name: "framework", Usage: "run every check for a framework"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			registry := connRegistry(cfg)
			o, _, err := buildOrchestrator(cfg, registry)
			if err != nil {
				return err
			}

			auditLog, _, err := buildAudit(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = auditLog.Stop(ctx) }()

			connectionID := cmd.String("connection")
			exec, err := o.RunChecks(ctx, connectionID, orchestrator.Selection{
				CheckIDs:  cmd.StringSlice("check"),
				Category:  checks.Category(cmd.String("category")),
				Framework: cmd.String("framework"),
			}, orchestrator.Trigger{Type: orchestrator.TriggerOnDemand, Source: "cli"})

			recordAudit(ctx, auditLog, cfg.TenantID, "checks.run", "connection", connectionID, err == nil, map[string]any{
				"checks": len(cmd.StringSlice("check")),
			})
			if err != nil {
				return err
			}

			for _, r := range exec.Results {
				fmt.Fprintf(cmd.Writer, "%-8s %-28s %s\n", r.Status, r.CheckID, r.Message)
				for _, obj := range r.AffectedObjects {
					fmt.Fprintf(cmd.Writer, "         - %s\n", obj)
				}
			}

			fmt.Fprintf(cmd.Writer, "\nOverall: %s (%d passed, %d failed, %d warning) in %dms\n",
				exec.Status, exec.PassedCount(), exec.FailedCount(), exec.WarningCount(), exec.DurationMS())

			if health, ok := o.Health().Get(connectionID); ok {
				fmt.Fprintf(cmd.Writer, "Health: %s (performance %.0f, security %.0f, compliance %.0f)\n",
					health.OverallStatus, health.PerformanceScore, health.SecurityScore, health.ComplianceScore)
			}
			return nil
		},
	}
}
