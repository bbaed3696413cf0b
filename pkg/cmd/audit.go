package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/dbwarden/warden/pkg/audit"
	"github.com/dbwarden/warden/pkg/config"
)

// auditCmd creates the `warden audit` command with verify and tail
// subcommands over the configured audit store.
func auditCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:   "audit",
		Usage:  "Inspect and verify the audit trail",
		Before: requireConfig(cfg),
		Commands: []*cli.Command{
			{
				Name:  "verify",
				Usage: "Verify the tenant's hash chain",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					log, _, err := buildAudit(ctx, cfg)
					if err != nil {
						return err
					}
					defer func() { _ = log.Stop(ctx) }()

					res, err := log.VerifyIntegrity(ctx, cfg.TenantID, nil, nil)
					if err != nil {
						return err
					}

					if res.Valid {
						fmt.Fprintf(cmd.Writer, "Chain intact: %d entries verified\n", res.EntriesRead)
						return nil
					}

					fmt.Fprintf(cmd.Writer, "Chain BROKEN at entry %s: %s\n", res.BadEntryID, res.BadEntryNote)
					return cli.Exit("audit chain verification failed", 1)
				},
			},
			{
				Name:  "tail",
				Usage: "Show the most recent audit entries",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 20, Usage: "entries to show"},
					&cli.StringFlag{Name: "user", Usage: "filter by user id"},
					&cli.StringFlag{Name: "resource-type", Usage: "filter by resource type"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					_, store, err := buildAudit(ctx, cfg)
					if err != nil {
						return err
					}

					entries, err := store.Query(ctx, audit.Filter{
						TenantID:     cfg.TenantID,
						UserID:       cmd.String("user"),
						ResourceType: cmd.String("resource-type"),
						Limit:        int(cmd.Int("limit")),
					})
					if err != nil {
						return err
					}
					if len(entries) == 0 {
						fmt.Fprintln(cmd.Writer, "No audit entries")
						return nil
					}

					for _, e := range entries {
						outcome := "ok"
						if !e.Success {
							outcome = "FAILED"
						}
						fmt.Fprintf(cmd.Writer, "%s  %-24s %-12s %s/%s  %s\n",
							e.Timestamp.Format("2006-01-02 15:04:05"), e.Action, outcome,
							e.ResourceType, e.ResourceID, e.EntryHash[:12])
					}
					return nil
				},
			},
		},
	}
}
