package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/dbwarden/warden/pkg/config"
	"github.com/dbwarden/warden/pkg/extract"
)

// snapshot creates the `warden snapshot` command with create and list
// subcommands. Snapshots are canonical JSON files under the configured
// snapshot directory, keyed by connection.
func snapshot(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:   "snapshot",
		Usage:  "Capture and list schema snapshots",
		Before: requireConfig(cfg),
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Extract the live schema and persist a snapshot",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "connection",
						Aliases:  []string{"c"},
						Usage:    "connection id to snapshot",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "label",
						Usage: "label recorded on the snapshot",
					},
					&cli.BoolFlag{
						Name:  "baseline",
						Usage: "mark the snapshot as a migration baseline",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					connectionID := cmd.String("connection")
					registry := connRegistry(cfg)

					ex, err := extractorFor(cfg, registry, connectionID)
					if err != nil {
						return err
					}

					snap, err := extract.CreateSnapshot(ctx, ex, extract.SnapshotParams{
						TenantID:   cfg.TenantID,
						Label:      cmd.String("label"),
						IsBaseline: cmd.Bool("baseline"),
					})
					if err != nil {
						return err
					}

					path, err := snapshotStore(cfg).Save(snap)
					if err != nil {
						return err
					}

					fmt.Fprintf(cmd.Writer, "Snapshot %s created\n", snap.ID)
					fmt.Fprintf(cmd.Writer, "- Connection: %s\n", connectionID)
					fmt.Fprintf(cmd.Writer, "- Content hash: %s\n", snap.ContentHash)
					fmt.Fprintf(cmd.Writer, "- File: %s\n", path)
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "List snapshots for a connection",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "connection",
						Aliases:  []string{"c"},
						Usage:    "connection id",
						Required: true,
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					snaps, err := snapshotStore(cfg).List(cmd.String("connection"))
					if err != nil {
						return err
					}
					if len(snaps) == 0 {
						fmt.Fprintln(cmd.Writer, "No snapshots found")
						return nil
					}

					for _, s := range snaps {
						marker := " "
						if s.IsBaseline {
							marker = "*"
						}
						fmt.Fprintf(cmd.Writer, "%s %s  %s  %s  %s\n",
							marker, s.ID, s.CreatedAt.Format("2006-01-02 15:04:05"), s.ContentHash[:12], s.Label)
					}
					return nil
				},
			},
		},
	}
}
