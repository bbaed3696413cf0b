package cmd

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"

	"github.com/dbwarden/warden/pkg/config"
	"github.com/dbwarden/warden/pkg/diff"
	"github.com/dbwarden/warden/pkg/extract"
	"github.com/dbwarden/warden/pkg/schema"
)

// diffCmd creates the `warden diff` command. It compares two snapshots, or
// the latest snapshot against the live schema when --to is omitted.
func diffCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:   "diff",
		Usage:  "Show schema changes between snapshots or against the live database",
		Before: requireConfig(cfg),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "connection",
				Aliases:  []string{"c"},
				Usage:    "connection id",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "from",
				Usage: "source snapshot id (defaults to the latest snapshot)",
			},
			&cli.StringFlag{
				Name:  "to",
				Usage: "target snapshot id (defaults to the live schema)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			connectionID := cmd.String("connection")
			store := snapshotStore(cfg)

			source, err := resolveSchema(ctx, cfg, store, connectionID, cmd.String("from"), false)
			if err != nil {
				return err
			}
			target, err := resolveSchema(ctx, cfg, store, connectionID, cmd.String("to"), true)
			if err != nil {
				return err
			}

			d := diff.Compute(source, target)
			fmt.Fprintln(cmd.Writer, d.String())
			for _, item := range d.Items {
				breaking := ""
				if item.Breaking {
					breaking = "  [breaking]"
				}
				fmt.Fprintf(cmd.Writer, "  %-12s %-8s %s%s\n",
					item.ObjectType, item.ChangeType, item.ObjectName, breaking)
			}
			return nil
		},
	}
}

// resolveSchema loads a snapshot by id, the latest snapshot, or the live
// schema depending on the flags.
func resolveSchema(ctx context.Context, cfg *config.Config, store *schema.Store, connectionID, snapshotID string, liveDefault bool) (*schema.Database, error) {
	if snapshotID != "" {
		snap, err := store.Load(connectionID, snapshotID)
		if err != nil {
			return nil, err
		}
		return snap.Schema, nil
	}

	if !liveDefault {
		snap, err := store.Latest(connectionID)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving latest snapshot for %s", connectionID)
		}
		return snap.Schema, nil
	}

	registry := connRegistry(cfg)
	ex, err := extractorFor(cfg, registry, connectionID)
	if err != nil {
		return nil, err
	}
	return ex.Extract(ctx, extract.DefaultOptions())
}
