package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/dbwarden/warden/pkg/config"
)

// testConnection creates the `warden test-connection` command.
func testConnection(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:   "test-connection",
		Usage:  "Verify connectivity for a configured connection",
		Before: requireConfig(cfg),
		Flags:  []cli.Flag{connectionFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			registry := connRegistry(cfg)
			ex, err := extractorFor(cfg, registry, cmd.String("connection"))
			if err != nil {
				return err
			}

			status, err := ex.TestConnection(ctx)
			if err != nil {
				return err
			}

			if !status.OK {
				fmt.Fprintf(cmd.Writer, "Connection failed: %s\n", status.Message)
				return cli.Exit("connection test failed", 1)
			}

			fmt.Fprintf(cmd.Writer, "Connection OK: %s\n", status.ServerVersion)
			return nil
		},
	}
}
