package cmd

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/dbwarden/warden/pkg/config"
)

// rootLogger is shared by every command; Run replaces it with a development
// logger when --verbose is set.
var rootLogger = zap.NewNop()

type (
	Params struct {
		fx.In

		Args       []string
		Commands   []*cli.Command `group:"commands"`
		Ctx        context.Context
		Lifecycle  fx.Lifecycle
		Shutdowner fx.Shutdowner
		Version    *Version
	}

	Version struct {
		Version   string
		Commit    string
		Timestamp string
	}
)

// Run builds the warden CLI application from the provided command group and
// executes it inside the fx lifecycle.
func Run(p Params) {
	cli.VersionPrinter = func(cmd *cli.Command) {
		fmt.Fprintln(cmd.Writer, "Version:", p.Version.Version)
		fmt.Fprintln(cmd.Writer, "Commit:", p.Version.Commit)
		fmt.Fprintln(cmd.Writer, "Date:", p.Version.Timestamp)
	}

	app := &cli.Command{
		Name:  "warden",
		Usage: "Database operations: schema snapshots, migrations, checks, audit",
		Description: `warden manages SQL Server and PostgreSQL databases: it snapshots and
diffs schemas, plans and applies migrations, runs health checks, and keeps a
tamper-evident audit trail.`,
		Version: p.Version.Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			logger, err := buildLogger(cmd.Bool("verbose"))
			if err != nil {
				return ctx, err
			}
			rootLogger = logger
			return ctx, nil
		},
		Commands: p.Commands,
	}

	p.Lifecycle.Append(fx.StartHook(func() {
		if err := app.Run(p.Ctx, p.Args); err != nil {
			fmt.Fprintln(app.ErrWriter, "Error:", err)
			_ = p.Shutdowner.Shutdown(fx.ExitCode(1))
			return
		}

		_ = p.Shutdowner.Shutdown(fx.ExitCode(0))
	}))
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

// requireConfig guards commands that cannot run without warden.yaml.
func requireConfig(cfg *config.Config) func(context.Context, *cli.Command) (context.Context, error) {
	return func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		if cfg == nil {
			return ctx, errors.Errorf("%s not found", config.DefaultFile)
		}
		return ctx, nil
	}
}
