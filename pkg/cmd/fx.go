package cmd

import "go.uber.org/fx"

var Module = fx.Module("cli",
	fx.Provide(
		fx.Annotate(snapshot, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(diffCmd, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(migrateCmd, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(checksCmd, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(auditCmd, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(testConnection, fx.ResultTags(`group:"commands"`)),
	),
	fx.Invoke(Run),
)
