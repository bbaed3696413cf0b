// Package cmd implements the warden CLI.
//
// Each command is a constructor returning a *cli.Command, provided to the
// fx application through the "commands" group; Run assembles them into the
// root command and executes it inside the fx lifecycle. Commands resolve
// their collaborators (connection registry, snapshot store, orchestrator,
// audit log) from the loaded configuration at action time, so a missing
// warden.yaml only fails the commands that actually need one.
package cmd
