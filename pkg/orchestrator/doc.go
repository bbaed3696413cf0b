// Package orchestrator runs check suites against registered connections.
//
// An Execution bundles one run of a resolved check selection against a
// single connection: checks run with bounded parallelism, each under its
// own timeout and its own session, and the finished execution carries
// results sorted by check id plus an aggregate status. The latest roll-up
// per connection lives in a HealthCache.
//
// Runs are caused by triggers. On-demand triggers fire on explicit request,
// scheduled triggers fire from the Scheduler's minute tick using cron
// expressions, and deployment triggers fire around deployments, capturing
// a schema snapshot before the before-phase. A Notifier can post alerts to
// a webhook when configured; a circuit breaker stops it from hammering a
// dead endpoint.
package orchestrator
