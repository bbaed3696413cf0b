// Package executor applies migrations to a database through a conn.Session
// and records every attempt in the migration ledger.
//
// The ledger is an append-only table (consts.LedgerTable) created on first
// use; a migration's current state is its most recent ledger row. Execution
// verifies the migration checksum, splits each step into statements with the
// dialect's separator convention, and runs all steps in a single transaction
// by default (per-step transactions are available for scripts that cannot
// run inside one transaction).
//
// Failure handling is explicit in the error types: a *StepError identifies
// the failing step, a *LedgerError means the DDL succeeded but the ledger
// insert did not, and ErrAlreadyApplied short-circuits re-runs. A ledger
// failure is never "repaired" by reversing applied DDL; the caller gets the
// applied-step count and reconciles.
//
// Example usage:
//
//	exec := executor.New(sess, log, executor.Options{AppliedBy: "deploy"})
//
//	result, err := exec.Execute(ctx, migration)
//	if err != nil {
//	    var stepErr *executor.StepError
//	    if errors.As(err, &stepErr) {
//	        log.Error("migration failed", zap.Int("step", stepErr.Order))
//	    }
//	    return err
//	}
//	fmt.Printf("applied %d step(s) in %v\n", result.StepsExecuted, result.Duration)
package executor
