package executor

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/dbwarden/warden/pkg/migrate"
)

var (
	// ErrAlreadyApplied is returned when the ledger already shows the
	// migration as applied.
	ErrAlreadyApplied = errors.New("migration already applied")

	// ErrNotApplied is returned when rolling back a migration the ledger
	// has no applied or failed record of.
	ErrNotApplied = errors.New("migration has not been applied")
)

// ValidationError reports a migration that failed pre-execution validation.
type ValidationError struct {
	Result *migrate.ValidationResult
}

func (e *ValidationError) Error() string {
	return "migration validation failed: " + strings.Join(e.Result.Errors, "; ")
}

// StepError identifies the step whose SQL failed.
type StepError struct {
	Order       int
	Description string
	Cause       error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Order, e.Description, e.Cause)
}

func (e *StepError) Unwrap() error { return e.Cause }

// LedgerError means the migration's DDL succeeded but the ledger write did
// not: the database is ahead of the ledger. StepsExecuted tells the caller
// how far execution got so the discrepancy can be reconciled by hand.
type LedgerError struct {
	StepsExecuted int
	Cause         error
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("ledger write failed after %d applied step(s): %v", e.StepsExecuted, e.Cause)
}

func (e *LedgerError) Unwrap() error { return e.Cause }
