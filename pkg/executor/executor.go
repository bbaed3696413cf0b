package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/dbwarden/warden/pkg/conn"
	"github.com/dbwarden/warden/pkg/consts"
	"github.com/dbwarden/warden/pkg/migrate"
	"github.com/dbwarden/warden/pkg/sqlsplit"
)

type (
	// Executor runs migrations against a single session and records every
	// attempt in the ledger table.
	Executor struct {
		log     *zap.Logger
		sess    conn.Session
		dialect migrate.Dialect
		opts    Options
	}

	// Options tunes execution behavior.
	Options struct {
		// AppliedBy is recorded on every ledger row.
		AppliedBy string

		// PerStepTransactions commits after each step instead of wrapping
		// the whole migration in one transaction. A failure then leaves the
		// completed steps applied.
		PerStepTransactions bool

		// AllowTruncate is passed through to migration validation.
		AllowTruncate bool
	}

	// Result describes a completed execution or rollback.
	Result struct {
		MigrationID   string
		Status        migrate.Status
		StepsExecuted int
		StepsTotal    int
		Duration      time.Duration
	}

	// DryRunStep is one step of a dry-run report with its statements split
	// out the way execution would run them.
	DryRunStep struct {
		Order               int
		Description         string
		Statements          []string
		RequiresLock        bool
		EstimatedDurationMS int64
	}

	// DryRunReport previews an execution without touching the database.
	DryRunReport struct {
		MigrationID      string
		Steps            []DryRunStep
		TotalEstimatedMS int64
		LockWarnings     []string
	}
)

// New creates an executor bound to a session. The session's engine decides
// the SQL dialect; only SQL Server and PostgreSQL can execute migrations.
func New(sess conn.Session, log *zap.Logger, opts Options) (*Executor, error) {
	var dialect migrate.Dialect
	switch sess.Engine() {
	case conn.EngineSQLServer:
		dialect = migrate.DialectSQLServer
	case conn.EnginePostgres:
		dialect = migrate.DialectPostgres
	default:
		return nil, errors.Errorf("engine %q does not support migration execution", sess.Engine())
	}

	return &Executor{log: log, sess: sess, dialect: dialect, opts: opts}, nil
}

// Execute validates and applies a migration, recording the outcome in the
// ledger. Steps run in ascending order inside a single transaction unless
// per-step transactions were requested. On step failure the open transaction
// is rolled back, a failed ledger row is written, and a *StepError is
// returned.
func (e *Executor) Execute(ctx context.Context, m *migrate.Migration) (*Result, error) {
	start := time.Now()

	if err := e.checkDialect(m); err != nil {
		return nil, err
	}
	if vr := migrate.Validate(m, migrate.ValidateOptions{AllowTruncate: e.opts.AllowTruncate}); !vr.Valid {
		return nil, &ValidationError{Result: vr}
	}
	if err := e.ensureLedger(ctx); err != nil {
		return nil, errors.Wrap(err, "ensuring migration ledger")
	}

	status, found, err := e.latestStatus(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	if found && status == migrate.StatusApplied {
		return nil, errors.WithStack(ErrAlreadyApplied)
	}

	e.log.Info("applying migration",
		zap.String("migration_id", m.ID),
		zap.String("name", m.Name),
		zap.Int("steps", len(m.Steps)),
	)

	applied, execErr := e.runForward(ctx, m)
	if execErr != nil {
		if recErr := e.record(ctx, m, migrate.StatusFailed, applied, execErr); recErr != nil {
			e.log.Error("recording failed migration in ledger", zap.Error(recErr))
		}
		return nil, execErr
	}

	if err := e.record(ctx, m, migrate.StatusApplied, applied, nil); err != nil {
		return nil, &LedgerError{StepsExecuted: applied, Cause: err}
	}

	return &Result{
		MigrationID:   m.ID,
		Status:        migrate.StatusApplied,
		StepsExecuted: applied,
		StepsTotal:    len(m.Steps),
		Duration:      time.Since(start),
	}, nil
}

// Rollback reverses an applied (or partially applied) migration by running
// step rollbacks in descending order. Steps without rollback SQL are skipped
// with a warning; the data they dropped is gone either way.
func (e *Executor) Rollback(ctx context.Context, m *migrate.Migration) (*Result, error) {
	start := time.Now()

	if err := e.checkDialect(m); err != nil {
		return nil, err
	}
	if err := e.ensureLedger(ctx); err != nil {
		return nil, errors.Wrap(err, "ensuring migration ledger")
	}

	status, found, err := e.latestStatus(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	if !found || (status != migrate.StatusApplied && status != migrate.StatusFailed) {
		return nil, errors.WithStack(ErrNotApplied)
	}

	if err := e.sess.Begin(ctx); err != nil {
		return nil, err
	}

	executed := 0
	for i := len(m.Steps) - 1; i >= 0; i-- {
		s := m.Steps[i]
		if s.RollbackSQL == "" {
			e.log.Warn("step has no rollback, skipping",
				zap.String("migration_id", m.ID),
				zap.Int("step", s.Order),
				zap.String("description", s.Description),
			)
			continue
		}

		if err := e.execStatements(ctx, s.RollbackSQL); err != nil {
			_ = e.sess.Rollback()
			return nil, &StepError{Order: s.Order, Description: s.Description, Cause: err}
		}
		executed++
	}
	if err := e.sess.Commit(); err != nil {
		return nil, err
	}

	if err := e.record(ctx, m, migrate.StatusRolledBack, executed, nil); err != nil {
		return nil, &LedgerError{StepsExecuted: executed, Cause: err}
	}

	return &Result{
		MigrationID:   m.ID,
		Status:        migrate.StatusRolledBack,
		StepsExecuted: executed,
		StepsTotal:    len(m.Steps),
		Duration:      time.Since(start),
	}, nil
}

// DryRun reports what Execute would run without executing anything. The
// migration is still validated, so a tampered or malformed migration fails
// the same way it would at execution time.
func (e *Executor) DryRun(m *migrate.Migration) (*DryRunReport, error) {
	if err := e.checkDialect(m); err != nil {
		return nil, err
	}
	if vr := migrate.Validate(m, migrate.ValidateOptions{AllowTruncate: e.opts.AllowTruncate}); !vr.Valid {
		return nil, &ValidationError{Result: vr}
	}

	report := &DryRunReport{MigrationID: m.ID}
	for _, s := range m.Steps {
		stmts, err := sqlsplit.Split(s.ForwardSQL, e.splitDialect())
		if err != nil {
			return nil, errors.Wrapf(err, "splitting step %d", s.Order)
		}

		report.Steps = append(report.Steps, DryRunStep{
			Order:               s.Order,
			Description:         s.Description,
			Statements:          stmts,
			RequiresLock:        s.RequiresLock,
			EstimatedDurationMS: s.EstimatedDurationMS,
		})
		report.TotalEstimatedMS += s.EstimatedDurationMS
		if s.RequiresLock {
			report.LockWarnings = append(report.LockWarnings,
				fmt.Sprintf("step %d (%s) takes a schema lock", s.Order, s.Description))
		}
	}
	return report, nil
}

func (e *Executor) checkDialect(m *migrate.Migration) error {
	if m.Dialect != "" && m.Dialect != e.dialect {
		return errors.Errorf("migration dialect %q does not match session dialect %q", m.Dialect, e.dialect)
	}
	return nil
}

func (e *Executor) splitDialect() sqlsplit.Dialect {
	if e.dialect == migrate.DialectSQLServer {
		return sqlsplit.TSQL
	}
	return sqlsplit.Standard
}

func (e *Executor) runForward(ctx context.Context, m *migrate.Migration) (int, error) {
	if e.opts.PerStepTransactions {
		return e.runPerStep(ctx, m)
	}

	if err := e.sess.Begin(ctx); err != nil {
		return 0, err
	}

	for i, s := range m.Steps {
		if err := e.execStatements(ctx, s.ForwardSQL); err != nil {
			_ = e.sess.Rollback()
			return i, &StepError{Order: s.Order, Description: s.Description, Cause: err}
		}
	}
	if err := e.sess.Commit(); err != nil {
		return 0, err
	}
	return len(m.Steps), nil
}

func (e *Executor) runPerStep(ctx context.Context, m *migrate.Migration) (int, error) {
	for i, s := range m.Steps {
		if err := e.sess.Begin(ctx); err != nil {
			return i, err
		}
		if err := e.execStatements(ctx, s.ForwardSQL); err != nil {
			_ = e.sess.Rollback()
			return i, &StepError{Order: s.Order, Description: s.Description, Cause: err}
		}
		if err := e.sess.Commit(); err != nil {
			return i, err
		}
	}
	return len(m.Steps), nil
}

func (e *Executor) execStatements(ctx context.Context, script string) error {
	stmts, err := sqlsplit.Split(script, e.splitDialect())
	if err != nil {
		return errors.Wrap(err, "splitting statements")
	}

	for _, stmt := range stmts {
		if err := e.sess.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// ensureLedger creates the ledger table when it does not exist yet. The DDL
// is idempotent for both engines.
func (e *Executor) ensureLedger(ctx context.Context) error {
	var ddl string
	if e.dialect == migrate.DialectSQLServer {
		ddl = fmt.Sprintf(`IF OBJECT_ID(N'%[1]s', N'U') IS NULL
CREATE TABLE %[1]s (
    id nvarchar(64) NOT NULL,
    name nvarchar(255) NOT NULL,
    version nvarchar(32) NOT NULL,
    dialect nvarchar(16) NOT NULL,
    checksum nvarchar(64) NOT NULL,
    status nvarchar(16) NOT NULL,
    steps_applied int NOT NULL,
    steps_total int NOT NULL,
    applied_at datetime2(3) NOT NULL,
    applied_by nvarchar(128) NOT NULL,
    error nvarchar(max) NULL
)`, consts.LedgerTable)
	} else {
		ddl = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
    id varchar(64) NOT NULL,
    name varchar(255) NOT NULL,
    version varchar(32) NOT NULL,
    dialect varchar(16) NOT NULL,
    checksum varchar(64) NOT NULL,
    status varchar(16) NOT NULL,
    steps_applied int NOT NULL,
    steps_total int NOT NULL,
    applied_at timestamptz NOT NULL,
    applied_by varchar(128) NOT NULL,
    error text NULL
)`, consts.LedgerTable)
	}
	return e.sess.Exec(ctx, ddl)
}

// latestStatus returns the status from the most recent ledger row for the
// migration id, if any. The ledger is append-only, so history is preserved
// and only the newest row counts.
func (e *Executor) latestStatus(ctx context.Context, id string) (migrate.Status, bool, error) {
	query := fmt.Sprintf(
		"SELECT status FROM %s WHERE id = %s ORDER BY applied_at DESC",
		consts.LedgerTable, e.placeholder(1),
	)

	rows, err := e.sess.Query(ctx, query, id)
	if err != nil {
		return "", false, err
	}
	defer rows.Close()

	if !rows.Next() {
		return "", false, rows.Err()
	}

	var status string
	if err := rows.Scan(&status); err != nil {
		return "", false, errors.Wrap(err, "scanning ledger status")
	}
	return migrate.Status(status), true, rows.Err()
}

func (e *Executor) record(ctx context.Context, m *migrate.Migration, status migrate.Status, applied int, execErr error) error {
	placeholders := make([]string, 11)
	for i := range placeholders {
		placeholders[i] = e.placeholder(i + 1)
	}

	insert := fmt.Sprintf(
		"INSERT INTO %s (id, name, version, dialect, checksum, status, steps_applied, steps_total, applied_at, applied_by, error) VALUES (%s)",
		consts.LedgerTable, strings.Join(placeholders, ", "),
	)

	var errText *string
	if execErr != nil {
		text := execErr.Error()
		errText = &text
	}

	return e.sess.Exec(ctx, insert,
		m.ID,
		m.Name,
		m.Version,
		string(m.Dialect),
		m.Checksum,
		string(status),
		applied,
		len(m.Steps),
		time.Now().UTC(),
		e.opts.AppliedBy,
		errText,
	)
}

func (e *Executor) placeholder(i int) string {
	if e.dialect == migrate.DialectSQLServer {
		return fmt.Sprintf("@p%d", i)
	}
	return fmt.Sprintf("$%d", i)
}
