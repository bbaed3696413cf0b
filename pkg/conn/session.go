package conn

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

// Session is a single-ownership database session. Implementations are not
// safe for concurrent use; the owner runs statements serially and closes the
// session when done.
type Session interface {
	// Engine reports which engine the session is connected to.
	Engine() Engine

	// Query runs a statement that returns rows. Errors are wrapped in
	// *QueryError.
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)

	// Exec runs a statement without returning rows. Errors are wrapped in
	// *QueryError.
	Exec(ctx context.Context, query string, args ...any) error

	// Begin opens a transaction. Query and Exec route through it until
	// Commit or Rollback.
	Begin(ctx context.Context) error

	// Commit commits the open transaction.
	Commit() error

	// Rollback aborts the open transaction.
	Rollback() error

	// Close releases the underlying connection back to its pool. An open
	// transaction is rolled back first.
	Close() error
}

// NewSession wraps a dedicated connection in a Session. Exposed so tests can
// drive sessions over sqlmock connections.
func NewSession(engine Engine, dbConn *sql.Conn) Session {
	return &session{engine: engine, conn: dbConn}
}

type session struct {
	engine Engine
	conn   *sql.Conn
	tx     *sql.Tx
}

func (s *session) Engine() Engine { return s.engine }

func (s *session) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if s.tx != nil {
		rows, err = s.tx.QueryContext(ctx, query, args...)
	} else {
		rows, err = s.conn.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, &QueryError{SQL: query, Cause: err}
	}
	return rows, nil
}

func (s *session) Exec(ctx context.Context, query string, args ...any) error {
	var err error
	if s.tx != nil {
		_, err = s.tx.ExecContext(ctx, query, args...)
	} else {
		_, err = s.conn.ExecContext(ctx, query, args...)
	}
	if err != nil {
		return &QueryError{SQL: query, Cause: err}
	}
	return nil
}

func (s *session) Begin(ctx context.Context) error {
	if s.tx != nil {
		return errors.New("transaction already open")
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return &TransportError{Cause: err}
	}
	s.tx = tx
	return nil
}

func (s *session) Commit() error {
	if s.tx == nil {
		return errors.New("no open transaction")
	}

	err := s.tx.Commit()
	s.tx = nil
	if err != nil {
		return &TransportError{Cause: err}
	}
	return nil
}

func (s *session) Rollback() error {
	if s.tx == nil {
		return errors.New("no open transaction")
	}

	err := s.tx.Rollback()
	s.tx = nil
	if err != nil {
		return &TransportError{Cause: err}
	}
	return nil
}

func (s *session) Close() error {
	if s.tx != nil {
		_ = s.tx.Rollback()
		s.tx = nil
	}
	return s.conn.Close()
}
