package conn

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrUnknownConnection indicates an Acquire call for a connection id that was
// never registered.
var ErrUnknownConnection = errors.New("unknown connection")

// TransportError wraps a connection-level or protocol-level failure.
// Generally retryable by the caller.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure: %v", e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// QueryError wraps the failure of a single statement together with the SQL
// that produced it.
type QueryError struct {
	SQL   string
	Cause error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %s: %v", shortSQL(e.SQL), e.Cause)
}

func (e *QueryError) Unwrap() error { return e.Cause }

// shortSQL truncates statements for error messages; the full text stays on
// the QueryError.
func shortSQL(sql string) string {
	const max = 120
	if len(sql) <= max {
		return sql
	}
	return sql[:max] + "..."
}
