package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/dbwarden/warden/pkg/consts"
)

// PGStore persists audit entries in a PostgreSQL table. Details are stored
// as JSONB; all other fields map to flat columns.
type PGStore struct {
	db *sqlx.DB
}

// NewPGStore wraps the supplied database handle. Call Init before the
// first write to create the table.
func NewPGStore(db *sqlx.DB) *PGStore {
	return &PGStore{db: db}
}

// Init creates the audit table if it does not already exist.
func (s *PGStore) Init(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id            text PRIMARY KEY,
    ts            timestamptz NOT NULL,
    tenant_id     text NOT NULL,
    user_id       text NOT NULL DEFAULT '',
    action        text NOT NULL,
    severity      text NOT NULL,
    resource_type text NOT NULL,
    resource_id   text NOT NULL,
    success       boolean NOT NULL,
    details       jsonb,
    previous_hash text NOT NULL DEFAULT '',
    entry_hash    text NOT NULL
)`, consts.AuditTable)

	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return errors.Wrap(err, "creating audit table")
	}

	idx := fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s_tenant_ts ON %s (tenant_id, ts DESC)",
		consts.AuditTable, consts.AuditTable,
	)
	if _, err := s.db.ExecContext(ctx, idx); err != nil {
		return errors.Wrap(err, "creating audit index")
	}
	return nil
}

type pgEntryRow struct {
	ID           string         `db:"id"`
	Timestamp    time.Time      `db:"ts"`
	TenantID     string         `db:"tenant_id"`
	UserID       string         `db:"user_id"`
	Action       string         `db:"action"`
	Severity     string         `db:"severity"`
	ResourceType string         `db:"resource_type"`
	ResourceID   string         `db:"resource_id"`
	Success      bool           `db:"success"`
	Details      sql.NullString `db:"details"`
	PreviousHash string         `db:"previous_hash"`
	EntryHash    string         `db:"entry_hash"`
}

func (r pgEntryRow) entry() (*Entry, error) {
	e := &Entry{
		ID:           r.ID,
		Timestamp:    r.Timestamp.UTC(),
		TenantID:     r.TenantID,
		UserID:       r.UserID,
		Action:       r.Action,
		Severity:     Severity(r.Severity),
		ResourceType: r.ResourceType,
		ResourceID:   r.ResourceID,
		Success:      r.Success,
		PreviousHash: r.PreviousHash,
		EntryHash:    r.EntryHash,
	}

	if r.Details.Valid && r.Details.String != "" {
		if err := json.Unmarshal([]byte(r.Details.String), &e.Details); err != nil {
			return nil, errors.Wrapf(err, "decoding details for audit entry %s", r.ID)
		}
	}
	return e, nil
}

func rowFor(e *Entry) (pgEntryRow, error) {
	row := pgEntryRow{
		ID:           e.ID,
		Timestamp:    e.Timestamp.UTC(),
		TenantID:     e.TenantID,
		UserID:       e.UserID,
		Action:       e.Action,
		Severity:     string(e.Severity),
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		Success:      e.Success,
		PreviousHash: e.PreviousHash,
		EntryHash:    e.EntryHash,
	}

	if len(e.Details) > 0 {
		b, err := json.Marshal(e.Details)
		if err != nil {
			return row, errors.Wrapf(err, "encoding details for audit entry %s", e.ID)
		}
		row.Details = sql.NullString{String: string(b), Valid: true}
	}
	return row, nil
}

var pgInsert = fmt.Sprintf(`INSERT INTO %s
    (id, ts, tenant_id, user_id, action, severity, resource_type, resource_id, success, details, previous_hash, entry_hash)
VALUES
    (:id, :ts, :tenant_id, :user_id, :action, :severity, :resource_type, :resource_id, :success, :details, :previous_hash, :entry_hash)`,
	consts.AuditTable)

func (s *PGStore) Write(ctx context.Context, e *Entry) error {
	row, err := rowFor(e)
	if err != nil {
		return err
	}

	if _, err := s.db.NamedExecContext(ctx, pgInsert, row); err != nil {
		return errors.Wrapf(err, "writing audit entry %s", e.ID)
	}
	return nil
}

func (s *PGStore) WriteBatch(ctx context.Context, entries []*Entry) error {
	if len(entries) == 0 {
		return nil
	}

	rows := make([]pgEntryRow, 0, len(entries))
	for _, e := range entries {
		row, err := rowFor(e)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning audit batch")
	}

	if _, err := tx.NamedExecContext(ctx, pgInsert, rows); err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, "writing audit batch")
	}
	return errors.Wrap(tx.Commit(), "committing audit batch")
}

func (s *PGStore) Query(ctx context.Context, f Filter) ([]*Entry, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}

	var (
		where = []string{"tenant_id = ?"}
		args  = []any{f.TenantID}
	)

	if f.From != nil {
		where = append(where, "ts >= ?")
		args = append(args, *f.From)
	}
	if f.To != nil {
		where = append(where, "ts <= ?")
		args = append(args, *f.To)
	}
	if f.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if len(f.Actions) > 0 {
		in, inArgs, err := sqlx.In("action IN (?)", f.Actions)
		if err != nil {
			return nil, errors.Wrap(err, "building audit query")
		}
		where = append(where, in)
		args = append(args, inArgs...)
	}
	if f.ResourceType != "" {
		where = append(where, "resource_type = ?")
		args = append(args, f.ResourceType)
	}
	if f.Success != nil {
		where = append(where, "success = ?")
		args = append(args, *f.Success)
	}

	order := "DESC"
	if f.Ascending {
		order = "ASC"
	}

	query := fmt.Sprintf(
		"SELECT * FROM %s WHERE %s ORDER BY ts %s",
		consts.AuditTable, strings.Join(where, " AND "), order,
	)
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	if f.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, f.Offset)
	}

	var rows []pgEntryRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying audit entries")
	}

	out := make([]*Entry, 0, len(rows))
	for _, row := range rows {
		e, err := row.entry()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *PGStore) GetByID(ctx context.Context, id string) (*Entry, error) {
	var row pgEntryRow
	query := fmt.Sprintf("SELECT * FROM %s WHERE id = $1", consts.AuditTable)

	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.WithStack(ErrNotFound)
		}
		return nil, errors.Wrapf(err, "loading audit entry %s", id)
	}
	return row.entry()
}

func (s *PGStore) GetLastHash(ctx context.Context, tenantID string) (string, error) {
	var hash string
	query := fmt.Sprintf(
		"SELECT entry_hash FROM %s WHERE tenant_id = $1 ORDER BY ts DESC LIMIT 1",
		consts.AuditTable,
	)

	err := s.db.GetContext(ctx, &hash, query, tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return hash, errors.Wrapf(err, "loading last hash for tenant %s", tenantID)
}
