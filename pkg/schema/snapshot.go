package schema

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrHashMismatch indicates a loaded snapshot whose stored content hash does
// not match the hash recomputed from its schema payload.
var ErrHashMismatch = errors.New("snapshot content hash mismatch")

type (
	// Snapshot is an immutable record of a database's structure at a point in
	// time, identified by the content hash of its schema.
	Snapshot struct {
		ID           string    `json:"id"`
		ConnectionID string    `json:"connection_id"`
		TenantID     string    `json:"tenant_id"`
		Schema       *Database `json:"schema"`
		CreatedAt    time.Time `json:"created_at"`
		CreatedBy    string    `json:"created_by,omitempty"`
		Label        string    `json:"label,omitempty"`
		IsBaseline   bool      `json:"is_baseline"`
		ContentHash  string    `json:"content_hash"`
	}

	// SnapshotParams carries the identity and provenance fields for a new
	// snapshot.
	SnapshotParams struct {
		ConnectionID string
		TenantID     string
		CreatedBy    string
		Label        string
		IsBaseline   bool
	}
)

// NewSnapshot wraps an extracted database in a snapshot, assigning a random
// identifier and computing the content hash.
//
// Example usage:
//
//	snap, err := schema.NewSnapshot(db, schema.SnapshotParams{
//	    ConnectionID: "prod-primary",
//	    TenantID:     "acme",
//	    Label:        "pre-release-42",
//	    IsBaseline:   true,
//	})
func NewSnapshot(db *Database, params SnapshotParams) (*Snapshot, error) {
	if db == nil {
		return nil, errors.New("snapshot requires a schema")
	}

	hash, err := db.ContentHash()
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		ID:           uuid.NewString(),
		ConnectionID: params.ConnectionID,
		TenantID:     params.TenantID,
		Schema:       db,
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
		CreatedBy:    params.CreatedBy,
		Label:        params.Label,
		IsBaseline:   params.IsBaseline,
		ContentHash:  hash,
	}, nil
}

// MarshalCanonical serializes the snapshot to its canonical file form: a
// single-line UTF-8 JSON object with lexicographically sorted keys, arrays
// sorted by their stable keys, and no trailing whitespace. Optional members
// (created_by, label) are omitted when empty.
func (s *Snapshot) MarshalCanonical() ([]byte, error) {
	if s.Schema == nil {
		return nil, errors.New("snapshot has no schema")
	}

	m := map[string]any{
		"connection_id": s.ConnectionID,
		"content_hash":  s.ContentHash,
		"created_at":    s.CreatedAt.UTC().Format(timeLayout),
		"id":            s.ID,
		"is_baseline":   s.IsBaseline,
		"schema":        canonicalDatabase(s.Schema, canonFile),
		"tenant_id":     s.TenantID,
	}
	if s.CreatedBy != "" {
		m["created_by"] = s.CreatedBy
	}
	if s.Label != "" {
		m["label"] = s.Label
	}

	return marshalCanonical(m)
}

// UnmarshalSnapshot parses a canonical snapshot file and verifies that the
// stored content hash matches the hash recomputed from the schema payload.
// A mismatch returns ErrHashMismatch, which indicates the file was edited
// after it was written.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "parsing snapshot")
	}
	if s.Schema == nil {
		return nil, errors.New("snapshot has no schema")
	}

	hash, err := s.Schema.ContentHash()
	if err != nil {
		return nil, err
	}
	if hash != s.ContentHash {
		return nil, errors.Wrapf(ErrHashMismatch, "stored %s, computed %s", s.ContentHash, hash)
	}

	return &s, nil
}
