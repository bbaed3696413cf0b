package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Severity classifies an audit event.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Entry is one immutable audit record. EntryHash chains it to the tenant's
// previous entry; entries must not be mutated after they are accepted by
// the log.
type Entry struct {
	ID           string         `json:"id" db:"id"`
	Timestamp    time.Time      `json:"timestamp" db:"timestamp"`
	TenantID     string         `json:"tenant_id" db:"tenant_id"`
	UserID       string         `json:"user_id,omitempty" db:"user_id"`
	Action       string         `json:"action" db:"action"`
	Severity     Severity       `json:"severity" db:"severity"`
	ResourceType string         `json:"resource_type" db:"resource_type"`
	ResourceID   string         `json:"resource_id" db:"resource_id"`
	Success      bool           `json:"success" db:"success"`
	Details      map[string]any `json:"details,omitempty" db:"-"`
	PreviousHash string         `json:"previous_hash,omitempty" db:"previous_hash"`
	EntryHash    string         `json:"entry_hash" db:"entry_hash"`
}

// ComputeHash returns the lowercase hex SHA-256 of the canonicalized entry
// (everything except entry_hash) concatenated with the previous hash. The
// canonical form serializes fields as a JSON object, which encoding/json
// emits with lexicographically ordered keys, so the hash is deterministic.
func (e *Entry) ComputeHash() string {
	payload := map[string]any{
		"id":            e.ID,
		"timestamp":     e.Timestamp.UTC().Format(time.RFC3339Nano),
		"tenant_id":     e.TenantID,
		"user_id":       e.UserID,
		"action":        e.Action,
		"severity":      string(e.Severity),
		"resource_type": e.ResourceType,
		"resource_id":   e.ResourceID,
		"success":       e.Success,
		"details":       e.Details,
	}

	// Marshal of a map cannot fail for these value types.
	canonical, _ := json.Marshal(payload)

	h := sha256.New()
	h.Write(canonical)
	h.Write([]byte(e.PreviousHash))
	return hex.EncodeToString(h.Sum(nil))
}

// Verify reports whether the stored hash matches a recomputation.
func (e *Entry) Verify() bool {
	return e.EntryHash == e.ComputeHash()
}
