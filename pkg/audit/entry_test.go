package audit_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dbwarden/warden/pkg/audit"
)

func TestComputeHashIsDeterministic(t *testing.T) {
	e := &audit.Entry{
		ID:           "e-1",
		Timestamp:    time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		TenantID:     "acme",
		UserID:       "deploy-bot",
		Action:       "migration.apply",
		Severity:     audit.SeverityInfo,
		ResourceType: "migration",
		ResourceID:   "m-42",
		Success:      true,
		Details:      map[string]any{"steps": 3},
	}

	first := e.ComputeHash()
	require.Len(t, first, 64)
	require.Equal(t, first, e.ComputeHash())

	// The previous hash participates in the digest.
	e.PreviousHash = "abc123"
	require.NotEqual(t, first, e.ComputeHash())
}

func TestComputeHashCoversEveryField(t *testing.T) {
	base := func() *audit.Entry {
		return &audit.Entry{
			ID:           "e-1",
			Timestamp:    time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
			TenantID:     "acme",
			Action:       "snapshot.create",
			Severity:     audit.SeverityInfo,
			ResourceType: "database",
			ResourceID:   "prod",
			Success:      true,
		}
	}

	original := base().ComputeHash()

	for name, mutate := range map[string]func(*audit.Entry){
		"action":    func(e *audit.Entry) { e.Action = "snapshot.delete" },
		"tenant":    func(e *audit.Entry) { e.TenantID = "other" },
		"success":   func(e *audit.Entry) { e.Success = false },
		"timestamp": func(e *audit.Entry) { e.Timestamp = e.Timestamp.Add(time.Second) },
		"details":   func(e *audit.Entry) { e.Details = map[string]any{"k": "v"} },
	} {
		e := base()
		mutate(e)
		require.NotEqual(t, original, e.ComputeHash(), name)
	}
}

func TestVerifyDetectsMutation(t *testing.T) {
	e := &audit.Entry{
		ID:        "e-1",
		Timestamp: time.Now().UTC(),
		TenantID:  "acme",
		Action:    "checks.run",
		Severity:  audit.SeverityInfo,
		Success:   true,
	}
	e.EntryHash = e.ComputeHash()
	require.True(t, e.Verify())

	e.Success = false
	require.False(t, e.Verify())
}
