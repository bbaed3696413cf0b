package schema_test

import (
	"strings"
	"testing"
	"time"

	"github.com/dbwarden/warden/pkg/schema"
	"github.com/stretchr/testify/require"
)

func TestNewSnapshot(t *testing.T) {
	db := testDatabase()

	snap, err := schema.NewSnapshot(db, schema.SnapshotParams{
		ConnectionID: "prod-primary",
		TenantID:     "acme",
		CreatedBy:    "deploy-bot",
		Label:        "pre-release-42",
		IsBaseline:   true,
	})
	require.NoError(t, err)

	require.NotEmpty(t, snap.ID)
	require.Equal(t, "prod-primary", snap.ConnectionID)
	require.Equal(t, "acme", snap.TenantID)
	require.True(t, snap.IsBaseline)
	require.False(t, snap.CreatedAt.IsZero())

	hash, err := db.ContentHash()
	require.NoError(t, err)
	require.Equal(t, hash, snap.ContentHash)
}

func TestNewSnapshotRequiresSchema(t *testing.T) {
	_, err := schema.NewSnapshot(nil, schema.SnapshotParams{})
	require.Error(t, err)
}

func TestSnapshotRoundTrip(t *testing.T) {
	snap, err := schema.NewSnapshot(testDatabase(), schema.SnapshotParams{
		ConnectionID: "prod-primary",
		TenantID:     "acme",
		Label:        "baseline",
	})
	require.NoError(t, err)
	snap.CreatedAt = time.Date(2025, 3, 14, 9, 30, 0, int(250*time.Millisecond), time.UTC)

	data, err := snap.MarshalCanonical()
	require.NoError(t, err)

	// Canonical form: single line, lexicographically sorted keys, no BOM.
	require.False(t, strings.Contains(string(data), "\n"))
	require.True(t, strings.HasPrefix(string(data), `{"connection_id":`))

	loaded, err := schema.UnmarshalSnapshot(data)
	require.NoError(t, err)
	require.Equal(t, snap.ID, loaded.ID)
	require.Equal(t, snap.ConnectionID, loaded.ConnectionID)
	require.Equal(t, snap.TenantID, loaded.TenantID)
	require.Equal(t, snap.Label, loaded.Label)
	require.Equal(t, snap.ContentHash, loaded.ContentHash)
	require.True(t, snap.CreatedAt.Equal(loaded.CreatedAt))

	reHash, err := loaded.Schema.ContentHash()
	require.NoError(t, err)
	require.Equal(t, snap.ContentHash, reHash)
}

func TestUnmarshalSnapshotDetectsTamper(t *testing.T) {
	snap, err := schema.NewSnapshot(testDatabase(), schema.SnapshotParams{
		ConnectionID: "prod-primary",
		TenantID:     "acme",
	})
	require.NoError(t, err)

	data, err := snap.MarshalCanonical()
	require.NoError(t, err)

	tampered := strings.Replace(string(data), `"Email"`, `"EmailX"`, 1)
	require.NotEqual(t, string(data), tampered)

	_, err = schema.UnmarshalSnapshot([]byte(tampered))
	require.ErrorIs(t, err, schema.ErrHashMismatch)
}
