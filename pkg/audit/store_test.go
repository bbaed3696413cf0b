package audit_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/dbwarden/warden/pkg/audit"
)

func seedStore(t *testing.T) *audit.MemoryStore {
	t.Helper()

	store := audit.NewMemoryStore()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	entries := []*audit.Entry{
		{ID: "e-1", Timestamp: base, TenantID: "acme", UserID: "alice", Action: "snapshot.create", ResourceType: "database", Success: true},
		{ID: "e-2", Timestamp: base.Add(time.Minute), TenantID: "acme", UserID: "bob", Action: "migration.apply", ResourceType: "migration", Success: false},
		{ID: "e-3", Timestamp: base.Add(2 * time.Minute), TenantID: "acme", UserID: "alice", Action: "checks.run", ResourceType: "database", Success: true},
		{ID: "e-4", Timestamp: base.Add(3 * time.Minute), TenantID: "globex", UserID: "carol", Action: "snapshot.create", ResourceType: "database", Success: true},
	}
	for _, e := range entries {
		e.EntryHash = e.ComputeHash()
		require.NoError(t, store.Write(context.Background(), e))
	}
	return store
}

func ids(entries []*audit.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestMemoryStoreQueryRequiresTenant(t *testing.T) {
	_, err := seedStore(t).Query(context.Background(), audit.Filter{})
	require.Error(t, err)
}

func TestMemoryStoreQueryOrdersDescendingByDefault(t *testing.T) {
	entries, err := seedStore(t).Query(context.Background(), audit.Filter{TenantID: "acme"})
	require.NoError(t, err)
	require.Equal(t, []string{"e-3", "e-2", "e-1"}, ids(entries))
}

func TestMemoryStoreQueryFilters(t *testing.T) {
	store := seedStore(t)
	ctx := context.Background()
	ok := true

	cases := []struct {
		name   string
		filter audit.Filter
		want   []string
	}{
		{"by user", audit.Filter{TenantID: "acme", UserID: "alice"}, []string{"e-3", "e-1"}},
		{"by action set", audit.Filter{TenantID: "acme", Actions: []string{"snapshot.create", "checks.run"}}, []string{"e-3", "e-1"}},
		{"by resource type", audit.Filter{TenantID: "acme", ResourceType: "migration"}, []string{"e-2"}},
		{"by success", audit.Filter{TenantID: "acme", Success: &ok}, []string{"e-3", "e-1"}},
		{"tenant isolation", audit.Filter{TenantID: "globex"}, []string{"e-4"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			entries, err := store.Query(ctx, tc.filter)
			require.NoError(t, err)
			require.Equal(t, tc.want, ids(entries))
		})
	}
}

func TestMemoryStoreQueryTimeRange(t *testing.T) {
	store := seedStore(t)
	from := time.Date(2026, 5, 1, 12, 0, 30, 0, time.UTC)
	to := time.Date(2026, 5, 1, 12, 2, 30, 0, time.UTC)

	entries, err := store.Query(context.Background(), audit.Filter{
		TenantID:  "acme",
		From:      &from,
		To:        &to,
		Ascending: true,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"e-2", "e-3"}, ids(entries))
}

func TestMemoryStoreQueryPagination(t *testing.T) {
	store := audit.NewMemoryStore()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		e := &audit.Entry{
			ID:        fmt.Sprintf("e-%02d", i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
			TenantID:  "acme",
			Action:    "checks.run",
			Success:   true,
		}
		e.EntryHash = e.ComputeHash()
		require.NoError(t, store.Write(context.Background(), e))
	}

	entries, err := store.Query(context.Background(), audit.Filter{
		TenantID: "acme",
		Limit:    3,
		Offset:   2,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"e-07", "e-06", "e-05"}, ids(entries))

	// Offset past the end yields nothing.
	entries, err = store.Query(context.Background(), audit.Filter{TenantID: "acme", Offset: 50})
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestMemoryStoreGetByID(t *testing.T) {
	store := seedStore(t)

	e, err := store.GetByID(context.Background(), "e-2")
	require.NoError(t, err)
	require.Equal(t, "migration.apply", e.Action)

	_, err = store.GetByID(context.Background(), "ghost")
	require.True(t, errors.Is(err, audit.ErrNotFound))
}

func TestMemoryStoreGetLastHash(t *testing.T) {
	store := seedStore(t)

	hash, err := store.GetLastHash(context.Background(), "acme")
	require.NoError(t, err)

	e, err := store.GetByID(context.Background(), "e-3")
	require.NoError(t, err)
	require.Equal(t, e.EntryHash, hash)

	hash, err = store.GetLastHash(context.Background(), "unknown")
	require.NoError(t, err)
	require.Empty(t, hash)
}
