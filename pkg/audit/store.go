package audit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ErrNotFound is returned when an entry id does not exist.
var ErrNotFound = errors.New("audit entry not found")

// Filter narrows a Query. TenantID is required; everything else is
// optional. Results are ordered by timestamp descending unless Ascending
// is set.
type Filter struct {
	TenantID     string
	From         *time.Time
	To           *time.Time
	UserID       string
	Actions      []string
	ResourceType string
	Success      *bool
	Limit        int
	Offset       int
	Ascending    bool
}

func (f Filter) validate() error {
	if f.TenantID == "" {
		return errors.New("audit query requires a tenant id")
	}
	return nil
}

func (f Filter) matches(e *Entry) bool {
	if e.TenantID != f.TenantID {
		return false
	}
	if f.From != nil && e.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && e.Timestamp.After(*f.To) {
		return false
	}
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if len(f.Actions) > 0 {
		found := false
		for _, a := range f.Actions {
			if e.Action == a {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.ResourceType != "" && e.ResourceType != f.ResourceType {
		return false
	}
	if f.Success != nil && e.Success != *f.Success {
		return false
	}
	return true
}

type (
	// Store persists audit entries. Implementations must treat entries as
	// append-only.
	Store interface {
		Write(ctx context.Context, e *Entry) error
		WriteBatch(ctx context.Context, entries []*Entry) error
		Query(ctx context.Context, f Filter) ([]*Entry, error)
		GetByID(ctx context.Context, id string) (*Entry, error)
		GetLastHash(ctx context.Context, tenantID string) (string, error)
	}

	// MemoryStore keeps entries in memory. Useful for tests and for
	// deployments that only need in-process audit trails.
	MemoryStore struct {
		mu      sync.RWMutex
		entries []*Entry
	}
)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Write(_ context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, e)
	return nil
}

func (s *MemoryStore) WriteBatch(_ context.Context, entries []*Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, entries...)
	return nil
}

func (s *MemoryStore) Query(_ context.Context, f Filter) ([]*Entry, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Entry
	for _, e := range s.entries {
		if f.matches(e) {
			out = append(out, e)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if f.Ascending {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, errors.WithStack(ErrNotFound)
}

func (s *MemoryStore) GetLastHash(_ context.Context, tenantID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Entries are appended in write order, so the last match wins.
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].TenantID == tenantID {
			return s.entries[i].EntryHash, nil
		}
	}
	return "", nil
}

// Len reports how many entries the store holds.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}
