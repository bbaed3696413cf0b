package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	defaultBufferSize    = 100
	defaultFlushInterval = 5 * time.Second

	// After this many consecutive flush failures the log escalates to an
	// error-level diagnostic.
	flushFailureThreshold = 3
)

type (
	// Config controls buffering and hash chaining for a Log.
	Config struct {
		Enabled              bool     `yaml:"enabled"`
		BufferSize           int      `yaml:"buffer_size"`
		FlushIntervalSeconds int      `yaml:"flush_interval_seconds"`
		HashChainEnabled     *bool    `yaml:"hash_chain_enabled"`
		ComplianceFrameworks []string `yaml:"compliance_frameworks"`
		AsyncWrite           *bool    `yaml:"async_write"`

		// StoreConnectionID selects a configured Postgres connection to
		// persist entries in. Empty means the in-memory store.
		StoreConnectionID string `yaml:"store_connection_id"`
	}

	// Event describes something that happened. The log assigns the id,
	// timestamp, and hash chain fields.
	Event struct {
		TenantID     string
		UserID       string
		Action       string
		Severity     Severity
		ResourceType string
		ResourceID   string
		Success      bool
		Details      map[string]any
	}

	// Log accepts events, chains them per tenant, and persists them through
	// a Store. With async writes enabled entries accumulate in a buffer that
	// flushes when full and on a fixed interval.
	Log struct {
		log   *zap.Logger
		store Store
		cfg   Config

		chainMu sync.Mutex
		chains  map[string]*chain

		bufMu         sync.Mutex
		buf           []*Entry
		flushFailures int

		stopOnce sync.Once
		stopCh   chan struct{}
		doneCh   chan struct{}
	}

	chain struct {
		mu       sync.Mutex
		lastHash string
		loaded   bool
	}
)

func (c Config) bufferSize() int {
	if c.BufferSize > 0 {
		return c.BufferSize
	}
	return defaultBufferSize
}

func (c Config) flushInterval() time.Duration {
	if c.FlushIntervalSeconds > 0 {
		return time.Duration(c.FlushIntervalSeconds) * time.Second
	}
	return defaultFlushInterval
}

func (c Config) hashChainEnabled() bool {
	return c.HashChainEnabled == nil || *c.HashChainEnabled
}

func (c Config) asyncWrite() bool {
	return c.AsyncWrite == nil || *c.AsyncWrite
}

// NewLog builds a Log over the given store. When the config enables async
// writes a background flusher starts immediately; callers own calling Stop.
func NewLog(store Store, log *zap.Logger, cfg Config) *Log {
	l := &Log{
		log:    log,
		store:  store,
		cfg:    cfg,
		chains: make(map[string]*chain),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	if cfg.Enabled && cfg.asyncWrite() {
		go l.run()
	} else {
		close(l.doneCh)
	}
	return l
}

// Record appends an event to the tenant's chain. With async writes the
// entry is buffered and the returned entry is already hashed; with sync
// writes it has been persisted before Record returns. Returns nil when
// auditing is disabled.
func (l *Log) Record(ctx context.Context, ev Event) (*Entry, error) {
	if !l.cfg.Enabled {
		return nil, nil
	}
	if ev.TenantID == "" {
		return nil, errors.New("audit event requires a tenant id")
	}
	if ev.Action == "" {
		return nil, errors.New("audit event requires an action")
	}
	if ev.Severity == "" {
		ev.Severity = SeverityInfo
	}

	e := &Entry{
		ID:           uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		TenantID:     ev.TenantID,
		UserID:       ev.UserID,
		Action:       ev.Action,
		Severity:     ev.Severity,
		ResourceType: ev.ResourceType,
		ResourceID:   ev.ResourceID,
		Success:      ev.Success,
		Details:      ev.Details,
	}

	if l.cfg.hashChainEnabled() {
		if err := l.chainEntry(ctx, e); err != nil {
			return nil, err
		}
	} else {
		e.EntryHash = e.ComputeHash()
	}

	if !l.cfg.asyncWrite() {
		if err := l.store.Write(ctx, e); err != nil {
			return nil, errors.Wrap(err, "writing audit entry")
		}
		return e, nil
	}

	l.bufMu.Lock()
	l.buf = append(l.buf, e)
	full := len(l.buf) >= l.cfg.bufferSize()
	l.bufMu.Unlock()

	if full {
		go l.flush(context.Background())
	}
	return e, nil
}

// chainEntry links the entry to its tenant's chain. The per-tenant lock
// covers reading the last hash, computing the new one, and advancing the
// cache, so concurrent writers cannot fork the chain.
func (l *Log) chainEntry(ctx context.Context, e *Entry) error {
	c := l.chainFor(e.TenantID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		last, err := l.store.GetLastHash(ctx, e.TenantID)
		if err != nil {
			return errors.Wrapf(err, "loading chain head for tenant %s", e.TenantID)
		}
		c.lastHash = last
		c.loaded = true
	}

	e.PreviousHash = c.lastHash
	e.EntryHash = e.ComputeHash()
	c.lastHash = e.EntryHash
	return nil
}

func (l *Log) chainFor(tenantID string) *chain {
	l.chainMu.Lock()
	defer l.chainMu.Unlock()

	c, ok := l.chains[tenantID]
	if !ok {
		c = &chain{}
		l.chains[tenantID] = c
	}
	return c
}

// Flush synchronously drains the buffer.
func (l *Log) Flush(ctx context.Context) error {
	return l.flush(ctx)
}

func (l *Log) flush(ctx context.Context) error {
	l.bufMu.Lock()
	pending := l.buf
	l.buf = nil
	l.bufMu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	if err := l.store.WriteBatch(ctx, pending); err != nil {
		// Put the batch back ahead of anything recorded meanwhile so write
		// order is preserved for the next attempt.
		l.bufMu.Lock()
		l.buf = append(pending, l.buf...)
		l.flushFailures++
		failures := l.flushFailures
		buffered := len(l.buf)
		l.bufMu.Unlock()

		if failures >= flushFailureThreshold {
			l.log.Error("audit flush failing repeatedly",
				zap.Int("consecutive_failures", failures),
				zap.Int("buffered_entries", buffered),
				zap.Error(err))
		} else {
			l.log.Warn("audit flush failed",
				zap.Int("buffered_entries", buffered),
				zap.Error(err))
		}
		return errors.Wrap(err, "flushing audit buffer")
	}

	l.bufMu.Lock()
	l.flushFailures = 0
	l.bufMu.Unlock()
	return nil
}

func (l *Log) run() {
	defer close(l.doneCh)

	ticker := time.NewTicker(l.cfg.flushInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = l.flush(context.Background())
		case <-l.stopCh:
			return
		}
	}
}

// Stop halts the background flusher and drains the buffer. If entries
// cannot be persisted the returned error reports how many were lost.
func (l *Log) Stop(ctx context.Context) error {
	l.stopOnce.Do(func() { close(l.stopCh) })
	<-l.doneCh

	if err := l.flush(ctx); err != nil {
		l.bufMu.Lock()
		residual := len(l.buf)
		l.bufMu.Unlock()
		return errors.Wrapf(err, "audit shutdown left %d unpersisted entries", residual)
	}
	return nil
}

// VerifyIntegrity replays a tenant's chain and reports the first broken
// link, if any.
type VerifyResult struct {
	Valid        bool
	EntriesRead  int
	BadEntryID   string
	BadEntryNote string
}

// VerifyIntegrity recomputes every entry hash for the tenant in timestamp
// order and checks that each entry's previous_hash matches its
// predecessor's entry_hash.
func (l *Log) VerifyIntegrity(ctx context.Context, tenantID string, from, to *time.Time) (*VerifyResult, error) {
	entries, err := l.store.Query(ctx, Filter{
		TenantID:  tenantID,
		From:      from,
		To:        to,
		Ascending: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "loading entries for verification")
	}

	res := &VerifyResult{Valid: true, EntriesRead: len(entries)}
	for i, e := range entries {
		if !e.Verify() {
			res.Valid = false
			res.BadEntryID = e.ID
			res.BadEntryNote = "entry hash does not match recomputation"
			break
		}
		if i > 0 && e.PreviousHash != entries[i-1].EntryHash {
			res.Valid = false
			res.BadEntryID = e.ID
			res.BadEntryNote = "previous hash does not match preceding entry"
			break
		}
	}

	if !res.Valid {
		l.log.Warn("audit chain verification failed",
			zap.String("tenant_id", tenantID),
			zap.String("entry_id", res.BadEntryID),
			zap.String("reason", res.BadEntryNote))
	}
	return res, nil
}
