package conn

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	// Register the database/sql drivers for the supported engines.
	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// passwordPlaceholder marks where a resolved credential is substituted into a
// configured DSN. DSNs without the placeholder are used verbatim.
const passwordPlaceholder = "${password}"

// Provider acquires live sessions for registered connection ids.
type Provider interface {
	Acquire(ctx context.Context, connectionID string) (Session, error)
}

// Config describes one registered connection.
type Config struct {
	ID       string
	TenantID string
	Engine   Engine
	DSN      string
}

// Registry is the standard Provider: it lazily opens one connection pool per
// configured connection and hands out dedicated sessions from it.
type Registry struct {
	log   *zap.Logger
	creds Credential

	mu      sync.Mutex
	configs map[string]Config
	pools   map[string]*sql.DB
}

// NewRegistry creates a Registry over the given connection configs.
// Credentials are resolved through creds when a DSN carries the ${password}
// placeholder.
func NewRegistry(log *zap.Logger, creds Credential, configs ...Config) *Registry {
	r := &Registry{
		log:     log,
		creds:   creds,
		configs: make(map[string]Config, len(configs)),
		pools:   make(map[string]*sql.DB),
	}
	for _, cfg := range configs {
		r.configs[cfg.ID] = cfg
	}
	return r
}

// Register adds or replaces a connection config. Any existing pool for the id
// keeps serving sessions opened from the old config.
func (r *Registry) Register(cfg Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[cfg.ID] = cfg
}

// IDs returns the registered connection ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.configs))
	for id := range r.configs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Lookup returns the config for a connection id.
func (r *Registry) Lookup(connectionID string) (Config, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, ok := r.configs[connectionID]
	return cfg, ok
}

// Acquire checks a dedicated connection out of the pool for the given id and
// wraps it in a Session. The caller owns the session and must close it.
func (r *Registry) Acquire(ctx context.Context, connectionID string) (Session, error) {
	r.mu.Lock()
	cfg, ok := r.configs[connectionID]
	if !ok {
		r.mu.Unlock()
		return nil, errors.Wrap(ErrUnknownConnection, connectionID)
	}

	pool, err := r.poolLocked(ctx, cfg)
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	dbConn, err := pool.Conn(ctx)
	if err != nil {
		return nil, &TransportError{Cause: err}
	}

	return NewSession(cfg.Engine, dbConn), nil
}

// Close closes every open pool. Sessions already acquired stay usable until
// they are closed.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for id, pool := range r.pools {
		if err := pool.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "closing pool %s", id)
		}
		delete(r.pools, id)
	}
	return firstErr
}

func (r *Registry) poolLocked(ctx context.Context, cfg Config) (*sql.DB, error) {
	if pool, ok := r.pools[cfg.ID]; ok {
		return pool, nil
	}

	dsn := cfg.DSN
	if strings.Contains(dsn, passwordPlaceholder) {
		secret, err := r.creds.Fetch(ctx, cfg.TenantID, cfg.ID, "")
		if err != nil {
			return nil, err
		}
		dsn = strings.ReplaceAll(dsn, passwordPlaceholder, secret)
	}

	pool, err := openPool(cfg.Engine, dsn)
	if err != nil {
		return nil, err
	}
	r.pools[cfg.ID] = pool

	r.log.Debug("opened connection pool",
		zap.String("connection_id", cfg.ID),
		zap.String("engine", string(cfg.Engine)),
	)
	return pool, nil
}

func openPool(engine Engine, dsn string) (*sql.DB, error) {
	switch engine {
	case EngineSQLServer:
		db, err := sql.Open("sqlserver", dsn)
		if err != nil {
			return nil, &TransportError{Cause: err}
		}
		return db, nil
	case EnginePostgres:
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, &TransportError{Cause: err}
		}
		return db, nil
	case EngineClickHouse:
		opts, err := clickhouse.ParseDSN(dsn)
		if err != nil {
			return nil, &TransportError{Cause: err}
		}
		return clickhouse.OpenDB(opts), nil
	default:
		return nil, errors.Errorf("unsupported engine %q", engine)
	}
}
