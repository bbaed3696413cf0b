package config

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/dbwarden/warden/pkg/audit"
	"github.com/dbwarden/warden/pkg/conn"
	"github.com/dbwarden/warden/pkg/migrate"
	"github.com/dbwarden/warden/pkg/orchestrator"
)

// DefaultFile is the config file name looked up in the working directory.
const DefaultFile = "warden.yaml"

const defaultSnapshotDir = ".warden/snapshots"

type (
	// Connection describes one target database.
	Connection struct {
		ID       string `yaml:"id"`
		Engine   string `yaml:"engine"`
		DSN      string `yaml:"dsn"`
		Password string `yaml:"password,omitempty"`
	}

	// Schedule defines a cron-driven check run.
	Schedule struct {
		Name         string   `yaml:"name"`
		ConnectionID string   `yaml:"connection_id"`
		Cron         string   `yaml:"cron"`
		Checks       []string `yaml:"checks"`
	}

	// DeploymentHook defines checks that run around deployments.
	DeploymentHook struct {
		Name      string   `yaml:"name"`
		Checks    []string `yaml:"checks"`
		RunBefore bool     `yaml:"run_before"`
		RunAfter  bool     `yaml:"run_after"`
	}

	// Config is the project configuration loaded from warden.yaml.
	Config struct {
		TenantID         string              `yaml:"tenant_id"`
		SnapshotDir      string              `yaml:"snapshot_dir"`
		MigrationDialect string              `yaml:"migration_dialect"`
		Connections      []Connection        `yaml:"connections"`
		Orchestrator     orchestrator.Config `yaml:"orchestrator"`
		Audit            audit.Config        `yaml:"audit"`
		Schedules        []Schedule          `yaml:"schedules"`
		Deployments      []DeploymentHook    `yaml:"deployment_triggers"`
	}
)

// LoadConfig parses a warden configuration from the reader, applies
// defaults, and validates it. Invalid engines, dialects, and cron
// expressions are rejected here rather than at first use.
func LoadConfig(r io.Reader) (*Config, error) {
	var cfg Config
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}

	if cfg.TenantID == "" {
		return nil, errors.New("config requires tenant_id")
	}
	if cfg.SnapshotDir == "" {
		cfg.SnapshotDir = defaultSnapshotDir
	}
	if cfg.MigrationDialect == "" {
		cfg.MigrationDialect = string(migrate.DialectPostgres)
	}
	if _, err := migrate.ParseDialect(cfg.MigrationDialect); err != nil {
		return nil, err
	}
	if cfg.Orchestrator.TenantID == "" {
		cfg.Orchestrator.TenantID = cfg.TenantID
	}

	seen := make(map[string]struct{}, len(cfg.Connections))
	for i, c := range cfg.Connections {
		if c.ID == "" {
			return nil, errors.Errorf("connection %d has no id", i)
		}
		if _, dup := seen[c.ID]; dup {
			return nil, errors.Errorf("duplicate connection id %q", c.ID)
		}
		seen[c.ID] = struct{}{}

		if _, err := conn.ParseEngine(c.Engine); err != nil {
			return nil, errors.Wrapf(err, "connection %s", c.ID)
		}
		if c.DSN == "" {
			return nil, errors.Errorf("connection %s has no dsn", c.ID)
		}
	}

	for _, s := range cfg.Schedules {
		if s.Name == "" {
			return nil, errors.New("schedule requires a name")
		}
		if _, ok := seen[s.ConnectionID]; !ok {
			return nil, errors.Errorf("schedule %s references unknown connection %q", s.Name, s.ConnectionID)
		}
		if _, err := cron.ParseStandard(s.Cron); err != nil {
			return nil, errors.Wrapf(err, "schedule %s has invalid cron %q", s.Name, s.Cron)
		}
	}

	return &cfg, nil
}

// LoadConfigFile loads a configuration from the given path.
func LoadConfigFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer func() { _ = f.Close() }()

	return LoadConfig(f)
}

// ConnConfigs converts the configured connections into conn registry
// configs. Engines were validated at load time.
func (c *Config) ConnConfigs() []conn.Config {
	out := make([]conn.Config, 0, len(c.Connections))
	for _, cc := range c.Connections {
		engine, _ := conn.ParseEngine(cc.Engine)
		out = append(out, conn.Config{
			ID:       cc.ID,
			TenantID: c.TenantID,
			Engine:   engine,
			DSN:      cc.DSN,
		})
	}
	return out
}

// Credentials builds a static credential table from passwords embedded in
// the config.
func (c *Config) Credentials() *conn.StaticCredential {
	creds := conn.NewStaticCredential()
	for _, cc := range c.Connections {
		if cc.Password != "" {
			creds.Add(c.TenantID, cc.ID, cc.Password)
		}
	}
	return creds
}

// Dialect returns the validated migration dialect.
func (c *Config) Dialect() migrate.Dialect {
	d, _ := migrate.ParseDialect(c.MigrationDialect)
	return d
}
