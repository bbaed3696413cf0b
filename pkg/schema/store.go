package schema

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dbwarden/warden/pkg/consts"
	"github.com/pkg/errors"
)

// ErrNoSnapshots indicates that a connection has no persisted snapshots.
var ErrNoSnapshots = errors.New("no snapshots found")

// Store persists snapshots as canonical JSON files under
// <dir>/<connection_id>/<snapshot_id>.json.
type Store struct {
	dir string
}

// NewStore creates a snapshot store rooted at dir. The directory is created
// lazily on first save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Save writes the snapshot to disk and returns the file path. The file ends
// with a single LF.
func (s *Store) Save(snap *Snapshot) (string, error) {
	data, err := snap.MarshalCanonical()
	if err != nil {
		return "", err
	}

	dir := filepath.Join(s.dir, snap.ConnectionID)
	if err := os.MkdirAll(dir, consts.ModeDir); err != nil {
		return "", errors.Wrapf(err, "creating snapshot directory %s", dir)
	}

	path := filepath.Join(dir, snap.ID+".json")
	if err := os.WriteFile(path, append(data, '\n'), consts.ModeFile); err != nil {
		return "", errors.Wrapf(err, "writing snapshot %s", path)
	}

	return path, nil
}

// Load reads and verifies a single snapshot by connection and id.
func (s *Store) Load(connectionID, id string) (*Snapshot, error) {
	path := filepath.Join(s.dir, connectionID, id+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading snapshot %s", path)
	}

	return UnmarshalSnapshot(data)
}

// LoadFile reads and verifies a snapshot from an explicit file path.
func (s *Store) LoadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading snapshot %s", path)
	}

	return UnmarshalSnapshot(data)
}

// List returns all snapshots for a connection, newest first.
func (s *Store) List(connectionID string) ([]*Snapshot, error) {
	dir := filepath.Join(s.dir, connectionID)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "listing snapshots in %s", dir)
	}

	snapshots := make([]*Snapshot, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		snap, err := s.LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}

	sort.SliceStable(snapshots, func(i, j int) bool {
		return snapshots[i].CreatedAt.After(snapshots[j].CreatedAt)
	})

	return snapshots, nil
}

// Latest returns the most recent snapshot for a connection, or ErrNoSnapshots
// when none exist.
func (s *Store) Latest(connectionID string) (*Snapshot, error) {
	snapshots, err := s.List(connectionID)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, errors.Wrapf(ErrNoSnapshots, "connection %s", connectionID)
	}

	return snapshots[0], nil
}
