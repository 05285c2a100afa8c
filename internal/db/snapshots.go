package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"transit-router/internal/snapshot"
)

const createSnapshotsTable = `
CREATE TABLE IF NOT EXISTS routing_snapshots (
  id         uuid PRIMARY KEY,
  name       text NOT NULL,
  created_at timestamptz NOT NULL,
  payload    bytea NOT NULL
);
CREATE INDEX IF NOT EXISTS routing_snapshots_name_created_idx
  ON routing_snapshots (name, created_at DESC)`

// SnapshotStore keeps every saved snapshot as a row; Load returns the newest
// one for a name.
type SnapshotStore struct {
	db *sql.DB
}

func NewSnapshotStore(db *sql.DB) *SnapshotStore { return &SnapshotStore{db: db} }

// EnsureSchema creates the snapshots table if it does not exist.
func (s *SnapshotStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createSnapshotsTable); err != nil {
		return fmt.Errorf("create routing_snapshots: %w", err)
	}
	return nil
}

func (s *SnapshotStore) Save(ctx context.Context, name string, data []byte) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("snapshot name is required")
	}
	q := `INSERT INTO routing_snapshots (id, name, created_at, payload) VALUES ($1, $2, $3, $4)`
	if _, err := s.db.ExecContext(ctx, q, uuid.New(), name, time.Now().UTC(), data); err != nil {
		return fmt.Errorf("insert snapshot %q: %w", name, err)
	}
	return nil
}

func (s *SnapshotStore) Load(ctx context.Context, name string) ([]byte, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("snapshot name is required")
	}
	q := `
SELECT payload
FROM routing_snapshots
WHERE name = $1
ORDER BY created_at DESC
LIMIT 1`
	var payload []byte
	if err := s.db.QueryRowContext(ctx, q, name).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %q", snapshot.ErrNotFound, name)
		}
		return nil, fmt.Errorf("query snapshot %q: %w", name, err)
	}
	return payload, nil
}

var _ snapshot.Store = (*SnapshotStore)(nil)
