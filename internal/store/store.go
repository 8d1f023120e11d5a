// Package store implements the durable, crash-safe state store shared by
// the sync service (machines, aliases, conflicts, sync audit log) and the
// daemon's local database (shell history, pending-history outbox). Every
// operation is serialized by a single exclusive lock over the connection
// handle, per spec §4.A: the per-machine/per-service workload is
// dominated by small transactions, and contention is negligible against
// the simplicity of one serializable writer (spec §5).
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// Store wraps a SQLite connection with the exclusive lock and typed
// operations described in spec §4.A.
type Store struct {
	mu  sync.Mutex
	db  *sql.DB
	log *logrus.Entry
}

// Open opens (creating if absent) the database at path, running
// migrations and recording the schema version.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single exclusive lock already serializes every store operation;
	// cap the pool at one connection so SQLite's own locking never
	// becomes a second point of contention.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, log: logrus.WithField("component", "store")}

	mm := newMigrationManager(db)
	if err := mm.migrate(nowMs()); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s.log.WithField("path", path).Info("State store opened")
	return s, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}
