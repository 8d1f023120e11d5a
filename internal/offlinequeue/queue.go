// Package offlinequeue implements the daemon's local write outbox: alias
// mutations attempted while the service is unreachable are appended here
// and replayed in order once contact is restored (spec §4.C, grounded on
// original_source/crates/shell-sync-client/src/offline.rs).
package offlinequeue

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/shellsync/shellsync/internal/models"
)

// Queue is a durable FIFO of writes pending delivery to the sync service.
// It owns its own SQLite file, independent of the daemon's history store,
// matching the Rust original's separate offline-queue.db.
type Queue struct {
	mu  sync.Mutex
	db  *sql.DB
	log *logrus.Entry
}

// Open opens (creating if absent) the queue database at path.
func Open(path string) (*Queue, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create offline queue directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open offline queue: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS queue (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			action TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create queue table: %w", err)
	}

	return &Queue{db: db, log: logrus.WithField("component", "offline-queue")}, nil
}

// Close releases the underlying connection.
func (q *Queue) Close() error {
	return q.db.Close()
}

// Add appends a write with a JSON-encodable payload.
func (q *Queue) Add(action models.OfflineQueueAction, payload interface{}) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal queue payload: %w", err)
	}

	_, err = q.db.Exec(`INSERT INTO queue (action, payload, created_at) VALUES (?, ?, ?)`,
		string(action), string(body), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("enqueue operation: %w", err)
	}

	q.log.WithField("action", action).Info("Queued offline operation")
	return nil
}

// AddSyncRequest queues a full-sync request, the queue's equivalent of a
// reconnect-triggered reconciliation (spec §4.F).
func (q *Queue) AddSyncRequest() error {
	return q.Add(models.QueueActionSync, struct{}{})
}

// All returns every pending entry in sequence order.
func (q *Queue) All() ([]models.OfflineQueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	rows, err := q.db.Query(`SELECT seq, action, payload, created_at FROM queue ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query queue: %w", err)
	}
	defer rows.Close()

	var out []models.OfflineQueueEntry
	for rows.Next() {
		var e models.OfflineQueueEntry
		var action string
		if err := rows.Scan(&e.Seq, &action, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan queue row: %w", err)
		}
		e.Action = models.OfflineQueueAction(action)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Remove deletes the entry with seq, called after a successful (or
// 409-conflict, which is treated as already-applied) replay.
func (q *Queue) Remove(seq int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	_, err := q.db.Exec(`DELETE FROM queue WHERE seq = ?`, seq)
	if err != nil {
		return fmt.Errorf("remove queue entry: %w", err)
	}
	return nil
}

// PendingCount reports how many writes are waiting to be replayed.
func (q *Queue) PendingCount() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var count int
	if err := q.db.QueryRow(`SELECT COUNT(*) FROM queue`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count queue: %w", err)
	}
	return count, nil
}
