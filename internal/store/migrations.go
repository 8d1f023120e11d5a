package store

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// migration describes one additive schema change, applied inside its own
// transaction. Schema upgrades are additive only (spec §4.A).
type migration struct {
	Version     int
	Description string
	Up          func(*sql.Tx) error
}

// migrationManager tracks and applies pending migrations, mirroring the
// teacher's internal/db/migrations versioning pattern.
type migrationManager struct {
	db         *sql.DB
	migrations []migration
	log        *logrus.Entry
}

func newMigrationManager(db *sql.DB) *migrationManager {
	return &migrationManager{
		db:         db,
		migrations: allMigrations(),
		log:        logrus.WithField("component", "store-migrations"),
	}
}

func (m *migrationManager) initialize() error {
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}
	return nil
}

func (m *migrationManager) currentVersion() (int, error) {
	var version int
	err := m.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

func (m *migrationManager) migrate(nowMs int64) error {
	if err := m.initialize(); err != nil {
		return err
	}

	current, err := m.currentVersion()
	if err != nil {
		return err
	}

	sort.Slice(m.migrations, func(i, j int) bool { return m.migrations[i].Version < m.migrations[j].Version })

	for _, mig := range m.migrations {
		if mig.Version <= current {
			continue
		}

		tx, err := m.db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", mig.Version, err)
		}

		if err := mig.Up(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %d (%s): %w", mig.Version, mig.Description, err)
		}

		if _, err := tx.Exec(`INSERT INTO schema_version (version, description, applied_at) VALUES (?, ?, ?)`,
			mig.Version, mig.Description, nowMs); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", mig.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", mig.Version, err)
		}

		m.log.WithFields(logrus.Fields{"version": mig.Version, "description": mig.Description}).Info("Applied migration")
	}

	return nil
}

// allMigrations returns the full additive schema history, grounded on
// original_source/crates/shell-sync-core/src/db.rs's init_schema.
func allMigrations() []migration {
	return []migration{
		{
			Version:     1,
			Description: "core tables: machines, aliases, conflicts, sync_audit",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS machines (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						machine_id TEXT NOT NULL UNIQUE,
						hostname TEXT NOT NULL,
						groups TEXT NOT NULL,
						os_type TEXT,
						auth_token TEXT NOT NULL UNIQUE,
						public_key TEXT,
						last_seen INTEGER NOT NULL,
						created_at INTEGER NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_machines_token ON machines(auth_token)`,

					`CREATE TABLE IF NOT EXISTS aliases (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						name TEXT NOT NULL,
						command TEXT NOT NULL,
						group_name TEXT NOT NULL DEFAULT 'default',
						created_by_machine TEXT NOT NULL,
						created_at INTEGER NOT NULL,
						updated_at INTEGER NOT NULL,
						version INTEGER NOT NULL DEFAULT 1,
						UNIQUE(name, group_name)
					)`,
					`CREATE INDEX IF NOT EXISTS idx_aliases_group ON aliases(group_name)`,
					`CREATE INDEX IF NOT EXISTS idx_aliases_name ON aliases(name)`,

					`CREATE TABLE IF NOT EXISTS conflicts (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						alias_name TEXT NOT NULL,
						group_name TEXT NOT NULL,
						local_command TEXT NOT NULL,
						remote_command TEXT NOT NULL,
						machine_id TEXT NOT NULL,
						created_at INTEGER NOT NULL,
						resolved INTEGER NOT NULL DEFAULT 0,
						resolution TEXT
					)`,
					`CREATE INDEX IF NOT EXISTS idx_conflicts_machine ON conflicts(machine_id)`,
					`CREATE INDEX IF NOT EXISTS idx_conflicts_resolved ON conflicts(resolved)`,

					`CREATE TABLE IF NOT EXISTS sync_audit (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						timestamp INTEGER NOT NULL,
						machine_id TEXT NOT NULL,
						action TEXT NOT NULL,
						alias_name TEXT NOT NULL,
						alias_command TEXT,
						group_name TEXT
					)`,
					`CREATE INDEX IF NOT EXISTS idx_sync_audit_timestamp ON sync_audit(timestamp)`,
					`CREATE INDEX IF NOT EXISTS idx_sync_audit_machine ON sync_audit(machine_id)`,
				}
				for _, s := range stmts {
					if _, err := tx.Exec(s); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			Version:     2,
			Description: "shell history and pending-history outbox",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS history (
						id TEXT PRIMARY KEY,
						command TEXT NOT NULL,
						cwd TEXT NOT NULL,
						exit_code INTEGER NOT NULL DEFAULT 0,
						duration_ms INTEGER NOT NULL DEFAULT 0,
						session_id TEXT NOT NULL,
						machine_id TEXT NOT NULL,
						hostname TEXT NOT NULL,
						timestamp INTEGER NOT NULL,
						shell TEXT NOT NULL DEFAULT 'bash',
						group_name TEXT NOT NULL DEFAULT 'default'
					)`,
					`CREATE INDEX IF NOT EXISTS idx_history_timestamp ON history(timestamp)`,
					`CREATE INDEX IF NOT EXISTS idx_history_machine ON history(machine_id)`,
					`CREATE INDEX IF NOT EXISTS idx_history_session ON history(session_id)`,
					`CREATE INDEX IF NOT EXISTS idx_history_cwd ON history(cwd)`,
					`CREATE INDEX IF NOT EXISTS idx_history_group ON history(group_name)`,

					`CREATE TABLE IF NOT EXISTS history_pending (
						id TEXT PRIMARY KEY,
						entry_json TEXT NOT NULL,
						created_at INTEGER NOT NULL
					)`,
				}
				for _, s := range stmts {
					if _, err := tx.Exec(s); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}
