package database

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// Migration is one versioned schema change.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations holds the full schema history in version order. Amounts are
// stored as exact decimal strings, never floats; report membership lives
// only on the receipt row.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_reports",
		SQL: `
			CREATE TABLE IF NOT EXISTS reports (
				id             TEXT PRIMARY KEY,
				title          TEXT NOT NULL,
				status         TEXT NOT NULL DEFAULT 'draft',
				currency       TEXT NOT NULL,
				start_date     DATETIME,
				end_date       DATETIME,
				approver_email TEXT,
				submitted_at   DATETIME,
				created_at     DATETIME NOT NULL
			);
		`,
	},
	{
		Version: 2,
		Name:    "create_receipts",
		SQL: `
			CREATE TABLE IF NOT EXISTS receipts (
				id         TEXT PRIMARY KEY,
				image_ref  TEXT NOT NULL DEFAULT '',
				merchant   TEXT,
				tx_date    DATETIME,
				amount     TEXT,
				currency   TEXT,
				category   TEXT,
				note       TEXT,
				status     TEXT NOT NULL DEFAULT 'pending',
				report_id  TEXT REFERENCES reports(id),
				created_at DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_receipts_report_id ON receipts(report_id);
			CREATE INDEX IF NOT EXISTS idx_receipts_status ON receipts(status);
		`,
	},
}

// Migrator applies pending schema migrations.
type Migrator struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMigrator creates a new migrator.
func NewMigrator(db *sql.DB, logger *zap.Logger) *Migrator {
	return &Migrator{db: db, logger: logger}
}

// Run applies every migration that has not been applied yet, each in its own
// transaction.
func (m *Migrator) Run() error {
	if err := m.createMigrationsTable(); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	applied, err := m.appliedVersions()
	if err != nil {
		return fmt.Errorf("load applied migrations: %w", err)
	}

	for _, migration := range migrations {
		if applied[migration.Version] {
			continue
		}

		tx, err := m.db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", migration.Version, err)
		}
		if _, err := tx.Exec(migration.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d (%s): %w", migration.Version, migration.Name, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
			migration.Version, migration.Name,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", migration.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", migration.Version, err)
		}

		m.logger.Info("migration applied",
			zap.Int("version", migration.Version),
			zap.String("name", migration.Name))
	}
	return nil
}

func (m *Migrator) createMigrationsTable() error {
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}

func (m *Migrator) appliedVersions() (map[int]bool, error) {
	rows, err := m.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}
