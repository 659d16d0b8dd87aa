package store

import (
	"database/sql"
	"fmt"
	"log"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS meshes (
    uuid TEXT PRIMARY KEY,
    name TEXT,
    coord_sys INTEGER NOT NULL,
    num_nodes INTEGER NOT NULL,
    num_cells INTEGER NOT NULL,
    fingerprint INTEGER NOT NULL,
    points BLOB NOT NULL,
    cells BLOB NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS boundary_arcs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    mesh_uuid TEXT NOT NULL REFERENCES meshes(uuid),
    arc_idx INTEGER NOT NULL,
    type INTEGER NOT NULL,
    bc_option INTEGER NOT NULL,
    tang_slip BOOLEAN DEFAULT FALSE,
    galerkin BOOLEAN DEFAULT FALSE,
    partner INTEGER DEFAULT -1,
    nodes BLOB NOT NULL,
    UNIQUE(mesh_uuid, arc_idx)
);

CREATE TABLE IF NOT EXISTS datasets (
    uuid TEXT PRIMARY KEY,
    mesh_uuid TEXT NOT NULL REFERENCES meshes(uuid),
    name TEXT NOT NULL,
    num_components INTEGER NOT NULL,
    null_value REAL NOT NULL,
    time_units TEXT,
    extreme BOOLEAN DEFAULT FALSE,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS dataset_timesteps (
    dataset_uuid TEXT NOT NULL REFERENCES datasets(uuid),
    step_idx INTEGER NOT NULL,
    time REAL NOT NULL,
    data BLOB NOT NULL,
    PRIMARY KEY (dataset_uuid, step_idx)
);

CREATE TABLE IF NOT EXISTS model_config (
    mesh_uuid TEXT NOT NULL REFERENCES meshes(uuid),
    key TEXT NOT NULL,
    value REAL NOT NULL,
    PRIMARY KEY (mesh_uuid, key)
);

CREATE INDEX IF NOT EXISTS idx_datasets_mesh ON datasets(mesh_uuid);
CREATE INDEX IF NOT EXISTS idx_arcs_mesh ON boundary_arcs(mesh_uuid);
`,
	},
}

func (s *Store) Migrate() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}

		log.Printf("migrations: applying %d - %s", m.Version, m.Description)

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Description, time.Now().UTC(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

func (s *Store) ensureMigrationsTable() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS schema_migrations (
    version INTEGER PRIMARY KEY,
    description TEXT,
    applied_at DATETIME
)`)
	return err
}

func (s *Store) getAppliedMigrations() (map[int]bool, error) {
	rows, err := s.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// MigrationVersion returns the highest applied migration version.
func (s *Store) MigrationVersion() (int, error) {
	var v sql.NullInt64
	err := s.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&v)
	if err != nil {
		return 0, err
	}
	return int(v.Int64), nil
}
