package sqlite

import (
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	migrate "github.com/rubenv/sql-migrate"
)

var (
	ErrDBConnection = errors.New("database connection error")
	ErrMigration    = errors.New("database migration error")
)

type Database struct {
	*sqlx.DB
}

func NewDatabase(path string) (*Database, error) {
	db, err := sqlx.Connect("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDBConnection, err)
	}

	// A single writer avoids SQLITE_BUSY under concurrent ingestion.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	database := &Database{DB: db}

	if err := database.Migrate(); err != nil {
		db.Close()

		return nil, err
	}

	return database, nil
}

func (db *Database) Migrate() error {
	migrations := &migrate.MemoryMigrationSource{
		Migrations: []*migrate.Migration{
			{
				Id: "1_create_tables",
				Up: []string{
					`CREATE TABLE IF NOT EXISTS projects (
						id TEXT PRIMARY KEY,
						title TEXT NOT NULL,
						description TEXT NOT NULL DEFAULT '',
						model TEXT NOT NULL,
						dataset TEXT NOT NULL,
						dataset_type TEXT NOT NULL,
						training_mode TEXT NOT NULL,
						status INTEGER NOT NULL DEFAULT 0,
						number_of_rounds INTEGER NOT NULL,
						number_of_apps INTEGER NOT NULL,
						number_of_samples INTEGER NOT NULL,
						number_of_epochs INTEGER NOT NULL,
						seed INTEGER NOT NULL,
						current_round INTEGER NOT NULL DEFAULT 0,
						responses_ratio_threshold REAL NOT NULL,
						max_training_time INTEGER NOT NULL,
						valid_round_training_threshold REAL NOT NULL,
						power_plugged_only BOOLEAN NOT NULL,
						battery_level_threshold REAL NOT NULL,
						created_at TIMESTAMP NOT NULL,
						updated_at TIMESTAMP NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_projects_status ON projects(status)`,
					`CREATE TABLE IF NOT EXISTS rounds (
						id TEXT PRIMARY KEY,
						project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
						round_number INTEGER NOT NULL,
						status INTEGER NOT NULL DEFAULT 0,
						number_of_samples INTEGER NOT NULL,
						number_of_epochs INTEGER NOT NULL,
						seed INTEGER NOT NULL,
						requested_devices TEXT NOT NULL DEFAULT '[]',
						start_training_date TIMESTAMP,
						stop_training_date TIMESTAMP,
						created_at TIMESTAMP NOT NULL,
						UNIQUE (project_id, round_number)
					)`,
					`CREATE TABLE IF NOT EXISTS training_requests (
						id TEXT PRIMARY KEY,
						round_id TEXT NOT NULL UNIQUE REFERENCES rounds(id) ON DELETE CASCADE,
						project_id TEXT NOT NULL,
						round_number INTEGER NOT NULL,
						devices TEXT NOT NULL DEFAULT '[]',
						created_at TIMESTAMP NOT NULL,
						valid_date TIMESTAMP NOT NULL
					)`,
					`CREATE TABLE IF NOT EXISTS devices (
						id TEXT PRIMARY KEY,
						username TEXT NOT NULL UNIQUE,
						project_id TEXT,
						os TEXT NOT NULL DEFAULT '',
						model TEXT NOT NULL DEFAULT '',
						manufacturer TEXT NOT NULL DEFAULT '',
						brand TEXT NOT NULL DEFAULT '',
						build_type TEXT NOT NULL DEFAULT '',
						incremental TEXT NOT NULL DEFAULT '',
						os_version TEXT NOT NULL DEFAULT '',
						security_patch TEXT NOT NULL DEFAULT '',
						samples_index INTEGER NOT NULL DEFAULT 0,
						samples_downloaded BOOLEAN NOT NULL DEFAULT 0,
						created_at TIMESTAMP NOT NULL,
						updated_at TIMESTAMP NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_devices_project_id ON devices(project_id)`,
					`CREATE TABLE IF NOT EXISTS status_reports (
						seq INTEGER PRIMARY KEY AUTOINCREMENT,
						id TEXT NOT NULL UNIQUE,
						device_id TEXT NOT NULL,
						request_type TEXT NOT NULL,
						request_id TEXT,
						ts INTEGER NOT NULL,
						payload TEXT NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_status_reports_device_ts ON status_reports(device_id, ts)`,
					`CREATE INDEX IF NOT EXISTS idx_status_reports_request ON status_reports(request_id)`,
					`CREATE TABLE IF NOT EXISTS joined_rounds (
						device_id TEXT NOT NULL,
						round_id TEXT NOT NULL REFERENCES rounds(id) ON DELETE CASCADE,
						project_id TEXT NOT NULL,
						round_number INTEGER NOT NULL,
						status INTEGER NOT NULL,
						updated_at TIMESTAMP NOT NULL,
						PRIMARY KEY (device_id, round_id)
					)`,
					`CREATE TABLE IF NOT EXISTS notifications (
						id TEXT PRIMARY KEY,
						sent_at TIMESTAMP NOT NULL,
						recipients INTEGER NOT NULL DEFAULT 0
					)`,
				},
				Down: []string{
					`DROP TABLE IF EXISTS notifications`,
					`DROP TABLE IF EXISTS joined_rounds`,
					`DROP INDEX IF EXISTS idx_status_reports_request`,
					`DROP INDEX IF EXISTS idx_status_reports_device_ts`,
					`DROP TABLE IF EXISTS status_reports`,
					`DROP INDEX IF EXISTS idx_devices_project_id`,
					`DROP TABLE IF EXISTS devices`,
					`DROP TABLE IF EXISTS training_requests`,
					`DROP TABLE IF EXISTS rounds`,
					`DROP INDEX IF EXISTS idx_projects_status`,
					`DROP TABLE IF EXISTS projects`,
				},
			},
		},
	}

	if _, err := migrate.Exec(db.DB.DB, "sqlite3", migrations, migrate.Up); err != nil {
		return fmt.Errorf("%w: %w", ErrMigration, err)
	}

	return nil
}
