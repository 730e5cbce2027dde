package postgres

import (
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
)

var (
	ErrDBConnection = errors.New("database connection error")
	ErrMigration    = errors.New("database migration error")
)

type Database struct {
	*sqlx.DB
}

func NewDatabase(host, port, user, pass, name, sslMode string) (*Database, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s", host, port, user, pass, name, sslMode)
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDBConnection, err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
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
						id VARCHAR(36) PRIMARY KEY,
						title VARCHAR(255) NOT NULL,
						description TEXT NOT NULL DEFAULT '',
						model VARCHAR(255) NOT NULL,
						dataset VARCHAR(255) NOT NULL,
						dataset_type VARCHAR(32) NOT NULL,
						training_mode VARCHAR(32) NOT NULL,
						status SMALLINT NOT NULL DEFAULT 0,
						number_of_rounds BIGINT NOT NULL,
						number_of_apps BIGINT NOT NULL,
						number_of_samples BIGINT NOT NULL,
						number_of_epochs BIGINT NOT NULL,
						seed BIGINT NOT NULL,
						current_round BIGINT NOT NULL DEFAULT 0,
						responses_ratio_threshold DOUBLE PRECISION NOT NULL,
						max_training_time BIGINT NOT NULL,
						valid_round_training_threshold DOUBLE PRECISION NOT NULL,
						power_plugged_only BOOLEAN NOT NULL,
						battery_level_threshold DOUBLE PRECISION NOT NULL,
						created_at TIMESTAMPTZ NOT NULL,
						updated_at TIMESTAMPTZ NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_projects_status ON projects(status)`,
					`CREATE TABLE IF NOT EXISTS rounds (
						id VARCHAR(36) PRIMARY KEY,
						project_id VARCHAR(36) NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
						round_number BIGINT NOT NULL,
						status SMALLINT NOT NULL DEFAULT 0,
						number_of_samples BIGINT NOT NULL,
						number_of_epochs BIGINT NOT NULL,
						seed BIGINT NOT NULL,
						requested_devices TEXT NOT NULL DEFAULT '[]',
						start_training_date TIMESTAMPTZ,
						stop_training_date TIMESTAMPTZ,
						created_at TIMESTAMPTZ NOT NULL,
						UNIQUE (project_id, round_number)
					)`,
					`CREATE TABLE IF NOT EXISTS training_requests (
						id VARCHAR(36) PRIMARY KEY,
						round_id VARCHAR(36) NOT NULL UNIQUE REFERENCES rounds(id) ON DELETE CASCADE,
						project_id VARCHAR(36) NOT NULL,
						round_number BIGINT NOT NULL,
						devices TEXT NOT NULL DEFAULT '[]',
						created_at TIMESTAMPTZ NOT NULL,
						valid_date TIMESTAMPTZ NOT NULL
					)`,
					`CREATE TABLE IF NOT EXISTS devices (
						id VARCHAR(36) PRIMARY KEY,
						username VARCHAR(255) NOT NULL UNIQUE,
						project_id VARCHAR(36),
						os VARCHAR(32) NOT NULL DEFAULT '',
						model VARCHAR(255) NOT NULL DEFAULT '',
						manufacturer VARCHAR(255) NOT NULL DEFAULT '',
						brand VARCHAR(255) NOT NULL DEFAULT '',
						build_type VARCHAR(255) NOT NULL DEFAULT '',
						incremental VARCHAR(255) NOT NULL DEFAULT '',
						os_version VARCHAR(255) NOT NULL DEFAULT '',
						security_patch VARCHAR(255) NOT NULL DEFAULT '',
						samples_index BIGINT NOT NULL DEFAULT 0,
						samples_downloaded BOOLEAN NOT NULL DEFAULT FALSE,
						created_at TIMESTAMPTZ NOT NULL,
						updated_at TIMESTAMPTZ NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_devices_project_id ON devices(project_id)`,
					`CREATE TABLE IF NOT EXISTS status_reports (
						seq BIGSERIAL PRIMARY KEY,
						id VARCHAR(36) NOT NULL UNIQUE,
						device_id VARCHAR(36) NOT NULL,
						request_type VARCHAR(32) NOT NULL,
						request_id VARCHAR(36),
						ts BIGINT NOT NULL,
						payload TEXT NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_status_reports_device_ts ON status_reports(device_id, ts)`,
					`CREATE INDEX IF NOT EXISTS idx_status_reports_request ON status_reports(request_id)`,
					`CREATE TABLE IF NOT EXISTS joined_rounds (
						device_id VARCHAR(36) NOT NULL,
						round_id VARCHAR(36) NOT NULL REFERENCES rounds(id) ON DELETE CASCADE,
						project_id VARCHAR(36) NOT NULL,
						round_number BIGINT NOT NULL,
						status SMALLINT NOT NULL,
						updated_at TIMESTAMPTZ NOT NULL,
						PRIMARY KEY (device_id, round_id)
					)`,
					`CREATE TABLE IF NOT EXISTS notifications (
						id VARCHAR(36) PRIMARY KEY,
						sent_at TIMESTAMPTZ NOT NULL,
						recipients BIGINT NOT NULL DEFAULT 0
					)`,
				},
				Down: []string{
					`DROP TABLE IF EXISTS notifications`,
					`DROP TABLE IF EXISTS joined_rounds`,
					`DROP TABLE IF EXISTS status_reports`,
					`DROP TABLE IF EXISTS devices`,
					`DROP TABLE IF EXISTS training_requests`,
					`DROP TABLE IF EXISTS rounds`,
					`DROP TABLE IF EXISTS projects`,
				},
			},
		},
	}

	if _, err := migrate.Exec(db.DB.DB, "postgres", migrations, migrate.Up); err != nil {
		return fmt.Errorf("%w: %w", ErrMigration, err)
	}

	return nil
}
