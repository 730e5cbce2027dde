package storage

import (
	"fmt"
	"io"

	"github.com/absmach/flaas/pkg/storage/postgres"
	"github.com/absmach/flaas/pkg/storage/sqldb"
	"github.com/absmach/flaas/pkg/storage/sqlite"
)

type Config struct {
	Type string `env:"MANAGER_STORAGE_TYPE" envDefault:"memory"`

	PostgresHost    string `env:"MANAGER_POSTGRES_HOST"    envDefault:"localhost"`
	PostgresPort    string `env:"MANAGER_POSTGRES_PORT"    envDefault:"5432"`
	PostgresUser    string `env:"MANAGER_POSTGRES_USER"    envDefault:"flaas"`
	PostgresPass    string `env:"MANAGER_POSTGRES_PASS"    envDefault:"flaas"`
	PostgresDB      string `env:"MANAGER_POSTGRES_DB"      envDefault:"flaas"`
	PostgresSSLMode string `env:"MANAGER_POSTGRES_SSLMODE" envDefault:"disable"`

	SQLitePath string `env:"MANAGER_SQLITE_PATH" envDefault:"./flaas.db"`
}

type Repositories struct {
	Projects         ProjectRepository
	Rounds           RoundRepository
	TrainingRequests TrainingRequestRepository
	Devices          DeviceRepository
	StatusReports    StatusReportRepository
	JoinedRounds     JoinedRoundRepository
	Notifications    NotificationRepository
	// Closer closes the underlying database connection.
	// It is nil for the in-memory backend.
	Closer io.Closer
}

func NewRepositories(cfg Config) (*Repositories, error) {
	switch cfg.Type {
	case "postgres":
		db, err := postgres.NewDatabase(
			cfg.PostgresHost,
			cfg.PostgresPort,
			cfg.PostgresUser,
			cfg.PostgresPass,
			cfg.PostgresDB,
			cfg.PostgresSSLMode,
		)
		if err != nil {
			return nil, err
		}

		return fromSQL(sqldb.NewRepositories(db.DB), db), nil
	case "sqlite":
		db, err := sqlite.NewDatabase(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}

		return fromSQL(sqldb.NewRepositories(db.DB), db), nil
	case "memory":
		return NewInMemoryRepositories(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, cfg.Type)
	}
}

func NewInMemoryRepositories() *Repositories {
	return &Repositories{
		Projects:         NewInMemoryProjectRepository(),
		Rounds:           NewInMemoryRoundRepository(),
		TrainingRequests: NewInMemoryTrainingRequestRepository(),
		Devices:          NewInMemoryDeviceRepository(),
		StatusReports:    NewInMemoryStatusReportRepository(),
		JoinedRounds:     NewInMemoryJoinedRoundRepository(),
		Notifications:    NewInMemoryNotificationRepository(),
	}
}

func fromSQL(repos *sqldb.Repositories, closer io.Closer) *Repositories {
	return &Repositories{
		Projects:         repos.Projects,
		Rounds:           repos.Rounds,
		TrainingRequests: repos.TrainingRequests,
		Devices:          repos.Devices,
		StatusReports:    repos.StatusReports,
		JoinedRounds:     repos.JoinedRounds,
		Notifications:    repos.Notifications,
		Closer:           closer,
	}
}
