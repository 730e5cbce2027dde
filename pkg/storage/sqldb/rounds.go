package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/absmach/flaas/pkg/project"
	"github.com/jmoiron/sqlx"
)

const roundColumns = `id, project_id, round_number, status, number_of_samples, number_of_epochs, seed,
	requested_devices, start_training_date, stop_training_date, created_at`

type RoundRepository struct {
	db *sqlx.DB
}

type dbRound struct {
	ID                string       `db:"id"`
	ProjectID         string       `db:"project_id"`
	Number            int64        `db:"round_number"`
	Status            int64        `db:"status"`
	NumberOfSamples   int64        `db:"number_of_samples"`
	NumberOfEpochs    int64        `db:"number_of_epochs"`
	Seed              int64        `db:"seed"`
	RequestedDevices  string       `db:"requested_devices"`
	StartTrainingDate sql.NullTime `db:"start_training_date"`
	StopTrainingDate  sql.NullTime `db:"stop_training_date"`
	CreatedAt         time.Time    `db:"created_at"`
}

func toDBRound(r project.Round) (dbRound, error) {
	requested, err := jsonList(r.RequestedDevices)
	if err != nil {
		return dbRound{}, err
	}

	return dbRound{
		ID:                r.ID,
		ProjectID:         r.ProjectID,
		Number:            int64(r.Number),
		Status:            int64(r.Status),
		NumberOfSamples:   int64(r.NumberOfSamples),
		NumberOfEpochs:    int64(r.NumberOfEpochs),
		Seed:              r.Seed,
		RequestedDevices:  requested,
		StartTrainingDate: nullTime(r.StartTrainingDate),
		StopTrainingDate:  nullTime(r.StopTrainingDate),
		CreatedAt:         r.CreatedAt.UTC(),
	}, nil
}

func (dbr dbRound) toRound() (project.Round, error) {
	requested, err := parseList(dbr.RequestedDevices)
	if err != nil {
		return project.Round{}, err
	}

	return project.Round{
		ID:                dbr.ID,
		ProjectID:         dbr.ProjectID,
		Number:            uint64(dbr.Number),
		Status:            project.RoundStatus(dbr.Status),
		NumberOfSamples:   uint64(dbr.NumberOfSamples),
		NumberOfEpochs:    uint64(dbr.NumberOfEpochs),
		Seed:              dbr.Seed,
		RequestedDevices:  requested,
		StartTrainingDate: fromNull(dbr.StartTrainingDate),
		StopTrainingDate:  fromNull(dbr.StopTrainingDate),
		CreatedAt:         dbr.CreatedAt.UTC(),
	}, nil
}

func (r *RoundRepository) Create(ctx context.Context, rnd project.Round) (project.Round, error) {
	row, err := toDBRound(rnd)
	if err != nil {
		return project.Round{}, err
	}

	query := `INSERT INTO rounds (` + roundColumns + `)
		VALUES (:id, :project_id, :round_number, :status, :number_of_samples, :number_of_epochs, :seed,
		:requested_devices, :start_training_date, :stop_training_date, :created_at)`

	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return project.Round{}, fmt.Errorf("%w: %w", ErrCreate, err)
	}

	return rnd, nil
}

func (r *RoundRepository) get(ctx context.Context, query string, args ...any) (project.Round, error) {
	var row dbRound
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(query), args...); err != nil {
		return project.Round{}, queryErr(err)
	}

	return row.toRound()
}

func (r *RoundRepository) Get(ctx context.Context, projectID string, number uint64) (project.Round, error) {
	return r.get(ctx, `SELECT `+roundColumns+` FROM rounds WHERE project_id = ? AND round_number = ?`, projectID, int64(number))
}

func (r *RoundRepository) Latest(ctx context.Context, projectID string) (project.Round, error) {
	return r.get(ctx, `SELECT `+roundColumns+` FROM rounds WHERE project_id = ? ORDER BY round_number DESC LIMIT 1`, projectID)
}

func (r *RoundRepository) Update(ctx context.Context, rnd project.Round) error {
	row, err := toDBRound(rnd)
	if err != nil {
		return err
	}

	query := `UPDATE rounds SET
		status = :status,
		requested_devices = :requested_devices,
		start_training_date = :start_training_date,
		stop_training_date = :stop_training_date
		WHERE id = :id`

	res, err := r.db.NamedExecContext(ctx, query, row)

	return affected(res, err, ErrUpdate)
}

func (r *RoundRepository) List(ctx context.Context, projectID string) ([]project.Round, error) {
	query := r.db.Rebind(`SELECT ` + roundColumns + ` FROM rounds WHERE project_id = ? ORDER BY round_number`)

	var rows []dbRound
	if err := r.db.SelectContext(ctx, &rows, query, projectID); err != nil {
		return nil, queryErr(err)
	}

	rounds := make([]project.Round, 0, len(rows))
	for _, row := range rows {
		rnd, err := row.toRound()
		if err != nil {
			return nil, err
		}
		rounds = append(rounds, rnd)
	}

	return rounds, nil
}

func (r *RoundRepository) CountByStatus(ctx context.Context, projectID string, status project.RoundStatus) (uint64, error) {
	query := r.db.Rebind(`SELECT COUNT(*) FROM rounds WHERE project_id = ? AND status = ?`)

	var n uint64
	if err := r.db.GetContext(ctx, &n, query, projectID, int64(status)); err != nil {
		return 0, queryErr(err)
	}

	return n, nil
}

func (r *RoundRepository) DeleteByProject(ctx context.Context, projectID string) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM rounds WHERE project_id = ?`), projectID); err != nil {
		return fmt.Errorf("%w: %w", ErrDelete, err)
	}

	return nil
}
