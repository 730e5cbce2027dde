package sqldb

import (
	"context"
	"fmt"
	"time"

	"github.com/absmach/flaas/pkg/project"
	"github.com/jmoiron/sqlx"
)

const requestColumns = `id, round_id, project_id, round_number, devices, created_at, valid_date`

type TrainingRequestRepository struct {
	db *sqlx.DB
}

type dbRequest struct {
	ID          string    `db:"id"`
	RoundID     string    `db:"round_id"`
	ProjectID   string    `db:"project_id"`
	RoundNumber int64     `db:"round_number"`
	Devices     string    `db:"devices"`
	CreatedAt   time.Time `db:"created_at"`
	ValidDate   time.Time `db:"valid_date"`
}

func (r *TrainingRequestRepository) Create(ctx context.Context, tr project.TrainingRequest) error {
	devices, err := jsonList(tr.Devices)
	if err != nil {
		return err
	}

	query := `INSERT INTO training_requests (` + requestColumns + `)
		VALUES (:id, :round_id, :project_id, :round_number, :devices, :created_at, :valid_date)`

	row := dbRequest{
		ID:          tr.ID,
		RoundID:     tr.RoundID,
		ProjectID:   tr.ProjectID,
		RoundNumber: int64(tr.RoundNumber),
		Devices:     devices,
		CreatedAt:   tr.CreatedAt.UTC(),
		ValidDate:   tr.ValidDate.UTC(),
	}
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("%w: %w", ErrCreate, err)
	}

	return nil
}

func (r *TrainingRequestRepository) get(ctx context.Context, query string, arg string) (project.TrainingRequest, error) {
	var row dbRequest
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(query), arg); err != nil {
		return project.TrainingRequest{}, queryErr(err)
	}

	devices, err := parseList(row.Devices)
	if err != nil {
		return project.TrainingRequest{}, err
	}

	return project.TrainingRequest{
		ID:          row.ID,
		RoundID:     row.RoundID,
		ProjectID:   row.ProjectID,
		RoundNumber: uint64(row.RoundNumber),
		Devices:     devices,
		CreatedAt:   row.CreatedAt.UTC(),
		ValidDate:   row.ValidDate.UTC(),
	}, nil
}

func (r *TrainingRequestRepository) Get(ctx context.Context, id string) (project.TrainingRequest, error) {
	return r.get(ctx, `SELECT `+requestColumns+` FROM training_requests WHERE id = ?`, id)
}

func (r *TrainingRequestRepository) GetByRound(ctx context.Context, roundID string) (project.TrainingRequest, error) {
	return r.get(ctx, `SELECT `+requestColumns+` FROM training_requests WHERE round_id = ?`, roundID)
}

func (r *TrainingRequestRepository) DeleteByProject(ctx context.Context, projectID string) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM training_requests WHERE project_id = ?`), projectID); err != nil {
		return fmt.Errorf("%w: %w", ErrDelete, err)
	}

	return nil
}
