package sqldb

import (
	"context"
	"fmt"
	"time"

	"github.com/absmach/flaas/pkg/project"
	"github.com/jmoiron/sqlx"
)

const projectColumns = `id, title, description, model, dataset, dataset_type, training_mode, status,
	number_of_rounds, number_of_apps, number_of_samples, number_of_epochs, seed, current_round,
	responses_ratio_threshold, max_training_time, valid_round_training_threshold,
	power_plugged_only, battery_level_threshold, created_at, updated_at`

type ProjectRepository struct {
	db *sqlx.DB
}

type dbProject struct {
	ID                          string    `db:"id"`
	Title                       string    `db:"title"`
	Description                 string    `db:"description"`
	Model                       string    `db:"model"`
	Dataset                     string    `db:"dataset"`
	DatasetType                 string    `db:"dataset_type"`
	TrainingMode                string    `db:"training_mode"`
	Status                      int64     `db:"status"`
	NumberOfRounds              int64     `db:"number_of_rounds"`
	NumberOfApps                int64     `db:"number_of_apps"`
	NumberOfSamples             int64     `db:"number_of_samples"`
	NumberOfEpochs              int64     `db:"number_of_epochs"`
	Seed                        int64     `db:"seed"`
	CurrentRound                int64     `db:"current_round"`
	ResponsesRatioThreshold     float64   `db:"responses_ratio_threshold"`
	MaxTrainingTime             int64     `db:"max_training_time"`
	ValidRoundTrainingThreshold float64   `db:"valid_round_training_threshold"`
	PowerPluggedOnly            bool      `db:"power_plugged_only"`
	BatteryLevelThreshold       float64   `db:"battery_level_threshold"`
	CreatedAt                   time.Time `db:"created_at"`
	UpdatedAt                   time.Time `db:"updated_at"`
}

func toDBProject(p project.Project) dbProject {
	return dbProject{
		ID:                          p.ID,
		Title:                       p.Title,
		Description:                 p.Description,
		Model:                       p.Model,
		Dataset:                     p.Dataset,
		DatasetType:                 string(p.DatasetType),
		TrainingMode:                string(p.TrainingMode),
		Status:                      int64(p.Status),
		NumberOfRounds:              int64(p.NumberOfRounds),
		NumberOfApps:                int64(p.NumberOfApps),
		NumberOfSamples:             int64(p.NumberOfSamples),
		NumberOfEpochs:              int64(p.NumberOfEpochs),
		Seed:                        p.Seed,
		CurrentRound:                int64(p.CurrentRound),
		ResponsesRatioThreshold:     p.ResponsesRatioThreshold,
		MaxTrainingTime:             int64(p.MaxTrainingTime),
		ValidRoundTrainingThreshold: p.ValidRoundTrainingThreshold,
		PowerPluggedOnly:            p.PowerPluggedOnly,
		BatteryLevelThreshold:       p.BatteryLevelThreshold,
		CreatedAt:                   p.CreatedAt.UTC(),
		UpdatedAt:                   p.UpdatedAt.UTC(),
	}
}

func (dbp dbProject) toProject() project.Project {
	return project.Project{
		ID:                          dbp.ID,
		Title:                       dbp.Title,
		Description:                 dbp.Description,
		Model:                       dbp.Model,
		Dataset:                     dbp.Dataset,
		DatasetType:                 project.DatasetType(dbp.DatasetType),
		TrainingMode:                project.TrainingMode(dbp.TrainingMode),
		Status:                      project.Status(dbp.Status),
		NumberOfRounds:              uint64(dbp.NumberOfRounds),
		NumberOfApps:                uint64(dbp.NumberOfApps),
		NumberOfSamples:             uint64(dbp.NumberOfSamples),
		NumberOfEpochs:              uint64(dbp.NumberOfEpochs),
		Seed:                        dbp.Seed,
		CurrentRound:                uint64(dbp.CurrentRound),
		ResponsesRatioThreshold:     dbp.ResponsesRatioThreshold,
		MaxTrainingTime:             uint64(dbp.MaxTrainingTime),
		ValidRoundTrainingThreshold: dbp.ValidRoundTrainingThreshold,
		PowerPluggedOnly:            dbp.PowerPluggedOnly,
		BatteryLevelThreshold:       dbp.BatteryLevelThreshold,
		CreatedAt:                   dbp.CreatedAt.UTC(),
		UpdatedAt:                   dbp.UpdatedAt.UTC(),
	}
}

func (r *ProjectRepository) Create(ctx context.Context, p project.Project) (project.Project, error) {
	query := `INSERT INTO projects (` + projectColumns + `)
		VALUES (:id, :title, :description, :model, :dataset, :dataset_type, :training_mode, :status,
		:number_of_rounds, :number_of_apps, :number_of_samples, :number_of_epochs, :seed, :current_round,
		:responses_ratio_threshold, :max_training_time, :valid_round_training_threshold,
		:power_plugged_only, :battery_level_threshold, :created_at, :updated_at)`

	if _, err := r.db.NamedExecContext(ctx, query, toDBProject(p)); err != nil {
		return project.Project{}, fmt.Errorf("%w: %w", ErrCreate, err)
	}

	return p, nil
}

func (r *ProjectRepository) Get(ctx context.Context, id string) (project.Project, error) {
	query := r.db.Rebind(`SELECT ` + projectColumns + ` FROM projects WHERE id = ?`)

	var dbp dbProject
	if err := r.db.GetContext(ctx, &dbp, query, id); err != nil {
		return project.Project{}, queryErr(err)
	}

	return dbp.toProject(), nil
}

func (r *ProjectRepository) Update(ctx context.Context, p project.Project) error {
	query := `UPDATE projects SET
		title = :title,
		description = :description,
		model = :model,
		dataset = :dataset,
		dataset_type = :dataset_type,
		training_mode = :training_mode,
		status = :status,
		number_of_rounds = :number_of_rounds,
		number_of_apps = :number_of_apps,
		number_of_samples = :number_of_samples,
		number_of_epochs = :number_of_epochs,
		seed = :seed,
		current_round = :current_round,
		responses_ratio_threshold = :responses_ratio_threshold,
		max_training_time = :max_training_time,
		valid_round_training_threshold = :valid_round_training_threshold,
		power_plugged_only = :power_plugged_only,
		battery_level_threshold = :battery_level_threshold,
		updated_at = :updated_at
		WHERE id = :id`

	res, err := r.db.NamedExecContext(ctx, query, toDBProject(p))

	return affected(res, err, ErrUpdate)
}

func (r *ProjectRepository) List(ctx context.Context, offset, limit uint64) ([]project.Project, uint64, error) {
	var total uint64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM projects`); err != nil {
		return nil, 0, queryErr(err)
	}

	query := r.db.Rebind(`SELECT ` + projectColumns + ` FROM projects ORDER BY created_at, id LIMIT ? OFFSET ?`)

	var rows []dbProject
	if err := r.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, 0, queryErr(err)
	}

	projects := make([]project.Project, 0, len(rows))
	for _, row := range rows {
		projects = append(projects, row.toProject())
	}

	return projects, total, nil
}

func (r *ProjectRepository) ListByStatus(ctx context.Context, status project.Status) ([]project.Project, error) {
	query := r.db.Rebind(`SELECT ` + projectColumns + ` FROM projects WHERE status = ? ORDER BY created_at, id`)

	var rows []dbProject
	if err := r.db.SelectContext(ctx, &rows, query, int64(status)); err != nil {
		return nil, queryErr(err)
	}

	projects := make([]project.Project, 0, len(rows))
	for _, row := range rows {
		projects = append(projects, row.toProject())
	}

	return projects, nil
}

func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM projects WHERE id = ?`), id)

	return affected(res, err, ErrDelete)
}
