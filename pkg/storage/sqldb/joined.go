package sqldb

import (
	"context"
	"fmt"
	"time"

	"github.com/absmach/flaas/pkg/device"
	"github.com/absmach/flaas/pkg/project"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type JoinedRoundRepository struct {
	db *sqlx.DB
}

type dbJoined struct {
	DeviceID    string    `db:"device_id"`
	RoundID     string    `db:"round_id"`
	ProjectID   string    `db:"project_id"`
	RoundNumber int64     `db:"round_number"`
	Status      int64     `db:"status"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r *JoinedRoundRepository) Save(ctx context.Context, j device.JoinedRound) error {
	query := `INSERT INTO joined_rounds (device_id, round_id, project_id, round_number, status, updated_at)
		VALUES (:device_id, :round_id, :project_id, :round_number, :status, :updated_at)
		ON CONFLICT (device_id, round_id) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at`

	row := dbJoined{
		DeviceID:    j.DeviceID,
		RoundID:     j.RoundID,
		ProjectID:   j.ProjectID,
		RoundNumber: int64(j.RoundNumber),
		Status:      int64(j.Status),
		UpdatedAt:   j.UpdatedAt.UTC(),
	}
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("%w: %w", ErrCreate, err)
	}

	return nil
}

func (r *JoinedRoundRepository) ListByRound(ctx context.Context, roundID string) ([]device.JoinedRound, error) {
	query := r.db.Rebind(`SELECT device_id, round_id, project_id, round_number, status, updated_at
		FROM joined_rounds WHERE round_id = ? ORDER BY device_id`)

	var rows []dbJoined
	if err := r.db.SelectContext(ctx, &rows, query, roundID); err != nil {
		return nil, queryErr(err)
	}

	joined := make([]device.JoinedRound, 0, len(rows))
	for _, row := range rows {
		joined = append(joined, device.JoinedRound{
			DeviceID:    row.DeviceID,
			RoundID:     row.RoundID,
			ProjectID:   row.ProjectID,
			RoundNumber: uint64(row.RoundNumber),
			Status:      device.JoinStatus(row.Status),
			UpdatedAt:   row.UpdatedAt.UTC(),
		})
	}

	return joined, nil
}

func (r *JoinedRoundRepository) DeleteByProject(ctx context.Context, projectID string) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM joined_rounds WHERE project_id = ?`), projectID); err != nil {
		return fmt.Errorf("%w: %w", ErrDelete, err)
	}

	return nil
}

type NotificationRepository struct {
	db *sqlx.DB
}

type dbNotification struct {
	ID     string    `db:"id"`
	SentAt time.Time `db:"sent_at"`
	Count  int64     `db:"recipients"`
}

func (r *NotificationRepository) Create(ctx context.Context, n project.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}

	row := dbNotification{ID: n.ID, SentAt: n.SentAt.UTC(), Count: int64(n.Count)}
	if _, err := r.db.NamedExecContext(ctx, `INSERT INTO notifications (id, sent_at, recipients) VALUES (:id, :sent_at, :recipients)`, row); err != nil {
		return fmt.Errorf("%w: %w", ErrCreate, err)
	}

	return nil
}

func (r *NotificationRepository) Latest(ctx context.Context) (project.Notification, error) {
	var row dbNotification
	if err := r.db.GetContext(ctx, &row, `SELECT id, sent_at, recipients FROM notifications ORDER BY sent_at DESC LIMIT 1`); err != nil {
		return project.Notification{}, queryErr(err)
	}

	return project.Notification{ID: row.ID, SentAt: row.SentAt.UTC(), Count: uint64(row.Count)}, nil
}
