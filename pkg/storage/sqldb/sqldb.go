// Package sqldb implements the repositories on top of any sqlx database
// whose schema was created by the sqlite or postgres migrations. Queries are
// written with '?' placeholders and rebound to the driver's bindvar style.
package sqldb

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/absmach/flaas/pkg/errors"
	"github.com/jmoiron/sqlx"
)

var (
	ErrDBQuery  = errors.New("database query error")
	ErrCreate   = errors.New("create error")
	ErrUpdate   = errors.New("update error")
	ErrDelete   = errors.New("delete error")
	ErrMarshal  = errors.New("marshal error")
	ErrNotFound = pkgerrors.ErrNotFound
)

type Repositories struct {
	Projects         *ProjectRepository
	Rounds           *RoundRepository
	TrainingRequests *TrainingRequestRepository
	Devices          *DeviceRepository
	StatusReports    *StatusReportRepository
	JoinedRounds     *JoinedRoundRepository
	Notifications    *NotificationRepository
}

func NewRepositories(db *sqlx.DB) *Repositories {
	return &Repositories{
		Projects:         &ProjectRepository{db: db},
		Rounds:           &RoundRepository{db: db},
		TrainingRequests: &TrainingRequestRepository{db: db},
		Devices:          &DeviceRepository{db: db},
		StatusReports:    &StatusReportRepository{db: db},
		JoinedRounds:     &JoinedRoundRepository{db: db},
		Notifications:    &NotificationRepository{db: db},
	}
}

func queryErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	return fmt.Errorf("%w: %w", ErrDBQuery, err)
}

func affected(res sql.Result, err error, kind error) error {
	if err != nil {
		return fmt.Errorf("%w: %w", kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", kind, err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

func jsonList(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMarshal, err)
	}

	return string(b), nil
}

func parseList(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	var v []string
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMarshal, err)
	}
	if len(v) == 0 {
		return nil, nil
	}

	return v, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}

	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func fromNull(t sql.NullTime) time.Time {
	if !t.Valid {
		return time.Time{}
	}

	return t.Time.UTC()
}
