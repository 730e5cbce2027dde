package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/absmach/flaas/pkg/device"
	"github.com/jmoiron/sqlx"
)

// Report timestamps are stored as unix nanoseconds so that window queries
// compare integers on every driver.
type StatusReportRepository struct {
	db *sqlx.DB
}

type dbReport struct {
	Seq         int64          `db:"seq"`
	ID          string         `db:"id"`
	DeviceID    string         `db:"device_id"`
	RequestType string         `db:"request_type"`
	RequestID   sql.NullString `db:"request_id"`
	Timestamp   int64          `db:"ts"`
	Payload     string         `db:"payload"`
}

func (r *StatusReportRepository) Create(ctx context.Context, rep device.StatusReport) (device.StatusReport, error) {
	payload, err := json.Marshal(rep.Payload)
	if err != nil {
		return device.StatusReport{}, fmt.Errorf("%w: %w", ErrMarshal, err)
	}

	query := r.db.Rebind(`INSERT INTO status_reports (id, device_id, request_type, request_id, ts, payload)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING seq`)

	var seq int64
	if err := r.db.GetContext(ctx, &seq, query,
		rep.ID, rep.DeviceID, string(rep.RequestType),
		sql.NullString{String: rep.RequestID, Valid: rep.RequestID != ""},
		rep.Timestamp.UnixNano(), string(payload),
	); err != nil {
		return device.StatusReport{}, fmt.Errorf("%w: %w", ErrCreate, err)
	}
	rep.Seq = uint64(seq)

	return rep, nil
}

func (r *StatusReportRepository) ListWindow(ctx context.Context, deviceIDs []string, from, to time.Time) ([]device.StatusReport, error) {
	if len(deviceIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT seq, id, device_id, request_type, request_id, ts, payload
		FROM status_reports WHERE device_id IN (?) AND ts > ? AND ts <= ? ORDER BY seq`,
		deviceIDs, from.UnixNano(), to.UnixNano())
	if err != nil {
		return nil, queryErr(err)
	}

	var rows []dbReport
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, queryErr(err)
	}

	reports := make([]device.StatusReport, 0, len(rows))
	for _, row := range rows {
		rep := device.StatusReport{
			ID:          row.ID,
			Seq:         uint64(row.Seq),
			DeviceID:    row.DeviceID,
			RequestType: device.RequestType(row.RequestType),
			RequestID:   row.RequestID.String,
			Timestamp:   time.Unix(0, row.Timestamp).UTC(),
		}
		if err := json.Unmarshal([]byte(row.Payload), &rep.Payload); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMarshal, err)
		}
		reports = append(reports, rep)
	}

	return reports, nil
}

func (r *StatusReportRepository) Repliers(ctx context.Context, requestID string) ([]string, error) {
	query := r.db.Rebind(`SELECT device_id FROM status_reports
		WHERE request_type = ? AND request_id = ?
		GROUP BY device_id ORDER BY MIN(seq)`)

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, string(device.TrainAck), requestID); err != nil {
		return nil, queryErr(err)
	}

	return ids, nil
}
