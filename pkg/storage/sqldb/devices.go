package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/absmach/flaas/pkg/device"
	"github.com/jmoiron/sqlx"
)

const deviceColumns = `id, username, project_id, os, model, manufacturer, brand, build_type, incremental,
	os_version, security_patch, samples_index, samples_downloaded, created_at, updated_at`

type DeviceRepository struct {
	db *sqlx.DB
}

type dbDevice struct {
	ID                string         `db:"id"`
	Username          string         `db:"username"`
	ProjectID         sql.NullString `db:"project_id"`
	OS                string         `db:"os"`
	Model             string         `db:"model"`
	Manufacturer      string         `db:"manufacturer"`
	Brand             string         `db:"brand"`
	BuildType         string         `db:"build_type"`
	Incremental       string         `db:"incremental"`
	OSVersion         string         `db:"os_version"`
	SecurityPatch     string         `db:"security_patch"`
	SamplesIndex      int64          `db:"samples_index"`
	SamplesDownloaded bool           `db:"samples_downloaded"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

func toDBDevice(d device.Device) dbDevice {
	return dbDevice{
		ID:                d.ID,
		Username:          d.Username,
		ProjectID:         sql.NullString{String: d.ProjectID, Valid: d.ProjectID != ""},
		OS:                string(d.OS),
		Model:             d.Model,
		Manufacturer:      d.Manufacturer,
		Brand:             d.Brand,
		BuildType:         d.BuildType,
		Incremental:       d.Incremental,
		OSVersion:         d.OSVersion,
		SecurityPatch:     d.SecurityPatch,
		SamplesIndex:      d.SamplesIndex,
		SamplesDownloaded: d.SamplesDownloaded,
		CreatedAt:         d.CreatedAt.UTC(),
		UpdatedAt:         d.UpdatedAt.UTC(),
	}
}

func (dbd dbDevice) toDevice() device.Device {
	return device.Device{
		ID:                dbd.ID,
		Username:          dbd.Username,
		ProjectID:         dbd.ProjectID.String,
		OS:                device.OS(dbd.OS),
		Model:             dbd.Model,
		Manufacturer:      dbd.Manufacturer,
		Brand:             dbd.Brand,
		BuildType:         dbd.BuildType,
		Incremental:       dbd.Incremental,
		OSVersion:         dbd.OSVersion,
		SecurityPatch:     dbd.SecurityPatch,
		SamplesIndex:      dbd.SamplesIndex,
		SamplesDownloaded: dbd.SamplesDownloaded,
		CreatedAt:         dbd.CreatedAt.UTC(),
		UpdatedAt:         dbd.UpdatedAt.UTC(),
	}
}

func (r *DeviceRepository) Create(ctx context.Context, d device.Device) (device.Device, error) {
	query := `INSERT INTO devices (` + deviceColumns + `)
		VALUES (:id, :username, :project_id, :os, :model, :manufacturer, :brand, :build_type, :incremental,
		:os_version, :security_patch, :samples_index, :samples_downloaded, :created_at, :updated_at)`

	if _, err := r.db.NamedExecContext(ctx, query, toDBDevice(d)); err != nil {
		return device.Device{}, fmt.Errorf("%w: %w", ErrCreate, err)
	}

	return d, nil
}

func (r *DeviceRepository) Get(ctx context.Context, id string) (device.Device, error) {
	var row dbDevice
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+deviceColumns+` FROM devices WHERE id = ?`), id); err != nil {
		return device.Device{}, queryErr(err)
	}

	return row.toDevice(), nil
}

func (r *DeviceRepository) Update(ctx context.Context, d device.Device) error {
	query := `UPDATE devices SET
		username = :username,
		project_id = :project_id,
		os = :os,
		model = :model,
		manufacturer = :manufacturer,
		brand = :brand,
		build_type = :build_type,
		incremental = :incremental,
		os_version = :os_version,
		security_patch = :security_patch,
		samples_index = :samples_index,
		samples_downloaded = :samples_downloaded,
		updated_at = :updated_at
		WHERE id = :id`

	res, err := r.db.NamedExecContext(ctx, query, toDBDevice(d))

	return affected(res, err, ErrUpdate)
}

func (r *DeviceRepository) List(ctx context.Context, offset, limit uint64) ([]device.Device, uint64, error) {
	var total uint64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM devices`); err != nil {
		return nil, 0, queryErr(err)
	}

	var rows []dbDevice
	query := r.db.Rebind(`SELECT ` + deviceColumns + ` FROM devices ORDER BY username LIMIT ? OFFSET ?`)
	if err := r.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, 0, queryErr(err)
	}

	devices := make([]device.Device, 0, len(rows))
	for _, row := range rows {
		devices = append(devices, row.toDevice())
	}

	return devices, total, nil
}

func (r *DeviceRepository) ListByProject(ctx context.Context, projectID string) ([]device.Device, error) {
	var rows []dbDevice
	query := r.db.Rebind(`SELECT ` + deviceColumns + ` FROM devices WHERE project_id = ? ORDER BY username`)
	if err := r.db.SelectContext(ctx, &rows, query, projectID); err != nil {
		return nil, queryErr(err)
	}

	devices := make([]device.Device, 0, len(rows))
	for _, row := range rows {
		devices = append(devices, row.toDevice())
	}

	return devices, nil
}

func (r *DeviceRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM devices WHERE id = ?`), id)

	return affected(res, err, ErrDelete)
}
