package storage

import (
	"context"
	"time"

	"github.com/absmach/flaas/pkg/device"
	"github.com/absmach/flaas/pkg/project"
)

type ProjectRepository interface {
	Create(ctx context.Context, p project.Project) (project.Project, error)
	Get(ctx context.Context, id string) (project.Project, error)
	Update(ctx context.Context, p project.Project) error
	List(ctx context.Context, offset, limit uint64) ([]project.Project, uint64, error)
	ListByStatus(ctx context.Context, status project.Status) ([]project.Project, error)
	Delete(ctx context.Context, id string) error
}

// RoundRepository lists rounds in ascending round number order.
type RoundRepository interface {
	Create(ctx context.Context, r project.Round) (project.Round, error)
	Get(ctx context.Context, projectID string, number uint64) (project.Round, error)
	Latest(ctx context.Context, projectID string) (project.Round, error)
	Update(ctx context.Context, r project.Round) error
	List(ctx context.Context, projectID string) ([]project.Round, error)
	CountByStatus(ctx context.Context, projectID string, status project.RoundStatus) (uint64, error)
	DeleteByProject(ctx context.Context, projectID string) error
}

type TrainingRequestRepository interface {
	Create(ctx context.Context, tr project.TrainingRequest) error
	Get(ctx context.Context, id string) (project.TrainingRequest, error)
	GetByRound(ctx context.Context, roundID string) (project.TrainingRequest, error)
	DeleteByProject(ctx context.Context, projectID string) error
}

type DeviceRepository interface {
	Create(ctx context.Context, d device.Device) (device.Device, error)
	Get(ctx context.Context, id string) (device.Device, error)
	Update(ctx context.Context, d device.Device) error
	List(ctx context.Context, offset, limit uint64) ([]device.Device, uint64, error)
	ListByProject(ctx context.Context, projectID string) ([]device.Device, error)
	Delete(ctx context.Context, id string) error
}

// StatusReportRepository is append-only. Create assigns the insertion
// sequence number.
type StatusReportRepository interface {
	Create(ctx context.Context, r device.StatusReport) (device.StatusReport, error)
	// ListWindow returns the reports of the given devices with
	// from < timestamp <= to.
	ListWindow(ctx context.Context, deviceIDs []string, from, to time.Time) ([]device.StatusReport, error)
	// Repliers returns the distinct devices that sent a training reply
	// referencing the request.
	Repliers(ctx context.Context, requestID string) ([]string, error)
}

type JoinedRoundRepository interface {
	Save(ctx context.Context, j device.JoinedRound) error
	ListByRound(ctx context.Context, roundID string) ([]device.JoinedRound, error)
	DeleteByProject(ctx context.Context, projectID string) error
}

type NotificationRepository interface {
	Create(ctx context.Context, n project.Notification) error
	Latest(ctx context.Context) (project.Notification, error)
}
