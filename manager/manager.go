package manager

import (
	"context"

	"github.com/absmach/flaas/pkg/device"
	"github.com/absmach/flaas/pkg/fl"
	"github.com/absmach/flaas/pkg/project"
)

type Service interface {
	CreateProject(ctx context.Context, p project.Project) (project.Project, error)
	GetProject(ctx context.Context, projectID string) (project.Project, error)
	ListProjects(ctx context.Context, offset, limit uint64) (project.ProjectPage, error)
	// UpdateProject changes campaign parameters. Rounds already created keep
	// the values they were created with.
	UpdateProject(ctx context.Context, p project.Project) (project.Project, error)
	StartProject(ctx context.Context, projectID string) (project.Project, error)
	StopProject(ctx context.Context, projectID string) (project.Project, error)
	// ResetProject drops every round and model artifact and starts over from
	// round 0 with the model template.
	ResetProject(ctx context.Context, projectID string) (project.Project, error)
	DeleteProject(ctx context.Context, projectID string) error
	ListRounds(ctx context.Context, projectID string) ([]project.Round, error)
	GetRound(ctx context.Context, projectID string, number uint64) (project.Round, error)
	GetRoundReport(ctx context.Context, projectID string, number uint64) (fl.RoundReport, error)

	RegisterDevice(ctx context.Context, d device.Device) (device.Device, error)
	GetDevice(ctx context.Context, deviceID string) (device.Device, error)
	ListDevices(ctx context.Context, offset, limit uint64) (device.DevicePage, error)
	// AssignDevices enrolls devices into a project. An empty projectID
	// unenrolls them.
	AssignDevices(ctx context.Context, projectID string, deviceIDs []string) ([]device.Device, error)
	DeleteDevice(ctx context.Context, deviceID string) error

	ReportStatus(ctx context.Context, deviceID string, report device.Report) (device.StatusReport, error)
	JoinRound(ctx context.Context, deviceID, projectID string, number uint64, status device.JoinStatus) (project.Round, error)
	ListJoined(ctx context.Context, projectID string, number uint64) ([]device.JoinedRound, error)
	GetModel(ctx context.Context, projectID string, number uint64) ([]byte, error)
	SubmitModel(ctx context.Context, deviceID, projectID string, number uint64, weights []byte) error
	SubmitResults(ctx context.Context, deviceID, projectID string, number uint64, results fl.Results) error

	// Tick advances every active project once and returns how many were
	// processed without error.
	Tick(ctx context.Context) (int, error)
	// SendQuestionnaires schedules the daily questionnaire notifications
	// unless they were already sent. The returned record is empty when
	// nothing was sent.
	SendQuestionnaires(ctx context.Context) (project.Notification, error)

	Subscribe(ctx context.Context) error
}
