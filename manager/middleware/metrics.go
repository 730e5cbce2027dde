package middleware

import (
	"context"
	"time"

	"github.com/absmach/flaas/manager"
	"github.com/absmach/flaas/pkg/device"
	"github.com/absmach/flaas/pkg/fl"
	"github.com/absmach/flaas/pkg/project"
	"github.com/go-kit/kit/metrics"
)

var _ manager.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     manager.Service
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, svc manager.Service) manager.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) CreateProject(ctx context.Context, p project.Project) (project.Project, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "create-project").Add(1)
		mm.latency.With("method", "create-project").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.CreateProject(ctx, p)
}

func (mm *metricsMiddleware) GetProject(ctx context.Context, projectID string) (project.Project, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-project").Add(1)
		mm.latency.With("method", "get-project").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetProject(ctx, projectID)
}

func (mm *metricsMiddleware) ListProjects(ctx context.Context, offset, limit uint64) (project.ProjectPage, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list-projects").Add(1)
		mm.latency.With("method", "list-projects").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ListProjects(ctx, offset, limit)
}

func (mm *metricsMiddleware) UpdateProject(ctx context.Context, p project.Project) (project.Project, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "update-project").Add(1)
		mm.latency.With("method", "update-project").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.UpdateProject(ctx, p)
}

func (mm *metricsMiddleware) StartProject(ctx context.Context, projectID string) (project.Project, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "start-project").Add(1)
		mm.latency.With("method", "start-project").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.StartProject(ctx, projectID)
}

func (mm *metricsMiddleware) StopProject(ctx context.Context, projectID string) (project.Project, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "stop-project").Add(1)
		mm.latency.With("method", "stop-project").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.StopProject(ctx, projectID)
}

func (mm *metricsMiddleware) ResetProject(ctx context.Context, projectID string) (project.Project, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "reset-project").Add(1)
		mm.latency.With("method", "reset-project").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ResetProject(ctx, projectID)
}

func (mm *metricsMiddleware) DeleteProject(ctx context.Context, projectID string) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "delete-project").Add(1)
		mm.latency.With("method", "delete-project").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.DeleteProject(ctx, projectID)
}

func (mm *metricsMiddleware) ListRounds(ctx context.Context, projectID string) ([]project.Round, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list-rounds").Add(1)
		mm.latency.With("method", "list-rounds").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ListRounds(ctx, projectID)
}

func (mm *metricsMiddleware) GetRound(ctx context.Context, projectID string, number uint64) (project.Round, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-round").Add(1)
		mm.latency.With("method", "get-round").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetRound(ctx, projectID, number)
}

func (mm *metricsMiddleware) GetRoundReport(ctx context.Context, projectID string, number uint64) (fl.RoundReport, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-round-report").Add(1)
		mm.latency.With("method", "get-round-report").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetRoundReport(ctx, projectID, number)
}

func (mm *metricsMiddleware) RegisterDevice(ctx context.Context, d device.Device) (device.Device, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "register-device").Add(1)
		mm.latency.With("method", "register-device").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.RegisterDevice(ctx, d)
}

func (mm *metricsMiddleware) GetDevice(ctx context.Context, deviceID string) (device.Device, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-device").Add(1)
		mm.latency.With("method", "get-device").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetDevice(ctx, deviceID)
}

func (mm *metricsMiddleware) ListDevices(ctx context.Context, offset, limit uint64) (device.DevicePage, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list-devices").Add(1)
		mm.latency.With("method", "list-devices").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ListDevices(ctx, offset, limit)
}

func (mm *metricsMiddleware) AssignDevices(ctx context.Context, projectID string, deviceIDs []string) ([]device.Device, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "assign-devices").Add(1)
		mm.latency.With("method", "assign-devices").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.AssignDevices(ctx, projectID, deviceIDs)
}

func (mm *metricsMiddleware) DeleteDevice(ctx context.Context, deviceID string) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "delete-device").Add(1)
		mm.latency.With("method", "delete-device").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.DeleteDevice(ctx, deviceID)
}

func (mm *metricsMiddleware) ReportStatus(ctx context.Context, deviceID string, report device.Report) (device.StatusReport, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "report-status").Add(1)
		mm.latency.With("method", "report-status").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ReportStatus(ctx, deviceID, report)
}

func (mm *metricsMiddleware) JoinRound(ctx context.Context, deviceID, projectID string, number uint64, status device.JoinStatus) (project.Round, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "join-round").Add(1)
		mm.latency.With("method", "join-round").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.JoinRound(ctx, deviceID, projectID, number, status)
}

func (mm *metricsMiddleware) ListJoined(ctx context.Context, projectID string, number uint64) ([]device.JoinedRound, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list-joined").Add(1)
		mm.latency.With("method", "list-joined").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ListJoined(ctx, projectID, number)
}

func (mm *metricsMiddleware) GetModel(ctx context.Context, projectID string, number uint64) ([]byte, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-model").Add(1)
		mm.latency.With("method", "get-model").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetModel(ctx, projectID, number)
}

func (mm *metricsMiddleware) SubmitModel(ctx context.Context, deviceID, projectID string, number uint64, weights []byte) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "submit-model").Add(1)
		mm.latency.With("method", "submit-model").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.SubmitModel(ctx, deviceID, projectID, number, weights)
}

func (mm *metricsMiddleware) SubmitResults(ctx context.Context, deviceID, projectID string, number uint64, results fl.Results) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "submit-results").Add(1)
		mm.latency.With("method", "submit-results").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.SubmitResults(ctx, deviceID, projectID, number, results)
}

func (mm *metricsMiddleware) Tick(ctx context.Context) (int, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "tick").Add(1)
		mm.latency.With("method", "tick").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Tick(ctx)
}

func (mm *metricsMiddleware) SendQuestionnaires(ctx context.Context) (project.Notification, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "send-questionnaires").Add(1)
		mm.latency.With("method", "send-questionnaires").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.SendQuestionnaires(ctx)
}

func (mm *metricsMiddleware) Subscribe(ctx context.Context) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "subscribe").Add(1)
		mm.latency.With("method", "subscribe").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Subscribe(ctx)
}
