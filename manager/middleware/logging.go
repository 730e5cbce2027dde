package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/flaas/manager"
	"github.com/absmach/flaas/pkg/device"
	"github.com/absmach/flaas/pkg/fl"
	"github.com/absmach/flaas/pkg/project"
)

var _ manager.Service = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    manager.Service
}

func Logging(logger *slog.Logger, svc manager.Service) manager.Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}

// log reports the outcome of a call with its duration.
func (lm *loggingMiddleware) log(begin time.Time, op string, err error, args ...any) {
	args = append([]any{slog.String("duration", time.Since(begin).String())}, args...)
	if err != nil {
		args = append(args, slog.Any("error", err))
		lm.logger.Warn(op+" failed", args...)

		return
	}
	lm.logger.Info(op+" completed successfully", args...)
}

func (lm *loggingMiddleware) CreateProject(ctx context.Context, p project.Project) (resp project.Project, err error) {
	defer func(begin time.Time) {
		lm.log(begin, "Create project", err, slog.Group("project",
			slog.String("id", resp.ID),
			slog.String("title", p.Title),
			slog.String("model", p.Model),
		))
	}(time.Now())

	return lm.svc.CreateProject(ctx, p)
}

func (lm *loggingMiddleware) GetProject(ctx context.Context, projectID string) (resp project.Project, err error) {
	defer func(begin time.Time) {
		lm.log(begin, "Get project", err, slog.Group("project", slog.String("id", projectID)))
	}(time.Now())

	return lm.svc.GetProject(ctx, projectID)
}

func (lm *loggingMiddleware) ListProjects(ctx context.Context, offset, limit uint64) (resp project.ProjectPage, err error) {
	defer func(begin time.Time) {
		lm.log(begin, "List projects", err,
			slog.Uint64("offset", offset),
			slog.Uint64("limit", limit),
		)
	}(time.Now())

	return lm.svc.ListProjects(ctx, offset, limit)
}

func (lm *loggingMiddleware) UpdateProject(ctx context.Context, p project.Project) (resp project.Project, err error) {
	defer func(begin time.Time) {
		lm.log(begin, "Update project", err, slog.Group("project",
			slog.String("id", p.ID),
			slog.String("title", p.Title),
		))
	}(time.Now())

	return lm.svc.UpdateProject(ctx, p)
}

func (lm *loggingMiddleware) StartProject(ctx context.Context, projectID string) (resp project.Project, err error) {
	defer func(begin time.Time) {
		lm.log(begin, "Start project", err, slog.Group("project", slog.String("id", projectID)))
	}(time.Now())

	return lm.svc.StartProject(ctx, projectID)
}

func (lm *loggingMiddleware) StopProject(ctx context.Context, projectID string) (resp project.Project, err error) {
	defer func(begin time.Time) {
		lm.log(begin, "Stop project", err, slog.Group("project", slog.String("id", projectID)))
	}(time.Now())

	return lm.svc.StopProject(ctx, projectID)
}

func (lm *loggingMiddleware) ResetProject(ctx context.Context, projectID string) (resp project.Project, err error) {
	defer func(begin time.Time) {
		lm.log(begin, "Reset project", err, slog.Group("project", slog.String("id", projectID)))
	}(time.Now())

	return lm.svc.ResetProject(ctx, projectID)
}

func (lm *loggingMiddleware) DeleteProject(ctx context.Context, projectID string) (err error) {
	defer func(begin time.Time) {
		lm.log(begin, "Delete project", err, slog.Group("project", slog.String("id", projectID)))
	}(time.Now())

	return lm.svc.DeleteProject(ctx, projectID)
}

func (lm *loggingMiddleware) ListRounds(ctx context.Context, projectID string) (resp []project.Round, err error) {
	defer func(begin time.Time) {
		lm.log(begin, "List rounds", err,
			slog.String("project_id", projectID),
			slog.Int("count", len(resp)),
		)
	}(time.Now())

	return lm.svc.ListRounds(ctx, projectID)
}

func (lm *loggingMiddleware) GetRound(ctx context.Context, projectID string, number uint64) (resp project.Round, err error) {
	defer func(begin time.Time) {
		lm.log(begin, "Get round", err, slog.Group("round",
			slog.String("project_id", projectID),
			slog.Uint64("number", number),
		))
	}(time.Now())

	return lm.svc.GetRound(ctx, projectID, number)
}

func (lm *loggingMiddleware) GetRoundReport(ctx context.Context, projectID string, number uint64) (resp fl.RoundReport, err error) {
	defer func(begin time.Time) {
		lm.log(begin, "Get round report", err, slog.Group("round",
			slog.String("project_id", projectID),
			slog.Uint64("number", number),
			slog.Int("sessions", resp.Sessions),
		))
	}(time.Now())

	return lm.svc.GetRoundReport(ctx, projectID, number)
}

func (lm *loggingMiddleware) RegisterDevice(ctx context.Context, d device.Device) (resp device.Device, err error) {
	defer func(begin time.Time) {
		lm.log(begin, "Register device", err, slog.Group("device",
			slog.String("id", resp.ID),
			slog.String("username", d.Username),
		))
	}(time.Now())

	return lm.svc.RegisterDevice(ctx, d)
}

func (lm *loggingMiddleware) GetDevice(ctx context.Context, deviceID string) (resp device.Device, err error) {
	defer func(begin time.Time) {
		lm.log(begin, "Get device", err, slog.Group("device", slog.String("id", deviceID)))
	}(time.Now())

	return lm.svc.GetDevice(ctx, deviceID)
}

func (lm *loggingMiddleware) ListDevices(ctx context.Context, offset, limit uint64) (resp device.DevicePage, err error) {
	defer func(begin time.Time) {
		lm.log(begin, "List devices", err,
			slog.Uint64("offset", offset),
			slog.Uint64("limit", limit),
		)
	}(time.Now())

	return lm.svc.ListDevices(ctx, offset, limit)
}

func (lm *loggingMiddleware) AssignDevices(ctx context.Context, projectID string, deviceIDs []string) (resp []device.Device, err error) {
	defer func(begin time.Time) {
		lm.log(begin, "Assign devices", err,
			slog.String("project_id", projectID),
			slog.Int("devices", len(deviceIDs)),
		)
	}(time.Now())

	return lm.svc.AssignDevices(ctx, projectID, deviceIDs)
}

func (lm *loggingMiddleware) DeleteDevice(ctx context.Context, deviceID string) (err error) {
	defer func(begin time.Time) {
		lm.log(begin, "Delete device", err, slog.Group("device", slog.String("id", deviceID)))
	}(time.Now())

	return lm.svc.DeleteDevice(ctx, deviceID)
}

func (lm *loggingMiddleware) ReportStatus(ctx context.Context, deviceID string, report device.Report) (resp device.StatusReport, err error) {
	defer func(begin time.Time) {
		lm.log(begin, "Report status", err, slog.Group("report",
			slog.String("device_id", deviceID),
			slog.String("request_type", string(report.RequestType)),
			slog.String("request_id", report.RequestID),
		))
	}(time.Now())

	return lm.svc.ReportStatus(ctx, deviceID, report)
}

func (lm *loggingMiddleware) JoinRound(ctx context.Context, deviceID, projectID string, number uint64, status device.JoinStatus) (resp project.Round, err error) {
	defer func(begin time.Time) {
		lm.log(begin, "Join round", err,
			slog.String("device_id", deviceID),
			slog.String("project_id", projectID),
			slog.Uint64("round", number),
			slog.String("status", status.String()),
		)
	}(time.Now())

	return lm.svc.JoinRound(ctx, deviceID, projectID, number, status)
}

func (lm *loggingMiddleware) ListJoined(ctx context.Context, projectID string, number uint64) (resp []device.JoinedRound, err error) {
	defer func(begin time.Time) {
		lm.log(begin, "List joined devices", err,
			slog.String("project_id", projectID),
			slog.Uint64("round", number),
		)
	}(time.Now())

	return lm.svc.ListJoined(ctx, projectID, number)
}

func (lm *loggingMiddleware) GetModel(ctx context.Context, projectID string, number uint64) (resp []byte, err error) {
	defer func(begin time.Time) {
		lm.log(begin, "Get model", err,
			slog.String("project_id", projectID),
			slog.Uint64("round", number),
			slog.Int("bytes", len(resp)),
		)
	}(time.Now())

	return lm.svc.GetModel(ctx, projectID, number)
}

func (lm *loggingMiddleware) SubmitModel(ctx context.Context, deviceID, projectID string, number uint64, weights []byte) (err error) {
	defer func(begin time.Time) {
		lm.log(begin, "Submit model", err,
			slog.String("device_id", deviceID),
			slog.String("project_id", projectID),
			slog.Uint64("round", number),
			slog.Int("bytes", len(weights)),
		)
	}(time.Now())

	return lm.svc.SubmitModel(ctx, deviceID, projectID, number, weights)
}

func (lm *loggingMiddleware) SubmitResults(ctx context.Context, deviceID, projectID string, number uint64, results fl.Results) (err error) {
	defer func(begin time.Time) {
		lm.log(begin, "Submit results", err,
			slog.String("device_id", deviceID),
			slog.String("project_id", projectID),
			slog.Uint64("round", number),
			slog.Int("samples", len(results.YTrue)),
		)
	}(time.Now())

	return lm.svc.SubmitResults(ctx, deviceID, projectID, number, results)
}

func (lm *loggingMiddleware) Tick(ctx context.Context) (processed int, err error) {
	defer func(begin time.Time) {
		lm.log(begin, "Tick", err, slog.Int("processed", processed))
	}(time.Now())

	return lm.svc.Tick(ctx)
}

func (lm *loggingMiddleware) SendQuestionnaires(ctx context.Context) (resp project.Notification, err error) {
	defer func(begin time.Time) {
		lm.log(begin, "Send questionnaires", err,
			slog.String("id", resp.ID),
			slog.Uint64("recipients", resp.Count),
		)
	}(time.Now())

	return lm.svc.SendQuestionnaires(ctx)
}

func (lm *loggingMiddleware) Subscribe(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		lm.log(begin, "Subscribe", err)
	}(time.Now())

	return lm.svc.Subscribe(ctx)
}
