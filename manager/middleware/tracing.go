package middleware

import (
	"context"

	"github.com/absmach/flaas/manager"
	"github.com/absmach/flaas/pkg/device"
	"github.com/absmach/flaas/pkg/fl"
	"github.com/absmach/flaas/pkg/project"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var _ manager.Service = (*tracing)(nil)

type tracing struct {
	tracer trace.Tracer
	svc    manager.Service
}

func Tracing(tracer trace.Tracer, svc manager.Service) manager.Service {
	return &tracing{tracer, svc}
}

func (tm *tracing) CreateProject(ctx context.Context, p project.Project) (resp project.Project, err error) {
	ctx, span := tm.tracer.Start(ctx, "create-project", trace.WithAttributes(
		attribute.String("title", p.Title),
		attribute.String("model", p.Model),
	))
	defer span.End()

	return tm.svc.CreateProject(ctx, p)
}

func (tm *tracing) GetProject(ctx context.Context, projectID string) (resp project.Project, err error) {
	ctx, span := tm.tracer.Start(ctx, "get-project", trace.WithAttributes(
		attribute.String("id", projectID),
	))
	defer span.End()

	return tm.svc.GetProject(ctx, projectID)
}

func (tm *tracing) ListProjects(ctx context.Context, offset, limit uint64) (resp project.ProjectPage, err error) {
	ctx, span := tm.tracer.Start(ctx, "list-projects", trace.WithAttributes(
		attribute.Int64("offset", int64(offset)),
		attribute.Int64("limit", int64(limit)),
	))
	defer span.End()

	return tm.svc.ListProjects(ctx, offset, limit)
}

func (tm *tracing) UpdateProject(ctx context.Context, p project.Project) (resp project.Project, err error) {
	ctx, span := tm.tracer.Start(ctx, "update-project", trace.WithAttributes(
		attribute.String("id", p.ID),
	))
	defer span.End()

	return tm.svc.UpdateProject(ctx, p)
}

func (tm *tracing) StartProject(ctx context.Context, projectID string) (resp project.Project, err error) {
	ctx, span := tm.tracer.Start(ctx, "start-project", trace.WithAttributes(
		attribute.String("id", projectID),
	))
	defer span.End()

	return tm.svc.StartProject(ctx, projectID)
}

func (tm *tracing) StopProject(ctx context.Context, projectID string) (resp project.Project, err error) {
	ctx, span := tm.tracer.Start(ctx, "stop-project", trace.WithAttributes(
		attribute.String("id", projectID),
	))
	defer span.End()

	return tm.svc.StopProject(ctx, projectID)
}

func (tm *tracing) ResetProject(ctx context.Context, projectID string) (resp project.Project, err error) {
	ctx, span := tm.tracer.Start(ctx, "reset-project", trace.WithAttributes(
		attribute.String("id", projectID),
	))
	defer span.End()

	return tm.svc.ResetProject(ctx, projectID)
}

func (tm *tracing) DeleteProject(ctx context.Context, projectID string) (err error) {
	ctx, span := tm.tracer.Start(ctx, "delete-project", trace.WithAttributes(
		attribute.String("id", projectID),
	))
	defer span.End()

	return tm.svc.DeleteProject(ctx, projectID)
}

func (tm *tracing) ListRounds(ctx context.Context, projectID string) (resp []project.Round, err error) {
	ctx, span := tm.tracer.Start(ctx, "list-rounds", trace.WithAttributes(
		attribute.String("project_id", projectID),
	))
	defer span.End()

	return tm.svc.ListRounds(ctx, projectID)
}

func (tm *tracing) GetRound(ctx context.Context, projectID string, number uint64) (resp project.Round, err error) {
	ctx, span := tm.tracer.Start(ctx, "get-round", trace.WithAttributes(
		attribute.String("project_id", projectID),
		attribute.Int64("round", int64(number)),
	))
	defer span.End()

	return tm.svc.GetRound(ctx, projectID, number)
}

func (tm *tracing) GetRoundReport(ctx context.Context, projectID string, number uint64) (resp fl.RoundReport, err error) {
	ctx, span := tm.tracer.Start(ctx, "get-round-report", trace.WithAttributes(
		attribute.String("project_id", projectID),
		attribute.Int64("round", int64(number)),
	))
	defer span.End()

	return tm.svc.GetRoundReport(ctx, projectID, number)
}

func (tm *tracing) RegisterDevice(ctx context.Context, d device.Device) (resp device.Device, err error) {
	ctx, span := tm.tracer.Start(ctx, "register-device", trace.WithAttributes(
		attribute.String("username", d.Username),
	))
	defer span.End()

	return tm.svc.RegisterDevice(ctx, d)
}

func (tm *tracing) GetDevice(ctx context.Context, deviceID string) (resp device.Device, err error) {
	ctx, span := tm.tracer.Start(ctx, "get-device", trace.WithAttributes(
		attribute.String("id", deviceID),
	))
	defer span.End()

	return tm.svc.GetDevice(ctx, deviceID)
}

func (tm *tracing) ListDevices(ctx context.Context, offset, limit uint64) (resp device.DevicePage, err error) {
	ctx, span := tm.tracer.Start(ctx, "list-devices", trace.WithAttributes(
		attribute.Int64("offset", int64(offset)),
		attribute.Int64("limit", int64(limit)),
	))
	defer span.End()

	return tm.svc.ListDevices(ctx, offset, limit)
}

func (tm *tracing) AssignDevices(ctx context.Context, projectID string, deviceIDs []string) (resp []device.Device, err error) {
	ctx, span := tm.tracer.Start(ctx, "assign-devices", trace.WithAttributes(
		attribute.String("project_id", projectID),
		attribute.StringSlice("device_ids", deviceIDs),
	))
	defer span.End()

	return tm.svc.AssignDevices(ctx, projectID, deviceIDs)
}

func (tm *tracing) DeleteDevice(ctx context.Context, deviceID string) (err error) {
	ctx, span := tm.tracer.Start(ctx, "delete-device", trace.WithAttributes(
		attribute.String("id", deviceID),
	))
	defer span.End()

	return tm.svc.DeleteDevice(ctx, deviceID)
}

func (tm *tracing) ReportStatus(ctx context.Context, deviceID string, report device.Report) (resp device.StatusReport, err error) {
	ctx, span := tm.tracer.Start(ctx, "report-status", trace.WithAttributes(
		attribute.String("device_id", deviceID),
		attribute.String("request_type", string(report.RequestType)),
	))
	defer span.End()

	return tm.svc.ReportStatus(ctx, deviceID, report)
}

func (tm *tracing) JoinRound(ctx context.Context, deviceID, projectID string, number uint64, status device.JoinStatus) (resp project.Round, err error) {
	ctx, span := tm.tracer.Start(ctx, "join-round", trace.WithAttributes(
		attribute.String("device_id", deviceID),
		attribute.String("project_id", projectID),
		attribute.Int64("round", int64(number)),
		attribute.String("status", status.String()),
	))
	defer span.End()

	return tm.svc.JoinRound(ctx, deviceID, projectID, number, status)
}

func (tm *tracing) ListJoined(ctx context.Context, projectID string, number uint64) (resp []device.JoinedRound, err error) {
	ctx, span := tm.tracer.Start(ctx, "list-joined", trace.WithAttributes(
		attribute.String("project_id", projectID),
		attribute.Int64("round", int64(number)),
	))
	defer span.End()

	return tm.svc.ListJoined(ctx, projectID, number)
}

func (tm *tracing) GetModel(ctx context.Context, projectID string, number uint64) (resp []byte, err error) {
	ctx, span := tm.tracer.Start(ctx, "get-model", trace.WithAttributes(
		attribute.String("project_id", projectID),
		attribute.Int64("round", int64(number)),
	))
	defer span.End()

	return tm.svc.GetModel(ctx, projectID, number)
}

func (tm *tracing) SubmitModel(ctx context.Context, deviceID, projectID string, number uint64, weights []byte) (err error) {
	ctx, span := tm.tracer.Start(ctx, "submit-model", trace.WithAttributes(
		attribute.String("device_id", deviceID),
		attribute.String("project_id", projectID),
		attribute.Int64("round", int64(number)),
		attribute.Int("bytes", len(weights)),
	))
	defer span.End()

	return tm.svc.SubmitModel(ctx, deviceID, projectID, number, weights)
}

func (tm *tracing) SubmitResults(ctx context.Context, deviceID, projectID string, number uint64, results fl.Results) (err error) {
	ctx, span := tm.tracer.Start(ctx, "submit-results", trace.WithAttributes(
		attribute.String("device_id", deviceID),
		attribute.String("project_id", projectID),
		attribute.Int64("round", int64(number)),
	))
	defer span.End()

	return tm.svc.SubmitResults(ctx, deviceID, projectID, number, results)
}

func (tm *tracing) Tick(ctx context.Context) (processed int, err error) {
	ctx, span := tm.tracer.Start(ctx, "tick")
	defer span.End()

	return tm.svc.Tick(ctx)
}

func (tm *tracing) SendQuestionnaires(ctx context.Context) (resp project.Notification, err error) {
	ctx, span := tm.tracer.Start(ctx, "send-questionnaires")
	defer span.End()

	return tm.svc.SendQuestionnaires(ctx)
}

func (tm *tracing) Subscribe(ctx context.Context) (err error) {
	ctx, span := tm.tracer.Start(ctx, "subscribe")
	defer span.End()

	return tm.svc.Subscribe(ctx)
}
