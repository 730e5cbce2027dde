package manager

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/flaas/pkg/device"
	"github.com/absmach/flaas/pkg/notify"
	"github.com/absmach/flaas/pkg/project"
	"github.com/absmach/flaas/pkg/storage"
	"github.com/google/uuid"
)

const trainRequestType = "train"

type dispatcher struct {
	requests storage.TrainingRequestRepository
	notifier notify.Notifier
	logger   *slog.Logger
}

// dispatch persists a training request for r and notifies devices. The
// boolean is false when nothing was dispatched. Delivery is best effort: a
// failed send is logged and the persisted request is kept.
func (d *dispatcher) dispatch(ctx context.Context, p project.Project, r project.Round, devices []device.Device, now time.Time) (project.TrainingRequest, bool, error) {
	if p.Status != project.InProgress {
		d.logger.Info("skipping dispatch for inactive project",
			slog.String("project_id", p.ID),
			slog.String("status", p.Status.String()))

		return project.TrainingRequest{}, false, nil
	}
	if len(devices) == 0 {
		d.logger.Info("skipping dispatch without devices", slog.String("project_id", p.ID))

		return project.TrainingRequest{}, false, nil
	}

	ids := make([]string, len(devices))
	usernames := make([]string, len(devices))
	for i, dev := range devices {
		ids[i] = dev.ID
		usernames[i] = dev.Username
	}

	req := project.TrainingRequest{
		ID:          uuid.NewString(),
		RoundID:     r.ID,
		ProjectID:   p.ID,
		RoundNumber: r.Number,
		Devices:     ids,
		CreatedAt:   now,
		ValidDate:   now.Add(p.MaxTrainingDuration()),
	}
	if err := d.requests.Create(ctx, req); err != nil {
		return project.TrainingRequest{}, false, err
	}

	payload := map[string]any{
		"type":         trainRequestType,
		"validDate":    req.ValidDate.UnixMilli(),
		"requestId":    req.ID,
		"projectId":    p.ID,
		"roundNumber":  r.Number,
		"trainingMode": string(p.TrainingMode),
	}
	if err := d.notifier.Send(ctx, usernames, payload, int(p.MaxTrainingTime)); err != nil {
		d.logger.Warn("failed to deliver training request",
			slog.String("project_id", p.ID),
			slog.String("request_id", req.ID),
			slog.Int("recipients", len(usernames)),
			slog.String("error", err.Error()))
	}

	return req, true, nil
}
