package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/absmach/flaas/pkg/blob"
	"github.com/absmach/flaas/pkg/device"
	pkgerrors "github.com/absmach/flaas/pkg/errors"
	"github.com/absmach/flaas/pkg/fl"
	"github.com/absmach/flaas/pkg/project"
	"github.com/absmach/flaas/pkg/storage"
	"github.com/google/uuid"
)

// roundMachine advances the latest round of a project. Callers serialize
// access per project.
type roundMachine struct {
	repos      *storage.Repositories
	blobs      blob.Store
	dispatcher *dispatcher
	lookback   time.Duration
	logger     *slog.Logger
}

// attemptTraining moves a Wait round to Training once enough enrolled
// devices are eligible. The round is committed before dispatch, so a
// failed dispatch leaves a Training round without a request.
func (m *roundMachine) attemptTraining(ctx context.Context, p project.Project, r project.Round, now time.Time) error {
	devices, err := m.repos.Devices.ListByProject(ctx, p.ID)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		m.logger.Info("no devices enrolled, skipping training attempt", slog.String("project_id", p.ID))

		return nil
	}

	eligible, err := SelectEligible(ctx, m.repos.StatusReports, p, devices, now, m.lookback)
	if err != nil {
		return err
	}

	ratio := float64(len(eligible)) / float64(len(devices))
	if ratio < p.ResponsesRatioThreshold {
		m.logger.Debug("eligible ratio below threshold",
			slog.String("project_id", p.ID),
			slog.Uint64("round", r.Number),
			slog.Float64("ratio", ratio),
			slog.Int("eligible", len(eligible)),
			slog.Int("registered", len(devices)))

		return nil
	}

	requested := deviceIDs(eligible)
	r.Status = project.Training
	r.RequestedDevices = requested
	r.StartTrainingDate = now
	if err := m.repos.Rounds.Update(ctx, r); err != nil {
		return err
	}

	m.logger.Info("round moved to training",
		slog.String("project_id", p.ID),
		slog.Uint64("round", r.Number),
		slog.Int("requested", len(requested)))

	if _, _, err := m.dispatcher.dispatch(ctx, p, r, eligible, now); err != nil {
		return errors.Join(pkgerrors.ErrExternalService, fmt.Errorf("failed to dispatch round %d: %w", r.Number, err))
	}

	return nil
}

// checkTraining concludes a Training round once every enrolled device has
// replied or the time budget is spent. The trained ratio is taken over all
// devices currently enrolled, not over the requested ones.
func (m *roundMachine) checkTraining(ctx context.Context, p project.Project, r project.Round, now time.Time) error {
	devices, err := m.repos.Devices.ListByProject(ctx, p.ID)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		m.logger.Info("no devices enrolled, skipping round check", slog.String("project_id", p.ID))

		return nil
	}

	replied, err := m.repliers(ctx, r, devices)
	if err != nil {
		return err
	}

	deadline := r.StartTrainingDate.Add(p.MaxTrainingDuration())
	if len(replied) < len(devices) && !now.After(deadline) {
		m.logger.Debug("waiting for training replies",
			slog.String("project_id", p.ID),
			slog.Uint64("round", r.Number),
			slog.Int("replied", len(replied)),
			slog.Int("registered", len(devices)),
			slog.Duration("remaining", deadline.Sub(now)))

		return nil
	}

	ratio := float64(len(replied)) / float64(len(devices))
	if ratio >= p.ValidRoundTrainingThreshold {
		return m.complete(ctx, p, r, replied, now)
	}

	return m.invalidate(ctx, p, r, ratio, now)
}

// repliers returns the enrolled devices that replied to the round's
// training request. Replies from devices enrolled elsewhere since then are
// dropped.
func (m *roundMachine) repliers(ctx context.Context, r project.Round, enrolled []device.Device) ([]string, error) {
	req, err := m.repos.TrainingRequests.GetByRound(ctx, r.ID)
	switch {
	case errors.Is(err, pkgerrors.ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}

	all, err := m.repos.StatusReports.Repliers(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	members := make(map[string]struct{}, len(enrolled))
	for _, d := range enrolled {
		members[d.ID] = struct{}{}
	}
	replied := make([]string, 0, len(all))
	for _, id := range all {
		if _, ok := members[id]; ok {
			replied = append(replied, id)
		}
	}

	return replied, nil
}

func (m *roundMachine) complete(ctx context.Context, p project.Project, r project.Round, replied []string, now time.Time) error {
	r.Status = project.Complete
	r.StopTrainingDate = now
	if err := m.repos.Rounds.Update(ctx, r); err != nil {
		return err
	}

	next, err := m.nextRound(ctx, &p, now)
	if err != nil {
		return err
	}

	m.aggregate(ctx, p, r, next, replied)

	completed, err := m.repos.Rounds.CountByStatus(ctx, p.ID, project.Complete)
	if err != nil {
		return err
	}

	m.logger.Info("round complete",
		slog.String("project_id", p.ID),
		slog.Uint64("round", r.Number),
		slog.Int("replied", len(replied)),
		slog.Uint64("completed_rounds", completed))

	if completed >= p.NumberOfRounds {
		p.Status = project.Completed
		p.UpdatedAt = now
		if err := m.repos.Projects.Update(ctx, p); err != nil {
			return err
		}
		m.logger.Info("project completed", slog.String("project_id", p.ID), slog.Uint64("rounds", completed))

		return nil
	}

	return m.attemptTraining(ctx, p, next, now)
}

// aggregate failures are logged only; the round transition is already
// committed.
func (m *roundMachine) aggregate(ctx context.Context, p project.Project, from, to project.Round, devices []string) {
	size, err := fl.ModelSize(ctx, m.blobs, p.Model)
	if err != nil {
		m.logger.Error("failed to resolve model size",
			slog.String("project_id", p.ID),
			slog.String("model", p.Model),
			slog.String("error", err.Error()))

		return
	}

	n, err := fl.Aggregate(ctx, m.blobs, m.logger, p.ID, from.Number, to.Number, size, devices)
	if err != nil {
		m.logger.Error("failed to store aggregated model",
			slog.String("project_id", p.ID),
			slog.Uint64("round", to.Number),
			slog.String("error", err.Error()))

		return
	}
	if n == 0 {
		m.logger.Warn("aggregated model has no contributors",
			slog.String("project_id", p.ID),
			slog.Uint64("round", to.Number))
	}
}

func (m *roundMachine) invalidate(ctx context.Context, p project.Project, r project.Round, ratio float64, now time.Time) error {
	r.Status = project.Invalid
	r.StopTrainingDate = now
	if err := m.repos.Rounds.Update(ctx, r); err != nil {
		return err
	}

	next, err := m.nextRound(ctx, &p, now)
	if err != nil {
		return err
	}

	m.logger.Info("round invalid",
		slog.String("project_id", p.ID),
		slog.Uint64("round", r.Number),
		slog.Float64("trained_ratio", ratio))

	if err := fl.CopyForward(ctx, m.blobs, p.ID, r.Number, next.Number); err != nil {
		m.logger.Error("failed to copy model forward",
			slog.String("project_id", p.ID),
			slog.Uint64("round", next.Number),
			slog.String("error", err.Error()))
	}

	return m.attemptTraining(ctx, p, next, now)
}

// nextRound creates round current_round+1 and advances the counter of p.
func (m *roundMachine) nextRound(ctx context.Context, p *project.Project, now time.Time) (project.Round, error) {
	n := p.CurrentRound + 1
	r, err := m.repos.Rounds.Create(ctx, project.NewRound(uuid.NewString(), *p, n, now))
	if err != nil {
		return project.Round{}, err
	}

	p.CurrentRound = n
	p.UpdatedAt = now
	if err := m.repos.Projects.Update(ctx, *p); err != nil {
		return project.Round{}, err
	}

	return r, nil
}

func deviceIDs(devices []device.Device) []string {
	ids := make([]string, len(devices))
	for i, d := range devices {
		ids[i] = d.ID
	}

	return ids
}
