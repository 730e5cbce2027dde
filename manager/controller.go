package manager

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/absmach/flaas/pkg/blob"
	pkgerrors "github.com/absmach/flaas/pkg/errors"
	"github.com/absmach/flaas/pkg/notify"
	"github.com/absmach/flaas/pkg/project"
	"github.com/absmach/flaas/pkg/storage"
)

// Controller drives the round state machine of every active project. Ticks
// are serialized; so are project mutations made through the service.
type Controller struct {
	mu       sync.Mutex
	projects storage.ProjectRepository
	rounds   storage.RoundRepository
	machine  *roundMachine
	logger   *slog.Logger
}

func NewController(repos *storage.Repositories, blobs blob.Store, notifier notify.Notifier, lookback time.Duration, logger *slog.Logger) *Controller {
	if lookback <= 0 {
		lookback = DefaultLookback
	}

	return &Controller{
		projects: repos.Projects,
		rounds:   repos.Rounds,
		machine: &roundMachine{
			repos: repos,
			blobs: blobs,
			dispatcher: &dispatcher{
				requests: repos.TrainingRequests,
				notifier: notifier,
				logger:   logger,
			},
			lookback: lookback,
			logger:   logger,
		},
		logger: logger,
	}
}

// Tick processes every InProgress project once and returns how many were
// processed without error. A failing project is logged and skipped.
func (c *Controller) Tick(ctx context.Context, now time.Time) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	projects, err := c.projects.ListByStatus(ctx, project.InProgress)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, p := range projects {
		if err := c.process(ctx, p, now); err != nil {
			c.logger.Error("failed to process project",
				slog.String("project_id", p.ID),
				slog.String("error", err.Error()))

			continue
		}
		processed++
	}

	return processed, nil
}

func (c *Controller) process(ctx context.Context, p project.Project, now time.Time) error {
	r, err := c.rounds.Latest(ctx, p.ID)
	if err != nil {
		return err
	}

	switch r.Status {
	case project.Wait:
		return c.machine.attemptTraining(ctx, p, r, now)
	case project.Training:
		return c.machine.checkTraining(ctx, p, r, now)
	case project.Complete, project.Invalid:
		// Terminal rounds are always followed by a new one.
		c.logger.Warn("latest round is terminal",
			slog.String("project_id", p.ID),
			slog.Uint64("round", r.Number),
			slog.String("status", r.Status.String()))

		return nil
	default:
		return fmt.Errorf("%w: round %d of project %s has status %s", pkgerrors.ErrIllegalState, r.Number, p.ID, r.Status)
	}
}

// exclusive runs fn without any tick in progress.
func (c *Controller) exclusive(fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return fn()
}
