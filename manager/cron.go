package manager

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/absmach/flaas/pkg/cron"
)

// TickScheduler is the external clock of the controller. It calls Tick and
// SendQuestionnaires on a cron schedule; the core never reschedules itself.
type TickScheduler struct {
	service       Service
	schedule      *cron.Schedule
	questionnaire bool
	logger        *slog.Logger
	stopChan      chan struct{}
	stopOnce      sync.Once
}

func NewTickScheduler(service Service, expr string, questionnaire bool, logger *slog.Logger) (*TickScheduler, error) {
	schedule, err := cron.Parse(expr, time.UTC)
	if err != nil {
		return nil, err
	}

	return &TickScheduler{
		service:       service,
		schedule:      schedule,
		questionnaire: questionnaire,
		logger:        logger,
		stopChan:      make(chan struct{}),
	}, nil
}

func (ts *TickScheduler) Start(ctx context.Context) error {
	ts.logger.Info("tick scheduler started", slog.String("schedule", ts.schedule.String()))

	for {
		timer := time.NewTimer(ts.schedule.Wait(time.Now()))

		select {
		case <-ctx.Done():
			timer.Stop()
			ts.logger.Info("tick scheduler stopping")

			return ctx.Err()
		case <-ts.stopChan:
			timer.Stop()
			ts.logger.Info("tick scheduler stopped")

			return nil
		case <-timer.C:
			ts.run(ctx)
		}
	}
}

// Stop ends Start. It is safe to call more than once.
func (ts *TickScheduler) Stop() {
	ts.stopOnce.Do(func() { close(ts.stopChan) })
}

func (ts *TickScheduler) run(ctx context.Context) {
	processed, err := ts.service.Tick(ctx)
	if err != nil {
		ts.logger.Error("tick failed", slog.String("error", err.Error()))
	} else {
		ts.logger.Debug("tick completed", slog.Int("projects", processed))
	}

	if !ts.questionnaire {
		return
	}
	if _, err := ts.service.SendQuestionnaires(ctx); err != nil {
		ts.logger.Error("failed to send questionnaires", slog.String("error", err.Error()))
	}
}
