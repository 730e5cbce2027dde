package manager

import (
	"context"
	"errors"
	"log/slog"
	"time"

	pkgerrors "github.com/absmach/flaas/pkg/errors"
	"github.com/absmach/flaas/pkg/notify"
	"github.com/absmach/flaas/pkg/project"
	"github.com/absmach/flaas/pkg/storage"
	"github.com/google/uuid"
)

var (
	defaultNotificationHours   = []int{10, 14, 18}
	defaultNotificationHeaders = []string{
		"How was your phone performance until now?",
		"How was your phone performance until now?",
		"Please complete this quick daily survey!",
	}
)

type QuestionnaireConfig struct {
	// RegistrationHour is the UTC hour after which the day's notifications
	// are registered.
	RegistrationHour int `env:"REGISTRATION_HOUR" envDefault:"6"`
	// Hours are wall clock hours in each device's local time.
	Hours    []int         `env:"HOURS"    envDefault:"10,14,18"`
	Headers  []string      `env:"HEADERS"  envDefault:"How was your phone performance until now?|How was your phone performance until now?|Please complete this quick daily survey!" envSeparator:"|"`
	Content  string        `env:"CONTENT"  envDefault:"It will take you just a minute."`
	TTL      int           `env:"TTL"      envDefault:"1440"`
	Cooldown time.Duration `env:"COOLDOWN" envDefault:"20h"`
}

func (c QuestionnaireConfig) withDefaults() QuestionnaireConfig {
	if len(c.Hours) == 0 {
		c.Hours = defaultNotificationHours
	}
	if len(c.Headers) == 0 {
		c.Headers = defaultNotificationHeaders
	}
	if c.TTL == 0 {
		c.TTL = 1440
	}
	if c.Cooldown == 0 {
		c.Cooldown = 20 * time.Hour
	}

	return c
}

// sendQuestionnaires schedules one notification per configured hour of the
// current day, at most once per cooldown period and only after the
// registration hour.
func sendQuestionnaires(ctx context.Context, repos *storage.Repositories, notifier notify.Notifier, cfg QuestionnaireConfig, now time.Time, logger *slog.Logger) (project.Notification, error) {
	now = now.UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if !now.After(day.Add(time.Duration(cfg.RegistrationHour) * time.Hour)) {
		return project.Notification{}, nil
	}

	last, err := repos.Notifications.Latest(ctx)
	switch {
	case err == nil && last.SentAt.After(now.Add(-cfg.Cooldown)):
		logger.Debug("questionnaire already sent", slog.Time("sent_at", last.SentAt))

		return project.Notification{}, nil
	case err != nil && !errors.Is(err, pkgerrors.ErrNotFound):
		return project.Notification{}, err
	}

	usernames, err := allUsernames(ctx, repos.Devices)
	if err != nil {
		return project.Notification{}, err
	}
	if len(usernames) == 0 {
		logger.Info("no registered devices for questionnaire")

		return project.Notification{}, nil
	}

	for i, hour := range cfg.Hours {
		n := notify.Notification{
			SendAt:  day.Add(time.Duration(hour) * time.Hour),
			Header:  cfg.Headers[i%len(cfg.Headers)],
			Content: cfg.Content,
			TTL:     cfg.TTL,
		}
		if err := notifier.Schedule(ctx, usernames, n); err != nil {
			logger.Warn("failed to schedule questionnaire",
				slog.Int("hour", hour),
				slog.String("error", err.Error()))
		}
	}

	sent := project.Notification{
		ID:     uuid.NewString(),
		SentAt: now,
		Count:  uint64(len(usernames)),
	}
	if err := repos.Notifications.Create(ctx, sent); err != nil {
		return project.Notification{}, err
	}

	logger.Info("questionnaire registered",
		slog.Int("recipients", len(usernames)),
		slog.Int("notifications", len(cfg.Hours)))

	return sent, nil
}
