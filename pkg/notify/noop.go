package notify

import (
	"context"
	"log/slog"
)

type noop struct {
	logger *slog.Logger
}

// NewNoop returns a Notifier that only logs what it would have sent.
func NewNoop(logger *slog.Logger) Notifier {
	return &noop{logger: logger}
}

func (n *noop) Send(_ context.Context, usernames []string, payload map[string]any, ttlMinutes int) error {
	n.logger.Info("notification dropped",
		slog.Int("recipients", len(usernames)),
		slog.Any("payload", payload),
		slog.Int("ttl_minutes", ttlMinutes),
	)

	return nil
}

func (n *noop) Schedule(_ context.Context, usernames []string, notif Notification) error {
	n.logger.Info("scheduled notification dropped",
		slog.Int("recipients", len(usernames)),
		slog.Time("send_at", notif.SendAt),
		slog.String("header", notif.Header),
	)

	return nil
}
