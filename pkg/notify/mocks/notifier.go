package mocks

import (
	"context"

	"github.com/absmach/flaas/pkg/notify"
	"github.com/stretchr/testify/mock"
)

var _ notify.Notifier = (*Notifier)(nil)

type Notifier struct {
	mock.Mock
}

func (m *Notifier) Send(ctx context.Context, usernames []string, payload map[string]any, ttlMinutes int) error {
	args := m.Called(ctx, usernames, payload, ttlMinutes)

	return args.Error(0)
}

func (m *Notifier) Schedule(ctx context.Context, usernames []string, n notify.Notification) error {
	args := m.Called(ctx, usernames, n)

	return args.Error(0)
}
