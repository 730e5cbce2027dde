package manager_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/absmach/flaas/manager"
	"github.com/absmach/flaas/manager/mocks"
	"github.com/absmach/flaas/pkg/cron"
	"github.com/absmach/flaas/pkg/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewTickSchedulerInvalidExpression(t *testing.T) {
	_, err := manager.NewTickScheduler(new(mocks.MockService), "every now and then", false, slog.New(slog.DiscardHandler))
	assert.ErrorIs(t, err, cron.ErrInvalidCronExpression)
}

func TestTickSchedulerRuns(t *testing.T) {
	cases := []struct {
		desc          string
		questionnaire bool
	}{
		{desc: "tick only"},
		{desc: "tick and questionnaires", questionnaire: true},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			svc := new(mocks.MockService)
			ticked := make(chan struct{}, 1)
			svc.On("Tick", mock.Anything).
				Run(func(mock.Arguments) {
					select {
					case ticked <- struct{}{}:
					default:
					}
				}).
				Return(1, nil)
			svc.On("SendQuestionnaires", mock.Anything).Return(project.Notification{}, nil)

			ts, err := manager.NewTickScheduler(svc, "@every 1s", tc.questionnaire, slog.New(slog.DiscardHandler))
			require.NoError(t, err)

			done := make(chan error, 1)
			go func() { done <- ts.Start(context.Background()) }()

			select {
			case <-ticked:
			case <-time.After(5 * time.Second):
				t.Fatal("scheduler did not tick")
			}
			ts.Stop()
			assert.NotPanics(t, ts.Stop)

			select {
			case err := <-done:
				assert.NoError(t, err)
			case <-time.After(5 * time.Second):
				t.Fatal("scheduler did not stop")
			}

			if tc.questionnaire {
				svc.AssertCalled(t, "SendQuestionnaires", mock.Anything)
			} else {
				svc.AssertNotCalled(t, "SendQuestionnaires", mock.Anything)
			}
		})
	}
}
