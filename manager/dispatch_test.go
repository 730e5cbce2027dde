package manager

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/absmach/flaas/pkg/device"
	pkgerrors "github.com/absmach/flaas/pkg/errors"
	"github.com/absmach/flaas/pkg/notify/mocks"
	"github.com/absmach/flaas/pkg/project"
	"github.com/absmach/flaas/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDispatch(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	active := project.Project{ID: "p", Status: project.InProgress, MaxTrainingTime: 30, TrainingMode: project.JointModels}
	round := project.Round{ID: "r", ProjectID: "p", Number: 4}
	devices := []device.Device{{ID: "a", Username: "ua"}, {ID: "b", Username: "ub"}}

	cases := []struct {
		desc       string
		project    project.Project
		devices    []device.Device
		dispatched bool
	}{
		{desc: "active project", project: active, devices: devices, dispatched: true},
		{desc: "stopped project", project: project.Project{ID: "p", Status: project.Stopped}, devices: devices},
		{desc: "no devices", project: active},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			ctx := context.Background()
			requests := storage.NewInMemoryTrainingRequestRepository()
			notifier := new(mocks.Notifier)
			notifier.On("Send", mock.Anything, []string{"ua", "ub"}, mock.Anything, 30).Return(nil)
			d := &dispatcher{requests: requests, notifier: notifier, logger: slog.New(slog.DiscardHandler)}

			req, ok, err := d.dispatch(ctx, tc.project, round, tc.devices, now)
			require.NoError(t, err)
			assert.Equal(t, tc.dispatched, ok)

			if !tc.dispatched {
				notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				_, err := requests.GetByRound(ctx, round.ID)
				assert.ErrorIs(t, err, pkgerrors.ErrNotFound)

				return
			}

			assert.Equal(t, []string{"a", "b"}, req.Devices)
			assert.Equal(t, uint64(4), req.RoundNumber)
			assert.True(t, req.ValidDate.Equal(now.Add(30*time.Minute)))

			stored, err := requests.GetByRound(ctx, round.ID)
			require.NoError(t, err)
			assert.Equal(t, req.ID, stored.ID)

			payload := notifier.Calls[0].Arguments.Get(2).(map[string]any)
			assert.Equal(t, "JOINT_MODELS", payload["trainingMode"])
			assert.Equal(t, req.ID, payload["requestId"])
		})
	}
}
