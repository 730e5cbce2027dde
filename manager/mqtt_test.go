package manager_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/absmach/flaas/manager"
	"github.com/absmach/flaas/pkg/device"
	pkgerrors "github.com/absmach/flaas/pkg/errors"
	"github.com/absmach/flaas/pkg/mqtt"
	mqttmocks "github.com/absmach/flaas/pkg/mqtt/mocks"
	"github.com/absmach/flaas/pkg/project"
	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func subscribed(t *testing.T, f *fixture) map[string]mqtt.Handler {
	t.Helper()

	ps := new(mqttmocks.MockPubSub)
	handlers := map[string]mqtt.Handler{}
	ps.On("Subscribe", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			handlers[args.String(1)] = args.Get(2).(mqtt.Handler)
		}).
		Return(nil)

	f.svc = manager.NewService(f.repos, f.blobs, f.notifier, manager.Config{Lookback: manager.DefaultLookback, TopicPrefix: "flaas"},
		slog.New(slog.DiscardHandler), manager.WithClock(func() time.Time { return f.now }), manager.WithPubSub(ps))
	require.NoError(t, f.svc.Subscribe(context.Background()))
	ps.AssertNumberOfCalls(t, "Subscribe", 2)

	return handlers
}

func TestSubscribeStatus(t *testing.T) {
	f := newFixture(t)
	handlers := subscribed(t, f)
	handle := handlers["flaas/devices/+/status"]
	require.NotNil(t, handle)

	ctx := context.Background()
	p, err := f.svc.CreateProject(ctx, project.Project{Title: "p", Model: testModel})
	require.NoError(t, err)
	d := f.enroll(t, p, 1)[0]

	plugged, level := true, 0.8
	encoded, err := cbor.Marshal(device.Report{
		RequestType: device.Ping,
		Status:      device.StatusPayload{Battery: device.BatteryStatus{PowerPlugged: &plugged, Level: &level}},
	})
	require.NoError(t, err)

	cases := []struct {
		desc    string
		topic   string
		payload []byte
		err     error
	}{
		{
			desc:    "json report",
			topic:   "flaas/devices/" + d.ID + "/status",
			payload: []byte(`{"request_type":"device-ping","device_info":{"battery_status":{"power_plugged":false,"level":0.3}}}`),
		},
		{
			desc:    "cbor report",
			topic:   "flaas/devices/" + d.ID + "/status",
			payload: encoded,
		},
		{
			desc:    "malformed report",
			topic:   "flaas/devices/" + d.ID + "/status",
			payload: []byte(`{"request_type":`),
			err:     device.ErrMalformedReport,
		},
		{
			desc:    "unknown device",
			topic:   "flaas/devices/missing/status",
			payload: []byte(`{"request_type":"device-ping","device_info":{"battery_status":{"power_plugged":true,"level":1}}}`),
			err:     pkgerrors.ErrNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			err := handle(tc.topic, tc.payload)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)

				return
			}
			assert.NoError(t, err)
		})
	}

	reports, err := f.repos.StatusReports.ListWindow(ctx, []string{d.ID}, f.now.Add(-time.Minute), f.now)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.False(t, reports[0].Payload.Plugged())
	assert.True(t, reports[1].Payload.Plugged())
}

func TestSubscribeJoin(t *testing.T) {
	f := newFixture(t)
	handlers := subscribed(t, f)
	handle := handlers["flaas/devices/+/join"]
	require.NotNil(t, handle)

	ctx := context.Background()
	p, err := f.svc.CreateProject(ctx, project.Project{Title: "p", Model: testModel})
	require.NoError(t, err)
	d := f.enroll(t, p, 1)[0]

	err = handle("flaas/devices/"+d.ID+"/join", []byte(`{"project_id":"`+p.ID+`","round_number":0,"status":"train"}`))
	require.NoError(t, err)

	joined, err := f.svc.ListJoined(ctx, p.ID, 0)
	require.NoError(t, err)
	require.Len(t, joined, 1)
	assert.Equal(t, device.Train, joined[0].Status)

	assert.Error(t, handle("flaas/devices/"+d.ID+"/join", []byte(`not json`)))
	assert.Error(t, handle("other/devices/"+d.ID+"/join", []byte(`{}`)))
	assert.Error(t, handle("flaas/devices/"+d.ID+"/join/extra", []byte(`{}`)))
}

func TestSubscribeWithoutPubSub(t *testing.T) {
	f := newFixture(t)
	assert.NoError(t, f.svc.Subscribe(context.Background()))
}
