package manager_test

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/absmach/flaas/manager"
	"github.com/absmach/flaas/pkg/blob"
	"github.com/absmach/flaas/pkg/device"
	"github.com/absmach/flaas/pkg/fl"
	"github.com/absmach/flaas/pkg/notify/mocks"
	"github.com/absmach/flaas/pkg/project"
	"github.com/absmach/flaas/pkg/storage"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testModel = "TEST_MODEL"

var templateWeights = []float32{0.5, -1, 2, 0}

type fixture struct {
	svc      manager.Service
	repos    *storage.Repositories
	blobs    blob.Store
	notifier *mocks.Notifier
	now      time.Time
	seq      int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		repos:    storage.NewInMemoryRepositories(),
		blobs:    blob.NewMemoryStore(),
		notifier: new(mocks.Notifier),
		now:      time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, f.blobs.Write(context.Background(), blob.TemplatePath(testModel), fl.EncodeWeights(templateWeights)))
	f.build()

	return f
}

// build (re)creates the service over the fixture's repositories.
func (f *fixture) build() {
	f.svc = manager.NewService(f.repos, f.blobs, f.notifier, manager.Config{Lookback: manager.DefaultLookback, TopicPrefix: "flaas"},
		slog.New(slog.DiscardHandler), manager.WithClock(func() time.Time { return f.now }))
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

// acceptSends makes every training request delivery succeed.
func (f *fixture) acceptSends() {
	f.notifier.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
}

// startProject creates and starts a project with permissive defaults that
// modify can override.
func (f *fixture) startProject(t *testing.T, modify func(p *project.Project)) project.Project {
	t.Helper()
	ctx := context.Background()

	p := project.Project{
		Title:                       "test",
		Model:                       testModel,
		NumberOfRounds:              20,
		ResponsesRatioThreshold:     0.8,
		MaxTrainingTime:             60,
		ValidRoundTrainingThreshold: 0.7,
		PowerPluggedOnly:            true,
		BatteryLevelThreshold:       0.6,
	}
	if modify != nil {
		modify(&p)
	}

	created, err := f.svc.CreateProject(ctx, p)
	require.NoError(t, err)
	started, err := f.svc.StartProject(ctx, created.ID)
	require.NoError(t, err)

	return started
}

func (f *fixture) enroll(t *testing.T, p project.Project, n int) []device.Device {
	t.Helper()
	ctx := context.Background()

	ids := make([]string, n)
	for i := range ids {
		f.seq++
		d, err := f.svc.RegisterDevice(ctx, device.Device{Username: fmt.Sprintf("user-%d", f.seq)})
		require.NoError(t, err)
		ids[i] = d.ID
	}

	devices, err := f.svc.AssignDevices(ctx, p.ID, ids)
	require.NoError(t, err)

	return devices
}

func (f *fixture) ping(t *testing.T, d device.Device, plugged bool, level float64) {
	t.Helper()

	_, err := f.svc.ReportStatus(context.Background(), d.ID, device.Report{
		RequestType: device.Ping,
		Status:      device.StatusPayload{Battery: device.BatteryStatus{PowerPlugged: &plugged, Level: &level}},
	})
	require.NoError(t, err)
}

// reply submits weights and the training reply for the round's request.
func (f *fixture) reply(t *testing.T, d device.Device, r project.Round, weights []float32) {
	t.Helper()
	ctx := context.Background()

	req, err := f.repos.TrainingRequests.GetByRound(ctx, r.ID)
	require.NoError(t, err)

	if weights != nil {
		require.NoError(t, f.svc.SubmitModel(ctx, d.ID, r.ProjectID, r.Number, fl.EncodeWeights(weights)))
	}

	plugged, level := true, 1.0
	_, err = f.svc.ReportStatus(ctx, d.ID, device.Report{
		RequestType: device.TrainAck,
		RequestID:   req.ID,
		Status:      device.StatusPayload{Battery: device.BatteryStatus{PowerPlugged: &plugged, Level: &level}},
	})
	require.NoError(t, err)
}

func (f *fixture) tick(t *testing.T) int {
	t.Helper()

	n, err := f.svc.Tick(context.Background())
	require.NoError(t, err)

	return n
}

func (f *fixture) latest(t *testing.T, p project.Project) project.Round {
	t.Helper()

	r, err := f.repos.Rounds.Latest(context.Background(), p.ID)
	require.NoError(t, err)

	return r
}

func (f *fixture) model(t *testing.T, p project.Project, round uint64) []byte {
	t.Helper()

	data, err := f.svc.GetModel(context.Background(), p.ID, round)
	require.NoError(t, err)

	return data
}

// assertRoundInvariants checks that round numbers are 0..n without gaps and
// that only the last round may be non-terminal.
func assertRoundInvariants(t *testing.T, f *fixture, p project.Project) {
	t.Helper()

	rounds, err := f.svc.ListRounds(context.Background(), p.ID)
	require.NoError(t, err)
	for i, r := range rounds {
		require.Equal(t, uint64(i), r.Number)
		if i < len(rounds)-1 {
			require.True(t, r.Status.Terminal(), "round %d is %s", r.Number, r.Status)
		}
	}
}

func ids(devices []device.Device) []string {
	out := make([]string, len(devices))
	for i, d := range devices {
		out[i] = d.ID
	}

	return out
}

func usernames(devices []device.Device) []string {
	out := make([]string, len(devices))
	for i, d := range devices {
		out[i] = d.Username
	}

	return out
}
