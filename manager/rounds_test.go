package manager_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/absmach/flaas/manager"
	"github.com/absmach/flaas/pkg/device"
	pkgerrors "github.com/absmach/flaas/pkg/errors"
	"github.com/absmach/flaas/pkg/fl"
	"github.com/absmach/flaas/pkg/project"
	"github.com/absmach/flaas/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestWaitToTraining(t *testing.T) {
	f := newFixture(t)

	var (
		sentTo  []string
		payload map[string]any
	)
	f.notifier.On("Send", mock.Anything, mock.Anything, mock.Anything, 60).
		Run(func(args mock.Arguments) {
			sentTo = args.Get(1).([]string)
			payload = args.Get(2).(map[string]any)
		}).
		Return(nil).Once()

	p := f.startProject(t, nil)
	devices := f.enroll(t, p, 5)
	for _, d := range devices[:4] {
		f.ping(t, d, true, 0.1)
	}
	f.ping(t, devices[4], false, 0.9)

	assert.Equal(t, 1, f.tick(t))

	r := f.latest(t, p)
	assert.Equal(t, uint64(0), r.Number)
	assert.Equal(t, project.Training, r.Status)
	assert.ElementsMatch(t, ids(devices[:4]), r.RequestedDevices)
	assert.True(t, r.StartTrainingDate.Equal(f.now))

	req, err := f.repos.TrainingRequests.GetByRound(context.Background(), r.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, ids(devices[:4]), req.Devices)
	assert.True(t, req.ValidDate.Equal(f.now.Add(60*time.Minute)))

	assert.ElementsMatch(t, usernames(devices[:4]), sentTo)
	assert.Equal(t, map[string]any{
		"type":         "train",
		"validDate":    req.ValidDate.UnixMilli(),
		"requestId":    req.ID,
		"projectId":    p.ID,
		"roundNumber":  uint64(0),
		"trainingMode": "BASELINE",
	}, payload)
	f.notifier.AssertExpectations(t)
}

func TestWaitStaysWait(t *testing.T) {
	cases := []struct {
		desc    string
		modify  func(p *project.Project)
		reports func(f *fixture, t *testing.T, p project.Project)
		want    project.RoundStatus
	}{
		{
			desc: "ratio below threshold",
			reports: func(f *fixture, t *testing.T, p project.Project) {
				for _, d := range f.enroll(t, p, 5)[:3] {
					f.ping(t, d, true, 1)
				}
			},
			want: project.Wait,
		},
		{
			desc:    "no devices enrolled",
			reports: func(*fixture, *testing.T, project.Project) {},
			want:    project.Wait,
		},
		{
			desc: "reports outside the lookback window",
			reports: func(f *fixture, t *testing.T, p project.Project) {
				for _, d := range f.enroll(t, p, 2) {
					f.ping(t, d, true, 1)
				}
				f.advance(60 * time.Minute)
			},
			want: project.Wait,
		},
		{
			desc: "latest report unplugged",
			reports: func(f *fixture, t *testing.T, p project.Project) {
				for _, d := range f.enroll(t, p, 2) {
					f.ping(t, d, true, 1)
					f.advance(time.Minute)
					f.ping(t, d, false, 1)
				}
			},
			want: project.Wait,
		},
		{
			desc:   "battery level admits when not plugged only",
			modify: func(p *project.Project) { p.PowerPluggedOnly = false },
			reports: func(f *fixture, t *testing.T, p project.Project) {
				devices := f.enroll(t, p, 2)
				f.ping(t, devices[0], false, 0.6)
				f.ping(t, devices[1], true, 0.1)
			},
			want: project.Training,
		},
		{
			desc:   "battery level below threshold",
			modify: func(p *project.Project) { p.PowerPluggedOnly = false },
			reports: func(f *fixture, t *testing.T, p project.Project) {
				devices := f.enroll(t, p, 2)
				f.ping(t, devices[0], false, 0.59)
				f.ping(t, devices[1], true, 0.1)
			},
			want: project.Wait,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			f := newFixture(t)
			f.acceptSends()
			p := f.startProject(t, tc.modify)

			tc.reports(f, t, p)
			f.tick(t)
			f.tick(t)

			r := f.latest(t, p)
			assert.Equal(t, uint64(0), r.Number)
			assert.Equal(t, tc.want, r.Status)
			if tc.want == project.Wait {
				f.notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				_, err := f.repos.TrainingRequests.GetByRound(context.Background(), r.ID)
				assert.Error(t, err)
			}
		})
	}
}

func TestTrainingTimesOutInvalid(t *testing.T) {
	f := newFixture(t)
	f.acceptSends()
	p := f.startProject(t, nil)
	devices := f.enroll(t, p, 5)
	for _, d := range devices {
		f.ping(t, d, true, 1)
	}
	f.tick(t)
	r0 := f.latest(t, p)
	require.Equal(t, project.Training, r0.Status)

	for _, d := range devices[:3] {
		f.reply(t, d, r0, []float32{9, 9, 9, 9})
	}

	f.advance(60 * time.Minute)
	f.tick(t)
	assert.Equal(t, project.Training, f.latest(t, p).Status, "deadline is inclusive")

	f.advance(time.Minute)
	for _, d := range devices {
		f.ping(t, d, true, 1)
	}
	f.tick(t)

	got, err := f.svc.GetRound(context.Background(), p.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, project.Invalid, got.Status)
	assert.True(t, got.StopTrainingDate.Equal(f.now))

	r1 := f.latest(t, p)
	assert.Equal(t, uint64(1), r1.Number)
	assert.Equal(t, project.Training, r1.Status, "training is attempted on the next round in the same tick")
	assert.Equal(t, f.model(t, p, 0), f.model(t, p, 1))

	updated, err := f.svc.GetProject(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), updated.CurrentRound)
	assertRoundInvariants(t, f, p)
}

func TestTrainingCompletesWhenAllReply(t *testing.T) {
	f := newFixture(t)
	f.acceptSends()
	p := f.startProject(t, nil)
	devices := f.enroll(t, p, 5)
	for _, d := range devices {
		f.ping(t, d, true, 1)
	}
	f.tick(t)
	r0 := f.latest(t, p)

	for i, d := range devices {
		k := float32(i + 1)
		f.reply(t, d, r0, []float32{k, 2 * k, 3 * k, 4 * k})
	}
	f.advance(time.Minute)
	f.tick(t)

	got, err := f.svc.GetRound(context.Background(), p.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, project.Complete, got.Status)

	weights, err := fl.DecodeWeights(f.model(t, p, 1))
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 6, 9, 12}, weights)
	assert.Equal(t, project.Training, f.latest(t, p).Status)
	assertRoundInvariants(t, f, p)
}

func TestProjectCompletesAfterTargetRounds(t *testing.T) {
	f := newFixture(t)
	f.acceptSends()
	p := f.startProject(t, func(p *project.Project) { p.NumberOfRounds = 2 })
	devices := f.enroll(t, p, 3)
	for _, d := range devices {
		f.ping(t, d, true, 1)
	}
	f.tick(t)

	for round := uint64(0); round < 2; round++ {
		r := f.latest(t, p)
		require.Equal(t, round, r.Number)
		require.Equal(t, project.Training, r.Status)
		for _, d := range devices {
			f.reply(t, d, r, []float32{1, 1, 1, 1})
		}
		f.tick(t)
	}

	done, err := f.svc.GetProject(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, project.Completed, done.Status)

	last := f.latest(t, p)
	assert.Equal(t, uint64(2), last.Number)
	assert.Equal(t, project.Wait, last.Status)

	assert.Equal(t, 0, f.tick(t))
	assert.Equal(t, last, f.latest(t, p), "completed projects are not processed")
	assertRoundInvariants(t, f, p)

	_, err = f.svc.StartProject(context.Background(), p.ID)
	assert.Error(t, err)
}

func TestTrainedRatioUsesEnrolledDevices(t *testing.T) {
	cases := []struct {
		desc       string
		enrollLate bool
		want       project.RoundStatus
	}{
		{desc: "stable enrollment", want: project.Complete},
		{desc: "device enrolled mid-round", enrollLate: true, want: project.Invalid},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			f := newFixture(t)
			f.acceptSends()
			p := f.startProject(t, func(p *project.Project) { p.ResponsesRatioThreshold = 0.5 })
			devices := f.enroll(t, p, 4)
			for _, d := range devices {
				f.ping(t, d, true, 1)
			}
			f.tick(t)
			r0 := f.latest(t, p)
			require.Len(t, r0.RequestedDevices, 4)

			// 3 of 4 requested devices reply: 0.75 against 0.7.
			for _, d := range devices[:3] {
				f.reply(t, d, r0, []float32{1, 2, 3, 4})
			}
			if tc.enrollLate {
				f.enroll(t, p, 1)
			}

			f.advance(61 * time.Minute)
			f.tick(t)

			got, err := f.svc.GetRound(context.Background(), p.ID, 0)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Status)
		})
	}
}

func TestCompleteWithoutRepliesPersistsZeroModel(t *testing.T) {
	f := newFixture(t)
	f.acceptSends()
	p := f.startProject(t, func(p *project.Project) {
		p.ResponsesRatioThreshold = 0.5
		p.ValidRoundTrainingThreshold = 0
	})
	for _, d := range f.enroll(t, p, 2) {
		f.ping(t, d, true, 1)
	}
	f.tick(t)
	require.Equal(t, project.Training, f.latest(t, p).Status)

	f.advance(61 * time.Minute)
	f.tick(t)

	got, err := f.svc.GetRound(context.Background(), p.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, project.Complete, got.Status)
	assert.Equal(t, fl.EncodeWeights(make([]float32, len(templateWeights))), f.model(t, p, 1))
}

func TestDeliveryFailureKeepsTraining(t *testing.T) {
	f := newFixture(t)
	f.notifier.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("push service down"))

	p := f.startProject(t, nil)
	devices := f.enroll(t, p, 2)
	for _, d := range devices {
		f.ping(t, d, true, 1)
	}

	assert.Equal(t, 1, f.tick(t))

	r := f.latest(t, p)
	assert.Equal(t, project.Training, r.Status)
	req, err := f.repos.TrainingRequests.GetByRound(context.Background(), r.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, ids(devices), req.Devices)
}

func TestRepeatedTicksCreateOneRequest(t *testing.T) {
	f := newFixture(t)
	f.acceptSends()
	p := f.startProject(t, nil)
	for _, d := range f.enroll(t, p, 2) {
		f.ping(t, d, true, 1)
	}

	for range 3 {
		f.tick(t)
		f.advance(time.Minute)
	}

	f.notifier.AssertNumberOfCalls(t, "Send", 1)
	rounds, err := f.svc.ListRounds(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Len(t, rounds, 1)
}

func TestUnknownStatusSkipsOnlyThatProject(t *testing.T) {
	f := newFixture(t)
	f.acceptSends()
	ctx := context.Background()

	broken := f.startProject(t, nil)
	for _, d := range f.enroll(t, broken, 2) {
		f.ping(t, d, true, 1)
	}
	r := f.latest(t, broken)
	r.Status = project.RoundStatus(42)
	require.NoError(t, f.repos.Rounds.Update(ctx, r))

	healthy := f.startProject(t, nil)
	for _, d := range f.enroll(t, healthy, 2) {
		f.ping(t, d, true, 1)
	}

	assert.Equal(t, 1, f.tick(t))
	assert.Equal(t, project.Training, f.latest(t, healthy).Status)
	assert.Equal(t, project.RoundStatus(42), f.latest(t, broken).Status)
}

func TestStoppedProjectIsNotTicked(t *testing.T) {
	f := newFixture(t)
	f.acceptSends()
	p := f.startProject(t, nil)
	for _, d := range f.enroll(t, p, 2) {
		f.ping(t, d, true, 1)
	}

	_, err := f.svc.StopProject(context.Background(), p.ID)
	require.NoError(t, err)

	assert.Equal(t, 0, f.tick(t))
	assert.Equal(t, project.Wait, f.latest(t, p).Status)
}

func TestReplyFromUnenrolledDeviceRejected(t *testing.T) {
	f := newFixture(t)
	f.acceptSends()
	ctx := context.Background()
	p := f.startProject(t, func(p *project.Project) {
		p.ResponsesRatioThreshold = 0.5
		p.ValidRoundTrainingThreshold = 1
	})
	devices := f.enroll(t, p, 2)
	for _, d := range devices {
		f.ping(t, d, true, 1)
	}
	f.tick(t)
	r0 := f.latest(t, p)
	require.Equal(t, project.Training, r0.Status)

	f.reply(t, devices[0], r0, []float32{1, 2, 3, 4})

	outsider, err := f.svc.RegisterDevice(ctx, device.Device{Username: "outsider"})
	require.NoError(t, err)
	req, err := f.repos.TrainingRequests.GetByRound(ctx, r0.ID)
	require.NoError(t, err)

	plugged, level := true, 1.0
	_, err = f.svc.ReportStatus(ctx, outsider.ID, device.Report{
		RequestType: device.TrainAck,
		RequestID:   req.ID,
		Status:      device.StatusPayload{Battery: device.BatteryStatus{PowerPlugged: &plugged, Level: &level}},
	})
	assert.ErrorIs(t, err, manager.ErrNotEnrolled)
	assert.ErrorIs(t, err, pkgerrors.ErrValidation)

	f.tick(t)
	assert.Equal(t, project.Training, f.latest(t, p).Status, "one of two enrolled devices replied")

	f.advance(61 * time.Minute)
	f.tick(t)
	got, err := f.svc.GetRound(ctx, p.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, project.Invalid, got.Status)
}

func TestRepliesOfUnassignedDevicesAreDropped(t *testing.T) {
	f := newFixture(t)
	f.acceptSends()
	ctx := context.Background()
	p := f.startProject(t, nil)
	devices := f.enroll(t, p, 3)
	for _, d := range devices {
		f.ping(t, d, true, 1)
	}
	f.tick(t)
	r0 := f.latest(t, p)
	require.Equal(t, project.Training, r0.Status)

	f.reply(t, devices[0], r0, []float32{1, 2, 3, 4})
	f.reply(t, devices[1], r0, []float32{5, 6, 7, 8})
	_, err := f.svc.AssignDevices(ctx, "", []string{devices[1].ID})
	require.NoError(t, err)

	// 2 replies against 2 enrolled devices, but only one reply is from an
	// enrolled device.
	f.tick(t)
	assert.Equal(t, project.Training, f.latest(t, p).Status)

	f.advance(61 * time.Minute)
	f.tick(t)
	got, err := f.svc.GetRound(ctx, p.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, project.Invalid, got.Status)
}

type countingRequests struct {
	storage.TrainingRequestRepository
	created atomic.Int32
}

func (c *countingRequests) Create(ctx context.Context, tr project.TrainingRequest) error {
	c.created.Add(1)

	return c.TrainingRequestRepository.Create(ctx, tr)
}

func TestConcurrentTicksDispatchOnce(t *testing.T) {
	f := newFixture(t)
	requests := &countingRequests{TrainingRequestRepository: f.repos.TrainingRequests}
	f.repos.TrainingRequests = requests
	f.build()
	f.acceptSends()
	ctx := context.Background()

	p := f.startProject(t, nil)
	enrolled := f.enroll(t, p, 4)
	for _, d := range enrolled {
		f.ping(t, d, true, 1)
	}

	doomed := f.enroll(t, p, 1)[0]
	f.ping(t, doomed, true, 1)

	late := make([]device.Device, 2)
	for i := range late {
		d, err := f.svc.RegisterDevice(ctx, device.Device{Username: fmt.Sprintf("late-%d", i)})
		require.NoError(t, err)
		f.ping(t, d, true, 1)
		late[i] = d
	}

	const ticks = 8
	errs := make(chan error, ticks+len(late)+1)
	var wg sync.WaitGroup
	for range ticks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Tick(ctx)
			errs <- err
		}()
	}
	for _, d := range late {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.AssignDevices(ctx, p.ID, []string{d.ID})
			errs <- err
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs <- f.svc.DeleteDevice(ctx, doomed.ID)
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.EqualValues(t, 1, requests.created.Load())
	f.notifier.AssertNumberOfCalls(t, "Send", 1)

	rounds, err := f.svc.ListRounds(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, rounds, 1)
	assert.Equal(t, project.Training, rounds[0].Status)
	known := append(ids(enrolled), doomed.ID)
	assert.Subset(t, append(known, ids(late)...), rounds[0].RequestedDevices)
	assert.GreaterOrEqual(t, len(rounds[0].RequestedDevices), len(enrolled))

	_, err = f.svc.GetDevice(ctx, doomed.ID)
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
}
