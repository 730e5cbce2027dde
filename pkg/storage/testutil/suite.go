package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/absmach/flaas/pkg/device"
	pkgerrors "github.com/absmach/flaas/pkg/errors"
	"github.com/absmach/flaas/pkg/project"
	"github.com/absmach/flaas/pkg/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunRepositoryTests exercises a storage backend. newRepos may return the
// same backing database on every call since all fixtures use fresh IDs.
func RunRepositoryTests(t *testing.T, newRepos func(t *testing.T) *storage.Repositories) {
	t.Run("projects", func(t *testing.T) { testProjects(t, newRepos(t)) })
	t.Run("rounds", func(t *testing.T) { testRounds(t, newRepos(t)) })
	t.Run("training requests", func(t *testing.T) { testTrainingRequests(t, newRepos(t)) })
	t.Run("devices", func(t *testing.T) { testDevices(t, newRepos(t)) })
	t.Run("status reports", func(t *testing.T) { testStatusReports(t, newRepos(t)) })
	t.Run("joined rounds", func(t *testing.T) { testJoinedRounds(t, newRepos(t)) })
	t.Run("notifications", func(t *testing.T) { testNotifications(t, newRepos(t)) })
}

func testProjects(t *testing.T, repos *storage.Repositories) {
	ctx := context.Background()
	p := TestProject(uuid.NewString())

	created, err := repos.Projects.Create(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, p.ID, created.ID)

	got, err := repos.Projects.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	p.Status = project.InProgress
	p.CurrentRound = 3
	require.NoError(t, repos.Projects.Update(ctx, p))

	active, err := repos.Projects.ListByStatus(ctx, project.InProgress)
	require.NoError(t, err)
	assert.Contains(t, active, p)

	_, total, err := repos.Projects.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, total, uint64(1))

	require.NoError(t, repos.Projects.Delete(ctx, p.ID))
	_, err = repos.Projects.Get(ctx, p.ID)
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)

	err = repos.Projects.Update(ctx, p)
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
}

func testRounds(t *testing.T, repos *storage.Repositories) {
	ctx := context.Background()
	p := TestProject(uuid.NewString())
	_, err := repos.Projects.Create(ctx, p)
	require.NoError(t, err)

	r0 := TestRound(p, 0)
	_, err = repos.Rounds.Create(ctx, r0)
	require.NoError(t, err)

	_, err = repos.Rounds.Create(ctx, TestRound(p, 0))
	assert.Error(t, err, "round numbers are unique per project")

	r0.Status = project.Complete
	r0.RequestedDevices = []string{"a", "b"}
	r0.StartTrainingDate = time.Now().UTC().Truncate(time.Second)
	r0.StopTrainingDate = r0.StartTrainingDate.Add(time.Minute)
	require.NoError(t, repos.Rounds.Update(ctx, r0))

	r1 := TestRound(p, 1)
	_, err = repos.Rounds.Create(ctx, r1)
	require.NoError(t, err)

	latest, err := repos.Rounds.Latest(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, r1.ID, latest.ID)

	got, err := repos.Rounds.Get(ctx, p.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, r0, got)

	rounds, err := repos.Rounds.List(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, rounds, 2)
	assert.Equal(t, uint64(0), rounds[0].Number)
	assert.Equal(t, uint64(1), rounds[1].Number)

	n, err := repos.Rounds.CountByStatus(ctx, p.ID, project.Complete)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	require.NoError(t, repos.Rounds.DeleteByProject(ctx, p.ID))
	_, err = repos.Rounds.Latest(ctx, p.ID)
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
}

func testTrainingRequests(t *testing.T, repos *storage.Repositories) {
	ctx := context.Background()
	p := TestProject(uuid.NewString())
	_, err := repos.Projects.Create(ctx, p)
	require.NoError(t, err)
	r := TestRound(p, 0)
	_, err = repos.Rounds.Create(ctx, r)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	tr := project.TrainingRequest{
		ID:          uuid.NewString(),
		RoundID:     r.ID,
		ProjectID:   p.ID,
		RoundNumber: 0,
		Devices:     []string{"d1", "d2"},
		CreatedAt:   now,
		ValidDate:   now.Add(time.Hour),
	}
	require.NoError(t, repos.TrainingRequests.Create(ctx, tr))

	dup := tr
	dup.ID = uuid.NewString()
	assert.Error(t, repos.TrainingRequests.Create(ctx, dup), "one request per round")

	got, err := repos.TrainingRequests.Get(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, tr, got)

	got, err = repos.TrainingRequests.GetByRound(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, tr.ID, got.ID)

	require.NoError(t, repos.TrainingRequests.DeleteByProject(ctx, p.ID))
	_, err = repos.TrainingRequests.Get(ctx, tr.ID)
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
}

func testDevices(t *testing.T, repos *storage.Repositories) {
	ctx := context.Background()
	projectID := uuid.NewString()

	d := TestDevice(uuid.NewString(), projectID)
	_, err := repos.Devices.Create(ctx, d)
	require.NoError(t, err)

	free := TestDevice(uuid.NewString(), "")
	_, err = repos.Devices.Create(ctx, free)
	require.NoError(t, err)

	got, err := repos.Devices.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d, got)

	enrolled, err := repos.Devices.ListByProject(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, []device.Device{d}, enrolled)

	free.ProjectID = projectID
	free.SamplesDownloaded = true
	require.NoError(t, repos.Devices.Update(ctx, free))

	enrolled, err = repos.Devices.ListByProject(ctx, projectID)
	require.NoError(t, err)
	assert.Len(t, enrolled, 2)

	require.NoError(t, repos.Devices.Delete(ctx, d.ID))
	assert.ErrorIs(t, repos.Devices.Delete(ctx, d.ID), pkgerrors.ErrNotFound)
}

func testStatusReports(t *testing.T, repos *storage.Repositories) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	a, b := uuid.NewString(), uuid.NewString()

	first, err := repos.StatusReports.Create(ctx, TestReport(a, now.Add(-time.Minute), true, 0.5))
	require.NoError(t, err)
	second, err := repos.StatusReports.Create(ctx, TestReport(a, now.Add(-time.Minute), false, 0.1))
	require.NoError(t, err)
	assert.Greater(t, second.Seq, first.Seq)

	_, err = repos.StatusReports.Create(ctx, TestReport(b, now.Add(-2*time.Hour), true, 1))
	require.NoError(t, err)

	reply := TestReport(b, now, true, 1)
	reply.RequestType = device.TrainAck
	reply.RequestID = uuid.NewString()
	_, err = repos.StatusReports.Create(ctx, reply)
	require.NoError(t, err)
	again := reply
	again.ID = uuid.NewString()
	_, err = repos.StatusReports.Create(ctx, again)
	require.NoError(t, err)

	window, err := repos.StatusReports.ListWindow(ctx, []string{a, b}, now.Add(-time.Hour), now)
	require.NoError(t, err)
	require.Len(t, window, 4)
	assert.Equal(t, first.Seq, window[0].Seq)
	assert.False(t, window[1].Payload.Plugged())
	assert.InDelta(t, 0.1, window[1].Payload.Level(), 1e-9)

	empty, err := repos.StatusReports.ListWindow(ctx, nil, now.Add(-time.Hour), now)
	require.NoError(t, err)
	assert.Empty(t, empty)

	repliers, err := repos.StatusReports.Repliers(ctx, reply.RequestID)
	require.NoError(t, err)
	assert.Equal(t, []string{b}, repliers)
}

func testJoinedRounds(t *testing.T, repos *storage.Repositories) {
	ctx := context.Background()
	p := TestProject(uuid.NewString())
	_, err := repos.Projects.Create(ctx, p)
	require.NoError(t, err)
	r := TestRound(p, 0)
	_, err = repos.Rounds.Create(ctx, r)
	require.NoError(t, err)

	j := device.JoinedRound{
		DeviceID:    uuid.NewString(),
		RoundID:     r.ID,
		ProjectID:   p.ID,
		RoundNumber: 0,
		Status:      device.Joined,
		UpdatedAt:   time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, repos.JoinedRounds.Save(ctx, j))
	j.Status = device.SubmitResults
	require.NoError(t, repos.JoinedRounds.Save(ctx, j))

	joined, err := repos.JoinedRounds.ListByRound(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, []device.JoinedRound{j}, joined)

	require.NoError(t, repos.JoinedRounds.DeleteByProject(ctx, p.ID))
	joined, err = repos.JoinedRounds.ListByRound(ctx, r.ID)
	require.NoError(t, err)
	assert.Empty(t, joined)
}

func testNotifications(t *testing.T, repos *storage.Repositories) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, repos.Notifications.Create(ctx, project.Notification{ID: uuid.NewString(), SentAt: now.Add(-time.Hour), Count: 2}))
	latest := project.Notification{ID: uuid.NewString(), SentAt: now, Count: 3}
	require.NoError(t, repos.Notifications.Create(ctx, latest))

	got, err := repos.Notifications.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, latest, got)
}
