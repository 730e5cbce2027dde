package sdk_test

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/absmach/flaas/manager/api"
	"github.com/absmach/flaas/manager/mocks"
	"github.com/absmach/flaas/pkg/device"
	pkgerrors "github.com/absmach/flaas/pkg/errors"
	"github.com/absmach/flaas/pkg/fl"
	"github.com/absmach/flaas/pkg/project"
	"github.com/absmach/flaas/pkg/sdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (sdk.SDK, *mocks.MockService) {
	t.Helper()

	svc := new(mocks.MockService)
	ts := httptest.NewServer(api.MakeHandler(svc, slog.New(slog.DiscardHandler), "test"))
	t.Cleanup(ts.Close)

	return sdk.NewSDK(sdk.Config{ManagerURL: ts.URL}), svc
}

func TestProjects(t *testing.T) {
	s, svc := setup(t)

	p := project.Project{ID: "p1", Title: "mnist", Status: project.Stopped, NumberOfRounds: 5}
	started := p
	started.Status = project.InProgress

	svc.On("CreateProject", mock.Anything, mock.MatchedBy(func(in project.Project) bool { return in.Title == "mnist" })).Return(p, nil)
	svc.On("GetProject", mock.Anything, "p1").Return(p, nil)
	svc.On("GetProject", mock.Anything, "missing").Return(project.Project{}, pkgerrors.ErrNotFound)
	svc.On("ListProjects", mock.Anything, uint64(0), uint64(10)).Return(project.ProjectPage{Limit: 10, Total: 1, Projects: []project.Project{p}}, nil)
	svc.On("StartProject", mock.Anything, "p1").Return(started, nil)
	svc.On("ResetProject", mock.Anything, "p1").Return(p, nil)
	svc.On("DeleteProject", mock.Anything, "p1").Return(nil)

	created, err := s.CreateProject(project.Project{Title: "mnist"})
	require.NoError(t, err)
	assert.Equal(t, "p1", created.ID)

	got, err := s.GetProject("p1")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), got.NumberOfRounds)

	_, err = s.GetProject("missing")
	var sdkErr *sdk.Error
	require.True(t, errors.As(err, &sdkErr))
	assert.Equal(t, http.StatusNotFound, sdkErr.StatusCode)
	assert.NotEmpty(t, sdkErr.Message)

	page, err := s.ListProjects(0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), page.Total)
	assert.Len(t, page.Projects, 1)

	got, err = s.StartProject("p1")
	require.NoError(t, err)
	assert.Equal(t, project.InProgress, got.Status)

	got, err = s.ResetProject("p1")
	require.NoError(t, err)
	assert.Equal(t, project.Stopped, got.Status)

	require.NoError(t, s.DeleteProject("p1"))
}

func TestRounds(t *testing.T) {
	s, svc := setup(t)

	rounds := []project.Round{
		{ID: "r0", ProjectID: "p1", Number: 0, Status: project.Complete},
		{ID: "r1", ProjectID: "p1", Number: 1, Status: project.Training},
	}
	svc.On("ListRounds", mock.Anything, "p1").Return(rounds, nil)
	svc.On("GetRound", mock.Anything, "p1", uint64(1)).Return(rounds[1], nil)
	svc.On("GetRoundReport", mock.Anything, "p1", uint64(0)).Return(fl.RoundReport{ProjectID: "p1", Sessions: 2, MeanAccuracy: 0.75}, nil)
	svc.On("ListJoined", mock.Anything, "p1", uint64(1)).Return([]device.JoinedRound{{DeviceID: "d1", RoundID: "r1", Status: device.Train}}, nil)
	svc.On("GetModel", mock.Anything, "p1", uint64(0)).Return([]byte{1, 2, 3, 4}, nil)

	got, err := s.ListRounds("p1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, project.Training, got[1].Status)

	r, err := s.GetRound("p1", 1)
	require.NoError(t, err)
	assert.Equal(t, "r1", r.ID)

	report, err := s.GetRoundReport("p1", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Sessions)
	assert.InDelta(t, 0.75, report.MeanAccuracy, 1e-9)

	joined, err := s.ListJoined("p1", 1)
	require.NoError(t, err)
	require.Len(t, joined, 1)
	assert.Equal(t, device.Train, joined[0].Status)

	weights, err := s.GetModel("p1", 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, weights)
}

func TestDevices(t *testing.T) {
	s, svc := setup(t)

	d := device.Device{ID: "d1", Username: "hobbit-1"}
	enrolled := d
	enrolled.ProjectID = "p1"

	svc.On("RegisterDevice", mock.Anything, mock.MatchedBy(func(in device.Device) bool { return in.Username == "hobbit-1" })).Return(d, nil)
	svc.On("AssignDevices", mock.Anything, "p1", []string{"d1"}).Return([]device.Device{enrolled}, nil)
	svc.On("ReportStatus", mock.Anything, "d1", mock.Anything).Return(device.StatusReport{ID: "s1", DeviceID: "d1", RequestType: device.Ping}, nil)
	svc.On("JoinRound", mock.Anything, "d1", "p1", uint64(0), device.DownloadModel).Return(project.Round{ID: "r0"}, nil)
	svc.On("SubmitModel", mock.Anything, "d1", "p1", uint64(0), []byte{9, 9}).Return(nil)
	svc.On("SubmitResults", mock.Anything, "d1", "p1", uint64(0), fl.Results{YTrue: []int{1}, YPred: []int{1}}).Return(nil)
	svc.On("DeleteDevice", mock.Anything, "d1").Return(nil)

	created, err := s.RegisterDevice(device.Device{Username: "hobbit-1"})
	require.NoError(t, err)
	assert.Equal(t, "d1", created.ID)

	devices, err := s.AssignDevices("p1", []string{"d1"})
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "p1", devices[0].ProjectID)

	plugged, level := true, 0.9
	stored, err := s.ReportStatus("d1", device.Report{
		RequestType: device.Ping,
		Status:      device.StatusPayload{Battery: device.BatteryStatus{PowerPlugged: &plugged, Level: &level}},
	})
	require.NoError(t, err)
	assert.Equal(t, "s1", stored.ID)

	r, err := s.JoinRound("d1", "p1", 0, device.DownloadModel)
	require.NoError(t, err)
	assert.Equal(t, "r0", r.ID)

	require.NoError(t, s.SubmitModel("d1", "p1", 0, []byte{9, 9}))
	require.NoError(t, s.SubmitResults("d1", "p1", 0, fl.Results{YTrue: []int{1}, YPred: []int{1}}))
	require.NoError(t, s.DeleteDevice("d1"))
}

func TestControl(t *testing.T) {
	s, svc := setup(t)

	svc.On("Tick", mock.Anything).Return(3, nil)
	svc.On("SendQuestionnaires", mock.Anything).Return(project.Notification{ID: "n1", Count: 4}, nil).Once()
	svc.On("SendQuestionnaires", mock.Anything).Return(project.Notification{}, nil).Once()

	processed, err := s.Tick()
	require.NoError(t, err)
	assert.Equal(t, 3, processed)

	n, err := s.SendQuestionnaires()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), n.Count)

	n, err = s.SendQuestionnaires()
	require.NoError(t, err)
	assert.Empty(t, n.ID)
}
