package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/absmach/flaas/manager"
	"github.com/absmach/flaas/pkg/device"
	"github.com/absmach/flaas/pkg/fl"
	"github.com/absmach/flaas/pkg/project"
)

var _ manager.Service = (*MockService)(nil)

// MockService is a mock implementation of the manager.Service interface
type MockService struct {
	mock.Mock
}

func (m *MockService) CreateProject(ctx context.Context, p project.Project) (project.Project, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(project.Project), args.Error(1)
}

func (m *MockService) GetProject(ctx context.Context, projectID string) (project.Project, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).(project.Project), args.Error(1)
}

func (m *MockService) ListProjects(ctx context.Context, offset, limit uint64) (project.ProjectPage, error) {
	args := m.Called(ctx, offset, limit)
	return args.Get(0).(project.ProjectPage), args.Error(1)
}

func (m *MockService) UpdateProject(ctx context.Context, p project.Project) (project.Project, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(project.Project), args.Error(1)
}

func (m *MockService) StartProject(ctx context.Context, projectID string) (project.Project, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).(project.Project), args.Error(1)
}

func (m *MockService) StopProject(ctx context.Context, projectID string) (project.Project, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).(project.Project), args.Error(1)
}

func (m *MockService) ResetProject(ctx context.Context, projectID string) (project.Project, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).(project.Project), args.Error(1)
}

func (m *MockService) DeleteProject(ctx context.Context, projectID string) error {
	args := m.Called(ctx, projectID)
	return args.Error(0)
}

func (m *MockService) ListRounds(ctx context.Context, projectID string) ([]project.Round, error) {
	args := m.Called(ctx, projectID)
	rounds, _ := args.Get(0).([]project.Round)
	return rounds, args.Error(1)
}

func (m *MockService) GetRound(ctx context.Context, projectID string, number uint64) (project.Round, error) {
	args := m.Called(ctx, projectID, number)
	return args.Get(0).(project.Round), args.Error(1)
}

func (m *MockService) GetRoundReport(ctx context.Context, projectID string, number uint64) (fl.RoundReport, error) {
	args := m.Called(ctx, projectID, number)
	return args.Get(0).(fl.RoundReport), args.Error(1)
}

func (m *MockService) RegisterDevice(ctx context.Context, d device.Device) (device.Device, error) {
	args := m.Called(ctx, d)
	return args.Get(0).(device.Device), args.Error(1)
}

func (m *MockService) GetDevice(ctx context.Context, deviceID string) (device.Device, error) {
	args := m.Called(ctx, deviceID)
	return args.Get(0).(device.Device), args.Error(1)
}

func (m *MockService) ListDevices(ctx context.Context, offset, limit uint64) (device.DevicePage, error) {
	args := m.Called(ctx, offset, limit)
	return args.Get(0).(device.DevicePage), args.Error(1)
}

func (m *MockService) AssignDevices(ctx context.Context, projectID string, deviceIDs []string) ([]device.Device, error) {
	args := m.Called(ctx, projectID, deviceIDs)
	devices, _ := args.Get(0).([]device.Device)
	return devices, args.Error(1)
}

func (m *MockService) DeleteDevice(ctx context.Context, deviceID string) error {
	args := m.Called(ctx, deviceID)
	return args.Error(0)
}

func (m *MockService) ReportStatus(ctx context.Context, deviceID string, report device.Report) (device.StatusReport, error) {
	args := m.Called(ctx, deviceID, report)
	return args.Get(0).(device.StatusReport), args.Error(1)
}

func (m *MockService) JoinRound(ctx context.Context, deviceID, projectID string, number uint64, status device.JoinStatus) (project.Round, error) {
	args := m.Called(ctx, deviceID, projectID, number, status)
	return args.Get(0).(project.Round), args.Error(1)
}

func (m *MockService) ListJoined(ctx context.Context, projectID string, number uint64) ([]device.JoinedRound, error) {
	args := m.Called(ctx, projectID, number)
	joined, _ := args.Get(0).([]device.JoinedRound)
	return joined, args.Error(1)
}

func (m *MockService) GetModel(ctx context.Context, projectID string, number uint64) ([]byte, error) {
	args := m.Called(ctx, projectID, number)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockService) SubmitModel(ctx context.Context, deviceID, projectID string, number uint64, weights []byte) error {
	args := m.Called(ctx, deviceID, projectID, number, weights)
	return args.Error(0)
}

func (m *MockService) SubmitResults(ctx context.Context, deviceID, projectID string, number uint64, results fl.Results) error {
	args := m.Called(ctx, deviceID, projectID, number, results)
	return args.Error(0)
}

func (m *MockService) Tick(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockService) SendQuestionnaires(ctx context.Context) (project.Notification, error) {
	args := m.Called(ctx)
	return args.Get(0).(project.Notification), args.Error(1)
}

func (m *MockService) Subscribe(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
