package testutil

import (
	"time"

	"github.com/absmach/flaas/pkg/device"
	"github.com/absmach/flaas/pkg/project"
	"github.com/google/uuid"
)

func TestProject(id string) project.Project {
	now := time.Now().UTC().Truncate(time.Second)

	return project.Project{
		ID:                          id,
		Title:                       "test-project-" + id,
		Description:                 "fixture",
		Status:                      project.Stopped,
		ResponsesRatioThreshold:     project.DefaultResponsesRatioThreshold,
		ValidRoundTrainingThreshold: project.DefaultValidRoundTrainingThreshold,
		BatteryLevelThreshold:       project.DefaultBatteryLevelThreshold,
		PowerPluggedOnly:            true,
		CreatedAt:                   now,
		UpdatedAt:                   now,
	}.WithDefaults()
}

func TestRound(p project.Project, n uint64) project.Round {
	return project.NewRound(uuid.NewString(), p, n, time.Now().UTC().Truncate(time.Second))
}

func TestDevice(id, projectID string) device.Device {
	now := time.Now().UTC().Truncate(time.Second)

	return device.Device{
		ID:        id,
		Username:  "user-" + id,
		ProjectID: projectID,
		OS:        device.Android,
		Model:     "Pixel",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestReport(deviceID string, at time.Time, plugged bool, level float64) device.StatusReport {
	return device.StatusReport{
		ID:          uuid.NewString(),
		DeviceID:    deviceID,
		RequestType: device.Ping,
		Timestamp:   at,
		Payload: device.StatusPayload{
			Battery: device.BatteryStatus{PowerPlugged: &plugged, Level: &level},
		},
	}
}
