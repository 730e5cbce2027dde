package manager

import (
	"context"
	"time"

	"github.com/absmach/flaas/pkg/device"
	"github.com/absmach/flaas/pkg/project"
	"github.com/absmach/flaas/pkg/storage"
)

const DefaultLookback = 60 * time.Minute

// SelectEligible returns the devices whose most recent report inside
// (now-lookback, now] satisfies the admission policy of p. Reports sharing a
// timestamp are ordered by insertion. The result keeps the order of devices.
func SelectEligible(ctx context.Context, reports storage.StatusReportRepository, p project.Project, devices []device.Device, now time.Time, lookback time.Duration) ([]device.Device, error) {
	if len(devices) == 0 {
		return nil, nil
	}

	window, err := reports.ListWindow(ctx, deviceIDs(devices), now.Add(-lookback), now)
	if err != nil {
		return nil, err
	}

	latest := make(map[string]device.StatusReport, len(devices))
	for _, r := range window {
		if cur, ok := latest[r.DeviceID]; !ok || r.Newer(cur) {
			latest[r.DeviceID] = r
		}
	}

	var eligible []device.Device
	for _, d := range devices {
		r, ok := latest[d.ID]
		if ok && admits(p, r.Payload) {
			eligible = append(eligible, d)
		}
	}

	return eligible, nil
}

func admits(p project.Project, s device.StatusPayload) bool {
	if p.PowerPluggedOnly {
		return s.Plugged()
	}

	return s.Plugged() || s.Level() >= p.BatteryLevelThreshold
}
