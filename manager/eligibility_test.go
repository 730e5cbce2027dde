package manager

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/absmach/flaas/pkg/device"
	"github.com/absmach/flaas/pkg/project"
	"github.com/absmach/flaas/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func report(deviceID string, at time.Time, plugged bool, level float64) device.StatusReport {
	return device.StatusReport{
		DeviceID:    deviceID,
		RequestType: device.Ping,
		Timestamp:   at,
		Payload:     device.StatusPayload{Battery: device.BatteryStatus{PowerPlugged: &plugged, Level: &level}},
	}
}

func TestSelectEligible(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	devices := []device.Device{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	pluggedOnly := project.Project{PowerPluggedOnly: true, BatteryLevelThreshold: 0.5}
	battery := project.Project{PowerPluggedOnly: false, BatteryLevelThreshold: 0.5}

	cases := []struct {
		desc    string
		project project.Project
		reports []device.StatusReport
		want    []string
	}{
		{
			desc:    "no reports",
			project: pluggedOnly,
		},
		{
			desc:    "plugged devices keep input order",
			project: pluggedOnly,
			reports: []device.StatusReport{
				report("c", now.Add(-time.Minute), true, 0),
				report("a", now.Add(-2*time.Minute), true, 0),
				report("b", now.Add(-time.Minute), false, 1),
			},
			want: []string{"a", "c"},
		},
		{
			desc:    "report exactly at lookback start is excluded",
			project: pluggedOnly,
			reports: []device.StatusReport{
				report("a", now.Add(-DefaultLookback), true, 1),
				report("b", now, true, 1),
			},
			want: []string{"b"},
		},
		{
			desc:    "future reports are excluded",
			project: pluggedOnly,
			reports: []device.StatusReport{report("a", now.Add(time.Second), true, 1)},
		},
		{
			desc:    "latest report wins",
			project: pluggedOnly,
			reports: []device.StatusReport{
				report("a", now.Add(-time.Minute), false, 1),
				report("a", now.Add(-2*time.Minute), true, 1),
			},
		},
		{
			desc:    "insertion order breaks timestamp ties",
			project: pluggedOnly,
			reports: []device.StatusReport{
				report("a", now.Add(-time.Minute), false, 1),
				report("a", now.Add(-time.Minute), true, 1),
			},
			want: []string{"a"},
		},
		{
			desc:    "battery level at threshold",
			project: battery,
			reports: []device.StatusReport{
				report("a", now, false, 0.5),
				report("b", now, false, 0.49),
				report("c", now, true, 0),
			},
			want: []string{"a", "c"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			ctx := context.Background()
			reports := storage.NewInMemoryStatusReportRepository()
			for i, r := range tc.reports {
				r.ID = fmt.Sprintf("report-%d", i)
				_, err := reports.Create(ctx, r)
				require.NoError(t, err)
			}

			got, err := SelectEligible(ctx, reports, tc.project, devices, now, DefaultLookback)
			require.NoError(t, err)
			if len(tc.want) == 0 {
				assert.Empty(t, got)

				return
			}
			assert.Equal(t, tc.want, deviceIDs(got))
		})
	}
}

func TestSelectEligibleWithoutDevices(t *testing.T) {
	got, err := SelectEligible(context.Background(), storage.NewInMemoryStatusReportRepository(), project.Project{}, nil, time.Now(), DefaultLookback)
	require.NoError(t, err)
	assert.Empty(t, got)
}
