package device_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/absmach/flaas/pkg/device"
	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestReportValidate(t *testing.T) {
	valid := device.StatusPayload{Battery: device.BatteryStatus{PowerPlugged: ptr(true), Level: ptr(0.4)}}

	cases := []struct {
		desc   string
		report device.Report
		err    error
	}{
		{desc: "ping", report: device.Report{RequestType: device.Ping, Status: valid}},
		{desc: "train reply", report: device.Report{RequestType: device.TrainAck, RequestID: "r1", Status: valid}},
		{desc: "train reply without request", report: device.Report{RequestType: device.TrainAck, Status: valid}, err: device.ErrMissingRequestID},
		{desc: "unknown request type", report: device.Report{RequestType: "device-reboot", Status: valid}, err: device.ErrRequestType},
		{
			desc:   "missing plugged",
			report: device.Report{RequestType: device.Ping, Status: device.StatusPayload{Battery: device.BatteryStatus{Level: ptr(0.4)}}},
			err:    device.ErrMissingField,
		},
		{
			desc:   "missing level",
			report: device.Report{RequestType: device.Ping, Status: device.StatusPayload{Battery: device.BatteryStatus{PowerPlugged: ptr(false)}}},
			err:    device.ErrMissingField,
		},
		{
			desc:   "level above one",
			report: device.Report{RequestType: device.Ping, Status: device.StatusPayload{Battery: device.BatteryStatus{PowerPlugged: ptr(false), Level: ptr(1.5)}}},
			err:    device.ErrBatteryLevel,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			err := tc.report.Validate()
			if tc.err == nil {
				assert.NoError(t, err)

				return
			}
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestStatusReportNewer(t *testing.T) {
	now := time.Now()
	older := device.StatusReport{Seq: 5, Timestamp: now.Add(-time.Second)}
	tied := device.StatusReport{Seq: 6, Timestamp: now}
	later := device.StatusReport{Seq: 7, Timestamp: now}

	assert.True(t, tied.Newer(older))
	assert.False(t, older.Newer(tied))
	assert.True(t, later.Newer(tied), "equal timestamps are ordered by insertion")
	assert.False(t, tied.Newer(later))
}

func TestDecodeReport(t *testing.T) {
	report := device.Report{
		RequestType: device.TrainAck,
		RequestID:   "req-1",
		Status: device.StatusPayload{
			Battery: device.BatteryStatus{PowerPlugged: ptr(true), Level: ptr(0.9)},
			Details: &device.Details{Model: "Pixel 8", SamplesDownloaded: ptr(true)},
		},
	}
	jsonData, err := json.Marshal(report)
	require.NoError(t, err)
	cborData, err := cbor.Marshal(report)
	require.NoError(t, err)

	cases := []struct {
		desc        string
		contentType string
		data        []byte
		err         error
	}{
		{desc: "json", contentType: device.ContentTypeJSON, data: jsonData},
		{desc: "cbor", contentType: device.ContentTypeCBOR, data: cborData},
		{desc: "sniffed json", contentType: device.SniffContentType(jsonData), data: jsonData},
		{desc: "sniffed cbor", contentType: device.SniffContentType(cborData), data: cborData},
		{desc: "garbage", contentType: device.ContentTypeJSON, data: []byte("{"), err: device.ErrMalformedReport},
		{desc: "unsupported", contentType: "text/plain", data: jsonData, err: device.ErrMalformedReport},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := device.DecodeReport(tc.contentType, tc.data)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, report, got)
		})
	}
}

func TestJoinStatusText(t *testing.T) {
	for s := device.Joined; s <= device.CompleteRound; s++ {
		text, err := s.MarshalText()
		require.NoError(t, err)

		var back device.JoinStatus
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, s, back)
	}

	var s device.JoinStatus
	assert.ErrorIs(t, s.UnmarshalText([]byte("dance")), device.ErrJoinStatus)
}

func TestApplyDetails(t *testing.T) {
	dev := device.Device{ID: "d1", Model: "old", Brand: "acme"}
	got := dev.ApplyDetails(device.Details{Model: "new", SamplesDownloaded: ptr(true)})

	assert.Equal(t, "new", got.Model)
	assert.Equal(t, "acme", got.Brand)
	assert.True(t, got.SamplesDownloaded)
}
