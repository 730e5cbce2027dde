package api_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/absmach/flaas/manager/api"
	"github.com/absmach/flaas/manager/mocks"
	"github.com/absmach/flaas/pkg/device"
	pkgerrors "github.com/absmach/flaas/pkg/errors"
	"github.com/absmach/flaas/pkg/fl"
	"github.com/absmach/flaas/pkg/project"
	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testRequest struct {
	method      string
	url         string
	contentType string
	body        []byte
}

func (tr testRequest) make(t *testing.T) *http.Response {
	t.Helper()

	req, err := http.NewRequest(tr.method, tr.url, bytes.NewReader(tr.body))
	require.NoError(t, err)
	if tr.contentType != "" {
		req.Header.Set("Content-Type", tr.contentType)
	}

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })

	return res
}

func newServer(t *testing.T) (*httptest.Server, *mocks.MockService) {
	t.Helper()

	svc := new(mocks.MockService)
	ts := httptest.NewServer(api.MakeHandler(svc, slog.New(slog.DiscardHandler), "test"))
	t.Cleanup(ts.Close)

	return ts, svc
}

func TestProjectEndpoints(t *testing.T) {
	ts, svc := newServer(t)

	created := project.Project{ID: "p1", Title: "mnist", Status: project.Stopped}
	svc.On("CreateProject", mock.Anything, mock.MatchedBy(func(p project.Project) bool { return p.Title == "mnist" })).Return(created, nil)
	svc.On("GetProject", mock.Anything, "missing").Return(project.Project{}, pkgerrors.ErrNotFound)
	svc.On("StartProject", mock.Anything, "done").Return(project.Project{}, errors.Join(pkgerrors.ErrIllegalState, errors.New("completed")))
	svc.On("UpdateProject", mock.Anything, mock.MatchedBy(func(p project.Project) bool { return p.ID == "p1" })).Return(created, nil)
	svc.On("DeleteProject", mock.Anything, "p1").Return(nil)

	cases := []struct {
		desc     string
		req      testRequest
		status   int
		location string
	}{
		{
			desc:     "create project",
			req:      testRequest{method: http.MethodPost, url: "/projects/", contentType: "application/json", body: []byte(`{"title":"mnist","model":"MNIST_DNN"}`)},
			status:   http.StatusCreated,
			location: "/projects/p1",
		},
		{
			desc:   "create project without title",
			req:    testRequest{method: http.MethodPost, url: "/projects/", contentType: "application/json", body: []byte(`{"model":"MNIST_DNN"}`)},
			status: http.StatusBadRequest,
		},
		{
			desc:   "create project with wrong content type",
			req:    testRequest{method: http.MethodPost, url: "/projects/", contentType: "text/plain", body: []byte(`{"title":"mnist"}`)},
			status: http.StatusBadRequest,
		},
		{
			desc:   "list projects over the limit",
			req:    testRequest{method: http.MethodGet, url: "/projects/?limit=1000"},
			status: http.StatusBadRequest,
		},
		{
			desc:   "get missing project",
			req:    testRequest{method: http.MethodGet, url: "/projects/missing/"},
			status: http.StatusNotFound,
		},
		{
			desc:   "start completed project",
			req:    testRequest{method: http.MethodPost, url: "/projects/done/start"},
			status: http.StatusConflict,
		},
		{
			desc:   "update project",
			req:    testRequest{method: http.MethodPut, url: "/projects/p1/", contentType: "application/json", body: []byte(`{"title":"mnist"}`)},
			status: http.StatusOK,
		},
		{
			desc:   "delete project",
			req:    testRequest{method: http.MethodDelete, url: "/projects/p1/"},
			status: http.StatusNoContent,
		},
		{
			desc:   "invalid round number",
			req:    testRequest{method: http.MethodGet, url: "/projects/p1/rounds/abc/"},
			status: http.StatusBadRequest,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			tc.req.url = ts.URL + tc.req.url
			res := tc.req.make(t)

			assert.Equal(t, tc.status, res.StatusCode)
			if tc.location != "" {
				assert.Equal(t, tc.location, res.Header.Get("Location"))
			}
		})
	}
}

func TestModelEndpoints(t *testing.T) {
	ts, svc := newServer(t)

	weights := fl.EncodeWeights([]float32{1, 2, 3})
	svc.On("GetModel", mock.Anything, "p1", uint64(2)).Return(weights, nil)
	svc.On("SubmitModel", mock.Anything, "d1", "p1", uint64(2), weights).Return(nil)

	res := testRequest{method: http.MethodGet, url: ts.URL + "/projects/p1/rounds/2/model"}.make(t)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/octet-stream", res.Header.Get("Content-Type"))
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, weights, body)

	res = testRequest{method: http.MethodPut, url: ts.URL + "/devices/d1/projects/p1/rounds/2/model", contentType: "application/octet-stream", body: weights}.make(t)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)

	res = testRequest{method: http.MethodPut, url: ts.URL + "/devices/d1/projects/p1/rounds/2/model", contentType: "application/json", body: weights}.make(t)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	svc.AssertExpectations(t)
}

func TestReportStatusEndpoint(t *testing.T) {
	ts, svc := newServer(t)

	plugged, level := true, 0.75
	report := device.Report{
		RequestType: device.Ping,
		Status:      device.StatusPayload{Battery: device.BatteryStatus{PowerPlugged: &plugged, Level: &level}},
	}
	svc.On("ReportStatus", mock.Anything, "d1", report).Return(device.StatusReport{ID: "r1", DeviceID: "d1"}, nil)

	encoded, err := cbor.Marshal(report)
	require.NoError(t, err)
	jsonBody, err := json.Marshal(report)
	require.NoError(t, err)

	cases := []struct {
		desc        string
		contentType string
		body        []byte
		status      int
	}{
		{desc: "json", contentType: "application/json", body: jsonBody, status: http.StatusCreated},
		{desc: "json with charset", contentType: "application/json; charset=utf-8", body: jsonBody, status: http.StatusCreated},
		{desc: "cbor", contentType: "application/cbor", body: encoded, status: http.StatusCreated},
		{desc: "unsupported content type", contentType: "text/plain", body: jsonBody, status: http.StatusBadRequest},
		{desc: "malformed json", contentType: "application/json", body: []byte(`{"request_type"`), status: http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			res := testRequest{method: http.MethodPost, url: ts.URL + "/devices/d1/status", contentType: tc.contentType, body: tc.body}.make(t)
			assert.Equal(t, tc.status, res.StatusCode)
		})
	}
	svc.AssertNumberOfCalls(t, "ReportStatus", 3)
}

func TestControlEndpoints(t *testing.T) {
	ts, svc := newServer(t)

	svc.On("Tick", mock.Anything).Return(2, nil)
	svc.On("SendQuestionnaires", mock.Anything).Return(project.Notification{}, nil).Once()
	svc.On("AssignDevices", mock.Anything, "p1", []string{"d1", "d2"}).Return([]device.Device{{ID: "d1"}, {ID: "d2"}}, nil)
	svc.On("JoinRound", mock.Anything, "d1", "p1", uint64(0), device.Train).Return(project.Round{ID: "r0", ProjectID: "p1"}, nil)

	res := testRequest{method: http.MethodPost, url: ts.URL + "/tick"}.make(t)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var tick struct {
		Processed int `json:"processed"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&tick))
	assert.Equal(t, 2, tick.Processed)

	res = testRequest{method: http.MethodPost, url: ts.URL + "/questionnaires"}.make(t)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)

	res = testRequest{method: http.MethodPost, url: ts.URL + "/devices/assign", contentType: "application/json", body: []byte(`{"project_id":"p1","device_ids":["d1","d2"]}`)}.make(t)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res = testRequest{method: http.MethodPost, url: ts.URL + "/devices/d1/join", contentType: "application/json", body: []byte(`{"project_id":"p1","round_number":0,"status":"train"}`)}.make(t)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res = testRequest{method: http.MethodGet, url: ts.URL + "/health"}.make(t)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "pass"))

	svc.AssertExpectations(t)
}
