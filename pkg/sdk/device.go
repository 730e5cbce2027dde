package sdk

import (
	"fmt"
	"net/http"

	"github.com/absmach/flaas/pkg/device"
	"github.com/absmach/flaas/pkg/fl"
	"github.com/absmach/flaas/pkg/project"
)

const devicesEndpoint = "/devices"

func (sdk *flaasSDK) RegisterDevice(d device.Device) (device.Device, error) {
	var created device.Device
	if err := sdk.sendJSON(http.MethodPost, sdk.managerURL+devicesEndpoint, d, &created, http.StatusCreated); err != nil {
		return device.Device{}, err
	}

	return created, nil
}

func (sdk *flaasSDK) GetDevice(id string) (device.Device, error) {
	var d device.Device
	if err := sdk.sendJSON(http.MethodGet, sdk.deviceURL(id), nil, &d, http.StatusOK); err != nil {
		return device.Device{}, err
	}

	return d, nil
}

func (sdk *flaasSDK) ListDevices(offset, limit uint64) (device.DevicePage, error) {
	var page device.DevicePage
	reqURL := sdk.managerURL + devicesEndpoint + pageQuery(offset, limit)
	if err := sdk.sendJSON(http.MethodGet, reqURL, nil, &page, http.StatusOK); err != nil {
		return device.DevicePage{}, err
	}

	return page, nil
}

func (sdk *flaasSDK) DeleteDevice(id string) error {
	return sdk.sendJSON(http.MethodDelete, sdk.deviceURL(id), nil, nil, http.StatusNoContent)
}

func (sdk *flaasSDK) AssignDevices(projectID string, deviceIDs []string) ([]device.Device, error) {
	req := struct {
		ProjectID string   `json:"project_id"`
		DeviceIDs []string `json:"device_ids"`
	}{projectID, deviceIDs}

	var res struct {
		Devices []device.Device `json:"devices"`
	}
	if err := sdk.sendJSON(http.MethodPost, sdk.managerURL+devicesEndpoint+"/assign", req, &res, http.StatusOK); err != nil {
		return nil, err
	}

	return res.Devices, nil
}

func (sdk *flaasSDK) ReportStatus(deviceID string, report device.Report) (device.StatusReport, error) {
	var stored device.StatusReport
	if err := sdk.sendJSON(http.MethodPost, sdk.deviceURL(deviceID)+"/status", report, &stored, http.StatusCreated); err != nil {
		return device.StatusReport{}, err
	}

	return stored, nil
}

func (sdk *flaasSDK) JoinRound(deviceID, projectID string, number uint64, status device.JoinStatus) (project.Round, error) {
	req := struct {
		ProjectID   string            `json:"project_id"`
		RoundNumber uint64            `json:"round_number"`
		Status      device.JoinStatus `json:"status"`
	}{projectID, number, status}

	var r project.Round
	if err := sdk.sendJSON(http.MethodPost, sdk.deviceURL(deviceID)+"/join", req, &r, http.StatusOK); err != nil {
		return project.Round{}, err
	}

	return r, nil
}

func (sdk *flaasSDK) SubmitModel(deviceID, projectID string, number uint64, weights []byte) error {
	_, err := sdk.processRequest(http.MethodPut, sdk.submissionURL(deviceID, projectID, number)+"/model", CTOctetStream, weights, http.StatusNoContent)

	return err
}

func (sdk *flaasSDK) SubmitResults(deviceID, projectID string, number uint64, results fl.Results) error {
	return sdk.sendJSON(http.MethodPost, sdk.submissionURL(deviceID, projectID, number)+"/results", results, nil, http.StatusNoContent)
}

func (sdk *flaasSDK) deviceURL(id string) string {
	return sdk.managerURL + devicesEndpoint + "/" + id
}

func (sdk *flaasSDK) submissionURL(deviceID, projectID string, number uint64) string {
	return fmt.Sprintf("%s/projects/%s/rounds/%d", sdk.deviceURL(deviceID), projectID, number)
}
