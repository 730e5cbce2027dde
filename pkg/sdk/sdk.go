package sdk

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/absmach/flaas/pkg/device"
	"github.com/absmach/flaas/pkg/fl"
	"github.com/absmach/flaas/pkg/project"
)

const (
	CTJSON        string = "application/json"
	CTOctetStream string = "application/octet-stream"
)

type SDK interface {
	// CreateProject creates a new training campaign.
	//
	// example:
	//  p := project.Project{
	//    Title: "cifar10-baseline",
	//  }
	//  p, _ := sdk.CreateProject(p)
	//  fmt.Println(p)
	CreateProject(p project.Project) (project.Project, error)

	// GetProject gets a project by id.
	//
	// example:
	//  p, _ := sdk.GetProject("b1d10738-c5d7-4ff1-8f4d-b9328ce6f040")
	//  fmt.Println(p)
	GetProject(id string) (project.Project, error)

	// ListProjects lists projects.
	//
	// example:
	//  page, _ := sdk.ListProjects(0, 10)
	//  fmt.Println(page)
	ListProjects(offset, limit uint64) (project.ProjectPage, error)

	// UpdateProject updates the campaign parameters of a project.
	UpdateProject(p project.Project) (project.Project, error)

	// DeleteProject deletes a project together with its rounds and models.
	DeleteProject(id string) error

	// StartProject moves a project to In Progress.
	//
	// example:
	//  p, _ := sdk.StartProject("b1d10738-c5d7-4ff1-8f4d-b9328ce6f040")
	//  fmt.Println(p.Status)
	StartProject(id string) (project.Project, error)

	// StopProject moves a project to Stopped.
	StopProject(id string) (project.Project, error)

	// ResetProject discards every round and starts over from round 0.
	ResetProject(id string) (project.Project, error)

	// ListRounds lists the rounds of a project in round order.
	ListRounds(projectID string) ([]project.Round, error)

	// GetRound gets a single round of a project.
	GetRound(projectID string, number uint64) (project.Round, error)

	// GetRoundReport summarizes the evaluation results of a round.
	GetRoundReport(projectID string, number uint64) (fl.RoundReport, error)

	// ListJoined lists the devices that joined a round and their progress.
	ListJoined(projectID string, number uint64) ([]device.JoinedRound, error)

	// GetModel downloads the encoded weights of a round.
	//
	// example:
	//  weights, _ := sdk.GetModel("b1d10738-c5d7-4ff1-8f4d-b9328ce6f040", 0)
	//  os.WriteFile("round-0.bin", weights, 0o644)
	GetModel(projectID string, number uint64) ([]byte, error)

	// RegisterDevice registers a device.
	//
	// example:
	//  d := device.Device{
	//    Username: "hobbit-1",
	//  }
	//  d, _ := sdk.RegisterDevice(d)
	//  fmt.Println(d.ID)
	RegisterDevice(d device.Device) (device.Device, error)

	// GetDevice gets a device by id.
	GetDevice(id string) (device.Device, error)

	// ListDevices lists devices.
	ListDevices(offset, limit uint64) (device.DevicePage, error)

	// DeleteDevice deletes a device.
	DeleteDevice(id string) error

	// AssignDevices enrolls devices into a project. An empty project id
	// unenrolls them.
	//
	// example:
	//  devices, _ := sdk.AssignDevices("b1d10738-c5d7-4ff1-8f4d-b9328ce6f040", []string{"d1", "d2"})
	AssignDevices(projectID string, deviceIDs []string) ([]device.Device, error)

	// ReportStatus submits a device status report as JSON.
	ReportStatus(deviceID string, report device.Report) (device.StatusReport, error)

	// JoinRound records the progress of a device through a round.
	JoinRound(deviceID, projectID string, number uint64, status device.JoinStatus) (project.Round, error)

	// SubmitModel uploads the weights a device trained for a round.
	SubmitModel(deviceID, projectID string, number uint64, weights []byte) error

	// SubmitResults uploads the evaluation labels a device produced for a round.
	SubmitResults(deviceID, projectID string, number uint64, results fl.Results) error

	// Tick advances every active project once.
	//
	// example:
	//  processed, _ := sdk.Tick()
	//  fmt.Println(processed)
	Tick() (int, error)

	// SendQuestionnaires schedules the daily questionnaire notifications.
	// The returned record is empty when nothing was sent.
	SendQuestionnaires() (project.Notification, error)
}

// Error is returned when the manager answers with an unexpected status code.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected response code: %d", e.StatusCode)
	}

	return fmt.Sprintf("unexpected response code: %d: %s", e.StatusCode, e.Message)
}

type flaasSDK struct {
	managerURL string
	client     *http.Client
}

type Config struct {
	ManagerURL      string
	TLSVerification bool
}

func NewSDK(cfg Config) SDK {
	return &flaasSDK{
		managerURL: cfg.ManagerURL,
		client: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !cfg.TLSVerification,
				},
			},
		},
	}
}

func (sdk *flaasSDK) Tick() (int, error) {
	body, err := sdk.processRequest(http.MethodPost, sdk.managerURL+"/tick", CTJSON, nil, http.StatusOK)
	if err != nil {
		return 0, err
	}

	var res struct {
		Processed int `json:"processed"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return 0, err
	}

	return res.Processed, nil
}

func (sdk *flaasSDK) SendQuestionnaires() (project.Notification, error) {
	body, err := sdk.processRequest(http.MethodPost, sdk.managerURL+"/questionnaires", CTJSON, nil, http.StatusCreated, http.StatusNoContent)
	if err != nil {
		return project.Notification{}, err
	}
	if len(body) == 0 {
		return project.Notification{}, nil
	}

	var n project.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return project.Notification{}, err
	}

	return n, nil
}

func (sdk *flaasSDK) sendJSON(method, reqURL string, req, res any, expectedRespCodes ...int) error {
	var data []byte
	if req != nil {
		var err error
		if data, err = json.Marshal(req); err != nil {
			return err
		}
	}

	body, err := sdk.processRequest(method, reqURL, CTJSON, data, expectedRespCodes...)
	if err != nil {
		return err
	}
	if res == nil || len(body) == 0 {
		return nil
	}

	return json.Unmarshal(body, res)
}

func (sdk *flaasSDK) processRequest(method, reqURL, contentType string, data []byte, expectedRespCodes ...int) ([]byte, error) {
	req, err := http.NewRequest(method, reqURL, bytes.NewReader(data))
	if err != nil {
		return []byte{}, err
	}

	req.Header.Add("Content-Type", contentType)

	resp, err := sdk.client.Do(req)
	if err != nil {
		return []byte{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return []byte{}, err
	}

	for _, code := range expectedRespCodes {
		if resp.StatusCode == code {
			return body, nil
		}
	}

	var errRes struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &errRes)

	return []byte{}, &Error{StatusCode: resp.StatusCode, Message: errRes.Error}
}

func pageQuery(offset, limit uint64) string {
	q := url.Values{}
	if offset > 0 {
		q.Set("offset", strconv.FormatUint(offset, 10))
	}
	if limit > 0 {
		q.Set("limit", strconv.FormatUint(limit, 10))
	}
	if len(q) == 0 {
		return ""
	}

	return "?" + q.Encode()
}
