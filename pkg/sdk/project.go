package sdk

import (
	"fmt"
	"net/http"

	"github.com/absmach/flaas/pkg/device"
	"github.com/absmach/flaas/pkg/fl"
	"github.com/absmach/flaas/pkg/project"
)

const projectsEndpoint = "/projects"

func (sdk *flaasSDK) CreateProject(p project.Project) (project.Project, error) {
	var created project.Project
	if err := sdk.sendJSON(http.MethodPost, sdk.managerURL+projectsEndpoint, p, &created, http.StatusCreated); err != nil {
		return project.Project{}, err
	}

	return created, nil
}

func (sdk *flaasSDK) GetProject(id string) (project.Project, error) {
	var p project.Project
	if err := sdk.sendJSON(http.MethodGet, sdk.projectURL(id), nil, &p, http.StatusOK); err != nil {
		return project.Project{}, err
	}

	return p, nil
}

func (sdk *flaasSDK) ListProjects(offset, limit uint64) (project.ProjectPage, error) {
	var page project.ProjectPage
	reqURL := sdk.managerURL + projectsEndpoint + pageQuery(offset, limit)
	if err := sdk.sendJSON(http.MethodGet, reqURL, nil, &page, http.StatusOK); err != nil {
		return project.ProjectPage{}, err
	}

	return page, nil
}

func (sdk *flaasSDK) UpdateProject(p project.Project) (project.Project, error) {
	var updated project.Project
	if err := sdk.sendJSON(http.MethodPut, sdk.projectURL(p.ID), p, &updated, http.StatusOK); err != nil {
		return project.Project{}, err
	}

	return updated, nil
}

func (sdk *flaasSDK) DeleteProject(id string) error {
	return sdk.sendJSON(http.MethodDelete, sdk.projectURL(id), nil, nil, http.StatusNoContent)
}

func (sdk *flaasSDK) StartProject(id string) (project.Project, error) {
	return sdk.projectAction(id, "start")
}

func (sdk *flaasSDK) StopProject(id string) (project.Project, error) {
	return sdk.projectAction(id, "stop")
}

func (sdk *flaasSDK) ResetProject(id string) (project.Project, error) {
	return sdk.projectAction(id, "reset")
}

func (sdk *flaasSDK) ListRounds(projectID string) ([]project.Round, error) {
	var res struct {
		Rounds []project.Round `json:"rounds"`
	}
	if err := sdk.sendJSON(http.MethodGet, sdk.projectURL(projectID)+"/rounds", nil, &res, http.StatusOK); err != nil {
		return nil, err
	}

	return res.Rounds, nil
}

func (sdk *flaasSDK) GetRound(projectID string, number uint64) (project.Round, error) {
	var r project.Round
	if err := sdk.sendJSON(http.MethodGet, sdk.roundURL(projectID, number), nil, &r, http.StatusOK); err != nil {
		return project.Round{}, err
	}

	return r, nil
}

func (sdk *flaasSDK) GetRoundReport(projectID string, number uint64) (fl.RoundReport, error) {
	var report fl.RoundReport
	if err := sdk.sendJSON(http.MethodGet, sdk.roundURL(projectID, number)+"/report", nil, &report, http.StatusOK); err != nil {
		return fl.RoundReport{}, err
	}

	return report, nil
}

func (sdk *flaasSDK) ListJoined(projectID string, number uint64) ([]device.JoinedRound, error) {
	var res struct {
		Joined []device.JoinedRound `json:"joined"`
	}
	if err := sdk.sendJSON(http.MethodGet, sdk.roundURL(projectID, number)+"/joined", nil, &res, http.StatusOK); err != nil {
		return nil, err
	}

	return res.Joined, nil
}

func (sdk *flaasSDK) GetModel(projectID string, number uint64) ([]byte, error) {
	return sdk.processRequest(http.MethodGet, sdk.roundURL(projectID, number)+"/model", CTJSON, nil, http.StatusOK)
}

func (sdk *flaasSDK) projectAction(id, action string) (project.Project, error) {
	var p project.Project
	if err := sdk.sendJSON(http.MethodPost, sdk.projectURL(id)+"/"+action, nil, &p, http.StatusOK); err != nil {
		return project.Project{}, err
	}

	return p, nil
}

func (sdk *flaasSDK) projectURL(id string) string {
	return sdk.managerURL + projectsEndpoint + "/" + id
}

func (sdk *flaasSDK) roundURL(projectID string, number uint64) string {
	return fmt.Sprintf("%s/rounds/%d", sdk.projectURL(projectID), number)
}
