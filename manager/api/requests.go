package api

import (
	"github.com/absmach/flaas/pkg/api"
	"github.com/absmach/flaas/pkg/device"
	"github.com/absmach/flaas/pkg/fl"
	"github.com/absmach/flaas/pkg/project"
	apiutil "github.com/absmach/supermq/api/http/util"
)

type projectReq struct {
	project.Project `json:",inline"`
}

func (req *projectReq) validate() error {
	if req.Title == "" {
		return apiutil.ErrMissingName
	}

	return nil
}

type entityReq struct {
	id string
}

func (req *entityReq) validate() error {
	if req.id == "" {
		return apiutil.ErrMissingID
	}

	return nil
}

type listEntityReq struct {
	offset, limit uint64
}

func (req *listEntityReq) validate() error {
	if req.limit == 0 || req.limit > api.MaxLimitSize {
		return apiutil.ErrLimitSize
	}

	return nil
}

type roundReq struct {
	projectID string
	number    uint64
}

func (req *roundReq) validate() error {
	if req.projectID == "" {
		return apiutil.ErrMissingID
	}

	return nil
}

type deviceReq struct {
	device.Device `json:",inline"`
}

func (req *deviceReq) validate() error {
	if req.Username == "" {
		return apiutil.ErrMissingName
	}

	return nil
}

type assignReq struct {
	ProjectID string   `json:"project_id"`
	DeviceIDs []string `json:"device_ids"`
}

func (req *assignReq) validate() error {
	if len(req.DeviceIDs) == 0 {
		return apiutil.ErrMissingID
	}

	return nil
}

type statusReq struct {
	deviceID string
	report   device.Report
}

func (req *statusReq) validate() error {
	if req.deviceID == "" {
		return apiutil.ErrMissingID
	}

	return nil
}

type joinReq struct {
	deviceID    string
	ProjectID   string            `json:"project_id"`
	RoundNumber uint64            `json:"round_number"`
	Status      device.JoinStatus `json:"status"`
}

func (req *joinReq) validate() error {
	if req.deviceID == "" || req.ProjectID == "" {
		return apiutil.ErrMissingID
	}

	return nil
}

type modelReq struct {
	deviceID  string
	projectID string
	number    uint64
	weights   []byte
}

func (req *modelReq) validate() error {
	if req.deviceID == "" || req.projectID == "" {
		return apiutil.ErrMissingID
	}

	return nil
}

type resultsReq struct {
	deviceID  string
	projectID string
	number    uint64
	fl.Results
}

func (req *resultsReq) validate() error {
	if req.deviceID == "" || req.projectID == "" {
		return apiutil.ErrMissingID
	}

	return nil
}
