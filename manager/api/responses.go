package api

import (
	"net/http"

	"github.com/absmach/flaas/pkg/device"
	"github.com/absmach/flaas/pkg/fl"
	"github.com/absmach/flaas/pkg/project"
	"github.com/absmach/supermq"
)

var (
	_ supermq.Response = (*projectResponse)(nil)
	_ supermq.Response = (*listProjectResponse)(nil)
	_ supermq.Response = (*roundResponse)(nil)
	_ supermq.Response = (*listRoundResponse)(nil)
	_ supermq.Response = (*reportResponse)(nil)
	_ supermq.Response = (*deviceResponse)(nil)
	_ supermq.Response = (*listDeviceResponse)(nil)
	_ supermq.Response = (*assignResponse)(nil)
	_ supermq.Response = (*statusResponse)(nil)
	_ supermq.Response = (*joinedResponse)(nil)
	_ supermq.Response = (*tickResponse)(nil)
	_ supermq.Response = (*notificationResponse)(nil)
	_ supermq.Response = (*emptyResponse)(nil)
)

type projectResponse struct {
	project.Project
	created bool
	deleted bool
}

func (res projectResponse) Code() int {
	if res.created {
		return http.StatusCreated
	}
	if res.deleted {
		return http.StatusNoContent
	}

	return http.StatusOK
}

func (res projectResponse) Headers() map[string]string {
	if res.created {
		return map[string]string{
			"Location": "/projects/" + res.ID,
		}
	}

	return map[string]string{}
}

func (res projectResponse) Empty() bool {
	return res.deleted
}

type listProjectResponse struct {
	project.ProjectPage
}

func (res listProjectResponse) Code() int {
	return http.StatusOK
}

func (res listProjectResponse) Headers() map[string]string {
	return map[string]string{}
}

func (res listProjectResponse) Empty() bool {
	return false
}

type roundResponse struct {
	project.Round
}

func (res roundResponse) Code() int {
	return http.StatusOK
}

func (res roundResponse) Headers() map[string]string {
	return map[string]string{}
}

func (res roundResponse) Empty() bool {
	return false
}

type listRoundResponse struct {
	Rounds []project.Round `json:"rounds"`
}

func (res listRoundResponse) Code() int {
	return http.StatusOK
}

func (res listRoundResponse) Headers() map[string]string {
	return map[string]string{}
}

func (res listRoundResponse) Empty() bool {
	return false
}

type reportResponse struct {
	fl.RoundReport
}

func (res reportResponse) Code() int {
	return http.StatusOK
}

func (res reportResponse) Headers() map[string]string {
	return map[string]string{}
}

func (res reportResponse) Empty() bool {
	return false
}

type deviceResponse struct {
	device.Device
	created bool
	deleted bool
}

func (res deviceResponse) Code() int {
	if res.created {
		return http.StatusCreated
	}
	if res.deleted {
		return http.StatusNoContent
	}

	return http.StatusOK
}

func (res deviceResponse) Headers() map[string]string {
	if res.created {
		return map[string]string{
			"Location": "/devices/" + res.ID,
		}
	}

	return map[string]string{}
}

func (res deviceResponse) Empty() bool {
	return res.deleted
}

type listDeviceResponse struct {
	device.DevicePage
}

func (res listDeviceResponse) Code() int {
	return http.StatusOK
}

func (res listDeviceResponse) Headers() map[string]string {
	return map[string]string{}
}

func (res listDeviceResponse) Empty() bool {
	return false
}

type assignResponse struct {
	Devices []device.Device `json:"devices"`
}

func (res assignResponse) Code() int {
	return http.StatusOK
}

func (res assignResponse) Headers() map[string]string {
	return map[string]string{}
}

func (res assignResponse) Empty() bool {
	return false
}

type statusResponse struct {
	device.StatusReport
}

func (res statusResponse) Code() int {
	return http.StatusCreated
}

func (res statusResponse) Headers() map[string]string {
	return map[string]string{}
}

func (res statusResponse) Empty() bool {
	return false
}

type joinedResponse struct {
	Joined []device.JoinedRound `json:"joined"`
}

func (res joinedResponse) Code() int {
	return http.StatusOK
}

func (res joinedResponse) Headers() map[string]string {
	return map[string]string{}
}

func (res joinedResponse) Empty() bool {
	return false
}

type tickResponse struct {
	Processed int `json:"processed"`
}

func (res tickResponse) Code() int {
	return http.StatusOK
}

func (res tickResponse) Headers() map[string]string {
	return map[string]string{}
}

func (res tickResponse) Empty() bool {
	return false
}

type notificationResponse struct {
	project.Notification
}

func (res notificationResponse) Code() int {
	if res.ID == "" {
		return http.StatusNoContent
	}

	return http.StatusCreated
}

func (res notificationResponse) Headers() map[string]string {
	return map[string]string{}
}

func (res notificationResponse) Empty() bool {
	return res.ID == ""
}

type emptyResponse struct {
	location string
}

func (res emptyResponse) Code() int {
	return http.StatusNoContent
}

func (res emptyResponse) Headers() map[string]string {
	if res.location != "" {
		return map[string]string{"Location": res.location}
	}

	return map[string]string{}
}

func (res emptyResponse) Empty() bool {
	return true
}

// modelResponse carries raw weights and bypasses the JSON encoder.
type modelResponse struct {
	weights []byte
}
