package api

import (
	"context"
	"errors"

	"github.com/absmach/flaas/manager"
	pkgerrors "github.com/absmach/flaas/pkg/errors"
	"github.com/absmach/flaas/pkg/project"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-kit/kit/endpoint"
)

func createProjectEndpoint(svc manager.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(projectReq)
		if !ok {
			return projectResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return projectResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		p, err := svc.CreateProject(ctx, req.Project)
		if err != nil {
			return projectResponse{}, err
		}

		return projectResponse{
			Project: p,
			created: true,
		}, nil
	}
}

func getProjectEndpoint(svc manager.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return projectResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return projectResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		p, err := svc.GetProject(ctx, req.id)
		if err != nil {
			return projectResponse{}, err
		}

		return projectResponse{
			Project: p,
		}, nil
	}
}

func listProjectsEndpoint(svc manager.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(listEntityReq)
		if !ok {
			return listProjectResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return listProjectResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		page, err := svc.ListProjects(ctx, req.offset, req.limit)
		if err != nil {
			return listProjectResponse{}, err
		}

		return listProjectResponse{
			ProjectPage: page,
		}, nil
	}
}

func updateProjectEndpoint(svc manager.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(projectReq)
		if !ok {
			return projectResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return projectResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		p, err := svc.UpdateProject(ctx, req.Project)
		if err != nil {
			return projectResponse{}, err
		}

		return projectResponse{
			Project: p,
		}, nil
	}
}

// projectActionEndpoint serves the start, stop and reset operations, which
// share their request and response shapes.
func projectActionEndpoint(action func(ctx context.Context, projectID string) (project.Project, error)) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return projectResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return projectResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		p, err := action(ctx, req.id)
		if err != nil {
			return projectResponse{}, err
		}

		return projectResponse{
			Project: p,
		}, nil
	}
}

func deleteProjectEndpoint(svc manager.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return projectResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return projectResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		if err := svc.DeleteProject(ctx, req.id); err != nil {
			return projectResponse{}, err
		}

		return projectResponse{
			deleted: true,
		}, nil
	}
}

func listRoundsEndpoint(svc manager.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return listRoundResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return listRoundResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		rounds, err := svc.ListRounds(ctx, req.id)
		if err != nil {
			return listRoundResponse{}, err
		}

		return listRoundResponse{
			Rounds: rounds,
		}, nil
	}
}

func getRoundEndpoint(svc manager.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(roundReq)
		if !ok {
			return roundResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return roundResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		r, err := svc.GetRound(ctx, req.projectID, req.number)
		if err != nil {
			return roundResponse{}, err
		}

		return roundResponse{
			Round: r,
		}, nil
	}
}

func getRoundReportEndpoint(svc manager.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(roundReq)
		if !ok {
			return reportResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return reportResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		report, err := svc.GetRoundReport(ctx, req.projectID, req.number)
		if err != nil {
			return reportResponse{}, err
		}

		return reportResponse{
			RoundReport: report,
		}, nil
	}
}

func listJoinedEndpoint(svc manager.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(roundReq)
		if !ok {
			return joinedResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return joinedResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		joined, err := svc.ListJoined(ctx, req.projectID, req.number)
		if err != nil {
			return joinedResponse{}, err
		}

		return joinedResponse{
			Joined: joined,
		}, nil
	}
}

func getModelEndpoint(svc manager.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(roundReq)
		if !ok {
			return modelResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return modelResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		weights, err := svc.GetModel(ctx, req.projectID, req.number)
		if err != nil {
			return modelResponse{}, err
		}

		return modelResponse{
			weights: weights,
		}, nil
	}
}

func registerDeviceEndpoint(svc manager.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(deviceReq)
		if !ok {
			return deviceResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return deviceResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		d, err := svc.RegisterDevice(ctx, req.Device)
		if err != nil {
			return deviceResponse{}, err
		}

		return deviceResponse{
			Device:  d,
			created: true,
		}, nil
	}
}

func getDeviceEndpoint(svc manager.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return deviceResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return deviceResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		d, err := svc.GetDevice(ctx, req.id)
		if err != nil {
			return deviceResponse{}, err
		}

		return deviceResponse{
			Device: d,
		}, nil
	}
}

func listDevicesEndpoint(svc manager.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(listEntityReq)
		if !ok {
			return listDeviceResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return listDeviceResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		page, err := svc.ListDevices(ctx, req.offset, req.limit)
		if err != nil {
			return listDeviceResponse{}, err
		}

		return listDeviceResponse{
			DevicePage: page,
		}, nil
	}
}

func assignDevicesEndpoint(svc manager.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(assignReq)
		if !ok {
			return assignResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return assignResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		devices, err := svc.AssignDevices(ctx, req.ProjectID, req.DeviceIDs)
		if err != nil {
			return assignResponse{}, err
		}

		return assignResponse{
			Devices: devices,
		}, nil
	}
}

func deleteDeviceEndpoint(svc manager.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return deviceResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return deviceResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		if err := svc.DeleteDevice(ctx, req.id); err != nil {
			return deviceResponse{}, err
		}

		return deviceResponse{
			deleted: true,
		}, nil
	}
}

func reportStatusEndpoint(svc manager.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(statusReq)
		if !ok {
			return statusResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return statusResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		report, err := svc.ReportStatus(ctx, req.deviceID, req.report)
		if err != nil {
			return statusResponse{}, err
		}

		return statusResponse{
			StatusReport: report,
		}, nil
	}
}

func joinRoundEndpoint(svc manager.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(joinReq)
		if !ok {
			return roundResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return roundResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		r, err := svc.JoinRound(ctx, req.deviceID, req.ProjectID, req.RoundNumber, req.Status)
		if err != nil {
			return roundResponse{}, err
		}

		return roundResponse{
			Round: r,
		}, nil
	}
}

func submitModelEndpoint(svc manager.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(modelReq)
		if !ok {
			return emptyResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return emptyResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		if err := svc.SubmitModel(ctx, req.deviceID, req.projectID, req.number, req.weights); err != nil {
			return emptyResponse{}, err
		}

		return emptyResponse{}, nil
	}
}

func submitResultsEndpoint(svc manager.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(resultsReq)
		if !ok {
			return emptyResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return emptyResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		if err := svc.SubmitResults(ctx, req.deviceID, req.projectID, req.number, req.Results); err != nil {
			return emptyResponse{}, err
		}

		return emptyResponse{}, nil
	}
}

func tickEndpoint(svc manager.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		n, err := svc.Tick(ctx)
		if err != nil {
			return tickResponse{}, err
		}

		return tickResponse{
			Processed: n,
		}, nil
	}
}

func sendQuestionnairesEndpoint(svc manager.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		n, err := svc.SendQuestionnaires(ctx)
		if err != nil {
			return notificationResponse{}, err
		}

		return notificationResponse{
			Notification: n,
		}, nil
	}
}
