package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/absmach/flaas/manager"
	"github.com/absmach/flaas/pkg/api"
	"github.com/absmach/flaas/pkg/device"
	"github.com/absmach/supermq"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	maxModelSize = 1024 * 1024 * 100
	maxBodySize  = 1024 * 1024

	projectIDKey = "projectID"
	deviceIDKey  = "deviceID"
	roundKey     = "round"
)

var errRoundNumber = errors.New("round number must be a non-negative integer")

func MakeHandler(svc manager.Service, logger *slog.Logger, instanceID string) http.Handler {
	mux := chi.NewRouter()

	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(apiutil.LoggingErrorEncoder(logger, api.EncodeError)),
	}

	mux.Route("/projects", func(r chi.Router) {
		r.Post("/", otelhttp.NewHandler(kithttp.NewServer(
			createProjectEndpoint(svc),
			decodeProjectReq,
			api.EncodeResponse,
			opts...,
		), "create-project").ServeHTTP)
		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			listProjectsEndpoint(svc),
			decodeListEntityReq,
			api.EncodeResponse,
			opts...,
		), "list-projects").ServeHTTP)
		r.Route("/{projectID}", func(r chi.Router) {
			r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
				getProjectEndpoint(svc),
				decodeEntityReq(projectIDKey),
				api.EncodeResponse,
				opts...,
			), "get-project").ServeHTTP)
			r.Put("/", otelhttp.NewHandler(kithttp.NewServer(
				updateProjectEndpoint(svc),
				decodeUpdateProjectReq,
				api.EncodeResponse,
				opts...,
			), "update-project").ServeHTTP)
			r.Delete("/", otelhttp.NewHandler(kithttp.NewServer(
				deleteProjectEndpoint(svc),
				decodeEntityReq(projectIDKey),
				api.EncodeResponse,
				opts...,
			), "delete-project").ServeHTTP)
			r.Post("/start", otelhttp.NewHandler(kithttp.NewServer(
				projectActionEndpoint(svc.StartProject),
				decodeEntityReq(projectIDKey),
				api.EncodeResponse,
				opts...,
			), "start-project").ServeHTTP)
			r.Post("/stop", otelhttp.NewHandler(kithttp.NewServer(
				projectActionEndpoint(svc.StopProject),
				decodeEntityReq(projectIDKey),
				api.EncodeResponse,
				opts...,
			), "stop-project").ServeHTTP)
			r.Post("/reset", otelhttp.NewHandler(kithttp.NewServer(
				projectActionEndpoint(svc.ResetProject),
				decodeEntityReq(projectIDKey),
				api.EncodeResponse,
				opts...,
			), "reset-project").ServeHTTP)
			r.Get("/rounds", otelhttp.NewHandler(kithttp.NewServer(
				listRoundsEndpoint(svc),
				decodeEntityReq(projectIDKey),
				api.EncodeResponse,
				opts...,
			), "list-rounds").ServeHTTP)
			r.Route("/rounds/{round}", func(r chi.Router) {
				r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
					getRoundEndpoint(svc),
					decodeRoundReq,
					api.EncodeResponse,
					opts...,
				), "get-round").ServeHTTP)
				r.Get("/model", otelhttp.NewHandler(kithttp.NewServer(
					getModelEndpoint(svc),
					decodeRoundReq,
					encodeModelResponse,
					opts...,
				), "get-model").ServeHTTP)
				r.Get("/report", otelhttp.NewHandler(kithttp.NewServer(
					getRoundReportEndpoint(svc),
					decodeRoundReq,
					api.EncodeResponse,
					opts...,
				), "get-round-report").ServeHTTP)
				r.Get("/joined", otelhttp.NewHandler(kithttp.NewServer(
					listJoinedEndpoint(svc),
					decodeRoundReq,
					api.EncodeResponse,
					opts...,
				), "list-joined").ServeHTTP)
			})
		})
	})

	mux.Route("/devices", func(r chi.Router) {
		r.Post("/", otelhttp.NewHandler(kithttp.NewServer(
			registerDeviceEndpoint(svc),
			decodeDeviceReq,
			api.EncodeResponse,
			opts...,
		), "register-device").ServeHTTP)
		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			listDevicesEndpoint(svc),
			decodeListEntityReq,
			api.EncodeResponse,
			opts...,
		), "list-devices").ServeHTTP)
		r.Post("/assign", otelhttp.NewHandler(kithttp.NewServer(
			assignDevicesEndpoint(svc),
			decodeAssignReq,
			api.EncodeResponse,
			opts...,
		), "assign-devices").ServeHTTP)
		r.Route("/{deviceID}", func(r chi.Router) {
			r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
				getDeviceEndpoint(svc),
				decodeEntityReq(deviceIDKey),
				api.EncodeResponse,
				opts...,
			), "get-device").ServeHTTP)
			r.Delete("/", otelhttp.NewHandler(kithttp.NewServer(
				deleteDeviceEndpoint(svc),
				decodeEntityReq(deviceIDKey),
				api.EncodeResponse,
				opts...,
			), "delete-device").ServeHTTP)
			r.Post("/status", otelhttp.NewHandler(kithttp.NewServer(
				reportStatusEndpoint(svc),
				decodeStatusReq,
				api.EncodeResponse,
				opts...,
			), "report-status").ServeHTTP)
			r.Post("/join", otelhttp.NewHandler(kithttp.NewServer(
				joinRoundEndpoint(svc),
				decodeJoinReq,
				api.EncodeResponse,
				opts...,
			), "join-round").ServeHTTP)
			r.Put("/projects/{projectID}/rounds/{round}/model", otelhttp.NewHandler(kithttp.NewServer(
				submitModelEndpoint(svc),
				decodeModelReq,
				api.EncodeResponse,
				opts...,
			), "submit-model").ServeHTTP)
			r.Post("/projects/{projectID}/rounds/{round}/results", otelhttp.NewHandler(kithttp.NewServer(
				submitResultsEndpoint(svc),
				decodeResultsReq,
				api.EncodeResponse,
				opts...,
			), "submit-results").ServeHTTP)
		})
	})

	mux.Post("/tick", otelhttp.NewHandler(kithttp.NewServer(
		tickEndpoint(svc),
		kithttp.NopRequestDecoder,
		api.EncodeResponse,
		opts...,
	), "tick").ServeHTTP)
	mux.Post("/questionnaires", otelhttp.NewHandler(kithttp.NewServer(
		sendQuestionnairesEndpoint(svc),
		kithttp.NopRequestDecoder,
		api.EncodeResponse,
		opts...,
	), "send-questionnaires").ServeHTTP)

	mux.Get("/health", supermq.Health("manager", instanceID))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func decodeEntityReq(key string) kithttp.DecodeRequestFunc {
	return func(_ context.Context, r *http.Request) (any, error) {
		return entityReq{
			id: chi.URLParam(r, key),
		}, nil
	}
}

func decodeListEntityReq(_ context.Context, r *http.Request) (any, error) {
	o, err := apiutil.ReadNumQuery[uint64](r, api.OffsetKey, api.DefOffset)
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, err)
	}

	l, err := apiutil.ReadNumQuery[uint64](r, api.LimitKey, api.DefLimit)
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, err)
	}

	return listEntityReq{
		offset: o,
		limit:  l,
	}, nil
}

func decodeProjectReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get(api.ContentTypeHeader), api.ContentType) {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	var req projectReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}

	return req, nil
}

func decodeUpdateProjectReq(ctx context.Context, r *http.Request) (any, error) {
	req, err := decodeProjectReq(ctx, r)
	if err != nil {
		return nil, err
	}

	p := req.(projectReq)
	p.ID = chi.URLParam(r, projectIDKey)

	return p, nil
}

func decodeRoundReq(_ context.Context, r *http.Request) (any, error) {
	n, err := roundNumber(r)
	if err != nil {
		return nil, err
	}

	return roundReq{
		projectID: chi.URLParam(r, projectIDKey),
		number:    n,
	}, nil
}

func decodeDeviceReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get(api.ContentTypeHeader), api.ContentType) {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	var req deviceReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}

	return req, nil
}

func decodeAssignReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get(api.ContentTypeHeader), api.ContentType) {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	var req assignReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}

	return req, nil
}

// decodeStatusReq accepts JSON and CBOR encoded reports.
func decodeStatusReq(_ context.Context, r *http.Request) (any, error) {
	contentType := r.Header.Get(api.ContentTypeHeader)
	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
		}
		contentType = mediaType
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, err)
	}

	report, err := device.DecodeReport(contentType, data)
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, err)
	}

	return statusReq{
		deviceID: chi.URLParam(r, deviceIDKey),
		report:   report,
	}, nil
}

func decodeJoinReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get(api.ContentTypeHeader), api.ContentType) {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	req := joinReq{deviceID: chi.URLParam(r, deviceIDKey)}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}

	return req, nil
}

func decodeModelReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get(api.ContentTypeHeader), api.OctetStreamType) {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	n, err := roundNumber(r)
	if err != nil {
		return nil, err
	}

	weights, err := io.ReadAll(io.LimitReader(r.Body, maxModelSize))
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, err)
	}

	return modelReq{
		deviceID:  chi.URLParam(r, deviceIDKey),
		projectID: chi.URLParam(r, projectIDKey),
		number:    n,
		weights:   weights,
	}, nil
}

func decodeResultsReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get(api.ContentTypeHeader), api.ContentType) {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	n, err := roundNumber(r)
	if err != nil {
		return nil, err
	}

	req := resultsReq{
		deviceID:  chi.URLParam(r, deviceIDKey),
		projectID: chi.URLParam(r, projectIDKey),
		number:    n,
	}
	if err := json.NewDecoder(r.Body).Decode(&req.Results); err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}

	return req, nil
}

func encodeModelResponse(_ context.Context, w http.ResponseWriter, response any) error {
	res, ok := response.(modelResponse)
	if !ok {
		return api.EncodeResponse(context.Background(), w, response)
	}

	w.Header().Set(api.ContentTypeHeader, api.OctetStreamType)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.weights)))
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(res.weights)

	return err
}

func roundNumber(r *http.Request) (uint64, error) {
	n, err := strconv.ParseUint(chi.URLParam(r, roundKey), 10, 64)
	if err != nil {
		return 0, errors.Join(apiutil.ErrValidation, errRoundNumber)
	}

	return n, nil
}
