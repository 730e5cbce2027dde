package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/absmach/flaas/pkg/errors"
	"github.com/absmach/supermq"
	apiutil "github.com/absmach/supermq/api/http/util"
)

const (
	OffsetKey = "offset"
	LimitKey  = "limit"
	DefOffset = 0
	DefLimit  = 100

	ContentType       = "application/json"
	OctetStreamType   = "application/octet-stream"
	ContentTypeHeader = "Content-Type"

	MaxLimitSize = 100
)

type errorRes struct {
	Err string `json:"error"`
}

func EncodeResponse(_ context.Context, w http.ResponseWriter, response any) error {
	if ar, ok := response.(supermq.Response); ok {
		for k, v := range ar.Headers() {
			w.Header().Set(k, v)
		}
		w.Header().Set(ContentTypeHeader, ContentType)
		w.WriteHeader(ar.Code())

		if ar.Empty() {
			return nil
		}
	}

	return json.NewEncoder(w).Encode(response)
}

func EncodeError(_ context.Context, err error, w http.ResponseWriter) {
	w.Header().Set(ContentTypeHeader, ContentType)
	w.WriteHeader(StatusCode(err))

	if err := json.NewEncoder(w).Encode(errorRes{Err: err.Error()}); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// StatusCode maps the error taxonomy onto HTTP status codes.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, pkgerrors.ErrValidation),
		errors.Is(err, pkgerrors.ErrEmptyKey),
		errors.Is(err, pkgerrors.ErrInvalidData),
		errors.Is(err, apiutil.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, pkgerrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pkgerrors.ErrEntityExists),
		errors.Is(err, pkgerrors.ErrIllegalState):
		return http.StatusConflict
	case errors.Is(err, pkgerrors.ErrExternalService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
