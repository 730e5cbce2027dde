package device

import "errors"

var (
	ErrMissingField     = errors.New("missing required field")
	ErrBatteryLevel     = errors.New("battery level must be within [0, 1]")
	ErrRequestType      = errors.New("unknown request type")
	ErrMissingRequestID = errors.New("training reply without request id")
	ErrJoinStatus       = errors.New("unknown join status")
)
