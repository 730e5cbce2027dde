package errors

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrEmptyKey        = errors.New("empty key")
	ErrInvalidData     = errors.New("invalid data type")
	ErrEntityExists    = errors.New("entity already exists")
	ErrValidation      = errors.New("validation failed")
	ErrExternalService = errors.New("external service failure")
	ErrIllegalState    = errors.New("illegal state")
)
