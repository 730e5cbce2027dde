package project

import "errors"

var (
	ErrMissingTitle   = errors.New("missing project title")
	ErrThresholdRange = errors.New("threshold must be within [0, 1]")
	ErrDatasetType    = errors.New("unknown dataset type")
	ErrTrainingMode   = errors.New("unknown training mode")
)
