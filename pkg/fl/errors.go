package fl

import "errors"

var (
	ErrInvalidLength = errors.New("weight vector length mismatch")
	ErrMisaligned    = errors.New("weight data is not a whole number of float32 values")
)
