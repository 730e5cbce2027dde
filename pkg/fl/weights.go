package fl

import (
	"encoding/binary"
	"fmt"
	"math"
)

const float32Size = 4

// DecodeWeights reads a raw little-endian float32 array.
func DecodeWeights(data []byte) ([]float32, error) {
	if len(data)%float32Size != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrMisaligned, len(data))
	}

	w := make([]float32, len(data)/float32Size)
	for i := range w {
		w[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*float32Size:]))
	}

	return w, nil
}

func EncodeWeights(w []float32) []byte {
	data := make([]byte, len(w)*float32Size)
	for i, v := range w {
		binary.LittleEndian.PutUint32(data[i*float32Size:], math.Float32bits(v))
	}

	return data
}

// ParameterCount is the number of float32 values in a weights file of n bytes.
func ParameterCount(n int) (int, error) {
	if n%float32Size != 0 {
		return 0, fmt.Errorf("%w: %d bytes", ErrMisaligned, n)
	}

	return n / float32Size, nil
}
