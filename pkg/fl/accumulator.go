package fl

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Accumulator sums equally sized weight vectors for one aggregation pass.
// It is not safe for concurrent use.
type Accumulator struct {
	sum   []float64
	buf   []float64
	count int
}

func NewAccumulator(size int) *Accumulator {
	return &Accumulator{
		sum: make([]float64, size),
		buf: make([]float64, size),
	}
}

// Accumulate adds w to the running sum. A vector of the wrong length is
// rejected and leaves the accumulator unchanged.
func (a *Accumulator) Accumulate(w []float32) error {
	if len(w) != len(a.sum) {
		return fmt.Errorf("%w: got %d, want %d", ErrInvalidLength, len(w), len(a.sum))
	}

	for i, v := range w {
		a.buf[i] = float64(v)
	}
	floats.Add(a.sum, a.buf)
	a.count++

	return nil
}

func (a *Accumulator) Count() int {
	return a.count
}

func (a *Accumulator) Size() int {
	return len(a.sum)
}

// Finalize returns the elementwise mean of the accumulated vectors. With a
// single contributor that is the vector itself, with none it is the zero
// vector.
func (a *Accumulator) Finalize() []float32 {
	mean := make([]float64, len(a.sum))
	copy(mean, a.sum)
	if a.count > 1 {
		floats.Scale(1/float64(a.count), mean)
	}

	out := make([]float32, len(mean))
	for i, v := range mean {
		out[i] = float32(v)
	}

	return out
}
