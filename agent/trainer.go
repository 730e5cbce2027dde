package agent

import (
	"context"
	"math/rand/v2"

	"github.com/absmach/flaas/pkg/fl"
	"gonum.org/v1/gonum/floats"
)

const (
	numClasses   = 10
	learningRate = 0.01
)

type Trainer interface {
	// Train returns the locally updated weights and the evaluation labels
	// produced for them.
	Train(ctx context.Context, weights []float32, req TrainingRequest) ([]float32, fl.Results, error)
}

type simulatedTrainer struct {
	seed     uint64
	samples  int
	accuracy float64
}

// NewSimulatedTrainer perturbs the base weights with seeded noise and
// reports labels that match with the given probability. The same seed and
// round always give the same output.
func NewSimulatedTrainer(seed uint64, samples int, accuracy float64) Trainer {
	return &simulatedTrainer{seed: seed, samples: samples, accuracy: accuracy}
}

func (t *simulatedTrainer) Train(ctx context.Context, weights []float32, req TrainingRequest) ([]float32, fl.Results, error) {
	if err := ctx.Err(); err != nil {
		return nil, fl.Results{}, err
	}

	rng := rand.New(rand.NewPCG(t.seed, req.RoundNumber))

	w := make([]float64, len(weights))
	noise := make([]float64, len(weights))
	for i, v := range weights {
		w[i] = float64(v)
		noise[i] = rng.NormFloat64()
	}
	floats.AddScaled(w, learningRate, noise)

	updated := make([]float32, len(w))
	for i, v := range w {
		updated[i] = float32(v)
	}

	samples := max(t.samples, 1)
	res := fl.Results{
		YTrue: make([]int, samples),
		YPred: make([]int, samples),
	}
	for i := range samples {
		y := rng.IntN(numClasses)
		res.YTrue[i] = y
		res.YPred[i] = y
		if rng.Float64() >= t.accuracy {
			res.YPred[i] = (y + 1 + rng.IntN(numClasses-1)) % numClasses
		}
	}

	return updated, res, nil
}
