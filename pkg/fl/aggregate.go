package fl

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/absmach/flaas/pkg/blob"
)

// ModelSize reads the parameter count of a model from its template.
func ModelSize(ctx context.Context, store blob.Store, model string) (int, error) {
	data, err := store.Read(ctx, blob.TemplatePath(model))
	if err != nil {
		return 0, fmt.Errorf("failed to read template of model %s: %w", model, err)
	}

	return ParameterCount(len(data))
}

// SeedModel copies a model template into the base slot of a round.
func SeedModel(ctx context.Context, store blob.Store, model, projectID string, round uint64) error {
	data, err := store.Read(ctx, blob.TemplatePath(model))
	if err != nil {
		return err
	}

	return store.Write(ctx, blob.RoundModelPath(projectID, round), data)
}

// CopyForward writes the base model of round from, unchanged, as the base
// model of round to.
func CopyForward(ctx context.Context, store blob.Store, projectID string, from, to uint64) error {
	data, err := store.Read(ctx, blob.RoundModelPath(projectID, from))
	if err != nil {
		return err
	}

	return store.Write(ctx, blob.RoundModelPath(projectID, to), data)
}

// Aggregate averages the submissions of devices in round from and stores the
// result as the base model of round to. Submissions that are missing or
// malformed are logged and skipped. It returns the number of contributors.
func Aggregate(ctx context.Context, store blob.Store, logger *slog.Logger, projectID string, from, to uint64, size int, devices []string) (int, error) {
	acc := NewAccumulator(size)

	for _, id := range devices {
		path := blob.DeviceModelPath(projectID, from, id)

		data, err := store.Read(ctx, path)
		if err != nil {
			logger.Warn("skipping missing device model",
				slog.String("path", path),
				slog.String("error", err.Error()))

			continue
		}

		w, err := DecodeWeights(data)
		if err == nil {
			err = acc.Accumulate(w)
		}
		if err != nil {
			logger.Warn("discarding device model",
				slog.String("path", path),
				slog.String("error", err.Error()))

			continue
		}
	}

	if err := store.Write(ctx, blob.RoundModelPath(projectID, to), EncodeWeights(acc.Finalize())); err != nil {
		return acc.Count(), err
	}

	return acc.Count(), nil
}
