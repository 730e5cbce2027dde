package fl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/absmach/flaas/pkg/blob"
	pkgerrors "github.com/absmach/flaas/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

var ErrResultsLength = errors.New("ytrue and ypred must be non-empty and of equal length")

// Results are the evaluation labels a device reports after training.
type Results struct {
	YTrue []int `json:"ytrue"`
	YPred []int `json:"ypred"`
}

func (r Results) Validate() error {
	if len(r.YTrue) == 0 || len(r.YTrue) != len(r.YPred) {
		return fmt.Errorf("%w: %d vs %d", ErrResultsLength, len(r.YTrue), len(r.YPred))
	}

	return nil
}

// Accuracy is the fraction of matching labels. r must be valid.
func (r Results) Accuracy() float64 {
	hits := 0
	for i, y := range r.YTrue {
		if r.YPred[i] == y {
			hits++
		}
	}

	return float64(hits) / float64(len(r.YTrue))
}

type RoundReport struct {
	ProjectID    string  `json:"project_id"`
	Round        uint64  `json:"round_number"`
	Sessions     int     `json:"sessions"`
	MeanAccuracy float64 `json:"mean_accuracy"`
	StdAccuracy  float64 `json:"std_accuracy"`
}

// Report summarizes the accuracy of every device session of a round.
// Sessions without readable results are skipped.
func Report(ctx context.Context, store blob.Store, logger *slog.Logger, projectID string, round uint64) (RoundReport, error) {
	rep := RoundReport{ProjectID: projectID, Round: round}

	sessions, _, err := store.List(ctx, blob.RoundPath(projectID, round))
	switch {
	case errors.Is(err, pkgerrors.ErrNotFound):
		return rep, nil
	case err != nil:
		return RoundReport{}, err
	}

	var accuracies []float64
	for _, session := range sessions {
		path := blob.DeviceResultsPath(projectID, round, session)
		data, err := store.Read(ctx, path)
		if err != nil {
			continue
		}

		var res Results
		if err = json.Unmarshal(data, &res); err == nil {
			err = res.Validate()
		}
		if err != nil {
			logger.Warn("skipping malformed results", slog.String("path", path), slog.String("error", err.Error()))

			continue
		}
		accuracies = append(accuracies, res.Accuracy())
	}

	rep.Sessions = len(accuracies)
	if rep.Sessions > 0 {
		rep.MeanAccuracy, rep.StdAccuracy = stat.PopMeanStdDev(accuracies, nil)
	}

	return rep, nil
}
