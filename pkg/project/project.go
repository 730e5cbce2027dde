package project

import (
	"fmt"
	"time"
)

type Status uint8

const (
	Stopped Status = iota
	InProgress
	Completed
)

func (s Status) String() string {
	switch s {
	case Stopped:
		return "Stopped"
	case InProgress:
		return "In Progress"
	case Completed:
		return "Completed"
	default:
		return "Unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "Stopped", "":
		*s = Stopped
	case "In Progress", "InProgress":
		*s = InProgress
	case "Completed":
		*s = Completed
	default:
		return fmt.Errorf("unknown project status %q", string(b))
	}

	return nil
}

type DatasetType string

const (
	IID    DatasetType = "IID"
	NonIID DatasetType = "NonIID"
)

type TrainingMode string

const (
	Baseline     TrainingMode = "BASELINE"
	JointSamples TrainingMode = "JOINT_SAMPLES"
	JointModels  TrainingMode = "JOINT_MODELS"
)

const (
	DefaultModel                       = "CIFAR10_B20"
	DefaultDataset                     = "CIFAR10"
	DefaultNumberOfRounds              = 20
	DefaultNumberOfApps                = 3
	DefaultNumberOfSamples             = 150
	DefaultNumberOfEpochs              = 20
	DefaultSeed                        = 42524235
	DefaultResponsesRatioThreshold     = 0.80
	DefaultMaxTrainingTime             = 60
	DefaultValidRoundTrainingThreshold = 0.70
	DefaultBatteryLevelThreshold       = 0.60
)

// Project is a training campaign over the devices enrolled in it.
type Project struct {
	ID                          string       `json:"id"`
	Title                       string       `json:"title"`
	Description                 string       `json:"description,omitempty"`
	Model                       string       `json:"model"`
	Dataset                     string       `json:"dataset"`
	DatasetType                 DatasetType  `json:"dataset_type"`
	TrainingMode                TrainingMode `json:"training_mode"`
	Status                      Status       `json:"status"`
	NumberOfRounds              uint64       `json:"number_of_rounds"`
	NumberOfApps                uint64       `json:"number_of_apps"`
	NumberOfSamples             uint64       `json:"number_of_samples"`
	NumberOfEpochs              uint64       `json:"number_of_epochs"`
	Seed                        int64        `json:"seed"`
	CurrentRound                uint64       `json:"current_round"`
	ResponsesRatioThreshold     float64      `json:"responses_ratio_threshold"`
	MaxTrainingTime             uint64       `json:"max_training_time"`
	ValidRoundTrainingThreshold float64      `json:"valid_round_training_threshold"`
	PowerPluggedOnly            bool         `json:"power_plugged_only"`
	BatteryLevelThreshold       float64      `json:"battery_level_threshold"`
	CreatedAt                   time.Time    `json:"created_at"`
	UpdatedAt                   time.Time    `json:"updated_at"`
}

type ProjectPage struct {
	Offset   uint64    `json:"offset"`
	Limit    uint64    `json:"limit"`
	Total    uint64    `json:"total"`
	Projects []Project `json:"projects"`
}

// WithDefaults fills zero-valued campaign parameters. Thresholds and
// PowerPluggedOnly are taken as given since zero is a meaningful value.
func (p Project) WithDefaults() Project {
	if p.Model == "" {
		p.Model = DefaultModel
	}
	if p.Dataset == "" {
		p.Dataset = DefaultDataset
	}
	if p.DatasetType == "" {
		p.DatasetType = IID
	}
	if p.TrainingMode == "" {
		p.TrainingMode = Baseline
	}
	if p.NumberOfRounds == 0 {
		p.NumberOfRounds = DefaultNumberOfRounds
	}
	if p.NumberOfApps == 0 {
		p.NumberOfApps = DefaultNumberOfApps
	}
	if p.NumberOfSamples == 0 {
		p.NumberOfSamples = DefaultNumberOfSamples
	}
	if p.NumberOfEpochs == 0 {
		p.NumberOfEpochs = DefaultNumberOfEpochs
	}
	if p.Seed == 0 {
		p.Seed = DefaultSeed
	}
	if p.MaxTrainingTime == 0 {
		p.MaxTrainingTime = DefaultMaxTrainingTime
	}

	return p
}

// MaxTrainingDuration is the training time budget of a round.
func (p Project) MaxTrainingDuration() time.Duration {
	return time.Duration(p.MaxTrainingTime) * time.Minute
}

func (p Project) Validate() error {
	switch {
	case p.Title == "":
		return ErrMissingTitle
	case !inUnitRange(p.ResponsesRatioThreshold):
		return fmt.Errorf("%w: responses_ratio_threshold", ErrThresholdRange)
	case !inUnitRange(p.ValidRoundTrainingThreshold):
		return fmt.Errorf("%w: valid_round_training_threshold", ErrThresholdRange)
	case !inUnitRange(p.BatteryLevelThreshold):
		return fmt.Errorf("%w: battery_level_threshold", ErrThresholdRange)
	}

	switch p.DatasetType {
	case IID, NonIID:
	default:
		return fmt.Errorf("%w: %q", ErrDatasetType, p.DatasetType)
	}

	switch p.TrainingMode {
	case Baseline, JointSamples, JointModels:
	default:
		return fmt.Errorf("%w: %q", ErrTrainingMode, p.TrainingMode)
	}

	return nil
}

func inUnitRange(v float64) bool {
	return v >= 0 && v <= 1
}
