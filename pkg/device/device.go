package device

import (
	"fmt"
	"time"
)

type OS string

const (
	Android OS = "Android"
	IOS     OS = "iOS"
)

// Device is a registered client. ProjectID is empty while the device is not
// enrolled in any project.
type Device struct {
	ID                string    `json:"id"`
	Username          string    `json:"username"`
	ProjectID         string    `json:"project_id,omitempty"`
	OS                OS        `json:"os,omitempty"`
	Model             string    `json:"model,omitempty"`
	Manufacturer      string    `json:"manufacturer,omitempty"`
	Brand             string    `json:"brand,omitempty"`
	BuildType         string    `json:"build_type,omitempty"`
	Incremental       string    `json:"incremental,omitempty"`
	OSVersion         string    `json:"os_version,omitempty"`
	SecurityPatch     string    `json:"security_patch,omitempty"`
	SamplesIndex      int64     `json:"samples_index"`
	SamplesDownloaded bool      `json:"samples_downloaded"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type DevicePage struct {
	Offset  uint64   `json:"offset"`
	Limit   uint64   `json:"limit"`
	Total   uint64   `json:"total"`
	Devices []Device `json:"devices"`
}

// ApplyDetails overwrites the descriptors present in d.
func (dev Device) ApplyDetails(d Details) Device {
	if d.OS != "" {
		dev.OS = d.OS
	}
	if d.Model != "" {
		dev.Model = d.Model
	}
	if d.Manufacturer != "" {
		dev.Manufacturer = d.Manufacturer
	}
	if d.Brand != "" {
		dev.Brand = d.Brand
	}
	if d.BuildType != "" {
		dev.BuildType = d.BuildType
	}
	if d.Incremental != "" {
		dev.Incremental = d.Incremental
	}
	if d.OSVersion != "" {
		dev.OSVersion = d.OSVersion
	}
	if d.SecurityPatch != "" {
		dev.SecurityPatch = d.SecurityPatch
	}
	if d.SamplesDownloaded != nil {
		dev.SamplesDownloaded = *d.SamplesDownloaded
	}

	return dev
}

type JoinStatus uint8

const (
	Joined JoinStatus = iota + 1
	DownloadModel
	Train
	MergeModels
	SubmitResults
	CompleteRound
)

var joinStatusNames = map[JoinStatus]string{
	Joined:        "join",
	DownloadModel: "download_model",
	Train:         "train",
	MergeModels:   "merge_models",
	SubmitResults: "submit_results",
	CompleteRound: "complete",
}

func (s JoinStatus) String() string {
	if name, ok := joinStatusNames[s]; ok {
		return name
	}

	return "unknown"
}

func (s JoinStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *JoinStatus) UnmarshalText(b []byte) error {
	for status, name := range joinStatusNames {
		if name == string(b) {
			*s = status

			return nil
		}
	}

	return fmt.Errorf("%w: %q", ErrJoinStatus, string(b))
}

// JoinedRound tracks a device's self-reported progress through a round.
type JoinedRound struct {
	DeviceID    string     `json:"device_id"`
	RoundID     string     `json:"round_id"`
	ProjectID   string     `json:"project_id"`
	RoundNumber uint64     `json:"round_number"`
	Status      JoinStatus `json:"status"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
