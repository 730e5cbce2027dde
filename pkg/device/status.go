package device

import (
	"fmt"
	"time"
)

type RequestType string

const (
	Ping     RequestType = "device-ping"
	TrainAck RequestType = "device-train"
)

// StatusReport is an append-only telemetry record. Seq is assigned by the
// store on insertion and orders reports sharing a timestamp.
type StatusReport struct {
	ID          string        `json:"id"`
	Seq         uint64        `json:"seq"`
	DeviceID    string        `json:"device_id"`
	RequestType RequestType   `json:"request_type"`
	RequestID   string        `json:"request_id,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
	Payload     StatusPayload `json:"payload"`
}

// Newer reports whether r supersedes other.
func (r StatusReport) Newer(other StatusReport) bool {
	if r.Timestamp.Equal(other.Timestamp) {
		return r.Seq > other.Seq
	}

	return r.Timestamp.After(other.Timestamp)
}

// Report is what a device submits.
type Report struct {
	RequestType RequestType   `json:"request_type"`
	RequestID   string        `json:"request_id,omitempty"`
	Status      StatusPayload `json:"device_info"`
}

func (r Report) Validate() error {
	switch r.RequestType {
	case Ping:
	case TrainAck:
		if r.RequestID == "" {
			return ErrMissingRequestID
		}
	default:
		return fmt.Errorf("%w: %q", ErrRequestType, r.RequestType)
	}

	return r.Status.Validate()
}

type StatusPayload struct {
	Battery      BatteryStatus       `json:"battery_status"`
	App          *AppDetails         `json:"app_details,omitempty"`
	Usage        *UsageStats         `json:"usage_stats_details,omitempty"`
	Connectivity *ConnectivityStatus `json:"connectivity_status,omitempty"`
	Details      *Details            `json:"device_details,omitempty"`
}

// Battery fields are pointers so that an absent value can be told apart
// from false or zero.
type BatteryStatus struct {
	PowerPlugged *bool    `json:"power_plugged"`
	Level        *float64 `json:"level"`
}

type AppDetails struct {
	VersionCode int64 `json:"version_code"`
}

type UsageStats struct {
	AppStandbyBucket string `json:"app_standby_bucket"`
}

type ConnectivityStatus struct {
	ActiveNetwork *Network `json:"active_network,omitempty"`
}

type Network struct {
	TypeName    string `json:"type_name"`
	SubtypeName string `json:"subtype_name,omitempty"`
}

type Details struct {
	OS                OS     `json:"os,omitempty"`
	Model             string `json:"model,omitempty"`
	Manufacturer      string `json:"manufacturer,omitempty"`
	Brand             string `json:"brand,omitempty"`
	BuildType         string `json:"build_type,omitempty"`
	Incremental       string `json:"incremental,omitempty"`
	OSVersion         string `json:"os_version,omitempty"`
	SecurityPatch     string `json:"security_patch,omitempty"`
	SamplesDownloaded *bool  `json:"samples_downloaded,omitempty"`
}

func (p StatusPayload) Validate() error {
	if p.Battery.PowerPlugged == nil {
		return fmt.Errorf("%w: battery_status.power_plugged", ErrMissingField)
	}
	if p.Battery.Level == nil {
		return fmt.Errorf("%w: battery_status.level", ErrMissingField)
	}
	if l := *p.Battery.Level; l < 0 || l > 1 {
		return fmt.Errorf("%w: %v", ErrBatteryLevel, l)
	}

	return nil
}

// Plugged and Level must only be called on validated payloads.
func (p StatusPayload) Plugged() bool {
	return *p.Battery.PowerPlugged
}

func (p StatusPayload) Level() float64 {
	return *p.Battery.Level
}
