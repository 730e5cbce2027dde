package agent

import (
	"errors"
	"fmt"
	"time"

	"github.com/absmach/flaas/pkg/device"
)

const (
	EncodingJSON = "json"
	EncodingCBOR = "cbor"
)

var (
	errMissingUsername = errors.New("username is required")
	errEncoding        = errors.New("unsupported status encoding")
	errBatteryLevel    = errors.New("battery level must be within [0, 1]")
	errAccuracy        = errors.New("accuracy must be within [0, 1]")
)

// Config describes the simulated device. An empty DeviceID registers a new
// device under Username on startup. cmd/agent generates a Username when
// none is set.
type Config struct {
	DeviceID       string        `env:"DEVICE_ID"       envDefault:""`
	Username       string        `env:"USERNAME"        envDefault:""`
	OS             device.OS     `env:"OS"              envDefault:"Android"`
	Model          string        `env:"MODEL"           envDefault:"simulator"`
	TopicPrefix    string        `env:"TOPIC_PREFIX"    envDefault:"flaas"`
	StatusInterval time.Duration `env:"STATUS_INTERVAL" envDefault:"1m"`
	Encoding       string        `env:"ENCODING"        envDefault:"json"`
	PowerPlugged   bool          `env:"POWER_PLUGGED"   envDefault:"true"`
	BatteryLevel   float64       `env:"BATTERY_LEVEL"   envDefault:"1"`
	Accuracy       float64       `env:"ACCURACY"        envDefault:"0.8"`
	Samples        int           `env:"SAMPLES"         envDefault:"100"`
	Seed           uint64        `env:"SEED"            envDefault:"1"`
}

func (c Config) Validate() error {
	if c.Username == "" {
		return errMissingUsername
	}
	switch c.Encoding {
	case EncodingJSON, EncodingCBOR:
	default:
		return fmt.Errorf("%w: %q", errEncoding, c.Encoding)
	}
	if c.BatteryLevel < 0 || c.BatteryLevel > 1 {
		return errBatteryLevel
	}
	if c.Accuracy < 0 || c.Accuracy > 1 {
		return errAccuracy
	}

	return nil
}
