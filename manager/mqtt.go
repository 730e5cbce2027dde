package manager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/absmach/flaas/pkg/device"
)

const (
	statusTopicSuffix = "status"
	joinTopicSuffix   = "join"
)

var errTopic = errors.New("unexpected topic")

type joinMessage struct {
	ProjectID   string            `json:"project_id"`
	RoundNumber uint64            `json:"round_number"`
	Status      device.JoinStatus `json:"status"`
}

// Subscribe consumes device status reports on {prefix}/devices/{id}/status
// and join progress on {prefix}/devices/{id}/join.
func (svc *service) Subscribe(ctx context.Context) error {
	if svc.pubsub == nil {
		svc.logger.Info("MQTT ingestion disabled")

		return nil
	}

	for _, suffix := range []string{statusTopicSuffix, joinTopicSuffix} {
		topic := fmt.Sprintf("%s/devices/+/%s", svc.topicPrefix, suffix)
		if err := svc.pubsub.Subscribe(ctx, topic, svc.handle(ctx)); err != nil {
			return err
		}
	}

	return nil
}

func (svc *service) handle(ctx context.Context) func(topic string, payload []byte) error {
	return func(topic string, payload []byte) error {
		deviceID, kind, err := parseDeviceTopic(svc.topicPrefix, topic)
		if err != nil {
			return err
		}

		switch kind {
		case statusTopicSuffix:
			report, err := device.DecodeReport(device.SniffContentType(payload), payload)
			if err != nil {
				return err
			}
			if _, err := svc.ReportStatus(ctx, deviceID, report); err != nil {
				return err
			}
			svc.logger.Debug("status report received", slog.String("device_id", deviceID))
		case joinTopicSuffix:
			var msg joinMessage
			if err := json.Unmarshal(payload, &msg); err != nil {
				return err
			}
			if _, err := svc.JoinRound(ctx, deviceID, msg.ProjectID, msg.RoundNumber, msg.Status); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: %s", errTopic, topic)
		}

		return nil
	}
}

func parseDeviceTopic(prefix, topic string) (deviceID, kind string, err error) {
	rest, ok := strings.CutPrefix(topic, prefix+"/devices/")
	if !ok {
		return "", "", fmt.Errorf("%w: %s", errTopic, topic)
	}

	deviceID, kind, ok = strings.Cut(rest, "/")
	if !ok || deviceID == "" || strings.Contains(kind, "/") {
		return "", "", fmt.Errorf("%w: %s", errTopic, topic)
	}

	return deviceID, kind, nil
}
