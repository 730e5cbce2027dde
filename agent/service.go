package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/absmach/flaas/pkg/device"
	"github.com/absmach/flaas/pkg/fl"
	"github.com/absmach/flaas/pkg/mqtt"
	"github.com/absmach/flaas/pkg/notify"
	"github.com/absmach/flaas/pkg/sdk"
	"github.com/fxamacker/cbor/v2"
)

const (
	statusTopicTemplate = "%s/devices/%s/status"
	joinTopicTemplate   = "%s/devices/%s/join"

	dataKind         = "data"
	notificationKind = "notification"
)

var (
	errUnknownKind     = errors.New("unknown notification kind")
	errTrainingRequest = errors.New("invalid training request")
	errAlreadyTraining = errors.New("training request already in progress")
)

// TrainingRequest is the data message the manager sends to selected devices.
type TrainingRequest struct {
	RequestID    string `json:"requestId"`
	ProjectID    string `json:"projectId"`
	RoundNumber  uint64 `json:"roundNumber"`
	TrainingMode string `json:"trainingMode"`
}

type envelope struct {
	Kind    string          `json:"kind"`
	Data    json.RawMessage `json:"data,omitempty"`
	Header  string          `json:"header,omitempty"`
	Content string          `json:"content,omitempty"`
}

type joinMessage struct {
	ProjectID   string            `json:"project_id"`
	RoundNumber uint64            `json:"round_number"`
	Status      device.JoinStatus `json:"status"`
}

// Service simulates a device: it reports status on an interval and answers
// training requests by downloading the round model, training it and
// uploading the result.
type Service struct {
	cfg      Config
	deviceID string
	pubsub   mqtt.PubSub
	client   sdk.SDK
	trainer  Trainer
	logger   *slog.Logger

	mu     sync.Mutex
	active map[string]struct{}
	wg     sync.WaitGroup
}

func NewService(ctx context.Context, cfg Config, pubsub mqtt.PubSub, client sdk.SDK, trainer Trainer, logger *slog.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	deviceID := cfg.DeviceID
	if deviceID == "" {
		d, err := client.RegisterDevice(device.Device{
			Username: cfg.Username,
			OS:       cfg.OS,
			Model:    cfg.Model,
		})
		if err != nil {
			return nil, errors.Join(errors.New("failed to register device"), err)
		}
		deviceID = d.ID
		logger.Info("registered device", slog.String("device_id", deviceID), slog.String("username", cfg.Username))
	}

	return &Service{
		cfg:      cfg,
		deviceID: deviceID,
		pubsub:   pubsub,
		client:   client,
		trainer:  trainer,
		logger:   logger,
		active:   make(map[string]struct{}),
	}, nil
}

func (s *Service) DeviceID() string {
	return s.deviceID
}

// Run blocks until ctx is done and waits for in-flight training to finish.
func (s *Service) Run(ctx context.Context) error {
	topic := notify.NotificationTopic(s.cfg.TopicPrefix, s.cfg.Username)
	if err := s.pubsub.Subscribe(ctx, topic, s.handleNotification(ctx)); err != nil {
		return fmt.Errorf("failed to subscribe to notification topic: %w", err)
	}

	if err := s.publishStatus(ctx, device.Ping, ""); err != nil {
		s.logger.Warn("failed to publish status", slog.Any("error", err))
	}

	s.startStatusUpdates(ctx)
	s.wg.Wait()

	if err := s.pubsub.Unsubscribe(context.Background(), topic); err != nil {
		s.logger.Warn("failed to unsubscribe", slog.String("topic", topic), slog.Any("error", err))
	}

	return nil
}

func (s *Service) startStatusUpdates(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping status updates")

			return
		case <-ticker.C:
			if err := s.publishStatus(ctx, device.Ping, ""); err != nil {
				s.logger.Error("failed to publish status", slog.Any("error", err))

				continue
			}
			s.logger.Debug("published status", slog.String("device_id", s.deviceID))
		}
	}
}

func (s *Service) handleNotification(ctx context.Context) mqtt.Handler {
	return func(topic string, payload []byte) error {
		var msg envelope
		if err := json.Unmarshal(payload, &msg); err != nil {
			return err
		}

		switch msg.Kind {
		case dataKind:
			var req TrainingRequest
			if err := json.Unmarshal(msg.Data, &req); err != nil {
				return errors.Join(errTrainingRequest, err)
			}
			if req.RequestID == "" || req.ProjectID == "" {
				return errTrainingRequest
			}
			if !s.claim(req.RequestID) {
				return errAlreadyTraining
			}

			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				defer s.release(req.RequestID)

				if err := s.Train(ctx, req); err != nil {
					s.logger.Error("training failed",
						slog.String("project_id", req.ProjectID),
						slog.Uint64("round_number", req.RoundNumber),
						slog.Any("error", err))
				}
			}()
		case notificationKind:
			s.logger.Info("questionnaire received", slog.String("header", msg.Header), slog.String("topic", topic))
		default:
			return fmt.Errorf("%w: %q", errUnknownKind, msg.Kind)
		}

		return nil
	}
}

// Train answers one training request end to end.
func (s *Service) Train(ctx context.Context, req TrainingRequest) error {
	if err := s.publishStatus(ctx, device.TrainAck, req.RequestID); err != nil {
		return err
	}

	if err := s.join(ctx, req, device.DownloadModel); err != nil {
		return err
	}
	data, err := s.client.GetModel(req.ProjectID, req.RoundNumber)
	if err != nil {
		return err
	}
	weights, err := fl.DecodeWeights(data)
	if err != nil {
		return err
	}

	if err := s.join(ctx, req, device.Train); err != nil {
		return err
	}
	updated, results, err := s.trainer.Train(ctx, weights, req)
	if err != nil {
		return err
	}

	if err := s.join(ctx, req, device.SubmitResults); err != nil {
		return err
	}
	if err := s.client.SubmitModel(s.deviceID, req.ProjectID, req.RoundNumber, fl.EncodeWeights(updated)); err != nil {
		return err
	}
	if err := s.client.SubmitResults(s.deviceID, req.ProjectID, req.RoundNumber, results); err != nil {
		return err
	}

	if err := s.join(ctx, req, device.CompleteRound); err != nil {
		return err
	}
	s.logger.Info("round trained",
		slog.String("project_id", req.ProjectID),
		slog.Uint64("round_number", req.RoundNumber),
		slog.Float64("accuracy", results.Accuracy()))

	return nil
}

func (s *Service) publishStatus(ctx context.Context, requestType device.RequestType, requestID string) error {
	plugged, level := s.cfg.PowerPlugged, s.cfg.BatteryLevel
	report := device.Report{
		RequestType: requestType,
		RequestID:   requestID,
		Status: device.StatusPayload{
			Battery: device.BatteryStatus{PowerPlugged: &plugged, Level: &level},
		},
	}

	topic := fmt.Sprintf(statusTopicTemplate, s.cfg.TopicPrefix, s.deviceID)
	if s.cfg.Encoding == EncodingCBOR {
		data, err := cbor.Marshal(report)
		if err != nil {
			return err
		}

		return s.pubsub.Publish(ctx, topic, data)
	}

	return s.pubsub.Publish(ctx, topic, report)
}

func (s *Service) join(ctx context.Context, req TrainingRequest, status device.JoinStatus) error {
	topic := fmt.Sprintf(joinTopicTemplate, s.cfg.TopicPrefix, s.deviceID)

	return s.pubsub.Publish(ctx, topic, joinMessage{
		ProjectID:   req.ProjectID,
		RoundNumber: req.RoundNumber,
		Status:      status,
	})
}

func (s *Service) claim(requestID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.active[requestID]; ok {
		return false
	}
	s.active[requestID] = struct{}{}

	return true
}

func (s *Service) release(requestID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.active, requestID)
}
