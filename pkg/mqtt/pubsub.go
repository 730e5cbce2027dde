package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	connTimeout       = 10 * time.Second
	maxReconnInterval = time.Minute
	disconnQuiesce    = 250 // milliseconds
)

var (
	ErrTimeout    = errors.New("mqtt operation timed out")
	errEmptyTopic = errors.New("empty topic")
	errEmptyID    = errors.New("empty client id")
)

type Config struct {
	URL      string        `env:"URL"       envDefault:"tcp://localhost:1883"`
	ClientID string        `env:"CLIENT_ID" envDefault:"flaas-manager"`
	Username string        `env:"USERNAME"  envDefault:""`
	Password string        `env:"PASSWORD"  envDefault:""`
	QoS      byte          `env:"QOS"       envDefault:"1"`
	Timeout  time.Duration `env:"TIMEOUT"   envDefault:"30s"`
	// WillTopic receives an offline notice when the connection drops
	// unexpectedly. Empty disables the last will.
	WillTopic string `env:"WILL_TOPIC" envDefault:""`
}

// Handler receives the raw payload. Payloads may be JSON or CBOR, so
// decoding is left to the subscriber.
type Handler func(topic string, payload []byte) error

// PubSub publishes device traffic and notifications. Publish sends []byte
// payloads as is and JSON-encodes anything else.
type PubSub interface {
	Publish(ctx context.Context, topic string, msg any) error
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Unsubscribe(ctx context.Context, topic string) error
	Disconnect(ctx context.Context) error
}

type pubsub struct {
	client  mqtt.Client
	qos     byte
	timeout time.Duration
	logger  *slog.Logger
}

func NewPubSub(cfg Config, logger *slog.Logger) (PubSub, error) {
	if cfg.ClientID == "" {
		return nil, errEmptyID
	}

	client := mqtt.NewClient(clientOptions(cfg, logger))
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := wait(ctx, client.Connect()); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", cfg.URL, err)
	}

	return &pubsub{
		client:  client,
		qos:     cfg.QoS,
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

func (ps *pubsub) Publish(ctx context.Context, topic string, msg any) error {
	if topic == "" {
		return errEmptyTopic
	}

	data, ok := msg.([]byte)
	if !ok {
		var err error
		if data, err = json.Marshal(msg); err != nil {
			return err
		}
	}

	return ps.do(ctx, "publish", topic, ps.client.Publish(topic, ps.qos, false, data))
}

func (ps *pubsub) Subscribe(ctx context.Context, topic string, handler Handler) error {
	if topic == "" {
		return errEmptyTopic
	}

	return ps.do(ctx, "subscribe", topic, ps.client.Subscribe(topic, ps.qos, ps.dispatch(handler)))
}

func (ps *pubsub) Unsubscribe(ctx context.Context, topic string) error {
	if topic == "" {
		return errEmptyTopic
	}

	return ps.do(ctx, "unsubscribe", topic, ps.client.Unsubscribe(topic))
}

func (ps *pubsub) Disconnect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ps.client.Disconnect(disconnQuiesce)

	return nil
}

// do waits for token within the configured timeout and the caller's ctx.
func (ps *pubsub) do(ctx context.Context, op, topic string, token mqtt.Token) error {
	ctx, cancel := context.WithTimeout(ctx, ps.timeout)
	defer cancel()

	if err := wait(ctx, token); err != nil {
		return fmt.Errorf("failed to %s %s: %w", op, topic, err)
	}

	return nil
}

func (ps *pubsub) dispatch(h Handler) mqtt.MessageHandler {
	return func(_ mqtt.Client, m mqtt.Message) {
		defer m.Ack()

		if err := h(m.Topic(), m.Payload()); err != nil {
			ps.logger.Warn("failed to handle MQTT message", slog.String("topic", m.Topic()), slog.Any("error", err))
		}
	}
}

func wait(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}

		return ctx.Err()
	}
}

func clientOptions(cfg Config, logger *slog.Logger) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.URL).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(connTimeout).
		SetMaxReconnectInterval(maxReconnInterval)

	if cfg.WillTopic != "" {
		opts.SetWill(cfg.WillTopic, fmt.Sprintf(`{"status":"offline","client_id":%q}`, cfg.ClientID), 0, false)
	}

	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("MQTT connected", slog.String("broker", cfg.URL), slog.String("client_id", cfg.ClientID))
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", slog.Any("error", err))
	})
	opts.SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
		logger.Info("MQTT reconnecting", slog.String("client_id", cfg.ClientID))
	})

	return opts
}
