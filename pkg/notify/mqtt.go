package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/absmach/flaas/pkg/errors"
	"github.com/absmach/flaas/pkg/mqtt"
)

const notificationTopicTemplate = "%s/devices/%s/notifications"

type mqttNotifier struct {
	pubsub mqtt.PubSub
	prefix string
}

// Message is the envelope published to a device's notification topic.
type Message struct {
	Kind      string         `json:"kind"`
	Data      map[string]any `json:"data,omitempty"`
	Header    string         `json:"header,omitempty"`
	Content   string         `json:"content,omitempty"`
	SendAt    *time.Time     `json:"send_at,omitempty"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// NewMQTT returns a Notifier publishing one message per username on
// {prefix}/devices/{username}/notifications.
func NewMQTT(pubsub mqtt.PubSub, prefix string) Notifier {
	return &mqttNotifier{pubsub: pubsub, prefix: prefix}
}

func NotificationTopic(prefix, username string) string {
	return fmt.Sprintf(notificationTopicTemplate, prefix, username)
}

func (m *mqttNotifier) Send(ctx context.Context, usernames []string, payload map[string]any, ttlMinutes int) error {
	msg := Message{
		Kind:      "data",
		Data:      payload,
		ExpiresAt: time.Now().UTC().Add(time.Duration(ttlMinutes) * time.Minute),
	}

	return m.publish(ctx, usernames, msg)
}

func (m *mqttNotifier) Schedule(ctx context.Context, usernames []string, n Notification) error {
	sendAt := n.SendAt.UTC()
	msg := Message{
		Kind:      "notification",
		Header:    n.Header,
		Content:   n.Content,
		SendAt:    &sendAt,
		ExpiresAt: sendAt.Add(time.Duration(n.TTL) * time.Minute),
	}

	return m.publish(ctx, usernames, msg)
}

// publish attempts every recipient and reports all failures together.
func (m *mqttNotifier) publish(ctx context.Context, usernames []string, msg Message) error {
	if len(usernames) == 0 {
		return ErrNoRecipients
	}

	var errs []error
	for _, u := range usernames {
		if err := m.pubsub.Publish(ctx, NotificationTopic(m.prefix, u), msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", u, err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(pkgerrors.ErrExternalService, errors.Join(errs...))
	}

	return nil
}
