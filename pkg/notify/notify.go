// Package notify delivers training requests and questionnaires to devices.
package notify

import (
	"context"
	"errors"
	"time"
)

var ErrNoRecipients = errors.New("no recipients")

// Notification is a user-visible message scheduled for a given time.
type Notification struct {
	SendAt  time.Time
	Header  string
	Content string
	// TTL in minutes.
	TTL int
}

type Notifier interface {
	// Send delivers a silent data message to every username. The message
	// expires after ttlMinutes.
	Send(ctx context.Context, usernames []string, payload map[string]any, ttlMinutes int) error

	// Schedule registers a visible notification for later delivery.
	Schedule(ctx context.Context, usernames []string, n Notification) error
}
