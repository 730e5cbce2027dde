package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	pkgerrors "github.com/absmach/flaas/pkg/errors"
)

const (
	DefaultPushwooshURL = "https://cp.pushwoosh.com/json/1.3/"
	pushwooshDateLayout = "2006-01-02 15:04"
	iconURL             = "https://minoskt.github.io/download/flaas_large_icon.png"
)

var errPushwooshStatus = errors.New("pushwoosh rejected the request")

type PushwooshConfig struct {
	URL             string        `env:"URL"              envDefault:"https://cp.pushwoosh.com/json/1.3/"`
	Token           string        `env:"API_TOKEN"        envDefault:""`
	ApplicationCode string        `env:"APPLICATION_CODE" envDefault:""`
	Timeout         time.Duration `env:"TIMEOUT"          envDefault:"10s"`
}

type pushwoosh struct {
	cfg    PushwooshConfig
	client *http.Client
}

type pwNotification struct {
	SendDate                string         `json:"send_date"`
	IgnoreUserTimezone      bool           `json:"ignore_user_timezone"`
	Users                   []string       `json:"users"`
	Data                    map[string]any `json:"data,omitempty"`
	Content                 string         `json:"content,omitempty"`
	IOSSilent               int            `json:"ios_silent,omitempty"`
	AndroidSilent           int            `json:"android_silent,omitempty"`
	IOSTTL                  int            `json:"ios_ttl"`
	AndroidTTL              int            `json:"android_gcm_ttl"`
	AndroidHeader           string         `json:"android_header,omitempty"`
	IOSTitle                string         `json:"ios_title,omitempty"`
	AndroidDeliveryPriority string         `json:"android_delivery_priority,omitempty"`
	AndroidCustomIcon       string         `json:"android_custom_icon,omitempty"`
}

type pwRequest struct {
	Auth          string           `json:"auth"`
	Application   string           `json:"application"`
	Notifications []pwNotification `json:"notifications"`
}

type pwResponse struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
}

// NewPushwoosh returns a Notifier backed by the Pushwoosh createMessage API.
func NewPushwoosh(cfg PushwooshConfig, client *http.Client) Notifier {
	if cfg.URL == "" {
		cfg.URL = DefaultPushwooshURL
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &pushwoosh{cfg: cfg, client: client}
}

func (pw *pushwoosh) Send(ctx context.Context, usernames []string, payload map[string]any, ttlMinutes int) error {
	return pw.createMessage(ctx, pwNotification{
		SendDate:           "now",
		IgnoreUserTimezone: true,
		Users:              usernames,
		Data:               payload,
		IOSSilent:          1,
		AndroidSilent:      1,
		IOSTTL:             ttlMinutes * 60,
		AndroidTTL:         ttlMinutes * 60,
	})
}

// Schedule uses the device's local time zone for SendAt's wall clock.
func (pw *pushwoosh) Schedule(ctx context.Context, usernames []string, n Notification) error {
	return pw.createMessage(ctx, pwNotification{
		SendDate:                n.SendAt.Format(pushwooshDateLayout),
		Users:                   usernames,
		Content:                 n.Content,
		IOSTTL:                  n.TTL * 60,
		AndroidTTL:              n.TTL * 60,
		AndroidHeader:           n.Header,
		IOSTitle:                n.Header,
		AndroidDeliveryPriority: "high",
		AndroidCustomIcon:       iconURL,
	})
}

func (pw *pushwoosh) createMessage(ctx context.Context, n pwNotification) error {
	if len(n.Users) == 0 {
		return ErrNoRecipients
	}

	body, err := json.Marshal(map[string]pwRequest{
		"request": {
			Auth:          pw.cfg.Token,
			Application:   pw.cfg.ApplicationCode,
			Notifications: []pwNotification{n},
		},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pw.cfg.URL+"createMessage", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := pw.client.Do(req)
	if err != nil {
		return errors.Join(pkgerrors.ErrExternalService, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Join(pkgerrors.ErrExternalService, err)
	}

	var res pwResponse
	if err := json.Unmarshal(data, &res); err != nil {
		return errors.Join(pkgerrors.ErrExternalService, fmt.Errorf("http %d: %w", resp.StatusCode, err))
	}
	if res.StatusCode != http.StatusOK {
		return errors.Join(pkgerrors.ErrExternalService, fmt.Errorf("%w: %d %s", errPushwooshStatus, res.StatusCode, res.StatusMessage))
	}

	return nil
}
