package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pkgerrors "github.com/absmach/flaas/pkg/errors"
	"github.com/absmach/flaas/pkg/mqtt/mocks"
	"github.com/absmach/flaas/pkg/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMQTTSend(t *testing.T) {
	ps := new(mocks.MockPubSub)
	n := notify.NewMQTT(ps, "flaas")
	payload := map[string]any{"type": "train", "requestId": "r1"}

	ps.On("Publish", mock.Anything, "flaas/devices/alice/notifications", mock.MatchedBy(func(m notify.Message) bool {
		return m.Kind == "data" && m.Data["requestId"] == "r1"
	})).Return(nil).Once()
	ps.On("Publish", mock.Anything, "flaas/devices/bob/notifications", mock.Anything).Return(errors.New("broker down")).Once()

	err := n.Send(context.Background(), []string{"alice", "bob"}, payload, 60)
	assert.ErrorIs(t, err, pkgerrors.ErrExternalService)
	assert.ErrorContains(t, err, "bob")
	ps.AssertExpectations(t)

	assert.ErrorIs(t, n.Send(context.Background(), nil, payload, 60), notify.ErrNoRecipients)
}

func TestMQTTSchedule(t *testing.T) {
	ps := new(mocks.MockPubSub)
	n := notify.NewMQTT(ps, "flaas")
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	ps.On("Publish", mock.Anything, notify.NotificationTopic("flaas", "alice"), mock.MatchedBy(func(m notify.Message) bool {
		return m.Kind == "notification" && m.SendAt.Equal(at) && m.ExpiresAt.Equal(at.Add(time.Hour))
	})).Return(nil).Once()

	err := n.Schedule(context.Background(), []string{"alice"}, notify.Notification{SendAt: at, Header: "h", Content: "c", TTL: 60})
	require.NoError(t, err)
	ps.AssertExpectations(t)
}

func TestPushwoosh(t *testing.T) {
	cases := []struct {
		desc     string
		response string
		call     func(n notify.Notifier) error
		check    func(t *testing.T, req map[string]any)
		err      error
	}{
		{
			desc:     "silent data message",
			response: `{"status_code":200,"status_message":"OK"}`,
			call: func(n notify.Notifier) error {
				return n.Send(context.Background(), []string{"alice"}, map[string]any{"type": "train"}, 30)
			},
			check: func(t *testing.T, req map[string]any) {
				n := req["notifications"].([]any)[0].(map[string]any)
				assert.Equal(t, "now", n["send_date"])
				assert.Equal(t, float64(1800), n["android_gcm_ttl"])
				assert.Equal(t, float64(1), n["ios_silent"])
				assert.Equal(t, "train", n["data"].(map[string]any)["type"])
			},
		},
		{
			desc:     "scheduled notification",
			response: `{"status_code":200,"status_message":"OK"}`,
			call: func(n notify.Notifier) error {
				at := time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)

				return n.Schedule(context.Background(), []string{"alice", "bob"}, notify.Notification{SendAt: at, Header: "Survey", Content: "quick", TTL: 1440})
			},
			check: func(t *testing.T, req map[string]any) {
				n := req["notifications"].([]any)[0].(map[string]any)
				assert.Equal(t, "2026-03-01 14:00", n["send_date"])
				assert.Equal(t, "Survey", n["android_header"])
				assert.Equal(t, "Survey", n["ios_title"])
				assert.Len(t, n["users"], 2)
			},
		},
		{
			desc:     "rejected",
			response: `{"status_code":210,"status_message":"Argument error"}`,
			call: func(n notify.Notifier) error {
				return n.Send(context.Background(), []string{"alice"}, nil, 1)
			},
			err: pkgerrors.ErrExternalService,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			var captured map[string]any
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/createMessage", r.URL.Path)
				body, _ := io.ReadAll(r.Body)
				var envelope map[string]map[string]any
				_ = json.Unmarshal(body, &envelope)
				captured = envelope["request"]
				_, _ = w.Write([]byte(tc.response))
			}))
			defer srv.Close()

			n := notify.NewPushwoosh(notify.PushwooshConfig{URL: srv.URL + "/", Token: "tok", ApplicationCode: "APP"}, srv.Client())
			err := tc.call(n)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, "tok", captured["auth"])
			assert.Equal(t, "APP", captured["application"])
			tc.check(t, captured)
		})
	}
}

func TestPushwooshNoRecipients(t *testing.T) {
	n := notify.NewPushwoosh(notify.PushwooshConfig{}, nil)
	assert.ErrorIs(t, n.Send(context.Background(), nil, nil, 1), notify.ErrNoRecipients)
}

func TestNoop(t *testing.T) {
	n := notify.NewNoop(slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.NoError(t, n.Send(context.Background(), []string{"a"}, nil, 1))
	assert.NoError(t, n.Schedule(context.Background(), []string{"a"}, notify.Notification{}))
}
