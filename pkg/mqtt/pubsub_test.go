package mqtt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

func completed(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)

	return t
}

func TestWait(t *testing.T) {
	errBroker := errors.New("not authorized")

	expired, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-expired.Done()

	cancelled, cancelNow := context.WithCancel(context.Background())
	cancelNow()

	cases := []struct {
		desc  string
		ctx   context.Context
		token *fakeToken
		err   error
	}{
		{desc: "completed", ctx: context.Background(), token: completed(nil)},
		{desc: "broker error", ctx: context.Background(), token: completed(errBroker), err: errBroker},
		{desc: "timeout", ctx: expired, token: &fakeToken{done: make(chan struct{})}, err: ErrTimeout},
		{desc: "cancelled", ctx: cancelled, token: &fakeToken{done: make(chan struct{})}, err: context.Canceled},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			err := wait(tc.ctx, tc.token)
			if tc.err == nil {
				assert.NoError(t, err)

				return
			}
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestEmptyTopic(t *testing.T) {
	ps := &pubsub{timeout: time.Second}
	ctx := context.Background()

	assert.ErrorIs(t, ps.Publish(ctx, "", []byte("x")), errEmptyTopic)
	assert.ErrorIs(t, ps.Subscribe(ctx, "", nil), errEmptyTopic)
	assert.ErrorIs(t, ps.Unsubscribe(ctx, ""), errEmptyTopic)
}

func TestNewPubSubRequiresClientID(t *testing.T) {
	_, err := NewPubSub(Config{}, nil)
	assert.ErrorIs(t, err, errEmptyID)
}
